package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/iter"

	"github.com/pricelens/backend/internal/domain"
)

// RefinementMode selects how batch analyses reach the prediction model
type RefinementMode string

const (
	// RefinePerItem sends one prediction request per analysis, concurrently
	RefinePerItem RefinementMode = "per_item"
	// RefineCollective sends a single batch prediction request
	RefineCollective RefinementMode = "collective"
)

// AnalysisServiceConfig holds configuration for the analysis service
type AnalysisServiceConfig struct {
	CacheTTL       time.Duration
	RefinementMode RefinementMode
	// MaxConcurrency bounds the batch fan-out; 0 starts every item at once
	MaxConcurrency int
	// Timeout bounds one analysis call; 0 means no limit
	Timeout time.Duration
}

// AnalysisService runs AI market analyses and refines their suggested price
// with the prediction model.
type AnalysisService struct {
	analyzer       domain.MarketAnalyzer
	predictor      domain.PricePredictor
	cache          domain.CacheRepository
	cacheTTL       time.Duration
	refinementMode RefinementMode
	maxConcurrency int
	timeout        time.Duration
	logger         zerolog.Logger
}

// NewAnalysisService creates a new analysis service with dependencies.
// predictor and cache may be nil.
func NewAnalysisService(
	analyzer domain.MarketAnalyzer,
	predictor domain.PricePredictor,
	cache domain.CacheRepository,
	config AnalysisServiceConfig,
	logger zerolog.Logger,
) *AnalysisService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Hour
	}

	mode := config.RefinementMode
	if mode == "" {
		mode = RefinePerItem
	}

	return &AnalysisService{
		analyzer:       analyzer,
		predictor:      predictor,
		cache:          cache,
		cacheTTL:       cacheTTL,
		refinementMode: mode,
		maxConcurrency: config.MaxConcurrency,
		timeout:        config.Timeout,
		logger:         logger.With().Str("component", "analysis").Logger(),
	}
}

// AnalyzeProduct analyzes a single product.
// Flow: validate -> cache or AI analysis -> prediction refinement -> return.
// An AI failure fails the call; a prediction failure never does.
func (s *AnalysisService) AnalyzeProduct(
	ctx context.Context,
	request domain.AnalysisRequest,
) (*domain.ProductAnalysis, error) {
	if !request.Subject.Valid() {
		return nil, domain.ErrInvalidRequest
	}

	analysis, err := s.analyze(ctx, request)
	if err != nil {
		s.logger.Error().Err(err).Str("product", request.Subject.Label()).Msg("analysis failed")
		return nil, err
	}

	s.Refine(ctx, analysis)
	return analysis, nil
}

// analysisOutcome is the settled result of one batch item
type analysisOutcome struct {
	analysis *domain.ProductAnalysis
	err      error
}

// AnalyzeBatch analyzes every product concurrently. A failed item is logged
// and left out; it never cancels the others. The result keeps input order.
// When every item fails the error is a *domain.BatchFailedError.
func (s *AnalysisService) AnalyzeBatch(
	ctx context.Context,
	products []domain.CsvProduct,
) (domain.AnalysisResult, error) {
	if len(products) == 0 {
		s.logger.Warn().Msg("no products to analyze")
		return domain.AnalysisResult{}, nil
	}

	s.logger.Info().Int("products", len(products)).Msg("starting batch analysis")

	mapper := iter.Mapper[domain.CsvProduct, analysisOutcome]{MaxGoroutines: s.fanOut(len(products))}
	outcomes := mapper.Map(products, func(p *domain.CsvProduct) analysisOutcome {
		analysis, err := s.analyze(ctx, domain.AnalysisRequest{
			Subject:        domain.SubjectFromCsv(*p),
			CompetitorURLs: p.CompetitorURLs,
		})
		return analysisOutcome{analysis: analysis, err: err}
	})

	result := make(domain.AnalysisResult, 0, len(products))
	var failures []domain.ItemFailure
	for i, outcome := range outcomes {
		if outcome.err != nil {
			name := products[i].ProductName
			s.logger.Error().Err(outcome.err).Str("product", name).Msgf("analysis failed for %q", name)
			failures = append(failures, domain.ItemFailure{ProductName: name, Err: outcome.err})
			continue
		}
		result = append(result, outcome.analysis)
	}

	if len(result) == 0 {
		return nil, &domain.BatchFailedError{Failures: failures}
	}

	s.refineBatch(ctx, result)

	s.logger.Info().
		Int("succeeded", len(result)).
		Int("failed", len(failures)).
		Msg("batch analysis finished")
	return result, nil
}

func (s *AnalysisService) refineBatch(ctx context.Context, analyses domain.AnalysisResult) {
	if s.refinementMode == RefineCollective {
		s.RefineAll(ctx, analyses)
		return
	}

	// each analysis is touched by exactly one goroutine
	it := iter.Iterator[*domain.ProductAnalysis]{MaxGoroutines: s.fanOut(len(analyses))}
	it.ForEach(analyses, func(a **domain.ProductAnalysis) {
		s.Refine(ctx, *a)
	})
}

func (s *AnalysisService) fanOut(n int) int {
	if s.maxConcurrency > 0 && s.maxConcurrency < n {
		return s.maxConcurrency
	}
	return n
}

// analyze returns the raw AI analysis, from cache when possible
func (s *AnalysisService) analyze(
	ctx context.Context,
	request domain.AnalysisRequest,
) (*domain.ProductAnalysis, error) {
	cacheKey := generateCacheKey(request)

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		s.logger.Debug().Str("key", cacheKey).Msg("analysis served from cache")
		return cached, nil
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	analysis, err := s.analyzer.AnalyzeProduct(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAnalysisFailed, err)
	}
	if analysis == nil {
		return nil, fmt.Errorf("%w: analyzer returned no analysis", domain.ErrAnalysisFailed)
	}

	if err := s.setInCache(ctx, cacheKey, analysis); err != nil {
		s.logger.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache analysis")
	}

	return analysis, nil
}

// generateCacheKey creates a normalized cache key for an analysis request.
// Format: "analysis:{subject}:{competitor urls}"
func generateCacheKey(request domain.AnalysisRequest) string {
	var subject string
	if request.Subject.HasURL() {
		subject = "url=" + normalizeURLForCacheKey(request.Subject.URL)
	} else {
		price := ""
		if request.Subject.CurrentPrice != nil {
			price = strconv.FormatFloat(*request.Subject.CurrentPrice, 'f', -1, 64)
		}
		subject = "name=" + normalizeForCacheKey(request.Subject.ProductName) + "@" + price
	}

	urls := make([]string, len(request.CompetitorURLs))
	for i, u := range request.CompetitorURLs {
		urls[i] = normalizeURLForCacheKey(u)
	}
	return fmt.Sprintf("analysis:%s:%s", subject, strings.Join(urls, ";"))
}

func normalizeForCacheKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// normalizeURLForCacheKey folds only the scheme and host; path and query
// stay case-sensitive.
func normalizeURLForCacheKey(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	return u.String()
}

// getFromCache returns a fresh copy of a cached analysis
func (s *AnalysisService) getFromCache(ctx context.Context, key string) (*domain.ProductAnalysis, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}

	var analysis domain.ProductAnalysis
	if err := s.cache.Get(ctx, key, &analysis); err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
			if delErr := s.cache.Delete(ctx, key); delErr != nil {
				s.logger.Warn().Err(delErr).Str("key", key).Msg("failed to evict cache entry")
			}
		}
		return nil, err
	}
	return &analysis, nil
}

func (s *AnalysisService) setInCache(ctx context.Context, key string, analysis *domain.ProductAnalysis) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Set(ctx, key, analysis, s.cacheTTL)
}
