// Package gemini implements the market analyzer on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/pricelens/backend/internal/domain"
)

// DefaultModel is used when no model is configured
const DefaultModel = "gemini-2.5-flash"

// Config holds the analyzer settings
type Config struct {
	APIKey            string
	Model             string
	RequestsPerMinute int
}

// contentGenerator is the part of the genai client the analyzer needs
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client analyzes products with Gemini, grounded on Google Search and the
// pages behind any given URLs.
type Client struct {
	models      contentGenerator
	model       string
	rateLimiter *rate.Limiter
	now         func() time.Time
	logger      zerolog.Logger
}

// NewClient creates the Gemini client once for the lifetime of the analyzer
func NewClient(ctx context.Context, cfg Config, logger zerolog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return newClient(client.Models, cfg, logger), nil
}

func newClient(models contentGenerator, cfg Config, logger zerolog.Logger) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Limit(float64(cfg.RequestsPerMinute) / 60)
		burst = cfg.RequestsPerMinute
	}

	return &Client{
		models:      models,
		model:       model,
		rateLimiter: rate.NewLimiter(limit, burst),
		now:         time.Now,
		logger:      logger.With().Str("component", "gemini").Str("model", model).Logger(),
	}
}

// AnalyzeProduct asks the model for a market analysis of the subject
func (c *Client) AnalyzeProduct(ctx context.Context, req domain.AnalysisRequest) (*domain.ProductAnalysis, error) {
	label := req.Subject.Label()

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
	}

	contents := []*genai.Content{
		genai.NewContentFromText(buildPrompt(req), genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(buildSystemInstruction(c.now()), genai.RoleUser),
		Tools: []*genai.Tool{
			{
				URLContext:   &genai.URLContext{},
				GoogleSearch: &genai.GoogleSearch{},
			},
		},
	}

	start := time.Now()
	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		c.logger.Error().Err(err).Str("product", label).Msg("gemini API call failed")
		return nil, fmt.Errorf("gemini API call failed: %w", err)
	}

	text := resp.Text()
	analysis, err := DecodeAnalysis(text)
	if err != nil {
		c.logger.Error().Err(err).Str("product", label).Str("raw", truncate(text, 500)).Msg("unreadable gemini response")
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}

	fillSubject(analysis, req.Subject)
	analysis.Sources = groundingSources(resp)

	c.logger.Debug().
		Str("product", label).
		Int("competitors", len(analysis.Competitors)).
		Int("sources", len(analysis.Sources)).
		Dur("elapsed", time.Since(start)).
		Msg("analysis received")

	return analysis, nil
}

// fillSubject restores subject details the model left out
func fillSubject(a *domain.ProductAnalysis, s domain.Subject) {
	if a.UserProduct.URL == "" && s.HasURL() {
		a.UserProduct.URL = strings.TrimSpace(s.URL)
	}
	if a.UserProduct.ProductName == "" {
		a.UserProduct.ProductName = s.Label()
	}
	if a.UserProduct.Price.IsZero() && s.CurrentPrice != nil {
		a.UserProduct.Price = domain.NewAmount(*s.CurrentPrice)
	}
}

// truncate shortens s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
