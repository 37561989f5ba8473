// Package app wires configuration into the services shared by the binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/export"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/gemini"
	"github.com/pricelens/backend/internal/infrastructure/predictor"
	"github.com/pricelens/backend/internal/usecase"
)

// NewLogger builds the root logger: "json" writes raw JSON lines, anything
// else a human readable console format. An unknown level falls back to info.
func NewLogger(cfg config.LogConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// App holds the wired services
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Analysis *usecase.AnalysisService
	Exporter *export.Exporter

	cache *cache.MemoryCache
}

// New creates the analyzer, the optional predictor and cache, and the
// analysis service on top of them.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	if err := cfg.RequireAPIKey(); err != nil {
		return nil, err
	}

	analyzer, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:            cfg.Gemini.APIKey,
		Model:             cfg.Gemini.Model,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyzer: %w", err)
	}

	return newApp(cfg, logger, analyzer), nil
}

func newApp(cfg *config.Config, logger zerolog.Logger, analyzer domain.MarketAnalyzer) *App {
	var pricePredictor domain.PricePredictor
	if cfg.Predictor.Enabled {
		pricePredictor = predictor.NewClient(predictor.Config{
			BaseURL: cfg.Predictor.BaseURL,
			Timeout: cfg.Predictor.Timeout,
		}, logger)
		logger.Info().Str("base_url", cfg.Predictor.BaseURL).Msg("price prediction enabled")
	} else {
		logger.Info().Msg("price prediction disabled, AI suggested prices are kept")
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Exporter: export.NewExporter(),
	}

	var cacheRepo domain.CacheRepository
	if cfg.Cache.Type == "memory" {
		a.cache = cache.NewMemoryCache()
		cacheRepo = a.cache
	}

	a.Analysis = usecase.NewAnalysisService(analyzer, pricePredictor, cacheRepo, usecase.AnalysisServiceConfig{
		CacheTTL:       cfg.Cache.TTL,
		RefinementMode: usecase.RefinementMode(cfg.Analysis.RefinementMode),
		MaxConcurrency: cfg.Analysis.MaxConcurrency,
		Timeout:        cfg.Analysis.Timeout,
	}, logger)

	logger.Debug().
		Str("model", cfg.Gemini.Model).
		Str("cache", cfg.Cache.Type).
		Str("refinement_mode", cfg.Analysis.RefinementMode).
		Msg("services wired")

	return a
}

// Close releases background resources
func (a *App) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
}
