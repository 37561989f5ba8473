package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/domain"
)

type stubAnalyzer struct {
	analysis *domain.ProductAnalysis
}

func (s stubAnalyzer) AnalyzeProduct(ctx context.Context, req domain.AnalysisRequest) (*domain.ProductAnalysis, error) {
	copied := *s.analysis
	return &copied, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Gemini:    config.GeminiConfig{APIKey: "test-key", Model: "gemini-2.5-flash"},
		Analysis:  config.AnalysisConfig{RefinementMode: "per_item"},
		Cache:     config.CacheConfig{Type: "memory"},
		Predictor: config.PredictorConfig{Enabled: false},
		Log:       config.LogConfig{Level: "info", Format: "json"},
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("json output at the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)

		logger.Info().Msg("hidden")
		logger.Warn().Str("product", "Mug").Msg("shown")

		var line map[string]interface{}
		require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
		assert.Equal(t, "shown", line["message"])
		assert.Equal(t, "Mug", line["product"])
		assert.Equal(t, "warn", line["level"])
	})

	t.Run("console output and unknown level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(config.LogConfig{Level: "chatty", Format: "console"}, &buf)

		logger.Debug().Msg("hidden")
		logger.Info().Msg("hello")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "hello")
		assert.NotContains(t, buf.String(), `"message"`)
	})
}

func TestNew_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Gemini.APIKey = ""

	_, err := New(context.Background(), cfg, NewLogger(cfg.Log, &bytes.Buffer{}))
	assert.Error(t, err)
}

func TestNewApp_WithoutPredictor(t *testing.T) {
	cfg := testConfig()
	a := newApp(cfg, NewLogger(cfg.Log, &bytes.Buffer{}), stubAnalyzer{analysis: &domain.ProductAnalysis{
		UserProduct:    domain.UserProduct{ProductName: "Mug", Price: domain.NewAmount(12)},
		SuggestedPrice: 13,
	}})
	defer a.Close()

	require.NotNil(t, a.Analysis)
	require.NotNil(t, a.Exporter)
	require.NotNil(t, a.cache)

	price := 12.0
	analysis, err := a.Analysis.AnalyzeProduct(context.Background(), domain.AnalysisRequest{
		Subject: domain.Subject{ProductName: "Mug", CurrentPrice: &price},
	})
	require.NoError(t, err)
	assert.Equal(t, 13.0, analysis.SuggestedPrice)
	assert.Equal(t, 1, a.cache.Size())
}

func TestNewApp_WithPredictor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"predicted_price": 11.6}`))
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.Cache.Type = "none"
	cfg.Predictor = config.PredictorConfig{Enabled: true, BaseURL: server.URL}

	a := newApp(cfg, NewLogger(cfg.Log, &bytes.Buffer{}), stubAnalyzer{analysis: &domain.ProductAnalysis{
		UserProduct:    domain.UserProduct{ProductName: "Mug", Price: domain.NewAmount(12)},
		SuggestedPrice: 13,
	}})
	defer a.Close()

	assert.Nil(t, a.cache)

	analysis, err := a.Analysis.AnalyzeProduct(context.Background(), domain.AnalysisRequest{
		Subject: domain.Subject{URL: "https://mine.example/mug"},
	})
	require.NoError(t, err)
	assert.Equal(t, 12.0, analysis.SuggestedPrice)
}

func TestApp_Handler(t *testing.T) {
	cfg := testConfig()
	a := newApp(cfg, NewLogger(cfg.Log, &bytes.Buffer{}), stubAnalyzer{analysis: &domain.ProductAnalysis{}})
	defer a.Close()

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pricelens-backend")
	assert.Contains(t, w.Body.String(), `"cache":{"enabled":true,"entries":0}`)
}

func TestApp_HandlerWithoutCache(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Type = "none"
	a := newApp(cfg, NewLogger(cfg.Log, &bytes.Buffer{}), stubAnalyzer{analysis: &domain.ProductAnalysis{}})
	defer a.Close()

	w := httptest.NewRecorder()
	a.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"cache":{"enabled":false}`)
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = "0"
	a := newApp(cfg, NewLogger(cfg.Log, &bytes.Buffer{}), stubAnalyzer{analysis: &domain.ProductAnalysis{}})
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}
