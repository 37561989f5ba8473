// Package predictor is the HTTP client for the price prediction model service.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
)

const (
	defaultTimeout  = 10 * time.Second
	defaultAttempts = 3
)

// Config holds the prediction service settings
type Config struct {
	BaseURL string
	Timeout time.Duration
	// MaxAttempts bounds retries of transient failures; 0 means the default
	MaxAttempts int
}

// Client calls the prediction service
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxAttempts int
	rateLimiter *rate.Limiter
	backoff     func(attempt int) time.Duration
	logger      zerolog.Logger
}

type predictResponse struct {
	PredictedPrice *float64 `json:"predicted_price"`
	Error          string   `json:"error"`
}

type batchRequest struct {
	Products []domain.PredictionFeatures `json:"products"`
}

type batchResponse struct {
	PredictedPrices []float64 `json:"predicted_prices"`
	Error           string    `json:"error"`
}

// NewClient creates a new prediction service client
func NewClient(cfg Config, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = defaultAttempts
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		maxAttempts: attempts,
		// the model service is local; the limiter only smooths bursts from
		// large batches
		rateLimiter: rate.NewLimiter(rate.Limit(20), 20),
		backoff:     exponentialBackoff,
		logger:      logger.With().Str("component", "predictor").Logger(),
	}
}

// exponentialBackoff returns 500ms, 1s, 2s...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// Predict returns the model price for one product
func (c *Client) Predict(ctx context.Context, features domain.PredictionFeatures) (float64, error) {
	body, err := c.post(ctx, "/predict", features)
	if err != nil {
		return 0, err
	}

	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("%w: failed to decode response: %v", domain.ErrPredictionFailed, err)
	}
	if resp.Error != "" {
		return 0, serviceError(resp.Error)
	}
	if resp.PredictedPrice == nil {
		return 0, fmt.Errorf("%w: response has no predicted_price", domain.ErrPredictionFailed)
	}
	if !finite(*resp.PredictedPrice) {
		return 0, fmt.Errorf("%w: predicted price is not finite", domain.ErrPredictionFailed)
	}

	c.logger.Debug().Str("category", features.Category).Float64("predicted_price", *resp.PredictedPrice).Msg("prediction received")
	return *resp.PredictedPrice, nil
}

// PredictBatch returns model prices aligned with the submitted products
func (c *Client) PredictBatch(ctx context.Context, features []domain.PredictionFeatures) ([]float64, error) {
	if len(features) == 0 {
		return []float64{}, nil
	}

	body, err := c.post(ctx, "/predict/batch", batchRequest{Products: features})
	if err != nil {
		return nil, err
	}

	var resp batchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", domain.ErrPredictionFailed, err)
	}
	if resp.Error != "" {
		return nil, serviceError(resp.Error)
	}
	if len(resp.PredictedPrices) != len(features) {
		return nil, fmt.Errorf("%w: got %d predictions for %d products",
			domain.ErrPredictionFailed, len(resp.PredictedPrices), len(features))
	}
	for i, p := range resp.PredictedPrices {
		if !finite(p) {
			return nil, fmt.Errorf("%w: prediction %d is not finite", domain.ErrPredictionFailed, i)
		}
	}

	c.logger.Debug().Int("products", len(features)).Msg("batch prediction received")
	return resp.PredictedPrices, nil
}

// post sends a JSON payload and returns the body of a 200 response.
// Connection errors, unreadable bodies and 5xx responses are retried; 4xx
// responses are not.
func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	reqURL := c.baseURL + path

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, c.backoff(attempt-1)); err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrPredictionFailed, err)
			}
		}

		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRateLimited, err)
		}

		resp, err := c.doRequest(ctx, reqURL, data)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Str("path", path).Msg("prediction request failed")
			lastErr = err
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Str("path", path).Msg("prediction response truncated")
			lastErr = fmt.Errorf("%w: failed to read response: %v", domain.ErrPredictionFailed, err)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode >= http.StatusInternalServerError:
			c.logger.Warn().Int("attempt", attempt).Int("status", resp.StatusCode).Str("path", path).Msg("prediction service error")
			lastErr = statusError(resp.StatusCode, body)
			continue
		default:
			return nil, statusError(resp.StatusCode, body)
		}
	}

	return nil, lastErr
}

// doRequest executes a JSON POST
func (c *Client) doRequest(ctx context.Context, reqURL string, data []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "PriceLens/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPredictionFailed, err)
	}
	return resp, nil
}

// statusError prefers the service's own error message over the raw body
func statusError(status int, body []byte) error {
	var resp struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &resp) == nil && resp.Error != "" {
		return fmt.Errorf("%w (status %d)", serviceError(resp.Error), status)
	}
	return fmt.Errorf("%w: status %d, body: %s", domain.ErrPredictionFailed, status, strings.TrimSpace(string(body)))
}

func serviceError(msg string) error {
	if strings.Contains(strings.ToLower(msg), "not trained") {
		return fmt.Errorf("%w: %w: %s", domain.ErrPredictionFailed, domain.ErrModelNotTrained, msg)
	}
	return fmt.Errorf("%w: %s", domain.ErrPredictionFailed, msg)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
