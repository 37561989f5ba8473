package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations.
// Values are stored as JSON; Get decodes into dest.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MarketAnalyzer produces an AI market analysis for one product
type MarketAnalyzer interface {
	AnalyzeProduct(ctx context.Context, request AnalysisRequest) (*ProductAnalysis, error)
}

// PricePredictor defines the interface for the price prediction model.
// PredictBatch returns one price per input, in input order.
type PricePredictor interface {
	Predict(ctx context.Context, features PredictionFeatures) (float64, error)
	PredictBatch(ctx context.Context, features []PredictionFeatures) ([]float64, error)
}
