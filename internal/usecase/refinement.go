package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/normalize"
)

var errPredictorDisabled = fmt.Errorf("%w: predictor disabled", domain.ErrPredictionFailed)

// BuildFeatures derives the prediction payload for an analysis.
// Unreadable competitor prices are dropped; when none are left the subject's
// own price stands in so the competitor list is never empty.
func BuildFeatures(analysis *domain.ProductAnalysis) domain.PredictionFeatures {
	currentPrice, ok := analysis.UserProduct.Price.Number()
	if !ok {
		currentPrice = 0
	}

	competitorPrices := make([]float64, 0, len(analysis.Competitors))
	for _, c := range analysis.Competitors {
		if p, ok := c.Price.Number(); ok {
			competitorPrices = append(competitorPrices, p)
		}
	}
	if len(competitorPrices) == 0 {
		competitorPrices = []float64{currentPrice}
	}

	return domain.PredictionFeatures{
		CurrentPrice:     currentPrice,
		CompetitorPrices: competitorPrices,
		Category:         normalize.InferCategory(analysis.UserProduct.ProductName),
	}
}

// Refine asks the prediction model for a price and, when it answers with a
// finite number, replaces the suggested price with it rounded to a whole
// number. Any failure keeps the AI price; the returned Refinement says which
// branch was taken.
func (s *AnalysisService) Refine(ctx context.Context, analysis *domain.ProductAnalysis) domain.Refinement {
	if s.predictor == nil {
		return s.fallback(analysis, errPredictorDisabled)
	}

	predicted, err := s.predictor.Predict(ctx, BuildFeatures(analysis))
	if err != nil {
		return s.fallback(analysis, err)
	}
	return s.apply(analysis, predicted)
}

// RefineAll refines a set of analyses with one collective prediction request.
// If that request fails every analysis keeps its AI price.
func (s *AnalysisService) RefineAll(ctx context.Context, analyses domain.AnalysisResult) []domain.Refinement {
	refinements := make([]domain.Refinement, len(analyses))
	if len(analyses) == 0 {
		return refinements
	}

	fail := func(err error) []domain.Refinement {
		for i, a := range analyses {
			refinements[i] = s.fallback(a, err)
		}
		return refinements
	}

	if s.predictor == nil {
		return fail(errPredictorDisabled)
	}

	features := make([]domain.PredictionFeatures, len(analyses))
	for i, a := range analyses {
		features[i] = BuildFeatures(a)
	}

	predicted, err := s.predictor.PredictBatch(ctx, features)
	if err != nil {
		return fail(err)
	}
	if len(predicted) != len(analyses) {
		return fail(fmt.Errorf("%w: got %d predictions for %d products",
			domain.ErrPredictionFailed, len(predicted), len(analyses)))
	}

	for i, a := range analyses {
		refinements[i] = s.apply(a, predicted[i])
	}
	return refinements
}

func (s *AnalysisService) apply(analysis *domain.ProductAnalysis, predicted float64) domain.Refinement {
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
		return s.fallback(analysis, fmt.Errorf("%w: non-finite prediction", domain.ErrPredictionFailed))
	}

	price := roundPrice(predicted)
	s.logger.Debug().
		Str("product", analysis.UserProduct.ProductName).
		Float64("ai_price", analysis.SuggestedPrice).
		Float64("predicted_price", price).
		Msg("suggested price replaced by model prediction")

	analysis.SuggestedPrice = price
	return domain.Refinement{Applied: true, Price: price}
}

func (s *AnalysisService) fallback(analysis *domain.ProductAnalysis, err error) domain.Refinement {
	event := s.logger.Warn()
	if errors.Is(err, errPredictorDisabled) {
		event = s.logger.Debug()
	}
	event.Err(err).
		Str("product", analysis.UserProduct.ProductName).
		Float64("suggested_price", analysis.SuggestedPrice).
		Msg("price prediction unavailable, keeping AI suggested price")

	return domain.Refinement{Applied: false, Price: analysis.SuggestedPrice, Err: err}
}

// roundPrice rounds half away from zero
func roundPrice(v float64) float64 {
	return decimal.NewFromFloat(v).Round(0).InexactFloat64()
}
