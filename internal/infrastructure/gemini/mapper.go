package gemini

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/normalize"
)

var errNoJSONObject = errors.New("response contains no JSON object")

// wire types mirror the model output, where any number may arrive as a string
type analysisPayload struct {
	UserProduct             productPayload      `json:"userProduct"`
	Competitors             []competitorPayload `json:"competitors"`
	SuggestedPrice          domain.Amount       `json:"suggestedPrice"`
	Reasoning               string              `json:"reasoning"`
	MarketSummary           string              `json:"marketSummary"`
	HistoricalPriceAnalysis string              `json:"historicalPriceAnalysis"`
}

type productPayload struct {
	URL                string         `json:"url"`
	ProductName        string         `json:"productName"`
	Price              domain.Amount  `json:"price"`
	OriginalPrice      *domain.Amount `json:"originalPrice"`
	DiscountPercentage *domain.Amount `json:"discountPercentage"`
	HistoricalPrices   []pointPayload `json:"historicalPrices"`
}

type competitorPayload struct {
	productPayload
	StockStatus string `json:"stockStatus"`
	PriceTrend  string `json:"priceTrend"`
}

type pointPayload struct {
	Date  string        `json:"date"`
	Price domain.Amount `json:"price"`
}

// DecodeAnalysis extracts the analysis object from a model response.
// The text may be wrapped in a markdown code fence or surrounded by prose.
func DecodeAnalysis(text string) (*domain.ProductAnalysis, error) {
	raw, err := extractJSONObject(text)
	if err != nil {
		return nil, err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode analysis: %w", err)
	}
	return mapAnalysis(&payload), nil
}

func mapAnalysis(p *analysisPayload) *domain.ProductAnalysis {
	suggested, ok := p.SuggestedPrice.Number()
	if !ok {
		suggested, _ = normalize.ParseLooseNumber(p.SuggestedPrice.Text)
	}

	competitors := make([]domain.Competitor, 0, len(p.Competitors))
	for _, c := range p.Competitors {
		competitors = append(competitors, domain.Competitor{
			URL:                strings.TrimSpace(c.URL),
			ProductName:        strings.TrimSpace(c.ProductName),
			Price:              c.Price,
			OriginalPrice:      optionalAmount(c.OriginalPrice),
			DiscountPercentage: optionalNumber(c.DiscountPercentage),
			StockStatus:        normalizeStockStatus(c.StockStatus),
			PriceTrend:         normalizePriceTrend(c.PriceTrend),
			HistoricalPrices:   mapHistory(c.HistoricalPrices),
		})
	}

	return &domain.ProductAnalysis{
		UserProduct: domain.UserProduct{
			URL:                strings.TrimSpace(p.UserProduct.URL),
			ProductName:        strings.TrimSpace(p.UserProduct.ProductName),
			Price:              p.UserProduct.Price,
			OriginalPrice:      optionalAmount(p.UserProduct.OriginalPrice),
			DiscountPercentage: optionalNumber(p.UserProduct.DiscountPercentage),
			HistoricalPrices:   mapHistory(p.UserProduct.HistoricalPrices),
		},
		Competitors:             competitors,
		SuggestedPrice:          suggested,
		Reasoning:               strings.TrimSpace(p.Reasoning),
		MarketSummary:           strings.TrimSpace(p.MarketSummary),
		HistoricalPriceAnalysis: strings.TrimSpace(p.HistoricalPriceAnalysis),
	}
}

// mapHistory drops points without a readable price
func mapHistory(points []pointPayload) []domain.HistoricalPricePoint {
	if len(points) == 0 {
		return nil
	}
	out := make([]domain.HistoricalPricePoint, 0, len(points))
	for _, p := range points {
		price, ok := p.Price.Number()
		if !ok {
			continue
		}
		out = append(out, domain.HistoricalPricePoint{Date: strings.TrimSpace(p.Date), Price: price})
	}
	return out
}

func optionalAmount(a *domain.Amount) *domain.Amount {
	if a == nil || a.IsZero() {
		return nil
	}
	return a
}

func optionalNumber(a *domain.Amount) *float64 {
	if a == nil {
		return nil
	}
	v, ok := a.Number()
	if !ok {
		return nil
	}
	return &v
}

var stockStatuses = []string{domain.StockInStock, domain.StockLowStock, domain.StockOutOfStock}

var priceTrends = []string{domain.TrendUp, domain.TrendDown, domain.TrendStable}

func normalizeStockStatus(s string) string {
	return canonical(s, stockStatuses)
}

func normalizePriceTrend(s string) string {
	return canonical(s, priceTrends)
}

// canonical maps s onto a known spelling ignoring case; unknown values pass
// through trimmed.
func canonical(s string, known []string) string {
	s = strings.TrimSpace(s)
	for _, k := range known {
		if strings.EqualFold(s, k) {
			return k
		}
	}
	return s
}

// extractJSONObject returns the first balanced JSON object in text
func extractJSONObject(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return "", errNoJSONObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errNoJSONObject
}

// groundingSources lists the web pages the response was grounded on, once
// per URI, in the order the model cited them.
func groundingSources(resp *genai.GenerateContentResponse) []domain.Source {
	if resp == nil {
		return nil
	}

	seen := make(map[string]bool)
	var sources []domain.Source
	for _, cand := range resp.Candidates {
		if cand == nil || cand.GroundingMetadata == nil {
			continue
		}
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk == nil || chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
				continue
			}
			seen[chunk.Web.URI] = true
			sources = append(sources, domain.Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}
	return sources
}
