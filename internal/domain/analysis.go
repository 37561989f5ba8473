package domain

import "strings"

// Stock statuses reported for competitors
const (
	StockInStock    = "In Stock"
	StockLowStock   = "Low Stock"
	StockOutOfStock = "Out of Stock"
)

// Price trends reported for competitors
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// HistoricalPricePoint is one daily price observation
type HistoricalPricePoint struct {
	Date  string  `json:"date"` // YYYY-MM-DD
	Price float64 `json:"price"`
}

// Competitor is a competing listing found for the analyzed product
type Competitor struct {
	URL                string                 `json:"url"`
	ProductName        string                 `json:"productName"`
	Price              Amount                 `json:"price"`
	OriginalPrice      *Amount                `json:"originalPrice,omitempty"`
	DiscountPercentage *float64               `json:"discountPercentage,omitempty"`
	StockStatus        string                 `json:"stockStatus"`
	PriceTrend         string                 `json:"priceTrend"`
	HistoricalPrices   []HistoricalPricePoint `json:"historicalPrices,omitempty"`
}

// UserProduct is the product being priced
type UserProduct struct {
	URL                string                 `json:"url,omitempty"`
	ProductName        string                 `json:"productName"`
	Price              Amount                 `json:"price"`
	OriginalPrice      *Amount                `json:"originalPrice,omitempty"`
	DiscountPercentage *float64               `json:"discountPercentage,omitempty"`
	HistoricalPrices   []HistoricalPricePoint `json:"historicalPrices,omitempty"`
}

// Source is a web page the analysis was grounded on
type Source struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

// ProductAnalysis is the market analysis for one product.
// SuggestedPrice is the only field changed after the AI produced it.
type ProductAnalysis struct {
	UserProduct             UserProduct  `json:"userProduct"`
	Competitors             []Competitor `json:"competitors"`
	SuggestedPrice          float64      `json:"suggestedPrice"`
	Reasoning               string       `json:"reasoning"`
	MarketSummary           string       `json:"marketSummary"`
	HistoricalPriceAnalysis string       `json:"historicalPriceAnalysis"`
	Sources                 []Source     `json:"sources,omitempty"`
}

// AnalysisResult is an ordered set of analyses
type AnalysisResult []*ProductAnalysis

// CsvProduct is one validated row of a batch upload
type CsvProduct struct {
	ProductName    string   `json:"productName"`
	CurrentPrice   float64  `json:"currentPrice"`
	UserProductURL string   `json:"userProductUrl"`
	CompetitorURLs []string `json:"competitorUrls"`
}

// Subject identifies the product to analyze: either a URL, or a name and
// current price.
type Subject struct {
	URL          string   `json:"url,omitempty"`
	ProductName  string   `json:"productName,omitempty"`
	CurrentPrice *float64 `json:"currentPrice,omitempty"`
}

// HasURL reports whether the subject is identified by URL
func (s Subject) HasURL() bool {
	return strings.TrimSpace(s.URL) != ""
}

// Valid reports whether the subject carries enough to be analyzed
func (s Subject) Valid() bool {
	if s.HasURL() {
		return true
	}
	return strings.TrimSpace(s.ProductName) != "" && s.CurrentPrice != nil && *s.CurrentPrice >= 0
}

// Label names the subject in logs and error messages
func (s Subject) Label() string {
	if name := strings.TrimSpace(s.ProductName); name != "" {
		return name
	}
	return strings.TrimSpace(s.URL)
}

// AnalysisRequest asks the analyzer to price a subject.
// An empty CompetitorURLs means the analyzer discovers competitors itself.
type AnalysisRequest struct {
	Subject        Subject  `json:"subject"`
	CompetitorURLs []string `json:"competitorUrls,omitempty"`
}

// SubjectFromCsv derives the analysis subject for a batch row: its URL when
// present, otherwise its name and price.
func SubjectFromCsv(p CsvProduct) Subject {
	if strings.TrimSpace(p.UserProductURL) != "" {
		return Subject{URL: p.UserProductURL, ProductName: p.ProductName}
	}
	price := p.CurrentPrice
	return Subject{ProductName: p.ProductName, CurrentPrice: &price}
}

// PredictionFeatures is the payload sent to the price prediction model
type PredictionFeatures struct {
	CurrentPrice     float64   `json:"current_price"`
	CompetitorPrices []float64 `json:"competitor_prices"`
	Category         string    `json:"category"`
}

// Refinement is the outcome of the prediction step for one analysis.
// When Applied is false the AI price was kept and Err says why.
type Refinement struct {
	Applied bool
	Price   float64
	Err     error
}
