package gemini

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// HistoryDays is the length of the price history requested for every product
const HistoryDays = 30

const systemInstruction = `
You are a retail pricing analyst. You research a product and its competitors on the web and recommend a selling price.

Use Google Search to find competing listings for the same or an equivalent product when no competitor URLs are given. When URLs are given, read those pages and use them as the competitor set.

Respond with a single JSON object and nothing else. It must have exactly this shape:

{
  "userProduct": {
    "url": string (omit when the product was described by name),
    "productName": string,
    "price": number,
    "originalPrice": number (optional),
    "discountPercentage": number (optional),
    "historicalPrices": [{"date": "YYYY-MM-DD", "price": number}]
  },
  "competitors": [
    {
      "url": string,
      "productName": string,
      "price": number,
      "originalPrice": number (optional),
      "discountPercentage": number (optional),
      "stockStatus": "In Stock" | "Low Stock" | "Out of Stock",
      "priceTrend": "up" | "down" | "stable",
      "historicalPrices": [{"date": "YYYY-MM-DD", "price": number}]
    }
  ],
  "suggestedPrice": number,
  "reasoning": string,
  "marketSummary": string,
  "historicalPriceAnalysis": string
}

Rules:
* Prices are plain numbers in the listing currency, without symbols or thousands separators.
* "historicalPrices" for the product and for every competitor must hold one entry per day for the %d days ending on %s, oldest first.
* "suggestedPrice" must be justified in "reasoning" by the competitor prices you found.
`

// buildSystemInstruction renders the instruction for the given day
func buildSystemInstruction(today time.Time) string {
	return strings.TrimSpace(fmt.Sprintf(systemInstruction, HistoryDays, today.Format("2006-01-02")))
}

// buildPrompt describes the subject and the competitor set
func buildPrompt(req domain.AnalysisRequest) string {
	var b strings.Builder

	subject := req.Subject
	if subject.HasURL() {
		fmt.Fprintf(&b, "Analyze the product listed at this URL: %s\n", strings.TrimSpace(subject.URL))
		if name := strings.TrimSpace(subject.ProductName); name != "" {
			fmt.Fprintf(&b, "The seller calls it %q.\n", name)
		}
	} else {
		price := 0.0
		if subject.CurrentPrice != nil {
			price = *subject.CurrentPrice
		}
		fmt.Fprintf(&b, "Analyze the product %q, currently sold at %s.\n",
			strings.TrimSpace(subject.ProductName), strconv.FormatFloat(price, 'f', -1, 64))
	}

	urls := nonEmpty(req.CompetitorURLs)
	if len(urls) == 0 {
		b.WriteString("No competitor URLs are provided. Discover the main competing listings yourself.\n")
		return b.String()
	}

	b.WriteString("Compare it against these competitor listings:\n")
	for _, u := range urls {
		fmt.Fprintf(&b, "- %s\n", u)
	}
	return b.String()
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
