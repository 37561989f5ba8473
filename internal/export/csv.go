package export

import (
	"fmt"
	"strings"

	"github.com/pricelens/backend/internal/domain"
)

var analysisBaseColumns = []string{
	"Product Name",
	"Current Price",
	"Suggested Price",
	"Market Summary",
	"Historical Price Analysis",
	"Reasoning",
}

var competitorColumns = []string{
	"Analyzed Product",
	"Competitor Name",
	"Competitor URL",
	"Current Price",
	"Original Price",
	"Stock Status",
	"Price Trend",
}

var priceHistoryColumns = []string{
	"Analyzed Product",
	"Source Product",
	"Date",
	"Price",
}

// competitorGroupWidth is the number of columns per competitor in AnalysisCSV
const competitorGroupWidth = 4

// AnalysisCSV renders one row per analysis. Competitor columns repeat for
// the longest competitor list in the set and shorter rows are padded, so
// every row has the same width.
func AnalysisCSV(results domain.AnalysisResult) string {
	maxCompetitors := 0
	for _, a := range results {
		if len(a.Competitors) > maxCompetitors {
			maxCompetitors = len(a.Competitors)
		}
	}

	header := make([]interface{}, 0, len(analysisBaseColumns)+maxCompetitors*competitorGroupWidth)
	for _, c := range analysisBaseColumns {
		header = append(header, c)
	}
	for n := 1; n <= maxCompetitors; n++ {
		header = append(header,
			fmt.Sprintf("Competitor %d Name", n),
			fmt.Sprintf("Competitor %d Price", n),
			fmt.Sprintf("Competitor %d Stock Status", n),
			fmt.Sprintf("Competitor %d Price Trend", n),
		)
	}

	rows := []string{joinRow(header)}
	for _, a := range results {
		row := make([]interface{}, 0, len(header))
		row = append(row,
			a.UserProduct.ProductName,
			a.UserProduct.Price,
			a.SuggestedPrice,
			a.MarketSummary,
			a.HistoricalPriceAnalysis,
			a.Reasoning,
		)
		for i := 0; i < maxCompetitors; i++ {
			if i < len(a.Competitors) {
				c := a.Competitors[i]
				row = append(row, c.ProductName, c.Price, c.StockStatus, c.PriceTrend)
				continue
			}
			row = append(row, "", "", "", "")
		}
		rows = append(rows, joinRow(row))
	}

	return strings.Join(rows, "\n")
}

// CompetitorsCSV renders one row per analyzed product and competitor pair
func CompetitorsCSV(results domain.AnalysisResult) string {
	rows := []string{joinRow(stringsToRow(competitorColumns))}
	for _, a := range results {
		for _, c := range a.Competitors {
			rows = append(rows, joinRow([]interface{}{
				a.UserProduct.ProductName,
				c.ProductName,
				c.URL,
				c.Price,
				optionalAmount(c.OriginalPrice),
				c.StockStatus,
				c.PriceTrend,
			}))
		}
	}
	return strings.Join(rows, "\n")
}

// PriceHistoryCSV renders one row per historical price point of the subject
// and of each competitor.
func PriceHistoryCSV(results domain.AnalysisResult) string {
	rows := []string{joinRow(stringsToRow(priceHistoryColumns))}
	for _, a := range results {
		analyzed := a.UserProduct.ProductName
		for _, p := range a.UserProduct.HistoricalPrices {
			rows = append(rows, joinRow([]interface{}{analyzed, analyzed, p.Date, p.Price}))
		}
		for _, c := range a.Competitors {
			for _, p := range c.HistoricalPrices {
				rows = append(rows, joinRow([]interface{}{analyzed, c.ProductName, p.Date, p.Price}))
			}
		}
	}
	return strings.Join(rows, "\n")
}

func optionalAmount(a *domain.Amount) interface{} {
	if a == nil {
		return nil
	}
	return *a
}

func stringsToRow(values []string) []interface{} {
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
