package usecase

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/normalize"
)

// Column names recognized in a batch upload
const (
	columnProductName    = "productName"
	columnCurrentPrice   = "currentPrice"
	columnUserProductURL = "userProductUrl"
	columnCompetitorURLs = "competitorUrls"
)

var lineBreakRegex = regexp.MustCompile(`\r?\n`)

// ParseProductsCSV validates a batch upload and returns its products.
// The first invalid row rejects the whole file. Fields are split on plain
// commas; quoted fields with embedded commas are not supported.
func ParseProductsCSV(text string) ([]domain.CsvProduct, error) {
	lines := nonBlankLines(text)
	if len(lines) < 2 {
		return nil, &domain.ValidationError{Message: "CSV file is empty or contains only a header row."}
	}

	header := splitFields(lines[0])
	columns := make(map[string]bool, len(header))
	for _, name := range header {
		columns[name] = true
	}
	for _, required := range []string{columnProductName, columnCurrentPrice} {
		if !columns[required] {
			return nil, &domain.ValidationError{
				Row:     0,
				Message: fmt.Sprintf("Missing required column in CSV header: %s.", required),
			}
		}
	}

	products := make([]domain.CsvProduct, 0, len(lines)-1)
	for i, line := range lines[1:] {
		row := i + 2 // header is row 1
		product, err := parseProductRow(row, header, splitFields(line))
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}

	return products, nil
}

func parseProductRow(row int, header, values []string) (domain.CsvProduct, error) {
	if len(values) != len(header) {
		return domain.CsvProduct{}, rowError(row, "expected %d columns but found %d.", len(header), len(values))
	}

	// a repeated column keeps its last value
	fields := make(map[string]string, len(header))
	for i, name := range header {
		fields[name] = values[i]
	}

	name := fields[columnProductName]
	if name == "" {
		return domain.CsvProduct{}, rowError(row, "productName is required.")
	}

	rawPrice := fields[columnCurrentPrice]
	if rawPrice == "" {
		return domain.CsvProduct{}, rowError(row, "currentPrice is required.")
	}
	price, ok := normalize.ParseLooseNumber(rawPrice)
	if !ok {
		return domain.CsvProduct{}, rowError(row, "invalid currentPrice %q, must be a number.", rawPrice)
	}
	if price < 0 {
		return domain.CsvProduct{}, rowError(row, "currentPrice cannot be negative.")
	}

	return domain.CsvProduct{
		ProductName:    name,
		CurrentPrice:   price,
		UserProductURL: fields[columnUserProductURL],
		CompetitorURLs: splitCompetitorURLs(fields[columnCompetitorURLs]),
	}, nil
}

func rowError(row int, format string, args ...any) error {
	return &domain.ValidationError{Row: row, Message: fmt.Sprintf(format, args...)}
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, line := range lineBreakRegex.Split(text, -1) {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

// splitCompetitorURLs reads the semicolon separated competitor column
func splitCompetitorURLs(raw string) []string {
	urls := []string{}
	for _, part := range strings.Split(raw, ";") {
		if u := strings.TrimSpace(part); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}
