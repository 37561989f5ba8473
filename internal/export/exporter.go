// Package export serializes analysis results into downloadable CSV and JSON
// files.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/pricelens/backend/internal/domain"
)

// Format names an export variant
type Format string

const (
	FormatFull         Format = "full"
	FormatCompetitors  Format = "competitors"
	FormatPriceHistory Format = "history"
	FormatJSON         Format = "json"
)

// Formats lists every supported format
var Formats = []Format{FormatFull, FormatCompetitors, FormatPriceHistory, FormatJSON}

const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeJSON = "application/json; charset=utf-8"
)

// File is a fully rendered export
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownFormat, s)
}

// Exporter renders analysis results. Now supplies the date used in file
// names.
type Exporter struct {
	Now func() time.Time
}

// NewExporter creates an exporter using the wall clock
func NewExporter() *Exporter {
	return &Exporter{Now: time.Now}
}

// Export renders results in the given format.
// It returns domain.ErrNothingToExport when results is empty and
// domain.ErrInvalidRequest when an element is nil.
func (e *Exporter) Export(format Format, results domain.AnalysisResult) (*File, error) {
	if len(results) == 0 {
		return nil, domain.ErrNothingToExport
	}
	for i, a := range results {
		if a == nil {
			return nil, fmt.Errorf("%w: analysis %d is null", domain.ErrInvalidRequest, i)
		}
	}

	switch format {
	case FormatFull:
		return e.csvFile("price_analysis", AnalysisCSV(results)), nil
	case FormatCompetitors:
		return e.csvFile("competitor_analysis", CompetitorsCSV(results)), nil
	case FormatPriceHistory:
		return e.csvFile("price_history", PriceHistoryCSV(results)), nil
	case FormatJSON:
		data, err := JSON(results)
		if err != nil {
			return nil, err
		}
		return &File{
			Name:        e.fileName("price_analysis", "json"),
			ContentType: contentTypeJSON,
			Data:        data,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFormat, format)
	}
}

func (e *Exporter) csvFile(base, content string) *File {
	return &File{
		Name:        e.fileName(base, "csv"),
		ContentType: contentTypeCSV,
		Data:        []byte(content),
	}
}

func (e *Exporter) fileName(base, ext string) string {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	return fmt.Sprintf("%s_%s.%s", base, now().Format("2006-01-02"), ext)
}

// JSON renders the full result set with two-space indentation
func JSON(results domain.AnalysisResult) ([]byte, error) {
	if results == nil {
		results = domain.AnalysisResult{}
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode analysis results: %w", err)
	}
	return data, nil
}
