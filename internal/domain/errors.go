package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrAnalysisFailed is returned when the AI analysis of a product fails
	ErrAnalysisFailed = errors.New("product analysis failed")

	// ErrPredictionFailed is returned when the price prediction service fails
	ErrPredictionFailed = errors.New("price prediction failed")

	// ErrModelNotTrained is returned when the prediction service has no model loaded
	ErrModelNotTrained = errors.New("prediction model not trained")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrAllItemsFailed is wrapped by BatchFailedError
	ErrAllItemsFailed = errors.New("analysis failed for all products")

	// ErrNothingToExport is returned when there are no analyses to export
	ErrNothingToExport = errors.New("no analysis results to export")

	// ErrUnknownFormat is returned for an unsupported export format
	ErrUnknownFormat = errors.New("unknown export format")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")
)

// ValidationError is a CSV ingestion failure. Row is 1-based with the header
// as row 1; it is 0 for problems with the file as a whole.
type ValidationError struct {
	Row     int
	Message string
}

func (e *ValidationError) Error() string {
	if e.Row == 0 {
		return e.Message
	}
	return fmt.Sprintf("Row %d: %s", e.Row, e.Message)
}

// ItemFailure records why one batch item could not be analyzed
type ItemFailure struct {
	ProductName string
	Err         error
}

// BatchFailedError is returned when every item of a batch failed
type BatchFailedError struct {
	Failures []ItemFailure
}

// ProductNames lists the failed products in input order
func (e *BatchFailedError) ProductNames() []string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.ProductName
	}
	return names
}

func (e *BatchFailedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAllItemsFailed, strings.Join(e.ProductNames(), ", "))
}

func (e *BatchFailedError) Unwrap() error {
	return ErrAllItemsFailed
}
