package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/export"
	"github.com/pricelens/backend/internal/usecase"
)

// maxUploadBytes bounds CSV uploads and export payloads
const maxUploadBytes = 10 << 20

// AnalysisUsecase is what the handlers need from the analysis service
type AnalysisUsecase interface {
	AnalyzeProduct(ctx context.Context, request domain.AnalysisRequest) (*domain.ProductAnalysis, error)
	AnalyzeBatch(ctx context.Context, products []domain.CsvProduct) (domain.AnalysisResult, error)
}

// CacheStats reports the size of the analysis cache
type CacheStats interface {
	Size() int
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	analysis AnalysisUsecase
	exporter *export.Exporter
	cache    CacheStats
}

// NewHandler creates a new HTTP handler. A nil analysis service leaves the
// analysis endpoints answering 503; a nil cache is reported as disabled.
func NewHandler(analysis AnalysisUsecase, exporter *export.Exporter, cache CacheStats) *Handler {
	if exporter == nil {
		exporter = export.NewExporter()
	}
	return &Handler{
		analysis: analysis,
		exporter: exporter,
		cache:    cache,
	}
}

// analyzeRequest is the body of a single-product analysis
type analyzeRequest struct {
	ProductURL     string   `json:"productUrl"`
	ProductName    string   `json:"productName"`
	CurrentPrice   *float64 `json:"currentPrice"`
	CompetitorURLs []string `json:"competitorUrls"`
}

func (r analyzeRequest) toDomain() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		Subject: domain.Subject{
			URL:          strings.TrimSpace(r.ProductURL),
			ProductName:  strings.TrimSpace(r.ProductName),
			CurrentPrice: r.CurrentPrice,
		},
		CompetitorURLs: r.CompetitorURLs,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	cache := gin.H{"enabled": false}
	if h.cache != nil {
		cache = gin.H{"enabled": true, "entries": h.cache.Size()}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "pricelens-backend",
		"version": "1.0.0",
		"cache":   cache,
	})
}

// AnalyzeProduct handles single-product analysis requests
func (h *Handler) AnalyzeProduct(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid request body: %v", err)})
		return
	}

	request := req.toDomain()
	if !request.Subject.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "provide productUrl, or productName with a non-negative currentPrice",
		})
		return
	}

	analysis, err := h.analysis.AnalyzeProduct(c.Request.Context(), request)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// AnalyzeBatch handles CSV batch analysis requests
func (h *Handler) AnalyzeBatch(c *gin.Context) {
	if !h.ready(c) {
		return
	}

	products, ok := h.readProducts(c)
	if !ok {
		return
	}

	results, err := h.analysis.AnalyzeBatch(c.Request.Context(), products)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, results)
}

// ValidateProducts parses a CSV upload without analyzing it
func (h *Handler) ValidateProducts(c *gin.Context) {
	products, ok := h.readProducts(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{"products": products})
}

// ExportResults renders posted analysis results in the format named by the path
func (h *Handler) ExportResults(c *gin.Context) {
	format, err := export.ParseFormat(c.Param("format"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   err.Error(),
			"formats": export.Formats,
		})
		return
	}

	var results domain.AnalysisResult
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes)
	if err := decodeJSON(body, &results); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid analysis results: %v", err)})
		return
	}

	file, err := h.exporter.Export(format, results)
	if errors.Is(err, domain.ErrNothingToExport) {
		zerolog.Ctx(c.Request.Context()).Warn().Msg("no data to export")
		c.Status(http.StatusNoContent)
		return
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

func (h *Handler) ready(c *gin.Context) bool {
	if h.analysis == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis service not configured"})
		return false
	}
	return true
}

// readProducts reads the CSV from a multipart "file" field or the raw body
// and validates it. On failure the response has been written.
func (h *Handler) readProducts(c *gin.Context) ([]domain.CsvProduct, bool) {
	text, err := readCSVText(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}

	products, err := usecase.ParseProductsCSV(text)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return products, true
}

func readCSVText(c *gin.Context) (string, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return "", fmt.Errorf("missing CSV upload in form field %q", "file")
		}
		if header.Size > maxUploadBytes {
			return "", fmt.Errorf("CSV file exceeds %d bytes", maxUploadBytes)
		}
		f, err := header.Open()
		if err != nil {
			return "", fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()

		data, err := io.ReadAll(f)
		if err != nil {
			return "", fmt.Errorf("failed to read upload: %w", err)
		}
		return string(data), nil
	}

	data, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read request body: %w", err)
	}
	return string(data), nil
}

// decodeJSON decodes one JSON value; an empty body leaves v untouched
func decodeJSON(r io.Reader, v interface{}) error {
	if err := json.NewDecoder(r).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// respondError maps domain errors to HTTP responses
func (h *Handler) respondError(c *gin.Context, err error) {
	logger := zerolog.Ctx(c.Request.Context())
	_ = c.Error(err)

	var validationErr *domain.ValidationError
	var batchErr *domain.BatchFailedError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error(), "row": validationErr.Row})
	case errors.As(err, &batchErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": batchErr.Error(), "failedProducts": batchErr.ProductNames()})
	case errors.Is(err, domain.ErrInvalidRequest), errors.Is(err, domain.ErrUnknownFormat):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "analysis timed out"})
	case errors.Is(err, domain.ErrAnalysisFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		logger.Error().Err(err).Msg("unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
