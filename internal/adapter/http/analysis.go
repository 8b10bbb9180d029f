package http

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/couchcryptid/location-analysis/internal/domain"
)

const maxUploadBytes = 16 << 20

// Analyzer runs analyses against the configured layer catalog.
type Analyzer interface {
	Layers() []domain.AnalysisLayer
	AnalyzeCSV(ctx context.Context, r io.Reader, settings domain.LocationSettings) (domain.AnalysisReport, error)
}

// AnalysisHandler serves the analysis endpoints.
type AnalysisHandler struct {
	analyzer Analyzer
	logger   *slog.Logger
}

func NewAnalysisHandler(analyzer Analyzer, logger *slog.Logger) *AnalysisHandler {
	return &AnalysisHandler{analyzer: analyzer, logger: logger}
}

// RegisterRoutes registers analysis routes with Huma.
func (h *AnalysisHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.ListLayers, huma.OperationTags("layers"))
	huma.Post(api, "/api/v1/analyses", h.CreateAnalysis, huma.OperationTags("analyses"),
		func(o *huma.Operation) { o.MaxBodyBytes = maxUploadBytes })
}

// LayersOutput lists the layers every analysis runs against.
type LayersOutput struct {
	Body struct {
		Layers []domain.AnalysisLayer `json:"layers" doc:"Analysis layers in drawing order"`
	}
}

func (h *AnalysisHandler) ListLayers(_ context.Context, _ *struct{}) (*LayersOutput, error) {
	out := &LayersOutput{}
	out.Body.Layers = h.analyzer.Layers()
	return out, nil
}

// AnalysisInput carries delimited location rows and the column mapping.
type AnalysisInput struct {
	Body struct {
		CSV      string                  `json:"csv" minLength:"1" doc:"Comma-separated location rows"`
		Settings domain.LocationSettings `json:"settings" doc:"How columns map onto locations"`
	}
}

// AnalysisOutput is a finished analysis report.
type AnalysisOutput struct {
	Body domain.AnalysisReport
}

func (h *AnalysisHandler) CreateAnalysis(ctx context.Context, input *AnalysisInput) (*AnalysisOutput, error) {
	if strings.TrimSpace(input.Body.CSV) == "" {
		return nil, huma.Error400BadRequest(domain.ErrEmptyRequest.Error())
	}

	report, err := h.analyzer.AnalyzeCSV(ctx, strings.NewReader(input.Body.CSV), input.Body.Settings)
	if err != nil {
		return nil, h.toStatusError(err)
	}
	return &AnalysisOutput{Body: report}, nil
}

func (h *AnalysisHandler) toStatusError(err error) error {
	var parseErr *csv.ParseError
	switch {
	case errors.Is(err, domain.ErrMissingColumn),
		errors.Is(err, domain.ErrInvalidCoordinate),
		errors.Is(err, domain.ErrUnknownLocationType),
		errors.As(err, &parseErr):
		return huma.Error400BadRequest(err.Error())
	case errors.Is(err, domain.ErrGeocoderUnavailable):
		return huma.Error503ServiceUnavailable("address geocoding is not configured")
	case errors.Is(err, context.Canceled):
		return huma.Error503ServiceUnavailable("analysis cancelled")
	default:
		h.logger.Error("analysis failed", "error", err)
		return huma.Error500InternalServerError("analysis failed")
	}
}
