package analysis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/location-analysis/internal/domain"
	"github.com/couchcryptid/location-analysis/internal/observability"
)

// Analyzer runs the full pipeline: parse rows, resolve addresses, inspect
// every layer and build the report.
type Analyzer struct {
	layers    []Layer
	inspector *Inspector
	geocoder  domain.Geocoder
	logger    *slog.Logger
	metrics   *observability.Metrics
	newID     func() string
}

// NewAnalyzer validates the layer set and returns an Analyzer. geocoder may
// be nil when only coordinate input is expected.
func NewAnalyzer(layers []Layer, inspector *Inspector, geocoder domain.Geocoder, logger *slog.Logger, metrics *observability.Metrics) (*Analyzer, error) {
	if err := domain.ValidateLayers(analysisLayers(layers)); err != nil {
		return nil, err
	}
	return &Analyzer{
		layers:    layers,
		inspector: inspector,
		geocoder:  geocoder,
		logger:    logger,
		metrics:   metrics,
		newID:     uuid.NewString,
	}, nil
}

// CheckReadiness reports whether the analyzer has layers to analyze against.
func (a *Analyzer) CheckReadiness(_ context.Context) error {
	if len(a.layers) == 0 {
		return errors.New("no analysis layers loaded")
	}
	return nil
}

// Layers returns the classified layers in catalog order.
func (a *Analyzer) Layers() []domain.AnalysisLayer {
	return analysisLayers(a.layers)
}

// AnalyzeCSV reads delimited text and analyzes it.
func (a *Analyzer) AnalyzeCSV(ctx context.Context, r io.Reader, settings domain.LocationSettings) (domain.AnalysisReport, error) {
	rows, err := domain.ReadRows(r)
	if err != nil {
		return domain.AnalysisReport{}, err
	}
	return a.Analyze(ctx, rows, settings)
}

// Analyze parses rows according to settings and produces a report.
func (a *Analyzer) Analyze(ctx context.Context, rows [][]string, settings domain.LocationSettings) (domain.AnalysisReport, error) {
	start := time.Now()
	report, err := a.analyze(ctx, rows, settings)
	a.metrics.AnalysisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		a.metrics.AnalysesTotal.WithLabelValues("error").Inc()
		return domain.AnalysisReport{}, err
	}
	a.metrics.AnalysesTotal.WithLabelValues("success").Inc()
	a.logger.Info("analysis complete",
		"analysis_id", report.ID,
		"locations", len(report.Locations),
		"layers", len(report.Layers),
		"duration", time.Since(start),
	)
	return report, nil
}

func (a *Analyzer) analyze(ctx context.Context, rows [][]string, settings domain.LocationSettings) (domain.AnalysisReport, error) {
	requests, err := domain.ParseLocations(rows, settings)
	if err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("parse locations: %w", err)
	}

	locations, err := a.Resolve(ctx, requests)
	if err != nil {
		return domain.AnalysisReport{}, err
	}

	inspected, err := a.inspector.Inspect(ctx, locations, a.layers)
	if err != nil {
		return domain.AnalysisReport{}, fmt.Errorf("inspect locations: %w", err)
	}

	return domain.NewReport(a.newID(), inspected, a.Layers()), nil
}

// Resolve geocodes address requests with the inspector's concurrency limit.
// Order is preserved and unmatched addresses are dropped.
func (a *Analyzer) Resolve(ctx context.Context, requests []domain.LocationRequest) ([]domain.Location, error) {
	resolved := make([]domain.Location, len(requests))
	found := make([]bool, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.inspector.limit)
	for i, req := range requests {
		g.Go(func() error {
			loc, ok, err := domain.ResolveLocation(gctx, req, a.geocoder, a.logger)
			if err != nil {
				return err
			}
			resolved[i], found[i] = loc, ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("resolve locations: %w", err)
	}

	out := make([]domain.Location, 0, len(requests))
	for i, loc := range resolved {
		if found[i] {
			out = append(out, loc)
		}
	}
	return out, nil
}

func analysisLayers(layers []Layer) []domain.AnalysisLayer {
	out := make([]domain.AnalysisLayer, len(layers))
	for i, l := range layers {
		out[i] = l.AnalysisLayer
	}
	return out
}
