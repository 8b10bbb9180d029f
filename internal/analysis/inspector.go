package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/couchcryptid/location-analysis/internal/domain"
	"github.com/couchcryptid/location-analysis/internal/observability"
)

// DefaultMaxConcurrentQueries bounds in-flight layer queries when no limit is
// configured.
const DefaultMaxConcurrentQueries = 16

// Layer binds an analysis layer to the source its features are queried from.
type Layer struct {
	domain.AnalysisLayer
	Source domain.FeatureSource
}

// Inspector queries every layer at every location and interprets the hits.
type Inspector struct {
	limit   int
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewInspector creates an Inspector running at most limit layer queries at
// once. A non-positive limit uses DefaultMaxConcurrentQueries.
func NewInspector(limit int, logger *slog.Logger, metrics *observability.Metrics) *Inspector {
	if limit <= 0 {
		limit = DefaultMaxConcurrentQueries
	}
	return &Inspector{limit: limit, logger: logger, metrics: metrics}
}

// Inspect returns a copy of locations with one result per layer, in layer
// order. Each (location, layer) pair is queried independently. The first
// query failure cancels the remaining work and is returned.
func (i *Inspector) Inspect(ctx context.Context, locations []domain.Location, layers []Layer) ([]domain.Location, error) {
	results := make([][]domain.LocationResult, len(locations))
	for li := range results {
		results[li] = make([]domain.LocationResult, len(layers))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.limit)

	for li, loc := range locations {
		for yi, layer := range layers {
			g.Go(func() error {
				res, err := i.inspectOne(gctx, loc, layer)
				if err != nil {
					return err
				}
				results[li][yi] = res
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.Location, len(locations))
	for li, loc := range locations {
		loc.Results = results[li]
		out[li] = loc
	}
	i.metrics.LocationsAnalyzed.Add(float64(len(locations)))
	return out, nil
}

func (i *Inspector) inspectOne(ctx context.Context, loc domain.Location, layer Layer) (domain.LocationResult, error) {
	query := domain.SpatialQuery{
		Point:        loc.Point,
		Relationship: domain.Intersects,
		OutFields:    layer.QueryFields(),
	}

	start := time.Now()
	features, err := layer.Source.QueryFeatures(ctx, query)
	i.metrics.LayerQueryDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		i.metrics.LayerQueries.WithLabelValues("error").Inc()
		return domain.LocationResult{}, fmt.Errorf("query layer %q at location %s: %w", layer.Title, loc.ID, err)
	}

	var feature *domain.Feature
	if len(features) > 0 {
		feature = &features[0]
		i.metrics.LayerQueries.WithLabelValues("hit").Inc()
	} else {
		i.metrics.LayerQueries.WithLabelValues("miss").Inc()
	}

	res, err := domain.InterpretFeature(layer.AnalysisLayer, feature)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedRenderer) {
			i.metrics.UnsupportedRenderers.WithLabelValues(layer.Title).Inc()
		}
		i.logger.Warn("could not interpret feature, leaving result empty",
			"error", err,
			"layer", layer.Title,
			"symbol_type", layer.SymbolType,
			"location_id", loc.ID,
		)
		res.SourceLayer = layer.Title
		if res.Attributes == nil {
			res.Attributes = []domain.AttributeInfo{}
		}
	}
	return res, nil
}
