// Package geojson serves layer features from a GeoJSON FeatureCollection held
// in memory behind an R-tree.
package geojson

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/couchcryptid/location-analysis/internal/domain"
)

// Minimum extent of an index rectangle, roughly 11 m at the equator. The
// R-tree rejects zero-length sides, which points and axis-aligned lines have.
const epsilon = 0.0001

// Source implements domain.FeatureSource over one FeatureCollection.
type Source struct {
	features []*indexedFeature
	tree     *rtreego.Rtree
}

type indexedFeature struct {
	pos        int
	id         string
	geometry   orb.Geometry
	properties map[string]any
	bound      orb.Bound
}

// Bounds implements rtreego.Spatial.
func (f *indexedFeature) Bounds() rtreego.Rect {
	lonLength := f.bound.Max.Lon() - f.bound.Min.Lon()
	latLength := f.bound.Max.Lat() - f.bound.Min.Lat()
	if lonLength < epsilon {
		lonLength = epsilon
	}
	if latLength < epsilon {
		latLength = epsilon
	}
	rect, _ := rtreego.NewRect(rtreego.Point{f.bound.Min.Lon(), f.bound.Min.Lat()}, []float64{lonLength, latLength})
	return rect
}

// Load reads and indexes a GeoJSON FeatureCollection file.
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	src, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// Decode parses and indexes a GeoJSON FeatureCollection.
func Decode(data []byte) (*Source, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}
	return New(fc), nil
}

// New indexes the features of fc. Features without geometry are ignored.
func New(fc *geojson.FeatureCollection) *Source {
	s := &Source{tree: rtreego.NewTree(2, 25, 50)}
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		id := fmt.Sprint(i)
		if f.ID != nil {
			id = fmt.Sprint(f.ID)
		}
		indexed := &indexedFeature{
			pos:        i,
			id:         id,
			geometry:   f.Geometry,
			properties: f.Properties,
			bound:      f.Geometry.Bound(),
		}
		s.features = append(s.features, indexed)
		s.tree.Insert(indexed)
	}
	return s
}

// Len returns the number of indexed features.
func (s *Source) Len() int {
	return len(s.features)
}

// QueryFeatures returns the features intersecting q.Point in collection order.
func (s *Source) QueryFeatures(ctx context.Context, q domain.SpatialQuery) ([]domain.Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if q.Relationship != "" && q.Relationship != domain.Intersects {
		return nil, fmt.Errorf("unsupported spatial relationship %q", q.Relationship)
	}

	pt := q.Point.Orb()
	window, _ := rtreego.NewRect(rtreego.Point{pt.Lon() - epsilon/2, pt.Lat() - epsilon/2}, []float64{epsilon, epsilon})

	var hits []*indexedFeature
	for _, sp := range s.tree.SearchIntersect(window) {
		f := sp.(*indexedFeature)
		if intersects(f.geometry, pt) {
			hits = append(hits, f)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]domain.Feature, len(hits))
	for i, f := range hits {
		out[i] = domain.Feature{ID: f.id, Attributes: project(f.properties, q)}
	}
	return out, nil
}

func intersects(g orb.Geometry, pt orb.Point) bool {
	switch geom := g.(type) {
	case orb.Polygon:
		return planar.PolygonContains(geom, pt)
	case orb.MultiPolygon:
		return planar.MultiPolygonContains(geom, pt)
	case orb.Point:
		return geom.Equal(pt)
	case orb.Bound:
		return geom.Contains(pt)
	case orb.Collection:
		for _, child := range geom {
			if intersects(child, pt) {
				return true
			}
		}
		return false
	default:
		// Lines and multipoints only match on their bounding box.
		return geom.Bound().Contains(pt)
	}
}

func project(props map[string]any, q domain.SpatialQuery) map[string]any {
	if q.AllFields() {
		out := make(map[string]any, len(props))
		for k, v := range props {
			out[k] = v
		}
		return out
	}
	out := make(map[string]any, len(q.OutFields))
	for _, name := range q.OutFields {
		if v, ok := props[name]; ok {
			out[name] = v
		}
	}
	return out
}
