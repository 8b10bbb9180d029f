package domain

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// Relation names the predicate used by a spatial query.
type Relation string

// Intersects matches features whose geometry intersects the query point.
const Intersects Relation = "intersects"

// SpatialQuery asks a feature source for the features at a point.
// An empty OutFields means every attribute, not none.
type SpatialQuery struct {
	Point        Point
	Relationship Relation
	OutFields    []string
}

// AllFields reports whether the query places no restriction on attributes.
func (q SpatialQuery) AllFields() bool {
	return len(q.OutFields) == 0
}

// Feature is a queried feature reduced to its attributes.
type Feature struct {
	ID         string         `json:"id,omitempty" yaml:"id,omitempty"`
	Attributes map[string]any `json:"attributes" yaml:"attributes"`
}

// Value returns the raw attribute value for field.
func (f Feature) Value(field string) any {
	return f.Attributes[field]
}

// Number returns the attribute as float64 when it holds a number or a
// numeric string.
func (f Feature) Number(field string) (float64, bool) {
	return numberOf(f.Attributes[field])
}

// FeatureSource answers spatial queries for one analysis layer.
type FeatureSource interface {
	QueryFeatures(ctx context.Context, q SpatialQuery) ([]Feature, error)
}

// toFloat converts Go numeric kinds to float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// numberOf is toFloat extended to numeric strings.
func numberOf(v any) (float64, bool) {
	if f, ok := toFloat(v); ok {
		return f, true
	}
	if s, ok := v.(string); ok {
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	}
	return 0, false
}

// formatRaw renders an attribute value the way it is shown inside labels:
// numbers in shortest decimal form, everything else via fmt.
func formatRaw(v any) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(string); ok {
		return s
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
