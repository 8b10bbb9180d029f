//go:build duckdb

package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/location-analysis/internal/domain"
)

// These tests need the DuckDB spatial extension, which INSTALL downloads on
// first use. Run with: go test -tags=duckdb ./internal/adapter/duckdb/ -v

const parcels = `{"type":"FeatureCollection","features":[
 {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[10,0],[10,10],[0,10],[0,0]]]},
  "properties":{"OBJECTID":1,"ZONE":"AE","POP":120}},
 {"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[20,20],[30,20],[30,30],[20,30],[20,20]]]},
  "properties":{"OBJECTID":2,"ZONE":"X","POP":40}}]}`

func openLayer(t *testing.T) *Source {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "parcels.geojson")
	require.NoError(t, os.WriteFile(path, []byte(parcels), 0o600))

	store, err := Open(ctx, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	src, err := store.Layer(ctx, LayerOptions{Path: path, IDColumn: "OBJECTID"})
	require.NoError(t, err)
	return src
}

func TestSource_QueryFeatures(t *testing.T) {
	src := openLayer(t)
	q := domain.SpatialQuery{Point: domain.Point{Lat: 5, Lon: 5}, Relationship: domain.Intersects, OutFields: []string{"ZONE"}}

	got, err := src.QueryFeatures(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, map[string]any{"ZONE": "AE"}, got[0].Attributes)
}

func TestSource_QueryFeatures_Miss(t *testing.T) {
	src := openLayer(t)
	got, err := src.QueryFeatures(context.Background(), domain.SpatialQuery{Point: domain.Point{Lat: 15, Lon: 15}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSource_QueryFeatures_AllFields(t *testing.T) {
	src := openLayer(t)
	got, err := src.QueryFeatures(context.Background(), domain.SpatialQuery{Point: domain.Point{Lat: 25, Lon: 25}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "X", got[0].Attributes["ZONE"])
	assert.NotContains(t, got[0].Attributes, "geom")
	v, ok := got[0].Number("POP")
	require.True(t, ok)
	assert.Equal(t, 40.0, v)
}
