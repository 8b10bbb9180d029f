// Package catalog loads the YAML layer catalog that defines which map layers
// every analysis runs against and where their features come from.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/location-analysis/internal/adapter/duckdb"
	"github.com/couchcryptid/location-analysis/internal/adapter/geojson"
	"github.com/couchcryptid/location-analysis/internal/analysis"
	"github.com/couchcryptid/location-analysis/internal/domain"
)

// Source types.
const (
	SourceGeoJSON = "geojson"
	SourceDuckDB  = "duckdb"
)

// Catalog is the decoded layer catalog file.
type Catalog struct {
	// DuckDB is the database file backing duckdb sources. Empty means in-memory.
	DuckDB string        `yaml:"duckdb"`
	Layers []LayerConfig `yaml:"layers"`

	dir string
}

// LayerConfig describes one layer in drawing order.
type LayerConfig struct {
	Title         string                    `yaml:"title"`
	Source        SourceConfig              `yaml:"source"`
	ObjectIDField string                    `yaml:"objectIdField"`
	HasCharts     bool                      `yaml:"hasCharts"`
	Fields        []domain.FieldInfo        `yaml:"fields"`
	Renderer      domain.RendererDescriptor `yaml:"renderer"`
}

// SourceConfig locates a layer's features.
type SourceConfig struct {
	Type           string `yaml:"type"`
	Path           string `yaml:"path"`
	GeometryColumn string `yaml:"geometryColumn"`
	IDColumn       string `yaml:"idColumn"`
}

// Load reads and decodes a catalog file. Relative source paths resolve
// against the file's directory.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data, filepath.Dir(path))
}

// Parse decodes catalog YAML. dir is the base for relative source paths.
func Parse(data []byte, dir string) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Layers) == 0 {
		return nil, errors.New("catalog defines no layers")
	}
	c.dir = dir
	return &c, nil
}

// Definitions builds the layer definitions in catalog order, compiling each
// renderer.
func (c *Catalog) Definitions() ([]domain.LayerDefinition, error) {
	defs := make([]domain.LayerDefinition, len(c.Layers))
	for i, l := range c.Layers {
		r, err := l.Renderer.Build()
		if err != nil {
			return nil, fmt.Errorf("layer %q: %w", l.Title, err)
		}
		defs[i] = domain.LayerDefinition{
			Title:         l.Title,
			Renderer:      r,
			Fields:        l.Fields,
			ObjectIDField: l.ObjectIDField,
			HasCharts:     l.HasCharts,
		}
	}
	return defs, nil
}

// Opened is a catalog with every feature source ready to query.
type Opened struct {
	Layers []analysis.Layer
	store  *duckdb.Store
}

// Close releases the DuckDB connection, if any source needed one.
func (o *Opened) Close() error {
	if o.store == nil {
		return nil
	}
	return o.store.Close()
}

// Open builds the analysis layers and their feature sources. A DuckDB
// connection is opened only when a layer uses one.
func (c *Catalog) Open(ctx context.Context) (*Opened, error) {
	defs, err := c.Definitions()
	if err != nil {
		return nil, err
	}

	opened := &Opened{Layers: make([]analysis.Layer, len(defs))}
	for i, def := range defs {
		src, err := c.openSource(ctx, opened, c.Layers[i].Source)
		if err != nil {
			opened.Close() //nolint:errcheck // already failing
			return nil, fmt.Errorf("layer %q: %w", def.Title, err)
		}
		opened.Layers[i] = analysis.Layer{
			AnalysisLayer: domain.NewAnalysisLayer(def, i),
			Source:        src,
		}
	}
	return opened, nil
}

func (c *Catalog) openSource(ctx context.Context, opened *Opened, sc SourceConfig) (domain.FeatureSource, error) {
	if sc.Path == "" {
		return nil, errors.New("source path is required")
	}
	path := c.resolve(sc.Path)

	switch sc.Type {
	case SourceGeoJSON, "":
		return geojson.Load(path)
	case SourceDuckDB:
		if opened.store == nil {
			dbPath := ""
			if c.DuckDB != "" {
				dbPath = c.resolve(c.DuckDB)
			}
			store, err := duckdb.Open(ctx, dbPath)
			if err != nil {
				return nil, err
			}
			opened.store = store
		}
		return opened.store.Layer(ctx, duckdb.LayerOptions{
			Path:           path,
			GeometryColumn: sc.GeometryColumn,
			IDColumn:       sc.IDColumn,
		})
	default:
		return nil, fmt.Errorf("unknown source type %q", sc.Type)
	}
}

func (c *Catalog) resolve(p string) string {
	if filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}
