// Package duckdb serves layer features from files read through the DuckDB
// spatial extension.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/couchcryptid/location-analysis/internal/domain"
)

// Store owns the DuckDB connection shared by every duckdb-backed layer.
type Store struct {
	db *sql.DB

	mu    sync.Mutex
	views int
}

// Open opens a DuckDB database (in memory when path is empty) and loads the
// spatial extension.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	if _, err := db.ExecContext(ctx, "INSTALL spatial; LOAD spatial;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("load spatial extension: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LayerOptions describes how a layer's rows map onto features.
type LayerOptions struct {
	// Path is any file ST_Read understands (GeoJSON, Shapefile, GeoPackage...).
	Path string
	// GeometryColumn defaults to "geom", the column ST_Read produces.
	GeometryColumn string
	// IDColumn names the column used as the feature ID. Empty uses row order.
	IDColumn string
}

// Layer registers a view over opts.Path and returns a source querying it.
func (s *Store) Layer(ctx context.Context, opts LayerOptions) (*Source, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("duckdb layer: path is required")
	}
	if opts.GeometryColumn == "" {
		opts.GeometryColumn = "geom"
	}

	s.mu.Lock()
	s.views++
	view := fmt.Sprintf("layer_%d", s.views)
	s.mu.Unlock()

	stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM ST_Read(%s)", quoteIdent(view), quoteLiteral(opts.Path))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return nil, fmt.Errorf("create view for %s: %w", opts.Path, err)
	}
	return &Source{db: s.db, view: view, geometry: opts.GeometryColumn, idColumn: opts.IDColumn}, nil
}

// Source implements domain.FeatureSource over one DuckDB view.
type Source struct {
	db       *sql.DB
	view     string
	geometry string
	idColumn string
}

// QueryFeatures returns rows whose geometry intersects q.Point.
func (s *Source) QueryFeatures(ctx context.Context, q domain.SpatialQuery) ([]domain.Feature, error) {
	if q.Relationship != "" && q.Relationship != domain.Intersects {
		return nil, fmt.Errorf("unsupported spatial relationship %q", q.Relationship)
	}

	rows, err := s.db.QueryContext(ctx, selectSQL(s.view, s.geometry, s.idColumn, q.OutFields), q.Point.Lon, q.Point.Lat)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.view, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var features []domain.Feature
	for n := 0; rows.Next(); n++ {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.view, err)
		}
		features = append(features, rowToFeature(columns, values, s.idColumn, q, n))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.view, err)
	}
	return features, nil
}

// selectSQL builds the intersects query. The point is bound as (lon, lat).
// The ID column is selected even when not requested so features keep their
// identity.
func selectSQL(view, geometry, idColumn string, fields []string) string {
	var cols string
	if len(fields) == 0 {
		cols = fmt.Sprintf("* EXCLUDE (%s)", quoteIdent(geometry))
	} else {
		quoted := make([]string, 0, len(fields)+1)
		seen := make(map[string]bool, len(fields)+1)
		for _, f := range append(append([]string{}, fields...), idColumn) {
			if f == "" || seen[f] {
				continue
			}
			seen[f] = true
			quoted = append(quoted, quoteIdent(f))
		}
		cols = strings.Join(quoted, ", ")
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE ST_Intersects(%s, ST_Point(?, ?))",
		cols, quoteIdent(view), quoteIdent(geometry))
}

func rowToFeature(columns []string, values []any, idColumn string, q domain.SpatialQuery, n int) domain.Feature {
	attrs := make(map[string]any, len(columns))
	wanted := make(map[string]bool, len(q.OutFields))
	for _, f := range q.OutFields {
		wanted[f] = true
	}
	id := fmt.Sprint(n)
	for i, col := range columns {
		if col == idColumn && values[i] != nil {
			id = fmt.Sprint(values[i])
		}
		if q.AllFields() || wanted[col] {
			attrs[col] = values[i]
		}
	}
	return domain.Feature{ID: id, Attributes: attrs}
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
