package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// Point is a WGS-84 latitude/longitude coordinate pair.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Orb returns the point in orb's lon/lat order.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Location is one analyzed place. Results stay empty until inspection runs.
type Location struct {
	ID      string           `json:"id" yaml:"id"`
	Label   string           `json:"label" yaml:"label"`
	Point   Point            `json:"point" yaml:"point"`
	Results []LocationResult `json:"results" yaml:"results"`
}

// LocationType selects how uploaded rows describe a place.
type LocationType string

const (
	LocationTypeAddress LocationType = "address"
	LocationTypeLatLon  LocationType = "latlon"
)

// Column selects a column either by header name or by zero-based index.
// Name wins when both are set and the rows have a header.
type Column struct {
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Index *int   `json:"index,omitempty" yaml:"index,omitempty"`
}

func (c Column) isSet() bool {
	return c.Name != "" || c.Index != nil
}

// LocationSettings maps uploaded columns onto location roles.
type LocationSettings struct {
	Type       LocationType `json:"type" yaml:"type"`
	HasHeaders bool         `json:"hasHeaders" yaml:"hasHeaders"`
	Address    Column       `json:"address,omitempty" yaml:"address,omitempty"`
	Latitude   Column       `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude  Column       `json:"longitude,omitempty" yaml:"longitude,omitempty"`
}

// Validate reports whether the settings name every column their type needs.
func (s LocationSettings) Validate() error {
	switch s.Type {
	case LocationTypeAddress:
		if !s.Address.isSet() {
			return fmt.Errorf("%w: address", ErrMissingColumn)
		}
	case LocationTypeLatLon:
		if !s.Latitude.isSet() || !s.Longitude.isSet() {
			return fmt.Errorf("%w: latitude and longitude", ErrMissingColumn)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownLocationType, s.Type)
	}
	return nil
}

// LocationRequest is a parsed row: either an address still to be geocoded
// or a ready coordinate.
type LocationRequest struct {
	ID      string
	Label   string
	Address string
	Point   *Point
}

// Errors returned while parsing uploaded rows.
var (
	ErrMissingColumn       = errors.New("missing location column")
	ErrInvalidCoordinate   = errors.New("invalid coordinate")
	ErrUnknownLocationType = errors.New("unknown location type")
)

// ReadRows parses comma-separated text into rows. Rows may have differing
// lengths.
func ReadRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}

// ParseLocations converts uploaded rows into location requests. Address rows
// with a blank address are skipped. Lat/lon rows are labelled "Location N"
// counting data rows from one.
func ParseLocations(rows [][]string, s LocationSettings) ([]LocationRequest, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var header []string
	data := rows
	if s.HasHeaders && len(rows) > 0 {
		header, data = rows[0], rows[1:]
	}

	switch s.Type {
	case LocationTypeAddress:
		col, err := resolveColumn(s.Address, header)
		if err != nil {
			return nil, err
		}
		out := make([]LocationRequest, 0, len(data))
		for i, row := range data {
			addr := strings.TrimSpace(cell(row, col))
			if addr == "" {
				continue
			}
			out = append(out, LocationRequest{ID: strconv.Itoa(i), Label: addr, Address: addr})
		}
		return out, nil

	default:
		latCol, err := resolveColumn(s.Latitude, header)
		if err != nil {
			return nil, err
		}
		lonCol, err := resolveColumn(s.Longitude, header)
		if err != nil {
			return nil, err
		}
		out := make([]LocationRequest, 0, len(data))
		for i, row := range data {
			lat, err := parseCoordinate(cell(row, latCol), 90)
			if err != nil {
				return nil, fmt.Errorf("row %d latitude: %w", i+1, err)
			}
			lon, err := parseCoordinate(cell(row, lonCol), 180)
			if err != nil {
				return nil, fmt.Errorf("row %d longitude: %w", i+1, err)
			}
			out = append(out, LocationRequest{
				ID:    strconv.Itoa(i),
				Label: fmt.Sprintf("Location %d", i+1),
				Point: &Point{Lat: lat, Lon: lon},
			})
		}
		return out, nil
	}
}

func resolveColumn(c Column, header []string) (int, error) {
	if c.Name != "" && header != nil {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), c.Name) {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: no header named %q", ErrMissingColumn, c.Name)
	}
	if c.Index != nil && *c.Index >= 0 {
		return *c.Index, nil
	}
	return 0, fmt.Errorf("%w: column %q needs a header row or an index", ErrMissingColumn, c.Name)
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func parseCoordinate(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	if v < -limit || v > limit {
		return 0, fmt.Errorf("%w: %v out of range", ErrInvalidCoordinate, v)
	}
	return v, nil
}
