package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrGeocoderUnavailable is returned when address rows arrive but no
// geocoder is configured.
var ErrGeocoderUnavailable = errors.New("geocoder not configured")

// ResolveLocation turns a parsed request into a Location. Coordinate rows
// pass straight through. Address rows are forward geocoded; an address the
// provider cannot match is reported with ok=false and logged, and a provider
// failure is returned as an error.
func ResolveLocation(ctx context.Context, req LocationRequest, geocoder Geocoder, logger *slog.Logger) (loc Location, ok bool, err error) {
	if req.Point != nil {
		return Location{ID: req.ID, Label: req.Label, Point: *req.Point, Results: []LocationResult{}}, true, nil
	}
	if geocoder == nil {
		return Location{}, false, ErrGeocoderUnavailable
	}

	result, err := geocoder.ForwardGeocode(ctx, req.Address)
	if err != nil {
		return Location{}, false, fmt.Errorf("geocode %q: %w", req.Address, err)
	}
	if !result.Found() {
		logger.Warn("address not found, skipping location",
			"location_id", req.ID,
			"address", req.Address,
		)
		return Location{}, false, nil
	}

	return Location{
		ID:      req.ID,
		Label:   req.Label,
		Point:   Point{Lat: result.Lat, Lon: result.Lon},
		Results: []LocationResult{},
	}, true, nil
}
