package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/location-analysis/internal/adapter/http"
	"github.com/couchcryptid/location-analysis/internal/domain"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

// stubAnalyzer records the settings it was called with and returns a fixed
// report or error.
type stubAnalyzer struct {
	layers   []domain.AnalysisLayer
	report   domain.AnalysisReport
	err      error
	gotCSV   string
	settings domain.LocationSettings
}

func (s *stubAnalyzer) Layers() []domain.AnalysisLayer { return s.layers }

func (s *stubAnalyzer) AnalyzeCSV(_ context.Context, r io.Reader, settings domain.LocationSettings) (domain.AnalysisReport, error) {
	data, _ := io.ReadAll(r)
	s.gotCSV = string(data)
	s.settings = settings
	return s.report, s.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(readyErr error, analyzer *stubAnalyzer) *httpadapter.Server {
	if analyzer == nil {
		analyzer = &stubAnalyzer{}
	}
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, analyzer, discardLogger())
}

func serve(srv *httpadapter.Server, method, path string, body []byte) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	srv.ServeHTTP(rec, req)
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(nil, nil), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(nil, nil), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(fmt.Errorf("not ready yet"), nil), http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(nil, nil), http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestListLayers(t *testing.T) {
	analyzer := &stubAnalyzer{layers: []domain.AnalysisLayer{
		{Index: 0, Title: "Flood zones", SymbolType: domain.SymbolUniqueValues},
		{Index: 1, Title: "City limits", SymbolType: domain.SymbolSimple},
	}}
	rec := serve(newTestServer(nil, analyzer), http.MethodGet, "/api/v1/layers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Layers []domain.AnalysisLayer `json:"layers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Layers, 2)
	assert.Equal(t, "Flood zones", body.Layers[0].Title)
	assert.Equal(t, domain.SymbolSimple, body.Layers[1].SymbolType)
}

func TestCreateAnalysis(t *testing.T) {
	analyzer := &stubAnalyzer{report: domain.AnalysisReport{
		ID:          "rep-1",
		GeneratedAt: time.Date(2026, 4, 26, 0, 0, 0, 0, time.UTC),
		Locations:   []domain.Location{{ID: "0", Label: "Location 1", Point: domain.Point{Lat: 40, Lon: -105}}},
	}}
	body := []byte(`{"csv":"lat,lon\n40,-105\n","settings":{"type":"latlon","hasHeaders":true,"latitude":{"name":"lat"},"longitude":{"name":"lon"}}}`)

	rec := serve(newTestServer(nil, analyzer), http.MethodPost, "/api/v1/analyses", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, "lat,lon\n40,-105\n", analyzer.gotCSV)
	assert.Equal(t, domain.LocationTypeLatLon, analyzer.settings.Type)
	assert.Equal(t, "lon", analyzer.settings.Longitude.Name)

	var report domain.AnalysisReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "rep-1", report.ID)
	require.Len(t, report.Locations, 1)
	assert.Equal(t, "Location 1", report.Locations[0].Label)
}

func TestCreateAnalysis_ErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"missing column", fmt.Errorf("parse locations: %w: address", domain.ErrMissingColumn), http.StatusBadRequest},
		{"bad coordinate", fmt.Errorf("row 2: %w", domain.ErrInvalidCoordinate), http.StatusBadRequest},
		{"no geocoder", domain.ErrGeocoderUnavailable, http.StatusServiceUnavailable},
		{"source failure", fmt.Errorf("query layer: %w", io.ErrUnexpectedEOF), http.StatusInternalServerError},
	}
	body := []byte(`{"csv":"1 Main St","settings":{"type":"address","hasHeaders":false,"address":{"index":0}}}`)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(nil, &stubAnalyzer{err: tt.err}), http.MethodPost, "/api/v1/analyses", body)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCreateAnalysis_BlankCSV(t *testing.T) {
	analyzer := &stubAnalyzer{}
	body := []byte(`{"csv":"   ","settings":{"type":"address","hasHeaders":false,"address":{"index":0}}}`)

	rec := serve(newTestServer(nil, analyzer), http.MethodPost, "/api/v1/analyses", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, analyzer.gotCSV)
}
