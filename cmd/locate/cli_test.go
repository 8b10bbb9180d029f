package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/location-analysis/internal/domain"
)

const testGeoJSON = `{"type":"FeatureCollection","features":[
  {"type":"Feature","id":7,"properties":{"ZONE":"AE"},
   "geometry":{"type":"Polygon","coordinates":[[[-106,39],[-104,39],[-104,41],[-106,41],[-106,39]]]}}
]}`

const testCatalog = `
layers:
  - title: Flood zones
    hasCharts: true
    source: {type: geojson, path: zones.geojson}
    fields: [{name: ZONE, label: Flood zone}]
    renderer:
      type: unique-value
      field: ZONE
      uniqueValueInfos:
        - {value: AE, label: High risk, color: [255, 0, 0]}
`

func writeFixtures(t *testing.T) (catalogPath, csvPath string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "zones.geojson"), []byte(testGeoJSON), 0o600))
	catalogPath = filepath.Join(dir, "layers.yaml")
	require.NoError(t, os.WriteFile(catalogPath, []byte(testCatalog), 0o600))
	csvPath = filepath.Join(dir, "points.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,lat,lon\nBoulder,40,-105\nOcean,0,0\n"), 0o600))
	return catalogPath, csvPath
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestAnalyze_JSON(t *testing.T) {
	catalogPath, csvPath := writeFixtures(t)

	out, err := execute(t, "", "analyze", "--catalog", catalogPath, "--input", csvPath,
		"--lat-column", "lat", "--lon-column", "lon")
	require.NoError(t, err)

	var report struct {
		ID        string `json:"id"`
		Locations []struct {
			Label   string `json:"label"`
			Results []struct {
				Attributes []struct {
					ValueLabel string `json:"valueLabel"`
				} `json:"attributes"`
			} `json:"results"`
		} `json:"locations"`
		Charts map[string][]domain.ElementDefinition `json:"charts"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.NotEmpty(t, report.ID)
	require.Len(t, report.Locations, 2)
	assert.Equal(t, "Location 1", report.Locations[0].Label)
	assert.Equal(t, "High risk", report.Locations[0].Results[0].Attributes[0].ValueLabel)
	assert.Equal(t, domain.NoData, report.Locations[1].Results[0].Attributes[0].ValueLabel)

	chart := report.Charts["Flood zones"]
	require.Len(t, chart, 2)
	assert.Equal(t, domain.NoData, chart[0].Label)
	assert.Equal(t, 1.0, chart[0].Value)
	assert.Equal(t, "High risk", chart[1].Label)
	assert.Equal(t, 1.0, chart[1].Value)
}

func TestAnalyze_YAMLFromStdinByIndex(t *testing.T) {
	catalogPath, _ := writeFixtures(t)

	out, err := execute(t, "40,-105\n", "analyze", "--catalog", catalogPath,
		"--headers=false", "--lat-column", "0", "--lon-column", "1", "--format", "yaml")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	locations, ok := report["locations"].([]any)
	require.True(t, ok)
	assert.Len(t, locations, 1)
}

func TestAnalyze_AddressWithoutTokenFails(t *testing.T) {
	catalogPath, _ := writeFixtures(t)

	_, err := execute(t, "1 Main St\n", "analyze", "--catalog", catalogPath,
		"--type", "address", "--headers=false", "--address-column", "0")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGeocoderUnavailable)
}

func TestAnalyze_InvalidOptions(t *testing.T) {
	catalogPath, csvPath := writeFixtures(t)

	_, err := execute(t, "", "analyze", "--catalog", catalogPath, "--input", csvPath, "--format", "xml",
		"--lat-column", "lat", "--lon-column", "lon")
	assert.ErrorContains(t, err, "unknown format")

	_, err = execute(t, "", "analyze", "--catalog", catalogPath, "--input", csvPath)
	assert.ErrorIs(t, err, domain.ErrMissingColumn)
}

func TestLayers(t *testing.T) {
	catalogPath, _ := writeFixtures(t)

	out, err := execute(t, "", "layers", "--catalog", catalogPath)
	require.NoError(t, err)

	var body struct {
		Layers []domain.AnalysisLayer `json:"layers"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	require.Len(t, body.Layers, 1)
	assert.Equal(t, "Flood zones", body.Layers[0].Title)
	assert.Equal(t, domain.SymbolUniqueValues, body.Layers[0].SymbolType)
}

func TestParseColumn(t *testing.T) {
	c := parseColumn("2")
	require.NotNil(t, c.Index)
	assert.Equal(t, 2, *c.Index)
	assert.Empty(t, c.Name)

	assert.Equal(t, domain.Column{Name: "Latitude"}, parseColumn(" Latitude "))
	assert.Equal(t, domain.Column{Name: "-1"}, parseColumn("-1"))
}
