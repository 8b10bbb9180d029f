package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func locationWith(id string, results ...LocationResult) Location {
	return Location{ID: id, Label: id, Results: results}
}

func valueResult(title, value string) LocationResult {
	return LocationResult{
		SourceLayer: title,
		Feature:     &Feature{},
		Attributes:  []AttributeInfo{{Name: "F", Value: StringValue(value), ValueLabel: value}},
	}
}

func numberResult(title string, v float64) LocationResult {
	return LocationResult{
		SourceLayer: title,
		Feature:     &Feature{},
		Attributes:  []AttributeInfo{{Name: "F", Value: NumberValue(v), ValueLabel: FormatNumber(v)}},
	}
}

func TestAggregate_UniqueValuesCountsByValue(t *testing.T) {
	layer := layerFor("Zones", UniqueValueRenderer{Field: "ZONE"})
	locations := []Location{
		locationWith("1", valueResult("Zones", "A")),
		locationWith("2", valueResult("Zones", "A")),
		locationWith("3", valueResult("Zones", "Other")),
		locationWith("4", NoDataResult("Zones")),
	}

	got := Aggregate(locations, []AnalysisLayer{layer})

	assert.Equal(t, []BinnedEntry{
		{Name: "A", Value: 2},
		{Name: "Other", Value: 1},
		{Name: NoData, Value: 1},
	}, got["Zones"])

	var total float64
	for _, b := range got["Zones"] {
		total += b.Value
	}
	assert.Equal(t, float64(len(locations)), total)
}

func TestAggregate_GroupsByValueNotLabel(t *testing.T) {
	layer := layerFor("Zones", UniqueValueRenderer{Field: "ZONE"})
	a := valueResult("Zones", Other)
	a.Attributes[0].ValueLabel = "Undefined (Q)"
	b := valueResult("Zones", Other)
	b.Attributes[0].ValueLabel = "Undefined (R)"

	got := Aggregate([]Location{locationWith("1", a), locationWith("2", b)}, []AnalysisLayer{layer})
	assert.Equal(t, []BinnedEntry{{Name: Other, Value: 2}}, got["Zones"])
}

func TestAggregate_SimpleInsideOutside(t *testing.T) {
	layer := layerFor("Boundary", SimpleRenderer{})
	inside, err := InterpretFeature(layer, &Feature{})
	require.NoError(t, err)
	outside, err := InterpretFeature(layer, nil)
	require.NoError(t, err)

	locations := []Location{
		locationWith("1", inside),
		locationWith("2", outside),
		locationWith("3", inside),
	}
	got := Aggregate(locations, []AnalysisLayer{layer})["Boundary"]

	require.Len(t, got, 2)
	assert.Equal(t, BinnedEntry{Name: InsideBoundary, Value: 2}, got[0])
	assert.Equal(t, BinnedEntry{Name: OutsideBoundary, Value: 1}, got[1])
	assert.Equal(t, float64(len(locations)), got[0].Value+got[1].Value)
}

func TestAggregate_PieChartSumsFields(t *testing.T) {
	layer := layerFor("Land use", PieChartRenderer{Attributes: []PieChartAttribute{{Field: "FARM"}, {Field: "URBAN"}, {Field: "WATER"}}})
	r1, err := InterpretFeature(layer, &Feature{Attributes: map[string]any{"FARM": 10.0, "URBAN": 5.0, "WATER": 0.0}})
	require.NoError(t, err)
	r2, err := InterpretFeature(layer, &Feature{Attributes: map[string]any{"FARM": 2.5, "URBAN": 7.5, "WATER": 0.0}})
	require.NoError(t, err)

	got := Aggregate([]Location{
		locationWith("1", r1),
		locationWith("2", r2),
		locationWith("3", NoDataResult("Land use")),
	}, []AnalysisLayer{layer})

	assert.Equal(t, []BinnedEntry{
		{Name: "FARM", Value: 12.5},
		{Name: "URBAN", Value: 12.5},
		{Name: "WATER", Value: 0},
	}, got["Land use"])
}

func TestAggregate_UnclassedHistogram(t *testing.T) {
	layer := layerFor("Income", ClassBreaksRenderer{Field: "INCOME"})
	var locations []Location
	for i, v := range []float64{1, 2, 3, 4, 5} {
		locations = append(locations, locationWith(string(rune('a'+i)), numberResult("Income", v)))
	}
	locations = append(locations, locationWith("z", NoDataResult("Income")))

	got := Aggregate(locations, []AnalysisLayer{layer})

	assert.Equal(t, []BinnedEntry{
		{Name: "0-2", Value: 1},
		{Name: "2-4", Value: 2},
		{Name: "4-6", Value: 2},
		{Name: NoData, Value: 1},
	}, got["Income"])
}

func TestAggregate_IgnoresOtherLayersAndUnknown(t *testing.T) {
	zones := layerFor("Zones", UniqueValueRenderer{Field: "ZONE"})
	heat := layerFor("Heat", UnsupportedRenderer{Type: "heatmap"})
	locations := []Location{
		locationWith("1", valueResult("Zones", "A"), LocationResult{SourceLayer: "Heat", Attributes: []AttributeInfo{}}),
	}

	got := Aggregate(locations, []AnalysisLayer{zones, heat})
	assert.Equal(t, []BinnedEntry{{Name: "A", Value: 1}}, got["Zones"])
	assert.Empty(t, got["Heat"])
}
