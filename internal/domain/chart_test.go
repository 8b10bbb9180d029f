package domain

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fillA = "rgba(255, 0, 0, 1)"
	fillB = "rgba(0, 0, 255, 1)"
)

func TestBuildChartDefinitions_ThreeLocationScenario(t *testing.T) {
	aggregates := map[string][]BinnedEntry{"Zones": {{Name: "A", Value: 2}}}
	styles := map[string][]StyleDefinition{"Zones": {
		NoDataStyle(),
		{Label: "A", Fill: fillA, Order: 1},
		{Label: "B", Fill: fillB, Order: 2},
	}}

	got := BuildChartDefinitions(aggregates, styles)

	want := []ElementDefinition{
		{Label: NoData, Fill: NoDataFill, Order: NoDataOrder, Value: 0},
		{Label: "A", Fill: fillA, Order: 1, Value: 2},
		{Label: "B", Fill: fillB, Order: 2, Value: 0},
	}
	if diff := cmp.Diff(want, got["Zones"]); diff != "" {
		t.Errorf("chart definitions mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildChartDefinitions_NoDataAlwaysFirst(t *testing.T) {
	t.Run("style listed last with a large order", func(t *testing.T) {
		styles := map[string][]StyleDefinition{"L": {
			{Label: "B", Fill: fillB, Order: 1},
			{Label: "A", Fill: fillA, Order: 0},
			{Label: NoData, Fill: NoDataFill, Order: 1 << 30},
		}}
		got := BuildChartDefinitions(map[string][]BinnedEntry{"L": {{Name: NoData, Value: 4}}}, styles)["L"]
		require.Len(t, got, 3)
		assert.Equal(t, NoData, got[0].Label)
		assert.Equal(t, 4.0, got[0].Value)
		assert.Equal(t, "A", got[1].Label)
		assert.Equal(t, "B", got[2].Label)
	})

	t.Run("missing no data style is added with zero", func(t *testing.T) {
		styles := map[string][]StyleDefinition{"L": {{Label: "A", Fill: fillA, Order: 0}}}
		got := BuildChartDefinitions(map[string][]BinnedEntry{"L": {{Name: "A", Value: 3}}}, styles)["L"]
		require.Len(t, got, 2)
		assert.Equal(t, ElementDefinition{Label: NoData, Fill: NoDataFill, Order: NoDataOrder, Value: 0}, got[0])
		assert.Equal(t, 3.0, got[1].Value)
	})
}

func TestDeriveStyles_UniqueValuesFollowLegendOrder(t *testing.T) {
	layer := layerFor("Zones", UniqueValueRenderer{Field: "ZONE", Infos: []UniqueValueInfo{
		{Value: "1", Label: "Low", Color: Color{R: 0, G: 255, B: 0, A: 1}},
		{Value: "2", Label: "Medium", Color: Color{R: 255, G: 255, B: 0, A: 1}},
		{Value: "3", Label: "High", Color: Color{R: 255, G: 0, B: 0, A: 0.5}},
	}})
	buckets := []BinnedEntry{{Name: "High", Value: 1}, {Name: "Low", Value: 2}, {Name: Other, Value: 1}}

	got := DeriveStyles(layer, buckets)

	assert.Equal(t, []StyleDefinition{
		NoDataStyle(),
		{Label: "Low", Fill: "rgba(0, 255, 0, 1)", Order: 0},
		{Label: "High", Fill: "rgba(255, 0, 0, 0.5)", Order: 1},
	}, got)
}

func TestDeriveStyles_ClassifiedBreaks(t *testing.T) {
	layer := layerFor("Pop", ClassBreaksRenderer{Field: "POP", Breaks: []ClassBreakInfo{
		{MinValue: 0, MaxValue: 10, Label: "Few", Color: Color{R: 1, G: 2, B: 3, A: 1}},
		{MinValue: 10, MaxValue: 20, Label: "Many", Color: Color{R: 4, G: 5, B: 6, A: 1}},
	}})
	got := DeriveStyles(layer, []BinnedEntry{{Name: "Many", Value: 1}})
	assert.Equal(t, []StyleDefinition{NoDataStyle(), {Label: "Many", Fill: "rgba(4, 5, 6, 1)", Order: 0}}, got)
}

func TestDeriveStyles_HistogramBinsInOrder(t *testing.T) {
	layer := layerFor("Income", ClassBreaksRenderer{Field: "INCOME"})
	buckets := []BinnedEntry{{Name: "0-2", Value: 1}, {Name: "2-4", Value: 2}, {Name: NoData, Value: 1}}

	got := DeriveStyles(layer, buckets)

	assert.Equal(t, []StyleDefinition{
		NoDataStyle(),
		{Label: "0-2", Fill: HistogramFill, Order: 0},
		{Label: "2-4", Fill: HistogramFill, Order: 1},
	}, got)
}

func TestDeriveStyles_PieChartFieldColors(t *testing.T) {
	layer := layerFor("Mix", PieChartRenderer{Attributes: []PieChartAttribute{
		{Field: "A", Color: Color{R: 10, G: 20, B: 30, A: 1}},
		{Field: "B", Color: Color{R: 40, G: 50, B: 60, A: 1}},
	}})
	got := DeriveStyles(layer, nil)
	assert.Equal(t, []StyleDefinition{
		NoDataStyle(),
		{Label: "A", Fill: "rgba(10, 20, 30, 1)", Order: 0},
		{Label: "B", Fill: "rgba(40, 50, 60, 1)", Order: 1},
	}, got)
}

func TestChartDefinitions_EndToEnd(t *testing.T) {
	layer := layerFor("Zones", UniqueValueRenderer{Field: "ZONE", Infos: []UniqueValueInfo{
		{Value: "a", Label: "A", Color: Color{R: 255, A: 1}},
		{Value: "b", Label: "B", Color: Color{B: 255, A: 1}},
	}})

	var locations []Location
	for i, zone := range []string{"a", "a", "q"} {
		res, err := InterpretFeature(layer, &Feature{Attributes: map[string]any{"ZONE": zone}})
		require.NoError(t, err)
		locations = append(locations, locationWith(string(rune('1'+i)), res))
	}

	got := ChartDefinitions(locations, []AnalysisLayer{layer})["Zones"]

	want := []ElementDefinition{
		{Label: NoData, Fill: NoDataFill, Order: NoDataOrder, Value: 0},
		{Label: "A", Fill: fillA, Order: 0, Value: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("chart definitions mismatch (-want +got):\n%s", diff)
	}
}
