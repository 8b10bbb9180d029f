package domain

import "sort"

// Chart fills that do not come from a renderer.
const (
	NoDataFill    = "rgb(0, 0, 0)"
	HistogramFill = "rgba(169, 169, 169, 1)"
	OutsideFill   = "rgba(211, 211, 211, 1)"
)

// NoDataOrder sorts the "No data" entry ahead of every legend entry, whose
// orders start at zero.
const NoDataOrder = -1

// StyleDefinition is the declared look of one chart category.
type StyleDefinition struct {
	Label string `json:"label" yaml:"label"`
	Fill  string `json:"fill" yaml:"fill"`
	Order int    `json:"order" yaml:"order"`
}

// ElementDefinition is a style joined with its aggregated value.
type ElementDefinition struct {
	Label string  `json:"label" yaml:"label"`
	Fill  string  `json:"fill" yaml:"fill"`
	Order int     `json:"order" yaml:"order"`
	Value float64 `json:"value" yaml:"value"`
}

// NoDataStyle is included in every layer's styles.
func NoDataStyle() StyleDefinition {
	return StyleDefinition{Label: NoData, Fill: NoDataFill, Order: NoDataOrder}
}

// DeriveStyles builds the chart styles of a layer from its renderer and the
// buckets actually observed. Legend-driven styles keep only labels present
// in buckets, in legend order. The result always starts with NoDataStyle.
func DeriveStyles(layer AnalysisLayer, buckets []BinnedEntry) []StyleDefinition {
	present := make(map[string]bool, len(buckets))
	for _, b := range buckets {
		present[b.Name] = true
	}

	styles := []StyleDefinition{NoDataStyle()}
	order := 0
	push := func(label, fill string) {
		styles = append(styles, StyleDefinition{Label: label, Fill: fill, Order: order})
		order++
	}
	seen := map[string]bool{NoData: true}
	pushPresent := func(label, fill string) {
		if present[label] && !seen[label] {
			seen[label] = true
			push(label, fill)
		}
	}

	switch layer.SymbolType {
	case SymbolUniqueValues:
		if r, ok := layer.Renderer.(UniqueValueRenderer); ok {
			for _, info := range r.Infos {
				pushPresent(info.Label, info.Color.RGBA())
			}
		}
	case SymbolClassBreaksClassified:
		if r, ok := layer.Renderer.(ClassBreaksRenderer); ok {
			for _, b := range r.Breaks {
				pushPresent(b.Label, b.Color.RGBA())
			}
		}
	case SymbolClassBreaksUnclassed:
		for _, b := range buckets {
			if b.Name != NoData {
				push(b.Name, HistogramFill)
			}
		}
	case SymbolPieChart:
		if r, ok := layer.Renderer.(PieChartRenderer); ok {
			for _, a := range r.Attributes {
				push(a.Field, a.Color.RGBA())
			}
		}
	case SymbolSimple:
		inside := HistogramFill
		if r, ok := layer.Renderer.(SimpleRenderer); ok {
			inside = r.Color.RGBA()
		}
		push(InsideBoundary, inside)
		push(OutsideBoundary, OutsideFill)
	case SymbolUnknown:
	}
	return styles
}

// BuildChartDefinitions joins each layer's styles with its aggregate buckets
// by label. Styles without a bucket get value 0. A "No data" element is
// added when the styles lack one and always comes first; the rest are sorted
// by order, ties keeping style order.
func BuildChartDefinitions(aggregates map[string][]BinnedEntry, styles map[string][]StyleDefinition) map[string][]ElementDefinition {
	out := make(map[string][]ElementDefinition, len(styles))
	for title, layerStyles := range styles {
		values := make(map[string]float64, len(aggregates[title]))
		for _, b := range aggregates[title] {
			values[b.Name] = b.Value
		}

		if !hasNoDataStyle(layerStyles) {
			layerStyles = append([]StyleDefinition{NoDataStyle()}, layerStyles...)
		}

		elements := make([]ElementDefinition, 0, len(layerStyles))
		for _, s := range layerStyles {
			elements = append(elements, ElementDefinition{
				Label: s.Label,
				Fill:  s.Fill,
				Order: s.Order,
				Value: values[s.Label],
			})
		}
		sort.SliceStable(elements, func(i, j int) bool {
			a, b := elements[i], elements[j]
			if (a.Label == NoData) != (b.Label == NoData) {
				return a.Label == NoData
			}
			return a.Order < b.Order
		})
		out[title] = elements
	}
	return out
}

func hasNoDataStyle(styles []StyleDefinition) bool {
	for _, s := range styles {
		if s.Label == NoData {
			return true
		}
	}
	return false
}

// ChartDefinitions runs aggregation, style derivation and the style join for
// a set of inspected locations.
func ChartDefinitions(locations []Location, layers []AnalysisLayer) map[string][]ElementDefinition {
	aggregates := Aggregate(locations, layers)
	styles := make(map[string][]StyleDefinition, len(layers))
	for _, layer := range layers {
		styles[layer.Title] = DeriveStyles(layer, aggregates[layer.Title])
	}
	return BuildChartDefinitions(aggregates, styles)
}
