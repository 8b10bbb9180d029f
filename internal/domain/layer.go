package domain

import (
	"errors"
	"fmt"
)

// SymbolType is the analysis category a layer's renderer falls into.
type SymbolType string

const (
	SymbolSimple                SymbolType = "simple"
	SymbolUniqueValues          SymbolType = "unique-values"
	SymbolClassBreaksClassified SymbolType = "class-breaks-classified"
	SymbolClassBreaksUnclassed  SymbolType = "class-breaks-unclassed"
	SymbolPieChart              SymbolType = "pie-chart"
	SymbolUnknown               SymbolType = "unknown"
)

// SymbolTypes lists every category, in no particular precedence.
var SymbolTypes = []SymbolType{
	SymbolSimple,
	SymbolUniqueValues,
	SymbolClassBreaksClassified,
	SymbolClassBreaksUnclassed,
	SymbolPieChart,
	SymbolUnknown,
}

// DefaultObjectIDField is the placeholder field queried for simple layers.
const DefaultObjectIDField = "OBJECTID"

// FieldInfo pairs a field name with its display label.
type FieldInfo struct {
	Name  string `json:"name" yaml:"name"`
	Label string `json:"label" yaml:"label"`
}

// LayerDefinition is a source map layer before classification.
type LayerDefinition struct {
	Title         string
	Renderer      Renderer
	Fields        []FieldInfo
	ObjectIDField string
	HasCharts     bool
}

// AnalysisLayer is the classified, read-only view of a map layer used by
// inspection, aggregation and charting.
type AnalysisLayer struct {
	Index              int         `json:"index" yaml:"index"`
	Title              string      `json:"title" yaml:"title"`
	SymbolType         SymbolType  `json:"symbolType" yaml:"symbolType"`
	RequiredFields     []FieldInfo `json:"requiredFields" yaml:"requiredFields"`
	NormalizationField *FieldInfo  `json:"normalizationField,omitempty" yaml:"normalizationField,omitempty"`
	IsExpressionBased  bool        `json:"isExpressionBased" yaml:"isExpressionBased"`
	Fields             []FieldInfo `json:"-" yaml:"-"`
	Renderer           Renderer    `json:"-" yaml:"-"`
}

// ClassifyRenderer maps a renderer onto its analysis category.
func ClassifyRenderer(r Renderer) SymbolType {
	switch v := r.(type) {
	case SimpleRenderer:
		return SymbolSimple
	case UniqueValueRenderer:
		return SymbolUniqueValues
	case ClassBreaksRenderer:
		if v.IsClassified() {
			return SymbolClassBreaksClassified
		}
		return SymbolClassBreaksUnclassed
	case PieChartRenderer:
		return SymbolPieChart
	default:
		return SymbolUnknown
	}
}

// NewAnalysisLayer classifies def and resolves the fields its queries need.
// index is the layer's drawing order.
func NewAnalysisLayer(def LayerDefinition, index int) AnalysisLayer {
	layer := AnalysisLayer{
		Index:      index,
		Title:      def.Title,
		SymbolType: ClassifyRenderer(def.Renderer),
		Fields:     def.Fields,
		Renderer:   def.Renderer,
	}

	switch r := def.Renderer.(type) {
	case UniqueValueRenderer:
		layer.IsExpressionBased = r.Expression != nil
	case ClassBreaksRenderer:
		layer.IsExpressionBased = r.Expression != nil
		if r.NormalizationType == NormalizeByField {
			nf := layer.fieldInfo(r.NormalizationField)
			layer.NormalizationField = &nf
		}
	}

	layer.RequiredFields = []FieldInfo{}
	if def.HasCharts || layer.IsExpressionBased {
		return layer
	}

	switch r := def.Renderer.(type) {
	case PieChartRenderer:
		for _, a := range r.Attributes {
			layer.RequiredFields = append(layer.RequiredFields, layer.fieldInfo(a.Field))
		}
	case ClassBreaksRenderer:
		layer.RequiredFields = append(layer.RequiredFields, layer.fieldInfo(r.Field))
		if layer.NormalizationField != nil {
			layer.RequiredFields = append(layer.RequiredFields, *layer.NormalizationField)
		}
	case UniqueValueRenderer:
		for _, f := range r.Fields() {
			layer.RequiredFields = append(layer.RequiredFields, layer.fieldInfo(f))
		}
	case SimpleRenderer:
		oid := def.ObjectIDField
		if oid == "" {
			oid = DefaultObjectIDField
		}
		layer.RequiredFields = append(layer.RequiredFields, layer.fieldInfo(oid))
	}
	return layer
}

// QueryFields lists the attribute names to request for the layer, with the
// normalization field appended. An empty result means all fields.
func (l AnalysisLayer) QueryFields() []string {
	if len(l.RequiredFields) == 0 {
		return nil
	}
	fields := make([]string, 0, len(l.RequiredFields)+1)
	seen := make(map[string]bool, len(l.RequiredFields)+1)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}
	for _, f := range l.RequiredFields {
		add(f.Name)
	}
	if l.NormalizationField != nil {
		add(l.NormalizationField.Name)
	}
	return fields
}

// FieldLabel returns the declared label for a field, or the name itself.
func (l AnalysisLayer) FieldLabel(name string) string {
	return l.fieldInfo(name).Label
}

func (l AnalysisLayer) fieldInfo(name string) FieldInfo {
	for _, f := range l.Fields {
		if f.Name == name && f.Label != "" {
			return f
		}
	}
	return FieldInfo{Name: name, Label: name}
}

// ErrDuplicateLayerTitle is returned when two layers share a title.
var ErrDuplicateLayerTitle = errors.New("duplicate layer title")

// ValidateLayers checks that layer titles are present and unique.
func ValidateLayers(layers []AnalysisLayer) error {
	seen := make(map[string]int, len(layers))
	for _, l := range layers {
		if l.Title == "" {
			return fmt.Errorf("layer %d has no title", l.Index)
		}
		if prev, ok := seen[l.Title]; ok {
			return fmt.Errorf("%w: %q used by layers %d and %d", ErrDuplicateLayerTitle, l.Title, prev, l.Index)
		}
		seen[l.Title] = l.Index
	}
	return nil
}
