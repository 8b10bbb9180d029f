package domain

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Renderer type discriminants as they appear in layer descriptors.
const (
	RendererSimple      = "simple"
	RendererUniqueValue = "unique-value"
	RendererClassBreaks = "class-breaks"
	RendererPieChart    = "pie-chart"
)

// NormalizationType controls how a class-breaks value is normalized before matching.
type NormalizationType string

const (
	NormalizeNone         NormalizationType = ""
	NormalizeByField      NormalizationType = "field"
	NormalizeLog          NormalizationType = "log"
	NormalizePercentTotal NormalizationType = "percent-of-total"
)

// Renderer is the closed set of layer symbologies the analysis understands.
// Only types in this package implement it.
type Renderer interface {
	RendererType() string
	sealed()
}

// Color is an RGB color with alpha in [0, 1].
type Color struct {
	R, G, B uint8
	A       float64
}

// RGBA renders the color as a CSS rgba() string.
func (c Color) RGBA() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

// SimpleRenderer draws every feature of a layer with one symbol.
type SimpleRenderer struct {
	Label string
	Color Color
}

// UniqueValueInfo is one legend class of a unique-value renderer.
type UniqueValueInfo struct {
	Value string
	Label string
	Color Color
}

// UniqueValueRenderer categorizes features by the exact value of up to three
// fields, or by the result of a value expression.
type UniqueValueRenderer struct {
	Field           string
	Field2          string
	Field3          string
	FieldDelimiter  string
	Expression      *Expression
	ExpressionTitle string
	LegendTitle     string
	Infos           []UniqueValueInfo
}

// ClassBreakInfo is one numeric range of a class-breaks renderer. Both bounds
// are inclusive.
type ClassBreakInfo struct {
	MinValue float64
	MaxValue float64
	Label    string
	Color    Color
}

// ClassBreaksRenderer partitions a numeric field into ranges.
type ClassBreaksRenderer struct {
	Field              string
	NormalizationType  NormalizationType
	NormalizationField string
	NormalizationTotal float64
	Expression         *Expression
	ExpressionTitle    string
	LegendTitle        string
	Breaks             []ClassBreakInfo
}

// PieChartAttribute is one wedge of a pie-chart renderer.
type PieChartAttribute struct {
	Field string
	Label string
	Color Color
}

// PieChartRenderer sums several fields of a feature into proportional wedges.
type PieChartRenderer struct {
	Attributes []PieChartAttribute
}

// UnsupportedRenderer stands in for any renderer type the analysis cannot
// interpret (heatmap, dot-density, ...).
type UnsupportedRenderer struct {
	Type string
}

func (SimpleRenderer) RendererType() string      { return RendererSimple }
func (UniqueValueRenderer) RendererType() string { return RendererUniqueValue }
func (ClassBreaksRenderer) RendererType() string { return RendererClassBreaks }
func (PieChartRenderer) RendererType() string    { return RendererPieChart }
func (r UnsupportedRenderer) RendererType() string {
	return r.Type
}

func (SimpleRenderer) sealed()      {}
func (UniqueValueRenderer) sealed() {}
func (ClassBreaksRenderer) sealed() {}
func (PieChartRenderer) sealed()    {}
func (UnsupportedRenderer) sealed() {}

// Fields returns the non-empty value fields in declaration order.
func (r UniqueValueRenderer) Fields() []string {
	fields := make([]string, 0, 3)
	for _, f := range []string{r.Field, r.Field2, r.Field3} {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

// IsClassified reports whether the break list carries labels. Only the first
// break is inspected.
func (r ClassBreaksRenderer) IsClassified() bool {
	return len(r.Breaks) > 0 && r.Breaks[0].Label != ""
}

// ErrInvalidRenderer is returned when a renderer descriptor cannot be built.
var ErrInvalidRenderer = errors.New("invalid renderer")

// RendererDescriptor is the serialized form of a renderer, as found in layer
// catalogs and request payloads.
type RendererDescriptor struct {
	Type                 string                   `json:"type" yaml:"type"`
	Label                string                   `json:"label,omitempty" yaml:"label,omitempty"`
	Color                []float64                `json:"color,omitempty" yaml:"color,omitempty"`
	Field                string                   `json:"field,omitempty" yaml:"field,omitempty"`
	Field2               string                   `json:"field2,omitempty" yaml:"field2,omitempty"`
	Field3               string                   `json:"field3,omitempty" yaml:"field3,omitempty"`
	FieldDelimiter       string                   `json:"fieldDelimiter,omitempty" yaml:"fieldDelimiter,omitempty"`
	ValueExpression      string                   `json:"valueExpression,omitempty" yaml:"valueExpression,omitempty"`
	ValueExpressionTitle string                   `json:"valueExpressionTitle,omitempty" yaml:"valueExpressionTitle,omitempty"`
	LegendTitle          string                   `json:"legendTitle,omitempty" yaml:"legendTitle,omitempty"`
	NormalizationType    string                   `json:"normalizationType,omitempty" yaml:"normalizationType,omitempty"`
	NormalizationField   string                   `json:"normalizationField,omitempty" yaml:"normalizationField,omitempty"`
	NormalizationTotal   float64                  `json:"normalizationTotal,omitempty" yaml:"normalizationTotal,omitempty"`
	UniqueValueInfos     []UniqueValueDescriptor  `json:"uniqueValueInfos,omitempty" yaml:"uniqueValueInfos,omitempty"`
	ClassBreakInfos      []ClassBreakDescriptor   `json:"classBreakInfos,omitempty" yaml:"classBreakInfos,omitempty"`
	Attributes           []PieAttributeDescriptor `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// UniqueValueDescriptor is the serialized form of a UniqueValueInfo.
type UniqueValueDescriptor struct {
	Value string    `json:"value" yaml:"value"`
	Label string    `json:"label" yaml:"label"`
	Color []float64 `json:"color,omitempty" yaml:"color,omitempty"`
}

// ClassBreakDescriptor is the serialized form of a ClassBreakInfo.
type ClassBreakDescriptor struct {
	MinValue float64   `json:"minValue" yaml:"minValue"`
	MaxValue float64   `json:"maxValue" yaml:"maxValue"`
	Label    string    `json:"label,omitempty" yaml:"label,omitempty"`
	Color    []float64 `json:"color,omitempty" yaml:"color,omitempty"`
}

// PieAttributeDescriptor is the serialized form of a PieChartAttribute.
type PieAttributeDescriptor struct {
	Field string    `json:"field" yaml:"field"`
	Label string    `json:"label,omitempty" yaml:"label,omitempty"`
	Color []float64 `json:"color,omitempty" yaml:"color,omitempty"`
}

// Build converts the descriptor into a Renderer, compiling any value
// expression. Unknown types yield an UnsupportedRenderer rather than an error.
func (d RendererDescriptor) Build() (Renderer, error) {
	switch d.Type {
	case RendererSimple:
		c, err := parseColor(d.Color)
		if err != nil {
			return nil, err
		}
		return SimpleRenderer{Label: d.Label, Color: c}, nil

	case RendererUniqueValue:
		expr, err := compileOptional(d.ValueExpression)
		if err != nil {
			return nil, err
		}
		if d.Field == "" && expr == nil {
			return nil, fmt.Errorf("%w: unique-value renderer needs a field or a value expression", ErrInvalidRenderer)
		}
		infos := make([]UniqueValueInfo, len(d.UniqueValueInfos))
		for i, info := range d.UniqueValueInfos {
			c, err := parseColor(info.Color)
			if err != nil {
				return nil, fmt.Errorf("unique value %q: %w", info.Value, err)
			}
			infos[i] = UniqueValueInfo{Value: info.Value, Label: info.Label, Color: c}
		}
		return UniqueValueRenderer{
			Field:           d.Field,
			Field2:          d.Field2,
			Field3:          d.Field3,
			FieldDelimiter:  d.FieldDelimiter,
			Expression:      expr,
			ExpressionTitle: d.ValueExpressionTitle,
			LegendTitle:     d.LegendTitle,
			Infos:           infos,
		}, nil

	case RendererClassBreaks:
		expr, err := compileOptional(d.ValueExpression)
		if err != nil {
			return nil, err
		}
		if d.Field == "" && expr == nil {
			return nil, fmt.Errorf("%w: class-breaks renderer needs a field or a value expression", ErrInvalidRenderer)
		}
		norm := NormalizationType(d.NormalizationType)
		switch norm {
		case NormalizeNone, NormalizeLog, NormalizePercentTotal:
		case NormalizeByField:
			if d.NormalizationField == "" {
				return nil, fmt.Errorf("%w: normalization type field without normalizationField", ErrInvalidRenderer)
			}
		default:
			return nil, fmt.Errorf("%w: unknown normalization type %q", ErrInvalidRenderer, d.NormalizationType)
		}
		breaks := make([]ClassBreakInfo, len(d.ClassBreakInfos))
		for i, b := range d.ClassBreakInfos {
			c, err := parseColor(b.Color)
			if err != nil {
				return nil, fmt.Errorf("class break %d: %w", i, err)
			}
			breaks[i] = ClassBreakInfo{MinValue: b.MinValue, MaxValue: b.MaxValue, Label: b.Label, Color: c}
		}
		return ClassBreaksRenderer{
			Field:              d.Field,
			NormalizationType:  norm,
			NormalizationField: d.NormalizationField,
			NormalizationTotal: d.NormalizationTotal,
			Expression:         expr,
			ExpressionTitle:    d.ValueExpressionTitle,
			LegendTitle:        d.LegendTitle,
			Breaks:             breaks,
		}, nil

	case RendererPieChart:
		if len(d.Attributes) == 0 {
			return nil, fmt.Errorf("%w: pie-chart renderer without attributes", ErrInvalidRenderer)
		}
		attrs := make([]PieChartAttribute, len(d.Attributes))
		for i, a := range d.Attributes {
			c, err := parseColor(a.Color)
			if err != nil {
				return nil, fmt.Errorf("pie attribute %q: %w", a.Field, err)
			}
			attrs[i] = PieChartAttribute{Field: a.Field, Label: a.Label, Color: c}
		}
		return PieChartRenderer{Attributes: attrs}, nil

	default:
		return UnsupportedRenderer{Type: d.Type}, nil
	}
}

func compileOptional(src string) (*Expression, error) {
	if src == "" {
		return nil, nil
	}
	return CompileExpression(src)
}

// parseColor accepts [r, g, b] or [r, g, b, a]. Alpha above 1 is read on the
// 0-255 scale used by web map JSON.
func parseColor(v []float64) (Color, error) {
	switch len(v) {
	case 0:
		return Color{A: 1}, nil
	case 3, 4:
	default:
		return Color{}, fmt.Errorf("%w: color needs 3 or 4 components, got %d", ErrInvalidRenderer, len(v))
	}
	for _, comp := range v[:3] {
		if comp < 0 || comp > 255 || math.IsNaN(comp) {
			return Color{}, fmt.Errorf("%w: color component %v out of range", ErrInvalidRenderer, comp)
		}
	}
	c := Color{R: uint8(v[0]), G: uint8(v[1]), B: uint8(v[2]), A: 1}
	if len(v) == 4 {
		a := v[3]
		if a > 1 {
			a /= 255
		}
		c.A = math.Round(a*100) / 100
	}
	return c, nil
}
