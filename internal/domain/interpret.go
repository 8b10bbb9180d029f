package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnsupportedRenderer is returned alongside an empty result when a layer's
// renderer cannot be interpreted.
var ErrUnsupportedRenderer = errors.New("unsupported renderer")

// InterpretFeature turns the first feature found for a layer at a location
// into a LocationResult. A nil feature produces the layer's "no feature"
// sentinel. For an unsupported renderer the result has no attributes and the
// error wraps ErrUnsupportedRenderer; callers may log it and keep the result.
func InterpretFeature(layer AnalysisLayer, feature *Feature) (LocationResult, error) {
	if feature == nil {
		if layer.SymbolType == SymbolSimple {
			return spatialRelationshipResult(layer.Title, nil, false), nil
		}
		return NoDataResult(layer.Title), nil
	}

	result := LocationResult{SourceLayer: layer.Title, Feature: feature, Attributes: []AttributeInfo{}}

	switch layer.SymbolType {
	case SymbolSimple:
		return spatialRelationshipResult(layer.Title, feature, true), nil

	case SymbolUniqueValues:
		r, ok := layer.Renderer.(UniqueValueRenderer)
		if !ok {
			break
		}
		attr, err := interpretUniqueValue(layer, r, *feature)
		if err != nil {
			return result, err
		}
		result.Attributes = append(result.Attributes, attr)
		return result, nil

	case SymbolClassBreaksClassified:
		r, ok := layer.Renderer.(ClassBreaksRenderer)
		if !ok {
			break
		}
		attr, err := interpretClassified(layer, r, *feature)
		if err != nil {
			return result, err
		}
		result.Attributes = append(result.Attributes, attr)
		return result, nil

	case SymbolClassBreaksUnclassed:
		r, ok := layer.Renderer.(ClassBreaksRenderer)
		if !ok {
			break
		}
		attr, err := interpretUnclassed(layer, r, *feature)
		if err != nil {
			return result, err
		}
		result.Attributes = append(result.Attributes, attr)
		return result, nil

	case SymbolPieChart:
		r, ok := layer.Renderer.(PieChartRenderer)
		if !ok {
			break
		}
		result.Attributes = interpretPieChart(layer, r, *feature)
		return result, nil

	case SymbolUnknown:
	}

	rendererType := "none"
	if layer.Renderer != nil {
		rendererType = layer.Renderer.RendererType()
	}
	return result, fmt.Errorf("%w: layer %q has renderer type %q", ErrUnsupportedRenderer, layer.Title, rendererType)
}

// attributeNaming picks the name and label for a single-valued attribute:
// the expression title when present, else the legend title, else the field.
func attributeNaming(layer AnalysisLayer, exprTitle, legendTitle, field string) (name, label string) {
	if exprTitle != "" {
		return exprTitle, exprTitle
	}
	name = field
	if legendTitle != "" {
		name = legendTitle
	}
	return name, layer.FieldLabel(name)
}

func interpretUniqueValue(layer AnalysisLayer, r UniqueValueRenderer, f Feature) (AttributeInfo, error) {
	info, key, err := r.Match(f)
	if err != nil {
		return AttributeInfo{}, fmt.Errorf("layer %q: %w", layer.Title, err)
	}
	_, label := attributeNaming(layer, r.ExpressionTitle, r.LegendTitle, r.Field)

	attr := AttributeInfo{Name: label, NameLabel: label}
	if info != nil && info.Label != "" {
		attr.Value = StringValue(info.Label)
		attr.ValueLabel = info.Label
	} else {
		attr.Value = StringValue(Other)
		attr.ValueLabel = fmt.Sprintf("Undefined (%s)", key)
	}
	return attr, nil
}

func interpretClassified(layer AnalysisLayer, r ClassBreaksRenderer, f Feature) (AttributeInfo, error) {
	info, raw, err := r.Match(f)
	if err != nil {
		return AttributeInfo{}, fmt.Errorf("layer %q: %w", layer.Title, err)
	}
	name, label := attributeNaming(layer, r.ExpressionTitle, r.LegendTitle, r.Field)

	value := fmt.Sprintf("%s (%s)", Other, formatRaw(raw))
	if info != nil && info.Label != "" {
		value = info.Label
	}
	return AttributeInfo{
		Name:       name,
		NameLabel:  label,
		Value:      StringValue(value),
		ValueLabel: value,
	}, nil
}

func interpretUnclassed(layer AnalysisLayer, r ClassBreaksRenderer, f Feature) (AttributeInfo, error) {
	raw, err := r.RawValue(f)
	if err != nil {
		return AttributeInfo{}, fmt.Errorf("layer %q: %w", layer.Title, err)
	}
	v, ok := numberOf(raw)
	if !ok {
		v = math.NaN()
	}

	nameSrc, label := attributeNaming(layer, r.ExpressionTitle, r.LegendTitle, r.Field)
	name := nameSrc
	if r.NormalizationType == NormalizeByField && layer.NormalizationField != nil {
		nf := layer.NormalizationField
		v = r.Normalize(v, f)
		name = nameSrc + " / " + nf.Label
		label = layer.FieldLabel(nameSrc) + " / " + nf.Label
	}

	return AttributeInfo{
		Name:       name,
		NameLabel:  label,
		Value:      NumberValue(v),
		ValueLabel: FormatNumber(v),
	}, nil
}

func interpretPieChart(layer AnalysisLayer, r PieChartRenderer, f Feature) []AttributeInfo {
	var sum float64
	for _, a := range r.Attributes {
		if v, ok := f.Number(a.Field); ok {
			sum += v
		}
	}

	attrs := make([]AttributeInfo, 0, len(r.Attributes))
	for i, a := range r.Attributes {
		nameLabel := a.Label
		if nameLabel == "" {
			nameLabel = layer.FieldLabel(a.Field)
		}
		raw := f.Value(a.Field)
		value := StringValue(formatRaw(raw))
		ratio := math.NaN()
		if v, ok := f.Number(a.Field); ok {
			value = NumberValue(v)
			ratio = v / sum
		}
		attrs = append(attrs, AttributeInfo{
			Name:       a.Field,
			NameLabel:  nameLabel,
			Value:      value,
			ValueLabel: fmt.Sprintf("%s (%s)", formatRaw(raw), FormatPercent(ratio)),
			Order:      i,
		})
	}
	return attrs
}
