package domain

import (
	"math"
	"strings"
)

const defaultFieldDelimiter = ","

// Key returns the category key of a feature: the value expression result
// when one is declared, otherwise the declared field values joined by the
// field delimiter.
func (r UniqueValueRenderer) Key(f Feature) (string, error) {
	if r.Expression != nil {
		v, err := r.Expression.Evaluate(f.Attributes)
		if err != nil {
			return "", err
		}
		return formatRaw(v), nil
	}
	fields := r.Fields()
	if len(fields) == 1 {
		return formatRaw(f.Value(fields[0])), nil
	}
	delim := r.FieldDelimiter
	if delim == "" {
		delim = defaultFieldDelimiter
	}
	parts := make([]string, len(fields))
	for i, field := range fields {
		parts[i] = formatRaw(f.Value(field))
	}
	return strings.Join(parts, delim), nil
}

// Match finds the legend class for a feature. The returned key is the raw
// category value and is set whether or not a class matched.
func (r UniqueValueRenderer) Match(f Feature) (info *UniqueValueInfo, key string, err error) {
	key, err = r.Key(f)
	if err != nil {
		return nil, "", err
	}
	for i := range r.Infos {
		if r.Infos[i].Value == key {
			return &r.Infos[i], key, nil
		}
	}
	return nil, key, nil
}

// RawValue returns the un-normalized value of a feature: the expression
// result when declared, otherwise the field value.
func (r ClassBreaksRenderer) RawValue(f Feature) (any, error) {
	if r.Expression != nil {
		return r.Expression.Evaluate(f.Attributes)
	}
	return f.Value(r.Field), nil
}

// Normalize applies the renderer's normalization to v. Division by a zero
// or missing normalization value is not guarded and yields a non-finite
// result.
func (r ClassBreaksRenderer) Normalize(v float64, f Feature) float64 {
	switch r.NormalizationType {
	case NormalizeByField:
		d, ok := f.Number(r.NormalizationField)
		if !ok {
			return math.NaN()
		}
		return v / d
	case NormalizeLog:
		return math.Log10(v)
	case NormalizePercentTotal:
		return v / r.NormalizationTotal * 100
	default:
		return v
	}
}

// Match finds the first break whose inclusive range holds the normalized
// feature value. raw is the value before normalization.
func (r ClassBreaksRenderer) Match(f Feature) (info *ClassBreakInfo, raw any, err error) {
	raw, err = r.RawValue(f)
	if err != nil {
		return nil, nil, err
	}
	v, ok := numberOf(raw)
	if !ok {
		return nil, raw, nil
	}
	v = r.Normalize(v, f)
	if math.IsNaN(v) {
		return nil, raw, nil
	}
	for i := range r.Breaks {
		b := &r.Breaks[i]
		if v >= b.MinValue && v <= b.MaxValue {
			return b, raw, nil
		}
	}
	return nil, raw, nil
}
