package domain

import (
	"encoding/json"
	"math"
	"strconv"
)

// Sentinel names and labels used when a location has no interpretable feature.
const (
	NoData              = "No data"
	SpatialRelationship = "Spatial relationship"
	InsideBoundary      = "Inside boundary"
	OutsideBoundary     = "Outside boundary"
	Other               = "Other"
)

// AttributeValue holds either a string or a number.
type AttributeValue struct {
	text    string
	number  float64
	numeric bool
}

// StringValue wraps a string datum.
func StringValue(s string) AttributeValue { return AttributeValue{text: s} }

// NumberValue wraps a numeric datum.
func NumberValue(f float64) AttributeValue { return AttributeValue{number: f, numeric: true} }

// Float returns the number and true for numeric values.
func (v AttributeValue) Float() (float64, bool) { return v.number, v.numeric }

// IsNumber reports whether the value is numeric.
func (v AttributeValue) IsNumber() bool { return v.numeric }

// String renders numbers in shortest decimal form.
func (v AttributeValue) String() string {
	if v.numeric {
		return strconv.FormatFloat(v.number, 'f', -1, 64)
	}
	return v.text
}

// MarshalJSON writes numbers as JSON numbers (null when not finite) and
// strings as JSON strings.
func (v AttributeValue) MarshalJSON() ([]byte, error) {
	if !v.numeric {
		return json.Marshal(v.text)
	}
	if math.IsNaN(v.number) || math.IsInf(v.number, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v.number)
}

// UnmarshalJSON accepts a JSON string, number or null.
func (v *AttributeValue) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = NumberValue(math.NaN())
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = NumberValue(f)
	return nil
}

// AttributeInfo is one interpreted measurement of a layer at a location.
type AttributeInfo struct {
	Name       string         `json:"name" yaml:"name"`
	NameLabel  string         `json:"nameLabel" yaml:"nameLabel"`
	Value      AttributeValue `json:"value" yaml:"value"`
	ValueLabel string         `json:"valueLabel" yaml:"valueLabel"`
	Order      int            `json:"order" yaml:"order"`
}

// LocationResult is the outcome of inspecting one layer at one location.
type LocationResult struct {
	SourceLayer string          `json:"sourceLayer" yaml:"sourceLayer"`
	Feature     *Feature        `json:"feature,omitempty" yaml:"feature,omitempty"`
	Attributes  []AttributeInfo `json:"attributes" yaml:"attributes"`
}

// IsNoData reports whether the result is the generic "No data" sentinel.
func (r LocationResult) IsNoData() bool {
	return r.Feature == nil && len(r.Attributes) == 1 && r.Attributes[0].Name == NoData
}

// NoDataResult is emitted for non-simple layers with no feature at a location.
func NoDataResult(layerTitle string) LocationResult {
	return LocationResult{
		SourceLayer: layerTitle,
		Attributes: []AttributeInfo{{
			Name:       NoData,
			NameLabel:  NoData,
			Value:      StringValue(NoData),
			ValueLabel: NoData,
		}},
	}
}

func spatialRelationshipResult(layerTitle string, feature *Feature, inside bool) LocationResult {
	value, label := "Outside", OutsideBoundary
	if inside {
		value, label = "Inside", InsideBoundary
	}
	return LocationResult{
		SourceLayer: layerTitle,
		Feature:     feature,
		Attributes: []AttributeInfo{{
			Name:       SpatialRelationship,
			NameLabel:  "Spatial Relationship",
			Value:      StringValue(value),
			ValueLabel: label,
		}},
	}
}

// MarshalYAML mirrors MarshalJSON for YAML encoders.
func (v AttributeValue) MarshalYAML() (any, error) {
	if v.numeric {
		return v.number, nil
	}
	return v.text, nil
}
