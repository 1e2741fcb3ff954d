package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Feature names as sent to the prediction API and used as HTML form field names.
const (
	FeatureAirTemperature     = "Air temperature [K]"
	FeatureProcessTemperature = "Process temperature [K]"
	FeatureRotationalSpeed    = "Rotational speed [rpm]"
	FeatureTorque             = "Torque [Nm]"
	FeatureToolWear           = "Tool wear [min]"
	FeatureTypeL              = "Type_L"
	FeatureTypeM              = "Type_M"
)

// FieldEquipmentType is the form field selecting the product quality variant.
const FieldEquipmentType = "equipment_type"

// NumericFeatures lists the numeric sensor features in wire order.
var NumericFeatures = []string{
	FeatureAirTemperature,
	FeatureProcessTemperature,
	FeatureRotationalSpeed,
	FeatureTorque,
	FeatureToolWear,
}

// EquipmentType is the product quality variant of the machine (L, M or H).
type EquipmentType string

// Equipment type constants.
const (
	EquipmentTypeLow    EquipmentType = "L"
	EquipmentTypeMedium EquipmentType = "M"
	EquipmentTypeHigh   EquipmentType = "H"
)

// IsValid returns true for L, M and H.
func (e EquipmentType) IsValid() bool {
	switch e {
	case EquipmentTypeLow, EquipmentTypeMedium, EquipmentTypeHigh:
		return true
	default:
		return false
	}
}

// FeatureVector is the fixed set of features the prediction models expect.
// Non-finite values mark missing or unparsable inputs and are encoded as JSON null.
type FeatureVector struct {
	AirTemperature     float64
	ProcessTemperature float64
	RotationalSpeed    float64
	Torque             float64
	ToolWear           float64
	TypeL              float64
	TypeM              float64
}

// FormValues is the read side of a submitted form. url.Values satisfies it.
type FormValues interface {
	Get(key string) string
}

// BuildFeatureVector maps submitted form values to a FeatureVector.
// It never fails: numeric fields that are missing or do not parse become NaN,
// and an equipment type other than L or M clears both type flags.
func BuildFeatureVector(form FormValues) FeatureVector {
	fv := FeatureVector{
		AirTemperature:     ParseFeature(form.Get(FeatureAirTemperature)),
		ProcessTemperature: ParseFeature(form.Get(FeatureProcessTemperature)),
		RotationalSpeed:    ParseFeature(form.Get(FeatureRotationalSpeed)),
		Torque:             ParseFeature(form.Get(FeatureTorque)),
		ToolWear:           ParseFeature(form.Get(FeatureToolWear)),
	}
	switch EquipmentType(form.Get(FieldEquipmentType)) {
	case EquipmentTypeLow:
		fv.TypeL = 1
	case EquipmentTypeMedium:
		fv.TypeM = 1
	}
	return fv
}

// ParseFeature parses a numeric form value. The whole trimmed string must be
// a finite decimal number; anything else yields NaN.
func ParseFeature(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return math.NaN()
	}
	return f
}

// EquipmentType derives the equipment type from the one-hot flags.
func (fv FeatureVector) EquipmentType() EquipmentType {
	switch {
	case fv.TypeL == 1:
		return EquipmentTypeLow
	case fv.TypeM == 1:
		return EquipmentTypeMedium
	default:
		return EquipmentTypeHigh
	}
}

// Missing returns the names of features holding non-finite values.
func (fv FeatureVector) Missing() []string {
	var names []string
	for _, f := range fv.fields() {
		if !isFinite(f.value) {
			names = append(names, f.name)
		}
	}
	return names
}

// Get returns the value of the named feature.
func (fv FeatureVector) Get(name string) (float64, bool) {
	for _, f := range fv.fields() {
		if f.name == name {
			return f.value, true
		}
	}
	return 0, false
}

type namedValue struct {
	name  string
	value float64
}

func (fv FeatureVector) fields() []namedValue {
	return []namedValue{
		{FeatureAirTemperature, fv.AirTemperature},
		{FeatureProcessTemperature, fv.ProcessTemperature},
		{FeatureRotationalSpeed, fv.RotationalSpeed},
		{FeatureTorque, fv.Torque},
		{FeatureToolWear, fv.ToolWear},
		{FeatureTypeL, fv.TypeL},
		{FeatureTypeM, fv.TypeM},
	}
}

// MarshalJSON writes the features as an object keyed by feature name,
// in wire order, with non-finite values as null.
func (fv FeatureVector) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fv.fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if !isFinite(f.value) {
			buf.WriteString("null")
			continue
		}
		buf.WriteString(strconv.FormatFloat(f.value, 'g', -1, 64))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object written by MarshalJSON.
// Missing keys and nulls become NaN.
func (fv *FeatureVector) UnmarshalJSON(data []byte) error {
	var raw map[string]*float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid feature vector: %w", err)
	}
	get := func(name string) float64 {
		if v, ok := raw[name]; ok && v != nil {
			return *v
		}
		return math.NaN()
	}
	*fv = FeatureVector{
		AirTemperature:     get(FeatureAirTemperature),
		ProcessTemperature: get(FeatureProcessTemperature),
		RotationalSpeed:    get(FeatureRotationalSpeed),
		Torque:             get(FeatureTorque),
		ToolWear:           get(FeatureToolWear),
		TypeL:              get(FeatureTypeL),
		TypeM:              get(FeatureTypeM),
	}
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
