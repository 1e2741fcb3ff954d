package model

import (
	"encoding/json"
	"math"
	"net/url"
	"reflect"
	"strings"
	"testing"
)

func validForm() url.Values {
	return url.Values{
		FeatureAirTemperature:     {"298.1"},
		FeatureProcessTemperature: {"308.6"},
		FeatureRotationalSpeed:    {"1551"},
		FeatureTorque:             {"42.8"},
		FeatureToolWear:           {"0"},
		FieldEquipmentType:        {"M"},
	}
}

func TestBuildFeatureVector(t *testing.T) {
	t.Parallel()

	fv := BuildFeatureVector(validForm())
	want := FeatureVector{
		AirTemperature:     298.1,
		ProcessTemperature: 308.6,
		RotationalSpeed:    1551,
		Torque:             42.8,
		ToolWear:           0,
		TypeL:              0,
		TypeM:              1,
	}
	if !reflect.DeepEqual(fv, want) {
		t.Errorf("expected %+v, got %+v", want, fv)
	}
}

func TestBuildFeatureVector_EquipmentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		equipment string
		wantL     float64
		wantM     float64
	}{
		{name: "L sets Type_L", equipment: "L", wantL: 1, wantM: 0},
		{name: "M sets Type_M", equipment: "M", wantL: 0, wantM: 1},
		{name: "H clears both", equipment: "H", wantL: 0, wantM: 0},
		{name: "lowercase is not L", equipment: "l", wantL: 0, wantM: 0},
		{name: "empty clears both", equipment: "", wantL: 0, wantM: 0},
		{name: "garbage clears both", equipment: "LM", wantL: 0, wantM: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			form := validForm()
			form.Set(FieldEquipmentType, tt.equipment)
			fv := BuildFeatureVector(form)
			if fv.TypeL != tt.wantL || fv.TypeM != tt.wantM {
				t.Errorf("expected Type_L=%v Type_M=%v, got %v %v", tt.wantL, tt.wantM, fv.TypeL, fv.TypeM)
			}
			if fv.TypeL == 1 && fv.TypeM == 1 {
				t.Error("type flags must never both be set")
			}
		})
	}
}

func TestParseFeature(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    float64
		wantNaN bool
	}{
		{input: "298.1", want: 298.1},
		{input: "  42 ", want: 42},
		{input: "-3.5e2", want: -350},
		{input: "0", want: 0},
		{input: "", wantNaN: true},
		{input: "abc", wantNaN: true},
		{input: "12abc", wantNaN: true},
		{input: "1,5", wantNaN: true},
		{input: "Inf", wantNaN: true},
		{input: "NaN", wantNaN: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got := ParseFeature(tt.input)
			if tt.wantNaN {
				if !math.IsNaN(got) {
					t.Errorf("expected NaN for %q, got %v", tt.input, got)
				}
				return
			}
			if got != tt.want {
				t.Errorf("expected %v for %q, got %v", tt.want, tt.input, got)
			}
		})
	}
}

func TestFeatureVector_MarshalJSON(t *testing.T) {
	t.Parallel()

	t.Run("keys in wire order", func(t *testing.T) {
		t.Parallel()
		data, err := json.Marshal(BuildFeatureVector(validForm()))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := `{"Air temperature [K]":298.1,"Process temperature [K]":308.6,"Rotational speed [rpm]":1551,"Torque [Nm]":42.8,"Tool wear [min]":0,"Type_L":0,"Type_M":1}`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}
	})

	t.Run("unparsable input is sent as null", func(t *testing.T) {
		t.Parallel()
		form := validForm()
		form.Set(FeatureTorque, "abc")
		data, err := json.Marshal(BuildFeatureVector(form))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(string(data), `"Torque [Nm]":null`) {
			t.Errorf("expected null torque, got %s", data)
		}
	})

	t.Run("nested in a request body", func(t *testing.T) {
		t.Parallel()
		body := struct {
			ModelName string        `json:"model_name"`
			Features  FeatureVector `json:"features"`
		}{ModelName: "xgboost", Features: FeatureVector{AirTemperature: math.NaN()}}
		if _, err := json.Marshal(body); err != nil {
			t.Errorf("expected NaN to marshal inside a struct, got %v", err)
		}
	})
}

func TestFeatureVector_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	original := BuildFeatureVector(validForm())
	original.Torque = math.NaN()
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatal(err)
	}

	var decoded FeatureVector
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !math.IsNaN(decoded.Torque) {
		t.Errorf("expected NaN torque, got %v", decoded.Torque)
	}
	if decoded.AirTemperature != 298.1 || decoded.TypeM != 1 {
		t.Errorf("unexpected decoded vector %+v", decoded)
	}
}

func TestFeatureVector_Missing(t *testing.T) {
	t.Parallel()

	form := validForm()
	form.Del(FeatureToolWear)
	form.Set(FeatureAirTemperature, "hot")
	got := BuildFeatureVector(form).Missing()
	want := []string{FeatureAirTemperature, FeatureToolWear}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if m := BuildFeatureVector(validForm()).Missing(); len(m) != 0 {
		t.Errorf("expected no missing features, got %v", m)
	}
}

func TestFeatureVector_EquipmentType(t *testing.T) {
	t.Parallel()

	for _, e := range []EquipmentType{EquipmentTypeLow, EquipmentTypeMedium, EquipmentTypeHigh} {
		form := validForm()
		form.Set(FieldEquipmentType, string(e))
		if got := BuildFeatureVector(form).EquipmentType(); got != e {
			t.Errorf("expected %s, got %s", e, got)
		}
		if !e.IsValid() {
			t.Errorf("expected %s to be valid", e)
		}
	}
	if EquipmentType("X").IsValid() {
		t.Error("expected X to be invalid")
	}
}

func TestFeatureVector_Get(t *testing.T) {
	t.Parallel()

	fv := BuildFeatureVector(validForm())
	got, ok := fv.Get(FeatureTorque)
	if !ok || got != fv.Torque {
		t.Errorf("Get(%q) = %v, %v; want %v, true", FeatureTorque, got, ok, fv.Torque)
	}
	if _, ok := fv.Get("Humidity"); ok {
		t.Error("expected unknown feature to report false")
	}
}
