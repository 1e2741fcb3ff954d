package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

const (
	apiSingleBody  = `{"prediction":1,"prediction_probability":[0.2,0.8],"shap_plot":"iVBORw0KGgo=","model_name":"XGBoost"}`
	apiCompareBody = `{"xgboost":{"prediction":1,"probability":[0.3,0.7],"shap_plot":"iVBORw0KGgo="},"logistic_regression":{"prediction":0,"probability":[0.6,0.4],"shap_plot":null},"comparison_points":["<b>Torque</b> drives the XGBoost result"]}`
	apiDebugBody   = `{"models_loaded":{"xgb_model":true,"lr_model":true,"scaler":true,"feature_names":["a"]},"feature_count":7}`
)

// fakePredictionAPI serves canned responses and records request bodies.
type fakePredictionAPI struct {
	*httptest.Server

	mu     sync.Mutex
	bodies []map[string]any
	status int
	detail string
}

func newFakePredictionAPI(t *testing.T) *fakePredictionAPI {
	t.Helper()

	f := &fakePredictionAPI{status: http.StatusOK}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

func (f *fakePredictionAPI) serve(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	status, detail := f.status, f.detail
	if r.Method == http.MethodPost {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.bodies = append(f.bodies, body)
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
		return
	}
	switch r.URL.Path {
	case "/api/predict/":
		_, _ = io.WriteString(w, apiSingleBody)
	case "/api/compare/":
		_, _ = io.WriteString(w, apiCompareBody)
	case "/api/debug":
		_, _ = io.WriteString(w, apiDebugBody)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakePredictionAPI) fail(status int, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.detail = status, detail
}

func (f *fakePredictionAPI) requests() []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]any(nil), f.bodies...)
}

// runCLI executes the root command with args and returns its standard output.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}
