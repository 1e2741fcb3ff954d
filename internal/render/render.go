package render

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/nao1215/failsight/internal/authclient"
	"github.com/nao1215/failsight/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Page names.
const (
	PageIndex          = "index"
	PageResults        = "results"
	PageCompare        = "compare"
	PageNoData         = "nodata"
	PageCompareNoData  = "compare_nodata"
	PageError          = "error"
	layoutTemplateName = "layout"
)

// ErrMalformedResult is returned when stored result data cannot be rendered.
var ErrMalformedResult = errors.New("malformed result data")

// Renderer paints the HTML pages.
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger sets the logger used for render failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New parses the embedded templates.
func New(opts ...Option) (*Renderer, error) {
	r := &Renderer{
		pages:  make(map[string]*template.Template),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, name := range []string{PageIndex, PageResults, PageCompare, PageNoData, PageCompareNoData, PageError} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// Single renders the single-prediction results page from a mailbox slot.
// An empty slot renders the "no data" page without parsing anything.
func (r *Renderer) Single(w http.ResponseWriter, raw []byte, found bool) {
	if !found {
		r.execute(w, http.StatusOK, PageNoData, nil)
		return
	}
	result, err := model.ParsePredictionResult(raw)
	if err != nil {
		r.fail(w, fmt.Errorf("%w: %w", ErrMalformedResult, err))
		return
	}
	r.execute(w, http.StatusOK, PageResults, NewSingleView(result))
}

// Comparison renders the model comparison page from a mailbox slot.
func (r *Renderer) Comparison(w http.ResponseWriter, raw []byte, found bool) {
	if !found {
		r.execute(w, http.StatusOK, PageCompareNoData, nil)
		return
	}
	result, err := model.ParseComparisonResult(raw)
	if err != nil {
		r.fail(w, fmt.Errorf("%w: %w", ErrMalformedResult, err))
		return
	}
	r.execute(w, http.StatusOK, PageCompare, NewComparisonView(result))
}

// Index renders the prediction form.
func (r *Renderer) Index(w http.ResponseWriter, status int, view IndexView) {
	r.execute(w, status, PageIndex, view)
}

// Error renders the generic error page with status 500 and logs cause.
func (r *Renderer) Error(w http.ResponseWriter, cause error) {
	r.fail(w, cause)
}

func (r *Renderer) fail(w http.ResponseWriter, cause error) {
	r.logger.Error("failed to display results", "error", cause)
	if err := r.write(w, http.StatusInternalServerError, PageError, nil); err != nil {
		r.logger.Error("failed to render error page", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// execute renders into a buffer so that a template failure never sends a
// partial page.
func (r *Renderer) execute(w http.ResponseWriter, status int, name string, data any) {
	if err := r.write(w, status, name, data); err != nil {
		r.fail(w, err)
	}
}

func (r *Renderer) write(w http.ResponseWriter, status int, name string, data any) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, layoutTemplateName, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// Field is a numeric input on the prediction form.
type Field struct {
	Name  string
	Value string
}

// Choice is one <option> of a select element.
type Choice struct {
	Value    string
	Label    string
	Selected bool
}

// IndexView is the data behind the prediction form.
type IndexView struct {
	Button         authclient.Button
	Fields         []Field
	EquipmentTypes []Choice
	Models         []Choice
	// Error is shown inline above the form, e.g. the API's failure detail.
	Error string
}

// NewIndexView builds the form for username (empty when logged out).
// form carries previously submitted values so that they survive an error;
// it may be nil.
func NewIndexView(username string, form model.FormValues, errMsg string) IndexView {
	get := func(key string) string {
		if form == nil {
			return ""
		}
		return form.Get(key)
	}

	v := IndexView{
		Button: authclient.ButtonFor(username),
		Error:  errMsg,
	}
	for _, name := range model.NumericFeatures {
		v.Fields = append(v.Fields, Field{Name: name, Value: get(name)})
	}

	equipment := model.EquipmentType(get(model.FieldEquipmentType))
	if !equipment.IsValid() {
		equipment = model.EquipmentTypeLow
	}
	for _, e := range []struct {
		t     model.EquipmentType
		label string
	}{
		{model.EquipmentTypeLow, "L (Low quality)"},
		{model.EquipmentTypeMedium, "M (Medium quality)"},
		{model.EquipmentTypeHigh, "H (High quality)"},
	} {
		v.EquipmentTypes = append(v.EquipmentTypes, Choice{
			Value:    string(e.t),
			Label:    e.label,
			Selected: e.t == equipment,
		})
	}

	selected := model.ParseModelName(get(model.FieldModelName))
	for _, m := range []model.ModelName{model.ModelXGBoost, model.ModelLogisticRegression} {
		v.Models = append(v.Models, Choice{
			Value:    m.String(),
			Label:    m.DisplayName(),
			Selected: m == selected,
		})
	}
	return v
}
