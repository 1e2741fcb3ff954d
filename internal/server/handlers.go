package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/nao1215/failsight/internal/auth"
	"github.com/nao1215/failsight/internal/mailbox"
	"github.com/nao1215/failsight/internal/model"
	"github.com/nao1215/failsight/internal/predict"
	"github.com/nao1215/failsight/internal/render"
	"github.com/nao1215/failsight/internal/session"
)

// Inline messages on the prediction form.
const (
	MessageLoginRequired = "Please log in to make a prediction"
	MessageBusy          = "A prediction is already in progress"
	MessageUnknownModel  = "Unknown model"
	MessageInvalidForm   = "Invalid form submission"
)

// username returns the logged-in user, or "" for anonymous visitors and
// when the session store is unavailable.
func (s *Server) username(r *http.Request) string {
	sess, err := s.store.Get(r, session.AuthName)
	if err != nil {
		s.logger.Error("session store unavailable", "error", err)
		return ""
	}
	name, _ := auth.Identity(sess)
	return name
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderer.Index(w, http.StatusOK, render.NewIndexView(s.username(r), nil, ""))
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, predict.OperationPrediction)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, predict.OperationComparison)
}

// submit runs one prediction or comparison for the posted form, stores the
// raw response in the mailbox and redirects to the matching results page.
// Failures re-render the form with the submitted values and an inline message.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, op predict.Operation) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		s.renderer.Index(w, http.StatusBadRequest, render.NewIndexView(s.username(r), nil, MessageInvalidForm))
		return
	}
	form := r.PostForm
	user := s.username(r)

	fail := func(status int, msg string) {
		s.renderer.Index(w, status, render.NewIndexView(user, form, msg))
	}

	if s.cfg.RequireLogin && user == "" {
		fail(http.StatusUnauthorized, MessageLoginRequired)
		return
	}

	name := model.ParseModelName(form.Get(model.FieldModelName))
	if op == predict.OperationPrediction && !name.IsValid() {
		fail(http.StatusBadRequest, MessageUnknownModel)
		return
	}

	key, err := s.mailbox.ID(w, r)
	if err != nil {
		s.logger.Error("failed to open result session", "error", err)
		fail(http.StatusInternalServerError, op.ErrorMessage())
		return
	}
	if !s.inflight.acquire(key) {
		fail(http.StatusConflict, MessageBusy)
		return
	}
	defer s.inflight.release(key)

	features := model.BuildFeatureVector(form)
	if missing := features.Missing(); len(missing) > 0 {
		s.logger.Debug("submitting incomplete features", "missing", missing)
	}

	raw, target, err := s.call(r.Context(), op, name, features)
	if err != nil {
		s.logger.Warn("prediction API call failed", "operation", string(op), "error", err)
		fail(http.StatusBadGateway, predict.UserMessage(op, err))
		return
	}

	mailKey := mailbox.KeyPrediction
	if op == predict.OperationComparison {
		mailKey = mailbox.KeyComparison
	}
	if err := s.mailbox.Put(w, r, mailKey, raw); err != nil {
		s.logger.Error("failed to store result", "error", err)
		fail(http.StatusInternalServerError, op.ErrorMessage())
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// call submits features and returns the raw response body and the page
// that displays it.
func (s *Server) call(ctx context.Context, op predict.Operation, name model.ModelName, features model.FeatureVector) ([]byte, string, error) {
	if op == predict.OperationComparison {
		resp, err := s.api.SubmitComparison(ctx, features)
		if err != nil {
			return nil, "", err
		}
		return resp.Raw, "/compare", nil
	}
	resp, err := s.api.SubmitSingle(ctx, name, features)
	if err != nil {
		return nil, "", err
	}
	return resp.Raw, "/results", nil
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	if !s.allowResults(w, r) {
		return
	}
	raw, found, err := s.mailbox.Get(r, mailbox.KeyPrediction)
	if err != nil {
		s.renderer.Error(w, err)
		return
	}
	s.renderer.Single(w, raw, found)
}

func (s *Server) handleComparison(w http.ResponseWriter, r *http.Request) {
	if !s.allowResults(w, r) {
		return
	}
	raw, found, err := s.mailbox.Get(r, mailbox.KeyComparison)
	if err != nil {
		s.renderer.Error(w, err)
		return
	}
	s.renderer.Comparison(w, raw, found)
}

// allowResults redirects anonymous visitors to the form when login is required.
func (s *Server) allowResults(w http.ResponseWriter, r *http.Request) bool {
	if s.cfg.RequireLogin && s.username(r) == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return false
	}
	return true
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string               `json:"status"`
	Database      string               `json:"database"`
	PredictionAPI string               `json:"prediction_api"`
	Models        *predict.ModelStatus `json:"models,omitempty"`
}

// Health status values.
const (
	HealthOK          = "ok"
	HealthDegraded    = "degraded"
	HealthUnavailable = "unavailable"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: HealthOK, Database: HealthOK}

	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("database ping failed", "error", err)
		resp.Database = HealthUnavailable
		resp.Status = HealthDegraded
	}

	status, models := s.api.Health(r.Context())
	resp.PredictionAPI = status.String()
	resp.Models = models
	if status != predict.StatusOK {
		resp.Status = HealthDegraded
	}

	code := http.StatusOK
	if resp.Status != HealthOK {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("failed to encode health response", "error", err)
	}
}
