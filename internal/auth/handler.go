package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/sessions"

	"github.com/nao1215/failsight/internal/session"
)

// Actions accepted in the "action" form field.
const (
	ActionLogin  = "login"
	ActionLogout = "logout"
	ActionCheck  = "check"
)

// sessionDeleter is implemented by stores that can drop a session by ID.
type sessionDeleter interface {
	Delete(ctx context.Context, id string) error
}

// maxAuthBody bounds the request body of the auth endpoint.
const maxAuthBody = 64 << 10

// Handler serves the auth endpoint. It accepts url-encoded and multipart
// form bodies.
type Handler struct {
	service     *Service
	store       sessions.Store
	sessionName string
	logger      *slog.Logger
}

// NewHandler creates a Handler that keeps identities in the session
// called session.AuthName in store.
func NewHandler(service *Service, store sessions.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:     service,
		store:       store,
		sessionName: session.AuthName,
		logger:      logger,
	}
}

// RegisterRoutes mounts the endpoint at /auth.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Handle("/auth", h).Methods(http.MethodPost)
}

// ServeHTTP dispatches on the action form field.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAuthBody)
	if err := r.ParseMultipartForm(maxAuthBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		respondJSON(w, http.StatusBadRequest, Result{Success: false, Message: "Invalid request"})
		return
	}

	sess, storeErr := h.store.Get(r, h.sessionName)
	if storeErr != nil {
		h.logger.Error("session store unavailable", "error", storeErr)
	}

	switch action := r.PostFormValue("action"); action {
	case ActionLogin:
		h.login(w, r, sess, storeErr)
	case ActionLogout:
		h.logout(w, r, sess)
	case ActionCheck:
		if storeErr != nil {
			respondJSON(w, http.StatusOK, Result{Success: false})
			return
		}
		respondJSON(w, http.StatusOK, h.service.Check(sess))
	default:
		h.logger.Debug("unknown auth action", "action", action)
		respondJSON(w, http.StatusBadRequest, Result{Success: false, Message: MessageUnknownAction})
	}
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, sess *sessions.Session, storeErr error) {
	unavailable := Result{Success: false, Message: MessageUnavailable}
	if storeErr != nil {
		respondJSON(w, http.StatusServiceUnavailable, unavailable)
		return
	}

	previousID := sess.ID
	res, err := h.service.Login(r.Context(), sess, r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		h.logger.Error("login failed", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, res)
		return
	}
	if !res.Success {
		respondJSON(w, http.StatusOK, res)
		return
	}

	if err := sess.Save(r, w); err != nil {
		h.logger.Error("failed to persist login session", "error", err)
		respondJSON(w, http.StatusServiceUnavailable, unavailable)
		return
	}
	if d, ok := h.store.(sessionDeleter); ok && previousID != "" {
		if err := d.Delete(r.Context(), previousID); err != nil {
			h.logger.Warn("failed to delete replaced session", "error", err)
		}
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request, sess *sessions.Session) {
	res := h.service.Logout(sess)
	if err := sess.Save(r, w); err != nil {
		h.logger.Error("failed to delete session", "error", err)
	}
	respondJSON(w, http.StatusOK, res)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("failed to encode response", "error", err)
	}
}
