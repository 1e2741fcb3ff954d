package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/failsight/internal/database"
)

// Session value keys.
const (
	KeyUserID   = "user_id"
	KeyUsername = "username"
)

// Messages returned to the client.
const (
	MessageInvalidCredentials = "Invalid credentials"
	MessageUnavailable        = "Authentication service unavailable"
	MessageUnknownAction      = "Unknown action"
)

// ErrUnavailable wraps credential store failures.
var ErrUnavailable = errors.New("authentication backend unavailable")

// Result is the JSON body of every auth response.
type Result struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

// CredentialStore looks up users by exact username.
// It returns nil, nil when the user does not exist.
type CredentialStore interface {
	FindUserByUsername(ctx context.Context, username string) (*database.User, error)
}

// Service performs login, logout and identity checks.
type Service struct {
	store  CredentialStore
	logger *slog.Logger
	cost   int
	// dummyHash is compared against when the username is unknown.
	dummyHash []byte
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCost sets the bcrypt cost used by HashPassword callers and the dummy hash.
func WithCost(cost int) Option {
	return func(s *Service) {
		s.cost = cost
	}
}

// NewService returns a Service backed by store.
func NewService(store CredentialStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		cost:   bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("failsight-unknown-user"), s.cost)
	if err == nil {
		s.dummyHash = hash
	}
	return s
}

// Login verifies the credentials and, on success, stores the identity in sess
// and clears its ID so the next save issues a new one.
// The returned Result is always safe to send. A non-nil error means the
// credential store failed; sess is left untouched in that case.
func (s *Service) Login(ctx context.Context, sess *sessions.Session, username, password string) (Result, error) {
	user, err := s.store.FindUserByUsername(ctx, username)
	if err != nil {
		return Result{Success: false, Message: MessageUnavailable}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if user == nil {
		// Keep unknown usernames as slow as wrong passwords.
		if s.dummyHash != nil {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		}
		s.logger.Debug("login rejected", "username", username, "reason", "unknown user")
		return Result{Success: false, Message: MessageInvalidCredentials}, nil
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.logger.Debug("login rejected", "username", username, "reason", "password mismatch")
		return Result{Success: false, Message: MessageInvalidCredentials}, nil
	}

	// A fresh ID is assigned on save, so a cookie issued before login
	// never carries the new identity.
	sess.ID = ""
	sess.IsNew = true
	sess.Values[KeyUserID] = user.ID
	sess.Values[KeyUsername] = user.Username
	s.logger.Info("user logged in", "username", user.Username)
	return Result{Success: true, Username: user.Username}, nil
}

// Logout clears sess and marks it for deletion on save.
func (s *Service) Logout(sess *sessions.Session) Result {
	if name, ok := Identity(sess); ok {
		s.logger.Info("user logged out", "username", name)
	}
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	return Result{Success: true}
}

// Check reports the identity stored in sess.
func (s *Service) Check(sess *sessions.Session) Result {
	name, ok := Identity(sess)
	if !ok {
		return Result{Success: false}
	}
	return Result{Success: true, Username: name}
}

// Identity returns the username held by sess when it carries a full identity.
func Identity(sess *sessions.Session) (string, bool) {
	if sess == nil {
		return "", false
	}
	if _, ok := sess.Values[KeyUserID].(int64); !ok {
		return "", false
	}
	name, ok := sess.Values[KeyUsername].(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// HashPassword returns a bcrypt hash of password at the given cost.
// A cost of 0 selects bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
