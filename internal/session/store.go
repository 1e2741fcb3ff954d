package session

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/nao1215/failsight/internal/database"
)

// Cookie names used by the web front-end.
const (
	// AuthName is the session holding the logged-in identity.
	AuthName = "failsight-session"
	// ResultsName is the session holding the result mailbox.
	ResultsName = "failsight-results"
)

// Backend persists encoded session payloads. *database.DB implements it.
type Backend interface {
	SaveSession(ctx context.Context, record *database.SessionRecord) error
	GetSession(ctx context.Context, id string) (*database.SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

// Store is a gorilla sessions.Store that keeps values server-side.
// The browser cookie only carries a signed session ID.
type Store struct {
	backend Backend
	codecs  []securecookie.Codec
	logger  *slog.Logger
	now     func() time.Time

	// Options are the default cookie options for new sessions.
	Options *sessions.Options
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxAge sets the session lifetime.
func WithMaxAge(d time.Duration) Option {
	return func(s *Store) {
		s.Options.MaxAge = int(d.Seconds())
	}
}

// WithSecure marks cookies Secure.
func WithSecure(secure bool) Option {
	return func(s *Store) {
		s.Options.Secure = secure
	}
}

// withClock overrides the time source in tests.
func withClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore returns a Store backed by backend. keyPairs are passed to
// securecookie.CodecsFromPairs: hash key first, optional block key second.
func NewStore(backend Backend, keyPairs [][]byte, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		codecs:  securecookie.CodecsFromPairs(keyPairs...),
		logger:  slog.Default(),
		now:     time.Now,
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   int((24 * time.Hour).Seconds()),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, c := range s.codecs {
		if sc, ok := c.(*securecookie.SecureCookie); ok {
			sc.MaxAge(s.Options.MaxAge)
		}
	}
	return s
}

// KeyPairsFromSecret derives cookie keys from a configured secret.
// An empty secret yields a random hash key, which invalidates all
// sessions when the process restarts.
func KeyPairsFromSecret(secret string) [][]byte {
	if secret == "" {
		return [][]byte{securecookie.GenerateRandomKey(64)}
	}
	return [][]byte{[]byte(secret)}
}

// Get returns a cached session for the request, loading it on first use.
func (s *Store) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New loads the session named by the request cookie or returns a fresh one.
// A session whose row is missing or expired comes back new and without error.
// Backend failures are returned together with a usable new session.
func (s *Store) New(r *http.Request, name string) (*sessions.Session, error) {
	sess := sessions.NewSession(s, name)
	opts := *s.Options
	sess.Options = &opts
	sess.IsNew = true

	c, err := r.Cookie(name)
	if err != nil {
		return sess, nil
	}

	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.codecs...); err != nil {
		s.logger.Debug("discarding undecodable session cookie", "name", name, "error", err)
		return sess, nil
	}

	found, err := s.load(r.Context(), sess, id)
	if err != nil {
		return sess, err
	}
	if found {
		sess.ID = id
		sess.IsNew = false
	}
	return sess, nil
}

// Save persists the session and writes its cookie.
// A negative MaxAge expires the cookie, then deletes the stored row.
func (s *Store) Save(r *http.Request, w http.ResponseWriter, sess *sessions.Session) error {
	if sess.Options.MaxAge < 0 {
		http.SetCookie(w, sessions.NewCookie(sess.Name(), "", sess.Options))
		if sess.ID == "" {
			return nil
		}
		return s.backend.DeleteSession(r.Context(), sess.ID)
	}

	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}

	data, err := encodeValues(sess.Values)
	if err != nil {
		return err
	}

	now := s.now()
	record := &database.SessionRecord{
		ID:        sess.ID,
		Name:      sess.Name(),
		Data:      data,
		ExpiresAt: now.Add(time.Duration(sess.Options.MaxAge) * time.Second),
		UpdatedAt: now,
	}
	if err := s.backend.SaveSession(r.Context(), record); err != nil {
		return err
	}

	encoded, err := securecookie.EncodeMulti(sess.Name(), sess.ID, s.codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(sess.Name(), encoded, sess.Options))
	return nil
}

// Delete removes the stored values of the session with the given ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.backend.DeleteSession(ctx, id)
}

// Cleanup removes expired session rows.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	return s.backend.DeleteExpiredSessions(ctx, s.now())
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (s *Store) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Cleanup(ctx)
			if err != nil {
				s.logger.Error("session cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Debug("removed expired sessions", "count", n)
			}
		}
	}
}

func (s *Store) load(ctx context.Context, sess *sessions.Session, id string) (bool, error) {
	record, err := s.backend.GetSession(ctx, id)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	if record.Expired(s.now()) {
		if err := s.backend.DeleteSession(ctx, id); err != nil {
			s.logger.Warn("failed to delete expired session", "error", err)
		}
		return false, nil
	}
	values, err := decodeValues(record.Data)
	if err != nil {
		s.logger.Warn("discarding corrupt session payload", "error", err)
		return false, nil
	}
	sess.Values = values
	return true, nil
}

// ErrCorruptPayload is returned when stored session data cannot be decoded.
var ErrCorruptPayload = errors.New("corrupt session payload")

func encodeValues(values map[any]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(values); err != nil {
		return nil, fmt.Errorf("failed to encode session values: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeValues(data []byte) (map[any]any, error) {
	values := make(map[any]any)
	if len(data) == 0 {
		return values, nil
	}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&values); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptPayload, err)
	}
	return values, nil
}
