package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/sessions"

	"github.com/nao1215/failsight/internal/database"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func setupTestStore(t *testing.T, opts ...Option) (*Store, *database.DB) {
	t.Helper()

	db, err := database.Open(t.TempDir(), database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db, [][]byte{testKey}, opts...), db
}

// roundTrip saves a session built by fill and returns the cookie the browser would keep.
func roundTrip(t *testing.T, store *Store, fill func(*sessions.Session)) *http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	sess, err := store.Get(req, AuthName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fill(sess)
	if err := sess.Save(req, rec); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	return cookies[0]
}

func requestWith(c *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if c != nil {
		req.AddCookie(c)
	}
	return req
}

func TestStore_NewSessionWithoutCookie(t *testing.T) {
	t.Parallel()

	store, _ := setupTestStore(t)
	sess, err := store.Get(requestWith(nil), AuthName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.IsNew {
		t.Error("expected a new session")
	}
	if len(sess.Values) != 0 {
		t.Errorf("expected no values, got %v", sess.Values)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	t.Parallel()

	store, db := setupTestStore(t)
	cookie := roundTrip(t, store, func(s *sessions.Session) {
		s.Values["user_id"] = int64(42)
		s.Values["username"] = "alice"
	})

	if !cookie.HttpOnly {
		t.Error("expected HttpOnly cookie")
	}
	if cookie.Value == "" {
		t.Fatal("expected cookie value")
	}

	sess, err := store.Get(requestWith(cookie), AuthName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.IsNew {
		t.Error("expected an existing session")
	}
	if got, ok := sess.Values["user_id"].(int64); !ok || got != 42 {
		t.Errorf("expected user_id 42 as int64, got %#v", sess.Values["user_id"])
	}
	if got := sess.Values["username"]; got != "alice" {
		t.Errorf("expected username alice, got %v", got)
	}

	count, _ := db.CountSessions(context.Background())
	if count != 1 {
		t.Errorf("expected one stored session, got %d", count)
	}
}

func TestStore_CookieCarriesOnlyID(t *testing.T) {
	t.Parallel()

	store, _ := setupTestStore(t)
	cookie := roundTrip(t, store, func(s *sessions.Session) {
		s.Values["username"] = "a-very-recognisable-name"
	})
	if len(cookie.Value) > 200 {
		t.Errorf("expected a short cookie, got %d bytes", len(cookie.Value))
	}
}

func TestStore_TamperedCookieStartsNewSession(t *testing.T) {
	t.Parallel()

	store, _ := setupTestStore(t)
	cookie := roundTrip(t, store, func(s *sessions.Session) {
		s.Values["username"] = "alice"
	})
	first := "x"
	if cookie.Value[0] == 'x' {
		first = "y"
	}
	cookie.Value = first + cookie.Value[1:]

	sess, err := store.Get(requestWith(cookie), AuthName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.IsNew || sess.Values["username"] != nil {
		t.Errorf("expected a fresh session, got %+v", sess.Values)
	}
}

func TestStore_OtherKeyCannotRead(t *testing.T) {
	t.Parallel()

	store, db := setupTestStore(t)
	cookie := roundTrip(t, store, func(s *sessions.Session) {
		s.Values["username"] = "alice"
	})

	other := NewStore(db, [][]byte{[]byte("fedcba9876543210fedcba9876543210")})
	sess, err := other.Get(requestWith(cookie), AuthName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.IsNew {
		t.Error("expected cookie signed with another key to be rejected")
	}
}

func TestStore_Expiry(t *testing.T) {
	t.Parallel()

	now := time.Now()
	clock := func() time.Time { return now }
	store, db := setupTestStore(t, WithMaxAge(time.Minute), withClock(clock))
	cookie := roundTrip(t, store, func(s *sessions.Session) {
		s.Values["username"] = "alice"
	})

	now = now.Add(2 * time.Minute)
	sess, err := store.Get(requestWith(cookie), AuthName)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sess.IsNew {
		t.Error("expected expired session to come back new")
	}
	count, _ := db.CountSessions(context.Background())
	if count != 0 {
		t.Errorf("expected expired row to be deleted, got %d rows", count)
	}
}

func TestStore_Cleanup(t *testing.T) {
	t.Parallel()

	now := time.Now()
	store, db := setupTestStore(t, WithMaxAge(time.Minute), withClock(func() time.Time { return now }))
	roundTrip(t, store, func(s *sessions.Session) { s.Values["k"] = "v" })
	roundTrip(t, store, func(s *sessions.Session) { s.Values["k"] = "v" })

	now = now.Add(time.Hour)
	n, err := store.Cleanup(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("expected 2 sessions removed, got %d", n)
	}
	count, _ := db.CountSessions(context.Background())
	if count != 0 {
		t.Errorf("expected no sessions left, got %d", count)
	}
}

func TestStore_NegativeMaxAgeDeletes(t *testing.T) {
	t.Parallel()

	store, db := setupTestStore(t)
	cookie := roundTrip(t, store, func(s *sessions.Session) {
		s.Values["username"] = "alice"
	})

	req := requestWith(cookie)
	rec := httptest.NewRecorder()
	sess, err := store.Get(req, AuthName)
	if err != nil {
		t.Fatal(err)
	}
	sess.Options.MaxAge = -1
	if err := sess.Save(req, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expiring cookie, got %+v", cookies)
	}
	count, _ := db.CountSessions(context.Background())
	if count != 0 {
		t.Errorf("expected session row to be deleted, got %d", count)
	}
}

type failingBackend struct{}

var errBackendDown = errors.New("backend down")

func (failingBackend) SaveSession(context.Context, *database.SessionRecord) error {
	return errBackendDown
}

func (failingBackend) GetSession(context.Context, string) (*database.SessionRecord, error) {
	return nil, errBackendDown
}

func (failingBackend) DeleteSession(context.Context, string) error { return errBackendDown }

func (failingBackend) DeleteExpiredSessions(context.Context, time.Time) (int64, error) {
	return 0, errBackendDown
}

func TestStore_BackendFailure(t *testing.T) {
	t.Parallel()

	good, _ := setupTestStore(t)
	cookie := roundTrip(t, good, func(s *sessions.Session) {
		s.Values["username"] = "alice"
	})

	store := NewStore(failingBackend{}, [][]byte{testKey})
	sess, err := store.Get(requestWith(cookie), AuthName)
	if !errors.Is(err, errBackendDown) {
		t.Errorf("expected backend error, got %v", err)
	}
	if sess == nil || !sess.IsNew || len(sess.Values) != 0 {
		t.Error("expected an empty new session alongside the error")
	}

	rec := httptest.NewRecorder()
	if err := store.Save(requestWith(nil), rec, sessions.NewSession(store, AuthName)); err == nil {
		t.Error("expected save to fail")
	}
}

func TestKeyPairsFromSecret(t *testing.T) {
	t.Parallel()

	random1 := KeyPairsFromSecret("")
	random2 := KeyPairsFromSecret("")
	if len(random1) != 1 || len(random1[0]) != 64 {
		t.Fatalf("expected one 64 byte key, got %v", random1)
	}
	if string(random1[0]) == string(random2[0]) {
		t.Error("expected random keys to differ")
	}

	fixed := KeyPairsFromSecret(string(testKey))
	if string(fixed[0]) != string(testKey) {
		t.Error("expected configured secret to be used as hash key")
	}
}
