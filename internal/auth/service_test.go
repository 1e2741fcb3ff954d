package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/bcrypt"

	"github.com/nao1215/failsight/internal/database"
)

// memStore is an in-memory CredentialStore.
type memStore struct {
	users map[string]*database.User
	err   error
}

func (m *memStore) FindUserByUsername(_ context.Context, username string) (*database.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.users[username], nil
}

func newMemStore(t *testing.T, creds map[string]string) *memStore {
	t.Helper()

	m := &memStore{users: make(map[string]*database.User)}
	var id int64
	for name, pw := range creds {
		id++
		hash, err := HashPassword(pw, bcrypt.MinCost)
		if err != nil {
			t.Fatal(err)
		}
		m.users[name] = &database.User{ID: id, Username: name, PasswordHash: hash}
	}
	return m
}

func newSession() *sessions.Session {
	store := sessions.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"))
	sess, _ := store.New(httptest.NewRequest("POST", "/auth", nil), "failsight-session")
	return sess
}

func TestService_Login(t *testing.T) {
	t.Parallel()

	store := newMemStore(t, map[string]string{"alice": "wonderland"})
	svc := NewService(store, WithCost(bcrypt.MinCost))

	t.Run("matching credentials", func(t *testing.T) {
		t.Parallel()
		sess := newSession()
		sess.ID = "issued-before-login"
		res, err := svc.Login(context.Background(), sess, "alice", "wonderland")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Success || res.Username != "alice" || res.Message != "" {
			t.Errorf("unexpected result %+v", res)
		}
		if sess.ID != "" {
			t.Errorf("expected session ID to be cleared for reissue, got %q", sess.ID)
		}
		if id, ok := sess.Values[KeyUserID].(int64); !ok || id != 1 {
			t.Errorf("expected user_id 1, got %#v", sess.Values[KeyUserID])
		}
		if sess.Values[KeyUsername] != "alice" {
			t.Errorf("expected username in session, got %v", sess.Values[KeyUsername])
		}
	})

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "alice", password: "looking-glass"},
		{name: "unknown user", username: "bob", password: "wonderland"},
		{name: "case differs", username: "Alice", password: "wonderland"},
		{name: "empty", username: "", password: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sess := newSession()
			sess.ID = "kept"
			res, err := svc.Login(context.Background(), sess, tt.username, tt.password)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.Success || res.Message != MessageInvalidCredentials {
				t.Errorf("expected invalid credentials, got %+v", res)
			}
			if sess.ID != "kept" {
				t.Errorf("expected session ID untouched, got %q", sess.ID)
			}
			if len(sess.Values) != 0 {
				t.Errorf("expected session untouched, got %v", sess.Values)
			}
		})
	}
}

func TestService_LoginRandomCredentialsRejected(t *testing.T) {
	t.Parallel()

	store := newMemStore(t, map[string]string{"operator": "correct horse battery staple"})
	svc := NewService(store, WithCost(bcrypt.MinCost))

	for range 20 {
		username := gofakeit.Username()
		password := gofakeit.Password(true, true, true, true, false, 16)
		if username == "operator" {
			continue
		}
		sess := newSession()
		res, err := svc.Login(context.Background(), sess, username, password)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Success {
			t.Errorf("expected %q to be rejected", username)
		}
		if _, ok := Identity(sess); ok {
			t.Errorf("expected no identity after rejected login for %q", username)
		}
	}

	// A known user with a random password is rejected too.
	sess := newSession()
	res, _ := svc.Login(context.Background(), sess, "operator", gofakeit.Password(true, true, true, false, false, 12))
	if res.Success {
		t.Error("expected random password to be rejected")
	}
}

func TestService_LoginFailsClosed(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("connection refused")
	svc := NewService(&memStore{err: storeErr}, WithCost(bcrypt.MinCost))
	sess := newSession()

	res, err := svc.Login(context.Background(), sess, "alice", "wonderland")
	if !errors.Is(err, ErrUnavailable) || !errors.Is(err, storeErr) {
		t.Errorf("expected ErrUnavailable wrapping store error, got %v", err)
	}
	if res.Success || res.Message != MessageUnavailable {
		t.Errorf("expected generic unavailable message, got %+v", res)
	}
	if len(sess.Values) != 0 {
		t.Error("expected session untouched on store failure")
	}
}

func TestService_LogoutThenCheck(t *testing.T) {
	t.Parallel()

	store := newMemStore(t, map[string]string{"alice": "wonderland"})
	svc := NewService(store, WithCost(bcrypt.MinCost))
	sess := newSession()

	if res := svc.Check(sess); res.Success {
		t.Errorf("expected anonymous check to fail, got %+v", res)
	}

	if _, err := svc.Login(context.Background(), sess, "alice", "wonderland"); err != nil {
		t.Fatal(err)
	}
	if res := svc.Check(sess); !res.Success || res.Username != "alice" {
		t.Errorf("expected check to report alice, got %+v", res)
	}

	res := svc.Logout(sess)
	if !res.Success {
		t.Errorf("expected logout success, got %+v", res)
	}
	if sess.Options.MaxAge >= 0 {
		t.Error("expected session to be marked for deletion")
	}
	if res := svc.Check(sess); res.Success || res.Username != "" {
		t.Errorf("expected check after logout to fail, got %+v", res)
	}

	// Logout of an anonymous session still succeeds.
	if res := svc.Logout(newSession()); !res.Success {
		t.Error("expected anonymous logout to succeed")
	}
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		values map[any]any
		want   bool
	}{
		{name: "full identity", values: map[any]any{KeyUserID: int64(1), KeyUsername: "alice"}, want: true},
		{name: "missing id", values: map[any]any{KeyUsername: "alice"}, want: false},
		{name: "missing name", values: map[any]any{KeyUserID: int64(1)}, want: false},
		{name: "wrong id type", values: map[any]any{KeyUserID: "1", KeyUsername: "alice"}, want: false},
		{name: "empty name", values: map[any]any{KeyUserID: int64(1), KeyUsername: ""}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sess := newSession()
			sess.Values = tt.values
			if _, ok := Identity(sess); ok != tt.want {
				t.Errorf("expected %v, got %v", tt.want, ok)
			}
		})
	}

	if _, ok := Identity(nil); ok {
		t.Error("expected nil session to have no identity")
	}
}

func TestHashPassword(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("secret", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if hash == "secret" {
		t.Error("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte("secret")); err != nil {
		t.Errorf("expected hash to verify, got %v", err)
	}

	other, _ := HashPassword("secret", bcrypt.MinCost)
	if other == hash {
		t.Error("expected salted hashes to differ")
	}
}
