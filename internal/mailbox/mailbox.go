// Package mailbox hands API responses from the submitting request to the
// results page through a per-browser-session, single-slot store.
//
// Each key holds the raw JSON text of the last response. Writing a key
// replaces its previous value, reading never clears it, and the slot lives
// in its own named session so logging out does not discard results.
package mailbox

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/sessions"
)

// Keys used by the prediction pages.
const (
	KeyPrediction = "predictionResult"
	KeyComparison = "comparisonResult"
)

// ErrNoSession is returned when a session ID is needed but the store did not assign one.
var ErrNoSession = errors.New("mailbox session has no id")

// Mailbox stores raw result payloads in a named session.
type Mailbox struct {
	store sessions.Store
	name  string
}

// New returns a Mailbox using the session called name in store.
func New(store sessions.Store, name string) *Mailbox {
	return &Mailbox{store: store, name: name}
}

// Put writes raw into key, replacing any earlier value.
func (m *Mailbox) Put(w http.ResponseWriter, r *http.Request, key string, raw []byte) error {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		return fmt.Errorf("failed to load mailbox session: %w", err)
	}
	sess.Values[key] = string(raw)
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("failed to save mailbox session: %w", err)
	}
	return nil
}

// Get returns the payload stored under key and whether one was present.
// A present but empty value counts as absent.
func (m *Mailbox) Get(r *http.Request, key string) ([]byte, bool, error) {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load mailbox session: %w", err)
	}
	s, ok := sess.Values[key].(string)
	if !ok || s == "" {
		return nil, false, nil
	}
	return []byte(s), true, nil
}

// ID returns the mailbox session ID, creating and saving the session when
// it is new so that the browser receives its cookie.
func (m *Mailbox) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		return "", fmt.Errorf("failed to load mailbox session: %w", err)
	}
	if sess.ID == "" {
		if err := sess.Save(r, w); err != nil {
			return "", fmt.Errorf("failed to save mailbox session: %w", err)
		}
	}
	if sess.ID == "" {
		return "", ErrNoSession
	}
	return sess.ID, nil
}
