package authclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
)

// CookieFile is the file name used for the saved session under the state directory.
const CookieFile = "session.json"

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type savedSession struct {
	Endpoint string        `json:"endpoint"`
	Cookies  []savedCookie `json:"cookies"`
}

// SaveCookies writes the cookies for endpoint to path with owner-only permissions.
func SaveCookies(path, endpoint string, cookies []*http.Cookie) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	s := savedSession{Endpoint: endpoint}
	for _, c := range cookies {
		s.Cookies = append(s.Cookies, savedCookie{Name: c.Name, Value: c.Value})
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

// LoadCookies reads cookies saved for endpoint. A missing file, or one saved
// for a different endpoint, yields no cookies and no error.
func LoadCookies(path, endpoint string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the XDG state directory
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var s savedSession
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to decode session file: %w", err)
	}
	if s.Endpoint != endpoint {
		return nil, nil
	}

	cookies := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	return cookies, nil
}

// RemoveCookies deletes the saved session. A missing file is not an error.
func RemoveCookies(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}
