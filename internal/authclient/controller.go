package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Messages shown after a failed login.
const (
	MessageLoginFailed = "Login failed"
	MessageLoginError  = "An error occurred during login"
)

// maxResponseSize bounds the auth endpoint response.
const maxResponseSize = 64 * 1024

// ErrUnexpectedResponse is returned when the endpoint does not answer with the auth JSON shape.
var ErrUnexpectedResponse = errors.New("unexpected auth response")

// User is the cached identity.
type User struct {
	Username string
}

// LoginOutcome is the result of a login attempt as shown to the user.
type LoginOutcome struct {
	Success  bool
	Username string
	// Message is the server message, MessageLoginFailed, or MessageLoginError.
	Message string
}

type authResponse struct {
	Success  bool   `json:"success"`
	Username string `json:"username,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Controller talks to the auth endpoint and caches the current user.
// It is safe for concurrent use.
type Controller struct {
	endpoint   *url.URL
	httpClient *http.Client
	logger     *slog.Logger
	onChange   func(Button)
	seed       []*http.Cookie

	mu      sync.Mutex
	current *User
}

// Option configures a Controller.
type Option func(*Controller)

// WithHTTPClient replaces the HTTP client. Its Jar, if nil, is filled in.
func WithHTTPClient(c *http.Client) Option {
	return func(ctl *Controller) {
		if c != nil {
			ctl.httpClient = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ctl *Controller) {
		if logger != nil {
			ctl.logger = logger
		}
	}
}

// WithOnChange registers a hook called with the new toggle state after
// every cache update.
func WithOnChange(fn func(Button)) Option {
	return func(ctl *Controller) {
		ctl.onChange = fn
	}
}

// WithCookies seeds the cookie jar, typically from LoadCookies.
func WithCookies(cookies []*http.Cookie) Option {
	return func(ctl *Controller) {
		ctl.seed = append(ctl.seed, cookies...)
	}
}

// New returns a Controller for the auth endpoint at endpoint, e.g.
// "http://localhost:8080/auth".
func New(endpoint string, opts ...Option) (*Controller, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid auth endpoint %q", endpoint)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	ctl := &Controller{
		endpoint:   u,
		httpClient: &http.Client{Timeout: 30 * time.Second, Jar: jar},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(ctl)
	}
	if ctl.httpClient.Jar == nil {
		ctl.httpClient.Jar = jar
	}
	if len(ctl.seed) > 0 {
		ctl.httpClient.Jar.SetCookies(u, ctl.seed)
		ctl.seed = nil
	}
	return ctl, nil
}

// Check asks the server for the session identity and updates the cache.
// Any failure leaves the cache logged out.
func (c *Controller) Check(ctx context.Context) (*User, error) {
	res, err := c.post(ctx, url.Values{"action": {"check"}})
	if err != nil {
		c.logger.Warn("auth check failed", "error", err)
		c.setUser(nil)
		return nil, err
	}
	if !res.Success || res.Username == "" {
		c.setUser(nil)
		return nil, nil
	}
	u := &User{Username: res.Username}
	c.setUser(u)
	return u, nil
}

// Login submits credentials. On success the cache holds the returned user.
// A rejected or failed attempt leaves the cache unchanged.
func (c *Controller) Login(ctx context.Context, username, password string) LoginOutcome {
	res, err := c.post(ctx, url.Values{
		"action":   {"login"},
		"username": {username},
		"password": {password},
	})
	if err != nil {
		c.logger.Error("login request failed", "error", err)
		return LoginOutcome{Success: false, Message: MessageLoginError}
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = MessageLoginFailed
		}
		return LoginOutcome{Success: false, Message: msg}
	}
	c.setUser(&User{Username: res.Username})
	return LoginOutcome{Success: true, Username: res.Username}
}

// Logout ends the server session and clears the cache once the server answers.
func (c *Controller) Logout(ctx context.Context) error {
	if _, err := c.post(ctx, url.Values{"action": {"logout"}}); err != nil {
		c.logger.Error("logout request failed", "error", err)
		return err
	}
	c.setUser(nil)
	return nil
}

// CurrentUser returns a copy of the cached user, or nil when logged out.
func (c *Controller) CurrentUser() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	u := *c.current
	return &u
}

// Button returns the toggle state for the cached user.
func (c *Controller) Button() Button {
	if u := c.CurrentUser(); u != nil {
		return ButtonFor(u.Username)
	}
	return ButtonFor("")
}

// Cookies returns the cookies the jar holds for the endpoint.
func (c *Controller) Cookies() []*http.Cookie {
	if c.httpClient.Jar == nil {
		return nil
	}
	return c.httpClient.Jar.Cookies(c.endpoint)
}

// Endpoint returns the auth endpoint URL.
func (c *Controller) Endpoint() *url.URL {
	u := *c.endpoint
	return &u
}

func (c *Controller) setUser(u *User) {
	c.mu.Lock()
	c.current = u
	c.mu.Unlock()

	if c.onChange != nil {
		if u == nil {
			c.onChange(ButtonFor(""))
		} else {
			c.onChange(ButtonFor(u.Username))
		}
	}
}

func (c *Controller) post(ctx context.Context, form url.Values) (*authResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.String(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach auth endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read auth response: %w", err)
	}

	// The endpoint answers with the same JSON shape on 4xx/5xx.
	var res authResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: status %d", ErrUnexpectedResponse, resp.StatusCode)
	}
	return &res, nil
}
