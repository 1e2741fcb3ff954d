package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nao1215/failsight/internal/model"
)

// API paths relative to the base URL.
const (
	PathPredict = "/api/predict/"
	PathCompare = "/api/compare/"
	PathDebug   = "/api/debug"
)

// Default client settings.
const (
	DefaultTimeout     = 120 * time.Second
	DefaultMaxBodySize = 32 * 1024 * 1024
	DefaultUserAgent   = "failsight"
	healthCheckTimeout = 5 * time.Second
)

// Client calls the prediction API.
type Client struct {
	baseURL     *url.URL
	httpClient  *http.Client
	userAgent   string
	maxBodySize int64
	logger      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.httpClient.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// WithMaxBodySize limits how many response bytes are read.
func WithMaxBodySize(n int64) Option {
	return func(cl *Client) {
		if n > 0 {
			cl.maxBodySize = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// NewClient creates a Client for the API at baseURL, e.g. "http://127.0.0.1:8000".
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}
	u.Path = strings.TrimRight(u.Path, "/")

	c := &Client{
		baseURL: u,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// SingleResponse is a successful single-model prediction.
type SingleResponse struct {
	Result *model.PredictionResult
	// Raw is the response body exactly as received.
	Raw []byte
}

// ComparisonResponse is a successful comparison.
type ComparisonResponse struct {
	Result *model.ComparisonResult
	Raw    []byte
}

type predictRequest struct {
	ModelName model.ModelName     `json:"model_name"`
	Features  model.FeatureVector `json:"features"`
}

type compareRequest struct {
	Features model.FeatureVector `json:"features"`
}

// SubmitSingle requests a prediction from one model.
// Non-finite features are sent as null and left for the API to reject.
func (c *Client) SubmitSingle(ctx context.Context, name model.ModelName, features model.FeatureVector) (*SingleResponse, error) {
	if !name.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidModel, name)
	}

	raw, err := c.post(ctx, OperationPrediction, PathPredict, predictRequest{ModelName: name, Features: features})
	if err != nil {
		return nil, err
	}

	var result model.PredictionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return &SingleResponse{Result: &result, Raw: raw}, nil
}

// SubmitComparison requests predictions from both models.
func (c *Client) SubmitComparison(ctx context.Context, features model.FeatureVector) (*ComparisonResponse, error) {
	raw, err := c.post(ctx, OperationComparison, PathCompare, compareRequest{Features: features})
	if err != nil {
		return nil, err
	}

	var result model.ComparisonResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return &ComparisonResponse{Result: &result, Raw: raw}, nil
}

// ModelStatus is the body of GET /api/debug.
type ModelStatus struct {
	ModelsLoaded struct {
		XGBModel     bool     `json:"xgb_model"`
		LRModel      bool     `json:"lr_model"`
		Scaler       bool     `json:"scaler"`
		FeatureNames []string `json:"feature_names"`
	} `json:"models_loaded"`
	FeatureCount int    `json:"feature_count"`
	Error        string `json:"error,omitempty"`
}

// Ready reports whether every artifact is loaded.
func (m *ModelStatus) Ready() bool {
	return m.Error == "" && m.ModelsLoaded.XGBModel && m.ModelsLoaded.LRModel && m.ModelsLoaded.Scaler
}

// Health queries /api/debug with a short timeout.
// The returned ModelStatus is nil unless the API answered with JSON.
func (c *Client) Health(ctx context.Context) (Status, *ModelStatus) {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(PathDebug), nil)
	if err != nil {
		return StatusCannotConnect, nil
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(ctx, err) {
			return StatusTimeout, nil
		}
		return StatusCannotConnect, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return StatusBadResponse, nil
	}

	var status ModelStatus
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&status); err != nil {
		return StatusBadResponse, nil
	}
	if !status.Ready() {
		return StatusModelsNotLoaded, &status
	}
	return StatusOK, &status
}

func (c *Client) post(ctx context.Context, op Operation, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", op, err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	raw, err := c.readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", op, err)
	}

	c.logger.Debug("prediction API call",
		"operation", string(op),
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Detail:     extractDetail(raw, op.FailedMessage()),
		}
	}
	return raw, nil
}

func (c *Client) readBody(r io.Reader) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(r, c.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > c.maxBodySize {
		return nil, ErrResponseTooLarge
	}
	return raw, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	return u.String()
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
}

// extractDetail returns the "detail" string of an error body, or fallback
// when the body is not JSON or detail is absent or not a string.
func extractDetail(raw []byte, fallback string) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Detail) == 0 {
		return fallback
	}
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err != nil || detail == "" {
		return fallback
	}
	return detail
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
