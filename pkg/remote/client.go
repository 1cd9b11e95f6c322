// File: pkg/remote/client.go
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// API paths served by the storage service.
const (
	SessionPath      = "/api/auth/session"
	FilesPath        = "/api/files"
	FileContentPath  = "/api/files/content"
	maxResponseBytes = 32 << 20
)

// SessionRequest is the sign-in payload.
type SessionRequest struct {
	AccessKey string `json:"access_key"`
}

// SessionResponse carries the bearer token issued on sign-in.
type SessionResponse struct {
	Token string `json:"token"`
}

// ListResponse is the folder listing payload.
type ListResponse struct {
	Folder  string  `json:"folder"`
	Entries []Entry `json:"entries"`
}

// ErrorResponse is the body of a failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ClientOption configures optional Client behavior.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithToken starts the client with an existing session token.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = token
	}
}

// Client talks to the storage API of a codejoiner server.
// It implements both Authenticator and Storage.
type Client struct {
	baseURL   string
	accessKey string
	http      *http.Client
	logger    *zap.Logger
	userAgent string

	mu    sync.Mutex
	token string
}

// NewClient returns a Client for the service at baseURL.
func NewClient(baseURL, accessKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		accessKey: accessKey,
		http:      &http.Client{Timeout: 30 * time.Second},
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsAuthenticated reports whether the client holds a session token.
func (c *Client) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token != ""
}

// Token returns the current session token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// SignIn exchanges the access key for a session token.
func (c *Client) SignIn(ctx context.Context) error {
	if c.accessKey == "" {
		return fmt.Errorf("sign in: %w: no access key configured", ErrUnauthorized)
	}

	body, err := json.Marshal(SessionRequest{AccessKey: c.accessKey})
	if err != nil {
		return fmt.Errorf("encode sign-in request: %w", err)
	}

	var resp SessionResponse
	if err := c.do(ctx, http.MethodPost, SessionPath, nil, bytes.NewReader(body), "application/json", false, &resp); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	if resp.Token == "" {
		return fmt.Errorf("sign in: empty token in response")
	}

	c.mu.Lock()
	c.token = resp.Token
	c.mu.Unlock()
	c.logger.Debug("Signed in to storage", zap.String("baseURL", c.baseURL))
	return nil
}

// ListFiles lists the direct children of folder.
func (c *Client) ListFiles(ctx context.Context, folder string) ([]Entry, error) {
	var resp ListResponse
	q := url.Values{"folder": {folder}}
	if err := c.do(ctx, http.MethodGet, FilesPath, q, nil, "", true, &resp); err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}
	return resp.Entries, nil
}

// ReadFile downloads the file at p.
func (c *Client) ReadFile(ctx context.Context, p string) ([]byte, error) {
	var data []byte
	q := url.Values{"path": {p}}
	if err := c.do(ctx, http.MethodGet, FileContentPath, q, nil, "", true, &data); err != nil {
		return nil, fmt.Errorf("read %s: %w", p, err)
	}
	return data, nil
}

// WriteFile uploads data to p.
func (c *Client) WriteFile(ctx context.Context, p string, data []byte) error {
	q := url.Values{"path": {p}}
	if err := c.do(ctx, http.MethodPut, FileContentPath, q, bytes.NewReader(data), "application/octet-stream", true, nil); err != nil {
		return fmt.Errorf("write %s: %w", p, err)
	}
	return nil
}

// do performs one API call. out may be a *[]byte for raw bodies or any JSON target.
func (c *Client) do(ctx context.Context, method, apiPath string, query url.Values, body io.Reader, contentType string, auth bool, out any) error {
	u := c.baseURL + apiPath
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if auth {
		token := c.Token()
		if token == "" {
			return ErrUnauthorized
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	c.logger.Debug("Storage request",
		zap.String("method", method),
		zap.String("path", apiPath),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		return statusError(resp.StatusCode, payload)
	}

	switch target := out.(type) {
	case nil:
		return nil
	case *[]byte:
		*target = payload
		return nil
	default:
		if err := json.Unmarshal(payload, target); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

func statusError(code int, payload []byte) error {
	msg := strings.TrimSpace(string(payload))
	var er ErrorResponse
	if json.Unmarshal(payload, &er) == nil && er.Error != "" {
		msg = er.Error
	}

	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	default:
		return fmt.Errorf("storage returned %d: %s", code, msg)
	}
}
