package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a Go SDK for the quiz administration API
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// Credentials identify the operator on every request
type Credentials struct {
	Token string
	Email string
}

// TokenSource supplies the operator credentials. An empty token means the
// request is sent unauthenticated.
type TokenSource interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// StaticTokens is a TokenSource returning fixed credentials
type StaticTokens Credentials

// Credentials implements TokenSource
func (s StaticTokens) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithTokenSource sets where credentials are read from
func WithTokenSource(src TokenSource) Option {
	return func(c *Client) {
		c.tokens = src
	}
}

// NewClient creates a new quiz API client
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		tokens:  StaticTokens{},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is a non-2xx response from the remote API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// ErrMissingEnvelope is returned when a success body lacks the expected key
var ErrMissingEnvelope = errors.New("response is missing expected key")

// request describes one call to the remote API
type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
}

func jsonRequest(method, path string, payload any) (request, error) {
	req := request{method: method, path: path}
	if payload == nil {
		return req, nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return req, fmt.Errorf("failed to marshal request: %w", err)
	}
	req.body = bytes.NewReader(body)
	req.contentType = "application/json"
	return req, nil
}

func multipartRequest(method, path string, form *FormData) (request, error) {
	contentType, body, err := form.Encode()
	if err != nil {
		return request{}, err
	}
	return request{method: method, path: path, body: bytes.NewReader(body), contentType: contentType}, nil
}

// doRequest performs an HTTP request and returns the raw success body
func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	url := c.baseURL + r.path

	req, err := http.NewRequestWithContext(ctx, r.method, url, r.body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	req.Header.Set("Accept", "application/json")

	creds, err := c.tokens.Credentials(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}
	if creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+creds.Token)
		req.Header.Set("Email", creds.Email)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
	}

	return respBody, nil
}

// errorMessage picks the human-readable part of an error body
func errorMessage(status int, body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		switch v := parsed.Error.(type) {
		case string:
			if v != "" {
				return v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" {
		return fmt.Sprintf("HTTP %d: %s", status, text)
	}
	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}

// call issues r and unwraps the value stored under key
func call[T any](ctx context.Context, c *Client, r request, key string) (T, error) {
	var zero T

	body, err := c.doRequest(ctx, r)
	if err != nil {
		return zero, err
	}

	return unwrap[T](body, key)
}

// unwrap decodes the value stored under key in a success envelope
func unwrap[T any](body []byte, key string) (T, error) {
	var zero T

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return zero, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	raw, ok := envelope[key]
	if !ok {
		return zero, fmt.Errorf("%w: %q", ErrMissingEnvelope, key)
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return out, nil
}
