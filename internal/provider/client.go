// Package provider implements the typed HTTP clients for the two external
// identity providers, with auth-token injection, retry, structured request
// logging, and provider-specific error translation.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/fedbridge/internal/core"
	"github.com/hugo-lorenzo-mato/fedbridge/internal/logging"
)

// TranslateFunc enriches a provider error before it propagates. Each
// provider installs its own hook.
type TranslateFunc func(err error) error

// Options controls a single request.
type Options struct {
	Method       string
	Body         interface{}
	ResponseType string // "json" (default) or "text"
	Headers      map[string]string
}

// Client is the typed request wrapper for one provider's REST API.
type Client struct {
	provider  core.Provider
	baseURL   string
	http      *http.Client
	source    core.SessionSource
	logger    *logging.Logger
	retry     *RetryPolicy
	translate TranslateFunc
}

// ClientOption configures a client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) {
		c.http = h
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *logging.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p *RetryPolicy) ClientOption {
	return func(c *Client) {
		c.retry = p
	}
}

// WithErrorTranslator sets the provider error enrichment hook.
func WithErrorTranslator(fn TranslateFunc) ClientOption {
	return func(c *Client) {
		c.translate = fn
	}
}

// NewClient creates a provider client. The session source supplies the
// bearer token on every request; tokens are never stored on the client.
func NewClient(provider core.Provider, baseURL string, source core.SessionSource, opts ...ClientOption) *Client {
	c := &Client{
		provider: provider,
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		source:   source,
		logger:   logging.NewNop(),
		retry:    DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Provider returns the provider this client talks to.
func (c *Client) Provider() core.Provider {
	return c.provider
}

// Request performs an authenticated request against path and returns the
// parsed result: a decoded JSON value, or a string when ResponseType is
// "text". A 204 or empty body yields an empty object.
func (c *Client) Request(ctx context.Context, path string, opts Options) (interface{}, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, c.handleError(err)
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	url := c.baseURL + path

	var bodyBytes []byte
	if opts.Body != nil {
		bodyBytes, err = json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
	}

	var result interface{}
	err = c.retry.Execute(ctx, func(ctx context.Context) error {
		var attemptErr error
		result, attemptErr = c.doFetch(ctx, method, url, token, bodyBytes, opts)
		return attemptErr
	})
	if err != nil {
		return nil, c.handleError(err)
	}
	return result, nil
}

// Get performs an authenticated GET.
func (c *Client) Get(ctx context.Context, path string) (interface{}, error) {
	return c.Request(ctx, path, Options{Method: http.MethodGet})
}

// Post performs an authenticated POST with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (interface{}, error) {
	return c.Request(ctx, path, Options{Method: http.MethodPost, Body: body})
}

// Put performs an authenticated PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}) (interface{}, error) {
	return c.Request(ctx, path, Options{Method: http.MethodPut, Body: body})
}

// Patch performs an authenticated PATCH with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body interface{}) (interface{}, error) {
	return c.Request(ctx, path, Options{Method: http.MethodPatch, Body: body})
}

func (c *Client) bearerToken(ctx context.Context) (string, error) {
	sess, err := c.source.Session(ctx)
	if err != nil || sess == nil {
		return "", &AuthenticationError{Provider: c.provider, Message: "no authenticated session", Cause: err}
	}

	var token string
	switch c.provider {
	case core.ProviderGoogle:
		token = sess.GoogleToken
	case core.ProviderMicrosoft:
		token = sess.MicrosoftToken
	}
	if token == "" {
		return "", &AuthenticationError{Provider: c.provider, Message: "no token in session"}
	}
	return token, nil
}

// doFetch is the shared authenticated-fetch primitive: it logs the request
// before sending and the response (or error) after.
func (c *Client) doFetch(ctx context.Context, method, url, token string, body []byte, opts Options) (interface{}, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	c.logger.Debug("provider request",
		"provider", c.provider,
		"method", method,
		"url", url,
		"body_bytes", len(body),
	)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("provider request failed",
			"provider", c.provider,
			"method", method,
			"url", url,
			"duration", time.Since(start),
			"error", err,
		)
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	c.logger.Debug("provider response",
		"provider", c.provider,
		"method", method,
		"url", url,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"body_bytes", len(respBody),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.statusError(resp.StatusCode, respBody)
	}

	if opts.ResponseType == "text" {
		return string(respBody), nil
	}
	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(respBody)) == 0 {
		return map[string]interface{}{}, nil
	}

	var parsed interface{}
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", c.provider, err)
	}
	return parsed, nil
}

// statusError converts a non-2xx response into a typed APIError. Both
// providers wrap failures as {"error": {"code", "message"}}.
func (c *Client) statusError(status int, body []byte) error {
	apiErr := &APIError{
		Provider: c.provider,
		Status:   status,
		Message:  http.StatusText(status),
		Body:     string(body),
	}

	var envelope struct {
		Error struct {
			Code    json.RawMessage `json:"code"`
			Message string          `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			apiErr.Message = envelope.Error.Message
		}
		apiErr.Code = strings.Trim(string(envelope.Error.Code), `"`)
	}

	if status == http.StatusUnauthorized {
		return WrapAuthError(apiErr, c.provider)
	}
	return apiErr
}

// handleError routes errors through the provider hook before propagation.
func (c *Client) handleError(err error) error {
	if c.translate != nil {
		return c.translate(err)
	}
	return err
}
