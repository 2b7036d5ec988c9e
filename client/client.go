package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/bosbase/realtime-go/auth"
	"github.com/bosbase/realtime-go/client/sse"
	"github.com/bosbase/realtime-go/logger"
	"github.com/bosbase/realtime-go/retry"
)

// Client performs authenticated HTTP calls against the backend. It is the
// request/response collaborator the realtime transports build on: they use
// it for resubmission POSTs, streaming GETs, and URL/token access, and never
// construct requests themselves.
type Client struct {
	httpClient *http.Client
	config     Config
	authStore  *auth.Store
	log        *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithAuth attaches an auth store. When the store holds a valid token it is
// sent as the Authorization header on every request.
func WithAuth(store *auth.Store) Option {
	return func(c *Client) { c.authStore = store }
}

// WithLogger sets the logger used by the client and the transports built on it.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithHTTPClient replaces the underlying *http.Client (custom transport, TLS).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a new client with the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Language returns the configured Accept-Language value.
func (c *Client) Language() string {
	return c.config.Language
}

// UserAgent returns the configured User-Agent value.
func (c *Client) UserAgent() string {
	return c.config.UserAgent
}

// AuthStore returns the attached auth store (nil when unauthenticated).
func (c *Client) AuthStore() *auth.Store {
	return c.authStore
}

// Logger returns the client's logger.
func (c *Client) Logger() *logger.Logger {
	return c.log
}

// BuildURL joins path onto the base URL and encodes query parameters.
func (c *Client) BuildURL(path string, query map[string]string) string {
	u := strings.TrimRight(c.config.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		q := url.Values{}
		for k, v := range query {
			q.Set(k, v)
		}
		u += "?" + q.Encode()
	}
	return u
}

// Do executes an HTTP request and returns the complete response.
// Non-2xx status codes are returned as typed *Error values.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	if c.config.Retry != nil {
		return retry.Do(ctx, *c.config.Retry, func() (*Response, error) {
			return c.doOnce(ctx, req)
		})
	}
	return c.doOnce(ctx, req)
}

func (c *Client) doOnce(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewConnectionError(fmt.Errorf("read response body: %w", err))
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		Body:       body,
	}

	if classErr := ClassifyStatusCode(resp.StatusCode, body); classErr != nil {
		return result, classErr
	}
	return result, nil
}

// DoStream executes an HTTP request and returns a streaming response. The
// request is bounded by ctx only; the client-level timeout does not apply.
// The caller must close the returned StreamResponse when done.
func (c *Client) DoStream(ctx context.Context, req Request) (*StreamResponse, error) {
	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	streamClient := &http.Client{Transport: c.httpClient.Transport}
	resp, err := streamClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransportError(ctx, err)
	}

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		return nil, ClassifyStatusCode(resp.StatusCode, body)
	}

	out := &StreamResponse{
		StatusCode: resp.StatusCode,
		Headers:    flattenHeaders(resp.Header),
		rawResp:    resp,
	}
	if strings.Contains(resp.Header.Get("Content-Type"), "text/event-stream") {
		out.SSE = sse.NewReader(resp.Body)
	} else {
		out.Body = resp.Body
	}
	return out, nil
}

// classifyTransportError maps low-level request failures to typed errors.
// A request cut short by local context cancellation is an abort, which the
// subscription resubmission path treats as benign.
func (c *Client) classifyTransportError(ctx context.Context, err error) *Error {
	switch ctx.Err() {
	case context.Canceled:
		return NewAbortError(err)
	case context.DeadlineExceeded:
		return NewTimeoutError(err)
	default:
		return NewConnectionError(err)
	}
}

// buildRequest constructs an *http.Request from the client config and request.
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("encode body: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.BuildURL(req.Path, nil), body)
	if err != nil {
		return nil, NewValidationError(fmt.Sprintf("create request: %v", err))
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			q.Set(k, v)
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	httpReq.Header.Set("Accept-Language", c.config.Language)
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	// The backend expects the raw token, not a "Bearer " prefix.
	if c.authStore != nil && c.authStore.IsValid() {
		httpReq.Header.Set("Authorization", c.authStore.Token())
	}

	return httpReq, nil
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}

// flattenHeaders converts multi-value headers to single-value.
func flattenHeaders(h http.Header) map[string]string {
	result := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			result[k] = v[0]
		}
	}
	return result
}
