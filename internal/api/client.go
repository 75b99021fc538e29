package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/richmansdream/crmdesk/internal/errors"
	"github.com/richmansdream/crmdesk/internal/log"
)

// DefaultBaseURL is where the CRM API listens in development
const DefaultBaseURL = "http://localhost:8000/api"

// RequestIDHeader carries a per-request correlation ID
const RequestIDHeader = "X-Request-ID"

// UnauthorizedHandler is notified whenever a response comes back 401.
// credential is the bearer token the rejected request was sent with.
type UnauthorizedHandler func(ctx context.Context, credential string)

// Client is the CRM REST API client.
//
// The client holds no credential of its own: every call takes the bearer
// token explicitly, so the session manager stays the only writer.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     *log.Logger

	mu           sync.RWMutex
	unauthorized []UnauthorizedHandler
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a new CRM API client.
// No timeout is applied; callers bound requests through their context.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		userAgent:  "crmdesk",
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// OnUnauthorized registers a handler run on every 401 response
func (c *Client) OnUnauthorized(h UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unauthorized = append(c.unauthorized, h)
}

// Request describes one API call
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any

	// RawQuery, when set, is sent verbatim instead of Query
	RawQuery string
}

// Do performs the request with the given bearer credential and decodes a
// 2xx JSON body into out (when out is non-nil).
func (c *Client) Do(ctx context.Context, r Request, credential string, out any) error {
	req, err := c.newRequest(ctx, r, credential)
	if err != nil {
		return err
	}

	requestID := req.Header.Get(RequestIDHeader)
	started := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).DebugContext(ctx, "api request failed",
			"method", r.Method, "path", r.Path, "request_id", requestID)
		return errors.NewTransportError(r.Method, r.Path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "api request",
		"method", r.Method,
		"path", r.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(started),
	)

	if resp.StatusCode == http.StatusUnauthorized {
		body := readErrorBody(resp)
		c.notifyUnauthorized(ctx, credential)
		err := errors.NewUnauthorizedError(body.Text())
		err.Cause = body
		return err
	}

	return parseResponse(resp, out)
}

func (c *Client) newRequest(ctx context.Context, r Request, credential string) (*http.Request, error) {
	var reqBody io.Reader
	if r.Body != nil {
		jsonBody, err := json.Marshal(r.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	target := c.baseURL + r.Path
	switch {
	case r.RawQuery != "":
		target += "?" + r.RawQuery
	case len(r.Query) > 0:
		target += "?" + r.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set(RequestIDHeader, uuid.NewString())
	if credential != "" {
		(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"}).SetAuthHeader(req)
	}

	return req, nil
}

func (c *Client) notifyUnauthorized(ctx context.Context, credential string) {
	c.mu.RLock()
	handlers := make([]UnauthorizedHandler, len(c.unauthorized))
	copy(handlers, c.unauthorized)
	c.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, credential)
	}
}

// ErrorBody is the structured error payload returned by the API.
// FastAPI answers {"detail": ...}; application failures answer
// {"success": false, "error": ...}.
type ErrorBody struct {
	Status  int             `json:"-"`
	Detail  json.RawMessage `json:"detail,omitempty"`
	Err     string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Raw     string          `json:"-"`
}

// DetailText returns detail when it is a plain string
func (b *ErrorBody) DetailText() string {
	if len(b.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Detail, &s); err == nil {
		return s
	}
	return ""
}

// Text returns the most specific message: detail, then error, then message
func (b *ErrorBody) Text() string {
	if d := b.DetailText(); d != "" {
		return d
	}
	if b.Err != "" {
		return b.Err
	}
	return b.Message
}

// Error implements error
func (b *ErrorBody) Error() string {
	if t := b.Text(); t != "" {
		return t
	}
	if b.Raw != "" {
		return fmt.Sprintf("status %d: %s", b.Status, b.Raw)
	}
	return fmt.Sprintf("status %d", b.Status)
}

// ServerMessage extracts the server-provided message from err, in priority
// order detail, error, message. It returns "" when the failure carried no
// structured body (transport errors, undecodable bodies).
func ServerMessage(err error) string {
	var body *ErrorBody
	if stderrors.As(err, &body) {
		return body.Text()
	}
	return ""
}

func readErrorBody(resp *http.Response) *ErrorBody {
	raw, _ := io.ReadAll(resp.Body)
	body := &ErrorBody{Status: resp.StatusCode}
	if err := json.Unmarshal(raw, body); err != nil {
		body.Raw = strings.TrimSpace(string(raw))
	}
	return body
}

// parseResponse decodes a 2xx body into target or maps the status to a coded error
func parseResponse(resp *http.Response, target any) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := readErrorBody(resp)
		return statusError(resp.StatusCode, body)
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return errors.Wrap(errors.ErrCodeDecode, "failed to decode response", err)
	}
	return nil
}

func statusError(status int, body *ErrorBody) error {
	msg := body.Text()
	if msg == "" {
		msg = http.StatusText(status)
	}

	var crmErr *errors.CRMError
	switch {
	case status == http.StatusForbidden:
		crmErr = errors.New(errors.ErrCodeForbidden, msg)
	case status == http.StatusNotFound:
		crmErr = errors.New(errors.ErrCodeNotFound, msg)
	case status >= 500:
		crmErr = errors.New(errors.ErrCodeServer, msg)
	default:
		crmErr = errors.New(errors.ErrCodeClient, msg)
	}
	crmErr.Status = status
	crmErr.Cause = body
	return crmErr
}
