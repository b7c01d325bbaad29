package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/agrovista/farmsight-go/pkg/auth"
	"github.com/agrovista/farmsight-go/pkg/logger"
)

// Error messages surfaced through the Result envelope.
const (
	msgSessionExpired  = "session expired, please login again"
	msgTimeout         = "request timeout"
	msgInvalidResponse = "invalid JSON response"
	msgNetworkFailure  = "network error, please check your connection"
)

// defaultTimeout bounds a single attempt when the request does not set one.
const defaultTimeout = 30 * time.Second

// Request describes one logical HTTP request.
type Request struct {
	// Endpoint is the path relative to the base URL (e.g. "/api/fields").
	Endpoint string

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Body is the JSON-serializable request body (nil for none).
	Body interface{}

	// Query holds URL query parameters (optional).
	Query url.Values

	// Headers holds extra request headers (optional).
	Headers map[string]string

	// SkipRetry limits the request to a single attempt.
	SkipRetry bool

	// Timeout bounds each attempt. Defaults to 30 seconds.
	Timeout time.Duration
}

// Config contains configuration for creating an Executor.
type Config struct {
	// BaseURL is the backend base URL (e.g. "https://api.farm.example").
	BaseURL string

	// Auth is the token manager consulted before each request.
	Auth *auth.Manager

	// HTTPClient is the underlying HTTP client. Defaults to
	// http.DefaultClient; per-attempt timeouts come from the request.
	HTTPClient *http.Client

	// Policy is the retry policy. Defaults to DefaultPolicy.
	Policy Policy

	// CSRFToken, when set, is attached as X-CSRF-Token to state-changing
	// requests.
	CSRFToken string

	// OnSessionExpired is invoked when authentication is irrecoverable,
	// standing in for the dashboard's redirect-to-login (optional).
	OnSessionExpired func()

	// AuthPrefix marks endpoints exempt from the pre-flight validity check
	// and the 401 refresh loop. Defaults to "/api/auth/".
	AuthPrefix string

	// Logger is the logger for request diagnostics (optional).
	Logger *zerolog.Logger
}

// Executor performs logical HTTP requests with bounded timeout, linear
// backoff retry on transient failure, and 401-triggered refresh-and-retry.
//
// All failures resolve into the Result envelope; Do never returns a Go
// error. The Executor is safe for concurrent use.
type Executor struct {
	baseURL          string
	authManager      *auth.Manager
	httpClient       *http.Client
	policy           Policy
	csrfToken        string
	onSessionExpired func()
	authPrefix       string
	log              zerolog.Logger
}

// NewExecutor creates a new resilient request executor.
func NewExecutor(cfg *Config) *Executor {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	policy := cfg.Policy
	if policy.MaxAttempts == 0 {
		policy = DefaultPolicy()
	}
	authPrefix := cfg.AuthPrefix
	if authPrefix == "" {
		authPrefix = "/api/auth/"
	}
	log := logger.With("request")
	if cfg.Logger != nil {
		log = *cfg.Logger
	}
	return &Executor{
		baseURL:          strings.TrimRight(cfg.BaseURL, "/"),
		authManager:      cfg.Auth,
		httpClient:       httpClient,
		policy:           policy,
		csrfToken:        cfg.CSRFToken,
		onSessionExpired: cfg.OnSessionExpired,
		authPrefix:       authPrefix,
		log:              log,
	}
}

// Do performs one logical request, including its retries and any
// refresh-and-replay, and resolves it into the uniform envelope.
func (e *Executor) Do(ctx context.Context, req *Request) *Result {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Timeout <= 0 {
		req.Timeout = defaultTimeout
	}

	authEndpoint := e.isAuthEndpoint(req.Endpoint)

	// Auth endpoints skip the pre-flight check so refresh cannot recurse.
	if !authEndpoint && e.authManager != nil && !e.authManager.EnsureValid(ctx) {
		return e.sessionExpired(req)
	}

	bodyBytes, err := marshalBody(req.Body)
	if err != nil {
		return &Result{Success: false, Error: msgInvalidResponse}
	}

	maxAttempts := e.policy.MaxAttempts
	if req.SkipRetry {
		maxAttempts = 1
	}

	var last *Result
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, retryable := e.attempt(ctx, req, bodyBytes)

		if result.Status == http.StatusUnauthorized && !authEndpoint && e.authManager != nil {
			// One refresh, one replay. The replay's outcome is final and
			// does not count against the retry budget.
			if e.authManager.Refresh(ctx) {
				replay, _ := e.attempt(ctx, req, bodyBytes)
				return replay
			}
			return e.sessionExpired(req)
		}

		if !retryable {
			return result
		}

		last = result
		if attempt < maxAttempts {
			delay := e.policy.NextDelay(attempt)
			e.log.Debug().
				Str("endpoint", req.Endpoint).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("retrying request")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return last
			}
		}
	}

	return last
}

// attempt issues a single HTTP attempt under the request's timeout.
// The second return value reports whether the failure is transient.
func (e *Executor) attempt(ctx context.Context, req *Request, body []byte) (*Result, bool) {
	attemptCtx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, req.Method, e.buildURL(req), bytes.NewReader(body))
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, false
	}
	e.setHeaders(httpReq, req)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || attemptCtx.Err() == context.DeadlineExceeded {
			// Timeouts surface distinctly and stop the attempt loop.
			return &Result{Success: false, Error: msgTimeout}, false
		}
		return &Result{Success: false, Error: msgNetworkFailure}, true
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{Success: false, Error: msgNetworkFailure, Status: resp.StatusCode}, true
	}

	contentType := resp.Header.Get("Content-Type")
	if isJSONContent(contentType) && len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
		return &Result{Success: false, Error: msgInvalidResponse, Status: resp.StatusCode}, false
	}

	result := normalize(raw, contentType, resp.StatusCode)
	return result, retryableStatus(resp.StatusCode)
}

// Get performs a GET request.
func (e *Executor) Get(ctx context.Context, endpoint string, query url.Values) *Result {
	return e.Do(ctx, &Request{Endpoint: endpoint, Method: http.MethodGet, Query: query})
}

// Post performs a POST request with a JSON body.
func (e *Executor) Post(ctx context.Context, endpoint string, body interface{}) *Result {
	return e.Do(ctx, &Request{Endpoint: endpoint, Method: http.MethodPost, Body: body})
}

// Put performs a PUT request with a JSON body.
func (e *Executor) Put(ctx context.Context, endpoint string, body interface{}) *Result {
	return e.Do(ctx, &Request{Endpoint: endpoint, Method: http.MethodPut, Body: body})
}

// Patch performs a PATCH request with a JSON body.
func (e *Executor) Patch(ctx context.Context, endpoint string, body interface{}) *Result {
	return e.Do(ctx, &Request{Endpoint: endpoint, Method: http.MethodPatch, Body: body})
}

// Delete performs a DELETE request.
func (e *Executor) Delete(ctx context.Context, endpoint string) *Result {
	return e.Do(ctx, &Request{Endpoint: endpoint, Method: http.MethodDelete})
}

// buildURL joins the base URL, endpoint, and query parameters.
func (e *Executor) buildURL(req *Request) string {
	full := e.baseURL + req.Endpoint
	if len(req.Query) > 0 {
		full += "?" + req.Query.Encode()
	}
	return full
}

// setHeaders attaches content, auth, anti-forgery, and caller headers.
func (e *Executor) setHeaders(httpReq *http.Request, req *Request) {
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if e.authManager != nil {
		if token := e.authManager.Token(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if isStateChanging(req.Method) {
		httpReq.Header.Set("X-Requested-With", "XMLHttpRequest")
		if e.csrfToken != "" {
			httpReq.Header.Set("X-CSRF-Token", e.csrfToken)
		}
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
}

// sessionExpired resolves a request as an auth failure and fires the
// redirect-to-login side effect.
func (e *Executor) sessionExpired(req *Request) *Result {
	e.log.Warn().Str("endpoint", req.Endpoint).Msg("session expired")
	if e.onSessionExpired != nil {
		e.onSessionExpired()
	}
	return &Result{Success: false, Error: msgSessionExpired, Status: http.StatusUnauthorized}
}

// isAuthEndpoint reports whether the endpoint belongs to the auth flow.
func (e *Executor) isAuthEndpoint(endpoint string) bool {
	return strings.HasPrefix(endpoint, e.authPrefix)
}

// isStateChanging reports whether the method requires anti-forgery headers.
func isStateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// marshalBody serializes the request body once, so retries can replay it.
func marshalBody(body interface{}) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	return json.Marshal(body)
}
