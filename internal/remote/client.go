// Package remote is the client SDK of the Remote Data Service
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gbroads/roadstatus/internal/apperrors"
	"go.uber.org/zap"
)

const (
	apiPrefix       = "/api/v1"
	defaultTimeout  = 10 * time.Second
	initialBackoff  = 200 * time.Millisecond
	maxBackoff      = 2 * time.Second
	maxResponseSize = 4 << 20
)

// Options configures a Client
type Options struct {
	// BaseURL is the service origin, e.g. "https://api.roads.example.pk"
	BaseURL string
	// APIKey is sent as X-API-Key on every request
	APIKey string
	// Timeout bounds a single attempt
	Timeout time.Duration
	// MaxRetries is the number of extra attempts for GET and PATCH requests
	MaxRetries int
	// HTTPClient is shared between clients; redirects are never followed
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client talks to the Remote Data Service on behalf of one signed-in browser
type Client struct {
	Auth    *Auth
	Storage *Storage

	baseURL    string
	apiKey     string
	http       *http.Client
	timeout    time.Duration
	maxRetries int
	logger     *zap.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a client without a session
func New(opts Options) *Client {
	hc := http.Client{}
	if opts.HTTPClient != nil {
		hc = *opts.HTTPClient
	}
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		http:       &hc,
		timeout:    timeout,
		maxRetries: maxRetries,
		logger:     logger,
		sleep:      sleepContext,
	}
	c.Auth = &Auth{client: c}
	c.Storage = &Storage{client: c}
	return c
}

// request is one call to the service
type request struct {
	method string
	// path is relative to /api/v1 and already escaped
	path  string
	query url.Values
	// body is JSON-encoded when set
	body any
	// raw is sent as is with contentType when set
	raw         []byte
	contentType string
	// authorized requests carry the access token and refresh it once on 401
	authorized bool
}

// response is a fully read reply
type response struct {
	status int
	header http.Header
	body   []byte
}

// do sends req and decodes a 2xx JSON reply into dest
func (c *Client) do(ctx context.Context, req request, dest any) error {
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}

	if resp.status < 200 || resp.status >= 300 {
		return resp.err()
	}
	if dest == nil || len(resp.body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, dest); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// roundTrip sends req and, for authorized requests, refreshes an expired session once
func (c *Client) roundTrip(ctx context.Context, req request) (*response, error) {
	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}

	if resp.status == http.StatusUnauthorized && req.authorized && c.Auth.canRefresh() {
		if err := c.Auth.Refresh(ctx); err != nil {
			return nil, err
		}
		return c.send(ctx, req)
	}
	return resp, nil
}

// send performs req, retrying idempotent requests on network errors, 429 and 5xx
func (c *Client) send(ctx context.Context, req request) (*response, error) {
	payload, contentType, err := req.encode()
	if err != nil {
		return nil, err
	}

	attempts := 1
	if isIdempotent(req.method) {
		attempts += c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, backoff(attempt-1)); err != nil {
				return nil, contextError(err)
			}
			c.logger.Debug("retrying request",
				zap.String("method", req.method),
				zap.String("path", req.path),
				zap.Int("attempt", attempt+1),
				zap.Error(lastErr),
			)
		}

		resp, err := c.attempt(ctx, req, payload, contentType)
		if err != nil {
			if ctx.Err() != nil {
				return nil, contextError(ctx.Err())
			}
			lastErr = err
			continue
		}
		if attempt < attempts-1 && shouldRetry(resp.status) {
			lastErr = resp.err()
			continue
		}
		return resp, nil
	}

	return nil, lastErr
}

// attempt performs one round trip bounded by the per-attempt timeout
func (c *Client) attempt(ctx context.Context, req request, payload []byte, contentType string) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.baseURL + apiPrefix + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("X-API-Key", c.apiKey)
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.authorized {
		if token := c.Auth.accessToken(); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, transportError(err)
	}

	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

func (r request) encode() ([]byte, string, error) {
	if r.raw != nil {
		return r.raw, r.contentType, nil
	}
	if r.body == nil {
		return nil, "", nil
	}
	payload, err := json.Marshal(r.body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode request: %w", err)
	}
	return payload, "application/json", nil
}

// err converts an error reply into a classified error
func (r *response) err() error {
	var body struct {
		Error string         `json:"error"`
		Code  apperrors.Kind `json:"code"`
	}
	_ = json.Unmarshal(r.body, &body)

	kind := body.Code
	if kind == "" {
		kind = kindForStatus(r.status)
	}
	message := body.Error
	if message == "" {
		message = strings.ToLower(http.StatusText(r.status))
	}
	return apperrors.New(kind, message)
}

func kindForStatus(status int) apperrors.Kind {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return apperrors.KindValidation
	case http.StatusUnauthorized:
		return apperrors.KindAuthRequired
	case http.StatusForbidden:
		return apperrors.KindForbidden
	case http.StatusNotFound:
		return apperrors.KindNotFound
	case http.StatusConflict:
		return apperrors.KindConflict
	case http.StatusTooManyRequests:
		return apperrors.KindRateLimited
	case http.StatusGatewayTimeout:
		return apperrors.KindTimeout
	default:
		return apperrors.KindInternal
	}
}

func isIdempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodPatch
}

func shouldRetry(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// backoff doubles from initialBackoff up to maxBackoff
func backoff(retry int) time.Duration {
	delay := initialBackoff
	for i := 0; i < retry; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.Wrap(apperrors.KindTimeout, "the service did not respond in time", err)
	}
	return fmt.Errorf("request failed: %w", err)
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.KindTimeout, "the service did not respond in time", err)
	}
	return err
}
