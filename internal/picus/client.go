package picus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const (
	authPath   = "/v1/auth/token"
	agentsPath = "/v1/agents"

	// DefaultTimeout bounds every request to the Picus API.
	DefaultTimeout = 30 * time.Second
)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.SetTimeout(d)
	}
}

// WithHTTPTransport sets a custom base transport, e.g. for proxies or tests.
func WithHTTPTransport(t http.RoundTripper) ClientOption {
	return func(c *Client) {
		c.http.SetTransport(t)
	}
}

// Client talks to the Picus Security API: token exchange and the agents
// diagnostic endpoint. One request per call, no retries; failures surface
// immediately to the caller.
type Client struct {
	baseURL string
	http    *resty.Client
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(DefaultTimeout).
			SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type authRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	Token    string `json:"token"`
	ExpireAt int64  `json:"expire_at"`
}

type agentsResponse struct {
	Data []json.RawMessage `json:"data"`
}

// Authenticate exchanges a refresh token for an access token. On success it
// returns the access token and the expiry reported by the endpoint; a zero
// expiry means the endpoint did not report one.
func (c *Client) Authenticate(ctx context.Context, refreshToken string) (accessToken string, expireAt int64, err error) {
	reqID := uuid.NewString()
	slog.DebugContext(ctx, "requesting access token", "url", c.baseURL+authPath, "request_id", reqID)

	result := &authResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", reqID).
		SetBody(authRequest{RefreshToken: refreshToken}).
		SetResult(result).
		ForceContentType("application/json").
		Post(authPath)
	if err != nil {
		return "", 0, classifyTransportError(err)
	}

	if !resp.IsSuccess() {
		return "", 0, &AuthError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	if result.Token == "" {
		return "", 0, ErrNoAccessTokenReturned
	}

	slog.DebugContext(ctx, "access token received", "request_id", reqID, "expire_at", result.ExpireAt)
	return result.Token, result.ExpireAt, nil
}

// Probe issues one authenticated read against the agents endpoint and
// returns the number of agents visible to the token.
func (c *Client) Probe(ctx context.Context, accessToken string) (int, error) {
	reqID := uuid.NewString()
	slog.DebugContext(ctx, "probing API", "url", c.baseURL+agentsPath, "request_id", reqID)

	result := &agentsResponse{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", reqID).
		SetAuthToken(accessToken).
		SetResult(result).
		ForceContentType("application/json").
		Get(agentsPath)
	if err != nil {
		return 0, classifyTransportError(err)
	}

	switch {
	case resp.IsSuccess():
		return len(result.Data), nil
	case resp.StatusCode() == http.StatusUnauthorized:
		return 0, ErrTokenExpiredOrInvalid
	case resp.StatusCode() == http.StatusForbidden:
		return 0, ErrInsufficientPermission
	default:
		return 0, &ProbeError{StatusCode: resp.StatusCode()}
	}
}

// classifyTransportError maps transport-level failures onto the lifecycle
// error taxonomy: deadline overruns become ErrTimeout, everything else that
// never produced a response becomes ErrConnectionFailed.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
}
