package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	gotrue "github.com/supabase-community/gotrue-go"
)

// ErrUnavailable is returned when the auth API cannot be reached.
var ErrUnavailable = errors.New("supabase: auth API unavailable")

// APIError carries the backend's own error message verbatim.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("supabase: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("supabase: %d: %s", e.Status, e.Message)
}

// Config configures the auth API client.
type Config struct {
	URL       string
	AnonKey   string
	JWTSecret string
	Timeout   time.Duration
}

// AuthClient talks to the backend service's auth endpoints (/auth/v1)
// through the GoTrue client.
type AuthClient struct {
	api        gotrue.Client
	httpClient http.Client
	jwtSecret  string
}

// NewAuthClient builds an auth API client.
func NewAuthClient(cfg Config) *AuthClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	baseURL := strings.TrimSuffix(cfg.URL, "/") + "/auth/v1"
	return &AuthClient{
		api:        gotrue.New("", cfg.AnonKey).WithCustomGoTrueURL(baseURL),
		httpClient: http.Client{Timeout: timeout, Transport: transport},
		jwtSecret:  cfg.JWTSecret,
	}
}

// call returns a GoTrue client bound to ctx. query is added to every request
// it sends; bearer, when set, authenticates as that user.
func (c *AuthClient) call(ctx context.Context, bearer string, query url.Values) gotrue.Client {
	httpClient := c.httpClient
	httpClient.Transport = &callTransport{ctx: ctx, query: query, base: c.httpClient.Transport}
	api := c.api.WithClient(httpClient)
	if bearer != "" {
		api = api.WithToken(bearer)
	}
	return api
}

// callTransport carries a caller's context and extra query parameters into
// requests built by the GoTrue client.
type callTransport struct {
	ctx   context.Context
	query url.Values
	base  http.RoundTripper
}

func (t *callTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(t.ctx)
	if len(t.query) > 0 {
		q := out.URL.Query()
		for key, values := range t.query {
			q[key] = values
		}
		out.URL.RawQuery = q.Encode()
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}

var statusErrPattern = regexp.MustCompile(`(?s)^response status code (\d+)(?:: (.*))?$`)

// wrapError turns a GoTrue client error into ErrUnavailable or an APIError.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if m := statusErrPattern.FindStringSubmatch(err.Error()); m != nil {
		status, _ := strconv.Atoi(m[1])
		return decodeError(status, []byte(m[2]))
	}
	return fmt.Errorf("supabase: %s: %w", op, err)
}

// decodeError understands the handful of error shapes the auth API emits.
func decodeError(status int, body []byte) *APIError {
	var payload struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		ErrorCode        string `json:"error_code"`
	}
	_ = json.Unmarshal(body, &payload)

	apiErr := &APIError{Status: status, Code: payload.ErrorCode}
	for _, candidate := range []string{payload.Msg, payload.ErrorDescription, payload.Message, payload.Error} {
		if candidate != "" {
			apiErr.Message = candidate
			break
		}
	}
	if apiErr.Code == "" && payload.Error != "" && payload.Error != apiErr.Message {
		apiErr.Code = payload.Error
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	return apiErr
}
