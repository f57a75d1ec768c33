package appcenter

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/http/httpproxy"
	"golang.org/x/time/rate"

	"git.home.luguber.info/inful/mobilebuild/internal/config"
	"git.home.luguber.info/inful/mobilebuild/internal/foundation/errors"
	"git.home.luguber.info/inful/mobilebuild/internal/logfields"
	"git.home.luguber.info/inful/mobilebuild/internal/metrics"
	"git.home.luguber.info/inful/mobilebuild/internal/version"
)

const (
	tokenHeader        = "X-API-Token"
	defaultHTTPTimeout = 60 * time.Second
	errorBodyLimit     = 512
)

// Client performs owner-scoped calls against the remote API.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
	owner      config.Owner
	limiter    *rate.Limiter
	recorder   metrics.Recorder
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (tests pass the httptest client).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRateLimit bounds outgoing requests; rps <= 0 disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) {
		if r != nil {
			c.recorder = r
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client bound to token and owner.
func New(apiURL, token string, owner config.Owner, opts ...Option) *Client {
	c := &Client{
		httpClient: newHTTPClient(),
		apiURL:     strings.TrimSuffix(apiURL, "/"),
		token:      token,
		owner:      owner,
		recorder:   metrics.NoopRecorder{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig creates a client from the remote and rate limit settings of cfg.
func NewFromConfig(cfg *config.Config, opts ...Option) *Client {
	base := []Option{WithRateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)}
	return New(cfg.APIURL, cfg.APIToken, cfg.Owner, append(base, opts...)...)
}

func newHTTPClient() *http.Client {
	proxy := httpproxy.FromEnvironment().ProxyFunc()
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		return proxy(req.URL)
	}
	return &http.Client{Timeout: defaultHTTPTimeout, Transport: transport}
}

// Owner returns the identity this client is bound to.
func (c *Client) Owner() config.Owner { return c.owner }

// expandPath substitutes :name segments in template with path-escaped params.
func expandPath(template string, params map[string]string) (string, error) {
	segments := strings.Split(template, "/")
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") {
			continue
		}
		name := seg[1:]
		value, ok := params[name]
		if !ok || value == "" {
			return "", errors.InternalError("missing path parameter").
				WithContext("template", template).
				WithContext("param", name).
				Build()
		}
		segments[i] = url.PathEscape(value)
	}
	return strings.Join(segments, "/"), nil
}

// newRequest builds a request for the templated endpoint with an optional JSON body.
func (c *Client) newRequest(ctx context.Context, method, template string, params map[string]string, body any) (*http.Request, error) {
	endpoint, err := expandPath(template, params)
	if err != nil {
		return nil, err
	}
	target := c.apiURL + endpoint

	reader := io.Reader(http.NoBody)
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.InternalError("failed to marshal request body").
				WithCause(err).
				WithContext("url", target).
				Build()
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, errors.InternalError("failed to create request").
			WithCause(err).
			WithContext("method", method).
			WithContext("url", target).
			Build()
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(tokenHeader, c.token)
	req.Header.Set("User-Agent", "mobilebuild/"+version.Version)
	return req, nil
}

// do executes req and decodes a JSON response into result when result is non-nil.
func (c *Client) do(req *http.Request, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return err
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recorder.ObserveAPIRequest(req.Method, 0, time.Since(start))
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.NetworkError(fmt.Sprintf("fail to call %s (%s)", req.URL.String(), req.Method)).
			WithCause(err).
			WithContext("method", req.Method).
			WithContext("url", req.URL.String()).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()
	c.recorder.ObserveAPIRequest(req.Method, resp.StatusCode, time.Since(start))

	c.logger.Debug("Remote call",
		logfields.Method(req.Method),
		logfields.URL(req.URL.String()),
		slog.Int("code", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 400 {
		return remoteError(req, resp)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.RemoteError("failed to decode response").
			WithCause(err).
			WithContext("method", req.Method).
			WithContext("url", req.URL.String()).
			Build()
	}
	return nil
}

// call is newRequest followed by do.
func (c *Client) call(ctx context.Context, method, template string, params map[string]string, body, result any) error {
	req, err := c.newRequest(ctx, method, template, params, body)
	if err != nil {
		return err
	}
	return c.do(req, result)
}

type remoteErrorBody struct {
	Message string `json:"message"`
	Code    any    `json:"code"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func remoteError(req *http.Request, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	message := strings.TrimSpace(strings.ReplaceAll(string(raw), "\n", " "))

	var body remoteErrorBody
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Message != "":
			message = body.Message
		case body.Error != nil && body.Error.Message != "":
			message = body.Error.Message
		}
	}

	msg := fmt.Sprintf("fail to call %s (%s), response code [%d], message [%s]",
		req.URL.String(), req.Method, resp.StatusCode, message)

	var builder *errors.ErrorBuilder
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		builder = errors.AuthError(msg)
	case http.StatusNotFound:
		builder = errors.NewError(errors.CategoryNotFound, msg)
	case http.StatusTooManyRequests:
		builder = errors.RemoteError(msg).RateLimit()
	default:
		builder = errors.RemoteError(msg)
	}

	return builder.
		WithResponse(req.Method, req.URL.String(), resp.StatusCode).
		WithContext("message", message).
		Build()
}
