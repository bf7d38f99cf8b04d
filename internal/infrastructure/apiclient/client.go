package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"rbac-console/internal/domain"
	"rbac-console/internal/ports"
)

const (
	DefaultBaseURL = "http://localhost:5002"
	DefaultTimeout = 10 * time.Second

	maxBodyBytes = 4 << 20
)

// A 401 from these endpoints means rejected credentials, not an expired session.
var credentialPaths = map[string]bool{
	"/auth/login":       true,
	"/auth/admin/login": true,
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type Option func(*Client)

// WithHTTPClient replaces the X-Ray instrumented default client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithUnauthorizedHandler registers fn for 401 responses to requests that carried a bearer token.
func WithUnauthorizedHandler(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// Client is the single path from the console to the IAM backend.
type Client struct {
	baseURL        string
	timeout        time.Duration
	http           *http.Client
	tokens         ports.TokenSource
	logger         ports.Logger
	metrics        *Metrics
	onUnauthorized func(ctx context.Context)
}

func New(cfg Config, tokens ports.TokenSource, logger ports.Logger, opts ...Option) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		http:    xray.Client(&http.Client{Timeout: cfg.Timeout}),
		tokens:  tokens,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildURL joins the configured base with an endpoint path.
func (c *Client) BuildURL(req ports.Request) string {
	path := req.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	return u
}

func (c *Client) bearer() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *Client) newRequest(ctx context.Context, req ports.Request) (*http.Request, string, error) {
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s %s body: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(raw)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.BuildURL(req), body)
	if err != nil {
		return nil, "", err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if httpReq.Header.Get("X-Request-ID") == "" {
		httpReq.Header.Set("X-Request-ID", uuid.NewString())
	}
	token := c.bearer()
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, token, nil
}

func (c *Client) Do(ctx context.Context, req ports.Request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, token, err := c.newRequest(ctx, req)
	if err != nil {
		return err
	}
	started := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.observe(req.Method, outcomeTransport, time.Since(started))
		c.logger.Warn(ctx, "backend request failed", "method", req.Method, "path", req.Path, "error", err)
		return fmt.Errorf("%w: %s %s: %v", domain.ErrTransport, req.Method, req.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.metrics.observe(req.Method, outcomeTransport, time.Since(started))
		return fmt.Errorf("%w: read %s %s: %v", domain.ErrTransport, req.Method, req.Path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := HandleError(resp.StatusCode, body)
		c.metrics.observe(req.Method, string(apiErr.Kind), time.Since(started))
		c.logger.Debug(ctx, "backend returned error", "method", req.Method, "path", req.Path, "status", resp.StatusCode, "kind", apiErr.Kind)
		if apiErr.Kind == domain.KindAuth && token != "" && c.onUnauthorized != nil && !credentialPaths[req.Path] {
			c.onUnauthorized(context.WithoutCancel(ctx))
		}
		return apiErr
	}
	c.metrics.observe(req.Method, outcomeOK, time.Since(started))
	if err := decodeEnvelope(body, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", req.Method, req.Path, err)
	}
	return nil
}

// decodeEnvelope unwraps {data, message, message_code}. Bodies without a data
// member are decoded as-is.
func decodeEnvelope(body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(body, &probe); err == nil {
		if data, ok := probe["data"]; ok {
			if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
				return nil
			}
			return json.Unmarshal(data, out)
		}
	}
	return json.Unmarshal(body, out)
}
