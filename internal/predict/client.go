// Package predict calls the external prediction services: fraud detection,
// supplier recommendation, sales forecast and procurement.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrNetwork is returned for any failed call: transport error, non-2xx
// status or an undecodable body.
var ErrNetwork = errors.New("prediction service unavailable")

// maxBodyBytes caps how much of a response is read
const maxBodyBytes = 1 << 20

// StatusError carries a non-2xx response
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// ClientConfig configures a Client
type ClientConfig struct {
	// BaseURL of the service, e.g. http://127.0.0.1:8005
	BaseURL string

	// Timeout bounds each HTTP attempt (default: 10s)
	Timeout time.Duration

	// Resilience patterns wrapped around every call
	Resilience ResilienceConfig

	// HTTPClient overrides the default transport
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks JSON to one prediction service
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	res        *resilience
	logger     *slog.Logger
}

// NewClient creates a client named name for logs and errors
func NewClient(name string, cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newServiceHTTPClient(cfg.Timeout)
	}
	resCfg := cfg.Resilience
	if resCfg.Logger == nil {
		resCfg.Logger = logger
	}

	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		res:        newResilience(name, resCfg),
		logger:     logger,
	}
}

// Name returns the service name
func (c *Client) Name() string {
	return c.name
}

// BaseURL returns the service base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Close releases resources held by the client
func (c *Client) Close() error {
	return c.res.close()
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	return c.call(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	return c.call(ctx, http.MethodPost, path, in, out)
}

func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", c.name, err)
		}
	}

	start := time.Now()
	body, err := c.res.execute(ctx, func(ctx context.Context) ([]byte, error) {
		return c.roundTrip(ctx, method, path, payload)
	})
	if err != nil {
		c.logger.Warn("prediction call failed",
			"service", c.name,
			"method", method,
			"path", path,
			"status", StatusCode(err),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err)
		return fmt.Errorf("%s: %s %s: %w: %w", c.name, method, path, ErrNetwork, err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Warn("undecodable prediction response", "service", c.name, "path", path, "error", err)
		return fmt.Errorf("%s: %s %s: %w: decode response: %w", c.name, method, path, ErrNetwork, err)
	}

	c.logger.Debug("prediction call",
		"service", c.name,
		"method", method,
		"path", path,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}
