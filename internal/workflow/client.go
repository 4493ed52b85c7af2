// Package workflow invokes hosted edge functions, such as the NDIA payment
// processor of the SDA admin project.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/logging"
)

// ErrNotConfigured is returned by Invoke when no base URL is set.
var ErrNotConfigured = errors.New("workflow endpoint not configured")

const maxResponseBody = 4 << 20

// Response is the outcome of an invocation. Data holds the decoded JSON
// body, or the raw text when the body is not JSON.
type Response struct {
	StatusCode int
	OK         bool
	Data       any
}

// Invoker calls a named function.
type Invoker interface {
	Invoke(ctx context.Context, function string, payload any) (*Response, error)
}

// Client posts JSON payloads to {baseURL}/{function}.
type Client struct {
	baseURL    string
	key        string
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// NewClient creates a client. key is sent as a bearer token.
func NewClient(baseURL, key string, httpClient *http.Client, metrics *instrumentation.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: httpClient,
		metrics:    metrics,
		logger:     logging.WithBackend(logger, instrumentation.BackendWorkflow),
	}
}

// Invoke posts payload to function. A non-2xx status is not an error:
// it is reported through Response.OK with the body in Data.
func (c *Client) Invoke(ctx context.Context, function string, payload any) (resp *Response, err error) {
	if c.baseURL == "" {
		return nil, ErrNotConfigured
	}

	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendWorkflow, instrumentation.OperationInvoke, function)
	start := time.Now()
	defer func() {
		status := instrumentation.StatusFor(err)
		if err == nil && !resp.OK {
			status = instrumentation.StatusSoftError
		}
		c.metrics.RecordBackendOperation(ctx, instrumentation.BackendWorkflow, instrumentation.OperationInvoke, status, time.Since(start))
		instrumentation.EndSpan(span, err)
		c.logger.Debug("invoke",
			slog.String("function", function),
			logging.Status(status),
			slog.Duration(logging.KeyDuration, time.Since(start)),
			logging.Err(err))
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+url.PathEscape(function), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to invoke %s: %w", function, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", function, err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		OK:         httpResp.StatusCode >= 200 && httpResp.StatusCode <= 299,
		Data:       decodeBody(raw),
	}, nil
}

func decodeBody(raw []byte) any {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
