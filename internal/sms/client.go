// Package sms sends text messages through the Twilio Messages API.
package sms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/teemow/bizgateway/internal/config"
	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/logging"
)

// ErrNotConfigured is returned by Send when Twilio credentials are missing.
var ErrNotConfigured = errors.New("SMS not configured")

const defaultBaseURL = "https://api.twilio.com"

// Result describes an accepted message.
type Result struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
	To     string `json:"to"`
}

// Sender sends a single text message.
type Sender interface {
	Send(ctx context.Context, to, body string) (*Result, error)
}

// Client wraps the Twilio REST client.
type Client struct {
	cfg        config.SMSConfig
	httpClient *http.Client
	metrics    *instrumentation.Metrics
	logger     *slog.Logger
}

// NewClient creates a client. A nil httpClient gets a 30 second timeout.
// Every request is sent to BaseURL, which defaults to the public API host.
func NewClient(cfg config.SMSConfig, httpClient *http.Client, metrics *instrumentation.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		metrics:    metrics,
		logger:     logging.WithBackend(logger, instrumentation.BackendSMS),
	}
}

// Configured reports whether credentials are present.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

// Send queues body for delivery to the E.164 number to.
func (c *Client) Send(ctx context.Context, to, body string) (res *Result, err error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(to) == "" {
		return nil, errors.New("recipient number is required")
	}

	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendSMS, instrumentation.OperationSend, "messages")
	start := time.Now()
	defer func() {
		c.metrics.RecordBackendOperation(ctx, instrumentation.BackendSMS, instrumentation.OperationSend,
			instrumentation.StatusFor(err), time.Since(start))
		instrumentation.EndSpan(span, err)
		c.logger.Debug("send sms",
			slog.String(logging.KeyRecipient, logging.RedactPhone(to)),
			slog.Duration(logging.KeyDuration, time.Since(start)),
			logging.Err(err))
	}()

	rest, err := c.restClient(ctx)
	if err != nil {
		return nil, err
	}

	params := &openapi.CreateMessageParams{}
	params.SetPathAccountSid(c.cfg.AccountSID)
	params.SetTo(to)
	params.SetFrom(c.cfg.FromNumber)
	params.SetBody(body)

	msg, err := rest.Api.CreateMessage(params)
	if err != nil {
		return nil, providerError(ctx, err)
	}

	out := &Result{
		SID:    deref(msg.Sid),
		Status: deref(msg.Status),
		To:     deref(msg.To),
	}
	if out.To == "" {
		out.To = to
	}
	return out, nil
}

// restClient builds a Twilio client whose requests carry ctx. The SDK has
// no context plumbing of its own, so one client is built per message.
func (c *Client) restClient(ctx context.Context) (*twilio.RestClient, error) {
	base, err := url.Parse(c.cfg.BaseURL)
	if err != nil || base.Host == "" {
		return nil, fmt.Errorf("invalid SMS base URL %q", c.cfg.BaseURL)
	}

	next := c.httpClient.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	tc := &twclient.Client{
		Credentials: twclient.NewCredentials(c.cfg.AccountSID, c.cfg.AuthToken),
		HTTPClient: &http.Client{
			Transport: &boundTransport{ctx: ctx, base: base, next: next},
			Timeout:   c.httpClient.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
	tc.SetAccountSid(c.cfg.AccountSID)

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{Client: tc})
	// BaseURL decides the host, so TWILIO_EDGE and TWILIO_REGION are ignored.
	rest.RequestHandler.Edge = ""
	rest.RequestHandler.Region = ""
	return rest, nil
}

// boundTransport attaches ctx to each request and points it at base.
type boundTransport struct {
	ctx  context.Context
	base *url.URL
	next http.RoundTripper
}

func (t *boundTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.WithContext(t.ctx)
	u := *req.URL
	u.Scheme = t.base.Scheme
	u.Host = t.base.Host
	u.Path = strings.TrimRight(t.base.Path, "/") + u.Path
	req.URL = &u
	req.Host = t.base.Host
	return t.next.RoundTrip(req)
}

func providerError(ctx context.Context, err error) error {
	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		return fmt.Errorf("SMS provider rejected message: %s (code %d, status %d)",
			restErr.Message, restErr.Code, restErr.Status)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("failed to reach SMS provider: %w", ctxErr)
	}
	return fmt.Errorf("failed to reach SMS provider: %w", err)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
