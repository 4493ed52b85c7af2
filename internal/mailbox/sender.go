package mailbox

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/teemow/bizgateway/internal/config"
	"github.com/teemow/bizgateway/internal/instrumentation"
)

// Mailer sends a plain text message to a single recipient.
type Mailer interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// Sender delivers mail through an SMTP relay.
type Sender struct {
	cfg       config.SMTPConfig
	tlsConfig *tls.Config
	metrics   *instrumentation.Metrics
	now       func() time.Time
}

// NewSender creates a Sender for the configured relay.
func NewSender(cfg config.SMTPConfig, metrics *instrumentation.Metrics) *Sender {
	return &Sender{
		cfg:       cfg,
		tlsConfig: &tls.Config{ServerName: cfg.Host, MinVersion: tls.VersionTLS12},
		metrics:   metrics,
		now:       time.Now,
	}
}

// Configured reports whether a relay host and sender address are set.
func (s *Sender) Configured() bool {
	return s.cfg.Host != "" && s.cfg.From != ""
}

// SendMail implements Mailer.
func (s *Sender) SendMail(ctx context.Context, to, subject, body string) (err error) {
	if !s.Configured() {
		return ErrNotConfigured
	}

	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendSMTP, instrumentation.OperationSend, "")
	start := time.Now()
	defer func() {
		s.metrics.RecordBackendOperation(ctx, instrumentation.BackendSMTP, instrumentation.OperationSend,
			instrumentation.StatusFor(err), time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	from, rcpt, err := s.envelope(to)
	if err != nil {
		return err
	}
	msg, err := s.compose(from, rcpt, subject, body)
	if err != nil {
		return err
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	c, err := s.dial(ctx)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer func() {
		stop()
		_ = c.Close()
	}()

	if s.cfg.User != "" {
		if err := c.Auth(sasl.NewPlainClient("", s.cfg.User, s.cfg.Password)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(from.Address, nil); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(rcpt.Address); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	return c.Quit()
}

func (s *Sender) dial(ctx context.Context) (*smtp.Client, error) {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))

	var (
		conn net.Conn
		err  error
	)
	if s.cfg.TLS == config.TLSImplicit {
		conn, err = (&tls.Dialer{Config: s.tlsConfig}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = (&net.Dialer{}).DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("smtp greeting: %w", err)
	}
	if s.cfg.TLS == config.TLSStartTLS {
		if err := c.StartTLS(s.tlsConfig); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("smtp STARTTLS: %w", err)
		}
	}
	return c, nil
}

func (s *Sender) envelope(to string) (from, rcpt *mail.Address, err error) {
	from, err = mail.ParseAddress(s.cfg.From)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid sender address: %w", err)
	}
	rcpt, err = mail.ParseAddress(to)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid recipient address: %w", err)
	}
	return from, rcpt, nil
}

func (s *Sender) compose(from, rcpt *mail.Address, subject, body string) ([]byte, error) {
	var h mail.Header
	h.SetDate(s.now())
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{rcpt})
	h.SetSubject(subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("failed to generate message id: %w", err)
	}
	h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})

	var buf bytes.Buffer
	w, err := mail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("failed to compose message: %w", err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
