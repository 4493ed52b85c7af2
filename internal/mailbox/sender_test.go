package mailbox

import (
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/bizgateway/internal/config"
)

type received struct {
	from string
	to   []string
	data string
}

type smtpBackend struct {
	mu       sync.Mutex
	user     string
	password string
	messages []received
}

func (b *smtpBackend) Login(_ *smtp.ConnectionState, username, password string) (smtp.Session, error) {
	if username != b.user || password != b.password {
		return nil, errors.New("invalid credentials")
	}
	return &smtpSession{backend: b}, nil
}

func (b *smtpBackend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	return nil, smtp.ErrAuthRequired
}

type smtpSession struct {
	backend *smtpBackend
	current received
}

func (s *smtpSession) Reset()        { s.current = received{} }
func (s *smtpSession) Logout() error { return nil }

func (s *smtpSession) Mail(from string, _ smtp.MailOptions) error {
	s.current.from = from
	return nil
}

func (s *smtpSession) Rcpt(to string) error {
	s.current.to = append(s.current.to, to)
	return nil
}

func (s *smtpSession) Data(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.current.data = string(b)
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, s.current)
	s.backend.mu.Unlock()
	return nil
}

func startSMTPServer(t *testing.T, be *smtpBackend) (string, int) {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	go func() { _ = srv.Serve(l) }()
	t.Cleanup(func() { _ = srv.Close() })

	host, portStr, err := net.SplitHostPort(l.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

func TestSender_SendMail(t *testing.T) {
	be := &smtpBackend{user: "office", password: "secret"}
	host, port := startSMTPServer(t, be)

	s := NewSender(config.SMTPConfig{
		Host:     host,
		Port:     port,
		User:     "office",
		Password: "secret",
		From:     "Office <office@example.com>",
		TLS:      config.TLSNone,
		Timeout:  5 * time.Second,
	}, nil)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

	err := s.SendMail(context.Background(), "tenant@example.com", "Rent reminder", "Your rent is due.")
	require.NoError(t, err)

	be.mu.Lock()
	defer be.mu.Unlock()
	require.Len(t, be.messages, 1)
	msg := be.messages[0]
	assert.Equal(t, "office@example.com", msg.from)
	assert.Contains(t, msg.data, "<office@example.com>")
	assert.Equal(t, []string{"tenant@example.com"}, msg.to)
	assert.Contains(t, msg.data, "Subject: Rent reminder")
	assert.Contains(t, msg.data, "Message-Id:")
	assert.Contains(t, msg.data, "Content-Type: text/plain")
	assert.Contains(t, msg.data, "Your rent is due.")
}

func TestSender_AuthFailure(t *testing.T) {
	be := &smtpBackend{user: "office", password: "secret"}
	host, port := startSMTPServer(t, be)

	s := NewSender(config.SMTPConfig{
		Host: host, Port: port, User: "office", Password: "wrong",
		From: "office@example.com", TLS: config.TLSNone,
	}, nil)

	err := s.SendMail(context.Background(), "tenant@example.com", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp auth")
	assert.Empty(t, be.messages)
}

func TestSender_NotConfigured(t *testing.T) {
	s := NewSender(config.SMTPConfig{}, nil)
	err := s.SendMail(context.Background(), "a@example.com", "s", "b")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSender_InvalidRecipient(t *testing.T) {
	s := NewSender(config.SMTPConfig{Host: "127.0.0.1", Port: 1, From: "office@example.com", TLS: config.TLSNone}, nil)
	err := s.SendMail(context.Background(), "not an address", "s", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
}
