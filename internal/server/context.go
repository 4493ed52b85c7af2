package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/teemow/bizgateway/internal/calendar"
	"github.com/teemow/bizgateway/internal/datastore"
	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/mailbox"
	"github.com/teemow/bizgateway/internal/sms"
	"github.com/teemow/bizgateway/internal/workflow"
)

// ServerContext holds the downstream connectors shared by all tools.
// Connectors that were not supplied are nil; tools report them as not
// configured.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	mailbox  mailbox.Fetcher
	mailer   mailbox.Mailer
	calendar calendar.Source
	business datastore.Store
	admin    datastore.Store
	workflow workflow.Invoker
	sms      sms.Sender

	location *time.Location
	now      func() time.Time

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger

	mu       sync.RWMutex
	shutdown bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithMailbox sets the IMAP reader.
func WithMailbox(f mailbox.Fetcher) Option { return func(sc *ServerContext) { sc.mailbox = f } }

// WithMailer sets the outbound mail sender.
func WithMailer(m mailbox.Mailer) Option { return func(sc *ServerContext) { sc.mailer = m } }

// WithCalendar sets the calendar feed.
func WithCalendar(c calendar.Source) Option { return func(sc *ServerContext) { sc.calendar = c } }

// WithBusinessStore sets the store holding property listings.
func WithBusinessStore(s datastore.Store) Option { return func(sc *ServerContext) { sc.business = s } }

// WithAdminStore sets the SDA admin store.
func WithAdminStore(s datastore.Store) Option { return func(sc *ServerContext) { sc.admin = s } }

// WithWorkflow sets the edge function client.
func WithWorkflow(w workflow.Invoker) Option { return func(sc *ServerContext) { sc.workflow = w } }

// WithSMS sets the SMS sender.
func WithSMS(s sms.Sender) Option { return func(sc *ServerContext) { sc.sms = s } }

// WithLocation sets the zone used for "today" in tool results.
func WithLocation(loc *time.Location) Option { return func(sc *ServerContext) { sc.location = loc } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(sc *ServerContext) { sc.now = now } }

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(sc *ServerContext) { sc.metrics = m }
}

// WithAuditLogger sets the tool audit logger.
func WithAuditLogger(a *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) { sc.auditLogger = a }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(sc *ServerContext) { sc.logger = l } }

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, opts ...Option) (*ServerContext, error) {
	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:      shutdownCtx,
		cancel:   cancel,
		location: time.Local,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Mailbox returns the IMAP reader.
func (sc *ServerContext) Mailbox() mailbox.Fetcher { return sc.mailbox }

// Mailer returns the outbound mail sender.
func (sc *ServerContext) Mailer() mailbox.Mailer { return sc.mailer }

// Calendar returns the calendar feed.
func (sc *ServerContext) Calendar() calendar.Source { return sc.calendar }

// BusinessStore returns the property listing store.
func (sc *ServerContext) BusinessStore() datastore.Store { return sc.business }

// AdminStore returns the SDA admin store.
func (sc *ServerContext) AdminStore() datastore.Store { return sc.admin }

// Workflow returns the edge function client.
func (sc *ServerContext) Workflow() workflow.Invoker { return sc.workflow }

// SMS returns the SMS sender.
func (sc *ServerContext) SMS() sms.Sender { return sc.sms }

// Now returns the current time in the configured location.
func (sc *ServerContext) Now() time.Time {
	return sc.now().In(sc.location)
}

// Location returns the zone used for dates in tool results.
func (sc *ServerContext) Location() *time.Location {
	return sc.location
}

// Metrics returns the metrics recorder, possibly nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, possibly nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// Logger returns the logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
