package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/bizgateway/internal/logging"
)

var (
	// ErrSessionActive is returned by Acquire while another session holds the slot.
	ErrSessionActive = errors.New("session already active")
	// ErrNoSession is returned when a message arrives without a live session.
	ErrNoSession = errors.New("no active session")
)

const sessionQueueSize = 64

// sseEvent is one server-sent event.
type sseEvent struct {
	name string
	data []byte
}

// Session is the single live streaming connection. It implements the
// mcp-go ClientSession interface so the protocol server can address it.
type Session struct {
	id        string
	createdAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	events        chan sseEvent
	notifications chan mcp.JSONRPCNotification
	initialized   atomic.Bool

	stopOnce sync.Once
}

func newSession(parent context.Context) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:            uuid.NewString(),
		createdAt:     time.Now(),
		ctx:           ctx,
		cancel:        cancel,
		events:        make(chan sseEvent, sessionQueueSize),
		notifications: make(chan mcp.JSONRPCNotification, sessionQueueSize),
	}
}

// SessionID implements mcpserver.ClientSession.
func (s *Session) SessionID() string { return s.id }

// Initialize implements mcpserver.ClientSession.
func (s *Session) Initialize() { s.initialized.Store(true) }

// Initialized implements mcpserver.ClientSession.
func (s *Session) Initialized() bool { return s.initialized.Load() }

// NotificationChannel implements mcpserver.ClientSession.
func (s *Session) NotificationChannel() chan<- mcp.JSONRPCNotification { return s.notifications }

// Context is cancelled when the session stops.
func (s *Session) Context() context.Context { return s.ctx }

// Done is closed when the session stops.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Stop ends the session. Safe to call from any goroutine, any number of times.
func (s *Session) Stop() {
	s.stopOnce.Do(s.cancel)
}

// Send queues a JSON-RPC message for delivery as a "message" event. It
// returns false when the session has stopped.
func (s *Session) Send(msg any) bool {
	if s.ctx.Err() != nil {
		return false
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	select {
	case <-s.ctx.Done():
		return false
	case s.events <- sseEvent{name: "message", data: data}:
		return true
	}
}

// SessionSlot admits at most one live session.
type SessionSlot struct {
	mu      sync.Mutex
	current *Session
	parent  context.Context
	logger  *slog.Logger
}

// NewSessionSlot creates an empty slot. Sessions are cancelled when parent is.
func NewSessionSlot(parent context.Context, logger *slog.Logger) *SessionSlot {
	if parent == nil {
		parent = context.Background()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionSlot{parent: parent, logger: logger}
}

// Acquire opens a new session, or fails with ErrSessionActive.
func (m *SessionSlot) Acquire() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil {
		return nil, ErrSessionActive
	}
	s := newSession(m.parent)
	m.current = s
	logging.WithSession(m.logger, s.id).Info("session opened")
	return s, nil
}

// Release stops s and frees the slot if s still holds it.
func (m *SessionSlot) Release(s *Session) {
	s.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == s {
		m.current = nil
		logging.WithSession(m.logger, s.id).Info("session closed",
			slog.Duration(logging.KeyDuration, time.Since(s.createdAt)))
	}
}

// Current returns the live session, or ErrNoSession.
func (m *SessionSlot) Current() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, ErrNoSession
	}
	return m.current, nil
}

// Active reports whether a session holds the slot.
func (m *SessionSlot) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current != nil
}

// Stop ends the live session, if any, for server shutdown.
func (m *SessionSlot) Stop() {
	m.mu.Lock()
	s := m.current
	m.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}
