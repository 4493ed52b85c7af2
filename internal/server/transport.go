package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/logging"
)

const (
	// DefaultKeepAliveInterval is the spacing of ": ping" comments on the stream.
	DefaultKeepAliveInterval = 15 * time.Second

	// MessagesPath is where clients post JSON-RPC messages.
	MessagesPath = "/mcp/messages"
	// SSEPath opens the event stream.
	SSEPath = "/mcp/sse"

	maxMessageSize = 4 << 20
)

// MessageHandler answers one JSON-RPC message. A nil reply means nothing
// is sent back, as for notifications.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message json.RawMessage) mcp.JSONRPCMessage
}

// SessionRegistrar tracks protocol sessions, satisfied by *mcpserver.MCPServer.
type SessionRegistrar interface {
	RegisterSession(ctx context.Context, session mcpserver.ClientSession) error
	UnregisterSession(ctx context.Context, sessionID string)
	WithContext(ctx context.Context, session mcpserver.ClientSession) context.Context
}

// TransportConfig configures an SSETransport.
type TransportConfig struct {
	Handler           MessageHandler
	Sessions          SessionRegistrar
	Slot              *SessionSlot
	KeepAliveInterval time.Duration
	Metrics           *instrumentation.Metrics
	Logger            *slog.Logger
}

// SSETransport serves the event stream and the message endpoint for a
// single session.
type SSETransport struct {
	handler   MessageHandler
	sessions  SessionRegistrar
	slot      *SessionSlot
	keepAlive time.Duration
	metrics   *instrumentation.Metrics
	logger    *slog.Logger
}

// NewSSETransport creates a transport.
func NewSSETransport(cfg TransportConfig) *SSETransport {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Slot == nil {
		cfg.Slot = NewSessionSlot(context.Background(), cfg.Logger)
	}
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = DefaultKeepAliveInterval
	}
	return &SSETransport{
		handler:   cfg.Handler,
		sessions:  cfg.Sessions,
		slot:      cfg.Slot,
		keepAlive: cfg.KeepAliveInterval,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Slot returns the session slot.
func (t *SSETransport) Slot() *SessionSlot {
	return t.slot
}

// Close stops the live session.
func (t *SSETransport) Close() {
	t.slot.Stop()
}

// ServeSSE handles GET /mcp/sse.
func (t *SSETransport) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sess, err := t.slot.Acquire()
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	defer t.slot.Release(sess)
	logger := logging.WithSession(t.logger, sess.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	endpoint := fmt.Sprintf("%s?sessionId=%s", MessagesPath, sess.id)
	if err := writeEvent(w, flusher, sseEvent{name: "endpoint", data: []byte(endpoint)}); err != nil {
		logger.Debug("failed to write endpoint event", logging.Err(err))
		return
	}

	if t.sessions != nil {
		if err := t.sessions.RegisterSession(sess.ctx, sess); err != nil {
			logger.Error("failed to register session", logging.Err(err))
			return
		}
		defer t.sessions.UnregisterSession(context.Background(), sess.id)
	}

	t.metrics.IncrementActiveSessions(r.Context(), instrumentation.TransportSSE)
	defer t.metrics.DecrementActiveSessions(context.Background(), instrumentation.TransportSSE)

	t.stream(r.Context(), sess, w, flusher, logger)
}

// stream is the only writer of the response after the endpoint event. It
// returns on client disconnect, session stop or the first failed write.
func (t *SSETransport) stream(ctx context.Context, sess *Session, w io.Writer, flusher http.Flusher, logger *slog.Logger) {
	ticker := time.NewTicker(t.keepAlive)
	defer ticker.Stop()
	defer sess.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			logger.Debug("client disconnected")
			return
		case <-sess.Done():
			return
		case ev := <-sess.events:
			err = writeEvent(w, flusher, ev)
		case n := <-sess.notifications:
			data, merr := json.Marshal(n)
			if merr != nil {
				logger.Warn("failed to encode notification", logging.Err(merr))
				continue
			}
			err = writeEvent(w, flusher, sseEvent{name: "message", data: data})
		case <-ticker.C:
			err = writeComment(w, flusher, "ping")
		}
		if err != nil {
			logger.Debug("stream write failed", logging.Err(err))
			return
		}
	}
}

// ServeMessages handles POST /mcp/messages.
func (t *SSETransport) ServeMessages(w http.ResponseWriter, r *http.Request) {
	sess, err := t.slot.Current()
	if err != nil {
		http.Error(w, err.Error(), errorStatus(err))
		return
	}
	if id := r.URL.Query().Get("sessionId"); id != "" && id != sess.id {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxMessageSize+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxMessageSize {
		http.Error(w, "message too large", http.StatusRequestEntityTooLarge)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte("Accepted"))

	go t.dispatch(sess, json.RawMessage(body))
}

func (t *SSETransport) dispatch(sess *Session, msg json.RawMessage) {
	ctx := sess.ctx
	if t.sessions != nil {
		ctx = t.sessions.WithContext(ctx, sess)
	}
	reply := t.handler.HandleMessage(ctx, msg)
	if reply == nil {
		return
	}
	if !sess.Send(reply) {
		logging.WithSession(t.logger, sess.id).Debug("dropped reply for stopped session")
	}
}

func writeEvent(w io.Writer, flusher http.Flusher, ev sseEvent) error {
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, ev.data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

func writeComment(w io.Writer, flusher http.Flusher, text string) error {
	if _, err := fmt.Fprintf(w, ": %s\n\n", text); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}

// errorStatus maps transport errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrSessionActive):
		return http.StatusConflict
	case errors.Is(err, ErrNoSession):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
