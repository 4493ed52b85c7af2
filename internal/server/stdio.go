package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/logging"
)

const stdioSessionID = "stdio"

// stdioSession is the implicit session of a stdio connection.
type stdioSession struct {
	notifications chan mcp.JSONRPCNotification
	mu            sync.Mutex
	initialized   bool
}

func (s *stdioSession) SessionID() string { return stdioSessionID }
func (s *stdioSession) Initialize() {
	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
}
func (s *stdioSession) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}
func (s *stdioSession) NotificationChannel() chan<- mcp.JSONRPCNotification {
	return s.notifications
}

// StdioConfig configures ServeStdio.
type StdioConfig struct {
	Handler  MessageHandler
	Sessions SessionRegistrar
	Metrics  *instrumentation.Metrics
	Logger   *slog.Logger
}

// ServeStdio reads newline-delimited JSON-RPC messages from in and writes
// replies to out, one per line, until in is exhausted or ctx is done.
// Messages are handled in order.
func ServeStdio(ctx context.Context, cfg StdioConfig, in io.Reader, out io.Writer) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.WithSession(logger, stdioSessionID)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sess := &stdioSession{notifications: make(chan mcp.JSONRPCNotification, sessionQueueSize)}
	if cfg.Sessions != nil {
		if err := cfg.Sessions.RegisterSession(ctx, sess); err != nil {
			return fmt.Errorf("failed to register stdio session: %w", err)
		}
		defer cfg.Sessions.UnregisterSession(context.Background(), stdioSessionID)
		ctx = cfg.Sessions.WithContext(ctx, sess)
	}

	cfg.Metrics.IncrementActiveSessions(ctx, instrumentation.TransportStdio)
	defer cfg.Metrics.DecrementActiveSessions(context.Background(), instrumentation.TransportStdio)

	var writeMu sync.Mutex
	write := func(msg any) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		if _, err := out.Write(append(data, '\n')); err != nil {
			return fmt.Errorf("failed to write reply: %w", err)
		}
		return nil
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-sess.notifications:
				if err := write(n); err != nil {
					logger.Debug("failed to write notification", logging.Err(err))
				}
			}
		}
	}()

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 64<<10), maxMessageSize)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			select {
			case lines <- append([]byte(nil), line...):
			case <-ctx.Done():
				scanErr <- nil
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	logger.Info("serving on stdio")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if err := <-scanErr; err != nil {
					return fmt.Errorf("failed to read stdin: %w", err)
				}
				return nil
			}
			reply := cfg.Handler.HandleMessage(ctx, json.RawMessage(line))
			if reply == nil {
				continue
			}
			if err := write(reply); err != nil {
				return err
			}
		}
	}
}
