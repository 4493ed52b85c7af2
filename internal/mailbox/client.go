package mailbox

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/logging"
)

const (
	defaultTimeout = 30 * time.Second
	defaultWorkers = 8
)

// ClientOptions configures a Client. Zero values select defaults.
type ClientOptions struct {
	// Timeout bounds a whole FetchMessages call (default 30s).
	Timeout time.Duration
	// Workers bounds concurrent body parses (default 8).
	Workers int
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
	// Now is the clock used for the default message date.
	Now func() time.Time
}

// Client fetches and parses messages through a Dialer.
type Client struct {
	dialer  Dialer
	timeout time.Duration
	workers int
	metrics *instrumentation.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewClient creates a Client that opens one session per fetch.
func NewClient(dialer Dialer, opts ClientOptions) *Client {
	c := &Client{
		dialer:  dialer,
		timeout: opts.Timeout,
		workers: opts.Workers,
		metrics: opts.Metrics,
		logger:  opts.Logger,
		now:     opts.Now,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.workers <= 0 {
		c.workers = defaultWorkers
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// FetchMessages returns up to maxCount of the newest messages in folder,
// sorted by date descending. The window is taken on server sequence order
// before any parsing.
func (c *Client) FetchMessages(ctx context.Context, folder string, maxCount int, unreadOnly bool) (result *FetchResult, err error) {
	if maxCount <= 0 {
		return nil, fmt.Errorf("maxCount must be positive, got %d", maxCount)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendIMAP, instrumentation.OperationFetch, folder)
	start := time.Now()
	defer func() {
		c.metrics.RecordBackendOperation(ctx, instrumentation.BackendIMAP, instrumentation.OperationFetch,
			instrumentation.StatusFor(err), time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	logger := logging.WithBackend(c.logger, instrumentation.BackendIMAP)

	sess, err := c.dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mail server: %w", err)
	}
	// Closing the session unblocks any in-flight command when ctx ends.
	stop := context.AfterFunc(ctx, func() { _ = sess.Close() })
	defer func() {
		stop()
		_ = sess.Close()
	}()

	if err := sess.Select(ctx, folder); err != nil {
		return nil, fmt.Errorf("failed to open folder %q: %w", folder, err)
	}

	seqNums, err := sess.Search(ctx, unreadOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to search folder %q: %w", folder, err)
	}

	result = &FetchResult{Emails: []Message{}, Folder: folder}
	if len(seqNums) == 0 {
		return result, nil
	}
	if len(seqNums) > maxCount {
		seqNums = seqNums[len(seqNums)-maxCount:]
	}

	fetchedAt := c.now()

	var (
		mu       sync.Mutex
		messages = make([]Message, 0, len(seqNums))
	)
	var g errgroup.Group
	g.SetLimit(c.workers)

	fetchErr := sess.Fetch(ctx, seqNums, func(seqNum uint32, raw []byte) {
		g.Go(func() error {
			msg, err := ParseMessage(seqNum, raw, fetchedAt)
			if err != nil {
				logger.Debug("dropping unparseable message",
					slog.Any("seq", seqNum),
					logging.Err(err))
				return nil
			}
			mu.Lock()
			messages = append(messages, msg)
			mu.Unlock()
			return nil
		})
	})
	// Parses never fail the group; Wait is the join on every dispatched parse.
	_ = g.Wait()

	if fetchErr != nil {
		return nil, fmt.Errorf("failed to fetch messages from %q: %w", folder, fetchErr)
	}

	SortByDateDesc(messages)

	logger.Debug("fetched messages",
		logging.Operation("fetch"),
		slog.String("folder", folder),
		slog.Int("matched", len(seqNums)),
		slog.Int("parsed", len(messages)))

	result.Emails = messages
	result.Count = len(messages)
	return result, nil
}

// SortByDateDesc orders messages newest first. Messages with equal dates
// keep their relative order.
func SortByDateDesc(messages []Message) {
	slices.SortStableFunc(messages, func(a, b Message) int {
		return b.Date.Compare(a.Date)
	})
}
