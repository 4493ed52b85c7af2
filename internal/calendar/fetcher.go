package calendar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/logging"
)

// ErrNotConfigured is returned when no feed URL is set.
var ErrNotConfigured = errors.New("calendar feed not configured")

const (
	maxFeedSize  = 10 << 20
	cacheEntries = 8
)

// Options configures a Fetcher. Zero values select defaults.
type Options struct {
	HTTPClient *http.Client
	// Location decides what "today" means (default time.Local).
	Location *time.Location
	// CacheTTL is how long a fetched feed is reused. Zero disables caching.
	CacheTTL time.Duration
	Now      func() time.Time
	Metrics  *instrumentation.Metrics
	Logger   *slog.Logger
}

// Fetcher retrieves today's events from an ICS feed.
type Fetcher struct {
	url     string
	client  *http.Client
	loc     *time.Location
	now     func() time.Time
	cache   *expirable.LRU[string, []byte]
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewFetcher creates a Fetcher for the feed at url.
func NewFetcher(url string, opts Options) *Fetcher {
	f := &Fetcher{
		url:     url,
		client:  opts.HTTPClient,
		loc:     opts.Location,
		now:     opts.Now,
		metrics: opts.Metrics,
		logger:  opts.Logger,
	}
	if f.client == nil {
		f.client = &http.Client{Timeout: 30 * time.Second}
	}
	if f.loc == nil {
		f.loc = time.Local
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.logger == nil {
		f.logger = slog.Default()
	}
	if opts.CacheTTL > 0 {
		f.cache = expirable.NewLRU[string, []byte](cacheEntries, nil, opts.CacheTTL)
	}
	return f
}

// TodayEvents returns the events starting in [today 00:00, tomorrow 00:00)
// in the fetcher's location, sorted by start. Failures are reported in
// Today.Error, never as a Go error.
func (f *Fetcher) TodayEvents(ctx context.Context) Today {
	now := f.now().In(f.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, f.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := f.Events(ctx)
	if err != nil {
		f.logger.Warn("calendar fetch failed",
			logging.Backend(instrumentation.BackendICS),
			logging.Err(err))
		return Today{Error: err.Error(), Events: []Event{}}
	}

	today := make([]Event, 0, len(events))
	for _, ev := range events {
		if !ev.Start.Before(dayStart) && ev.Start.Before(dayEnd) {
			today = append(today, ev)
		}
	}
	SortByStart(today)

	return Today{
		Date:   dayStart.Format(time.DateOnly),
		Events: today,
		Count:  len(today),
	}
}

// Events fetches and parses every VEVENT in the feed.
func (f *Fetcher) Events(ctx context.Context) ([]Event, error) {
	data, err := f.feed(ctx)
	if err != nil {
		return nil, err
	}
	return ParseEvents(data, f.loc)
}

func (f *Fetcher) feed(ctx context.Context) (data []byte, err error) {
	if f.url == "" {
		return nil, ErrNotConfigured
	}
	if f.cache != nil {
		if data, ok := f.cache.Get(f.url); ok {
			return data, nil
		}
	}

	ctx, span := instrumentation.StartBackendSpan(ctx, instrumentation.BackendICS, instrumentation.OperationFetch, "")
	start := time.Now()
	defer func() {
		f.metrics.RecordBackendOperation(ctx, instrumentation.BackendICS, instrumentation.OperationFetch,
			instrumentation.StatusFor(err), time.Since(start))
		instrumentation.EndSpan(span, err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid calendar url: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch calendar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch calendar: unexpected status %d", resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar: %w", err)
	}

	if f.cache != nil {
		f.cache.Add(f.url, data)
	}
	return data, nil
}

// SortByStart orders events by ascending start time.
func SortByStart(events []Event) {
	slices.SortStableFunc(events, func(a, b Event) int {
		return a.Start.Compare(b.Start)
	})
}
