package datastore

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/teemow/bizgateway/internal/config"
	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/logging"
)

// instrumentedStore records metrics, a span and a debug log line per query.
type instrumentedStore struct {
	next    Store
	name    string
	backend string
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// Instrument wraps store so every Select is measured under backend.
func Instrument(store Store, name, backend string, metrics *instrumentation.Metrics, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &instrumentedStore{
		next:    store,
		name:    name,
		backend: backend,
		metrics: metrics,
		logger:  logging.WithBackend(logger, backend),
	}
}

func (s *instrumentedStore) Select(ctx context.Context, q *Query) (rows []Row, err error) {
	ctx, span := instrumentation.StartBackendSpan(ctx, s.backend, instrumentation.OperationSelect, q.Table)
	start := time.Now()
	defer func() {
		duration := time.Since(start)
		s.metrics.RecordBackendOperation(ctx, s.backend, instrumentation.OperationSelect,
			instrumentation.StatusFor(err), duration)
		instrumentation.EndSpan(span, err)
		s.logger.Debug("select",
			slog.String("store", s.name),
			slog.String("table", q.Table),
			slog.Int("rows", len(rows)),
			slog.Duration(logging.KeyDuration, duration),
			logging.Err(err))
	}()
	return s.next.Select(ctx, q)
}

// unconfigured fails every query with ErrNotConfigured.
type unconfigured struct{ name string }

func (u unconfigured) Select(context.Context, *Query) ([]Row, error) {
	return nil, fmt.Errorf("%s: %w", u.name, ErrNotConfigured)
}

// Open builds the store described by cfg. A store without settings is
// returned as one whose queries fail with ErrNotConfigured, so the tools
// that use it report a soft error instead of blocking startup.
// The returned close function releases backend resources.
func Open(ctx context.Context, name string, cfg config.StoreConfig, metrics *instrumentation.Metrics, logger *slog.Logger) (Store, func(), error) {
	if !cfg.Configured() {
		return unconfigured{name: name}, func() {}, nil
	}

	switch cfg.Backend {
	case config.BackendPostgres:
		pg, err := NewPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", name, err)
		}
		return Instrument(pg, name, instrumentation.BackendPostgres, metrics, logger), pg.Close, nil
	default:
		rest := NewPostgREST(cfg.URL, cfg.Key, &http.Client{Timeout: 30 * time.Second})
		return Instrument(rest, name, instrumentation.BackendPostgREST, metrics, logger), func() {}, nil
	}
}
