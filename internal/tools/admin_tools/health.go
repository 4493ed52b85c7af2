package admin_tools

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teemow/bizgateway/internal/datastore"
	"github.com/teemow/bizgateway/internal/logging"
	"github.com/teemow/bizgateway/internal/server"
)

// Health states reported by sda_health_check.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthChecks records which parts of the admin store answered.
type HealthChecks struct {
	Database     bool `json:"database"`
	Participants bool `json:"participants"`
	Properties   bool `json:"properties"`
	Tenancies    bool `json:"tenancies"`
	NDIASystem   bool `json:"ndiaSystem"`
}

func (c HealthChecks) all() bool {
	return c.Database && c.Participants && c.Properties && c.Tenancies && c.NDIASystem
}

// HealthReport is the sda_health_check payload.
type HealthReport struct {
	Success   bool         `json:"success"`
	Status    string       `json:"status"`
	Error     string       `json:"error,omitempty"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp,omitempty"`
}

// SoftError implements common.SoftFailure.
func (r HealthReport) SoftError() string { return r.Error }

// handleHealthCheck reads one row of each core table concurrently. Failed
// reads make the report degraded; a store that is not configured at all
// makes it unhealthy.
func handleHealthCheck(ctx context.Context, sc *server.ServerContext) HealthReport {
	store := sc.AdminStore()
	if store == nil {
		return HealthReport{Status: StatusUnhealthy, Error: datastore.ErrNotConfigured.Error()}
	}

	logger := logging.WithOperation(sc.Logger(), "sda_health_check")

	var (
		mu        sync.Mutex
		checks    HealthChecks
		configErr error
	)
	check := func(table string, ok *bool) func() error {
		return func() error {
			_, err := store.Select(ctx, datastore.From(table).Select("id").WithLimit(1))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warn("health check failed", "table", table, logging.Err(err))
				if errors.Is(err, datastore.ErrNotConfigured) {
					configErr = err
				}
				return nil
			}
			*ok = true
			return nil
		}
	}

	var g errgroup.Group
	g.Go(check("properties", &checks.Properties))
	g.Go(check("participants", &checks.Participants))
	g.Go(check("tenancies", &checks.Tenancies))
	g.Go(check("ndia_payment_batches", &checks.NDIASystem))
	_ = g.Wait()

	checks.Database = checks.Properties

	if configErr != nil {
		return HealthReport{Status: StatusUnhealthy, Error: configErr.Error(), Checks: checks}
	}

	status := StatusDegraded
	if checks.all() {
		status = StatusHealthy
	}
	return HealthReport{
		Success:   true,
		Status:    status,
		Checks:    checks,
		Timestamp: sc.Now().UTC().Format(time.RFC3339Nano),
	}
}
