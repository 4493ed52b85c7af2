package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/teemow/bizgateway/internal/calendar"
	"github.com/teemow/bizgateway/internal/config"
	"github.com/teemow/bizgateway/internal/datastore"
	"github.com/teemow/bizgateway/internal/instrumentation"
	"github.com/teemow/bizgateway/internal/mailbox"
	"github.com/teemow/bizgateway/internal/server"
	"github.com/teemow/bizgateway/internal/sms"
	"github.com/teemow/bizgateway/internal/tools/admin_tools"
	"github.com/teemow/bizgateway/internal/tools/calendar_tools"
	"github.com/teemow/bizgateway/internal/tools/common"
	"github.com/teemow/bizgateway/internal/tools/mail_tools"
	"github.com/teemow/bizgateway/internal/tools/property_tools"
	"github.com/teemow/bizgateway/internal/tools/registry"
	"github.com/teemow/bizgateway/internal/tools/sms_tools"
	"github.com/teemow/bizgateway/internal/workflow"
)

// connectorOptions builds the ServerContext options for every downstream
// system in cfg. Systems without settings are still wired; their calls
// fail with the package's ErrNotConfigured. The returned function closes
// the data store pools.
func connectorOptions(ctx context.Context, cfg config.Config, metrics *instrumentation.Metrics, logger *slog.Logger) ([]server.Option, func(), error) {
	loc := cfg.CalendarLocation()

	imap := mailbox.NewIMAPDialer(cfg.IMAP)
	if !imap.Configured() {
		logger.Warn("IMAP not configured, mailbox tools will fail")
	}
	mailClient := mailbox.NewClient(imap, mailbox.ClientOptions{
		Timeout: cfg.IMAP.Timeout,
		Metrics: metrics,
		Logger:  logger,
	})

	business, closeBusiness, err := datastore.Open(ctx, "business", cfg.Business, metrics, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open business store: %w", err)
	}
	admin, closeAdmin, err := datastore.Open(ctx, "admin", cfg.Admin, metrics, logger)
	if err != nil {
		closeBusiness()
		return nil, nil, fmt.Errorf("failed to open admin store: %w", err)
	}
	closeStores := func() {
		closeBusiness()
		closeAdmin()
	}

	opts := []server.Option{
		server.WithMailbox(mailClient),
		server.WithMailer(mailbox.NewSender(cfg.SMTP, metrics)),
		server.WithCalendar(calendar.NewFetcher(cfg.Calendar.URL, calendar.Options{
			Location: loc,
			CacheTTL: cfg.Calendar.CacheTTL,
			Metrics:  metrics,
			Logger:   logger,
		})),
		server.WithBusinessStore(business),
		server.WithAdminStore(admin),
		server.WithWorkflow(workflow.NewClient(cfg.Workflow.URL, cfg.Workflow.Key, nil, metrics, logger)),
		server.WithSMS(sms.NewClient(cfg.SMS, nil, metrics, logger)),
		server.WithLocation(loc),
		server.WithLogger(logger),
	}
	return opts, closeStores, nil
}

// newRegistry creates a registry whose tools are instrumented through sc.
func newRegistry(sc *server.ServerContext, logger *slog.Logger) *registry.Registry {
	return registry.New(logger, common.Middleware(sc))
}

// toolGroup is one documented category of tools.
type toolGroup struct {
	name     string
	register func(reg *registry.Registry, sc *server.ServerContext, readOnly bool) error
}

var toolGroups = []toolGroup{
	{
		name: "Mail",
		register: func(reg *registry.Registry, sc *server.ServerContext, readOnly bool) error {
			return mail_tools.RegisterMailTools(reg, sc, readOnly)
		},
	},
	{
		name: "Calendar",
		register: func(reg *registry.Registry, sc *server.ServerContext, _ bool) error {
			return calendar_tools.RegisterCalendarTools(reg, sc)
		},
	},
	{
		name: "Property",
		register: func(reg *registry.Registry, sc *server.ServerContext, _ bool) error {
			return property_tools.RegisterPropertyTools(reg, sc)
		},
	},
	{
		name: "SDA Admin",
		register: func(reg *registry.Registry, sc *server.ServerContext, readOnly bool) error {
			return admin_tools.RegisterAdminTools(reg, sc, readOnly)
		},
	},
	{
		name: "SMS",
		register: func(reg *registry.Registry, sc *server.ServerContext, readOnly bool) error {
			return sms_tools.RegisterSMSTools(reg, sc, readOnly)
		},
	},
}

// registerAllTools registers all MCP tools and seals the catalog.
func registerAllTools(reg *registry.Registry, sc *server.ServerContext, readOnly bool) error {
	for _, g := range toolGroups {
		if err := g.register(reg, sc, readOnly); err != nil {
			return fmt.Errorf("failed to register %s tools: %w", g.name, err)
		}
	}
	reg.Seal()
	return nil
}
