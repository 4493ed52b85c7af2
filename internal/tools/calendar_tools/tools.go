package calendar_tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/bizgateway/internal/calendar"
	"github.com/teemow/bizgateway/internal/server"
	"github.com/teemow/bizgateway/internal/tools/registry"
)

// todayPayload reports a feed failure as a soft error while keeping the
// {error, events, count} shape.
type todayPayload struct {
	calendar.Today
}

// SoftError implements common.SoftFailure.
func (p todayPayload) SoftError() string { return p.Error }

// RegisterCalendarTools registers the calendar tools.
func RegisterCalendarTools(reg *registry.Registry, sc *server.ServerContext) error {
	getCalendarTool := mcp.NewTool("get_calendar",
		mcp.WithDescription("Get today's calendar events and appointments"),
	)

	return reg.Register(getCalendarTool, func(ctx context.Context, request mcp.CallToolRequest) (any, error) {
		return handleGetCalendar(ctx, sc), nil
	})
}

func handleGetCalendar(ctx context.Context, sc *server.ServerContext) todayPayload {
	return todayPayload{Today: Today(ctx, sc)}
}

// Today returns today's events, or an error-shaped result when no feed is
// configured.
func Today(ctx context.Context, sc *server.ServerContext) calendar.Today {
	source := sc.Calendar()
	if source == nil {
		return calendar.Today{Events: []calendar.Event{}, Error: calendar.ErrNotConfigured.Error()}
	}
	return source.TodayEvents(ctx)
}
