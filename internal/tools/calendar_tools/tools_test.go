package calendar_tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/bizgateway/internal/calendar"
	"github.com/teemow/bizgateway/internal/server"
	"github.com/teemow/bizgateway/internal/tools/common"
	"github.com/teemow/bizgateway/internal/tools/registry"
)

type fakeSource struct{ today calendar.Today }

func (f fakeSource) TodayEvents(context.Context) calendar.Today { return f.today }

func invoke(t *testing.T, opts ...server.Option) map[string]any {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	reg := registry.New(nil)
	require.NoError(t, RegisterCalendarTools(reg, sc))

	res := reg.Invoke(context.Background(), "get_calendar", nil)
	require.False(t, res.IsError)
	text, ok := mcp.AsTextContent(res.Content[0])
	require.True(t, ok)

	var out map[string]any
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestGetCalendar(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	out := invoke(t, server.WithCalendar(fakeSource{today: calendar.Today{
		Date: "2024-05-01",
		Events: []calendar.Event{{
			Summary:  "Site inspection",
			Start:    start,
			End:      start.Add(time.Hour),
			Location: calendar.DefaultLocation,
		}},
		Count: 1,
	}}))

	assert.Equal(t, "2024-05-01", out["date"])
	assert.EqualValues(t, 1, out["count"])
	assert.NotContains(t, out, "error")

	events := out["events"].([]any)
	require.Len(t, events, 1)
	assert.Equal(t, "Site inspection", events[0].(map[string]any)["summary"])
	assert.Equal(t, "No location", events[0].(map[string]any)["location"])
}

func TestGetCalendar_FeedError(t *testing.T) {
	out := invoke(t, server.WithCalendar(fakeSource{today: calendar.Today{
		Events: []calendar.Event{},
		Error:  "unexpected status 404",
	}}))

	assert.Equal(t, "unexpected status 404", out["error"])
	assert.Equal(t, []any{}, out["events"])
	assert.EqualValues(t, 0, out["count"])
	assert.NotContains(t, out, "date")
}

func TestGetCalendar_NotConfigured(t *testing.T) {
	out := invoke(t)
	assert.Equal(t, calendar.ErrNotConfigured.Error(), out["error"])
	assert.Equal(t, []any{}, out["events"])
}

func TestTodayPayload_SoftError(t *testing.T) {
	var sf common.SoftFailure = todayPayload{Today: calendar.Today{Error: "boom"}}
	assert.Equal(t, "boom", sf.SoftError())
	assert.Empty(t, todayPayload{}.SoftError())
}
