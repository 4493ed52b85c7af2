package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/bizgateway/internal/mailbox"
	"github.com/teemow/bizgateway/internal/server"
	"github.com/teemow/bizgateway/internal/tools/registry"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func withConfigFile(t *testing.T, path string) {
	t.Helper()
	prev := configFile
	configFile = path
	t.Cleanup(func() { configFile = prev })
}

func TestResolveConfig_Precedence(t *testing.T) {
	withConfigFile(t, writeConfig(t, `
http:
  addr: ":4000"
  keepalive_interval: 20s
metrics:
  addr: ":9999"
read_only: false
`))
	t.Setenv("READ_ONLY", "true")
	t.Setenv("KEEPALIVE_INTERVAL", "30s")

	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--http-addr", ":6000"}))

	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)

	assert.Equal(t, ":6000", cfg.HTTP.Addr, "flag beats file")
	assert.True(t, cfg.ReadOnly, "env beats file")
	assert.Equal(t, 30*time.Second, cfg.HTTP.KeepAliveInterval, "env beats file")
	assert.Equal(t, ":9999", cfg.Metrics.Addr, "unset flag keeps file value")
}

func TestResolveConfig_FlagOverridesEnv(t *testing.T) {
	withConfigFile(t, "")
	t.Setenv("READ_ONLY", "true")

	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--read-only=false", "--keepalive-interval", "5s"}))

	cfg, err := resolveConfig(cmd)
	require.NoError(t, err)
	assert.False(t, cfg.ReadOnly)
	assert.Equal(t, 5*time.Second, cfg.HTTP.KeepAliveInterval)
}

func TestResolveConfig_Invalid(t *testing.T) {
	withConfigFile(t, "")

	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--keepalive-interval", "0s"}))

	_, err := resolveConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestResolveConfig_MissingFile(t *testing.T) {
	withConfigFile(t, filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := resolveConfig(newServeCmd())
	require.Error(t, err)
}

func newTestServerContext(t *testing.T) *server.ServerContext {
	t.Helper()
	sc, err := server.NewServerContext(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

var writeTools = []string{"send_email", "send_sms", "sda_generate_ndia_batch"}

func TestRegisterAllTools(t *testing.T) {
	sc := newTestServerContext(t)
	reg := newRegistry(sc, nil)

	require.NoError(t, registerAllTools(reg, sc, false))

	names := reg.Names()
	assert.Len(t, names, 19)
	for _, name := range append([]string{
		"read_emails", "sort_emails", "get_calendar", "search_properties",
		"business_snapshot", "sda_get_participants", "sda_health_check",
	}, writeTools...) {
		assert.Contains(t, names, name)
	}

	err := reg.Register(mcp.NewTool("late_tool"), func(context.Context, mcp.CallToolRequest) (any, error) { return nil, nil })
	assert.ErrorIs(t, err, registry.ErrSealed)
}

func TestRegisterAllTools_ReadOnly(t *testing.T) {
	sc := newTestServerContext(t)
	reg := newRegistry(sc, nil)

	require.NoError(t, registerAllTools(reg, sc, true))

	names := reg.Names()
	assert.Len(t, names, 16)
	for _, name := range writeTools {
		assert.NotContains(t, names, name)
	}
}

func TestGenerateToolsMarkdown(t *testing.T) {
	toolsByCategory, err := collectToolsByCategory(newTestServerContext(t))
	require.NoError(t, err)

	assert.Len(t, toolsByCategory, len(toolGroups))
	assert.Len(t, toolsByCategory["SDA Admin Tools"], 12)

	markdown := generateToolsMarkdown(toolsByCategory)
	assert.True(t, strings.HasPrefix(markdown, "# MCP Tools Reference"))
	assert.Contains(t, markdown, "- [Mail Tools](#mail-tools)")
	assert.Contains(t, markdown, "### read_emails")
	assert.Contains(t, markdown, "One of: `INBOX`, `Sent`.")
	assert.Contains(t, markdown, "Default: `20`.")
	assert.Contains(t, markdown, "- `to` (string, required)")
	assert.Less(t, strings.Index(markdown, "## Calendar Tools"), strings.Index(markdown, "## Mail Tools"))
}

func TestPrintClassification(t *testing.T) {
	date := time.Date(2025, 3, 4, 9, 30, 0, 0, time.UTC)
	c := mailbox.Classify([]mailbox.Message{
		{From: "a@example.com", Subject: "Urgent investor update", Date: date},
		{From: "b@example.com", Subject: "Hello", Date: date},
	})

	var sb strings.Builder
	require.NoError(t, printClassification(&sb, c))

	out := sb.String()
	assert.True(t, strings.HasPrefix(out, "Sorted 2 emails into 2 active categories\n"))
	assert.Contains(t, out, "urgent_investor (1)")
	assert.Contains(t, out, "general (1)")
	assert.Contains(t, out, "2025-03-04 09:30")
	assert.NotContains(t, out, "sda_related")
}
