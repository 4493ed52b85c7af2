package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(&buf, FormatJSON, false)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("visible", Tool("read_emails"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered at info level")
	}
	if !strings.Contains(out, `"tool":"read_emails"`) {
		t.Errorf("expected JSON tool attribute, got %q", out)
	}
}

func TestNew_Debug(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(&buf, FormatText, true)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	logger.Debug("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("debug message should be written when debug is enabled")
	}
}

func TestNew_InvalidFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "xml", false); err == nil {
		t.Error("expected error for unsupported format")
	}
}
