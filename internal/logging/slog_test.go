package logging

import (
	"errors"
	"log/slog"
	"testing"
)

func TestWithHelpers(t *testing.T) {
	logger := slog.Default()
	if WithOperation(logger, "mailbox.fetch") == nil {
		t.Error("WithOperation returned nil")
	}
	if WithTool(logger, "read_emails") == nil {
		t.Error("WithTool returned nil")
	}
	if WithBackend(logger, "imap") == nil {
		t.Error("WithBackend returned nil")
	}
	if WithSession(logger, "abc") == nil {
		t.Error("WithSession returned nil")
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		wantKey string
		wantVal string
	}{
		{"operation", Operation("fetch"), KeyOperation, "fetch"},
		{"backend", Backend("postgrest"), KeyBackend, "postgrest"},
		{"tool", Tool("sort_emails"), KeyTool, "sort_emails"},
		{"status", Status(StatusSuccess), KeyStatus, StatusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.wantKey {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.wantKey)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("boom"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "boom" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "boom")
	}

	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	if got := AnonymizeEmail(""); got != "" {
		t.Errorf("AnonymizeEmail(\"\") = %q, want empty", got)
	}

	hash := AnonymizeEmail("jane@example.com")
	if len(hash) != 21 || hash[:5] != "addr:" {
		t.Errorf("AnonymizeEmail = %q, want addr: prefix and 16 hex chars", hash)
	}
	if hash != AnonymizeEmail(" Jane@Example.com ") {
		t.Error("AnonymizeEmail should normalize case and whitespace")
	}
	if hash == AnonymizeEmail("other@example.com") {
		t.Error("different emails should produce different hashes")
	}
	if Recipient("jane@example.com").Value.String() != hash {
		t.Error("Recipient should carry the anonymized address")
	}
}

func TestRedactPhone(t *testing.T) {
	tests := []struct {
		phone string
		want  string
	}{
		{"+61412345678", "+********678"},
		{"0412 345 678", "**** *** 678"},
		{"123", "***"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			if got := RedactPhone(tt.phone); got != tt.want {
				t.Errorf("RedactPhone(%q) = %q, want %q", tt.phone, got, tt.want)
			}
		})
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"jane@example.com", "example.com"},
		{"invalid", ""},
		{"", ""},
		{"user@", ""},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ExtractDomain(tt.email); got != tt.expected {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.email, got, tt.expected)
			}
		})
	}
}
