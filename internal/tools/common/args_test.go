package common

import (
	"errors"
	"math"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func request(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func TestOptionalString(t *testing.T) {
	tests := []struct {
		name   string
		args   map[string]any
		want   string
		wantOK bool
	}{
		{name: "missing", args: map[string]any{}},
		{name: "empty", args: map[string]any{"status": "  "}},
		{name: "wrong type", args: map[string]any{"status": 3.0}},
		{name: "trimmed", args: map[string]any{"status": " active "}, want: "active", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OptionalString(request(tt.args), "status")
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("OptionalString() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestOptionalNumber(t *testing.T) {
	req := request(map[string]any{"maxPrice": 450000.0, "bedrooms": 2, "suburb": "x"})

	if v, ok := OptionalNumber(req, "maxPrice"); !ok || v != 450000 {
		t.Errorf("maxPrice = (%v, %v)", v, ok)
	}
	if v, ok := OptionalNumber(req, "bedrooms"); !ok || v != 2 {
		t.Errorf("bedrooms = (%v, %v)", v, ok)
	}
	if _, ok := OptionalNumber(req, "suburb"); ok {
		t.Error("string value should not be a number")
	}
	if _, ok := OptionalNumber(req, "minPrice"); ok {
		t.Error("missing value should not be reported")
	}
}

func TestOptionalBool(t *testing.T) {
	req := request(map[string]any{"sdaCompliant": false})
	if v, ok := OptionalBool(req, "sdaCompliant"); !ok || v {
		t.Errorf("sdaCompliant = (%v, %v), want (false, true)", v, ok)
	}
	if _, ok := OptionalBool(req, "ndis_registered"); ok {
		t.Error("missing value should not be reported")
	}
}

func TestLimit(t *testing.T) {
	if got := Limit(request(map[string]any{"limit": 5.0}), "limit", 20); got != 5 {
		t.Errorf("Limit() = %d, want 5", got)
	}
	if got := Limit(request(map[string]any{"limit": 0.0}), "limit", 20); got != 20 {
		t.Errorf("Limit() = %d, want 20", got)
	}
	if got := Limit(request(nil), "limit", 50); got != 50 {
		t.Errorf("Limit() = %d, want 50", got)
	}
}

func TestLimit_Clamps(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int
	}{
		{name: "huge float", value: 1e300, want: math.MaxInt32},
		{name: "infinity", value: math.Inf(1), want: math.MaxInt32},
		{name: "just above int32", value: float64(math.MaxInt32) + 1, want: math.MaxInt32},
		{name: "max int64", value: int64(math.MaxInt64), want: math.MaxInt32},
		{name: "NaN", value: math.NaN(), want: 20},
		{name: "negative infinity", value: math.Inf(-1), want: 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Limit(request(map[string]any{"limit": tt.value}), "limit", 20); got != tt.want {
				t.Errorf("Limit(%v) = %d, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestFail(t *testing.T) {
	f := Fail(errors.New("boom"))
	if f.Success || f.Error != "boom" || f.SoftError() != "boom" {
		t.Errorf("Fail() = %+v", f)
	}
	if Fail(nil).Error == "" {
		t.Error("Fail(nil) should carry a message")
	}
}
