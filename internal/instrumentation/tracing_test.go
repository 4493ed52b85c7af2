package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestBackendSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer otel.SetTracerProvider(prev)

	ctx, span := StartBackendSpan(context.Background(), BackendIMAP, OperationFetch, "INBOX")
	if GetTraceID(ctx) == "" || GetSpanID(ctx) == "" {
		t.Error("expected trace identifiers inside a span")
	}
	EndSpan(span, errors.New("connection reset"))

	_, toolSpan := StartToolSpan(context.Background(), "get_calendar")
	EndSpan(toolSpan, nil)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Name() != "imap.fetch" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status().Code)
	}
	if spans[1].Name() != "tool.get_calendar" || spans[1].Status().Code != codes.Ok {
		t.Errorf("unexpected tool span %q %v", spans[1].Name(), spans[1].Status().Code)
	}
}

func TestGetTraceID_NoSpan(t *testing.T) {
	if GetTraceID(context.Background()) != "" {
		t.Error("expected empty trace id")
	}
}
