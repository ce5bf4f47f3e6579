package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestFromContextFallsBackToDefault(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatal("expected default logger")
	}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	if FromContext(WithLogger(context.Background(), logger)) != logger {
		t.Fatal("expected stored logger")
	}
}

func TestStartSpanReusesRequestIDAsTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := WithRequestID(WithLogger(context.Background(), logger), "req-1")

	ctx, outer := StartSpan(ctx, "outer")
	outerID := SpanIDFromContext(ctx)
	innerCtx, inner := StartSpan(ctx, "inner")

	if TraceIDFromContext(innerCtx) != "req-1" {
		t.Fatalf("expected request id as trace id, got %q", TraceIDFromContext(innerCtx))
	}
	if SpanIDFromContext(innerCtx) == outerID {
		t.Fatal("expected a fresh span id")
	}

	inner.End()
	outer.End()

	out := buf.String()
	if !strings.Contains(out, "parent_span_id="+outerID) {
		t.Fatalf("expected inner span to reference its parent: %s", out)
	}
	if strings.Count(out, "trace_id=req-1") != 2 {
		t.Fatalf("expected both spans to carry the trace id once: %s", out)
	}
}

func TestEndOnNilSpan(t *testing.T) {
	var s *Span
	if s.End() != 0 {
		t.Fatal("expected zero duration")
	}
}
