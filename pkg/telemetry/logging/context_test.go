package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	ctx = WithRequestID(ctx, "req-123")
	if got := GetRequestID(ctx); got != "req-123" {
		t.Errorf("GetRequestID() = %q, want %q", got, "req-123")
	}

	ctx = WithSessionID(ctx, "sess-1")
	if got := GetSessionID(ctx); got != "sess-1" {
		t.Errorf("GetSessionID() = %q, want %q", got, "sess-1")
	}

	ctx = WithConnectionID(ctx, "conn-9")
	if got := GetConnectionID(ctx); got != "conn-9" {
		t.Errorf("GetConnectionID() = %q, want %q", got, "conn-9")
	}

	if got := GetSessionID(context.Background()); got != "" {
		t.Errorf("expected empty session ID, got %q", got)
	}
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	base := slog.New(slog.NewTextHandler(buf, nil))

	ctx := WithLogger(context.Background(), base)
	ctx = WithSessionID(ctx, "sess-1")
	ctx = WithRequestID(ctx, "req-7")

	FromContext(ctx).Info("turn started")

	out := buf.String()
	for _, want := range []string{"turn started", "session_id=sess-1", "request_id=req-7"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output %q", want, out)
		}
	}
}

func TestFromContext_DefaultLogger(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected a logger without one in context")
	}
}
