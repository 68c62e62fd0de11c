package logger

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func newTestHandler(buf *bytes.Buffer, format logFormat) (*structuredHandler, *asyncWriter) {
	aw := newAsyncWriter([]io.Writer{buf}, 1024)
	return newStructuredHandler(handlerConfig{
		level:    slog.LevelInfo,
		writer:   aw,
		format:   format,
		keyOrder: append([]string(nil), defaultKeyOrder...),
	}), aw
}

func closeWriter(t *testing.T, aw *asyncWriter) {
	t.Helper()
	if err := aw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestStructuredHandlerKVOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	ctx := WithRID(Background(), "rid-123")
	ctx = WithUpdateMeta(ctx, 42, 7, 9)
	ctx = WithStage(ctx, "welcome")

	log := slog.New(handler).With("component", "stage")
	LogEvent(ctx, log, slog.LevelInfo, "stage.enter",
		slog.String("status", "ok"),
		slog.String("to", "category"),
	)
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	tokens := strings.Split(line, " ")
	expected := []string{"ts=", "level=INFO", "component=stage", "event=stage.enter", "status=ok", "rid=rid-123", "update_id=42", "user_id=7", "chat_id=9"}
	if len(tokens) < len(expected) {
		t.Fatalf("unexpected token count: %d (%s)", len(tokens), line)
	}
	for i, prefix := range expected {
		if !strings.HasPrefix(tokens[i], prefix) {
			t.Fatalf("token %d = %s, expected prefix %s", i, tokens[i], prefix)
		}
	}
	if !strings.Contains(line, "stage=welcome") {
		t.Fatalf("expected stage from context, got %s", line)
	}
}

func TestStructuredHandlerJSONOrder(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatJSON)
	ctx := WithRID(Background(), "rid-json")
	ctx = WithUpdateMeta(ctx, 11, 22, 33)

	log := slog.New(handler).With("component", "shop")
	LogEvent(ctx, log, slog.LevelError, "dispatch.failed",
		slog.String("status", "fail"),
		slog.String("err", "boom"),
	)
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	prefixes := []string{`{"ts":`, `"level":"ERROR"`, `"component":"shop"`, `"event":"dispatch.failed"`, `"status":"fail"`, `"rid":"rid-json"`}
	pos := -1
	for _, pref := range prefixes {
		idx := strings.Index(line, pref)
		if idx == -1 || idx < pos {
			t.Fatalf("prefix %s not found in order within %s", pref, line)
		}
		pos = idx
	}
}

func TestStructuredHandlerCompactRID(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	rawRID := "123:456:789"
	log := slog.New(handler).With("component", "app")
	LogEvent(WithRID(Background(), rawRID), log, slog.LevelInfo, "rid.test")
	closeWriter(t, aw)

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "rid="+CompactRID(rawRID)) {
		t.Fatalf("expected compact rid, got %s", line)
	}
	if strings.Contains(line, "rid_full=") {
		t.Fatalf("rid_full should be omitted in KV output, got %s", line)
	}
}

func TestStructuredHandlerDurationKeys(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	log := slog.New(handler)
	log.Info("timing", slog.Duration("duration", 1500000), slog.Duration("hook_duration", 2000000))
	closeWriter(t, aw)

	line := buf.String()
	if !strings.Contains(line, "duration_ms=2") || !strings.Contains(line, "hook_duration_ms=2") {
		t.Fatalf("duration keys not normalized: %s", line)
	}
}

func TestStructuredHandlerLevelFilter(t *testing.T) {
	buf := &bytes.Buffer{}
	handler, aw := newTestHandler(buf, formatKV)
	slog.New(handler).Debug("hidden")
	closeWriter(t, aw)
	if buf.Len() != 0 {
		t.Fatalf("debug line should be filtered, got %q", buf.String())
	}
}

func TestRatioSampler(t *testing.T) {
	s := newRatioSampler(1, 3)
	got := []bool{s.Allow(), s.Allow(), s.Allow(), s.Allow()}
	want := []bool{true, false, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("allow #%d = %v, want %v", i, got[i], want[i])
		}
	}
	if n, d := parseRatioSpec("20"); n != 1 || d != 20 {
		t.Fatalf("parseRatioSpec(20) = %d/%d", n, d)
	}
}
