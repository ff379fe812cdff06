package logger

import (
	"strings"
	"testing"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observed() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestSanitizeRedactsAndHashes(t *testing.T) {
	log, logs := observed()
	log.Info("connect",
		"postgres_password", "hunter2",
		"author_id", "author-42",
		"root_id", "0b0e",
	)

	fields := logs.All()[0].ContextMap()
	if fields["postgres_password"] != "[REDACTED]" {
		t.Fatalf("password: want=[REDACTED] got=%v", fields["postgres_password"])
	}
	hashed, _ := fields["author_id"].(string)
	if !strings.HasPrefix(hashed, "hash:") || strings.Contains(hashed, "author-42") {
		t.Fatalf("author_id: want salted hash got=%q", hashed)
	}
	if fields["root_id"] != "0b0e" {
		t.Fatalf("root_id must pass through, got=%v", fields["root_id"])
	}
}

func TestSanitizeTruncatesContent(t *testing.T) {
	log, logs := observed()
	long := strings.Repeat("x", maxContentLen*2)
	log.With("body", long).Warn("rejected", "title", "short")

	fields := logs.All()[0].ContextMap()
	body, _ := fields["body"].(string)
	if len(body) >= len(long) || !strings.HasSuffix(body, "(truncated)") {
		t.Fatalf("body: want truncated got len=%d", len(body))
	}
	if fields["title"] != "short" {
		t.Fatalf("title: got=%v", fields["title"])
	}
}

func TestSanitizeTruncatesOnRuneBoundary(t *testing.T) {
	log, logs := observed()
	// 3-byte runes so maxContentLen lands mid-sequence.
	long := strings.Repeat("€", maxContentLen)
	log.With("summary", long).Warn("rejected")

	summary, _ := logs.All()[0].ContextMap()["summary"].(string)
	if !utf8.ValidString(summary) {
		t.Fatalf("summary: invalid utf-8 after truncation: %q", summary)
	}
	cut := strings.TrimSuffix(summary, "...(truncated)")
	if cut == summary || len(cut) > maxContentLen || !strings.HasPrefix(long, cut) {
		t.Fatalf("summary: want rune-aligned prefix of at most %d bytes got len=%d", maxContentLen, len(cut))
	}
	if got := truncateRunes("héllo", 2); got != "h" {
		t.Fatalf("truncateRunes: want=%q got=%q", "h", got)
	}
}

func TestSanitizeOddKeyValues(t *testing.T) {
	if got := sanitizeKVs(nil); got != nil {
		t.Fatalf("nil kvs: got=%v", got)
	}
	got := sanitizeKVs([]interface{}{"token", "abc", "dangling"})
	if len(got) != 3 || got[1] != "[REDACTED]" || got[2] != "dangling" {
		t.Fatalf("odd kvs: got=%v", got)
	}
}

func TestNewModes(t *testing.T) {
	for _, mode := range []string{"production", "test", "development", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.Sync()
	}
}
