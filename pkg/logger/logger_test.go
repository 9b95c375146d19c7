package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"prod", "dev", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.Info("hello", "mode", mode)
	}
}

func TestLogger_WithCarriesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.Named("fetcher").With("url", "https://example.test").Warn("fetch_failed", "status", 500)

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["component"] != "fetcher" || fields["url"] != "https://example.test" {
		t.Errorf("unexpected fields %v", fields)
	}
	if fields["status"] != int64(500) {
		t.Errorf("expected status 500, got %v (%T)", fields["status"], fields["status"])
	}
}

func TestOrNop(t *testing.T) {
	OrNop(nil).Info("discarded")
}
