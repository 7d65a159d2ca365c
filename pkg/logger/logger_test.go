package logger_test

import (
	"testing"

	"github.com/OFFIS-RIT/kgimport/pkg/logger"
	"github.com/OFFIS-RIT/kgimport/pkg/logger/memory"
)

func TestDispatchToAllBackends(t *testing.T) {
	a := memory.NewMemoryLogger()
	b := memory.NewMemoryLogger()
	logger.Init(a, b)
	t.Cleanup(func() { logger.Init() })

	logger.Info("[Test] hello", "count", 3)
	logger.Log("[Test] plain", "k", "v")

	for _, m := range []*memory.MemoryLogger{a, b} {
		entries := m.Entries()
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d:\n%s", len(entries), m)
		}
		if got := entries[0].Value("count"); got != 3 {
			t.Fatalf("expected count=3, got %v", got)
		}
		if got := entries[1].Value("k"); got != "v" {
			t.Fatalf("expected keyvals to reach Log backend, got %v", got)
		}
	}
}

func TestUninitializedLoggerIsNoop(t *testing.T) {
	logger.Init()
	logger.Error("[Test] nothing listens")
}

func TestEnabled(t *testing.T) {
	logger.Init()
	if logger.Enabled() {
		t.Fatalf("expected no backends after empty Init")
	}
	logger.Init(memory.NewMemoryLogger())
	t.Cleanup(func() { logger.Init() })
	if !logger.Enabled() {
		t.Fatalf("expected logger to be enabled")
	}
}
