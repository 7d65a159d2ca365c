package neo4j

import (
	"context"
	"testing"
	"time"
)

func TestConfigFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		for _, k := range []string{"NEO4J_URI", "NEO4J_USER", "NEO4J_PASSWORD", "NEO4J_DATABASE", "NEO4J_TIMEOUT_SECONDS", "NEO4J_MAX_POOL_SIZE"} {
			t.Setenv(k, "")
		}
		cfg := ConfigFromEnv()
		if cfg.URI != "neo4j://localhost:7687" || cfg.User != "neo4j" {
			t.Fatalf("unexpected defaults: %+v", cfg)
		}
		if cfg.Timeout != 10*time.Second || cfg.MaxPoolSize != 50 {
			t.Fatalf("unexpected limits: %+v", cfg)
		}
	})

	t.Run("overrides", func(t *testing.T) {
		t.Setenv("NEO4J_URI", "bolt://graph:7687")
		t.Setenv("NEO4J_DATABASE", "imports")
		t.Setenv("NEO4J_TIMEOUT_SECONDS", "3")
		t.Setenv("NEO4J_MAX_POOL_SIZE", "0")
		cfg := ConfigFromEnv()
		if cfg.URI != "bolt://graph:7687" || cfg.Database != "imports" {
			t.Fatalf("unexpected connection settings: %+v", cfg)
		}
		if cfg.Timeout != 3*time.Second {
			t.Fatalf("expected 3s timeout, got %v", cfg.Timeout)
		}
		if cfg.MaxPoolSize != 50 {
			t.Fatalf("expected non-positive pool size to fall back, got %d", cfg.MaxPoolSize)
		}
	})
}

func TestNewGraphExecutor_RejectsUnsupportedScheme(t *testing.T) {
	_, err := NewGraphExecutor(context.Background(), Config{URI: "ftp://localhost:7687"})
	if err == nil {
		t.Fatal("expected an error for an unsupported URI scheme")
	}
}

func TestCloseNil(t *testing.T) {
	var g *GraphExecutor
	if err := g.Close(context.Background()); err != nil {
		t.Fatalf("expected nil executor to close cleanly, got %v", err)
	}
}
