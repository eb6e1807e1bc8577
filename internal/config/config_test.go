package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadTrafficControlDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RATE_LIMIT_RPS", "")
	t.Setenv("RATE_LIMIT_BURST", "")
	t.Setenv("MAX_IN_FLIGHT", "")
	t.Setenv("BACKPRESSURE_WAIT_MS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RateLimitRPS != 20 {
		t.Fatalf("expected default rate limit 20, got %v", cfg.RateLimitRPS)
	}
	if cfg.RateLimitBurst != 40 {
		t.Fatalf("expected default burst 40, got %d", cfg.RateLimitBurst)
	}
	if cfg.MaxInFlight != 64 {
		t.Fatalf("expected default max in flight 64, got %d", cfg.MaxInFlight)
	}
	if cfg.BackpressureWaitMS != 200 {
		t.Fatalf("expected default backpressure wait 200, got %d", cfg.BackpressureWaitMS)
	}
}

func TestLoadParsesEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("VECTOR_BACKEND", "memory")
	t.Setenv("NATS_SUBJECT", "docs.custom")
	t.Setenv("RATE_LIMIT_RPS", "3.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.VectorBackend != "memory" {
		t.Fatalf("expected vector backend memory, got %q", cfg.VectorBackend)
	}
	if cfg.NATSSubject != "docs.custom" {
		t.Fatalf("expected subject docs.custom, got %q", cfg.NATSSubject)
	}
	if cfg.RateLimitRPS != 3.5 {
		t.Fatalf("expected rate limit 3.5, got %v", cfg.RateLimitRPS)
	}
}

func TestLoadOverlaysConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "qdrant_collection: knowledge\nmax_in_flight: 8\nrate_limit_rps: 1.5\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("QDRANT_COLLECTION", "documents")
	t.Setenv("QDRANT_URL", "http://qdrant:6333")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.QdrantCollection != "knowledge" {
		t.Fatalf("expected file to override collection, got %q", cfg.QdrantCollection)
	}
	if cfg.MaxInFlight != 8 {
		t.Fatalf("expected max in flight 8, got %d", cfg.MaxInFlight)
	}
	if cfg.RateLimitRPS != 1.5 {
		t.Fatalf("expected rate limit 1.5, got %v", cfg.RateLimitRPS)
	}
	if cfg.QdrantURL != "http://qdrant:6333" {
		t.Fatalf("expected env value kept for keys absent from file, got %q", cfg.QdrantURL)
	}
}

func TestLoadFailsOnMalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("max_in_flight: [not-an-int"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}
