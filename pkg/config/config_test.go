package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Redis.CacheTTL != time.Hour {
		t.Errorf("Redis.CacheTTL = %v, want 1h", cfg.Redis.CacheTTL)
	}
	if cfg.Index.InvertedIndexFile != "inverted_index.json" {
		t.Errorf("Index.InvertedIndexFile = %q", cfg.Index.InvertedIndexFile)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 9999
index:
  dataDir: /var/lib/search
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999", cfg.Server.Port)
	}
	if got := cfg.Index.InvertedIndexPath(); got != "/var/lib/search/inverted_index.json" {
		t.Errorf("InvertedIndexPath = %q", got)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	// Unset sections keep their defaults.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("Redis.Addr = %q, want default", cfg.Redis.Addr)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("NJ_SERVER_PORT", "7070")
	t.Setenv("NJ_REDIS_ADDR", "cache:6379")
	t.Setenv("NJ_REDIS_CACHE_TTL", "30m")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("Server.Port = %d, want 7070", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "cache:6379" {
		t.Errorf("Redis.Addr = %q, want cache:6379", cfg.Redis.Addr)
	}
	if cfg.Redis.CacheTTL != 30*time.Minute {
		t.Errorf("Redis.CacheTTL = %v, want 30m", cfg.Redis.CacheTTL)
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("does/not/exist.yaml"); err == nil {
		t.Error("Load succeeded for missing file, want error")
	}
}
