package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
env: prod
database_url: postgres://localhost/boardpacks
jwt:
  secret: s3cret
storage:
  driver: memory
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.IsProd() {
		t.Errorf("IsProd() = false")
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("port = %q", cfg.Server.Port)
	}
	if cfg.Cache.TTL != 30*time.Second || cfg.Cache.Size != 1024 {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Sweeper.GracePeriod != time.Hour {
		t.Errorf("grace period = %s", cfg.Sweeper.GracePeriod)
	}
	if cfg.Storage.Driver != StorageMemory {
		t.Errorf("driver = %q", cfg.Storage.Driver)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
