package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.Backend != BackendSQLite {
		t.Errorf("Backend = %s, want sqlite", cfg.Backend)
	}
	if cfg.QuotaBytes != 64<<20 {
		t.Errorf("QuotaBytes = %d, want %d", cfg.QuotaBytes, 64<<20)
	}
	if !cfg.AsyncCompression {
		t.Error("AsyncCompression disabled by default")
	}
}

func TestLoadConfigYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "port: \"9090\"\nbackend: file\ndataDir: /var/lib/saves\nquotaBytes: 1048576\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.Backend != BackendFile {
		t.Errorf("Backend = %s, want file", cfg.Backend)
	}
	if cfg.DataDir != "/var/lib/saves" {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.QuotaBytes != 1<<20 {
		t.Errorf("QuotaBytes = %d, want %d", cfg.QuotaBytes, 1<<20)
	}
}

// Переменные окружения перекрывают YAML.
func TestLoadConfigEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"9090\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("RV_PORT", "7070")
	t.Setenv("RV_BACKEND", BackendFile)
	t.Setenv("RV_QUOTA_BYTES", "2048")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Port != "7070" {
		t.Errorf("Port = %s, want the env value 7070", cfg.Port)
	}
	if cfg.Backend != BackendFile {
		t.Errorf("Backend = %s, want file", cfg.Backend)
	}
	if cfg.QuotaBytes != 2048 {
		t.Errorf("QuotaBytes = %d, want 2048", cfg.QuotaBytes)
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("RV_BACKEND", "redis")
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("unknown backend accepted")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/does/not/exist.yaml"); err == nil {
		t.Fatal("missing config file accepted")
	}
}
