package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Store.Type != "sqlite" {
		t.Errorf("store type = %q, want sqlite", cfg.Store.Type)
	}
	if cfg.Pipeline.FileTimeout <= 0 {
		t.Error("default file timeout should be positive")
	}
	if len(cfg.Loader.Languages) == 0 {
		t.Error("default language list is empty")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "srcmirror.yaml")
	content := `
pipeline:
  workers: 3
  validate: false
store:
  type: memory
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pipeline.Workers != 3 {
		t.Errorf("workers = %d, want 3", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.Validate {
		t.Error("validate should be overridden to false")
	}
	if cfg.Store.Type != "memory" {
		t.Errorf("store type = %q, want memory", cfg.Store.Type)
	}
	// Untouched keys keep their defaults.
	if cfg.Store.Path != "srcmirror.db" {
		t.Errorf("store path = %q, want default", cfg.Store.Path)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		if cfg.Store.Type != "sqlite" {
			t.Errorf("store type = %q", cfg.Store.Type)
		}
	}
}
