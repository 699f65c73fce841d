package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("expected no error for missing file, got %v", err)
	}
	if cfg.Cloud.Taxonomy != nil {
		t.Fatalf("expected empty config")
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[cloud]
taxonomy = "phonemes"
max-items = 40
cluster = true

[timeline]
window-days = 14

[log]
level = "debug"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Cloud.Taxonomy == nil || *cfg.Cloud.Taxonomy != "phonemes" {
		t.Fatalf("unexpected taxonomy: %v", cfg.Cloud.Taxonomy)
	}
	if cfg.Cloud.MaxItems == nil || *cfg.Cloud.MaxItems != 40 {
		t.Fatalf("unexpected max-items: %v", cfg.Cloud.MaxItems)
	}
	if cfg.Cloud.Cluster == nil || !*cfg.Cloud.Cluster {
		t.Fatalf("expected cluster true")
	}
	if cfg.Timeline.WindowDays == nil || *cfg.Timeline.WindowDays != 14 {
		t.Fatalf("unexpected window-days: %v", cfg.Timeline.WindowDays)
	}
	if cfg.Cloud.Rank != nil {
		t.Fatalf("expected unset rank to stay nil")
	}
	if cfg.Log.Level == nil || *cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level: %v", cfg.Log.Level)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[cloud\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
