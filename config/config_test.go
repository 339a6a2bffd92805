package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yamlBody := "server_address: 10.0.0.5:22124\ndisplay_name: \"studio-a\"\n"
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ServerAddress != "10.0.0.5:22124" {
		t.Fatalf("got ServerAddress=%q, want 10.0.0.5:22124", cfg.ServerAddress)
	}
	if cfg.DisplayName != "studio-a" {
		t.Fatalf("got DisplayName=%q, want studio-a", cfg.DisplayName)
	}
	if cfg.JitterCapacity != DefaultJitterBuffer {
		t.Fatalf("got JitterCapacity=%d, want default %d", cfg.JitterCapacity, DefaultJitterBuffer)
	}
	if cfg.BindAddress != DefaultBindAddress {
		t.Fatalf("got BindAddress=%q, want default %q", cfg.BindAddress, DefaultBindAddress)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load of a missing file succeeded, want an error")
	}
}
