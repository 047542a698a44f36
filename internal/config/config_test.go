package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.TickRateHz != 20 || cfg.MaxClientQueue != 32 {
		t.Fatalf("defaults: %+v", cfg)
	}
	if !cfg.Transcript.Enabled {
		t.Fatalf("transcript should default on")
	}
}

func TestLoad_FileOverridesAndNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	data := `
addr: "127.0.0.1:9090"
tick_rate_hz: 60
transcript:
  enabled: false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9090" || cfg.TickRateHz != 60 {
		t.Fatalf("overrides: %+v", cfg)
	}
	if cfg.Transcript.Enabled {
		t.Fatalf("transcript override lost")
	}
	// Unset fields get normalized defaults.
	if cfg.DataDir != "./data" || cfg.MaxClientQueue != 32 {
		t.Fatalf("normalize: %+v", cfg)
	}
}

func TestLoad_RejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	if err := os.WriteFile(path, []byte("tick_rate_hz: 100000\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}
