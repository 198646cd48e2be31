package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Defaults.Years != 5 || cfg.Defaults.FadeYears != 2 {
		t.Errorf("unexpected defaults: %+v", cfg.Defaults)
	}
	if cfg.Defaults.WACC != 0.10 || cfg.Defaults.TerminalGrowth != 0.025 {
		t.Errorf("unexpected rate defaults: %+v", cfg.Defaults)
	}
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dcf.yaml")
	yamlData := `
server:
  addr: ":9090"
  allowed_origins: ["https://example.com"]
defaults:
  years: 7
  growth: 0.12
  fade_years: 3
  wacc: 0.09
  terminal_growth: 0.02
  start_year: 2018
growth:
  enabled: false
  timeout: 3s
  cache_ttl: 1h
sensitivity:
  workers: 2
`
	if err := os.WriteFile(path, []byte(yamlData), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	t.Setenv("DATABASE_URL", "postgres://localhost/dcf")
	t.Setenv("SENSITIVITY_WORKERS", "8")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("expected addr :9090, got %s", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://example.com" {
		t.Errorf("unexpected origins %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Defaults.Years != 7 || cfg.Defaults.Growth != 0.12 || cfg.Defaults.StartYear != 2018 {
		t.Errorf("unexpected defaults %+v", cfg.Defaults)
	}
	if cfg.Growth.Enabled {
		t.Error("expected growth estimates disabled")
	}
	if cfg.Growth.Timeout != 3*time.Second || cfg.Growth.CacheTTL != time.Hour {
		t.Errorf("unexpected growth durations %+v", cfg.Growth)
	}
	if cfg.Database.URL != "postgres://localhost/dcf" {
		t.Errorf("expected DATABASE_URL override, got %s", cfg.Database.URL)
	}
	if cfg.Sensitivity.Workers != 8 {
		t.Errorf("expected env to override workers to 8, got %d", cfg.Sensitivity.Workers)
	}
	// Untouched sections keep their defaults.
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level, got %s", cfg.Log.Level)
	}
}

func TestLoad_RejectsInvalidDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("defaults:\n  years: 3\n  fade_years: 4\n"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for fade_years > years, got nil")
	}
}

func TestValidate_RejectsHorizonAboveCap(t *testing.T) {
	cfg := Default()
	cfg.Defaults.Years = 500
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for years above the cap, got nil")
	}
}
