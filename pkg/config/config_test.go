package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "prod" {
		t.Fatalf("expected App.Env to be prod, got %q", cfg.App.Env)
	}

	if cfg.Backend.BaseURL != "https://pos.example.com/api/v1" {
		t.Fatalf("unexpected backend base URL: %q", cfg.Backend.BaseURL)
	}

	if got := cfg.Backend.Timeout; got != 15*time.Second {
		t.Fatalf("expected default timeout 15s, got %v", got)
	}

	if cfg.Terminal.ID != "caixa-3" {
		t.Fatalf("unexpected terminal id %q", cfg.Terminal.ID)
	}

	if !cfg.Journal.Enabled {
		t.Fatalf("journal should default to enabled")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvBackendBaseURL, "https://pos.example.com/api/v1/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://pos.example.com/api/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.BaseURL)
	}
}

func TestLoad_RejectsRelativeBaseURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvBackendBaseURL, "/api/v1")

	if _, err := Load(); err == nil {
		t.Fatal("expected relative base URL to be rejected")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "prod")
	t.Setenv(EnvBackendBaseURL, "https://pos.example.com/api/v1")
	t.Setenv(EnvTerminalID, "caixa-3")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
