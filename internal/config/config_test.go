package config

import (
	"os"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv("POSTGRES_DSN", "postgres://localhost/test")
	t.Setenv("LLM_API_URL", "http://localhost:1234/v1")
	t.Setenv("LLM_MODEL", "qwen2.5-7b-instruct-1m")
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv("POSTGRES_DSN")
	os.Unsetenv("LLM_API_URL")
	os.Unsetenv("LLM_MODEL")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AppEnv != "local" {
		t.Errorf("AppEnv = %q, want local", cfg.AppEnv)
	}

	if cfg.FetchDelay != 500*time.Millisecond {
		t.Errorf("FetchDelay = %v, want 500ms", cfg.FetchDelay)
	}

	if cfg.LLMRetries != 3 {
		t.Errorf("LLMRetries = %d, want 3", cfg.LLMRetries)
	}

	if cfg.MaxArticles != 10 {
		t.Errorf("MaxArticles = %d, want 10", cfg.MaxArticles)
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("CLASSIFY_DELAY", "2s")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ClassifyDelay != 2*time.Second {
		t.Errorf("ClassifyDelay = %v, want 2s", cfg.ClassifyDelay)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}
