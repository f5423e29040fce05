package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATASK_PROVIDER", "")
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Provider != "gemini" {
		t.Fatalf("provider = %q", c.Provider)
	}
	if c.RetryMaxAttempts != 1 {
		t.Fatalf("retry_max_attempts = %d, want 1", c.RetryMaxAttempts)
	}
	if c.TranslateTemperature != 0.1 || c.TranslateTopK != 64 || c.TranslateTopP != 0.96 {
		t.Fatalf("unexpected translate sampling %+v", c)
	}
	if c.ComposeTemperature != 0.7 {
		t.Fatalf("compose_temperature = %v", c.ComposeTemperature)
	}
}

func TestLoadMatchesDefault(t *testing.T) {
	keys := []string{"provider", "api_key", "translate_model", "compose_model", "translate_temperature",
		"translate_top_k", "translate_top_p", "compose_temperature", "http_timeout_sec", "retry_max_attempts",
		"retry_base_delay_ms", "retry_max_delay_ms", "ollama_host", "ollama_timeout_sec", "server_addr",
		"max_upload_mb", "log_level", "log_json"}
	for _, k := range keys {
		env := "DATASK_" + strings.ToUpper(k)
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *c != *Default() {
		t.Fatalf("Load defaults drifted from Default():\n%+v\n%+v", *c, *Default())
	}
}

func TestExplicitZeroTemperatureSurvivesLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("translate_temperature: 0\ntranslate_top_p: 0\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.TranslateTemperature != 0 || c.TranslateTopP != 0 {
		t.Fatalf("explicit zeros replaced by defaults: %+v", c)
	}
	if c.ComposeTemperature != 0.7 {
		t.Fatalf("compose_temperature = %v", c.ComposeTemperature)
	}
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := &Global{Provider: "ollama", TranslateModel: "mistral:7b-instruct", RetryMaxAttempts: 2, LogLevel: "debug"}
	if err := Save(in, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out.Provider != "ollama" || out.TranslateModel != "mistral:7b-instruct" || out.RetryMaxAttempts != 2 {
		t.Fatalf("round trip mismatch: %+v", out)
	}
	if out.SlogLevel() != slog.LevelDebug {
		t.Fatalf("SlogLevel = %v", out.SlogLevel())
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("provider: openrouter\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATASK_PROVIDER", "Ollama")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Provider != "ollama" {
		t.Fatalf("provider = %q, want ollama", c.Provider)
	}
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", " from-env ")
	c := &Global{Provider: "gemini"}
	if got := c.ResolveAPIKey(); got != "from-env" {
		t.Fatalf("ResolveAPIKey = %q", got)
	}
	c.APIKey = "from-config"
	if got := c.ResolveAPIKey(); got != "from-config" {
		t.Fatalf("ResolveAPIKey = %q", got)
	}
	if got := (&Global{Provider: "ollama"}).ResolveAPIKey(); got != "" {
		t.Fatalf("ollama needs no key, got %q", got)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("DATASK_TEST_DOTENV=loaded\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DATASK_TEST_DOTENV", "")
	os.Unsetenv("DATASK_TEST_DOTENV")
	if err := LoadDotEnv(envFile, filepath.Join(dir, "absent.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("DATASK_TEST_DOTENV"); got != "loaded" {
		t.Fatalf("DATASK_TEST_DOTENV = %q", got)
	}
}
