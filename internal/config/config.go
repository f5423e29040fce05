package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const dirName = ".datask"

// Global configuration structure.
type Global struct {
	Provider string `mapstructure:"provider" yaml:"provider"`
	APIKey   string `mapstructure:"api_key" yaml:"api_key"`

	// Model identities and sampling
	TranslateModel       string  `mapstructure:"translate_model" yaml:"translate_model"`
	ComposeModel         string  `mapstructure:"compose_model" yaml:"compose_model"`
	TranslateTemperature float64 `mapstructure:"translate_temperature" yaml:"translate_temperature"`
	TranslateTopK        int     `mapstructure:"translate_top_k" yaml:"translate_top_k"`
	TranslateTopP        float64 `mapstructure:"translate_top_p" yaml:"translate_top_p"`
	ComposeTemperature   float64 `mapstructure:"compose_temperature" yaml:"compose_temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec"`

	// HTTP surface
	ServerAddr  string `mapstructure:"server_addr" yaml:"server_addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`

	// Logging
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" yaml:"log_json"`
}

// providerKeyEnv names the conventional credential variable per provider.
var providerKeyEnv = map[string]string{
	"gemini":     "GEMINI_API_KEY",
	"openrouter": "OPENROUTER_API_KEY",
}

// KeyEnv returns the credential environment variable for the provider, or
// "" when the provider needs none.
func KeyEnv(provider string) string { return providerKeyEnv[provider] }

// ResolveAPIKey prefers the configured api_key and falls back to the
// provider's conventional environment variable.
func (c *Global) ResolveAPIKey() string {
	if strings.TrimSpace(c.APIKey) != "" {
		return strings.TrimSpace(c.APIKey)
	}
	if env := KeyEnv(c.Provider); env != "" {
		return strings.TrimSpace(os.Getenv(env))
	}
	return ""
}

// SlogLevel maps log_level onto slog; unknown values mean info.
func (c *Global) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// LoadDotEnv reads KEY=value pairs from the given files (default ".env")
// into the process environment. Missing files are ignored and existing
// variables are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// DefaultPath returns ~/.datask/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName, "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.datask/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Default returns the built-in configuration. A single retry attempt means
// no retries.
func Default() *Global {
	return &Global{
		Provider:             "gemini",
		TranslateTemperature: 0.1,
		TranslateTopK:        64,
		TranslateTopP:        0.96,
		ComposeTemperature:   0.7,
		HTTPTimeoutSec:       60,
		RetryMaxAttempts:     1,
		RetryBaseDelayMs:     500,
		RetryMaxDelayMs:      4000,
		OllamaHost:           "http://127.0.0.1:11434",
		OllamaTimeoutSec:     120,
		ServerAddr:           "127.0.0.1:7860",
		MaxUploadMB:          32,
		LogLevel:             "info",
	}
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("DATASK")
	v.AutomaticEnv()

	d := Default()
	v.SetDefault("provider", d.Provider)
	v.SetDefault("api_key", "")
	v.SetDefault("translate_model", "")
	v.SetDefault("compose_model", "")
	v.SetDefault("translate_temperature", d.TranslateTemperature)
	v.SetDefault("translate_top_k", d.TranslateTopK)
	v.SetDefault("translate_top_p", d.TranslateTopP)
	v.SetDefault("compose_temperature", d.ComposeTemperature)
	v.SetDefault("http_timeout_sec", d.HTTPTimeoutSec)
	v.SetDefault("retry_max_attempts", d.RetryMaxAttempts)
	v.SetDefault("retry_base_delay_ms", d.RetryBaseDelayMs)
	v.SetDefault("retry_max_delay_ms", d.RetryMaxDelayMs)
	v.SetDefault("ollama_host", d.OllamaHost)
	v.SetDefault("ollama_timeout_sec", d.OllamaTimeoutSec)
	v.SetDefault("server_addr", d.ServerAddr)
	v.SetDefault("max_upload_mb", d.MaxUploadMB)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_json", false)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, dirName))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	return &c, nil
}
