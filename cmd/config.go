package cmd

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/KaramelBytes/datask-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datask-cli/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set datask configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		pair := ai.DefaultModels(cfg.Provider)
		fmt.Fprintf(out, "provider: %s\n", cfg.Provider)
		fmt.Fprintf(out, "api_key: %s\n", mask(cfg.ResolveAPIKey()))
		fmt.Fprintf(out, "translate_model: %s\n", firstNonEmpty(cfg.TranslateModel, pair.Translate+" (default)"))
		fmt.Fprintf(out, "compose_model: %s\n", firstNonEmpty(cfg.ComposeModel, pair.Compose+" (default)"))
		fmt.Fprintf(out, "translate_temperature: %.3f\n", cfg.TranslateTemperature)
		fmt.Fprintf(out, "translate_top_k: %d\n", cfg.TranslateTopK)
		fmt.Fprintf(out, "translate_top_p: %.3f\n", cfg.TranslateTopP)
		fmt.Fprintf(out, "compose_temperature: %.3f\n", cfg.ComposeTemperature)
		fmt.Fprintf(out, "http_timeout_sec: %d\n", cfg.HTTPTimeoutSec)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		if cfg.Provider == ai.ProviderOllama {
			fmt.Fprintf(out, "ollama_host: %s\n", cfg.OllamaHost)
			fmt.Fprintf(out, "ollama_timeout_sec: %d\n", cfg.OllamaTimeoutSec)
		}
		fmt.Fprintf(out, "server_addr: %s\n", cfg.ServerAddr)
		fmt.Fprintf(out, "max_upload_mb: %d\n", cfg.MaxUploadMB)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := setKey(cfg, args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	switch key {
	case "provider":
		p := strings.ToLower(strings.TrimSpace(val))
		if !slices.Contains(ai.Providers(), p) {
			return fmt.Errorf("invalid provider: %s (use one of %s)", val, strings.Join(ai.Providers(), ", "))
		}
		c.Provider = p
	case "api_key":
		c.APIKey = val
	case "translate_model":
		c.TranslateModel = val
	case "compose_model":
		c.ComposeModel = val
	case "ollama_host":
		c.OllamaHost = val
	case "server_addr":
		c.ServerAddr = val
	case "log_level":
		c.LogLevel = val
	case "log_json":
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for log_json: %w", err)
		}
		c.LogJSON = b
	case "translate_temperature", "translate_top_p", "compose_temperature":
		f, err := strconv.ParseFloat(val, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		switch key {
		case "translate_temperature":
			c.TranslateTemperature = f
		case "translate_top_p":
			c.TranslateTopP = f
		default:
			c.ComposeTemperature = f
		}
	case "translate_top_k", "http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms", "ollama_timeout_sec", "max_upload_mb":
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		switch key {
		case "translate_top_k":
			c.TranslateTopK = i
		case "http_timeout_sec":
			c.HTTPTimeoutSec = i
		case "retry_max_attempts":
			c.RetryMaxAttempts = i
		case "retry_base_delay_ms":
			c.RetryBaseDelayMs = i
		case "retry_max_delay_ms":
			c.RetryMaxDelayMs = i
		case "ollama_timeout_sec":
			c.OllamaTimeoutSec = i
		default:
			c.MaxUploadMB = i
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
