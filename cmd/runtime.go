package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KaramelBytes/datask-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/datask-cli/internal/config"
	"github.com/KaramelBytes/datask-cli/internal/nl2code"
	"github.com/KaramelBytes/datask-cli/internal/pipeline"
)

// buildRuntime selects and configures the model runtime from config.
func buildRuntime(c *cfgpkg.Global) (ai.Runtime, string, error) {
	providerName := strings.ToLower(strings.TrimSpace(c.Provider))
	if providerName == "" {
		providerName = ai.ProviderGemini
	}
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      c.ResolveAPIKey(),
	}
	if providerName == ai.ProviderOllama {
		rc.Host = strings.TrimSpace(c.OllamaHost)
		if rc.Host == "" {
			rc.Host = "http://127.0.0.1:11434"
		}
		if c.OllamaTimeoutSec > 0 {
			rc.HTTPTimeout = time.Duration(c.OllamaTimeoutSec) * time.Second
		}
	} else if rc.APIKey == "" {
		return nil, providerName, fmt.Errorf("%w: set %s or run 'datask config set api_key <key>'", ai.ErrMissingAPIKey, cfgpkg.KeyEnv(providerName))
	}
	rt, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, providerName, fmt.Errorf("provider not supported: %s (use one of %s)", providerName, strings.Join(ai.Providers(), ", "))
	}
	return rt, providerName, nil
}

// samplings resolves the translate and compose model identities and their
// sampling parameters from config.
func samplings(c *cfgpkg.Global, providerName string) (nl2code.Sampling, nl2code.Sampling) {
	pair := ai.DefaultModels(providerName)
	translate := nl2code.DefaultTranslateSampling(firstNonEmpty(c.TranslateModel, pair.Translate))
	compose := nl2code.DefaultComposeSampling(firstNonEmpty(c.ComposeModel, pair.Compose))
	// Config always carries these (viper defaults), so 0 is a real choice.
	translate.Temperature = c.TranslateTemperature
	translate.TopK = c.TranslateTopK
	translate.TopP = ai.Float(c.TranslateTopP)
	compose.Temperature = c.ComposeTemperature
	return translate, compose
}

// newService wires the runtime, translators and composer into a pipeline.
func newService(c *cfgpkg.Global, logger *slog.Logger) (*pipeline.Service, string, error) {
	rt, providerName, err := buildRuntime(c)
	if err != nil {
		return nil, providerName, err
	}
	translate, compose := samplings(c, providerName)
	logger.Debug("runtime ready",
		slog.String("provider", providerName),
		slog.String("translate_model", translate.Model),
		slog.String("compose_model", compose.Model),
	)
	svc := pipeline.New(
		nl2code.NewQueryTranslator(rt, translate, logger),
		nl2code.NewVisualTranslator(rt, translate, logger),
		nl2code.NewComposer(rt, compose, logger),
		logger,
	)
	return svc, providerName, nil
}

// serviceFor builds the pipeline for one question. A blank question never
// reaches a model, so it needs no runtime and no credentials.
func serviceFor(c *cfgpkg.Global, logger *slog.Logger, question string) (*pipeline.Service, string, error) {
	if strings.TrimSpace(question) == "" {
		return pipeline.New(nil, nil, nil, logger), "", nil
	}
	return newService(c, logger)
}

// explain adds a user-facing hint to model failures.
func explain(err error, providerName string) error {
	var (
		authErr *ai.AuthError
		rlErr   *ai.RateLimitError
		nfErr   *ai.ModelNotFoundError
		brErr   *ai.BadRequestError
		qErr    *ai.QuotaExceededError
		sErr    *ai.ServerError
		unreach *ai.UnreachableError
	)
	switch {
	case errors.As(err, &unreach):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("Ollama not reachable at %s. Ensure Ollama is running and the host is correct (DATASK_OLLAMA_HOST or config 'ollama_host'): %w", unreach.Host, err)
		}
		return fmt.Errorf("model endpoint unreachable, check your network: %w", err)
	case errors.As(err, &authErr):
		return fmt.Errorf("authentication failed: set %s or add api_key in config (~/.datask/config.yaml): %w", cfgpkg.KeyEnv(providerName), err)
	case errors.As(err, &rlErr):
		if rlErr.RetryAfter > 0 {
			return fmt.Errorf("rate limited, try again in ~%ds: %w", int(rlErr.RetryAfter.Seconds()), err)
		}
		return fmt.Errorf("rate limited, try again shortly: %w", err)
	case errors.As(err, &nfErr):
		if providerName == ai.ProviderOllama {
			return fmt.Errorf("local model not available. Install it with 'ollama pull <model>' or choose another with 'datask config set translate_model': %w", err)
		}
		return fmt.Errorf("model not found, see 'datask models': %w", err)
	case errors.As(err, &brErr):
		return fmt.Errorf("request rejected by the provider: %w", err)
	case errors.As(err, &qErr):
		return fmt.Errorf("quota/billing issue. Check your provider account: %w", err)
	case errors.As(err, &sErr):
		return fmt.Errorf("provider appears unavailable (server error). Please retry later: %w", err)
	}
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
