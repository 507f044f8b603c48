package llm

import (
	"fmt"
	"time"

	"github.com/HerbHall/studyforge/internal/llm/anthropic"
	"github.com/HerbHall/studyforge/internal/llm/ollama"
	"github.com/HerbHall/studyforge/internal/llm/openai"
	pkgllm "github.com/HerbHall/studyforge/pkg/llm"
	"go.uber.org/zap"
)

// BackendConfig describes one configured backend.
type BackendConfig struct {
	Name        string        `mapstructure:"name"`
	Provider    string        `mapstructure:"provider"` // "ollama" (default), "openai", "anthropic"
	Model       string        `mapstructure:"model"`
	URL         string        `mapstructure:"url"`
	APIKey      string        `mapstructure:"api_key"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float64       `mapstructure:"temperature"`
	TopP        float64       `mapstructure:"top_p"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// ModuleConfig holds the llm plugin configuration.
type ModuleConfig struct {
	Backends  []BackendConfig `mapstructure:"backends"`
	OllamaURL string          `mapstructure:"ollama_url"`
}

// DefaultConfig returns the llama3 then mistral chain on a local Ollama.
func DefaultConfig() ModuleConfig {
	return ModuleConfig{
		OllamaURL: ollama.DefaultConfig().URL,
		Backends: []BackendConfig{
			{Name: "primary", Provider: "ollama", Model: "llama3:latest", Timeout: 45 * time.Second},
			{Name: "fallback", Provider: "ollama", Model: "mistral:latest", Timeout: 30 * time.Second},
		},
	}
}

// newProvider creates the provider for one backend entry.
func newProvider(bc BackendConfig, ollamaURL string, logger *zap.Logger) (pkgllm.Provider, error) {
	switch bc.Provider {
	case "ollama", "":
		cfg := ollama.DefaultConfig()
		cfg.URL = ollamaURL
		if bc.URL != "" {
			cfg.URL = bc.URL
		}
		if bc.Model != "" {
			cfg.Model = bc.Model
		}
		if bc.Timeout > 0 {
			cfg.Timeout = bc.Timeout
		}
		return ollama.New(cfg, logger)

	case "openai":
		cfg := openai.DefaultConfig()
		if bc.URL != "" {
			cfg.BaseURL = bc.URL
		}
		if bc.Model != "" {
			cfg.Model = bc.Model
		}
		if bc.Timeout > 0 {
			cfg.Timeout = bc.Timeout
		}
		cfg.APIKey = bc.APIKey
		return openai.New(cfg, logger)

	case "anthropic":
		cfg := anthropic.DefaultConfig()
		if bc.URL != "" {
			cfg.BaseURL = bc.URL
		}
		if bc.Model != "" {
			cfg.Model = bc.Model
		}
		if bc.Timeout > 0 {
			cfg.Timeout = bc.Timeout
		}
		cfg.APIKey = bc.APIKey
		return anthropic.New(cfg, logger)

	default:
		return nil, fmt.Errorf("unknown provider: %s", bc.Provider)
	}
}

// buildBackends turns configuration into chain entries. Entries whose
// provider cannot be created are skipped with a warning so one bad cloud
// key does not take down the local chain.
func buildBackends(cfg ModuleConfig, logger *zap.Logger) ([]Backend, error) {
	var backends []Backend
	for i, bc := range cfg.Backends {
		name := bc.Name
		if name == "" {
			name = fmt.Sprintf("backend-%d", i+1)
		}
		kind := bc.Provider
		if kind == "" {
			kind = KindOllama
		}
		endpoint := bc.URL
		if kind == KindOllama && endpoint == "" {
			endpoint = cfg.OllamaURL
		}
		p, err := newProvider(bc, cfg.OllamaURL, logger.With(zap.String("backend", name)))
		if err != nil {
			logger.Warn("skipping backend", zap.String("backend", name), zap.Error(err))
			continue
		}
		var defaults []pkgllm.CallOption
		if bc.Temperature > 0 {
			defaults = append(defaults, pkgllm.WithTemperature(bc.Temperature))
		}
		if bc.TopP > 0 {
			defaults = append(defaults, pkgllm.WithTopP(bc.TopP))
		}
		if bc.MaxTokens > 0 {
			defaults = append(defaults, pkgllm.WithMaxTokens(bc.MaxTokens))
		}
		backends = append(backends, Backend{
			Name:     name,
			Model:    bc.Model,
			Timeout:  bc.Timeout,
			Provider: p,
			Kind:     kind,
			Endpoint: endpoint,
			Defaults: defaults,
		})
	}
	if len(backends) == 0 {
		return nil, fmt.Errorf("no usable backends configured")
	}
	return backends, nil
}
