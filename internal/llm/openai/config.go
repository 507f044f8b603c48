package openai

import "time"

// Config holds the configuration for an OpenAI-compatible chat completions
// endpoint. BaseURL may point at any compatible server (vLLM, LM Studio).
type Config struct {
	BaseURL string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns defaults for the hosted OpenAI API.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.openai.com",
		Model:   "gpt-4o-mini",
		Timeout: 45 * time.Second,
	}
}
