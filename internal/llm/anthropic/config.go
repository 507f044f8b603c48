package anthropic

import "time"

// Config holds the configuration for the Anthropic Messages API.
type Config struct {
	BaseURL string        `mapstructure:"url"`
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultConfig returns defaults for the hosted API.
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://api.anthropic.com",
		Model:   "claude-3-5-haiku-latest",
		Timeout: 45 * time.Second,
	}
}
