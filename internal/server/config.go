package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the server configuration.
type Config struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	DevMode bool   `mapstructure:"dev_mode"`
}

// Addr returns the listen address as host:port.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadConfig reads configuration from file and environment variables.
// Environment keys use the SF prefix with dots replaced by underscores:
// SF_SERVER_PORT=9090, SF_PLUGINS_CHAT_CACHE_BACKEND=redis.
func LoadConfig(configPath string) (*viper.Viper, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.dev_mode", false)
	v.SetDefault("server.rate_limit.rps", 10.0)
	v.SetDefault("server.rate_limit.burst", 20)
	v.SetDefault("server.cors.allowed_origins", []string{"*"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/studyforge.db")

	v.SetDefault("plugins.llm.backends", []map[string]any{
		{"name": "primary", "provider": "ollama", "model": "llama3:latest", "timeout": "45s"},
		{"name": "fallback", "provider": "ollama", "model": "mistral:latest", "timeout": "30s"},
	})
	v.SetDefault("plugins.llm.ollama_url", "http://localhost:11434")

	v.SetDefault("plugins.quiz.default_count", 5)
	v.SetDefault("plugins.quiz.content_limit", 6000)
	v.SetDefault("plugins.quiz.model_timeout", "30s")
	v.SetDefault("plugins.quiz.fetch_timeout", "10s")

	v.SetDefault("plugins.roadmap.primary_timeout", "45s")
	v.SetDefault("plugins.roadmap.secondary_timeout", "30s")

	v.SetDefault("plugins.chat.cache.backend", "memory")
	v.SetDefault("plugins.chat.cache.ttl", "1h")
	v.SetDefault("plugins.chat.cache.max_entries", 100)
	v.SetDefault("plugins.chat.cache.redis.addr", "localhost:6379")
	v.SetDefault("plugins.chat.web_context.enabled", true)
	v.SetDefault("plugins.chat.web_context.timeout", "10s")
	v.SetDefault("plugins.chat.web_context.max_concurrent", 3)

	v.SetDefault("plugins.courses.search_url", "https://www.coursera.org")
	v.SetDefault("plugins.courses.fetch_timeout", "10s")
	v.SetDefault("plugins.courses.search_rps", 1)

	v.SetDefault("plugins.history.max_quizzes", 50)
	v.SetDefault("plugins.history.max_chats", 100)
	v.SetDefault("plugins.history.max_topics", 100)

	v.SetDefault("plugins.webhook.enabled", true)
	v.SetDefault("plugins.webhook.timeout", "10s")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.sample_ratio", 0.1)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("studyforge")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/studyforge")
	}

	v.SetEnvPrefix("SF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	return v, nil
}
