// Package config provides a Viper-backed implementation of plugin.Config
// plus helpers for reading optional keys from a possibly-nil section.
package config

import (
	"time"

	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/spf13/viper"
)

var _ plugin.Config = (*ViperConfig)(nil)

// ViperConfig wraps a Viper instance to implement plugin.Config.
type ViperConfig struct {
	v *viper.Viper
}

// New creates a Config backed by the given Viper instance.
func New(v *viper.Viper) *ViperConfig {
	if v == nil {
		v = viper.New()
	}
	return &ViperConfig{v: v}
}

func (c *ViperConfig) Unmarshal(target any) error { return c.v.Unmarshal(target) }
func (c *ViperConfig) Get(key string) any         { return c.v.Get(key) }
func (c *ViperConfig) GetString(key string) string {
	return c.v.GetString(key)
}
func (c *ViperConfig) GetInt(key string) int   { return c.v.GetInt(key) }
func (c *ViperConfig) GetBool(key string) bool { return c.v.GetBool(key) }
func (c *ViperConfig) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}
func (c *ViperConfig) IsSet(key string) bool { return c.v.IsSet(key) }

// Sub returns the named section, or an empty config when it is absent.
func (c *ViperConfig) Sub(key string) plugin.Config {
	return New(c.v.Sub(key))
}

// Viper returns the underlying Viper instance for top-level keys such as
// server.port.
func (c *ViperConfig) Viper() *viper.Viper {
	return c.v
}

// StringOr reads key from cfg, returning def when cfg is nil or the key
// is unset. Plugins use these so they run with no config at all.
func StringOr(cfg plugin.Config, key, def string) string {
	if cfg == nil || !cfg.IsSet(key) {
		return def
	}
	return cfg.GetString(key)
}

// IntOr is StringOr for integers.
func IntOr(cfg plugin.Config, key string, def int) int {
	if cfg == nil || !cfg.IsSet(key) {
		return def
	}
	return cfg.GetInt(key)
}

// BoolOr is StringOr for booleans.
func BoolOr(cfg plugin.Config, key string, def bool) bool {
	if cfg == nil || !cfg.IsSet(key) {
		return def
	}
	return cfg.GetBool(key)
}

// DurationOr is StringOr for durations.
func DurationOr(cfg plugin.Config, key string, def time.Duration) time.Duration {
	if cfg == nil || !cfg.IsSet(key) {
		return def
	}
	return cfg.GetDuration(key)
}
