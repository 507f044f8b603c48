package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"defaults", "", "", false},
		{"debug json", "debug", "json", false},
		{"warn console", "warn", "console", false},
		{"bad level", "loud", "json", true},
		{"bad format", "info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set("logging.level", tt.level)
			v.Set("logging.format", tt.format)
			logger, err := NewLogger(v)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestSubMissingSection(t *testing.T) {
	cfg := New(viper.New())
	sub := cfg.Sub("plugins.quiz")
	if sub == nil {
		t.Fatal("Sub() returned nil")
	}
	if sub.IsSet("default_count") {
		t.Error("empty section should have no keys")
	}
}

func TestOrHelpers(t *testing.T) {
	v := viper.New()
	v.Set("quiz.default_count", 7)
	v.Set("quiz.model", "mistral:latest")
	v.Set("quiz.timeout", "12s")
	v.Set("quiz.enabled", false)
	cfg := New(v).Sub("quiz")

	if got := IntOr(cfg, "default_count", 5); got != 7 {
		t.Errorf("IntOr = %d, want 7", got)
	}
	if got := StringOr(cfg, "model", "llama3:latest"); got != "mistral:latest" {
		t.Errorf("StringOr = %q, want mistral:latest", got)
	}
	if got := DurationOr(cfg, "timeout", time.Second); got != 12*time.Second {
		t.Errorf("DurationOr = %v, want 12s", got)
	}
	if got := BoolOr(cfg, "enabled", true); got {
		t.Error("BoolOr = true, want false")
	}
	if got := IntOr(nil, "default_count", 5); got != 5 {
		t.Errorf("IntOr(nil) = %d, want 5", got)
	}
	if got := StringOr(cfg, "missing", "x"); got != "x" {
		t.Errorf("StringOr(missing) = %q, want x", got)
	}
}
