// Package roles defines typed contracts for plugin roles.
// Plugins that fill a role (declared via PluginInfo.Roles) implement the
// corresponding interface so callers can resolve them through
// PluginResolver.ResolveByRole followed by a type assertion.
package roles

import (
	"context"

	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/plugin"
)

// Role name constants match the strings used in PluginInfo.Roles.
const (
	RoleLLM          = "llm"
	RoleNotification = "notification"
	RoleHistory      = "history"
)

// LLMProvider is implemented by the plugin that owns the generation
// backends.
type LLMProvider interface {
	// Chain returns an invoker over the configured backends, in configured
	// order. Model specs replace the models of local Ollama backends; hosted
	// backends keep their own model and still serve as fallbacks.
	Chain(specs ...llm.ModelSpec) llm.Invoker
}

// Notifier delivers a notification to an external endpoint.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// ResolveLLM returns the first active LLM provider, or nil.
func ResolveLLM(plugins plugin.PluginResolver) LLMProvider {
	if plugins == nil {
		return nil
	}
	for _, p := range plugins.ResolveByRole(RoleLLM) {
		if lp, ok := p.(LLMProvider); ok {
			return lp
		}
	}
	return nil
}
