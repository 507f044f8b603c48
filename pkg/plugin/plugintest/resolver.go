package plugintest

import (
	"context"

	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/HerbHall/studyforge/pkg/roles"
)

// LLMResolver returns a resolver whose only plugin fills the llm role and
// hands out inv for every Chain call.
func LLMResolver(inv llm.Invoker) plugin.PluginResolver {
	return resolver{p: &llmPlugin{inv: inv}}
}

type resolver struct {
	p *llmPlugin
}

func (r resolver) Resolve(name string) (plugin.Plugin, bool) {
	if name == r.p.Info().Name {
		return r.p, true
	}
	return nil, false
}

func (r resolver) ResolveByRole(role string) []plugin.Plugin {
	if role == roles.RoleLLM {
		return []plugin.Plugin{r.p}
	}
	return nil
}

type llmPlugin struct {
	inv llm.Invoker
}

var _ roles.LLMProvider = (*llmPlugin)(nil)

func (p *llmPlugin) Info() plugin.PluginInfo {
	return plugin.PluginInfo{Name: "llm", Version: "test", Roles: []string{roles.RoleLLM}, APIVersion: plugin.APIVersionCurrent}
}
func (p *llmPlugin) Init(context.Context, plugin.Dependencies) error { return nil }
func (p *llmPlugin) Start(context.Context) error                     { return nil }
func (p *llmPlugin) Stop(context.Context) error                      { return nil }

func (p *llmPlugin) Chain(...llm.ModelSpec) llm.Invoker { return p.inv }
