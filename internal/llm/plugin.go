// Package llm implements the llm plugin: it owns the configured generation
// backends and hands other plugins an ordered invocation chain over them.
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgllm "github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/HerbHall/studyforge/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ roles.LLMProvider    = (*Module)(nil)
)

const heartbeatTimeout = 3 * time.Second

// Module implements the llm plugin.
type Module struct {
	logger *zap.Logger
	cfg    ModuleConfig

	mu    sync.RWMutex
	chain *Chain
}

// New creates a new llm plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:        "llm",
		Version:     "0.3.0",
		Description: "Generation backends (Ollama, OpenAI, Anthropic) behind an ordered fallback chain",
		Roles:       []string{roles.RoleLLM},
		Required:    true,
		APIVersion:  plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger

	var cfg ModuleConfig
	if deps.Config != nil {
		if err := deps.Config.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("unmarshal llm config: %w", err)
		}
	}
	def := DefaultConfig()
	if cfg.OllamaURL == "" {
		cfg.OllamaURL = def.OllamaURL
	}
	if len(cfg.Backends) == 0 {
		cfg.Backends = def.Backends
	}
	m.cfg = cfg

	backends, err := buildBackends(cfg, m.logger)
	if err != nil {
		return err
	}
	m.setChain(NewChain(backends, m.logger))

	names := make([]string, len(backends))
	for i := range backends {
		names[i] = backends[i].Name + "=" + backends[i].Model
	}
	m.logger.Info("llm plugin initialized", zap.Strings("backends", names))
	return nil
}

// Start probes the backends once. Unreachable backends are logged, not
// fatal: generation falls back to static content until they come online.
func (m *Module) Start(ctx context.Context) error {
	for _, st := range m.probe(ctx) {
		if !st.Reachable {
			m.logger.Warn("backend not reachable; it will be skipped until it comes online",
				zap.String("backend", st.Name),
				zap.String("error", st.Error),
			)
			continue
		}
		m.logger.Info("backend connected",
			zap.String("backend", st.Name),
			zap.Strings("models", st.Models),
		)
	}
	return nil
}

func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("llm plugin stopped")
	return nil
}

// Health implements plugin.HealthChecker. The plugin is degraded when some
// backends are unreachable and unhealthy when none are.
func (m *Module) Health(ctx context.Context) plugin.HealthStatus {
	statuses := m.probe(ctx)
	up := 0
	for _, st := range statuses {
		if st.Reachable {
			up++
		}
	}
	details := map[string]string{
		"backends":  fmt.Sprint(len(statuses)),
		"reachable": fmt.Sprint(up),
	}
	switch {
	case up == len(statuses):
		return plugin.HealthStatus{Status: "healthy", Details: details}
	case up == 0:
		return plugin.HealthStatus{Status: "unhealthy", Message: "no generation backend reachable; serving fallback content", Details: details}
	default:
		return plugin.HealthStatus{Status: "degraded", Message: "some generation backends unreachable", Details: details}
	}
}

// Chain implements roles.LLMProvider.
func (m *Module) Chain(specs ...pkgllm.ModelSpec) pkgllm.Invoker {
	return m.currentChain().derive(specs)
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/health", Handler: m.handleHealth},
		{Method: "GET", Path: "/backends", Handler: m.handleBackends},
		{Method: "POST", Path: "/generate", Handler: m.handleGenerate},
	}
}

func (m *Module) currentChain() *Chain {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.chain == nil {
		return NewChain(nil, m.logger)
	}
	return m.chain
}

func (m *Module) setChain(c *Chain) {
	m.mu.Lock()
	m.chain = c
	m.mu.Unlock()
}

// probe heartbeats every backend. Backends sharing a provider instance are
// probed once.
func (m *Module) probe(ctx context.Context) []BackendStatus {
	backends := m.currentChain().Backends()
	out := make([]BackendStatus, 0, len(backends))
	seen := make(map[pkgllm.Provider]BackendStatus)

	for _, b := range backends {
		st := BackendStatus{Name: b.Name, Model: b.Model, Timeout: b.Timeout.String()}
		if prev, ok := seen[b.Provider]; ok {
			st.Reachable, st.Error, st.Models = prev.Reachable, prev.Error, prev.Models
			out = append(out, st)
			continue
		}

		hr, ok := b.Provider.(pkgllm.HealthReporter)
		if !ok {
			st.Reachable = true
		} else {
			hctx, cancel := context.WithTimeout(ctx, heartbeatTimeout)
			if err := hr.Heartbeat(hctx); err != nil {
				st.Error = err.Error()
			} else {
				st.Reachable = true
				if models, err := hr.ListModels(hctx); err == nil {
					st.Models = models
				}
			}
			cancel()
		}
		seen[b.Provider] = st
		out = append(out, st)
	}
	return out
}
