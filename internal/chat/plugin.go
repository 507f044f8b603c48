// Package chat implements the teaching assistant: questions answered by the
// model with Wikipedia context, cached by normalized query, over plain HTTP
// or streamed through a WebSocket.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/HerbHall/studyforge/internal/cache"
	"github.com/HerbHall/studyforge/internal/config"
	"github.com/HerbHall/studyforge/internal/generation"
	"github.com/HerbHall/studyforge/internal/webctx"
	"github.com/HerbHall/studyforge/internal/ws"
	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/HerbHall/studyforge/pkg/roles"
	"go.uber.org/zap"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module)(nil)
	_ plugin.HTTPProvider  = (*Module)(nil)
	_ plugin.HealthChecker = (*Module)(nil)
)

const (
	systemPrompt = "You are a helpful educational assistant that explains concepts clearly and accurately. " +
		"Always provide accurate information and explain concepts in a way that's easy to understand."
	defaultModelTimeout = 30 * time.Second
	defaultFetchTimeout = 10 * time.Second
	defaultConcurrency  = 3
)

var defaultModels = []string{"llama3:latest", "mistral:instruct", "mistral:latest"}

// Module implements the chat plugin.
type Module struct {
	logger       *zap.Logger
	bus          plugin.EventBus
	pipeline     *generation.Pipeline
	cache        *cache.Cache
	cacheBackend string
	gatherer     *webctx.Gatherer
	stream       *ws.Handler
	models       []string
	modelBacked  bool
}

// New creates a new chat plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "chat",
		Version:      "0.2.0",
		Description:  "Teaching assistant answering questions with cited web context",
		Dependencies: []string{"llm"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(ctx context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.bus = deps.Bus

	store, err := m.openCache(ctx, deps.Config)
	if err != nil {
		return fmt.Errorf("chat: %w", err)
	}
	m.cache = cache.New(store, m.logger.Named("cache"))

	if config.BoolOr(deps.Config, "web_context.enabled", true) {
		timeout := config.DurationOr(deps.Config, "web_context.timeout", defaultFetchTimeout)
		m.gatherer = webctx.NewGatherer(
			webctx.NewHTTPFetcher(timeout),
			config.IntOr(deps.Config, "web_context.max_concurrent", defaultConcurrency),
			timeout,
			m.logger,
		)
	}

	m.models = modelList(deps.Config)
	var invoker llm.Invoker
	if p := roles.ResolveLLM(deps.Plugins); p != nil {
		timeout := config.DurationOr(deps.Config, "model_timeout", defaultModelTimeout)
		specs := make([]llm.ModelSpec, len(m.models))
		for i, name := range m.models {
			specs[i] = llm.ModelSpec{Model: name, Timeout: timeout}
		}
		invoker = p.Chain(specs...)
		m.modelBacked = true
	} else {
		m.logger.Warn("no llm provider available; chat will answer with an apology")
	}

	m.pipeline = generation.NewPipeline(invoker, FallbackTable(),
		generation.WithLogger(m.logger),
		generation.WithCallOptions(
			llm.WithSystem(systemPrompt),
			llm.WithTemperature(0.7),
			llm.WithTopP(0.9),
			llm.WithMaxTokens(1024),
		),
	)

	var origins []string
	if s := config.StringOr(deps.Config, "stream.origins", ""); s != "" {
		origins = strings.Split(s, ",")
	}
	m.stream = ws.NewHandler(m.serveStream, origins, m.logger.Named("ws"))

	m.logger.Info("chat plugin initialized",
		zap.String("cache", m.cacheBackend),
		zap.Bool("web_context", m.gatherer != nil),
		zap.Bool("model_backed", m.modelBacked),
	)
	return nil
}

// openCache builds the configured response store. Redis is used when
// cache.backend is "redis"; anything else selects the in-process store.
func (m *Module) openCache(ctx context.Context, cfg plugin.Config) (cache.Store, error) {
	ttl := config.DurationOr(cfg, "cache.ttl", cache.DefaultTTL)
	switch backend := config.StringOr(cfg, "cache.backend", "memory"); backend {
	case "redis":
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		store, err := cache.DialRedis(dialCtx,
			config.StringOr(cfg, "cache.redis.addr", "localhost:6379"),
			config.StringOr(cfg, "cache.redis.password", ""),
			config.IntOr(cfg, "cache.redis.db", 0),
			ttl,
		)
		if err != nil {
			return nil, err
		}
		m.cacheBackend = backend
		return store, nil
	case "memory", "":
		m.cacheBackend = "memory"
		return cache.NewMemory(ttl, config.IntOr(cfg, "cache.max_entries", cache.DefaultMaxEntries)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

func modelList(cfg plugin.Config) []string {
	s := config.StringOr(cfg, "models", "")
	if s == "" {
		return defaultModels
	}
	var out []string
	for _, name := range strings.Split(s, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	if len(out) == 0 {
		return defaultModels
	}
	return out
}

func (m *Module) Start(_ context.Context) error { return nil }

// Stop tells streaming clients the server is going away.
func (m *Module) Stop(_ context.Context) error {
	if m.stream != nil {
		m.stream.Shutdown()
	}
	m.logger.Info("chat plugin stopped")
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module) Health(_ context.Context) plugin.HealthStatus {
	details := map[string]string{
		"cache":          m.cacheBackend,
		"stream_clients": fmt.Sprint(m.stream.Hub().ClientCount()),
	}
	if !m.modelBacked {
		return plugin.HealthStatus{Status: "degraded", Message: "no llm provider", Details: details}
	}
	return plugin.HealthStatus{Status: "healthy", Details: details}
}

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "", Handler: m.handleChat},
		{Method: "GET", Path: "/stream", Handler: m.stream.ServeHTTP},
		{Method: "GET", Path: "/suggestions", Handler: m.handleSuggestions},
		{Method: "GET", Path: "/topics", Handler: m.handleTopics},
		{Method: "GET", Path: "/status", Handler: m.handleStatus},
		{Method: "GET", Path: "/{message}", Handler: m.handleChatGet},
	}
}

// Answer returns the response to query, from the cache when an earlier
// answer is still fresh. onToken, when set, receives model output as it is
// produced; cached answers are not replayed through it. Identical
// concurrent queries share one computation.
func (m *Module) Answer(ctx context.Context, query, userID string, onToken TokenFunc) Response {
	query = strings.TrimSpace(query)

	var out outcome
	full, cached, err := m.cache.GetOrCompute(ctx, query, func(ctx context.Context) (string, bool, error) {
		out = m.compute(ctx, query, onToken)
		return out.full, !out.usedFallback, nil
	})
	if err != nil {
		m.logger.Warn("chat cache lookup failed", zap.Error(err))
		full, out = Apology, outcome{full: Apology, usedFallback: true, computed: true}
	}
	if !cached && !out.computed {
		// Shared with a concurrent identical query.
		out.usedFallback = full == Apology
	}

	resp := Response{
		Success:      true,
		Response:     SplitSources(full),
		Query:        query,
		Cached:       cached,
		UsedFallback: !cached && out.usedFallback,
		BackendUsed:  out.backend,
	}
	m.publish(ctx, AnsweredEvent{
		UserID:       firstNonEmpty(userID, AnonymousUser),
		Query:        query,
		Answer:       resp.Response.Answer,
		Sources:      resp.Response.Sources,
		Cached:       cached,
		UsedFallback: resp.UsedFallback,
		BackendUsed:  derefOr(out.backend, ""),
	})
	return resp
}

// Status reports the service configuration and live counters.
func (m *Module) Status(ctx context.Context) Status {
	st := Status{
		Service:        "chat",
		Status:         "running",
		ModelAvailable: m.modelBacked,
		Models:         m.models,
		WebContext:     m.gatherer != nil,
		CacheBackend:   m.cacheBackend,
		CacheEntries:   m.cache.Len(ctx),
		StreamClients:  m.stream.Hub().ClientCount(),
		Features:       features,
		Capabilities:   capabilities,
	}
	if !m.modelBacked {
		st.Status = "degraded"
	}
	return st
}

func (m *Module) publish(ctx context.Context, payload AnsweredEvent) {
	if m.bus == nil {
		return
	}
	m.bus.PublishAsync(ctx, plugin.Event{
		Topic:     TopicAnswered,
		Source:    "chat",
		Timestamp: time.Now(),
		Payload:   payload,
	})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func derefOr(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
