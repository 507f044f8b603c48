package llm

import (
	"context"
	"fmt"
	"time"

	pkgllm "github.com/HerbHall/studyforge/pkg/llm"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var _ pkgllm.Invoker = (*Chain)(nil)

var backendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "studyforge_backend_duration_seconds",
		Help:    "Duration of generation backend calls, successful or not.",
		Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 45, 60},
	},
	[]string{"backend"},
)

func init() {
	prometheus.MustRegister(backendDuration)
}

// KindOllama marks backends served by an Ollama runtime. Only these accept
// the per-feature model names plugins ask for.
const KindOllama = "ollama"

// Backend is one entry of an invocation chain.
type Backend struct {
	Name     string
	Model    string
	Timeout  time.Duration
	Provider pkgllm.Provider
	// Kind is the provider type ("ollama", "openai", "anthropic").
	Kind string
	// Endpoint is the runtime base URL, when known.
	Endpoint string
	// Defaults are applied before the caller's options.
	Defaults []pkgllm.CallOption
}

// Chain tries its backends in order and returns the first successful reply.
// Backends are never raced and each gets exactly one attempt.
type Chain struct {
	backends []Backend
	logger   *zap.Logger
}

// NewChain creates a chain over backends in priority order.
func NewChain(backends []Backend, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{backends: backends, logger: logger}
}

// Backends returns the chain entries in priority order.
func (c *Chain) Backends() []Backend {
	out := make([]Backend, len(c.backends))
	copy(out, c.backends)
	return out
}

// Invoke sends a single prompt.
func (c *Chain) Invoke(ctx context.Context, prompt string, opts ...pkgllm.CallOption) (pkgllm.Reply, error) {
	return c.run(ctx, opts, func(ctx context.Context, p pkgllm.Provider, opts []pkgllm.CallOption) (*pkgllm.Response, error) {
		return p.Generate(ctx, prompt, opts...)
	})
}

// InvokeChat sends a conversation.
func (c *Chain) InvokeChat(ctx context.Context, messages []pkgllm.Message, opts ...pkgllm.CallOption) (pkgllm.Reply, error) {
	return c.run(ctx, opts, func(ctx context.Context, p pkgllm.Provider, opts []pkgllm.CallOption) (*pkgllm.Response, error) {
		return p.Chat(ctx, messages, opts...)
	})
}

type callFunc func(ctx context.Context, p pkgllm.Provider, opts []pkgllm.CallOption) (*pkgllm.Response, error)

func (c *Chain) run(ctx context.Context, opts []pkgllm.CallOption, call callFunc) (pkgllm.Reply, error) {
	for _, b := range c.backends {
		if err := ctx.Err(); err != nil {
			return pkgllm.Reply{}, fmt.Errorf("%w: %w", pkgllm.ErrAllBackendsUnavailable, err)
		}

		callOpts := make([]pkgllm.CallOption, 0, len(b.Defaults)+len(opts)+1)
		callOpts = append(callOpts, b.Defaults...)
		callOpts = append(callOpts, opts...)
		if b.Model != "" {
			callOpts = append(callOpts, pkgllm.WithModel(b.Model))
		}

		callCtx, cancel := ctx, context.CancelFunc(func() {})
		if b.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, b.Timeout)
		}
		start := time.Now()
		resp, err := call(callCtx, b.Provider, callOpts)
		cancel()
		elapsed := time.Since(start)
		backendDuration.WithLabelValues(b.Name).Observe(elapsed.Seconds())

		if err != nil {
			c.logger.Warn("backend failed, trying next",
				zap.String("backend", b.Name),
				zap.String("model", b.Model),
				zap.String("code", pkgllm.Code(err)),
				zap.Duration("elapsed", elapsed),
				zap.Error(err),
			)
			continue
		}

		c.logger.Debug("backend replied",
			zap.String("backend", b.Name),
			zap.Duration("elapsed", elapsed),
			zap.Int("chars", len(resp.Content)),
		)
		model := resp.Model
		if model == "" {
			model = b.Model
		}
		return pkgllm.Reply{
			Text:    resp.Content,
			Backend: b.Name,
			Model:   model,
			Elapsed: elapsed,
			Usage:   resp.Usage,
		}, nil
	}
	return pkgllm.Reply{}, pkgllm.ErrAllBackendsUnavailable
}

// derive builds a per-feature chain. Configured backends keep their order.
// Each distinct Ollama runtime is expanded in place into one entry per spec,
// inheriting the runtime's timeout when a spec has none; further entries on
// an expanded runtime are kept only for models no spec already covers.
// Other providers keep their configured model.
func (c *Chain) derive(specs []pkgllm.ModelSpec) *Chain {
	if len(specs) == 0 || len(c.backends) == 0 {
		return c
	}
	type runtimeKey struct {
		endpoint string
		provider pkgllm.Provider
	}
	keyOf := func(b Backend) runtimeKey {
		if b.Endpoint != "" {
			return runtimeKey{endpoint: b.Endpoint}
		}
		return runtimeKey{provider: b.Provider}
	}

	expanded := make(map[runtimeKey]map[string]bool)
	backends := make([]Backend, 0, len(c.backends)+len(specs))
	for _, b := range c.backends {
		if b.Kind != KindOllama {
			backends = append(backends, b)
			continue
		}
		key := keyOf(b)
		if models, ok := expanded[key]; ok {
			if !models[b.Model] {
				models[b.Model] = true
				backends = append(backends, b)
			}
			continue
		}
		models := make(map[string]bool, len(specs))
		expanded[key] = models
		for _, s := range specs {
			if models[s.Model] {
				continue
			}
			models[s.Model] = true
			timeout := s.Timeout
			if timeout == 0 {
				timeout = b.Timeout
			}
			backends = append(backends, Backend{
				Name:     s.Model,
				Model:    s.Model,
				Timeout:  timeout,
				Provider: b.Provider,
				Kind:     b.Kind,
				Endpoint: b.Endpoint,
				Defaults: b.Defaults,
			})
		}
	}
	return &Chain{backends: backends, logger: c.logger}
}
