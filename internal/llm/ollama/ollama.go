package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

var (
	_ llm.Provider       = (*Provider)(nil)
	_ llm.HealthReporter = (*Provider)(nil)
)

// Provider implements llm.Provider on top of the Ollama API client.
type Provider struct {
	client *api.Client
	cfg    Config
	logger *zap.Logger
}

// New creates an Ollama provider. It does not verify connectivity; call
// Heartbeat for an early health check.
func New(cfg Config, logger *zap.Logger) (*Provider, error) {
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ollama url %q: %w", cfg.URL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("parse ollama url %q: missing scheme or host", cfg.URL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Provider{
		client: api.NewClient(base, &http.Client{Timeout: cfg.Timeout}),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Generate creates a completion from a single prompt via /api/generate.
func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.CallOption) (*llm.Response, error) {
	cfg := llm.ApplyOptions(opts...)
	model := p.model(cfg)

	req := &api.GenerateRequest{
		Model:   model,
		Prompt:  prompt,
		System:  cfg.System,
		Stream:  streamFlag(cfg),
		Options: buildOptions(cfg),
	}
	if cfg.JSONFormat {
		req.Format = json.RawMessage(`"json"`)
	}

	var content strings.Builder
	var final api.GenerateResponse
	err := p.client.Generate(ctx, req, func(chunk api.GenerateResponse) error {
		if chunk.Response != "" {
			content.WriteString(chunk.Response)
			if cfg.StreamFunc != nil {
				if err := cfg.StreamFunc(ctx, []byte(chunk.Response)); err != nil {
					return err
				}
			}
		}
		if chunk.Done {
			final = chunk
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	p.logger.Debug("ollama generate complete",
		zap.String("model", model),
		zap.Int("eval_count", final.EvalCount),
		zap.Duration("total_duration", final.TotalDuration),
	)
	return &llm.Response{
		Content: content.String(),
		Model:   model,
		Usage:   llm.NewUsage(final.PromptEvalCount, final.EvalCount),
		Done:    final.Done,
	}, nil
}

// Chat creates a completion from a conversation via /api/chat.
func (p *Provider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	if len(messages) == 0 {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)
	}
	cfg := llm.ApplyOptions(opts...)
	model := p.model(cfg)

	apiMessages := make([]api.Message, 0, len(messages)+1)
	if cfg.System != "" {
		apiMessages = append(apiMessages, api.Message{Role: llm.RoleSystem, Content: cfg.System})
	}
	for _, m := range messages {
		apiMessages = append(apiMessages, api.Message{Role: m.Role, Content: m.Content})
	}

	req := &api.ChatRequest{
		Model:    model,
		Messages: apiMessages,
		Stream:   streamFlag(cfg),
		Options:  buildOptions(cfg),
	}
	if cfg.JSONFormat {
		req.Format = json.RawMessage(`"json"`)
	}

	var content strings.Builder
	var final api.ChatResponse
	err := p.client.Chat(ctx, req, func(chunk api.ChatResponse) error {
		if chunk.Message.Content != "" {
			content.WriteString(chunk.Message.Content)
			if cfg.StreamFunc != nil {
				if err := cfg.StreamFunc(ctx, []byte(chunk.Message.Content)); err != nil {
					return err
				}
			}
		}
		if chunk.Done {
			final = chunk
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &llm.Response{
		Content: content.String(),
		Model:   model,
		Usage:   llm.NewUsage(final.PromptEvalCount, final.EvalCount),
		Done:    final.Done,
	}, nil
}

// Heartbeat checks whether the Ollama daemon is reachable.
func (p *Provider) Heartbeat(ctx context.Context) error {
	return mapError(p.client.Heartbeat(ctx))
}

// ListModels returns the names of locally pulled models.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	resp, err := p.client.List(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	names := make([]string, len(resp.Models))
	for i := range resp.Models {
		names[i] = resp.Models[i].Name
	}
	return names, nil
}

func (p *Provider) model(cfg llm.CallConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return p.cfg.Model
}

// streamFlag returns nil (Ollama's default, streaming) when the caller
// wants chunks, and an explicit false otherwise.
func streamFlag(cfg llm.CallConfig) *bool {
	if cfg.StreamFunc != nil {
		return nil
	}
	noStream := false
	return &noStream
}

// buildOptions converts CallConfig fields into Ollama's options map.
func buildOptions(cfg llm.CallConfig) map[string]any {
	opts := make(map[string]any)
	if cfg.Temperature > 0 {
		opts["temperature"] = cfg.Temperature
	}
	if cfg.TopP > 0 {
		opts["top_p"] = cfg.TopP
	}
	if cfg.MaxTokens > 0 {
		opts["num_predict"] = cfg.MaxTokens
	}
	return opts
}
