// Package llm provides the provider-neutral types for text generation
// backends. Implementations live in internal/llm/{ollama,openai,anthropic}.
package llm

import "context"

// Provider is implemented by every generation backend. It exposes
// single-prompt generation and multi-turn chat completion.
type Provider interface {
	// Generate creates a completion from a single prompt.
	Generate(ctx context.Context, prompt string, opts ...CallOption) (*Response, error)

	// Chat creates a completion from a conversation history.
	Chat(ctx context.Context, messages []Message, opts ...CallOption) (*Response, error)
}

// HealthReporter is optionally implemented by providers that can report
// connection health and model availability. Detected via type assertion.
type HealthReporter interface {
	Heartbeat(ctx context.Context) error
	ListModels(ctx context.Context) ([]string, error)
}

// CallOption configures a single Generate or Chat call.
type CallOption func(*CallConfig)

// CallConfig holds the resolved configuration for a single call.
// Zero values for TopP and MaxTokens mean "provider default".
type CallConfig struct {
	Model       string
	System      string
	Temperature float64
	TopP        float64
	MaxTokens   int
	JSONFormat  bool
	StreamFunc  func(ctx context.Context, chunk []byte) error
}

// WithModel sets the model for this call, overriding the provider default.
func WithModel(model string) CallOption {
	return func(c *CallConfig) { c.Model = model }
}

// WithSystem sets a system prompt for Generate calls.
func WithSystem(system string) CallOption {
	return func(c *CallConfig) { c.System = system }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temp float64) CallOption {
	return func(c *CallConfig) { c.Temperature = temp }
}

// WithTopP sets nucleus sampling.
func WithTopP(p float64) CallOption {
	return func(c *CallConfig) { c.TopP = p }
}

// WithMaxTokens sets the maximum number of tokens to generate.
func WithMaxTokens(max int) CallOption {
	return func(c *CallConfig) { c.MaxTokens = max }
}

// WithJSONFormat asks providers that support it to constrain output to
// JSON. Callers must still tolerate prose around the payload.
func WithJSONFormat() CallOption {
	return func(c *CallConfig) { c.JSONFormat = true }
}

// WithStreamFunc enables streaming mode. fn is called for each chunk;
// a non-nil error aborts the stream.
func WithStreamFunc(fn func(ctx context.Context, chunk []byte) error) CallOption {
	return func(c *CallConfig) { c.StreamFunc = fn }
}

// ApplyOptions creates a CallConfig from options, starting from defaults.
func ApplyOptions(opts ...CallOption) CallConfig {
	cfg := CallConfig{
		Temperature: 0.7,
		MaxTokens:   2048,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
