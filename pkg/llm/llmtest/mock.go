package llmtest

import (
	"context"
	"sync"
	"time"

	"github.com/HerbHall/studyforge/pkg/llm"
)

// Reply is one scripted outcome for Mock.
type Reply struct {
	Content string
	Err     error
	Delay   time.Duration // honours context cancellation
}

// Mock is a concurrency-safe scripted llm.Provider. Calls consume Replies
// in order; once exhausted the last reply repeats. A Mock with no replies
// returns "ok".
type Mock struct {
	Name    string
	Replies []Reply

	mu      sync.Mutex
	calls   int
	prompts []string
	configs []llm.CallConfig
}

var _ llm.Provider = (*Mock)(nil)

// NewMock returns a Mock answering every call with content.
func NewMock(name, content string) *Mock {
	return &Mock{Name: name, Replies: []Reply{{Content: content}}}
}

// NewFailingMock returns a Mock failing every call with err.
func NewFailingMock(name string, err error) *Mock {
	return &Mock{Name: name, Replies: []Reply{{Err: err}}}
}

// Generate implements llm.Provider.
func (m *Mock) Generate(ctx context.Context, prompt string, opts ...llm.CallOption) (*llm.Response, error) {
	return m.respond(ctx, prompt, opts)
}

// Chat implements llm.Provider. The prompt recorded is the last message.
func (m *Mock) Chat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (*llm.Response, error) {
	if len(messages) == 0 {
		return nil, llm.NewProviderError(llm.ErrCodeInvalidRequest, "messages must not be empty", nil)
	}
	return m.respond(ctx, messages[len(messages)-1].Content, opts)
}

func (m *Mock) respond(ctx context.Context, prompt string, opts []llm.CallOption) (*llm.Response, error) {
	cfg := llm.ApplyOptions(opts...)

	m.mu.Lock()
	reply := Reply{Content: "ok"}
	if n := len(m.Replies); n > 0 {
		reply = m.Replies[min(m.calls, n-1)]
	}
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.configs = append(m.configs, cfg)
	m.mu.Unlock()

	if reply.Delay > 0 {
		select {
		case <-time.After(reply.Delay):
		case <-ctx.Done():
			return nil, llm.NewProviderError(llm.ErrCodeTimeout, "request timed out or cancelled", ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, llm.NewProviderError(llm.ErrCodeTimeout, "request timed out or cancelled", err)
	}
	if reply.Err != nil {
		return nil, reply.Err
	}
	if cfg.StreamFunc != nil {
		if err := cfg.StreamFunc(ctx, []byte(reply.Content)); err != nil {
			return nil, err
		}
	}

	model := cfg.Model
	if model == "" {
		model = m.Name
	}
	return &llm.Response{Content: reply.Content, Model: model, Done: true}, nil
}

// Calls returns how many times the mock was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Prompts returns the prompts received, in call order.
func (m *Mock) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

// LastConfig returns the resolved options of the most recent call.
func (m *Mock) LastConfig() llm.CallConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.configs) == 0 {
		return llm.CallConfig{}
	}
	return m.configs[len(m.configs)-1]
}
