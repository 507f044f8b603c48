package llmtest

import (
	"context"

	"github.com/HerbHall/studyforge/pkg/llm"
)

var _ llm.Invoker = (*Invoker)(nil)

// Invoker is an llm.Invoker backed by a single Mock. A failing reply is
// reported as llm.ErrAllBackendsUnavailable, as a chain would after
// exhausting its backends.
type Invoker struct {
	Backend string
	Mock    *Mock
}

// NewInvoker returns an Invoker answering every call with content.
func NewInvoker(content string) *Invoker {
	return &Invoker{Backend: "mock", Mock: NewMock("mock-model", content)}
}

// NewUnavailableInvoker returns an Invoker whose every call fails.
func NewUnavailableInvoker() *Invoker {
	return &Invoker{
		Backend: "mock",
		Mock:    NewFailingMock("mock-model", llm.NewProviderError(llm.ErrCodeUnavailable, "connection refused", nil)),
	}
}

// Invoke implements llm.Invoker.
func (i *Invoker) Invoke(ctx context.Context, prompt string, opts ...llm.CallOption) (llm.Reply, error) {
	return i.reply(i.Mock.Generate(ctx, prompt, opts...))
}

// InvokeChat implements llm.Invoker.
func (i *Invoker) InvokeChat(ctx context.Context, messages []llm.Message, opts ...llm.CallOption) (llm.Reply, error) {
	return i.reply(i.Mock.Chat(ctx, messages, opts...))
}

// Calls returns how many invocations were made.
func (i *Invoker) Calls() int { return i.Mock.Calls() }

func (i *Invoker) reply(resp *llm.Response, err error) (llm.Reply, error) {
	if err != nil {
		return llm.Reply{}, llm.ErrAllBackendsUnavailable
	}
	return llm.Reply{Text: resp.Content, Backend: i.Backend, Model: resp.Model, Usage: resp.Usage}, nil
}
