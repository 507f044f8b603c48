package llm

import (
	"context"
	"errors"
	"time"
)

// ErrAllBackendsUnavailable is returned by an Invoker when every backend in
// its chain failed, timed out or was unreachable.
var ErrAllBackendsUnavailable = errors.New("llm: all backends unavailable")

// Reply is the text produced by one successful backend call.
type Reply struct {
	Text    string        `json:"text"`
	Backend string        `json:"backend"`
	Model   string        `json:"model"`
	Elapsed time.Duration `json:"elapsed"`
	Usage   Usage         `json:"usage"`
}

// ModelSpec names a model and how long a single call to it may take.
type ModelSpec struct {
	Model   string
	Timeout time.Duration
}

// Invoker sends a prompt through an ordered chain of backends and returns
// the first successful reply. Each backend is attempted at most once.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, opts ...CallOption) (Reply, error)
	InvokeChat(ctx context.Context, messages []Message, opts ...CallOption) (Reply, error)
}
