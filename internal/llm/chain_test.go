package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	pkgllm "github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/llm/llmtest"
	"go.uber.org/zap"
)

func unavailable() error {
	return pkgllm.NewProviderError(pkgllm.ErrCodeUnavailable, "connection refused", nil)
}

func TestChain_FirstSuccessWins(t *testing.T) {
	primary := llmtest.NewMock("llama3", "from primary")
	fallback := llmtest.NewMock("mistral", "from fallback")
	c := NewChain([]Backend{
		{Name: "primary", Model: "llama3:latest", Timeout: time.Second, Provider: primary},
		{Name: "fallback", Model: "mistral:latest", Timeout: time.Second, Provider: fallback},
	}, zap.NewNop())

	reply, err := c.Invoke(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if reply.Text != "from primary" || reply.Backend != "primary" {
		t.Errorf("reply = %+v, want primary", reply)
	}
	if reply.Model != "llama3:latest" {
		t.Errorf("Model = %q, want llama3:latest", reply.Model)
	}
	if fallback.Calls() != 0 {
		t.Errorf("fallback calls = %d, want 0", fallback.Calls())
	}
}

func TestChain_AdvancesOnFailureAndTimeout(t *testing.T) {
	failing := llmtest.NewFailingMock("a", unavailable())
	slow := &llmtest.Mock{Name: "b", Replies: []llmtest.Reply{{Content: "late", Delay: time.Second}}}
	ok := llmtest.NewMock("c", "third")

	c := NewChain([]Backend{
		{Name: "a", Provider: failing, Timeout: time.Second},
		{Name: "b", Provider: slow, Timeout: 20 * time.Millisecond},
		{Name: "c", Provider: ok, Timeout: time.Second},
	}, zap.NewNop())

	reply, err := c.Invoke(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if reply.Backend != "c" || reply.Text != "third" {
		t.Errorf("reply = %+v, want backend c", reply)
	}
	for name, m := range map[string]*llmtest.Mock{"a": failing, "b": slow, "c": ok} {
		if m.Calls() != 1 {
			t.Errorf("backend %s calls = %d, want exactly 1", name, m.Calls())
		}
	}
}

func TestChain_Exhausted(t *testing.T) {
	c := NewChain([]Backend{
		{Name: "a", Provider: llmtest.NewFailingMock("a", unavailable())},
		{Name: "b", Provider: llmtest.NewFailingMock("b", unavailable())},
	}, zap.NewNop())

	_, err := c.Invoke(context.Background(), "hi")
	if !errors.Is(err, pkgllm.ErrAllBackendsUnavailable) {
		t.Errorf("Invoke() error = %v, want ErrAllBackendsUnavailable", err)
	}
}

func TestChain_ParentCancelStops(t *testing.T) {
	second := llmtest.NewMock("b", "never")
	c := NewChain([]Backend{
		{Name: "a", Provider: llmtest.NewFailingMock("a", unavailable())},
		{Name: "b", Provider: second},
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Invoke(ctx, "hi")
	if !errors.Is(err, pkgllm.ErrAllBackendsUnavailable) || !errors.Is(err, context.Canceled) {
		t.Errorf("Invoke() error = %v, want unavailable wrapping context.Canceled", err)
	}
	if second.Calls() != 0 {
		t.Errorf("second backend called %d times after cancel", second.Calls())
	}
}

func TestChain_OptionOrder(t *testing.T) {
	m := llmtest.NewMock("m", "x")
	c := NewChain([]Backend{{
		Name:     "primary",
		Model:    "llama3:latest",
		Provider: m,
		Defaults: []pkgllm.CallOption{pkgllm.WithTemperature(0.2), pkgllm.WithMaxTokens(100)},
	}}, zap.NewNop())

	_, err := c.InvokeChat(context.Background(),
		[]pkgllm.Message{{Role: pkgllm.RoleUser, Content: "q"}},
		pkgllm.WithTemperature(0.7), pkgllm.WithModel("ignored"))
	if err != nil {
		t.Fatalf("InvokeChat() error = %v", err)
	}
	cfg := m.LastConfig()
	if cfg.Temperature != 0.7 {
		t.Errorf("Temperature = %v, caller option should override backend default", cfg.Temperature)
	}
	if cfg.MaxTokens != 100 {
		t.Errorf("MaxTokens = %d, want backend default 100", cfg.MaxTokens)
	}
	if cfg.Model != "llama3:latest" {
		t.Errorf("Model = %q, backend model must win", cfg.Model)
	}
}

func TestChain_Derive(t *testing.T) {
	m := llmtest.NewMock("m", "x")
	base := NewChain([]Backend{{Name: "primary", Kind: KindOllama, Model: "llama3:latest", Timeout: 45 * time.Second, Provider: m}}, zap.NewNop())

	d := base.derive([]pkgllm.ModelSpec{{Model: "llama3:latest"}, {Model: "mistral:instruct", Timeout: 10 * time.Second}})
	got := d.Backends()
	if len(got) != 2 {
		t.Fatalf("derived backends = %d, want 2", len(got))
	}
	if got[0].Timeout != 45*time.Second {
		t.Errorf("derived timeout = %v, want inherited 45s", got[0].Timeout)
	}
	if got[1].Name != "mistral:instruct" || got[1].Provider != pkgllm.Provider(m) || got[1].Timeout != 10*time.Second {
		t.Errorf("derived backend = %+v", got[1])
	}
	if base.derive(nil) != base {
		t.Error("derive(nil) should return the same chain")
	}
}

func TestChain_DeriveKeepsConfiguredOrder(t *testing.T) {
	local := llmtest.NewMock("local", "x")
	local2 := llmtest.NewMock("local2", "x")
	cloud := llmtest.NewMock("cloud", "x")
	base := NewChain([]Backend{
		{Name: "primary", Kind: KindOllama, Endpoint: "http://localhost:11434", Model: "llama3:latest", Provider: local},
		{Name: "fallback", Kind: KindOllama, Endpoint: "http://localhost:11434", Model: "mistral:latest", Provider: local2},
		{Name: "cloud", Kind: "openai", Model: "gpt-4o-mini", Provider: cloud},
	}, zap.NewNop())

	tests := []struct {
		name   string
		specs  []pkgllm.ModelSpec
		models []string
	}{
		{"specs cover every local model", []pkgllm.ModelSpec{{Model: "llama3:latest"}, {Model: "mistral:latest"}},
			[]string{"llama3:latest", "mistral:latest", "gpt-4o-mini"}},
		{"uncovered local model kept", []pkgllm.ModelSpec{{Model: "phi3:mini"}},
			[]string{"phi3:mini", "mistral:latest", "gpt-4o-mini"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := base.derive(tt.specs).Backends()
			models := make([]string, len(got))
			for i := range got {
				models[i] = got[i].Model
			}
			if len(models) != len(tt.models) {
				t.Fatalf("models = %v, want %v", models, tt.models)
			}
			for i := range models {
				if models[i] != tt.models[i] {
					t.Fatalf("models = %v, want %v", models, tt.models)
				}
			}
			if last := got[len(got)-1]; last.Name != "cloud" || last.Provider != pkgllm.Provider(cloud) {
				t.Errorf("cloud backend = %+v, want configured entry unchanged", last)
			}
		})
	}
}

func TestChain_DeriveLeavesCloudModels(t *testing.T) {
	cloud := llmtest.NewMock("cloud", "answer")
	base := NewChain([]Backend{{Name: "cloud", Kind: "openai", Model: "gpt-4o-mini", Provider: cloud}}, zap.NewNop())

	reply, err := base.derive([]pkgllm.ModelSpec{{Model: "llama3:latest"}}).Invoke(context.Background(), "hi")
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if reply.Backend != "cloud" {
		t.Errorf("Backend = %q, want cloud", reply.Backend)
	}
	if got := cloud.LastConfig().Model; got != "gpt-4o-mini" {
		t.Errorf("Model = %q, an OpenAI backend must keep its configured model", got)
	}
}

func TestModuleChain_SecondaryServesWhenPrimaryDown(t *testing.T) {
	tests := []struct {
		name string
		kind string
	}{
		{"ollama primary", KindOllama},
		{"untyped primary", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			secondary := llmtest.NewMock("secondary", "from secondary")
			m := New()
			m.logger = zap.NewNop()
			m.setChain(NewChain([]Backend{
				{Name: "primary", Kind: tt.kind, Model: "llama3:latest", Provider: llmtest.NewFailingMock("primary", unavailable())},
				{Name: "secondary", Kind: "anthropic", Model: "claude-3-5-haiku-latest", Provider: secondary},
			}, zap.NewNop()))

			inv := m.Chain(pkgllm.ModelSpec{Model: "llama3:latest"}, pkgllm.ModelSpec{Model: "mistral:latest"})
			reply, err := inv.Invoke(context.Background(), "hi")
			if err != nil {
				t.Fatalf("Invoke() error = %v", err)
			}
			if reply.Backend != "secondary" || reply.Text != "from secondary" {
				t.Errorf("reply = %+v, want secondary", reply)
			}
			if secondary.Calls() != 1 {
				t.Errorf("secondary calls = %d, want 1", secondary.Calls())
			}
		})
	}
}
