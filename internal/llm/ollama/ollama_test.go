package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/llm/llmtest"
	"github.com/ollama/ollama/api"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, serverURL string) *Provider {
	t.Helper()
	p, err := New(Config{URL: serverURL, Model: "test-model", Timeout: 10 * time.Second}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

// recorder keeps the last decoded request bodies for assertions.
type recorder struct {
	mu       sync.Mutex
	generate api.GenerateRequest
	chat     api.ChatRequest
}

func mockOllama(t *testing.T, rec *recorder) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("GET /", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Ollama is running"))
	})

	mux.HandleFunc("POST /api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req api.GenerateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if rec != nil {
			rec.mu.Lock()
			rec.generate = req
			rec.mu.Unlock()
		}
		if req.Model == "missing-model" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "model 'missing-model' not found"})
			return
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		_ = enc.Encode(api.GenerateResponse{Model: req.Model, Response: "Hello "})
		_ = enc.Encode(api.GenerateResponse{
			Model:    req.Model,
			Response: "from Ollama!",
			Done:     true,
			Metrics:  api.Metrics{PromptEvalCount: 5, EvalCount: 4, TotalDuration: 100 * time.Millisecond},
		})
	})

	mux.HandleFunc("POST /api/chat", func(w http.ResponseWriter, r *http.Request) {
		var req api.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if rec != nil {
			rec.mu.Lock()
			rec.chat = req
			rec.mu.Unlock()
		}
		w.Header().Set("Content-Type", "application/x-ndjson")
		_ = json.NewEncoder(w).Encode(api.ChatResponse{
			Model:   req.Model,
			Message: api.Message{Role: "assistant", Content: "A variable stores a value."},
			Done:    true,
			Metrics: api.Metrics{PromptEvalCount: 10, EvalCount: 6},
		})
	})

	mux.HandleFunc("GET /api/tags", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(api.ListResponse{Models: []api.ListModelResponse{
			{Name: "llama3:latest", Model: "llama3:latest"},
			{Name: "mistral:latest", Model: "mistral:latest"},
		}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestContract(t *testing.T) {
	srv := mockOllama(t, nil)
	llmtest.TestProviderContract(t, func() llm.Provider { return newTestProvider(t, srv.URL) })
}

func TestNewInvalidURL(t *testing.T) {
	for _, raw := range []string{"://bad", "localhost"} {
		if _, err := New(Config{URL: raw}, nil); err == nil {
			t.Errorf("New(%q) should fail", raw)
		}
	}
}

func TestGenerateAccumulatesChunks(t *testing.T) {
	srv := mockOllama(t, nil)
	p := newTestProvider(t, srv.URL)

	resp, err := p.Generate(context.Background(), "Hello")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if resp.Content != "Hello from Ollama!" {
		t.Errorf("Content = %q, want %q", resp.Content, "Hello from Ollama!")
	}
	if resp.Model != "test-model" {
		t.Errorf("Model = %q, want test-model", resp.Model)
	}
	if !resp.Done {
		t.Error("Done = false, want true")
	}
	if resp.Usage.TotalTokens != 9 {
		t.Errorf("TotalTokens = %d, want 9", resp.Usage.TotalTokens)
	}
}

func TestGenerateForwardsOptions(t *testing.T) {
	rec := &recorder{}
	srv := mockOllama(t, rec)
	p := newTestProvider(t, srv.URL)

	_, err := p.Generate(context.Background(), "Explain recursion",
		llm.WithModel("llama3:latest"),
		llm.WithSystem("You are a tutor."),
		llm.WithTemperature(0.7),
		llm.WithTopP(0.9),
		llm.WithMaxTokens(2000),
		llm.WithJSONFormat(),
	)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	got := rec.generate
	if got.Model != "llama3:latest" || got.System != "You are a tutor." {
		t.Errorf("model/system = %q/%q", got.Model, got.System)
	}
	if got.Stream == nil || *got.Stream {
		t.Error("non-streaming call should send stream=false")
	}
	if got.Options["top_p"] != 0.9 {
		t.Errorf("top_p = %v, want 0.9", got.Options["top_p"])
	}
	if got.Options["num_predict"] != float64(2000) {
		t.Errorf("num_predict = %v, want 2000", got.Options["num_predict"])
	}
	if string(got.Format) != `"json"` {
		t.Errorf("format = %s, want \"json\"", got.Format)
	}
}

func TestGenerateStreaming(t *testing.T) {
	srv := mockOllama(t, nil)
	p := newTestProvider(t, srv.URL)

	var chunks []string
	resp, err := p.Generate(context.Background(), "Hello",
		llm.WithStreamFunc(func(_ context.Context, chunk []byte) error {
			chunks = append(chunks, string(chunk))
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Errorf("chunks = %v, want 2", chunks)
	}
	if strings.Join(chunks, "") != resp.Content {
		t.Errorf("joined chunks %q != content %q", strings.Join(chunks, ""), resp.Content)
	}
}

func TestGenerateStreamAbort(t *testing.T) {
	srv := mockOllama(t, nil)
	p := newTestProvider(t, srv.URL)

	stop := errors.New("client went away")
	_, err := p.Generate(context.Background(), "Hello",
		llm.WithStreamFunc(func(context.Context, []byte) error { return stop }),
	)
	if !errors.Is(err, stop) {
		t.Errorf("error = %v, want wrapped stop", err)
	}
}

func TestGenerateModelNotFound(t *testing.T) {
	srv := mockOllama(t, nil)
	p := newTestProvider(t, srv.URL)

	_, err := p.Generate(context.Background(), "Hello", llm.WithModel("missing-model"))
	if !llm.IsModelNotFoundError(err) {
		t.Errorf("error = %v, want model not found", err)
	}
}

func TestChatPrependsSystem(t *testing.T) {
	rec := &recorder{}
	srv := mockOllama(t, rec)
	p := newTestProvider(t, srv.URL)

	resp, err := p.Chat(context.Background(),
		[]llm.Message{{Role: llm.RoleUser, Content: "What is a variable?"}},
		llm.WithSystem("You are a helpful educational assistant."),
	)
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Usage.PromptTokens != 10 || resp.Usage.CompletionTokens != 6 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.chat.Messages) != 2 || rec.chat.Messages[0].Role != llm.RoleSystem {
		t.Errorf("messages = %+v, want system then user", rec.chat.Messages)
	}
}

func TestChatEmptyMessages(t *testing.T) {
	p := newTestProvider(t, "http://127.0.0.1:1")
	_, err := p.Chat(context.Background(), nil)
	if llm.Code(err) != llm.ErrCodeInvalidRequest {
		t.Errorf("error = %v, want invalid request", err)
	}
}

func TestHeartbeatAndListModels(t *testing.T) {
	srv := mockOllama(t, nil)
	p := newTestProvider(t, srv.URL)

	if err := p.Heartbeat(context.Background()); err != nil {
		t.Errorf("Heartbeat() error = %v", err)
	}
	models, err := p.ListModels(context.Background())
	if err != nil {
		t.Fatalf("ListModels() error = %v", err)
	}
	if len(models) != 2 || models[0] != "llama3:latest" {
		t.Errorf("models = %v", models)
	}
}

func TestServerDownIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	p := newTestProvider(t, srv.URL)

	_, err := p.Generate(context.Background(), "Hello")
	if err == nil {
		t.Fatal("expected error for closed server")
	}
	if !llm.IsUnavailableError(err) {
		t.Errorf("error = %v, want unavailable", err)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"canceled", context.Canceled, llm.ErrCodeTimeout},
		{"deadline", context.DeadlineExceeded, llm.ErrCodeTimeout},
		{"model 404", api.StatusError{StatusCode: 404, ErrorMessage: "model 'x' not found"}, llm.ErrCodeModelNotFound},
		{"401", api.StatusError{StatusCode: 401, ErrorMessage: "unauthorized"}, llm.ErrCodeAuthentication},
		{"429", api.StatusError{StatusCode: 429, ErrorMessage: "busy"}, llm.ErrCodeRateLimit},
		{"503", api.StatusError{StatusCode: 503, Status: "503 Service Unavailable"}, llm.ErrCodeUnavailable},
		{"500", api.StatusError{StatusCode: 500, ErrorMessage: "oom"}, llm.ErrCodeServerError},
		{"400", api.StatusError{StatusCode: 400, ErrorMessage: "bad"}, llm.ErrCodeInvalidRequest},
		{"refused", errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"), llm.ErrCodeUnavailable},
		{"other", errors.New("weird"), llm.ErrCodeServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := llm.Code(mapError(tt.err)); got != tt.want {
				t.Errorf("code = %q, want %q", got, tt.want)
			}
		})
	}
	if mapError(nil) != nil {
		t.Error("mapError(nil) should be nil")
	}
}
