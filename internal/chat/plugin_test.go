package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HerbHall/studyforge/internal/config"
	"github.com/HerbHall/studyforge/internal/event"
	"github.com/HerbHall/studyforge/internal/webctx"
	"github.com/HerbHall/studyforge/internal/ws"
	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/llm/llmtest"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/HerbHall/studyforge/pkg/plugin/plugintest"
	"github.com/alicebob/miniredis/v2"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPluginContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return New() })
}

const modelAnswer = "Photosynthesis is how plants turn light, water and carbon dioxide into sugar."

type recorder struct {
	mu     sync.Mutex
	events []plugin.Event
}

func (r *recorder) handle(_ context.Context, e plugin.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// pageFetcher serves canned pages by URL.
type pageFetcher map[string]webctx.Page

func (f pageFetcher) Fetch(_ context.Context, rawURL string) (webctx.Page, error) {
	if p, ok := f[rawURL]; ok {
		return p, nil
	}
	return webctx.Page{}, errors.New("not found")
}

func newModule(t *testing.T, inv llm.Invoker, settings map[string]any) (*Module, *event.Bus, *recorder) {
	t.Helper()
	v := viper.New()
	v.Set("web_context.enabled", false)
	for k, val := range settings {
		v.Set(k, val)
	}
	bus := event.NewBus(zap.NewNop())
	rec := &recorder{}
	bus.SubscribeAll(rec.handle)

	deps := plugin.Dependencies{Logger: zap.NewNop(), Bus: bus, Config: config.New(v)}
	if inv != nil {
		deps.Plugins = plugintest.LLMResolver(inv)
	}
	m := New()
	require.NoError(t, m.Init(context.Background(), deps))
	return m, bus, rec
}

func serve(m *Module) *http.ServeMux {
	mux := http.NewServeMux()
	for _, r := range m.Routes() {
		mux.HandleFunc(r.Method+" /chat"+r.Path, r.Handler)
	}
	return mux
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestChatWithWebContext(t *testing.T) {
	inv := llmtest.NewInvoker(modelAnswer)
	m, bus, rec := newModule(t, inv, nil)
	urls := webctx.WikipediaURLs("photosynthesis")
	m.gatherer = webctx.NewGatherer(pageFetcher{
		urls[0]: {URL: urls[0], Title: "Photosynthesis - Wikipedia", Content: "Photosynthesis is a process used by plants."},
	}, 3, time.Second, zap.NewNop())

	resp := decode(t, do(t, serve(m), "POST", "/chat", `{"message":"photosynthesis","user_id":"u1"}`))

	assert.True(t, resp.Success)
	assert.False(t, resp.Cached)
	assert.False(t, resp.UsedFallback)
	require.NotNil(t, resp.BackendUsed)
	assert.Equal(t, "mock", *resp.BackendUsed)
	assert.Equal(t, modelAnswer, resp.Response.Answer)
	require.Len(t, resp.Response.Sources, 1)
	assert.Equal(t, "Photosynthesis - Wikipedia", resp.Response.Sources[0].Title)
	assert.Equal(t, urls[0], resp.Response.Sources[0].URL)
	assert.Contains(t, resp.Response.FullResponse, "\n\nSources:\n- Photosynthesis - Wikipedia: "+urls[0])

	prompts := inv.Mock.Prompts()
	require.Len(t, prompts, 1)
	assert.Contains(t, prompts[0], "Photosynthesis is a process used by plants.")
	cfg := inv.Mock.LastConfig()
	assert.Equal(t, systemPrompt, cfg.System)
	assert.InDelta(t, 0.9, cfg.TopP, 1e-9)
	assert.Equal(t, 1024, cfg.MaxTokens)

	bus.Wait()
	require.Len(t, rec.events, 1)
	assert.Equal(t, TopicAnswered, rec.events[0].Topic)
	ev := rec.events[0].Payload.(AnsweredEvent)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, "photosynthesis", ev.Query)
	assert.Equal(t, "mock", ev.BackendUsed)
}

func TestChatServesRepeatsFromCache(t *testing.T) {
	inv := llmtest.NewInvoker(modelAnswer)
	m, _, _ := newModule(t, inv, nil)
	h := serve(m)

	first := decode(t, do(t, h, "POST", "/chat", `{"message":"What is DNA?"}`))
	second := decode(t, do(t, h, "POST", "/chat", `{"message":"  what is dna?  "}`))

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Response.Answer, second.Response.Answer)
	assert.Equal(t, 1, inv.Calls())
}

func TestChatCacheExpiry(t *testing.T) {
	inv := llmtest.NewInvoker(modelAnswer)
	m, _, _ := newModule(t, inv, map[string]any{"cache.ttl": "20ms"})
	ctx := context.Background()

	m.Answer(ctx, "what is an atom?", "", nil)
	time.Sleep(50 * time.Millisecond)
	resp := m.Answer(ctx, "what is an atom?", "", nil)

	assert.False(t, resp.Cached)
	assert.Equal(t, 2, inv.Calls())
}

func TestChatApologyIsNotCached(t *testing.T) {
	for name, inv := range map[string]llm.Invoker{
		"no provider":          nil,
		"backends unavailable": llmtest.NewUnavailableInvoker(),
	} {
		t.Run(name, func(t *testing.T) {
			m, _, _ := newModule(t, inv, nil)
			h := serve(m)

			first := decode(t, do(t, h, "GET", "/chat/what%20is%20calculus", ""))
			assert.Equal(t, Apology, first.Response.Answer)
			assert.Empty(t, first.Response.Sources)
			assert.True(t, first.UsedFallback)
			assert.Nil(t, first.BackendUsed)

			second := decode(t, do(t, h, "GET", "/chat/what%20is%20calculus", ""))
			assert.False(t, second.Cached)
			assert.Equal(t, 0, m.cache.Len(context.Background()))
		})
	}
}

func TestChatBadRequests(t *testing.T) {
	m, _, _ := newModule(t, llmtest.NewInvoker(modelAnswer), nil)
	h := serve(m)

	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{"missing field", `{"user_id":"u1"}`, "No message provided"},
		{"invalid json", `{`, "No message provided"},
		{"empty message", `{"message":"   "}`, "Message cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/chat", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
			var p map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
			assert.Equal(t, tt.detail, p["detail"])
		})
	}
}

func TestChatCatalogEndpoints(t *testing.T) {
	m, _, _ := newModule(t, nil, nil)
	h := serve(m)

	w := do(t, h, "GET", "/chat/suggestions", "")
	require.Equal(t, http.StatusOK, w.Code)
	var s struct {
		Suggestions []SuggestionGroup `json:"suggestions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Len(t, s.Suggestions, 5)

	w = do(t, h, "GET", "/chat/topics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var tp struct {
		Topics []Topic `json:"topics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tp))
	assert.Len(t, tp.Topics, 6)

	w = do(t, h, "GET", "/chat/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var st struct {
		Status Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, "degraded", st.Status.Status)
	assert.False(t, st.Status.ModelAvailable)
	assert.Equal(t, "memory", st.Status.CacheBackend)
	assert.Equal(t, defaultModels, st.Status.Models)
	assert.Equal(t, 0, st.Status.StreamClients)
}

func TestRedisCacheBackend(t *testing.T) {
	mr := miniredis.RunT(t)
	inv := llmtest.NewInvoker(modelAnswer)
	m, _, _ := newModule(t, inv, map[string]any{
		"cache.backend":    "redis",
		"cache.redis.addr": mr.Addr(),
	})
	ctx := context.Background()

	assert.False(t, m.Answer(ctx, "How do computers work?", "", nil).Cached)
	assert.True(t, m.Answer(ctx, "how do computers work?", "", nil).Cached)
	assert.Equal(t, 1, inv.Calls())
	assert.Equal(t, "redis", m.Status(ctx).CacheBackend)
}

func TestInitRejectsUnknownCacheBackend(t *testing.T) {
	v := viper.New()
	v.Set("cache.backend", "memcached")
	err := New().Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop(), Config: config.New(v)})
	assert.ErrorContains(t, err, "memcached")
}

func TestModelListFromConfig(t *testing.T) {
	m, _, _ := newModule(t, nil, map[string]any{"models": "phi3:mini, llama3:latest"})
	assert.Equal(t, []string{"phi3:mini", "llama3:latest"}, m.models)
}

func TestSplitSources(t *testing.T) {
	tests := []struct {
		name    string
		full    string
		answer  string
		sources int
	}{
		{"no footer", "Just an answer.", "Just an answer.", 0},
		{"footer", "Answer.\n\nSources:\n- DNA - Wikipedia: https://en.wikipedia.org/wiki/DNA", "Answer.", 1},
		{"title with colon", "Answer.\n\nSources:\n- Python: the language: https://example.org/py\n- junk line", "Answer.", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSources(tt.full)
			assert.Equal(t, tt.answer, got.Answer)
			assert.Equal(t, tt.full, got.FullResponse)
			assert.Len(t, got.Sources, tt.sources)
		})
	}

	got := SplitSources("A.\n\nSources:\n- Python: the language: https://example.org/py")
	assert.Equal(t, "Python: the language", got.Sources[0].Title)
	assert.Equal(t, "https://example.org/py", got.Sources[0].URL)
}

type frame struct {
	Type      ws.MessageType `json:"type"`
	RequestID string         `json:"request_id"`
	Data      map[string]any `json:"data"`
}

func TestStreamFrames(t *testing.T) {
	m, _, _ := newModule(t, llmtest.NewInvoker(modelAnswer), nil)
	srv := httptest.NewServer(serve(m))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/chat/stream", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() frame {
		var f frame
		require.NoError(t, wsjson.Read(ctx, conn, &f))
		return f
	}

	require.NoError(t, wsjson.Write(ctx, conn, ws.Inbound{Message: ""}))
	f := read()
	assert.Equal(t, ws.MessageError, f.Type)
	assert.Equal(t, "Message cannot be empty", f.Data["error"])

	require.NoError(t, wsjson.Write(ctx, conn, ws.Inbound{Message: "how does photosynthesis work?"}))
	var text strings.Builder
	for f = read(); f.Type == ws.MessageToken; f = read() {
		text.WriteString(f.Data["text"].(string))
	}
	require.Equal(t, ws.MessageDone, f.Type)
	assert.NotEmpty(t, f.RequestID)
	assert.Equal(t, modelAnswer, text.String())
	assert.Equal(t, modelAnswer, f.Data["answer"])
	assert.Equal(t, false, f.Data["cached"])

	// The repeat comes from the cache as a single token frame.
	require.NoError(t, wsjson.Write(ctx, conn, ws.Inbound{Message: "How does photosynthesis work?"}))
	f = read()
	require.Equal(t, ws.MessageToken, f.Type)
	assert.Equal(t, modelAnswer, f.Data["text"])
	f = read()
	require.Equal(t, ws.MessageDone, f.Type)
	assert.Equal(t, true, f.Data["cached"])
}
