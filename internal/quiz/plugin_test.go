package quiz

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/HerbHall/studyforge/internal/event"
	"github.com/HerbHall/studyforge/internal/generation"
	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/llm/llmtest"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/HerbHall/studyforge/pkg/plugin/plugintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPluginContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return New() })
}

const modelQuiz = "```json\n[" +
	`{"type":"mcq","question":"Which keyword defines a Python function?","options":["func","def","fn","lambda"],"correct_answer":"B","explanation":"Python uses def."},` +
	`{"type":"true_false","question":"Python lists are mutable.","correct_answer":"True","explanation":"Lists can change."}` +
	"]\n```"

type recorder struct {
	mu     sync.Mutex
	events []plugin.Event
}

func (r *recorder) handle(_ context.Context, e plugin.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func newModule(t *testing.T, inv llm.Invoker) (*Module, *event.Bus, *recorder) {
	t.Helper()
	bus := event.NewBus(zap.NewNop())
	rec := &recorder{}
	bus.SubscribeAll(rec.handle)

	deps := plugin.Dependencies{Logger: zap.NewNop(), Bus: bus}
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
		mux.HandleFunc(r.Method+" "+r.Path, r.Handler)
	}
	return mux
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGenerateFromModel(t *testing.T) {
	inv := llmtest.NewInvoker(modelQuiz)
	m, bus, rec := newModule(t, inv)

	w := do(t, serve(m), "POST", "/generate", GenerateRequest{Topic: "python", NumQuestions: 2, UserID: "u1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.UsedFallback)
	require.NotNil(t, resp.BackendUsed)
	assert.Equal(t, "mock", *resp.BackendUsed)
	assert.Equal(t, "python", resp.Topic)
	assert.Equal(t, SourceTopic, resp.SourceType)
	require.Len(t, resp.Questions, 2)
	assert.NotEmpty(t, resp.QuizID)

	bus.Wait()
	require.Len(t, rec.events, 1)
	assert.Equal(t, TopicGenerated, rec.events[0].Topic)
	ev := rec.events[0].Payload.(GeneratedEvent)
	assert.Equal(t, "u1", ev.UserID)
	assert.Equal(t, resp.QuizID, ev.QuizID)
}

func TestGenerateFallsBackWithoutModel(t *testing.T) {
	m, _, _ := newModule(t, llmtest.NewUnavailableInvoker())

	w := do(t, serve(m), "GET", "/generate/python?num_questions=3&question_types=mcq,fill_blank", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.UsedFallback)
	assert.Nil(t, resp.BackendUsed)
	require.Len(t, resp.Questions, 3)
	for _, q := range resp.Questions {
		assert.NotEqual(t, tf, q.Type)
	}
}

func TestGenerateAllTypesWhenBackendsDown(t *testing.T) {
	m, _, _ := newModule(t, llmtest.NewUnavailableInvoker())

	for range 20 {
		resp, err := m.Generate(context.Background(), GenerateRequest{
			Topic:         "python",
			NumQuestions:  3,
			QuestionTypes: []string{"mcq", "fill_blank", "true_false"},
		})
		require.NoError(t, err)
		assert.True(t, resp.UsedFallback)
		assert.Nil(t, resp.BackendUsed)
		require.Len(t, resp.Questions, 3)

		// Every served question passes the same checks a model reply must.
		raw, err := json.Marshal(resp.Questions)
		require.NoError(t, err)
		var v any
		require.NoError(t, json.Unmarshal(raw, &v))
		items, errs := generation.ValidateQuiz(v)
		assert.Empty(t, errs)
		assert.Len(t, items, 3)
	}
}

func TestGenerateWithoutLLMPlugin(t *testing.T) {
	m, _, _ := newModule(t, nil)
	resp, err := m.Generate(context.Background(), GenerateRequest{Topic: "react", NumQuestions: 4})
	require.NoError(t, err)
	assert.True(t, resp.UsedFallback)
	assert.Len(t, resp.Questions, 4)
}

func TestGenerateFromText(t *testing.T) {
	m, _, _ := newModule(t, llmtest.NewUnavailableInvoker())
	resp, err := m.Generate(context.Background(), GenerateRequest{
		SourceType:   SourceText,
		Content:      "Python code is organised into functions. A script defines variables.",
		NumQuestions: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, "Python", resp.Topic)
	assert.Equal(t, SourceText, resp.SourceType)
	assert.Len(t, resp.Questions, 2)
}

func TestGenerateBadRequests(t *testing.T) {
	m, _, _ := newModule(t, llmtest.NewUnavailableInvoker())
	h := serve(m)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"missing topic", GenerateRequest{SourceType: SourceTopic}, http.StatusBadRequest},
		{"missing text", GenerateRequest{SourceType: SourceText, Content: "  "}, http.StatusBadRequest},
		{"unknown source", GenerateRequest{SourceType: "video", Topic: "go"}, http.StatusBadRequest},
		{"invalid url", GenerateRequest{SourceType: SourceURL, URL: "ftp://example.com"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, h, "POST", "/generate", tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
			assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
		})
	}
}

func TestGenerateFromURL(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>DB basics</title></head><body><main>
<p>A database stores rows in a table. SQL queries select data.</p></main></body></html>`)
	}))
	defer page.Close()

	m, _, _ := newModule(t, llmtest.NewUnavailableInvoker())
	resp, err := m.Generate(context.Background(), GenerateRequest{URL: page.URL, NumQuestions: 2})
	require.NoError(t, err)
	assert.Equal(t, SourceURL, resp.SourceType)
	assert.Equal(t, "Database", resp.Topic)
	assert.Len(t, resp.Questions, 2)
}

func TestGenerateURLUnreachable(t *testing.T) {
	page := httptest.NewServer(http.NotFoundHandler())
	defer page.Close()

	m, _, _ := newModule(t, nil)
	w := do(t, serve(m), "POST", "/generate", GenerateRequest{SourceType: SourceURL, URL: page.URL})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func upload(t *testing.T, h http.Handler, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, _ = fw.Write([]byte(content))
	require.NoError(t, mw.WriteField("num_questions", "2"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestUpload(t *testing.T) {
	m, _, _ := newModule(t, llmtest.NewUnavailableInvoker())
	h := serve(m)

	w := upload(t, h, "notes.txt", "React components use hooks to manage state and props.")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, SourceFile, resp.SourceType)
	assert.Equal(t, "React", resp.Topic)
	assert.Len(t, resp.Questions, 2)

	w = upload(t, h, "notes.pdf", "%PDF")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestValidate(t *testing.T) {
	m, bus, rec := newModule(t, nil)
	h := serve(m)

	w := do(t, h, "POST", "/validate", ValidateRequest{
		Questions: gradedQuiz,
		Answers:   []string{"B", "goroutines", "False"},
		Topic:     "Go",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var body struct {
		Success bool `json:"success"`
		Grading
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, 2, body.Score)
	assert.InDelta(t, 66.67, body.ScorePercentage, 0.001)

	bus.Wait()
	require.Len(t, rec.events, 1)
	ev := rec.events[0].Payload.(ValidatedEvent)
	assert.Equal(t, TopicValidated, rec.events[0].Topic)
	assert.Equal(t, AnonymousUser, ev.UserID)
	assert.Equal(t, "Go", ev.Topic)

	w = do(t, h, "POST", "/validate", ValidateRequest{Questions: gradedQuiz, Answers: []string{"B"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSupportedTypes(t *testing.T) {
	m, _, _ := newModule(t, nil)
	w := do(t, serve(m), "GET", "/supported-types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var st SupportedTypes
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	assert.Equal(t, []string{"txt"}, st.FileTypes)
	assert.Equal(t, []string{"mcq", "fill_blank", "true_false"}, st.QuestionTypes)
	assert.Equal(t, 16, st.MaxFileSizeMB)
}

func TestScrapeURL(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><head><title>Hello</title></head><body><article><p>Some readable text.</p></article></body></html>`)
	}))
	defer page.Close()

	m, _, _ := newModule(t, nil)
	h := serve(m)

	w := do(t, h, "POST", "/scrape-url", ScrapeRequest{URL: page.URL})
	require.Equal(t, http.StatusOK, w.Code)
	var resp ScrapeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "Hello", resp.Title)
	assert.True(t, strings.Contains(resp.Content, "Some readable text."))

	w = do(t, h, "POST", "/scrape-url", ScrapeRequest{URL: "not a url"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
