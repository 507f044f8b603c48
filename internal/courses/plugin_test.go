package courses

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/HerbHall/studyforge/pkg/plugin/plugintest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPluginContract(t *testing.T) {
	plugintest.TestPluginContract(t, func() plugin.Plugin { return New() })
}

func newModule(t *testing.T, s Searcher) *Module {
	t.Helper()
	m := New()
	require.NoError(t, m.Init(context.Background(), plugin.Dependencies{Logger: zap.NewNop()}))
	m.finder.searcher = s
	return m
}

func serve(m *Module) *http.ServeMux {
	mux := http.NewServeMux()
	for _, r := range m.Routes() {
		mux.HandleFunc(r.Method+" /courses"+r.Path, r.Handler)
	}
	return mux
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, bytes.NewBufferString(body)))
	return w
}

func TestParseInterests(t *testing.T) {
	tests := []struct {
		raw     string
		want    []string
		wantErr error
	}{
		{`"python"`, []string{"python"}, nil},
		{`["react", " ", "ai"]`, []string{"react", "ai"}, nil},
		{``, nil, errMissingInterests},
		{`null`, nil, errMissingInterests},
		{`[]`, nil, errMissingInterests},
		{`42`, nil, errInterestsType},
		{`{"a":"b"}`, nil, errInterestsType},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseInterests(json.RawMessage(tt.raw))
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecommendMergesAndDedupes(t *testing.T) {
	s := &stubSearcher{courses: []Course{
		{Title: "web development with react", URL: link("https://x/learn/a"), Source: SourceExternal, Level: LevelUnspecified},
		{Title: "React Hooks", URL: link("https://x/learn/b"), Source: SourceExternal, Level: LevelUnspecified},
	}}
	m := newModule(t, s)

	w := do(t, serve(m), "POST", "/courses/recommend", `{"interests":["react","javascript"]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp RecommendResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.True(t, resp.Success)
	assert.Equal(t, []string{"react", "javascript"}, resp.Interests)
	// Two searches yield four externals; the catalog title and the repeat
	// of "React Hooks" are dropped.
	assert.Equal(t, []string{"Web Development with React", "React Hooks"}, titles(resp.Recommendations))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, SourceInternal, resp.Recommendations[0].Source)
	assert.Equal(t, SourceExternal, resp.Recommendations[1].Source)
	assert.Equal(t, int32(2), s.calls.Load())
}

func TestRecommendCapsExternal(t *testing.T) {
	m := newModule(t, nil)
	resp := m.Recommend(context.Background(), []string{"python", "python web"})
	// Five curated Python links fill the external budget.
	assert.Len(t, resp.Recommendations, 1+MaxExternal)
	assert.Equal(t, "Introduction to Python Programming", resp.Recommendations[0].Title)
	assert.Equal(t, "Python Official Docs", resp.Recommendations[1].Title)
}

func TestRecommendBadRequests(t *testing.T) {
	m := newModule(t, &stubSearcher{})
	h := serve(m)
	for body, detail := range map[string]string{
		`{}`:                "Missing 'interests' field in request body",
		`not json`:          "Missing 'interests' field in request body",
		`{"interests":7}`:   "Interests must be a string or list of strings",
		`{"interests":[1]}`: "Interests must be a string or list of strings",
	} {
		w := do(t, h, "POST", "/courses/recommend", body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		var p map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
		assert.Equal(t, detail, p["detail"], body)
	}
}

func TestSearchEndpoint(t *testing.T) {
	m := newModule(t, &stubSearcher{})
	h := serve(m)

	w := do(t, h, "GET", "/courses/search", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "GET", "/courses/search?q=python", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "python", resp.Query)
	assert.Equal(t, OriginCurated, resp.Origin)
	assert.Equal(t, 5, resp.Count)

	w = do(t, h, "GET", "/courses/search?q=astronomy", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, OriginFallback, resp.Origin)
	assert.Len(t, resp.Results, MaxExternal)
}

func TestCatalogEndpoints(t *testing.T) {
	m := newModule(t, nil)
	h := serve(m)

	w := do(t, h, "GET", "/courses", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Courses []Course `json:"courses"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Count)
	assert.Len(t, list.Courses, 3)

	w = do(t, h, "GET", "/courses/topics", "")
	require.Equal(t, http.StatusOK, w.Code)
	var topics struct {
		Topics []string `json:"topics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &topics))
	assert.Contains(t, topics.Topics, "react")
}
