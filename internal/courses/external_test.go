package courses

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HerbHall/studyforge/internal/generation"
	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/llm/llmtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const searchPage = `<html><body>
<nav><a href="/learn/nav-link">Nav</a></nav>
<ul>
<li><a href="/learn/go-basics"><h3>Go   Basics</h3><span>University X</span></a></li>
<li><a href="/learn/go-basics">Go Basics (again)</a></li>
<li><a href="/specializations/go">Specialization</a></li>
<li><a href="/learn/empty"></a></li>
<li><a href="/learn/concurrency">Concurrency in Go</a></li>
<li><a href="/learn/c3">Course 3</a></li>
<li><a href="/learn/c4">Course 4</a></li>
<li><a href="/learn/c5">Course 5</a></li>
<li><a href="/learn/c6">Course 6</a></li>
</ul></body></html>`

func TestParseResults(t *testing.T) {
	doc, err := html.Parse(strings.NewReader(searchPage))
	require.NoError(t, err)

	got := ParseResults(doc, "https://courses.example", MaxExternal)

	require.Len(t, got, 5)
	assert.Equal(t, "Nav", got[0].Title)
	assert.Equal(t, "Go Basics University X", got[1].Title)
	assert.Equal(t, "https://courses.example/learn/go-basics", *got[1].URL)
	assert.Equal(t, "Concurrency in Go", got[2].Title)
	assert.Equal(t, "Course 4", got[4].Title)
	for _, c := range got {
		assert.Equal(t, SourceExternal, c.Source)
		assert.Equal(t, LevelUnspecified, c.Level)
	}
}

func TestCourseraSearcher(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(searchPage))
	}))
	defer srv.Close()

	s := NewCourseraSearcher(srv.URL+"/", time.Second, 100)
	got, err := s.Search(context.Background(), "go programming")
	require.NoError(t, err)
	assert.Equal(t, "go programming", gotQuery)
	require.Len(t, got, 5)
	assert.Equal(t, srv.URL+"/learn/nav-link", *got[0].URL)
}

func TestCourseraSearcherStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewCourseraSearcher(srv.URL, time.Second, 100).Search(context.Background(), "go")
	assert.ErrorContains(t, err, "status 403")
}

type stubSearcher struct {
	courses []Course
	err     error
	calls   atomic.Int32
}

func (s *stubSearcher) Search(context.Context, string) ([]Course, error) {
	s.calls.Add(1)
	return s.courses, s.err
}

func link(s string) *string { return &s }

const modelCourses = `[
{"title":"Rust Fundamentals","url":"https://www.coursera.org/learn/rust","provider":"Coursera","level":"Beginner","topics":["rust"]},
{"title":"Broken course","url":"not a url"}
]`

func newFinder(s Searcher, inv llm.Invoker) *Finder {
	p := generation.NewPipeline(inv, FallbackTable(), generation.WithLogger(zap.NewNop()))
	return NewFinder(s, p, zap.NewNop())
}

func TestFinder(t *testing.T) {
	t.Run("python is curated", func(t *testing.T) {
		s := &stubSearcher{}
		l := newFinder(s, nil).Find(context.Background(), " Python ")
		assert.Equal(t, OriginCurated, l.Origin)
		require.Len(t, l.Courses, 5)
		assert.Equal(t, "Python Official Docs", l.Courses[0].Title)
		assert.Equal(t, int32(0), s.calls.Load())
	})

	t.Run("search results", func(t *testing.T) {
		s := &stubSearcher{courses: []Course{{Title: "Go", URL: link("https://x/learn/go"), Source: SourceExternal}}}
		l := newFinder(s, nil).Find(context.Background(), "go")
		assert.Equal(t, OriginSearch, l.Origin)
		assert.Equal(t, []string{"Go"}, titles(l.Courses))
	})

	t.Run("model fills an empty search", func(t *testing.T) {
		inv := llmtest.NewInvoker(modelCourses)
		l := newFinder(&stubSearcher{}, inv).Find(context.Background(), "rust")
		assert.Equal(t, OriginModel, l.Origin)
		require.NotNil(t, l.BackendUsed)
		require.Len(t, l.Courses, MaxExternal)
		assert.Equal(t, "Rust Fundamentals", l.Courses[0].Title)
		assert.Equal(t, "Beginner", l.Courses[0].Level)
		// Topped up with platform search links.
		assert.Contains(t, *l.Courses[1].URL, "rust")
	})

	t.Run("search error without model", func(t *testing.T) {
		l := newFinder(&stubSearcher{err: errors.New("boom")}, nil).Find(context.Background(), "data science")
		assert.Equal(t, OriginFallback, l.Origin)
		require.Len(t, l.Courses, MaxExternal)
		assert.Equal(t, "Data Science courses on Coursera", l.Courses[0].Title)
		assert.Equal(t, "https://www.coursera.org/search?query=data+science", *l.Courses[0].URL)
		assert.Nil(t, l.BackendUsed)
	})
}

func TestFallbackTableRoutes(t *testing.T) {
	table := FallbackTable()
	assert.Equal(t, "python", table.Resolve("PYTHON").Name)
	assert.Equal(t, "search_links", table.Resolve("python web").Name)
	_, items := table.Build(generation.FallbackInput{Subject: "", Count: 2})
	assert.Len(t, items, 2)
}
