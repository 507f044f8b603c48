package webctx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const articleHTML = `<!doctype html>
<html><head><title>Goroutines - Example</title><style>p{color:red}</style></head>
<body>
<header><p>Site header</p></header>
<nav><p>Menu</p></nav>
<div class="sidebar"><p>Ad</p></div>
<div class="main-content">
  <p>A goroutine is a   lightweight thread[1] managed by the Go runtime.</p>
  <script>var x = "<p>not text</p>";</script>
  <p>Goroutines are multiplexed onto OS threads.[23]</p>
</div>
<footer><p>Copyright</p></footer>
</body></html>`

const wikiHTML = `<html><head><title>Go (programming language) - Wikipedia</title></head>
<body><div id="siteNotice"><p>Donate</p></div>
<div id="mw-content-text"><p>Go is a statically typed language.[2]</p><p>It was designed at Google.</p></div>
</body></html>`

func parse(t *testing.T, s string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func TestExtractMainContent(t *testing.T) {
	p := Extract(parse(t, articleHTML), "https://example.com/go", false)
	assert.Equal(t, "Goroutines - Example", p.Title)
	assert.Equal(t, "A goroutine is a lightweight thread managed by the Go runtime. Goroutines are multiplexed onto OS threads.", p.Content)
}

func TestExtractWikipedia(t *testing.T) {
	p := Extract(parse(t, wikiHTML), "https://en.wikipedia.org/wiki/Go", true)
	assert.Equal(t, "Go is a statically typed language. It was designed at Google.", p.Content)
}

func TestExtractFallsBackToAllParagraphs(t *testing.T) {
	p := Extract(parse(t, `<html><body><p>One.</p><section><p>Two.</p></section></body></html>`), "u", false)
	assert.Equal(t, "One. Two.", p.Content)
}

func TestCap(t *testing.T) {
	assert.Equal(t, "short", Cap("short", 10))
	assert.Equal(t, "abc...", Cap("abcdef", 3))
	assert.Equal(t, "h...", Cap("héllo", 2))
	long := strings.Repeat("x", MaxContent+100)
	assert.Len(t, Cap(long, MaxContent), MaxContent+3)
}

func TestValidateURL(t *testing.T) {
	for _, bad := range []string{"", "example.com", "ftp://example.com/x", "http://", "://x"} {
		_, err := ValidateURL(bad)
		assert.ErrorIs(t, err, ErrInvalidURL, bad)
	}
	u, err := ValidateURL(" https://example.com/a ")
	require.NoError(t, err)
	assert.Equal(t, "example.com", u.Host)
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/article":
			assert.NotEmpty(t, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, articleHTML)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(time.Second)
	p, err := f.Fetch(context.Background(), srv.URL+"/article")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/article", p.URL)
	assert.Contains(t, p.Content, "lightweight thread")

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), "not a url")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

type stubFetcher struct {
	inflight, peak atomic.Int32
	delay          map[string]time.Duration
	fail           map[string]bool
}

func (s *stubFetcher) Fetch(ctx context.Context, u string) (Page, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	select {
	case <-time.After(s.delay[u]):
	case <-ctx.Done():
		return Page{}, ctx.Err()
	}
	if s.fail[u] {
		return Page{}, errors.New("boom")
	}
	return Page{URL: u, Title: "T " + u, Content: "content of " + u}, nil
}

func TestGatherKeepsOrderAndDropsFailures(t *testing.T) {
	f := &stubFetcher{
		delay: map[string]time.Duration{"a": 30 * time.Millisecond, "b": 0, "c": 10 * time.Millisecond},
		fail:  map[string]bool{"b": true},
	}
	pages := NewGatherer(f, 3, time.Second, zap.NewNop()).Gather(context.Background(), []string{"a", "b", "c"})
	require.Len(t, pages, 2)
	assert.Equal(t, "a", pages[0].URL)
	assert.Equal(t, "c", pages[1].URL)
}

func TestGatherLimitsConcurrency(t *testing.T) {
	f := &stubFetcher{delay: map[string]time.Duration{}}
	urls := make([]string, 9)
	for i := range urls {
		urls[i] = fmt.Sprintf("u%d", i)
		f.delay[urls[i]] = 20 * time.Millisecond
	}
	pages := NewGatherer(f, 3, time.Second, nil).Gather(context.Background(), urls)
	assert.Len(t, pages, 9)
	assert.LessOrEqual(t, f.peak.Load(), int32(3))
}

func TestGatherDropsLateFetches(t *testing.T) {
	f := &stubFetcher{delay: map[string]time.Duration{"fast": 0, "slow": 5 * time.Second}}
	start := time.Now()
	pages := NewGatherer(f, 3, 100*time.Millisecond, nil).Gather(context.Background(), []string{"slow", "fast"})
	assert.Less(t, time.Since(start), 2*time.Second)
	require.Len(t, pages, 1)
	assert.Equal(t, "fast", pages[0].URL)
}

func TestContextBlockAndFooter(t *testing.T) {
	pages := []Page{{URL: "https://a", Title: "A", Content: "alpha"}, {URL: "https://b", Title: "B", Content: "beta"}}
	assert.Equal(t, "Source: A (https://a)\nalpha\n\nSource: B (https://b)\nbeta", ContextBlock(pages))
	assert.Equal(t, "\n\nSources:\n- A: https://a\n- B: https://b", SourcesFooter(pages))
	assert.Empty(t, SourcesFooter(nil))
}

func TestWikipediaURLs(t *testing.T) {
	assert.Equal(t, []string{
		"https://en.wikipedia.org/wiki/machine_learning",
		"https://simple.wikipedia.org/wiki/machine_learning",
	}, WikipediaURLs(" machine learning "))
	assert.Equal(t, "https://www.w3schools.com/python/", TopicURLs("Python")[1])
}
