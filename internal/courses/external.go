package courses

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HerbHall/studyforge/internal/generation"
	"github.com/HerbHall/studyforge/internal/webctx"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/time/rate"
)

// MaxExternal caps the external courses returned for one query.
const MaxExternal = 5

// DefaultSearchURL is the course site scraped for search results.
const DefaultSearchURL = "https://www.coursera.org"

const (
	userAgent = "Mozilla/5.0 (compatible; StudyForge/1.0; +https://studyforge.dev)"
	maxBody   = 4 << 20
)

// Lookup origins.
const (
	OriginCurated  = "curated"
	OriginSearch   = "search"
	OriginModel    = "model"
	OriginFallback = "fallback"
)

// Searcher finds external courses for a query.
type Searcher interface {
	Search(ctx context.Context, query string) ([]Course, error)
}

var pythonLinks = []generation.CourseRecord{
	{Title: "Python Official Docs", URL: "https://docs.python.org/3/tutorial/"},
	{Title: "W3Schools Python", URL: "https://www.w3schools.com/python/"},
	{Title: "Real Python Tutorials", URL: "https://realpython.com/"},
	{Title: "FreeCodeCamp Python", URL: "https://www.freecodecamp.org/learn/scientific-computing-with-python/"},
	{Title: "Python.org Getting Started", URL: "https://www.python.org/about/gettingstarted/"},
}

// searchLinks points at course searches on well-known platforms.
func searchLinks(topic string) []generation.CourseRecord {
	q := url.QueryEscape(topic)
	name := generation.TitleCase(topic)
	return []generation.CourseRecord{
		{Title: name + " courses on Coursera", URL: "https://www.coursera.org/search?query=" + q, Provider: "Coursera"},
		{Title: name + " courses on edX", URL: "https://www.edx.org/search?q=" + q, Provider: "edX"},
		{Title: name + " on Khan Academy", URL: "https://www.khanacademy.org/search?page_search_query=" + q, Provider: "Khan Academy"},
		{Title: name + " on freeCodeCamp", URL: "https://www.freecodecamp.org/news/search/?query=" + q, Provider: "freeCodeCamp"},
		{Title: name + " video courses on YouTube", URL: "https://www.youtube.com/results?search_query=" + q + "+course", Provider: "YouTube"},
	}
}

// FallbackTable returns the curated Python links for "python" and platform
// search links for anything else.
func FallbackTable() *generation.FallbackTable {
	return generation.NewFallbackTable(generation.KindCourseList,
		generation.FallbackRule{
			Name:  "python",
			Match: generation.Exact("python"),
			Build: func(in generation.FallbackInput) []generation.StructuredItem {
				return records(pythonLinks, in.Count)
			},
		},
		generation.FallbackRule{
			Name: "search_links",
			Build: func(in generation.FallbackInput) []generation.StructuredItem {
				topic := strings.TrimSpace(in.Subject)
				if topic == "" {
					topic = "learning"
				}
				return records(searchLinks(topic), in.Count)
			},
		},
	)
}

func records(list []generation.CourseRecord, n int) []generation.StructuredItem {
	if n <= 0 || n > len(list) {
		n = len(list)
	}
	out := make([]generation.StructuredItem, n)
	for i := range n {
		c := list[i]
		c.Source = SourceExternal
		out[i] = &c
	}
	return out
}

// fromRecord converts a generated record into a Course.
func fromRecord(r *generation.CourseRecord) Course {
	u := r.URL
	level := r.Level
	if level == "" {
		level = LevelUnspecified
	}
	return Course{
		Title:    r.Title,
		Level:    level,
		Topics:   r.Topics,
		Provider: r.Provider,
		Source:   SourceExternal,
		URL:      &u,
	}
}

// CourseraSearcher scrapes a Coursera-style search page. Requests are
// throttled by a shared limiter.
type CourseraSearcher struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
}

var _ Searcher = (*CourseraSearcher)(nil)

// NewCourseraSearcher returns a searcher for baseURL allowing rps searches
// per second.
func NewCourseraSearcher(baseURL string, timeout time.Duration, rps float64) *CourseraSearcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if rps <= 0 {
		rps = 1
	}
	return &CourseraSearcher{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(rate.Limit(rps), 3),
	}
}

// Search implements Searcher.
func (s *CourseraSearcher) Search(ctx context.Context, query string) ([]Course, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("search throttled: %w", err)
	}
	endpoint := s.baseURL + "/search?query=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search %q: status %d", query, resp.StatusCode)
	}
	doc, err := html.Parse(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}
	return ParseResults(doc, s.baseURL, MaxExternal), nil
}

// ParseResults collects anchors whose href starts with /learn/, in
// document order, skipping repeated hrefs and anchors without text.
func ParseResults(doc *html.Node, baseURL string, limit int) []Course {
	var out []Course
	seen := map[string]bool{}
	var visit func(*html.Node) bool
	visit = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			href := attrValue(n, "href")
			if strings.HasPrefix(href, "/learn/") && !seen[href] {
				if title := webctx.Text(n); title != "" {
					seen[href] = true
					link := baseURL + href
					out = append(out, Course{Title: title, Level: LevelUnspecified, Source: SourceExternal, URL: &link})
					if len(out) >= limit {
						return false
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(doc)
	return out
}

func attrValue(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// Finder resolves external courses: curated links for Python, then the
// searcher, then the generation pipeline when the search finds nothing.
type Finder struct {
	searcher Searcher
	pipeline *generation.Pipeline
	logger   *zap.Logger
}

// NewFinder returns a Finder. searcher may be nil.
func NewFinder(searcher Searcher, pipeline *generation.Pipeline, logger *zap.Logger) *Finder {
	return &Finder{searcher: searcher, pipeline: pipeline, logger: logger}
}

// Lookup is the outcome of one Find.
type Lookup struct {
	Courses     []Course
	Origin      string
	BackendUsed *string
}

// Find returns up to MaxExternal external courses for query.
func (f *Finder) Find(ctx context.Context, query string) Lookup {
	query = strings.TrimSpace(query)
	if strings.EqualFold(query, "python") {
		return Lookup{Courses: toCourses(records(pythonLinks, MaxExternal)), Origin: OriginCurated}
	}

	if f.searcher != nil {
		found, err := f.searcher.Search(ctx, query)
		switch {
		case err != nil:
			f.logger.Warn("course search failed", zap.String("query", query), zap.Error(err))
		case len(found) > 0:
			return Lookup{Courses: found[:min(len(found), MaxExternal)], Origin: OriginSearch}
		default:
			f.logger.Debug("course search found nothing", zap.String("query", query))
		}
	}

	req, err := generation.NewRequest(generation.KindCourseList, query, MaxExternal)
	if err != nil {
		return Lookup{Courses: []Course{}, Origin: OriginFallback}
	}
	res, err := f.pipeline.Run(ctx, req)
	if err != nil {
		return Lookup{Courses: []Course{}, Origin: OriginFallback}
	}
	// A short model batch topped up from fallback still counts as model.
	origin := OriginFallback
	if res.BackendUsed != nil {
		origin = OriginModel
	}
	return Lookup{Courses: toCourses(res.Items), Origin: origin, BackendUsed: res.BackendUsed}
}

func toCourses(items []generation.StructuredItem) []Course {
	out := make([]Course, 0, len(items))
	for _, it := range items {
		if r, ok := it.(*generation.CourseRecord); ok {
			out = append(out, fromRecord(r))
		}
	}
	return out
}
