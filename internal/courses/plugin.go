// Package courses implements course recommendations: a small built-in
// catalog matched against interests, plus external courses from a search
// scrape or the model.
package courses

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/HerbHall/studyforge/internal/config"
	"github.com/HerbHall/studyforge/internal/generation"
	"github.com/HerbHall/studyforge/pkg/llm"
	"github.com/HerbHall/studyforge/pkg/plugin"
	"github.com/HerbHall/studyforge/pkg/roles"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Compile-time interface guards.
var (
	_ plugin.Plugin       = (*Module)(nil)
	_ plugin.HTTPProvider = (*Module)(nil)
)

const (
	maxInternal         = 3
	lookupConcurrency   = 3
	defaultModel        = "llama3:latest"
	defaultModelTimeout = 30 * time.Second
)

var (
	errMissingInterests = errors.New("missing 'interests' field in request body")
	errInterestsType    = errors.New("interests must be a string or list of strings")
)

// RecommendRequest is the body of POST /courses/recommend. Interests is a
// string or a list of strings.
type RecommendRequest struct {
	Interests json.RawMessage `json:"interests"`
}

// ParseInterests decodes raw as a string or list of strings and drops
// blank entries.
func ParseInterests(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errMissingInterests
	}
	var list []string
	var one string
	switch {
	case json.Unmarshal(raw, &one) == nil:
		list = []string{one}
	case json.Unmarshal(raw, &list) == nil:
	default:
		return nil, errInterestsType
	}
	out := list[:0]
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, errMissingInterests
	}
	return out, nil
}

// RecommendResponse lists internal then external recommendations.
type RecommendResponse struct {
	Success         bool     `json:"success"`
	Recommendations []Course `json:"recommendations"`
	Count           int      `json:"count"`
	Interests       []string `json:"interests"`
}

// SearchResponse lists external courses for a query.
type SearchResponse struct {
	Success     bool     `json:"success"`
	Results     []Course `json:"results"`
	Count       int      `json:"count"`
	Query       string   `json:"query"`
	Origin      string   `json:"origin"`
	BackendUsed *string  `json:"backend_used"`
}

// Module implements the courses plugin.
type Module struct {
	logger  *zap.Logger
	catalog *Catalog
	finder  *Finder
}

// New creates a new courses plugin instance.
func New() *Module {
	return &Module{}
}

func (m *Module) Info() plugin.PluginInfo {
	return plugin.PluginInfo{
		Name:         "courses",
		Version:      "0.2.0",
		Description:  "Course recommendations from the catalog, course search and the model",
		Dependencies: []string{"llm"},
		APIVersion:   plugin.APIVersionCurrent,
	}
}

func (m *Module) Init(_ context.Context, deps plugin.Dependencies) error {
	m.logger = deps.Logger
	m.catalog = DefaultCatalog()

	var invoker llm.Invoker
	if p := roles.ResolveLLM(deps.Plugins); p != nil {
		invoker = p.Chain(llm.ModelSpec{
			Model:   config.StringOr(deps.Config, "model", defaultModel),
			Timeout: config.DurationOr(deps.Config, "model_timeout", defaultModelTimeout),
		})
	}
	pipeline := generation.NewPipeline(invoker, FallbackTable(),
		generation.WithLogger(m.logger),
		generation.WithCallOptions(llm.WithTemperature(0.3), llm.WithMaxTokens(1500)),
	)

	var searcher Searcher
	if searchURL := config.StringOr(deps.Config, "search_url", DefaultSearchURL); searchURL != "" {
		searcher = NewCourseraSearcher(searchURL,
			config.DurationOr(deps.Config, "fetch_timeout", 10*time.Second),
			float64(config.IntOr(deps.Config, "search_rps", 1)),
		)
	}
	m.finder = NewFinder(searcher, pipeline, m.logger)

	m.logger.Info("courses plugin initialized",
		zap.Int("catalog", len(m.catalog.courses)),
		zap.Bool("search", searcher != nil),
		zap.Bool("model_backed", invoker != nil),
	)
	return nil
}

func (m *Module) Start(_ context.Context) error { return nil }

func (m *Module) Stop(_ context.Context) error { return nil }

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/recommend", Handler: m.handleRecommend},
		{Method: "GET", Path: "/search", Handler: m.handleSearch},
		{Method: "GET", Path: "", Handler: m.handleList},
		{Method: "GET", Path: "/topics", Handler: m.handleTopics},
	}
}

// Recommend merges the best catalog matches with external courses for
// each interest. External courses are capped at MaxExternal overall and
// titles already listed (case-insensitive) are skipped.
func (m *Module) Recommend(ctx context.Context, interests []string) RecommendResponse {
	internal := m.catalog.Recommend(interests, maxInternal)

	lookups := make([]Lookup, len(interests))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(lookupConcurrency)
	for i, in := range interests {
		eg.Go(func() error {
			lookups[i] = m.finder.Find(egCtx, in)
			return nil
		})
	}
	_ = eg.Wait()

	var external []Course
	for _, l := range lookups {
		external = append(external, l.Courses...)
	}
	external = external[:min(len(external), MaxExternal)]

	out := make([]Course, 0, len(internal)+len(external))
	seen := map[string]bool{}
	for _, c := range internal {
		seen[strings.ToLower(c.Title)] = true
		out = append(out, c)
	}
	for _, c := range external {
		key := strings.ToLower(c.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return RecommendResponse{Success: true, Recommendations: out, Count: len(out), Interests: interests}
}

// Search returns external courses for query.
func (m *Module) Search(ctx context.Context, query string) SearchResponse {
	l := m.finder.Find(ctx, query)
	return SearchResponse{
		Success:     true,
		Results:     l.Courses,
		Count:       len(l.Courses),
		Query:       query,
		Origin:      l.Origin,
		BackendUsed: l.BackendUsed,
	}
}
