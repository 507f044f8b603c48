package chat

import (
	"context"
	"strings"

	"github.com/HerbHall/studyforge/internal/generation"
	"github.com/HerbHall/studyforge/internal/webctx"
	"github.com/HerbHall/studyforge/pkg/llm"
	"go.uber.org/zap"
)

const sourcesMarker = "Sources:"

// TokenFunc receives answer text as the model produces it.
type TokenFunc func(ctx context.Context, chunk []byte) error

// FallbackTable answers every subject with Apology.
func FallbackTable() *generation.FallbackTable {
	return generation.NewFallbackTable(generation.KindChatAnswer, generation.FallbackRule{
		Name: "apology",
		Build: func(generation.FallbackInput) []generation.StructuredItem {
			return []generation.StructuredItem{&generation.ChatAnswer{Answer: Apology, Sources: []generation.Source{}}}
		},
	})
}

// SplitSources separates the answer text from a trailing "Sources:" list
// of "- Title: URL" lines. Lines that do not parse are skipped.
func SplitSources(full string) Answer {
	out := Answer{Answer: full, Sources: []generation.Source{}, FullResponse: full}
	body, list, ok := strings.Cut(full, sourcesMarker)
	if !ok {
		return out
	}
	out.Answer = strings.TrimSpace(body)
	for _, line := range strings.Split(list, "\n") {
		line = strings.TrimSpace(line)
		rest, ok := strings.CutPrefix(line, "- ")
		if !ok {
			continue
		}
		// Titles may contain ": "; URLs do not.
		i := strings.LastIndex(rest, ": ")
		if i < 0 {
			continue
		}
		out.Sources = append(out.Sources, generation.Source{
			Title: strings.TrimSpace(rest[:i]),
			URL:   strings.TrimSpace(rest[i+2:]),
		})
	}
	return out
}

// outcome is the result of one uncached computation.
type outcome struct {
	full         string
	usedFallback bool
	backend      *string
	computed     bool
}

// compute gathers web context for query, runs the pipeline and appends a
// Sources footer. The apology is returned without sources.
func (m *Module) compute(ctx context.Context, query string, onToken TokenFunc) outcome {
	var pages []webctx.Page
	if m.gatherer != nil {
		pages = m.gatherer.Gather(ctx, webctx.WikipediaURLs(query))
	}

	req, err := generation.NewRequest(generation.KindChatAnswer, query, 1)
	if err != nil {
		m.logger.Warn("chat request rejected", zap.Error(err))
		return outcome{full: Apology, usedFallback: true, computed: true}
	}
	if len(pages) > 0 {
		req = req.WithContext(webctx.ContextBlock(pages))
	}

	var opts []llm.CallOption
	if onToken != nil {
		opts = append(opts, llm.WithStreamFunc(onToken))
	}
	res, err := m.pipeline.Run(ctx, req, opts...)
	if err != nil || res.UsedFallback || res.Answer() == nil {
		return outcome{full: Apology, usedFallback: true, computed: true}
	}
	m.logger.Debug("chat answered",
		zap.Int("sources", len(pages)),
		zap.String("backend", res.Backend()),
		zap.Duration("elapsed", res.Elapsed),
	)
	return outcome{
		full:     res.Answer().Answer + webctx.SourcesFooter(pages),
		backend:  res.BackendUsed,
		computed: true,
	}
}
