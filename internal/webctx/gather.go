package webctx

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Gatherer fetches several pages concurrently under one deadline.
type Gatherer struct {
	fetcher Fetcher
	limit   int
	timeout time.Duration
	logger  *zap.Logger
}

// NewGatherer returns a Gatherer running at most limit fetches at once and
// giving up on all of them after timeout.
func NewGatherer(f Fetcher, limit int, timeout time.Duration, logger *zap.Logger) *Gatherer {
	if limit <= 0 {
		limit = 3
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gatherer{fetcher: f, limit: limit, timeout: timeout, logger: logger}
}

// Gather fetches urls and returns the pages with content, in input order.
// Failed, empty and late fetches are left out; Gather itself never fails.
func (g *Gatherer) Gather(ctx context.Context, urls []string) []Page {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		closed  bool
		results = make([]*Page, len(urls))
	)
	eg := new(errgroup.Group)
	eg.SetLimit(g.limit)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i, u := range urls {
			if ctx.Err() != nil {
				break
			}
			eg.Go(func() error {
				p, err := g.fetcher.Fetch(ctx, u)
				if err != nil {
					g.logger.Debug("context fetch failed", zap.String("url", u), zap.Error(err))
					return nil
				}
				if p.Content == "" {
					return nil
				}
				mu.Lock()
				if !closed {
					results[i] = &p
				}
				mu.Unlock()
				return nil
			})
		}
		_ = eg.Wait()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		g.logger.Debug("context gathering timed out", zap.Duration("timeout", g.timeout))
	}

	mu.Lock()
	closed = true
	pages := make([]Page, 0, len(urls))
	for _, r := range results {
		if r != nil {
			pages = append(pages, *r)
		}
	}
	mu.Unlock()
	return pages
}
