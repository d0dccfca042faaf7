package oracle

import (
	"context"
	"log/slog"
)

// Cache persists oracle answers between runs.
type Cache interface {
	GetSuggestions(ctx context.Context, backend, mode, text string, count int) ([]string, bool, error)
	PutSuggestions(ctx context.Context, backend, mode, text string, count int, candidates []string) error
}

// Cached serves repeated queries from a Cache before asking the backend.
type Cached struct {
	next    Oracle
	cache   Cache
	backend string
	logger  *slog.Logger
}

// NewCached wraps next. backend namespaces the cache entries.
func NewCached(next Oracle, cache Cache, backend string, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cached{next: next, cache: cache, backend: backend, logger: logger}
}

// Suggest consults the cache and stores fresh backend answers.
// Cache failures are logged and bypassed; backend errors are not cached.
func (c *Cached) Suggest(ctx context.Context, mode Mode, text string, count int) ([]Candidate, error) {
	texts, ok, err := c.cache.GetSuggestions(ctx, c.backend, string(mode), text, count)
	if err != nil {
		c.logger.Warn("oracle cache read failed", "err", err)
	} else if ok {
		out := make([]Candidate, 0, len(texts))
		for _, t := range texts {
			out = append(out, Candidate{Text: t})
		}
		return out, nil
	}

	candidates, err := c.next.Suggest(ctx, mode, text, count)
	if err != nil {
		return nil, err
	}
	texts = make([]string, 0, len(candidates))
	for _, cand := range candidates {
		texts = append(texts, cand.Text)
	}
	if err := c.cache.PutSuggestions(ctx, c.backend, string(mode), text, count, texts); err != nil {
		c.logger.Warn("oracle cache write failed", "err", err)
	}
	return candidates, nil
}
