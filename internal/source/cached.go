package source

import (
	"context"
	"time"

	"github.com/ppiankov/newscheck/internal/cache"
	"github.com/ppiankov/newscheck/internal/extract"
	"github.com/ppiankov/newscheck/internal/logging"
	"github.com/ppiankov/newscheck/internal/model"
)

// Cached wraps a Source with a result cache keyed by source name and query.
// Only successful retrievals are stored.
type Cached struct {
	inner Source
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps inner with c
func NewCached(inner Source, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

func (c *Cached) Name() string           { return c.inner.Name() }
func (c *Cached) Kind() model.SourceKind { return c.inner.Kind() }

// Retrieve serves from cache when possible and otherwise delegates
func (c *Cached) Retrieve(ctx context.Context, claim model.Claim) ([]model.Snippet, error) {
	key := cache.Key("source", c.inner.Name(), claim.Query)

	var snippets []model.Snippet
	if cache.GetJSON(c.cache, key, &snippets) {
		logging.Debug().
			Add(logging.Source(c.inner.Name())).
			Add(logging.Count("snippets", len(snippets))).
			Msg("Cache hit")
		// Claims sharing a query may differ in keywords beyond the query cap
		for i := range snippets {
			snippets[i].Relevance = extract.Relevance(claim.Keywords, snippets[i].Title+" "+snippets[i].Text)
			snippets[i].Position = i
		}
		return snippets, nil
	}

	snippets, err := c.inner.Retrieve(ctx, claim)
	if err != nil {
		return nil, err
	}

	if err := cache.SetJSON(c.cache, key, snippets, c.ttl); err != nil {
		logging.Warn().
			Add(logging.Source(c.inner.Name())).
			Add(logging.Err(err)).
			Msg("Cache write failed")
	}
	return snippets, nil
}
