// Package aggregate fans a claim out to evidence sources and merges what
// comes back into one ranked, deduplicated, bounded evidence set.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/newscheck/internal/logging"
	"github.com/ppiankov/newscheck/internal/metrics"
	"github.com/ppiankov/newscheck/internal/model"
	"github.com/ppiankov/newscheck/internal/source"
)

// Classifier assigns an authority tier to an evidence URL
type Classifier interface {
	Classify(rawURL string) model.AuthorityTier
}

// Aggregator collects evidence from sources in parallel
type Aggregator struct {
	cfg        model.AggregationConfig
	charBudget int
	priority   []model.SourceKind
	classifier Classifier
}

// NewAggregator creates an aggregator. charBudget bounds the total snippet
// length handed to the prompt.
func NewAggregator(cfg model.AggregationConfig, charBudget int) *Aggregator {
	return &Aggregator{
		cfg:        cfg,
		charBudget: charBudget,
		priority:   cfg.PriorityKinds(),
	}
}

// WithClassifier tags snippets with an authority tier before ranking
func (a *Aggregator) WithClassifier(c Classifier) *Aggregator {
	a.classifier = c
	return a
}

type sourceResult struct {
	index    int
	name     string
	snippets []model.Snippet
	err      error
	duration time.Duration
}

// Aggregate queries every source concurrently and returns whatever arrived
// before the aggregation deadline. It never fails: sources that error or run
// late are recorded in EvidenceSet.Failed and contribute nothing.
func (a *Aggregator) Aggregate(ctx context.Context, claim model.Claim, sources []source.Source) model.EvidenceSet {
	set := model.EvidenceSet{Snippets: []model.Snippet{}}
	if len(sources) == 0 {
		return set
	}

	if a.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Deadline)
		defer cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so stragglers finishing after the deadline never block
	results := make(chan sourceResult, len(sources))

	var g errgroup.Group
	for i, s := range sources {
		g.Go(func() error {
			results <- retrieve(ctx, i, s, claim)
			return nil
		})
	}

	received := make([]*sourceResult, len(sources))
	count := 0
collect:
	for count < len(sources) {
		select {
		case r := <-results:
			received[r.index] = &r
			count++
		case <-ctx.Done():
			break collect
		}
	}
	cancel()

	if count < len(sources) {
		go drainLate(&g, results)
	}

	var pool []model.Snippet
	for i, s := range sources {
		r := received[i]
		if r == nil {
			metrics.ObserveSource(s.Name(), metrics.ResultTimeout, a.cfg.Deadline)
			set.Failed = append(set.Failed, model.SourceFailure{Source: s.Name(), Reason: "aggregation deadline exceeded"})
			logging.Warn().
				Add(logging.Component("aggregate")).
				Add(logging.Source(s.Name())).
				Msg("Source missed aggregation deadline")
			continue
		}
		if r.err != nil {
			result := metrics.ResultError
			if errors.Is(r.err, context.DeadlineExceeded) {
				result = metrics.ResultTimeout
			}
			metrics.ObserveSource(s.Name(), result, r.duration)
			set.Failed = append(set.Failed, model.SourceFailure{Source: s.Name(), Reason: r.err.Error()})
			logging.Warn().
				Add(logging.Component("aggregate")).
				Add(logging.Source(s.Name())).
				Add(logging.Err(r.err)).
				Msg("Source unavailable")
			continue
		}

		metrics.ObserveSource(s.Name(), metrics.ResultOK, r.duration)
		set.Consulted = append(set.Consulted, s.Name())
		pool = append(pool, a.admit(i, s, r.snippets)...)
	}

	Rank(pool, a.priority)
	set.Snippets = Select(Dedupe(pool, a.cfg.DedupThreshold), a.cfg.MaxEvidence, a.charBudget)

	logging.Debug().
		Add(logging.Component("aggregate")).
		Add(logging.Count("candidates", len(pool))).
		Add(logging.Count("selected", len(set.Snippets))).
		Add(logging.Count("failed", len(set.Failed))).
		Msg("Evidence aggregated")

	return set
}

// admit stamps retrieval order and drops empty or irrelevant snippets
func (a *Aggregator) admit(index int, s source.Source, snippets []model.Snippet) []model.Snippet {
	admitted := make([]model.Snippet, 0, len(snippets))
	for pos, sn := range snippets {
		if sn.Text == "" || sn.Relevance < a.cfg.MinRelevance {
			continue
		}
		if sn.Source == "" {
			sn.Source = s.Name()
		}
		if sn.Kind == "" {
			sn.Kind = s.Kind()
		}
		sn.SourceIndex = index
		sn.Position = pos
		if a.classifier != nil && sn.Authority == model.TierUnknown {
			sn.Authority = a.classifier.Classify(sn.URL)
		}
		admitted = append(admitted, sn)
	}
	return admitted
}

func retrieve(ctx context.Context, index int, s source.Source, claim model.Claim) (r sourceResult) {
	start := time.Now()
	r = sourceResult{index: index, name: s.Name()}
	defer func() {
		if p := recover(); p != nil {
			r.snippets = nil
			r.err = fmt.Errorf("source panicked: %v", p)
		}
		r.duration = time.Since(start)
	}()

	r.snippets, r.err = s.Retrieve(ctx, claim)
	return r
}

// drainLate records results that arrived after collection stopped
func drainLate(g *errgroup.Group, results chan sourceResult) {
	_ = g.Wait()
	close(results)
	for r := range results {
		metrics.ObserveLate(r.name)
	}
}
