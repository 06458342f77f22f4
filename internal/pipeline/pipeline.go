package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ppiankov/newscheck/internal/aggregate"
	"github.com/ppiankov/newscheck/internal/cache"
	"github.com/ppiankov/newscheck/internal/extract"
	"github.com/ppiankov/newscheck/internal/llm"
	"github.com/ppiankov/newscheck/internal/logging"
	"github.com/ppiankov/newscheck/internal/metrics"
	"github.com/ppiankov/newscheck/internal/model"
	"github.com/ppiankov/newscheck/internal/prompt"
	"github.com/ppiankov/newscheck/internal/score"
	"github.com/ppiankov/newscheck/internal/source"
	"github.com/ppiankov/newscheck/internal/util"
	"github.com/ppiankov/newscheck/internal/verdict"
	"github.com/ppiankov/newscheck/internal/worker"
)

// Options overrides collaborators that NewPipeline would otherwise build
// from configuration
type Options struct {
	// Provider replaces the configured reasoning backend
	Provider llm.Provider

	// Sources replaces the configured evidence sources
	Sources []source.Source

	// Cache replaces the configured retrieval cache
	Cache cache.Cache

	// Sleep replaces the verdict engine's backoff sleep
	Sleep verdict.SleepFunc
}

// Pipeline evaluates raw claim text end to end. A Pipeline holds no
// per-request state and is safe for concurrent use.
type Pipeline struct {
	config     *model.Config
	extractor  *extract.ClaimExtractor
	sources    []source.Source
	aggregator *aggregate.Aggregator
	composer   *prompt.Composer
	engine     *verdict.Engine
	provider   llm.Provider
}

// NewPipeline creates a pipeline with the given configuration
func NewPipeline(cfg *model.Config, opts Options) (*Pipeline, error) {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	provider := opts.Provider
	if provider == nil && cfg.LLM.Provider != "" {
		p, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM, cfg.Verdict, cfg.HTTP))
		if err != nil {
			// Verdicts degrade to UNCERTAIN rather than refusing to start
			logging.Warn().
				Add(logging.Provider(cfg.LLM.Provider)).
				Add(logging.Err(err)).
				Msg("Failed to initialize reasoning backend")
		} else {
			provider = p
		}
	}

	sources := opts.Sources
	if sources == nil {
		built, err := buildSources(cfg, opts.Cache)
		if err != nil {
			return nil, fmt.Errorf("build sources: %w", err)
		}
		sources = built
	}
	if len(sources) == 0 {
		logging.Warn().
			Add(logging.Component("pipeline")).
			Msg("No evidence sources available, every claim will be UNCERTAIN")
	}

	engine, err := verdict.NewEngine(provider, cfg.Verdict, score.NewScorer())
	if err != nil {
		return nil, err
	}
	engine.WithSleep(opts.Sleep)

	return &Pipeline{
		config:     cfg,
		extractor:  extract.NewClaimExtractor().WithMaxChars(cfg.Prompt.MaxClaimChars),
		sources:    sources,
		aggregator: aggregate.NewAggregator(cfg.Aggregation, cfg.Prompt.CharBudget).WithClassifier(score.NewAuthorityClassifier(cfg.Authority)),
		composer:   prompt.NewComposer(cfg.Prompt),
		engine:     engine,
		provider:   provider,
	}, nil
}

// buildSources wires the shared HTTP client, rate limiter, robots checker
// and optional cache into the configured sources
func buildSources(cfg *model.Config, c cache.Cache) ([]source.Source, error) {
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	client := source.NewClient(cfg.HTTP, limiter)
	robots := util.NewRobotsChecker(cfg.HTTP.UserAgent, client.HTTPClient())

	if c == nil && cfg.Cache.Enabled {
		c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, expandHome(cfg.Cache.Dir), cfg.Cache.DiskTTL)
	}

	return source.Build(cfg.Sources, client, robots, c, cfg.Cache.MemoryTTL)
}

func expandHome(dir string) string {
	if !strings.HasPrefix(dir, "~/") {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dir
	}
	return filepath.Join(home, dir[2:])
}

// Provider returns the reasoning backend, or nil when none is configured
func (p *Pipeline) Provider() llm.Provider {
	return p.provider
}

// Sources returns the evidence sources in configured order
func (p *Pipeline) Sources() []source.Source {
	return p.sources
}

// Evaluate classifies raw claim text. The only error it returns is an
// *extract.InvalidInputError, raised before any network call; every other
// failure degrades into an UNCERTAIN verdict that explains why.
func (p *Pipeline) Evaluate(ctx context.Context, raw string) (*model.Verdict, error) {
	start := time.Now()

	// 1. Extract the claim
	claim, err := p.extractor.Extract(raw)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.RequestDeadline())
	defer cancel()

	logging.Debug().
		Add(logging.Component("pipeline")).
		Add(logging.Str("claim", claim.Text)).
		Add(logging.Str("query", claim.Query)).
		Msg("Claim extracted")

	// 2. Gather evidence
	evidence := p.aggregator.Aggregate(ctx, claim, p.sources)

	// 3. Compose the prompt
	composed := p.composer.Compose(claim, evidence)
	if composed.Dropped > 0 {
		logging.Debug().
			Add(logging.Component("pipeline")).
			Add(logging.Count("dropped", composed.Dropped)).
			Msg("Snippets dropped to fit the prompt budget")
	}

	// 4. Decide
	v := p.engine.Decide(ctx, composed, evidence)

	elapsed := time.Since(start)
	metrics.ObserveVerdict(string(v.Label), string(v.Outcome), elapsed)

	logging.Info().
		Add(logging.Component("pipeline")).
		Add(logging.Label(string(v.Label))).
		Add(logging.Count("evidence", len(v.EvidenceUsed))).
		Add(logging.Count("failed_sources", len(v.Failed))).
		Add(logging.Duration(elapsed)).
		Msg("Claim evaluated")

	return &v, nil
}
