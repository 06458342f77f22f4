package model

import (
	"errors"
	"fmt"
	"time"
)

// Source names accepted in SourcesConfig.Order
const (
	SourceWikipedia       = "wikipedia"
	SourceNewsAPI         = "newsapi"
	SourceGNews           = "gnews"
	SourceGoogleFactCheck = "google_factcheck"
	SourceFactCheckFeed   = "factcheck_feed"
)

// Config holds all newscheck configuration
type Config struct {
	Sources      SourcesConfig     `yaml:"sources" mapstructure:"sources"`
	Aggregation  AggregationConfig `yaml:"aggregation" mapstructure:"aggregation"`
	Prompt       PromptConfig      `yaml:"prompt" mapstructure:"prompt"`
	Verdict      VerdictConfig     `yaml:"verdict" mapstructure:"verdict"`
	Request      RequestConfig     `yaml:"request" mapstructure:"request"`
	LLM          LLMConfig         `yaml:"llm" mapstructure:"llm"`
	HTTP         HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Authority    AuthorityConfig   `yaml:"authority" mapstructure:"authority"`
	Logging      LoggingConfig     `yaml:"logging" mapstructure:"logging"`
}

// SourcesConfig configures the evidence sources and their retrieval order
type SourcesConfig struct {
	Order           []string     `yaml:"order" mapstructure:"order"`                         // Configured order, used as the final ranking tie-break
	MaxSnippetChars int          `yaml:"max_snippet_chars" mapstructure:"max_snippet_chars"` // Per-snippet text cap
	Wikipedia       SourceConfig `yaml:"wikipedia" mapstructure:"wikipedia"`
	NewsAPI         SourceConfig `yaml:"newsapi" mapstructure:"newsapi"`
	GNews           SourceConfig `yaml:"gnews" mapstructure:"gnews"`
	GoogleFactCheck SourceConfig `yaml:"google_factcheck" mapstructure:"google_factcheck"`
	FactCheckFeed   SourceConfig `yaml:"factcheck_feed" mapstructure:"factcheck_feed"`
}

// SourceConfig configures one evidence source
type SourceConfig struct {
	Enabled    bool          `yaml:"enabled" mapstructure:"enabled"`
	BaseURL    string        `yaml:"base_url,omitempty" mapstructure:"base_url"`
	APIKey     string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxResults int           `yaml:"max_results" mapstructure:"max_results"`
	MaxAgeDays int           `yaml:"max_age_days,omitempty" mapstructure:"max_age_days"` // Optional publication date bound (news only)
	Language   string        `yaml:"language,omitempty" mapstructure:"language"`
	Feeds      []string      `yaml:"feeds,omitempty" mapstructure:"feeds"` // RSS/Atom feed URLs (feed source only)
}

// Lookup returns the configuration for a named source
func (s *SourcesConfig) Lookup(name string) (SourceConfig, bool) {
	switch name {
	case SourceWikipedia:
		return s.Wikipedia, true
	case SourceNewsAPI:
		return s.NewsAPI, true
	case SourceGNews:
		return s.GNews, true
	case SourceGoogleFactCheck:
		return s.GoogleFactCheck, true
	case SourceFactCheckFeed:
		return s.FactCheckFeed, true
	}
	return SourceConfig{}, false
}

// MaxTimeout returns the largest timeout among enabled sources
func (s *SourcesConfig) MaxTimeout() time.Duration {
	var max time.Duration
	for _, name := range s.Order {
		sc, ok := s.Lookup(name)
		if !ok || !sc.Enabled {
			continue
		}
		if sc.Timeout > max {
			max = sc.Timeout
		}
	}
	return max
}

// AggregationConfig controls fan-out collection, ranking and deduplication
type AggregationConfig struct {
	Deadline       time.Duration `yaml:"deadline" mapstructure:"deadline"`
	MaxEvidence    int           `yaml:"max_evidence" mapstructure:"max_evidence"`
	MinRelevance   float64       `yaml:"min_relevance" mapstructure:"min_relevance"`
	DedupThreshold float64       `yaml:"dedup_threshold" mapstructure:"dedup_threshold"` // Jaccard similarity at which snippets collapse
	Priority       []string      `yaml:"priority" mapstructure:"priority"`               // Source kinds, highest priority first
}

// PromptConfig controls prompt composition
type PromptConfig struct {
	CharBudget    int `yaml:"char_budget" mapstructure:"char_budget"`
	MaxClaimChars int `yaml:"max_claim_chars" mapstructure:"max_claim_chars"`
}

// VerdictConfig controls backend calls and fallback policy
type VerdictConfig struct {
	Timeout                time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RetryBudget            int           `yaml:"retry_budget" mapstructure:"retry_budget"`
	RetryBaseDelay         time.Duration `yaml:"retry_base_delay" mapstructure:"retry_base_delay"`
	ConsultWithoutEvidence bool          `yaml:"consult_without_evidence" mapstructure:"consult_without_evidence"`
	MaxTokens              int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature            float32       `yaml:"temperature" mapstructure:"temperature"`
}

// BackoffTotal is the worst-case sleep spent between retries
func (v VerdictConfig) BackoffTotal() time.Duration {
	var total time.Duration
	delay := v.RetryBaseDelay
	for i := 0; i < v.RetryBudget; i++ {
		total += delay
		delay *= 2
	}
	return total
}

// RequestConfig bounds a whole evaluation
type RequestConfig struct {
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"` // Zero derives the deadline from stage budgets
}

// LLMConfig configures the reasoning backend
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // openai, huggingface, anthropic, ollama
	Model    string `yaml:"model" mapstructure:"model"`
	APIKey   string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL  string `yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// HTTPConfig configures outbound HTTP
type HTTPConfig struct {
	UserAgent    string `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64  `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MaxRetries   int    `yaml:"max_retries" mapstructure:"max_retries"` // Transient retries inside a source timeout
	HTTPProxy    string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// CacheConfig configures the optional retrieval cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig configures per-host outbound rate limiting
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig configures batch workers
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// AuthorityConfig configures authority tier classification
type AuthorityConfig struct {
	PrimaryDomains   []string          `yaml:"primary_domains" mapstructure:"primary_domains"`
	SecondaryDomains []string          `yaml:"secondary_domains" mapstructure:"secondary_domains"`
	PathPatterns     []PathPattern     `yaml:"path_patterns,omitempty" mapstructure:"path_patterns"`
	DomainMap        map[string]string `yaml:"domain_map,omitempty" mapstructure:"domain_map"` // Explicit host to tier overrides
}

// PathPattern maps a URL path regex to a tier
type PathPattern struct {
	Pattern string `yaml:"pattern" mapstructure:"pattern"`
	Tier    string `yaml:"tier" mapstructure:"tier"`
}

// LoggingConfig configures structured logging
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // trace, debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // console or json
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Sources: SourcesConfig{
			Order: []string{
				SourceWikipedia,
				SourceNewsAPI,
				SourceGNews,
				SourceGoogleFactCheck,
				SourceFactCheckFeed,
			},
			MaxSnippetChars: 600,
			Wikipedia: SourceConfig{
				Enabled:    true,
				BaseURL:    "https://en.wikipedia.org",
				Timeout:    5 * time.Second,
				MaxResults: 3,
				Language:   "en",
			},
			NewsAPI: SourceConfig{
				Enabled:    true,
				BaseURL:    "https://newsapi.org",
				Timeout:    5 * time.Second,
				MaxResults: 3,
				Language:   "en",
			},
			GNews: SourceConfig{
				Enabled:    true,
				BaseURL:    "https://gnews.io",
				Timeout:    5 * time.Second,
				MaxResults: 3,
				Language:   "en",
			},
			GoogleFactCheck: SourceConfig{
				Enabled:    true,
				BaseURL:    "https://factchecktools.googleapis.com",
				Timeout:    5 * time.Second,
				MaxResults: 5,
				Language:   "en",
			},
			FactCheckFeed: SourceConfig{
				Enabled:    true,
				Timeout:    6 * time.Second,
				MaxResults: 5,
				Feeds: []string{
					"https://www.snopes.com/feed/",
					"https://www.politifact.com/rss/factchecks/",
				},
			},
		},
		Aggregation: AggregationConfig{
			Deadline:       8 * time.Second,
			MaxEvidence:    8,
			MinRelevance:   0.1,
			DedupThreshold: 0.9,
			Priority:       []string{string(KindFactChecker), string(KindNews), string(KindWikipedia)},
		},
		Prompt: PromptConfig{
			CharBudget:    6000,
			MaxClaimChars: 1000,
		},
		Verdict: VerdictConfig{
			Timeout:        20 * time.Second,
			RetryBudget:    1,
			RetryBaseDelay: 500 * time.Millisecond,
			MaxTokens:      300,
			Temperature:    0.2,
		},
		LLM: LLMConfig{
			Provider: "openai",
		},
		HTTP: HTTPConfig{
			UserAgent:    "newscheck/0.1 (+https://github.com/ppiankov/newscheck)",
			MaxBodyBytes: 2_000_000,
			MaxRetries:   2,
		},
		Cache: CacheConfig{
			Enabled:   false,
			Dir:       ".newscheck-cache",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   6 * time.Hour,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 2.0,
			BurstSize:         5,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Authority: AuthorityConfig{
			PrimaryDomains: []string{
				"snopes.com", "politifact.com", "factcheck.org", "fullfact.org",
				"who.int", "cdc.gov", "nih.gov", "nasa.gov", "europa.eu", "gov.uk",
			},
			SecondaryDomains: []string{
				"wikipedia.org", "reuters.com", "apnews.com", "bbc.co.uk", "bbc.com",
				"nytimes.com", "theguardian.com", "washingtonpost.com", "npr.org",
			},
			PathPatterns: []PathPattern{
				{Pattern: `(?i)/fact-?check`, Tier: "primary"},
			},
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// ErrInvalidConfig is wrapped by every Validate failure
var ErrInvalidConfig = errors.New("invalid config")

// Validate checks cross-field constraints between stage budgets
func (c *Config) Validate() error {
	if len(c.Sources.Order) == 0 {
		return fmt.Errorf("%w: sources.order must name at least one source", ErrInvalidConfig)
	}
	for _, name := range c.Sources.Order {
		sc, ok := c.Sources.Lookup(name)
		if !ok {
			return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, name)
		}
		if sc.Enabled && sc.Timeout <= 0 {
			return fmt.Errorf("%w: sources.%s.timeout must be positive", ErrInvalidConfig, name)
		}
	}
	if c.Aggregation.Deadline <= 0 {
		return fmt.Errorf("%w: aggregation.deadline must be positive", ErrInvalidConfig)
	}
	if max := c.Sources.MaxTimeout(); c.Aggregation.Deadline < max {
		return fmt.Errorf("%w: aggregation.deadline %v is shorter than the largest source timeout %v",
			ErrInvalidConfig, c.Aggregation.Deadline, max)
	}
	if c.Aggregation.MaxEvidence <= 0 {
		return fmt.Errorf("%w: aggregation.max_evidence must be positive", ErrInvalidConfig)
	}
	if c.Aggregation.MinRelevance < 0 || c.Aggregation.MinRelevance > 1 {
		return fmt.Errorf("%w: aggregation.min_relevance must be within [0,1]", ErrInvalidConfig)
	}
	if c.Aggregation.DedupThreshold <= 0 || c.Aggregation.DedupThreshold > 1 {
		return fmt.Errorf("%w: aggregation.dedup_threshold must be within (0,1]", ErrInvalidConfig)
	}
	for _, p := range c.Aggregation.Priority {
		if _, ok := ParseSourceKind(p); !ok {
			return fmt.Errorf("%w: unknown source kind %q in aggregation.priority", ErrInvalidConfig, p)
		}
	}
	if c.Prompt.CharBudget <= 0 {
		return fmt.Errorf("%w: prompt.char_budget must be positive", ErrInvalidConfig)
	}
	if c.Verdict.Timeout <= 0 {
		return fmt.Errorf("%w: verdict.timeout must be positive", ErrInvalidConfig)
	}
	if c.Verdict.RetryBudget < 0 {
		return fmt.Errorf("%w: verdict.retry_budget must not be negative", ErrInvalidConfig)
	}
	if c.Request.Timeout < 0 {
		return fmt.Errorf("%w: request.timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// PriorityKinds returns the configured tie-break order, falling back to DefaultPriority
func (c *AggregationConfig) PriorityKinds() []SourceKind {
	var kinds []SourceKind
	for _, p := range c.Priority {
		if k, ok := ParseSourceKind(p); ok {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		return DefaultPriority
	}
	return kinds
}

// RequestDeadline is the overall budget for one evaluation
func (c *Config) RequestDeadline() time.Duration {
	derived := c.Aggregation.Deadline +
		c.Verdict.Timeout*time.Duration(1+c.Verdict.RetryBudget) +
		c.Verdict.BackoffTotal()
	if c.Request.Timeout > 0 && c.Request.Timeout < derived {
		return c.Request.Timeout
	}
	return derived
}
