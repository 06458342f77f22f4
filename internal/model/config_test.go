package model

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Expected default config to validate, got %v", err)
	}
}

func TestConfig_Validate_DeadlineShorterThanSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources.FactCheckFeed.Timeout = 10 * time.Second
	cfg.Aggregation.Deadline = 5 * time.Second

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected error when deadline is shorter than a source timeout")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestConfig_Validate_DisabledSourceIgnored(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sources.FactCheckFeed.Enabled = false
	cfg.Sources.FactCheckFeed.Timeout = time.Minute

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected disabled source timeout to be ignored, got %v", err)
	}
}

func TestConfig_Validate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown source", func(c *Config) { c.Sources.Order = append(c.Sources.Order, "tabloid") }},
		{"empty order", func(c *Config) { c.Sources.Order = nil }},
		{"zero cap", func(c *Config) { c.Aggregation.MaxEvidence = 0 }},
		{"threshold above one", func(c *Config) { c.Aggregation.DedupThreshold = 1.5 }},
		{"negative relevance", func(c *Config) { c.Aggregation.MinRelevance = -0.1 }},
		{"unknown priority", func(c *Config) { c.Aggregation.Priority = []string{"blog"} }},
		{"negative retries", func(c *Config) { c.Verdict.RetryBudget = -1 }},
		{"zero budget", func(c *Config) { c.Prompt.CharBudget = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Expected validation error")
			}
		})
	}
}

func TestConfig_RequestDeadline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Aggregation.Deadline = 8 * time.Second
	cfg.Verdict.Timeout = 10 * time.Second
	cfg.Verdict.RetryBudget = 2
	cfg.Verdict.RetryBaseDelay = time.Second

	// 8s + 10s*3 + (1s + 2s)
	want := 41 * time.Second
	if got := cfg.RequestDeadline(); got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}

	cfg.Request.Timeout = 15 * time.Second
	if got := cfg.RequestDeadline(); got != 15*time.Second {
		t.Errorf("Expected explicit request timeout to cap deadline, got %v", got)
	}
}

func TestAggregationConfig_PriorityKinds(t *testing.T) {
	cfg := AggregationConfig{Priority: []string{"Wikipedia", "news"}}
	kinds := cfg.PriorityKinds()
	if len(kinds) != 2 || kinds[0] != KindWikipedia || kinds[1] != KindNews {
		t.Errorf("Unexpected priority kinds: %v", kinds)
	}

	empty := AggregationConfig{}
	if got := empty.PriorityKinds(); len(got) != len(DefaultPriority) {
		t.Errorf("Expected default priority, got %v", got)
	}
}

func TestParseLabel(t *testing.T) {
	for _, in := range []string{"real", " FAKE ", "Uncertain"} {
		if _, ok := ParseLabel(in); !ok {
			t.Errorf("Expected %q to parse", in)
		}
	}
	if _, ok := ParseLabel("maybe"); ok {
		t.Error("Expected unknown label to be rejected")
	}
}
