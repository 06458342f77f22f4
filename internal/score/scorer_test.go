package score

import (
	"testing"

	"github.com/ppiankov/newscheck/internal/model"
)

func snippet(source string, kind model.SourceKind, relevance float64, tier model.AuthorityTier) model.Snippet {
	return model.Snippet{
		Source:    source,
		Kind:      kind,
		Text:      "text",
		URL:       "https://example.com/" + source,
		Relevance: relevance,
		Authority: tier,
	}
}

func findSignal(signals []model.Signal, typ model.SignalType) (model.Signal, bool) {
	for _, s := range signals {
		if s.Type == typ {
			return s, true
		}
	}
	return model.Signal{}, false
}

func TestScorer_Calculate_EmptyEvidence(t *testing.T) {
	scorer := NewScorer()

	confidence, signals := scorer.Calculate(model.LabelUncertain, model.OutcomeFallback, model.EvidenceSet{})
	if confidence != 0 {
		t.Errorf("Expected confidence 0 for empty evidence, got %v", confidence)
	}
	if _, ok := findSignal(signals, model.SignalFallback); !ok {
		t.Error("Expected fallback signal")
	}
	volume, ok := findSignal(signals, model.SignalEvidenceVolume)
	if !ok || volume.Severity != model.SeverityCritical {
		t.Errorf("Expected critical volume signal, got %+v", volume)
	}
}

func TestScorer_Calculate_Bounds(t *testing.T) {
	scorer := NewScorer()

	strong := model.EvidenceSet{Snippets: []model.Snippet{
		snippet("googlefactcheck", model.KindFactChecker, 1, model.TierPrimary),
		snippet("newsapi", model.KindNews, 1, model.TierPrimary),
		snippet("wikipedia", model.KindWikipedia, 1, model.TierPrimary),
		snippet("gnews", model.KindNews, 1, model.TierPrimary),
		snippet("factcheckfeed", model.KindFactChecker, 1, model.TierPrimary),
	}}
	confidence, _ := scorer.Calculate(model.LabelReal, model.OutcomeParsed, strong)
	// Unrated evidence tops out at 0.9
	if confidence < 0.85 || confidence > 1 {
		t.Errorf("Expected high confidence for saturated evidence, got %v", confidence)
	}

	weak := model.EvidenceSet{Snippets: []model.Snippet{
		snippet("newsapi", model.KindNews, 0.1, model.TierTertiary),
	}}
	low, _ := scorer.Calculate(model.LabelReal, model.OutcomeParsed, weak)
	if low <= 0 || low >= confidence {
		t.Errorf("Expected weak evidence to score between 0 and %v, got %v", confidence, low)
	}
}

func TestScorer_Calculate_MoreEvidenceMoreConfidence(t *testing.T) {
	scorer := NewScorer()

	one := model.EvidenceSet{Snippets: []model.Snippet{
		snippet("wikipedia", model.KindWikipedia, 0.6, model.TierSecondary),
	}}
	three := model.EvidenceSet{Snippets: []model.Snippet{
		snippet("wikipedia", model.KindWikipedia, 0.6, model.TierSecondary),
		snippet("newsapi", model.KindNews, 0.6, model.TierSecondary),
		snippet("googlefactcheck", model.KindFactChecker, 0.6, model.TierSecondary),
	}}

	c1, _ := scorer.Calculate(model.LabelReal, model.OutcomeParsed, one)
	c3, _ := scorer.Calculate(model.LabelReal, model.OutcomeParsed, three)
	if c3 <= c1 {
		t.Errorf("Expected broader evidence to raise confidence: one=%v three=%v", c1, c3)
	}
}

func TestScorer_Calculate_FallbackCapped(t *testing.T) {
	scorer := NewScorer()

	evidence := model.EvidenceSet{Snippets: []model.Snippet{
		snippet("googlefactcheck", model.KindFactChecker, 1, model.TierPrimary),
		snippet("newsapi", model.KindNews, 1, model.TierPrimary),
		snippet("wikipedia", model.KindWikipedia, 1, model.TierPrimary),
	}}

	confidence, signals := scorer.Calculate(model.LabelUncertain, model.OutcomeFallback, evidence)
	if confidence > FallbackCap {
		t.Errorf("Expected confidence <= %v on fallback, got %v", FallbackCap, confidence)
	}
	if _, ok := findSignal(signals, model.SignalFallback); !ok {
		t.Error("Expected fallback signal")
	}
}

func TestScorer_Calculate_RatingAgreement(t *testing.T) {
	scorer := NewScorer()

	rated := func(rating string) model.EvidenceSet {
		sn := snippet("googlefactcheck", model.KindFactChecker, 0.8, model.TierPrimary)
		sn.Rating = rating
		return model.EvidenceSet{Snippets: []model.Snippet{sn}}
	}

	agree, signals := scorer.Calculate(model.LabelFake, model.OutcomeParsed, rated("Pants on Fire"))
	sig, ok := findSignal(signals, model.SignalFactCheckRating)
	if !ok || sig.Severity != model.SeverityInfo {
		t.Errorf("Expected info rating signal, got %+v", sig)
	}

	conflict, signals := scorer.Calculate(model.LabelReal, model.OutcomeParsed, rated("False"))
	sig, ok = findSignal(signals, model.SignalFactCheckRating)
	if !ok || sig.Severity != model.SeverityCritical {
		t.Errorf("Expected critical rating signal, got %+v", sig)
	}

	if conflict >= agree {
		t.Errorf("Expected contradicting rating to lower confidence: agree=%v conflict=%v", agree, conflict)
	}
}

func TestScorer_Calculate_DegradedSources(t *testing.T) {
	scorer := NewScorer()

	snippets := []model.Snippet{snippet("wikipedia", model.KindWikipedia, 0.8, model.TierSecondary)}
	healthy, _ := scorer.Calculate(model.LabelReal, model.OutcomeParsed, model.EvidenceSet{Snippets: snippets})
	degraded, signals := scorer.Calculate(model.LabelReal, model.OutcomeParsed, model.EvidenceSet{
		Snippets: snippets,
		Failed:   []model.SourceFailure{{Source: "newsapi", Reason: "timeout"}},
	})

	if degraded >= healthy {
		t.Errorf("Expected failed source to lower confidence: healthy=%v degraded=%v", healthy, degraded)
	}
	if _, ok := findSignal(signals, model.SignalDegradedSources); !ok {
		t.Error("Expected degraded sources signal")
	}
}

func TestRatingLabel(t *testing.T) {
	tests := []struct {
		rating   string
		expected model.Label
	}{
		{"False", model.LabelFake},
		{"Pants on Fire!", model.LabelFake},
		{"Mostly False", model.LabelFake},
		{"Incorrect", model.LabelFake},
		{"Untrue", model.LabelFake},
		{"True", model.LabelReal},
		{"Mostly True", model.LabelReal},
		{"Correct", model.LabelReal},
		{"Half True", model.LabelUncertain},
		{"Mixture", model.LabelUncertain},
		{"Missing Context", model.LabelUncertain},
		{"Four Pinocchios", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.rating, func(t *testing.T) {
			if got := RatingLabel(tt.rating); got != tt.expected {
				t.Errorf("Expected %q for %q, got %q", tt.expected, tt.rating, got)
			}
		})
	}
}
