package score

import (
	"fmt"
	"math"
	"strings"

	"github.com/ppiankov/newscheck/internal/extract"
	"github.com/ppiankov/newscheck/internal/model"
)

const (
	// Point budgets; the total of 100 maps to confidence 1.0
	volumePoints    = 30
	agreementPoints = 20
	relevancePoints = 20
	authorityPoints = 20
	ratingPoints    = 10

	// saturationCount is the snippet count that earns full volume points
	saturationCount = 5

	ratingConflictPenalty = 15
	degradedPenalty       = 5
	maxDegradedPenalty    = 10

	// FallbackCap bounds confidence when the engine defaulted to UNCERTAIN
	FallbackCap = 0.3
)

// Scorer derives verdict confidence from evidence signals. The reasoning
// backend never contributes a number.
type Scorer struct{}

// NewScorer creates a new scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Calculate returns the confidence for label and the signals behind it.
// evidence holds the snippets the verdict was actually based on.
func (s *Scorer) Calculate(label model.Label, outcome model.Outcome, evidence model.EvidenceSet) (float64, []model.Signal) {
	var signals []model.Signal

	if len(evidence.Failed) > 0 {
		signals = append(signals, s.degradedSignal(evidence.Failed))
	}

	if evidence.Empty() {
		signals = append(signals, model.Signal{
			Type:        model.SignalEvidenceVolume,
			Severity:    model.SeverityCritical,
			Description: "No corroborating evidence",
			Data:        map[string]interface{}{"snippets": 0, "score": 0},
		})
		if outcome == model.OutcomeFallback {
			signals = append(signals, fallbackSignal(0, 0))
		}
		return 0, signals
	}

	// 1. Evidence volume (0-30 points)
	volumeScore, volumeSignal := s.calculateVolume(evidence.Snippets)
	signals = append(signals, volumeSignal)

	// 2. Cross-source agreement (0-20 points)
	agreementScore, agreementSignal := s.calculateAgreement(evidence.Snippets)
	signals = append(signals, agreementSignal)

	// 3. Relevance (0-20 points)
	relevanceScore, relevanceSignal := s.calculateRelevance(evidence.Snippets)
	signals = append(signals, relevanceSignal)

	// 4. Authority (0-20 points)
	authorityScore, authoritySignal := s.calculateAuthority(evidence.Snippets)
	signals = append(signals, authoritySignal)

	// 5. Fact-check ratings (bonus or penalty)
	ratingScore, ratingSignal, rated := s.calculateRatings(label, evidence.Snippets)
	if rated {
		signals = append(signals, ratingSignal)
	}

	total := volumeScore + agreementScore + relevanceScore + authorityScore + ratingScore

	penalty := len(evidence.Failed) * degradedPenalty
	if penalty > maxDegradedPenalty {
		penalty = maxDegradedPenalty
	}
	total -= float64(penalty)

	confidence := clamp(total / 100)

	if outcome == model.OutcomeFallback {
		capped := math.Min(confidence, FallbackCap)
		signals = append(signals, fallbackSignal(confidence, capped))
		confidence = capped
	}

	return round(confidence), signals
}

// calculateVolume scores snippet count up to saturation (0-30 points)
func (s *Scorer) calculateVolume(snippets []model.Snippet) (float64, model.Signal) {
	n := len(snippets)
	ratio := math.Min(float64(n)/saturationCount, 1)
	score := ratio * volumePoints

	severity := model.SeverityInfo
	if n == 1 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalEvidenceVolume,
		Severity:    severity,
		Description: fmt.Sprintf("%d evidence snippet(s)", n),
		Data: map[string]interface{}{
			"snippets": n,
			"score":    round(score),
			"formula":  fmt.Sprintf("min(snippets / %d, 1) * %d", saturationCount, volumePoints),
		},
	}
}

// calculateAgreement rewards evidence spread across source kinds and sources (0-20 points)
func (s *Scorer) calculateAgreement(snippets []model.Snippet) (float64, model.Signal) {
	kinds := make(map[model.SourceKind]bool)
	sources := make(map[string]bool)
	for _, sn := range snippets {
		kinds[sn.Kind] = true
		sources[sn.Source] = true
	}

	kindRatio := float64(len(kinds)) / float64(len(model.DefaultPriority))
	sourceRatio := math.Min(float64(len(sources))/3, 1)
	score := (kindRatio*0.6 + sourceRatio*0.4) * agreementPoints

	severity := model.SeverityInfo
	if len(sources) == 1 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalSourceAgreement,
		Severity:    severity,
		Description: fmt.Sprintf("Evidence from %d source(s) across %d kind(s)", len(sources), len(kinds)),
		Data: map[string]interface{}{
			"sources": len(sources),
			"kinds":   len(kinds),
			"score":   round(score),
			"formula": fmt.Sprintf("(kinds/3 * 0.6 + min(sources/3, 1) * 0.4) * %d", agreementPoints),
		},
	}
}

// calculateRelevance scores the mean claim overlap (0-20 points)
func (s *Scorer) calculateRelevance(snippets []model.Snippet) (float64, model.Signal) {
	var sum float64
	for _, sn := range snippets {
		sum += sn.Relevance
	}
	mean := sum / float64(len(snippets))
	score := mean * relevancePoints

	severity := model.SeverityInfo
	if mean < 0.3 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalRelevance,
		Severity:    severity,
		Description: fmt.Sprintf("Mean relevance %.2f", mean),
		Data: map[string]interface{}{
			"mean":    round(mean),
			"score":   round(score),
			"formula": fmt.Sprintf("mean(relevance) * %d", relevancePoints),
		},
	}
}

// calculateAuthority weights snippets by tier (0-20 points)
func (s *Scorer) calculateAuthority(snippets []model.Snippet) (float64, model.Signal) {
	var primary, secondary, tertiary int
	for _, sn := range snippets {
		switch sn.Authority {
		case model.TierPrimary:
			primary++
		case model.TierSecondary:
			secondary++
		default:
			tertiary++
		}
	}

	total := len(snippets)
	weighted := float64(primary*3 + secondary*2 + tertiary)
	score := weighted / float64(total*3) * authorityPoints

	severity := model.SeverityInfo
	if primary == 0 && secondary == 0 {
		severity = model.SeverityWarning
	}

	return score, model.Signal{
		Type:        model.SignalAuthority,
		Severity:    severity,
		Description: fmt.Sprintf("Authority: %d primary, %d secondary, %d tertiary", primary, secondary, tertiary),
		Data: map[string]interface{}{
			"primary":   primary,
			"secondary": secondary,
			"tertiary":  tertiary,
			"score":     round(score),
			"formula":   fmt.Sprintf("(primary*3 + secondary*2 + tertiary) / (total*3) * %d", authorityPoints),
		},
	}
}

// calculateRatings compares fact-check ratings with the label. It reports
// false when no snippet carries an interpretable rating.
func (s *Scorer) calculateRatings(label model.Label, snippets []model.Snippet) (float64, model.Signal, bool) {
	var agree, disagree, neutral int
	for _, sn := range snippets {
		if sn.Rating == "" {
			continue
		}
		rated := RatingLabel(sn.Rating)
		switch {
		case rated == "" || rated == model.LabelUncertain || label == model.LabelUncertain:
			neutral++
		case rated == label:
			agree++
		default:
			disagree++
		}
	}

	if agree+disagree+neutral == 0 {
		return 0, model.Signal{}, false
	}

	var score float64
	severity := model.SeverityInfo
	description := fmt.Sprintf("Fact-check ratings: %d agree, %d disagree", agree, disagree)
	switch {
	case disagree > agree:
		score = -ratingConflictPenalty
		severity = model.SeverityCritical
		description += " (ratings contradict the verdict)"
	case agree > 0:
		score = ratingPoints * float64(agree-disagree) / float64(agree+disagree)
		if disagree > 0 {
			severity = model.SeverityWarning
		}
	}

	return score, model.Signal{
		Type:        model.SignalFactCheckRating,
		Severity:    severity,
		Description: description,
		Data: map[string]interface{}{
			"agree":    agree,
			"disagree": disagree,
			"neutral":  neutral,
			"score":    round(score),
		},
	}, true
}

func (s *Scorer) degradedSignal(failed []model.SourceFailure) model.Signal {
	names := make([]string, 0, len(failed))
	for _, f := range failed {
		names = append(names, f.Source)
	}
	return model.Signal{
		Type:        model.SignalDegradedSources,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("%d source(s) unavailable: %s", len(failed), strings.Join(names, ", ")),
		Data: map[string]interface{}{
			"failed":  names,
			"penalty": math.Min(float64(len(failed)*degradedPenalty), maxDegradedPenalty),
		},
	}
}

func fallbackSignal(raw, capped float64) model.Signal {
	return model.Signal{
		Type:        model.SignalFallback,
		Severity:    model.SeverityWarning,
		Description: fmt.Sprintf("Verdict defaulted to UNCERTAIN; confidence capped at %.2f", FallbackCap),
		Data: map[string]interface{}{
			"raw":    round(raw),
			"capped": round(capped),
		},
	}
}

// Rating phrases, checked in order so "half true" and "mostly false" resolve
// before the bare words they contain
var (
	mixedRatings = []string{"half", "mixture", "mixed", "misleading", "unproven", "unverified",
		"missing context", "partly", "partially", "outdated", "satire", "disputed"}
	falseRatings = []string{"pants on fire", "false", "fake", "fabricated", "incorrect", "hoax",
		"not true", "untrue", "inaccurate", "wrong", "scam", "debunked", "baseless"}
	trueRatings = []string{"true", "correct", "accurate", "legit", "confirmed"}
)

// RatingLabel maps a publisher's textual rating onto a label, or "" when
// the rating is not interpretable
func RatingLabel(rating string) model.Label {
	r := extract.Fold(extract.Normalize(rating))
	if r == "" {
		return ""
	}
	for _, list := range []struct {
		phrases []string
		label   model.Label
	}{
		{mixedRatings, model.LabelUncertain},
		{falseRatings, model.LabelFake},
		{trueRatings, model.LabelReal},
	} {
		for _, p := range list.phrases {
			if strings.Contains(r, p) {
				return list.label
			}
		}
	}
	return ""
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
