package model

import "strings"

// Label is the final classification of a claim
type Label string

const (
	LabelReal      Label = "REAL"
	LabelFake      Label = "FAKE"
	LabelUncertain Label = "UNCERTAIN"
)

// Labels lists every valid label in canonical order
var Labels = []Label{LabelReal, LabelFake, LabelUncertain}

// ParseLabel matches a label token case-insensitively
func ParseLabel(s string) (Label, bool) {
	switch Label(strings.ToUpper(strings.TrimSpace(s))) {
	case LabelReal:
		return LabelReal, true
	case LabelFake:
		return LabelFake, true
	case LabelUncertain:
		return LabelUncertain, true
	}
	return "", false
}

// Outcome is the terminal path the verdict engine took
type Outcome string

const (
	OutcomeParsed   Outcome = "parsed"             // Backend answered with a usable label
	OutcomeFallback Outcome = "fallback_uncertain" // Engine defaulted to UNCERTAIN
)

// FallbackReason explains why the engine defaulted to UNCERTAIN
type FallbackReason string

const (
	FallbackNone               FallbackReason = ""
	FallbackNoEvidence         FallbackReason = "no_evidence"
	FallbackBackendUnavailable FallbackReason = "backend_unavailable"
	FallbackParseAmbiguous     FallbackReason = "parse_ambiguous"
)

// Verdict is the explainable result of one evaluation
type Verdict struct {
	Label        Label           `json:"label"`
	Rationale    string          `json:"rationale"`
	Confidence   float64         `json:"confidence"` // 0..1, derived from evidence signals, never from the model
	EvidenceUsed []Snippet       `json:"evidence_used"`
	Claim        Claim           `json:"claim"`
	Outcome      Outcome         `json:"outcome"`
	Fallback     FallbackReason  `json:"fallback,omitempty"`
	Attempts     int             `json:"attempts"`        // Backend calls made
	Model        string          `json:"model,omitempty"` // Backend model that produced the label
	Signals      []Signal        `json:"signals,omitempty"`
	Failed       []SourceFailure `json:"failed_sources,omitempty"`
}

// Signal is a transparent contribution to the confidence score
type Signal struct {
	Type        SignalType             `json:"type"`
	Severity    SignalSeverity         `json:"severity"`
	Description string                 `json:"description"`
	Data        map[string]interface{} `json:"data,omitempty"` // Inputs and formula behind the value
}

// SignalType classifies the type of confidence signal
type SignalType string

const (
	SignalEvidenceVolume  SignalType = "evidence_volume"  // How many snippets back the verdict
	SignalSourceAgreement SignalType = "source_agreement" // How many distinct source kinds contributed
	SignalRelevance       SignalType = "relevance"        // Mean lexical overlap with the claim
	SignalAuthority       SignalType = "authority"        // Authority tier balance of evidence URLs
	SignalFactCheckRating SignalType = "factcheck_rating" // Whether fact-check ratings agree with the label
	SignalFallback        SignalType = "fallback"         // Engine fell back to UNCERTAIN
	SignalDegradedSources SignalType = "degraded_sources" // Sources that failed or timed out
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)

// Prompt is the grounded instruction sent to the reasoning backend
type Prompt struct {
	Claim    Claim     `json:"claim"`
	Evidence []Snippet `json:"evidence"` // Snippets actually embedded, in rank order
	System   string    `json:"system"`
	Text     string    `json:"text"`
	Dropped  int       `json:"dropped,omitempty"` // Snippets removed to respect the character budget
}

// Length is the total prompt size measured against the character budget
func (p Prompt) Length() int {
	return len(p.System) + len(p.Text)
}
