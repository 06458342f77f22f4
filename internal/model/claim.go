package model

// Claim is the single checkable assertion distilled from user input
type Claim struct {
	Text      string   `json:"text"`                // Normalized claim used in prompts
	Query     string   `json:"query"`               // Case-folded keyword query sent to search providers
	Keywords  []string `json:"keywords,omitempty"`  // Content tokens used for relevance scoring
	Heuristic string   `json:"heuristic,omitempty"` // Which selection rule matched (e.g., "longest-subject-sentence")
	Sentence  int      `json:"sentence"`            // Sentence index in the cleaned input (0-based)
}

// Heuristics recorded on Claim.Heuristic
const (
	HeuristicWholeText       = "whole-text"
	HeuristicSubjectSentence = "longest-subject-sentence"
	HeuristicTruncated       = "truncated"
)

// IsZero reports whether the claim carries no text
func (c Claim) IsZero() bool {
	return c.Text == ""
}
