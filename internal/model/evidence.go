package model

import (
	"strings"
	"time"
)

// SourceKind classifies where a snippet came from
type SourceKind string

const (
	KindFactChecker SourceKind = "factchecker" // Fact-checking organisations and their ratings
	KindNews        SourceKind = "news"        // News search providers
	KindWikipedia   SourceKind = "wikipedia"   // Encyclopedia summaries
)

// DefaultPriority is the tie-break order used when two snippets share a relevance score
var DefaultPriority = []SourceKind{KindFactChecker, KindNews, KindWikipedia}

// ParseSourceKind converts a configuration string into a SourceKind
func ParseSourceKind(s string) (SourceKind, bool) {
	switch SourceKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindFactChecker:
		return KindFactChecker, true
	case KindNews:
		return KindNews, true
	case KindWikipedia:
		return KindWikipedia, true
	}
	return "", false
}

// Snippet is one piece of retrieved evidence
type Snippet struct {
	Source      string        `json:"source"`                 // Source name (e.g., "wikipedia", "newsapi")
	Kind        SourceKind    `json:"kind"`                   // factchecker, news, wikipedia
	Title       string        `json:"title,omitempty"`        // Article or page title
	Text        string        `json:"text"`                   // Plain-text excerpt
	URL         string        `json:"url"`                    // Canonical link to the evidence
	Rating      string        `json:"rating,omitempty"`       // Fact-check textual rating when supplied
	Publisher   string        `json:"publisher,omitempty"`    // Outlet or reviewing organisation
	PublishedAt *time.Time    `json:"published_at,omitempty"` // Provider publication date if known
	RetrievedAt time.Time     `json:"retrieved_at"`
	Relevance   float64       `json:"relevance"`           // Lexical overlap with the claim, 0..1
	Authority   AuthorityTier `json:"authority,omitempty"` // Authority classification of the URL host

	SourceIndex int `json:"-"` // Position of the source in the configured source list
	Position    int `json:"-"` // Position of the snippet within its source's result
}

// Length is the serialized size used against prompt budgets
func (s Snippet) Length() int {
	return len(s.Title) + len(s.Text) + len(s.URL) + len(s.Source) + len(s.Rating)
}

// SourceFailure records a source that degraded to empty evidence
type SourceFailure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// EvidenceSet is the ranked, deduplicated evidence handed to the prompt composer
type EvidenceSet struct {
	Snippets  []Snippet       `json:"snippets"`
	Consulted []string        `json:"consulted"`        // Sources that answered before the deadline
	Failed    []SourceFailure `json:"failed,omitempty"` // Sources that errored or timed out
}

// Empty reports whether no snippet survived aggregation
func (e EvidenceSet) Empty() bool {
	return len(e.Snippets) == 0
}

// URLs returns the snippet URLs in rank order
func (e EvidenceSet) URLs() []string {
	urls := make([]string, 0, len(e.Snippets))
	for _, s := range e.Snippets {
		urls = append(urls, s.URL)
	}
	return urls
}

// AuthorityTier represents the classification of source authority
type AuthorityTier int

const (
	TierUnknown   AuthorityTier = 0 // Not yet classified
	TierPrimary   AuthorityTier = 1 // Official bodies, fact-checkers, academic institutions
	TierSecondary AuthorityTier = 2 // Encyclopedias, wire services, major outlets
	TierTertiary  AuthorityTier = 3 // Blogs, aggregators, everything else
)

func (t AuthorityTier) String() string {
	switch t {
	case TierPrimary:
		return "primary"
	case TierSecondary:
		return "secondary"
	case TierTertiary:
		return "tertiary"
	default:
		return "unknown"
	}
}
