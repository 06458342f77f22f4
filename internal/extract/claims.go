package extract

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/newscheck/internal/model"
)

// ErrInvalidInput is matched by every InvalidInputError
var ErrInvalidInput = errors.New("invalid input")

// InvalidInputError reports claim text that cannot be evaluated
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return "invalid input: " + e.Reason
}

// Is lets errors.Is(err, ErrInvalidInput) match
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// SentenceSelector picks the index of the central sentence, or -1 when no
// sentence is a confident choice
type SentenceSelector func(sentences []string) int

const (
	defaultMaxClaimChars = 1000
	defaultMaxQueryTerms = 8
)

var (
	urlPattern      = regexp.MustCompile(`(?i)\b(?:https?://|www\.)\S+`)
	handlePattern   = regexp.MustCompile(`(^|\s)@\w+`)
	hashtagPattern  = regexp.MustCompile(`(^|\s)#(\w+)`)
	leadTagPattern  = regexp.MustCompile(`(?i)^\s*(?:breaking(?:\s+news)?|just\s+in|update|developing|exclusive|alert|viral)\s*[:!\-|]+\s*`)
	trailerPattern  = regexp.MustCompile(`(?i)\s*(?:share\s+this|read\s+more|click\s+here|follow\s+us|subscribe\s+now|via\s+@\w+)\b.*$`)
	repeatPunct     = regexp.MustCompile(`([!?.])[!?.]+`)
	sentenceBreak   = regexp.MustCompile(`([.!?])\s+`)
	determinerWords = map[string]bool{
		"the": true, "a": true, "an": true, "this": true, "that": true, "these": true, "those": true,
		"his": true, "her": true, "their": true, "its": true, "our": true, "every": true, "some": true,
		"many": true, "most": true, "all": true, "no": true,
	}
	verbWords = map[string]bool{
		"is": true, "are": true, "was": true, "were": true, "has": true, "have": true, "had": true,
		"will": true, "would": true, "can": true, "could": true, "does": true, "did": true, "do": true,
		"says": true, "said": true, "causes": true, "cause": true, "contains": true, "boils": true,
		"kills": true, "makes": true, "won": true, "wins": true, "lost": true, "dies": true, "died": true,
		"became": true, "becomes": true, "banned": true, "bans": true, "plans": true, "shows": true,
	}
)

// ClaimExtractor distills raw user text into a single checkable claim
type ClaimExtractor struct {
	maxChars      int
	maxQueryTerms int
	selector      SentenceSelector
}

// NewClaimExtractor creates a new claim extractor
func NewClaimExtractor() *ClaimExtractor {
	return &ClaimExtractor{
		maxChars:      defaultMaxClaimChars,
		maxQueryTerms: defaultMaxQueryTerms,
		selector:      LongestSubjectSentence,
	}
}

// WithMaxChars caps the claim text length
func (e *ClaimExtractor) WithMaxChars(n int) *ClaimExtractor {
	if n > 0 {
		e.maxChars = n
	}
	return e
}

// WithSelector swaps the central-sentence heuristic
func (e *ClaimExtractor) WithSelector(s SentenceSelector) *ClaimExtractor {
	if s != nil {
		e.selector = s
	}
	return e
}

// Extract returns the most central claim in raw. It never touches the network.
func (e *ClaimExtractor) Extract(raw string) (model.Claim, error) {
	if strings.TrimSpace(raw) == "" {
		return model.Claim{}, &InvalidInputError{Reason: "claim text is empty"}
	}

	text := clean(raw)
	if !hasContent(text) {
		return model.Claim{}, &InvalidInputError{Reason: "claim text has no checkable content after cleanup"}
	}

	sentences := splitSentences(text)

	claim := model.Claim{
		Text:      text,
		Heuristic: model.HeuristicWholeText,
	}
	if len(sentences) > 1 {
		if idx := e.selector(sentences); idx >= 0 && idx < len(sentences) {
			claim.Text = sentences[idx]
			claim.Heuristic = model.HeuristicSubjectSentence
			claim.Sentence = idx
		}
	}

	if len(claim.Text) > e.maxChars {
		claim.Text = Truncate(claim.Text, e.maxChars)
		claim.Heuristic = model.HeuristicTruncated
	}

	claim.Keywords = Tokens(claim.Text)
	claim.Query = buildQuery(claim, e.maxQueryTerms)

	return claim, nil
}

// clean strips social and wire boilerplate from raw text
func clean(raw string) string {
	text := raw
	if strings.ContainsAny(text, "<&") {
		text = StripHTML(text)
	}
	text = Normalize(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = trailerPattern.ReplaceAllString(text, "")
	text = handlePattern.ReplaceAllString(text, "$1")
	text = hashtagPattern.ReplaceAllString(text, "$1$2")
	text = leadTagPattern.ReplaceAllString(text, "")
	text = repeatPunct.ReplaceAllString(text, "$1")
	text = Normalize(text)
	return strings.Trim(text, " -|:")
}

func hasContent(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}

// splitSentences splits text on terminal punctuation followed by whitespace
func splitSentences(text string) []string {
	marked := sentenceBreak.ReplaceAllString(text, "$1\n")
	var sentences []string
	for _, s := range strings.Split(marked, "\n") {
		s = strings.TrimSpace(s)
		if hasContent(s) {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// LongestSubjectSentence picks the longest sentence that opens with a noun
// phrase and carries a verb. It is deliberately conservative: input with no
// qualifying sentence is evaluated whole.
func LongestSubjectSentence(sentences []string) int {
	best := -1
	bestLen := 0
	for i, s := range sentences {
		if !hasNounPhraseSubject(s) {
			continue
		}
		if l := len([]rune(s)); l > bestLen {
			best = i
			bestLen = l
		}
	}
	return best
}

func hasNounPhraseSubject(sentence string) bool {
	words := strings.Fields(sentence)
	if len(words) < 3 {
		return false
	}

	first := strings.TrimFunc(words[0], func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	if first == "" {
		return false
	}
	lower := strings.ToLower(first)

	var subject bool
	switch {
	case determinerWords[lower]:
		subject = true
	case verbWords[lower]:
		// Questions and imperatives ("Is it true...", "Do not...") have no leading subject
		subject = false
	default:
		r := []rune(first)[0]
		subject = unicode.IsUpper(r) || unicode.IsDigit(r)
	}
	if !subject {
		return false
	}

	for _, w := range words[1:] {
		lw := strings.ToLower(strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) }))
		if verbWords[lw] || (len(lw) > 4 && strings.HasSuffix(lw, "ed")) {
			return true
		}
	}
	return false
}

// buildQuery joins the first keywords into a provider search query. Claims
// made only of stopwords fall back to their leading folded words.
func buildQuery(claim model.Claim, maxTerms int) string {
	terms := claim.Keywords
	if len(terms) == 0 {
		terms = strings.Fields(Fold(claim.Text))
	}
	if len(terms) > maxTerms {
		terms = terms[:maxTerms]
	}
	return strings.Join(terms, " ")
}
