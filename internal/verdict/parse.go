package verdict

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/ppiankov/newscheck/internal/extract"
	"github.com/ppiankov/newscheck/internal/model"
)

var (
	// ErrParseAmbiguous means no label could be extracted with confidence
	ErrParseAmbiguous = errors.New("response has no unambiguous label")

	// ErrBackendUnavailable means the backend failed after the retry budget
	ErrBackendUnavailable = errors.New("reasoning backend unavailable")
)

const maxRationaleChars = 600

var (
	markerPattern   = regexp.MustCompile(`(?i)\b(?:verdict|classification|label|answer)[\s*_]*[:\-][\s*_]*(REAL|FAKE|UNCERTAIN)\b`)
	labelPattern    = regexp.MustCompile(`(?i)\b(REAL|FAKE|UNCERTAIN)\b`)
	negationPattern = regexp.MustCompile(`(?i)(?:\bnot|\bnever|\bno|n't|\bneither|\bnor)\s+(?:\w+\s+){0,2}$`)
	reasonPattern   = regexp.MustCompile(`(?im)^\W*(?:reason|rationale|explanation|justification)\W*[:\-]\s*(.+)$`)
)

// Parse extracts the label and rationale from a raw backend response.
// An explicit marker such as "VERDICT: FAKE" wins; otherwise the first line
// naming exactly one distinct, non-negated label is used.
func Parse(text string) (model.Label, string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", "", ErrParseAmbiguous
	}

	label, verdictLine, ok := markedLabel(text)
	if !ok {
		label, verdictLine, ok = firstUnambiguousLine(text)
	}
	if !ok {
		return "", "", ErrParseAmbiguous
	}

	return label, rationale(text, verdictLine), nil
}

func markedLabel(text string) (model.Label, string, bool) {
	for _, line := range strings.Split(text, "\n") {
		loc := markerPattern.FindStringSubmatchIndex(line)
		if loc == nil || !standaloneLabel(line[loc[2]:loc[3]], line[loc[3]:]) {
			continue
		}
		label, ok := model.ParseLabel(line[loc[2]:loc[3]])
		return label, line, ok
	}
	return "", "", false
}

// standaloneLabel rejects prose such as "Verdict: Real estate ..." where the
// word after the marker only looks like a label. Upper-case tokens always
// count; others must end the line or be followed by punctuation.
func standaloneLabel(token, rest string) bool {
	if token == strings.ToUpper(token) {
		return true
	}
	rest = strings.TrimLeft(rest, " \t*_")
	if rest == "" {
		return true
	}
	r := []rune(rest)[0]
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func firstUnambiguousLine(text string) (model.Label, string, bool) {
	for _, line := range strings.Split(text, "\n") {
		scan := line
		// A marker rejected above must not resurface as a bare label
		if loc := markerPattern.FindStringSubmatchIndex(line); loc != nil {
			scan = line[loc[3]:]
		}
		matches := labelPattern.FindAllStringIndex(scan, -1)
		if len(matches) == 0 {
			continue
		}

		var found model.Label
		distinct := 0
		negated := false
		for _, m := range matches {
			label, _ := model.ParseLabel(scan[m[0]:m[1]])
			if label != found {
				distinct++
				found = label
			}
			if negationPattern.MatchString(scan[:m[0]]) {
				negated = true
			}
		}
		if distinct == 1 && !negated {
			return found, line, true
		}
	}
	return "", "", false
}

// rationale prefers an explicit REASON line and otherwise keeps the
// response text minus the verdict line
func rationale(text, verdictLine string) string {
	if m := reasonPattern.FindStringSubmatch(text); m != nil {
		// Markdown emphasis closing the heading, as in "**REASON:** ..."
		return extract.Truncate(strings.Trim(m[1], " \t*_"), maxRationaleChars)
	}

	var rest []string
	for _, line := range strings.Split(text, "\n") {
		if line == verdictLine {
			continue
		}
		if line = strings.TrimSpace(line); line != "" {
			rest = append(rest, line)
		}
	}
	return extract.Truncate(strings.Join(rest, " "), maxRationaleChars)
}
