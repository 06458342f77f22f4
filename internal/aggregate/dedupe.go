package aggregate

import (
	"github.com/ppiankov/newscheck/internal/extract"
	"github.com/ppiankov/newscheck/internal/model"
)

// Dedupe walks ranked snippets and keeps the first of every group of
// duplicates. Two snippets are duplicates when their normalized URLs match or
// their token similarity reaches threshold.
func Dedupe(ranked []model.Snippet, threshold float64) []model.Snippet {
	kept := make([]model.Snippet, 0, len(ranked))
	seen := make(map[string]bool, len(ranked))

	for _, s := range ranked {
		key := extract.NormalizeURL(s.URL)
		if seen[key] {
			continue
		}
		if nearDuplicate(s, kept, threshold) {
			continue
		}
		seen[key] = true
		kept = append(kept, s)
	}
	return kept
}

func nearDuplicate(s model.Snippet, kept []model.Snippet, threshold float64) bool {
	if threshold <= 0 {
		return false
	}
	for _, k := range kept {
		if extract.Similarity(s.Text, k.Text) >= threshold {
			return true
		}
	}
	return false
}

// Select takes the ranked prefix that fits both the snippet cap and the
// character budget. A non-positive limit disables that bound.
func Select(ranked []model.Snippet, maxSnippets, charBudget int) []model.Snippet {
	selected := make([]model.Snippet, 0, len(ranked))
	total := 0
	for _, s := range ranked {
		if maxSnippets > 0 && len(selected) >= maxSnippets {
			break
		}
		if charBudget > 0 && total+s.Length() > charBudget {
			break
		}
		total += s.Length()
		selected = append(selected, s)
	}
	return selected
}
