package aggregate

import (
	"sort"

	"github.com/ppiankov/newscheck/internal/model"
)

// Rank orders snippets in place: relevance descending, then source priority,
// then retrieval order (source index, then position within the source). The
// result never depends on arrival order.
func Rank(snippets []model.Snippet, priority []model.SourceKind) {
	order := priorityIndex(priority)

	sort.SliceStable(snippets, func(i, j int) bool {
		a, b := snippets[i], snippets[j]
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		if pa, pb := order(a.Kind), order(b.Kind); pa != pb {
			return pa < pb
		}
		if a.SourceIndex != b.SourceIndex {
			return a.SourceIndex < b.SourceIndex
		}
		return a.Position < b.Position
	})
}

// priorityIndex maps a kind to its rank; unknown kinds sort last
func priorityIndex(priority []model.SourceKind) func(model.SourceKind) int {
	if len(priority) == 0 {
		priority = model.DefaultPriority
	}
	index := make(map[model.SourceKind]int, len(priority))
	for i, k := range priority {
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}
	return func(k model.SourceKind) int {
		if i, ok := index[k]; ok {
			return i
		}
		return len(priority)
	}
}
