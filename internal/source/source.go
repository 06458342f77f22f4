// Package source retrieves evidence snippets for a claim from external
// providers. Every failure surfaces as an *UnavailableError so callers can
// degrade to empty evidence.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/newscheck/internal/extract"
	"github.com/ppiankov/newscheck/internal/model"
)

// Source retrieves evidence for a claim from one provider
type Source interface {
	Name() string
	Kind() model.SourceKind
	Retrieve(ctx context.Context, claim model.Claim) ([]model.Snippet, error)
}

// ErrSourceUnavailable is matched by every UnavailableError
var ErrSourceUnavailable = errors.New("source unavailable")

// UnavailableError reports a source that could not produce evidence
type UnavailableError struct {
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("source %s unavailable: %v", e.Source, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrSourceUnavailable) match
func (e *UnavailableError) Is(target error) bool {
	return target == ErrSourceUnavailable
}

func unavailable(name string, err error) error {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return err
	}
	return &UnavailableError{Source: name, Err: err}
}

const defaultMaxSnippetChars = 600

// finalize normalizes provider items into snippets: HTML is stripped, text is
// capped, relevance is scored against the claim and empty items are dropped.
// Positions follow the provider's own ordering.
func finalize(name string, kind model.SourceKind, claim model.Claim, items []model.Snippet, maxChars int) []model.Snippet {
	if maxChars <= 0 {
		maxChars = defaultMaxSnippetChars
	}

	now := time.Now().UTC()
	snippets := make([]model.Snippet, 0, len(items))
	for _, item := range items {
		item.Title = extract.StripHTML(item.Title)
		item.Text = extract.Truncate(extract.StripHTML(item.Text), maxChars)
		if item.Text == "" {
			item.Text = item.Title
		}
		if item.Text == "" || item.URL == "" {
			continue
		}

		item.Source = name
		item.Kind = kind
		item.RetrievedAt = now
		item.Relevance = extract.Relevance(claim.Keywords, item.Title+" "+item.Text)
		item.Position = len(snippets)
		snippets = append(snippets, item)
	}
	return snippets
}

// withTimeout bounds a retrieval by the source's own timeout
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func parseTime(layouts []string, value string) *time.Time {
	if value == "" {
		return nil
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

var timeLayouts = []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05Z0700", "2006-01-02 15:04:05", "2006-01-02"}
