// Package prompt turns a claim and its evidence into the grounded
// instruction sent to the reasoning backend.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ppiankov/newscheck/internal/extract"
	"github.com/ppiankov/newscheck/internal/model"
)

// SystemMessage frames every request
const SystemMessage = "You are a careful fact-checking assistant. You judge news claims strictly against the evidence you are given. " +
	"You never invent sources, and when the evidence does not settle a claim you say so."

const defaultCharBudget = 6000

// Composer builds deterministic prompts within a character budget
type Composer struct {
	charBudget int
}

// NewComposer creates a composer from prompt configuration
func NewComposer(cfg model.PromptConfig) *Composer {
	budget := cfg.CharBudget
	if budget <= 0 {
		budget = defaultCharBudget
	}
	return &Composer{charBudget: budget}
}

// Compose renders the prompt. When the rendered prompt exceeds the budget,
// the lowest-ranked snippets are dropped first; if the claim alone still does
// not fit, the claim text is shortened.
func (c *Composer) Compose(claim model.Claim, evidence model.EvidenceSet) model.Prompt {
	snippets := evidence.Snippets

	for n := len(snippets); n >= 0; n-- {
		p := model.Prompt{
			Claim:    claim,
			Evidence: snippets[:n:n],
			System:   SystemMessage,
			Text:     render(claim.Text, snippets[:n]),
			Dropped:  len(snippets) - n,
		}
		if p.Length() <= c.charBudget {
			return p
		}
	}

	// Only the claim is left over budget
	p := model.Prompt{
		Claim:    claim,
		Evidence: []model.Snippet{},
		System:   SystemMessage,
		Dropped:  len(snippets),
	}
	// Quoting may escape characters, so shrink until the render fits
	overhead := len(SystemMessage) + len(render("", nil))
	for limit := c.charBudget - overhead; limit > 0; limit -= 16 {
		p.Text = render(extract.Truncate(claim.Text, limit), nil)
		if p.Length() <= c.charBudget {
			return p
		}
	}
	p.Text = render("", nil)
	return p
}

func render(claimText string, snippets []model.Snippet) string {
	var b strings.Builder

	b.WriteString("Task: Decide whether the news claim below is REAL, FAKE or UNCERTAIN, using only the evidence provided.\n\n")
	fmt.Fprintf(&b, "Claim: %q\n\n", claimText)

	b.WriteString("Evidence:\n")
	if len(snippets) == 0 {
		b.WriteString("No evidence was retrieved for this claim.\n\n")
	}
	for i, s := range snippets {
		writeSnippet(&b, i+1, s)
	}
	if len(snippets) > 0 {
		b.WriteString("\n")
	}

	b.WriteString("Instructions:\n")
	b.WriteString("1. Restate the claim in your own words.\n")
	b.WriteString("2. Compare the claim with each evidence item, citing items by number and noting whether each supports or contradicts it.\n")
	b.WriteString("3. Answer REAL if the evidence supports the claim, FAKE if the evidence contradicts it, and UNCERTAIN if the evidence is missing, mixed or off-topic.\n")
	if len(snippets) == 0 {
		b.WriteString("There is no evidence, so the answer must be UNCERTAIN. Do not rely on memory to sound confident.\n")
	}
	b.WriteString("Finish with exactly these two lines:\n")
	b.WriteString("VERDICT: <REAL|FAKE|UNCERTAIN>\n")
	b.WriteString("REASON: <one sentence>\n")

	return b.String()
}

func writeSnippet(b *strings.Builder, n int, s model.Snippet) {
	attribution := s.Source
	if s.Publisher != "" {
		attribution = s.Publisher + " via " + s.Source
	}
	fmt.Fprintf(b, "[%d] (%s, %s", n, attribution, s.Kind)
	if s.Rating != "" {
		fmt.Fprintf(b, ", rated %q", s.Rating)
	}
	if s.PublishedAt != nil {
		fmt.Fprintf(b, ", %s", s.PublishedAt.Format("2006-01-02"))
	}
	b.WriteString(") ")
	if s.Title != "" && !strings.HasPrefix(s.Text, s.Title) {
		b.WriteString(s.Title)
		b.WriteString(": ")
	}
	b.WriteString(s.Text)
	fmt.Fprintf(b, " <%s>\n", s.URL)
}
