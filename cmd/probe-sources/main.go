// Probe program that queries every configured evidence source for a claim
// and prints what each one returns, without consulting a reasoning backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/newscheck/internal/extract"
	"github.com/ppiankov/newscheck/internal/model"
	"github.com/ppiankov/newscheck/internal/pipeline"
	"github.com/ppiankov/newscheck/internal/source"
)

func main() {
	claims := os.Args[1:]
	if len(claims) == 0 {
		claims = []string{
			"The Eiffel Tower was moved to Berlin in 2023",
			"Water boils at 100 degrees Celsius at sea level",
		}
	}

	fmt.Println("=== Evidence Source Probe ===")
	fmt.Println()

	cfg := model.DefaultConfig()
	cfg.LLM.Provider = ""
	cfg.Sources.NewsAPI.APIKey = os.Getenv("NEWS_API_KEY")
	cfg.Sources.GNews.APIKey = os.Getenv("GNEWS_API_KEY")
	cfg.Sources.GoogleFactCheck.APIKey = os.Getenv("GOOGLE_FACTCHECK_API_KEY")

	p, err := pipeline.NewPipeline(cfg, pipeline.Options{})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create pipeline: %v\n", err)
		os.Exit(1)
	}

	extractor := extract.NewClaimExtractor()

	for _, raw := range claims {
		claim, err := extractor.Extract(raw)
		if err != nil {
			fmt.Printf("✗ %q: %v\n\n", raw, err)
			continue
		}

		fmt.Printf("Claim: %s\n", claim.Text)
		fmt.Printf("Query: %s\n", claim.Query)
		fmt.Println(strings.Repeat("-", 60))

		for _, s := range p.Sources() {
			probe(s, claim, cfg.Sources)
		}
		fmt.Println()
	}

	fmt.Println("=== Probe Complete ===")
	fmt.Println("\nSources without an API key are skipped at startup.")
}

func probe(s source.Source, claim model.Claim, cfg model.SourcesConfig) {
	sc, _ := cfg.Lookup(s.Name())
	ctx, cancel := context.WithTimeout(context.Background(), sc.Timeout)
	defer cancel()

	start := time.Now()
	snippets, err := s.Retrieve(ctx, claim)
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		reason := err
		var unavailable *source.UnavailableError
		if errors.As(err, &unavailable) {
			reason = unavailable.Err
		}
		fmt.Printf("  ✗ %s (%v): %v\n", s.Name(), elapsed, reason)
		return
	}

	fmt.Printf("  ✓ %s (%v): %d snippet(s)\n", s.Name(), elapsed, len(snippets))
	for _, sn := range snippets {
		fmt.Printf("     - %s\n", extract.Truncate(sn.Title+": "+sn.Text, 100))
		if sn.Rating != "" {
			fmt.Printf("       rating: %s\n", sn.Rating)
		}
		fmt.Printf("       %s\n", sn.URL)
	}
}
