package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newscheck/internal/extract"
	"github.com/ppiankov/newscheck/internal/model"
	"github.com/ppiankov/newscheck/internal/pipeline"
)

var (
	outJSON       bool
	timeout       time.Duration
	llmProvider   string
	llmModel      string
	useCache      bool
	consultAlways bool
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <text|->",
	Short: "Classify a single claim as REAL, FAKE, or UNCERTAIN",
	Long: `Check evaluates one piece of claim text:
- Extract the central checkable claim
- Retrieve evidence from the configured sources in parallel
- Ask the reasoning backend to judge the claim against that evidence
- Print the label, rationale, confidence, and the evidence used

Pass "-" to read the claim from stdin.

Example:
  newscheck check "The Eiffel Tower was moved to Berlin in 2023"
  echo "Water boils at 100 C at sea level" | newscheck check -
  newscheck check "..." --json --llm-provider anthropic`,
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	// Output flags
	checkCmd.Flags().BoolVar(&outJSON, "json", false, "print the verdict as JSON")

	// Pipeline flags
	checkCmd.Flags().DurationVar(&timeout, "timeout", 0, "overall request timeout (default: derived from stage budgets)")
	checkCmd.Flags().BoolVar(&useCache, "cache", false, "cache source results between runs")
	checkCmd.Flags().BoolVar(&consultAlways, "consult-without-evidence", false, "ask the backend even when no evidence was found")

	// LLM flags
	checkCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, huggingface, anthropic, ollama)")
	checkCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

func runCheck(cmd *cobra.Command, args []string) error {
	raw, err := readClaim(args[0], cmd.InOrStdin())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPipelineFlags(cfg)

	if verbose {
		fmt.Fprintf(os.Stderr, "Sources:  %s\n", strings.Join(cfg.Sources.Order, ", "))
		fmt.Fprintf(os.Stderr, "Backend:  %s\n", describeBackend(cfg))
		fmt.Fprintf(os.Stderr, "Deadline: %v\n", cfg.RequestDeadline())
		fmt.Fprintln(os.Stderr)
	}

	p, err := pipeline.NewPipeline(cfg, pipeline.Options{})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	verdict, err := p.Evaluate(context.Background(), raw)
	if err != nil {
		if errors.Is(err, extract.ErrInvalidInput) {
			return err
		}
		return fmt.Errorf("check failed: %w", err)
	}

	if outJSON {
		return writeJSON(cmd.OutOrStdout(), verdict)
	}
	renderVerdict(cmd.OutOrStdout(), verdict)
	return nil
}

// readClaim returns arg, or stdin when arg is "-"
func readClaim(arg string, stdin io.Reader) (string, error) {
	if arg != "-" {
		return arg, nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// applyPipelineFlags overlays flags shared by check and batch
func applyPipelineFlags(cfg *model.Config) {
	if timeout > 0 {
		cfg.Request.Timeout = timeout
	}
	if useCache {
		cfg.Cache.Enabled = true
	}
	if consultAlways {
		cfg.Verdict.ConsultWithoutEvidence = true
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
}

func describeBackend(cfg *model.Config) string {
	if cfg.LLM.Provider == "" {
		return "none (verdicts fall back to UNCERTAIN)"
	}
	if cfg.LLM.Model == "" {
		return cfg.LLM.Provider
	}
	return cfg.LLM.Provider + "/" + cfg.LLM.Model
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode verdict: %w", err)
	}
	return nil
}

// renderVerdict prints a human-readable verdict
func renderVerdict(w io.Writer, v *model.Verdict) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintf(w, "  Verdict: %s  (confidence %.2f)\n", v.Label, v.Confidence)
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Claim:     %s\n", v.Claim.Text)
	fmt.Fprintf(w, "  Rationale: %s\n", v.Rationale)
	if v.Model != "" {
		fmt.Fprintf(w, "  Model:     %s (%d attempt(s))\n", v.Model, v.Attempts)
	}
	if v.Fallback != model.FallbackNone {
		fmt.Fprintf(w, "  Fallback:  %s\n", v.Fallback)
	}
	fmt.Fprintln(w)

	if len(v.EvidenceUsed) == 0 {
		fmt.Fprintln(w, "  No evidence used.")
	} else {
		fmt.Fprintf(w, "  Evidence (%d):\n", len(v.EvidenceUsed))
		for i, s := range v.EvidenceUsed {
			title := s.Title
			if title == "" {
				title = extract.Truncate(s.Text, 80)
			}
			fmt.Fprintf(w, "  %2d. [%s] %s\n", i+1, s.Source, title)
			if s.Rating != "" {
				fmt.Fprintf(w, "      rating: %s\n", s.Rating)
			}
			fmt.Fprintf(w, "      %s\n", s.URL)
		}
	}

	if len(v.Failed) > 0 {
		fmt.Fprintln(w)
		for _, f := range v.Failed {
			fmt.Fprintf(w, "  ✗ %s: %s\n", f.Source, f.Reason)
		}
	}
	fmt.Fprintln(w)
}
