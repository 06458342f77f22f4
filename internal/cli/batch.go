package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/newscheck/internal/logging"
	"github.com/ppiankov/newscheck/internal/metrics"
	"github.com/ppiankov/newscheck/internal/model"
	"github.com/ppiankov/newscheck/internal/pipeline"
	"github.com/ppiankov/newscheck/internal/worker"
)

var (
	concurrency  int
	outputFile   string
	batchTimeout time.Duration
	metricsAddr  string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Classify many claims from a file in parallel",
	Long: `Batch evaluates multiple claims concurrently:
- Read claims from the input file (one per line, # comments ignored)
- Evaluate claims in parallel with a configurable worker count
- Write one JSON verdict per line, in input order

Pass "-" to read claims from stdin.

Example:
  newscheck batch claims.txt
  newscheck batch claims.txt --concurrency 8 --output verdicts.jsonl
  newscheck batch claims.txt --metrics-addr :9090`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputFile, "output", "", "JSONL output path (default: stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "batch-timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")

	// Shared with check
	batchCmd.Flags().DurationVar(&timeout, "timeout", 0, "per-claim request timeout (default: derived from stage budgets)")
	batchCmd.Flags().BoolVar(&useCache, "cache", false, "cache source results between claims")
	batchCmd.Flags().BoolVar(&consultAlways, "consult-without-evidence", false, "ask the backend even when no evidence was found")
	batchCmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, huggingface, anthropic, ollama)")
	batchCmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// batchRecord is one JSONL output line
type batchRecord struct {
	Index      int            `json:"index"`
	Input      string         `json:"input"`
	Verdict    *model.Verdict `json:"verdict,omitempty"`
	Error      string         `json:"error,omitempty"`
	DurationMS int64          `json:"duration_ms"`
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyPipelineFlags(cfg)
	if concurrency <= 0 {
		concurrency = cfg.Concurrency.Workers
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  newscheck Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Backend:      %s\n", describeBackend(cfg))
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if outputFile != "" {
		fmt.Fprintf(os.Stderr, "  Output:       %s\n", outputFile)
	}
	fmt.Fprintf(os.Stderr, "\n")

	if metricsAddr != "" {
		stop, err := serveMetrics(metricsAddr)
		if err != nil {
			return err
		}
		defer stop()
		fmt.Fprintf(os.Stderr, "✓ Serving metrics on http://%s/metrics\n", metricsAddr)
	}

	// Create pipeline
	p, err := pipeline.NewPipeline(cfg, pipeline.Options{})
	if err != nil {
		return fmt.Errorf("create pipeline: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if outputFile != "" {
		var f *os.File
		f, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output file: %w", closeErr)
			}
		}()
		out = f
	}

	// Create batch processor
	processor := worker.NewBatchProcessor(p, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Evaluating claims with %d workers...\n", concurrency)
	start := time.Now()
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}
	fmt.Fprintf(os.Stderr, "\n")

	counts := make(map[model.Label]int)
	failureCount := 0

	enc := json.NewEncoder(out)
	for _, result := range results {
		record := batchRecord{
			Index:      result.Index,
			Input:      result.Claim,
			Verdict:    result.Verdict,
			DurationMS: result.Duration.Milliseconds(),
		}
		if result.Error != nil {
			failureCount++
			record.Error = result.Error.Error()
			fmt.Fprintf(os.Stderr, "✗ #%d: %v\n", result.Index+1, result.Error)
		} else {
			counts[result.Verdict.Label]++
			if verbose {
				fmt.Fprintf(os.Stderr, "✓ #%d %s (%.2f)\n", result.Index+1, result.Verdict.Label, result.Verdict.Confidence)
			}
		}
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("write verdict: %w", err)
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d claims\n", len(results))
	fmt.Fprintf(os.Stderr, "  REAL:       %d\n", counts[model.LabelReal])
	fmt.Fprintf(os.Stderr, "  FAKE:       %d\n", counts[model.LabelFake])
	fmt.Fprintf(os.Stderr, "  UNCERTAIN:  %d\n", counts[model.LabelUncertain])
	fmt.Fprintf(os.Stderr, "  Failures:   %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Elapsed:    %v\n", time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// serveMetrics exposes /metrics until the returned stop function is called
func serveMetrics(addr string) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().
				Add(logging.Component("metrics")).
				Add(logging.Err(err)).
				Msg("Metrics server stopped")
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
