package worker

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ppiankov/newscheck/internal/model"
)

// maxClaimLine bounds a single line in a claims file
const maxClaimLine = 1 << 20

// Evaluator classifies one piece of claim text
type Evaluator interface {
	Evaluate(ctx context.Context, raw string) (*model.Verdict, error)
}

// ClaimJob evaluates one claim from a batch
type ClaimJob struct {
	Index     int
	Text      string
	Evaluator Evaluator
}

// Execute executes the claim job
func (j *ClaimJob) Execute(ctx context.Context) Result {
	start := time.Now()
	verdict, err := j.Evaluator.Evaluate(ctx, j.Text)
	return &ClaimResult{
		Index:    j.Index,
		Claim:    j.Text,
		Verdict:  verdict,
		Error:    err,
		Duration: time.Since(start),
	}
}

// ClaimResult represents the outcome of one claim job
type ClaimResult struct {
	Index    int
	Claim    string
	Verdict  *model.Verdict
	Error    error
	Duration time.Duration
}

// GetError returns the error from the claim result
func (r *ClaimResult) GetError() error {
	return r.Error
}

// BatchProcessor evaluates multiple claims concurrently
type BatchProcessor struct {
	evaluator   Evaluator
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(evaluator Evaluator, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		evaluator:   evaluator,
		concurrency: concurrency,
	}
}

// ProcessClaims evaluates claims concurrently and returns results in input order
func (b *BatchProcessor) ProcessClaims(ctx context.Context, claims []string) []*ClaimResult {
	if len(claims) == 0 {
		return []*ClaimResult{}
	}

	pool := NewPoolContext(ctx, b.concurrency)
	pool.Start()

	for i, text := range claims {
		pool.Submit(&ClaimJob{
			Index:     i,
			Text:      text,
			Evaluator: b.evaluator,
		})
	}

	results := pool.Wait()

	claimResults := make([]*ClaimResult, len(claims))
	for _, result := range results {
		r := result.(*ClaimResult)
		claimResults[r.Index] = r
	}

	// Jobs dropped by cancellation never produced a result
	for i, r := range claimResults {
		if r == nil {
			claimResults[i] = &ClaimResult{
				Index: i,
				Claim: claims[i],
				Error: fmt.Errorf("claim not evaluated: %w", context.Cause(ctx)),
			}
		}
	}

	return claimResults
}

// ProcessFile reads claims from a file and evaluates them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ClaimResult, error) {
	claims, err := ReadClaimsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read claims: %w", err)
	}

	return b.ProcessClaims(ctx, claims), nil
}

// ReadClaimsFromFile reads claims from a file (one per line). A path of "-"
// reads standard input.
func ReadClaimsFromFile(filePath string) ([]string, error) {
	if filePath == "-" {
		return ReadClaims(os.Stdin)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadClaims(file)
}

// ReadClaims reads one claim per line, skipping blanks, comments and duplicates
func ReadClaims(r io.Reader) ([]string, error) {
	var claims []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxClaimLine)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			claims = append(claims, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan claims: %w", err)
	}

	return claims, nil
}
