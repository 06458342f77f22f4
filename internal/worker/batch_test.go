package worker

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/newscheck/internal/model"
)

// MockEvaluator implements Evaluator
type MockEvaluator struct {
	ShouldError bool
}

func (m *MockEvaluator) Evaluate(ctx context.Context, raw string) (*model.Verdict, error) {
	time.Sleep(10 * time.Millisecond) // Simulate work
	if m.ShouldError {
		return nil, errors.New("evaluate error")
	}
	label := model.LabelReal
	if strings.Contains(raw, "fake") {
		label = model.LabelFake
	}
	return &model.Verdict{
		Label:   label,
		Claim:   model.Claim{Text: raw},
		Outcome: model.OutcomeParsed,
	}, nil
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "claims")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(tmpfile.Name()) })

	if _, err := tmpfile.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := tmpfile.Close(); err != nil {
		t.Fatal(err)
	}
	return tmpfile.Name()
}

func TestBatchProcessor_ProcessClaims(t *testing.T) {
	processor := NewBatchProcessor(&MockEvaluator{}, 2)

	claims := []string{
		"The Eiffel Tower is in Paris.",
		"A fake cure was approved yesterday.",
		"Water boils at 100 degrees at sea level.",
	}

	results := processor.ProcessClaims(context.Background(), claims)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %q: %v", res.Claim, res.Error)
			continue
		}
		if res.Claim != claims[i] {
			t.Errorf("expected result %d to be for %q, got %q", i, claims[i], res.Claim)
		}
		if res.Verdict == nil {
			t.Errorf("expected verdict for %q", res.Claim)
		}
	}

	if results[1].Verdict.Label != model.LabelFake {
		t.Errorf("expected FAKE for second claim, got %s", results[1].Verdict.Label)
	}
}

func TestBatchProcessor_ProcessClaims_Error(t *testing.T) {
	processor := NewBatchProcessor(&MockEvaluator{ShouldError: true}, 2)

	results := processor.ProcessClaims(context.Background(), []string{"Anything at all."})

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Error == nil {
		t.Error("expected error, got nil")
	}
	if results[0].Verdict != nil {
		t.Error("expected nil verdict on error")
	}
}

func TestBatchProcessor_ProcessClaims_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockEvaluator{}, 2)

	results := processor.ProcessClaims(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessClaims_Cancelled(t *testing.T) {
	processor := NewBatchProcessor(&MockEvaluator{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := processor.ProcessClaims(ctx, []string{"one claim here", "two claim here"})
	if len(results) != 2 {
		t.Fatalf("expected a result slot per claim, got %d", len(results))
	}
	for _, r := range results {
		if r == nil {
			t.Fatal("expected no nil results")
		}
	}
}

func TestReadClaimsFromFile(t *testing.T) {
	path := writeTemp(t, `The moon landing was staged.
# comment
Vaccines contain microchips.
   
  Water boils at 100 degrees.   `)

	claims, err := ReadClaimsFromFile(path)
	if err != nil {
		t.Fatalf("ReadClaimsFromFile failed: %v", err)
	}

	expected := []string{
		"The moon landing was staged.",
		"Vaccines contain microchips.",
		"Water boils at 100 degrees.",
	}
	if len(claims) != len(expected) {
		t.Fatalf("expected %d claims, got %d", len(expected), len(claims))
	}

	for i, claim := range claims {
		if claim != expected[i] {
			t.Errorf("expected claim %q at index %d, got %q", expected[i], i, claim)
		}
	}
}

func TestReadClaimsFromFile_NonExistent(t *testing.T) {
	_, err := ReadClaimsFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestReadClaims_Deduplication(t *testing.T) {
	claims, err := ReadClaims(strings.NewReader("Same claim.\nSame claim.\n"))
	if err != nil {
		t.Fatalf("ReadClaims failed: %v", err)
	}
	if len(claims) != 1 {
		t.Errorf("expected 1 claim after deduplication, got %d", len(claims))
	}
}

func TestClaimResult_GetError(t *testing.T) {
	r1 := &ClaimResult{Claim: "x", Error: nil}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("evaluation failed")
	r2 := &ClaimResult{Claim: "x", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeTemp(t, "First claim is here.\nSecond claim is here.\n# comment\n\nThird claim is here.\n")

	processor := NewBatchProcessor(&MockEvaluator{}, 2)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}

	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&MockEvaluator{}, 2)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestBatchProcessor_ProcessFile_Empty(t *testing.T) {
	path := writeTemp(t, "")

	processor := NewBatchProcessor(&MockEvaluator{}, 2)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty file, got %d", len(results))
	}
}
