package verdict

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/newscheck/internal/llm"
	"github.com/ppiankov/newscheck/internal/model"
)

// mockProvider replays scripted responses, one per call
type mockProvider struct {
	mu        sync.Mutex
	responses []mockResponse
	calls     int
	requests  []llm.GenerateRequest
}

type mockResponse struct {
	text string
	err  error
}

func (m *mockProvider) Name() string { return "mock" }

func (m *mockProvider) IsAvailable(ctx context.Context) bool { return true }

func (m *mockProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, req)
	if m.calls >= len(m.responses) {
		m.calls++
		return nil, errors.New("unexpected call")
	}
	r := m.responses[m.calls]
	m.calls++
	if r.err != nil {
		return nil, r.err
	}
	return &llm.GenerateResponse{Text: r.text, Model: "mock-1"}, nil
}

// slowProvider blocks until the attempt context ends
type slowProvider struct{}

func (slowProvider) Name() string                         { return "slow" }
func (slowProvider) IsAvailable(ctx context.Context) bool { return true }
func (slowProvider) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type recordingSleep struct {
	delays []time.Duration
	err    error
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.delays = append(r.delays, d)
	return r.err
}

func testConfig() model.VerdictConfig {
	return model.VerdictConfig{
		Timeout:        time.Second,
		RetryBudget:    1,
		RetryBaseDelay: 500 * time.Millisecond,
		MaxTokens:      200,
		Temperature:    0.1,
	}
}

func testPrompt() model.Prompt {
	return model.Prompt{
		Claim:  model.Claim{Text: "The Eiffel Tower is in Berlin"},
		System: "system",
		Text:   "prompt",
		Evidence: []model.Snippet{
			{Source: "wikipedia", Kind: model.KindWikipedia, Text: "The Eiffel Tower is in Paris.", URL: "https://en.wikipedia.org/wiki/Eiffel_Tower", Relevance: 0.7, Authority: model.TierSecondary},
		},
	}
}

func newTestEngine(t *testing.T, provider llm.Provider, cfg model.VerdictConfig) (*Engine, *recordingSleep) {
	t.Helper()
	engine, err := NewEngine(provider, cfg, nil)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	sleeper := &recordingSleep{}
	engine.WithSleep(sleeper.sleep)
	return engine, sleeper
}

func TestEngine_Decide_Parsed(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{text: "VERDICT: FAKE\nREASON: Evidence [1] places the tower in Paris."},
	}}
	engine, sleeper := newTestEngine(t, provider, testConfig())

	v := engine.Decide(context.Background(), testPrompt(), model.EvidenceSet{Consulted: []string{"wikipedia"}})

	if v.Label != model.LabelFake {
		t.Errorf("Expected FAKE, got %s", v.Label)
	}
	if v.Outcome != model.OutcomeParsed {
		t.Errorf("Expected parsed outcome, got %s", v.Outcome)
	}
	if v.Rationale != "Evidence [1] places the tower in Paris." {
		t.Errorf("Unexpected rationale: %q", v.Rationale)
	}
	if v.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", v.Attempts)
	}
	if v.Model != "mock-1" {
		t.Errorf("Expected model mock-1, got %s", v.Model)
	}
	if v.Confidence <= 0 || v.Confidence > 1 {
		t.Errorf("Expected confidence in (0,1], got %v", v.Confidence)
	}
	if len(v.EvidenceUsed) != 1 {
		t.Errorf("Expected 1 snippet used, got %d", len(v.EvidenceUsed))
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("Expected no backoff, got %v", sleeper.delays)
	}

	req := provider.requests[0]
	if req.System != "system" || req.Prompt != "prompt" || req.MaxTokens != 200 || req.Temperature != 0.1 {
		t.Errorf("Unexpected request: %+v", req)
	}
}

func TestEngine_Decide_RetriesTransientOnce(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{err: &llm.APIError{Provider: "mock", StatusCode: 529, Message: "overloaded"}},
		{text: "VERDICT: REAL\nREASON: Evidence [1] agrees."},
	}}
	engine, sleeper := newTestEngine(t, provider, testConfig())

	v := engine.Decide(context.Background(), testPrompt(), model.EvidenceSet{})

	if v.Label != model.LabelReal || v.Outcome != model.OutcomeParsed {
		t.Errorf("Expected parsed REAL after retry, got %s/%s", v.Label, v.Outcome)
	}
	if v.Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", v.Attempts)
	}
	if len(sleeper.delays) != 1 || sleeper.delays[0] != 500*time.Millisecond {
		t.Errorf("Expected one 500ms backoff, got %v", sleeper.delays)
	}
}

func TestEngine_Decide_BackendUnavailableAfterBudget(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{err: &llm.APIError{Provider: "mock", StatusCode: 503, Message: "down"}},
		{err: &llm.APIError{Provider: "mock", StatusCode: 503, Message: "down"}},
		{text: "VERDICT: REAL"},
	}}
	engine, _ := newTestEngine(t, provider, testConfig())

	v := engine.Decide(context.Background(), testPrompt(), model.EvidenceSet{})

	if v.Label != model.LabelUncertain {
		t.Errorf("Expected UNCERTAIN, got %s", v.Label)
	}
	if v.Fallback != model.FallbackBackendUnavailable {
		t.Errorf("Expected backend_unavailable, got %s", v.Fallback)
	}
	if !strings.Contains(v.Rationale, "backend unavailable") {
		t.Errorf("Expected rationale to mention backend, got %q", v.Rationale)
	}
	if strings.Contains(v.Rationale, "503") {
		t.Errorf("Expected raw backend error to stay out of the rationale, got %q", v.Rationale)
	}
	if provider.calls != 2 {
		t.Errorf("Expected exactly 2 calls with a retry budget of 1, got %d", provider.calls)
	}
	if v.Confidence > 0.3 {
		t.Errorf("Expected capped confidence, got %v", v.Confidence)
	}
}

func TestEngine_Decide_NonTransientNotRetried(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{err: &llm.APIError{Provider: "mock", StatusCode: 401, Message: "bad key"}},
	}}
	engine, sleeper := newTestEngine(t, provider, testConfig())

	v := engine.Decide(context.Background(), testPrompt(), model.EvidenceSet{})

	if v.Fallback != model.FallbackBackendUnavailable {
		t.Errorf("Expected backend_unavailable, got %s", v.Fallback)
	}
	if provider.calls != 1 {
		t.Errorf("Expected 1 call, got %d", provider.calls)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("Expected no backoff, got %v", sleeper.delays)
	}
}

func TestEngine_Decide_ParseAmbiguous(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{text: "It could be REAL or FAKE, hard to say."},
	}}
	engine, _ := newTestEngine(t, provider, testConfig())

	v := engine.Decide(context.Background(), testPrompt(), model.EvidenceSet{})

	if v.Label != model.LabelUncertain || v.Fallback != model.FallbackParseAmbiguous {
		t.Errorf("Expected UNCERTAIN/parse_ambiguous, got %s/%s", v.Label, v.Fallback)
	}
	if provider.calls != 1 {
		t.Errorf("Expected ambiguous response not to be retried, got %d calls", provider.calls)
	}
}

func TestEngine_Decide_NoEvidenceSkipsBackend(t *testing.T) {
	provider := &mockProvider{}
	engine, _ := newTestEngine(t, provider, testConfig())

	prompt := testPrompt()
	prompt.Evidence = nil
	v := engine.Decide(context.Background(), prompt, model.EvidenceSet{})

	if v.Label != model.LabelUncertain || v.Fallback != model.FallbackNoEvidence {
		t.Errorf("Expected UNCERTAIN/no_evidence, got %s/%s", v.Label, v.Fallback)
	}
	if v.Rationale != RationaleNoEvidence {
		t.Errorf("Expected %q, got %q", RationaleNoEvidence, v.Rationale)
	}
	if v.Confidence != 0 {
		t.Errorf("Expected zero confidence, got %v", v.Confidence)
	}
	if provider.calls != 0 {
		t.Errorf("Expected backend not to be called, got %d calls", provider.calls)
	}
	if v.EvidenceUsed == nil {
		t.Error("Expected empty, non-nil evidence list")
	}
}

func TestEngine_Decide_ConsultWithoutEvidenceDowngrades(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{text: "VERDICT: FAKE\nREASON: This never happened."},
	}}
	cfg := testConfig()
	cfg.ConsultWithoutEvidence = true
	engine, _ := newTestEngine(t, provider, cfg)

	prompt := testPrompt()
	prompt.Evidence = nil
	v := engine.Decide(context.Background(), prompt, model.EvidenceSet{})

	if v.Label != model.LabelUncertain {
		t.Errorf("Expected downgrade to UNCERTAIN, got %s", v.Label)
	}
	if !strings.HasPrefix(v.Rationale, RationaleNoEvidence) || !strings.Contains(v.Rationale, "FAKE") {
		t.Errorf("Unexpected rationale: %q", v.Rationale)
	}
	if provider.calls != 1 {
		t.Errorf("Expected backend to be consulted once, got %d", provider.calls)
	}
}

func TestEngine_Decide_NilProvider(t *testing.T) {
	engine, _ := newTestEngine(t, nil, testConfig())

	v := engine.Decide(context.Background(), testPrompt(), model.EvidenceSet{})
	if v.Label != model.LabelUncertain || v.Fallback != model.FallbackBackendUnavailable {
		t.Errorf("Expected UNCERTAIN/backend_unavailable, got %s/%s", v.Label, v.Fallback)
	}
	if v.Attempts != 0 {
		t.Errorf("Expected no attempts, got %d", v.Attempts)
	}
}

func TestEngine_Decide_AttemptTimeoutIsRetried(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	engine, sleeper := newTestEngine(t, slowProvider{}, cfg)

	start := time.Now()
	v := engine.Decide(context.Background(), testPrompt(), model.EvidenceSet{})

	if v.Attempts != 2 {
		t.Errorf("Expected timed-out attempt to be retried, got %d attempts", v.Attempts)
	}
	if v.Fallback != model.FallbackBackendUnavailable {
		t.Errorf("Expected backend_unavailable, got %s", v.Fallback)
	}
	if len(sleeper.delays) != 1 {
		t.Errorf("Expected one backoff, got %v", sleeper.delays)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected per-attempt timeout to bound the call, took %v", elapsed)
	}
}

func TestEngine_Decide_CanceledBackoff(t *testing.T) {
	provider := &mockProvider{responses: []mockResponse{
		{err: &llm.APIError{Provider: "mock", StatusCode: 429, Message: "slow down"}},
	}}
	engine, sleeper := newTestEngine(t, provider, testConfig())
	sleeper.err = context.Canceled

	v := engine.Decide(context.Background(), testPrompt(), model.EvidenceSet{})
	if v.Fallback != model.FallbackBackendUnavailable {
		t.Errorf("Expected backend_unavailable, got %s", v.Fallback)
	}
	if provider.calls != 1 {
		t.Errorf("Expected no call after canceled backoff, got %d", provider.calls)
	}
}

func TestEngine_Backoff(t *testing.T) {
	engine, _ := newTestEngine(t, nil, model.VerdictConfig{RetryBaseDelay: time.Second, RetryBudget: 3})

	for retry, want := range map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second} {
		if got := engine.backoff(retry); got != want {
			t.Errorf("Expected %v for retry %d, got %v", want, retry, got)
		}
	}
}
