package verdict

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/ppiankov/newscheck/internal/llm"
	"github.com/ppiankov/newscheck/internal/logging"
	"github.com/ppiankov/newscheck/internal/metrics"
	"github.com/ppiankov/newscheck/internal/model"
	"github.com/ppiankov/newscheck/internal/score"
)

// Fallback rationales shown to the user
const (
	RationaleNoEvidence         = "no corroborating evidence found"
	RationaleBackendUnavailable = "reasoning backend unavailable"
	RationaleParseAmbiguous     = "reasoning backend response did not contain an unambiguous label"
)

// SleepFunc waits for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Engine turns a composed prompt into a verdict. It never returns an error:
// backend and parse failures become UNCERTAIN with an explanatory rationale.
type Engine struct {
	provider llm.Provider
	cfg      model.VerdictConfig
	scorer   *score.Scorer
	machine  *statekit.MachineConfig[*machineContext]
	sleep    SleepFunc
}

// NewEngine creates a verdict engine. provider may be nil, in which case
// every evidence-backed claim falls back to UNCERTAIN.
func NewEngine(provider llm.Provider, cfg model.VerdictConfig, scorer *score.Scorer) (*Engine, error) {
	machine, err := newMachine()
	if err != nil {
		return nil, fmt.Errorf("build verdict machine: %w", err)
	}
	if scorer == nil {
		scorer = score.NewScorer()
	}
	if cfg.RetryBudget < 0 {
		cfg.RetryBudget = 0
	}
	return &Engine{
		provider: provider,
		cfg:      cfg,
		scorer:   scorer,
		machine:  machine,
		sleep:    sleepContext,
	}, nil
}

// WithSleep replaces the backoff sleep, mainly for tests
func (e *Engine) WithSleep(fn SleepFunc) *Engine {
	if fn != nil {
		e.sleep = fn
	}
	return e
}

// run tracks one decision through the state machine
type run struct {
	interp *statekit.Interpreter[*machineContext]
	mctx   *machineContext
}

func (r *run) send(event statekit.EventType) statekit.StateID {
	r.interp.Send(statekit.Event{Type: event})
	state := r.interp.State().Value
	logging.Debug().
		Add(logging.Component("verdict")).
		Add(logging.Str("event", string(event))).
		Add(logging.State(string(state))).
		Msg("Verdict transition")
	return state
}

// Decide labels prompt.Claim. evidence supplies the consulted and failed
// source lists for confidence signals; the snippets actually used are the
// ones embedded in the prompt.
func (e *Engine) Decide(ctx context.Context, prompt model.Prompt, evidence model.EvidenceSet) model.Verdict {
	mctx := &machineContext{RetryBudget: e.cfg.RetryBudget}
	interp := statekit.NewInterpreter(e.machine)
	interp.UpdateContext(func(c **machineContext) {
		*c = mctx
	})
	interp.Start()
	defer interp.Stop()
	r := &run{interp: interp, mctx: mctx}

	used := model.EvidenceSet{
		Snippets:  prompt.Evidence,
		Consulted: evidence.Consulted,
		Failed:    evidence.Failed,
	}

	verdict := model.Verdict{
		Claim:        prompt.Claim,
		EvidenceUsed: prompt.Evidence,
		Failed:       evidence.Failed,
	}
	if verdict.EvidenceUsed == nil {
		verdict.EvidenceUsed = []model.Snippet{}
	}

	noEvidence := len(prompt.Evidence) == 0
	switch {
	case noEvidence && !e.cfg.ConsultWithoutEvidence:
		r.send(EventNoEvidence)
		e.fallback(&verdict, model.FallbackNoEvidence, RationaleNoEvidence)

	case e.provider == nil:
		r.send(EventFallback)
		e.fallback(&verdict, model.FallbackBackendUnavailable, RationaleBackendUnavailable+": no backend configured")

	default:
		e.consult(ctx, r, prompt, &verdict)
		if noEvidence && verdict.Outcome == model.OutcomeParsed && verdict.Label != model.LabelUncertain {
			// Without evidence the model is only speaking from memory
			verdict.Rationale = fmt.Sprintf("%s; backend suggested %s: %s", RationaleNoEvidence, verdict.Label, verdict.Rationale)
			verdict.Label = model.LabelUncertain
		}
	}

	verdict.Attempts = mctx.Attempts
	r.send(EventFinish)

	verdict.Confidence, verdict.Signals = e.scorer.Calculate(verdict.Label, verdict.Outcome, used)

	logging.Info().
		Add(logging.Component("verdict")).
		Add(logging.Label(string(verdict.Label))).
		Add(logging.Str("outcome", string(verdict.Outcome))).
		Add(logging.Attempt(verdict.Attempts)).
		Msg("Verdict decided")

	return verdict
}

// consult drives the backend call loop from PENDING to PARSED or FALLBACK_UNCERTAIN
func (e *Engine) consult(ctx context.Context, r *run, prompt model.Prompt, verdict *model.Verdict) {
	var lastErr error
	for {
		if r.send(EventCall) != StateBackendCall {
			break
		}

		resp, err := e.call(ctx, prompt, r.mctx.Attempts)
		if err == nil {
			label, rationale, perr := Parse(resp.Text)
			if perr != nil {
				r.send(EventFallback)
				logging.Warn().
					Add(logging.Component("verdict")).
					Add(logging.Provider(e.provider.Name())).
					Add(logging.Str("response", resp.Text)).
					Msg("Backend response had no unambiguous label")
				verdict.Model = resp.Model
				e.fallback(verdict, model.FallbackParseAmbiguous, RationaleParseAmbiguous)
				return
			}

			r.send(EventParseOK)
			verdict.Label = label
			verdict.Rationale = rationale
			if verdict.Rationale == "" {
				verdict.Rationale = fmt.Sprintf("backend labelled the claim %s without explanation", label)
			}
			verdict.Outcome = model.OutcomeParsed
			verdict.Fallback = model.FallbackNone
			verdict.Model = resp.Model
			return
		}

		lastErr = err
		if !llm.IsTransient(err) || ctx.Err() != nil {
			break
		}
		if r.send(EventRetry) != StateRetry {
			// Budget spent
			break
		}

		delay := e.backoff(r.mctx.Retries)
		logging.Warn().
			Add(logging.Component("verdict")).
			Add(logging.Provider(e.provider.Name())).
			Add(logging.Attempt(r.mctx.Attempts)).
			Add(logging.Duration(delay)).
			Add(logging.Err(err)).
			Msg("Transient backend error, retrying")

		if err := e.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	r.send(EventFallback)
	logging.Error().
		Add(logging.Component("verdict")).
		Add(logging.Provider(e.provider.Name())).
		Add(logging.Attempt(r.mctx.Attempts)).
		Add(logging.Err(fmt.Errorf("%w: %w", ErrBackendUnavailable, lastErr))).
		Msg("Backend unavailable, falling back to UNCERTAIN")
	e.fallback(verdict, model.FallbackBackendUnavailable, RationaleBackendUnavailable)
}

// call makes one backend attempt under the per-attempt timeout
func (e *Engine) call(ctx context.Context, prompt model.Prompt, attempt int) (*llm.GenerateResponse, error) {
	callCtx := ctx
	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := e.provider.Generate(callCtx, llm.GenerateRequest{
		System:      prompt.System,
		Prompt:      prompt.Text,
		MaxTokens:   e.cfg.MaxTokens,
		Temperature: e.cfg.Temperature,
	})

	result := metrics.ResultOK
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		result = metrics.ResultTimeout
		// The attempt's own deadline is transient even if the provider did not say so
		if ctx.Err() == nil && !llm.IsTransient(err) {
			err = fmt.Errorf("%w: %w", llm.ErrTransient, err)
		}
	default:
		result = metrics.ResultError
	}
	metrics.ObserveBackend(e.provider.Name(), result)

	logging.Debug().
		Add(logging.Component("verdict")).
		Add(logging.Provider(e.provider.Name())).
		Add(logging.Attempt(attempt)).
		Add(logging.Duration(time.Since(start))).
		Add(logging.Str("result", result)).
		Msg("Backend call finished")

	return resp, err
}

// backoff returns base * 2^(retry-1)
func (e *Engine) backoff(retry int) time.Duration {
	delay := e.cfg.RetryBaseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
	}
	return delay
}

func (e *Engine) fallback(v *model.Verdict, reason model.FallbackReason, rationale string) {
	v.Label = model.LabelUncertain
	v.Outcome = model.OutcomeFallback
	v.Fallback = reason
	v.Rationale = rationale
}
