package verdict

import (
	"github.com/felixgeelhaar/statekit"
)

// Engine states
const (
	StatePending     statekit.StateID = "PENDING"
	StateBackendCall statekit.StateID = "BACKEND_CALL"
	StateRetry       statekit.StateID = "RETRY"
	StateParsed      statekit.StateID = "PARSED"
	StateFallback    statekit.StateID = "FALLBACK_UNCERTAIN"
	StateDone        statekit.StateID = "DONE"
)

// Engine events
const (
	EventCall       statekit.EventType = "CALL"
	EventParseOK    statekit.EventType = "PARSE_OK"
	EventRetry      statekit.EventType = "RETRY"
	EventFallback   statekit.EventType = "FALLBACK"
	EventNoEvidence statekit.EventType = "NO_EVIDENCE"
	EventFinish     statekit.EventType = "FINISH"
)

// machineContext is the per-decision state carried by the interpreter
type machineContext struct {
	RetryBudget int
	Attempts    int
	Retries     int
}

// newMachine builds the verdict statechart:
//
//	PENDING --CALL--> BACKEND_CALL --PARSE_OK--> PARSED --FINISH--> DONE
//	PENDING --NO_EVIDENCE--> FALLBACK_UNCERTAIN --FINISH--> DONE
//	BACKEND_CALL --RETRY [budget left]--> RETRY --CALL--> BACKEND_CALL
//	BACKEND_CALL --FALLBACK--> FALLBACK_UNCERTAIN
//
// PENDING and RETRY also accept FALLBACK for a missing backend and for a
// backoff cut short by cancellation.
func newMachine() (*statekit.MachineConfig[*machineContext], error) {
	return statekit.NewMachine[*machineContext]("verdict").
		WithInitial(StatePending).
		WithContext(&machineContext{}).
		WithAction("countAttempt", countAttempt).
		WithAction("countRetry", countRetry).
		WithGuard("retryAvailable", guardRetryAvailable).
		State(StatePending).
		On(EventCall).Target(StateBackendCall).
		On(EventNoEvidence).Target(StateFallback).
		On(EventFallback).Target(StateFallback).
		Done().
		State(StateBackendCall).
		OnEntry("countAttempt").
		On(EventParseOK).Target(StateParsed).
		On(EventRetry).Target(StateRetry).Guard("retryAvailable").Do("countRetry").
		On(EventFallback).Target(StateFallback).
		Done().
		State(StateRetry).
		On(EventCall).Target(StateBackendCall).
		On(EventFallback).Target(StateFallback).
		Done().
		State(StateParsed).
		On(EventFinish).Target(StateDone).
		Done().
		State(StateFallback).
		On(EventFinish).Target(StateDone).
		Done().
		State(StateDone).
		Final().
		Done().
		Build()
}

func countAttempt(ctx **machineContext, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Attempts++
}

func countRetry(ctx **machineContext, _ statekit.Event) {
	if ctx == nil || *ctx == nil {
		return
	}
	(*ctx).Retries++
}

// guardRetryAvailable allows a retry while the budget is not spent
func guardRetryAvailable(ctx *machineContext, _ statekit.Event) bool {
	if ctx == nil {
		return false
	}
	return ctx.Retries < ctx.RetryBudget
}
