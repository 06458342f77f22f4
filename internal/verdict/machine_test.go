package verdict

import (
	"testing"

	"github.com/felixgeelhaar/statekit"
)

func startMachine(t *testing.T, budget int) (*statekit.Interpreter[*machineContext], *machineContext) {
	t.Helper()
	machine, err := newMachine()
	if err != nil {
		t.Fatalf("newMachine() error = %v", err)
	}
	mctx := &machineContext{RetryBudget: budget}
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **machineContext) {
		*c = mctx
	})
	interp.Start()
	t.Cleanup(interp.Stop)
	return interp, mctx
}

func send(interp *statekit.Interpreter[*machineContext], event statekit.EventType) statekit.StateID {
	interp.Send(statekit.Event{Type: event})
	return interp.State().Value
}

func TestMachine_ParsedPath(t *testing.T) {
	interp, mctx := startMachine(t, 1)

	if !interp.Matches(StatePending) {
		t.Fatalf("Expected initial state %s, got %s", StatePending, interp.State().Value)
	}
	if got := send(interp, EventCall); got != StateBackendCall {
		t.Fatalf("Expected %s, got %s", StateBackendCall, got)
	}
	if got := send(interp, EventParseOK); got != StateParsed {
		t.Fatalf("Expected %s, got %s", StateParsed, got)
	}
	if got := send(interp, EventFinish); got != StateDone {
		t.Fatalf("Expected %s, got %s", StateDone, got)
	}
	if !interp.Done() {
		t.Error("Expected machine to be done")
	}
	if mctx.Attempts != 1 {
		t.Errorf("Expected 1 attempt, got %d", mctx.Attempts)
	}
}

func TestMachine_RetryBudget(t *testing.T) {
	interp, mctx := startMachine(t, 1)

	send(interp, EventCall)
	if got := send(interp, EventRetry); got != StateRetry {
		t.Fatalf("Expected %s, got %s", StateRetry, got)
	}
	send(interp, EventCall)

	// Budget of one is spent; the guard keeps the machine in BACKEND_CALL
	if got := send(interp, EventRetry); got != StateBackendCall {
		t.Fatalf("Expected guard to block second retry, got %s", got)
	}
	if got := send(interp, EventFallback); got != StateFallback {
		t.Fatalf("Expected %s, got %s", StateFallback, got)
	}
	send(interp, EventFinish)

	if mctx.Attempts != 2 || mctx.Retries != 1 {
		t.Errorf("Expected 2 attempts and 1 retry, got %d and %d", mctx.Attempts, mctx.Retries)
	}
}

func TestMachine_NoEvidence(t *testing.T) {
	interp, mctx := startMachine(t, 1)

	if got := send(interp, EventNoEvidence); got != StateFallback {
		t.Fatalf("Expected %s, got %s", StateFallback, got)
	}
	if got := send(interp, EventFinish); got != StateDone {
		t.Fatalf("Expected %s, got %s", StateDone, got)
	}
	if mctx.Attempts != 0 {
		t.Errorf("Expected no attempts, got %d", mctx.Attempts)
	}
}

func TestMachine_ZeroBudget(t *testing.T) {
	interp, _ := startMachine(t, 0)

	send(interp, EventCall)
	if got := send(interp, EventRetry); got != StateBackendCall {
		t.Errorf("Expected no retry with zero budget, got %s", got)
	}
}
