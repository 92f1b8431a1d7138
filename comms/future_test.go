package comms

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// submitOne acknowledges at lo and submits a single zero record.
func submitOne(t *testing.T, eval *CommEval, mgr *QChannel, lo int) *Future {
	t.Helper()
	mgr.Send(QueuedMessage{Lo: lo})
	f, err := eval.Submit(0, 0)
	if err != nil {
		t.Fatalf("Submit: unexpected error %v", err)
	}
	return f
}

func TestFuture_ResultWithin_NegativeBudgetFailsImmediately(t *testing.T) {
	// GIVEN an unresolved future
	eval, mgr := newTestEval()
	f := submitOne(t, eval, mgr, 0)

	// WHEN the budget is already negative at call time
	start := time.Now()
	_, err := f.ResultWithin(-time.Nanosecond)

	// THEN the call fails with ErrTimeout without attempting a receive
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("ResultWithin: got error %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Millisecond {
		t.Errorf("ResultWithin(-1ns) took %v, want immediate failure", elapsed)
	}
}

func TestFuture_ResultWithin_BudgetExpires(t *testing.T) {
	// GIVEN an unresolved future and no incoming messages
	eval, mgr := newTestEval()
	f := submitOne(t, eval, mgr, 0)

	// WHEN waiting with a small budget
	start := time.Now()
	_, err := f.ResultWithin(30 * time.Millisecond)

	// THEN the call fails with ErrTimeout once the cumulative budget is spent
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("ResultWithin: got error %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("ResultWithin returned after %v, before the budget elapsed", elapsed)
	}
	assert.False(t, f.Done())
}

func TestFuture_ResultWithin_BudgetShrinksAcrossNonTerminalDispatches(t *testing.T) {
	// GIVEN an update queued ahead of silence
	eval, mgr := newTestEval()
	f := submitOne(t, eval, mgr, 0)
	mgr.Send(UpdateMessage{SimID: 0, Payload: Record{"f": 0.5}})

	// WHEN waiting with a bounded budget
	_, err := f.ResultWithin(30 * time.Millisecond)

	// THEN the loop consumed the update, kept waiting on the shrunken
	// budget, and timed out; the pre-terminal payload is retained
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("ResultWithin: got error %v, want ErrTimeout", err)
	}
	assert.False(t, f.Done())
	assert.Equal(t, Record{"f": 0.5}, f.result)
}

func TestFuture_ResultWithin_DeliveredBeforeBudget(t *testing.T) {
	// GIVEN a result arriving from a concurrent manager after a short delay
	eval, mgr := newTestEval()
	f := submitOne(t, eval, mgr, 0)
	go func() {
		time.Sleep(10 * time.Millisecond)
		mgr.Send(ResultMessage{SimID: 0, Payload: Record{"f": 42}})
	}()

	// WHEN waiting with a generous budget
	res, err := f.ResultWithin(time.Second)

	// THEN the terminal payload comes back
	if err != nil {
		t.Fatalf("ResultWithin: unexpected error %v", err)
	}
	assert.Equal(t, Record{"f": 42}, res)
	assert.True(t, f.Done())
}

func TestFuture_Result_AlreadyTerminalReturnsWithoutDispatch(t *testing.T) {
	// GIVEN a future that already holds its terminal payload
	eval, mgr := newTestEval()
	f := submitOne(t, eval, mgr, 0)
	mgr.Send(ResultMessage{SimID: 0, Payload: Record{"f": 7}})
	if err := eval.WaitAll(); err != nil {
		t.Fatalf("WaitAll: unexpected error %v", err)
	}

	// WHEN Result is called
	res, err := f.Result()

	// THEN it returns immediately with the stored payload
	if err != nil {
		t.Fatalf("Result: unexpected error %v", err)
	}
	assert.Equal(t, Record{"f": 7}, res)
}

func TestFuture_CancelIsAdvisory(t *testing.T) {
	// GIVEN an unresolved future
	eval, mgr := newTestEval()
	f := submitOne(t, eval, mgr, 4)

	// WHEN Cancel is called
	f.Cancel()

	// THEN a kill message went out and the future stays non-terminal
	msg, err := mgr.Recv(0) // the request batch itself
	if err != nil {
		t.Fatalf("manager Recv: unexpected error %v", err)
	}
	assert.Equal(t, TagRequest, msg.Tag())
	msg, err = mgr.Recv(0)
	if err != nil {
		t.Fatalf("manager Recv: unexpected error %v", err)
	}
	assert.Equal(t, KillMessage{SimID: 4}, msg)
	assert.False(t, f.Done())
	assert.False(t, f.Cancelled())

	// WHEN the manager later confirms the kill
	mgr.Send(KilledMessage{SimID: 4})
	if _, err := eval.Comm().DispatchNext(0); err != nil {
		t.Fatalf("DispatchNext: unexpected error %v", err)
	}

	// THEN and only then the future is cancelled and terminal
	assert.True(t, f.Cancelled())
	assert.True(t, f.Done())
	assert.Equal(t, 0, eval.Pending)
}

func TestFuture_ProtocolViolationAbortsWait(t *testing.T) {
	// GIVEN an out-of-vocabulary message ahead of the result
	eval, mgr := newTestEval()
	f := submitOne(t, eval, mgr, 0)
	mgr.Send(KillMessage{SimID: 0})

	// WHEN waiting on the future
	_, err := f.ResultWithin(time.Second)

	// THEN the protocol violation surfaces instead of being retried
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("ResultWithin: got error %v, want *ProtocolError", err)
	}
}
