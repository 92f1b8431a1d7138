// Future: a per-simulation handle for cancellation and blocking result
// retrieval. Futures are produced only by a CommEval, and the controller's
// dispatch loop is their sole mutator.

package comms

import (
	"errors"
	"time"
)

// Future tracks one simulation's eventual outcome. At most one of the
// succeeded/killed flags ever becomes true; once either is set the Future
// is terminal and no further deliveries are expected for its id.
type Future struct {
	ceval   *CommEval
	id      int
	result  Record
	success bool
	killed  bool
}

// ID returns the manager-assigned simulation id.
func (f *Future) ID() int { return f.id }

// Cancelled reports whether the simulation was killed.
func (f *Future) Cancelled() bool { return f.killed }

// Done reports whether the simulation completed successfully or was killed.
func (f *Future) Done() bool { return f.success || f.killed }

// Cancel requests cancellation of the simulation. Advisory and
// asynchronous: the Future turns terminal only when the manager confirms
// with a killed delivery, so callers must not assume immediate effect.
func (f *Future) Cancel() {
	f.ceval.comm.SendKill(f.id)
}

// Result blocks, driving the owning controller's dispatch loop, until the
// simulation is terminal, then returns the delivered payload.
func (f *Future) Result() (Record, error) {
	return f.wait(0, false)
}

// ResultWithin is Result bounded by a cumulative wait budget. Each dispatch
// attempt is given the remaining budget, elapsed wall time is charged
// after each attempt, and the call fails with ErrTimeout the moment the
// remaining budget is negative, checked before every attempt including the
// first. Timing out does not cancel the underlying simulation.
func (f *Future) ResultWithin(budget time.Duration) (Record, error) {
	return f.wait(budget, true)
}

func (f *Future) wait(budget time.Duration, bounded bool) (Record, error) {
	for !f.Done() {
		if bounded && budget < 0 {
			return nil, ErrTimeout
		}
		start := time.Now()
		var err error
		if bounded {
			_, err = f.ceval.comm.DispatchNext(budget)
		} else {
			_, err = f.ceval.comm.DispatchNext(Forever)
		}
		if err != nil && !errors.Is(err, ErrTimeout) {
			return nil, err
		}
		if bounded {
			budget -= time.Since(start)
		}
	}
	return f.result, nil
}

// --- deliveries from the controller's dispatch

func (f *Future) deliverResult(payload Record) {
	f.result = payload
	f.success = true
}

func (f *Future) deliverUpdate(payload Record) {
	f.result = payload
}

func (f *Future) deliverKilled() {
	f.killed = true
}
