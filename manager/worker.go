// Worker goroutine: runs the user simulation function inside a
// simulation-side dispatch loop. Workers observe kills only between tasks;
// the manager owns deduplication of late terminal deliveries.

package manager

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/ensemble-sim/ensemble-sim/comms"
)

// SimFunc evaluates one input record and produces its output record. An
// error marks the simulation killed rather than completed.
type SimFunc func(comms.Record) (comms.Record, error)

var errWorkerStopped = errors.New("worker stopped")

type worker struct {
	id   int
	comm *comms.SimComm
	fn   SimFunc
}

func newWorker(id int, ch comms.Channel, fn SimFunc) *worker {
	w := &worker{id: id, fn: fn}
	w.comm = comms.NewSimComm(ch, w)
	return w
}

// run drives the dispatch loop until the stop sentinel arrives.
func (w *worker) run() {
	for {
		err := w.comm.DispatchNext(comms.Forever)
		if err == nil {
			continue
		}
		if errors.Is(err, errWorkerStopped) {
			logrus.Debugf("worker %d stopped", w.id)
		} else {
			logrus.Errorf("worker %d: %v", w.id, err)
		}
		return
	}
}

// OnRequest evaluates the assigned record and reports the terminal outcome.
func (w *worker) OnRequest(simID int, records []comms.Record) error {
	if len(records) != 1 {
		return fmt.Errorf("worker %d: sim %d: expected one record, got %d", w.id, simID, len(records))
	}
	logrus.Debugf("worker %d: evaluating sim %d", w.id, simID)
	out, err := w.fn(records[0])
	if err != nil {
		logrus.Warnf("worker %d: sim %d failed: %v", w.id, simID, err)
		w.comm.SendKilled(simID)
		return nil
	}
	w.comm.SendResult(simID, out)
	return nil
}

// OnKill handles a cancellation request. A kill for NoSimID is the worker
// stop sentinel. Anything else refers to a task this worker has already
// answered (dispatch is serialized), so the confirmation it sends is
// either redundant or suppressed by the manager.
func (w *worker) OnKill(simID int) error {
	if simID == comms.NoSimID {
		return errWorkerStopped
	}
	w.comm.SendKilled(simID)
	return nil
}
