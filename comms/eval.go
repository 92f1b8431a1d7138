// CommEval turns the push-style generator dispatch into a pull-style
// batched-request API with one Future per in-flight simulation. The
// controller owns the promise table and all counters; everything mutates
// synchronously inside DispatchNext, so no internal locking exists and the
// type must not be shared across concurrent callers.

package comms

import (
	"errors"
	"fmt"
)

// ErrBatchInFlight reports a Request call while a previous batch is still
// awaiting its queued acknowledgment. At most one batch may be outstanding
// per controller; violating that would corrupt the acknowledgment marker,
// so it fails fast instead.
var ErrBatchInFlight = errors.New("comms: a batch is already awaiting acknowledgment")

// ErrEmptyBatch reports a Request call with no records. An empty batch
// would desynchronize the queued acknowledgment stream.
var ErrEmptyBatch = errors.New("comms: batch must contain at least one record")

// CommEval is the generator-side request/future controller.
type CommEval struct {
	comm *GenComm

	Started int // simulations requested so far
	Pending int // simulations without a terminal delivery yet
	Workers int // last announced worker count (informational)

	schema         Schema
	promises       map[int]*Future
	returning      []*Future
	awaitingQueued int // size of the batch sent but not yet acknowledged
}

// NewCommEval creates a controller over a generator-side channel endpoint.
// The schema is the negotiated ordered field list for submitted records.
func NewCommEval(ch Channel, workers int, schema Schema) *CommEval {
	c := &CommEval{
		Workers:  workers,
		schema:   schema,
		promises: make(map[int]*Future),
	}
	c.comm = NewGenComm(ch, c)
	return c
}

// Comm returns the underlying generator-side dispatcher.
func (c *CommEval) Comm() *GenComm { return c.comm }

// Promise returns the Future for a known simulation id, or nil.
func (c *CommEval) Promise(simID int) *Future { return c.promises[simID] }

// Request submits one batch of input records and blocks, driving the
// dispatch loop, until the manager acknowledges the batch with its id
// range. Returns the newly created Futures in ascending id order. Only one
// batch may be awaiting acknowledgment at a time.
func (c *CommEval) Request(records []Record) ([]*Future, error) {
	if c.awaitingQueued != 0 {
		return nil, ErrBatchInFlight
	}
	if len(records) == 0 {
		return nil, ErrEmptyBatch
	}
	c.Started += len(records)
	c.Pending += len(records)
	c.comm.SendRequest(records)
	c.awaitingQueued = len(records)
	for c.awaitingQueued > 0 {
		if _, err := c.comm.DispatchNext(Forever); err != nil {
			return nil, fmt.Errorf("awaiting queued acknowledgment: %w", err)
		}
	}
	futures := c.returning
	c.returning = nil
	return futures, nil
}

// Submit builds one record from positional field values in schema order and
// submits it as a batch of one, returning its single Future.
func (c *CommEval) Submit(values ...float64) (*Future, error) {
	rec, err := c.schema.NewRecord(values...)
	if err != nil {
		return nil, err
	}
	return c.submitOne(rec)
}

// SubmitNamed builds one record from named field values and submits it as a
// batch of one, returning its single Future.
func (c *CommEval) SubmitNamed(values map[string]float64) (*Future, error) {
	rec, err := c.schema.NewRecordNamed(values)
	if err != nil {
		return nil, err
	}
	return c.submitOne(rec)
}

func (c *CommEval) submitOne(rec Record) (*Future, error) {
	futures, err := c.Request([]Record{rec})
	if err != nil {
		return nil, err
	}
	return futures[0], nil
}

// WaitAny blocks until any outstanding simulation reaches a terminal state
// and returns its Future. Update deliveries resolve an id but not a
// terminal state, so the loop continues past them; worker and history
// deliveries resolve no id at all.
func (c *CommEval) WaitAny() (*Future, error) {
	simID := NoSimID
	for simID < 0 || !c.promises[simID].Done() {
		var err error
		simID, err = c.comm.DispatchNext(Forever)
		if err != nil {
			return nil, err
		}
	}
	return c.promises[simID], nil
}

// WaitAll blocks until every outstanding simulation is terminal.
func (c *CommEval) WaitAll() error {
	for c.Pending > 0 {
		if _, err := c.comm.DispatchNext(Forever); err != nil {
			return err
		}
	}
	return nil
}

// --- GenHandler slots. Fixed semantics; the dispatch loop is the only
// caller. Deliveries for ids outside the promise table are a manager
// contract violation and are not locally re-validated.

// OnWorker records the announced worker count.
func (c *CommEval) OnWorker(nworkers int) int {
	c.Workers = nworkers
	return NoSimID
}

// OnQueued allocates one Future per id in the acknowledged contiguous range
// and clears the awaiting-acknowledgment marker. Resolves a batch, not a
// simulation.
func (c *CommEval) OnQueued(lo int) int {
	hi := lo + c.awaitingQueued
	c.awaitingQueued = 0
	c.returning = make([]*Future, 0, hi-lo)
	for id := lo; id < hi; id++ {
		f := &Future{ceval: c, id: id}
		c.promises[id] = f
		c.returning = append(c.returning, f)
	}
	return NoSimID
}

// OnResult marks a simulation succeeded with its final payload.
func (c *CommEval) OnResult(simID int, payload Record) int {
	c.Pending--
	c.promises[simID].deliverResult(payload)
	return simID
}

// OnUpdate stores a pre-terminal payload.
func (c *CommEval) OnUpdate(simID int, payload Record) int {
	c.promises[simID].deliverUpdate(payload)
	return simID
}

// OnKilled marks a simulation killed.
func (c *CommEval) OnKilled(simID int) int {
	c.Pending--
	c.promises[simID].deliverKilled()
	return simID
}

// OnHistory is ignored by this controller; history consumers drive their
// own dispatch.
func (c *CommEval) OnHistory(records []Record) int { return NoSimID }
