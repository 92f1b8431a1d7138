package manager

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ensemble-sim/ensemble-sim/comms"
)

// doubler is a trivial simulation: y = 2x.
func doubler(in comms.Record) (comms.Record, error) {
	return comms.Record{"y": in["x"] * 2}, nil
}

func TestManager_EndToEnd_BatchEvaluated(t *testing.T) {
	// GIVEN a manager with two workers and a generator-side controller
	mgr, genCh, err := New(Config{Workers: 2}, doubler)
	if err != nil {
		t.Fatalf("New: unexpected error %v", err)
	}
	mgr.Start()
	defer mgr.Shutdown()

	eval := comms.NewCommEval(genCh, 0, comms.Schema{"x"})

	// WHEN a batch of four records is requested and drained
	records := []comms.Record{{"x": 1}, {"x": 2}, {"x": 3}, {"x": 4}}
	futures, err := eval.Request(records)
	if err != nil {
		t.Fatalf("Request: unexpected error %v", err)
	}
	if err := eval.WaitAll(); err != nil {
		t.Fatalf("WaitAll: unexpected error %v", err)
	}

	// THEN ids are contiguous from zero in submission order, every future
	// succeeded with the doubled value, and the worker count was announced
	assert.Equal(t, 2, eval.Workers)
	assert.Equal(t, 0, eval.Pending)
	for i, f := range futures {
		assert.Equal(t, i, f.ID())
		assert.True(t, f.Done())
		assert.False(t, f.Cancelled())
		res, err := f.Result()
		if err != nil {
			t.Fatalf("Result sim %d: unexpected error %v", f.ID(), err)
		}
		assert.Equal(t, records[i]["x"]*2, res["y"])
	}

	// AND every terminal outcome was persisted
	n, err := mgr.History().Count()
	if err != nil {
		t.Fatalf("History Count: unexpected error %v", err)
	}
	assert.Equal(t, 4, n)
	entry, err := mgr.History().Get(2)
	if err != nil {
		t.Fatalf("History Get: unexpected error %v", err)
	}
	assert.Equal(t, "completed", entry.Status)
	assert.Equal(t, comms.Record{"y": 6}, entry.Payload)
}

func TestManager_SequentialBatches_MonotonicIDs(t *testing.T) {
	// GIVEN a running manager
	mgr, genCh, err := New(Config{Workers: 1}, doubler)
	if err != nil {
		t.Fatalf("New: unexpected error %v", err)
	}
	mgr.Start()
	defer mgr.Shutdown()
	eval := comms.NewCommEval(genCh, 0, comms.Schema{"x"})

	// WHEN two batches run back to back
	first, err := eval.Request([]comms.Record{{"x": 1}, {"x": 2}})
	if err != nil {
		t.Fatalf("first Request: unexpected error %v", err)
	}
	if err := eval.WaitAll(); err != nil {
		t.Fatalf("first WaitAll: unexpected error %v", err)
	}
	second, err := eval.Request([]comms.Record{{"x": 3}})
	if err != nil {
		t.Fatalf("second Request: unexpected error %v", err)
	}
	if err := eval.WaitAll(); err != nil {
		t.Fatalf("second WaitAll: unexpected error %v", err)
	}

	// THEN the id ranges are contiguous and monotonically increasing
	assert.Equal(t, []int{0, 1}, []int{first[0].ID(), first[1].ID()})
	assert.Equal(t, 2, second[0].ID())
}

func TestManager_KillUnassignedTask(t *testing.T) {
	// GIVEN one slow worker so that later batch entries stay unassigned
	slow := func(in comms.Record) (comms.Record, error) {
		time.Sleep(50 * time.Millisecond)
		return doubler(in)
	}
	mgr, genCh, err := New(Config{Workers: 1}, slow)
	if err != nil {
		t.Fatalf("New: unexpected error %v", err)
	}
	mgr.Start()
	defer mgr.Shutdown()
	eval := comms.NewCommEval(genCh, 0, comms.Schema{"x"})

	futures, err := eval.Request([]comms.Record{{"x": 1}, {"x": 2}, {"x": 3}})
	if err != nil {
		t.Fatalf("Request: unexpected error %v", err)
	}

	// WHEN the last, still-queued simulation is cancelled
	futures[2].Cancel()
	if err := eval.WaitAll(); err != nil {
		t.Fatalf("WaitAll: unexpected error %v", err)
	}

	// THEN it was confirmed killed without ever reaching a worker, while
	// the others completed
	assert.True(t, futures[2].Cancelled())
	assert.True(t, futures[0].Done() && !futures[0].Cancelled())
	assert.True(t, futures[1].Done() && !futures[1].Cancelled())

	entry, err := mgr.History().Get(2)
	if err != nil {
		t.Fatalf("History Get: unexpected error %v", err)
	}
	assert.Equal(t, "killed", entry.Status)
}

func TestManager_FailedSimulationReportedKilled(t *testing.T) {
	// GIVEN a simulation function that fails on odd inputs
	flaky := func(in comms.Record) (comms.Record, error) {
		if int(in["x"])%2 == 1 {
			return nil, fmt.Errorf("diverged at x=%v", in["x"])
		}
		return doubler(in)
	}
	mgr, genCh, err := New(Config{Workers: 2}, flaky)
	if err != nil {
		t.Fatalf("New: unexpected error %v", err)
	}
	mgr.Start()
	defer mgr.Shutdown()
	eval := comms.NewCommEval(genCh, 0, comms.Schema{"x"})

	// WHEN a mixed batch runs to completion
	futures, err := eval.Request([]comms.Record{{"x": 1}, {"x": 2}})
	if err != nil {
		t.Fatalf("Request: unexpected error %v", err)
	}
	if err := eval.WaitAll(); err != nil {
		t.Fatalf("WaitAll: unexpected error %v", err)
	}

	// THEN the failing simulation surfaced as killed, the other succeeded
	assert.True(t, futures[0].Cancelled())
	assert.False(t, futures[1].Cancelled())
	assert.Equal(t, 0, eval.Pending)
}

func TestManager_GetHistoryRoundTrip(t *testing.T) {
	// GIVEN a completed batch
	mgr, genCh, err := New(Config{Workers: 2}, doubler)
	if err != nil {
		t.Fatalf("New: unexpected error %v", err)
	}
	mgr.Start()
	defer mgr.Shutdown()
	eval := comms.NewCommEval(genCh, 0, comms.Schema{"x"})
	if _, err := eval.Request([]comms.Record{{"x": 1}, {"x": 2}}); err != nil {
		t.Fatalf("Request: unexpected error %v", err)
	}
	if err := eval.WaitAll(); err != nil {
		t.Fatalf("WaitAll: unexpected error %v", err)
	}

	// WHEN the generator asks for the history range
	eval.Comm().SendGetHistory(0, 10)
	id, err := eval.Comm().DispatchNext(time.Second)

	// THEN a history message arrives and dispatches cleanly with the
	// sentinel id (this controller ignores its contents)
	if err != nil {
		t.Fatalf("DispatchNext: unexpected error %v", err)
	}
	assert.Equal(t, comms.NoSimID, id)
}

func TestManager_RejectsNonPositiveWorkerCount(t *testing.T) {
	_, _, err := New(Config{Workers: 0}, doubler)
	if err == nil {
		t.Fatal("New with zero workers: want error, got nil")
	}
}
