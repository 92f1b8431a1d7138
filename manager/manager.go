// Package manager implements the evaluation manager: it assigns simulation
// ids, farms tasks to a worker pool over the simulation-side vocabulary,
// and forwards progress to the generator over the generator-side
// vocabulary. Scheduling is plain idle-worker FIFO; the manager's job here
// is to honor the wire protocol, including the contiguous-id and
// at-most-one-terminal-delivery contracts the generator relies on.
package manager

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ensemble-sim/ensemble-sim/comms"
	"github.com/ensemble-sim/ensemble-sim/history"
)

// Config groups manager parameters.
type Config struct {
	Workers     int    // worker pool size (must be > 0)
	HistoryPath string // SQLite path for the evaluation history ("" = in-memory)
}

type simState int

const (
	simQueued simState = iota + 1
	simRunning
	simTerminal
)

type task struct {
	simID  int
	record comms.Record
}

// stopMessage is internal to the manager loop, never on a peer link.
type stopMessage struct{}

func (stopMessage) Tag() comms.Tag { return "stop" }

type workerHandle struct {
	inbox *comms.MsgQueue
	w     *worker
}

// Manager owns the generator link and the worker pool. One generator per
// Manager instance; a single goroutine drives the loop, so per-simulation
// state needs no locking.
type Manager struct {
	inbox  *comms.MsgQueue // shared: the generator and every worker write here
	genOut *comms.MsgQueue // the generator's inbox

	workers    []*workerHandle
	idle       []int
	backlog    []task
	states     map[int]simState
	running    map[int]int // simID -> worker index
	nextID     int
	subscribed bool

	hist *history.Store
	wg   sync.WaitGroup
}

// New creates a manager with its worker pool and returns it together with
// the generator-side Channel endpoint.
func New(cfg Config, fn SimFunc) (*Manager, comms.Channel, error) {
	if cfg.Workers <= 0 {
		return nil, nil, fmt.Errorf("manager: workers must be > 0, got %d", cfg.Workers)
	}
	path := cfg.HistoryPath
	if path == "" {
		path = ":memory:"
	}
	hist, err := history.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("manager: open history: %w", err)
	}

	m := &Manager{
		inbox:   comms.NewMsgQueue(),
		genOut:  comms.NewMsgQueue(),
		states:  make(map[int]simState),
		running: make(map[int]int),
		hist:    hist,
	}
	for i := 0; i < cfg.Workers; i++ {
		h := &workerHandle{inbox: comms.NewMsgQueue()}
		h.w = newWorker(i, comms.NewQChannel(h.inbox, m.inbox), fn)
		m.workers = append(m.workers, h)
		m.idle = append(m.idle, i)
	}
	genCh := comms.NewQChannel(m.genOut, m.inbox)
	return m, genCh, nil
}

// History exposes the evaluation log (for inspection after a run).
func (m *Manager) History() *history.Store { return m.hist }

// Start launches the worker goroutines and the manager loop, and announces
// the worker count to the generator.
func (m *Manager) Start() {
	for _, h := range m.workers {
		m.wg.Add(1)
		go func(h *workerHandle) {
			defer m.wg.Done()
			h.w.run()
		}(h)
	}
	m.genOut.Put(comms.WorkerMessage{NumWorkers: len(m.workers)})
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.loop()
	}()
	logrus.Infof("manager started with %d workers", len(m.workers))
}

// Shutdown stops the manager loop and the worker pool, then closes the
// history store. Unassigned backlog tasks are abandoned.
func (m *Manager) Shutdown() {
	m.inbox.Put(stopMessage{})
	m.wg.Wait()
	if err := m.hist.Close(); err != nil {
		logrus.Warnf("manager: close history: %v", err)
	}
	logrus.Info("manager stopped")
}

func (m *Manager) loop() {
	for {
		msg, err := m.inbox.Get(comms.Forever)
		if err != nil {
			return
		}
		switch t := msg.(type) {
		case stopMessage:
			for _, h := range m.workers {
				h.inbox.Put(comms.KillMessage{SimID: comms.NoSimID})
			}
			return
		case comms.RequestMessage:
			m.handleRequest(t.Records)
		case comms.KillMessage:
			m.handleKill(t.SimID)
		case comms.GetHistoryMessage:
			m.handleGetHistory(t.Lo, t.Hi)
		case comms.SubscribeMessage:
			m.subscribed = true
			logrus.Debug("manager: generator subscribed to foreign sim updates")
		case comms.ResultMessage:
			m.handleTerminal(t.SimID, t, "completed", t.Payload)
		case comms.UpdateMessage:
			// pre-terminal progress passes straight through
			m.genOut.Put(t)
		case comms.KilledMessage:
			m.handleTerminal(t.SimID, t, "killed", nil)
		default:
			logrus.Errorf("manager: %v", &comms.ProtocolError{Msg: msg})
		}
	}
}

// handleRequest assigns a contiguous id range in submission order,
// acknowledges it, and queues the tasks.
func (m *Manager) handleRequest(records []comms.Record) {
	lo := m.nextID
	m.nextID += len(records)
	logrus.Debugf("manager: queued sims [%d, %d)", lo, m.nextID)
	m.genOut.Put(comms.QueuedMessage{Lo: lo})
	for i, rec := range records {
		id := lo + i
		m.states[id] = simQueued
		m.backlog = append(m.backlog, task{simID: id, record: rec})
	}
	m.assign()
}

// assign hands backlog tasks to idle workers, FIFO on both sides.
func (m *Manager) assign() {
	for len(m.backlog) > 0 && len(m.idle) > 0 {
		t := m.backlog[0]
		m.backlog = m.backlog[1:]
		wi := m.idle[0]
		m.idle = m.idle[1:]
		m.states[t.simID] = simRunning
		m.running[t.simID] = wi
		m.workers[wi].inbox.Put(comms.RequestMessage{
			SimID:   t.simID,
			Records: []comms.Record{t.record},
		})
	}
}

// handleTerminal processes a worker's result or killed message: frees the
// worker, persists the outcome, and forwards to the generator. Duplicate
// terminal deliveries for one id are suppressed so the generator sees at
// most one.
func (m *Manager) handleTerminal(simID int, msg comms.Message, status string, payload comms.Record) {
	if wi, ok := m.running[simID]; ok {
		delete(m.running, simID)
		m.idle = append(m.idle, wi)
	}
	if m.states[simID] == simTerminal {
		logrus.Debugf("manager: dropping duplicate terminal %s for sim %d", msg.Tag(), simID)
		m.assign()
		return
	}
	m.states[simID] = simTerminal
	if err := m.hist.Append(simID, status, payload); err != nil {
		logrus.Errorf("manager: history append sim %d: %v", simID, err)
	}
	m.genOut.Put(msg)
	m.assign()
}

// handleKill routes a cancellation request: unassigned tasks are confirmed
// killed directly, running ones are forwarded to the owning worker, and
// terminal or unknown ids are dropped.
func (m *Manager) handleKill(simID int) {
	st, ok := m.states[simID]
	if !ok {
		logrus.Warnf("manager: kill for unknown sim %d", simID)
		return
	}
	switch st {
	case simQueued:
		for i, t := range m.backlog {
			if t.simID == simID {
				m.backlog = append(m.backlog[:i], m.backlog[i+1:]...)
				break
			}
		}
		m.states[simID] = simTerminal
		if err := m.hist.Append(simID, "killed", nil); err != nil {
			logrus.Errorf("manager: history append sim %d: %v", simID, err)
		}
		m.genOut.Put(comms.KilledMessage{SimID: simID})
	case simRunning:
		m.workers[m.running[simID]].inbox.Put(comms.KillMessage{SimID: simID})
	default:
		logrus.Debugf("manager: kill for terminal sim %d dropped", simID)
	}
}

func (m *Manager) handleGetHistory(lo, hi int) {
	recs, err := m.hist.Range(lo, hi)
	if err != nil {
		logrus.Errorf("manager: history range [%d, %d): %v", lo, hi, err)
		recs = nil
	}
	m.genOut.Put(comms.HistoryMessage{Records: recs})
}
