// Generator-side dispatcher: send helpers for the outgoing vocabulary and
// a static type switch routing incoming messages into the required
// GenHandler slots.

package comms

import (
	"time"

	"github.com/sirupsen/logrus"
)

// GenHandler is the full incoming-tag handler set for a generator-side
// participant. A type that fails to supply any slot cannot be wired to a
// GenComm. Each handler returns the simulation id it resolved, or NoSimID
// when the message concerns no single simulation.
type GenHandler interface {
	OnWorker(nworkers int) int
	OnQueued(lo int) int
	OnResult(simID int, payload Record) int
	OnUpdate(simID int, payload Record) int
	OnKilled(simID int) int
	OnHistory(records []Record) int
}

// GenComm wraps exactly one Channel with the generator-side vocabulary.
// Exactly one logical owner drives DispatchNext at a time.
type GenComm struct {
	ch      Channel
	handler GenHandler
}

// NewGenComm wires a handler to a channel endpoint.
func NewGenComm(ch Channel, h GenHandler) *GenComm {
	return &GenComm{ch: ch, handler: h}
}

// Send forwards a raw message to the peer.
func (g *GenComm) Send(m Message) { g.ch.Send(m) }

// SendRequest asks the manager to evaluate a batch of input records.
func (g *GenComm) SendRequest(records []Record) {
	g.ch.Send(RequestMessage{SimID: NoSimID, Records: records})
}

// SendKill requests cancellation of one simulation.
func (g *GenComm) SendKill(simID int) {
	g.ch.Send(KillMessage{SimID: simID})
}

// SendGetHistory requests the evaluation history rows in [lo, hi).
func (g *GenComm) SendGetHistory(lo, hi int) {
	g.ch.Send(GetHistoryMessage{Lo: lo, Hi: hi})
}

// SendSubscribe opts into updates for simulations this generator did not
// launch.
func (g *GenComm) SendSubscribe() {
	g.ch.Send(SubscribeMessage{})
}

// DispatchNext receives one message and routes it to the handler slot for
// its tag, returning the handler's resolved simulation id. ErrTimeout
// passes through untouched when no message arrives within the budget; a
// message outside the generator vocabulary fails with *ProtocolError and
// is never silently dropped.
func (g *GenComm) DispatchNext(timeout time.Duration) (int, error) {
	msg, err := g.ch.Recv(timeout)
	if err != nil {
		return NoSimID, err
	}
	logrus.Debugf("<< gen dispatch: %s", msg.Tag())
	switch m := msg.(type) {
	case WorkerMessage:
		return g.handler.OnWorker(m.NumWorkers), nil
	case QueuedMessage:
		return g.handler.OnQueued(m.Lo), nil
	case ResultMessage:
		return g.handler.OnResult(m.SimID, m.Payload), nil
	case UpdateMessage:
		return g.handler.OnUpdate(m.SimID, m.Payload), nil
	case KilledMessage:
		return g.handler.OnKilled(m.SimID), nil
	case HistoryMessage:
		return g.handler.OnHistory(m.Records), nil
	default:
		return NoSimID, &ProtocolError{Msg: msg}
	}
}
