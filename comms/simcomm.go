// Simulation-side dispatcher, symmetric to gencomm.go: a worker process
// receives request/kill and reports result/update/killed.

package comms

import (
	"time"

	"github.com/sirupsen/logrus"
)

// SimHandler is the full incoming-tag handler set for a simulation-side
// participant. Handler errors propagate to the DispatchNext caller.
type SimHandler interface {
	OnRequest(simID int, records []Record) error
	OnKill(simID int) error
}

// SimComm wraps exactly one Channel with the simulation-side vocabulary.
type SimComm struct {
	ch      Channel
	handler SimHandler
}

// NewSimComm wires a handler to a channel endpoint.
func NewSimComm(ch Channel, h SimHandler) *SimComm {
	return &SimComm{ch: ch, handler: h}
}

// Send forwards a raw message to the peer.
func (s *SimComm) Send(m Message) { s.ch.Send(m) }

// SendResult reports a simulation's final result.
func (s *SimComm) SendResult(simID int, payload Record) {
	s.ch.Send(ResultMessage{SimID: simID, Payload: payload})
}

// SendUpdate reports partial simulation progress.
func (s *SimComm) SendUpdate(simID int, payload Record) {
	s.ch.Send(UpdateMessage{SimID: simID, Payload: payload})
}

// SendKilled confirms that a simulation was killed.
func (s *SimComm) SendKilled(simID int) {
	s.ch.Send(KilledMessage{SimID: simID})
}

// DispatchNext receives one message and routes it to the handler slot for
// its tag. ErrTimeout passes through; a message outside the simulation
// vocabulary fails with *ProtocolError.
func (s *SimComm) DispatchNext(timeout time.Duration) error {
	msg, err := s.ch.Recv(timeout)
	if err != nil {
		return err
	}
	logrus.Debugf("<< sim dispatch: %s", msg.Tag())
	switch m := msg.(type) {
	case RequestMessage:
		return s.handler.OnRequest(m.SimID, m.Records)
	case KillMessage:
		return s.handler.OnKill(m.SimID)
	default:
		return &ProtocolError{Msg: msg}
	}
}
