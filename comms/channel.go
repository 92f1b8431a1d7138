// The Channel contract and the error taxonomy of the protocol layer.
// Timeouts are a normal, recoverable condition; protocol violations are
// fatal to the dispatch call and never swallowed.

package comms

import (
	"errors"
	"fmt"
	"time"
)

// Forever disables the receive deadline: Recv and DispatchNext block until
// a message arrives. Any negative timeout behaves the same.
const Forever time.Duration = -1

// ErrTimeout signals that no message arrived within the receive budget.
// Expected and recoverable; never indicates protocol failure.
var ErrTimeout = errors.New("comms: receive timed out")

// Channel is a bidirectional, typed, blocking-with-timeout message pipe
// between one protocol participant and its peer. Send never blocks and has
// no backpressure limit. Recv returns messages in FIFO order within one
// direction; no ordering holds between directions. Channels do not
// interpret payload contents.
type Channel interface {
	Send(Message)
	Recv(timeout time.Duration) (Message, error)
}

// ProtocolError reports a received message whose tag has no handler in the
// receiving role's vocabulary: a vocabulary mismatch between peers. Fatal
// to the dispatch call that observed it.
type ProtocolError struct {
	Msg Message
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("comms: no handler for message %s(%+v)", e.Msg.Tag(), e.Msg)
}
