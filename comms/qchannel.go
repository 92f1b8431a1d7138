// Queue-backed Channel: a pair of one-directional unbounded FIFO queues.
// Carries no role-specific logic; generator-manager and worker-manager
// links use the same type. A MsgQueue accepts concurrent producers, so a
// manager can share one inbox among all of its peers, while each Channel
// endpoint keeps exactly one logical owner.

package comms

import (
	"sync"
	"time"
)

// MsgQueue is an unbounded FIFO of messages with a timed blocking Get.
// Put never blocks. Multiple producers may Put concurrently; Get assumes a
// single consumer.
type MsgQueue struct {
	mu    sync.Mutex
	items []Message
	wake  chan struct{}
}

// NewMsgQueue creates an empty queue.
func NewMsgQueue() *MsgQueue {
	return &MsgQueue{wake: make(chan struct{}, 1)}
}

// Put appends a message to the back of the queue.
func (q *MsgQueue) Put(m Message) {
	q.mu.Lock()
	q.items = append(q.items, m)
	q.mu.Unlock()
	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Get removes and returns the front message, waiting up to timeout for one
// to arrive. A negative timeout (Forever) waits indefinitely; a zero
// timeout polls. Returns ErrTimeout when the budget elapses first.
func (q *MsgQueue) Get(timeout time.Duration) (Message, error) {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			m := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return m, nil
		}
		q.mu.Unlock()

		if timeout < 0 {
			<-q.wake
			continue
		}
		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, ErrTimeout
		}
		timer := time.NewTimer(wait)
		select {
		case <-q.wake:
			timer.Stop()
		case <-timer.C:
			return nil, ErrTimeout
		}
	}
}

// Len returns the number of queued messages.
func (q *MsgQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// QChannel is a Channel over an inbox/outbox queue pair. Two peers share a
// link by each holding the inbox the other writes to.
type QChannel struct {
	inbox  *MsgQueue
	outbox *MsgQueue
}

// NewQChannel builds a Channel endpoint from explicit queues. Useful when
// several endpoints feed one shared inbox, as on the manager's receive side.
func NewQChannel(inbox, outbox *MsgQueue) *QChannel {
	return &QChannel{inbox: inbox, outbox: outbox}
}

// NewQChannelPair builds two cross-wired endpoints: whatever one sends, the
// other receives, FIFO per direction.
func NewQChannelPair() (*QChannel, *QChannel) {
	a := NewMsgQueue()
	b := NewMsgQueue()
	return NewQChannel(a, b), NewQChannel(b, a)
}

// Send places a message on the outbox queue.
func (c *QChannel) Send(m Message) { c.outbox.Put(m) }

// Recv returns the next message from the inbox queue or ErrTimeout.
func (c *QChannel) Recv(timeout time.Duration) (Message, error) {
	return c.inbox.Get(timeout)
}
