// Defines the closed wire vocabulary shared by the generator, manager, and
// simulation workers. Each tag has exactly one payload shape, carried by its
// own struct; the dispatchers in gencomm.go and simcomm.go resolve handlers
// from the concrete type, never from reflection.

package comms

// Tag names a message's kind within the closed protocol vocabulary.
type Tag string

const (
	TagWorker     Tag = "worker"
	TagRequest    Tag = "request"
	TagQueued     Tag = "queued"
	TagKill       Tag = "kill"
	TagUpdate     Tag = "update"
	TagResult     Tag = "result"
	TagKilled     Tag = "killed"
	TagGetHistory Tag = "get_history"
	TagHistory    Tag = "history"
	TagSubscribe  Tag = "subscribe"
)

// NoSimID is the sentinel returned by dispatch when the handled message
// resolves a batch or carries bookkeeping rather than one simulation.
const NoSimID = -1

// Message is implemented by every wire message. Channels carry no notion of
// message type beyond the tag; payload contents are opaque to the transport.
type Message interface {
	Tag() Tag
}

// WorkerMessage (manager -> generator) announces the number of workers
// currently available to perform simulations.
type WorkerMessage struct {
	NumWorkers int
}

func (WorkerMessage) Tag() Tag { return TagWorker }

// RequestMessage requests evaluations. On the generator->manager link SimID
// is NoSimID (ids are not assigned yet) and Records holds the whole batch;
// on the manager->worker link SimID names the assigned simulation and
// Records holds exactly one record.
type RequestMessage struct {
	SimID   int
	Records []Record
}

func (RequestMessage) Tag() Tag { return TagRequest }

// QueuedMessage (manager -> generator) acknowledges the most recent request:
// the batch was assigned the contiguous id range starting at Lo, in
// submission order.
type QueuedMessage struct {
	Lo int
}

func (QueuedMessage) Tag() Tag { return TagQueued }

// KillMessage requests cancellation of one simulation.
type KillMessage struct {
	SimID int
}

func (KillMessage) Tag() Tag { return TagKill }

// UpdateMessage (manager -> generator) carries a partial, pre-terminal
// result for one simulation.
type UpdateMessage struct {
	SimID   int
	Payload Record
}

func (UpdateMessage) Tag() Tag { return TagUpdate }

// ResultMessage carries the final result for one simulation.
type ResultMessage struct {
	SimID   int
	Payload Record
}

func (ResultMessage) Tag() Tag { return TagResult }

// KilledMessage confirms that one simulation was killed.
type KilledMessage struct {
	SimID int
}

func (KilledMessage) Tag() Tag { return TagKilled }

// GetHistoryMessage (generator -> manager) requests the evaluation history
// rows with simulation ids in [Lo, Hi).
type GetHistoryMessage struct {
	Lo int
	Hi int
}

func (GetHistoryMessage) Tag() Tag { return TagGetHistory }

// HistoryMessage (manager -> generator) answers a history request.
type HistoryMessage struct {
	Records []Record
}

func (HistoryMessage) Tag() Tag { return TagHistory }

// SubscribeMessage (generator -> manager) opts into updates for simulations
// this generator did not launch.
type SubscribeMessage struct{}

func (SubscribeMessage) Tag() Tag { return TagSubscribe }
