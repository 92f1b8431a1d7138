// Package comms implements the communication core of ensemble-sim: typed
// message channels between generator, manager, and simulation workers,
// tag-based dispatch for each role, and the promise/future layer that turns
// push-style dispatch into pull-style batched requests.
//
// # Reading Guide
//
// Start with these files to understand the protocol layer:
//   - message.go: the closed wire vocabulary, one typed struct per tag
//   - channel.go: the Channel contract, the Timeout condition, protocol errors
//   - qchannel.go: the queue-backed Channel over an inbox/outbox pair
//   - gencomm.go, simcomm.go: per-role dispatchers and required handler sets
//   - eval.go: CommEval, the batched request/future controller
//   - future.go: per-simulation handles with blocking retrieval and cancellation
//
// # Protocol
//
// Message flow relative to the generator-side controller:
//
//	worker(n)            manager -> gen    worker count update
//	request(records)     gen -> manager    request evaluations
//	queued(lo)           manager -> gen    contiguous id range start
//	kill(id)             gen -> manager    request cancellation
//	update(id, rec)      manager -> gen    intermediate result
//	result(id, rec)      manager -> gen    final result
//	killed(id)           manager -> gen    cancellation confirmed
//	get_history/history  gen <-> manager   bulk history access
//	subscribe            gen -> manager    opt into foreign sim updates
//
// Simulation ids are assigned only by the manager, in contiguous increasing
// ranges matching submission order. A simulation sees zero or more update
// deliveries followed by at most one terminal delivery (result or killed).
//
// # Ownership
//
// Each Channel endpoint has exactly one logical owner. A CommEval, its
// dispatch loop, and its promise table must be driven from a single
// goroutine; concurrent callers need external serialization. Only one batch
// may be awaiting its queued acknowledgment per controller at any time.
package comms
