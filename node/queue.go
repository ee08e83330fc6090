package node

import (
	"github.com/go-pluto/ceres/comm"
)

// Structs

// holdback is the queue of received operations that are not
// yet deliverable. It preserves arrival order and carries no
// lock of its own, all access runs under the node-wide lock
// of the owning service.
type holdback struct {
	ops []*comm.Operation
}

// Functions

// add appends the supplied operation to the queue.
func (q *holdback) add(op *comm.Operation) {
	q.ops = append(q.ops, op)
}

// remove deletes the supplied operation from the queue,
// matching by identity.
func (q *holdback) remove(op *comm.Operation) {

	for i, queued := range q.ops {

		if queued == op {
			q.ops = append(q.ops[:i], q.ops[(i+1):]...)
			return
		}
	}
}

// snapshot returns a copy of the queue in arrival order so
// that callers can iterate while the queue is mutated.
func (q *holdback) snapshot() []*comm.Operation {

	ops := make([]*comm.Operation, len(q.ops))
	copy(ops, q.ops)

	return ops
}

// size returns the number of queued operations.
func (q *holdback) size() int {
	return len(q.ops)
}
