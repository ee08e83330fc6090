package node

import (
	"github.com/go-pluto/ceres/comm"
	"github.com/pkg/errors"
)

// Functions

// deliverable decides whether the supplied operation is safe
// to apply against the supplied local clock. An operation is
// deliverable exactly when it is the direct successor of the
// origin's last delivered event and every other slot of its
// clock is already covered locally. It fails loudly if the
// operation's clock names a node the local clock does not
// know.
func deliverable(local *comm.VClock, op *comm.Operation) (bool, error) {

	for node, value := range op.VClock {

		have, err := local.Entry(node)
		if err != nil {
			return false, err
		}

		if node == op.Origin {

			// Direct successor gate on the origin's slot.
			if value != (have + 1) {
				return false, nil
			}

			continue
		}

		// Dependency closure: every causal prerequisite from
		// other nodes must already have been delivered here.
		if value > have {
			return false, nil
		}
	}

	return true, nil
}

// apply commits one deliverable operation under the node-wide
// lock held by the caller: it writes the record, merges the
// operation's clock into the local clock and appends an audit
// entry. The merge cannot fail after deliverable() validated
// every clock element.
func (s *service) apply(op *comm.Operation) error {

	if err := s.store.Put(op.Key, []byte(op.Payload)); err != nil {
		return errors.Wrapf(err, "could not apply replicated record '%s'", op.Key)
	}

	if err := s.vclock.Merge(op.VClock); err != nil {
		return err
	}

	s.audit.append(actionDelivered, op.Key, op.Origin, op.VClock, s.name)

	return nil
}

// drain re-scans the hold-back queue until no queued operation
// is deliverable anymore. Each pass applies every operation
// that became deliverable, so one delivery can cascade into
// several more, also across origins. Entries whose predicate
// check fails permanently are dropped from the queue and
// logged, they could otherwise wedge the queue forever.
func (s *service) drain() error {

	for progressed := true; progressed; {

		progressed = false

		for _, queued := range s.queue.snapshot() {

			// Suppress duplicates that arrived out of order
			// and were applied through another path meanwhile.
			exists, err := s.store.Exists(queued.Key)
			if err != nil {
				return errors.Wrap(err, "existence check against record store failed")
			}
			if exists {
				s.queue.remove(queued)
				progressed = true
				continue
			}

			ok, err := deliverable(s.vclock, queued)
			if err != nil {
				s.queue.remove(queued)
				s.logDrainFailure(queued, err)
				progressed = true
				continue
			}

			if !ok {
				continue
			}

			if err := s.apply(queued); err != nil {
				return err
			}

			s.queue.remove(queued)
			progressed = true
		}
	}

	return nil
}
