package node

import (
	"fmt"
	"sync"

	"encoding/json"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-pluto/ceres/comm"
	"github.com/go-pluto/ceres/storage"
	"github.com/pkg/errors"
)

// Variables

var (
	// ErrMissingID is returned for a local write whose record
	// carries no key.
	ErrMissingID = errors.New("record id must not be empty")

	// ErrRecordExists is returned when a local create names a
	// key that is already present. The existence check is the
	// tie-break: the first writer of a key wins.
	ErrRecordExists = errors.New("record with supplied id already exists")

	// ErrRecordNotFound is returned when a local update names
	// a key that is not present.
	ErrRecordNotFound = errors.New("no record with supplied id exists")
)

// Structs

// Record is one replicated registry entry, keyed by a
// national ID.
type Record struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Program string  `json:"program"`
	Year    int     `json:"year"`
	GPA     float64 `json:"gpa"`
}

// WriteReceipt is handed back for a successful local write.
type WriteReceipt struct {
	Clock     map[string]uint32 `json:"vector_clock"`
	StoreSize int               `json:"store_size"`
}

// Health describes the observable state of a replica.
type Health struct {
	NodeID    string            `json:"node_id"`
	Clock     map[string]uint32 `json:"vector_clock"`
	StoreSize int               `json:"store_size"`
	LogSize   int               `json:"log_size"`
}

// Interfaces

// Dispatcher pushes a locally originated operation to every
// peer node, best-effort. Implementations must never block
// longer than their per-peer deadline and must never surface
// a peer failure to the caller.
type Dispatcher interface {
	Dispatch(op *comm.Operation)
}

// Service defines the inbound boundary of a ceres replica.
// These are the only entry points the surrounding HTTP layer
// and the sync plane receiver may call into the core.
type Service interface {

	// CreateRecord performs a local create: it increments the
	// node's own clock slot, applies the record locally and
	// replicates the resulting operation to all peers.
	CreateRecord(rec Record) (*WriteReceipt, error)

	// UpdateRecord performs a local update of an existing
	// record, with the same clock and replication semantics
	// as CreateRecord.
	UpdateRecord(rec Record) (*WriteReceipt, error)

	// ReceiveReplicated checks one operation received from a
	// peer for deliverability and either applies it, parks it
	// in the hold-back queue, drops it as a duplicate or
	// rejects it as malformed.
	ReceiveReplicated(op *comm.Operation) (comm.Outcome, error)

	// Health reports node id, current clock, store size and
	// audit log size.
	Health() (*Health, error)

	// AuditEntries returns a copy of the audit log.
	AuditEntries() []AuditEntry

	// QueuedOperations returns a copy of the hold-back queue.
	QueuedOperations() []*comm.Operation
}

type service struct {
	lock       sync.Mutex
	logger     log.Logger
	name       string
	vclock     *comm.VClock
	store      storage.Store
	queue      *holdback
	audit      *auditLog
	dispatcher Dispatcher
}

// Functions

// NewService initializes the node state for the replica with
// supplied name over the supplied closed node set: an all-zero
// vector clock, an empty hold-back queue and an empty audit
// log. The record store and the dispatcher are external
// collaborators handed in by the caller.
func NewService(logger log.Logger, name string, nodes []string, store storage.Store, dispatcher Dispatcher) (Service, error) {

	vclock, err := comm.NewVClock(nodes)
	if err != nil {
		return nil, err
	}

	// The local name has to be a member of the node set,
	// otherwise no local write could ever be clocked.
	if _, err := vclock.Entry(name); err != nil {
		return nil, fmt.Errorf("local node name '%s' is not part of the configured node set", name)
	}

	return &service{
		logger:     logger,
		name:       name,
		vclock:     vclock,
		store:      store,
		queue:      &holdback{},
		audit:      &auditLog{},
		dispatcher: dispatcher,
	}, nil
}

// CreateRecord performs a local create and replicates it.
func (s *service) CreateRecord(rec Record) (*WriteReceipt, error) {

	op, receipt, err := s.commitLocal(comm.OpCreate, rec)
	if err != nil {
		return nil, err
	}

	// Replication happens strictly after the critical section
	// was released inside commitLocal.
	s.dispatcher.Dispatch(op)

	return receipt, nil
}

// UpdateRecord performs a local update and replicates it.
func (s *service) UpdateRecord(rec Record) (*WriteReceipt, error) {

	op, receipt, err := s.commitLocal(comm.OpUpdate, rec)
	if err != nil {
		return nil, err
	}

	s.dispatcher.Dispatch(op)

	return receipt, nil
}

// commitLocal runs the local part of a write under the
// node-wide lock: existence check, store write, own-slot
// increment, audit entry. It returns the operation to
// replicate and the receipt for the caller.
func (s *service) commitLocal(kind string, rec Record) (*comm.Operation, *WriteReceipt, error) {

	if rec.ID == "" {
		return nil, nil, ErrMissingID
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not marshal record payload")
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	exists, err := s.store.Exists(rec.ID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "existence check against record store failed")
	}

	if (kind == comm.OpCreate) && exists {
		return nil, nil, ErrRecordExists
	}

	if (kind == comm.OpUpdate) && !exists {
		return nil, nil, ErrRecordNotFound
	}

	if err := s.store.Put(rec.ID, payload); err != nil {
		return nil, nil, errors.Wrap(err, "writing record to store failed")
	}

	// Raise our own slot and snapshot the clock after the
	// increment so the emitted operation reflects this event.
	if err := s.vclock.Increment(s.name); err != nil {
		return nil, nil, err
	}
	snapshot := s.vclock.Snapshot()

	op := &comm.Operation{
		Origin:  s.name,
		VClock:  snapshot,
		Kind:    kind,
		Key:     rec.ID,
		Payload: string(payload),
	}

	s.audit.append(kind, rec.ID, s.name, snapshot, s.name)

	size, err := s.store.Count()
	if err != nil {
		return nil, nil, errors.Wrap(err, "sizing record store failed")
	}

	receipt := &WriteReceipt{
		Clock:     snapshot,
		StoreSize: size,
	}

	return op, receipt, nil
}

// ReceiveReplicated checks one received operation for
// deliverability and either applies it, queues it, drops it
// as a duplicate or rejects it as malformed.
func (s *service) ReceiveReplicated(op *comm.Operation) (comm.Outcome, error) {

	if op == nil {
		return comm.OutcomeInvalid, fmt.Errorf("received nil operation")
	}

	if err := op.Validate(); err != nil {
		return comm.OutcomeInvalid, err
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	// Duplicate suppression: a key already present locally is
	// never re-applied and never queued.
	exists, err := s.store.Exists(op.Key)
	if err != nil {
		return comm.OutcomeInvalid, errors.Wrap(err, "existence check against record store failed")
	}
	if exists {
		return comm.OutcomeIgnored, nil
	}

	// The predicate runs against the current clock under the
	// node-wide lock.
	ok, err := deliverable(s.vclock, op)
	if err != nil {
		// Unknown node ids in the clock are a contract
		// violation: reject the operation, do not queue it.
		return comm.OutcomeInvalid, err
	}

	if !ok {
		s.queue.add(op)
		s.audit.append(actionQueued, op.Key, op.Origin, op.VClock, s.name)
		return comm.OutcomeQueued, nil
	}

	if err := s.apply(op); err != nil {
		return comm.OutcomeInvalid, err
	}

	// A successful delivery can make queued operations
	// deliverable, possibly several and across origins.
	if err := s.drain(); err != nil {
		return comm.OutcomeDelivered, err
	}

	return comm.OutcomeDelivered, nil
}

// Health reports node id, current clock, store size and audit
// log size.
func (s *service) Health() (*Health, error) {

	s.lock.Lock()
	defer s.lock.Unlock()

	size, err := s.store.Count()
	if err != nil {
		return nil, errors.Wrap(err, "sizing record store failed")
	}

	return &Health{
		NodeID:    s.name,
		Clock:     s.vclock.Snapshot(),
		StoreSize: size,
		LogSize:   s.audit.size(),
	}, nil
}

// AuditEntries returns a copy of the audit log.
func (s *service) AuditEntries() []AuditEntry {
	return s.audit.list()
}

// QueuedOperations returns a copy of the hold-back queue.
func (s *service) QueuedOperations() []*comm.Operation {

	s.lock.Lock()
	defer s.lock.Unlock()

	return s.queue.snapshot()
}

// logDrainFailure reports an entry that can never become
// deliverable, e.g. because its clock names an unknown node.
func (s *service) logDrainFailure(op *comm.Operation, err error) {
	level.Error(s.logger).Log(
		"msg", fmt.Sprintf("dropping queued operation for record %s from %s", op.Key, op.Origin),
		"err", err,
	)
}
