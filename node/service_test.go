package node_test

import (
	"testing"

	"encoding/json"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-pluto/ceres/comm"
	"github.com/go-pluto/ceres/node"
	"github.com/go-pluto/ceres/storage"
	"github.com/stretchr/testify/assert"
)

// Functions

// TestCreateRecord executes a black-box unit test on the local
// create path: clock advance, receipt, audit entry and the
// operation handed to the dispatcher.
func TestCreateRecord(t *testing.T) {

	service, dispatcher := newTestService(t, "n1")

	rec := node.Record{
		ID:      "30123456",
		Name:    "Ada Lovelace",
		Program: "Mathematics",
		Year:    2,
		GPA:     9.5,
	}

	receipt, err := service.CreateRecord(rec)
	assert.Nilf(t, err, "expected nil error for CreateRecord() but received: %v", err)

	assert.Equal(t, uint32(1), receipt.Clock["n1"])
	assert.Equal(t, uint32(0), receipt.Clock["n2"])
	assert.Equal(t, 1, receipt.StoreSize)

	// The write went out to the dispatcher exactly once, with
	// the post-increment clock and the marshalled record.
	assert.Equal(t, 1, len(dispatcher.ops))
	assert.Equal(t, "n1", dispatcher.ops[0].Origin)
	assert.Equal(t, comm.OpCreate, dispatcher.ops[0].Kind)
	assert.Equal(t, "30123456", dispatcher.ops[0].Key)
	assert.Equal(t, uint32(1), dispatcher.ops[0].VClock["n1"])

	var sent node.Record
	err = json.Unmarshal([]byte(dispatcher.ops[0].Payload), &sent)
	assert.Nilf(t, err, "expected dispatched payload to be valid JSON but received: %v", err)
	assert.Equal(t, rec, sent)

	entries := service.AuditEntries()
	assert.Equal(t, 1, len(entries))
	assert.Equal(t, comm.OpCreate, entries[0].Action)
	assert.Equal(t, "n1", entries[0].Origin)
}

// TestCreateRecordExisting verifies that a create for an
// already present key fails and leaves clock and dispatcher
// untouched.
func TestCreateRecordExisting(t *testing.T) {

	service, dispatcher := newTestService(t, "n1")

	_, err := service.CreateRecord(node.Record{ID: "1", Name: "a"})
	assert.Nilf(t, err, "expected nil error for CreateRecord() but received: %v", err)

	_, err = service.CreateRecord(node.Record{ID: "1", Name: "b"})
	assert.Equal(t, node.ErrRecordExists, err)

	health, err := service.Health()
	assert.Nilf(t, err, "expected nil error for Health() but received: %v", err)
	assert.Equal(t, uint32(1), health.Clock["n1"])
	assert.Equal(t, 1, len(dispatcher.ops))
}

// TestCreateRecordMissingID verifies that a record without a
// key is rejected before any state change.
func TestCreateRecordMissingID(t *testing.T) {

	service, dispatcher := newTestService(t, "n1")

	_, err := service.CreateRecord(node.Record{Name: "nameless"})
	assert.Equal(t, node.ErrMissingID, err)
	assert.Equal(t, 0, len(dispatcher.ops))
}

// TestUpdateRecord verifies that an update only succeeds for a
// present key and raises the clock a second time.
func TestUpdateRecord(t *testing.T) {

	service, dispatcher := newTestService(t, "n1")

	_, err := service.UpdateRecord(node.Record{ID: "1", Name: "a"})
	assert.Equal(t, node.ErrRecordNotFound, err)

	_, err = service.CreateRecord(node.Record{ID: "1", Name: "a"})
	assert.Nilf(t, err, "expected nil error for CreateRecord() but received: %v", err)

	receipt, err := service.UpdateRecord(node.Record{ID: "1", Name: "b"})
	assert.Nilf(t, err, "expected nil error for UpdateRecord() but received: %v", err)

	assert.Equal(t, uint32(2), receipt.Clock["n1"])
	assert.Equal(t, 1, receipt.StoreSize)
	assert.Equal(t, 2, len(dispatcher.ops))
	assert.Equal(t, comm.OpUpdate, dispatcher.ops[1].Kind)
}

// TestHealth verifies the reported node state.
func TestHealth(t *testing.T) {

	service, _ := newTestService(t, "n2")

	health, err := service.Health()
	assert.Nilf(t, err, "expected nil error for Health() but received: %v", err)

	assert.Equal(t, "n2", health.NodeID)
	assert.Equal(t, 0, health.StoreSize)
	assert.Equal(t, 0, health.LogSize)
	assert.Equal(t, map[string]uint32{"n1": 0, "n2": 0, "n3": 0}, health.Clock)
}

// TestNewServiceUnknownLocalName verifies that a replica whose
// own name is not part of the node set cannot be built.
func TestNewServiceUnknownLocalName(t *testing.T) {

	_, err := node.NewService(log.NewNopLogger(), "n9", []string{"n1", "n2"}, storage.NewMemoryStore(), &capturingDispatcher{})
	assert.NotNil(t, err, "expected an error for a local name outside the node set")
}

// TestQueuedAuditTrail verifies that queueing and later
// delivering a held back operation both leave audit entries.
func TestQueuedAuditTrail(t *testing.T) {

	service, _ := newTestService(t, "n1")

	_, err := service.ReceiveReplicated(replicated("n2", "b", map[string]uint32{"n1": 0, "n2": 2, "n3": 0}))
	assert.Nilf(t, err, "expected nil error but received: %v", err)

	_, err = service.ReceiveReplicated(replicated("n2", "a", map[string]uint32{"n1": 0, "n2": 1, "n3": 0}))
	assert.Nilf(t, err, "expected nil error but received: %v", err)

	actions := make([]string, 0, 3)
	for _, entry := range service.AuditEntries() {
		actions = append(actions, entry.Action)
	}

	assert.Equal(t, []string{"queued", "delivered", "delivered"}, actions)
}

// TestServiceMiddlewares verifies that the logging and metrics
// decorators pass results through unchanged.
func TestServiceMiddlewares(t *testing.T) {

	service, _ := newTestService(t, "n1")

	service = node.NewLoggingService(service, log.NewNopLogger())
	service = node.NewMetricsService(service, discard.NewCounter(), discard.NewCounter())

	receipt, err := service.CreateRecord(node.Record{ID: "1", Name: "a"})
	assert.Nilf(t, err, "expected nil error for CreateRecord() but received: %v", err)
	assert.Equal(t, uint32(1), receipt.Clock["n1"])

	outcome, err := service.ReceiveReplicated(replicated("n2", "b", map[string]uint32{"n1": 0, "n2": 1, "n3": 0}))
	assert.Nilf(t, err, "expected nil error but received: %v", err)
	assert.Equal(t, comm.OutcomeDelivered, outcome)

	health, err := service.Health()
	assert.Nilf(t, err, "expected nil error for Health() but received: %v", err)
	assert.Equal(t, 2, health.StoreSize)
}
