package comm

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"encoding/base64"
)

// Constants

// OpCreate and OpUpdate are the two operation kinds a ceres
// node replicates to its peers.
const (
	OpCreate = "create"
	OpUpdate = "update"
)

// Outcome describes what a node did with a received operation.
type Outcome string

const (
	// OutcomeDelivered signals the operation was causally
	// ready and has been applied to the local record store.
	OutcomeDelivered Outcome = "delivered"

	// OutcomeQueued signals the operation was parked in the
	// hold-back queue until its causal dependencies arrive.
	OutcomeQueued Outcome = "queued"

	// OutcomeIgnored signals the operation's record key is
	// already present locally and the duplicate was dropped.
	OutcomeIgnored Outcome = "ignored"

	// OutcomeInvalid signals a malformed operation that was
	// rejected outright and never queued.
	OutcomeInvalid Outcome = "invalid"
)

// Structs

// Operation is the immutable envelope a ceres node sends to
// its peers for every local write. It wraps the full record
// payload, the action kind, the originating node and the
// vector clock snapshot taken at the origin right after it
// incremented its own slot. An Operation is never mutated
// after construction, only read during deliverability checks
// and application.
type Operation struct {
	Origin  string            `json:"origin"`
	VClock  map[string]uint32 `json:"vector_clock"`
	Kind    string            `json:"kind"`
	Key     string            `json:"key"`
	Payload string            `json:"payload"`
}

// Functions

// Validate checks the structural invariants of an operation:
// origin and record key must be present, the kind must be one
// of the known ones and the clock must carry an entry for the
// origin itself. A failing operation is malformed and must be
// rejected, never queued.
func (op *Operation) Validate() error {

	if op.Origin == "" {
		return fmt.Errorf("operation is missing its origin node name")
	}

	if op.Key == "" {
		return fmt.Errorf("operation is missing its record key")
	}

	if (op.Kind != OpCreate) && (op.Kind != OpUpdate) {
		return fmt.Errorf("operation carries unknown kind '%s'", op.Kind)
	}

	if _, found := op.VClock[op.Origin]; !found {
		return fmt.Errorf("operation clock is missing an entry for its origin '%s'", op.Origin)
	}

	return nil
}

// String marshalls given operation into its wire string
// representation so that we can send it out onto the sync
// connection: 'origin|n1:4;n2:1;n3:0|create|key|base64(payload)'.
// The record payload is base64 encoded so that it may contain
// arbitrary characters including the delimiter symbols.
func (op *Operation) String() string {

	nodes := make([]string, 0, len(op.VClock))
	for node := range op.VClock {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	var vclockValues string
	for _, node := range nodes {

		if vclockValues == "" {
			vclockValues = fmt.Sprintf("%s:%d", node, op.VClock[node])
		} else {
			vclockValues = fmt.Sprintf("%s;%s:%d", vclockValues, node, op.VClock[node])
		}
	}

	encPayload := base64.StdEncoding.EncodeToString([]byte(op.Payload))

	return fmt.Sprintf("%s|%s|%s|%s|%s", op.Origin, vclockValues, op.Kind, op.Key, encPayload)
}

// Parse takes in a string representing a received operation
// and parses it back into struct form, validating structure
// along the way.
func Parse(raw string) (*Operation, error) {

	// Remove attached newline symbols.
	raw = strings.TrimRight(raw, "\r\n")

	// Split message at pipe symbols into exactly five parts.
	parts := strings.SplitN(raw, "|", 5)
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid replication message")
	}

	if len(parts[0]) < 1 {
		return nil, fmt.Errorf("invalid replication message because origin node name is missing")
	}

	op := &Operation{
		Origin: parts[0],
		VClock: make(map[string]uint32),
		Kind:   parts[2],
		Key:    parts[3],
	}

	// Split second part at semicolons for vector clock entries.
	for _, pair := range strings.Split(parts[1], ";") {

		entry := strings.Split(pair, ":")
		if len(entry) != 2 {
			return nil, fmt.Errorf("invalid vector clock element")
		}

		num, err := strconv.ParseUint(entry[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid number as element in vector clock")
		}

		op.VClock[entry[0]] = uint32(num)
	}

	// Decode record payload encoded in base64.
	decPayload, err := base64.StdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("decoding base64 payload of replication message failed: %v", err)
	}
	op.Payload = string(decPayload)

	if err := op.Validate(); err != nil {
		return nil, err
	}

	return op, nil
}
