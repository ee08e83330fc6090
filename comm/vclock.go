package comm

import (
	"fmt"
	"sort"
	"strings"
)

// Structs

// VClock tracks the causal history a node has observed as a
// vector of counters over the fixed set of nodes in a ceres
// system. The node set is closed at construction time and any
// access naming a node outside of it fails loudly instead of
// silently defaulting to zero. Counters never decrease.
//
// Access to a VClock is expected to be synchronized explicitly
// by some outside measure, e.g. the node-wide lock of package
// node. This struct does not(!) synchronize access by itself.
type VClock struct {
	entries map[string]uint32
}

// Functions

// NewVClock validates the supplied closed set of node names
// and returns an all-zero vector clock over it.
func NewVClock(nodes []string) (*VClock, error) {

	if len(nodes) == 0 {
		return nil, fmt.Errorf("node set of vector clock must not be empty")
	}

	entries := make(map[string]uint32, len(nodes))

	for _, node := range nodes {

		if node == "" {
			return nil, fmt.Errorf("node name in vector clock node set must not be empty")
		}

		if _, found := entries[node]; found {
			return nil, fmt.Errorf("duplicate node '%s' in vector clock node set", node)
		}

		entries[node] = 0
	}

	return &VClock{
		entries: entries,
	}, nil
}

// Entry returns the current counter value of the supplied
// node. Asking for a node outside of the configured set is a
// contract violation and returns an error.
func (vc *VClock) Entry(node string) (uint32, error) {

	value, found := vc.entries[node]
	if !found {
		return 0, fmt.Errorf("node '%s' is not part of the configured node set", node)
	}

	return value, nil
}

// Increment raises the counter of the supplied node by exactly
// one. It is only ever called with the local node's own name
// for locally originated writes.
func (vc *VClock) Increment(node string) error {

	if _, found := vc.entries[node]; !found {
		return fmt.Errorf("node '%s' is not part of the configured node set", node)
	}

	vc.entries[node]++

	return nil
}

// Merge raises each local counter to the pair-wise maximum of
// its current value and the corresponding supplied entry. The
// supplied entries are validated against the configured node
// set before any counter is touched, so a failing merge leaves
// the clock untouched. Merging is idempotent, commutative and
// monotone: no counter ever decreases.
func (vc *VClock) Merge(entries map[string]uint32) error {

	for node := range entries {

		if _, found := vc.entries[node]; !found {
			return fmt.Errorf("node '%s' in merged clock is not part of the configured node set", node)
		}
	}

	for node, value := range entries {

		if value > vc.entries[node] {
			vc.entries[node] = value
		}
	}

	return nil
}

// Snapshot returns an independent copy of all counters, e.g.
// for embedding into an outgoing operation. It has to be taken
// after any increment so that the emitted clock reflects the
// new event.
func (vc *VClock) Snapshot() map[string]uint32 {

	snapshot := make(map[string]uint32, len(vc.entries))
	for node, value := range vc.entries {
		snapshot[node] = value
	}

	return snapshot
}

// String marshalls the clock into the textual representation
// also used on the wire, 'n1:4;n2:1;n3:0', with node names in
// lexicographic order for deterministic output.
func (vc *VClock) String() string {

	nodes := make([]string, 0, len(vc.entries))
	for node := range vc.entries {
		nodes = append(nodes, node)
	}
	sort.Strings(nodes)

	parts := make([]string, 0, len(nodes))
	for _, node := range nodes {
		parts = append(parts, fmt.Sprintf("%s:%d", node, vc.entries[node]))
	}

	return strings.Join(parts, ";")
}
