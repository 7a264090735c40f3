package dagstore

import (
	"github.com/LinaBursami/aptos-core/inter/dag"
)

// Status of a stored node within the ordering lifecycle.
type Status uint8

const (
	// Unordered is the initial status of every admitted node.
	Unordered Status = iota
	// Ordered is set by the ordering rule once the node is anchored.
	Ordered
	// Committed is set once the node's anchor is committed.
	Committed
)

func (s Status) String() string {
	switch s {
	case Unordered:
		return "Unordered"
	case Ordered:
		return "Ordered"
	case Committed:
		return "Committed"
	}
	return "Unknown"
}

// NodeStatus pairs an admitted node with its ordering status.
// The wrapped node never changes after admission; only the status
// moves, and only forward.
type NodeStatus struct {
	status Status
	node   *dag.CertifiedNode
}

func newUnordered(node *dag.CertifiedNode) *NodeStatus {
	return &NodeStatus{
		status: Unordered,
		node:   node,
	}
}

// Status returns the current lifecycle status.
func (ns *NodeStatus) Status() Status {
	return ns.status
}

// Node returns the wrapped node regardless of status.
func (ns *NodeStatus) Node() *dag.CertifiedNode {
	return ns.node
}

// advance moves the status strictly forward.
func (ns *NodeStatus) advance(to Status) error {
	if to <= ns.status {
		return ErrInvalidTransition
	}
	ns.status = to
	return nil
}
