package dagstore

import (
	"fmt"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/LinaBursami/aptos-core/hash"
	"github.com/LinaBursami/aptos-core/inter/dag"
	"github.com/LinaBursami/aptos-core/inter/idx"
	"github.com/LinaBursami/aptos-core/inter/pos"
)

// Storage is the persistence collaborator of the Dag.
// Every admitted node is durably recorded before it becomes visible in memory.
type Storage interface {
	GetCertifiedNodes() (map[hash.Hash]*dag.CertifiedNode, error)
	SaveCertifiedNode(n *dag.CertifiedNode) error
	DeleteCertifiedNodes(ids hash.Hashes) error
}

// Dag is the round/author-indexed store of certified nodes for one epoch.
// It maintains a dense per-round row of validator slots, so duplicate
// detection and quorum iteration are constant-time per author.
// A Dag is built once per epoch and discarded at epoch change.
type Dag struct {
	epoch         idx.Epoch
	authorToIndex map[idx.ValidatorID]idx.Validator
	numValidators idx.Validator

	nodesByRound *treemap.Map // idx.Round -> []*NodeStatus

	storage Storage

	mu sync.RWMutex
}

func roundComparator(a, b interface{}) int {
	ra, rb := a.(idx.Round), b.(idx.Round)
	switch {
	case ra > rb:
		return 1
	case ra < rb:
		return -1
	default:
		return 0
	}
}

// NewDag rehydrates the epoch's DAG from storage.
// Nodes persisted by stale epochs are excluded from the view and deleted
// in one batch; deletion failure is logged and non-fatal.
// A stored author missing from the validator mapping breaks the store's
// foundational assumption about the epoch and is reported via crit.
// crit must not return (it terminates the process, or panics in tests);
// should it return anyway, the offending node is left out of the view.
func NewDag(epoch idx.Epoch, validators *pos.Validators, storage Storage, crit func(error)) *Dag {
	d := &Dag{
		epoch:         epoch,
		authorToIndex: validators.Idxs(),
		numValidators: validators.Len(),
		nodesByRound:  treemap.NewWith(roundComparator),
		storage:       storage,
	}

	all, err := storage.GetCertifiedNodes()
	if err != nil {
		// best-effort read, treated as empty
		log.Error("Failed to read certified nodes", "err", err)
	}
	expired := make(hash.Hashes, 0)
	for id, node := range all {
		if node.Metadata.Epoch != epoch {
			expired = append(expired, id)
			continue
		}
		index, ok := d.authorToIndex[node.Metadata.Author]
		if !ok {
			crit(fmt.Errorf("author %d from certified node %s has no validator index", node.Metadata.Author, id.TerminalString()))
			continue
		}
		d.row(node.Metadata.Round)[index] = newUnordered(node)
	}
	if len(expired) > 0 {
		if err := storage.DeleteCertifiedNodes(expired); err != nil {
			log.Error("Failed to delete expired certified nodes", "err", err)
		}
	}

	return d
}

// Epoch of the DAG.
func (d *Dag) Epoch() idx.Epoch {
	return d.epoch
}

// LowestRound returns the minimum indexed round, or 0 if the store is empty.
func (d *Dag) LowestRound() idx.Round {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.lowestRound()
}

// HighestRound returns the maximum indexed round, or 0 if the store is empty.
func (d *Dag) HighestRound() idx.Round {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.highestRound()
}

func (d *Dag) lowestRound() idx.Round {
	if round, _ := d.nodesByRound.Min(); round != nil {
		return round.(idx.Round)
	}
	return 0
}

func (d *Dag) highestRound() idx.Round {
	if round, _ := d.nodesByRound.Max(); round != nil {
		return round.(idx.Round)
	}
	return 0
}

// AddNode validates the node and, only if every check passes, persists
// then indexes it. Nothing is mutated on failure, so a rejected or
// half-failed admission is never visible to readers.
func (d *Dag) AddNode(node *dag.CertifiedNode) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	index, ok := d.authorToIndex[node.Metadata.Author]
	if !ok {
		return ErrUnknownAuthor
	}
	round := node.Metadata.Round
	if round < d.lowestRound() {
		return ErrRoundTooLow
	}
	if round > d.highestRound()+1 {
		return ErrRoundTooHigh
	}
	for _, parent := range node.Parents {
		if !d.exists(parent.Metadata) {
			return ErrMissingParent
		}
	}
	if row, ok := d.getRow(round); ok && row[index] != nil {
		return ErrDuplicateNode
	}

	// mutate only after all checks pass, and memory only after disk
	if err := d.storage.SaveCertifiedNode(node); err != nil {
		return errors.Wrap(err, "save certified node")
	}
	d.row(round)[index] = newUnordered(node)
	return nil
}

// Exists returns true iff the slot at (metadata.Round, metadata.Author) is populated.
func (d *Dag) Exists(m dag.NodeMetadata) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.exists(m)
}

// AllExists returns true iff every certificate's metadata exists.
func (d *Dag) AllExists(cc dag.NodeCertificates) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, c := range cc {
		if !d.exists(c.Metadata) {
			return false
		}
	}
	return true
}

// GetNode returns the stored node regardless of its status, or nil if absent.
func (d *Dag) GetNode(m dag.NodeMetadata) *dag.CertifiedNode {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if ns := d.getNodeStatus(m); ns != nil {
		return ns.Node()
	}
	return nil
}

// GetNodeStatus returns the status of the stored node.
func (d *Dag) GetNodeStatus(m dag.NodeMetadata) (Status, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ns := d.getNodeStatus(m)
	if ns == nil {
		return Unordered, ErrNotFound
	}
	return ns.Status(), nil
}

// UpdateNodeStatus advances the node's status strictly forward
// (Unordered -> Ordered -> Committed). It is invoked by the external
// ordering rule, never by the admission path.
func (d *Dag) UpdateNodeStatus(m dag.NodeMetadata, to Status) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ns := d.getNodeStatus(m)
	if ns == nil {
		return ErrNotFound
	}
	return ns.advance(to)
}

// GetStrongLinksForRound returns the certificates of every populated node
// in the round iff the round's authors together carry a quorum of voting
// power. A nil result means the round cannot support causal progress yet.
func (d *Dag) GetStrongLinksForRound(round idx.Round, validators *pos.Validators) dag.NodeCertificates {
	d.mu.RLock()
	defer d.mu.RUnlock()

	row, ok := d.getRow(round)
	if !ok {
		return nil
	}

	authors := make([]idx.ValidatorID, 0, len(row))
	links := make(dag.NodeCertificates, 0, len(row))
	for _, ns := range row {
		if ns == nil {
			continue
		}
		authors = append(authors, ns.Node().Metadata.Author)
		links = append(links, ns.Node().Certificate())
	}
	if !validators.CheckVotingPower(authors) {
		return nil
	}
	return links
}

// Bitmask returns, for each indexed round in ascending order starting at
// LowestRound, a fixed-width row of slot occupancy over validator indexes.
func (d *Dag) Bitmask() [][]bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	res := make([][]bool, 0, d.nodesByRound.Size())
	it := d.nodesByRound.Iterator()
	for it.Next() {
		row := it.Value().([]*NodeStatus)
		mask := make([]bool, len(row))
		for i, ns := range row {
			mask[i] = ns != nil
		}
		res = append(res, mask)
	}
	return res
}

func (d *Dag) exists(m dag.NodeMetadata) bool {
	return d.getNodeStatus(m) != nil
}

func (d *Dag) getNodeStatus(m dag.NodeMetadata) *NodeStatus {
	index, ok := d.authorToIndex[m.Author]
	if !ok {
		return nil
	}
	row, ok := d.getRow(m.Round)
	if !ok {
		return nil
	}
	return row[index]
}

func (d *Dag) getRow(round idx.Round) ([]*NodeStatus, bool) {
	if row, ok := d.nodesByRound.Get(round); ok {
		return row.([]*NodeStatus), true
	}
	return nil, false
}

// row returns the round's slot row, allocating an all-empty one if absent.
func (d *Dag) row(round idx.Round) []*NodeStatus {
	if row, ok := d.getRow(round); ok {
		return row
	}
	row := make([]*NodeStatus, d.numValidators)
	d.nodesByRound.Put(round, row)
	return row
}
