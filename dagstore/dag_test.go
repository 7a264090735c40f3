package dagstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/LinaBursami/aptos-core/inter/dag"
	"github.com/LinaBursami/aptos-core/inter/idx"
	"github.com/LinaBursami/aptos-core/inter/pos"
	"github.com/LinaBursami/aptos-core/kvdb/fallible"
	"github.com/LinaBursami/aptos-core/kvdb/memorydb"
)

var errInjected = errors.New("injected storage failure")

func testNode(epoch idx.Epoch, round idx.Round, author idx.ValidatorID, parents dag.NodeCertificates) *dag.CertifiedNode {
	if parents == nil {
		// match the RLP decoding of an empty list
		parents = dag.NodeCertificates{}
	}
	return &dag.CertifiedNode{
		Metadata: dag.NodeMetadata{
			Epoch:  epoch,
			Round:  round,
			Author: author,
		},
		Parents: parents,
		Signers: []idx.ValidatorID{1, 2, 3},
	}
}

func fakeDag(validators *pos.Validators) (*Dag, *Store) {
	store := NewMemStore()
	crit := func(err error) {
		panic(err)
	}
	return NewDag(1, validators, store, crit), store
}

// failingStorage injects a deterministic save failure.
type failingStorage struct {
	Storage
	fail bool
}

func (s *failingStorage) SaveCertifiedNode(n *dag.CertifiedNode) error {
	if s.fail {
		return errInjected
	}
	return s.Storage.SaveCertifiedNode(n)
}

func TestDagScenario(t *testing.T) {
	require := require.New(t)

	// 4 validators, quorum = any 3
	vv := pos.EqualWeightValidators([]idx.ValidatorID{1, 2, 3, 4}, 1)
	d, _ := fakeDag(vv)

	require.Equal(idx.Round(0), d.LowestRound())
	require.Equal(idx.Round(0), d.HighestRound())

	// genesis nodes for 3 of 4 validators
	for _, author := range []idx.ValidatorID{1, 2, 3} {
		require.NoError(d.AddNode(testNode(1, 0, author, nil)))
	}

	links := d.GetStrongLinksForRound(0, vv)
	require.Len(links, 3)

	// second round-0 node from the same author
	err := d.AddNode(testNode(1, 0, 1, nil))
	require.ErrorIs(err, ErrDuplicateNode)

	// round 2 while round 1 is still empty
	err = d.AddNode(testNode(1, 2, 1, nil))
	require.ErrorIs(err, ErrRoundTooHigh)

	// parent referencing a nonexistent round-0 node from validator 4
	badParents := dag.NodeCertificates{{
		Metadata: dag.NodeMetadata{Epoch: 1, Round: 0, Author: 4},
		Signers:  []idx.ValidatorID{1, 2, 3},
	}}
	err = d.AddNode(testNode(1, 1, 4, badParents))
	require.ErrorIs(err, ErrMissingParent)

	// round-1 node built on the genesis strong links
	require.NoError(d.AddNode(testNode(1, 1, 1, links)))
	require.Equal(idx.Round(1), d.HighestRound())
	require.Equal(idx.Round(0), d.LowestRound())

	// author outside of the epoch's validator set
	err = d.AddNode(testNode(1, 1, 9, nil))
	require.ErrorIs(err, ErrUnknownAuthor)
}

func TestAddNodeDoesntMutateOnFailure(t *testing.T) {
	require := require.New(t)

	vv := pos.EqualWeightValidators([]idx.ValidatorID{1, 2, 3, 4}, 1)
	d, _ := fakeDag(vv)

	require.NoError(d.AddNode(testNode(1, 0, 1, nil)))

	rejected := testNode(1, 5, 2, nil)
	require.ErrorIs(d.AddNode(rejected), ErrRoundTooHigh)

	require.False(d.Exists(rejected.Metadata))
	require.Nil(d.GetNode(rejected.Metadata))
	require.Equal(idx.Round(0), d.HighestRound())

	// a failed admission must not allocate the round row either,
	// otherwise the next bounds check would be off
	require.ErrorIs(d.AddNode(testNode(1, 2, 2, nil)), ErrRoundTooHigh)
}

func TestPersistBeforeVisible(t *testing.T) {
	require := require.New(t)

	vv := pos.EqualWeightValidators([]idx.ValidatorID{1, 2, 3}, 1)
	store := NewMemStore()
	failing := &failingStorage{Storage: store}
	crit := func(err error) {
		panic(err)
	}
	d := NewDag(1, vv, failing, crit)

	failing.fail = true
	node := testNode(1, 0, 1, nil)
	err := d.AddNode(node)
	require.Error(err)
	require.ErrorIs(err, errInjected)

	// the node must never become visible
	require.False(d.Exists(node.Metadata))
	require.Nil(d.GetNode(node.Metadata))
	require.Equal(idx.Round(0), d.HighestRound())

	persisted, err := store.GetCertifiedNodes()
	require.NoError(err)
	require.Empty(persisted)

	// same node is admittable once storage recovers
	failing.fail = false
	require.NoError(d.AddNode(node))
	require.True(d.Exists(node.Metadata))
}

func TestPersistPanicLeavesNoTrace(t *testing.T) {
	require := require.New(t)

	vv := pos.EqualWeightValidators([]idx.ValidatorID{1, 2, 3}, 1)
	crit := func(err error) {
		panic(err)
	}

	// one write is allowed, the second one falls mid-admission
	db := fallible.Wrap(memorydb.New())
	db.SetWriteCount(1)
	store := NewStore(db, crit, LiteStoreConfig())
	d := NewDag(1, vv, store, crit)

	require.NoError(d.AddNode(testNode(1, 0, 1, nil)))

	node := testNode(1, 0, 2, nil)
	require.Panics(func() {
		_ = d.AddNode(node)
	})
	require.False(d.Exists(node.Metadata))
	require.Equal(idx.Round(0), d.HighestRound())

	// once the budget is restored the same node is admittable
	db.SetWriteCount(1)
	require.NoError(d.AddNode(node))
	require.True(d.Exists(node.Metadata))
}

func TestStrongLinksVotingPower(t *testing.T) {
	require := require.New(t)

	// unequal weights: quorum is weight-based, not count-based
	vv := pos.ArrayToValidators([]idx.ValidatorID{1, 2, 3}, []pos.Weight{1, 1, 3})
	require.Equal(pos.Weight(4), vv.Quorum())

	d, _ := fakeDag(vv)

	require.NoError(d.AddNode(testNode(1, 0, 1, nil)))
	require.Nil(d.GetStrongLinksForRound(0, vv))

	require.NoError(d.AddNode(testNode(1, 0, 2, nil)))
	require.Nil(d.GetStrongLinksForRound(0, vv))

	// the heavy validator tips the round over the quorum
	require.NoError(d.AddNode(testNode(1, 0, 3, nil)))
	links := d.GetStrongLinksForRound(0, vv)
	require.Len(links, 3)

	// unindexed round
	require.Nil(d.GetStrongLinksForRound(5, vv))
}

func TestRoundTooLow(t *testing.T) {
	require := require.New(t)

	vv := pos.EqualWeightValidators([]idx.ValidatorID{1, 2, 3, 4}, 1)
	store := NewMemStore()
	crit := func(err error) {
		panic(err)
	}

	// storage pruned below round 2 by a previous run
	require.NoError(store.SaveCertifiedNode(testNode(1, 2, 1, nil)))
	require.NoError(store.SaveCertifiedNode(testNode(1, 3, 1, nil)))

	d := NewDag(1, vv, store, crit)
	require.Equal(idx.Round(2), d.LowestRound())
	require.Equal(idx.Round(3), d.HighestRound())

	err := d.AddNode(testNode(1, 1, 2, nil))
	require.ErrorIs(err, ErrRoundTooLow)

	// inside the bounds it's still admittable
	require.NoError(d.AddNode(testNode(1, 2, 2, nil)))
}

func TestStatusTransitions(t *testing.T) {
	require := require.New(t)

	vv := pos.EqualWeightValidators([]idx.ValidatorID{1, 2, 3, 4}, 1)
	d, _ := fakeDag(vv)

	node := testNode(1, 0, 1, nil)
	require.NoError(d.AddNode(node))

	status, err := d.GetNodeStatus(node.Metadata)
	require.NoError(err)
	require.Equal(Unordered, status)

	require.NoError(d.UpdateNodeStatus(node.Metadata, Ordered))
	require.ErrorIs(d.UpdateNodeStatus(node.Metadata, Ordered), ErrInvalidTransition)
	require.ErrorIs(d.UpdateNodeStatus(node.Metadata, Unordered), ErrInvalidTransition)

	require.NoError(d.UpdateNodeStatus(node.Metadata, Committed))
	require.ErrorIs(d.UpdateNodeStatus(node.Metadata, Unordered), ErrInvalidTransition)

	status, err = d.GetNodeStatus(node.Metadata)
	require.NoError(err)
	require.Equal(Committed, status)

	// the wrapped node value never changes
	require.Equal(node, d.GetNode(node.Metadata))

	// transitioning a non-existent node
	missing := dag.NodeMetadata{Epoch: 1, Round: 0, Author: 2}
	require.ErrorIs(d.UpdateNodeStatus(missing, Ordered), ErrNotFound)

	_, err = d.GetNodeStatus(missing)
	require.ErrorIs(err, ErrNotFound)
}

func TestAllExists(t *testing.T) {
	require := require.New(t)

	vv := pos.EqualWeightValidators([]idx.ValidatorID{1, 2, 3, 4}, 1)
	d, _ := fakeDag(vv)

	n1 := testNode(1, 0, 1, nil)
	n2 := testNode(1, 0, 2, nil)
	require.NoError(d.AddNode(n1))
	require.NoError(d.AddNode(n2))

	require.True(d.AllExists(dag.NodeCertificates{n1.Certificate(), n2.Certificate()}))

	n3 := testNode(1, 0, 3, nil)
	require.False(d.AllExists(dag.NodeCertificates{n1.Certificate(), n3.Certificate()}))
	require.True(d.AllExists(nil))
}

func TestRehydration(t *testing.T) {
	require := require.New(t)

	vv := pos.EqualWeightValidators([]idx.ValidatorID{1, 2, 3, 4}, 1)
	store := NewMemStore()
	crit := func(err error) {
		panic(err)
	}

	// a node left behind by the previous epoch
	stale := testNode(0, 3, 2, nil)
	require.NoError(store.SaveCertifiedNode(stale))

	d1 := NewDag(1, vv, store, crit)
	nodes := []*dag.CertifiedNode{
		testNode(1, 0, 1, nil),
		testNode(1, 0, 2, nil),
		testNode(1, 0, 3, nil),
	}
	for _, n := range nodes {
		require.NoError(d1.AddNode(n))
	}
	links := d1.GetStrongLinksForRound(0, vv)
	require.Len(links, 3)
	r1 := testNode(1, 1, 1, links)
	require.NoError(d1.AddNode(r1))
	nodes = append(nodes, r1)

	// the stale node was pruned from storage at d1's construction
	persisted, err := store.GetCertifiedNodes()
	require.NoError(err)
	require.NotContains(persisted, stale.ID())

	// a fresh Dag over the same storage reproduces the admitted view
	d2 := NewDag(1, vv, store, crit)
	require.Equal(d1.LowestRound(), d2.LowestRound())
	require.Equal(d1.HighestRound(), d2.HighestRound())
	for _, n := range nodes {
		require.True(d2.Exists(n.Metadata))
		require.Equal(n, d2.GetNode(n.Metadata))

		status, err := d2.GetNodeStatus(n.Metadata)
		require.NoError(err)
		require.Equal(Unordered, status)
	}
	require.False(d2.Exists(stale.Metadata))
	require.Equal(d1.Bitmask(), d2.Bitmask())
}

func TestRehydrationUnknownAuthor(t *testing.T) {
	require := require.New(t)

	store := NewMemStore()
	require.NoError(store.SaveCertifiedNode(testNode(1, 0, 9, nil)))

	var reported error
	crit := func(err error) {
		reported = err
	}

	vv := pos.EqualWeightValidators([]idx.ValidatorID{1, 2, 3, 4}, 1)
	d := NewDag(1, vv, store, crit)
	require.Error(reported)

	// if crit returns, the unmapped node must not leak into the view
	require.Equal(idx.Round(0), d.HighestRound())
	require.Empty(d.Bitmask())
}

func TestBitmask(t *testing.T) {
	require := require.New(t)

	vv := pos.ArrayToValidators([]idx.ValidatorID{1, 2, 3, 4}, []pos.Weight{4, 3, 2, 1})
	d, _ := fakeDag(vv)

	require.Empty(d.Bitmask())

	require.NoError(d.AddNode(testNode(1, 0, 1, nil)))
	require.NoError(d.AddNode(testNode(1, 0, 2, nil)))
	require.NoError(d.AddNode(testNode(1, 0, 4, nil)))
	require.NoError(d.AddNode(testNode(1, 1, 1, nil)))

	mask := d.Bitmask()
	require.Len(mask, 2)
	// slot order follows the deterministic validator indexing
	require.Equal([]bool{true, true, false, true}, mask[0])
	require.Equal([]bool{true, false, false, false}, mask[1])
}
