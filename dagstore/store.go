package dagstore

import (
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"

	"github.com/LinaBursami/aptos-core/hash"
	"github.com/LinaBursami/aptos-core/inter/dag"
	"github.com/LinaBursami/aptos-core/kvdb"
	"github.com/LinaBursami/aptos-core/kvdb/batched"
	"github.com/LinaBursami/aptos-core/kvdb/memorydb"
	"github.com/LinaBursami/aptos-core/kvdb/table"
)

// Store is the dagstore persistent storage working over parent key-value database.
type Store struct {
	cfg  StoreConfig
	crit func(error)

	mainDB kvdb.Store
	table  struct {
		CertifiedNodes kvdb.Store `table:"n"`
	}

	cache struct {
		Nodes *lru.Cache `cache:"-"`
	}
}

// NewStore creates store over key-value db.
func NewStore(mainDB kvdb.Store, crit func(error), cfg StoreConfig) *Store {
	s := &Store{
		cfg:    cfg,
		crit:   crit,
		mainDB: mainDB,
	}

	table.MigrateTables(&s.table, s.mainDB)

	s.cache.Nodes = s.makeCache(s.cfg.Nodes)

	return s
}

// NewMemStore creates store over memory map.
// Store is always blank.
func NewMemStore() *Store {
	cfg := LiteStoreConfig()
	crit := func(err error) {
		panic(err)
	}
	return NewStore(memorydb.New(), crit, cfg)
}

// Close leaves underlying database.
func (s *Store) Close() error {
	setnil := func() interface{} {
		return nil
	}

	table.MigrateTables(&s.table, nil)
	table.MigrateCaches(&s.cache, setnil)

	return s.mainDB.Close()
}

// SaveCertifiedNode stores the certified node under its digest.
// A failure is returned to the caller and must abort the admission.
func (s *Store) SaveCertifiedNode(n *dag.CertifiedNode) error {
	id := n.ID()

	buf, err := rlp.EncodeToBytes(n)
	if err != nil {
		s.crit(err)
		return err
	}
	if err := s.table.CertifiedNodes.Put(id.Bytes(), buf); err != nil {
		return err
	}

	s.cache.Nodes.Add(id, n)
	return nil
}

// GetCertifiedNode returns the stored node by its digest, or nil if absent.
func (s *Store) GetCertifiedNode(id hash.Hash) *dag.CertifiedNode {
	if n, ok := s.cache.Nodes.Get(id); ok {
		return n.(*dag.CertifiedNode)
	}

	buf, err := s.table.CertifiedNodes.Get(id.Bytes())
	if err != nil {
		s.crit(err)
	}
	if buf == nil {
		return nil
	}

	n := &dag.CertifiedNode{}
	if err := rlp.DecodeBytes(buf, n); err != nil {
		s.crit(err)
		return nil
	}

	s.cache.Nodes.Add(id, n)
	return n
}

// GetCertifiedNodes returns all the stored nodes, keyed by digest.
func (s *Store) GetCertifiedNodes() (map[hash.Hash]*dag.CertifiedNode, error) {
	res := make(map[hash.Hash]*dag.CertifiedNode)

	it := s.table.CertifiedNodes.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		n := &dag.CertifiedNode{}
		if err := rlp.DecodeBytes(it.Value(), n); err != nil {
			s.crit(err)
			continue
		}
		res[hash.BytesToHash(it.Key())] = n
	}
	return res, it.Error()
}

// DeleteCertifiedNodes removes the nodes in one batch.
func (s *Store) DeleteCertifiedNodes(ids hash.Hashes) error {
	db := batched.Wrap(s.table.CertifiedNodes)
	for _, id := range ids {
		if err := db.Delete(id.Bytes()); err != nil {
			return err
		}
		s.cache.Nodes.Remove(id)
	}
	return db.Write()
}

func (s *Store) makeCache(size int) *lru.Cache {
	cache, err := lru.New(size)
	if err != nil {
		s.crit(err)
	}
	return cache
}
