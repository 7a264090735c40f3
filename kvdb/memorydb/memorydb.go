// Package memorydb implements the key-value database layer based on memory maps.
package memorydb

import (
	"strings"
	"sync"

	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/ethereum/go-ethereum/common"

	"github.com/LinaBursami/aptos-core/kvdb"
)

// Database is an ephemeral key-value store. Apart from basic data storage
// functionality it also supports batch writes and iterating over the keyspace in
// binary-alphabetical order.
type Database struct {
	db     *rbt.Tree // string(key) -> value
	lock   sync.RWMutex
	onDrop func()
}

// New returns a wrapped map with all the required database interface methods
// implemented.
func New() *Database {
	return &Database{
		db: rbt.NewWithStringComparator(),
	}
}

// NewWithDrop is the same as New, but defines onDrop callback.
func NewWithDrop(drop func()) *Database {
	return &Database{
		db:     rbt.NewWithStringComparator(),
		onDrop: drop,
	}
}

// Close deallocates the internal map and ensures any consecutive data access op
// fails with an error.
func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.db = nil
	return nil
}

// Drop whole database.
func (db *Database) Drop() {
	if db.db != nil {
		panic("Close database first!")
	}
	if db.onDrop != nil {
		db.onDrop()
	}
}

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.db == nil {
		return false, errClosed
	}
	_, ok := db.db.Get(string(key))
	return ok, nil
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.db == nil {
		return nil, errClosed
	}
	if entry, ok := db.db.Get(string(key)); ok {
		return common.CopyBytes(entry.([]byte)), nil
	}
	return nil, nil
}

// Put inserts the given value into the key-value store.
func (db *Database) Put(key []byte, value []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.db == nil {
		return errClosed
	}
	db.db.Put(string(key), common.CopyBytes(value))
	return nil
}

// Delete removes the key from the key-value store.
func (db *Database) Delete(key []byte) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if db.db == nil {
		return errClosed
	}
	db.db.Remove(string(key))
	return nil
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (db *Database) NewBatch() kvdb.Batch {
	return &batch{
		db: db,
	}
}

// NewIterator creates a binary-alphabetical iterator over a subset
// of database content with a particular key prefix, starting at a particular
// initial key (or after, if it does not exist).
//
// The iterator holds a snapshot taken at creation time, so writes made
// while iterating aren't observed.
func (db *Database) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if db.db == nil {
		return &iterator{err: errClosed}
	}

	var (
		pr = string(prefix)
		st = string(append(common.CopyBytes(prefix), start...))

		keys   = make([]string, 0, db.db.Size())
		values = make([][]byte, 0, db.db.Size())
	)
	// keys come out of the tree already sorted
	for it := db.db.Iterator(); it.Next(); {
		key := it.Key().(string)
		if !strings.HasPrefix(key, pr) || key < st {
			continue
		}
		keys = append(keys, key)
		values = append(values, common.CopyBytes(it.Value().([]byte)))
	}

	return &iterator{
		keys:   keys,
		values: values,
	}
}

// Stat returns a particular internal stat of the database.
func (db *Database) Stat(property string) (string, error) {
	return "", nil
}

// Compact is not supported on a memory database, but there's no need either as
// a memory database doesn't waste space anyway.
func (db *Database) Compact(start []byte, limit []byte) error {
	return nil
}

// Len returns the number of entries currently present in the memory database.
func (db *Database) Len() int {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return db.db.Size()
}
