// Package fallible is a kvdb.Store wrapper with a configurable write budget,
// used to simulate persistence failures in tests.
package fallible

import (
	"errors"
	"sync/atomic"

	"github.com/LinaBursami/aptos-core/kvdb"
)

var (
	errWriteLimit = errors.New("write limit is exceeded")
)

// Fallible is a kvdb.Store wrapper around any kvdb.Store.
// It falls (panics) when the write counter is exhausted.
type Fallible struct {
	Underlying kvdb.Store

	writes int32
}

// Wrap returns a fallible wrapper with a zero write budget.
func Wrap(db kvdb.Store) *Fallible {
	return &Fallible{
		Underlying: db,
	}
}

// SetWriteCount of writes before fall.
func (f *Fallible) SetWriteCount(n int) {
	atomic.StoreInt32(&f.writes, int32(n))
}

// GetWriteCount remained.
func (f *Fallible) GetWriteCount() int {
	return int(atomic.LoadInt32(&f.writes))
}

func (f *Fallible) count() bool {
	return atomic.AddInt32(&f.writes, -1) >= 0
}

// Has retrieves if a key is present in the key-value data store.
func (f *Fallible) Has(key []byte) (bool, error) {
	return f.Underlying.Has(key)
}

// Get retrieves the given key if it's present in the key-value data store.
func (f *Fallible) Get(key []byte) ([]byte, error) {
	return f.Underlying.Get(key)
}

// Put inserts the given value into the key-value data store.
// Panics when the write budget is exhausted.
func (f *Fallible) Put(key []byte, value []byte) error {
	if !f.count() {
		panic(errWriteLimit)
	}
	return f.Underlying.Put(key, value)
}

// Delete removes the key from the key-value data store.
func (f *Fallible) Delete(key []byte) error {
	return f.Underlying.Delete(key)
}

// NewBatch creates a write-only database that buffers changes to its host db
// until a final write is called.
func (f *Fallible) NewBatch() kvdb.Batch {
	return f.Underlying.NewBatch()
}

// NewIterator creates a binary-alphabetical iterator over a subset
// of database content with a particular key prefix, starting at a particular
// initial key (or after, if it does not exist).
func (f *Fallible) NewIterator(prefix []byte, start []byte) kvdb.Iterator {
	return f.Underlying.NewIterator(prefix, start)
}

// Stat returns a particular internal stat of the database.
func (f *Fallible) Stat(property string) (string, error) {
	return f.Underlying.Stat(property)
}

// Compact flattens the underlying data store for the given key range.
func (f *Fallible) Compact(start []byte, limit []byte) error {
	return f.Underlying.Compact(start, limit)
}

// Close leaves underlying database.
func (f *Fallible) Close() error {
	panic("is not supported")
}

// Drop whole database.
func (f *Fallible) Drop() {
	panic("is not supported")
}
