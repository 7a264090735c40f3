package table

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LinaBursami/aptos-core/kvdb"
	"github.com/LinaBursami/aptos-core/kvdb/leveldb"
	"github.com/LinaBursami/aptos-core/kvdb/memorydb"
	"github.com/LinaBursami/aptos-core/kvdb/pebble"
)

const testCacheSize = 2 * 1024 * 1024

// openBackends opens one instance of every kvdb backend.
func openBackends(t *testing.T) map[string]kvdb.Store {
	ldb, err := leveldb.New(t.TempDir(), 0, 0, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ldb.Close()
	})

	pdb, err := pebble.New(t.TempDir(), testCacheSize, 0, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pdb.Close()
	})

	return map[string]kvdb.Store{
		"memory":  memorydb.New(),
		"leveldb": ldb,
		"pebble":  pdb,
	}
}

func TestTable(t *testing.T) {
	prefix0 := map[string][]byte{
		"00": {0},
		"01": {0, 1},
		"02": {0, 1, 2},
	}
	prefix1 := map[string][]byte{
		"10": {0, 1, 2, 3},
	}
	testData := join(prefix0, prefix1)

	for name, db := range openBackends(t) {
		t.Run(name, func(t *testing.T) {
			// write test data
			for key, val := range testData {
				require.NoError(t, db.Put([]byte(key), val))
			}

			t.Run("Table", func(t *testing.T) {
				assert := assert.New(t)

				tbl := New(db, []byte("0"))

				for name, exp := range prefix0 {
					key := name[1:]

					got, err := tbl.Get([]byte(key))
					assert.NoError(err)
					assert.Equal(exp, got)
				}
			})

			t.Run("Iterate over table", func(t *testing.T) {
				assert := assert.New(t)

				tbl := New(db, []byte("0"))

				got := 0
				it := tbl.NewIterator(nil, nil)
				defer it.Release()
				for it.Next() {
					assert.NoError(it.Error())

					got++
					v, ok := prefix0["0"+string(it.Key())]
					assert.True(ok)
					assert.Equal(v, it.Value())
				}
				assert.Equal(len(prefix0), got)
			})

			t.Run("Delete from table", func(t *testing.T) {
				assert := assert.New(t)

				tbl := New(db, []byte("0"))

				err := tbl.Delete([]byte("0"))
				assert.NoError(err)

				got := 0
				it := tbl.NewIterator(nil, nil)
				defer it.Release()
				for it.Next() {
					got++
				}
				assert.Equal(len(prefix0)-1, got)

				// prefix1 must be untouched
				exists, err := db.Has([]byte("10"))
				assert.NoError(err)
				assert.True(exists)
			})

			t.Run("Batch into table", func(t *testing.T) {
				assert := assert.New(t)

				tbl := New(db, []byte("t"))

				b := tbl.NewBatch()
				assert.NoError(b.Put([]byte("x"), []byte{10}))
				assert.NoError(b.Put([]byte("y"), []byte{11}))
				assert.NoError(b.Write())

				got, err := db.Get([]byte("tx"))
				assert.NoError(err)
				assert.Equal([]byte{10}, got)
			})
		})
	}
}

func TestMigrateTables(t *testing.T) {
	require := require.New(t)

	db := memorydb.New()

	tables := struct {
		First  kvdb.Store `table:"a"`
		Second kvdb.Store `table:"b"`
		Skip   kvdb.Store `table:"-"`
	}{}

	MigrateTables(&tables, db)
	require.NotNil(tables.First)
	require.NotNil(tables.Second)
	require.Nil(tables.Skip)

	require.NoError(tables.First.Put([]byte("k"), []byte("v")))

	exists, err := db.Has([]byte("ak"))
	require.NoError(err)
	require.True(exists)

	MigrateTables(&tables, nil)
	require.Nil(tables.First)
	require.Nil(tables.Second)
}

func TestOpenTables(t *testing.T) {
	producers := map[string]kvdb.DBProducer{
		"leveldb": leveldb.NewProducer(t.TempDir(), func(string) int { return 0 }),
		"pebble":  pebble.NewProducer(t.TempDir(), func(string) int { return testCacheSize }),
	}

	for name, producer := range producers {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)

			tables := struct {
				First  kvdb.DropableStore `table:"a"`
				Second kvdb.DropableStore `table:"b"`
			}{}

			require.NoError(OpenTables(&tables, producer, "test"))
			require.NotNil(tables.First)
			require.NotNil(tables.Second)

			require.NoError(tables.First.Put([]byte("k"), []byte("v")))
			got, err := tables.First.Get([]byte("k"))
			require.NoError(err)
			require.Equal([]byte("v"), got)

			// every table is a standalone database
			exists, err := tables.Second.Has([]byte("k"))
			require.NoError(err)
			require.False(exists)

			require.NoError(CloseTables(&tables))
		})
	}
}

func TestReadonlyTable(t *testing.T) {
	require := require.New(t)

	db := memorydb.New()
	require.NoError(db.Put([]byte("abk"), []byte{2}))
	require.NoError(db.Put([]byte("ak"), []byte{1}))
	require.NoError(db.Put([]byte("bk"), []byte{3}))

	ro := NewReadonly(db, []byte("a"))

	got, err := ro.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte{1}, got)

	exists, err := ro.Has([]byte("zz"))
	require.NoError(err)
	require.False(exists)

	// nested readonly table
	nested := ro.NewReadonlyTable([]byte("b"))
	got, err = nested.Get([]byte("k"))
	require.NoError(err)
	require.Equal([]byte{2}, got)

	// iteration strips the prefix and never sees foreign keys
	it := ro.NewIterator(nil, nil)
	defer it.Release()
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	require.NoError(it.Error())
	require.Equal([]string{"bk", "k"}, keys)
}

func join(maps ...map[string][]byte) map[string][]byte {
	res := make(map[string][]byte)
	for _, m := range maps {
		for k, v := range m {
			res[k] = bytes.Clone(v)
		}
	}
	return res
}
