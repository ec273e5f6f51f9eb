package storage

import (
	"errors"
	"testing"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRow struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestTable_InsertUpdate(t *testing.T) {
	tbl := NewTable(NewMemory(), TableAccounts)

	require.NoError(t, tbl.Insert("a", testRow{Name: "a", Value: 1}))

	err := tbl.Insert("a", testRow{Name: "dup"})
	require.ErrorIs(t, err, ErrRowExists)
	require.ErrorIs(t, err, walleterr.ErrPersistence)

	require.NoError(t, tbl.Update("a", testRow{Name: "a", Value: 2}))

	var got testRow
	require.NoError(t, tbl.Get("a", &got))
	assert.Equal(t, 2, got.Value)

	err = tbl.Update("missing", testRow{})
	require.ErrorIs(t, err, ErrRowNotFound)
	require.ErrorIs(t, err, walleterr.ErrNotFound)

	n, err := tbl.RowCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTable_UpdateAfterDeleteDoesNotResurrect(t *testing.T) {
	tbl := NewTable(NewMemory(), TableHistory)
	require.NoError(t, tbl.Insert("h1", testRow{Name: "h1"}))
	require.NoError(t, tbl.Delete("h1"))

	err := tbl.Update("h1", testRow{Name: "late"})
	require.True(t, errors.Is(err, ErrRowNotFound))

	rows, err := tbl.SelectAll()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestTable_Replace(t *testing.T) {
	for _, backend := range []string{BackendMemory, BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			db, err := Open(backend, t.TempDir())
			require.NoError(t, err)
			defer db.Close()

			tbl := NewTable(db, TableSecrets)
			require.NoError(t, tbl.Insert("old-1", testRow{Name: "old"}))
			require.NoError(t, tbl.Insert("old-2", testRow{Name: "old"}))

			require.NoError(t, tbl.Replace("new", testRow{Name: "new"}))

			rows, err := tbl.SelectAll()
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, "new", rows[0].Key)

			var got testRow
			require.NoError(t, rows[0].Decode(&got))
			assert.Equal(t, "new", got.Name)
		})
	}
}

func TestTable_Isolation(t *testing.T) {
	db := NewMemory()
	accounts := NewTable(db, TableAccounts)
	tokens := NewTable(db, TableTokens)

	require.NoError(t, accounts.Insert("k", testRow{Name: "account"}))
	require.NoError(t, tokens.Insert("k", testRow{Name: "token"}))
	require.NoError(t, tokens.Insert("k2", testRow{Name: "token2"}))

	require.NoError(t, tokens.DeleteAll())

	n, err := tokens.RowCount()
	require.NoError(t, err)
	assert.Zero(t, n)

	var got testRow
	require.NoError(t, accounts.Get("k", &got))
	assert.Equal(t, "account", got.Name)
}

func TestTable_GetMissing(t *testing.T) {
	tbl := NewTable(NewMemory(), TableAddressBook)
	var got testRow
	require.ErrorIs(t, tbl.Get("nope", &got), ErrRowNotFound)
}

// scanFailDB fails prefix scans and counts discarded batches.
type scanFailDB struct {
	*MemoryDB
	discards int
}

func (d *scanFailDB) ForEach([]byte, func(key, value []byte) error) error {
	return errors.New("iterator closed")
}

func (d *scanFailDB) NewBatch() Batch {
	return &countingBatch{Batch: d.MemoryDB.NewBatch(), db: d}
}

type countingBatch struct {
	Batch
	db *scanFailDB
}

func (b *countingBatch) Discard() {
	b.db.discards++
	b.Batch.Discard()
}

func TestTable_ReplaceDiscardsOnError(t *testing.T) {
	db := &scanFailDB{MemoryDB: NewMemory()}
	tbl := NewTable(db, TableSecrets)

	err := tbl.Replace("secret", testRow{Name: "s"})
	require.ErrorIs(t, err, walleterr.ErrPersistence)
	assert.Equal(t, 1, db.discards)
	ok, _ := db.Has([]byte("t/secrets/secret"))
	assert.False(t, ok)

	require.Error(t, tbl.DeleteAll())
	assert.Equal(t, 2, db.discards)
}

func TestRowBatch(t *testing.T) {
	db := NewMemory()
	accounts := NewTable(db, TableAccounts)
	tokens := NewTable(db, TableTokens)
	require.NoError(t, accounts.Insert("a1", testRow{Name: "a1"}))
	require.NoError(t, accounts.Insert("a2", testRow{Name: "a2"}))
	require.NoError(t, tokens.Insert("t1", testRow{Name: "t1"}))

	rb := NewRowBatch(db)
	require.NoError(t, rb.Delete(accounts, "a1"))
	require.NoError(t, rb.Delete(tokens, "t1"))
	n, _ := accounts.RowCount()
	assert.Equal(t, 2, n, "nothing applied before Commit")

	require.NoError(t, rb.Commit())
	rb.Discard()
	n, _ = accounts.RowCount()
	assert.Equal(t, 1, n)
	n, _ = tokens.RowCount()
	assert.Zero(t, n)

	dropped := NewRowBatch(db)
	require.NoError(t, dropped.Delete(accounts, "a2"))
	dropped.Discard()
	require.NoError(t, dropped.Commit())
	n, _ = accounts.RowCount()
	assert.Equal(t, 1, n, "discarded deletions are not applied")
}
