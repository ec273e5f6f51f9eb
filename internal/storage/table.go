package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
)

// Table names.
const (
	TableSecrets     = "secrets"
	TableAccounts    = "accounts"
	TableTokens      = "tokens"
	TableHistory     = "history"
	TableAddressBook = "address_book"
)

var (
	// ErrRowExists is returned by Insert when the key is already present.
	ErrRowExists = fmt.Errorf("%w: row already exists", walleterr.ErrPersistence)
	// ErrRowNotFound is returned by Update and Get when the key is absent.
	ErrRowNotFound = fmt.Errorf("%w: row", walleterr.ErrNotFound)
)

// Row is one stored table row.
type Row struct {
	Key  string
	Data json.RawMessage
}

// Decode unmarshals the row data into v.
func (r Row) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

// Table is a named collection of JSON rows keyed by string. Rows live under
// the "t/<name>/" prefix of the underlying database.
//
// Check-then-write operations (Insert, Update) are serialized per Table, so
// a Table value must be shared by every writer of the same table.
type Table struct {
	name string
	db   *PrefixDB
	mu   sync.Mutex
}

// NewTable returns the table called name stored in db.
func NewTable(db DB, name string) *Table {
	return &Table{
		name: name,
		db:   NewPrefixDB(db, []byte("t/"+name+"/")),
	}
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// Insert stores a new row. It fails with ErrRowExists if key is taken.
func (t *Table) Insert(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return t.fail("insert", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ok, err := t.db.Has([]byte(key))
	if err != nil {
		return t.fail("insert", err)
	}
	if ok {
		return fmt.Errorf("%s insert %s: %w", t.name, key, ErrRowExists)
	}
	return t.fail("insert", t.db.Put([]byte(key), data))
}

// Update overwrites an existing row. It fails with ErrRowNotFound when the
// row is gone, so a late write never brings a removed row back.
func (t *Table) Update(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return t.fail("update", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ok, err := t.db.Has([]byte(key))
	if err != nil {
		return t.fail("update", err)
	}
	if !ok {
		return fmt.Errorf("%s update %s: %w", t.name, key, ErrRowNotFound)
	}
	return t.fail("update", t.db.Put([]byte(key), data))
}

// Replace atomically deletes every row of the table and inserts key.
// Either the whole replacement is persisted or nothing changes.
func (t *Table) Replace(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return t.fail("replace", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.db.NewBatch()
	defer b.Discard()
	err = t.db.ForEach(nil, func(k, _ []byte) error {
		return b.Delete(k)
	})
	if err != nil {
		return t.fail("replace", err)
	}
	if err := b.Put([]byte(key), data); err != nil {
		return t.fail("replace", err)
	}
	return t.fail("replace", b.Commit())
}

// Get decodes the row stored under key into v.
func (t *Table) Get(key string, v any) error {
	data, err := t.db.Get([]byte(key))
	if errors.Is(err, ErrKeyNotFound) {
		return fmt.Errorf("%s get %s: %w", t.name, key, ErrRowNotFound)
	}
	if err != nil {
		return t.fail("get", err)
	}
	return t.fail("get", json.Unmarshal(data, v))
}

// Delete removes a row. Deleting a missing row is not an error.
func (t *Table) Delete(key string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fail("delete", t.db.Delete([]byte(key)))
}

// DeleteAll removes every row of the table in one batch.
func (t *Table) DeleteAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.fail("delete all", t.db.DeleteAll())
}

// SelectAll returns every row in key order.
func (t *Table) SelectAll() ([]Row, error) {
	var rows []Row
	err := t.db.ForEach(nil, func(k, v []byte) error {
		rows = append(rows, Row{Key: string(k), Data: append(json.RawMessage{}, v...)})
		return nil
	})
	if err != nil {
		return nil, t.fail("select", err)
	}
	return rows, nil
}

// RowCount returns the number of rows in the table.
func (t *Table) RowCount() (int, error) {
	var n int
	err := t.db.ForEach(nil, func(_, _ []byte) error {
		n++
		return nil
	})
	if err != nil {
		return 0, t.fail("count", err)
	}
	return n, nil
}

func (t *Table) fail(op string, err error) error {
	return walleterr.Persistence(t.name+" "+op, err)
}

// RowBatch deletes rows of several tables stored in one database with a
// single atomic commit.
type RowBatch struct {
	batch  Batch
	tables map[*Table]struct{}
}

// NewRowBatch starts a row batch over db. Every table passed to Delete must
// live in db.
func NewRowBatch(db DB) *RowBatch {
	return &RowBatch{
		batch:  NewPrefixDB(db, nil).NewBatch(),
		tables: make(map[*Table]struct{}),
	}
}

// Delete queues removal of t's row key.
func (rb *RowBatch) Delete(t *Table, key string) error {
	rb.tables[t] = struct{}{}
	return t.fail("batch delete", rb.batch.Delete(t.db.key([]byte(key))))
}

// Commit applies every queued deletion. The involved tables are held for
// the duration, so no concurrent Update can bring a row back half way.
func (rb *RowBatch) Commit() error {
	tables := make([]*Table, 0, len(rb.tables))
	for t := range rb.tables {
		tables = append(tables, t)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].name < tables[j].name })
	for _, t := range tables {
		t.mu.Lock()
		defer t.mu.Unlock()
	}

	defer rb.batch.Discard()
	return walleterr.Persistence("batch commit", rb.batch.Commit())
}

// Discard drops an uncommitted batch.
func (rb *RowBatch) Discard() { rb.batch.Discard() }
