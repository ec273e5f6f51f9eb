package storage

// PrefixDB scopes a DB to the keys under a fixed prefix. Every Table is a
// PrefixDB over the shared database, so callers only see their own rows.
type PrefixDB struct {
	inner  DB
	prefix []byte
}

// NewPrefixDB returns inner scoped to prefix.
func NewPrefixDB(inner DB, prefix []byte) *PrefixDB {
	return &PrefixDB{inner: inner, prefix: append([]byte(nil), prefix...)}
}

func (p *PrefixDB) key(k []byte) []byte {
	out := make([]byte, 0, len(p.prefix)+len(k))
	return append(append(out, p.prefix...), k...)
}

// Get retrieves a value by key.
func (p *PrefixDB) Get(key []byte) ([]byte, error) { return p.inner.Get(p.key(key)) }

// Put stores a key-value pair.
func (p *PrefixDB) Put(key, value []byte) error { return p.inner.Put(p.key(key), value) }

// Delete removes a key.
func (p *PrefixDB) Delete(key []byte) error { return p.inner.Delete(p.key(key)) }

// Has checks if a key exists.
func (p *PrefixDB) Has(key []byte) (bool, error) { return p.inner.Has(p.key(key)) }

// ForEach walks the keys under prefix. Keys reach fn without the scope prefix.
func (p *PrefixDB) ForEach(prefix []byte, fn func(key, value []byte) error) error {
	n := len(p.prefix)
	return p.inner.ForEach(p.key(prefix), func(key, value []byte) error {
		return fn(key[n:], value)
	})
}

// DeleteAll removes every key in scope with one batch.
func (p *PrefixDB) DeleteAll() error {
	b := p.NewBatch()
	defer b.Discard()
	err := p.ForEach(nil, func(key, _ []byte) error {
		return b.Delete(key)
	})
	if err != nil {
		return err
	}
	return b.Commit()
}

// Close is a no-op; the outer DB owns the lifecycle.
func (p *PrefixDB) Close() error { return nil }

// NewBatch returns a batch over the scoped keys. It is atomic when the inner
// DB is a Batcher and applies writes one by one otherwise.
func (p *PrefixDB) NewBatch() Batch {
	if batcher, ok := p.inner.(Batcher); ok {
		return &prefixBatch{scope: p, inner: batcher.NewBatch()}
	}
	return &serialBatch{db: p.inner, scope: p}
}

type prefixBatch struct {
	scope *PrefixDB
	inner Batch
}

func (b *prefixBatch) Put(key, value []byte) error { return b.inner.Put(b.scope.key(key), value) }
func (b *prefixBatch) Delete(key []byte) error     { return b.inner.Delete(b.scope.key(key)) }
func (b *prefixBatch) Commit() error               { return b.inner.Commit() }
func (b *prefixBatch) Discard()                    { b.inner.Discard() }

type batchOp struct {
	key   []byte
	value []byte // nil deletes
}

// serialBatch buffers writes until Commit.
type serialBatch struct {
	db    DB
	scope *PrefixDB
	ops   []batchOp
}

func (b *serialBatch) Put(key, value []byte) error {
	b.ops = append(b.ops, batchOp{key: b.scope.key(key), value: append([]byte{}, value...)})
	return nil
}

func (b *serialBatch) Delete(key []byte) error {
	b.ops = append(b.ops, batchOp{key: b.scope.key(key)})
	return nil
}

func (b *serialBatch) Discard() { b.ops = nil }

func (b *serialBatch) Commit() error {
	for _, op := range b.ops {
		var err error
		if op.value == nil {
			err = b.db.Delete(op.key)
		} else {
			err = b.db.Put(op.key, op.value)
		}
		if err != nil {
			return err
		}
	}
	b.ops = nil
	return nil
}
