package state

import (
	"errors"
	"hash/fnv"
	"sync"

	"github.com/Klingon-tech/solwallet/internal/log"
	"github.com/Klingon-tech/solwallet/internal/metrics"
	"github.com/Klingon-tech/solwallet/internal/storage"
	"github.com/rs/zerolog"
)

// DefaultWriters is the number of persistence workers.
const DefaultWriters = 4

type writeKind int

const (
	writeInsert writeKind = iota
	writeUpdate
	writeDelete
)

type writeOp struct {
	kind  writeKind
	table *storage.Table
	key   string
	value any
}

// Writer persists cache rows in the background. Writes to the same row go
// to the same worker and run in submission order; writes to different rows
// run in parallel. Failures are logged and counted, never returned.
type Writer struct {
	queues  []chan writeOp
	pending sync.WaitGroup
	workers sync.WaitGroup
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewWriter starts n workers (DefaultWriters when n <= 0).
func NewWriter(n int, m *metrics.Metrics) *Writer {
	if n <= 0 {
		n = DefaultWriters
	}
	w := &Writer{
		queues:  make([]chan writeOp, n),
		metrics: m,
		logger:  log.State,
	}
	for i := range w.queues {
		w.queues[i] = make(chan writeOp, 64)
		w.workers.Add(1)
		go w.run(w.queues[i])
	}
	return w
}

// Insert queues insertion of a new row.
func (w *Writer) Insert(t *storage.Table, key string, v any) {
	w.enqueue(writeOp{kind: writeInsert, table: t, key: key, value: v})
}

// Update queues an overwrite of an existing row. If the row has been
// deleted by the time it runs, the update is dropped.
func (w *Writer) Update(t *storage.Table, key string, v any) {
	w.enqueue(writeOp{kind: writeUpdate, table: t, key: key, value: v})
}

// Delete queues removal of a row.
func (w *Writer) Delete(t *storage.Table, key string) {
	w.enqueue(writeOp{kind: writeDelete, table: t, key: key})
}

func (w *Writer) enqueue(op writeOp) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		w.logger.Warn().Str("table", op.table.Name()).Str("key", op.key).Msg("Writer closed, dropping write")
		return
	}
	w.pending.Add(1)
	w.queues[w.shard(op.table.Name(), op.key)] <- op
}

func (w *Writer) shard(table, key string) int {
	h := fnv.New32a()
	h.Write([]byte(table))
	h.Write([]byte{'/'})
	h.Write([]byte(key))
	return int(h.Sum32() % uint32(len(w.queues)))
}

func (w *Writer) run(q <-chan writeOp) {
	defer w.workers.Done()
	for op := range q {
		w.apply(op)
		w.pending.Done()
	}
}

func (w *Writer) apply(op writeOp) {
	var err error
	switch op.kind {
	case writeInsert:
		err = op.table.Insert(op.key, op.value)
	case writeUpdate:
		err = op.table.Update(op.key, op.value)
		if errors.Is(err, storage.ErrRowNotFound) {
			w.logger.Debug().Str("table", op.table.Name()).Str("key", op.key).Msg("Row removed, update dropped")
			return
		}
	case writeDelete:
		err = op.table.Delete(op.key)
	}
	if err != nil {
		w.metrics.PersistFailed(op.table.Name())
		w.logger.Warn().Err(err).Str("table", op.table.Name()).Str("key", op.key).Msg("Background write failed")
	}
}

// Flush blocks until every queued write has run.
func (w *Writer) Flush() {
	w.pending.Wait()
}

// Close drains the queues and stops the workers. Later writes are dropped.
func (w *Writer) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	for _, q := range w.queues {
		close(q)
	}
	w.mu.Unlock()
	w.workers.Wait()
}
