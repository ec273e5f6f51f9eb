package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/gagliardetto/solana-go"
)

// History returns the history of the active network, newest first.
func (s *Store) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]HistoryEntry(nil), s.history[s.network]...)
}

// HistoryFor returns the history of network, newest first.
func (s *Store) HistoryFor(n types.Network) []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]HistoryEntry(nil), s.history[n]...)
}

// AddHistory records a submitted transaction as pending and queues its
// row insert.
func (s *Store) AddHistory(n types.Network, signature, amountLabel string) (HistoryEntry, error) {
	if !n.Valid() {
		return HistoryEntry{}, fmt.Errorf("%w: %q", walleterr.ErrInvalidNetwork, n)
	}
	e := HistoryEntry{
		UUID:        newUUID(),
		Network:     n,
		Signature:   signature,
		AmountLabel: amountLabel,
		Timestamp:   s.clock.Now(),
		Status:      StatusPending,
	}

	s.mu.Lock()
	s.history[n] = append([]HistoryEntry{e}, s.history[n]...)
	s.mu.Unlock()

	s.writer.Insert(s.historyTable, e.UUID, e)
	return e, nil
}

// UpdateHistoryStatus moves an entry to status. Loading is kept in memory
// only. Removed entries are never brought back.
func (s *Store) UpdateHistoryStatus(id string, status HistoryStatus) (HistoryEntry, error) {
	s.mu.Lock()
	if _, gone := s.removed[id]; gone {
		s.mu.Unlock()
		return HistoryEntry{}, notFound("history entry", id)
	}
	n, i, ok := s.historyIndexLocked(id)
	if !ok {
		s.mu.Unlock()
		return HistoryEntry{}, notFound("history entry", id)
	}
	s.history[n][i].Status = status
	e := s.history[n][i]
	s.mu.Unlock()

	if status != StatusLoading {
		s.writer.Update(s.historyTable, e.UUID, e)
	}
	return e, nil
}

// RemoveHistory deletes an entry and remembers it so late status updates
// are ignored.
func (s *Store) RemoveHistory(id string) error {
	s.mu.Lock()
	n, i, ok := s.historyIndexLocked(id)
	if !ok {
		s.mu.Unlock()
		return notFound("history entry", id)
	}
	s.history[n] = append(s.history[n][:i:i], s.history[n][i+1:]...)
	s.removed[id] = struct{}{}
	s.mu.Unlock()

	s.writer.Delete(s.historyTable, id)
	return nil
}

// RefreshAllPendingHistory re-checks every pending or failed entry on every
// network. Entries are checked concurrently and independently; transport
// failures leave an entry's status as it was and are returned joined.
func (s *Store) RefreshAllPendingHistory(ctx context.Context) error {
	type item struct {
		entry HistoryEntry
		prev  HistoryStatus
	}
	var items []item

	s.mu.Lock()
	for n := range s.history {
		for i := range s.history[n] {
			e := &s.history[n][i]
			if e.Status != StatusPending && e.Status != StatusError {
				continue
			}
			items = append(items, item{entry: *e, prev: e.Status})
			e.Status = StatusLoading
		}
	}
	s.mu.Unlock()

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for _, it := range items {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := s.checkStatus(ctx, it.entry)
			if err != nil {
				s.metrics.RefreshFailed(string(it.entry.Network), "history")
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				status = it.prev
			}
			if _, err := s.UpdateHistoryStatus(it.entry.UUID, status); err != nil {
				s.logger.Debug().Err(err).Str("uuid", it.entry.UUID).Msg("History entry removed during refresh")
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

func (s *Store) checkStatus(ctx context.Context, e HistoryEntry) (HistoryStatus, error) {
	sig, err := solana.SignatureFromBase58(e.Signature)
	if err != nil {
		return StatusError, nil
	}
	c, err := s.chain(e.Network)
	if err != nil {
		return "", err
	}
	err = c.IsConfirmed(ctx, sig)
	switch {
	case err == nil:
		return StatusSuccess, nil
	case errors.Is(err, walleterr.ErrTransactionFailed):
		return StatusError, nil
	case errors.Is(err, walleterr.ErrNotFound):
		return StatusPending, nil
	}
	return "", err
}

func (s *Store) historyIndexLocked(id string) (types.Network, int, bool) {
	for n, entries := range s.history {
		for i, e := range entries {
			if e.UUID == id {
				return n, i, true
			}
		}
	}
	return "", 0, false
}
