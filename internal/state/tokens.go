package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/gagliardetto/solana-go"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentRefreshes bounds the balance refresh fan-out.
const maxConcurrentRefreshes = 8

// Tokens returns the token entries of the active network.
func (s *Store) Tokens() []TokenEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TokenEntry(nil), s.tokens[s.network]...)
}

// TokensFor returns the entries of account on network. An empty account
// returns every entry of the network.
func (s *Store) TokensFor(n types.Network, account string) []TokenEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []TokenEntry
	for _, e := range s.tokens[n] {
		if account == "" || e.AccountAddress == account {
			out = append(out, e)
		}
	}
	return out
}

// Token looks up an entry on any network.
func (s *Store) Token(id string) (TokenEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, i, ok := s.tokenIndexLocked(id)
	if !ok {
		return TokenEntry{}, false
	}
	return s.tokens[n][i], true
}

// AddToken stores a non-native token entry. Mint and token account are
// required; one entry per (network, account, mint).
func (s *Store) AddToken(e TokenEntry) (TokenEntry, error) {
	if !e.Network.Valid() {
		return TokenEntry{}, fmt.Errorf("%w: %q", walleterr.ErrInvalidNetwork, e.Network)
	}
	for _, addr := range []string{e.AccountAddress, e.MintAddress, e.TokenAccountAddress} {
		if _, err := types.ParseAddress(addr); err != nil {
			return TokenEntry{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tokens[e.Network] {
		if t.AccountAddress == e.AccountAddress && t.MintAddress == e.MintAddress {
			return TokenEntry{}, fmt.Errorf("%w: token %s already added", walleterr.ErrValidation, e.MintAddress)
		}
	}
	e.UUID = newUUID()
	s.quote(&e)
	if err := s.tokensTable.Insert(e.UUID, e); err != nil {
		return TokenEntry{}, err
	}
	s.tokens[e.Network] = append(s.tokens[e.Network], e)
	sortTokens(s.tokens[e.Network])
	return e, nil
}

// RemoveToken deletes a token entry. Native entries cannot be removed.
func (s *Store) RemoveToken(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, i, ok := s.tokenIndexLocked(id)
	if !ok {
		return notFound("token", id)
	}
	if s.tokens[n][i].IsNative() {
		return fmt.Errorf("%w: the native entry cannot be removed", walleterr.ErrValidation)
	}
	if err := s.tokensTable.Delete(id); err != nil {
		return err
	}
	s.tokens[n] = append(s.tokens[n][:i:i], s.tokens[n][i+1:]...)
	return nil
}

// RefreshBalance re-reads the balance of one entry from its network, then
// applies it to memory and queues the row write.
func (s *Store) RefreshBalance(ctx context.Context, id string) (TokenEntry, error) {
	e, ok := s.Token(id)
	if !ok {
		return TokenEntry{}, notFound("token", id)
	}
	bal, err := s.fetchBalance(ctx, e)
	if err != nil {
		s.metrics.RefreshFailed(string(e.Network), "balance")
		return e, fmt.Errorf("refresh %s balance: %w", e.Symbol, err)
	}
	updated, ok := s.ApplyBalance(id, bal)
	if !ok {
		return TokenEntry{}, notFound("token", id)
	}
	s.QueueTokenWrite(updated)
	return updated, nil
}

func (s *Store) fetchBalance(ctx context.Context, e TokenEntry) (uint64, error) {
	c, err := s.chain(e.Network)
	if err != nil {
		return 0, err
	}
	if e.IsNative() {
		pk, err := types.ParseAddress(e.AccountAddress)
		if err != nil {
			return 0, err
		}
		return c.AccountBalance(ctx, pk)
	}
	pk, err := types.ParseAddress(e.TokenAccountAddress)
	if err != nil {
		return 0, err
	}
	return c.TokenAccountBalance(ctx, pk)
}

// ApplyBalance sets the in-memory balance of an entry and recomputes its
// quote value. It reports false if the entry is gone. Nothing is written.
func (s *Store) ApplyBalance(id string, balance uint64) (TokenEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, i, ok := s.tokenIndexLocked(id)
	if !ok {
		return TokenEntry{}, false
	}
	e := &s.tokens[n][i]
	e.Balance = balance
	s.quote(e)
	return *e, true
}

// QueueTokenWrite queues a best-effort write of e. A removed row is not
// brought back.
func (s *Store) QueueTokenWrite(e TokenEntry) {
	s.writer.Update(s.tokensTable, e.UUID, e)
}

// RefreshAllBalances refreshes the entries of account on network in
// parallel. One failure does not stop the others; all failures are
// returned joined.
func (s *Store) RefreshAllBalances(ctx context.Context, n types.Network, account string) error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	g.SetLimit(maxConcurrentRefreshes)
	for _, e := range s.TokensFor(n, account) {
		g.Go(func() error {
			if _, err := s.RefreshBalance(ctx, e.UUID); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// RefreshQuotes recomputes quote values on network from the current prices
// and queues writes for the entries that changed.
func (s *Store) RefreshQuotes(n types.Network) {
	if s.prices == nil {
		return
	}
	var changed []TokenEntry
	s.mu.Lock()
	for i := range s.tokens[n] {
		e := &s.tokens[n][i]
		before := e.BalanceInQuote
		s.quote(e)
		if !before.Equal(e.BalanceInQuote) {
			changed = append(changed, *e)
		}
	}
	s.mu.Unlock()
	for _, e := range changed {
		s.QueueTokenWrite(e)
	}
}

// SetTokenMetadata updates the symbol and icon of an entry.
func (s *Store) SetTokenMetadata(id, symbol, icon string) (TokenEntry, error) {
	s.mu.Lock()
	n, i, ok := s.tokenIndexLocked(id)
	if !ok {
		s.mu.Unlock()
		return TokenEntry{}, notFound("token", id)
	}
	e := &s.tokens[n][i]
	if symbol != "" {
		e.Symbol = symbol
	}
	if icon != "" {
		e.Icon = icon
	}
	updated := *e
	sortTokens(s.tokens[n])
	s.mu.Unlock()

	s.QueueTokenWrite(updated)
	return updated, nil
}

// NativeEntry returns the native entry of account on network.
func (s *Store) NativeEntry(n types.Network, account string) (TokenEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.findNativeLocked(n, account)
	if !ok {
		return TokenEntry{}, false
	}
	return s.tokens[n][i], true
}

// TokenByMint returns the entry of mint held by account on network.
func (s *Store) TokenByMint(n types.Network, account string, mint solana.PublicKey) (TokenEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.tokens[n] {
		if e.AccountAddress == account && e.MintAddress == mint.String() {
			return e, true
		}
	}
	return TokenEntry{}, false
}

func (s *Store) findNativeLocked(n types.Network, account string) (int, bool) {
	for i, e := range s.tokens[n] {
		if e.IsNative() && e.AccountAddress == account {
			return i, true
		}
	}
	return 0, false
}

func (s *Store) tokenIndexLocked(id string) (types.Network, int, bool) {
	for n, entries := range s.tokens {
		for i, e := range entries {
			if e.UUID == id {
				return n, i, true
			}
		}
	}
	return "", 0, false
}
