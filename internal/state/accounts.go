package state

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/solwallet/internal/storage"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
)

// AllocateDeriveIndex returns the smallest derive index no account uses.
func (s *Store) AllocateDeriveIndex() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	used := make(map[uint32]struct{}, len(s.accounts))
	for _, a := range s.accounts {
		used[a.DeriveIndex] = struct{}{}
	}
	var i uint32
	for {
		if _, ok := used[i]; !ok {
			return i
		}
		i++
	}
}

// AddAccount stores a new account and its native token entries. An empty
// name becomes "Account-<index>". The first account becomes active.
func (s *Store) AddAccount(name, address string, index uint32) (Account, error) {
	if _, err := types.ParseAddress(address); err != nil {
		return Account{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("Account-%d", index)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.DeriveIndex == index {
			return Account{}, fmt.Errorf("%w: derive index %d is taken", walleterr.ErrValidation, index)
		}
		if a.Address == address {
			return Account{}, fmt.Errorf("%w: account %s exists", walleterr.ErrValidation, address)
		}
	}

	a := Account{UUID: newUUID(), Name: name, Address: address, DeriveIndex: index}
	if err := s.accountsTable.Insert(a.UUID, a); err != nil {
		return Account{}, err
	}
	first := len(s.accounts) == 0
	s.accounts = append(s.accounts, a)
	sortAccounts(s.accounts)

	if err := s.addNativeTokensLocked(address); err != nil {
		return a, err
	}
	if first {
		s.vault.SetActiveDeriveIndex(index)
	}
	s.logger.Info().Str("address", address).Uint32("derive_index", index).Msg("Account added")
	return a, nil
}

// AddNativeTokens creates the native entry of address on every network
// that lacks one.
func (s *Store) AddNativeTokens(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addNativeTokensLocked(address)
}

func (s *Store) addNativeTokensLocked(address string) error {
	for _, n := range types.Networks() {
		if _, ok := s.findNativeLocked(n, address); ok {
			continue
		}
		e := TokenEntry{
			UUID:           newUUID(),
			Network:        n,
			Symbol:         NativeSymbol,
			AccountAddress: address,
			Decimals:       types.NativeDecimals,
		}
		if err := s.tokensTable.Insert(e.UUID, e); err != nil {
			return err
		}
		s.tokens[n] = append(s.tokens[n], e)
		sortTokens(s.tokens[n])
	}
	return nil
}

// RenameAccount changes the display name of an account.
func (s *Store) RenameAccount(id, name string) (Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, fmt.Errorf("%w: empty account name", walleterr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.accountIndexLocked(id)
	if !ok {
		return Account{}, notFound("account", id)
	}
	a := s.accounts[i]
	a.Name = name
	if err := s.accountsTable.Update(a.UUID, a); err != nil {
		return Account{}, err
	}
	s.accounts[i] = a
	return a, nil
}

// RemoveAccount deletes an account and, on every network, the token entries
// it owns. History is kept. The active account cannot be removed.
func (s *Store) RemoveAccount(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.accountIndexLocked(id)
	if !ok {
		return notFound("account", id)
	}
	a := s.accounts[i]
	if active, ok := s.activeAccountLocked(); ok && active.UUID == a.UUID {
		return ErrActiveAccount
	}

	// The account row and its token rows go in one commit; memory follows
	// only once the commit succeeded.
	rb := storage.NewRowBatch(s.db)
	defer rb.Discard()
	if err := rb.Delete(s.accountsTable, a.UUID); err != nil {
		return err
	}
	kept := make(map[types.Network][]TokenEntry, len(s.tokens))
	for n, entries := range s.tokens {
		k := entries[:0:0]
		for _, e := range entries {
			if e.AccountAddress != a.Address {
				k = append(k, e)
				continue
			}
			if err := rb.Delete(s.tokensTable, e.UUID); err != nil {
				return err
			}
		}
		kept[n] = k
	}
	if err := rb.Commit(); err != nil {
		return err
	}

	s.accounts = append(s.accounts[:i:i], s.accounts[i+1:]...)
	for n, k := range kept {
		s.tokens[n] = k
	}
	s.logger.Info().Str("address", a.Address).Msg("Account removed")
	return nil
}

// Accounts returns every account ordered by derive index.
func (s *Store) Accounts() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Account(nil), s.accounts...)
}

// AccountByUUID looks up an account.
func (s *Store) AccountByUUID(id string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.accountIndexLocked(id)
	if !ok {
		return Account{}, false
	}
	return s.accounts[i], true
}

// AccountByAddress looks up an account by its address.
func (s *Store) AccountByAddress(address string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Address == address {
			return a, true
		}
	}
	return Account{}, false
}

// ActiveAccount returns the account at the active derive index, or the
// first account when none matches.
func (s *Store) ActiveAccount() (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeAccountLocked()
}

// SetActiveAccount makes the account active.
func (s *Store) SetActiveAccount(id string) (Account, error) {
	a, ok := s.AccountByUUID(id)
	if !ok {
		return Account{}, notFound("account", id)
	}
	s.vault.SetActiveDeriveIndex(a.DeriveIndex)
	return a, nil
}

func (s *Store) activeAccountLocked() (Account, bool) {
	if a, ok := s.accountByIndexLocked(s.vault.ActiveDeriveIndex()); ok {
		return a, true
	}
	if len(s.accounts) > 0 {
		return s.accounts[0], true
	}
	return Account{}, false
}

func (s *Store) accountIndexLocked(id string) (int, bool) {
	for i, a := range s.accounts {
		if a.UUID == id {
			return i, true
		}
	}
	return 0, false
}

func (s *Store) accountByIndexLocked(index uint32) (Account, bool) {
	for _, a := range s.accounts {
		if a.DeriveIndex == index {
			return a, true
		}
	}
	return Account{}, false
}
