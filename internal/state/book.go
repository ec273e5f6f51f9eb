package state

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
)

// AddressBook returns the saved addresses ordered by name.
func (s *Store) AddressBook() []AddressBookEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AddressBookEntry(nil), s.book...)
}

// AddAddress saves a named address.
func (s *Store) AddAddress(name, address string) (AddressBookEntry, error) {
	if _, err := types.ParseAddress(address); err != nil {
		return AddressBookEntry{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return AddressBookEntry{}, fmt.Errorf("%w: empty name", walleterr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.book {
		if e.Address == address {
			return AddressBookEntry{}, fmt.Errorf("%w: %s is saved as %q", walleterr.ErrValidation, address, e.Name)
		}
	}
	e := AddressBookEntry{UUID: newUUID(), Name: name, Address: address}
	if err := s.bookTable.Insert(e.UUID, e); err != nil {
		return AddressBookEntry{}, err
	}
	s.book = append(s.book, e)
	s.sortBookLocked()
	return e, nil
}

// RenameAddress changes the name of a saved address.
func (s *Store) RenameAddress(id, name string) (AddressBookEntry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return AddressBookEntry{}, fmt.Errorf("%w: empty name", walleterr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.book {
		if e.UUID != id {
			continue
		}
		e.Name = name
		if err := s.bookTable.Update(id, e); err != nil {
			return AddressBookEntry{}, err
		}
		s.book[i] = e
		s.sortBookLocked()
		return e, nil
	}
	return AddressBookEntry{}, notFound("address", id)
}

// RemoveAddress deletes a saved address.
func (s *Store) RemoveAddress(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.book {
		if e.UUID != id {
			continue
		}
		if err := s.bookTable.Delete(id); err != nil {
			return err
		}
		s.book = append(s.book[:i:i], s.book[i+1:]...)
		return nil
	}
	return notFound("address", id)
}

func (s *Store) sortBookLocked() {
	sort.SliceStable(s.book, func(i, j int) bool { return s.book[i].Name < s.book[j].Name })
}
