package node

import (
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/state"
	"github.com/Klingon-tech/solwallet/internal/wallet"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
)

// ErrAlreadySetup is returned by Setup when a secret is already stored.
var ErrAlreadySetup = fmt.Errorf("%w: wallet is already set up", walleterr.ErrValidation)

// NewMnemonic generates a fresh recovery phrase of words words (12 or 24).
func (n *Node) NewMnemonic(words int) (string, error) {
	return wallet.GenerateMnemonic(words)
}

// Setup stores the secret for phrase under password and creates the first
// account at derive index 0.
func (n *Node) Setup(password []byte, phrase string) (state.Account, error) {
	if n.vault.Exists() {
		return state.Account{}, n.result(EventSetup, ErrAlreadySetup, nil)
	}
	if err := n.vault.Create(password, phrase); err != nil {
		return state.Account{}, n.result(EventSetup, err, nil)
	}
	pub, err := n.vault.PublicKey(password, 0)
	if err != nil {
		return state.Account{}, n.result(EventSetup, err, nil)
	}
	a, err := n.store.AddAccount("", pub.String(), 0)
	if err != nil {
		return state.Account{}, n.result(EventSetup, err, nil)
	}
	n.logger.Info().Str("address", pub.String()).Msg("Wallet set up")
	n.restartWatcher()
	return a, n.result(EventSetup, nil, func(e *Event) { e.Account = accountRef(a) })
}

// ChangePassword re-encrypts the secret under newPassword.
func (n *Node) ChangePassword(oldPassword, newPassword []byte) error {
	return n.result(EventPasswordChange, n.vault.ChangePassword(oldPassword, newPassword), nil)
}

// RevealMnemonic returns the recovery phrase after checking password.
func (n *Node) RevealMnemonic(password []byte) (string, error) {
	return n.vault.Unlock(password)
}

// CreateAccount derives the next free index and adds an account for it.
// An empty name gets the default "Account-N".
func (n *Node) CreateAccount(password []byte, name string) (state.Account, error) {
	index := n.store.AllocateDeriveIndex()
	pub, err := n.vault.PublicKey(password, index)
	if err != nil {
		return state.Account{}, n.result(EventAccount, err, nil)
	}
	a, err := n.store.AddAccount(name, pub.String(), index)
	if err != nil {
		return state.Account{}, n.result(EventAccount, err, nil)
	}
	n.logger.Info().Uint32("derive_index", index).Str("address", a.Address).Msg("Account created")
	return a, n.result(EventAccount, nil, func(e *Event) { e.Account = accountRef(a) })
}

// RenameAccount renames an account.
func (n *Node) RenameAccount(id, name string) (state.Account, error) {
	a, err := n.store.RenameAccount(id, name)
	return a, n.result(EventAccount, err, func(e *Event) { e.Account = accountRef(a) })
}

// RemoveAccount removes an inactive account and its tokens.
func (n *Node) RemoveAccount(id string) error {
	a, _ := n.store.AccountByUUID(id)
	err := n.store.RemoveAccount(id)
	return n.result(EventAccountRemoved, err, func(e *Event) { e.Account = accountRef(a) })
}

// SwitchAccount makes the account active and moves the watcher to it.
func (n *Node) SwitchAccount(id string) (state.Account, error) {
	a, err := n.store.SetActiveAccount(id)
	if err == nil {
		n.restartWatcher()
	}
	return a, n.result(EventAccountSwitch, err, func(e *Event) { e.Account = accountRef(a) })
}

// SwitchNetwork changes the active network.
func (n *Node) SwitchNetwork(network types.Network) error {
	err := n.store.SetNetwork(network)
	if err == nil {
		n.restartWatcher()
	}
	return n.result(EventNetworkSwitch, err, func(e *Event) { e.Network = network })
}

// ActiveAccount returns the active account.
func (n *Node) ActiveAccount() (state.Account, error) {
	a, ok := n.store.ActiveAccount()
	if !ok {
		return state.Account{}, fmt.Errorf("%w: no account, set up the wallet first", walleterr.ErrNotFound)
	}
	return a, nil
}

// AddAddress saves a named address in the address book.
func (n *Node) AddAddress(name, address string) (state.AddressBookEntry, error) {
	b, err := n.store.AddAddress(name, address)
	return b, n.result(EventAddressBook, err, func(e *Event) { e.Address = addressRef(b) })
}

// RenameAddress renames an address book entry.
func (n *Node) RenameAddress(id, name string) (state.AddressBookEntry, error) {
	b, err := n.store.RenameAddress(id, name)
	return b, n.result(EventAddressBook, err, func(e *Event) { e.Address = addressRef(b) })
}

// RemoveAddress deletes an address book entry.
func (n *Node) RemoveAddress(id string) error {
	return n.result(EventAddressBook, n.store.RemoveAddress(id), nil)
}
