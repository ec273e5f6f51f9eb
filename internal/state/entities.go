// Package state is the wallet's local cache. It owns the in-memory
// accounts, token entries, history and address book, reconciles them with
// the network and is the only writer of their tables.
package state

import (
	"time"

	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/shopspring/decimal"
)

// Account is one derived wallet account.
type Account struct {
	UUID        string `json:"uuid"`
	Name        string `json:"name"`
	Address     string `json:"pubkey"`
	DeriveIndex uint32 `json:"derive_index"`
}

// TokenEntry is a balance row for one (network, account, mint). The native
// entry has an empty mint and token account.
type TokenEntry struct {
	UUID                string          `json:"uuid"`
	Network             types.Network   `json:"network"`
	Symbol              string          `json:"symbol"`
	Icon                string          `json:"icon,omitempty"`
	AccountAddress      string          `json:"account_address"`
	TokenAccountAddress string          `json:"token_account_address"`
	MintAddress         string          `json:"mint_address"`
	Decimals            uint8           `json:"decimals"`
	Balance             uint64          `json:"balance"`
	BalanceInQuote      decimal.Decimal `json:"balance_usdt"`
	FeedID              string          `json:"feed_id,omitempty"`
}

// IsNative reports whether e tracks the native currency.
func (e TokenEntry) IsNative() bool { return e.MintAddress == "" }

// FormattedBalance renders the balance in display units.
func (e TokenEntry) FormattedBalance() string {
	if e.IsNative() {
		return types.FormatNativeAmount(e.Balance)
	}
	return types.FormatTokenAmount(e.Balance, e.Decimals)
}

// HistoryStatus is the confirmation status of a history entry.
type HistoryStatus string

const (
	StatusPending HistoryStatus = "pending"
	StatusSuccess HistoryStatus = "success"
	StatusError   HistoryStatus = "error"
	// StatusLoading marks an entry being re-checked. It is never persisted.
	StatusLoading HistoryStatus = "loading"
)

// HistoryEntry records one submitted transaction.
type HistoryEntry struct {
	UUID        string        `json:"uuid"`
	Network     types.Network `json:"network"`
	Signature   string        `json:"hash"`
	AmountLabel string        `json:"balance"`
	Timestamp   time.Time     `json:"time"`
	Status      HistoryStatus `json:"status"`
}

// AddressBookEntry is a named recipient address.
type AddressBookEntry struct {
	UUID    string `json:"uuid"`
	Name    string `json:"name"`
	Address string `json:"address"`
}
