package node

import (
	"github.com/Klingon-tech/solwallet/internal/state"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
)

// EventKind names what an Event reports.
type EventKind string

const (
	EventSetup          EventKind = "setup"
	EventPasswordChange EventKind = "password_changed"
	EventAccount        EventKind = "account"
	EventAccountRemoved EventKind = "account_removed"
	EventAccountSwitch  EventKind = "account_switched"
	EventNetworkSwitch  EventKind = "network_switched"
	EventToken          EventKind = "token"
	EventTokenRemoved   EventKind = "token_removed"
	EventBalance        EventKind = "balance"
	EventTxSubmitted    EventKind = "tx_submitted"
	EventTxStatus       EventKind = "tx_status"
	EventHistory        EventKind = "history"
	EventAddressBook    EventKind = "address_book"
	EventRefresh        EventKind = "refresh"
)

// Event is one result emitted to the front end. Failed requests carry a
// short Reason; snapshots are copies and safe to keep.
type Event struct {
	Kind    EventKind
	OK      bool
	Reason  string
	Network types.Network
	Account *state.Account
	Token   *state.TokenEntry
	History *state.HistoryEntry
	Address *state.AddressBookEntry
}

func (n *Node) emit(e Event) {
	if e.Network == "" {
		e.Network = n.store.Network()
	}
	select {
	case n.events <- e:
	default:
		n.logger.Debug().Str("kind", string(e.Kind)).Msg("Event dropped, nobody listening")
	}
}

// result emits kind with the outcome of err and returns err unchanged.
func (n *Node) result(kind EventKind, err error, fill func(*Event)) error {
	e := Event{Kind: kind, OK: err == nil, Reason: walleterr.Reason(err)}
	if err == nil && fill != nil {
		fill(&e)
	}
	n.emit(e)
	return err
}

func accountRef(a state.Account) *state.Account                   { return &a }
func tokenRef(t state.TokenEntry) *state.TokenEntry               { return &t }
func historyRef(h state.HistoryEntry) *state.HistoryEntry         { return &h }
func addressRef(b state.AddressBookEntry) *state.AddressBookEntry { return &b }
