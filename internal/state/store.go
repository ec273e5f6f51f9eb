package state

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Klingon-tech/solwallet/internal/log"
	"github.com/Klingon-tech/solwallet/internal/metrics"
	"github.com/Klingon-tech/solwallet/internal/storage"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// NativeSymbol is the symbol of native token entries.
const NativeSymbol = "SOL"

// ErrActiveAccount is returned when removing the active account.
var ErrActiveAccount = fmt.Errorf("%w: the active account cannot be removed", walleterr.ErrValidation)

// Chain is the network view the store reconciles against.
type Chain interface {
	AccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error)
	TokenAccountBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error)
	IsConfirmed(ctx context.Context, sig solana.Signature) error
}

// Quoter values balances in the quote currency.
type Quoter interface {
	QuoteValue(mint string, amount uint64, decimals uint8) (decimal.Decimal, bool)
}

// IndexKeeper holds the active derive index. *wallet.Vault implements it.
type IndexKeeper interface {
	Exists() bool
	ActiveDeriveIndex() uint32
	SetActiveDeriveIndex(index uint32)
}

// Config wires a Store.
type Config struct {
	DB      storage.DB
	Vault   IndexKeeper
	Chains  map[types.Network]Chain
	Prices  Quoter
	Network types.Network
	// Writer is shared when set; otherwise the store starts and owns one.
	Writer  *Writer
	Metrics *metrics.Metrics
	Clock   clock.Clock
}

// Store is the local cache and reconciliation layer.
type Store struct {
	db            storage.DB
	accountsTable *storage.Table
	tokensTable   *storage.Table
	historyTable  *storage.Table
	bookTable     *storage.Table

	vault     IndexKeeper
	chains    map[types.Network]Chain
	prices    Quoter
	writer    *Writer
	ownWriter bool
	metrics   *metrics.Metrics
	clock     clock.Clock
	logger    zerolog.Logger

	mu       sync.RWMutex
	network  types.Network
	accounts []Account
	tokens   map[types.Network][]TokenEntry
	history  map[types.Network][]HistoryEntry
	book     []AddressBookEntry
	removed  map[string]struct{} // history tombstones
}

// New creates a store. Call Load before use.
func New(cfg Config) (*Store, error) {
	if cfg.DB == nil || cfg.Vault == nil {
		return nil, fmt.Errorf("%w: store needs a database and a vault", walleterr.ErrValidation)
	}
	if cfg.Network == "" {
		cfg.Network = types.NetworkMain
	}
	if !cfg.Network.Valid() {
		return nil, fmt.Errorf("%w: %q", walleterr.ErrInvalidNetwork, cfg.Network)
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	s := &Store{
		db:            cfg.DB,
		accountsTable: storage.NewTable(cfg.DB, storage.TableAccounts),
		tokensTable:   storage.NewTable(cfg.DB, storage.TableTokens),
		historyTable:  storage.NewTable(cfg.DB, storage.TableHistory),
		bookTable:     storage.NewTable(cfg.DB, storage.TableAddressBook),
		vault:         cfg.Vault,
		chains:        cfg.Chains,
		prices:        cfg.Prices,
		writer:        cfg.Writer,
		metrics:       cfg.Metrics,
		clock:         cfg.Clock,
		logger:        log.State,
		network:       cfg.Network,
		tokens:        make(map[types.Network][]TokenEntry),
		history:       make(map[types.Network][]HistoryEntry),
		removed:       make(map[string]struct{}),
	}
	if s.writer == nil {
		s.writer = NewWriter(0, cfg.Metrics)
		s.ownWriter = true
	}
	return s, nil
}

// Flush waits for queued background writes.
func (s *Store) Flush() { s.writer.Flush() }

// Close flushes and, if the store owns it, stops the writer.
func (s *Store) Close() {
	if s.ownWriter {
		s.writer.Close()
		return
	}
	s.writer.Flush()
}

// Load reads every table into memory. Without a stored secret the account
// and token rows are orphans and are cleared.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts = nil
	s.tokens = make(map[types.Network][]TokenEntry)
	s.history = make(map[types.Network][]HistoryEntry)
	s.book = nil

	if !s.vault.Exists() {
		n, err := s.accountsTable.RowCount()
		if err != nil {
			return err
		}
		if n > 0 {
			s.logger.Warn().Int("accounts", n).Msg("No secret stored, clearing orphan accounts")
			if err := s.accountsTable.DeleteAll(); err != nil {
				return err
			}
			if err := s.tokensTable.DeleteAll(); err != nil {
				return err
			}
		}
	} else {
		if err := s.loadAccounts(); err != nil {
			return err
		}
		if err := s.loadTokens(); err != nil {
			return err
		}
	}
	if err := s.loadHistory(); err != nil {
		return err
	}
	if err := s.loadBook(); err != nil {
		return err
	}

	s.logger.Info().
		Int("accounts", len(s.accounts)).
		Int("history", s.countHistory()).
		Msg("Wallet state loaded")
	return nil
}

func (s *Store) loadAccounts() error {
	rows, err := s.accountsTable.SelectAll()
	if err != nil {
		return err
	}
	for _, row := range rows {
		var a Account
		if err := row.Decode(&a); err != nil {
			s.logger.Warn().Err(err).Str("key", row.Key).Msg("Skipping unreadable account")
			continue
		}
		s.accounts = append(s.accounts, a)
	}
	sortAccounts(s.accounts)

	if len(s.accounts) > 0 {
		if _, ok := s.accountByIndexLocked(s.vault.ActiveDeriveIndex()); !ok {
			s.vault.SetActiveDeriveIndex(s.accounts[0].DeriveIndex)
		}
	}
	return nil
}

func (s *Store) loadTokens() error {
	rows, err := s.tokensTable.SelectAll()
	if err != nil {
		return err
	}
	for _, row := range rows {
		var e TokenEntry
		if err := row.Decode(&e); err != nil || !e.Network.Valid() {
			s.logger.Warn().Err(err).Str("key", row.Key).Msg("Skipping unreadable token entry")
			continue
		}
		s.tokens[e.Network] = append(s.tokens[e.Network], e)
	}
	for n := range s.tokens {
		sortTokens(s.tokens[n])
	}
	return nil
}

func (s *Store) loadHistory() error {
	rows, err := s.historyTable.SelectAll()
	if err != nil {
		return err
	}
	for _, row := range rows {
		var e HistoryEntry
		if err := row.Decode(&e); err != nil || !e.Network.Valid() {
			s.logger.Warn().Err(err).Str("key", row.Key).Msg("Skipping unreadable history entry")
			continue
		}
		if e.Status == StatusLoading {
			e.Status = StatusPending
		}
		s.history[e.Network] = append(s.history[e.Network], e)
	}
	for n := range s.history {
		sortHistory(s.history[n])
	}
	return nil
}

func (s *Store) loadBook() error {
	rows, err := s.bookTable.SelectAll()
	if err != nil {
		return err
	}
	for _, row := range rows {
		var e AddressBookEntry
		if err := row.Decode(&e); err != nil {
			s.logger.Warn().Err(err).Str("key", row.Key).Msg("Skipping unreadable address")
			continue
		}
		s.book = append(s.book, e)
	}
	sort.SliceStable(s.book, func(i, j int) bool { return s.book[i].Name < s.book[j].Name })
	return nil
}

func (s *Store) countHistory() int {
	n := 0
	for _, h := range s.history {
		n += len(h)
	}
	return n
}

// Network returns the active network.
func (s *Store) Network() types.Network {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.network
}

// SetNetwork switches the active partition. Rows of the other networks
// stay cached.
func (s *Store) SetNetwork(n types.Network) error {
	if !n.Valid() {
		return fmt.Errorf("%w: %q", walleterr.ErrInvalidNetwork, n)
	}
	s.mu.Lock()
	s.network = n
	s.mu.Unlock()
	s.logger.Info().Str("network", string(n)).Msg("Network switched")
	return nil
}

func (s *Store) chain(n types.Network) (Chain, error) {
	c, ok := s.chains[n]
	if !ok || c == nil {
		return nil, fmt.Errorf("%w: no endpoint for network %s", walleterr.ErrTransport, n)
	}
	return c, nil
}

func (s *Store) quote(e *TokenEntry) {
	if s.prices == nil {
		return
	}
	if v, ok := s.prices.QuoteValue(e.MintAddress, e.Balance, e.Decimals); ok {
		e.BalanceInQuote = v
	}
}

func sortAccounts(a []Account) {
	sort.SliceStable(a, func(i, j int) bool { return a[i].DeriveIndex < a[j].DeriveIndex })
}

// Native entries first, then by symbol.
func sortTokens(t []TokenEntry) {
	sort.SliceStable(t, func(i, j int) bool {
		if t[i].IsNative() != t[j].IsNative() {
			return t[i].IsNative()
		}
		return t[i].Symbol < t[j].Symbol
	})
}

// Newest first.
func sortHistory(h []HistoryEntry) {
	sort.SliceStable(h, func(i, j int) bool { return h[i].Timestamp.After(h[j].Timestamp) })
}

func newUUID() string { return uuid.NewString() }

func notFound(what, id string) error {
	return fmt.Errorf("%w: %s %s", walleterr.ErrNotFound, what, id)
}
