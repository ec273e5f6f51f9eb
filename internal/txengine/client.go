// Package txengine builds, signs, submits and tracks ledger transactions and
// reads account state from a configured RPC endpoint.
package txengine

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// Client is the RPC collaborator the engine talks to. Implementations wrap
// transport failures with walleterr.ErrTransport and report missing
// accounts or transactions with walleterr.ErrNotFound.
type Client interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	FeeForMessage(ctx context.Context, msg *solana.Message) (uint64, error)
	Balance(ctx context.Context, account solana.PublicKey) (uint64, error)
	AccountData(ctx context.Context, account solana.PublicKey) ([]byte, error)
	ProgramAccounts(ctx context.Context, program solana.PublicKey, q ProgramAccountQuery) ([]ProgramAccount, error)
	// SignatureStatus returns nil when the network does not know sig yet.
	SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)
	Transaction(ctx context.Context, sig solana.Signature) (*TransactionMeta, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error)
	MinimumRentExemption(ctx context.Context, size uint64) (uint64, error)
	RecentPrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]uint64, error)
}

// ProgramAccountQuery selects program-owned accounts by byte filters.
type ProgramAccountQuery struct {
	Memcmp   []MemcmpFilter
	DataSize uint64
	// NoData asks for addresses only (zero-length data slice).
	NoData bool
}

// MemcmpFilter matches Bytes at Offset within the account data.
type MemcmpFilter struct {
	Offset uint64
	Bytes  []byte
}

// ProgramAccount is one program-owned account.
type ProgramAccount struct {
	Address solana.PublicKey
	Data    []byte
}

// SignatureStatus is the network's view of a submitted signature.
type SignatureStatus struct {
	Slot      uint64
	Confirmed bool
	// Err is the execution error, empty when the transaction succeeded.
	Err string
}

// TransactionMeta is the execution metadata of a processed transaction.
type TransactionMeta struct {
	Slot uint64
	Err  string
}

// Subscriber opens push subscriptions for account changes.
type Subscriber interface {
	SubscribeAccount(ctx context.Context, account solana.PublicKey) (AccountStream, error)
}

// AccountStream is a cancellable stream of account updates.
type AccountStream interface {
	// Next blocks for the next update. It returns an error once the stream
	// has ended or ctx is done.
	Next(ctx context.Context) (AccountUpdate, error)
	Close() error
}

// AccountUpdate is one pushed account change.
type AccountUpdate struct {
	Slot     uint64
	Lamports uint64
	Data     []byte
}
