package node

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Klingon-tech/solwallet/config"
	"github.com/Klingon-tech/solwallet/internal/price"
	"github.com/Klingon-tech/solwallet/internal/storage"
	"github.com/Klingon-tech/solwallet/internal/txengine"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/gagliardetto/solana-go"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/ratelimit"
)

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

var testPassword = []byte("correct horse")

// fakeChain is an in-memory txengine.Client. Transactions confirm at once
// unless statuses are queued.
type fakeChain struct {
	mu sync.Mutex

	sent     []*solana.Transaction
	airdrops int
	balances map[solana.PublicKey]uint64
	accounts map[solana.PublicKey][]byte
	programs []txengine.ProgramAccount
	statuses []*txengine.SignatureStatus
	pending  bool
	rent     uint64
	rentErr  error
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		balances: make(map[solana.PublicKey]uint64),
		accounts: make(map[solana.PublicKey][]byte),
		rent:     txengine.CreateTokenAccountRentLamports,
	}
}

func (f *fakeChain) LatestBlockhash(context.Context) (solana.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return solana.Hash{byte(len(f.sent) + 1)}, nil
}

func (f *fakeChain) FeeForMessage(context.Context, *solana.Message) (uint64, error) {
	return 5000, nil
}

func (f *fakeChain) Balance(_ context.Context, account solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[account], nil
}

func (f *fakeChain) AccountData(_ context.Context, account solana.PublicKey) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.accounts[account]
	if !ok {
		return nil, walleterr.ErrNotFound
	}
	return data, nil
}

func (f *fakeChain) ProgramAccounts(_ context.Context, _ solana.PublicKey, q txengine.ProgramAccountQuery) ([]txengine.ProgramAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []txengine.ProgramAccount
	for _, pa := range f.programs {
		if q.DataSize > 0 && uint64(len(pa.Data)) != q.DataSize {
			continue
		}
		ok := true
		for _, m := range q.Memcmp {
			end := m.Offset + uint64(len(m.Bytes))
			if end > uint64(len(pa.Data)) || string(pa.Data[m.Offset:end]) != string(m.Bytes) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, pa)
		}
	}
	return out, nil
}

func (f *fakeChain) SignatureStatus(context.Context, solana.Signature) (*txengine.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return nil, nil
	}
	if len(f.statuses) > 0 {
		st := f.statuses[0]
		f.statuses = f.statuses[1:]
		return st, nil
	}
	return &txengine.SignatureStatus{Confirmed: true}, nil
}

func (f *fakeChain) Transaction(context.Context, solana.Signature) (*txengine.TransactionMeta, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending {
		return nil, nil
	}
	return &txengine.TransactionMeta{Slot: 1}, nil
}

func (f *fakeChain) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func (f *fakeChain) RequestAirdrop(_ context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.airdrops++
	f.balances[account] += lamports
	return solana.Signature{byte(f.airdrops)}, nil
}

func (f *fakeChain) MinimumRentExemption(_ context.Context, size uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rentErr != nil {
		return 0, f.rentErr
	}
	if size != txengine.TokenAccountSize {
		return 0, walleterr.ErrValidation
	}
	return f.rent, nil
}

func (f *fakeChain) RecentPrioritizationFees(context.Context, []solana.PublicKey) ([]uint64, error) {
	return []uint64{10, 20, 30, 40}, nil
}

func (f *fakeChain) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeChain) setBalance(account solana.PublicKey, lamports uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[account] = lamports
}

// addMint registers a mint account with decimals.
func (f *fakeChain) addMint(mint solana.PublicKey, decimals uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[mint] = txengine.EncodeMint(txengine.MintInfo{Supply: 1_000_000, Decimals: decimals})
}

// addHolding registers owner's associated token account for mint.
func (f *fakeChain) addHolding(t *testing.T, owner, mint solana.PublicKey, amount uint64) solana.PublicKey {
	t.Helper()
	ata, err := txengine.DeriveAssociatedAddress(owner, mint)
	require.NoError(t, err)
	f.addTokenAccount(ata, owner, mint, amount)
	return ata
}

// addTokenAccount registers a token account at an arbitrary address.
func (f *fakeChain) addTokenAccount(address, owner, mint solana.PublicKey, amount uint64) {
	data := txengine.EncodeTokenAccount(txengine.TokenAccount{Mint: mint, Owner: owner, Amount: amount})

	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[address] = data
	f.programs = append(f.programs, txengine.ProgramAccount{Address: address, Data: data})
}

func (f *fakeChain) lastSent() *solana.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

// chanStream delivers updates pushed into ch until ch is closed.
type chanStream struct {
	ch chan txengine.AccountUpdate
}

func (s *chanStream) Next(ctx context.Context) (txengine.AccountUpdate, error) {
	select {
	case <-ctx.Done():
		return txengine.AccountUpdate{}, ctx.Err()
	case u, ok := <-s.ch:
		if !ok {
			return txengine.AccountUpdate{}, txengine.ErrStreamClosed
		}
		return u, nil
	}
}

func (s *chanStream) Close() error { return nil }

type chanSubscriber struct {
	stream *chanStream
}

func (s *chanSubscriber) SubscribeAccount(context.Context, solana.PublicKey) (txengine.AccountStream, error) {
	return s.stream, nil
}

type fixedFeed struct {
	price decimal.Decimal
}

func (f fixedFeed) Price(context.Context, string) (price.Quote, error) {
	return price.Quote{Price: f.price, PublishTime: time.Now()}, nil
}

// fakeMetadata names every mint "TUSD" and counts lookups.
type fakeMetadata struct {
	single  int
	batches [][]string
}

func (f *fakeMetadata) Asset(_ context.Context, mint string) (price.AssetMetadata, error) {
	f.single++
	return tusd(mint), nil
}

func (f *fakeMetadata) AssetBatch(_ context.Context, mints []string) ([]price.AssetMetadata, error) {
	f.batches = append(f.batches, mints)
	out := make([]price.AssetMetadata, 0, len(mints))
	for _, m := range mints {
		out = append(out, tusd(m))
	}
	return out, nil
}

func tusd(mint string) price.AssetMetadata {
	return price.AssetMetadata{Mint: mint, Name: "Test Dollar", Symbol: "TUSD", Icon: "https://example.com/tusd.png"}
}

type testEnv struct {
	node   *Node
	chains map[types.Network]*fakeChain
}

func (e *testEnv) chain() *fakeChain { return e.chains[types.NetworkDev] }

// newTestEnv creates a node on the dev network with a fake chain for every
// network. deps customises the dependencies before New.
func newTestEnv(t *testing.T, deps func(*Deps)) *testEnv {
	t.Helper()
	cfg := config.Default(types.NetworkDev)
	cfg.Vault = config.VaultConfig{Memory: 64, Iterations: 1, Parallelism: 1}
	cfg.Tx.ConfirmAttempts = 3

	env := &testEnv{chains: make(map[types.Network]*fakeChain)}
	d := Deps{
		DB:      storage.NewMemory(),
		OwnsDB:  true,
		Clients: make(map[types.Network]txengine.Client),
		Limiter: ratelimit.NewUnlimited(),
		Clock:   clock.NewTestClock(time.Unix(1_700_000_000, 0)),
	}
	for _, n := range types.Networks() {
		fc := newFakeChain()
		env.chains[n] = fc
		d.Clients[n] = fc
	}
	if deps != nil {
		deps(&d)
	}

	node, err := New(cfg, d)
	require.NoError(t, err)
	t.Cleanup(node.Stop)
	env.node = node
	return env
}

// setup creates the wallet and returns the first account's key.
func (e *testEnv) setup(t *testing.T) solana.PublicKey {
	t.Helper()
	a, err := e.node.Setup(testPassword, testPhrase)
	require.NoError(t, err)
	pub, err := types.ParseAddress(a.Address)
	require.NoError(t, err)
	return pub
}

// drain returns the events emitted so far.
func (e *testEnv) drain() []Event {
	var out []Event
	for {
		select {
		case ev := <-e.node.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}
