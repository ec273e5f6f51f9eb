package txengine

import (
	"context"
	"sync"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/ratelimit"
)

// fakeClient is an in-memory Client. Statuses are served in order; the
// last one repeats.
type fakeClient struct {
	mu sync.Mutex

	blockhashCalls int
	statusCalls    int
	sent           []*solana.Transaction

	balances  map[solana.PublicKey]uint64
	accounts  map[solana.PublicKey][]byte
	programs  []ProgramAccount
	lastQuery ProgramAccountQuery
	statuses  []*SignatureStatus
	statusErr error
	meta      *TransactionMeta
	metaErr   error
	fee       uint64
	feeErr    error
	sendErr   error
	airdrops  int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		balances: make(map[solana.PublicKey]uint64),
		accounts: make(map[solana.PublicKey][]byte),
		fee:      5000,
	}
}

func (f *fakeClient) LatestBlockhash(context.Context) (solana.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockhashCalls++
	var h solana.Hash
	h[0] = byte(f.blockhashCalls)
	return h, nil
}

func (f *fakeClient) FeeForMessage(context.Context, *solana.Message) (uint64, error) {
	return f.fee, f.feeErr
}

func (f *fakeClient) Balance(_ context.Context, account solana.PublicKey) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[account], nil
}

func (f *fakeClient) AccountData(_ context.Context, account solana.PublicKey) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.accounts[account]
	if !ok {
		return nil, walleterr.ErrNotFound
	}
	return data, nil
}

func (f *fakeClient) ProgramAccounts(_ context.Context, _ solana.PublicKey, q ProgramAccountQuery) ([]ProgramAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	var out []ProgramAccount
	for _, pa := range f.programs {
		if matches(pa.Data, q) {
			if q.NoData {
				pa.Data = nil
			}
			out = append(out, pa)
		}
	}
	return out, nil
}

func matches(data []byte, q ProgramAccountQuery) bool {
	if q.DataSize > 0 && uint64(len(data)) != q.DataSize {
		return false
	}
	for _, m := range q.Memcmp {
		end := m.Offset + uint64(len(m.Bytes))
		if end > uint64(len(data)) || string(data[m.Offset:end]) != string(m.Bytes) {
			return false
		}
	}
	return true
}

func (f *fakeClient) SignatureStatus(context.Context, solana.Signature) (*SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if len(f.statuses) == 0 {
		return nil, nil
	}
	st := f.statuses[0]
	if len(f.statuses) > 1 {
		f.statuses = f.statuses[1:]
	}
	return st, nil
}

func (f *fakeClient) Transaction(context.Context, solana.Signature) (*TransactionMeta, error) {
	return f.meta, f.metaErr
}

func (f *fakeClient) SendTransaction(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return solana.Signature{}, f.sendErr
	}
	f.sent = append(f.sent, tx)
	return tx.Signatures[0], nil
}

func (f *fakeClient) RequestAirdrop(context.Context, solana.PublicKey, uint64) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.airdrops++
	return solana.Signature{1}, nil
}

func (f *fakeClient) MinimumRentExemption(_ context.Context, size uint64) (uint64, error) {
	return (size + 128) * 6960, nil
}

func (f *fakeClient) RecentPrioritizationFees(context.Context, []solana.PublicKey) ([]uint64, error) {
	return []uint64{0, 100, 2500}, nil
}

// fakeStream replays a fixed list of updates, then ends.
type fakeStream struct {
	updates []AccountUpdate
	closed  bool
}

func (s *fakeStream) Next(ctx context.Context) (AccountUpdate, error) {
	if err := ctx.Err(); err != nil {
		return AccountUpdate{}, err
	}
	if len(s.updates) == 0 {
		return AccountUpdate{}, ErrStreamClosed
	}
	u := s.updates[0]
	s.updates = s.updates[1:]
	return u, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

type fakeSubscriber struct {
	stream *fakeStream
}

func (s *fakeSubscriber) SubscribeAccount(context.Context, solana.PublicKey) (AccountStream, error) {
	return s.stream, nil
}

func newTestEngine(c Client, sub Subscriber, attempts int) *Engine {
	return New(c, sub, Config{
		Network:         "dev",
		ConfirmAttempts: attempts,
		Limiter:         ratelimit.NewUnlimited(),
	})
}

func newKey(t interface{ Fatalf(string, ...any) }) solana.PrivateKey {
	k, err := solana.NewRandomPrivateKey()
	if err != nil {
		t.Fatalf("NewRandomPrivateKey() error: %v", err)
	}
	return k
}
