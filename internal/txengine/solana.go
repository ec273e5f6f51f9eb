package txengine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// SolanaClient implements Client over a JSON-RPC endpoint.
type SolanaClient struct {
	rpc *rpc.Client
}

// NewSolanaClient connects to the JSON-RPC endpoint at url.
func NewSolanaClient(url string) *SolanaClient {
	return &SolanaClient{rpc: rpc.New(url)}
}

// Close releases the underlying HTTP transport.
func (c *SolanaClient) Close() error {
	return c.rpc.Close()
}

func rpcErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, rpc.ErrNotFound) {
		return fmt.Errorf("%s: %w", op, walleterr.ErrNotFound)
	}
	return walleterr.Transport(op, err)
}

// execErr renders an execution error returned by the node.
func execErr(v interface{}) string {
	if v == nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

func (c *SolanaClient) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, rpcErr("getLatestBlockhash", err)
	}
	return res.Value.Blockhash, nil
}

func (c *SolanaClient) FeeForMessage(ctx context.Context, msg *solana.Message) (uint64, error) {
	raw, err := msg.MarshalBinary()
	if err != nil {
		return 0, fmt.Errorf("encode message: %w", err)
	}
	res, err := c.rpc.GetFeeForMessage(ctx, base64.StdEncoding.EncodeToString(raw), rpc.CommitmentConfirmed)
	if err != nil {
		return 0, rpcErr("getFeeForMessage", err)
	}
	if res.Value == nil {
		// The blockhash expired between fetch and estimate.
		return 0, fmt.Errorf("getFeeForMessage: %w: fee unavailable", walleterr.ErrNotFound)
	}
	return *res.Value, nil
}

func (c *SolanaClient) Balance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	res, err := c.rpc.GetBalance(ctx, account, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, rpcErr("getBalance", err)
	}
	return res.Value, nil
}

func (c *SolanaClient) AccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	res, err := c.rpc.GetAccountInfo(ctx, account)
	if err != nil {
		return nil, rpcErr("getAccountInfo", err)
	}
	if res.Value == nil || res.Value.Data == nil {
		return nil, fmt.Errorf("getAccountInfo %s: %w", account, walleterr.ErrNotFound)
	}
	return res.Value.Data.GetBinary(), nil
}

func (c *SolanaClient) ProgramAccounts(ctx context.Context, program solana.PublicKey, q ProgramAccountQuery) ([]ProgramAccount, error) {
	opts := &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Encoding:   solana.EncodingBase64,
	}
	for _, f := range q.Memcmp {
		opts.Filters = append(opts.Filters, rpc.RPCFilter{
			Memcmp: &rpc.RPCFilterMemcmp{Offset: f.Offset, Bytes: solana.Base58(f.Bytes)},
		})
	}
	if q.DataSize > 0 {
		opts.Filters = append(opts.Filters, rpc.RPCFilter{DataSize: q.DataSize})
	}
	if q.NoData {
		var zero uint64
		opts.DataSlice = &rpc.DataSlice{Offset: &zero, Length: &zero}
	}

	res, err := c.rpc.GetProgramAccountsWithOpts(ctx, program, opts)
	if err != nil {
		return nil, rpcErr("getProgramAccounts", err)
	}
	out := make([]ProgramAccount, 0, len(res))
	for _, ka := range res {
		if ka == nil {
			continue
		}
		pa := ProgramAccount{Address: ka.Pubkey}
		if ka.Account != nil && ka.Account.Data != nil {
			pa.Data = ka.Account.Data.GetBinary()
		}
		out = append(out, pa)
	}
	return out, nil
}

func (c *SolanaClient) SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error) {
	res, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return nil, rpcErr("getSignatureStatuses", err)
	}
	if len(res.Value) == 0 || res.Value[0] == nil {
		return nil, nil
	}
	st := res.Value[0]
	return &SignatureStatus{
		Slot: st.Slot,
		Confirmed: st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
			st.ConfirmationStatus == rpc.ConfirmationStatusFinalized,
		Err: execErr(st.Err),
	}, nil
}

func (c *SolanaClient) Transaction(ctx context.Context, sig solana.Signature) (*TransactionMeta, error) {
	version := uint64(0)
	res, err := c.rpc.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &version,
	})
	if err != nil {
		return nil, rpcErr("getTransaction", err)
	}
	if res == nil || res.Meta == nil {
		return nil, nil
	}
	return &TransactionMeta{Slot: res.Slot, Err: execErr(res.Meta.Err)}, nil
}

func (c *SolanaClient) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, rpcErr("sendTransaction", err)
	}
	return sig, nil
}

func (c *SolanaClient) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error) {
	sig, err := c.rpc.RequestAirdrop(ctx, account, lamports, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, rpcErr("requestAirdrop", err)
	}
	return sig, nil
}

func (c *SolanaClient) MinimumRentExemption(ctx context.Context, size uint64) (uint64, error) {
	lamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, size, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, rpcErr("getMinimumBalanceForRentExemption", err)
	}
	return lamports, nil
}

func (c *SolanaClient) RecentPrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]uint64, error) {
	res, err := c.rpc.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil {
		return nil, rpcErr("getRecentPrioritizationFees", err)
	}
	fees := make([]uint64, 0, len(res))
	for _, f := range res {
		fees = append(fees, f.PrioritizationFee)
	}
	return fees, nil
}
