package txengine

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/gagliardetto/solana-go"
)

// AccountToken is a token holding of a wallet.
type AccountToken struct {
	TokenAccount solana.PublicKey
	Mint         solana.PublicKey
	Decimals     uint8
	// Amount is in base units.
	Amount uint64
}

// AccountBalance returns the lamport balance of account.
func (e *Engine) AccountBalance(ctx context.Context, account solana.PublicKey) (uint64, error) {
	ctx, cancel := e.callCtx(ctx)
	defer cancel()
	return e.client.Balance(ctx, account)
}

// MintDecimals returns the on-chain decimals of mint.
func (e *Engine) MintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	ctx, cancel := e.callCtx(ctx)
	defer cancel()

	data, err := e.client.AccountData(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("fetch mint %s: %w", mint, err)
	}
	info, err := DecodeMint(data)
	if err != nil {
		return 0, fmt.Errorf("decode mint %s: %w", mint, err)
	}
	return info.Decimals, nil
}

// TokenAccountBalance returns the base-unit balance held by a token account.
func (e *Engine) TokenAccountBalance(ctx context.Context, tokenAccount solana.PublicKey) (uint64, error) {
	ctx, cancel := e.callCtx(ctx)
	defer cancel()

	data, err := e.client.AccountData(ctx, tokenAccount)
	if err != nil {
		return 0, fmt.Errorf("fetch token account %s: %w", tokenAccount, err)
	}
	acct, err := DecodeTokenAccount(data)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// FetchAccountToken finds wallet's token account for mint by filtering
// token program accounts on the mint and owner offsets.
func (e *Engine) FetchAccountToken(ctx context.Context, wallet, mint solana.PublicKey) (AccountToken, error) {
	tokens, err := e.searchTokens(ctx, ProgramAccountQuery{
		Memcmp: []MemcmpFilter{
			{Offset: MintOffset, Bytes: mint.Bytes()},
			{Offset: OwnerOffset, Bytes: wallet.Bytes()},
		},
		DataSize: TokenAccountSize,
	})
	if err != nil {
		return AccountToken{}, err
	}
	if len(tokens) == 0 {
		return AccountToken{}, fmt.Errorf("%w: no %s token account for %s", walleterr.ErrNotFound, mint, wallet)
	}
	return tokens[0], nil
}

// FetchAccountTokens lists every token account owned by wallet.
func (e *Engine) FetchAccountTokens(ctx context.Context, wallet solana.PublicKey) ([]AccountToken, error) {
	return e.searchTokens(ctx, ProgramAccountQuery{
		Memcmp:   []MemcmpFilter{{Offset: OwnerOffset, Bytes: wallet.Bytes()}},
		DataSize: TokenAccountSize,
	})
}

func (e *Engine) searchTokens(ctx context.Context, q ProgramAccountQuery) ([]AccountToken, error) {
	callCtx, cancel := e.callCtx(ctx)
	accounts, err := e.client.ProgramAccounts(callCtx, solana.TokenProgramID, q)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("search token accounts: %w", err)
	}

	decimals := make(map[solana.PublicKey]uint8)
	out := make([]AccountToken, 0, len(accounts))
	for _, a := range accounts {
		acct, err := DecodeTokenAccount(a.Data)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", a.Address, err)
		}
		d, ok := decimals[acct.Mint]
		if !ok {
			d, err = e.MintDecimals(ctx, acct.Mint)
			if err != nil {
				return nil, err
			}
			decimals[acct.Mint] = d
		}
		out = append(out, AccountToken{
			TokenAccount: a.Address,
			Mint:         acct.Mint,
			Decimals:     d,
			Amount:       acct.Amount,
		})
	}
	return out, nil
}

// NumberOfTokenHolders counts the token accounts of mint.
func (e *Engine) NumberOfTokenHolders(ctx context.Context, mint solana.PublicKey) (int, error) {
	ctx, cancel := e.callCtx(ctx)
	defer cancel()

	accounts, err := e.client.ProgramAccounts(ctx, solana.TokenProgramID, ProgramAccountQuery{
		Memcmp:   []MemcmpFilter{{Offset: MintOffset, Bytes: mint.Bytes()}},
		DataSize: TokenAccountSize,
		NoData:   true,
	})
	if err != nil {
		return 0, fmt.Errorf("count holders of %s: %w", mint, err)
	}
	return len(accounts), nil
}

// MinimumRentExemption returns the rent-exempt balance for size bytes.
func (e *Engine) MinimumRentExemption(ctx context.Context, size uint64) (uint64, error) {
	ctx, cancel := e.callCtx(ctx)
	defer cancel()
	return e.client.MinimumRentExemption(ctx, size)
}

// RequestAirdrop asks the network faucet for lamports. It is refused on
// the main network.
func (e *Engine) RequestAirdrop(ctx context.Context, account solana.PublicKey, lamports uint64) (solana.Signature, error) {
	if !e.network.AirdropAllowed() {
		return solana.Signature{}, walleterr.ErrAirdropRefused
	}
	ctx, cancel := e.callCtx(ctx)
	defer cancel()
	return e.client.RequestAirdrop(ctx, account, lamports)
}

// PrioritizationFees returns recent prioritization fees (micro-lamports per
// compute unit) paid by transactions touching accounts.
func (e *Engine) PrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]uint64, error) {
	ctx, cancel := e.callCtx(ctx)
	defer cancel()
	return e.client.RecentPrioritizationFees(ctx, accounts)
}
