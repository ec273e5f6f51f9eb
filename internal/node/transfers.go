package node

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/price"
	"github.com/Klingon-tech/solwallet/internal/state"
	"github.com/Klingon-tech/solwallet/internal/txengine"
	"github.com/Klingon-tech/solwallet/internal/wallet"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/gagliardetto/solana-go"
)

// SendRequest describes a transfer from the active account.
type SendRequest struct {
	// TokenID selects the entry to send; empty means the native entry.
	TokenID   string
	Recipient string
	// Amount is in human units ("1.5").
	Amount      string
	Memo        string
	PriorityFee uint64
}

// FeeEstimate is the cost of a transfer in lamports.
type FeeEstimate struct {
	Fee uint64
	// AccountRent is paid when the recipient's token account is created.
	AccountRent uint64
}

// Total returns fee plus rent.
func (f FeeEstimate) Total() uint64 { return f.Fee + f.AccountRent }

// transferPlan is a resolved SendRequest.
type transferPlan struct {
	network       types.Network
	eng           *txengine.Engine
	account       state.Account
	token         state.TokenEntry
	from          solana.PublicKey
	to            solana.PublicKey
	mint          solana.PublicKey
	source        solana.PublicKey
	amount        uint64
	createAccount bool
}

func (n *Node) plan(ctx context.Context, req SendRequest) (*transferPlan, error) {
	network := n.store.Network()
	eng, err := n.engine(network)
	if err != nil {
		return nil, err
	}
	account, err := n.ActiveAccount()
	if err != nil {
		return nil, err
	}
	from, err := types.ParseAddress(account.Address)
	if err != nil {
		return nil, err
	}
	to, err := types.ParseAddress(req.Recipient)
	if err != nil {
		return nil, err
	}

	p := &transferPlan{network: network, eng: eng, account: account, from: from, to: to}
	if req.TokenID == "" {
		native, ok := n.store.NativeEntry(network, account.Address)
		if !ok {
			return nil, fmt.Errorf("%w: no native entry for %s", walleterr.ErrNotFound, account.Address)
		}
		p.token = native
	} else {
		t, ok := n.store.Token(req.TokenID)
		if !ok || t.Network != network || t.AccountAddress != account.Address {
			return nil, fmt.Errorf("%w: token %s", walleterr.ErrNotFound, req.TokenID)
		}
		p.token = t
	}

	p.amount, err = types.ParseAmount(req.Amount, p.token.Decimals)
	if err != nil {
		return nil, err
	}
	if p.amount == 0 {
		return nil, fmt.Errorf("%w: amount must be positive", walleterr.ErrInvalidAmount)
	}
	if p.token.IsNative() {
		return p, nil
	}

	p.mint, err = types.ParseAddress(p.token.MintAddress)
	if err != nil {
		return nil, err
	}
	p.source, err = types.ParseAddress(p.token.TokenAccountAddress)
	if err != nil {
		return nil, err
	}
	ata, err := txengine.DeriveAssociatedAddress(to, p.mint)
	if err != nil {
		return nil, err
	}
	_, err = eng.TokenAccountBalance(ctx, ata)
	switch {
	case errors.Is(err, walleterr.ErrNotFound):
		p.createAccount = true
	case err != nil:
		return nil, err
	}
	return p, nil
}

func (p *transferPlan) instructions(req SendRequest) ([]solana.Instruction, error) {
	if p.token.IsNative() {
		return txengine.NativeTransferInstructions(p.from, p.to, p.amount, req.Memo, req.PriorityFee), nil
	}
	return txengine.TokenTransferInstructions(txengine.TokenTransferPlan{
		Sender:                 p.from,
		SenderTokenAccount:     p.source,
		Recipient:              p.to,
		Mint:                   p.mint,
		Amount:                 p.amount,
		Decimals:               p.token.Decimals,
		CreateRecipientAccount: p.createAccount,
		Memo:                   req.Memo,
		PriorityFee:            req.PriorityFee,
	})
}

func (p *transferPlan) label() string {
	if p.token.IsNative() {
		return "-" + types.FormatNativeAmount(p.amount) + " " + state.NativeSymbol
	}
	return "-" + types.FormatTokenAmount(p.amount, p.token.Decimals) + " " + p.token.Symbol
}

// EstimateFee prices req without signing it.
func (n *Node) EstimateFee(ctx context.Context, req SendRequest) (FeeEstimate, error) {
	p, err := n.plan(ctx, req)
	if err != nil {
		return FeeEstimate{}, err
	}
	ixs, err := p.instructions(req)
	if err != nil {
		return FeeEstimate{}, err
	}
	fee, err := p.eng.EstimateFee(ctx, ixs, p.from)
	if err != nil {
		return FeeEstimate{}, err
	}
	est := FeeEstimate{Fee: fee}
	if p.createAccount {
		rent, err := p.eng.MinimumRentExemption(ctx, txengine.TokenAccountSize)
		if err != nil {
			n.logger.Warn().Err(err).Msg("Rent query failed, using default token account rent")
			rent = txengine.CreateTokenAccountRentLamports
		}
		est.AccountRent = rent
	}
	return est, nil
}

// Send signs and submits req, records it in history as pending, then waits
// for confirmation and records the outcome. A confirmation timeout leaves
// the entry pending for RefreshHistory.
func (n *Node) Send(ctx context.Context, password []byte, req SendRequest) (state.HistoryEntry, error) {
	p, err := n.plan(ctx, req)
	if err != nil {
		return state.HistoryEntry{}, n.result(EventTxSubmitted, err, nil)
	}
	key, err := n.vault.SigningKey(password, p.account.DeriveIndex)
	if err != nil {
		return state.HistoryEntry{}, n.result(EventTxSubmitted, err, nil)
	}
	defer wallet.Wipe(key)

	var res txengine.SendResult
	if p.token.IsNative() {
		res, err = p.eng.SendNative(ctx, txengine.NativeTransfer{
			Signer:      key,
			From:        p.from,
			Recipient:   p.to,
			Lamports:    p.amount,
			Memo:        req.Memo,
			PriorityFee: req.PriorityFee,
		}, false)
	} else {
		res, err = p.eng.SendToken(ctx, txengine.TokenTransfer{
			Signer:                 key,
			From:                   p.from,
			SourceAccount:          p.source,
			Recipient:              p.to,
			Mint:                   p.mint,
			Amount:                 req.Amount,
			Decimals:               p.token.Decimals,
			CreateRecipientAccount: p.createAccount,
			Memo:                   req.Memo,
			PriorityFee:            req.PriorityFee,
		}, false)
	}
	if err != nil {
		return state.HistoryEntry{}, n.result(EventTxSubmitted, err, nil)
	}

	h, err := n.recordSubmitted(p.network, res.Signature, p.label())
	if err != nil {
		return state.HistoryEntry{}, err
	}
	return n.awaitConfirmation(ctx, p.eng, res.Signature, h, p.token)
}

// RequestAirdrop asks a test network for amount of native currency on the
// active account.
func (n *Node) RequestAirdrop(ctx context.Context, amount string) (state.HistoryEntry, error) {
	network := n.store.Network()
	lamports, err := types.ParseNativeAmount(amount)
	if err != nil {
		return state.HistoryEntry{}, n.result(EventTxSubmitted, err, nil)
	}
	eng, err := n.engine(network)
	if err != nil {
		return state.HistoryEntry{}, n.result(EventTxSubmitted, err, nil)
	}
	account, err := n.ActiveAccount()
	if err != nil {
		return state.HistoryEntry{}, n.result(EventTxSubmitted, err, nil)
	}
	owner, err := types.ParseAddress(account.Address)
	if err != nil {
		return state.HistoryEntry{}, n.result(EventTxSubmitted, err, nil)
	}
	sig, err := eng.RequestAirdrop(ctx, owner, lamports)
	if err != nil {
		return state.HistoryEntry{}, n.result(EventTxSubmitted, err, nil)
	}

	h, err := n.recordSubmitted(network, sig, "+"+types.FormatNativeAmount(lamports)+" "+state.NativeSymbol)
	if err != nil {
		return state.HistoryEntry{}, err
	}
	native, _ := n.store.NativeEntry(network, account.Address)
	return n.awaitConfirmation(ctx, eng, sig, h, native)
}

func (n *Node) recordSubmitted(network types.Network, sig solana.Signature, label string) (state.HistoryEntry, error) {
	h, err := n.store.AddHistory(network, sig.String(), label)
	if err != nil {
		return state.HistoryEntry{}, n.result(EventTxSubmitted, err, nil)
	}
	n.emit(Event{Kind: EventTxSubmitted, OK: true, Network: network, History: historyRef(h)})
	return h, nil
}

// awaitConfirmation waits for sig and moves h to its final status, then
// refreshes the balances the transfer touched.
func (n *Node) awaitConfirmation(ctx context.Context, eng *txengine.Engine, sig solana.Signature,
	h state.HistoryEntry, token state.TokenEntry) (state.HistoryEntry, error) {

	_, waitErr := eng.WaitForConfirmation(ctx, sig, 0)
	status := state.StatusSuccess
	switch {
	case waitErr == nil:
	case errors.Is(waitErr, walleterr.ErrTransactionFailed):
		status = state.StatusError
	default:
		status = state.StatusPending
	}

	updated, err := n.store.UpdateHistoryStatus(h.UUID, status)
	if err != nil {
		n.logger.Warn().Err(err).Str("signature", sig.String()).Msg("History entry gone before confirmation")
		updated = h
	}

	if waitErr == nil && token.UUID != "" {
		n.refreshEntries(ctx, token)
	}
	n.emit(Event{
		Kind:    EventTxStatus,
		OK:      waitErr == nil,
		Reason:  walleterr.Reason(waitErr),
		Network: h.Network,
		History: historyRef(updated),
	})
	return updated, waitErr
}

// refreshEntries refreshes token and the native entry of its account.
// Failures are logged; the next refresh catches up.
func (n *Node) refreshEntries(ctx context.Context, token state.TokenEntry) {
	ids := []string{token.UUID}
	if !token.IsNative() {
		if native, ok := n.store.NativeEntry(token.Network, token.AccountAddress); ok {
			ids = append(ids, native.UUID)
		}
	}
	for _, id := range ids {
		e, err := n.store.RefreshBalance(ctx, id)
		if err != nil {
			n.logger.Debug().Err(err).Str("token", id).Msg("Balance refresh after transfer failed")
			continue
		}
		n.emit(Event{Kind: EventBalance, OK: true, Network: e.Network, Token: tokenRef(e)})
	}
}

// Refresh re-reads every balance of the active account and reprices them.
func (n *Node) Refresh(ctx context.Context) error {
	network := n.store.Network()
	account, err := n.ActiveAccount()
	if err != nil {
		return n.result(EventRefresh, err, nil)
	}
	err = n.store.RefreshAllBalances(ctx, network, account.Address)
	n.store.RefreshQuotes(network)
	for _, t := range n.store.TokensFor(network, account.Address) {
		n.emit(Event{Kind: EventBalance, OK: true, Network: network, Token: tokenRef(t)})
	}
	return n.result(EventRefresh, err, nil)
}

// RefreshHistory re-checks every pending or failed history entry.
func (n *Node) RefreshHistory(ctx context.Context) error {
	err := n.store.RefreshAllPendingHistory(ctx)
	for _, h := range n.store.History() {
		n.emit(Event{Kind: EventHistory, OK: true, Network: h.Network, History: historyRef(h)})
	}
	return n.result(EventRefresh, err, nil)
}

// RefreshFees fetches the prioritization-fee levels of the active network
// and caches them.
func (n *Node) RefreshFees(ctx context.Context) (price.FeeLevels, error) {
	network := n.store.Network()
	eng, err := n.engine(network)
	if err != nil {
		return price.FeeLevels{}, err
	}
	fees, err := eng.PrioritizationFees(ctx, nil)
	if err != nil {
		return price.FeeLevels{}, err
	}
	levels := price.FeeLevelsFrom(fees)
	n.prices.SetFees(network, levels)
	return levels, nil
}
