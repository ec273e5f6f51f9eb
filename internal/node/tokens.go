package node

import (
	"context"
	"errors"

	"github.com/Klingon-tech/solwallet/internal/price"
	"github.com/Klingon-tech/solwallet/internal/state"
	"github.com/Klingon-tech/solwallet/internal/txengine"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/gagliardetto/solana-go"
)

// AddToken adds mint to the active account on the active network. When the
// account holds no token account for mint yet, the associated address is
// used with a zero balance. feedID, if set, registers a price feed.
func (n *Node) AddToken(ctx context.Context, mint, feedID string) (state.TokenEntry, error) {
	t, err := n.addToken(ctx, mint, feedID)
	return t, n.result(EventToken, err, func(e *Event) { e.Token = tokenRef(t) })
}

func (n *Node) addToken(ctx context.Context, mint, feedID string) (state.TokenEntry, error) {
	network := n.store.Network()
	mintKey, err := types.ParseAddress(mint)
	if err != nil {
		return state.TokenEntry{}, err
	}
	eng, err := n.engine(network)
	if err != nil {
		return state.TokenEntry{}, err
	}
	account, err := n.ActiveAccount()
	if err != nil {
		return state.TokenEntry{}, err
	}
	owner, err := types.ParseAddress(account.Address)
	if err != nil {
		return state.TokenEntry{}, err
	}

	held, err := eng.FetchAccountToken(ctx, owner, mintKey)
	if errors.Is(err, walleterr.ErrNotFound) {
		held, err = unheldToken(ctx, eng, owner, mintKey)
	}
	if err != nil {
		return state.TokenEntry{}, err
	}
	var md *price.AssetMetadata
	if n.meta != nil {
		m, err := n.meta.Asset(ctx, held.Mint.String())
		if err != nil {
			n.logger.Debug().Err(err).Stringer("mint", held.Mint).Msg("Token metadata lookup failed")
		} else {
			md = &m
		}
	}
	return n.storeToken(network, account, held, md, feedID)
}

func unheldToken(ctx context.Context, eng *txengine.Engine, owner, mint solana.PublicKey) (txengine.AccountToken, error) {
	decimals, err := eng.MintDecimals(ctx, mint)
	if err != nil {
		return txengine.AccountToken{}, err
	}
	ata, err := txengine.DeriveAssociatedAddress(owner, mint)
	if err != nil {
		return txengine.AccountToken{}, err
	}
	return txengine.AccountToken{TokenAccount: ata, Mint: mint, Decimals: decimals}, nil
}

// storeToken records held for account. md, when known, supplies the symbol
// and icon.
func (n *Node) storeToken(network types.Network, account state.Account,
	held txengine.AccountToken, md *price.AssetMetadata, feedID string) (state.TokenEntry, error) {

	entry := state.TokenEntry{
		Network:             network,
		Symbol:              types.ShortAddress(held.Mint.String()),
		AccountAddress:      account.Address,
		TokenAccountAddress: held.TokenAccount.String(),
		MintAddress:         held.Mint.String(),
		Decimals:            held.Decimals,
		Balance:             held.Amount,
		FeedID:              feedID,
	}
	if md != nil {
		if md.Symbol != "" {
			entry.Symbol = md.Symbol
		}
		entry.Icon = md.Icon
	}
	if feedID != "" {
		n.prices.SetTokenFeed(entry.MintAddress, feedID)
	}
	return n.store.AddToken(entry)
}

// DiscoverTokens adds every token the active account holds that is not
// listed yet and returns the new entries.
func (n *Node) DiscoverTokens(ctx context.Context) ([]state.TokenEntry, error) {
	network := n.store.Network()
	eng, err := n.engine(network)
	if err != nil {
		return nil, n.result(EventToken, err, nil)
	}
	account, err := n.ActiveAccount()
	if err != nil {
		return nil, n.result(EventToken, err, nil)
	}
	owner, err := types.ParseAddress(account.Address)
	if err != nil {
		return nil, n.result(EventToken, err, nil)
	}
	held, err := eng.FetchAccountTokens(ctx, owner)
	if err != nil {
		return nil, n.result(EventToken, err, nil)
	}

	var fresh []txengine.AccountToken
	var mints []string
	for _, h := range held {
		if _, ok := n.store.TokenByMint(network, account.Address, h.Mint); ok {
			continue
		}
		fresh = append(fresh, h)
		mints = append(mints, h.Mint.String())
	}
	metadata := n.metadataBatch(ctx, mints)

	var added []state.TokenEntry
	for _, h := range fresh {
		var md *price.AssetMetadata
		if m, ok := metadata[h.Mint.String()]; ok {
			md = &m
		}
		t, err := n.storeToken(network, account, h, md, "")
		if err != nil {
			return added, n.result(EventToken, err, nil)
		}
		added = append(added, t)
		n.emit(Event{Kind: EventToken, OK: true, Network: network, Token: tokenRef(t)})
	}
	return added, nil
}

// metadataBatch looks up mints in one request. Failures only cost the
// symbols and icons.
func (n *Node) metadataBatch(ctx context.Context, mints []string) map[string]price.AssetMetadata {
	if n.meta == nil || len(mints) == 0 {
		return nil
	}
	mds, err := n.meta.AssetBatch(ctx, mints)
	if err != nil {
		n.logger.Debug().Err(err).Int("mints", len(mints)).Msg("Token metadata batch lookup failed")
		return nil
	}
	out := make(map[string]price.AssetMetadata, len(mds))
	for _, md := range mds {
		out[md.Mint] = md
	}
	return out
}

// RemoveToken removes a non-native token entry.
func (n *Node) RemoveToken(id string) error {
	t, _ := n.store.Token(id)
	err := n.store.RemoveToken(id)
	return n.result(EventTokenRemoved, err, func(e *Event) { e.Token = tokenRef(t) })
}

// TokenHolders returns how many token accounts exist for mint on the
// active network.
func (n *Node) TokenHolders(ctx context.Context, mint string) (int, error) {
	mintKey, err := types.ParseAddress(mint)
	if err != nil {
		return 0, err
	}
	eng, err := n.engine(n.store.Network())
	if err != nil {
		return 0, err
	}
	return eng.NumberOfTokenHolders(ctx, mintKey)
}
