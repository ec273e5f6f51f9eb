package node

import (
	"context"
	"errors"
	"time"

	"github.com/Klingon-tech/solwallet/internal/txengine"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/gagliardetto/solana-go"
)

// watchRetryDelay is the pause before resubscribing after a dropped stream.
const watchRetryDelay = 5 * time.Second

// runPriceLoop refreshes prices and fee levels every interval and reprices
// the cached balances.
func (n *Node) runPriceLoop(ctx context.Context, interval time.Duration) {
	for {
		network := n.store.Network()
		n.updater.UpdateNative(ctx)
		n.updater.UpdateTokens(ctx)
		if eng, err := n.engine(network); err == nil {
			n.updater.UpdateFees(ctx, network, eng)
		}
		n.store.RefreshQuotes(network)

		select {
		case <-ctx.Done():
			return
		case <-n.clock.TickAfter(interval):
		}
	}
}

func (n *Node) restartWatcher() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.restartWatcherLocked()
}

// restartWatcherLocked replaces the active-account watcher. Before Start
// it does nothing.
func (n *Node) restartWatcherLocked() {
	if n.ctx == nil || n.ctx.Err() != nil {
		return
	}
	if n.watchCancel != nil {
		n.watchCancel()
		n.watchCancel = nil
	}

	account, ok := n.store.ActiveAccount()
	if !ok {
		return
	}
	network := n.store.Network()
	if !n.watchable[network] {
		return
	}
	eng, err := n.engine(network)
	if err != nil {
		return
	}
	native, ok := n.store.NativeEntry(network, account.Address)
	if !ok {
		return
	}
	owner, err := types.ParseAddress(account.Address)
	if err != nil {
		return
	}

	ctx, cancel := context.WithCancel(n.ctx)
	n.watchCancel = cancel
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.runWatcher(ctx, eng, owner, native.UUID)
	}()
}

// runWatcher applies pushed lamport balances to the native entry until ctx
// is done, resubscribing after dropped streams.
func (n *Node) runWatcher(ctx context.Context, eng *txengine.Engine, owner solana.PublicKey, nativeID string) {
	logger := n.logger.With().Str("address", owner.String()).Str("network", string(eng.Network())).Logger()
	logger.Debug().Msg("Watching account")

	for {
		err := eng.WatchAccount(ctx, owner, func(u txengine.AccountUpdate) {
			e, ok := n.store.ApplyBalance(nativeID, u.Lamports)
			if !ok {
				return
			}
			n.store.QueueTokenWrite(e)
			n.emit(Event{Kind: EventBalance, OK: true, Network: e.Network, Token: tokenRef(e)})
		})
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return
		}
		logger.Warn().Err(err).Dur("retry", watchRetryDelay).Msg("Account subscription dropped")

		select {
		case <-ctx.Done():
			return
		case <-n.clock.TickAfter(watchRetryDelay):
		}
	}
}
