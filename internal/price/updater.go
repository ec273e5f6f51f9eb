package price

import (
	"context"

	"github.com/Klingon-tech/solwallet/internal/log"
	"github.com/Klingon-tech/solwallet/internal/metrics"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// NativeFeedID is the SOL/USD price feed.
const NativeFeedID = "ef0d8b6fda2ceba41da15d4095d1da392a0d2f8ed0c6c7bc0f4cfac8c280b56d"

// maxConcurrentFetches bounds the token price fan-out.
const maxConcurrentFetches = 4

// FeeSource reports recent prioritization fees.
type FeeSource interface {
	PrioritizationFees(ctx context.Context, accounts []solana.PublicKey) ([]uint64, error)
}

// Updater refreshes a Cache from a Feed. None of its methods return errors:
// failures are logged and counted, and the cache keeps its old values.
type Updater struct {
	cache        *Cache
	feed         Feed
	nativeFeedID string
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// NewUpdater creates an updater. An empty nativeFeedID means NativeFeedID.
func NewUpdater(cache *Cache, feed Feed, nativeFeedID string, m *metrics.Metrics) *Updater {
	if nativeFeedID == "" {
		nativeFeedID = NativeFeedID
	}
	return &Updater{
		cache:        cache,
		feed:         feed,
		nativeFeedID: nativeFeedID,
		metrics:      m,
		logger:       log.Price,
	}
}

// UpdateNative refreshes the native price.
func (u *Updater) UpdateNative(ctx context.Context) {
	q, err := u.feed.Price(ctx, u.nativeFeedID)
	if err != nil {
		u.metrics.PriceFailed("native")
		u.logger.Debug().Err(err).Msg("Native price refresh failed")
		return
	}
	u.cache.SetNativePrice(q)
}

// UpdateTokens refreshes every registered token price concurrently. One
// failing feed does not hold back the others.
func (u *Updater) UpdateTokens(ctx context.Context) {
	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for mint, feedID := range u.cache.TokenFeeds() {
		if feedID == "" {
			continue
		}
		g.Go(func() error {
			q, err := u.feed.Price(ctx, feedID)
			if err != nil {
				u.metrics.PriceFailed("token")
				u.logger.Debug().Err(err).Str("mint", mint).Msg("Token price refresh failed")
				return nil
			}
			u.cache.SetTokenPrice(mint, q)
			return nil
		})
	}
	_ = g.Wait()
}

// UpdateFees refreshes the prioritization fee levels of network.
func (u *Updater) UpdateFees(ctx context.Context, network types.Network, src FeeSource) {
	fees, err := src.PrioritizationFees(ctx, nil)
	if err != nil {
		u.metrics.PriceFailed("fees")
		u.logger.Debug().Err(err).Str("network", string(network)).Msg("Fee refresh failed")
		return
	}
	u.cache.SetFees(network, FeeLevelsFrom(fees))
}
