// Package price keeps the wallet's quote-currency prices, prioritization
// fee levels and token display metadata.
//
// Everything here is best effort. A missing or stale price never fails a
// send, estimate or refresh.
package price

import (
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/shopspring/decimal"
)

// Quote is a price in the quote currency at a point in time.
type Quote struct {
	Price       decimal.Decimal
	PublishTime time.Time
}

// FeeLevels are prioritization fees in micro-lamports per compute unit.
type FeeLevels struct {
	Low    uint64
	Medium uint64
	High   uint64
}

// FeeLevelsFrom picks the 25th, 50th and 75th percentile of recent fees.
func FeeLevelsFrom(fees []uint64) FeeLevels {
	if len(fees) == 0 {
		return FeeLevels{}
	}
	sorted := append([]uint64(nil), fees...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	at := func(p int) uint64 { return sorted[(len(sorted)-1)*p/100] }
	return FeeLevels{Low: at(25), Medium: at(50), High: at(75)}
}

type tokenPrice struct {
	feedID string
	quote  Quote
	ok     bool
}

// Cache holds prices and fee levels behind a read-mostly lock. It is owned
// by whoever creates it; there is no package-level instance.
type Cache struct {
	mu       sync.RWMutex
	native   Quote
	nativeOK bool
	tokens   map[string]*tokenPrice
	fees     map[types.Network]FeeLevels
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	c := &Cache{}
	c.Reset()
	return c
}

// Reset drops everything.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.native = Quote{}
	c.nativeOK = false
	c.tokens = make(map[string]*tokenPrice)
	c.fees = make(map[types.Network]FeeLevels)
}

// NativePrice returns the price of one native display unit.
func (c *Cache) NativePrice() (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.native, c.nativeOK
}

// SetNativePrice stores the native price.
func (c *Cache) SetNativePrice(q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.native = q
	c.nativeOK = true
}

// SetTokenFeed registers the price feed of mint. Registering a different
// feed drops the cached price.
func (c *Cache) SetTokenFeed(mint, feedID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tp, ok := c.tokens[mint]; ok && tp.feedID == feedID {
		return
	}
	c.tokens[mint] = &tokenPrice{feedID: feedID}
}

// TokenFeeds returns mint -> feed id for every registered token.
func (c *Cache) TokenFeeds() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.tokens))
	for mint, tp := range c.tokens {
		out[mint] = tp.feedID
	}
	return out
}

// SetTokenPrice stores the price of mint. Unregistered mints are ignored.
func (c *Cache) SetTokenPrice(mint string, q Quote) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if tp, ok := c.tokens[mint]; ok {
		tp.quote = q
		tp.ok = true
	}
}

// TokenPrice returns the price of one display unit of mint.
func (c *Cache) TokenPrice(mint string) (Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tp, ok := c.tokens[mint]
	if !ok || !tp.ok {
		return Quote{}, false
	}
	return tp.quote, true
}

// QuoteValue converts a base-unit balance into the quote currency. An empty
// mint means the native currency.
func (c *Cache) QuoteValue(mint string, amount uint64, decimals uint8) (decimal.Decimal, bool) {
	var (
		q  Quote
		ok bool
	)
	if mint == "" {
		q, ok = c.NativePrice()
	} else {
		q, ok = c.TokenPrice(mint)
	}
	if !ok {
		return decimal.Zero, false
	}
	units := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
	return units.Mul(q.Price), true
}

// Fees returns the fee levels last seen on network.
func (c *Cache) Fees(network types.Network) FeeLevels {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fees[network]
}

// SetFees stores the fee levels of network.
func (c *Cache) SetFees(network types.Network, f FeeLevels) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fees[network] = f
}
