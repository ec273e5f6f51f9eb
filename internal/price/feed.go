package price

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Klingon-tech/solwallet/internal/log"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// DefaultMaxAge is how old a published price may be before it is rejected.
const DefaultMaxAge = 60 * time.Second

// DefaultFeedURL is the public Hermes price service.
const DefaultFeedURL = "https://hermes.pyth.network"

// ErrStalePrice is returned for a price published longer ago than the
// feed's max age.
var ErrStalePrice = fmt.Errorf("%w: stale price", walleterr.ErrNotFound)

// Feed looks up spot prices by feed identifier.
type Feed interface {
	Price(ctx context.Context, feedID string) (Quote, error)
}

// HermesFeed reads prices from a Hermes HTTP endpoint.
type HermesFeed struct {
	base   string
	http   *http.Client
	clock  clock.Clock
	maxAge time.Duration
	cb     *gobreaker.CircuitBreaker
}

// HermesOption customises a HermesFeed.
type HermesOption func(*HermesFeed)

// WithClock replaces the time source used for staleness checks.
func WithClock(c clock.Clock) HermesOption {
	return func(f *HermesFeed) { f.clock = c }
}

// WithMaxAge sets the staleness limit.
func WithMaxAge(d time.Duration) HermesOption {
	return func(f *HermesFeed) {
		if d > 0 {
			f.maxAge = d
		}
	}
}

// WithFeedHTTPClient replaces the HTTP client.
func WithFeedHTTPClient(h *http.Client) HermesOption {
	return func(f *HermesFeed) { f.http = h }
}

// NewHermesFeed creates a feed reading from base.
func NewHermesFeed(base string, opts ...HermesOption) *HermesFeed {
	if base == "" {
		base = DefaultFeedURL
	}
	f := &HermesFeed{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{Timeout: 10 * time.Second},
		clock:  clock.NewDefaultClock(),
		maxAge: DefaultMaxAge,
		cb:     newCircuitBreaker(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func newCircuitBreaker() *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name: "price-feed",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				log.Price.Warn().Msg("Price feed seems down, pausing requests")
			}
			if from == gobreaker.StateHalfOpen && to == gobreaker.StateClosed {
				log.Price.Info().Msg("Price feed recovered")
			}
		},
	})
}

type hermesResponse struct {
	Parsed []struct {
		ID    string `json:"id"`
		Price struct {
			Price       string `json:"price"`
			Expo        int32  `json:"expo"`
			PublishTime int64  `json:"publish_time"`
		} `json:"price"`
	} `json:"parsed"`
}

// Price returns the latest price of feedID.
func (f *HermesFeed) Price(ctx context.Context, feedID string) (Quote, error) {
	v, err := f.cb.Execute(func() (interface{}, error) {
		return f.fetch(ctx, feedID)
	})
	if err != nil {
		return Quote{}, err
	}
	q := v.(Quote)
	if age := f.clock.Now().Sub(q.PublishTime); age > f.maxAge {
		return Quote{}, fmt.Errorf("%w: %s is %s old", ErrStalePrice, feedID, age.Truncate(time.Second))
	}
	return q, nil
}

func (f *HermesFeed) fetch(ctx context.Context, feedID string) (Quote, error) {
	q := url.Values{}
	q.Add("ids[]", feedID)
	q.Set("parsed", "true")
	endpoint := f.base + "/v2/updates/price/latest?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("price request: %w", err)
	}
	resp, err := f.http.Do(req)
	if err != nil {
		return Quote{}, walleterr.Transport("price feed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Quote{}, walleterr.Transport("price feed", fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	var body hermesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, walleterr.Transport("price feed", fmt.Errorf("decode: %w", err))
	}
	want := strings.TrimPrefix(strings.ToLower(feedID), "0x")
	for _, p := range body.Parsed {
		if strings.TrimPrefix(strings.ToLower(p.ID), "0x") != want {
			continue
		}
		mantissa, ok := new(big.Int).SetString(p.Price.Price, 10)
		if !ok {
			return Quote{}, fmt.Errorf("%w: bad price %q", walleterr.ErrValidation, p.Price.Price)
		}
		return Quote{
			Price:       decimal.NewFromBigInt(mantissa, p.Price.Expo),
			PublishTime: time.Unix(p.Price.PublishTime, 0),
		}, nil
	}
	return Quote{}, fmt.Errorf("%w: price feed %s", walleterr.ErrNotFound, feedID)
}
