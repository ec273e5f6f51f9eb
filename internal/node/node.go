// Package node wires the wallet engine together and exposes it to front
// ends: requests go in as plain method calls, results come back as return
// values and as Events.
package node

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/Klingon-tech/solwallet/config"
	"github.com/Klingon-tech/solwallet/internal/log"
	"github.com/Klingon-tech/solwallet/internal/metrics"
	"github.com/Klingon-tech/solwallet/internal/price"
	"github.com/Klingon-tech/solwallet/internal/state"
	"github.com/Klingon-tech/solwallet/internal/storage"
	"github.com/Klingon-tech/solwallet/internal/txengine"
	"github.com/Klingon-tech/solwallet/internal/wallet"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"
)

// eventBuffer is the capacity of the event channel. Events are dropped
// when nobody drains it.
const eventBuffer = 128

// MetadataSource looks up token names and icons.
type MetadataSource interface {
	Asset(ctx context.Context, mint string) (price.AssetMetadata, error)
	AssetBatch(ctx context.Context, mints []string) ([]price.AssetMetadata, error)
}

// Deps are the collaborators of a Node. Open builds the production set
// from a config; tests pass fakes.
type Deps struct {
	DB storage.DB
	// OwnsDB makes Stop close DB.
	OwnsDB      bool
	Clients     map[types.Network]txengine.Client
	Subscribers map[types.Network]txengine.Subscriber
	// Feed is optional; without it prices are never refreshed.
	Feed price.Feed
	// Metadata is optional; without it tokens keep their mint as symbol.
	Metadata   MetadataSource
	Registerer prometheus.Registerer
	Clock      clock.Clock
	// Limiter paces confirmation polls of every network. Nil means the
	// configured poll rate.
	Limiter ratelimit.Limiter
}

// Node is a fully wired wallet.
type Node struct {
	cfg    *config.Config
	logger zerolog.Logger

	db      storage.DB
	ownsDB  bool
	vault   *wallet.Vault
	store   *state.Store
	engines map[types.Network]*txengine.Engine
	prices  *price.Cache
	updater *price.Updater
	meta    MetadataSource
	metrics *metrics.Metrics
	clock   clock.Clock

	// watchable marks networks with a push subscription endpoint.
	watchable map[types.Network]bool

	events chan Event

	// Lifecycle
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	watchCancel context.CancelFunc
	wg          sync.WaitGroup
	stopOnce    sync.Once
}

// New creates a Node over deps and loads the persisted wallet state. It
// does not start background work; call Start for that.
func New(cfg *config.Config, deps Deps) (*Node, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is nil", walleterr.ErrValidation)
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("%w: node needs a database", walleterr.ErrValidation)
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewDefaultClock()
	}
	m := metrics.New(deps.Registerer)

	vault := wallet.NewVault(deps.DB, cfg.Vault.Params())
	if err := vault.Load(); err != nil {
		return nil, fmt.Errorf("load vault: %w", err)
	}

	limiter := deps.Limiter
	if limiter == nil {
		limiter = ratelimit.New(cfg.Tx.PollRate)
	}
	engines := make(map[types.Network]*txengine.Engine)
	watchable := make(map[types.Network]bool)
	chains := make(map[types.Network]state.Chain)
	for n, c := range deps.Clients {
		if c == nil {
			continue
		}
		eng := txengine.New(c, deps.Subscribers[n], txengine.Config{
			Network:         n,
			Timeout:         cfg.Tx.Timeout,
			ConfirmAttempts: cfg.Tx.ConfirmAttempts,
			Limiter:         limiter,
			Metrics:         m,
		})
		engines[n] = eng
		chains[n] = eng
		watchable[n] = deps.Subscribers[n] != nil
	}

	cache := price.NewCache()
	var updater *price.Updater
	if deps.Feed != nil {
		updater = price.NewUpdater(cache, deps.Feed, cfg.Price.NativeFeedID, m)
	}

	store, err := state.New(state.Config{
		DB:      deps.DB,
		Vault:   vault,
		Chains:  chains,
		Prices:  cache,
		Network: cfg.Network,
		Metrics: m,
		Clock:   deps.Clock,
	})
	if err != nil {
		return nil, err
	}
	if err := store.Load(); err != nil {
		store.Close()
		return nil, fmt.Errorf("load wallet state: %w", err)
	}

	n := &Node{
		cfg:       cfg,
		logger:    log.Node,
		db:        deps.DB,
		ownsDB:    deps.OwnsDB,
		vault:     vault,
		store:     store,
		engines:   engines,
		watchable: watchable,
		prices:    cache,
		updater:   updater,
		meta:      deps.Metadata,
		metrics:   m,
		clock:     deps.Clock,
		events:    make(chan Event, eventBuffer),
	}
	n.registerFeeds()

	n.logger.Info().
		Str("network", string(cfg.Network)).
		Bool("setup", vault.Exists()).
		Int("accounts", len(store.Accounts())).
		Msg("Wallet loaded")
	return n, nil
}

// Open builds the production dependencies from cfg (database, RPC and
// websocket adapters, price feed, metadata client) and creates a Node.
func Open(cfg *config.Config, reg prometheus.Registerer) (*Node, error) {
	if err := config.EnsureDataDirs(cfg); err != nil {
		return nil, fmt.Errorf("creating data dirs: %w", err)
	}
	db, err := storage.Open(cfg.Storage.Backend, cfg.DBDir())
	if err != nil {
		return nil, fmt.Errorf("open database at %s: %w", cfg.DBDir(), err)
	}

	deps := Deps{
		DB:          db,
		OwnsDB:      true,
		Clients:     make(map[types.Network]txengine.Client),
		Subscribers: make(map[types.Network]txengine.Subscriber),
		Feed: price.NewHermesFeed(cfg.Price.FeedURL,
			price.WithMaxAge(cfg.Price.MaxAge),
			price.WithFeedHTTPClient(&http.Client{Timeout: cfg.Tx.Timeout})),
		Registerer: reg,
	}
	for _, network := range types.Networks() {
		ep := cfg.Endpoints.For(network)
		deps.Clients[network] = txengine.NewSolanaClient(ep.RPC)
		if ep.WS != "" {
			deps.Subscribers[network] = txengine.NewSolanaSubscriber(ep.WS)
		}
	}
	if cfg.Metadata.Enabled() {
		deps.Metadata = price.NewMetadataClient(cfg.Metadata.URL, cfg.Metadata.APIKey)
	}

	n, err := New(cfg, deps)
	if err != nil {
		db.Close()
		return nil, err
	}
	return n, nil
}

// Start launches the price refresher and the active-account watcher.
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ctx != nil {
		return fmt.Errorf("node already started")
	}
	n.ctx, n.cancel = context.WithCancel(ctx)

	if n.updater != nil {
		n.wg.Add(1)
		go func() {
			defer n.wg.Done()
			n.runPriceLoop(n.ctx, n.cfg.Price.RefreshInterval)
		}()
	}
	n.restartWatcherLocked()

	n.logger.Info().
		Str("network", string(n.store.Network())).
		Bool("prices", n.updater != nil).
		Msg("Node started")
	return nil
}

// Stop cancels background work, drains pending writes and closes the
// database if the node owns it. The event channel is left open.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		n.mu.Lock()
		if n.cancel != nil {
			n.cancel()
		}
		n.mu.Unlock()
		n.wg.Wait()

		n.store.Close()
		n.vault.Wait()
		n.prices.Reset()
		if n.ownsDB {
			if err := n.db.Close(); err != nil {
				n.logger.Error().Err(err).Msg("Closing database")
			}
		}
		n.logger.Info().Msg("Node stopped")
	})
}

// Events returns the event stream. It is never closed.
func (n *Node) Events() <-chan Event { return n.events }

// Store exposes the reconciliation layer for read access.
func (n *Node) Store() *state.Store { return n.store }

// Prices exposes the price and fee cache.
func (n *Node) Prices() *price.Cache { return n.prices }

// Network returns the active network.
func (n *Node) Network() types.Network { return n.store.Network() }

// IsSetup reports whether a secret has been stored.
func (n *Node) IsSetup() bool { return n.vault.Exists() }

// Fees returns the cached prioritization-fee levels of the active network.
func (n *Node) Fees() price.FeeLevels { return n.prices.Fees(n.store.Network()) }

func (n *Node) engine(network types.Network) (*txengine.Engine, error) {
	eng, ok := n.engines[network]
	if !ok {
		return nil, fmt.Errorf("%w: no endpoint for network %s", walleterr.ErrTransport, network)
	}
	return eng, nil
}

// registerFeeds tells the price cache about every token with a feed id.
func (n *Node) registerFeeds() {
	for _, network := range types.Networks() {
		for _, t := range n.store.TokensFor(network, "") {
			if t.FeedID != "" && !t.IsNative() {
				n.prices.SetTokenFeed(t.MintAddress, t.FeedID)
			}
		}
	}
}
