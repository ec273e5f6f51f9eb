package config

import (
	"time"

	"github.com/Klingon-tech/solwallet/internal/price"
	"github.com/Klingon-tech/solwallet/internal/storage"
	"github.com/Klingon-tech/solwallet/internal/txengine"
	"github.com/Klingon-tech/solwallet/internal/wallet"
	"github.com/Klingon-tech/solwallet/pkg/types"
)

// DefaultMetadataURL is the public DAS asset endpoint.
const DefaultMetadataURL = "https://mainnet.helius-rpc.com"

// Default returns the default configuration with network active.
func Default(network types.Network) *Config {
	vault := wallet.DefaultParams()
	return &Config{
		Network: network,
		DataDir: DefaultDataDir(),
		Storage: StorageConfig{Backend: storage.BackendBadger},
		Endpoints: EndpointsConfig{
			Main: endpointFor(types.NetworkMain),
			Test: endpointFor(types.NetworkTest),
			Dev:  endpointFor(types.NetworkDev),
		},
		Tx: TxConfig{
			Timeout:         txengine.DefaultTimeout,
			ConfirmAttempts: txengine.DefaultConfirmAttempts,
			PollRate:        txengine.DefaultPollRate,
		},
		Price: PriceConfig{
			FeedURL:         price.DefaultFeedURL,
			NativeFeedID:    price.NativeFeedID,
			RefreshInterval: time.Minute,
			MaxAge:          price.DefaultMaxAge,
		},
		Metadata: MetadataConfig{URL: DefaultMetadataURL},
		Log:      LogConfig{Level: "info"},
		Vault: VaultConfig{
			Memory:      vault.Memory,
			Iterations:  vault.Iterations,
			Parallelism: vault.Parallelism,
		},
	}
}

func endpointFor(n types.Network) Endpoint {
	return Endpoint{RPC: n.DefaultRPCURL(), WS: n.DefaultWSURL()}
}
