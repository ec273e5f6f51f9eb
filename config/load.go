package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. SOLWALLET_TX_TIMEOUT=45s.
const EnvPrefix = "SOLWALLET"

// Load builds the configuration. path names a config file (yaml, toml or
// json); when empty, solwallet.yaml in the data directory is used if it
// exists.
func Load(path string) (*Config, error) {
	vip := viper.New()
	vip.SetEnvPrefix(EnvPrefix)
	vip.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	vip.AutomaticEnv()

	setDefaults(vip, Default(types.NetworkMain))

	if path == "" {
		candidate := (&Config{DataDir: vip.GetString("datadir")}).ConfigFile()
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}
	if path != "" {
		vip.SetConfigFile(path)
		if err := vip.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := vip.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	network, err := types.ParseNetwork(string(cfg.Network))
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.Network = network

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(vip *viper.Viper, d *Config) {
	vip.SetDefault("network", string(d.Network))
	vip.SetDefault("datadir", d.DataDir)
	vip.SetDefault("storage.backend", d.Storage.Backend)
	for _, n := range types.Networks() {
		ep := d.Endpoints.For(n)
		vip.SetDefault("endpoints."+string(n)+".rpc", ep.RPC)
		vip.SetDefault("endpoints."+string(n)+".ws", ep.WS)
	}
	vip.SetDefault("tx.timeout", d.Tx.Timeout.String())
	vip.SetDefault("tx.confirm_attempts", d.Tx.ConfirmAttempts)
	vip.SetDefault("tx.poll_rate", d.Tx.PollRate)
	vip.SetDefault("price.feed_url", d.Price.FeedURL)
	vip.SetDefault("price.native_feed_id", d.Price.NativeFeedID)
	vip.SetDefault("price.refresh_interval", d.Price.RefreshInterval.String())
	vip.SetDefault("price.max_age", d.Price.MaxAge.String())
	vip.SetDefault("metadata.url", d.Metadata.URL)
	vip.SetDefault("metadata.api_key", d.Metadata.APIKey)
	vip.SetDefault("log.level", d.Log.Level)
	vip.SetDefault("log.file", d.Log.File)
	vip.SetDefault("log.json", d.Log.JSON)
	vip.SetDefault("metrics.addr", d.Metrics.Addr)
	vip.SetDefault("vault.memory", d.Vault.Memory)
	vip.SetDefault("vault.iterations", d.Vault.Iterations)
	vip.SetDefault("vault.parallelism", d.Vault.Parallelism)
}

// ErrConfigExists is returned by WriteDefault when path already exists.
var ErrConfigExists = errors.New("config file already exists")

// WriteDefault writes the default configuration of network to path. An
// existing file is left untouched.
func WriteDefault(path string, network types.Network) error {
	if _, err := os.Stat(path); err == nil {
		return ErrConfigExists
	}
	d := Default(network)
	vip := viper.New()
	setDefaults(vip, d)
	if err := vip.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}

// SaveNetwork sets the network of the config file at path. A missing file
// is created from the defaults.
func SaveNetwork(path string, network types.Network) error {
	if !network.Valid() {
		return fmt.Errorf("%w: %q", walleterr.ErrInvalidNetwork, network)
	}
	vip := viper.New()
	setDefaults(vip, Default(network))
	if _, err := os.Stat(path); err == nil {
		vip.SetConfigFile(path)
		if err := vip.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file %s: %w", path, err)
		}
	}
	vip.Set("network", string(network))
	if err := vip.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
