package config

import (
	"fmt"
	"net/url"

	"github.com/Klingon-tech/solwallet/internal/log"
	"github.com/Klingon-tech/solwallet/internal/storage"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
)

// Validate checks the configuration for operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if !cfg.Network.Valid() {
		return fmt.Errorf("%w: network must be main, test or dev, got %q", walleterr.ErrInvalidNetwork, cfg.Network)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	switch cfg.Storage.Backend {
	case storage.BackendBadger, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("storage.backend must be badger, bolt or memory, got %q", cfg.Storage.Backend)
	}

	for _, n := range types.Networks() {
		ep := cfg.Endpoints.For(n)
		if err := validateURL(ep.RPC, "endpoints."+string(n)+".rpc", "http", "https"); err != nil {
			return err
		}
		if err := validateURL(ep.WS, "endpoints."+string(n)+".ws", "ws", "wss"); err != nil {
			return err
		}
	}

	if cfg.Tx.Timeout <= 0 {
		return fmt.Errorf("tx.timeout must be positive")
	}
	if cfg.Tx.ConfirmAttempts <= 0 {
		return fmt.Errorf("tx.confirm_attempts must be positive")
	}
	if cfg.Tx.PollRate <= 0 {
		return fmt.Errorf("tx.poll_rate must be positive")
	}

	if err := validateURL(cfg.Price.FeedURL, "price.feed_url", "http", "https"); err != nil {
		return err
	}
	if cfg.Price.RefreshInterval <= 0 {
		return fmt.Errorf("price.refresh_interval must be positive")
	}
	if cfg.Metadata.URL != "" {
		if err := validateURL(cfg.Metadata.URL, "metadata.url", "http", "https"); err != nil {
			return err
		}
	}

	if !log.ValidLevel(cfg.Log.Level) {
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	if cfg.Vault.Memory == 0 || cfg.Vault.Iterations == 0 || cfg.Vault.Parallelism == 0 {
		return fmt.Errorf("vault parameters must be positive")
	}
	return nil
}

func validateURL(raw, field string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s: malformed URL %q", field, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s: scheme must be one of %v", field, schemes)
}
