// Package config handles wallet configuration.
//
// Values come, in increasing precedence, from the built-in defaults, an
// optional config file and SOLWALLET_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/Klingon-tech/solwallet/internal/wallet"
	"github.com/Klingon-tech/solwallet/pkg/types"
)

// ConfigFileName is the config file looked up in the data directory.
const ConfigFileName = "solwallet.yaml"

// Config holds the wallet runtime configuration.
type Config struct {
	Network types.Network `mapstructure:"network"`
	DataDir string        `mapstructure:"datadir"`

	Storage   StorageConfig   `mapstructure:"storage"`
	Endpoints EndpointsConfig `mapstructure:"endpoints"`
	Tx        TxConfig        `mapstructure:"tx"`
	Price     PriceConfig     `mapstructure:"price"`
	Metadata  MetadataConfig  `mapstructure:"metadata"`
	Log       LogConfig       `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Vault     VaultConfig     `mapstructure:"vault"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Backend string `mapstructure:"backend"` // badger, bolt or memory
}

// Endpoint is the RPC and websocket URL pair of one network.
type Endpoint struct {
	RPC string `mapstructure:"rpc"`
	WS  string `mapstructure:"ws"`
}

// EndpointsConfig holds the endpoints of every network.
type EndpointsConfig struct {
	Main Endpoint `mapstructure:"main"`
	Test Endpoint `mapstructure:"test"`
	Dev  Endpoint `mapstructure:"dev"`
}

// For returns the endpoint of n.
func (e EndpointsConfig) For(n types.Network) Endpoint {
	switch n {
	case types.NetworkTest:
		return e.Test
	case types.NetworkDev:
		return e.Dev
	default:
		return e.Main
	}
}

// TxConfig tunes the transaction engine.
type TxConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"`
	ConfirmAttempts int           `mapstructure:"confirm_attempts"`
	PollRate        int           `mapstructure:"poll_rate"` // status polls per second
}

// PriceConfig configures the spot price feed.
type PriceConfig struct {
	FeedURL         string        `mapstructure:"feed_url"`
	NativeFeedID    string        `mapstructure:"native_feed_id"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	MaxAge          time.Duration `mapstructure:"max_age"`
}

// MetadataConfig configures the token metadata endpoint. It is disabled
// without an API key.
type MetadataConfig struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// Enabled reports whether metadata lookups are configured.
func (m MetadataConfig) Enabled() bool { return m.URL != "" && m.APIKey != "" }

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	JSON  bool   `mapstructure:"json"`
}

// MetricsConfig holds the prometheus listener. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// VaultConfig holds the Argon2id cost parameters.
type VaultConfig struct {
	Memory      uint32 `mapstructure:"memory"` // KiB
	Iterations  uint32 `mapstructure:"iterations"`
	Parallelism uint8  `mapstructure:"parallelism"`
}

// Params converts the vault settings to encryption parameters.
func (v VaultConfig) Params() wallet.EncryptionParams {
	return wallet.EncryptionParams{
		Memory:      v.Memory,
		Iterations:  v.Iterations,
		Parallelism: v.Parallelism,
	}
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.solwallet
//	macOS:   ~/Library/Application Support/Solwallet
//	Windows: %APPDATA%\Solwallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".solwallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "Solwallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "Solwallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "Solwallet")
	default:
		return filepath.Join(home, ".solwallet")
	}
}

// DBDir returns the database directory.
func (c *Config) DBDir() string {
	return filepath.Join(c.DataDir, "db")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, ConfigFileName)
}

// EnsureDataDirs creates the data directory structure. It is idempotent.
func EnsureDataDirs(cfg *Config) error {
	for _, dir := range []string{cfg.DataDir, cfg.DBDir(), cfg.LogsDir()} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}
