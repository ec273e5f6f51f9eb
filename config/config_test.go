package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Valid(t *testing.T) {
	for _, n := range types.Networks() {
		cfg := Default(n)
		require.NoError(t, Validate(cfg), "network %s", n)
		assert.Equal(t, n.DefaultRPCURL(), cfg.Endpoints.For(n).RPC)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"network", func(c *Config) { c.Network = "mainnet" }},
		{"datadir", func(c *Config) { c.DataDir = "" }},
		{"backend", func(c *Config) { c.Storage.Backend = "sqlite" }},
		{"rpc url", func(c *Config) { c.Endpoints.Dev.RPC = "not a url" }},
		{"ws scheme", func(c *Config) { c.Endpoints.Test.WS = "https://api.testnet.solana.com" }},
		{"timeout", func(c *Config) { c.Tx.Timeout = 0 }},
		{"attempts", func(c *Config) { c.Tx.ConfirmAttempts = -1 }},
		{"poll rate", func(c *Config) { c.Tx.PollRate = 0 }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"vault", func(c *Config) { c.Vault.Iterations = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(types.NetworkMain)
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}

	cfg := Default(types.NetworkMain)
	cfg.Network = "bogus"
	assert.ErrorIs(t, Validate(cfg), walleterr.ErrInvalidNetwork)
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SOLWALLET_DATADIR", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, types.NetworkMain, cfg.Network)
	assert.Equal(t, Default(types.NetworkMain).Tx, cfg.Tx)
	assert.Equal(t, Default(types.NetworkMain).Vault, cfg.Vault)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.yaml")
	content := `network: Dev
storage:
  backend: bolt
tx:
  timeout: 45s
  confirm_attempts: 20
endpoints:
  dev:
    rpc: http://127.0.0.1:8899
    ws: ws://127.0.0.1:8900
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	t.Setenv("SOLWALLET_DATADIR", dir)
	t.Setenv("SOLWALLET_TX_CONFIRM_ATTEMPTS", "7")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.NetworkDev, cfg.Network)
	assert.Equal(t, "bolt", cfg.Storage.Backend)
	assert.Equal(t, 45*time.Second, cfg.Tx.Timeout)
	assert.Equal(t, 7, cfg.Tx.ConfirmAttempts)
	assert.Equal(t, "http://127.0.0.1:8899", cfg.Endpoints.For(types.NetworkDev).RPC)
	assert.Equal(t, types.NetworkMain.DefaultRPCURL(), cfg.Endpoints.Main.RPC)
}

func TestLoad_UnknownNetworkFails(t *testing.T) {
	t.Setenv("SOLWALLET_DATADIR", t.TempDir())
	t.Setenv("SOLWALLET_NETWORK", "mainnet-beta")

	_, err := Load("")
	assert.ErrorIs(t, err, walleterr.ErrInvalidNetwork)
}

func TestWriteDefault(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOLWALLET_DATADIR", dir)
	path := filepath.Join(dir, ConfigFileName)

	require.NoError(t, WriteDefault(path, types.NetworkTest))
	assert.ErrorIs(t, WriteDefault(path, types.NetworkTest), ErrConfigExists)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, types.NetworkTest, cfg.Network)
	assert.Equal(t, Default(types.NetworkMain).Price.RefreshInterval, cfg.Price.RefreshInterval)
}

func TestEnsureDataDirs(t *testing.T) {
	cfg := Default(types.NetworkMain)
	cfg.DataDir = filepath.Join(t.TempDir(), "nested")
	require.NoError(t, EnsureDataDirs(cfg))
	for _, dir := range []string{cfg.DBDir(), cfg.LogsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestSaveNetwork(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SOLWALLET_DATADIR", dir)
	path := filepath.Join(dir, ConfigFileName)

	require.NoError(t, SaveNetwork(path, types.NetworkDev))
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, types.NetworkDev, cfg.Network)

	require.NoError(t, SaveNetwork(path, types.NetworkTest))
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, types.NetworkTest, cfg.Network)

	assert.ErrorIs(t, SaveNetwork(path, "bogus"), walleterr.ErrInvalidNetwork)
}
