// Package types defines the shared value types of the wallet: networks,
// amounts and addresses.
package types

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
)

// Network identifies one logical ledger network.
type Network string

const (
	NetworkMain Network = "main"
	NetworkTest Network = "test"
	NetworkDev  Network = "dev"
)

const explorerURL = "https://explorer.solana.com"

// Networks returns every supported network in display order.
func Networks() []Network {
	return []Network{NetworkMain, NetworkTest, NetworkDev}
}

// ParseNetwork parses "main", "test" or "dev" (case-insensitive).
// Anything else is rejected; there is no fallback network.
func ParseNetwork(s string) (Network, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "main":
		return NetworkMain, nil
	case "test":
		return NetworkTest, nil
	case "dev":
		return NetworkDev, nil
	default:
		return "", fmt.Errorf("%w: %q", walleterr.ErrInvalidNetwork, s)
	}
}

// Valid reports whether n is one of the supported networks.
func (n Network) Valid() bool {
	switch n {
	case NetworkMain, NetworkTest, NetworkDev:
		return true
	}
	return false
}

// String returns the display name ("Main", "Test", "Dev").
func (n Network) String() string {
	switch n {
	case NetworkMain:
		return "Main"
	case NetworkTest:
		return "Test"
	case NetworkDev:
		return "Dev"
	}
	return string(n)
}

// DefaultRPCURL returns the public JSON-RPC endpoint of the network.
func (n Network) DefaultRPCURL() string {
	switch n {
	case NetworkTest:
		return "https://api.testnet.solana.com"
	case NetworkDev:
		return "https://api.devnet.solana.com"
	default:
		return "https://api.mainnet-beta.solana.com"
	}
}

// DefaultWSURL returns the public websocket endpoint of the network.
func (n Network) DefaultWSURL() string {
	switch n {
	case NetworkTest:
		return "wss://api.testnet.solana.com"
	case NetworkDev:
		return "wss://api.devnet.solana.com"
	default:
		return "wss://api.mainnet-beta.solana.com"
	}
}

// AirdropAllowed reports whether the network serves airdrop requests.
func (n Network) AirdropAllowed() bool {
	return n == NetworkTest || n == NetworkDev
}

func (n Network) clusterQuery() string {
	switch n {
	case NetworkTest:
		return "?cluster=testnet"
	case NetworkDev:
		return "?cluster=devnet"
	}
	return ""
}

// ExplorerAddressURL returns the block explorer page for an address.
func (n Network) ExplorerAddressURL(address string) string {
	return explorerURL + "/address/" + address + n.clusterQuery()
}

// ExplorerTxURL returns the block explorer page for a transaction signature.
func (n Network) ExplorerTxURL(signature string) string {
	return explorerURL + "/tx/" + signature + n.clusterQuery()
}
