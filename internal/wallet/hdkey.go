package wallet

import (
	"crypto/ed25519"
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/gagliardetto/solana-go"
	"github.com/tyler-smith/go-bip32"
)

// BIP-44 derivation path constants.
// Full path: m/44'/501'/account'/change/index
const (
	// PurposeBIP44 is the BIP-44 purpose field (hardened).
	PurposeBIP44 = bip32.FirstHardenedChild + 44

	// CoinTypeSolana is the registered SLIP-44 coin type (hardened).
	CoinTypeSolana = bip32.FirstHardenedChild + 501

	// AccountDefault is the only account branch the wallet uses (hardened).
	AccountDefault = bip32.FirstHardenedChild + 0

	// ChangeExternal is the receiving branch.
	ChangeExternal = 0
)

// HDKey represents a hierarchical deterministic key (BIP-32).
type HDKey struct {
	key *bip32.Key
}

// NewMasterKey creates a master HD key from a 64-byte seed.
func NewMasterKey(seed []byte) (*HDKey, error) {
	if len(seed) != SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes, got %d", walleterr.ErrDerivation, SeedSize, len(seed))
	}
	master, err := bip32.NewMasterKey(seed)
	if err != nil {
		return nil, fmt.Errorf("%w: create master key: %v", walleterr.ErrDerivation, err)
	}
	return &HDKey{key: master}, nil
}

// DeriveChild derives a child key at the given index.
// For hardened derivation, add bip32.FirstHardenedChild to the index.
func (k *HDKey) DeriveChild(index uint32) (*HDKey, error) {
	child, err := k.key.NewChildKey(index)
	if err != nil {
		return nil, fmt.Errorf("%w: derive child %d: %v", walleterr.ErrDerivation, index, err)
	}
	return &HDKey{key: child}, nil
}

// DerivePath derives a key along a sequence of indices.
func (k *HDKey) DerivePath(indices ...uint32) (*HDKey, error) {
	current := k
	for _, idx := range indices {
		child, err := current.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		current = child
	}
	return current, nil
}

// PrivateKeyBytes returns the raw 32-byte private key.
func (k *HDKey) PrivateKeyBytes() []byte {
	// bip32 Key.Key is 33 bytes with a leading 0x00 for private keys.
	raw := k.key.Key
	if len(raw) == 33 && raw[0] == 0 {
		return raw[1:]
	}
	return raw
}

// Depth returns the derivation depth (0 for master).
func (k *HDKey) Depth() uint8 {
	return k.key.Depth
}

// DerivationPath renders the path used for index.
func DerivationPath(index uint32) string {
	if index == 0 {
		return "m"
	}
	return fmt.Sprintf("m/44'/501'/0'/0/%d", index)
}

// DeriveSigningKey derives the ed25519 signing key for a derive index.
//
// Index 0 is the default account: its key is built from the first 32 bytes
// of the seed with no path walk. Any other index walks
// m/44'/501'/0'/0/index and uses the leaf private key as the ed25519 seed.
func DeriveSigningKey(seed []byte, index uint32) (solana.PrivateKey, error) {
	if index == 0 {
		if len(seed) < ed25519.SeedSize {
			return nil, fmt.Errorf("%w: seed must be at least %d bytes, got %d",
				walleterr.ErrDerivation, ed25519.SeedSize, len(seed))
		}
		return solana.PrivateKey(ed25519.NewKeyFromSeed(seed[:ed25519.SeedSize])), nil
	}

	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, err
	}
	leaf, err := master.DerivePath(PurposeBIP44, CoinTypeSolana, AccountDefault, ChangeExternal, index)
	if err != nil {
		return nil, err
	}
	priv := leaf.PrivateKeyBytes()
	if len(priv) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: leaf key is %d bytes", walleterr.ErrDerivation, len(priv))
	}
	return solana.PrivateKey(ed25519.NewKeyFromSeed(priv)), nil
}

// DerivePublicKey returns the address of the key at index.
func DerivePublicKey(seed []byte, index uint32) (solana.PublicKey, error) {
	key, err := DeriveSigningKey(seed, index)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return key.PublicKey(), nil
}
