package wallet

import (
	"encoding/hex"
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/tyler-smith/go-bip39"
	"github.com/zeebo/blake3"
)

// SeedSize is the length of a derived seed in bytes (512 bits).
const SeedSize = 64

// SeedFromMnemonic derives a 512-bit seed from a mnemonic and passphrase
// using PBKDF2-SHA512 as specified in BIP-39.
func SeedFromMnemonic(mnemonic, passphrase string) ([]byte, error) {
	normalized, err := ParseMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	seed, err := bip39.NewSeedWithErrorChecking(normalized, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: derive seed: %v", walleterr.ErrDerivation, err)
	}
	return seed, nil
}

// PassphraseFor returns the implicit BIP-39 passphrase the wallet pairs with
// a phrase: the hex BLAKE3-256 digest of the normalized phrase.
func PassphraseFor(mnemonic string) string {
	sum := blake3.Sum256([]byte(normalize(mnemonic)))
	return hex.EncodeToString(sum[:])
}

// WalletSeed derives the seed the wallet signs with for a phrase.
func WalletSeed(mnemonic string) ([]byte, error) {
	return SeedFromMnemonic(mnemonic, PassphraseFor(mnemonic))
}

// Wipe zeroes b.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
