// Package wallet implements the recovery phrase, key derivation and the
// password-protected secret vault.
package wallet

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/tyler-smith/go-bip39"
)

// Supported mnemonic lengths.
const (
	Words12 = 12
	Words24 = 24
)

// entropyBits maps a word count to its BIP-39 entropy size.
func entropyBits(words int) (int, error) {
	switch words {
	case Words12:
		return 128, nil
	case Words24:
		return 256, nil
	default:
		return 0, fmt.Errorf("%w: %d", walleterr.ErrWordCount, words)
	}
}

// GenerateMnemonic creates a new 12 or 24 word BIP-39 mnemonic from a
// cryptographically secure random source.
func GenerateMnemonic(words int) (string, error) {
	bits, err := entropyBits(words)
	if err != nil {
		return "", err
	}
	entropy, err := bip39.NewEntropy(bits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic reports whether phrase is a valid BIP-39 mnemonic of
// exactly the requested word count (valid words, valid checksum).
func ValidateMnemonic(phrase string, words int) bool {
	if _, err := entropyBits(words); err != nil {
		return false
	}
	normalized := normalize(phrase)
	if len(strings.Fields(normalized)) != words {
		return false
	}
	return bip39.IsMnemonicValid(normalized)
}

// ParseMnemonic normalizes whitespace and case and checks the word count
// and checksum. It fails with ErrInvalidPhrase.
func ParseMnemonic(phrase string) (string, error) {
	normalized := normalize(phrase)
	n := len(strings.Fields(normalized))
	if n != Words12 && n != Words24 {
		return "", fmt.Errorf("%w: %d words", walleterr.ErrInvalidPhrase, n)
	}
	if !bip39.IsMnemonicValid(normalized) {
		return "", fmt.Errorf("%w: checksum mismatch", walleterr.ErrInvalidPhrase)
	}
	return normalized, nil
}

func normalize(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}
