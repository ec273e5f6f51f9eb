package types

import (
	"fmt"
	"strings"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/gagliardetto/solana-go"
)

// AddressSize is the length of a decoded address (an ed25519 public key).
const AddressSize = 32

// ParseAddress decodes a base58 address and checks that it is exactly
// AddressSize bytes long.
func ParseAddress(s string) (solana.PublicKey, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return solana.PublicKey{}, fmt.Errorf("%w: empty", walleterr.ErrInvalidAddress)
	}
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q", walleterr.ErrInvalidAddress, s)
	}
	return pk, nil
}

// ValidAddress reports whether s is a well-formed address.
func ValidAddress(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// ShortAddress abbreviates an address for display: "AbCd...WxYz".
func ShortAddress(s string) string {
	if len(s) <= 10 {
		return s
	}
	return s[:4] + "..." + s[len(s)-4:]
}
