package wallet

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
)

func TestSeedFromMnemonic_KnownVector(t *testing.T) {
	// Standard BIP-39 test vector
	// Mnemonic: "abandon" x11 + "about", passphrase: "TREZOR"
	seed, err := SeedFromMnemonic(testPhrase, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}

	want, _ := hex.DecodeString("c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04")
	if !bytes.Equal(seed, want) {
		t.Errorf("seed = %x, want %x", seed, want)
	}
}

func TestSeedFromMnemonic_Normalizes(t *testing.T) {
	messy := "  ABANDON abandon abandon abandon abandon abandon\tabandon abandon abandon abandon abandon   about "
	seed1, err := SeedFromMnemonic(messy, "x")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	seed2, err := SeedFromMnemonic(testPhrase, "x")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	if !bytes.Equal(seed1, seed2) {
		t.Error("whitespace and case should not change the seed")
	}
}

func TestSeedFromMnemonic_Invalid(t *testing.T) {
	for _, m := range []string{"", "not valid words here", testPhrase[:len(testPhrase)-5] + "abandon"} {
		_, err := SeedFromMnemonic(m, "")
		if !errors.Is(err, walleterr.ErrInvalidPhrase) {
			t.Errorf("SeedFromMnemonic(%q) error = %v, want ErrInvalidPhrase", m, err)
		}
	}
}

func TestPassphraseFor(t *testing.T) {
	p1 := PassphraseFor(testPhrase)
	if len(p1) != 64 {
		t.Errorf("passphrase length = %d, want 64 hex chars", len(p1))
	}
	if p1 != PassphraseFor(" "+testPhrase+" ") {
		t.Error("passphrase should ignore surrounding whitespace")
	}

	other := "legal winner thank year wave sausage worth useful legal winner thank yellow"
	if p1 == PassphraseFor(other) {
		t.Error("different phrases should give different passphrases")
	}
}

func TestWalletSeed(t *testing.T) {
	seed, err := WalletSeed(testPhrase)
	if err != nil {
		t.Fatalf("WalletSeed() error: %v", err)
	}
	plain, _ := SeedFromMnemonic(testPhrase, "")
	if bytes.Equal(seed, plain) {
		t.Error("wallet seed should use the phrase-derived passphrase")
	}
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	Wipe(b)
	if !bytes.Equal(b, []byte{0, 0, 0}) {
		t.Errorf("Wipe() left %v", b)
	}
}
