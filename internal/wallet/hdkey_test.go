package wallet

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/tyler-smith/go-bip32"
)

// testSeed returns a deterministic seed for testing.
// Uses the BIP-39 test vector: "abandon" x11 + "about" with passphrase "TREZOR".
func testSeed(t *testing.T) []byte {
	t.Helper()
	seed, err := SeedFromMnemonic(testPhrase, "TREZOR")
	if err != nil {
		t.Fatalf("SeedFromMnemonic() error: %v", err)
	}
	return seed
}

func TestNewMasterKey(t *testing.T) {
	master, err := NewMasterKey(testSeed(t))
	if err != nil {
		t.Fatalf("NewMasterKey() error: %v", err)
	}
	if master.Depth() != 0 {
		t.Errorf("master key depth = %d, want 0", master.Depth())
	}
	if priv := master.PrivateKeyBytes(); len(priv) != 32 {
		t.Errorf("private key length = %d, want 32", len(priv))
	}
}

func TestNewMasterKey_InvalidSeedLength(t *testing.T) {
	tests := []struct {
		name string
		seed []byte
	}{
		{"empty", []byte{}},
		{"too short", make([]byte, 32)},
		{"too long", make([]byte, 128)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMasterKey(tt.seed)
			if !errors.Is(err, walleterr.ErrDerivation) {
				t.Errorf("NewMasterKey() error = %v, want ErrDerivation", err)
			}
		})
	}
}

func TestDerivePath_Depth(t *testing.T) {
	master, _ := NewMasterKey(testSeed(t))
	leaf, err := master.DerivePath(PurposeBIP44, CoinTypeSolana, AccountDefault, ChangeExternal, 7)
	if err != nil {
		t.Fatalf("DerivePath() error: %v", err)
	}
	if leaf.Depth() != 5 {
		t.Errorf("leaf depth = %d, want 5", leaf.Depth())
	}
	if CoinTypeSolana != bip32.FirstHardenedChild+501 {
		t.Errorf("coin type = %d", CoinTypeSolana)
	}
}

func TestDeriveSigningKey_IndexZeroUsesSeed(t *testing.T) {
	seed := testSeed(t)
	key, err := DeriveSigningKey(seed, 0)
	if err != nil {
		t.Fatalf("DeriveSigningKey() error: %v", err)
	}
	if len(key) != 64 {
		t.Fatalf("key length = %d, want 64", len(key))
	}
	// An ed25519 private key is seed || public key.
	if !bytes.Equal(key[:32], seed[:32]) {
		t.Error("index 0 key should be built directly from the seed")
	}
}

func TestDeriveSigningKey_Deterministic(t *testing.T) {
	seed := testSeed(t)
	for _, idx := range []uint32{0, 1, 2, 1000} {
		k1, err := DeriveSigningKey(seed, idx)
		if err != nil {
			t.Fatalf("DeriveSigningKey(%d) error: %v", idx, err)
		}
		k2, _ := DeriveSigningKey(seed, idx)
		if !bytes.Equal(k1, k2) {
			t.Errorf("index %d: keys differ across calls", idx)
		}
	}
}

func TestDeriveSigningKey_DistinctIndices(t *testing.T) {
	seed := testSeed(t)
	seen := make(map[string]uint32)
	for idx := uint32(0); idx < 20; idx++ {
		pub, err := DerivePublicKey(seed, idx)
		if err != nil {
			t.Fatalf("DerivePublicKey(%d) error: %v", idx, err)
		}
		if prev, ok := seen[pub.String()]; ok {
			t.Fatalf("indices %d and %d share public key %s", prev, idx, pub)
		}
		seen[pub.String()] = idx
	}
}

func TestDeriveSigningKey_BadSeed(t *testing.T) {
	if _, err := DeriveSigningKey(make([]byte, 16), 0); !errors.Is(err, walleterr.ErrDerivation) {
		t.Errorf("index 0 short seed error = %v, want ErrDerivation", err)
	}
	if _, err := DeriveSigningKey(make([]byte, 32), 3); !errors.Is(err, walleterr.ErrDerivation) {
		t.Errorf("index 3 short seed error = %v, want ErrDerivation", err)
	}
}

func TestDerivationPath(t *testing.T) {
	if got := DerivationPath(0); got != "m" {
		t.Errorf("DerivationPath(0) = %q", got)
	}
	if got := DerivationPath(4); got != "m/44'/501'/0'/0/4" {
		t.Errorf("DerivationPath(4) = %q", got)
	}
}

func TestSigningKey_Signs(t *testing.T) {
	key, err := DeriveSigningKey(testSeed(t), 3)
	if err != nil {
		t.Fatalf("DeriveSigningKey() error: %v", err)
	}
	msg := []byte("transfer")
	sig, err := key.Sign(msg)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}
	if !sig.Verify(key.PublicKey(), msg) {
		t.Error("signature does not verify against the derived public key")
	}
}
