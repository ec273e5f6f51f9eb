package wallet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
)

// fastParams returns low-cost Argon2 params for fast tests.
func fastParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64, // 64 KiB (minimal)
		Iterations:  1,
		Parallelism: 1,
	}
}

const testPhrase = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestEncryptDecrypt_Phrase(t *testing.T) {
	passwords := []string{"12345678", "correct horse battery staple", "pässwörd-with-ünïcode"}
	for _, pw := range passwords {
		encrypted, err := Encrypt([]byte(testPhrase), []byte(pw), fastParams())
		if err != nil {
			t.Fatalf("Encrypt() error: %v", err)
		}
		decrypted, err := Decrypt(encrypted, []byte(pw))
		if err != nil {
			t.Fatalf("Decrypt() error: %v", err)
		}
		if string(decrypted) != testPhrase {
			t.Errorf("decrypted = %q, want %q", decrypted, testPhrase)
		}
	}
}

func TestDecrypt_WrongPassword(t *testing.T) {
	encrypted, err := Encrypt([]byte(testPhrase), []byte("correct-password"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	_, err = Decrypt(encrypted, []byte("wrong-password"))
	if !errors.Is(err, walleterr.ErrAuthentication) {
		t.Errorf("Decrypt() with wrong password error = %v, want ErrAuthentication", err)
	}
}

func TestDecrypt_TruncatedData(t *testing.T) {
	_, err := Decrypt([]byte("too short"), []byte("pass"))
	if err == nil {
		t.Error("Decrypt with truncated data should fail")
	}
}

func TestDecrypt_CorruptedCiphertext(t *testing.T) {
	encrypted, err := Encrypt([]byte("data"), []byte("pass"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	// Corrupt the last byte (part of auth tag)
	encrypted[len(encrypted)-1] ^= 0xFF

	if _, err := Decrypt(encrypted, []byte("pass")); err == nil {
		t.Error("Decrypt with corrupted ciphertext should fail")
	}
}

func TestEncrypt_DifferentEachTime(t *testing.T) {
	enc1, err := Encrypt([]byte(testPhrase), []byte("same pass"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	enc2, err := Encrypt([]byte(testPhrase), []byte("same pass"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	if bytes.Equal(enc1, enc2) {
		t.Error("encrypting same data twice should produce different output (random salt/nonce)")
	}
}

func TestEncrypt_OutputFormat(t *testing.T) {
	plaintext := []byte("test")
	params := fastParams()

	encrypted, err := Encrypt(plaintext, []byte("pass"), params)
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}

	// header(41) + nonce(24) + ciphertext(len(plaintext) + 16 overhead)
	if want := headerSize + 24 + len(plaintext) + 16; len(encrypted) != want {
		t.Errorf("encrypted length = %d, want %d", len(encrypted), want)
	}

	_, got, err := parseHeader(encrypted)
	if err != nil {
		t.Fatalf("parseHeader() error: %v", err)
	}
	if got != params {
		t.Errorf("header params = %+v, want %+v", got, params)
	}
}

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword([]byte("hunter22"), fastParams())
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}
	if len(hash) != headerSize+passwordHashSize {
		t.Errorf("hash length = %d", len(hash))
	}
	if !VerifyPassword(hash, []byte("hunter22")) {
		t.Error("VerifyPassword() rejected the right password")
	}
	if VerifyPassword(hash, []byte("hunter23")) {
		t.Error("VerifyPassword() accepted a wrong password")
	}
	if VerifyPassword(hash[:10], []byte("hunter22")) {
		t.Error("VerifyPassword() accepted a truncated hash")
	}

	other, _ := HashPassword([]byte("hunter22"), fastParams())
	if bytes.Equal(hash, other) {
		t.Error("hashes of the same password should be salted")
	}
}

func TestCorruptedParams(t *testing.T) {
	encrypted, err := Encrypt([]byte(testPhrase), []byte("password"), fastParams())
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	hash, err := HashPassword([]byte("password"), fastParams())
	if err != nil {
		t.Fatalf("HashPassword() error: %v", err)
	}

	tests := []struct {
		name    string
		corrupt func(b []byte)
	}{
		{"zero parallelism", func(b []byte) { b[SaltSize+8] = 0 }},
		{"zero iterations", func(b []byte) { binary.LittleEndian.PutUint32(b[SaltSize+4:], 0) }},
		{"huge memory", func(b []byte) { binary.LittleEndian.PutUint32(b[SaltSize:], 0xFFFFFFFF) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc := append([]byte(nil), encrypted...)
			tt.corrupt(enc)
			if _, err := Decrypt(enc, []byte("password")); !errors.Is(err, ErrBadParams) {
				t.Errorf("Decrypt() error = %v, want ErrBadParams", err)
			}

			h := append([]byte(nil), hash...)
			tt.corrupt(h)
			if VerifyPassword(h, []byte("password")) {
				t.Error("VerifyPassword() accepted a corrupted verifier")
			}
		})
	}

	if _, err := Encrypt([]byte("x"), []byte("password"), EncryptionParams{Memory: 64, Iterations: 1}); !errors.Is(err, walleterr.ErrValidation) {
		t.Errorf("Encrypt() with zero parallelism error = %v, want ErrValidation", err)
	}
}

func TestCheckPassword(t *testing.T) {
	if err := CheckPassword([]byte("1234567")); !errors.Is(err, walleterr.ErrPasswordTooShort) {
		t.Errorf("CheckPassword(7 chars) error = %v", err)
	}
	if err := CheckPassword([]byte("12345678")); err != nil {
		t.Errorf("CheckPassword(8 chars) error: %v", err)
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.Memory != 64*1024 {
		t.Errorf("Memory = %d, want %d", p.Memory, 64*1024)
	}
	if p.Iterations != 3 {
		t.Errorf("Iterations = %d, want 3", p.Iterations)
	}
	if p.Parallelism != 4 {
		t.Errorf("Parallelism = %d, want 4", p.Parallelism)
	}
}
