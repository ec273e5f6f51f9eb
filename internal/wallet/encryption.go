package wallet

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encryption constants.
const (
	SaltSize = 32
	// Header layout shared by ciphertexts and password hashes:
	// [salt(32)][memory(4)][iterations(4)][parallelism(1)]
	headerSize = SaltSize + 4 + 4 + 1

	// MinPasswordLength is the shortest password the vault accepts.
	MinPasswordLength = 8

	passwordHashSize = 32

	// Upper bounds accepted from stored headers.
	maxMemory     = 4 * 1024 * 1024 // KiB
	maxIterations = 64
)

// ErrBadParams reports Argon2id parameters that cannot be used, usually a
// corrupted header.
var ErrBadParams = fmt.Errorf("%w: invalid key derivation parameters", walleterr.ErrValidation)

// EncryptionParams holds Argon2id parameters.
type EncryptionParams struct {
	Memory      uint32 // in KiB
	Iterations  uint32
	Parallelism uint8
}

func (p EncryptionParams) validate() error {
	if p.Iterations == 0 || p.Iterations > maxIterations ||
		p.Parallelism == 0 || p.Memory == 0 || p.Memory > maxMemory {
		return fmt.Errorf("%w: memory=%d iterations=%d parallelism=%d",
			ErrBadParams, p.Memory, p.Iterations, p.Parallelism)
	}
	return nil
}

// DefaultParams returns recommended Argon2id parameters.
func DefaultParams() EncryptionParams {
	return EncryptionParams{
		Memory:      64 * 1024, // 64 MB
		Iterations:  3,
		Parallelism: 4,
	}
}

func deriveKey(password, salt []byte, params EncryptionParams, size uint32) []byte {
	return argon2.IDKey(password, salt, params.Iterations, params.Memory, params.Parallelism, size)
}

func newHeader(params EncryptionParams) ([]byte, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	h := make([]byte, 0, headerSize)
	h = append(h, salt...)
	h = binary.LittleEndian.AppendUint32(h, params.Memory)
	h = binary.LittleEndian.AppendUint32(h, params.Iterations)
	h = append(h, params.Parallelism)
	return h, nil
}

// parseHeader reads the salt and parameters of a stored header. Parameters
// are checked before any key derivation sees them.
func parseHeader(b []byte) (salt []byte, params EncryptionParams, err error) {
	params = EncryptionParams{
		Memory:      binary.LittleEndian.Uint32(b[SaltSize:]),
		Iterations:  binary.LittleEndian.Uint32(b[SaltSize+4:]),
		Parallelism: b[SaltSize+8],
	}
	return b[:SaltSize], params, params.validate()
}

// Encrypt encrypts data with password using Argon2id + XChaCha20-Poly1305.
//
// Output format: salt(32) | memory(4) | iterations(4) | parallelism(1) | nonce(24) | ciphertext
func Encrypt(data, password []byte, params EncryptionParams) ([]byte, error) {
	header, err := newHeader(params)
	if err != nil {
		return nil, err
	}

	key := deriveKey(password, header[:SaltSize], params, chacha20poly1305.KeySize)
	defer Wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}

	out := make([]byte, 0, headerSize+len(nonce)+len(data)+aead.Overhead())
	out = append(out, header...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, data, nil), nil
}

// Decrypt decrypts data encrypted by Encrypt with the given password.
// A wrong password or tampered data fails with ErrAuthentication.
func Decrypt(encrypted, password []byte) ([]byte, error) {
	nonceSize := chacha20poly1305.NonceSizeX
	minSize := headerSize + nonceSize + chacha20poly1305.Overhead
	if len(encrypted) < minSize {
		return nil, fmt.Errorf("encrypted data too short: %d bytes, need at least %d", len(encrypted), minSize)
	}

	salt, params, err := parseHeader(encrypted)
	if err != nil {
		return nil, err
	}
	nonce := encrypted[headerSize : headerSize+nonceSize]
	ciphertext := encrypted[headerSize+nonceSize:]

	key := deriveKey(password, salt, params, chacha20poly1305.KeySize)
	defer Wipe(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt: %v", walleterr.ErrAuthentication, err)
	}
	return plaintext, nil
}

// HashPassword returns a salted Argon2id verifier for password.
//
// Output format: salt(32) | memory(4) | iterations(4) | parallelism(1) | digest(32)
func HashPassword(password []byte, params EncryptionParams) ([]byte, error) {
	header, err := newHeader(params)
	if err != nil {
		return nil, err
	}
	digest := deriveKey(password, header[:SaltSize], params, passwordHashSize)
	return append(header, digest...), nil
}

// VerifyPassword reports whether password matches a HashPassword verifier.
func VerifyPassword(hash, password []byte) bool {
	if len(hash) != headerSize+passwordHashSize {
		return false
	}
	salt, params, err := parseHeader(hash)
	if err != nil {
		return false
	}
	digest := deriveKey(password, salt, params, passwordHashSize)
	defer Wipe(digest)
	return subtle.ConstantTimeCompare(digest, hash[headerSize:]) == 1
}

// CheckPassword enforces the minimum password length.
func CheckPassword(password []byte) error {
	if len(password) < MinPasswordLength {
		return walleterr.ErrPasswordTooShort
	}
	return nil
}
