package wallet

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Klingon-tech/solwallet/internal/log"
	"github.com/Klingon-tech/solwallet/internal/storage"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/gagliardetto/solana-go"
)

// SecretKey is the row key of the single secret record.
const SecretKey = "secret-uuid"

// SecretRecord is the persisted form of the wallet secret.
type SecretRecord struct {
	PasswordHash      []byte `json:"password_hash"`
	EncryptedMnemonic []byte `json:"encrypted_mnemonic"`
	ActiveDeriveIndex uint32 `json:"active_derive_index"`
}

// Valid reports whether the record carries both a hash and a ciphertext.
func (r *SecretRecord) Valid() bool {
	return r != nil && len(r.PasswordHash) > 0 && len(r.EncryptedMnemonic) > 0
}

// Vault owns the secret record: the password verifier, the encrypted
// recovery phrase and the active derive index.
type Vault struct {
	table  *storage.Table
	params EncryptionParams

	mu     sync.RWMutex
	record *SecretRecord

	// persistMu orders record writes; wg tracks async index writes.
	persistMu sync.Mutex
	wg        sync.WaitGroup
}

// NewVault returns a vault stored in the secrets table of db.
func NewVault(db storage.DB, params EncryptionParams) *Vault {
	return &Vault{
		table:  storage.NewTable(db, storage.TableSecrets),
		params: params,
	}
}

// Load reads the secret record. A missing or invalid record leaves the
// vault empty, which is not an error.
func (v *Vault) Load() error {
	rows, err := v.table.SelectAll()
	if err != nil {
		return err
	}

	var rec *SecretRecord
	for _, row := range rows {
		if row.Key != SecretKey {
			continue
		}
		var r SecretRecord
		if err := row.Decode(&r); err != nil {
			log.Vault.Warn().Err(err).Msg("Ignoring unreadable secret record")
			break
		}
		if !r.Valid() {
			log.Vault.Warn().Msg("Ignoring incomplete secret record")
			break
		}
		rec = &r
	}

	v.mu.Lock()
	v.record = rec
	v.mu.Unlock()
	return nil
}

// Exists reports whether a valid secret record is present.
func (v *Vault) Exists() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.record != nil
}

// Create stores a new secret for phrase under password, replacing any
// prior record. The active derive index starts at 0.
func (v *Vault) Create(password []byte, phrase string) error {
	if err := CheckPassword(password); err != nil {
		return err
	}
	normalized, err := ParseMnemonic(phrase)
	if err != nil {
		return err
	}

	rec, err := v.seal(password, normalized, 0)
	if err != nil {
		return err
	}

	v.persistMu.Lock()
	defer v.persistMu.Unlock()

	if err := v.table.Replace(SecretKey, rec); err != nil {
		return fmt.Errorf("store secret: %w", err)
	}

	v.mu.Lock()
	v.record = rec
	v.mu.Unlock()

	log.Vault.Info().Msg("Secret created")
	return nil
}

// Unlock verifies password and returns the recovery phrase.
func (v *Vault) Unlock(password []byte) (string, error) {
	v.mu.RLock()
	rec := v.record
	v.mu.RUnlock()

	if rec == nil {
		return "", walleterr.ErrVaultLocked
	}
	if !VerifyPassword(rec.PasswordHash, password) {
		return "", walleterr.ErrInvalidPassword
	}
	plain, err := Decrypt(rec.EncryptedMnemonic, password)
	if err != nil {
		return "", err
	}
	defer Wipe(plain)
	return string(plain), nil
}

// ChangePassword re-encrypts the phrase under newPassword. The new hash and
// ciphertext are persisted together; on failure the old record stays.
func (v *Vault) ChangePassword(oldPassword, newPassword []byte) error {
	if err := CheckPassword(newPassword); err != nil {
		return err
	}
	phrase, err := v.Unlock(oldPassword)
	if err != nil {
		if errors.Is(err, walleterr.ErrAuthentication) {
			return err
		}
		return fmt.Errorf("%w: %v", walleterr.ErrAuthentication, err)
	}

	v.persistMu.Lock()
	defer v.persistMu.Unlock()

	rec, err := v.seal(newPassword, phrase, v.ActiveDeriveIndex())
	if err != nil {
		return err
	}
	if err := v.table.Replace(SecretKey, rec); err != nil {
		return fmt.Errorf("store secret: %w", err)
	}

	v.mu.Lock()
	if v.record != nil {
		// An index set while sealing is written by its pending goroutine.
		rec.ActiveDeriveIndex = v.record.ActiveDeriveIndex
	}
	v.record = rec
	v.mu.Unlock()

	log.Vault.Info().Msg("Password changed")
	return nil
}

// ActiveDeriveIndex returns the derive index of the active account.
func (v *Vault) ActiveDeriveIndex() uint32 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.record == nil {
		return 0
	}
	return v.record.ActiveDeriveIndex
}

// SetActiveDeriveIndex updates the active index in memory immediately and
// persists it in the background. Write failures are logged.
func (v *Vault) SetActiveDeriveIndex(index uint32) {
	v.mu.Lock()
	if v.record == nil {
		v.mu.Unlock()
		return
	}
	v.record.ActiveDeriveIndex = index
	v.mu.Unlock()

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		v.persistMu.Lock()
		defer v.persistMu.Unlock()

		// Always write the latest record, so the last index set wins.
		v.mu.RLock()
		if v.record == nil {
			v.mu.RUnlock()
			return
		}
		rec := *v.record
		v.mu.RUnlock()

		if err := v.table.Replace(SecretKey, &rec); err != nil {
			log.Vault.Error().Err(err).Uint32("derive_index", index).Msg("Failed to persist active derive index")
		}
	}()
}

// Wait blocks until background index writes have finished.
func (v *Vault) Wait() {
	v.wg.Wait()
}

// Seed verifies password and returns the signing seed. The caller should
// Wipe it when done.
func (v *Vault) Seed(password []byte) ([]byte, error) {
	phrase, err := v.Unlock(password)
	if err != nil {
		return nil, err
	}
	return WalletSeed(phrase)
}

// SigningKey returns the key for index.
func (v *Vault) SigningKey(password []byte, index uint32) (solana.PrivateKey, error) {
	seed, err := v.Seed(password)
	if err != nil {
		return nil, err
	}
	defer Wipe(seed)
	return DeriveSigningKey(seed, index)
}

// PublicKey returns the address for index.
func (v *Vault) PublicKey(password []byte, index uint32) (solana.PublicKey, error) {
	key, err := v.SigningKey(password, index)
	if err != nil {
		return solana.PublicKey{}, err
	}
	defer Wipe(key)
	return key.PublicKey(), nil
}

func (v *Vault) seal(password []byte, phrase string, index uint32) (*SecretRecord, error) {
	hash, err := HashPassword(password, v.params)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	enc, err := Encrypt([]byte(phrase), password, v.params)
	if err != nil {
		return nil, fmt.Errorf("encrypt phrase: %w", err)
	}
	return &SecretRecord{
		PasswordHash:      hash,
		EncryptedMnemonic: enc,
		ActiveDeriveIndex: index,
	}, nil
}
