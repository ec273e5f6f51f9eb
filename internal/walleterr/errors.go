// Package walleterr defines the error taxonomy shared by the wallet engine.
//
// Every error returned across package boundaries wraps exactly one of the
// kind sentinels below, so callers classify failures with errors.Is.
package walleterr

import (
	"errors"
	"fmt"
)

// Error kinds.
var (
	ErrAuthentication        = errors.New("authentication failed")
	ErrDerivation            = errors.New("key derivation failed")
	ErrValidation            = errors.New("invalid input")
	ErrTransport             = errors.New("network request failed")
	ErrFeeEstimation         = errors.New("fee estimation failed")
	ErrConfirmationExhausted = errors.New("confirmation attempts exhausted")
	ErrTransactionFailed     = errors.New("transaction failed")
	ErrNotFound              = errors.New("not found")
	ErrPersistence           = errors.New("storage failure")
)

// Specific errors.
var (
	ErrInvalidPassword  = fmt.Errorf("%w: invalid password", ErrAuthentication)
	ErrVaultLocked      = fmt.Errorf("%w: no secret stored", ErrAuthentication)
	ErrInvalidPhrase    = fmt.Errorf("%w: invalid mnemonic phrase", ErrValidation)
	ErrWordCount        = fmt.Errorf("%w: unsupported mnemonic word count", ErrValidation)
	ErrPasswordTooShort = fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	ErrInvalidAddress   = fmt.Errorf("%w: invalid address", ErrValidation)
	ErrInvalidAmount    = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidNetwork   = fmt.Errorf("%w: unknown network", ErrValidation)
	ErrSignerMismatch   = fmt.Errorf("%w: signer does not match sender address", ErrValidation)
	ErrAirdropRefused   = fmt.Errorf("%w: airdrop is not available on main network", ErrValidation)
)

// TransactionFailedError reports a transaction that the network accepted but
// whose execution returned an error.
type TransactionFailedError struct {
	Signature string
	Reason    string
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.Signature, e.Reason)
}

// Unwrap ties the error to ErrTransactionFailed.
func (e *TransactionFailedError) Unwrap() error { return ErrTransactionFailed }

// DecimalMismatchError reports caller-supplied decimals that differ from the
// mint's on-chain decimals.
type DecimalMismatchError struct {
	Mint     string
	Supplied uint8
	OnChain  uint8
}

func (e *DecimalMismatchError) Error() string {
	return fmt.Sprintf("decimal mismatch for mint %s: supplied %d, on-chain %d",
		e.Mint, e.Supplied, e.OnChain)
}

// Unwrap ties the error to ErrValidation.
func (e *DecimalMismatchError) Unwrap() error { return ErrValidation }

// ErrDecimalMismatch matches any *DecimalMismatchError via errors.Is.
var ErrDecimalMismatch = &DecimalMismatchError{}

// Is makes every DecimalMismatchError match ErrDecimalMismatch.
func (e *DecimalMismatchError) Is(target error) bool {
	return target == ErrDecimalMismatch
}

// Transport wraps a transport failure with ErrTransport and an operation name.
func Transport(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}

// FeeEstimation wraps a failure to price a message with ErrFeeEstimation,
// keeping the underlying cause (usually a transport error) matchable.
func FeeEstimation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("estimate fee: %w: %w", ErrFeeEstimation, err)
}

// Persistence wraps a storage failure with ErrPersistence.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// Kind returns the kind sentinel wrapped by err, or nil if none matches.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

var kinds = []error{
	ErrAuthentication,
	ErrDerivation,
	ErrValidation,
	ErrConfirmationExhausted,
	ErrTransactionFailed,
	ErrNotFound,
	ErrFeeEstimation,
	ErrTransport,
	ErrPersistence,
}
