package walleterr

import (
	"errors"
	"strings"
)

var reasons = map[error]string{
	ErrAuthentication:        "Invalid password",
	ErrDerivation:            "Key derivation failed",
	ErrValidation:            "Invalid input",
	ErrTransport:             "Network request failed",
	ErrFeeEstimation:         "Fee estimation failed",
	ErrConfirmationExhausted: "Transaction not confirmed in time",
	ErrTransactionFailed:     "Transaction failed",
	ErrNotFound:              "Not found",
	ErrPersistence:           "Save failed",
}

// Reason returns a short, user-facing description of err: the reason for
// its kind plus one brief cause. Unclassified errors yield "Unexpected error".
func Reason(err error) string {
	if err == nil {
		return ""
	}

	var dm *DecimalMismatchError
	if errors.As(err, &dm) {
		return "Token decimals do not match the mint"
	}
	var tf *TransactionFailedError
	if errors.As(err, &tf) {
		return "Transaction failed: " + brief(tf.Reason)
	}

	k := Kind(err)
	if k == nil {
		return "Unexpected error"
	}
	base := reasons[k]

	// Specific validation/authentication errors already carry a short cause.
	for _, specific := range []error{
		ErrInvalidPassword, ErrVaultLocked, ErrInvalidPhrase, ErrWordCount,
		ErrPasswordTooShort, ErrInvalidAddress, ErrInvalidAmount,
		ErrInvalidNetwork, ErrSignerMismatch, ErrAirdropRefused,
	} {
		if errors.Is(err, specific) {
			msg := specific.Error()
			if i := strings.Index(msg, ": "); i >= 0 {
				msg = msg[i+2:]
			}
			return base + ": " + msg
		}
	}
	return base
}

// brief trims a cause string to its first line and at most 80 characters.
func brief(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	if len(s) > 80 {
		s = s[:77] + "..."
	}
	return s
}
