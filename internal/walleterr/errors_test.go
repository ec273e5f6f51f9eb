package walleterr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"plain", errors.New("boom"), nil},
		{"password", ErrInvalidPassword, ErrAuthentication},
		{"wrapped password", fmt.Errorf("unlock: %w", ErrInvalidPassword), ErrAuthentication},
		{"phrase", ErrInvalidPhrase, ErrValidation},
		{"transport", Transport("get balance", errors.New("dial tcp")), ErrTransport},
		{"fee estimation", FeeEstimation(Transport("getFeeForMessage", errors.New("503"))), ErrFeeEstimation},
		{"persistence", Persistence("insert", errors.New("disk full")), ErrPersistence},
		{"tx failed", &TransactionFailedError{Signature: "sig", Reason: "custom program error"}, ErrTransactionFailed},
		{"decimals", &DecimalMismatchError{Mint: "m", Supplied: 6, OnChain: 9}, ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Kind(tt.err))
		})
	}
}

func TestDecimalMismatchIs(t *testing.T) {
	err := fmt.Errorf("send token: %w", &DecimalMismatchError{Mint: "m", Supplied: 2, OnChain: 6})
	require.ErrorIs(t, err, ErrDecimalMismatch)
	require.ErrorIs(t, err, ErrValidation)
	require.NotErrorIs(t, err, ErrTransport)

	var dm *DecimalMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, uint8(6), dm.OnChain)
}

func TestFeeEstimationKeepsCause(t *testing.T) {
	require.NoError(t, FeeEstimation(nil))
	err := FeeEstimation(Transport("getFeeForMessage", errors.New("connection refused")))
	require.ErrorIs(t, err, ErrFeeEstimation)
	require.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestReason(t *testing.T) {
	assert.Equal(t, "", Reason(nil))
	assert.Equal(t, "Unexpected error", Reason(errors.New("boom")))
	assert.Equal(t, "Invalid password: invalid password", Reason(fmt.Errorf("x: %w", ErrInvalidPassword)))
	assert.Equal(t, "Network request failed", Reason(Transport("send", errors.New("i/o timeout\nstack..."))))
	assert.Equal(t, "Fee estimation failed", Reason(FeeEstimation(Transport("getLatestBlockhash", errors.New("eof")))))
	assert.Equal(t, "Token decimals do not match the mint", Reason(&DecimalMismatchError{}))
	assert.Equal(t, "Transaction failed: InstructionError", Reason(&TransactionFailedError{Reason: "InstructionError\nmore"}))
}
