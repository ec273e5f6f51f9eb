package txengine

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/gagliardetto/solana-go"
)

// WaitForConfirmation polls the status of sig until it is confirmed and
// returns the number of polls used.
//
// Only "not yet confirmed" is retried. A transport error ends the wait
// immediately, an execution error fails with *walleterr.TransactionFailedError,
// and after maxAttempts unconfirmed polls the wait fails with
// walleterr.ErrConfirmationExhausted. No poll beyond maxAttempts is made.
func (e *Engine) WaitForConfirmation(ctx context.Context, sig solana.Signature, maxAttempts int) (int, error) {
	if maxAttempts <= 0 {
		maxAttempts = e.attempts
	}
	network := string(e.network)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		e.limiter.Take()
		e.metrics.Polled(network)

		callCtx, cancel := e.callCtx(ctx)
		status, err := e.client.SignatureStatus(callCtx, sig)
		cancel()
		if err != nil {
			e.metrics.Outcome(network, "error")
			return attempt, fmt.Errorf("confirm %s: %w", sig, err)
		}
		if status == nil {
			continue
		}
		if status.Err != "" {
			e.metrics.Outcome(network, "failed")
			return attempt, &walleterr.TransactionFailedError{Signature: sig.String(), Reason: status.Err}
		}
		if status.Confirmed {
			e.metrics.Outcome(network, "confirmed")
			e.logger.Debug().Str("signature", sig.String()).Int("attempts", attempt).Msg("Transaction confirmed")
			return attempt, nil
		}
	}

	e.metrics.Outcome(network, "exhausted")
	return maxAttempts, fmt.Errorf("%w: %s after %d polls", walleterr.ErrConfirmationExhausted, sig, maxAttempts)
}

// IsConfirmed checks once whether sig executed successfully. It fails with
// walleterr.ErrNotFound when the transaction or its metadata is unknown and
// with *walleterr.TransactionFailedError when execution failed.
func (e *Engine) IsConfirmed(ctx context.Context, sig solana.Signature) error {
	ctx, cancel := e.callCtx(ctx)
	defer cancel()

	meta, err := e.client.Transaction(ctx, sig)
	if err != nil {
		return fmt.Errorf("check %s: %w", sig, err)
	}
	if meta == nil {
		return fmt.Errorf("check %s: %w: transaction meta", sig, walleterr.ErrNotFound)
	}
	if meta.Err != "" {
		return &walleterr.TransactionFailedError{Signature: sig.String(), Reason: meta.Err}
	}
	return nil
}
