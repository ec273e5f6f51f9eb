package txengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/gagliardetto/solana-go"
)

// ErrStreamClosed is returned by AccountStream.Next once the stream ends.
var ErrStreamClosed = fmt.Errorf("%w: subscription closed", walleterr.ErrTransport)

// SubscribeAccountChanges opens a push subscription for account. The caller
// reads updates with Next and must Close the stream.
func (e *Engine) SubscribeAccountChanges(ctx context.Context, account solana.PublicKey) (AccountStream, error) {
	if e.subscriber == nil {
		return nil, fmt.Errorf("%w: no subscription endpoint", walleterr.ErrTransport)
	}
	return e.subscriber.SubscribeAccount(ctx, account)
}

// WatchAccount subscribes to account and calls fn once per update. It runs
// until the stream ends or ctx is done and always returns a non-nil error.
func (e *Engine) WatchAccount(ctx context.Context, account solana.PublicKey, fn func(AccountUpdate)) error {
	stream, err := e.SubscribeAccountChanges(ctx, account)
	if err != nil {
		return err
	}
	defer stream.Close()

	for {
		u, err := stream.Next(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return ctx.Err()
			}
			e.metrics.SubscriptionDropped(string(e.network))
			return fmt.Errorf("watch %s: %w", account, err)
		}
		fn(u)
	}
}
