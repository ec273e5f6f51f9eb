package txengine

import (
	"context"
	"sync"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// SolanaSubscriber implements Subscriber over a websocket endpoint. Each
// subscription owns its own connection.
type SolanaSubscriber struct {
	url string
}

// NewSolanaSubscriber returns a subscriber for the websocket endpoint url.
func NewSolanaSubscriber(url string) *SolanaSubscriber {
	return &SolanaSubscriber{url: url}
}

// SubscribeAccount subscribes to confirmed changes of account.
func (s *SolanaSubscriber) SubscribeAccount(ctx context.Context, account solana.PublicKey) (AccountStream, error) {
	conn, err := ws.Connect(ctx, s.url)
	if err != nil {
		return nil, walleterr.Transport("ws connect", err)
	}
	sub, err := conn.AccountSubscribe(account, rpc.CommitmentConfirmed)
	if err != nil {
		conn.Close()
		return nil, walleterr.Transport("accountSubscribe", err)
	}
	return &wsAccountStream{conn: conn, sub: sub}, nil
}

type wsAccountStream struct {
	conn *ws.Client
	sub  *ws.AccountSubscription

	once sync.Once
}

func (s *wsAccountStream) Next(ctx context.Context) (AccountUpdate, error) {
	res, err := s.sub.Recv(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return AccountUpdate{}, ctx.Err()
		}
		return AccountUpdate{}, walleterr.Transport("account stream", err)
	}
	if res == nil {
		return AccountUpdate{}, ErrStreamClosed
	}
	u := AccountUpdate{Slot: res.Context.Slot, Lamports: res.Value.Lamports}
	if res.Value.Data != nil {
		u.Data = res.Value.Data.GetBinary()
	}
	return u, nil
}

func (s *wsAccountStream) Close() error {
	s.once.Do(func() {
		s.sub.Unsubscribe()
		s.conn.Close()
	})
	return nil
}
