package txengine

import (
	"context"
	"fmt"
	"time"

	"github.com/Klingon-tech/solwallet/internal/log"
	"github.com/Klingon-tech/solwallet/internal/metrics"
	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/Klingon-tech/solwallet/pkg/types"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog"
	"go.uber.org/ratelimit"
)

// Engine defaults.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultConfirmAttempts = 500
	DefaultPollRate        = 4 // polls per second

	// CreateTokenAccountRentLamports is the usual rent-exempt deposit of a
	// token account, used when the network cannot be asked.
	CreateTokenAccountRentLamports = 2_039_280
)

// TxState is the lifecycle state of a submitted transfer.
type TxState int

const (
	StateBuilt TxState = iota
	StateSigned
	StateSubmitted
	StateConfirmed
	StateFailed
	StateTimedOut
)

func (s TxState) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateSigned:
		return "signed"
	case StateSubmitted:
		return "submitted"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed out"
	}
	return "unknown"
}

// Config tunes an Engine.
type Config struct {
	Network types.Network
	// Timeout bounds each RPC call whose context has no deadline.
	Timeout         time.Duration
	ConfirmAttempts int
	// Limiter paces confirmation polls. Nil means DefaultPollRate.
	Limiter ratelimit.Limiter
	Metrics *metrics.Metrics
}

// Engine is the transaction engine for one network.
type Engine struct {
	client     Client
	subscriber Subscriber
	network    types.Network
	timeout    time.Duration
	attempts   int
	limiter    ratelimit.Limiter
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

// New creates an engine over client. subscriber may be nil when push
// subscriptions are not needed.
func New(client Client, subscriber Subscriber, cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ConfirmAttempts <= 0 {
		cfg.ConfirmAttempts = DefaultConfirmAttempts
	}
	if cfg.Limiter == nil {
		cfg.Limiter = ratelimit.New(DefaultPollRate)
	}
	return &Engine{
		client:     client,
		subscriber: subscriber,
		network:    cfg.Network,
		timeout:    cfg.Timeout,
		attempts:   cfg.ConfirmAttempts,
		limiter:    cfg.Limiter,
		metrics:    cfg.Metrics,
		logger:     log.WithNetwork(log.Engine, string(cfg.Network)),
	}
}

// Network returns the engine's network.
func (e *Engine) Network() types.Network { return e.network }

// ConfirmAttempts returns the default confirmation poll budget.
func (e *Engine) ConfirmAttempts() int { return e.attempts }

// callCtx applies the engine timeout when ctx has no deadline.
func (e *Engine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.timeout)
}

// EstimateFee returns the fee in lamports for a message of instructions paid
// by payer, against a freshly fetched blockhash. The message is not signed.
// Failures wrap walleterr.ErrFeeEstimation around their cause.
func (e *Engine) EstimateFee(ctx context.Context, instructions []solana.Instruction, payer solana.PublicKey) (uint64, error) {
	ctx, cancel := e.callCtx(ctx)
	defer cancel()

	blockhash, err := e.client.LatestBlockhash(ctx)
	if err != nil {
		return 0, walleterr.FeeEstimation(err)
	}
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return 0, walleterr.FeeEstimation(fmt.Errorf("build message: %w", err))
	}
	fee, err := e.client.FeeForMessage(ctx, &tx.Message)
	if err != nil {
		return 0, walleterr.FeeEstimation(err)
	}
	return fee, nil
}

// NativeTransfer is a request to send lamports.
type NativeTransfer struct {
	Signer solana.PrivateKey
	// From, when set, must be the signer's address.
	From        solana.PublicKey
	Recipient   solana.PublicKey
	Lamports    uint64
	Memo        string
	PriorityFee uint64
}

// TokenTransfer is a request to send a token. Amount is in human units.
type TokenTransfer struct {
	Signer solana.PrivateKey
	From   solana.PublicKey
	// SourceAccount is the token account debited; zero means the signer's
	// associated token account.
	SourceAccount          solana.PublicKey
	Recipient              solana.PublicKey
	Mint                   solana.PublicKey
	Amount                 string
	Decimals               uint8
	CreateRecipientAccount bool
	Memo                   string
	PriorityFee            uint64
}

// SendResult reports the outcome of a send.
type SendResult struct {
	Signature solana.Signature
	State     TxState
	// Attempts is the number of confirmation polls used, if waited.
	Attempts int
}

// SendNative transfers lamports. With wait set it blocks until the transfer
// is confirmed, fails, or the poll budget runs out.
func (e *Engine) SendNative(ctx context.Context, req NativeTransfer, wait bool) (SendResult, error) {
	if err := checkSigner(req.Signer, req.From); err != nil {
		return SendResult{}, err
	}
	ixs := NativeTransferInstructions(req.Signer.PublicKey(), req.Recipient, req.Lamports, req.Memo, req.PriorityFee)
	return e.submit(ctx, ixs, req.Signer, "native", wait)
}

// SendToken transfers a token from the signer's token account to the
// recipient's associated account. The mint's on-chain decimals are checked before
// anything is submitted.
func (e *Engine) SendToken(ctx context.Context, req TokenTransfer, wait bool) (SendResult, error) {
	if err := checkSigner(req.Signer, req.From); err != nil {
		return SendResult{}, err
	}

	onChain, err := e.MintDecimals(ctx, req.Mint)
	if err != nil {
		return SendResult{}, fmt.Errorf("send token: %w", err)
	}
	if onChain != req.Decimals {
		return SendResult{}, &walleterr.DecimalMismatchError{
			Mint:     req.Mint.String(),
			Supplied: req.Decimals,
			OnChain:  onChain,
		}
	}

	amount, err := types.ParseAmount(req.Amount, req.Decimals)
	if err != nil {
		return SendResult{}, err
	}

	ixs, err := TokenTransferInstructions(TokenTransferPlan{
		Sender:                 req.Signer.PublicKey(),
		SenderTokenAccount:     req.SourceAccount,
		Recipient:              req.Recipient,
		Mint:                   req.Mint,
		Amount:                 amount,
		Decimals:               req.Decimals,
		CreateRecipientAccount: req.CreateRecipientAccount,
		Memo:                   req.Memo,
		PriorityFee:            req.PriorityFee,
	})
	if err != nil {
		return SendResult{}, err
	}
	return e.submit(ctx, ixs, req.Signer, "token", wait)
}

func checkSigner(signer solana.PrivateKey, from solana.PublicKey) error {
	if len(signer) != 64 {
		return fmt.Errorf("%w: signer key is %d bytes", walleterr.ErrValidation, len(signer))
	}
	if !from.IsZero() && !from.Equals(signer.PublicKey()) {
		return walleterr.ErrSignerMismatch
	}
	return nil
}

// submit builds against a fresh blockhash, signs, sends, and optionally
// waits for confirmation.
func (e *Engine) submit(ctx context.Context, ixs []solana.Instruction, signer solana.PrivateKey, kind string, wait bool) (SendResult, error) {
	res := SendResult{State: StateBuilt}

	callCtx, cancel := e.callCtx(ctx)
	blockhash, err := e.client.LatestBlockhash(callCtx)
	cancel()
	if err != nil {
		return res, fmt.Errorf("send %s: %w", kind, err)
	}

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(signer.PublicKey()))
	if err != nil {
		return res, fmt.Errorf("send %s: build transaction: %w", kind, err)
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(signer.PublicKey()) {
			return &signer
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("send %s: sign: %w", kind, err)
	}
	res.State = StateSigned

	callCtx, cancel = e.callCtx(ctx)
	sig, err := e.client.SendTransaction(callCtx, tx)
	cancel()
	if err != nil {
		return res, fmt.Errorf("send %s: %w", kind, err)
	}
	res.Signature = sig
	res.State = StateSubmitted
	e.metrics.Submitted(string(e.network), kind)
	e.logger.Info().Str("signature", sig.String()).Str("kind", kind).Msg("Transaction submitted")

	if !wait {
		return res, nil
	}

	res.Attempts, err = e.WaitForConfirmation(ctx, sig, e.attempts)
	res.State = stateFor(err)
	return res, err
}

func stateFor(err error) TxState {
	if err == nil {
		return StateConfirmed
	}
	switch walleterr.Kind(err) {
	case walleterr.ErrTransactionFailed:
		return StateFailed
	case walleterr.ErrConfirmationExhausted:
		return StateTimedOut
	}
	// Transport trouble while waiting: the transaction is out there.
	return StateSubmitted
}
