package txengine

import (
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
)

// MemoProgramID is the SPL memo program.
var MemoProgramID = solana.MustPublicKeyFromBase58("MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr")

// DeriveAssociatedAddress returns the associated token account of owner for
// mint. It is a pure function of its inputs.
func DeriveAssociatedAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: derive associated address: %v", walleterr.ErrDerivation, err)
	}
	return addr, nil
}

// NativeTransferInstructions builds a native transfer with optional
// prioritization fee (micro-lamports per compute unit) and memo.
func NativeTransferInstructions(from, to solana.PublicKey, lamports uint64, memo string, priorityFee uint64) []solana.Instruction {
	var ixs []solana.Instruction
	if priorityFee > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitPriceInstruction(priorityFee).Build())
	}
	ixs = append(ixs, system.NewTransferInstruction(lamports, from, to).Build())
	if memo != "" {
		ixs = append(ixs, memoInstruction(from, memo))
	}
	return ixs
}

// TokenTransferPlan describes a token transfer between two wallet owners.
type TokenTransferPlan struct {
	Sender solana.PublicKey
	// SenderTokenAccount is the account debited. Zero means the sender's
	// associated token account.
	SenderTokenAccount solana.PublicKey
	Recipient          solana.PublicKey
	Mint               solana.PublicKey
	// Amount is in base units.
	Amount   uint64
	Decimals uint8
	// CreateRecipientAccount prepends creation of the recipient's
	// associated token account, paid by the sender.
	CreateRecipientAccount bool
	Memo                   string
	PriorityFee            uint64
}

// TokenTransferInstructions builds a checked token transfer from the
// sender's token account to the recipient's associated token account.
func TokenTransferInstructions(p TokenTransferPlan) ([]solana.Instruction, error) {
	source := p.SenderTokenAccount
	if source.IsZero() {
		ata, err := DeriveAssociatedAddress(p.Sender, p.Mint)
		if err != nil {
			return nil, err
		}
		source = ata
	}
	dest, err := DeriveAssociatedAddress(p.Recipient, p.Mint)
	if err != nil {
		return nil, err
	}

	var ixs []solana.Instruction
	if p.PriorityFee > 0 {
		ixs = append(ixs, computebudget.NewSetComputeUnitPriceInstruction(p.PriorityFee).Build())
	}
	if p.CreateRecipientAccount {
		create, err := associatedtokenaccount.NewCreateInstruction(p.Sender, p.Recipient, p.Mint).ValidateAndBuild()
		if err != nil {
			return nil, fmt.Errorf("build create account: %w", err)
		}
		ixs = append(ixs, create)
	}
	transfer, err := token.NewTransferCheckedInstruction(
		p.Amount, p.Decimals, source, p.Mint, dest, p.Sender, nil,
	).ValidateAndBuild()
	if err != nil {
		return nil, fmt.Errorf("build transfer: %w", err)
	}
	ixs = append(ixs, transfer)
	if p.Memo != "" {
		ixs = append(ixs, memoInstruction(p.Sender, p.Memo))
	}
	return ixs, nil
}

func memoInstruction(signer solana.PublicKey, memo string) solana.Instruction {
	return solana.NewInstruction(
		MemoProgramID,
		solana.AccountMetaSlice{solana.NewAccountMeta(signer, false, true)},
		[]byte(memo),
	)
}
