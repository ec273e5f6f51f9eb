package txengine

import (
	"bytes"
	"fmt"

	"github.com/Klingon-tech/solwallet/internal/walleterr"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Token program account layouts.
const (
	// TokenAccountSize is the fixed size of a token account.
	TokenAccountSize = 165
	// MintSize is the fixed size of a mint account.
	MintSize = 82

	// MintOffset and OwnerOffset locate the mint and owner keys inside a
	// token account; program-account filters rely on them.
	MintOffset  = 0
	OwnerOffset = 32
)

// TokenAccount is the decoded prefix of a token account.
type TokenAccount struct {
	Mint   solana.PublicKey
	Owner  solana.PublicKey
	Amount uint64
}

// MintInfo is the decoded part of a mint account the wallet uses.
type MintInfo struct {
	Supply   uint64
	Decimals uint8
}

// DecodeTokenAccount decodes mint(32) | owner(32) | amount(u64 LE).
func DecodeTokenAccount(data []byte) (TokenAccount, error) {
	if len(data) < TokenAccountSize {
		return TokenAccount{}, fmt.Errorf("%w: token account is %d bytes, want %d",
			walleterr.ErrValidation, len(data), TokenAccountSize)
	}
	dec := bin.NewBinDecoder(data)
	mint, err := dec.ReadNBytes(32)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("decode mint: %w", err)
	}
	owner, err := dec.ReadNBytes(32)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("decode owner: %w", err)
	}
	amount, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return TokenAccount{}, fmt.Errorf("decode amount: %w", err)
	}
	return TokenAccount{
		Mint:   solana.PublicKeyFromBytes(mint),
		Owner:  solana.PublicKeyFromBytes(owner),
		Amount: amount,
	}, nil
}

// DecodeMint decodes a mint account:
// authority option(4) | authority(32) | supply(u64 LE) | decimals(u8) | ...
func DecodeMint(data []byte) (MintInfo, error) {
	if len(data) < MintSize {
		return MintInfo{}, fmt.Errorf("%w: mint account is %d bytes, want %d",
			walleterr.ErrValidation, len(data), MintSize)
	}
	dec := bin.NewBinDecoder(data)
	if err := dec.SkipBytes(36); err != nil {
		return MintInfo{}, fmt.Errorf("decode mint authority: %w", err)
	}
	supply, err := dec.ReadUint64(bin.LE)
	if err != nil {
		return MintInfo{}, fmt.Errorf("decode supply: %w", err)
	}
	decimals, err := dec.ReadUint8()
	if err != nil {
		return MintInfo{}, fmt.Errorf("decode decimals: %w", err)
	}
	return MintInfo{Supply: supply, Decimals: decimals}, nil
}

// EncodeTokenAccount renders a TokenAccount in the on-chain layout with the
// remaining fields zeroed.
func EncodeTokenAccount(a TokenAccount) []byte {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	enc.WriteBytes(a.Mint.Bytes(), false)
	enc.WriteBytes(a.Owner.Bytes(), false)
	enc.WriteUint64(a.Amount, bin.LE)
	out := buf.Bytes()
	return append(out, make([]byte, TokenAccountSize-len(out))...)
}

// EncodeMint renders a mint account with no authorities.
func EncodeMint(m MintInfo) []byte {
	var buf bytes.Buffer
	enc := bin.NewBinEncoder(&buf)
	enc.WriteBytes(make([]byte, 36), false)
	enc.WriteUint64(m.Supply, bin.LE)
	enc.WriteUint8(m.Decimals)
	enc.WriteUint8(1) // initialized
	out := buf.Bytes()
	return append(out, make([]byte, MintSize-len(out))...)
}
