// ==============================================
// File: internal/dex/pumpfun/instructions.go
// ==============================================
package pumpfun

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	associatedtokenaccount "github.com/gagliardetto/solana-go/programs/associated-token-account"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

// Metaplex limits on the metadata strings written by create.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

type createArgs struct {
	Name    string
	Symbol  string
	URI     string
	Creator solana.PublicKey
}

// BuildCreateInstruction builds the instruction that creates the mint, its
// metadata and its bonding curve.
func BuildCreateInstruction(acc *LaunchAccounts, name, symbol, uri string) (solana.Instruction, error) {
	if err := ValidateMetadataStrings(name, symbol, uri); err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	buf.Write(CreateDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).Encode(createArgs{
		Name:    name,
		Symbol:  symbol,
		URI:     uri,
		Creator: acc.Creator,
	}); err != nil {
		return nil, fmt.Errorf("failed to encode create args: %w", err)
	}

	// Account list must be in the exact order expected by the program
	accounts := []*solana.AccountMeta{
		{PublicKey: acc.Mint, IsSigner: true, IsWritable: true},
		{PublicKey: acc.MintAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: acc.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: acc.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: acc.Global, IsSigner: false, IsWritable: false},
		{PublicKey: MetadataProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: acc.Metadata, IsSigner: false, IsWritable: true},
		{PublicKey: acc.Creator, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SPLAssociatedTokenAccountProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.SysVarRentPubkey, IsSigner: false, IsWritable: false},
		{PublicKey: acc.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: PumpFunProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(PumpFunProgramID, accounts, buf.Bytes()), nil
}

// BuildBuyInstruction builds a buy of amount raw tokens paying at most maxSolCost lamports.
func BuildBuyInstruction(acc *LaunchAccounts, feeRecipient solana.PublicKey, amount, maxSolCost uint64) solana.Instruction {
	data := make([]byte, 0, 24)
	data = append(data, BuyDiscriminator[:]...)
	data = binary.LittleEndian.AppendUint64(data, amount)
	data = binary.LittleEndian.AppendUint64(data, maxSolCost)

	// Account list must be in the exact order expected by the program
	accounts := []*solana.AccountMeta{
		{PublicKey: acc.Global, IsSigner: false, IsWritable: false},
		{PublicKey: feeRecipient, IsSigner: false, IsWritable: true},
		{PublicKey: acc.Mint, IsSigner: false, IsWritable: false},
		{PublicKey: acc.BondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: acc.AssociatedBondingCurve, IsSigner: false, IsWritable: true},
		{PublicKey: acc.AssociatedUser, IsSigner: false, IsWritable: true},
		{PublicKey: acc.Creator, IsSigner: true, IsWritable: true},
		{PublicKey: solana.SystemProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: solana.TokenProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: acc.CreatorVault, IsSigner: false, IsWritable: true},
		{PublicKey: acc.EventAuthority, IsSigner: false, IsWritable: false},
		{PublicKey: PumpFunProgramID, IsSigner: false, IsWritable: false},
		{PublicKey: acc.GlobalVolume, IsSigner: false, IsWritable: false},
		{PublicKey: acc.UserVolume, IsSigner: false, IsWritable: true},
		{PublicKey: acc.FeeConfig, IsSigner: false, IsWritable: false},
		{PublicKey: PumpFeeProgramID, IsSigner: false, IsWritable: false},
	}

	return solana.NewInstruction(PumpFunProgramID, accounts, data)
}

// BuildCreateTokenAccountInstruction creates the creator's token account for the new mint.
func BuildCreateTokenAccountInstruction(acc *LaunchAccounts) solana.Instruction {
	return associatedtokenaccount.NewCreateInstruction(acc.Creator, acc.Creator, acc.Mint).Build()
}

// ComputeBudgetInstructions returns limit and price instructions for the
// non-zero settings, in that order.
func ComputeBudgetInstructions(unitLimit uint32, unitPrice uint64) []solana.Instruction {
	var instructions []solana.Instruction
	if unitLimit > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitLimitInstruction(unitLimit).Build())
	}
	if unitPrice > 0 {
		instructions = append(instructions, computebudget.NewSetComputeUnitPriceInstruction(unitPrice).Build())
	}
	return instructions
}

// ValidateMetadataStrings checks the on-chain metadata limits.
func ValidateMetadataStrings(name, symbol, uri string) error {
	switch {
	case len(name) > MaxNameLength:
		return &MetadataLimitError{Field: "name", Max: MaxNameLength}
	case len(symbol) > MaxSymbolLength:
		return &MetadataLimitError{Field: "symbol", Max: MaxSymbolLength}
	case len(uri) > MaxURILength:
		return &MetadataLimitError{Field: "uri", Max: MaxURILength}
	}
	return nil
}

// MetadataLimitError reports a metadata string longer than the chain accepts.
type MetadataLimitError struct {
	Field string
	Max   int
}

func (e *MetadataLimitError) Error() string {
	return fmt.Sprintf("%s must be at most %d bytes", e.Field, e.Max)
}
