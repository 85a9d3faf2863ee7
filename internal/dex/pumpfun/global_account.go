// =============================================
// File: internal/dex/pumpfun/global_account.go
// =============================================
package pumpfun

import (
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// AccountReader is the chain access the package needs.
type AccountReader interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// GlobalAccount is the leading, stable part of the program's Global account.
// Fields appended by later program versions are not decoded.
type GlobalAccount struct {
	Discriminator               [8]byte
	Initialized                 bool
	Authority                   solana.PublicKey
	FeeRecipient                solana.PublicKey
	InitialVirtualTokenReserves uint64
	InitialVirtualSolReserves   uint64
	InitialRealTokenReserves    uint64
	TokenTotalSupply            uint64
	FeeBasisPoints              uint64
}

// DecodeGlobal decodes raw Global account data.
func DecodeGlobal(data []byte) (*GlobalAccount, error) {
	var g GlobalAccount
	if err := bin.NewBorshDecoder(data).Decode(&g); err != nil {
		return nil, fmt.Errorf("failed to decode global account: %w", err)
	}
	if g.Discriminator != GlobalAccountDiscriminator {
		return nil, fmt.Errorf("unexpected global account discriminator %x", g.Discriminator)
	}
	if !g.Initialized {
		return nil, fmt.Errorf("global account is not initialized")
	}
	return &g, nil
}

// FetchGlobal reads and decodes the Global account.
func FetchGlobal(ctx context.Context, client AccountReader, logger *zap.Logger) (*GlobalAccount, error) {
	globalAddr, err := GlobalPDA()
	if err != nil {
		return nil, err
	}

	accountInfo, err := client.GetAccountInfo(ctx, globalAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to get global account: %w", err)
	}
	if accountInfo == nil || accountInfo.Value == nil {
		return nil, fmt.Errorf("global account not found: %s", globalAddr)
	}
	if !accountInfo.Value.Owner.Equals(PumpFunProgramID) {
		return nil, fmt.Errorf("global account has incorrect owner: expected %s, got %s",
			PumpFunProgramID, accountInfo.Value.Owner)
	}

	global, err := DecodeGlobal(accountInfo.Value.Data.GetBinary())
	if err != nil {
		return nil, err
	}

	logger.Debug("Global account fetched",
		zap.String("fee_recipient", global.FeeRecipient.String()),
		zap.Uint64("fee_basis_points", global.FeeBasisPoints),
		zap.Uint64("initial_virtual_token_reserves", global.InitialVirtualTokenReserves),
		zap.Uint64("initial_virtual_sol_reserves", global.InitialVirtualSolReserves))

	return global, nil
}
