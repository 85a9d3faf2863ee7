// =============================
// File: internal/dex/pumpfun/accounts.go
// =============================
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// GlobalPDA returns the address of the program's Global account.
func GlobalPDA() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(SeedGlobal)}, PumpFunProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive global account: %w", err)
	}
	return addr, nil
}

// MintAuthorityPDA returns the program owned mint authority.
func MintAuthorityPDA() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(SeedMintAuthority)}, PumpFunProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive mint authority: %w", err)
	}
	return addr, nil
}

// BondingCurvePDA returns the bonding curve account of mint.
func BondingCurvePDA(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedBondingCurve), mint.Bytes()},
		PumpFunProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive bonding curve: %w", err)
	}
	return addr, nil
}

// AssociatedBondingCurve returns the token account holding the curve's tokens.
func AssociatedBondingCurve(mint, bondingCurve solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(bondingCurve, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated bonding curve: %w", err)
	}
	return addr, nil
}

// MetadataPDA returns the Metaplex metadata account of mint.
func MetadataPDA(mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedMetadata), MetadataProgramID.Bytes(), mint.Bytes()},
		MetadataProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive metadata account: %w", err)
	}
	return addr, nil
}

// CreatorVaultPDA returns the vault collecting creator fees for creator.
func CreatorVaultPDA(creator solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedCreatorVault), creator.Bytes()},
		PumpFunProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive creator vault: %w", err)
	}
	return addr, nil
}

// EventAuthorityPDA returns the program's event authority.
func EventAuthorityPDA() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(SeedEventAuthority)}, PumpFunProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive event authority: %w", err)
	}
	return addr, nil
}

// GlobalVolumeAccumulatorPDA returns the program wide volume accumulator.
func GlobalVolumeAccumulatorPDA() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress([][]byte{[]byte(SeedGlobalVolumeAccumulator)}, PumpFunProgramID)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive global volume accumulator: %w", err)
	}
	return addr, nil
}

// UserVolumeAccumulatorPDA returns the volume accumulator of user.
func UserVolumeAccumulatorPDA(user solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedUserVolumeAccumulator), user.Bytes()},
		PumpFunProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive user volume accumulator: %w", err)
	}
	return addr, nil
}

// FeeConfigPDA returns the fee config the fee program keeps for Pump.fun.
func FeeConfigPDA() (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte(SeedFeeConfig), PumpFunProgramID.Bytes()},
		PumpFeeProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive fee config: %w", err)
	}
	return addr, nil
}

// LaunchAccounts are the addresses involved in creating and first buying a token.
type LaunchAccounts struct {
	Mint                   solana.PublicKey
	Creator                solana.PublicKey
	Global                 solana.PublicKey
	MintAuthority          solana.PublicKey
	BondingCurve           solana.PublicKey
	AssociatedBondingCurve solana.PublicKey
	Metadata               solana.PublicKey
	AssociatedUser         solana.PublicKey
	CreatorVault           solana.PublicKey
	GlobalVolume           solana.PublicKey
	UserVolume             solana.PublicKey
	FeeConfig              solana.PublicKey
	EventAuthority         solana.PublicKey
}

// DeriveLaunchAccounts derives every address for a launch of mint by creator.
// The creator is also the fee payer and first buyer.
func DeriveLaunchAccounts(mint, creator solana.PublicKey) (*LaunchAccounts, error) {
	acc := &LaunchAccounts{
		Mint:           mint,
		Creator:        creator,
		EventAuthority: PumpFunEventAuth,
	}

	var err error
	if acc.Global, err = GlobalPDA(); err != nil {
		return nil, err
	}
	if acc.MintAuthority, err = MintAuthorityPDA(); err != nil {
		return nil, err
	}
	if acc.BondingCurve, err = BondingCurvePDA(mint); err != nil {
		return nil, err
	}
	if acc.AssociatedBondingCurve, err = AssociatedBondingCurve(mint, acc.BondingCurve); err != nil {
		return nil, err
	}
	if acc.Metadata, err = MetadataPDA(mint); err != nil {
		return nil, err
	}
	if acc.AssociatedUser, _, err = solana.FindAssociatedTokenAddress(creator, mint); err != nil {
		return nil, fmt.Errorf("failed to derive creator token account: %w", err)
	}
	if acc.CreatorVault, err = CreatorVaultPDA(creator); err != nil {
		return nil, err
	}
	if acc.GlobalVolume, err = GlobalVolumeAccumulatorPDA(); err != nil {
		return nil, err
	}
	if acc.UserVolume, err = UserVolumeAccumulatorPDA(creator); err != nil {
		return nil, err
	}
	if acc.FeeConfig, err = FeeConfigPDA(); err != nil {
		return nil, err
	}
	return acc, nil
}
