// =============================
// File: internal/dex/pumpfun/config.go
// =============================
package pumpfun

import (
	"crypto/sha256"

	"github.com/gagliardetto/solana-go"
)

// Known Pump.fun protocol addresses.
var (
	PumpFunProgramID  = solana.MustPublicKeyFromBase58("6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P")
	PumpFunEventAuth  = solana.MustPublicKeyFromBase58("Ce6TQqeHC9p8KetsN6JsjHK7UTZk7nasjjnr7XxXp9F1")
	PumpFeeProgramID  = solana.MustPublicKeyFromBase58("pfeeUxB6jkeY1Hxd7CsFCAjcbHA9rWtchMGdZ6VojVZ")
	MetadataProgramID = solana.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")
)

// PDA seeds.
const (
	SeedGlobal                  = "global"
	SeedBondingCurve            = "bonding-curve"
	SeedCreatorVault            = "creator-vault"
	SeedMintAuthority           = "mint-authority"
	SeedEventAuthority          = "__event_authority"
	SeedGlobalVolumeAccumulator = "global_volume_accumulator"
	SeedUserVolumeAccumulator   = "user_volume_accumulator"
	SeedFeeConfig               = "fee_config"
	SeedMetadata                = "metadata"
)

// Token parameters fixed by the program for every launch.
const (
	TokenDecimals    = 6
	LamportsPerSOL   = 1_000_000_000
	DefaultSupply    = 1_000_000_000 // whole tokens
	BasisPointsTotal = 10_000
)

// Anchor discriminators.
var (
	CreateDiscriminator = anchorDiscriminator("global", "create")
	BuyDiscriminator    = anchorDiscriminator("global", "buy")

	GlobalAccountDiscriminator       = anchorDiscriminator("account", "Global")
	BondingCurveAccountDiscriminator = anchorDiscriminator("account", "BondingCurve")
)

func anchorDiscriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}
