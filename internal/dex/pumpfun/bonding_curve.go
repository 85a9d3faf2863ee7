// ==============================================
// File: internal/dex/pumpfun/bonding_curve.go
// ==============================================
package pumpfun

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

type bondingCurveLayout struct {
	Discriminator        [8]byte
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
}

// creatorOffset is where curves created after the creator fee upgrade store the creator.
const creatorOffset = 8 + 5*8 + 1

// BondingCurve is the decoded state of a token's bonding curve.
type BondingCurve struct {
	VirtualTokenReserves uint64
	VirtualSolReserves   uint64
	RealTokenReserves    uint64
	RealSolReserves      uint64
	TokenTotalSupply     uint64
	Complete             bool
	Creator              solana.PublicKey // zero for curves created before creators were recorded
}

// DecodeBondingCurve decodes raw bonding curve account data.
func DecodeBondingCurve(data []byte) (*BondingCurve, error) {
	var layout bondingCurveLayout
	if err := bin.NewBorshDecoder(data).Decode(&layout); err != nil {
		return nil, fmt.Errorf("failed to decode bonding curve: %w", err)
	}
	if layout.Discriminator != BondingCurveAccountDiscriminator {
		return nil, fmt.Errorf("unexpected bonding curve discriminator %x", layout.Discriminator)
	}

	bc := &BondingCurve{
		VirtualTokenReserves: layout.VirtualTokenReserves,
		VirtualSolReserves:   layout.VirtualSolReserves,
		RealTokenReserves:    layout.RealTokenReserves,
		RealSolReserves:      layout.RealSolReserves,
		TokenTotalSupply:     layout.TokenTotalSupply,
		Complete:             layout.Complete,
	}
	if len(data) >= creatorOffset+solana.PublicKeyLength {
		bc.Creator = solana.PublicKeyFromBytes(data[creatorOffset : creatorOffset+solana.PublicKeyLength])
	}
	return bc, nil
}

var (
	lamportsPerSOL  = decimal.NewFromInt(LamportsPerSOL)
	tokenUnit       = decimal.New(1, TokenDecimals)
	hundred         = decimal.NewFromInt(100)
	basisPointsBase = decimal.NewFromInt(BasisPointsTotal)
)

// PriceSOL is the spot price of one whole token in SOL.
func (bc *BondingCurve) PriceSOL() decimal.Decimal {
	if bc.VirtualTokenReserves == 0 {
		return decimal.Zero
	}
	sol := decimal.NewFromUint64(bc.VirtualSolReserves).Div(lamportsPerSOL)
	tokens := decimal.NewFromUint64(bc.VirtualTokenReserves).Div(tokenUnit)
	return sol.Div(tokens)
}

// MarketCapSOL values the whole supply at the spot price.
func (bc *BondingCurve) MarketCapSOL() decimal.Decimal {
	supply := decimal.NewFromUint64(bc.TokenTotalSupply).Div(tokenUnit)
	return bc.PriceSOL().Mul(supply)
}

// Progress is the share of the initially sellable tokens already bought, in
// percent within [0,100]. A complete curve is always at 100. The value is not
// rounded; callers round for display.
func (bc *BondingCurve) Progress(initialRealTokenReserves uint64) decimal.Decimal {
	if bc.Complete {
		return hundred
	}
	if initialRealTokenReserves == 0 || bc.RealTokenReserves >= initialRealTokenReserves {
		return decimal.Zero
	}
	sold := decimal.NewFromUint64(initialRealTokenReserves - bc.RealTokenReserves)
	pct := sold.Mul(hundred).Div(decimal.NewFromUint64(initialRealTokenReserves))
	if pct.GreaterThan(hundred) {
		return hundred
	}
	return pct
}
