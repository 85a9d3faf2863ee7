// internal/dex/pumpfun/token_calc.go
package pumpfun

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// SOLToLamports converts a SOL amount to lamports, truncating dust.
func SOLToLamports(sol decimal.Decimal) (uint64, error) {
	if sol.IsNegative() {
		return 0, fmt.Errorf("negative SOL amount %s", sol)
	}
	lamports := sol.Mul(lamportsPerSOL).Truncate(0)
	if !lamports.IsPositive() {
		return 0, errors.New("SOL amount rounds to zero lamports")
	}
	return lamports.BigInt().Uint64(), nil
}

// LamportsToSOL converts lamports to SOL.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromUint64(lamports).Div(lamportsPerSOL)
}

// Quote is the outcome of buying into a fresh curve.
type Quote struct {
	SolIn       uint64 // lamports the buyer intends to spend, fees included
	TokenAmount uint64 // raw token units received
	MaxSolCost  uint64 // lamports cap passed to the program
}

// QuoteInitialBuy computes the tokens a first buyer receives for solIn
// lamports on a curve that still has the global initial reserves. The fee is
// taken out of solIn before the constant product swap, and the result is
// capped at the sellable reserve. MaxSolCost adds slippageBps on top of solIn.
func QuoteInitialBuy(global *GlobalAccount, solIn, slippageBps uint64) (Quote, error) {
	if global == nil {
		return Quote{}, errors.New("global account is required")
	}
	if solIn == 0 {
		return Quote{}, errors.New("initial buy must be positive")
	}
	if global.InitialVirtualSolReserves == 0 || global.InitialVirtualTokenReserves == 0 {
		return Quote{}, errors.New("global account has zero initial reserves")
	}

	in := decimal.NewFromUint64(solIn)
	feeFactor := basisPointsBase.Add(decimal.NewFromUint64(global.FeeBasisPoints))
	net := in.Mul(basisPointsBase).Div(feeFactor).Truncate(0)

	vS := decimal.NewFromUint64(global.InitialVirtualSolReserves)
	vT := decimal.NewFromUint64(global.InitialVirtualTokenReserves)
	tokens := net.Mul(vT).Div(vS.Add(net)).Truncate(0)

	if real := decimal.NewFromUint64(global.InitialRealTokenReserves); real.IsPositive() && tokens.GreaterThan(real) {
		tokens = real
	}
	if !tokens.IsPositive() {
		return Quote{}, fmt.Errorf("initial buy of %d lamports yields no tokens", solIn)
	}

	maxCost := in.Mul(basisPointsBase.Add(decimal.NewFromUint64(slippageBps))).Div(basisPointsBase).Truncate(0)

	return Quote{
		SolIn:       solIn,
		TokenAmount: tokens.BigInt().Uint64(),
		MaxSolCost:  maxCost.BigInt().Uint64(),
	}, nil
}
