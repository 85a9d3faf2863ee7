// internal/dex/pumpfun/launch.go
package pumpfun

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// LaunchParams describe a token launch with its mandatory first buy.
type LaunchParams struct {
	Mint    solana.PublicKey
	Creator solana.PublicKey
	Name    string
	Symbol  string
	URI     string

	SolAmount   uint64 // lamports spent on the first buy
	SlippageBps uint64

	ComputeUnitLimit uint32
	ComputeUnitPrice uint64
}

// LaunchPlan is the ordered instruction set of a launch.
type LaunchPlan struct {
	Accounts     *LaunchAccounts
	Quote        Quote
	Instructions []solana.Instruction
}

// BuildLaunchInstructions returns, in order: optional compute budget
// instructions, create, the creator's token account, and the first buy.
func BuildLaunchInstructions(global *GlobalAccount, p LaunchParams) (*LaunchPlan, error) {
	if global == nil {
		return nil, fmt.Errorf("global account is required")
	}

	acc, err := DeriveLaunchAccounts(p.Mint, p.Creator)
	if err != nil {
		return nil, err
	}

	quote, err := QuoteInitialBuy(global, p.SolAmount, p.SlippageBps)
	if err != nil {
		return nil, fmt.Errorf("failed to quote initial buy: %w", err)
	}

	create, err := BuildCreateInstruction(acc, p.Name, p.Symbol, p.URI)
	if err != nil {
		return nil, err
	}

	instructions := ComputeBudgetInstructions(p.ComputeUnitLimit, p.ComputeUnitPrice)
	instructions = append(instructions,
		create,
		BuildCreateTokenAccountInstruction(acc),
		BuildBuyInstruction(acc, global.FeeRecipient, quote.TokenAmount, quote.MaxSolCost),
	)

	return &LaunchPlan{
		Accounts:     acc,
		Quote:        quote,
		Instructions: instructions,
	}, nil
}
