package social

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpbot/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpbot/internal/wallet"
	"go.uber.org/zap"
)

// CreatedToken is what a TokenCreator reports after creating a token.
type CreatedToken struct {
	TokenAddress        string
	BondingCurveAddress string
	TxHash              string
}

// TokenCreator creates the token described by a post.
type TokenCreator interface {
	CreateToken(ctx context.Context, data TokenData) (*CreatedToken, error)
}

// SimulatedCreator reserves a fresh mint address without touching the chain.
// Social launches have no signing wallet, so nothing is ever broadcast.
type SimulatedCreator struct {
	logger *zap.Logger
}

func NewSimulatedCreator(logger *zap.Logger) *SimulatedCreator {
	return &SimulatedCreator{logger: logger.Named("simulated_creator")}
}

func (s *SimulatedCreator) CreateToken(_ context.Context, data TokenData) (*CreatedToken, error) {
	mint, err := wallet.GenerateMint()
	if err != nil {
		return nil, err
	}
	curve, err := pumpfun.BondingCurvePDA(mint.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to derive bonding curve: %w", err)
	}

	var sig solana.Signature
	if _, err := rand.Read(sig[:]); err != nil {
		return nil, fmt.Errorf("failed to generate transaction id: %w", err)
	}

	s.logger.Info("Simulated token creation",
		zap.String("symbol", data.Symbol),
		zap.String("mint", mint.PublicKey.String()))

	return &CreatedToken{
		TokenAddress:        mint.PublicKey.String(),
		BondingCurveAddress: curve.String(),
		TxHash:              sig.String(),
	}, nil
}
