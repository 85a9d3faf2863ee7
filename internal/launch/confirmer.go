package launch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"github.com/rovshanmuradov/pumpbot/internal/blockchain"
	"github.com/rovshanmuradov/pumpbot/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpbot/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpbot/internal/logger"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"go.uber.org/zap"
)

// TransactionLookup finds a landed transaction. It returns
// solbc.ErrTransactionNotFound when the chain does not know the signature.
type TransactionLookup interface {
	GetTransaction(ctx context.Context, signature solana.Signature) (*blockchain.TransactionInfo, error)
}

// Registrar stores a launch record unless one already exists.
type Registrar interface {
	CreateIfAbsent(ctx context.Context, rec *models.TokenLaunch) (bool, *models.TokenLaunch, error)
}

// ConfirmRequest identifies a broadcast launch transaction.
type ConfirmRequest struct {
	TxSignature string `json:"txSignature"`
	MintAddress string `json:"mintAddress,omitempty"`
}

// TransactionSummary is the verified on-chain outcome.
type TransactionSummary struct {
	Signature string     `json:"signature"`
	Slot      uint64     `json:"slot"`
	BlockTime *time.Time `json:"blockTime"`
	Fee       uint64     `json:"fee"`
}

// TokenRef identifies a registered token.
type TokenRef struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Links points at public explorers.
type Links struct {
	Explorer    string `json:"explorer"`
	Solana      string `json:"solana"`
	Token       string `json:"token,omitempty"`
	PumpFun     string `json:"pumpfun,omitempty"`
	DexScreener string `json:"dexscreener,omitempty"`
}

// Confirmation is the result of a successful Confirm.
type Confirmation struct {
	Message       string             `json:"message"`
	AlreadyExists bool               `json:"alreadyExists,omitempty"`
	Token         *TokenRef          `json:"token,omitempty"`
	Transaction   TransactionSummary `json:"transaction"`
	MintAddress   string             `json:"mintAddress,omitempty"`
	Links         Links              `json:"links"`
}

const (
	defaultName        = "Unknown"
	defaultSymbol      = "TBD"
	defaultDescription = "Token launched via PumpBot"
	defaultAgentName   = "Bot Agent"
	unknownWallet      = "unknown"

	retryHint = "Transaction might still be processing. Try again in a few seconds."
)

// Confirmer verifies broadcast launches and registers their tokens.
type Confirmer struct {
	chain    TransactionLookup
	registry Registrar
	logger   *zap.Logger
}

func NewConfirmer(chain TransactionLookup, registry Registrar, logger *zap.Logger) *Confirmer {
	return &Confirmer{
		chain:    chain,
		registry: registry,
		logger:   logger.Named("confirmer"),
	}
}

// Confirm checks that the transaction landed without error and, when a mint
// address is given, registers the token once. Registration failures are
// logged and do not fail the confirmation.
func (c *Confirmer) Confirm(ctx context.Context, req ConfirmRequest) (*Confirmation, error) {
	sigText := strings.TrimSpace(req.TxSignature)
	if sigText == "" {
		return nil, apperr.Validation("Missing required field", "txSignature is required")
	}

	var mint solana.PublicKey
	mintText := strings.TrimSpace(req.MintAddress)
	if mintText != "" {
		var err error
		mint, err = solana.PublicKeyFromBase58(mintText)
		if err != nil {
			return nil, apperr.Validation("Invalid mint address", "mintAddress must be a valid Solana public key")
		}
	}

	log := logger.WithOperation(c.logger, "confirm").With(
		zap.String("signature", sigText),
		zap.String("mint", mintText))

	// a malformed signature can never be found on chain
	sig, err := solana.SignatureFromBase58(sigText)
	if err != nil {
		return nil, notFound()
	}

	info, err := c.chain.GetTransaction(ctx, sig)
	if err != nil {
		if errors.Is(err, solbc.ErrTransactionNotFound) {
			log.Info("Transaction not found yet")
			return nil, notFound()
		}
		log.Error("Failed to verify transaction", zap.Error(err))
		return nil, apperr.Internal("Error verifying transaction", err).
			WithHint("Check if the transaction signature is correct")
	}

	if info.Failed() {
		log.Warn("Transaction failed on-chain", zap.Any("err", info.Err))
		reasons := append([]string{"The transaction failed on-chain"},
			solbc.DescribeTransactionError(info.Err, info.LogMessages)...)
		return nil, apperr.Execution("Transaction failed", reasons...)
	}

	result := &Confirmation{
		Message: "Transaction confirmed successfully",
		Transaction: TransactionSummary{
			Signature: sigText,
			Slot:      info.Slot,
			BlockTime: info.BlockTime,
			Fee:       info.Fee,
		},
		Links: buildLinks(sigText, mintText),
	}
	if mintText == "" {
		return result, nil
	}
	result.MintAddress = mintText

	rec := minimalRecord(mint, sigText, info)
	created, existing, err := c.registry.CreateIfAbsent(ctx, rec)
	switch {
	case err != nil:
		log.Error("Failed to register token", zap.Error(err))
	case !created && existing != nil:
		log.Info("Token already registered")
		result.Message = "Token already registered"
		result.AlreadyExists = true
		result.Token = &TokenRef{Address: existing.Address, Name: existing.Name, Symbol: existing.Symbol}
	default:
		log.Info("Token registered")
	}
	return result, nil
}

func notFound() *apperr.Error {
	return apperr.NotFound("Transaction not found",
		"Could not find transaction on Solana blockchain. Make sure it has been confirmed.").
		WithHint(retryHint)
}

func minimalRecord(mint solana.PublicKey, sig string, info *blockchain.TransactionInfo) *models.TokenLaunch {
	agentWallet := unknownWallet
	if payer, ok := info.FeePayer(); ok {
		agentWallet = payer.String()
	}

	rec := &models.TokenLaunch{
		Address:      mint.String(),
		Name:         defaultName,
		Symbol:       defaultSymbol,
		Description:  defaultDescription,
		AgentName:    defaultAgentName,
		AgentWallet:  agentWallet,
		Platform:     models.PlatformPumpBot,
		TotalSupply:  models.DefaultTotalSupply,
		DeployTxHash: sig,
	}
	if curve, err := pumpfun.BondingCurvePDA(mint); err == nil {
		rec.BondingCurveAddress = curve.String()
	}
	return rec
}

func buildLinks(sig, mint string) Links {
	links := Links{
		Explorer: "https://solscan.io/tx/" + sig,
		Solana:   "https://explorer.solana.com/tx/" + sig,
	}
	if mint != "" {
		links.Token = "https://solscan.io/token/" + mint
		links.PumpFun = "https://pump.fun/" + mint
		links.DexScreener = "https://dexscreener.com/solana/" + mint
	}
	return links
}
