// Package launch builds unsigned PumpFun launch transactions and confirms
// them once the caller has signed and broadcast them.
package launch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"github.com/rovshanmuradov/pumpbot/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpbot/internal/logger"
	"github.com/rovshanmuradov/pumpbot/internal/metadata"
	"github.com/rovshanmuradov/pumpbot/internal/wallet"
	"go.uber.org/zap"
)

// ChainReader is the chain access the preparer needs.
type ChainReader interface {
	GetLatestBlockhash(ctx context.Context) (solana.Hash, error)
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// MetadataWriter persists a metadata document and returns its URI.
type MetadataWriter interface {
	Put(ctx context.Context, m metadata.Metadata, baseURL string) (*metadata.Stored, error)
}

// MintGenerator returns a fresh keypair for a new mint.
type MintGenerator func() (*wallet.Wallet, error)

// PrepareRequest is the caller's description of the token to launch.
type PrepareRequest struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Website     string `json:"website,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
	Wallet      string `json:"wallet"`
}

// TokenSummary echoes the token fields back to the caller.
type TokenSummary struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Website     string `json:"website,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
}

// UnsignedLaunch is returned to the caller and never stored.
type UnsignedLaunch struct {
	Transaction  string       `json:"transaction"`
	MintKeypair  string       `json:"mintKeypair"`
	MintAddress  string       `json:"mintAddress"`
	MetadataURI  string       `json:"metadataUri"`
	Creator      string       `json:"creator"`
	Token        TokenSummary `json:"token"`
	Instructions []string     `json:"instructions"`
}

// PreparerConfig fixes the first buy and fee settings.
type PreparerConfig struct {
	InitialBuyLamports uint64
	SlippageBps        uint64
	ComputeUnitLimit   uint32
	ComputeUnitPrice   uint64
}

// DefaultInitialBuyLamports is 0.001 SOL, the smallest first buy the
// service performs.
const DefaultInitialBuyLamports = 1_000_000

// Preparer assembles launch transactions for callers to sign.
type Preparer struct {
	chain    ChainReader
	metadata MetadataWriter
	newMint  MintGenerator
	cfg      PreparerConfig
	logger   *zap.Logger
}

func NewPreparer(chain ChainReader, store MetadataWriter, newMint MintGenerator, cfg PreparerConfig, logger *zap.Logger) *Preparer {
	if newMint == nil {
		newMint = wallet.GenerateMint
	}
	if cfg.InitialBuyLamports == 0 {
		cfg.InitialBuyLamports = DefaultInitialBuyLamports
	}
	return &Preparer{
		chain:    chain,
		metadata: store,
		newMint:  newMint,
		cfg:      cfg,
		logger:   logger.Named("preparer"),
	}
}

// Prepare writes the token metadata and returns an unsigned transaction that
// creates the token and performs the first buy. The metadata document stays
// in place whatever happens afterwards.
func (p *Preparer) Prepare(ctx context.Context, req PrepareRequest, baseURL string) (*UnsignedLaunch, error) {
	creator, err := validatePrepare(req)
	if err != nil {
		return nil, err
	}

	mint, err := p.newMint()
	if err != nil {
		return nil, apperr.Internal("Internal server error", err)
	}

	log := logger.WithOperation(p.logger, "prepare").With(
		zap.String("creator", creator.String()),
		zap.String("mint", mint.PublicKey.String()),
		zap.String("symbol", req.Symbol))
	log.Info("Preparing token launch")

	stored, err := p.metadata.Put(ctx, metadata.Metadata{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
		Image:       req.Image,
		Twitter:     req.Twitter,
		Website:     req.Website,
	}, baseURL)
	if err != nil {
		if _, ok := apperr.As(err); ok {
			return nil, err
		}
		return nil, apperr.Internal("Internal server error", err)
	}

	global, err := pumpfun.FetchGlobal(ctx, p.chain, log)
	if err != nil {
		return nil, apperr.Internal("Internal server error", err)
	}

	plan, err := pumpfun.BuildLaunchInstructions(global, pumpfun.LaunchParams{
		Mint:             mint.PublicKey,
		Creator:          creator,
		Name:             req.Name,
		Symbol:           req.Symbol,
		URI:              stored.URI,
		SolAmount:        p.cfg.InitialBuyLamports,
		SlippageBps:      p.cfg.SlippageBps,
		ComputeUnitLimit: p.cfg.ComputeUnitLimit,
		ComputeUnitPrice: p.cfg.ComputeUnitPrice,
	})
	if err != nil {
		var limitErr *pumpfun.MetadataLimitError
		if errors.As(err, &limitErr) {
			return nil, apperr.Validation("Invalid field length", limitErr.Error())
		}
		return nil, apperr.Internal("Internal server error", err)
	}

	blockhash, err := p.chain.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, apperr.Internal("Internal server error", err)
	}

	encoded, err := encodeUnsigned(plan.Instructions, blockhash, creator)
	if err != nil {
		return nil, apperr.Internal("Internal server error", err)
	}

	log.Info("Launch transaction prepared",
		zap.String("metadata_uri", stored.URI),
		zap.Uint64("token_amount", plan.Quote.TokenAmount),
		zap.Uint64("max_sol_cost", plan.Quote.MaxSolCost))

	return &UnsignedLaunch{
		Transaction: encoded,
		MintKeypair: mint.SecretBase58(),
		MintAddress: mint.PublicKey.String(),
		MetadataURI: stored.URI,
		Creator:     creator.String(),
		Token: TokenSummary{
			Name:        req.Name,
			Symbol:      req.Symbol,
			Description: req.Description,
			Image:       req.Image,
			Website:     req.Website,
			Twitter:     req.Twitter,
		},
		Instructions: signingSteps(),
	}, nil
}

func validatePrepare(req PrepareRequest) (solana.PublicKey, error) {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"name", req.Name},
		{"symbol", req.Symbol},
		{"description", req.Description},
		{"image", req.Image},
		{"wallet", req.Wallet},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name+" is required")
		}
	}
	if len(missing) > 0 {
		return solana.PublicKey{}, apperr.Validation("Missing required fields", missing...).
			WithHint("Use POST /api/images to upload the token image first")
	}

	creator, err := solana.PublicKeyFromBase58(strings.TrimSpace(req.Wallet))
	if err != nil {
		return solana.PublicKey{}, apperr.Validation("Invalid wallet address",
			"wallet must be a valid Solana public key")
	}

	if err := pumpfun.ValidateMetadataStrings(req.Name, req.Symbol, ""); err != nil {
		return solana.PublicKey{}, apperr.Validation("Invalid field length", err.Error())
	}
	return creator, nil
}

// encodeUnsigned serializes the transaction with zero-filled signature slots
// for every required signer.
func encodeUnsigned(instructions []solana.Instruction, blockhash solana.Hash, payer solana.PublicKey) (string, error) {
	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return "", fmt.Errorf("failed to build transaction: %w", err)
	}
	tx.Signatures = make([]solana.Signature, tx.Message.Header.NumRequiredSignatures)

	encoded, err := tx.ToBase64()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return encoded, nil
}

func signingSteps() []string {
	return []string{
		"1. Decode the transaction from base64",
		"2. Decode mintKeypair from base58 into a 64 byte ed25519 secret key",
		"3. Sign the transaction with both your wallet and the mint keypair",
		"4. Broadcast the signed transaction to Solana",
		"5. Wait for confirmation",
		"6. Call POST /api/launch/confirm with { txSignature, mintAddress }",
	}
}
