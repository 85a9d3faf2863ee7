// Package agent drives a full launch from the agent side: upload, prepare,
// sign, broadcast and confirm.
package agent

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpbot/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpbot/internal/client"
	"github.com/rovshanmuradov/pumpbot/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpbot/internal/launch"
	"github.com/rovshanmuradov/pumpbot/internal/upload"
	"github.com/rovshanmuradov/pumpbot/internal/wallet"
	"go.uber.org/zap"
)

// MinBalanceLamports is 0.015 SOL: rent for the new accounts, the first buy
// and fees.
const MinBalanceLamports = 15_000_000

// ErrInsufficientBalance is returned when the wallet cannot pay for a launch.
var ErrInsufficientBalance = errors.New("insufficient balance")

// API is the PumpBot server surface the agent uses.
type API interface {
	UploadImage(ctx context.Context, path string) (*upload.Image, error)
	Prepare(ctx context.Context, in launch.PrepareRequest) (*launch.UnsignedLaunch, error)
	Confirm(ctx context.Context, in launch.ConfirmRequest) (*launch.Confirmation, error)
}

// Chain is the RPC access the agent needs.
type Chain interface {
	GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error)
	SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
	WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error
}

// Request describes the token to launch. Image is a local file path or a
// URL.
type Request struct {
	Name        string
	Symbol      string
	Description string
	Image       string
	Website     string
	Twitter     string
}

// Result is a confirmed launch.
type Result struct {
	Signature    solana.Signature
	MintAddress  string
	MetadataURI  string
	Confirmation *launch.Confirmation
}

// Agent launches tokens for one wallet.
type Agent struct {
	api    API
	chain  Chain
	wallet *wallet.Wallet
	logger *zap.Logger

	// newBackOff paces confirm retries while the server has not indexed the
	// transaction yet.
	newBackOff     func() backoff.BackOff
	confirmTimeout time.Duration
}

func New(api API, chain Chain, w *wallet.Wallet, logger *zap.Logger) *Agent {
	return &Agent{
		api:    api,
		chain:  chain,
		wallet: w,
		logger: logger.Named("agent"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = time.Second
			b.MaxInterval = 5 * time.Second
			return b
		},
		confirmTimeout: time.Minute,
	}
}

// Balance returns the wallet balance in lamports.
func (a *Agent) Balance(ctx context.Context) (uint64, error) {
	lamports, err := a.chain.GetBalance(ctx, a.wallet.PublicKey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return lamports, nil
}

// Launch runs the whole hand-off and returns once the server has confirmed
// the launch.
func (a *Agent) Launch(ctx context.Context, req Request) (*Result, error) {
	log := a.logger.With(zap.String("symbol", req.Symbol), zap.String("wallet", a.wallet.String()))

	balance, err := a.Balance(ctx)
	if err != nil {
		return nil, err
	}
	if balance < MinBalanceLamports {
		return nil, fmt.Errorf("%w: have %s SOL, need %s SOL", ErrInsufficientBalance,
			pumpfun.LamportsToSOL(balance).String(),
			pumpfun.LamportsToSOL(MinBalanceLamports).String())
	}

	image, err := a.resolveImage(ctx, req.Image)
	if err != nil {
		return nil, err
	}

	unsigned, err := a.api.Prepare(ctx, launch.PrepareRequest{
		Name:        req.Name,
		Symbol:      req.Symbol,
		Description: req.Description,
		Image:       image,
		Website:     req.Website,
		Twitter:     req.Twitter,
		Wallet:      a.wallet.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to prepare launch: %w", err)
	}
	log.Info("Launch prepared",
		zap.String("mint", unsigned.MintAddress),
		zap.String("metadata", unsigned.MetadataURI))

	tx, err := a.sign(unsigned)
	if err != nil {
		return nil, err
	}

	sig, err := a.chain.SendTransaction(ctx, tx)
	if err != nil {
		reasons := solbc.DescribeRPCError(err)
		log.Error("Transaction rejected", zap.Strings("reasons", reasons))
		return nil, sendError(err, reasons)
	}
	log.Info("Transaction sent", zap.String("signature", sig.String()))

	if err := a.chain.WaitForTransactionConfirmation(ctx, sig, rpc.CommitmentConfirmed); err != nil {
		return nil, fmt.Errorf("transaction %s not confirmed: %w", sig, err)
	}

	confirmation, err := a.confirm(ctx, launch.ConfirmRequest{
		TxSignature: sig.String(),
		MintAddress: unsigned.MintAddress,
	})
	if err != nil {
		return nil, err
	}

	log.Info("Launch confirmed", zap.String("mint", unsigned.MintAddress))
	return &Result{
		Signature:    sig,
		MintAddress:  unsigned.MintAddress,
		MetadataURI:  unsigned.MetadataURI,
		Confirmation: confirmation,
	}, nil
}

// sendError folds the decoded rejection reasons, such as a preflight Anchor
// error, into the returned message.
func sendError(err error, reasons []string) error {
	if len(reasons) == 0 || (len(reasons) == 1 && reasons[0] == err.Error()) {
		return fmt.Errorf("failed to send transaction: %w", err)
	}
	return fmt.Errorf("failed to send transaction: %s: %w", strings.Join(reasons, "; "), err)
}

// resolveImage uploads ref when it names a local file and passes URLs
// through.
func (a *Agent) resolveImage(ctx context.Context, ref string) (string, error) {
	if info, err := os.Stat(ref); err == nil && info.Mode().IsRegular() {
		img, err := a.api.UploadImage(ctx, ref)
		if err != nil {
			return "", fmt.Errorf("failed to upload image: %w", err)
		}
		a.logger.Info("Image uploaded", zap.String("url", img.URL), zap.Int64("size", img.Size))
		return img.URL, nil
	}
	for _, prefix := range []string{"http://", "https://", "ipfs://"} {
		if strings.HasPrefix(ref, prefix) {
			return ref, nil
		}
	}
	return "", fmt.Errorf("image %q is neither a readable file nor a URL", ref)
}

// sign decodes the prepared transaction and signs it with the wallet and the
// mint keypair the server generated.
func (a *Agent) sign(unsigned *launch.UnsignedLaunch) (*solana.Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(unsigned.Transaction)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction: %w", err)
	}

	mint, err := wallet.NewWallet(unsigned.MintKeypair)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mint keypair: %w", err)
	}
	if mint.String() != unsigned.MintAddress {
		return nil, fmt.Errorf("mint keypair %s does not match mint address %s", mint, unsigned.MintAddress)
	}

	if err := wallet.SignTransaction(tx, a.wallet, mint); err != nil {
		return nil, err
	}
	return tx, nil
}

// confirm retries while the server answers 404, which means its RPC node has
// not seen the transaction yet.
func (a *Agent) confirm(ctx context.Context, req launch.ConfirmRequest) (*launch.Confirmation, error) {
	attempt := 0
	confirmation, err := backoff.Retry(ctx, func() (*launch.Confirmation, error) {
		attempt++
		c, err := a.api.Confirm(ctx, req)
		if err == nil {
			return c, nil
		}
		if client.IsStatus(err, http.StatusNotFound) {
			a.logger.Debug("Transaction not indexed yet", zap.Int("attempt", attempt))
			return nil, err
		}
		return nil, backoff.Permanent(err)
	},
		backoff.WithBackOff(a.newBackOff()),
		backoff.WithMaxElapsedTime(a.confirmTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm launch: %w", err)
	}
	return confirmation, nil
}
