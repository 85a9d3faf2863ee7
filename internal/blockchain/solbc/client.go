// internal/blockchain/solbc/client.go
package solbc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/rovshanmuradov/pumpbot/internal/blockchain"
	"go.uber.org/zap"
)

// Client is a thin adapter over the solana-go RPC client.
type Client struct {
	rpc        *rpc.Client
	commitment rpc.CommitmentType
	logger     *zap.Logger

	confirmPoll    time.Duration
	confirmTimeout time.Duration
	httpTimeout    time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithCommitment sets the commitment used for reads. Defaults to confirmed.
func WithCommitment(commitment string) Option {
	return func(c *Client) {
		if commitment != "" {
			c.commitment = rpc.CommitmentType(commitment)
		}
	}
}

// WithConfirmation sets the polling cadence of WaitForTransactionConfirmation.
func WithConfirmation(poll, timeout time.Duration) Option {
	return func(c *Client) {
		if poll > 0 {
			c.confirmPoll = poll
		}
		if timeout > 0 {
			c.confirmTimeout = timeout
		}
	}
}

// WithTimeout bounds every RPC round trip, independent of caller contexts.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpTimeout = timeout
		}
	}
}

// NewClient creates a client for rpcURL.
func NewClient(rpcURL string, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		commitment:     rpc.CommitmentConfirmed,
		logger:         logger.Named("solbc-client"),
		confirmPoll:    500 * time.Millisecond,
		confirmTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.httpTimeout > 0 {
		c.rpc = rpc.NewWithCustomRPCClient(jsonrpc.NewClientWithOpts(rpcURL, &jsonrpc.RPCClientOpts{
			HTTPClient: &http.Client{Timeout: c.httpTimeout},
		}))
	} else {
		c.rpc = rpc.New(rpcURL)
	}
	return c
}

// GetLatestBlockhash returns the most recent blockhash at the client commitment.
func (c *Client) GetLatestBlockhash(ctx context.Context) (solana.Hash, error) {
	result, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	if err != nil {
		c.logger.Error("GetLatestBlockhash error", zap.Error(err))
		return solana.Hash{}, err
	}
	return result.Value.Blockhash, nil
}

// GetAccountInfo returns the account at pubkey or ErrAccountNotFound.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	result, err := c.rpc.GetAccountInfoWithOpts(ctx, pubkey, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, pubkey)
		}
		c.logger.Debug("GetAccountInfo error",
			zap.String("pubkey", pubkey.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil || result.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, pubkey)
	}
	return result, nil
}

// GetMultipleAccounts fetches several accounts in one request. Missing
// accounts are returned as nil entries in Value.
func (c *Client) GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	if len(pubkeys) == 0 {
		return &rpc.GetMultipleAccountsResult{}, nil
	}

	res, err := c.rpc.GetMultipleAccountsWithOpts(ctx, pubkeys, &rpc.GetMultipleAccountsOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	if err != nil {
		c.logger.Debug("GetMultipleAccounts error", zap.Int("count", len(pubkeys)), zap.Error(err))
		return nil, err
	}
	return res, nil
}

// GetTransaction looks up a landed transaction at the client commitment,
// accepting both legacy and version 0 transactions.
func (c *Client) GetTransaction(ctx context.Context, signature solana.Signature) (*blockchain.TransactionInfo, error) {
	maxVersion := uint64(0)
	result, err := c.rpc.GetTransaction(ctx, signature, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     c.commitment,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		c.logger.Error("GetTransaction error",
			zap.String("signature", signature.String()),
			zap.Error(err))
		return nil, err
	}
	if result == nil {
		return nil, ErrTransactionNotFound
	}

	info := &blockchain.TransactionInfo{
		Signature: signature,
		Slot:      result.Slot,
	}
	if result.BlockTime != nil {
		bt := result.BlockTime.Time().UTC()
		info.BlockTime = &bt
	}
	if result.Meta != nil {
		info.Fee = result.Meta.Fee
		info.Err = result.Meta.Err
		info.LogMessages = result.Meta.LogMessages
	}
	if result.Transaction != nil {
		tx, err := result.Transaction.GetTransaction()
		if err != nil {
			// keys are best effort, the lookup itself succeeded
			c.logger.Warn("Failed to decode transaction envelope",
				zap.String("signature", signature.String()),
				zap.Error(err))
		} else if tx != nil {
			info.AccountKeys = tx.Message.AccountKeys
		}
	}
	return info, nil
}

// SendTransaction submits a signed transaction with preflight at the client commitment.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	return c.SendTransactionWithOpts(ctx, tx, blockchain.TransactionOptions{
		PreflightCommitment: c.commitment,
	})
}

// SendTransactionWithOpts submits a signed transaction.
func (c *Client) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts blockchain.TransactionOptions) (solana.Signature, error) {
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       opts.SkipPreflight,
		PreflightCommitment: opts.PreflightCommitment,
	})
	if err != nil {
		c.logger.Error("SendTransaction error", zap.Error(err))
		return solana.Signature{}, err
	}
	return sig, nil
}

// GetBalance returns the lamport balance of pubkey.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey, commitment rpc.CommitmentType) (uint64, error) {
	result, err := c.rpc.GetBalance(ctx, pubkey, commitment)
	if err != nil {
		c.logger.Error("GetBalance error", zap.Error(err))
		return 0, err
	}
	return result.Value, nil
}

// GetSignatureStatuses returns statuses of the given signatures.
func (c *Client) GetSignatureStatuses(ctx context.Context, signatures ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	result, err := c.rpc.GetSignatureStatuses(ctx, false, signatures...)
	if err != nil {
		c.logger.Error("GetSignatureStatuses error", zap.Error(err))
		return nil, err
	}
	return result, nil
}

// WaitForTransactionConfirmation polls the signature status until it reaches
// commitment, the chain reports an error, or the timeout expires.
func (c *Client) WaitForTransactionConfirmation(ctx context.Context, signature solana.Signature, commitment rpc.CommitmentType) error {
	ticker := time.NewTicker(c.confirmPoll)
	defer ticker.Stop()
	timeout := time.After(c.confirmTimeout)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timeout:
			return ErrConfirmationTimeout
		case <-ticker.C:
			statuses, err := c.GetSignatureStatuses(ctx, signature)
			if err != nil {
				c.logger.Warn("Error getting signature statuses", zap.Error(err))
				continue
			}
			if statuses == nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
				continue
			}
			status := statuses.Value[0]
			if status.Err != nil {
				return fmt.Errorf("transaction %s failed: %v", signature, status.Err)
			}
			if reached(status.ConfirmationStatus, commitment) {
				return nil
			}
		}
	}
}

func reached(status rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return want != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return want == rpc.CommitmentProcessed
	}
	return false
}

var _ blockchain.Client = (*Client)(nil)
