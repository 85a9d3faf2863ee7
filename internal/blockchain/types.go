// internal/blockchain/types.go
package blockchain

import (
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionOptions controls how a signed transaction is submitted.
type TransactionOptions struct {
	SkipPreflight       bool
	PreflightCommitment rpc.CommitmentType
}

// TransactionInfo is the subset of a landed transaction the launch flow reads.
type TransactionInfo struct {
	Signature   solana.Signature
	Slot        uint64
	BlockTime   *time.Time
	Fee         uint64
	Err         interface{} // chain reported execution error, nil on success
	AccountKeys []solana.PublicKey
	LogMessages []string
}

// Failed reports whether the chain recorded an execution error.
func (t *TransactionInfo) Failed() bool {
	return t.Err != nil
}

// FeePayer returns the first account key, which is always the fee payer.
func (t *TransactionInfo) FeePayer() (solana.PublicKey, bool) {
	if len(t.AccountKeys) == 0 {
		return solana.PublicKey{}, false
	}
	return t.AccountKeys[0], true
}
