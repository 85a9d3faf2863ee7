// internal/blockchain/solbc/types.go
package solbc

import (
	"errors"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrConfirmationTimeout = errors.New("confirmation timeout")
)

// IsAccountNotFound reports whether err means the account does not exist.
func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
