// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Wallet is a Solana keypair.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet creates a wallet from a base58 encoded 64 byte secret key.
func NewWallet(privateKeyBase58 string) (*Wallet, error) {
	privateKeyBytes, err := base58.Decode(privateKeyBase58)
	if err != nil {
		return nil, fmt.Errorf("failed to decode private key: %w", err)
	}
	if len(privateKeyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(privateKeyBytes))
	}
	privateKey := solana.PrivateKey(privateKeyBytes)
	return &Wallet{
		PrivateKey: privateKey,
		PublicKey:  privateKey.PublicKey(),
	}, nil
}

// Generate creates a wallet from a fresh random keypair.
func Generate() (*Wallet, error) {
	privateKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate keypair: %w", err)
	}
	return &Wallet{PrivateKey: privateKey, PublicKey: privateKey.PublicKey()}, nil
}

// mintAddressLength is the base58 length of most ed25519 public keys. Mint
// addresses handed out by the service always have this length.
const mintAddressLength = 44

// GenerateMint creates a keypair for a new token mint, retrying until the
// address has the canonical 44 character base58 form.
func GenerateMint() (*Wallet, error) {
	for {
		w, err := Generate()
		if err != nil {
			return nil, err
		}
		if len(w.PublicKey.String()) == mintAddressLength {
			return w, nil
		}
	}
}

// SecretBase58 returns the 64 byte secret key encoded as base58.
func (w *Wallet) SecretBase58() string {
	return base58.Encode(w.PrivateKey)
}

// SignTransaction adds this wallet's signature to tx.
func (w *Wallet) SignTransaction(tx *solana.Transaction) error {
	return SignTransaction(tx, w)
}

// SignTransaction signs tx with the given wallets, which must cover every
// required signer. Placeholder signatures from a decoded unsigned
// transaction are discarded first.
func SignTransaction(tx *solana.Transaction, signers ...*Wallet) error {
	byKey := make(map[solana.PublicKey]*solana.PrivateKey, len(signers))
	for _, s := range signers {
		byKey[s.PublicKey] = &s.PrivateKey
	}
	tx.Signatures = nil
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		return byKey[key]
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// String returns the wallet address.
func (w *Wallet) String() string {
	return w.PublicKey.String()
}

// keyFile is the on-disk wallet format used by agent tooling.
type keyFile struct {
	PublicKey string `json:"publicKey"`
	SecretKey string `json:"secretKey"`
}

// ErrWalletNotFound is returned by Load when no wallet file exists.
var ErrWalletNotFound = errors.New("wallet file not found")

// Load reads a wallet file written by Save.
func Load(path string) (*Wallet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to read wallet file: %w", err)
	}

	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("failed to parse wallet file: %w", err)
	}

	w, err := NewWallet(kf.SecretKey)
	if err != nil {
		return nil, err
	}
	if kf.PublicKey != "" && kf.PublicKey != w.PublicKey.String() {
		return nil, fmt.Errorf("wallet file public key %s does not match secret key", kf.PublicKey)
	}
	return w, nil
}

// Save writes the wallet to path with owner-only permissions.
func (w *Wallet) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create wallet directory: %w", err)
	}
	data, err := json.MarshalIndent(keyFile{
		PublicKey: w.PublicKey.String(),
		SecretKey: w.SecretBase58(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write wallet file: %w", err)
	}
	return nil
}

// LoadOrCreate loads the wallet at path or creates and saves a new one.
// The boolean reports whether a new wallet was created.
func LoadOrCreate(path string) (*Wallet, bool, error) {
	w, err := Load(path)
	if err == nil {
		return w, false, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, false, err
	}

	w, err = Generate()
	if err != nil {
		return nil, false, err
	}
	if err := w.Save(path); err != nil {
		return nil, false, err
	}
	return w, true, nil
}
