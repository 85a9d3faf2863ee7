package launch

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"github.com/rovshanmuradov/pumpbot/internal/blockchain"
	"github.com/rovshanmuradov/pumpbot/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpbot/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpbot/internal/events"
	"github.com/rovshanmuradov/pumpbot/internal/metadata"
	"github.com/rovshanmuradov/pumpbot/internal/registry"
	"github.com/rovshanmuradov/pumpbot/internal/storage/memory"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"github.com/rovshanmuradov/pumpbot/internal/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fakeChain struct {
	mu           sync.Mutex
	blockhash    solana.Hash
	global       []byte
	blockhashErr error
	accountCalls int
	txs          map[solana.Signature]*blockchain.TransactionInfo
	txErr        error
}

func newFakeChain(t *testing.T) *fakeChain {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, bin.NewBorshEncoder(buf).Encode(&pumpfun.GlobalAccount{
		Discriminator:               pumpfun.GlobalAccountDiscriminator,
		Initialized:                 true,
		FeeRecipient:                solana.NewWallet().PublicKey(),
		InitialVirtualTokenReserves: 1_073_000_000_000_000,
		InitialVirtualSolReserves:   30_000_000_000,
		InitialRealTokenReserves:    793_100_000_000_000,
		TokenTotalSupply:            1_000_000_000_000_000,
		FeeBasisPoints:              100,
	}))
	return &fakeChain{
		blockhash: solana.Hash{7, 7, 7},
		global:    buf.Bytes(),
		txs:       make(map[solana.Signature]*blockchain.TransactionInfo),
	}
}

func (f *fakeChain) GetLatestBlockhash(context.Context) (solana.Hash, error) {
	return f.blockhash, f.blockhashErr
}

func (f *fakeChain) GetAccountInfo(context.Context, solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	f.mu.Lock()
	f.accountCalls++
	f.mu.Unlock()
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Owner: pumpfun.PumpFunProgramID,
			Data:  rpc.DataBytesOrJSONFromBytes(f.global),
		},
	}, nil
}

func (f *fakeChain) GetTransaction(_ context.Context, sig solana.Signature) (*blockchain.TransactionInfo, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	info, ok := f.txs[sig]
	if !ok {
		return nil, solbc.ErrTransactionNotFound
	}
	return info, nil
}

func newPreparer(t *testing.T, chain *fakeChain) (*Preparer, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := metadata.NewStore(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	return NewPreparer(chain, store, nil, PreparerConfig{SlippageBps: 500}, zaptest.NewLogger(t)), dir
}

func validRequest(walletAddr string) PrepareRequest {
	return PrepareRequest{
		Name:        "Test",
		Symbol:      "TST",
		Description: "d",
		Image:       "https://x/y.png",
		Wallet:      walletAddr,
	}
}

func decodeTx(t *testing.T, encoded string) *solana.Transaction {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)
	return tx
}

func TestPrepareScenario(t *testing.T) {
	chain := newFakeChain(t)
	p, _ := newPreparer(t, chain)

	res, err := p.Prepare(context.Background(), validRequest("11111111111111111111111111111111"), "http://localhost:3000")
	require.NoError(t, err)

	assert.Len(t, res.MintAddress, 44)
	assert.NotEmpty(t, res.Transaction)
	assert.True(t, strings.HasSuffix(res.MetadataURI, ".json"))
	assert.True(t, strings.HasPrefix(res.MetadataURI, "http://localhost:3000/metadata/"))
	assert.Equal(t, "11111111111111111111111111111111", res.Creator)
	assert.NotEmpty(t, res.Instructions)

	secret, err := base58.Decode(res.MintKeypair)
	require.NoError(t, err)
	require.Len(t, secret, 64)
	assert.Equal(t, res.MintAddress, solana.PrivateKey(secret).PublicKey().String())
}

func TestPrepareAndConfirmShareOperationFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	chain := newFakeChain(t)
	p, _ := newPreparer(t, chain)
	p.logger = zap.New(core)
	_, err := p.Prepare(context.Background(), validRequest("11111111111111111111111111111111"), "http://localhost:3000")
	require.NoError(t, err)

	c, _, _ := newConfirmer(t, chain)
	c.logger = zap.New(core)
	sig := landedTx(chain, solana.NewWallet().PublicKey())
	mint := solana.NewWallet().PublicKey().String()
	_, err = c.Confirm(context.Background(), ConfirmRequest{TxSignature: sig.String(), MintAddress: mint})
	require.NoError(t, err)

	prepared := logs.FilterMessage("Preparing token launch").All()
	require.Len(t, prepared, 1)
	assert.Equal(t, "prepare", prepared[0].ContextMap()["operation"])
	assert.NotEmpty(t, prepared[0].ContextMap()["correlation_id"])

	registered := logs.FilterMessage("Token registered").All()
	require.Len(t, registered, 1)
	assert.Equal(t, "confirm", registered[0].ContextMap()["operation"])
	assert.NotEqual(t, prepared[0].ContextMap()["correlation_id"], registered[0].ContextMap()["correlation_id"])
}

func TestPrepareTransactionShape(t *testing.T) {
	chain := newFakeChain(t)
	p, _ := newPreparer(t, chain)
	creator, err := wallet.Generate()
	require.NoError(t, err)

	res, err := p.Prepare(context.Background(), validRequest(creator.PublicKey.String()), "http://h")
	require.NoError(t, err)

	tx := decodeTx(t, res.Transaction)
	assert.Equal(t, creator.PublicKey, tx.Message.AccountKeys[0], "creator pays fees")
	assert.Equal(t, chain.blockhash, tx.Message.RecentBlockhash)
	assert.Equal(t, uint8(2), tx.Message.Header.NumRequiredSignatures)
	require.Len(t, tx.Signatures, 2)
	for _, sig := range tx.Signatures {
		assert.True(t, sig.IsZero())
	}
	require.Len(t, tx.Message.Instructions, 3)

	mint, err := wallet.NewWallet(res.MintKeypair)
	require.NoError(t, err)
	require.NoError(t, wallet.SignTransaction(tx, creator, mint))
	assert.NoError(t, tx.VerifySignatures())
}

func TestPrepareFreshMints(t *testing.T) {
	p, _ := newPreparer(t, newFakeChain(t))
	req := validRequest(solana.NewWallet().PublicKey().String())

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		res, err := p.Prepare(context.Background(), req, "http://h")
		require.NoError(t, err)
		assert.False(t, seen[res.MintAddress])
		seen[res.MintAddress] = true
	}
}

func TestPrepareValidation(t *testing.T) {
	tests := []struct {
		name  string
		req   PrepareRequest
		label string
	}{
		{"missing fields", PrepareRequest{Name: "A"}, "Missing required fields"},
		{"bad wallet", validRequest("not-a-key"), "Invalid wallet address"},
		{"long symbol", func() PrepareRequest {
			r := validRequest(solana.NewWallet().PublicKey().String())
			r.Symbol = "WAYTOOLONGSYMBOL"
			return r
		}(), "Invalid field length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := newFakeChain(t)
			p, dir := newPreparer(t, chain)

			_, err := p.Prepare(context.Background(), tt.req, "http://h")
			appErr, ok := apperr.As(err)
			require.True(t, ok)
			assert.Equal(t, apperr.KindValidation, appErr.Kind)
			assert.Equal(t, tt.label, appErr.Label)
			assert.NotEmpty(t, appErr.Reasons)

			assert.Zero(t, chain.accountCalls, "no chain call before validation passes")
			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}

func TestPrepareChainFailureKeepsMetadata(t *testing.T) {
	chain := newFakeChain(t)
	chain.blockhashErr = errors.New("rpc unavailable")
	p, dir := newPreparer(t, chain)

	_, err := p.Prepare(context.Background(), validRequest(solana.NewWallet().PublicKey().String()), "http://h")
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func newConfirmer(t *testing.T, chain *fakeChain) (*Confirmer, *memory.Store, *recordingBus) {
	t.Helper()
	store := memory.New()
	bus := &recordingBus{}
	reg := registry.New(store, bus, zaptest.NewLogger(t))
	return NewConfirmer(chain, reg, zaptest.NewLogger(t)), store, bus
}

func landedTx(chain *fakeChain, payer solana.PublicKey) solana.Signature {
	var sig solana.Signature
	copy(sig[:], solana.NewWallet().PublicKey().Bytes())
	bt := time.Unix(1_700_000_000, 0).UTC()
	chain.txs[sig] = &blockchain.TransactionInfo{
		Signature:   sig,
		Slot:        123,
		BlockTime:   &bt,
		Fee:         5000,
		AccountKeys: []solana.PublicKey{payer},
	}
	return sig
}

func TestConfirmRegistersOnce(t *testing.T) {
	chain := newFakeChain(t)
	c, store, bus := newConfirmer(t, chain)
	payer := solana.NewWallet().PublicKey()
	sig := landedTx(chain, payer)
	mint := solana.NewWallet().PublicKey().String()
	ctx := context.Background()

	res, err := c.Confirm(ctx, ConfirmRequest{TxSignature: sig.String(), MintAddress: mint})
	require.NoError(t, err)
	assert.False(t, res.AlreadyExists)
	assert.Equal(t, uint64(123), res.Transaction.Slot)
	assert.Equal(t, uint64(5000), res.Transaction.Fee)
	assert.Equal(t, mint, res.MintAddress)
	assert.Equal(t, "https://solscan.io/tx/"+sig.String(), res.Links.Explorer)
	assert.Equal(t, "https://pump.fun/"+mint, res.Links.PumpFun)
	assert.Equal(t, "https://dexscreener.com/solana/"+mint, res.Links.DexScreener)

	stored, err := store.Get(ctx, mint)
	require.NoError(t, err)
	assert.Equal(t, "Unknown", stored.Name)
	assert.Equal(t, "TBD", stored.Symbol)
	assert.Equal(t, payer.String(), stored.AgentWallet)
	assert.Equal(t, sig.String(), stored.DeployTxHash)
	assert.Equal(t, models.PlatformPumpBot, stored.Platform)
	assert.NotEmpty(t, stored.BondingCurveAddress)

	again, err := c.Confirm(ctx, ConfirmRequest{TxSignature: sig.String(), MintAddress: mint})
	require.NoError(t, err)
	assert.True(t, again.AlreadyExists)
	require.NotNil(t, again.Token)
	assert.Equal(t, mint, again.Token.Address)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalLaunches)
	assert.Len(t, bus.events, 1)
}

func TestConfirmWithoutMint(t *testing.T) {
	chain := newFakeChain(t)
	c, store, _ := newConfirmer(t, chain)
	sig := landedTx(chain, solana.NewWallet().PublicKey())

	res, err := c.Confirm(context.Background(), ConfirmRequest{TxSignature: sig.String()})
	require.NoError(t, err)
	assert.Empty(t, res.MintAddress)
	assert.Empty(t, res.Links.Token)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalLaunches)
}

func TestConfirmNotFound(t *testing.T) {
	c, _, _ := newConfirmer(t, newFakeChain(t))

	for _, sig := range []string{"<unknown>", solana.Signature{9}.String()} {
		_, err := c.Confirm(context.Background(), ConfirmRequest{TxSignature: sig})
		appErr, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindNotFound, appErr.Kind)
		assert.Equal(t, "Transaction not found", appErr.Label)
		assert.NotEmpty(t, appErr.Hint)
	}
}

func TestConfirmFailedTransaction(t *testing.T) {
	chain := newFakeChain(t)
	c, store, _ := newConfirmer(t, chain)
	sig := landedTx(chain, solana.NewWallet().PublicKey())
	chain.txs[sig].Err = map[string]interface{}{"InstructionError": []interface{}{2, map[string]interface{}{"Custom": 6002}}}

	mint := solana.NewWallet().PublicKey().String()
	_, err := c.Confirm(context.Background(), ConfirmRequest{TxSignature: sig.String(), MintAddress: mint})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindExecution, appErr.Kind)
	assert.Equal(t, "Transaction failed", appErr.Label)
	require.GreaterOrEqual(t, len(appErr.Reasons), 2)
	assert.Contains(t, appErr.Reasons[1], "6002")

	_, err = store.Get(context.Background(), mint)
	assert.Error(t, err)
}

func TestConfirmValidationAndRPCFailure(t *testing.T) {
	chain := newFakeChain(t)
	c, _, _ := newConfirmer(t, chain)

	_, err := c.Confirm(context.Background(), ConfirmRequest{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = c.Confirm(context.Background(), ConfirmRequest{TxSignature: solana.Signature{1}.String(), MintAddress: "bad"})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	chain.txErr = errors.New("connection refused")
	_, err = c.Confirm(context.Background(), ConfirmRequest{TxSignature: solana.Signature{1}.String()})
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInternal, appErr.Kind)
	assert.Equal(t, "Error verifying transaction", appErr.Label)
}

type brokenRegistrar struct{}

func (brokenRegistrar) CreateIfAbsent(context.Context, *models.TokenLaunch) (bool, *models.TokenLaunch, error) {
	return false, nil, errors.New("database down")
}

func TestConfirmSwallowsStorageFailure(t *testing.T) {
	chain := newFakeChain(t)
	sig := landedTx(chain, solana.NewWallet().PublicKey())
	c := NewConfirmer(chain, brokenRegistrar{}, zaptest.NewLogger(t))

	res, err := c.Confirm(context.Background(), ConfirmRequest{
		TxSignature: sig.String(),
		MintAddress: solana.NewWallet().PublicKey().String(),
	})
	require.NoError(t, err)
	assert.Equal(t, "Transaction confirmed successfully", res.Message)
}
