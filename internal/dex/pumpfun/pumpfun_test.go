package pumpfun

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testGlobal() *GlobalAccount {
	return &GlobalAccount{
		Discriminator:               GlobalAccountDiscriminator,
		Initialized:                 true,
		Authority:                   solana.NewWallet().PublicKey(),
		FeeRecipient:                solana.NewWallet().PublicKey(),
		InitialVirtualTokenReserves: 1_073_000_000_000_000,
		InitialVirtualSolReserves:   30_000_000_000,
		InitialRealTokenReserves:    793_100_000_000_000,
		TokenTotalSupply:            1_000_000_000_000_000,
		FeeBasisPoints:              100,
	}
}

func encodeGlobal(t *testing.T, g *GlobalAccount) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, bin.NewBorshEncoder(buf).Encode(g))
	// later program versions append fields
	buf.Write(make([]byte, 64))
	return buf.Bytes()
}

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, [8]byte{24, 30, 200, 40, 5, 28, 7, 119}, CreateDiscriminator)
	assert.Equal(t, [8]byte{102, 6, 61, 18, 1, 218, 235, 234}, BuyDiscriminator)
	assert.Equal(t, [8]byte{167, 232, 232, 177, 200, 108, 114, 127}, GlobalAccountDiscriminator)
	assert.Equal(t, [8]byte{23, 183, 248, 55, 96, 216, 172, 96}, BondingCurveAccountDiscriminator)
}

func TestDecodeGlobal(t *testing.T) {
	want := testGlobal()
	got, err := DecodeGlobal(encodeGlobal(t, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeGlobalRejectsWrongDiscriminator(t *testing.T) {
	g := testGlobal()
	g.Discriminator = BondingCurveAccountDiscriminator
	_, err := DecodeGlobal(encodeGlobal(t, g))
	assert.Error(t, err)

	_, err = DecodeGlobal([]byte{1, 2, 3})
	assert.Error(t, err)
}

type fakeAccounts struct {
	owner solana.PublicKey
	data  []byte
	err   error
}

func (f *fakeAccounts) GetAccountInfo(_ context.Context, _ solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Owner: f.owner,
			Data:  rpc.DataBytesOrJSONFromBytes(f.data),
		},
	}, nil
}

func TestFetchGlobal(t *testing.T) {
	want := testGlobal()
	reader := &fakeAccounts{owner: PumpFunProgramID, data: encodeGlobal(t, want)}

	got, err := FetchGlobal(context.Background(), reader, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, want.FeeRecipient, got.FeeRecipient)
}

func TestFetchGlobalWrongOwner(t *testing.T) {
	reader := &fakeAccounts{owner: solana.SystemProgramID, data: encodeGlobal(t, testGlobal())}
	_, err := FetchGlobal(context.Background(), reader, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func TestFetchGlobalRPCError(t *testing.T) {
	reader := &fakeAccounts{err: errors.New("rpc down")}
	_, err := FetchGlobal(context.Background(), reader, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "rpc down")
}

func TestQuoteInitialBuy(t *testing.T) {
	q, err := QuoteInitialBuy(testGlobal(), 1_000_000, 500)
	require.NoError(t, err)

	assert.Equal(t, uint64(1_000_000), q.SolIn)
	assert.Equal(t, uint64(35_411_372_207), q.TokenAmount)
	assert.Equal(t, uint64(1_050_000), q.MaxSolCost)
}

func TestQuoteInitialBuyErrors(t *testing.T) {
	_, err := QuoteInitialBuy(testGlobal(), 0, 0)
	assert.Error(t, err)

	_, err = QuoteInitialBuy(nil, 1, 0)
	assert.Error(t, err)

	g := testGlobal()
	g.InitialVirtualSolReserves = 0
	_, err = QuoteInitialBuy(g, 1_000_000, 0)
	assert.Error(t, err)
}

func TestSOLToLamports(t *testing.T) {
	lamports, err := SOLToLamports(decimal.RequireFromString("0.001"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), lamports)

	_, err = SOLToLamports(decimal.RequireFromString("0.0000000001"))
	assert.Error(t, err)

	_, err = SOLToLamports(decimal.RequireFromString("-1"))
	assert.Error(t, err)

	assert.True(t, LamportsToSOL(15_000_000).Equal(decimal.RequireFromString("0.015")))
}

func TestBuildLaunchInstructions(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()
	global := testGlobal()

	plan, err := BuildLaunchInstructions(global, LaunchParams{
		Mint:        mint,
		Creator:     creator,
		Name:        "Test",
		Symbol:      "TST",
		URI:         "https://x/metadata/abc.json",
		SolAmount:   1_000_000,
		SlippageBps: 500,
	})
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 3)

	create := plan.Instructions[0]
	assert.Equal(t, PumpFunProgramID, create.ProgramID())
	createData, err := create.Data()
	require.NoError(t, err)
	assert.Equal(t, CreateDiscriminator[:], createData[:8])

	var args createArgs
	require.NoError(t, bin.NewBorshDecoder(createData[8:]).Decode(&args))
	assert.Equal(t, "Test", args.Name)
	assert.Equal(t, "TST", args.Symbol)
	assert.Equal(t, "https://x/metadata/abc.json", args.URI)
	assert.Equal(t, creator, args.Creator)

	createAccounts := create.Accounts()
	require.Len(t, createAccounts, 14)
	assert.Equal(t, mint, createAccounts[0].PublicKey)
	assert.True(t, createAccounts[0].IsSigner)
	assert.Equal(t, creator, createAccounts[7].PublicKey)
	assert.True(t, createAccounts[7].IsSigner)
	assert.Equal(t, plan.Accounts.BondingCurve, createAccounts[2].PublicKey)

	ata := plan.Instructions[1]
	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ata.ProgramID())

	buy := plan.Instructions[2]
	buyData, err := buy.Data()
	require.NoError(t, err)
	require.Len(t, buyData, 24)
	assert.Equal(t, BuyDiscriminator[:], buyData[:8])
	assert.Equal(t, plan.Quote.TokenAmount, binary.LittleEndian.Uint64(buyData[8:16]))
	assert.Equal(t, plan.Quote.MaxSolCost, binary.LittleEndian.Uint64(buyData[16:24]))

	buyAccounts := buy.Accounts()
	require.Len(t, buyAccounts, 16)
	assert.Equal(t, global.FeeRecipient, buyAccounts[1].PublicKey)
	assert.Equal(t, plan.Accounts.AssociatedUser, buyAccounts[5].PublicKey)
	assert.Equal(t, PumpFeeProgramID, buyAccounts[15].PublicKey)
}

func TestBuildLaunchInstructionsWithComputeBudget(t *testing.T) {
	plan, err := BuildLaunchInstructions(testGlobal(), LaunchParams{
		Mint:             solana.NewWallet().PublicKey(),
		Creator:          solana.NewWallet().PublicKey(),
		Name:             "Test",
		Symbol:           "TST",
		URI:              "https://x/y.json",
		SolAmount:        1_000_000,
		ComputeUnitLimit: 250_000,
		ComputeUnitPrice: 1_000,
	})
	require.NoError(t, err)
	require.Len(t, plan.Instructions, 5)
	assert.Equal(t, solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111"), plan.Instructions[0].ProgramID())
}

func TestBuildCreateInstructionLimits(t *testing.T) {
	acc, err := DeriveLaunchAccounts(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey())
	require.NoError(t, err)

	_, err = BuildCreateInstruction(acc, "a name that is clearly longer than thirty two bytes", "TST", "u")
	var limitErr *MetadataLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, "name", limitErr.Field)
}

func TestDeriveLaunchAccountsDeterministic(t *testing.T) {
	mint := solana.NewWallet().PublicKey()
	creator := solana.NewWallet().PublicKey()

	a, err := DeriveLaunchAccounts(mint, creator)
	require.NoError(t, err)
	b, err := DeriveLaunchAccounts(mint, creator)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	bc, err := BondingCurvePDA(mint)
	require.NoError(t, err)
	assert.Equal(t, bc, a.BondingCurve)
	assert.NotEqual(t, a.BondingCurve, a.AssociatedBondingCurve)
}

func TestDecodeBondingCurve(t *testing.T) {
	creator := solana.NewWallet().PublicKey()
	buf := new(bytes.Buffer)
	require.NoError(t, bin.NewBorshEncoder(buf).Encode(bondingCurveLayout{
		Discriminator:        BondingCurveAccountDiscriminator,
		VirtualTokenReserves: 1_000_000_000_000_000,
		VirtualSolReserves:   40_000_000_000,
		RealTokenReserves:    396_550_000_000_000,
		RealSolReserves:      10_000_000_000,
		TokenTotalSupply:     1_000_000_000_000_000,
	}))
	buf.Write(creator.Bytes())

	bc, err := DecodeBondingCurve(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, creator, bc.Creator)
	assert.False(t, bc.Complete)

	// 40 SOL / 1e9 tokens
	assert.True(t, bc.PriceSOL().Equal(decimal.RequireFromString("0.00000004")), bc.PriceSOL().String())
	assert.True(t, bc.MarketCapSOL().Equal(decimal.NewFromInt(40)))
	assert.True(t, bc.Progress(793_100_000_000_000).Equal(decimal.NewFromInt(50)))
}

func TestBondingCurveProgressBounds(t *testing.T) {
	bc := &BondingCurve{RealTokenReserves: 800_000_000_000_000}
	assert.True(t, bc.Progress(793_100_000_000_000).IsZero())
	assert.True(t, bc.Progress(0).IsZero())

	bc.Complete = true
	assert.True(t, bc.Progress(793_100_000_000_000).Equal(decimal.NewFromInt(100)))
}

func TestBondingCurveProgressNotRounded(t *testing.T) {
	// 0.004% of the sellable tokens are left
	bc := &BondingCurve{RealTokenReserves: 31_724_000_000}
	got := bc.Progress(793_100_000_000_000)
	assert.True(t, got.Equal(decimal.RequireFromString("99.996")), got.String())
	assert.True(t, got.LessThan(decimal.NewFromInt(100)))

	bc.RealTokenReserves = 0
	assert.True(t, bc.Progress(793_100_000_000_000).Equal(decimal.NewFromInt(100)))
}
