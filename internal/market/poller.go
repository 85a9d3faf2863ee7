// Package market refreshes price and bonding progress of registered launches
// from their on-chain bonding curves.
package market

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rovshanmuradov/pumpbot/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// maxAccountsPerRequest is the getMultipleAccounts limit of Solana RPC nodes.
const maxAccountsPerRequest = 100

const (
	ResultUpdated = "updated"
	ResultMissing = "missing"
	ResultFailed  = "failed"
)

// ChainReader reads bonding curve and global accounts.
type ChainReader interface {
	GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetMultipleAccounts(ctx context.Context, pubkeys []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error)
}

// Registry is where refreshed figures are written.
type Registry interface {
	ListActive(ctx context.Context, limit int) ([]*models.TokenLaunch, error)
	UpdateMarket(ctx context.Context, address string, u models.MarketUpdate) error
}

// Config controls the refresh cadence.
type Config struct {
	Interval  time.Duration
	Workers   int
	BatchSize int
	SolUSD    float64
}

// Poller periodically refreshes non-graduated launches.
type Poller struct {
	chain     ChainReader
	registry  Registry
	cfg       Config
	onRefresh func(result string)
	logger    *zap.Logger
}

// NewPoller creates a poller. onRefresh, if set, is called once per token
// with one of the Result constants.
func NewPoller(chain ChainReader, registry Registry, cfg Config, onRefresh func(string), logger *zap.Logger) *Poller {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 200
	}
	return &Poller{
		chain:     chain,
		registry:  registry,
		cfg:       cfg,
		onRefresh: onRefresh,
		logger:    logger.Named("market"),
	}
}

// Enabled reports whether a poll interval is configured.
func (p *Poller) Enabled() bool {
	return p.cfg.Interval > 0
}

// Run polls until ctx is cancelled. It returns immediately when disabled.
func (p *Poller) Run(ctx context.Context) error {
	if !p.Enabled() {
		p.logger.Info("Market poller disabled")
		return nil
	}

	p.logger.Info("Starting market poller",
		zap.Duration("interval", p.cfg.Interval),
		zap.Int("workers", p.cfg.Workers),
		zap.Int("batch_size", p.cfg.BatchSize))

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		if _, err := p.PollOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("Market refresh cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			p.logger.Info("Market poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// PollOnce runs a single refresh cycle and returns how many launches were
// updated. Per-token failures are logged and counted, not returned.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	launches, err := p.registry.ListActive(ctx, p.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list active launches: %w", err)
	}
	if len(launches) == 0 {
		return 0, nil
	}

	global, err := pumpfun.FetchGlobal(ctx, p.chain, p.logger)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch global account: %w", err)
	}

	start := time.Now()
	var updated atomic.Int32

	pool := pond.NewPool(p.cfg.Workers, pond.WithContext(ctx))
	for begin := 0; begin < len(launches); begin += maxAccountsPerRequest {
		end := min(begin+maxAccountsPerRequest, len(launches))
		chunk := launches[begin:end]
		pool.Submit(func() {
			updated.Add(int32(p.refreshChunk(ctx, global, chunk)))
		})
	}
	pool.StopAndWait()

	p.logger.Debug("Market refresh cycle completed",
		zap.Int("launches", len(launches)),
		zap.Int32("updated", updated.Load()),
		zap.Duration("duration", time.Since(start)))

	return int(updated.Load()), ctx.Err()
}

func (p *Poller) refreshChunk(ctx context.Context, global *pumpfun.GlobalAccount, chunk []*models.TokenLaunch) int {
	keys := make([]solana.PublicKey, 0, len(chunk))
	targets := make([]*models.TokenLaunch, 0, len(chunk))
	for _, rec := range chunk {
		key, err := solana.PublicKeyFromBase58(rec.BondingCurveAddress)
		if err != nil {
			p.logger.Warn("Invalid bonding curve address",
				zap.String("token", rec.Address),
				zap.String("bonding_curve", rec.BondingCurveAddress))
			p.record(ResultFailed)
			continue
		}
		keys = append(keys, key)
		targets = append(targets, rec)
	}
	if len(keys) == 0 {
		return 0
	}

	res, err := p.chain.GetMultipleAccounts(ctx, keys)
	if err != nil {
		p.logger.Warn("Failed to fetch bonding curves", zap.Int("count", len(keys)), zap.Error(err))
		for range keys {
			p.record(ResultFailed)
		}
		return 0
	}

	updated := 0
	for i, rec := range targets {
		if i >= len(res.Value) || res.Value[i] == nil || res.Value[i].Data == nil {
			p.record(ResultMissing)
			continue
		}
		curve, err := pumpfun.DecodeBondingCurve(res.Value[i].Data.GetBinary())
		if err != nil {
			p.logger.Warn("Failed to decode bonding curve", zap.String("token", rec.Address), zap.Error(err))
			p.record(ResultFailed)
			continue
		}

		u := p.marketUpdate(global, curve)
		if err := p.registry.UpdateMarket(ctx, rec.Address, u); err != nil {
			p.logger.Warn("Failed to store market update", zap.String("token", rec.Address), zap.Error(err))
			p.record(ResultFailed)
			continue
		}
		p.record(ResultUpdated)
		updated++
	}
	return updated
}

func (p *Poller) marketUpdate(global *pumpfun.GlobalAccount, curve *pumpfun.BondingCurve) models.MarketUpdate {
	marketCap := curve.MarketCapSOL()
	if p.cfg.SolUSD > 0 {
		marketCap = marketCap.Mul(decimal.NewFromFloat(p.cfg.SolUSD))
	}
	// Truncated, not rounded: only a fully bought or complete curve may
	// read 100 and graduate.
	progress := curve.Progress(global.InitialRealTokenReserves).Truncate(2)
	return models.MarketUpdate{
		CurrentPrice:    curve.PriceSOL().InexactFloat64(),
		MarketCap:       marketCap.Round(9).InexactFloat64(),
		BondingProgress: progress.InexactFloat64(),
		Complete:        curve.Complete,
	}
}

func (p *Poller) record(result string) {
	if p.onRefresh != nil {
		p.onRefresh(result)
	}
}
