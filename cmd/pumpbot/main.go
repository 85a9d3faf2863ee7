// ====================================
// File: cmd/pumpbot/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rovshanmuradov/pumpbot/internal/api"
	"github.com/rovshanmuradov/pumpbot/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpbot/internal/config"
	"github.com/rovshanmuradov/pumpbot/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpbot/internal/events"
	"github.com/rovshanmuradov/pumpbot/internal/launch"
	"github.com/rovshanmuradov/pumpbot/internal/live"
	"github.com/rovshanmuradov/pumpbot/internal/logger"
	"github.com/rovshanmuradov/pumpbot/internal/market"
	"github.com/rovshanmuradov/pumpbot/internal/metadata"
	"github.com/rovshanmuradov/pumpbot/internal/metrics"
	"github.com/rovshanmuradov/pumpbot/internal/notify"
	"github.com/rovshanmuradov/pumpbot/internal/registry"
	"github.com/rovshanmuradov/pumpbot/internal/social"
	"github.com/rovshanmuradov/pumpbot/internal/storage"
	"github.com/rovshanmuradov/pumpbot/internal/storage/memory"
	"github.com/rovshanmuradov/pumpbot/internal/storage/postgres"
	"github.com/rovshanmuradov/pumpbot/internal/upload"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, json or toml)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.FromAppConfig(cfg.Log))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log.Logger); err != nil {
		log.Error("PumpBot stopped with error", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	log.Info("PumpBot stopped")
}

// run wires the services and blocks until ctx is cancelled or a component
// fails. Shutdown goes HTTP first, then the background workers, then the
// fan-out and finally storage.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting PumpBot",
		zap.String("rpc", cfg.Solana.RPCURL),
		zap.String("addr", cfg.Server.Addr()))

	store, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("Failed to close store", zap.Error(err))
		}
	}()

	chain := solbc.NewClient(cfg.Solana.RPCURL, log,
		solbc.WithCommitment(cfg.Solana.Commitment),
		solbc.WithTimeout(cfg.Solana.RPCTimeout))

	metaStore, err := metadata.NewStore(cfg.Content.MetadataDir, log)
	if err != nil {
		return err
	}
	intake, err := upload.NewIntake(cfg.Content.UploadsDir, cfg.Content.MaxImageBytes, log)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	bus := events.NewBus(log, 0)
	collector.WatchEventBus(bus)
	reg := registry.New(store, bus, log)

	hub := live.NewHub(live.DefaultConfig(), collector.SetLiveSubscribers, log)
	bus.Subscribe(events.LaunchCreated, hub)

	var sink *notify.Sink
	if cfg.NATS.URL != "" {
		sink, err = notify.Connect(notify.Config{URL: cfg.NATS.URL, Subject: cfg.NATS.Subject}, log)
		if err != nil {
			return err
		}
		bus.Subscribe(events.LaunchCreated, sink)
		bus.Subscribe(events.MarketUpdated, sink)
	}

	preparerCfg, err := preparerConfig(cfg.Launch)
	if err != nil {
		return err
	}
	preparer := launch.NewPreparer(chain, metaStore, nil, preparerCfg, log)
	confirmer := launch.NewConfirmer(chain, reg, log)

	launcher := social.NewLauncher(
		social.NewClient(cfg.Social.BaseURL, cfg.Social.Timeout, log),
		social.NewSimulatedCreator(log),
		reg, log)

	poller := market.NewPoller(chain, reg, market.Config{
		Interval:  cfg.Market.PollInterval,
		Workers:   cfg.Market.Workers,
		BatchSize: cfg.Market.BatchSize,
		SolUSD:    cfg.Market.SolUSD,
	}, collector.RecordMarketRefresh, log)

	server := api.New(api.Config{
		Addr:            cfg.Server.Addr(),
		PublicURL:       cfg.Server.PublicURL,
		Debug:           cfg.Server.Debug,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORSOrigins:     cfg.Server.CORSOrigins,
		MaxImageBytes:   cfg.Content.MaxImageBytes,
	}, api.Deps{
		Metadata:  metaStore,
		Images:    intake,
		Preparer:  preparer,
		Confirmer: confirmer,
		Registry:  reg,
		Social:    launcher,
		Live:      hub,
		Metrics:   collector,
	}, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(server.Start)
	g.Go(func() error {
		return poller.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.Server.ShutdownTimeout))
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		hub.Close()
		if err := bus.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to drain event bus: %w", err))
		}
		if sink != nil {
			sink.Close()
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// openStore connects to PostgreSQL when a URL is configured and falls back
// to the in-memory store otherwise.
func openStore(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (storage.Store, error) {
	if cfg.PostgresURL == "" {
		log.Warn("No postgres_url configured, launches are kept in memory only")
		return memory.New(), nil
	}
	return postgres.Connect(ctx, cfg.PostgresURL, postgres.Options{
		MaxOpenConns:   cfg.MaxOpenConns,
		MaxIdleConns:   cfg.MaxIdleConns,
		ConnectTimeout: cfg.ConnectTimeout,
	}, log)
}

func preparerConfig(cfg config.LaunchConfig) (launch.PreparerConfig, error) {
	sol, err := decimal.NewFromString(cfg.InitialBuySOL)
	if err != nil {
		return launch.PreparerConfig{}, fmt.Errorf("invalid launch.initial_buy_sol %q: %w", cfg.InitialBuySOL, err)
	}
	lamports, err := pumpfun.SOLToLamports(sol)
	if err != nil {
		return launch.PreparerConfig{}, fmt.Errorf("invalid launch.initial_buy_sol: %w", err)
	}
	return launch.PreparerConfig{
		InitialBuyLamports: lamports,
		SlippageBps:        cfg.SlippageBps,
		ComputeUnitLimit:   cfg.ComputeUnitLimit,
		ComputeUnitPrice:   cfg.ComputeUnitPrice,
	}, nil
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}
