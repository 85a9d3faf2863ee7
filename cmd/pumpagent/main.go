// ====================================
// File: cmd/pumpagent/main.go
// ====================================
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rovshanmuradov/pumpbot/internal/agent"
	"github.com/rovshanmuradov/pumpbot/internal/blockchain/solbc"
	"github.com/rovshanmuradov/pumpbot/internal/client"
	"github.com/rovshanmuradov/pumpbot/internal/config"
	"github.com/rovshanmuradov/pumpbot/internal/dex/pumpfun"
	"github.com/rovshanmuradov/pumpbot/internal/export"
	"github.com/rovshanmuradov/pumpbot/internal/logger"
	"github.com/rovshanmuradov/pumpbot/internal/wallet"
	"go.uber.org/zap"
)

const usage = `usage: pumpagent <command> [flags]

commands:
  wallet   create or show the agent wallet
  launch   launch a token through a PumpBot server
  export   export registered launches to csv or json
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "wallet":
		err = runWallet(ctx, os.Args[2:])
	case "launch":
		err = runLaunch(ctx, os.Args[2:])
	case "export":
		err = runExport(ctx, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func defaultWalletPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".pumpbot-wallet", "wallet.json")
	}
	return filepath.Join(home, ".pumpbot-wallet", "wallet.json")
}

func newLogger(verbose bool) (*zap.Logger, error) {
	log, err := logger.New(&logger.Config{Development: verbose})
	if err != nil {
		return nil, err
	}
	if !verbose {
		return log.Logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel)), nil
	}
	return log.Logger, nil
}

func runWallet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("wallet", flag.ExitOnError)
	path := fs.String("path", defaultWalletPath(), "wallet file")
	rpcURL := fs.String("rpc", config.DefaultRPCURL, "Solana RPC endpoint")
	rpcTimeout := fs.Duration("rpc-timeout", config.DefaultRPCTimeout, "per-request RPC timeout")
	_ = fs.Parse(args)

	log, err := newLogger(false)
	if err != nil {
		return err
	}

	w, created, err := wallet.LoadOrCreate(*path)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Created wallet %s\n", *path)
	}
	fmt.Printf("Address: %s\n", w)

	chain := solbc.NewClient(*rpcURL, log, solbc.WithTimeout(*rpcTimeout))
	balance, err := agent.New(nil, chain, w, log).Balance(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Balance: %s SOL\n", pumpfun.LamportsToSOL(balance))
	if balance < agent.MinBalanceLamports {
		fmt.Printf("Fund this address with at least %s SOL before launching\n",
			pumpfun.LamportsToSOL(agent.MinBalanceLamports))
	}
	return nil
}

func runLaunch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("launch", flag.ExitOnError)
	var req agent.Request
	fs.StringVar(&req.Name, "name", "", "token name")
	fs.StringVar(&req.Symbol, "symbol", "", "token symbol")
	fs.StringVar(&req.Description, "description", "", "token description")
	fs.StringVar(&req.Image, "image", "", "image file path or URL")
	fs.StringVar(&req.Website, "website", "", "project website")
	fs.StringVar(&req.Twitter, "twitter", "", "project twitter")
	path := fs.String("wallet", defaultWalletPath(), "wallet file")
	apiURL := fs.String("api", fmt.Sprintf("http://localhost:%d", config.DefaultPort), "PumpBot server")
	rpcURL := fs.String("rpc", config.DefaultRPCURL, "Solana RPC endpoint")
	rpcTimeout := fs.Duration("rpc-timeout", config.DefaultRPCTimeout, "per-request RPC timeout")
	confirmTimeout := fs.Duration("confirm-timeout", 60*time.Second, "how long to wait for the create transaction to confirm")
	verbose := fs.Bool("v", false, "verbose logging")
	_ = fs.Parse(args)

	if req.Name == "" || req.Symbol == "" || req.Image == "" {
		fs.Usage()
		return errors.New("-name, -symbol and -image are required")
	}

	log, err := newLogger(*verbose)
	if err != nil {
		return err
	}

	w, err := wallet.Load(*path)
	if err != nil {
		if errors.Is(err, wallet.ErrWalletNotFound) {
			return fmt.Errorf("no wallet at %s, run pumpagent wallet first", *path)
		}
		return err
	}

	api := client.New(*apiURL, 30*time.Second, log)
	chain := solbc.NewClient(*rpcURL, log,
		solbc.WithTimeout(*rpcTimeout),
		solbc.WithConfirmation(time.Second, *confirmTimeout))

	fmt.Printf("Launching %s (%s) from %s\n", req.Name, req.Symbol, w)
	res, err := agent.New(api, chain, w, log).Launch(ctx, req)
	if err != nil {
		return err
	}

	links := res.Confirmation.Links
	fmt.Println(res.Confirmation.Message)
	fmt.Printf("Mint:        %s\n", res.MintAddress)
	fmt.Printf("Signature:   %s\n", res.Signature)
	fmt.Printf("Metadata:    %s\n", res.MetadataURI)
	fmt.Printf("Explorer:    %s\n", links.Explorer)
	if links.PumpFun != "" {
		fmt.Printf("pump.fun:    %s\n", links.PumpFun)
	}
	if links.DexScreener != "" {
		fmt.Printf("DexScreener: %s\n", links.DexScreener)
	}
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", string(export.FormatCSV), "csv or json")
	out := fs.String("out", "exports", "output directory")
	agentWallet := fs.String("agent", "", "only launches by this agent wallet")
	platform := fs.String("platform", "", "only launches from this platform")
	graduated := fs.Bool("graduated", false, "only graduated tokens")
	since := fs.Duration("since", 0, "only launches newer than this, e.g. 24h")
	maxPages := fs.Int("pages", 0, "stop after this many pages, 0 for all")
	apiURL := fs.String("api", fmt.Sprintf("http://localhost:%d", config.DefaultPort), "PumpBot server")
	_ = fs.Parse(args)

	log, err := newLogger(false)
	if err != nil {
		return err
	}

	launches, err := export.Collect(ctx, client.New(*apiURL, 30*time.Second, log), *maxPages)
	if err != nil {
		return err
	}

	opts := export.Options{
		Format:        export.Format(*format),
		Agent:         *agentWallet,
		Platform:      *platform,
		OnlyGraduated: *graduated,
		OutputDir:     *out,
	}
	if *since > 0 {
		opts.Since = time.Now().Add(-*since)
	}

	path, err := export.NewExporter(log).Export(launches, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}
