// ====================================
// File: cmd/pumpwatch/main.go
// ====================================
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rovshanmuradov/pumpbot/internal/client"
	"github.com/rovshanmuradov/pumpbot/internal/config"
	"github.com/rovshanmuradov/pumpbot/internal/logger"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"github.com/rovshanmuradov/pumpbot/internal/ui"
	"github.com/rovshanmuradov/pumpbot/internal/ui/screen"
	"go.uber.org/zap"
)

const reconnectDelay = 3 * time.Second

func main() {
	apiURL := flag.String("api", fmt.Sprintf("http://localhost:%d", config.DefaultPort), "PumpBot server")
	logFile := flag.String("log", "pumpwatch.log", "log file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// the terminal belongs to the dashboard, so logs only go to the file
	cfg := logger.DefaultConfig()
	cfg.LogFile = *logFile
	cfg.NoConsole = true
	appLogger, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	api := client.New(*apiURL, 10*time.Second, appLogger.Logger)
	program := tea.NewProgram(
		screen.NewDashboard(api, 10*time.Second),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	go watch(ctx, api, program, appLogger.Named("watch"))

	if _, err := program.Run(); err != nil && ctx.Err() == nil {
		appLogger.Error("Dashboard failed", zap.Error(err))
		log.Fatalf("pumpwatch: %v", err)
	}
}

// watch keeps the live subscription open and feeds new launches to the
// program, reconnecting after a pause when the connection drops.
func watch(ctx context.Context, api *client.Client, program *tea.Program, log *zap.Logger) {
	for {
		err := api.Watch(ctx, func() {
			program.Send(ui.LiveStatusMsg{Connected: true})
		}, func(rec *models.TokenLaunch) {
			program.Send(ui.NewLaunchMsg{Launch: rec.Recent()})
		})
		if ctx.Err() != nil {
			return
		}
		log.Warn("Live connection lost", zap.Error(err))
		program.Send(ui.LiveStatusMsg{Connected: false, Err: err})

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}
