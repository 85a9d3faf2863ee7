// internal/logger/config.go
package logger

import "github.com/rovshanmuradov/pumpbot/internal/config"

type Config struct {
	LogFile     string
	MaxSize     int  // megabytes
	MaxAge      int  // days
	MaxBackups  int  // files
	Compress    bool // gzip rotated files
	Development bool
	SentryDSN   string

	// NoConsole drops the stdout core, for terminal UIs that own the screen.
	NoConsole bool
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() *Config {
	return &Config{
		LogFile:     "pumpbot.log",
		MaxSize:     100,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: false,
	}
}

// FromAppConfig maps the log section of the service configuration.
func FromAppConfig(cfg config.LogConfig) *Config {
	return &Config{
		LogFile:     cfg.File,
		MaxSize:     cfg.MaxSize,
		MaxAge:      cfg.MaxAge,
		MaxBackups:  cfg.MaxBackups,
		Compress:    cfg.Compress,
		Development: cfg.Development,
		SentryDSN:   cfg.SentryDSN,
	}
}
