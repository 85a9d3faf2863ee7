// internal/logger/logger.go
package logger

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap.Logger with the rotation and Sentry plumbing it owns.
type Logger struct {
	*zap.Logger
	config *Config
	rotate *lumberjack.Logger
	sentry *sentry.Client
}

// New builds a logger that writes human readable lines to stdout and JSON
// lines to a rotating file. Error level entries also go to Sentry when a DSN
// is configured.
func New(cfg *Config) (*Logger, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	if cfg.Development {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	encoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	level := zapcore.InfoLevel
	if cfg.Development {
		level = zapcore.DebugLevel
	}

	var cores []zapcore.Core
	if !cfg.NoConsole {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.AddSync(os.Stdout), level))
	}

	var rotate *lumberjack.Logger
	if cfg.LogFile != "" {
		rotate = &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(rotate), level))
	}

	base := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	l := &Logger{Logger: base, config: cfg, rotate: rotate}

	if cfg.SentryDSN != "" {
		client, err := sentry.NewClient(sentry.ClientOptions{
			Dsn:   cfg.SentryDSN,
			Debug: cfg.Development,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create sentry client: %w", err)
		}

		core, err := zapsentry.NewCore(zapsentry.Configuration{
			Level:             zapcore.ErrorLevel,
			EnableBreadcrumbs: true,
			BreadcrumbLevel:   zapcore.InfoLevel,
			Tags:              map[string]string{"component": "pumpbot"},
		}, zapsentry.NewSentryClientFromClient(client))
		if err != nil {
			return nil, fmt.Errorf("failed to create sentry core: %w", err)
		}

		l.Logger = zapsentry.AttachCoreToLogger(core, base)
		l.sentry = client
	}

	return l, nil
}

// WithOperation returns a child of base tagged with operation and a fresh
// correlation id, so every line of one request can be grouped.
func WithOperation(base *zap.Logger, operation string) *zap.Logger {
	return base.With(
		zap.String("operation", operation),
		zap.String("correlation_id", uuid.New().String()),
	)
}

// Sync flushes buffered entries, Sentry events and closes the rotating file.
// Errors from syncing a terminal are ignored.
func (l *Logger) Sync() error {
	err := l.Logger.Sync()
	if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		err = nil
	}
	if l.sentry != nil {
		l.sentry.Flush(2 * time.Second)
	}
	if l.rotate != nil {
		if cerr := l.rotate.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}
