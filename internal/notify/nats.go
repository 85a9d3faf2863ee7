// Package notify forwards registry events to external subscribers over NATS.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rovshanmuradov/pumpbot/internal/events"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"go.uber.org/zap"
)

// Config holds the NATS connection settings.
type Config struct {
	URL            string
	Subject        string
	ConnectionName string
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// Conn is the subset of *nats.Conn the sink uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// Sink publishes launch records as JSON. New launches go to Subject and
// market refreshes to Subject+".market".
type Sink struct {
	conn    Conn
	subject string
	logger  *zap.Logger
}

// Connect dials NATS and returns a sink bound to the connection.
func Connect(cfg Config, logger *zap.Logger) (*Sink, error) {
	logger = logger.Named("nats")
	if cfg.ConnectionName == "" {
		cfg.ConnectionName = "pumpbot"
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = 10
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}

	opts := []nats.Option{
		nats.Name(cfg.ConnectionName),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				logger.Warn("Disconnected from NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("Reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewSink(nc, cfg.Subject, logger), nil
}

// NewSink wraps an existing connection.
func NewSink(conn Conn, subject string, logger *zap.Logger) *Sink {
	return &Sink{conn: conn, subject: subject, logger: logger}
}

type marketPayload struct {
	Address string `json:"address"`
	models.MarketUpdate
	At time.Time `json:"at"`
}

// Handle implements events.Handler.
func (s *Sink) Handle(_ context.Context, e events.Event) error {
	var (
		subject string
		payload interface{}
	)
	switch ev := e.(type) {
	case events.LaunchCreatedEvent:
		subject, payload = s.subject, ev.Launch
	case events.MarketUpdatedEvent:
		subject = s.subject + ".market"
		payload = marketPayload{Address: ev.Address, MarketUpdate: ev.Update, At: ev.Timestamp()}
	default:
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", e.Type(), err)
	}
	if err := s.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", e.Type(), err)
	}

	s.logger.Debug("Event published", zap.String("subject", subject), zap.Int("bytes", len(data)))
	return nil
}

// Close flushes pending messages and closes the connection.
func (s *Sink) Close() {
	if s.conn == nil {
		return
	}
	if err := s.conn.Drain(); err != nil {
		s.logger.Warn("Failed to drain NATS connection", zap.Error(err))
		s.conn.Close()
	}
}
