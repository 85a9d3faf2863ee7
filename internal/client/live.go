package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"go.uber.org/zap"
)

type liveFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Watch connects to the live channel and calls onLaunch for every newLaunch
// event until ctx is cancelled or the connection drops. onHello, if set, runs
// when the server greets the connection.
func (c *Client) Watch(ctx context.Context, onHello func(), onLaunch func(*models.TokenLaunch)) error {
	wsURL, err := liveURL(c.baseURL)
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to live channel: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	for {
		var frame liveFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("live channel closed: %w", err)
		}
		switch frame.Event {
		case "hello":
			if onHello != nil {
				onHello()
			}
			continue
		case "newLaunch":
		default:
			continue
		}

		var rec models.TokenLaunch
		if err := json.Unmarshal(frame.Data, &rec); err != nil {
			c.logger.Warn("Malformed live event", zap.Error(err))
			continue
		}
		onLaunch(&rec)
	}
}

func liveURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	return u.String(), nil
}
