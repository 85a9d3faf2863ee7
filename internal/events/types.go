// internal/events/types.go
package events

import (
	"time"

	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
)

// EventType represents the type of event.
type EventType string

const (
	// LaunchCreated is published once per newly registered token.
	LaunchCreated EventType = "launch.created"

	// MarketUpdated is published after the market poller refreshes a token.
	MarketUpdated EventType = "market.updated"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

func (e BaseEvent) Type() EventType {
	return e.EventType
}

func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// LaunchCreatedEvent carries the record exactly as it was stored.
type LaunchCreatedEvent struct {
	BaseEvent
	Launch *models.TokenLaunch
}

// NewLaunchCreated wraps rec in a LaunchCreated event.
func NewLaunchCreated(rec *models.TokenLaunch) LaunchCreatedEvent {
	return LaunchCreatedEvent{
		BaseEvent: BaseEvent{EventType: LaunchCreated, EventTime: time.Now()},
		Launch:    rec,
	}
}

// MarketUpdatedEvent reports refreshed figures for one token.
type MarketUpdatedEvent struct {
	BaseEvent
	Address string
	Update  models.MarketUpdate
}

// NewMarketUpdated builds a MarketUpdated event.
func NewMarketUpdated(address string, u models.MarketUpdate) MarketUpdatedEvent {
	return MarketUpdatedEvent{
		BaseEvent: BaseEvent{EventType: MarketUpdated, EventTime: time.Now()},
		Address:   address,
		Update:    u,
	}
}
