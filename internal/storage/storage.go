// internal/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
)

var (
	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned by Create when the address or post id is taken.
	ErrDuplicate = errors.New("record already exists")
)

// SortField is a sortable TokenLaunch column.
type SortField string

const (
	SortMarketCap SortField = "marketCap"
	SortCreatedAt SortField = "createdAt"
	SortVolume24h SortField = "volume24h"
)

// Column returns the database column for the field.
func (f SortField) Column() (string, error) {
	switch f {
	case SortMarketCap:
		return "market_cap", nil
	case SortCreatedAt:
		return "created_at", nil
	case SortVolume24h:
		return "volume24h", nil
	default:
		return "", fmt.Errorf("unknown sort field %q", f)
	}
}

// ListOptions selects one page of records.
type ListOptions struct {
	Offset     int
	Limit      int
	Sort       SortField
	Descending bool
}

// Store persists TokenLaunch records.
type Store interface {
	// Create inserts rec. It returns ErrDuplicate when a record with the same
	// address or post id already exists and leaves the stored record untouched.
	Create(ctx context.Context, rec *models.TokenLaunch) error
	Get(ctx context.Context, address string) (*models.TokenLaunch, error)
	FindByPostID(ctx context.Context, postID string) (*models.TokenLaunch, error)
	List(ctx context.Context, opts ListOptions) ([]*models.TokenLaunch, int64, error)
	Recent(ctx context.Context, limit int) ([]*models.TokenLaunch, error)
	Stats(ctx context.Context) (*models.Stats, error)

	// ListActive returns up to limit non-graduated records with a known
	// bonding curve, least recently refreshed first.
	ListActive(ctx context.Context, limit int) ([]*models.TokenLaunch, error)
	UpdateMarket(ctx context.Context, address string, update models.MarketUpdate) error

	Ping(ctx context.Context) error
	Close() error
}
