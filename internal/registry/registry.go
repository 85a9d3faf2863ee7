// Package registry answers queries over launched tokens and owns the single
// write path that registers a new one.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"github.com/rovshanmuradov/pumpbot/internal/events"
	"github.com/rovshanmuradov/pumpbot/internal/storage"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"go.uber.org/zap"
)

const (
	DefaultPage        = 1
	DefaultLimit       = 50
	DefaultRecentLimit = 20
	MaxLimit           = 100
)

// Query holds raw list parameters as received from a caller.
type Query struct {
	Page  string
	Limit string
	Sort  string
	Order string
}

// Pagination describes the returned page.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

// Page is one page of records plus aggregate stats.
type Page struct {
	Tokens     []*models.TokenLaunch `json:"tokens"`
	Pagination Pagination            `json:"pagination"`
	Stats      *models.Stats         `json:"stats"`
}

// Registry is the read side of launch storage and its create-if-absent write.
type Registry struct {
	store     storage.Store
	publisher events.Publisher
	logger    *zap.Logger
}

func New(store storage.Store, publisher events.Publisher, logger *zap.Logger) *Registry {
	return &Registry{
		store:     store,
		publisher: publisher,
		logger:    logger.Named("registry"),
	}
}

// List returns a sorted page of records with aggregate stats.
func (r *Registry) List(ctx context.Context, q Query) (*Page, error) {
	opts, page, err := parseQuery(q)
	if err != nil {
		return nil, err
	}

	recs, total, err := r.store.List(ctx, opts)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch tokens", err)
	}
	stats, err := r.store.Stats(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch tokens", err)
	}

	pages := (total + int64(opts.Limit) - 1) / int64(opts.Limit)
	return &Page{
		Tokens: recs,
		Pagination: Pagination{
			Page:  page,
			Limit: opts.Limit,
			Total: total,
			Pages: pages,
		},
		Stats: stats,
	}, nil
}

func parseQuery(q Query) (storage.ListOptions, int, error) {
	var reasons []string

	page, ok := parsePositive(q.Page, DefaultPage)
	if !ok {
		reasons = append(reasons, "page must be a positive integer")
	}
	limit, ok := parsePositive(q.Limit, DefaultLimit)
	if !ok {
		reasons = append(reasons, "limit must be a positive integer")
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	sort := storage.SortMarketCap
	switch strings.TrimSpace(q.Sort) {
	case "", string(storage.SortMarketCap):
	case string(storage.SortCreatedAt), "new":
		sort = storage.SortCreatedAt
	case string(storage.SortVolume24h):
		sort = storage.SortVolume24h
	default:
		reasons = append(reasons, "sort must be one of marketCap, createdAt, volume24h")
	}

	desc := true
	switch strings.ToLower(strings.TrimSpace(q.Order)) {
	case "", "desc":
	case "asc":
		desc = false
	default:
		reasons = append(reasons, "order must be asc or desc")
	}

	if len(reasons) > 0 {
		return storage.ListOptions{}, 0, apperr.Validation("Invalid query", reasons...)
	}
	return storage.ListOptions{
		Offset:     (page - 1) * limit,
		Limit:      limit,
		Sort:       sort,
		Descending: desc,
	}, page, nil
}

func parsePositive(raw string, def int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def, false
	}
	return n, true
}

// Get returns the record for address.
func (r *Registry) Get(ctx context.Context, address string) (*models.TokenLaunch, error) {
	rec, err := r.store.Get(ctx, address)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound("Token not found")
		}
		return nil, apperr.Internal("Failed to fetch token", err)
	}
	return rec, nil
}

// Recent returns the newest launches first. Non-positive limits use the default.
func (r *Registry) Recent(ctx context.Context, limit int) ([]models.RecentLaunch, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	recs, err := r.store.Recent(ctx, limit)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch launches", err)
	}
	out := make([]models.RecentLaunch, len(recs))
	for i, rec := range recs {
		out[i] = rec.Recent()
	}
	return out, nil
}

// FindByPostID returns the launch registered for a social post.
func (r *Registry) FindByPostID(ctx context.Context, postID string) (*models.TokenLaunch, error) {
	rec, err := r.store.FindByPostID(ctx, postID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up post %s: %w", postID, err)
	}
	return rec, nil
}

// CreateIfAbsent stores rec unless a record with the same address or post id
// exists, in which case the existing record is returned and nothing is
// published. A LaunchCreated event follows every successful insert.
func (r *Registry) CreateIfAbsent(ctx context.Context, rec *models.TokenLaunch) (bool, *models.TokenLaunch, error) {
	err := r.store.Create(ctx, rec)
	switch {
	case err == nil:
		r.logger.Info("Token launch registered",
			zap.String("address", rec.Address),
			zap.String("symbol", rec.Symbol),
			zap.String("platform", rec.Platform))
		if perr := r.publisher.Publish(events.NewLaunchCreated(rec)); perr != nil {
			r.logger.Warn("Failed to publish launch event",
				zap.String("address", rec.Address),
				zap.Error(perr))
		}
		return true, rec, nil

	case errors.Is(err, storage.ErrDuplicate):
		existing, lookupErr := r.existing(ctx, rec)
		if lookupErr != nil {
			return false, nil, lookupErr
		}
		return false, existing, nil

	default:
		return false, nil, fmt.Errorf("failed to register token %s: %w", rec.Address, err)
	}
}

func (r *Registry) existing(ctx context.Context, rec *models.TokenLaunch) (*models.TokenLaunch, error) {
	found, err := r.store.Get(ctx, rec.Address)
	if err == nil {
		return found, nil
	}
	if !errors.Is(err, storage.ErrNotFound) || rec.PostID == nil {
		return nil, fmt.Errorf("failed to load existing token %s: %w", rec.Address, err)
	}
	found, err = r.store.FindByPostID(ctx, *rec.PostID)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing launch for post %s: %w", *rec.PostID, err)
	}
	return found, nil
}

// UpdateMarket writes refreshed figures for address.
func (r *Registry) UpdateMarket(ctx context.Context, address string, u models.MarketUpdate) error {
	if err := r.store.UpdateMarket(ctx, address, u); err != nil {
		return fmt.Errorf("failed to update market data for %s: %w", address, err)
	}
	if err := r.publisher.Publish(events.NewMarketUpdated(address, u)); err != nil {
		r.logger.Debug("Market update event dropped", zap.String("address", address), zap.Error(err))
	}
	return nil
}

// ListActive returns launches the market poller should refresh.
func (r *Registry) ListActive(ctx context.Context, limit int) ([]*models.TokenLaunch, error) {
	return r.store.ListActive(ctx, limit)
}

// Ping reports whether storage is reachable.
func (r *Registry) Ping(ctx context.Context) error {
	return r.store.Ping(ctx)
}
