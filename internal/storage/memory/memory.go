// Package memory is an in-process storage.Store used when no database is
// configured and in tests.
package memory

import (
	"cmp"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rovshanmuradov/pumpbot/internal/storage"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
)

type Store struct {
	mu      sync.RWMutex
	records map[string]*models.TokenLaunch
	posts   map[string]string // post id -> address
	now     func() time.Time
}

func New() *Store {
	return &Store{
		records: make(map[string]*models.TokenLaunch),
		posts:   make(map[string]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Create(_ context.Context, rec *models.TokenLaunch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.Address]; ok {
		return storage.ErrDuplicate
	}
	if rec.PostID != nil {
		if _, ok := s.posts[*rec.PostID]; ok {
			return storage.ErrDuplicate
		}
	}

	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	stored := clone(rec)
	s.records[rec.Address] = stored
	if rec.PostID != nil {
		s.posts[*rec.PostID] = rec.Address
	}
	return nil
}

func (s *Store) Get(_ context.Context, address string) (*models.TokenLaunch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clone(rec), nil
}

func (s *Store) FindByPostID(ctx context.Context, postID string) (*models.TokenLaunch, error) {
	s.mu.RLock()
	address, ok := s.posts[postID]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrNotFound
	}
	return s.Get(ctx, address)
}

func (s *Store) List(_ context.Context, opts storage.ListOptions) ([]*models.TokenLaunch, int64, error) {
	if _, err := opts.Sort.Column(); err != nil {
		return nil, 0, err
	}

	all := s.snapshot()
	sort.SliceStable(all, func(i, j int) bool {
		c := compareBy(all[i], all[j], opts.Sort)
		if c == 0 {
			// Matches the postgres store: ties break on address ascending.
			return all[i].Address < all[j].Address
		}
		if opts.Descending {
			return c > 0
		}
		return c < 0
	})
	return page(all, opts.Offset, opts.Limit), int64(len(all)), nil
}

func (s *Store) Recent(_ context.Context, limit int) ([]*models.TokenLaunch, error) {
	all := s.snapshot()
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return page(all, 0, limit), nil
}

func (s *Store) Stats(_ context.Context) (*models.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &models.Stats{TotalLaunches: int64(len(s.records))}
	agents := make(map[string]struct{})
	for _, rec := range s.records {
		stats.TotalVolume += rec.Volume24h
		if rec.AgentWallet != "" {
			agents[rec.AgentWallet] = struct{}{}
		}
	}
	stats.ActiveAgents = int64(len(agents))
	return stats, nil
}

func (s *Store) ListActive(_ context.Context, limit int) ([]*models.TokenLaunch, error) {
	var active []*models.TokenLaunch
	for _, rec := range s.snapshot() {
		if !rec.Graduated && rec.BondingCurveAddress != "" {
			active = append(active, rec)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].UpdatedAt.Before(active[j].UpdatedAt)
	})
	return page(active, 0, limit), nil
}

func (s *Store) UpdateMarket(_ context.Context, address string, update models.MarketUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[address]
	if !ok {
		return storage.ErrNotFound
	}
	now := s.now()
	rec.ApplyMarket(update, now)
	rec.UpdatedAt = now
	return nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	return nil
}

func (s *Store) snapshot() []*models.TokenLaunch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.TokenLaunch, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, clone(rec))
	}
	return out
}

// compareBy returns -1, 0 or 1. Timestamps are compared as time.Time so
// nanosecond differences survive.
func compareBy(a, b *models.TokenLaunch, field storage.SortField) int {
	switch field {
	case storage.SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case storage.SortVolume24h:
		return cmp.Compare(a.Volume24h, b.Volume24h)
	default:
		return cmp.Compare(a.MarketCap, b.MarketCap)
	}
}

func page(recs []*models.TokenLaunch, offset, limit int) []*models.TokenLaunch {
	if offset >= len(recs) {
		return []*models.TokenLaunch{}
	}
	recs = recs[offset:]
	if limit > 0 && limit < len(recs) {
		recs = recs[:limit]
	}
	return recs
}

func clone(rec *models.TokenLaunch) *models.TokenLaunch {
	c := *rec
	if rec.PostID != nil {
		id := *rec.PostID
		c.PostID = &id
	}
	if rec.GraduatedAt != nil {
		at := *rec.GraduatedAt
		c.GraduatedAt = &at
	}
	return &c
}

var _ storage.Store = (*Store)(nil)
