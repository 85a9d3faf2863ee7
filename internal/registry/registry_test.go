package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rovshanmuradov/pumpbot/internal/apperr"
	"github.com/rovshanmuradov/pumpbot/internal/events"
	"github.com/rovshanmuradov/pumpbot/internal/storage"
	"github.com/rovshanmuradov/pumpbot/internal/storage/memory"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) count(typ events.EventType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.Type() == typ {
			n++
		}
	}
	return n
}

type failingStore struct {
	*memory.Store
}

func (failingStore) Create(context.Context, *models.TokenLaunch) error {
	return errors.New("connection reset")
}

func (failingStore) List(context.Context, storage.ListOptions) ([]*models.TokenLaunch, int64, error) {
	return nil, 0, errors.New("connection reset")
}

func newRegistry(t *testing.T) (*Registry, *memory.Store, *recordingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &recordingPublisher{}
	return New(store, pub, zaptest.NewLogger(t)), store, pub
}

func rec(address string) *models.TokenLaunch {
	return &models.TokenLaunch{
		Address:     address,
		Name:        "Unknown",
		Symbol:      "TBD",
		Description: "d",
		Image:       "",
		AgentWallet: "wallet",
		Platform:    models.PlatformPumpBot,
	}
}

func TestCreateIfAbsent(t *testing.T) {
	r, _, pub := newRegistry(t)
	ctx := context.Background()

	created, got, err := r.CreateIfAbsent(ctx, rec("MINT"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "MINT", got.Address)

	second := rec("MINT")
	second.Name = "Other"
	created, existing, err := r.CreateIfAbsent(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "Unknown", existing.Name)

	assert.Equal(t, 1, pub.count(events.LaunchCreated))
}

func TestCreateIfAbsentConcurrent(t *testing.T) {
	r, _, pub := newRegistry(t)

	var wg sync.WaitGroup
	var mu sync.Mutex
	createdCount := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, _, err := r.CreateIfAbsent(context.Background(), rec("RACE"))
			assert.NoError(t, err)
			if created {
				mu.Lock()
				createdCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, createdCount)
	assert.Equal(t, 1, pub.count(events.LaunchCreated))
}

func TestCreateIfAbsentPostConflict(t *testing.T) {
	r, _, _ := newRegistry(t)
	ctx := context.Background()
	post := "p1"

	first := rec("A")
	first.PostID = &post
	_, _, err := r.CreateIfAbsent(ctx, first)
	require.NoError(t, err)

	second := rec("B")
	second.PostID = &post
	created, existing, err := r.CreateIfAbsent(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "A", existing.Address)

	found, err := r.FindByPostID(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, "A", found.Address)

	none, err := r.FindByPostID(ctx, "unknown")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestCreateIfAbsentStorageError(t *testing.T) {
	pub := &recordingPublisher{}
	r := New(failingStore{memory.New()}, pub, zaptest.NewLogger(t))

	_, _, err := r.CreateIfAbsent(context.Background(), rec("X"))
	assert.ErrorContains(t, err, "connection reset")
	assert.Equal(t, 0, pub.count(events.LaunchCreated))
}

func seed(t *testing.T, store *memory.Store, n int) {
	t.Helper()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		r := rec(fmt.Sprintf("T%03d", i))
		r.MarketCap = float64(i)
		r.Volume24h = 1
		r.AgentWallet = fmt.Sprintf("w%d", i%3)
		r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, store.Create(context.Background(), r))
	}
}

func TestListDefaults(t *testing.T) {
	r, store, _ := newRegistry(t)
	seed(t, store, 120)

	page, err := r.List(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, page.Tokens, 50)
	assert.Equal(t, "T119", page.Tokens[0].Address)
	assert.Equal(t, Pagination{Page: 1, Limit: 50, Total: 120, Pages: 3}, page.Pagination)
	assert.Equal(t, &models.Stats{TotalLaunches: 120, TotalVolume: 120, ActiveAgents: 3}, page.Stats)
}

func TestListQuery(t *testing.T) {
	r, store, _ := newRegistry(t)
	seed(t, store, 5)
	ctx := context.Background()

	page, err := r.List(ctx, Query{Page: "2", Limit: "2", Sort: "new", Order: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Tokens, 2)
	assert.Equal(t, "T002", page.Tokens[0].Address)
	assert.Equal(t, int64(3), page.Pagination.Pages)

	page, err = r.List(ctx, Query{Limit: "1000"})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, page.Pagination.Limit)
}

func TestListInvalidQuery(t *testing.T) {
	r, _, _ := newRegistry(t)

	for _, q := range []Query{
		{Sort: "price"},
		{Order: "sideways"},
		{Page: "0"},
		{Limit: "abc"},
	} {
		_, err := r.List(context.Background(), q)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation), "%+v", q)
	}
}

func TestListStorageError(t *testing.T) {
	r := New(failingStore{memory.New()}, &recordingPublisher{}, zaptest.NewLogger(t))
	_, err := r.List(context.Background(), Query{})
	assert.True(t, apperr.IsKind(err, apperr.KindInternal))
}

func TestGet(t *testing.T) {
	r, store, _ := newRegistry(t)
	seed(t, store, 1)

	got, err := r.Get(context.Background(), "T000")
	require.NoError(t, err)
	assert.Equal(t, "T000", got.Address)

	_, err = r.Get(context.Background(), "nope")
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)
	assert.Equal(t, "Token not found", appErr.Label)
}

func TestRecent(t *testing.T) {
	r, store, _ := newRegistry(t)
	seed(t, store, 30)

	recent, err := r.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recent, DefaultRecentLimit)
	assert.Equal(t, "T029", recent[0].Address)
	assert.True(t, recent[0].CreatedAt.After(recent[1].CreatedAt))
}

func TestUpdateMarketPublishes(t *testing.T) {
	r, store, pub := newRegistry(t)
	seed(t, store, 1)

	require.NoError(t, r.UpdateMarket(context.Background(), "T000", models.MarketUpdate{MarketCap: 12}))
	assert.Equal(t, 1, pub.count(events.MarketUpdated))

	assert.Error(t, r.UpdateMarket(context.Background(), "missing", models.MarketUpdate{}))
}
