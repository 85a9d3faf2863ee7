package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rovshanmuradov/pumpbot/internal/events"
	"github.com/rovshanmuradov/pumpbot/internal/storage/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector()

	c.ObserveHTTP("GET", "/api/tokens", 200, 15*time.Millisecond)
	c.ObserveHTTP("GET", "/api/tokens", 200, 5*time.Millisecond)
	c.RecordLaunch("prepare", true)
	c.RecordLaunch("confirm", false)
	c.SetLiveSubscribers(3)
	c.RecordMarketRefresh("updated")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("GET", "/api/tokens", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.launchOperations.WithLabelValues("prepare", ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.launchOperations.WithLabelValues("confirm", ResultFailure)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.liveSubscribers))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.marketRefresh.WithLabelValues("updated")))

	c.Reset()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.liveSubscribers))
	assert.Equal(t, 0, testutil.CollectAndCount(c.httpRequests))
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector()
	b := NewCollector()
	a.RecordMarketRefresh("failed")
	assert.Equal(t, 0, testutil.CollectAndCount(b.marketRefresh))
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.RecordLaunch("confirm", true)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `pumpbot_launch_operations_total{operation="confirm",result="success"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

type fixedBus struct{ stats events.Stats }

func (f fixedBus) Stats() events.Stats { return f.stats }

func TestWatchEventBus(t *testing.T) {
	c := NewCollector()
	c.WatchEventBus(fixedBus{stats: events.Stats{Published: 7, Dropped: 2, Rejected: 1, Pending: 3}})

	expected := `
# HELP pumpbot_event_bus_events_total Events offered to the bus by outcome
# TYPE pumpbot_event_bus_events_total counter
pumpbot_event_bus_events_total{outcome="dropped"} 2
pumpbot_event_bus_events_total{outcome="published"} 7
pumpbot_event_bus_events_total{outcome="rejected"} 1
# HELP pumpbot_event_bus_pending_events Events queued and not yet dispatched
# TYPE pumpbot_event_bus_pending_events gauge
pumpbot_event_bus_pending_events 3
`
	assert.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected),
		"pumpbot_event_bus_events_total", "pumpbot_event_bus_pending_events"))
}

func TestWatchEventBusTracksLiveBus(t *testing.T) {
	bus := events.NewBus(zaptest.NewLogger(t), 4)
	c := NewCollector()
	c.WatchEventBus(bus)

	require.NoError(t, bus.Shutdown(context.Background()))
	assert.ErrorIs(t, bus.Publish(events.NewLaunchCreated(&models.TokenLaunch{})), events.ErrBusClosed)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `pumpbot_event_bus_events_total{outcome="rejected"} 1`)
}
