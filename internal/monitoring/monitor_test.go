package monitoring

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bistro/internal/database"
	"bistro/internal/session"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSessions struct{ stats session.Stats }

func (s staticSessions) Stats() session.Stats { return s.stats }

type staticOrders struct {
	stats database.Stats
	err   error
}

func (s staticOrders) Stats(context.Context) (database.Stats, error) { return s.stats, s.err }

func TestCollector_RecordsConversation(t *testing.T) {
	c := NewCollector()

	c.TurnProcessed("order_agent", "ordering", 20*time.Millisecond)
	c.TurnProcessed("order_agent", "ordering", 10*time.Millisecond)
	c.LLMFallback("menu_agent", "no_model")
	c.UpsellOffered()
	c.UpsellResponded(true)
	c.UpsellResponded(false)
	c.OrderCompleted("pickup", 31.29)
	c.OrderCancelled()
	c.InterventionTriggered("too_many_errors")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.turns.WithLabelValues("order_agent", "ordering")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.llmFallbacks.WithLabelValues("menu_agent", "no_model")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.upsellReplies.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.orders.WithLabelValues("pickup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cancellations))

	totals := c.Totals()
	assert.Equal(t, int64(2), totals.Turns)
	assert.Equal(t, int64(1), totals.UpsellsOffered)
	assert.Equal(t, int64(1), totals.UpsellsAccepted)
	assert.Equal(t, int64(1), totals.OrdersCompleted)
	assert.Equal(t, int64(1), totals.Interventions)
	assert.InDelta(t, 31.29, totals.CompletedRevenue, 0.001)
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.OrderCompleted("delivery", 20)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bistro_orders_completed_total{method="delivery"} 1`)
}

func TestMonitor_Snapshot(t *testing.T) {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := start
	m := NewMonitor(nil,
		WithSessions(staticSessions{stats: session.Stats{Active: 3, Capacity: 10}}),
		WithOrders(staticOrders{stats: database.Stats{Orders: 2, Revenue: decimal.RequireFromString("40.00")}}),
	)
	m.now = func() time.Time { return clock }
	m.startTime = start
	clock = start.Add(90 * time.Second)

	m.RecordMetric("test_metric", 42)
	m.Collector().TurnProcessed("router", "greeting", time.Millisecond)

	snap := m.Snapshot(context.Background())
	assert.Equal(t, 90.0, snap.UptimeSeconds)
	require.NotNil(t, snap.Sessions)
	assert.Equal(t, 3, snap.Sessions.Active)
	require.NotNil(t, snap.Orders)
	assert.Equal(t, 2, snap.Orders.Orders)
	assert.Equal(t, int64(1), snap.Conversation.Turns)
	assert.Equal(t, 42, snap.Metrics["test_metric"])
}

func TestMonitor_SnapshotSkipsFailingOrderStore(t *testing.T) {
	m := NewMonitor(nil, WithOrders(staticOrders{err: errors.New("db down")}))

	snap := m.Snapshot(context.Background())
	assert.Nil(t, snap.Orders)
	assert.Nil(t, snap.Sessions)
}

func TestMonitor_RecordEvaluationResult(t *testing.T) {
	m := NewMonitor(nil)

	m.RecordEvaluationResult("simple_order", 0.85, map[string]interface{}{"turns": 4})

	value, ok := m.GetMetric("evaluation_simple_order_score")
	require.True(t, ok)
	assert.Equal(t, 0.85, value)

	_, ok = m.GetMetric("evaluation_simple_order_last_evaluated")
	assert.True(t, ok)
	turns, _ := m.GetMetric("evaluation_simple_order_turns")
	assert.Equal(t, 4, turns)

	assert.Equal(t, 0.85, testutil.ToFloat64(m.Collector().evalScore.WithLabelValues("simple_order")))
}

func TestMonitor_Reset(t *testing.T) {
	m := NewMonitor(nil)
	m.RecordMetric("test_metric", 42)

	m.Reset()

	_, exists := m.GetMetric("test_metric")
	assert.False(t, exists)
	assert.Nil(t, m.Snapshot(context.Background()).Metrics)
}
