package monitoring

import (
	"context"
	"sync"
	"time"

	"bistro/internal/database"
	"bistro/internal/session"

	"go.uber.org/zap"
)

// SessionSource reports on live conversations
type SessionSource interface {
	Stats() session.Stats
}

// OrderSource reports on persisted orders
type OrderSource interface {
	Stats(ctx context.Context) (database.Stats, error)
}

// Snapshot is the JSON view of the running service
type Snapshot struct {
	UptimeSeconds float64                `json:"uptime_seconds"`
	Sessions      *session.Stats         `json:"sessions,omitempty"`
	Orders        *database.Stats        `json:"orders,omitempty"`
	Conversation  Totals                 `json:"conversation"`
	Metrics       map[string]interface{} `json:"metrics,omitempty"`
}

// Monitor assembles a snapshot from the collector and the stores
type Monitor struct {
	collector *Collector
	sessions  SessionSource
	orders    OrderSource
	logger    *zap.Logger

	metrics      map[string]interface{}
	metricsMutex sync.RWMutex
	startTime    time.Time
	now          func() time.Time
}

// MonitorOption configures a Monitor
type MonitorOption func(*Monitor)

// WithSessions adds the session store to the snapshot
func WithSessions(src SessionSource) MonitorOption {
	return func(m *Monitor) { m.sessions = src }
}

// WithOrders adds the order store to the snapshot
func WithOrders(src OrderSource) MonitorOption {
	return func(m *Monitor) { m.orders = src }
}

// WithMonitorLogger sets the logger
func WithMonitorLogger(logger *zap.Logger) MonitorOption {
	return func(m *Monitor) { m.logger = logger }
}

// NewMonitor creates a new monitoring instance. A nil collector gets a fresh one.
func NewMonitor(collector *Collector, opts ...MonitorOption) *Monitor {
	if collector == nil {
		collector = NewCollector()
	}
	m := &Monitor{
		collector: collector,
		logger:    zap.NewNop(),
		metrics:   make(map[string]interface{}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.startTime = m.now()
	m.logger = m.logger.With(zap.String("component", "monitor"))
	return m
}

// Collector returns the prometheus collector behind the monitor
func (m *Monitor) Collector() *Collector {
	return m.collector
}

// RecordMetric records a free form metric value
func (m *Monitor) RecordMetric(name string, value interface{}) {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics[name] = value
}

// GetMetric returns a specific metric value
func (m *Monitor) GetMetric(name string) (interface{}, bool) {
	m.metricsMutex.RLock()
	defer m.metricsMutex.RUnlock()
	value, exists := m.metrics[name]
	return value, exists
}

// RecordEvaluationResult stores the outcome of an evaluation scenario and
// publishes its score
func (m *Monitor) RecordEvaluationResult(scenario string, score float64, details map[string]interface{}) {
	m.collector.EvaluationScored(scenario, score)

	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()

	prefix := "evaluation_" + scenario + "_"
	m.metrics[prefix+"score"] = score
	for k, v := range details {
		m.metrics[prefix+k] = v
	}
	m.metrics[prefix+"last_evaluated"] = m.now().Format(time.RFC3339)
}

// Reset clears the free form metrics
func (m *Monitor) Reset() {
	m.metricsMutex.Lock()
	defer m.metricsMutex.Unlock()
	m.metrics = make(map[string]interface{})
}

// Snapshot gathers the current state. A failing order store is logged and left out.
func (m *Monitor) Snapshot(ctx context.Context) Snapshot {
	snap := Snapshot{
		UptimeSeconds: m.now().Sub(m.startTime).Seconds(),
		Conversation:  m.collector.Totals(),
	}

	if m.sessions != nil {
		stats := m.sessions.Stats()
		snap.Sessions = &stats
	}
	if m.orders != nil {
		stats, err := m.orders.Stats(ctx)
		if err != nil {
			m.logger.Warn("order stats unavailable", zap.Error(err))
		} else {
			snap.Orders = &stats
		}
	}

	m.metricsMutex.RLock()
	if len(m.metrics) > 0 {
		snap.Metrics = make(map[string]interface{}, len(m.metrics))
		for k, v := range m.metrics {
			snap.Metrics[k] = v
		}
	}
	m.metricsMutex.RUnlock()

	return snap
}
