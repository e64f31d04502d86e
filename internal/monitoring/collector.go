package monitoring

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"bistro/internal/agents"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bistro"

var _ agents.MetricsRecorder = (*Collector)(nil)

// Collector records conversation telemetry in a private prometheus registry
type Collector struct {
	registry *prometheus.Registry

	turns         *prometheus.CounterVec
	turnDuration  *prometheus.HistogramVec
	llmFallbacks  *prometheus.CounterVec
	upsellOffers  prometheus.Counter
	upsellReplies *prometheus.CounterVec
	orders        *prometheus.CounterVec
	orderValue    prometheus.Histogram
	cancellations prometheus.Counter
	interventions *prometheus.CounterVec
	evalScore     *prometheus.GaugeVec

	mu     sync.Mutex
	totals Totals
}

// Totals are the running counts shown in the JSON monitor
type Totals struct {
	Turns            int64   `json:"turns"`
	LLMFallbacks     int64   `json:"llm_fallbacks"`
	UpsellsOffered   int64   `json:"upsells_offered"`
	UpsellsAccepted  int64   `json:"upsells_accepted"`
	OrdersCompleted  int64   `json:"orders_completed"`
	OrdersCancelled  int64   `json:"orders_cancelled"`
	Interventions    int64   `json:"interventions"`
	CompletedRevenue float64 `json:"completed_revenue"`
}

// NewCollector creates the collector and registers its metrics
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Conversation turns handled",
			},
			[]string{"agent", "stage"},
		),
		turnDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "turn_duration_seconds",
				Help:      "Time taken to answer a turn",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
			},
			[]string{"agent"},
		),
		llmFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_fallbacks_total",
				Help:      "Model calls replaced by a fallback answer",
			},
			[]string{"agent", "reason"},
		),
		upsellOffers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upsells_offered_total",
			Help:      "Upsell suggestions presented",
		}),
		upsellReplies: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upsell_responses_total",
				Help:      "Customer answers to upsell suggestions",
			},
			[]string{"accepted"},
		),
		orders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "orders_completed_total",
				Help:      "Orders confirmed",
			},
			[]string{"method"},
		),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "order_value_dollars",
			Help:      "Total of confirmed orders",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}),
		cancellations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_cancelled_total",
			Help:      "Orders cancelled by the customer",
		}),
		interventions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "interventions_total",
				Help:      "Conversations handed to a human",
			},
			[]string{"reason"},
		),
		evalScore: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "evaluation_score",
				Help:      "Score of the last evaluation run per scenario",
			},
			[]string{"scenario"},
		),
	}

	c.registry.MustRegister(
		c.turns,
		c.turnDuration,
		c.llmFallbacks,
		c.upsellOffers,
		c.upsellReplies,
		c.orders,
		c.orderValue,
		c.cancellations,
		c.interventions,
		c.evalScore,
	)
	return c
}

// Registry exposes the underlying registry so other collectors can join it
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) TurnProcessed(agent, stage string, duration time.Duration) {
	c.turns.WithLabelValues(agent, stage).Inc()
	c.turnDuration.WithLabelValues(agent).Observe(duration.Seconds())
	c.update(func(t *Totals) { t.Turns++ })
}

func (c *Collector) LLMFallback(agent, reason string) {
	c.llmFallbacks.WithLabelValues(agent, reason).Inc()
	c.update(func(t *Totals) { t.LLMFallbacks++ })
}

func (c *Collector) UpsellOffered() {
	c.upsellOffers.Inc()
	c.update(func(t *Totals) { t.UpsellsOffered++ })
}

func (c *Collector) UpsellResponded(accepted bool) {
	c.upsellReplies.WithLabelValues(strconv.FormatBool(accepted)).Inc()
	if accepted {
		c.update(func(t *Totals) { t.UpsellsAccepted++ })
	}
}

func (c *Collector) OrderCompleted(method string, total float64) {
	c.orders.WithLabelValues(method).Inc()
	c.orderValue.Observe(total)
	c.update(func(t *Totals) {
		t.OrdersCompleted++
		t.CompletedRevenue += total
	})
}

func (c *Collector) OrderCancelled() {
	c.cancellations.Inc()
	c.update(func(t *Totals) { t.OrdersCancelled++ })
}

func (c *Collector) InterventionTriggered(reason string) {
	c.interventions.WithLabelValues(reason).Inc()
	c.update(func(t *Totals) { t.Interventions++ })
}

// EvaluationScored publishes the score of an evaluation scenario
func (c *Collector) EvaluationScored(scenario string, score float64) {
	c.evalScore.WithLabelValues(scenario).Set(score)
}

// Totals returns a copy of the running counts
func (c *Collector) Totals() Totals {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals
}

func (c *Collector) update(fn func(*Totals)) {
	c.mu.Lock()
	fn(&c.totals)
	c.mu.Unlock()
}
