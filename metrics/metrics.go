// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// LLM call outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeMalformed = "malformed"
)

// LLM operations
const (
	OpGenerate = "generate"
	OpAnswer   = "answer"
)

// Metrics holds the service collectors on a private registry so that
// several instances (tests) never collide on the default registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	llmCalls           *prometheus.CounterVec
	quotaDenied        prometheus.Counter
	generationDuration prometheus.Histogram
	liveSubscribers    prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		llmCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "polls_llm_calls_total",
			Help: "LLM calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		quotaDenied: factory.NewCounter(prometheus.CounterOpts{
			Name: "polls_quota_denied_total",
			Help: "Calls rejected because the LLM call budget is spent",
		}),
		generationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "polls_generation_duration_seconds",
			Help:    "Wall time of a full survey generation, pacing included",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80},
		}),
		liveSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "polls_live_subscribers",
			Help: "Open live-update connections",
		}),
	}
}

// RegisterBudget exposes the remaining LLM call budget as a gauge
func (m *Metrics) RegisterBudget(remaining func() int) {
	if m == nil {
		return
	}
	promauto.With(m.registry).NewGaugeFunc(prometheus.GaugeOpts{
		Name: "polls_call_budget_remaining",
		Help: "LLM calls left before the process budget is spent",
	}, func() float64 { return float64(remaining()) })
}

func (m *Metrics) LLMCall(operation, outcome string) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) QuotaDenied() {
	if m == nil {
		return
	}
	m.quotaDenied.Inc()
}

func (m *Metrics) ObserveGeneration(d time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.Observe(d.Seconds())
}

func (m *Metrics) SubscriberConnected() {
	if m == nil {
		return
	}
	m.liveSubscribers.Inc()
}

func (m *Metrics) SubscriberDisconnected() {
	if m == nil {
		return
	}
	m.liveSubscribers.Dec()
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
