package utils

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for assessment activity and keeps
// running totals for the status endpoint. A nil *Metrics discards everything.
type Metrics struct {
	swipes        *prometheus.CounterVec
	personas      *prometheus.CounterVec
	imageFailures *prometheus.CounterVec
	stepFailures  *prometheus.CounterVec
	staleDiscards prometheus.Counter
	generation    *prometheus.HistogramVec

	swipesTotal        int64
	personasTotal      int64
	imageFailuresTotal int64
	stepFailuresTotal  int64
	staleTotal         int64
}

// NewMetrics registers the collectors with reg. Registration errors panic,
// matching promauto.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		swipes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "assessment",
			Name:      "swipes_total",
			Help:      "Accepted swipes by direction.",
		}, []string{"direction"}),
		personas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "assessment",
			Name:      "personas_synthesized_total",
			Help:      "Personas written to the roster, new or refined.",
		}, []string{"kind"}),
		imageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "generation",
			Name:      "image_failures_total",
			Help:      "Image generations that failed and were skipped.",
		}, []string{"kind"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "assessment",
			Name:      "step_failures_total",
			Help:      "Wizard steps that moved the session into the failed state.",
		}, []string{"step"}),
		staleDiscards: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pulse",
			Subsystem: "assessment",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because the session started over.",
		}),
		generation: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pulse",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "Model call latency by operation.",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 90},
		}, []string{"operation", "status"}),
	}
	reg.MustRegister(m.swipes, m.personas, m.imageFailures, m.stepFailures, m.staleDiscards, m.generation)
	return m
}

func (m *Metrics) ObserveSwipe(direction string) {
	if m == nil {
		return
	}
	m.swipes.WithLabelValues(direction).Inc()
	atomic.AddInt64(&m.swipesTotal, 1)
}

func (m *Metrics) ObservePersona(replaced bool) {
	if m == nil {
		return
	}
	kind := "new"
	if replaced {
		kind = "refined"
	}
	m.personas.WithLabelValues(kind).Inc()
	atomic.AddInt64(&m.personasTotal, 1)
}

func (m *Metrics) ObserveImageFailures(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.imageFailures.WithLabelValues(kind).Add(float64(n))
	atomic.AddInt64(&m.imageFailuresTotal, int64(n))
}

func (m *Metrics) ObserveStepFailure(step string) {
	if m == nil {
		return
	}
	m.stepFailures.WithLabelValues(step).Inc()
	atomic.AddInt64(&m.stepFailuresTotal, 1)
}

func (m *Metrics) ObserveStale() {
	if m == nil {
		return
	}
	m.staleDiscards.Inc()
	atomic.AddInt64(&m.staleTotal, 1)
}

// ObserveGeneration records the latency of a model call started at start.
func (m *Metrics) ObserveGeneration(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.generation.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
}

// GetMetrics returns the running totals as a map.
func (m *Metrics) GetMetrics() map[string]interface{} {
	if m == nil {
		return map[string]interface{}{}
	}
	return map[string]interface{}{
		"swipes":         atomic.LoadInt64(&m.swipesTotal),
		"personas":       atomic.LoadInt64(&m.personasTotal),
		"image_failures": atomic.LoadInt64(&m.imageFailuresTotal),
		"step_failures":  atomic.LoadInt64(&m.stepFailuresTotal),
		"stale_discards": atomic.LoadInt64(&m.staleTotal),
	}
}
