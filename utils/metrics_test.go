package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveSwipe("right")
	m.ObserveSwipe("right")
	m.ObserveSwipe("left")
	m.ObservePersona(false)
	m.ObservePersona(true)
	m.ObserveImageFailures("statement", 3)
	m.ObserveImageFailures("statement", 0)
	m.ObserveStale()
	m.ObserveStepFailure("statements")
	m.ObserveGeneration("bento", time.Now(), errors.New("x"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.swipes.WithLabelValues("right")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.personas.WithLabelValues("refined")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.imageFailures.WithLabelValues("statement")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.generation))

	totals := m.GetMetrics()
	assert.Equal(t, int64(3), totals["swipes"])
	assert.Equal(t, int64(2), totals["personas"])
	assert.Equal(t, int64(3), totals["image_failures"])
	assert.Equal(t, int64(1), totals["stale_discards"])
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveSwipe("down")
	m.ObservePersona(true)
	m.ObserveGeneration("chat", time.Now(), nil)
	assert.Empty(t, m.GetMetrics())
}

func TestSetVersion(t *testing.T) {
	prev := GetVersion()
	t.Cleanup(func() { current = prev })

	SetVersion("1.2.3", "main", "abc123", "2026-01-01", "")
	v := GetVersion()
	assert.Equal(t, "1.2.3", v.Version)
	assert.Equal(t, "abc123", v.Commit)
	assert.Equal(t, prev.Arch, v.Arch)
}
