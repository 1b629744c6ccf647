package providers

import (
	"streamwatch/internal/structures"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTestRegistry(t *testing.T) {
	t.Helper()
	reg := prometheus.NewRegistry()
	prevRegisterer, prevGatherer := prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = prevRegisterer
		prometheus.DefaultGatherer = prevGatherer
	})
}

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: false},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	// Ensure no-op methods don't panic
	m.IncRequestsTotal("/test", 200)
	m.ObserveRequestDuration("/test", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.ObservePersistenceDuration(time.Millisecond)
	m.IncSamplesIngested("twitch", true)
	m.IncProducerFailures("youtube")
	m.ObservePollDuration("tiktok", time.Second)
	m.IncPeakUpdates()
	m.SetLiveChannels(3)
	m.SetTotalViewers(10)
}

func TestMetricsProvider_WhenEnabled(t *testing.T) {
	withTestRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf)
	_, ok := m.(*MetricsProvider)
	assert.True(t, ok, "should return MetricsProvider when enabled")
}

func TestMetricsProvider_IncrementCounters(t *testing.T) {
	withTestRegistry(t)

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf).(*MetricsProvider)

	m.IncRequestsTotal("/dashboard", 200)
	m.IncRequestsTotal("/dashboard", 201)
	m.IncRequestsTotal("/dashboard", 404)
	m.ObserveRequestDuration("/dashboard", 5*time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.ObservePersistenceDuration(100 * time.Millisecond)

	assert.Equal(t, float64(2), promtest.ToFloat64(m.requestsTotal.WithLabelValues("/dashboard", "2xx")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.requestsTotal.WithLabelValues("/dashboard", "4xx")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.cacheHits))
}

func TestMetricsProvider_DomainMetrics(t *testing.T) {
	withTestRegistry(t)

	m := NewMetricsProvider(&structures.Config{Metrics: structures.MetricsConfig{Enabled: true}}).(*MetricsProvider)

	m.IncSamplesIngested("twitch", true)
	m.IncSamplesIngested("twitch", false)
	m.IncSamplesIngested("twitch", true)
	m.IncProducerFailures("youtube")
	m.IncPeakUpdates()
	m.SetLiveChannels(4)
	m.SetTotalViewers(1200)
	m.SetLiveChannels(2)

	assert.Equal(t, float64(2), promtest.ToFloat64(m.samplesIngested.WithLabelValues("twitch", "live")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.samplesIngested.WithLabelValues("twitch", "offline")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.producerFailures.WithLabelValues("youtube")))
	assert.Equal(t, float64(1), promtest.ToFloat64(m.peakUpdates))
	assert.Equal(t, float64(2), promtest.ToFloat64(m.liveChannels))
	assert.Equal(t, float64(1200), promtest.ToFloat64(m.totalViewers))

	m.ObservePollDuration("twitch", time.Second)
	count, err := promtest.GatherAndCount(prometheus.DefaultGatherer, "streamwatch_poll_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}
