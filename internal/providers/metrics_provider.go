package providers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"streamwatch/internal/structures"
	"time"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	ObservePersistenceDuration(duration time.Duration)
	IncSamplesIngested(platform string, live bool)
	IncProducerFailures(platform string)
	ObservePollDuration(platform string, duration time.Duration)
	IncPeakUpdates()
	SetLiveChannels(count int)
	SetTotalViewers(count int)
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	cacheHits           prometheus.Counter
	cacheMisses         prometheus.Counter
	persistenceDuration prometheus.Histogram
	samplesIngested     *prometheus.CounterVec
	producerFailures    *prometheus.CounterVec
	pollDuration        *prometheus.HistogramVec
	peakUpdates         prometheus.Counter
	liveChannels        prometheus.Gauge
	totalViewers        prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncSamplesIngested(platform string, live bool) {
	state := "offline"
	if live {
		state = "live"
	}
	m.samplesIngested.WithLabelValues(platform, state).Inc()
}

func (m *MetricsProvider) IncProducerFailures(platform string) {
	m.producerFailures.WithLabelValues(platform).Inc()
}

func (m *MetricsProvider) ObservePollDuration(platform string, duration time.Duration) {
	m.pollDuration.WithLabelValues(platform).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncPeakUpdates() {
	m.peakUpdates.Inc()
}

func (m *MetricsProvider) SetLiveChannels(count int) {
	m.liveChannels.Set(float64(count))
}

func (m *MetricsProvider) SetTotalViewers(count int) {
	m.totalViewers.Set(float64(count))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamwatch_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamwatch_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamwatch_cache_hits_total",
			Help: "Total number of cache hits",
		}),
		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamwatch_cache_misses_total",
			Help: "Total number of cache misses",
		}),
		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "streamwatch_persistence_duration_seconds",
			Help:    "Duration of snapshot persistence in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		samplesIngested: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamwatch_samples_ingested_total",
			Help: "Total number of viewer samples written to the store",
		}, []string{"platform", "state"}),
		producerFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "streamwatch_producer_failures_total",
			Help: "Total number of failed platform lookups",
		}, []string{"platform"}),
		pollDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "streamwatch_poll_duration_seconds",
			Help:    "Duration of one producer poll round in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"platform"}),
		peakUpdates: promauto.NewCounter(prometheus.CounterOpts{
			Name: "streamwatch_peak_updates_total",
			Help: "Total number of channel peak updates persisted",
		}),
		liveChannels: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamwatch_live_channels",
			Help: "Number of channels whose latest sample is live",
		}),
		totalViewers: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "streamwatch_total_viewers",
			Help: "Sum of viewers over live channels",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncSamplesIngested(_ string, _ bool)              {}
func (n *noopMetrics) IncProducerFailures(_ string)                     {}
func (n *noopMetrics) ObservePollDuration(_ string, _ time.Duration)    {}
func (n *noopMetrics) IncPeakUpdates()                                  {}
func (n *noopMetrics) SetLiveChannels(_ int)                            {}
func (n *noopMetrics) SetTotalViewers(_ int)                            {}
