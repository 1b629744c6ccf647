package testutil

import (
	"streamwatch/internal/providers"
	"streamwatch/internal/structures"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// Count returns how many entries were logged at level.
func (m *MockLogger) Count(level string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.Logs {
		if e.Level == level {
			n++
		}
	}
	return n
}

// MockCache implements providers.CacheProviderInterface and
// providers.TTLCacheProviderInterface. Expiry is not simulated.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
	TTLs map[string]time.Duration
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte), TTLs: make(map[string]time.Duration)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) SetWithTTL(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
	m.TTLs[key] = ttl
}

func (m *MockCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data = make(map[string][]byte)
	m.TTLs = make(map[string]time.Duration)
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Close() {}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu               sync.Mutex
	Requests         int
	CacheHits        int
	CacheMisses      int
	Persisted        int
	Ingested         map[string]int
	ProducerFailures map[string]int
	Polls            map[string]int
	PeakUpdates      int
	LiveChannels     int
	TotalViewers     int
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) ObservePersistenceDuration(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Persisted++
}

func (m *MockMetrics) IncSamplesIngested(platform string, _ bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Ingested == nil {
		m.Ingested = make(map[string]int)
	}
	m.Ingested[platform]++
}

func (m *MockMetrics) IncProducerFailures(platform string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ProducerFailures == nil {
		m.ProducerFailures = make(map[string]int)
	}
	m.ProducerFailures[platform]++
}

func (m *MockMetrics) ObservePollDuration(platform string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Polls == nil {
		m.Polls = make(map[string]int)
	}
	m.Polls[platform]++
}

func (m *MockMetrics) IncPeakUpdates() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PeakUpdates++
}

func (m *MockMetrics) SetLiveChannels(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LiveChannels = count
}

func (m *MockMetrics) SetTotalViewers(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.TotalViewers = count
}

func (m *MockMetrics) Gauges() (liveChannels, totalViewers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LiveChannels, m.TotalViewers
}

func (m *MockMetrics) FailuresFor(platform string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ProducerFailures[platform]
}

// NewTestConfig returns a config that passes validation and uses the
// memory store.
func NewTestConfig() *structures.Config {
	return &structures.Config{
		AppName:   "StreamWatch",
		WebServer: structures.Server{Host: "127.0.0.1", Port: 8090},
		Storage:   structures.StorageConfig{Driver: "memory"},
		Persistence: structures.Persistence{
			FilePath:     "/tmp/streamwatch.dat",
			SaveInterval: time.Minute,
		},
		Logger:    structures.LoggerConfig{Level: "info", Mode: 0644, Dir: "/tmp"},
		Cache:     structures.CacheConfig{Enabled: true, Size: 1, Ttl: 5 * time.Second},
		Dashboard: structures.DashboardConfig{Timezone: "UTC", DefaultWindowHours: 1},
		Producers: structures.ProducersConfig{
			Interval:   time.Minute,
			CacheSize:  1,
			LiveTTL:    time.Minute,
			ResolveTTL: 2 * time.Minute,
		},
	}
}
