// Package monitoring keeps in-process request metrics and the savings
// ledger.
package monitoring

import (
	"log/slog"
	"sync"
	"time"
)

// EndpointStats accumulates calls to one endpoint. Times are in seconds.
type EndpointStats struct {
	Calls       int         `json:"calls"`
	TotalTime   float64     `json:"total_time"`
	AvgTime     float64     `json:"avg_time"`
	StatusCodes map[int]int `json:"status_codes"`
	LastCalled  time.Time   `json:"last_called"`
}

// PerformanceReport is a point-in-time copy of all endpoint stats.
type PerformanceReport struct {
	Endpoints   map[string]EndpointStats `json:"endpoints"`
	TotalCalls  int                      `json:"total_calls"`
	GeneratedAt time.Time                `json:"generated_at"`
}

// Metrics records per-endpoint latency and status codes for the lifetime of
// the process. Entries are never evicted.
type Metrics struct {
	mu        sync.Mutex
	endpoints map[string]*EndpointStats
	logger    *slog.Logger
	now       func() time.Time
}

// NewMetrics creates an empty metrics log.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		endpoints: make(map[string]*EndpointStats),
		logger:    logger,
		now:       time.Now,
	}
}

// Record adds one completed call.
func (m *Metrics) Record(endpoint, method string, elapsed time.Duration, status int) {
	m.mu.Lock()
	stats, ok := m.endpoints[endpoint]
	if !ok {
		stats = &EndpointStats{StatusCodes: make(map[int]int)}
		m.endpoints[endpoint] = stats
	}
	stats.Calls++
	stats.TotalTime += elapsed.Seconds()
	stats.AvgTime = stats.TotalTime / float64(stats.Calls)
	stats.StatusCodes[status]++
	stats.LastCalled = m.now().UTC()
	m.mu.Unlock()

	m.logger.Info("api performance",
		"method", method,
		"endpoint", endpoint,
		"duration", elapsed,
		"status", status,
	)
}

// Report returns a snapshot; later calls to Record do not change it.
func (m *Metrics) Report() PerformanceReport {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := PerformanceReport{
		Endpoints:   make(map[string]EndpointStats, len(m.endpoints)),
		GeneratedAt: m.now().UTC(),
	}
	for name, stats := range m.endpoints {
		copied := *stats
		copied.StatusCodes = make(map[int]int, len(stats.StatusCodes))
		for code, n := range stats.StatusCodes {
			copied.StatusCodes[code] = n
		}
		report.Endpoints[name] = copied
		report.TotalCalls += stats.Calls
	}
	return report
}
