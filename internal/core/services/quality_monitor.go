package services

import (
	"context"
	"sync"
	"time"

	"voicelink/internal/core/domain"
	"voicelink/internal/core/ports"

	"go.uber.org/zap"
)

// QualityMonitor samples every registered media transport on a fixed
// interval, recomputes the combined metrics from scratch each tick and
// publishes them with the derived alerts.
//
// Cleanup releases all transport registrations and invalidates the
// timer generation, so a tick racing with teardown can never sample a
// released transport handle.
type QualityMonitor struct {
	quality  *QualityService
	interval time.Duration
	logger   *zap.SugaredLogger

	mu         sync.Mutex
	transports map[string]ports.StatsSource
	metrics    domain.QualityMetrics
	alerts     []domain.Alert
	observers  []ports.QualityObserver
	ticker     *time.Ticker
	stop       chan struct{}
	generation uint64
}

func NewQualityMonitor(quality *QualityService, interval time.Duration, logger *zap.SugaredLogger) *QualityMonitor {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &QualityMonitor{
		quality:    quality,
		interval:   interval,
		logger:     logger,
		transports: make(map[string]ports.StatsSource),
		metrics:    domain.QualityMetrics{Quality: domain.QualityUnknown},
	}
}

// AddObserver registers a per-tick observer; register before starting.
func (m *QualityMonitor) AddObserver(o ports.QualityObserver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, o)
}

// RegisterTransport subscribes one media transport for sampling.
func (m *QualityMonitor) RegisterTransport(src ports.StatsSource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transports[src.ID()] = src
}

// UnregisterTransport drops one transport from the sampling set.
func (m *QualityMonitor) UnregisterTransport(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.transports, id)
}

// StartMonitoring activates the sampling timer. No-op while running.
func (m *QualityMonitor) StartMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ticker != nil {
		return
	}
	m.generation++
	gen := m.generation
	m.ticker = time.NewTicker(m.interval)
	m.stop = make(chan struct{})
	go m.run(gen, m.ticker, m.stop)
}

// StopMonitoring halts the timer without touching metrics or the
// transport set.
func (m *QualityMonitor) StopMonitoring() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

// Cleanup stops monitoring and releases every transport subscription.
// Must be called when the owning session ends.
func (m *QualityMonitor) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
	m.transports = make(map[string]ports.StatsSource)
}

// ResetStats zeroes the metrics back to the unknown baseline without
// stopping the timer.
func (m *QualityMonitor) ResetStats() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = domain.QualityMetrics{Quality: domain.QualityUnknown}
	m.alerts = nil
}

// Metrics returns the last computed metrics and alerts.
func (m *QualityMonitor) Metrics() (domain.QualityMetrics, []domain.Alert) {
	m.mu.Lock()
	defer m.mu.Unlock()
	alerts := make([]domain.Alert, len(m.alerts))
	copy(alerts, m.alerts)
	return m.metrics, alerts
}

func (m *QualityMonitor) stopLocked() {
	if m.ticker == nil {
		return
	}
	m.generation++
	m.ticker.Stop()
	close(m.stop)
	m.ticker = nil
	m.stop = nil
}

func (m *QualityMonitor) run(gen uint64, ticker *time.Ticker, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			m.Tick(gen)
		}
	}
}

// Tick performs one sampling pass. Exposed for deterministic tests; the
// generation fences ticks that raced with StopMonitoring or Cleanup.
func (m *QualityMonitor) Tick(gen uint64) {
	m.mu.Lock()
	if gen != 0 && gen != m.generation {
		m.mu.Unlock()
		return
	}
	sources := make([]ports.StatsSource, 0, len(m.transports))
	for _, src := range m.transports {
		sources = append(sources, src)
	}
	m.mu.Unlock()

	if len(sources) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.interval)
	samples := make([]domain.TransportSample, 0, len(sources))
	for _, src := range sources {
		sample, err := src.Sample(ctx)
		if err != nil {
			m.logger.Debugw("transport sample failed", "transport", src.ID(), "error", err)
			continue
		}
		samples = append(samples, sample)
	}
	cancel()

	if len(samples) == 0 {
		return
	}

	metrics := m.aggregate(samples)
	metrics.Quality = m.quality.Classify(metrics)
	alerts := m.quality.Alerts(metrics)

	m.mu.Lock()
	if gen != 0 && gen != m.generation {
		m.mu.Unlock()
		return
	}
	// Full replace, never merge, so a stale reading cannot mask a
	// fresh degradation.
	m.metrics = metrics
	m.alerts = alerts
	observers := make([]ports.QualityObserver, len(m.observers))
	copy(observers, m.observers)
	m.mu.Unlock()

	for _, o := range observers {
		o.OnQualityTick(metrics, alerts)
	}
}

// aggregate combines per-transport samples: loss across all expected
// packets, worst-case round-trip time, mean jitter and audio level,
// summed bandwidth.
func (m *QualityMonitor) aggregate(samples []domain.TransportSample) domain.QualityMetrics {
	var (
		totalLost     uint64
		totalReceived uint64
		maxRTT        time.Duration
		jitterSum     time.Duration
		bandwidth     int
		levelSum      float64
		levelCount    int
	)

	for _, s := range samples {
		totalLost += s.PacketsLost
		totalReceived += s.PacketsReceived
		if s.RoundTripTime > maxRTT {
			maxRTT = s.RoundTripTime
		}
		jitterSum += s.Jitter
		bandwidth += s.OutgoingBitrate
		if s.AudioLevel > 0 {
			levelSum += s.AudioLevel
			levelCount++
		}
	}

	metrics := domain.QualityMetrics{
		Timestamp:    time.Now(),
		LatencyMs:    float64(maxRTT.Milliseconds()),
		JitterMs:     float64(jitterSum.Milliseconds()) / float64(len(samples)),
		BandwidthBps: bandwidth,
	}
	if expected := totalLost + totalReceived; expected > 0 {
		metrics.PacketLossRatio = float64(totalLost) / float64(expected)
	}
	if levelCount > 0 {
		metrics.AudioLevel = levelSum / float64(levelCount)
	}
	return metrics
}
