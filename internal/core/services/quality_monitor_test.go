package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voicelink/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeStatsSource struct {
	id string

	mu     sync.Mutex
	sample domain.TransportSample
	err    error
	calls  int
}

func (f *fakeStatsSource) ID() string { return f.id }

func (f *fakeStatsSource) Sample(ctx context.Context) (domain.TransportSample, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.sample, f.err
}

func (f *fakeStatsSource) set(sample domain.TransportSample) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sample = sample
}

func (f *fakeStatsSource) sampleCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestMonitor() *QualityMonitor {
	return NewQualityMonitor(NewQualityService(), time.Second, zap.NewNop().Sugar())
}

func TestQualityMonitor_TickComputesMetrics(t *testing.T) {
	m := newTestMonitor()
	src := &fakeStatsSource{id: "t1", sample: domain.TransportSample{
		PacketsReceived: 95,
		PacketsLost:     5,
		RoundTripTime:   120 * time.Millisecond,
		Jitter:          15 * time.Millisecond,
		OutgoingBitrate: 64000,
		AudioLevel:      0.4,
	}}
	m.RegisterTransport(src)

	m.Tick(0)

	metrics, alerts := m.Metrics()
	assert.InDelta(t, 0.05, metrics.PacketLossRatio, 1e-9)
	assert.Equal(t, float64(120), metrics.LatencyMs)
	assert.Equal(t, float64(15), metrics.JitterMs)
	assert.Equal(t, 64000, metrics.BandwidthBps)
	assert.Equal(t, domain.QualityFair, metrics.Quality)
	assert.Empty(t, alerts)
}

func TestQualityMonitor_AggregatesAcrossTransports(t *testing.T) {
	m := newTestMonitor()
	m.RegisterTransport(&fakeStatsSource{id: "t1", sample: domain.TransportSample{
		PacketsReceived: 90,
		PacketsLost:     10,
		RoundTripTime:   80 * time.Millisecond,
		Jitter:          10 * time.Millisecond,
		OutgoingBitrate: 32000,
		AudioLevel:      0.2,
	}})
	m.RegisterTransport(&fakeStatsSource{id: "t2", sample: domain.TransportSample{
		PacketsReceived: 100,
		PacketsLost:     0,
		RoundTripTime:   150 * time.Millisecond,
		Jitter:          30 * time.Millisecond,
		OutgoingBitrate: 32000,
		AudioLevel:      0.4,
	}})

	m.Tick(0)
	metrics, _ := m.Metrics()

	// Loss is recomputed over all expected packets, not averaged.
	assert.InDelta(t, 10.0/200.0, metrics.PacketLossRatio, 1e-9)
	// Latency is the worst transport.
	assert.Equal(t, float64(150), metrics.LatencyMs)
	// Jitter and audio level are means, bandwidth a sum.
	assert.Equal(t, float64(20), metrics.JitterMs)
	assert.InDelta(t, 0.3, metrics.AudioLevel, 1e-9)
	assert.Equal(t, 64000, metrics.BandwidthBps)
}

func TestQualityMonitor_HighLossProducesAlertPair(t *testing.T) {
	m := newTestMonitor()
	m.RegisterTransport(&fakeStatsSource{id: "t1", sample: domain.TransportSample{
		PacketsReceived: 80,
		PacketsLost:     20,
		RoundTripTime:   50 * time.Millisecond,
		AudioLevel:      0.5,
	}})

	m.Tick(0)
	metrics, alerts := m.Metrics()

	assert.Equal(t, domain.QualityPoor, metrics.Quality)
	require.Len(t, alerts, 2)
	assert.Equal(t, domain.AlertWarning, alerts[0].Kind)
	assert.Equal(t, domain.AlertSuggestion, alerts[1].Kind)
}

func TestQualityMonitor_AlertsClearOnRecovery(t *testing.T) {
	m := newTestMonitor()
	src := &fakeStatsSource{id: "t1", sample: domain.TransportSample{
		PacketsReceived: 80,
		PacketsLost:     20,
		AudioLevel:      0.5,
	}}
	m.RegisterTransport(src)

	m.Tick(0)
	_, alerts := m.Metrics()
	require.Len(t, alerts, 2)

	src.set(domain.TransportSample{PacketsReceived: 100, AudioLevel: 0.5})
	m.Tick(0)
	metrics, alerts := m.Metrics()
	assert.Empty(t, alerts, "alerts are regenerated per tick, never carried over")
	assert.Equal(t, domain.QualityExcellent, metrics.Quality)
}

func TestQualityMonitor_FailedSourceSkipped(t *testing.T) {
	m := newTestMonitor()
	m.RegisterTransport(&fakeStatsSource{id: "bad", err: errors.New("stats unavailable")})
	m.RegisterTransport(&fakeStatsSource{id: "good", sample: domain.TransportSample{
		PacketsReceived: 100,
		RoundTripTime:   60 * time.Millisecond,
		AudioLevel:      0.5,
	}})

	m.Tick(0)
	metrics, _ := m.Metrics()
	assert.Equal(t, domain.QualityExcellent, metrics.Quality)
}

func TestQualityMonitor_NoTransportsKeepsBaseline(t *testing.T) {
	m := newTestMonitor()
	m.Tick(0)

	metrics, alerts := m.Metrics()
	assert.Equal(t, domain.QualityUnknown, metrics.Quality)
	assert.Empty(t, alerts)
}

func TestQualityMonitor_ResetStats(t *testing.T) {
	m := newTestMonitor()
	m.RegisterTransport(&fakeStatsSource{id: "t1", sample: domain.TransportSample{
		PacketsReceived: 80,
		PacketsLost:     20,
	}})

	m.Tick(0)
	metrics, _ := m.Metrics()
	require.Equal(t, domain.QualityPoor, metrics.Quality)

	m.ResetStats()
	metrics, alerts := m.Metrics()
	assert.Equal(t, domain.QualityUnknown, metrics.Quality)
	assert.Zero(t, metrics.PacketLossRatio)
	assert.Empty(t, alerts)
}

func TestQualityMonitor_StaleGenerationFenced(t *testing.T) {
	m := newTestMonitor()
	m.RegisterTransport(&fakeStatsSource{id: "t1", sample: domain.TransportSample{
		PacketsReceived: 80,
		PacketsLost:     20,
	}})

	m.StartMonitoring()
	m.mu.Lock()
	gen := m.generation
	m.mu.Unlock()
	m.StopMonitoring()

	// A tick that raced with the stop must not publish.
	m.Tick(gen)
	metrics, _ := m.Metrics()
	assert.Equal(t, domain.QualityUnknown, metrics.Quality)
}

func TestQualityMonitor_CleanupReleasesTransports(t *testing.T) {
	m := newTestMonitor()
	src := &fakeStatsSource{id: "t1", sample: domain.TransportSample{PacketsReceived: 100}}
	m.RegisterTransport(src)
	m.StartMonitoring()

	m.Cleanup()
	calls := src.sampleCalls()

	m.Tick(0)
	assert.Equal(t, calls, src.sampleCalls(), "released transport must never be sampled again")
}

func TestQualityMonitor_UnregisterTransport(t *testing.T) {
	m := newTestMonitor()
	src := &fakeStatsSource{id: "t1", sample: domain.TransportSample{PacketsReceived: 100}}
	m.RegisterTransport(src)
	m.UnregisterTransport("t1")

	m.Tick(0)
	assert.Equal(t, 0, src.sampleCalls())
}

func TestQualityMonitor_PeriodicTicks(t *testing.T) {
	m := NewQualityMonitor(NewQualityService(), 10*time.Millisecond, zap.NewNop().Sugar())
	src := &fakeStatsSource{id: "t1", sample: domain.TransportSample{PacketsReceived: 100, AudioLevel: 0.5}}
	m.RegisterTransport(src)

	m.StartMonitoring()
	defer m.Cleanup()

	require.Eventually(t, func() bool {
		return src.sampleCalls() >= 2
	}, time.Second, 5*time.Millisecond)

	metrics, _ := m.Metrics()
	assert.Equal(t, domain.QualityExcellent, metrics.Quality)
}
