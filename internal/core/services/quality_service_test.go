package services

import (
	"testing"

	"voicelink/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQualityService_Classify(t *testing.T) {
	qs := NewQualityService()

	cases := []struct {
		name string
		m    domain.QualityMetrics
		want domain.ConnectionQuality
	}{
		{
			name: "all axes excellent",
			m:    domain.QualityMetrics{LatencyMs: 50, PacketLossRatio: 0.005, JitterMs: 10, AudioLevel: 0.5},
			want: domain.QualityExcellent,
		},
		{
			name: "excellent boundary values",
			m:    domain.QualityMetrics{LatencyMs: 100, PacketLossRatio: 0.01, JitterMs: 20, AudioLevel: 0.20},
			want: domain.QualityExcellent,
		},
		{
			name: "latency alone demotes to good",
			m:    domain.QualityMetrics{LatencyMs: 150, PacketLossRatio: 0.005, JitterMs: 10, AudioLevel: 0.5},
			want: domain.QualityGood,
		},
		{
			name: "jitter alone demotes to fair",
			m:    domain.QualityMetrics{LatencyMs: 50, PacketLossRatio: 0.005, JitterMs: 40, AudioLevel: 0.5},
			want: domain.QualityFair,
		},
		{
			name: "loss alone demotes to poor",
			m:    domain.QualityMetrics{LatencyMs: 50, PacketLossRatio: 0.20, JitterMs: 10, AudioLevel: 0.5},
			want: domain.QualityPoor,
		},
		{
			name: "low audio level demotes to fair",
			m:    domain.QualityMetrics{LatencyMs: 50, PacketLossRatio: 0.005, JitterMs: 10, AudioLevel: 0.07},
			want: domain.QualityFair,
		},
		{
			name: "unreported audio level is skipped",
			m:    domain.QualityMetrics{LatencyMs: 50, PacketLossRatio: 0.005, JitterMs: 10, AudioLevel: 0},
			want: domain.QualityExcellent,
		},
		{
			name: "everything degraded",
			m:    domain.QualityMetrics{LatencyMs: 900, PacketLossRatio: 0.30, JitterMs: 200, AudioLevel: 0.01},
			want: domain.QualityPoor,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, qs.Classify(tc.m))
		})
	}
}

func TestQualityService_AlertsHighPacketLoss(t *testing.T) {
	qs := NewQualityService()

	alerts := qs.Alerts(domain.QualityMetrics{PacketLossRatio: 0.20, LatencyMs: 50, AudioLevel: 0.5})
	require.Len(t, alerts, 2)
	assert.Equal(t, domain.AlertWarning, alerts[0].Kind)
	assert.Equal(t, domain.AlertSuggestion, alerts[1].Kind)
	assert.Equal(t, "packetLossRatio", alerts[0].TriggeringMetric)
}

func TestQualityService_AlertsPriorityOrder(t *testing.T) {
	qs := NewQualityService()

	// All three axes degraded, still exactly one warning + suggestion
	// and packet loss wins.
	alerts := qs.Alerts(domain.QualityMetrics{PacketLossRatio: 0.50, LatencyMs: 900, AudioLevel: 0.01})
	require.Len(t, alerts, 2)
	assert.Equal(t, "packetLossRatio", alerts[0].TriggeringMetric)

	// Latency beats audio.
	alerts = qs.Alerts(domain.QualityMetrics{PacketLossRatio: 0.01, LatencyMs: 900, AudioLevel: 0.01})
	require.Len(t, alerts, 2)
	assert.Equal(t, "latencyMs", alerts[0].TriggeringMetric)

	// Audio alone.
	alerts = qs.Alerts(domain.QualityMetrics{PacketLossRatio: 0.01, LatencyMs: 50, AudioLevel: 0.01})
	require.Len(t, alerts, 2)
	assert.Equal(t, "audioLevel", alerts[0].TriggeringMetric)
}

func TestQualityService_AlertsBoundaries(t *testing.T) {
	qs := NewQualityService()

	// Healthy metrics produce nothing.
	assert.Empty(t, qs.Alerts(domain.QualityMetrics{PacketLossRatio: 0.05, LatencyMs: 100, AudioLevel: 0.5}))

	// Loss threshold is inclusive.
	assert.Len(t, qs.Alerts(domain.QualityMetrics{PacketLossRatio: 0.10}), 2)

	// Latency threshold is exclusive.
	assert.Empty(t, qs.Alerts(domain.QualityMetrics{LatencyMs: 350}))
	assert.Len(t, qs.Alerts(domain.QualityMetrics{LatencyMs: 351}), 2)

	// An unmeasured audio level never alerts.
	assert.Empty(t, qs.Alerts(domain.QualityMetrics{AudioLevel: 0}))
}
