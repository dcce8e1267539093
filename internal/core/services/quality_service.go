package services

import (
	"time"

	"voicelink/internal/core/domain"
)

// AxisThresholds bounds one quality band on every metric axis.
type AxisThresholds struct {
	Latency    time.Duration
	PacketLoss float64
	Jitter     time.Duration
	AudioLevel float64 // minimum acceptable level, 0..1
}

// Alert trigger points. Crossing any of these produces exactly one
// warning (plus one suggestion) per monitoring tick.
const (
	alertPacketLoss = 0.10
	alertLatency    = 350 * time.Millisecond
	alertAudioLevel = 0.05
)

// QualityService classifies combined transport metrics into the
// overall connection-quality bucket. The worst single axis determines
// the bucket; one badly degraded dimension is never masked by the
// others.
type QualityService struct {
	thresholds map[domain.ConnectionQuality]AxisThresholds
}

func NewQualityService() *QualityService {
	return &QualityService{
		thresholds: map[domain.ConnectionQuality]AxisThresholds{
			domain.QualityExcellent: {
				Latency:    100 * time.Millisecond,
				PacketLoss: 0.01,
				Jitter:     20 * time.Millisecond,
				AudioLevel: 0.20,
			},
			domain.QualityGood: {
				Latency:    200 * time.Millisecond,
				PacketLoss: 0.03,
				Jitter:     30 * time.Millisecond,
				AudioLevel: 0.10,
			},
			domain.QualityFair: {
				Latency:    350 * time.Millisecond,
				PacketLoss: 0.08,
				Jitter:     50 * time.Millisecond,
				AudioLevel: 0.05,
			},
		},
	}
}

// Classify buckets the combined metrics by the worst axis.
func (qs *QualityService) Classify(m domain.QualityMetrics) domain.ConnectionQuality {
	for _, band := range []domain.ConnectionQuality{domain.QualityExcellent, domain.QualityGood, domain.QualityFair} {
		if qs.meetsBand(m, qs.thresholds[band]) {
			return band
		}
	}
	return domain.QualityPoor
}

func (qs *QualityService) meetsBand(m domain.QualityMetrics, t AxisThresholds) bool {
	// An audio level of zero means the transport did not report one;
	// the axis is skipped rather than counted as silence.
	return m.LatencyMs <= float64(t.Latency.Milliseconds()) &&
		m.PacketLossRatio <= t.PacketLoss &&
		m.JitterMs <= float64(t.Jitter.Milliseconds()) &&
		(m.AudioLevel <= 0 || m.AudioLevel >= t.AudioLevel)
}

// Alerts derives the per-tick alert set. At most one warning and one
// corresponding suggestion are produced regardless of how many axes
// crossed, with packet loss taking priority over latency over audio
// level.
func (qs *QualityService) Alerts(m domain.QualityMetrics) []domain.Alert {
	switch {
	case m.PacketLossRatio >= alertPacketLoss:
		return []domain.Alert{
			{Kind: domain.AlertWarning, Message: "High packet loss is degrading audio", TriggeringMetric: "packetLossRatio"},
			{Kind: domain.AlertSuggestion, Message: "Check your network connectivity or switch networks", TriggeringMetric: "packetLossRatio"},
		}
	case m.LatencyMs > float64(alertLatency.Milliseconds()):
		return []domain.Alert{
			{Kind: domain.AlertWarning, Message: "Network latency is very high", TriggeringMetric: "latencyMs"},
			{Kind: domain.AlertSuggestion, Message: "Move closer to your router or close bandwidth-heavy apps", TriggeringMetric: "latencyMs"},
		}
	case m.AudioLevel < alertAudioLevel && m.AudioLevel > 0:
		return []domain.Alert{
			{Kind: domain.AlertWarning, Message: "Your microphone level is very low", TriggeringMetric: "audioLevel"},
			{Kind: domain.AlertSuggestion, Message: "Check your microphone volume and input device", TriggeringMetric: "audioLevel"},
		}
	}
	return nil
}
