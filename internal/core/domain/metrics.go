package domain

import "time"

// ConnectionQuality is the overall bucket derived from transport metrics.
type ConnectionQuality string

const (
	QualityUnknown   ConnectionQuality = "unknown"
	QualityPoor      ConnectionQuality = "poor"
	QualityFair      ConnectionQuality = "fair"
	QualityGood      ConnectionQuality = "good"
	QualityExcellent ConnectionQuality = "excellent"
)

// TransportSample is one raw counter pull from a single media transport.
type TransportSample struct {
	Timestamp       time.Time
	BytesSent       uint64
	BytesReceived   uint64
	PacketsSent     uint64
	PacketsReceived uint64
	PacketsLost     uint64
	Jitter          time.Duration
	RoundTripTime   time.Duration
	OutgoingBitrate int // bps
	AudioLevel      float64
}

// QualityMetrics is the combined view across all active transports,
// fully recomputed on every monitoring tick.
type QualityMetrics struct {
	Timestamp       time.Time
	AudioLevel      float64
	LatencyMs       float64
	PacketLossRatio float64
	JitterMs        float64
	BandwidthBps    int
	Quality         ConnectionQuality
}

// AlertKind separates actionable warnings from remediation hints.
type AlertKind string

const (
	AlertWarning    AlertKind = "warning"
	AlertSuggestion AlertKind = "suggestion"
)

// Alert is derived from the current metrics; regenerated each tick,
// never persisted.
type Alert struct {
	Kind             AlertKind
	Message          string
	TriggeringMetric string
}
