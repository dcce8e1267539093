package monitoring

import (
	"voicelink/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exports the connectivity core's observable state.
// It implements the connection, roster and quality observer ports.
type PrometheusCollector struct {
	// Gauges
	connectionState  *prometheus.GaugeVec
	rosterSize       prometheus.Gauge
	audioLevel       prometheus.Gauge
	latencyMs        prometheus.Gauge
	packetLossRatio  prometheus.Gauge
	jitterMs         prometheus.Gauge
	bandwidthBps     prometheus.Gauge
	qualityBucket    *prometheus.GaugeVec

	// Counters
	reconnectsTotal   prometheus.Counter
	connectErrors     *prometheus.CounterVec
	alertsTotal       *prometheus.CounterVec
	chunksTotal       prometheus.Counter
	capturedBytes     prometheus.Counter

	// Histograms
	recordingDuration prometheus.Histogram
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		connectionState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voicelink_connection_state",
			Help: "Current connection state (1 for the active state, 0 otherwise)",
		}, []string{"state"}),

		rosterSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voicelink_roster_size",
			Help: "Number of participants in the current session",
		}),

		audioLevel: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voicelink_audio_level",
			Help: "Combined audio level across transports (0-1)",
		}),

		latencyMs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voicelink_latency_ms",
			Help: "Worst-case round-trip time across transports in milliseconds",
		}),

		packetLossRatio: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voicelink_packet_loss_ratio",
			Help: "Combined packet loss ratio across transports",
		}),

		jitterMs: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voicelink_jitter_ms",
			Help: "Mean jitter across transports in milliseconds",
		}),

		bandwidthBps: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "voicelink_bandwidth_bps",
			Help: "Summed available outgoing bitrate across transports",
		}),

		qualityBucket: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "voicelink_connection_quality",
			Help: "Current connection quality bucket (1 for the active bucket, 0 otherwise)",
		}, []string{"quality"}),

		reconnectsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_reconnects_total",
			Help: "Total number of automatic reconnection attempts",
		}),

		connectErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voicelink_connection_errors_total",
			Help: "Connection failures by category",
		}, []string{"category"}),

		alertsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "voicelink_quality_alerts_total",
			Help: "Quality alerts by kind and triggering metric",
		}, []string{"kind", "metric"}),

		chunksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_capture_chunks_total",
			Help: "Total audio chunks captured",
		}),

		capturedBytes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "voicelink_capture_bytes_total",
			Help: "Total audio bytes captured",
		}),

		recordingDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicelink_recording_duration_seconds",
			Help:    "Duration of completed recordings",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
	}
}

var allStates = []domain.ConnectionState{
	domain.StateDisconnected,
	domain.StateConnecting,
	domain.StateConnected,
	domain.StateReconnecting,
	domain.StateTimeout,
	domain.StateError,
	domain.StateServerError,
	domain.StateAuthFailed,
}

var allQualities = []domain.ConnectionQuality{
	domain.QualityUnknown,
	domain.QualityPoor,
	domain.QualityFair,
	domain.QualityGood,
	domain.QualityExcellent,
}

// OnConnectionStateChange implements ports.ConnectionObserver.
func (p *PrometheusCollector) OnConnectionStateChange(state domain.ConnectionState, detail *domain.ConnectionError) {
	for _, s := range allStates {
		value := 0.0
		if s == state {
			value = 1.0
		}
		p.connectionState.WithLabelValues(s.String()).Set(value)
	}
	if state == domain.StateReconnecting {
		p.reconnectsTotal.Inc()
	}
	if detail != nil {
		p.connectErrors.WithLabelValues(string(detail.Category)).Inc()
	}
}

// OnRosterChange implements ports.RosterObserver.
func (p *PrometheusCollector) OnRosterChange(participants []domain.Participant) {
	p.rosterSize.Set(float64(len(participants)))
}

// OnQualityTick implements ports.QualityObserver.
func (p *PrometheusCollector) OnQualityTick(metrics domain.QualityMetrics, alerts []domain.Alert) {
	p.audioLevel.Set(metrics.AudioLevel)
	p.latencyMs.Set(metrics.LatencyMs)
	p.packetLossRatio.Set(metrics.PacketLossRatio)
	p.jitterMs.Set(metrics.JitterMs)
	p.bandwidthBps.Set(float64(metrics.BandwidthBps))

	for _, q := range allQualities {
		value := 0.0
		if q == metrics.Quality {
			value = 1.0
		}
		p.qualityBucket.WithLabelValues(string(q)).Set(value)
	}

	for _, alert := range alerts {
		p.alertsTotal.WithLabelValues(string(alert.Kind), alert.TriggeringMetric).Inc()
	}
}

// RecordChunk counts one captured chunk.
func (p *PrometheusCollector) RecordChunk(size int) {
	p.chunksTotal.Inc()
	p.capturedBytes.Add(float64(size))
}

// RecordRecordingComplete observes a finished recording.
func (p *PrometheusCollector) RecordRecordingComplete(rec *domain.RecordingRecord) {
	p.recordingDuration.Observe(rec.Duration.Seconds())
}
