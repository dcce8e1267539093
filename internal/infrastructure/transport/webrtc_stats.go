package transport

import (
	"context"
	"time"

	"voicelink/internal/core/domain"

	"github.com/pion/webrtc/v3"
)

// PeerConnectionStats adapts one pion peer connection into a stats
// source for the quality monitor. Each Sample pulls the full stats
// report and reduces it to the raw counters the monitor aggregates.
type PeerConnectionStats struct {
	id string
	pc *webrtc.PeerConnection
}

func NewPeerConnectionStats(id string, pc *webrtc.PeerConnection) *PeerConnectionStats {
	return &PeerConnectionStats{id: id, pc: pc}
}

func (t *PeerConnectionStats) ID() string {
	return t.id
}

func (t *PeerConnectionStats) Sample(ctx context.Context) (domain.TransportSample, error) {
	report := t.pc.GetStats()

	sample := domain.TransportSample{Timestamp: time.Now()}

	for _, stat := range report {
		switch s := stat.(type) {
		case webrtc.TransportStats:
			sample.BytesSent += s.BytesSent
			sample.BytesReceived += s.BytesReceived

		case webrtc.InboundRTPStreamStats:
			sample.PacketsReceived += uint64(s.PacketsReceived)
			if s.PacketsLost > 0 {
				sample.PacketsLost += uint64(s.PacketsLost)
			}
			if jitter := time.Duration(s.Jitter * float64(time.Second)); jitter > sample.Jitter {
				sample.Jitter = jitter
			}

		case webrtc.OutboundRTPStreamStats:
			sample.PacketsSent += uint64(s.PacketsSent)

		case webrtc.ICECandidatePairStats:
			if s.State != webrtc.StatsICECandidatePairStateSucceeded {
				continue
			}
			if rtt := time.Duration(s.CurrentRoundTripTime * float64(time.Second)); rtt > sample.RoundTripTime {
				sample.RoundTripTime = rtt
			}
			if s.AvailableOutgoingBitrate > 0 {
				sample.OutgoingBitrate += int(s.AvailableOutgoingBitrate)
			}
		}
	}

	return sample, nil
}
