package transport

import (
	"context"
	"sync"
	"time"

	"voicelink/internal/core/domain"

	"github.com/pion/rtcp"
)

// RTCPStatsSource derives transport counters from a raw RTCP feed, for
// transports that expose receiver reports instead of a stats API. The
// owner pushes decoded compound packets as they arrive; Sample returns
// the latest reduction.
type RTCPStatsSource struct {
	id        string
	clockRate uint32

	mu           sync.Mutex
	lost         uint64
	highestSeq   uint64
	jitter       time.Duration
	lastReportAt time.Time
}

// NewRTCPStatsSource builds a source; clockRate is the RTP clock of the
// observed stream (48000 for opus audio).
func NewRTCPStatsSource(id string, clockRate uint32) *RTCPStatsSource {
	if clockRate == 0 {
		clockRate = 48000
	}
	return &RTCPStatsSource{id: id, clockRate: clockRate}
}

func (s *RTCPStatsSource) ID() string {
	return s.id
}

// Push folds one batch of RTCP packets into the running counters.
func (s *RTCPStatsSource) Push(pkts []rtcp.Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, pkt := range pkts {
		var reports []rtcp.ReceptionReport
		switch p := pkt.(type) {
		case *rtcp.ReceiverReport:
			reports = p.Reports
		case *rtcp.SenderReport:
			reports = p.Reports
		default:
			continue
		}
		for _, r := range reports {
			s.lost = uint64(r.TotalLost)
			s.highestSeq = uint64(r.LastSequenceNumber)
			// RTCP interarrival jitter is in RTP clock units.
			s.jitter = time.Duration(float64(r.Jitter) / float64(s.clockRate) * float64(time.Second))
			s.lastReportAt = time.Now()
		}
	}
}

func (s *RTCPStatsSource) Sample(ctx context.Context) (domain.TransportSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	received := uint64(0)
	if s.highestSeq > s.lost {
		received = s.highestSeq - s.lost
	}
	return domain.TransportSample{
		Timestamp:       time.Now(),
		PacketsReceived: received,
		PacketsLost:     s.lost,
		Jitter:          s.jitter,
	}, nil
}
