package transport

import (
	"context"
	"testing"
	"time"

	"github.com/pion/rtcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRTCPStatsSource_EmptySample(t *testing.T) {
	s := NewRTCPStatsSource("rtcp", 48000)

	sample, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sample.PacketsReceived)
	assert.Zero(t, sample.PacketsLost)
	assert.Zero(t, sample.Jitter)
}

func TestRTCPStatsSource_FoldsReceiverReport(t *testing.T) {
	s := NewRTCPStatsSource("rtcp", 48000)

	s.Push([]rtcp.Packet{
		&rtcp.ReceiverReport{
			Reports: []rtcp.ReceptionReport{{
				TotalLost:          100,
				LastSequenceNumber: 1100,
				Jitter:             4800, // 100ms at 48kHz
			}},
		},
	})

	sample, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), sample.PacketsReceived)
	assert.Equal(t, uint64(100), sample.PacketsLost)
	assert.Equal(t, 100*time.Millisecond, sample.Jitter)
}

func TestRTCPStatsSource_SenderReportAlsoCounts(t *testing.T) {
	s := NewRTCPStatsSource("rtcp", 48000)

	s.Push([]rtcp.Packet{
		&rtcp.SenderReport{
			Reports: []rtcp.ReceptionReport{{
				TotalLost:          10,
				LastSequenceNumber: 500,
			}},
		},
	})

	sample, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(490), sample.PacketsReceived)
	assert.Equal(t, uint64(10), sample.PacketsLost)
}

func TestRTCPStatsSource_LatestReportWins(t *testing.T) {
	s := NewRTCPStatsSource("rtcp", 48000)

	s.Push([]rtcp.Packet{
		&rtcp.ReceiverReport{Reports: []rtcp.ReceptionReport{{TotalLost: 5, LastSequenceNumber: 100}}},
	})
	s.Push([]rtcp.Packet{
		&rtcp.ReceiverReport{Reports: []rtcp.ReceptionReport{{TotalLost: 20, LastSequenceNumber: 400}}},
	})

	sample, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(380), sample.PacketsReceived)
	assert.Equal(t, uint64(20), sample.PacketsLost)
}

func TestRTCPStatsSource_IgnoresUnrelatedPackets(t *testing.T) {
	s := NewRTCPStatsSource("rtcp", 48000)

	s.Push([]rtcp.Packet{&rtcp.Goodbye{}})

	sample, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sample.PacketsLost)
}

func TestRTCPStatsSource_DefaultClockRate(t *testing.T) {
	s := NewRTCPStatsSource("rtcp", 0)

	s.Push([]rtcp.Packet{
		&rtcp.ReceiverReport{Reports: []rtcp.ReceptionReport{{Jitter: 48000}}},
	})

	sample, err := s.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Second, sample.Jitter)
}
