package transport

import (
	"fmt"
	"math/rand"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"
)

const (
	opusClockRate   = 48000
	opusPayloadType = 111
	rtpMTU          = 1200
	// 20ms opus frames
	samplesPerChunk = opusClockRate / 50
)

// AudioPublisher owns the outbound media transport handle: one peer
// connection with a single opus track that captured chunks are framed
// onto. The quality monitor samples the same peer connection through
// PeerConnectionStats.
type AudioPublisher struct {
	pc         *webrtc.PeerConnection
	track      *webrtc.TrackLocalStaticRTP
	packetizer rtp.Packetizer
	stats      *PeerConnectionStats
	rtcpStats  *RTCPStatsSource
}

func NewAudioPublisher(id string, iceServers []webrtc.ICEServer) (*AudioPublisher, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: iceServers})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	track, err := webrtc.NewTrackLocalStaticRTP(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusClockRate, Channels: 2},
		"audio", id,
	)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("create audio track: %w", err)
	}
	sender, err := pc.AddTrack(track)
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("add audio track: %w", err)
	}

	rtcpStats := NewRTCPStatsSource(id+"-rtcp", opusClockRate)
	go readRTCP(sender, rtcpStats)

	return &AudioPublisher{
		pc:    pc,
		track: track,
		packetizer: rtp.NewPacketizer(
			rtpMTU,
			opusPayloadType,
			rand.Uint32(),
			&codecs.OpusPayloader{},
			rtp.NewRandomSequencer(),
			opusClockRate,
		),
		stats:     NewPeerConnectionStats(id, pc),
		rtcpStats: rtcpStats,
	}, nil
}

// WriteChunk frames one captured audio chunk into RTP packets and
// writes them onto the track. Dropped silently when the transport is
// not yet negotiated; the capture path must not block on the network.
func (p *AudioPublisher) WriteChunk(chunk []byte) error {
	for _, pkt := range p.packetizer.Packetize(chunk, samplesPerChunk) {
		if err := p.track.WriteRTP(pkt); err != nil {
			return fmt.Errorf("write rtp: %w", err)
		}
	}
	return nil
}

// PeerConnection exposes the underlying handle for signaling.
func (p *AudioPublisher) PeerConnection() *webrtc.PeerConnection {
	return p.pc
}

// Stats returns the stats source to register with the quality monitor.
func (p *AudioPublisher) Stats() *PeerConnectionStats {
	return p.stats
}

// RTCPStats returns the receiver-report source fed by the track's
// sender. Registered alongside Stats so loss seen by the remote end
// reaches the quality monitor too.
func (p *AudioPublisher) RTCPStats() *RTCPStatsSource {
	return p.rtcpStats
}

// Close releases the transport. The owner must unregister the stats
// source from the quality monitor first.
func (p *AudioPublisher) Close() error {
	return p.pc.Close()
}

// readRTCP drains receiver reports from the track's sender into the
// RTCP stats source until the peer connection closes.
func readRTCP(sender *webrtc.RTPSender, src *RTCPStatsSource) {
	for {
		packets, _, err := sender.ReadRTCP()
		if err != nil {
			return
		}
		src.Push(packets)
	}
}
