package transport

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAudioPublisher_CarriesBothStatsSources(t *testing.T) {
	pub, err := NewAudioPublisher("local", nil)
	require.NoError(t, err)
	defer pub.Close()

	require.NotNil(t, pub.Stats())
	require.NotNil(t, pub.RTCPStats())
	assert.Equal(t, "local", pub.Stats().ID())
	assert.Equal(t, "local-rtcp", pub.RTCPStats().ID())

	// No reports have arrived yet; the source must still answer.
	sample, err := pub.RTCPStats().Sample(context.Background())
	require.NoError(t, err)
	assert.Zero(t, sample.PacketsLost)
}

func TestAudioPublisher_WriteChunkBeforeNegotiation(t *testing.T) {
	pub, err := NewAudioPublisher("local", nil)
	require.NoError(t, err)
	defer pub.Close()

	// An unbound track discards writes instead of failing; the capture
	// path must not error before the session media is negotiated.
	assert.NoError(t, pub.WriteChunk(make([]byte, 960)))
}
