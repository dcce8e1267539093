package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voicelink/internal/core/domain"
	"voicelink/internal/core/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CaptureService owns the acquisition lifecycle of the single audio
// input and assembles the captured chunks into the final blob.
//
// The device handle is exclusive: Start fails fast while a handle is
// held. Stop drains the device's chunk channel before assembly so the
// last in-flight chunk is never lost to the stop race.
type CaptureService struct {
	provider ports.DeviceProvider
	store    ports.RecordingStore
	logger   *zap.SugaredLogger

	mu           sync.Mutex
	state        domain.RecordingState
	id           string
	sessionID    string
	startedAt    time.Time
	accumulated  time.Duration
	segmentStart time.Time
	chunks       [][]byte
	byteCount    int64
	finalBlob    []byte
	captureErr   error
	device       ports.CaptureDevice
	draining     bool
	done         chan struct{}
	tap          func([]byte)
	onComplete   func(*domain.RecordingRecord)
}

// NewCaptureService builds the engine. store may be nil when no
// recording archive is configured.
func NewCaptureService(provider ports.DeviceProvider, store ports.RecordingStore, logger *zap.SugaredLogger) *CaptureService {
	return &CaptureService{
		provider: provider,
		store:    store,
		logger:   logger,
		state:    domain.RecordingIdle,
	}
}

// Start acquires the device and begins a fresh recording session,
// discarding any previous stopped session. Device denial leaves the
// engine idle with the capture error attached.
func (s *CaptureService) Start(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	if s.state == domain.RecordingActive || s.state == domain.RecordingPaused {
		s.mu.Unlock()
		return domain.ErrDeviceBusy
	}
	s.mu.Unlock()

	device, err := s.provider.Acquire(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		// No partial transition: acquisition failure keeps the engine
		// idle and the session untouched.
		s.captureErr = fmt.Errorf("%w: %v", domain.ErrDeviceDenied, err)
		s.logger.Warnw("capture device acquisition failed", "error", err)
		return s.captureErr
	}

	now := time.Now()
	s.id = uuid.NewString()
	s.sessionID = sessionID
	s.state = domain.RecordingActive
	s.startedAt = now
	s.segmentStart = now
	s.accumulated = 0
	s.chunks = nil
	s.byteCount = 0
	s.finalBlob = nil
	s.captureErr = nil
	s.device = device
	s.draining = false
	s.done = make(chan struct{})

	go s.collect(device, s.done)

	s.logger.Infow("recording started", "recording_id", s.id, "session_id", sessionID)
	return nil
}

// SetChunkTap installs an optional per-chunk hook, the seam to the
// outbound media path. Install before Start.
func (s *CaptureService) SetChunkTap(tap func([]byte)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tap = tap
}

// SetCompletionHook installs an optional hook invoked once per
// successfully stopped recording. Install before Start.
func (s *CaptureService) SetCompletionHook(hook func(*domain.RecordingRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onComplete = hook
}

// collect appends chunks in arrival order until the device closes its
// channel after Stop.
func (s *CaptureService) collect(device ports.CaptureDevice, done chan struct{}) {
	for chunk := range device.Chunks() {
		s.mu.Lock()
		appended := s.device == device && (s.state == domain.RecordingActive || s.draining)
		if appended {
			s.chunks = append(s.chunks, chunk)
			s.byteCount += int64(len(chunk))
		}
		tap := s.tap
		s.mu.Unlock()
		if appended && tap != nil {
			tap(chunk)
		}
	}
	close(done)
}

// Pause suspends capture and elapsed-time accumulation.
func (s *CaptureService) Pause() error {
	s.mu.Lock()
	if s.state != domain.RecordingActive {
		s.mu.Unlock()
		return domain.ErrRecordingNotActive
	}
	s.accumulated += time.Since(s.segmentStart)
	s.state = domain.RecordingPaused
	device := s.device
	s.mu.Unlock()

	if err := device.Pause(); err != nil {
		s.setCaptureErr(err)
		return err
	}
	return nil
}

// Resume restarts capture; elapsed time resumes accumulating without
// resetting.
func (s *CaptureService) Resume() error {
	s.mu.Lock()
	if s.state != domain.RecordingPaused {
		s.mu.Unlock()
		return domain.ErrRecordingNotActive
	}
	s.segmentStart = time.Now()
	s.state = domain.RecordingActive
	device := s.device
	s.mu.Unlock()

	if err := device.Resume(); err != nil {
		s.setCaptureErr(err)
		return err
	}
	return nil
}

// Stop releases the device, waits for the final in-flight chunk and
// assembles the blob. Valid from both recording and paused. A stop with
// no captured chunks fails with ErrNoAudioCaptured instead of producing
// an empty artifact.
func (s *CaptureService) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.state != domain.RecordingActive && s.state != domain.RecordingPaused {
		s.mu.Unlock()
		return domain.ErrRecordingNotActive
	}
	if s.state == domain.RecordingActive {
		s.accumulated += time.Since(s.segmentStart)
	}
	s.draining = true
	device := s.device
	done := s.done
	s.mu.Unlock()

	if err := device.Stop(); err != nil {
		s.setCaptureErr(err)
	}
	// The device closes its chunk channel after the last buffered
	// chunk; wait for the collector to drain it.
	<-done

	s.mu.Lock()
	s.state = domain.RecordingStopped
	s.device = nil
	s.draining = false

	if len(s.chunks) == 0 {
		s.captureErr = domain.ErrNoAudioCaptured
		s.mu.Unlock()
		return domain.ErrNoAudioCaptured
	}

	blob := make([]byte, 0, s.byteCount)
	for _, chunk := range s.chunks {
		blob = append(blob, chunk...)
	}
	s.finalBlob = blob

	record := &domain.RecordingRecord{
		ID:         s.id,
		SessionID:  s.sessionID,
		StartedAt:  s.startedAt,
		Duration:   s.accumulated,
		Size:       s.byteCount,
		ChunkCount: len(s.chunks),
	}
	onComplete := s.onComplete
	s.mu.Unlock()

	s.logger.Infow("recording stopped",
		"recording_id", record.ID,
		"duration", record.Duration,
		"size_bytes", record.Size,
		"chunks", record.ChunkCount,
	)

	if onComplete != nil {
		onComplete(record)
	}
	if s.store != nil {
		if err := s.store.Save(ctx, record); err != nil {
			s.logger.Errorw("failed to archive recording", "recording_id", record.ID, "error", err)
		}
	}
	return nil
}

// Elapsed returns recorded wall-clock time, excluding paused intervals.
func (s *CaptureService) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == domain.RecordingActive {
		return s.accumulated + time.Since(s.segmentStart)
	}
	return s.accumulated
}

// FinalBlob returns the assembled recording, valid once stopped.
func (s *CaptureService) FinalBlob() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.RecordingStopped {
		return nil, domain.ErrRecordingNotStopped
	}
	if s.finalBlob == nil {
		return nil, domain.ErrNoAudioCaptured
	}
	return s.finalBlob, nil
}

// Snapshot returns the read-only view of the current session.
func (s *CaptureService) Snapshot() domain.RecordingSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.accumulated
	if s.state == domain.RecordingActive {
		elapsed += time.Since(s.segmentStart)
	}
	return domain.RecordingSession{
		ID:         s.id,
		State:      s.state,
		StartedAt:  s.startedAt,
		Elapsed:    elapsed,
		ChunkCount: len(s.chunks),
		ByteCount:  s.byteCount,
		FinalBlob:  s.finalBlob,
		CaptureErr: s.captureErr,
	}
}

// setCaptureErr records a non-fatal device error on the session; it
// does not by itself tear the session down.
func (s *CaptureService) setCaptureErr(err error) {
	s.mu.Lock()
	s.captureErr = err
	s.mu.Unlock()
	s.logger.Warnw("capture device error", "error", err)
}
