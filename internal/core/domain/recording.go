package domain

import "time"

// RecordingState describes the capture engine lifecycle.
type RecordingState string

const (
	RecordingIdle    RecordingState = "idle"
	RecordingActive  RecordingState = "recording"
	RecordingPaused  RecordingState = "paused"
	RecordingStopped RecordingState = "stopped"
)

// RecordingSession is the read-only snapshot of one capture run.
type RecordingSession struct {
	ID         string
	State      RecordingState
	StartedAt  time.Time
	Elapsed    time.Duration
	ChunkCount int
	ByteCount  int64
	FinalBlob  []byte // non-nil only once State == RecordingStopped
	CaptureErr error  // last non-fatal device error, if any
}

// RecordingRecord is the archived metadata of a completed recording.
type RecordingRecord struct {
	ID         string        `json:"id"`
	SessionID  string        `json:"session_id"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
	Size       int64         `json:"size"`
	ChunkCount int           `json:"chunk_count"`
}
