package capture

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"voicelink/internal/core/ports"

	"go.uber.org/zap"
)

// DeviceConfig selects the platform input and capture format.
type DeviceConfig struct {
	// InputFormat is the ffmpeg capture backend: "pulse"/"alsa" on
	// Linux, "avfoundation" on macOS.
	InputFormat string
	// Input names the device, e.g. "default" or ":default".
	Input      string
	SampleRate int
	Channels   int
	// ChunkSize bounds one delivered chunk in bytes.
	ChunkSize int
}

func DefaultDeviceConfig() DeviceConfig {
	return DeviceConfig{
		InputFormat: "pulse",
		Input:       "default",
		SampleRate:  48000,
		Channels:    1,
		ChunkSize:   4096,
	}
}

// FFmpegProvider acquires the microphone through an ffmpeg child
// process streaming raw PCM to a pipe. Acquisition fails fast when
// ffmpeg is missing or the device cannot be opened.
type FFmpegProvider struct {
	cfg    DeviceConfig
	logger *zap.SugaredLogger

	mu   sync.Mutex
	held bool
}

func NewFFmpegProvider(cfg DeviceConfig, logger *zap.SugaredLogger) *FFmpegProvider {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 4096
	}
	return &FFmpegProvider{cfg: cfg, logger: logger}
}

func (p *FFmpegProvider) Acquire(ctx context.Context) (ports.CaptureDevice, error) {
	p.mu.Lock()
	if p.held {
		p.mu.Unlock()
		return nil, fmt.Errorf("capture device already in use")
	}
	p.held = true
	p.mu.Unlock()

	release := func() {
		p.mu.Lock()
		p.held = false
		p.mu.Unlock()
	}

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		release()
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	cmd := exec.Command("ffmpeg",
		"-f", p.cfg.InputFormat,
		"-i", p.cfg.Input,
		"-ac", fmt.Sprintf("%d", p.cfg.Channels),
		"-ar", fmt.Sprintf("%d", p.cfg.SampleRate),
		"-f", "s16le",
		"-loglevel", "error",
		"pipe:1",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		release()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		release()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	d := &ffmpegDevice{
		cmd:       cmd,
		stdout:    stdout,
		chunkSize: p.cfg.ChunkSize,
		chunks:    make(chan []byte, 32),
		release:   release,
		logger:    p.logger,
	}
	go d.readLoop()
	return d, nil
}

// ffmpegDevice delivers fixed-size PCM chunks from the ffmpeg pipe.
// Pause and resume suspend the child process itself so no audio is
// produced while paused.
type ffmpegDevice struct {
	cmd       *exec.Cmd
	stdout    io.ReadCloser
	chunkSize int
	chunks    chan []byte
	release   func()
	logger    *zap.SugaredLogger

	stopOnce sync.Once
}

func (d *ffmpegDevice) Chunks() <-chan []byte {
	return d.chunks
}

func (d *ffmpegDevice) Pause() error {
	return d.cmd.Process.Signal(syscall.SIGSTOP)
}

func (d *ffmpegDevice) Resume() error {
	return d.cmd.Process.Signal(syscall.SIGCONT)
}

// Stop interrupts ffmpeg; the read loop drains the pipe to EOF and then
// closes the chunk channel, so the final buffered chunk is delivered
// before the channel closes.
func (d *ffmpegDevice) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		// SIGCONT first in case we are stopping out of a pause.
		d.cmd.Process.Signal(syscall.SIGCONT)
		err = d.cmd.Process.Signal(syscall.SIGINT)
		go func() {
			select {
			case <-time.After(3 * time.Second):
				d.cmd.Process.Kill()
			case <-waitDone(d.cmd):
			}
		}()
	})
	return err
}

func (d *ffmpegDevice) readLoop() {
	defer func() {
		close(d.chunks)
		d.release()
	}()

	for {
		buf := make([]byte, d.chunkSize)
		n, err := io.ReadFull(d.stdout, buf)
		if n > 0 {
			d.chunks <- buf[:n]
		}
		if err != nil {
			if err != io.EOF && err != io.ErrUnexpectedEOF && d.logger != nil {
				d.logger.Debugw("capture pipe read ended", "error", err)
			}
			return
		}
	}
}

func waitDone(cmd *exec.Cmd) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	return done
}
