package ports

import "context"

// CaptureDevice is one acquired audio input. Chunks are delivered in
// capture order; the channel is closed after the final chunk once the
// device has been stopped, so a drain loop observes every in-flight
// chunk before assembly.
type CaptureDevice interface {
	Chunks() <-chan []byte
	Pause() error
	Resume() error
	// Stop releases the device. The Chunks channel is closed after any
	// remaining buffered chunk has been delivered.
	Stop() error
}

// DeviceProvider acquires the platform audio input. Acquisition failure
// (denied permission, missing device) returns an error without holding
// the device.
type DeviceProvider interface {
	Acquire(ctx context.Context) (CaptureDevice, error)
}
