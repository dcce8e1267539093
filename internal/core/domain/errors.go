package domain

import "errors"

var (
	ErrAlreadyConnecting   = errors.New("connection attempt already in progress")
	ErrNotConnected        = errors.New("session channel is not connected")
	ErrDeviceBusy          = errors.New("capture device is already held")
	ErrDeviceDenied        = errors.New("capture device access denied")
	ErrNoAudioCaptured     = errors.New("no audio captured")
	ErrRecordingNotActive  = errors.New("no active recording")
	ErrRecordingNotStopped = errors.New("recording has not been stopped")
	ErrRecordNotFound      = errors.New("recording record not found")
	ErrTokenExpired        = errors.New("auth token expired")
)
