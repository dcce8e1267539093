package domain

import (
	"fmt"
	"time"
)

// ConnectionState describes the lifecycle of the session channel.
type ConnectionState int

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateTimeout
	StateError
	StateServerError
	StateAuthFailed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateTimeout:
		return "timeout"
	case StateError:
		return "error"
	case StateServerError:
		return "server_error"
	case StateAuthFailed:
		return "auth_failed"
	default:
		return "unknown"
	}
}

// Active reports whether the channel is usable or being established.
func (s ConnectionState) Active() bool {
	return s == StateConnecting || s == StateConnected || s == StateReconnecting
}

// ErrorCategory classifies a connection failure so the caller can
// distinguish "retry" from "fix your credentials" from "server broke".
type ErrorCategory string

const (
	CategoryTransport ErrorCategory = "transport"
	CategoryAuth      ErrorCategory = "auth"
	CategoryProtocol  ErrorCategory = "protocol"
	CategoryServer    ErrorCategory = "server"
	CategoryTimeout   ErrorCategory = "timeout"
)

// ConnectionError is the error detail attached to a failure state.
type ConnectionError struct {
	Category  ErrorCategory
	CloseCode int
	Detail    string
	At        time.Time
}

func (e *ConnectionError) Error() string {
	if e.CloseCode != 0 {
		return fmt.Sprintf("%s (close code %d): %s", e.Category, e.CloseCode, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

// SessionInfo carries the identity assigned by the session service on
// the connection_established acknowledgment.
type SessionInfo struct {
	UserID    string
	SessionID string
	StartedAt time.Time
}
