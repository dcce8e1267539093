package services

import (
	"fmt"

	"voicelink/internal/core/domain"
)

// Severity grades a status message for the UI.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// StatusMessage is the user-facing rendering of a connection state.
type StatusMessage struct {
	Text     string
	Severity Severity
	CanRetry bool
}

// MessageCatalog maps connection states and close codes to user-facing
// text. Pure lookup, no state.
type MessageCatalog struct {
	states     map[domain.ConnectionState]StatusMessage
	closeCodes map[int]string
}

func NewMessageCatalog() *MessageCatalog {
	return &MessageCatalog{
		states: map[domain.ConnectionState]StatusMessage{
			domain.StateDisconnected: {Text: "Disconnected", Severity: SeverityInfo, CanRetry: true},
			domain.StateConnecting:   {Text: "Connecting...", Severity: SeverityInfo},
			domain.StateConnected:    {Text: "Connected", Severity: SeverityInfo},
			domain.StateReconnecting: {Text: "Connection lost, reconnecting...", Severity: SeverityWarning},
			domain.StateTimeout:      {Text: "Connection timed out", Severity: SeverityWarning, CanRetry: true},
			domain.StateError:        {Text: "Connection failed", Severity: SeverityError, CanRetry: true},
			domain.StateServerError:  {Text: "The server reported an internal error", Severity: SeverityError, CanRetry: true},
			domain.StateAuthFailed:   {Text: "Authentication failed, please sign in again", Severity: SeverityError},
		},
		closeCodes: map[int]string{
			1000: "the session ended normally",
			1002: "the server rejected the protocol",
			1003: "the server rejected the data format",
			1006: "the connection dropped unexpectedly",
			1008: "the server rejected the credentials",
			1011: "the server hit an internal error",
		},
	}
}

// Status returns the message for a connection state.
func (c *MessageCatalog) Status(state domain.ConnectionState) StatusMessage {
	if msg, ok := c.states[state]; ok {
		return msg
	}
	return StatusMessage{Text: "Unknown connection state", Severity: SeverityWarning}
}

// CloseDetail returns the human-readable text for a close code.
func (c *MessageCatalog) CloseDetail(code int) string {
	if text, ok := c.closeCodes[code]; ok {
		return text
	}
	return fmt.Sprintf("the connection closed with code %d", code)
}
