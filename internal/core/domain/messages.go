package domain

import "encoding/json"

// Wire message types carried over the session channel.
const (
	MsgConnectionEstablished = "connection_established"
	MsgJoinSession           = "join_session"
	MsgLeaveSession          = "leave_session"
	MsgUserJoined            = "user_joined"
	MsgUserLeft              = "user_left"
	MsgSessionParticipants   = "session_participants"
	MsgParticipantsInfo      = "session_participants_info"
	MsgUserSpeaking          = "user_speaking"
	MsgUserMuted             = "user_muted"
	MsgError                 = "error"
)

// Envelope is the outer shape of every channel message; the payload is
// decoded a second time into the type-specific struct.
type Envelope struct {
	Type string `json:"type"`
}

type ConnectionEstablishedMessage struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Timestamp int64  `json:"timestamp"`
}

type JoinSessionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type LeaveSessionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

// WireParticipant is the participant shape used on the wire.
type WireParticipant struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Role        string `json:"role,omitempty"`
	IsMuted     bool   `json:"is_muted"`
	IsSpeaking  bool   `json:"is_speaking"`
	IsActive    bool   `json:"is_active"`
	JoinedAt    int64  `json:"joined_at,omitempty"`
}

type UserJoinedMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	User      WireParticipant `json:"user"`
	Role      string          `json:"role,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

type UserLeftMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	Timestamp int64  `json:"timestamp"`
}

type SessionParticipantsMessage struct {
	Type         string            `json:"type"`
	SessionID    string            `json:"session_id,omitempty"`
	Participants []WireParticipant `json:"participants"`
	Total        int               `json:"total"`
	ActiveCount  int               `json:"active_count"`
}

type UserSpeakingMessage struct {
	Type       string `json:"type"`
	UserID     string `json:"user_id"`
	IsSpeaking bool   `json:"is_speaking"`
}

type UserMutedMessage struct {
	Type    string `json:"type"`
	UserID  string `json:"user_id"`
	IsMuted bool   `json:"is_muted"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// DecodeEnvelope extracts the message type from a raw channel payload.
func DecodeEnvelope(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}
