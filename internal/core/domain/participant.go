package domain

import "time"

type UserID string

// Participant is one member of the session roster.
type Participant struct {
	UserID      UserID    `json:"user_id"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Role        string    `json:"role,omitempty"`
	IsMuted     bool      `json:"is_muted"`
	IsSpeaking  bool      `json:"is_speaking"`
	IsActive    bool      `json:"is_active"`
	JoinedAt    time.Time `json:"joined_at"`
}
