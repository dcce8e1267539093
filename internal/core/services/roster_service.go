package services

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"voicelink/internal/core/domain"
	"voicelink/internal/core/ports"

	"go.uber.org/zap"
)

// RosterService projects inbound membership messages into the
// authoritative local participant set. Messages arriving while the
// session channel is not connected are discarded; during a reconnect
// race the server's next full roster snapshot re-establishes truth.
type RosterService struct {
	stateFn func() domain.ConnectionState
	logger  *zap.SugaredLogger

	mu           sync.RWMutex
	participants map[domain.UserID]*domain.Participant
	observers    []ports.RosterObserver
}

func NewRosterService(stateFn func() domain.ConnectionState, logger *zap.SugaredLogger) *RosterService {
	return &RosterService{
		stateFn:      stateFn,
		logger:       logger,
		participants: make(map[domain.UserID]*domain.Participant),
	}
}

// AddObserver registers a roster observer; register before messages flow.
func (r *RosterService) AddObserver(o ports.RosterObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// HandleMessage dispatches one application-level channel message. It is
// the single entry point wired into the session client.
func (r *RosterService) HandleMessage(msgType string, data []byte) {
	if r.stateFn != nil && r.stateFn() != domain.StateConnected {
		r.logger.Debugw("discarding membership message outside active session", "type", msgType)
		return
	}

	switch msgType {
	case domain.MsgUserJoined:
		var msg domain.UserJoinedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warnw("malformed user_joined", "error", err)
			return
		}
		p := fromWire(msg.User)
		if msg.Role != "" {
			p.Role = msg.Role
		}
		r.Join(p)

	case domain.MsgUserLeft:
		var msg domain.UserLeftMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warnw("malformed user_left", "error", err)
			return
		}
		r.Leave(domain.UserID(msg.UserID))

	case domain.MsgSessionParticipants, domain.MsgParticipantsInfo:
		var msg domain.SessionParticipantsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			r.logger.Warnw("malformed participants snapshot", "error", err)
			return
		}
		list := make([]domain.Participant, 0, len(msg.Participants))
		for _, wp := range msg.Participants {
			list = append(list, fromWire(wp))
		}
		r.ReplaceAll(list)

	case domain.MsgUserSpeaking:
		var msg domain.UserSpeakingMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		r.SetSpeaking(domain.UserID(msg.UserID), msg.IsSpeaking)

	case domain.MsgUserMuted:
		var msg domain.UserMutedMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
		r.SetMuted(domain.UserID(msg.UserID), msg.IsMuted)
	}
}

// Join adds or replaces one participant.
func (r *RosterService) Join(p domain.Participant) {
	r.mu.Lock()
	cp := p
	r.participants[p.UserID] = &cp
	r.mu.Unlock()
	r.notify()
}

// Leave removes one participant; unknown IDs are a no-op.
func (r *RosterService) Leave(id domain.UserID) {
	r.mu.Lock()
	_, known := r.participants[id]
	delete(r.participants, id)
	r.mu.Unlock()
	if known {
		r.notify()
	}
}

// ReplaceAll atomically replaces the entire set with a full roster
// snapshot. Replace, never merge, so stale entries cannot leak.
func (r *RosterService) ReplaceAll(list []domain.Participant) {
	next := make(map[domain.UserID]*domain.Participant, len(list))
	for i := range list {
		cp := list[i]
		next[cp.UserID] = &cp
	}
	r.mu.Lock()
	r.participants = next
	r.mu.Unlock()
	r.notify()
}

// SetSpeaking updates one participant's speaking flag; no-op if unknown.
func (r *RosterService) SetSpeaking(id domain.UserID, speaking bool) {
	r.mu.Lock()
	p, ok := r.participants[id]
	if ok {
		p.IsSpeaking = speaking
	}
	r.mu.Unlock()
	if ok {
		r.notify()
	}
}

// SetMuted updates one participant's mute flag; no-op if unknown.
func (r *RosterService) SetMuted(id domain.UserID, muted bool) {
	r.mu.Lock()
	p, ok := r.participants[id]
	if ok {
		p.IsMuted = muted
	}
	r.mu.Unlock()
	if ok {
		r.notify()
	}
}

// Snapshot returns a read-only copy of the roster ordered by join time.
func (r *RosterService) Snapshot() []domain.Participant {
	r.mu.RLock()
	list := make([]domain.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		list = append(list, *p)
	}
	r.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].JoinedAt.Equal(list[j].JoinedAt) {
			return list[i].UserID < list[j].UserID
		}
		return list[i].JoinedAt.Before(list[j].JoinedAt)
	})
	return list
}

// Size returns the current participant count.
func (r *RosterService) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

func (r *RosterService) notify() {
	snapshot := r.Snapshot()
	r.mu.RLock()
	observers := make([]ports.RosterObserver, len(r.observers))
	copy(observers, r.observers)
	r.mu.RUnlock()
	for _, o := range observers {
		o.OnRosterChange(snapshot)
	}
}

func fromWire(wp domain.WireParticipant) domain.Participant {
	joined := time.Now()
	if wp.JoinedAt > 0 {
		joined = time.Unix(wp.JoinedAt, 0)
	}
	return domain.Participant{
		UserID:      domain.UserID(wp.UserID),
		DisplayName: wp.DisplayName,
		AvatarURL:   wp.AvatarURL,
		Role:        wp.Role,
		IsMuted:     wp.IsMuted,
		IsSpeaking:  wp.IsSpeaking,
		IsActive:    wp.IsActive,
		JoinedAt:    joined,
	}
}
