package services

import (
	"encoding/json"
	"testing"
	"time"

	"voicelink/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func connectedRoster() *RosterService {
	return NewRosterService(func() domain.ConnectionState {
		return domain.StateConnected
	}, zap.NewNop().Sugar())
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestRosterService_JoinAndLeave(t *testing.T) {
	r := connectedRoster()

	r.HandleMessage(domain.MsgUserJoined, mustMarshal(t, domain.UserJoinedMessage{
		Type:      domain.MsgUserJoined,
		SessionID: "s1",
		User:      domain.WireParticipant{UserID: "alice", DisplayName: "Alice", JoinedAt: 100},
		Role:      "speaker",
	}))

	require.Equal(t, 1, r.Size())
	list := r.Snapshot()
	assert.Equal(t, domain.UserID("alice"), list[0].UserID)
	assert.Equal(t, "speaker", list[0].Role)

	r.HandleMessage(domain.MsgUserLeft, mustMarshal(t, domain.UserLeftMessage{
		Type: domain.MsgUserLeft, SessionID: "s1", UserID: "alice",
	}))
	assert.Equal(t, 0, r.Size())
}

func TestRosterService_RejoinReplacesEntry(t *testing.T) {
	r := connectedRoster()

	r.Join(domain.Participant{UserID: "alice", DisplayName: "Alice", IsMuted: true})
	r.Join(domain.Participant{UserID: "alice", DisplayName: "Alice 2"})

	require.Equal(t, 1, r.Size())
	list := r.Snapshot()
	assert.Equal(t, "Alice 2", list[0].DisplayName)
	assert.False(t, list[0].IsMuted)
}

func TestRosterService_SnapshotReplacesNotMerges(t *testing.T) {
	r := connectedRoster()

	r.Join(domain.Participant{UserID: "stale"})
	r.Join(domain.Participant{UserID: "alice"})

	r.HandleMessage(domain.MsgSessionParticipants, mustMarshal(t, domain.SessionParticipantsMessage{
		Type: domain.MsgSessionParticipants,
		Participants: []domain.WireParticipant{
			{UserID: "alice", JoinedAt: 10},
			{UserID: "bob", JoinedAt: 20},
		},
		Total: 2,
	}))

	list := r.Snapshot()
	require.Len(t, list, 2)
	assert.Equal(t, domain.UserID("alice"), list[0].UserID)
	assert.Equal(t, domain.UserID("bob"), list[1].UserID)
}

func TestRosterService_EmptySnapshotClearsRoster(t *testing.T) {
	r := connectedRoster()

	r.Join(domain.Participant{UserID: "alice"})
	r.Join(domain.Participant{UserID: "bob"})

	r.HandleMessage(domain.MsgSessionParticipants, mustMarshal(t, domain.SessionParticipantsMessage{
		Type:         domain.MsgSessionParticipants,
		Participants: []domain.WireParticipant{},
	}))

	assert.Equal(t, 0, r.Size())
	assert.Empty(t, r.Snapshot())
}

func TestRosterService_SpeakingAndMutedFlags(t *testing.T) {
	r := connectedRoster()
	r.Join(domain.Participant{UserID: "alice"})

	r.HandleMessage(domain.MsgUserSpeaking, mustMarshal(t, domain.UserSpeakingMessage{
		Type: domain.MsgUserSpeaking, UserID: "alice", IsSpeaking: true,
	}))
	r.HandleMessage(domain.MsgUserMuted, mustMarshal(t, domain.UserMutedMessage{
		Type: domain.MsgUserMuted, UserID: "alice", IsMuted: true,
	}))

	list := r.Snapshot()
	assert.True(t, list[0].IsSpeaking)
	assert.True(t, list[0].IsMuted)
}

func TestRosterService_UnknownUserIsNoop(t *testing.T) {
	r := connectedRoster()
	r.Join(domain.Participant{UserID: "alice"})

	r.Leave("ghost")
	r.SetSpeaking("ghost", true)
	r.SetMuted("ghost", true)

	assert.Equal(t, 1, r.Size())
	assert.False(t, r.Snapshot()[0].IsSpeaking)
}

func TestRosterService_DiscardsMessagesWhileNotConnected(t *testing.T) {
	state := domain.StateReconnecting
	r := NewRosterService(func() domain.ConnectionState { return state }, zap.NewNop().Sugar())

	r.HandleMessage(domain.MsgUserJoined, mustMarshal(t, domain.UserJoinedMessage{
		Type: domain.MsgUserJoined, User: domain.WireParticipant{UserID: "alice"},
	}))
	assert.Equal(t, 0, r.Size(), "membership deltas outside an active session must be dropped")

	state = domain.StateConnected
	r.HandleMessage(domain.MsgUserJoined, mustMarshal(t, domain.UserJoinedMessage{
		Type: domain.MsgUserJoined, User: domain.WireParticipant{UserID: "alice"},
	}))
	assert.Equal(t, 1, r.Size())
}

func TestRosterService_SnapshotOrderedByJoinTime(t *testing.T) {
	r := connectedRoster()

	base := time.Unix(1000, 0)
	r.Join(domain.Participant{UserID: "c", JoinedAt: base.Add(2 * time.Second)})
	r.Join(domain.Participant{UserID: "a", JoinedAt: base})
	r.Join(domain.Participant{UserID: "b", JoinedAt: base})

	list := r.Snapshot()
	require.Len(t, list, 3)
	// Ties break on user ID.
	assert.Equal(t, domain.UserID("a"), list[0].UserID)
	assert.Equal(t, domain.UserID("b"), list[1].UserID)
	assert.Equal(t, domain.UserID("c"), list[2].UserID)
}

func TestRosterService_ObserverSeesSnapshot(t *testing.T) {
	r := connectedRoster()

	var last []domain.Participant
	r.AddObserver(rosterObserverFunc(func(list []domain.Participant) {
		last = list
	}))

	r.Join(domain.Participant{UserID: "alice"})
	require.Len(t, last, 1)

	r.Leave("alice")
	assert.Empty(t, last)
}

type rosterObserverFunc func(participants []domain.Participant)

func (f rosterObserverFunc) OnRosterChange(participants []domain.Participant) { f(participants) }

func TestRosterService_MalformedPayloadIgnored(t *testing.T) {
	r := connectedRoster()
	r.HandleMessage(domain.MsgUserJoined, []byte("{broken"))
	r.HandleMessage(domain.MsgSessionParticipants, []byte("[]"))
	assert.Equal(t, 0, r.Size())
}
