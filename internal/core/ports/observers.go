package ports

import "voicelink/internal/core/domain"

// ConnectionObserver receives state-change notifications from the
// session client. detail is non-nil only on failure states.
type ConnectionObserver interface {
	OnConnectionStateChange(state domain.ConnectionState, detail *domain.ConnectionError)
}

// RosterObserver receives the replaced participant snapshot after every
// roster mutation.
type RosterObserver interface {
	OnRosterChange(participants []domain.Participant)
}

// QualityObserver receives the recomputed metrics and the alerts of one
// monitoring tick.
type QualityObserver interface {
	OnQualityTick(metrics domain.QualityMetrics, alerts []domain.Alert)
}
