package ports

import (
	"context"

	"voicelink/internal/core/domain"
)

// RecordingStore archives metadata of completed recordings.
type RecordingStore interface {
	Save(ctx context.Context, rec *domain.RecordingRecord) error
	GetByID(ctx context.Context, id string) (*domain.RecordingRecord, error)
	ListBySession(ctx context.Context, sessionID string) ([]*domain.RecordingRecord, error)
	Delete(ctx context.Context, id string) error
}
