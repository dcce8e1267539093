package reliability

import (
	"context"

	"voicelink/internal/core/domain"
	"voicelink/internal/core/ports"
	"voicelink/pkg/circuitbreaker"

	"go.uber.org/zap"
)

// RecordingStoreWrapper wraps a RecordingStore with a circuit breaker
// so a flapping archive backend cannot stall the capture stop path.
type RecordingStoreWrapper struct {
	store   ports.RecordingStore
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.SugaredLogger
}

func NewRecordingStoreWrapper(store ports.RecordingStore, cbConfig circuitbreaker.Config, logger *zap.SugaredLogger) *RecordingStoreWrapper {
	wrapper := &RecordingStoreWrapper{
		store:   store,
		breaker: circuitbreaker.New(cbConfig),
		logger:  logger,
	}

	wrapper.breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Infow("recording store circuit breaker state changed",
			"from", from.String(),
			"to", to.String(),
		)
	})

	return wrapper
}

func (w *RecordingStoreWrapper) Save(ctx context.Context, rec *domain.RecordingRecord) error {
	return w.breaker.Execute(ctx, func() error {
		return w.store.Save(ctx, rec)
	})
}

func (w *RecordingStoreWrapper) GetByID(ctx context.Context, id string) (*domain.RecordingRecord, error) {
	var rec *domain.RecordingRecord
	err := w.breaker.Execute(ctx, func() error {
		var innerErr error
		rec, innerErr = w.store.GetByID(ctx, id)
		return innerErr
	})
	return rec, err
}

func (w *RecordingStoreWrapper) ListBySession(ctx context.Context, sessionID string) ([]*domain.RecordingRecord, error) {
	var recs []*domain.RecordingRecord
	err := w.breaker.Execute(ctx, func() error {
		var innerErr error
		recs, innerErr = w.store.ListBySession(ctx, sessionID)
		return innerErr
	})
	return recs, err
}

func (w *RecordingStoreWrapper) Delete(ctx context.Context, id string) error {
	return w.breaker.Execute(ctx, func() error {
		return w.store.Delete(ctx, id)
	})
}
