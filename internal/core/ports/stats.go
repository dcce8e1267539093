package ports

import (
	"context"

	"voicelink/internal/core/domain"
)

// StatsSource is one media transport whose counters can be pulled.
type StatsSource interface {
	ID() string
	Sample(ctx context.Context) (domain.TransportSample, error)
}
