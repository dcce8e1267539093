package repositories

import (
	"voicelink/internal/core/ports"
	"voicelink/internal/infrastructure/repositories/memory"
	redisrepo "voicelink/internal/infrastructure/repositories/redis"
	"voicelink/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates stores with memory fallback when Redis is
// disabled or unreachable.
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory store",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis recording store")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory recording store")
	}

	return factory, nil
}

// CreateRecordingStore creates the recording archive (Redis or memory).
func (f *RepositoryFactory) CreateRecordingStore() ports.RecordingStore {
	if f.useRedis && f.redisClient != nil {
		return redisrepo.NewRedisRecordingStore(f.redisClient)
	}
	return memory.NewMemoryRecordingStore()
}

// Close releases the Redis client if one was opened.
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return f.redisClient.Close()
	}
	return nil
}
