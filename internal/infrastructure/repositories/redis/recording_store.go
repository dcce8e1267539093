package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"voicelink/internal/core/domain"
	"voicelink/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

type RedisRecordingStore struct {
	client *redis.Client
	prefix string
}

func NewRedisRecordingStore(client *redis.Client) ports.RecordingStore {
	return &RedisRecordingStore{
		client: client,
		prefix: "voicelink:recording:",
	}
}

func (r *RedisRecordingStore) recordKey(id string) string {
	return r.prefix + id
}

func (r *RedisRecordingStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("voicelink:session:%s:recordings", sessionID)
}

func (r *RedisRecordingStore) Save(ctx context.Context, rec *domain.RecordingRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recording record: %w", err)
	}

	if err := r.client.Set(ctx, r.recordKey(rec.ID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set recording in Redis: %w", err)
	}

	if rec.SessionID != "" {
		if err := r.client.SAdd(ctx, r.sessionKey(rec.SessionID), rec.ID).Err(); err != nil {
			return fmt.Errorf("failed to add recording to session set: %w", err)
		}
	}
	return nil
}

func (r *RedisRecordingStore) GetByID(ctx context.Context, id string) (*domain.RecordingRecord, error) {
	data, err := r.client.Get(ctx, r.recordKey(id)).Result()
	if err == redis.Nil {
		return nil, domain.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get recording from Redis: %w", err)
	}

	var rec domain.RecordingRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recording record: %w", err)
	}
	return &rec, nil
}

func (r *RedisRecordingStore) ListBySession(ctx context.Context, sessionID string) ([]*domain.RecordingRecord, error) {
	ids, err := r.client.SMembers(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session recording set: %w", err)
	}

	out := make([]*domain.RecordingRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := r.GetByID(ctx, id)
		if err == domain.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *RedisRecordingStore) Delete(ctx context.Context, id string) error {
	rec, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := r.client.Del(ctx, r.recordKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete recording from Redis: %w", err)
	}
	if rec.SessionID != "" {
		if err := r.client.SRem(ctx, r.sessionKey(rec.SessionID), id).Err(); err != nil {
			return fmt.Errorf("failed to remove recording from session set: %w", err)
		}
	}
	return nil
}
