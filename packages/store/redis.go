package store

import (
	"caselaw/packages/domain"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	HashKey  string
}

// RedisStore keeps records as JSON values in a single Redis hash, one field
// per record key. HSET gives the same last-write-wins semantics as the file.
type RedisStore struct {
	client  *redis.Client
	hashKey string
}

func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("unable to connect to redis at %s: %w", cfg.Addr, err)
	}
	return &RedisStore{client: client, hashKey: cfg.HashKey}, nil
}

func (s *RedisStore) Upsert(ctx context.Context, key string, rec domain.Record) error {
	if key == "" {
		return ErrEmptyKey
	}
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %q: %w", key, err)
	}
	if err := s.client.HSet(ctx, s.hashKey, key, value).Err(); err != nil {
		return fmt.Errorf("failed to store record %q: %w", key, err)
	}
	return nil
}

// Load returns every record in the hash. Values that do not decode are skipped.
func (s *RedisStore) Load(ctx context.Context) (map[string]domain.Record, error) {
	raw, err := s.client.HGetAll(ctx, s.hashKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read records from redis: %w", err)
	}
	return decodeRecords(raw), nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func decodeRecords(raw map[string]string) map[string]domain.Record {
	records := make(map[string]domain.Record, len(raw))
	for key, value := range raw {
		rec, err := decodeRecord(json.RawMessage(value))
		if err != nil {
			slog.Warn("Skipping undecodable record", "key", key, "error", err)
			continue
		}
		records[key] = rec
	}
	return records
}
