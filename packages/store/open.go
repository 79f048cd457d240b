package store

import (
	"caselaw/packages/config"
	"context"
	"fmt"
)

// Open returns the record store selected by cfg.StoreBackend together with a
// function releasing its connections. The json backend reads and writes path.
func Open(ctx context.Context, cfg config.Config, path string) (Store, func(), error) {
	switch cfg.StoreBackend {
	case "", "json":
		return NewJSONFile(path), func() {}, nil
	case "redis":
		s, err := NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			HashKey:  cfg.RedisHashKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "postgres":
		s, err := NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
