package cache

import (
	"context"
	"fmt"

	"github.com/maine/publishing_radio/internal/config"
)

// Open создаёт хранилище кэша выбранного бэкенда.
// Возвращаемая функция закрывает соединение (для файлового кэша ничего не делает).
func Open(ctx context.Context, cfg config.Cache, redisPassword string, clock Clock) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.CacheBackendFile, "":
		return NewFileStore(cfg.Path, cfg.TTL, clock), noop, nil
	case config.CacheBackendSQLite:
		store, err := OpenSQLiteStore(cfg.Path, cfg.TTL, clock)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case config.CacheBackendRedis:
		store, err := NewRedisStore(ctx, RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: redisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		}, cfg.TTL, clock)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	default:
		return nil, noop, &config.ConfigurationError{
			Variable: "cache.backend",
			Reason:   fmt.Sprintf("unknown backend %q (valid: file, sqlite, redis)", cfg.Backend),
		}
	}
}
