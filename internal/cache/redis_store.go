package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maine/publishing_radio/internal/news"
)

// RedisConfig описывает подключение к Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Key      string // ключ хэша с записями кэша
}

// RedisStore хранит кэш в хэше Redis: поле - URL, значение - JSON записи.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	clock  Clock
}

// NewRedisStore подключается к Redis и проверяет соединение.
func NewRedisStore(ctx context.Context, cfg RedisConfig, ttl time.Duration, clock Clock) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Addr, err)
	}

	ttl, clock = normalize(ttl, clock)
	return &RedisStore{client: client, key: cfg.Key, ttl: ttl, clock: clock}, nil
}

// Close закрывает соединение.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Load читает хэш и отбрасывает просроченные записи.
func (s *RedisStore) Load(ctx context.Context) news.Records {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		slog.Warn("read cache hash failed, starting with empty cache", "key", s.key, "error", err)
		return news.Records{}
	}

	records := make(news.Records, len(raw))
	for url, value := range raw {
		var rec news.CacheRecord
		if err := json.Unmarshal([]byte(value), &rec); err != nil {
			slog.Warn("drop undecodable cache record", "url", url, "error", err)
			continue
		}
		records[url] = rec
	}
	return purge(records, s.clock(), s.ttl)
}

// Save заменяет хэш переданным набором в одной транзакции MULTI/EXEC.
func (s *RedisStore) Save(ctx context.Context, records news.Records) error {
	values := make([]interface{}, 0, len(records)*2)
	for url, rec := range records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal cache record %s: %w", url, err)
		}
		values = append(values, url, string(data))
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(values) > 0 {
			pipe.HSet(ctx, s.key, values...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write cache hash: %w", err)
	}
	return nil
}

// Remove удаляет запись об одном URL.
func (s *RedisStore) Remove(ctx context.Context, url string) error {
	if err := s.client.HDel(ctx, s.key, url).Err(); err != nil {
		return fmt.Errorf("delete cache record: %w", err)
	}
	return nil
}
