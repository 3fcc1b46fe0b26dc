package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maine/publishing_radio/internal/news"
)

// fileDocument - формат article_cache.json.
type fileDocument struct {
	Articles news.Records `json:"articles"`
}

// FileStore хранит кэш в JSON-файле.
type FileStore struct {
	path  string
	ttl   time.Duration
	clock Clock
}

// NewFileStore создаёт файловый кэш. ttl <= 0 означает DefaultTTL, clock == nil - time.Now.
func NewFileStore(path string, ttl time.Duration, clock Clock) *FileStore {
	ttl, clock = normalize(ttl, clock)
	return &FileStore{path: path, ttl: ttl, clock: clock}
}

// Load читает кэш и отбрасывает просроченные записи.
func (s *FileStore) Load(ctx context.Context) news.Records {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("read cache file failed, starting with empty cache", "path", s.path, "error", err)
		}
		return news.Records{}
	}

	var doc fileDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		// Повреждённый файл сохраняем рядом для диагностики и продолжаем с пустым кэшем
		brokenPath := s.path + ".broken"
		_ = os.WriteFile(brokenPath, data, 0644)
		slog.Warn("cache file is corrupted, starting with empty cache", "path", s.path, "broken_copy", brokenPath, "error", err)
		return news.Records{}
	}

	cleaned := purge(doc.Articles, s.clock(), s.ttl)
	slog.Info("cache loaded", "path", s.path, "records", len(cleaned), "purged", len(doc.Articles)-len(cleaned))
	return cleaned
}

// Save записывает кэш атомарно (через временный файл).
func (s *FileStore) Save(ctx context.Context, records news.Records) error {
	if records == nil {
		records = news.Records{}
	}
	data, err := json.MarshalIndent(fileDocument{Articles: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp cache file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp cache file: %w", err)
	}

	slog.Debug("cache saved", "path", s.path, "records", len(records), "bytes", len(data))
	return nil
}

// Remove удаляет запись об одном URL. Отсутствие записи не ошибка.
func (s *FileStore) Remove(ctx context.Context, url string) error {
	records := s.Load(ctx)
	if _, ok := records[url]; !ok {
		return nil
	}
	delete(records, url)
	return s.Save(ctx, records)
}
