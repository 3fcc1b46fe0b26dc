package index

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/maine/publishing_radio/internal/storage"
)

// ErrNoIndex - индекса ещё не существует. Публикатор считает его пустым.
var ErrNoIndex = errors.New("index does not exist")

// Source отдаёт текущий документ индекса.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Sink сохраняет документ индекса.
type Sink interface {
	Store(ctx context.Context, data []byte) error
}

// HTTPSource читает индекс по URL (например, опубликованный файл на gh-pages).
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource создаёт источник. client == nil - клиент с таймаутом 30 секунд.
func NewHTTPSource(url string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{url: url, client: client}
}

// Fetch реализует Source.
func (s *HTTPSource) Fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNoIndex
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// FileStore хранит индекс в локальном JSON-файле.
type FileStore struct {
	path string
}

// NewFileStore создаёт файловое хранилище индекса.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Fetch реализует Source.
func (s *FileStore) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoIndex
		}
		return nil, fmt.Errorf("read index file: %w", err)
	}
	return data, nil
}

// Store записывает индекс атомарно (через временный файл).
func (s *FileStore) Store(ctx context.Context, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write temp index file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp index file: %w", err)
	}
	return nil
}

// ObjectStore хранит индекс объектом в S3.
type ObjectStore struct {
	objects storage.ObjectStore
	key     string
}

// NewObjectStore создаёт хранилище индекса поверх объектного хранилища.
func NewObjectStore(objects storage.ObjectStore, key string) *ObjectStore {
	return &ObjectStore{objects: objects, key: key}
}

// Fetch реализует Source.
func (s *ObjectStore) Fetch(ctx context.Context) ([]byte, error) {
	data, err := s.objects.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNoIndex
	}
	return data, err
}

// Store реализует Sink.
func (s *ObjectStore) Store(ctx context.Context, data []byte) error {
	return s.objects.Put(ctx, s.key, data, "application/json; charset=utf-8")
}
