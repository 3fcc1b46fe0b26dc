package app

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/maine/publishing_radio/internal/storage"
)

// S3Uploader выгружает файлы выпуска в объектное хранилище под podcasts/<id>/.
type S3Uploader struct {
	objects storage.ObjectStore
}

// NewS3Uploader создаёт выгрузчик.
func NewS3Uploader(objects storage.ObjectStore) *S3Uploader {
	return &S3Uploader{objects: objects}
}

// Upload реализует Uploader. Продолжает выгрузку после ошибки и возвращает все ошибки сразу.
func (u *S3Uploader) Upload(ctx context.Context, runID string, files []string) error {
	var errs []error
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", file, err))
			continue
		}

		name := filepath.Base(file)
		key := path.Join("podcasts", runID, name)
		if err := u.objects.Put(ctx, key, data, contentType(name)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func contentType(name string) string {
	switch filepath.Ext(name) {
	case ".txt":
		return "text/plain; charset=utf-8"
	case ".html":
		return "text/html; charset=utf-8"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
