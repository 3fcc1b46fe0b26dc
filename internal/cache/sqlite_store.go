package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/maine/publishing_radio/internal/news"

	_ "modernc.org/sqlite"
)

// SQLiteStore хранит кэш в базе SQLite (одна строка на URL).
type SQLiteStore struct {
	db    *sql.DB
	ttl   time.Duration
	clock Clock
}

// OpenSQLiteStore открывает (и при необходимости создаёт) базу кэша.
func OpenSQLiteStore(path string, ttl time.Duration, clock Clock) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS article_cache (
			url           TEXT PRIMARY KEY,
			timestamp     TEXT NOT NULL,
			title         TEXT NOT NULL DEFAULT '',
			author        TEXT NOT NULL DEFAULT '',
			source        TEXT NOT NULL DEFAULT '',
			link          TEXT NOT NULL DEFAULT '',
			pub_time      TEXT NOT NULL DEFAULT '',
			filter_reason TEXT NOT NULL DEFAULT ''
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}

	ttl, clock = normalize(ttl, clock)
	return &SQLiteStore{db: db, ttl: ttl, clock: clock}, nil
}

// Close закрывает базу.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Load читает все записи и отбрасывает просроченные.
func (s *SQLiteStore) Load(ctx context.Context) news.Records {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, timestamp, title, author, source, link, pub_time, filter_reason
		FROM article_cache
	`)
	if err != nil {
		slog.Warn("query cache db failed, starting with empty cache", "error", err)
		return news.Records{}
	}
	defer rows.Close()

	records := news.Records{}
	for rows.Next() {
		var (
			url    string
			rec    news.CacheRecord
			reason string
		)
		if err := rows.Scan(&url, &rec.Timestamp, &rec.Data.Title, &rec.Data.Author, &rec.Data.Source,
			&rec.Data.Link, &rec.Data.PublishedAt, &reason); err != nil {
			slog.Warn("scan cache row failed, starting with empty cache", "error", err)
			return news.Records{}
		}
		rec.FilterReason = news.FilterReason(reason)
		records[url] = rec
	}
	if err := rows.Err(); err != nil {
		slog.Warn("iterate cache rows failed, starting with empty cache", "error", err)
		return news.Records{}
	}

	return purge(records, s.clock(), s.ttl)
}

// Save заменяет содержимое таблицы переданным набором в одной транзакции.
func (s *SQLiteStore) Save(ctx context.Context, records news.Records) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM article_cache`); err != nil {
		return fmt.Errorf("clear cache table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO article_cache (url, timestamp, title, author, source, link, pub_time, filter_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare cache insert: %w", err)
	}
	defer stmt.Close()

	for url, rec := range records {
		if _, err := stmt.ExecContext(ctx, url, rec.Timestamp, rec.Data.Title, rec.Data.Author, rec.Data.Source,
			rec.Data.Link, rec.Data.PublishedAt, string(rec.FilterReason)); err != nil {
			return fmt.Errorf("insert cache record %s: %w", url, err)
		}
	}

	return tx.Commit()
}

// Remove удаляет запись об одном URL.
func (s *SQLiteStore) Remove(ctx context.Context, url string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM article_cache WHERE url = ?`, url); err != nil {
		return fmt.Errorf("delete cache record: %w", err)
	}
	return nil
}
