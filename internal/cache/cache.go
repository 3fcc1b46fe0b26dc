package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/maine/publishing_radio/internal/news"
)

// DefaultTTL - срок жизни записи кэша.
const DefaultTTL = 7 * 24 * time.Hour

// Store хранит записи об обработанных URL между прогонами.
//
// Load никогда не возвращает ошибку: при любой проблеме чтения отдаётся пустой набор.
// Просроченные записи и записи с нечитаемой отметкой времени отбрасываются при загрузке,
// поэтому Save после Load не возвращает их обратно.
type Store interface {
	Load(ctx context.Context) news.Records
	Save(ctx context.Context, records news.Records) error
	Remove(ctx context.Context, url string) error
}

// Clock определяет источник времени (удобно подменять в тестах).
type Clock func() time.Time

// NewRecord создаёт запись кэша с текущей отметкой времени.
func NewRecord(now time.Time, data news.ArticleData, reason news.FilterReason) news.CacheRecord {
	return news.CacheRecord{
		Timestamp:    now.Format(news.CacheTimeLayout),
		Data:         data,
		FilterReason: reason,
	}
}

// IsFresh сообщает, моложе ли запись окна window.
// Запись с нечитаемой отметкой времени считается устаревшей.
func IsFresh(record news.CacheRecord, now time.Time, window time.Duration) bool {
	ts, err := record.Time()
	if err != nil {
		return false
	}
	return now.Sub(ts) < window
}

// purge отбрасывает записи старше ttl и записи с нечитаемой отметкой времени.
func purge(records news.Records, now time.Time, ttl time.Duration) news.Records {
	cleaned := make(news.Records, len(records))
	for url, record := range records {
		ts, err := record.Time()
		if err != nil {
			slog.Warn("drop cache record with bad timestamp", "url", url, "timestamp", record.Timestamp, "error", err)
			continue
		}
		if now.Sub(ts) >= ttl {
			continue
		}
		cleaned[url] = record
	}
	return cleaned
}

func normalize(ttl time.Duration, clock Clock) (time.Duration, Clock) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return ttl, clock
}
