package index

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maine/publishing_radio/internal/news"
)

// DefaultMaxEntries - сколько последних выпусков хранит индекс. Больше индекс не бывает.
const DefaultMaxEntries = 50

// Publisher добавляет выпуски в индекс.
type Publisher struct {
	source     Source
	sinks      []Sink
	maxEntries int
}

// NewPublisher создаёт публикатор. source может быть nil - тогда индекс всегда начинается с нуля.
// maxEntries вне диапазона 1..DefaultMaxEntries заменяется на DefaultMaxEntries.
func NewPublisher(source Source, sinks []Sink, maxEntries int) *Publisher {
	if maxEntries <= 0 || maxEntries > DefaultMaxEntries {
		maxEntries = DefaultMaxEntries
	}
	return &Publisher{source: source, sinks: sinks, maxEntries: maxEntries}
}

// Publish добавляет запись в начало индекса, обрезает его до maxEntries и сохраняет во все приёмники.
//
// Недоступный или испорченный индекс считается пустым. Запись с уже опубликованным id
// повторно не добавляется, но индекс всё равно сохраняется.
func (p *Publisher) Publish(ctx context.Context, entry news.PodcastIndexEntry) error {
	current := p.load(ctx)

	podcasts, added, err := Merge(current.Podcasts, entry, p.maxEntries)
	if err != nil {
		return err
	}
	if !added {
		slog.Info("podcast already in index, skipping insert", "id", entry.ID)
	}

	data, err := encode(news.PodcastIndex{Podcasts: podcasts})
	if err != nil {
		return err
	}

	var errs []error
	for _, sink := range p.sinks {
		if err := sink.Store(ctx, data); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("store index: %w", err)
	}

	slog.Info("podcast index updated", "id", entry.ID, "entries", len(podcasts))
	return nil
}

func (p *Publisher) load(ctx context.Context) news.PodcastIndex {
	if p.source == nil {
		return news.PodcastIndex{}
	}

	data, err := p.source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, ErrNoIndex) {
			slog.Info("podcast index not found, starting a new one")
		} else {
			slog.Warn("podcast index unavailable, starting from empty", "error", err)
		}
		return news.PodcastIndex{}
	}

	var doc news.PodcastIndex
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("podcast index is malformed, starting from empty", "error", err)
		return news.PodcastIndex{}
	}
	return doc
}

// Merge возвращает новый список записей: entry впереди, не больше limit штук.
// Если запись с таким id уже есть, список возвращается без изменений (кроме обрезки).
func Merge(existing []json.RawMessage, entry news.PodcastIndexEntry, limit int) ([]json.RawMessage, bool, error) {
	kept := make([]json.RawMessage, 0, len(existing)+1)
	for _, raw := range existing {
		if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			continue
		}
		kept = append(kept, raw)
	}

	added := !containsID(kept, entry.ID)
	if added {
		raw, err := json.Marshal(entry)
		if err != nil {
			return nil, false, fmt.Errorf("marshal index entry: %w", err)
		}
		kept = append([]json.RawMessage{raw}, kept...)
	}

	if limit > 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept, added, nil
}

func containsID(entries []json.RawMessage, id string) bool {
	for _, raw := range entries {
		var probe struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			continue
		}
		if probe.ID == id {
			return true
		}
	}
	return false
}

func encode(doc news.PodcastIndex) ([]byte, error) {
	if doc.Podcasts == nil {
		doc.Podcasts = []json.RawMessage{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshal index: %w", err)
	}
	return buf.Bytes(), nil
}
