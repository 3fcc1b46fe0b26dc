package news

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"time"
)

// CacheTimeLayout - формат отметки времени в кэше статей ("YYYY-MM-DD HH:MM:SS", локальное время).
const CacheTimeLayout = "2006-01-02 15:04:05"

// RunIDLayout - формат идентификатора прогона (и имени каталога выпуска).
const RunIDLayout = "20060102_150405"

// Article описывает статью после загрузки полного текста. Живёт только в рамках прогона.
type Article struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Source      string `json:"source"`
	Link        string `json:"link"`
	PublishedAt string `json:"pub_time"`
	Content     string `json:"content"`
}

// Data возвращает метаданные статьи для записи в кэш (без полного текста).
func (a Article) Data() ArticleData {
	return ArticleData{
		Title:       a.Title,
		Author:      a.Author,
		Source:      a.Source,
		Link:        a.Link,
		PublishedAt: a.PublishedAt,
	}
}

// ArticleData - метаданные статьи, сохраняемые в кэше.
type ArticleData struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Source      string `json:"source"`
	Link        string `json:"link"`
	PublishedAt string `json:"pub_time"`
}

// FilterReason объясняет, почему статья не попала в выпуск.
type FilterReason string

const (
	ReasonFetchFailed          FilterReason = "fetch_failed"
	ReasonTooShort             FilterReason = "too_short"
	ReasonTitleKeyword         FilterReason = "title_keyword"
	ReasonContentPrefixKeyword FilterReason = "content_prefix_keyword"
)

// WithTerm добавляет к причине найденное ключевое слово: "title_keyword:招聘".
func (r FilterReason) WithTerm(term string) FilterReason {
	return FilterReason(string(r) + ":" + term)
}

// Kind возвращает причину без ключевого слова.
func (r FilterReason) Kind() FilterReason {
	kind, _, _ := strings.Cut(string(r), ":")
	return FilterReason(kind)
}

// CacheRecord - запись кэша об обработке одного URL.
type CacheRecord struct {
	Timestamp    string       `json:"timestamp"`
	Data         ArticleData  `json:"data"`
	FilterReason FilterReason `json:"filter_reason,omitempty"`
}

// Time разбирает отметку времени записи.
func (r CacheRecord) Time() (time.Time, error) {
	return time.ParseInLocation(CacheTimeLayout, r.Timestamp, time.Local)
}

// Records - набор записей кэша, ключ - URL статьи.
type Records map[string]CacheRecord

// Summary - результат суммаризации одной статьи.
type Summary struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	Source          string `json:"source"`
	PublishedAt     string `json:"pub_time"`
	Link            string `json:"link"`
	SummaryText     string `json:"summary"`
	OriginalContent string `json:"content"`
}

// PodcastIndexEntry - запись о выпуске в индексе.
type PodcastIndexEntry struct {
	ID             string  `json:"id"`
	Date           string  `json:"date"`
	Title          string  `json:"title"`
	TranscriptPath string  `json:"transcriptPath"`
	AudioPath      *string `json:"audioPath"`
	Highlight      string  `json:"highlight"`
}

// PodcastIndex - документ индекса выпусков, новые записи первыми.
// Записи хранятся как есть, чтобы не терять поля, о которых мы не знаем.
type PodcastIndex struct {
	Podcasts []json.RawMessage `json:"podcasts"`
}

// Run описывает один прогон пайплайна.
type Run struct {
	ID        string
	StartedAt time.Time
	Dir       string
}

// NewRun создаёт прогон с идентификатором, производным от времени запуска.
// Каталог прогона лежит внутри podcastsDir.
func NewRun(startedAt time.Time, podcastsDir string) Run {
	id := startedAt.Format(RunIDLayout)
	return Run{
		ID:        id,
		StartedAt: startedAt,
		Dir:       filepath.Join(podcastsDir, id),
	}
}
