package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/maine/publishing_radio/internal/formatter"
	"github.com/maine/publishing_radio/internal/news"
	"github.com/maine/publishing_radio/internal/sources"
)

// ErrNotConfigured возвращается, когда пайплайн запущен без обязательных зависимостей.
var ErrNotConfigured = errors.New("pipeline dependencies not configured")

// Stage - состояние прогона.
type Stage string

const (
	StageFetching    Stage = "fetching"
	StageSummarizing Stage = "summarizing"
	StageComposing   Stage = "composing"
	StagePublishing  Stage = "publishing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Причины провала этапа.
const (
	ReasonNoArticles  = "no_articles"
	ReasonNoSummaries = "no_summaries"
	ReasonNoScript    = "no_script"
	ReasonWriteFailed = "write_failed"
)

// StageError - этап завершился без результата, прогон провален.
type StageError struct {
	Stage  Stage
	Reason string
	Err    error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Reason)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Clock определяет источник времени (удобно подменять в тестах).
type Clock func() time.Time

// ArticleFetcher собирает новые статьи.
type ArticleFetcher interface {
	Fetch(ctx context.Context, req sources.FetchRequest) ([]news.Article, error)
}

// Summarizer делает резюме статей батчами.
type Summarizer interface {
	SummarizeAll(ctx context.Context, articles []news.Article, batchSize, requestsPerMinute int) []news.Summary
}

// Composer пишет текст выпуска и заголовок.
type Composer interface {
	Compose(ctx context.Context, summaries []news.Summary) (string, error)
	Highlight(ctx context.Context, summaries []news.Summary) string
}

// ArtifactWriter сохраняет файлы выпуска.
type ArtifactWriter interface {
	WriteRun(dir string, summaries []news.Summary, script string) ([]string, error)
	WriteAudio(dir string, audio []byte) (string, error)
}

// Synthesizer озвучивает текст выпуска.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Publisher добавляет выпуск в индекс.
type Publisher interface {
	Publish(ctx context.Context, entry news.PodcastIndexEntry) error
}

// Uploader копирует файлы выпуска во внешнее хранилище.
type Uploader interface {
	Upload(ctx context.Context, runID string, files []string) error
}

// PipelineDeps перечисляет зависимости пайплайна. Synthesizer и Uploader необязательны.
type PipelineDeps struct {
	Fetcher     ArticleFetcher
	Summarizer  Summarizer
	Composer    Composer
	Writer      ArtifactWriter
	Synthesizer Synthesizer
	Publisher   Publisher
	Uploader    Uploader
	Clock       Clock
}

// PipelineOptions - параметры одного прогона.
type PipelineOptions struct {
	Fetch             sources.FetchRequest
	BatchSize         int
	RequestsPerMinute int
	PodcastsDir       string
}

// RunResult описывает итог прогона.
type RunResult struct {
	ID        string
	Stage     Stage
	FailedAt  Stage
	Reason    string
	Dir       string
	Articles  int
	Summaries int
	Entry     *news.PodcastIndexEntry
}

// Pipeline инкапсулирует один выпуск: сбор, резюме, текст, озвучка, индекс.
type Pipeline struct {
	fetcher     ArticleFetcher
	summarizer  Summarizer
	composer    Composer
	writer      ArtifactWriter
	synthesizer Synthesizer
	publisher   Publisher
	uploader    Uploader
	clock       Clock
	opts        PipelineOptions
}

// NewPipeline создаёт новый экземпляр пайплайна.
func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Pipeline{
		fetcher:     deps.Fetcher,
		summarizer:  deps.Summarizer,
		composer:    deps.Composer,
		writer:      deps.Writer,
		synthesizer: deps.Synthesizer,
		publisher:   deps.Publisher,
		uploader:    deps.Uploader,
		clock:       clock,
		opts:        opts,
	}
}

// Run исполняет полный цикл выпуска.
//
// Пустой этап (нет статей, нет резюме, нет текста) завершает прогон с *StageError,
// и запись в индекс не публикуется. Сбой озвучки, выгрузки или индекса только логируется.
func (p *Pipeline) Run(ctx context.Context) (RunResult, error) {
	if err := p.validateDeps(); err != nil {
		return RunResult{Stage: StageFailed}, err
	}

	run := news.NewRun(p.clock(), p.opts.PodcastsDir)
	result := RunResult{ID: run.ID, Stage: StageFetching}
	slog.Info("run started", "id", run.ID)

	// Fetching
	articles, err := p.fetcher.Fetch(ctx, p.opts.Fetch)
	if err != nil {
		slog.Warn("fetch interrupted", "error", err, "articles", len(articles))
	}
	result.Articles = len(articles)
	if len(articles) == 0 {
		return p.fail(result, ReasonNoArticles, err)
	}
	slog.Info("stage finished", "stage", StageFetching, "articles", len(articles))

	// Summarizing
	p.transition(&result, StageSummarizing)
	summaries := p.summarizer.SummarizeAll(ctx, articles, p.opts.BatchSize, p.opts.RequestsPerMinute)
	result.Summaries = len(summaries)
	if len(summaries) == 0 {
		return p.fail(result, ReasonNoSummaries, nil)
	}
	slog.Info("stage finished", "stage", StageSummarizing, "summaries", len(summaries))

	// Composing
	p.transition(&result, StageComposing)
	script, err := p.composer.Compose(ctx, summaries)
	if err != nil {
		return p.fail(result, ReasonNoScript, err)
	}

	files, err := p.writer.WriteRun(run.Dir, summaries, script)
	if err != nil {
		return p.fail(result, ReasonWriteFailed, err)
	}
	result.Dir = run.Dir
	slog.Info("run artifacts written", "dir", run.Dir, "files", len(files))

	highlight := p.composer.Highlight(ctx, summaries)

	var audioPath *string
	if audioFile, ok := p.synthesize(ctx, run.Dir, script); ok {
		files = append(files, audioFile)
		rel := relPath(run.ID, formatter.AudioFile)
		audioPath = &rel
	}

	if p.uploader != nil {
		if err := p.uploader.Upload(ctx, run.ID, files); err != nil {
			slog.Warn("artifact upload failed", "id", run.ID, "error", err)
		}
	}

	// Publishing
	p.transition(&result, StagePublishing)
	entry := news.PodcastIndexEntry{
		ID:             run.ID,
		Date:           run.StartedAt.Format("2006-01-02"),
		Title:          "出版电台播报 " + run.StartedAt.Format("2006年01月02日"),
		TranscriptPath: relPath(run.ID, formatter.ScriptFile),
		AudioPath:      audioPath,
		Highlight:      highlight,
	}
	result.Entry = &entry

	if err := p.publisher.Publish(ctx, entry); err != nil {
		slog.Warn("index publish failed", "id", run.ID, "error", err)
	}

	p.transition(&result, StageDone)
	slog.Info("run finished", "id", run.ID, "articles", result.Articles, "summaries", result.Summaries, "audio", audioPath != nil)
	return result, nil
}

func (p *Pipeline) synthesize(ctx context.Context, dir, script string) (string, bool) {
	if p.synthesizer == nil {
		slog.Info("speech synthesis disabled")
		return "", false
	}

	audio, err := p.synthesizer.Synthesize(ctx, script)
	if err != nil {
		slog.Warn("speech synthesis failed, publishing without audio", "error", err)
		return "", false
	}

	audioFile, err := p.writer.WriteAudio(dir, audio)
	if err != nil {
		slog.Warn("save audio failed, publishing without audio", "error", err)
		return "", false
	}
	slog.Info("audio saved", "path", audioFile, "bytes", len(audio))
	return audioFile, true
}

func (p *Pipeline) transition(result *RunResult, next Stage) {
	slog.Info("stage transition", "id", result.ID, "from", result.Stage, "to", next)
	result.Stage = next
}

func (p *Pipeline) fail(result RunResult, reason string, cause error) (RunResult, error) {
	stageErr := &StageError{Stage: result.Stage, Reason: reason, Err: cause}
	slog.Error("run failed", "id", result.ID, "stage", result.Stage, "reason", reason, "error", cause)

	result.FailedAt = result.Stage
	result.Stage = StageFailed
	result.Reason = reason
	return result, stageErr
}

func (p *Pipeline) validateDeps() error {
	switch {
	case p.fetcher == nil,
		p.summarizer == nil,
		p.composer == nil,
		p.writer == nil,
		p.publisher == nil,
		p.clock == nil:
		return ErrNotConfigured
	default:
		return nil
	}
}

// relPath - путь файла выпуска относительно корня публикации, как его ждёт веб-страница.
func relPath(runID, name string) string {
	return "./" + path.Join("podcasts", runID, name)
}
