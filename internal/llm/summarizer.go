package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maine/publishing_radio/internal/news"
)

// BatchSummarizer суммаризирует статьи батчами: внутри батча запросы идут параллельно,
// между батчами выдерживается пауза, чтобы не превысить лимит запросов в минуту.
type BatchSummarizer struct {
	completer Completer
	model     string
	retry     RetryPolicy
	cooldown  time.Duration // 0 - вычисляется из лимита запросов в минуту
}

// NewBatchSummarizer создаёт суммаризатор.
func NewBatchSummarizer(completer Completer, model string, retry RetryPolicy, cooldown time.Duration) *BatchSummarizer {
	if retry.Sleep == nil {
		retry.Sleep = SleepContext
	}
	return &BatchSummarizer{
		completer: completer,
		model:     model,
		retry:     retry,
		cooldown:  cooldown,
	}
}

// SummarizeAll возвращает резюме всех статей, для которых модель ответила успешно,
// в порядке входного списка. Статьи с исчерпанными попытками пропускаются.
func (s *BatchSummarizer) SummarizeAll(ctx context.Context, articles []news.Article, batchSize, requestsPerMinute int) []news.Summary {
	if len(articles) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = len(articles)
	}

	totalBatches := (len(articles) + batchSize - 1) / batchSize
	cooldown := s.batchCooldown(batchSize, requestsPerMinute)
	slog.Info("summarizing articles", "articles", len(articles), "batches", totalBatches, "batch_size", batchSize, "cooldown", cooldown)

	// Каждая горутина пишет только в свою ячейку
	slots := make([]*news.Summary, len(articles))

	for batch, start := 1, 0; start < len(articles); batch, start = batch+1, start+batchSize {
		end := min(start+batchSize, len(articles))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				summary, err := s.summarizeOne(ctx, articles[i])
				if err != nil {
					slog.Warn("article dropped from summaries", "url", articles[i].Link, "title", articles[i].Title, "error", err)
					return nil
				}
				slots[i] = &summary
				return nil
			})
		}
		_ = g.Wait()
		slog.Info("summary batch finished", "batch", batch, "of", totalBatches)

		if end < len(articles) {
			slog.Info("waiting before next batch", "cooldown", cooldown)
			if err := s.retry.Sleep(ctx, cooldown); err != nil {
				slog.Warn("summarization interrupted", "error", err)
				break
			}
		}
	}

	summaries := make([]news.Summary, 0, len(articles))
	for _, slot := range slots {
		if slot != nil {
			summaries = append(summaries, *slot)
		}
	}
	slog.Info("summarization complete", "summarized", len(summaries), "dropped", len(articles)-len(summaries))
	return summaries
}

func (s *BatchSummarizer) summarizeOne(ctx context.Context, article news.Article) (news.Summary, error) {
	text, err := s.retry.Do(ctx, "summarize", func(ctx context.Context) (string, error) {
		out, err := s.completer.Complete(ctx, s.model, summaryPrompt(article))
		if err != nil {
			return "", err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return "", fmt.Errorf("%w: empty summary", ErrMalformedResponse)
		}
		return out, nil
	})
	if err != nil {
		return news.Summary{}, err
	}

	return news.Summary{
		Title:           article.Title,
		Author:          article.Author,
		Source:          article.Source,
		PublishedAt:     article.PublishedAt,
		Link:            article.Link,
		SummaryText:     text,
		OriginalContent: article.Content,
	}, nil
}

// batchCooldown - пауза между батчами. Без явной настройки батч из batchSize запросов
// должен укладываться в лимит: ceil(60s * batchSize / rpm).
func (s *BatchSummarizer) batchCooldown(batchSize, requestsPerMinute int) time.Duration {
	if s.cooldown > 0 {
		return s.cooldown
	}
	if requestsPerMinute <= 0 {
		return 0
	}
	total := time.Minute * time.Duration(batchSize)
	rpm := time.Duration(requestsPerMinute)
	return (total + rpm - 1) / rpm
}
