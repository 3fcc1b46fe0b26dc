package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maine/publishing_radio/internal/news"
)

// ErrNothingToCompose - среди резюме нет ни одного с текстом.
var ErrNothingToCompose = errors.New("no summaries with text")

// ScriptComposer готовит текст выпуска и его заголовок.
type ScriptComposer struct {
	completer   Completer
	scriptModel string
	titleModel  string
	retry       RetryPolicy
}

// NewScriptComposer создаёт компоновщик выпуска.
func NewScriptComposer(completer Completer, scriptModel, titleModel string, retry RetryPolicy) *ScriptComposer {
	return &ScriptComposer{
		completer:   completer,
		scriptModel: scriptModel,
		titleModel:  titleModel,
		retry:       retry,
	}
}

// Compose пишет текст выпуска для чтения вслух по всем резюме.
func (c *ScriptComposer) Compose(ctx context.Context, summaries []news.Summary) (string, error) {
	valid := make([]news.Summary, 0, len(summaries))
	for _, s := range summaries {
		if strings.TrimSpace(s.SummaryText) != "" {
			valid = append(valid, s)
		}
	}
	if len(valid) == 0 {
		return "", ErrNothingToCompose
	}

	prompt := scriptPrompt(valid)
	script, err := c.retry.Do(ctx, "compose script", func(ctx context.Context) (string, error) {
		out, err := c.completer.Complete(ctx, c.scriptModel, prompt)
		if err != nil {
			return "", err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return "", fmt.Errorf("%w: empty script", ErrMalformedResponse)
		}
		return out, nil
	})
	if err != nil {
		return "", fmt.Errorf("compose script: %w", err)
	}

	for _, s := range valid {
		if s.Source != "" && !strings.Contains(script, s.Source) {
			slog.Warn("script does not mention source", "source", s.Source, "title", s.Title)
		}
	}
	return script, nil
}

// Highlight придумывает короткий заголовок выпуска. При ошибке возвращает DefaultHighlight.
func (c *ScriptComposer) Highlight(ctx context.Context, summaries []news.Summary) string {
	if len(summaries) == 0 {
		return DefaultHighlight
	}

	title, err := c.retry.Do(ctx, "highlight", func(ctx context.Context) (string, error) {
		return c.completer.Complete(ctx, c.titleModel, highlightPrompt(summaries))
	})
	if err != nil {
		slog.Warn("highlight generation failed, using default", "error", err)
		return DefaultHighlight
	}

	title = strings.Trim(strings.TrimSpace(title), "\"“”《》「」")
	if title == "" {
		return DefaultHighlight
	}
	return title
}
