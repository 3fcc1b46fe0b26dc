package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/maine/publishing_radio/internal/news"
)

func TestScriptComposer_Compose(t *testing.T) {
	summaries := []news.Summary{
		{Title: "图书零售报告", Source: "出版商务周报", SummaryText: "一、主要观点"},
		{Title: "空白", Source: "无", SummaryText: "  "},
	}

	var gotPrompt string
	completer := &mockCompleter{completeFunc: func(ctx context.Context, model, prompt string) (string, error) {
		gotPrompt = prompt
		if model != "script-model" {
			t.Errorf("model = %q, want script-model", model)
		}
		return ScriptOpening + "出版商务周报的文章……" + ScriptClosing, nil
	}}

	c := NewScriptComposer(completer, "script-model", "title-model", RetryPolicy{MaxAttempts: 1})
	script, err := c.Compose(context.Background(), summaries)
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if !strings.HasPrefix(script, ScriptOpening) {
		t.Errorf("Compose() = %q, want fixed opening", script)
	}
	if !strings.Contains(gotPrompt, "1篇文章") {
		t.Errorf("prompt should count only summaries with text: %q", gotPrompt)
	}
	if strings.Contains(gotPrompt, "标题: 空白") {
		t.Errorf("prompt contains empty summary")
	}
}

func TestScriptComposer_ComposeFailures(t *testing.T) {
	t.Run("no summaries with text", func(t *testing.T) {
		c := NewScriptComposer(&mockCompleter{}, "m", "m", RetryPolicy{MaxAttempts: 1})
		_, err := c.Compose(context.Background(), []news.Summary{{Title: "x"}})
		if !errors.Is(err, ErrNothingToCompose) {
			t.Errorf("Compose() error = %v, want ErrNothingToCompose", err)
		}
	})

	t.Run("empty model output", func(t *testing.T) {
		completer := &mockCompleter{completeFunc: func(ctx context.Context, model, prompt string) (string, error) {
			return "", nil
		}}
		rec := &sleepRecorder{}
		c := NewScriptComposer(completer, "m", "m", RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second, Sleep: rec.Sleep})
		_, err := c.Compose(context.Background(), []news.Summary{{Title: "x", SummaryText: "y"}})
		if !errors.Is(err, ErrMalformedResponse) {
			t.Errorf("Compose() error = %v, want ErrMalformedResponse", err)
		}
	})
}

func TestScriptComposer_Highlight(t *testing.T) {
	summaries := []news.Summary{{Title: "图书零售报告", SummaryText: "text"}}

	tests := []struct {
		name  string
		reply string
		err   error
		want  string
	}{
		{name: "model title", reply: "《纸书回暖了吗？》", want: "纸书回暖了吗？"},
		{name: "failure falls back", err: &RequestError{Status: 401, Err: errors.New("unauthorized")}, want: DefaultHighlight},
		{name: "empty reply falls back", reply: "  ", want: DefaultHighlight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			completer := &mockCompleter{completeFunc: func(ctx context.Context, model, prompt string) (string, error) {
				return tt.reply, tt.err
			}}
			c := NewScriptComposer(completer, "m", "title-model", RetryPolicy{MaxAttempts: 1})
			if got := c.Highlight(context.Background(), summaries); got != tt.want {
				t.Errorf("Highlight() = %q, want %q", got, tt.want)
			}
		})
	}
}
