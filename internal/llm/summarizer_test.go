package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maine/publishing_radio/internal/news"
)

func testArticles(n int) []news.Article {
	articles := make([]news.Article, 0, n)
	for i := 0; i < n; i++ {
		articles = append(articles, news.Article{
			Title:   fmt.Sprintf("文章%d", i),
			Source:  "出版商务周报",
			Link:    fmt.Sprintf("https://example.com/%d", i),
			Content: fmt.Sprintf("正文%d", i),
		})
	}
	return articles
}

// titleFromPrompt достаёт заголовок статьи из промпта суммаризации.
func titleFromPrompt(prompt string) string {
	_, rest, _ := strings.Cut(prompt, "文章标题：")
	title, _, _ := strings.Cut(rest, "\n")
	return title
}

func TestBatchSummarizer_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	completer := &mockCompleter{completeFunc: func(ctx context.Context, model, prompt string) (string, error) {
		if calls.Add(1) <= 2 {
			return "", ErrRateLimited
		}
		return "一、主要观点\n1. 观点", nil
	}}

	rec := &sleepRecorder{}
	s := NewBatchSummarizer(completer, "test-model", RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: rec.Sleep}, 0)

	got := s.SummarizeAll(context.Background(), testArticles(1), 5, 20)
	if len(got) != 1 {
		t.Fatalf("SummarizeAll() = %d summaries, want 1", len(got))
	}
	if got[0].SummaryText != "一、主要观点\n1. 观点" {
		t.Errorf("SummaryText = %q", got[0].SummaryText)
	}
	if got[0].OriginalContent != "正文0" {
		t.Errorf("OriginalContent = %q, want original body", got[0].OriginalContent)
	}
	if delays := rec.Delays(); len(delays) != 2 {
		t.Errorf("observed %d backoff delays, want 2: %v", len(delays), delays)
	}
}

func TestBatchSummarizer_DropsFailuresKeepsOrder(t *testing.T) {
	completer := &mockCompleter{completeFunc: func(ctx context.Context, model, prompt string) (string, error) {
		title := titleFromPrompt(prompt)
		switch title {
		case "文章1":
			return "", &RequestError{Status: 400, Retriable: false, Err: errors.New("bad request")}
		case "文章3":
			return "   ", nil
		}
		return "summary of " + title, nil
	}}

	rec := &sleepRecorder{}
	s := NewBatchSummarizer(completer, "m", RetryPolicy{MaxAttempts: 2, BaseDelay: time.Second, Sleep: rec.Sleep}, 0)

	articles := testArticles(5)
	got := s.SummarizeAll(context.Background(), articles, 2, 60)

	wantTitles := []string{"文章0", "文章2", "文章4"}
	if len(got) != len(wantTitles) {
		t.Fatalf("SummarizeAll() = %d summaries, want %d", len(got), len(wantTitles))
	}
	for i, want := range wantTitles {
		if got[i].Title != want {
			t.Errorf("summary[%d].Title = %q, want %q", i, got[i].Title, want)
		}
		if got[i].SummaryText != "summary of "+want {
			t.Errorf("summary[%d].SummaryText = %q", i, got[i].SummaryText)
		}
	}
}

func TestBatchSummarizer_BatchesAndCooldown(t *testing.T) {
	var (
		mu        sync.Mutex
		inFlight  int
		maxFlight int
	)
	completer := &mockCompleter{completeFunc: func(ctx context.Context, model, prompt string) (string, error) {
		mu.Lock()
		inFlight++
		if inFlight > maxFlight {
			maxFlight = inFlight
		}
		mu.Unlock()

		time.Sleep(5 * time.Millisecond)

		mu.Lock()
		inFlight--
		mu.Unlock()
		return "ok", nil
	}}

	rec := &sleepRecorder{}
	s := NewBatchSummarizer(completer, "m", RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Sleep: rec.Sleep}, 0)

	got := s.SummarizeAll(context.Background(), testArticles(7), 3, 20)
	if len(got) != 7 {
		t.Fatalf("SummarizeAll() = %d summaries, want 7", len(got))
	}
	if maxFlight > 3 {
		t.Errorf("max concurrent calls = %d, want <= 3", maxFlight)
	}

	// 3 батча - 2 паузы по ceil(60s*3/20) = 9s
	delays := rec.Delays()
	if len(delays) != 2 {
		t.Fatalf("cooldowns = %v, want 2", delays)
	}
	for _, d := range delays {
		if d != 9*time.Second {
			t.Errorf("cooldown = %v, want 9s", d)
		}
	}
}

func TestBatchSummarizer_ExplicitCooldown(t *testing.T) {
	completer := &mockCompleter{completeFunc: func(ctx context.Context, model, prompt string) (string, error) {
		return "ok", nil
	}}

	rec := &sleepRecorder{}
	s := NewBatchSummarizer(completer, "m", RetryPolicy{MaxAttempts: 1, Sleep: rec.Sleep}, 30*time.Second)

	s.SummarizeAll(context.Background(), testArticles(4), 2, 1000)
	delays := rec.Delays()
	if len(delays) != 1 || delays[0] != 30*time.Second {
		t.Errorf("cooldowns = %v, want [30s]", delays)
	}
}

func TestBatchSummarizer_Empty(t *testing.T) {
	s := NewBatchSummarizer(&mockCompleter{}, "m", RetryPolicy{}, 0)
	if got := s.SummarizeAll(context.Background(), nil, 5, 20); len(got) != 0 {
		t.Errorf("SummarizeAll(nil) = %v, want empty", got)
	}
}
