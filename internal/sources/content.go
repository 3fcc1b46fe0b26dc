package sources

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/maine/publishing_radio/internal/llm"
)

const (
	browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	minParagraphLen  = 10
)

// ErrNoContent возвращается, когда на странице не найден текст статьи.
var ErrNoContent = errors.New("article content not found")

// ContentFetcher загружает полный текст статьи по URL.
type ContentFetcher interface {
	FetchContent(ctx context.Context, url string) (string, error)
}

// Селекторы основного текста для обычных сайтов, в порядке приоритета.
var contentSelectors = []string{
	"article",
	".article-content",
	".post-content",
	".content",
	".article",
	".rich_media_content",
}

// Служебные строки WeChat (подписки, QR-коды, ссылки), которые не относятся к статье.
var wechatNoise = []string{
	"微信", "扫描", "二维码", "关注我们", "点击", "阅读原文",
	"长按识别", "复制链接", "网购", "电商", "加入会员",
}

// HTMLContentFetcher извлекает текст статьи из HTML-страницы.
type HTMLContentFetcher struct {
	client     *http.Client
	attempts   int
	retryDelay time.Duration
	sleep      llm.SleepFunc
}

// NewHTMLContentFetcher создаёт загрузчик. client == nil - клиент с таймаутом 30 секунд.
func NewHTMLContentFetcher(client *http.Client) *HTMLContentFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTMLContentFetcher{
		client:     client,
		attempts:   3,
		retryDelay: 3 * time.Second,
		sleep:      llm.SleepContext,
	}
}

// FetchContent реализует ContentFetcher. Делает до трёх попыток с паузой между ними.
func (f *HTMLContentFetcher) FetchContent(ctx context.Context, pageURL string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		content, err := f.fetchOnce(ctx, pageURL)
		if err == nil {
			return content, nil
		}
		lastErr = err

		if attempt < f.attempts {
			slog.Debug("content fetch failed, retrying", "url", pageURL, "attempt", attempt, "error", err)
			if err := f.sleep(ctx, f.retryDelay); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("fetch content %s after %d attempts: %w", pageURL, f.attempts, lastErr)
}

func (f *HTMLContentFetcher) fetchOnce(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "zh-CN,zh;q=0.9,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	content, err := extractContent(pageURL, body)
	if err != nil {
		return "", err
	}
	return content, nil
}

// extractContent достаёт абзацы статьи селекторами, а если не вышло - через readability.
func extractContent(pageURL string, body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	if strings.Contains(pageURL, "mp.weixin.qq.com") {
		if node := doc.Find("div#js_content").First(); node.Length() > 0 {
			if text := collectParagraphs(node, wechatNoise); text != "" {
				return text, nil
			}
		}
	} else {
		for _, selector := range contentSelectors {
			node := doc.Find(selector).First()
			if node.Length() == 0 {
				continue
			}
			if text := collectParagraphs(node, nil); text != "" {
				return text, nil
			}
		}
	}

	// Запасной путь: readability по всему документу
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	if text := strings.TrimSpace(article.TextContent); text != "" {
		return text, nil
	}
	return "", ErrNoContent
}

// collectParagraphs собирает тексты p/section длиннее minParagraphLen символов.
func collectParagraphs(node *goquery.Selection, noise []string) string {
	node.Find("script, style, iframe, img").Remove()

	seen := make(map[string]struct{})
	paragraphs := make([]string, 0)
	node.Find("p, section").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if len([]rune(text)) <= minParagraphLen {
			return
		}
		for _, word := range noise {
			if strings.Contains(text, word) {
				return
			}
		}
		// Вложенные section дают одинаковый текст несколько раз
		if _, dup := seen[text]; dup {
			return
		}
		seen[text] = struct{}{}
		paragraphs = append(paragraphs, text)
	})

	return strings.Join(paragraphs, "\n\n")
}
