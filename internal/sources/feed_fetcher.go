package sources

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/rss"
	"golang.org/x/time/rate"

	"github.com/maine/publishing_radio/internal/cache"
	"github.com/maine/publishing_radio/internal/config"
	"github.com/maine/publishing_radio/internal/filter"
	"github.com/maine/publishing_radio/internal/news"
)

const (
	unknownAuthor = "未知作者"
	unknownSource = "未知来源"
)

// Classifier решает, принимать ли статью.
type Classifier interface {
	Classify(title, body string) filter.Decision
}

// FetchRequest - параметры одного сбора статей.
type FetchRequest struct {
	SourceURLs      []string
	MaxArticles     int
	PerRequestDelay time.Duration
}

// FeedFetcher собирает новые статьи из лент агрегатора.
type FeedFetcher struct {
	client      *http.Client
	store       cache.Store
	content     ContentFetcher
	classifier  Classifier
	dedupWindow time.Duration
	clock       func() time.Time
}

// NewFeedFetcher создаёт сборщик. dedupWindow - срок, в течение которого
// URL из кэша повторно не обрабатывается.
func NewFeedFetcher(client *http.Client, store cache.Store, content ContentFetcher, classifier Classifier, dedupWindow time.Duration, clock func() time.Time) *FeedFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if clock == nil {
		clock = time.Now
	}
	if dedupWindow <= 0 {
		dedupWindow = cache.DefaultTTL
	}
	return &FeedFetcher{
		client:      client,
		store:       store,
		content:     content,
		classifier:  classifier,
		dedupWindow: dedupWindow,
		clock:       clock,
	}
}

// Variants разворачивает ленты в список URL: постраничные варианты
// url?n=<page_size>&p=<page> или сам URL, если страница одна.
func Variants(feeds []config.Feed) []string {
	var urls []string
	for _, feed := range feeds {
		base := strings.TrimSpace(feed.URL)
		if base == "" {
			continue
		}
		if feed.Pages <= 1 {
			urls = append(urls, base)
			continue
		}
		sep := "?"
		if strings.Contains(base, "?") {
			sep = "&"
		}
		for page := 1; page <= feed.Pages; page++ {
			urls = append(urls, fmt.Sprintf("%s%sn=%d&p=%d", base, sep, feed.PageSize, page))
		}
	}
	return urls
}

// Fetch проходит варианты лент по порядку и возвращает принятые статьи.
//
// Каждая попытка обработки (успех, отказ фильтра, ошибка загрузки) записывается в кэш.
// Сбой одного варианта не прерывает сбор. Ошибка возвращается только при отмене контекста.
func (f *FeedFetcher) Fetch(ctx context.Context, req FetchRequest) ([]news.Article, error) {
	records := f.store.Load(ctx)
	seen := make(map[string]struct{})
	limiter := newPolitenessLimiter(req.PerRequestDelay)

	var (
		articles []news.Article
		runErr   error
	)

variants:
	for _, variantURL := range req.SourceURLs {
		if req.MaxArticles > 0 && len(articles) >= req.MaxArticles {
			break
		}

		if err := limiter.Wait(ctx); err != nil {
			runErr = err
			break
		}
		items, err := f.fetchFeed(ctx, variantURL)
		if err != nil {
			slog.Warn("feed variant failed, moving on", "url", variantURL, "error", err)
			continue
		}
		if len(items) == 0 {
			slog.Warn("feed variant is empty, moving on", "url", variantURL)
			continue
		}
		slog.Info("feed variant loaded", "url", variantURL, "entries", len(items))

		for _, item := range items {
			link := item.Link
			if link == "" {
				continue
			}
			if _, ok := seen[link]; ok {
				continue
			}
			if rec, ok := records[link]; ok && cache.IsFresh(rec, f.clock(), f.dedupWindow) {
				slog.Debug("skip recently processed article", "url", link, "title", item.Title)
				continue
			}
			seen[link] = struct{}{}

			if err := limiter.Wait(ctx); err != nil {
				runErr = err
				break variants
			}

			body, err := f.content.FetchContent(ctx, link)
			if err != nil {
				slog.Warn("article content unavailable", "url", link, "error", err)
				records[link] = cache.NewRecord(f.clock(), item, news.ReasonFetchFailed)
				continue
			}

			decision := f.classifier.Classify(item.Title, body)
			if !decision.Accept {
				slog.Info("article rejected", "url", link, "title", item.Title, "reason", decision.Reason)
				records[link] = cache.NewRecord(f.clock(), item, decision.Reason)
				continue
			}

			article := news.Article{
				Title:       item.Title,
				Author:      item.Author,
				Source:      item.Source,
				Link:        link,
				PublishedAt: item.PublishedAt,
				Content:     body,
			}
			articles = append(articles, article)
			records[link] = cache.NewRecord(f.clock(), article.Data(), "")
			slog.Info("article accepted", "url", link, "title", article.Title, "total", len(articles))

			if req.MaxArticles > 0 && len(articles) >= req.MaxArticles {
				slog.Info("max articles reached", "limit", req.MaxArticles)
				break variants
			}
		}
	}

	if err := f.store.Save(context.WithoutCancel(ctx), records); err != nil {
		slog.Warn("save article cache failed", "error", err)
	}

	slog.Info("fetch finished", "accepted", len(articles), "processed", len(seen))
	return articles, runErr
}

func (f *FeedFetcher) fetchFeed(ctx context.Context, feedURL string) ([]news.ArticleData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/rss+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	parser := gofeed.NewParser()
	parser.RSSTranslator = &sourceTranslator{}
	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	now := f.clock()
	items := make([]news.ArticleData, 0, len(feed.Items))
	for _, item := range feed.Items {
		items = append(items, itemData(feed, item, now))
	}
	return items, nil
}

func itemData(feed *gofeed.Feed, item *gofeed.Item, now time.Time) news.ArticleData {
	author := ""
	if item.Author != nil {
		author = strings.TrimSpace(item.Author.Name)
	}
	if author == "" && item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		author = strings.TrimSpace(item.DublinCoreExt.Creator[0])
	}
	if author == "" {
		author = unknownAuthor
	}

	source := strings.TrimSpace(item.Custom[customSourceKey])
	if source == "" {
		source = strings.TrimSpace(feed.Title)
	}
	if source == "" {
		source = unknownSource
	}

	published := now
	if item.PublishedParsed != nil {
		published = item.PublishedParsed.In(now.Location())
	} else if item.UpdatedParsed != nil {
		published = item.UpdatedParsed.In(now.Location())
	}

	return news.ArticleData{
		Title:       strings.TrimSpace(item.Title),
		Author:      author,
		Source:      source,
		Link:        strings.TrimSpace(item.Link),
		PublishedAt: published.Format(news.CacheTimeLayout),
	}
}

const customSourceKey = "source"

// sourceTranslator дополняет стандартный перевод RSS элементом <source>:
// агрегатор указывает в нём исходное издание статьи.
type sourceTranslator struct {
	gofeed.DefaultRSSTranslator
}

func (t *sourceTranslator) Translate(feed interface{}) (*gofeed.Feed, error) {
	rssFeed, ok := feed.(*rss.Feed)
	if !ok {
		return nil, fmt.Errorf("feed did not match expected type of *rss.Feed")
	}

	result, err := t.DefaultRSSTranslator.Translate(rssFeed)
	if err != nil {
		return nil, err
	}

	for i, item := range rssFeed.Items {
		if i >= len(result.Items) || item.Source == nil || item.Source.Title == "" {
			continue
		}
		if result.Items[i].Custom == nil {
			result.Items[i].Custom = make(map[string]string)
		}
		result.Items[i].Custom[customSourceKey] = item.Source.Title
	}
	return result, nil
}

// newPolitenessLimiter ограничивает частоту сетевых запросов одним запросом за delay.
func newPolitenessLimiter(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}
