package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/maine/publishing_radio/internal/cache"
	"github.com/maine/publishing_radio/internal/config"
	"github.com/maine/publishing_radio/internal/filter"
	"github.com/maine/publishing_radio/internal/news"
)

var fetchNow = time.Date(2026, 6, 10, 9, 30, 0, 0, time.Local)

type memStore struct {
	mu      sync.Mutex
	records news.Records
	saves   int
}

func (m *memStore) Load(ctx context.Context) news.Records {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(news.Records, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out
}

func (m *memStore) Save(ctx context.Context, records news.Records) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = records
	m.saves++
	return nil
}

func (m *memStore) Remove(ctx context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, url)
	return nil
}

type mockContentFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	fn    func(url string) (string, error)
}

func (m *mockContentFetcher) FetchContent(ctx context.Context, url string) (string, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[url]++
	m.mu.Unlock()
	return m.fn(url)
}

type rssEntry struct {
	title, link, creator, source string
}

func rssDocument(entries ...rssEntry) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/">
<channel><title>国内出版商公众号</title><link>https://www.inoreader.com</link><description>tag</description>
`)
	for _, e := range entries {
		b.WriteString("<item>")
		fmt.Fprintf(&b, "<title>%s</title><link>%s</link>", e.title, e.link)
		b.WriteString("<pubDate>Tue, 09 Jun 2026 08:00:00 +0800</pubDate>")
		if e.creator != "" {
			fmt.Fprintf(&b, "<dc:creator>%s</dc:creator>", e.creator)
		}
		if e.source != "" {
			fmt.Fprintf(&b, `<source url="https://example.com/feed">%s</source>`, e.source)
		}
		b.WriteString("</item>\n")
	}
	b.WriteString("</channel></rss>")
	return b.String()
}

func longBody() string {
	return strings.Repeat("出版行业数字化转型持续推进。", 50)
}

func newTestFetcher(store cache.Store, content ContentFetcher) *FeedFetcher {
	f := filter.New(config.Root{}.WithDefaults().Filter)
	return NewFeedFetcher(nil, store, content, f, 7*24*time.Hour, func() time.Time { return fetchNow })
}

func TestFeedFetcher_DedupAcrossVariants(t *testing.T) {
	doc := rssDocument(
		rssEntry{title: "图书市场观察", link: "https://example.com/a", creator: "张三", source: "出版商务周报"},
		rssEntry{title: "数字阅读报告", link: "https://example.com/b"},
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, doc)
	}))
	defer srv.Close()

	store := &memStore{records: news.Records{}}
	content := &mockContentFetcher{fn: func(string) (string, error) { return longBody(), nil }}
	fetcher := newTestFetcher(store, content)

	articles, err := fetcher.Fetch(context.Background(), FetchRequest{
		SourceURLs:  []string{srv.URL + "/feed?p=1", srv.URL + "/feed?p=2"},
		MaxArticles: 10,
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("Fetch() = %d articles, want 2", len(articles))
	}
	for url, n := range content.calls {
		if n != 1 {
			t.Errorf("FetchContent(%s) called %d times, want 1", url, n)
		}
	}

	first := articles[0]
	if first.Author != "张三" {
		t.Errorf("Author = %q, want 张三", first.Author)
	}
	if first.Source != "出版商务周报" {
		t.Errorf("Source = %q, want 出版商务周报", first.Source)
	}
	if articles[1].Author != unknownAuthor {
		t.Errorf("Author = %q, want %q", articles[1].Author, unknownAuthor)
	}
	if articles[1].Source != "国内出版商公众号" {
		t.Errorf("Source = %q, want feed title", articles[1].Source)
	}

	if len(store.records) != 2 {
		t.Errorf("cache has %d records, want 2", len(store.records))
	}
	for url, rec := range store.records {
		if rec.FilterReason != "" {
			t.Errorf("record %s reason = %q, want empty", url, rec.FilterReason)
		}
	}
}

func TestFeedFetcher_FailedVariantIsSkipped(t *testing.T) {
	doc := rssDocument(rssEntry{title: "图书市场观察", link: "https://example.com/a"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/broken":
			http.Error(w, "boom", http.StatusInternalServerError)
		case "/empty":
			fmt.Fprint(w, rssDocument())
		default:
			fmt.Fprint(w, doc)
		}
	}))
	defer srv.Close()

	store := &memStore{records: news.Records{}}
	content := &mockContentFetcher{fn: func(string) (string, error) { return longBody(), nil }}
	fetcher := newTestFetcher(store, content)

	articles, err := fetcher.Fetch(context.Background(), FetchRequest{
		SourceURLs: []string{srv.URL + "/broken", srv.URL + "/empty", srv.URL + "/ok"},
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(articles) != 1 {
		t.Fatalf("Fetch() = %d articles, want 1", len(articles))
	}
}

func TestFeedFetcher_RecordsRejections(t *testing.T) {
	doc := rssDocument(
		rssEntry{title: "某出版社招聘编辑", link: "https://example.com/job"},
		rssEntry{title: "无法访问的文章", link: "https://example.com/down"},
		rssEntry{title: "短讯", link: "https://example.com/short"},
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, doc)
	}))
	defer srv.Close()

	store := &memStore{records: news.Records{}}
	content := &mockContentFetcher{fn: func(url string) (string, error) {
		switch url {
		case "https://example.com/down":
			return "", errors.New("timeout")
		case "https://example.com/short":
			return "太短了", nil
		default:
			return longBody(), nil
		}
	}}
	fetcher := newTestFetcher(store, content)

	articles, err := fetcher.Fetch(context.Background(), FetchRequest{SourceURLs: []string{srv.URL}})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(articles) != 0 {
		t.Fatalf("Fetch() = %v, want no articles", articles)
	}

	want := map[string]news.FilterReason{
		"https://example.com/job":   "title_keyword:招聘",
		"https://example.com/down":  news.ReasonFetchFailed,
		"https://example.com/short": news.ReasonTooShort,
	}
	for url, reason := range want {
		rec, ok := store.records[url]
		if !ok {
			t.Errorf("no cache record for %s", url)
			continue
		}
		if rec.FilterReason != reason {
			t.Errorf("record %s reason = %q, want %q", url, rec.FilterReason, reason)
		}
		if rec.Timestamp != fetchNow.Format(news.CacheTimeLayout) {
			t.Errorf("record %s timestamp = %q", url, rec.Timestamp)
		}
	}
}

func TestFeedFetcher_SkipsRecentlyCached(t *testing.T) {
	doc := rssDocument(
		rssEntry{title: "旧文章", link: "https://example.com/recent"},
		rssEntry{title: "过期缓存", link: "https://example.com/stale"},
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, doc)
	}))
	defer srv.Close()

	store := &memStore{records: news.Records{
		"https://example.com/recent": cache.NewRecord(fetchNow.Add(-24*time.Hour), news.ArticleData{Link: "https://example.com/recent"}, ""),
		"https://example.com/stale":  cache.NewRecord(fetchNow.Add(-8*24*time.Hour), news.ArticleData{Link: "https://example.com/stale"}, ""),
	}}
	content := &mockContentFetcher{fn: func(string) (string, error) { return longBody(), nil }}
	fetcher := newTestFetcher(store, content)

	articles, err := fetcher.Fetch(context.Background(), FetchRequest{SourceURLs: []string{srv.URL}})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(articles) != 1 || articles[0].Link != "https://example.com/stale" {
		t.Fatalf("Fetch() = %v, want only stale article", articles)
	}
	if content.calls["https://example.com/recent"] != 0 {
		t.Errorf("recently cached article was fetched again")
	}
}

func TestFeedFetcher_StopsAtMaxArticles(t *testing.T) {
	doc := rssDocument(
		rssEntry{title: "一", link: "https://example.com/1"},
		rssEntry{title: "二", link: "https://example.com/2"},
		rssEntry{title: "三", link: "https://example.com/3"},
	)
	var feedHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		feedHits.Add(1)
		fmt.Fprint(w, doc)
	}))
	defer srv.Close()

	store := &memStore{records: news.Records{}}
	content := &mockContentFetcher{fn: func(string) (string, error) { return longBody(), nil }}
	fetcher := newTestFetcher(store, content)

	articles, err := fetcher.Fetch(context.Background(), FetchRequest{
		SourceURLs:  []string{srv.URL + "/p1", srv.URL + "/p2"},
		MaxArticles: 2,
	})
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(articles) != 2 {
		t.Fatalf("Fetch() = %d articles, want 2", len(articles))
	}
	if hits := feedHits.Load(); hits != 1 {
		t.Errorf("feed requested %d times, want 1", hits)
	}
	if content.calls["https://example.com/3"] != 0 {
		t.Errorf("article beyond limit was fetched")
	}
}

func TestVariants(t *testing.T) {
	tests := []struct {
		name  string
		feeds []config.Feed
		want  []string
	}{
		{
			name:  "single page",
			feeds: []config.Feed{{URL: "https://example.com/rss", Pages: 1}},
			want:  []string{"https://example.com/rss"},
		},
		{
			name:  "paged",
			feeds: []config.Feed{{URL: "https://example.com/rss", Pages: 2, PageSize: 20}},
			want:  []string{"https://example.com/rss?n=20&p=1", "https://example.com/rss?n=20&p=2"},
		},
		{
			name:  "existing query",
			feeds: []config.Feed{{URL: "https://example.com/rss?tag=x", Pages: 2, PageSize: 5}},
			want:  []string{"https://example.com/rss?tag=x&n=5&p=1", "https://example.com/rss?tag=x&n=5&p=2"},
		},
		{
			name:  "blank url skipped",
			feeds: []config.Feed{{URL: "  "}},
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Variants(tt.feeds)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("Variants() = %v, want %v", got, tt.want)
			}
		})
	}
}
