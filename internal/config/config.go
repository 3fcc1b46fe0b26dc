package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Провайдеры языковой модели.
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// Бэкенды кэша статей.
const (
	CacheBackendFile   = "file"
	CacheBackendSQLite = "sqlite"
	CacheBackendRedis  = "redis"
)

const defaultFeedURL = "https://www.inoreader.com/stream/user/1005507650/tag/%E5%9B%BD%E5%86%85%E5%87%BA%E7%89%88%E5%95%86%E5%85%AC%E4%BC%97%E5%8F%B7"

type (
	// Root объединяет все конфигурационные блоки.
	Root struct {
		Pipeline   Pipeline   `yaml:"pipeline"`
		Feeds      []Feed     `yaml:"feeds"`
		Filter     Filter     `yaml:"filter"`
		LLM        LLM        `yaml:"llm"`
		Summarizer Summarizer `yaml:"summarizer"`
		TTS        TTS        `yaml:"tts"`
		Cache      Cache      `yaml:"cache"`
		Index      Index      `yaml:"index"`
		Output     Output     `yaml:"output"`
		Storage    Storage    `yaml:"storage"`
		Server     Server     `yaml:"server"`
		Log        Log        `yaml:"log"`
	}

	// Pipeline описывает параметры сбора статей.
	Pipeline struct {
		MaxArticles     int           `yaml:"max_articles"`
		PerRequestDelay time.Duration `yaml:"per_request_delay"` // пауза вежливости между сетевыми запросами
		HTTPTimeout     time.Duration `yaml:"http_timeout"`
	}

	// Feed - одна лента агрегатора. Pages > 1 разворачивается в постраничные варианты URL.
	Feed struct {
		Name     string `yaml:"name"`
		URL      string `yaml:"url"`
		Pages    int    `yaml:"pages"`
		PageSize int    `yaml:"page_size"`
	}

	// Filter содержит правила отсева статей.
	Filter struct {
		MinContentLength      int      `yaml:"min_content_length"`
		PrefixWindow          int      `yaml:"prefix_window"`
		TitleKeywords         []string `yaml:"title_keywords"`
		ContentPrefixKeywords []string `yaml:"content_prefix_keywords"`
	}

	// LLM описывает провайдера и модели.
	LLM struct {
		Provider     string        `yaml:"provider"`
		BaseURL      string        `yaml:"base_url"` // только для openrouter
		SummaryModel string        `yaml:"summary_model"`
		ScriptModel  string        `yaml:"script_model"`
		TitleModel   string        `yaml:"title_model"`
		Timeout      time.Duration `yaml:"timeout"`
	}

	// Summarizer содержит настройки батчей и повторов.
	Summarizer struct {
		BatchSize         int           `yaml:"batch_size"`
		RequestsPerMinute int           `yaml:"requests_per_minute"`
		BatchCooldown     time.Duration `yaml:"batch_cooldown"` // если 0 - вычисляется из requests_per_minute
		MaxAttempts       int           `yaml:"max_attempts"`
		RetryBaseDelay    time.Duration `yaml:"retry_base_delay"`
	}

	// TTS описывает синтез речи.
	TTS struct {
		Enabled     bool          `yaml:"enabled"`
		Endpoint    string        `yaml:"endpoint"`
		ReferenceID string        `yaml:"reference_id"`
		Timeout     time.Duration `yaml:"timeout"`
	}

	// Cache описывает хранилище обработанных URL.
	Cache struct {
		Backend     string        `yaml:"backend"`
		Path        string        `yaml:"path"` // файл JSON или база SQLite
		TTL         time.Duration `yaml:"ttl"`
		DedupWindow time.Duration `yaml:"dedup_window"`
		RedisAddr   string        `yaml:"redis_addr"`
		RedisDB     int           `yaml:"redis_db"`
		RedisKey    string        `yaml:"redis_key"`
	}

	// Index описывает индекс выпусков.
	Index struct {
		SourceURL  string `yaml:"source_url"` // удалённый индекс (например, ветка gh-pages); пусто - локальный файл
		File       string `yaml:"file"`
		MaxEntries int    `yaml:"max_entries"`
		S3Key      string `yaml:"s3_key"`
	}

	// Output описывает каталоги с артефактами.
	Output struct {
		PublicDir   string `yaml:"public_dir"`
		PodcastsDir string `yaml:"podcasts_dir"`
	}

	// Storage - необязательная выгрузка в S3.
	Storage struct {
		S3Bucket     string `yaml:"s3_bucket"`
		S3Prefix     string `yaml:"s3_prefix"`
		S3Region     string `yaml:"s3_region"`
		S3Profile    string `yaml:"s3_profile"`
		UsePathStyle bool   `yaml:"use_path_style"`
	}

	// Server - статический сервер каталога public.
	Server struct {
		Addr string `yaml:"addr"`
	}

	// Log - уровень и файл журнала.
	Log struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	}
)

// Load читает файл конфигурации и подставляет значения по умолчанию.
func Load(path string) (Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Root{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Root
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Root{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg.WithDefaults(), nil
}

// WithDefaults возвращает копию конфигурации, где нулевые значения заменены дефолтными.
func (r Root) WithDefaults() Root {
	if r.Pipeline.MaxArticles <= 0 {
		r.Pipeline.MaxArticles = 100
	}
	if r.Pipeline.PerRequestDelay < 0 {
		r.Pipeline.PerRequestDelay = 0
	}
	if r.Pipeline.HTTPTimeout <= 0 {
		r.Pipeline.HTTPTimeout = 30 * time.Second
	}

	if len(r.Feeds) == 0 {
		r.Feeds = []Feed{{Name: "inoreader", URL: defaultFeedURL, Pages: 5, PageSize: 20}}
	}
	for i := range r.Feeds {
		if r.Feeds[i].Pages <= 0 {
			r.Feeds[i].Pages = 1
		}
		if r.Feeds[i].PageSize <= 0 {
			r.Feeds[i].PageSize = 20
		}
	}

	if r.Filter.MinContentLength <= 0 {
		r.Filter.MinContentLength = 500
	}
	if r.Filter.PrefixWindow <= 0 {
		r.Filter.PrefixWindow = 100
	}
	if r.Filter.TitleKeywords == nil {
		r.Filter.TitleKeywords = []string{"招聘", "会议", "党委", "表彰", "招募"}
	}
	if r.Filter.ContentPrefixKeywords == nil {
		r.Filter.ContentPrefixKeywords = []string{"招募", "诚聘", "报名"}
	}

	if r.LLM.Provider == "" {
		r.LLM.Provider = ProviderGemini
	}
	if r.LLM.SummaryModel == "" {
		if r.LLM.Provider == ProviderOpenRouter {
			r.LLM.SummaryModel = "qwen/qwen-turbo"
		} else {
			r.LLM.SummaryModel = "gemini-2.5-flash"
		}
	}
	if r.LLM.ScriptModel == "" {
		r.LLM.ScriptModel = r.LLM.SummaryModel
	}
	if r.LLM.TitleModel == "" {
		r.LLM.TitleModel = r.LLM.SummaryModel
	}
	if r.LLM.BaseURL == "" && r.LLM.Provider == ProviderOpenRouter {
		r.LLM.BaseURL = "https://openrouter.ai/api/v1"
	}
	if r.LLM.Timeout <= 0 {
		r.LLM.Timeout = 180 * time.Second
	}

	if r.Summarizer.BatchSize <= 0 {
		r.Summarizer.BatchSize = 5
	}
	if r.Summarizer.RequestsPerMinute <= 0 {
		r.Summarizer.RequestsPerMinute = 20
	}
	if r.Summarizer.MaxAttempts <= 0 {
		r.Summarizer.MaxAttempts = 3
	}
	if r.Summarizer.RetryBaseDelay <= 0 {
		r.Summarizer.RetryBaseDelay = 2 * time.Second
	}

	if r.TTS.Endpoint == "" {
		r.TTS.Endpoint = "https://api.fish.audio/v1/tts"
	}
	if r.TTS.ReferenceID == "" {
		r.TTS.ReferenceID = "57eab548c7ed4ddc974c4c153cb015b2"
	}

	if r.Cache.Backend == "" {
		r.Cache.Backend = CacheBackendFile
	}
	if r.Cache.Path == "" {
		if r.Cache.Backend == CacheBackendSQLite {
			r.Cache.Path = "article_cache.db"
		} else {
			r.Cache.Path = "article_cache.json"
		}
	}
	if r.Cache.TTL <= 0 {
		r.Cache.TTL = 7 * 24 * time.Hour
	}
	if r.Cache.DedupWindow <= 0 {
		r.Cache.DedupWindow = r.Cache.TTL
	}
	if r.Cache.RedisAddr == "" {
		r.Cache.RedisAddr = "localhost:6379"
	}
	if r.Cache.RedisKey == "" {
		r.Cache.RedisKey = "radio:article_cache"
	}

	if r.Output.PublicDir == "" {
		r.Output.PublicDir = filepath.Join("web", "public")
	}
	if r.Output.PodcastsDir == "" {
		r.Output.PodcastsDir = filepath.Join(r.Output.PublicDir, "podcasts")
	}

	if r.Index.File == "" {
		r.Index.File = filepath.Join(r.Output.PublicDir, "podcast_index.json")
	}
	if r.Index.MaxEntries <= 0 || r.Index.MaxEntries > 50 {
		r.Index.MaxEntries = 50
	}
	if r.Index.S3Key == "" {
		r.Index.S3Key = "podcast_index.json"
	}

	if r.Server.Addr == "" {
		r.Server.Addr = "localhost:8000"
	}
	if r.Log.Level == "" {
		r.Log.Level = "info"
	}
	return r
}
