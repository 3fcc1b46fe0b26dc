package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maine/publishing_radio/internal/app"
	"github.com/maine/publishing_radio/internal/cache"
	"github.com/maine/publishing_radio/internal/config"
	"github.com/maine/publishing_radio/internal/filter"
	"github.com/maine/publishing_radio/internal/formatter"
	"github.com/maine/publishing_radio/internal/index"
	"github.com/maine/publishing_radio/internal/llm"
	"github.com/maine/publishing_radio/internal/sources"
	"github.com/maine/publishing_radio/internal/storage"
	"github.com/maine/publishing_radio/internal/tts"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch articles, summarize them and publish one episode",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, closeLog, err := loadConfig()
		if err != nil {
			return err
		}
		defer closeLog()

		env, err := config.LoadEnvConfig(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return runPipeline(ctx, cfg, env)
	},
}

func runPipeline(ctx context.Context, cfg config.Root, env *config.EnvConfig) error {
	store, closeCache, err := cache.Open(ctx, cfg.Cache, env.RedisPassword, nil)
	if err != nil {
		return err
	}
	defer closeCache()

	completer, err := newCompleter(ctx, cfg.LLM, env)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.Pipeline.HTTPTimeout}
	fetcher := sources.NewFeedFetcher(
		httpClient,
		store,
		sources.NewHTMLContentFetcher(httpClient),
		filter.New(cfg.Filter),
		cfg.Cache.DedupWindow,
		nil,
	)

	retry := llm.RetryPolicy{
		MaxAttempts: cfg.Summarizer.MaxAttempts,
		BaseDelay:   cfg.Summarizer.RetryBaseDelay,
	}

	var synthesizer app.Synthesizer
	if cfg.TTS.Enabled {
		synthesizer = tts.NewFishAudio(cfg.TTS.Endpoint, env.FishAPIKey, cfg.TTS.ReferenceID, cfg.TTS.Timeout)
	}

	localIndex := index.NewFileStore(cfg.Index.File)
	var (
		indexSource index.Source = localIndex
		indexSinks               = []index.Sink{localIndex}
		uploader    app.Uploader
	)

	if cfg.Storage.S3Bucket != "" {
		objects, err := storage.NewS3(ctx, storage.S3Config{
			Bucket:       cfg.Storage.S3Bucket,
			Prefix:       cfg.Storage.S3Prefix,
			Region:       cfg.Storage.S3Region,
			Profile:      cfg.Storage.S3Profile,
			UsePathStyle: cfg.Storage.UsePathStyle,
		})
		if err != nil {
			return err
		}
		remoteIndex := index.NewObjectStore(objects, cfg.Index.S3Key)
		indexSource = remoteIndex
		indexSinks = append(indexSinks, remoteIndex)
		uploader = app.NewS3Uploader(objects)
	}
	if cfg.Index.SourceURL != "" {
		indexSource = index.NewHTTPSource(cfg.Index.SourceURL, httpClient)
	}

	pipeline := app.NewPipeline(app.PipelineDeps{
		Fetcher:     fetcher,
		Summarizer:  llm.NewBatchSummarizer(completer, cfg.LLM.SummaryModel, retry, cfg.Summarizer.BatchCooldown),
		Composer:    llm.NewScriptComposer(completer, cfg.LLM.ScriptModel, cfg.LLM.TitleModel, retry),
		Writer:      formatter.NewWriter(),
		Synthesizer: synthesizer,
		Publisher:   index.NewPublisher(indexSource, indexSinks, cfg.Index.MaxEntries),
		Uploader:    uploader,
	}, app.PipelineOptions{
		Fetch: sources.FetchRequest{
			SourceURLs:      sources.Variants(cfg.Feeds),
			MaxArticles:     cfg.Pipeline.MaxArticles,
			PerRequestDelay: cfg.Pipeline.PerRequestDelay,
		},
		BatchSize:         cfg.Summarizer.BatchSize,
		RequestsPerMinute: cfg.Summarizer.RequestsPerMinute,
		PodcastsDir:       cfg.Output.PodcastsDir,
	})

	result, err := pipeline.Run(ctx)
	if err != nil {
		fmt.Printf("run %s: %s (%s)\n", result.ID, result.Stage, result.Reason)
		return err
	}

	fmt.Printf("run %s: %s, %d articles, %d summaries, dir %s\n", result.ID, result.Stage, result.Articles, result.Summaries, result.Dir)
	return nil
}

func newCompleter(ctx context.Context, cfg config.LLM, env *config.EnvConfig) (llm.Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenRouter:
		slog.Info("using openrouter", "base_url", cfg.BaseURL, "model", cfg.SummaryModel)
		return llm.NewOpenRouterClient(cfg.BaseURL, env.OpenRouterAPIKey, cfg.Timeout, nil), nil
	default:
		slog.Info("using gemini", "model", cfg.SummaryModel)
		return llm.NewGeminiClient(ctx, env.GeminiAPIKey)
	}
}
