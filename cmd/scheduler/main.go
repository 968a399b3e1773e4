package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newsradar-io/newsradar/internal/articles"
	"github.com/newsradar-io/newsradar/internal/config"
	"github.com/newsradar-io/newsradar/internal/database"
	"github.com/newsradar-io/newsradar/internal/engine"
	"github.com/newsradar-io/newsradar/internal/events"
	"github.com/newsradar-io/newsradar/internal/history"
	"github.com/newsradar-io/newsradar/internal/keywords"
	"github.com/newsradar-io/newsradar/internal/quota"
	iredis "github.com/newsradar-io/newsradar/internal/redis"
	"github.com/newsradar-io/newsradar/internal/rss"
	"github.com/newsradar-io/newsradar/internal/scheduler"
	"github.com/newsradar-io/newsradar/internal/search"
	"github.com/newsradar-io/newsradar/internal/sentiment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Collector.Timezone)
	if err != nil {
		slog.Error("loading collector timezone", "error", err)
		os.Exit(1)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	var publisher *events.Publisher
	var consumerMgr *events.ConsumerManager
	if cfg.NATS.Enabled {
		natsClient, err := events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = events.NewPublisher(natsClient.JetStream())
		consumerMgr = events.NewConsumerManager(natsClient.JetStream())
	}

	keywordRepo := keywords.NewRepository(pool)
	articleRepo := articles.NewRepository(pool)
	articleCache := articles.NewCache(redisClient)
	historySvc := history.NewService(history.NewRepository(pool), loc)
	quotaSvc := quota.NewService(quota.NewRepository(pool), keywordRepo, cfg.Quota.DailyBudget, cfg.Quota.ResetHourUTC)

	searchClient, err := search.NewClient(cfg.Search.APIKey, cfg.Search.CX, cfg.Search.Timeout)
	if err != nil {
		slog.Error("creating search client", "error", err)
		os.Exit(1)
	}
	var feeds engine.FeedCollector
	if len(cfg.Collector.FeedURLs) > 0 {
		feeds = rss.NewCollector(cfg.Collector.FeedURLs, cfg.Search.Timeout)
	}

	eng := engine.New(historySvc, quotaSvc, searchClient, feeds,
		articleRepo, articleCache, keywordRepo, sentiment.NewAnalyzer(), publisher,
		engine.Config{
			MaxResultsPerGap: cfg.Collector.MaxResults,
			RecentLimit:      cfg.Collector.RecentLimit,
			CacheTTL:         cfg.Collector.CacheTTL,
			CacheMaxEntries:  cfg.Collector.CacheMaxEntries,
		})

	sched := scheduler.New(eng, consumerMgr, engine.RunnerConfig{
		StaleAfter:  cfg.Collector.StaleAfter,
		BatchSize:   cfg.Collector.BatchSize,
		Concurrency: cfg.Collector.Concurrency,
	}, cfg.Collector.StaleAfter)

	if err := sched.Start(ctx); err != nil {
		slog.Error("scheduler error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
