package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newsradar-io/newsradar/internal/api"
	"github.com/newsradar-io/newsradar/internal/articles"
	"github.com/newsradar-io/newsradar/internal/collect"
	"github.com/newsradar-io/newsradar/internal/config"
	"github.com/newsradar-io/newsradar/internal/database"
	"github.com/newsradar-io/newsradar/internal/engine"
	"github.com/newsradar-io/newsradar/internal/events"
	"github.com/newsradar-io/newsradar/internal/history"
	"github.com/newsradar-io/newsradar/internal/keywords"
	"github.com/newsradar-io/newsradar/internal/middleware"
	"github.com/newsradar-io/newsradar/internal/pending"
	"github.com/newsradar-io/newsradar/internal/quota"
	iredis "github.com/newsradar-io/newsradar/internal/redis"
	"github.com/newsradar-io/newsradar/internal/rss"
	"github.com/newsradar-io/newsradar/internal/search"
	"github.com/newsradar-io/newsradar/internal/sentiment"
	"github.com/newsradar-io/newsradar/internal/server"
	"github.com/newsradar-io/newsradar/internal/summary"
	"github.com/newsradar-io/newsradar/internal/tokens"
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

	// PostgreSQL
	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		slog.Error("applying migrations", "error", err)
		os.Exit(1)
	}
	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		slog.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Redis
	redisClient, err := iredis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// NATS (optional)
	var natsClient *events.Client
	var publisher *events.Publisher
	if cfg.NATS.Enabled {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to NATS", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		publisher = events.NewPublisher(natsClient.JetStream())
	}

	// Repositories
	keywordRepo := keywords.NewRepository(pool)
	articleRepo := articles.NewRepository(pool)
	articleCache := articles.NewCache(redisClient)
	historySvc := history.NewService(history.NewRepository(pool), loc)
	quotaSvc := quota.NewService(quota.NewRepository(pool), keywordRepo, cfg.Quota.DailyBudget, cfg.Quota.ResetHourUTC)
	predictor := tokens.NewPredictor(tokens.NewRepository(pool), cfg.Tokens.DailyLimit, loc)

	// Collectors
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

	// Summaries (optional, needs a Gemini key)
	var summarySvc *summary.Service
	if cfg.Gemini.APIKey != "" {
		gen, err := summary.NewGeminiGenerator(ctx, cfg.Gemini.APIKey)
		if err != nil {
			slog.Error("creating gemini client", "error", err)
			os.Exit(1)
		}
		defer gen.Close()
		summarySvc = summary.NewService(gen, predictor, pending.NewRegistry(pending.DefaultTTL), redisClient)
	}

	handler := collect.NewHandler(collect.Deps{
		Engine:      eng,
		Gaps:        historySvc,
		Quota:       quotaSvc,
		Predictor:   predictor,
		Summary:     summarySvc,
		ArticleRepo: articleRepo,
		ArticleCach: articleCache,
		KeywordRepo: keywordRepo,
		Publisher:   publisher,
		RecentLimit: cfg.Collector.RecentLimit,
	})

	collectLimiter := middleware.NewRateLimiter(redisClient, "collect", 10, 60)

	router := api.NewRouter(pool, natsClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CollectRateLimiter: collectLimiter.Middleware,
	}, api.HandlerSet{
		ListArticles:    handler.ListArticles,
		PreviewGaps:     handler.PreviewGaps,
		TriggerCollect:  handler.TriggerCollect,
		GenerateSummary: handler.GenerateSummary,
		GetQuota:        handler.GetQuota,
		GetTokens:       handler.GetTokens,
	})

	srv := server.New(cfg.Server, router)
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
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
