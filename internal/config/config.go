package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	Search    SearchConfig
	Gemini    GeminiConfig
	Quota     QuotaConfig
	Tokens    TokensConfig
	Collector CollectorConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

type SearchConfig struct {
	APIKey  string
	CX      string
	Timeout time.Duration
}

type GeminiConfig struct {
	APIKey string
}

type QuotaConfig struct {
	// DailyBudget is the shared number of API queries per effective day.
	DailyBudget int
	// ResetHourUTC shifts the daily boundary so it lands on a local
	// midnight, e.g. 15 for KST.
	ResetHourUTC int
}

type TokensConfig struct {
	DailyLimit int
}

type CollectorConfig struct {
	Timezone        string
	StaleAfter      time.Duration
	BatchSize       int
	Concurrency     int
	MaxResults      int
	RecentLimit     int
	CacheTTL        time.Duration
	CacheMaxEntries int
	FeedURLs        []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        k.String("server.host"),
			Port:        k.Int("server.port"),
			CORSOrigins: splitList(k.String("server.cors.origins")),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		NATS: NATSConfig{
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		Search: SearchConfig{
			APIKey: k.String("search.api.key"),
			CX:     k.String("search.cx"),
		},
		Gemini: GeminiConfig{
			APIKey: k.String("gemini.api.key"),
		},
		Quota: QuotaConfig{
			DailyBudget:  k.Int("quota.daily.budget"),
			ResetHourUTC: k.Int("quota.reset.hour"),
		},
		Tokens: TokensConfig{
			DailyLimit: k.Int("tokens.daily.limit"),
		},
		Collector: CollectorConfig{
			Timezone:        k.String("collector.timezone"),
			BatchSize:       k.Int("collector.batch.size"),
			Concurrency:     k.Int("collector.concurrency"),
			MaxResults:      k.Int("collector.max.results"),
			RecentLimit:     k.Int("collector.recent.limit"),
			CacheMaxEntries: k.Int("collector.cache.max.entries"),
			FeedURLs:        splitList(k.String("collector.feed.urls")),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "newsradar"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "newsradar"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.Quota.DailyBudget == 0 && !k.Exists("quota.daily.budget") {
		cfg.Quota.DailyBudget = 100
	}
	if cfg.Quota.ResetHourUTC == 0 && !k.Exists("quota.reset.hour") {
		cfg.Quota.ResetHourUTC = 15
	}
	if cfg.Tokens.DailyLimit == 0 {
		cfg.Tokens.DailyLimit = 1_000_000
	}
	if cfg.Collector.Timezone == "" {
		cfg.Collector.Timezone = "Asia/Seoul"
	}
	if cfg.Collector.BatchSize == 0 {
		cfg.Collector.BatchSize = 20
	}
	if cfg.Collector.Concurrency == 0 {
		cfg.Collector.Concurrency = 4
	}
	if cfg.Collector.MaxResults == 0 {
		cfg.Collector.MaxResults = 100
	}
	if cfg.Collector.RecentLimit == 0 {
		cfg.Collector.RecentLimit = 50
	}
	if cfg.Collector.CacheMaxEntries == 0 {
		cfg.Collector.CacheMaxEntries = 100
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	cfg.Search.Timeout, err = parseDuration(k.String("search.timeout"), "10s")
	if err != nil {
		return nil, fmt.Errorf("parsing search timeout: %w", err)
	}
	cfg.Collector.StaleAfter, err = parseDuration(k.String("collector.stale.after"), "30m")
	if err != nil {
		return nil, fmt.Errorf("parsing collector stale-after: %w", err)
	}
	cfg.Collector.CacheTTL, err = parseDuration(k.String("collector.cache.ttl"), "30m")
	if err != nil {
		return nil, fmt.Errorf("parsing collector cache ttl: %w", err)
	}

	return cfg, nil
}

func parseDuration(raw, fallback string) (time.Duration, error) {
	if raw == "" {
		raw = fallback
	}
	return time.ParseDuration(raw)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
