package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// Search API credentials
	if c.Search.APIKey == "" {
		errs = append(errs, "SEARCH_API_KEY is required")
	}
	if c.Search.CX == "" {
		errs = append(errs, "SEARCH_CX is required")
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Quota partitioning
	if c.Quota.DailyBudget < 0 {
		errs = append(errs, fmt.Sprintf("QUOTA_DAILY_BUDGET must not be negative, got %d", c.Quota.DailyBudget))
	}
	if c.Quota.ResetHourUTC < 0 || c.Quota.ResetHourUTC > 23 {
		errs = append(errs, fmt.Sprintf("QUOTA_RESET_HOUR must be 0-23, got %d", c.Quota.ResetHourUTC))
	}
	if c.Tokens.DailyLimit < 0 {
		errs = append(errs, fmt.Sprintf("TOKENS_DAILY_LIMIT must not be negative, got %d", c.Tokens.DailyLimit))
	}

	// Collector
	if _, err := time.LoadLocation(c.Collector.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("COLLECTOR_TIMEZONE %q is not a valid IANA zone", c.Collector.Timezone))
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Gemini key: digests are optional, warn only
	if c.Gemini.APIKey == "" {
		slog.Warn("GEMINI_API_KEY is empty, summary generation is disabled")
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
