package tokens

import (
	"time"
	"unicode/utf8"
)

// UsageDay matches the token_usage table schema: one row per calendar day,
// additively incremented.
type UsageDay struct {
	Date         time.Time  `json:"date"`
	TotalTokens  int        `json:"total_tokens"`
	InputTokens  int        `json:"input_tokens"`
	OutputTokens int        `json:"output_tokens"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`
}

// Status is the API view of today's token budget.
type Status struct {
	TodayUsage      int       `json:"today_usage"`
	DailyLimit      int       `json:"daily_limit"`
	UsagePercent    float64   `json:"usage_percent"`
	PredictedDaily  int       `json:"predicted_daily_usage"`
	IsLimitExceeded bool      `json:"is_limit_exceeded"`
	CanMakeRequest  bool      `json:"can_make_request"`
	ResetAt         time.Time `json:"reset_at"`
}

// EstimateTokens approximates a token count from text length when the
// generation API does not report real usage. Four characters per token is
// coarse but errs high for most Latin-script prose, which is the safe
// direction for budget accounting.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	est := n / 4
	if est < 1 {
		est = 1
	}
	return est
}
