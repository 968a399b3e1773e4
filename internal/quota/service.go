package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UsageStore is the durable side of the allocator: additive usage counters
// keyed by effective date.
type UsageStore interface {
	IncrementUsage(ctx context.Context, userID uuid.UUID, keywordID *uuid.UUID, count int, usageDate time.Time) error
	UserDailyUsage(ctx context.Context, userID uuid.UUID, usageDate time.Time) (int, error)
	KeywordDailyUsage(ctx context.Context, userID uuid.UUID, keywordID uuid.UUID, usageDate time.Time) (int, error)
}

// ActivityCounter supplies the live population counts the fair shares are
// derived from.
type ActivityCounter interface {
	ActiveUserCount(ctx context.Context) (int, error)
	ActiveKeywordCount(ctx context.Context, userID uuid.UUID) (int, error)
}

// Service partitions the search provider's fixed daily call budget fairly
// across active users and their keywords, and answers admission checks
// against a timezone-shifted daily reset.
//
// Admission is check-then-act, not an atomic reservation: concurrent
// checkers can together overshoot by up to callers−1 calls. With the small
// caller population and the low cost of a single extra search call, that
// is accepted rather than paying for locking.
type Service struct {
	store       UsageStore
	activity    ActivityCounter
	dailyBudget int
	resetHour   int
	now         func() time.Time
}

// NewService creates a quota Service for the given daily global budget and
// provider reset hour (UTC).
func NewService(store UsageStore, activity ActivityCounter, dailyBudget, resetHourUTC int) *Service {
	if dailyBudget < 0 {
		dailyBudget = 0
	}
	if resetHourUTC < 0 {
		resetHourUTC = 0
	} else if resetHourUTC > 23 {
		resetHourUTC = 23
	}
	return &Service{
		store:       store,
		activity:    activity,
		dailyBudget: dailyBudget,
		resetHour:   resetHourUTC,
		now:         time.Now,
	}
}

// Snapshot recomputes the user's (and optionally one keyword's) quota and
// usage for the current effective date. Nothing here is cached.
func (s *Service) Snapshot(ctx context.Context, userID uuid.UUID, keywordID *uuid.UUID) (Snapshot, error) {
	usageDate := EffectiveDate(s.resetHour, s.now())

	activeUsers, err := s.activity.ActiveUserCount(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("counting active users: %w", err)
	}
	if activeUsers < 1 {
		activeUsers = 1
	}

	userQuota := 0
	if s.dailyBudget > 0 {
		userQuota = s.dailyBudget / activeUsers
		if userQuota < 1 {
			userQuota = 1
		}
	}

	activeKeywords, err := s.activity.ActiveKeywordCount(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("counting active keywords: %w", err)
	}

	// A user with no active keywords keeps the full undivided share.
	keywordQuota := userQuota
	if activeKeywords > 0 {
		keywordQuota = userQuota / activeKeywords
		if keywordQuota < 1 && userQuota > 0 {
			keywordQuota = 1
		}
	}

	userUsed, err := s.store.UserDailyUsage(ctx, userID, usageDate)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetching user usage: %w", err)
	}

	keywordUsed := 0
	if keywordID != nil {
		keywordUsed, err = s.store.KeywordDailyUsage(ctx, userID, *keywordID, usageDate)
		if err != nil {
			return Snapshot{}, fmt.Errorf("fetching keyword usage: %w", err)
		}
	}

	return Snapshot{
		UsageDate:    usageDate,
		UserQuota:    userQuota,
		KeywordQuota: keywordQuota,
		UserUsed:     userUsed,
		KeywordUsed:  keywordUsed,
	}, nil
}

// CanSpend reports whether the user (and, if given, the keyword) may spend
// n more search calls today.
func (s *Service) CanSpend(ctx context.Context, userID uuid.UUID, keywordID *uuid.UUID, n int) (bool, error) {
	if n <= 0 {
		return true, nil
	}

	snap, err := s.Snapshot(ctx, userID, keywordID)
	if err != nil {
		return false, err
	}

	if snap.UserRemaining() < n {
		return false, nil
	}
	if keywordID != nil && snap.KeywordRemaining() < n {
		return false, nil
	}
	return true, nil
}

// RecordUsage attributes n spent calls to the current effective date. Call
// it only after the external call actually succeeded; failed calls must
// record nothing.
func (s *Service) RecordUsage(ctx context.Context, userID uuid.UUID, keywordID *uuid.UUID, n int) error {
	if n <= 0 {
		return nil
	}
	return s.store.IncrementUsage(ctx, userID, keywordID, n, EffectiveDate(s.resetHour, s.now()))
}

// NextReset returns the next provider reset instant.
func (s *Service) NextReset() time.Time {
	return NextResetAt(s.resetHour, s.now())
}
