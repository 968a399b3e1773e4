package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/newsradar-io/newsradar/internal/interval"
)

// Service loads a keyword's fetch ledger and computes coverage gaps over it.
// Gap boundaries are evaluated in the product's display timezone so that the
// "one calendar day" policies line up with what users see.
type Service struct {
	repo *Repository
	loc  *time.Location
	now  func() time.Time
}

// NewService creates a new history Service.
func NewService(repo *Repository, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{repo: repo, loc: loc, now: time.Now}
}

// ComputeGaps returns the windows still needing collection for the keyword.
// A nil requested window applies the default policies; an empty result is a
// cache hit.
func (s *Service) ComputeGaps(ctx context.Context, keywordID uuid.UUID, requested *interval.Interval) ([]interval.Interval, error) {
	entries, err := s.repo.ListByKeyword(ctx, keywordID)
	if err != nil {
		return nil, fmt.Errorf("loading ledger for gap computation: %w", err)
	}

	covered := make([]interval.Interval, 0, len(entries))
	for _, e := range entries {
		covered = append(covered, e.ActualRange())
	}

	return CoverageGaps(covered, requested, s.now().In(s.loc)), nil
}

// Record appends a ledger entry for a completed collection.
func (s *Service) Record(ctx context.Context, e Entry) error {
	if _, err := s.repo.Insert(ctx, e); err != nil {
		return err
	}
	return nil
}
