package history

import (
	"time"

	"github.com/newsradar-io/newsradar/internal/interval"
)

// CoverageGaps computes the minimal disjoint set of windows still requiring
// collection for a keyword, given the covered windows from its fetch ledger.
//
// Policy with no history: collect only the most recent single calendar day
// (bounded-cost default), never an unbounded backfill. Policy with history
// and no explicit request: collect from the day after the latest covered end
// through now. An explicit requested window is reduced by the covered
// windows and the leftovers merged.
//
// An empty result means full coverage; the caller must treat it as a cache
// hit and serve previously persisted results instead of spending a search
// call.
func CoverageGaps(covered []interval.Interval, requested *interval.Interval, now time.Time) []interval.Interval {
	if len(covered) == 0 {
		midnight := startOfDay(now)
		return []interval.Interval{interval.New(midnight.AddDate(0, 0, -1), midnight)}
	}

	if requested != nil {
		return interval.SubtractAll(*requested, covered)
	}

	latestEnd := covered[0].End
	for _, cov := range covered[1:] {
		if cov.End.After(latestEnd) {
			latestEnd = cov.End
		}
	}

	// Ledger endpoints are stored in UTC; the day boundary is defined in
	// the caller's display timezone.
	nextStart := startOfDay(latestEnd.In(now.Location())).AddDate(0, 0, 1)
	if !nextStart.Before(now) {
		return nil
	}
	return []interval.Interval{interval.New(nextStart, now)}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
