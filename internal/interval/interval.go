package interval

import (
	"sort"
	"time"
)

// Interval is a closed UTC time range. Start == End means empty.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// New returns the interval [start, end] with both bounds normalized to UTC.
func New(start, end time.Time) Interval {
	return Interval{Start: start.UTC(), End: end.UTC()}
}

// IsEmpty reports whether the interval covers no time at all.
func (iv Interval) IsEmpty() bool {
	return !iv.Start.Before(iv.End)
}

// Overlaps reports whether iv and other share at least one instant.
// Touching boundaries count as overlap.
func (iv Interval) Overlaps(other Interval) bool {
	return !iv.Start.After(other.End) && !iv.End.Before(other.Start)
}

// Exclude returns the portion(s) of iv not covered by other:
// zero, one, or two pieces.
func (iv Interval) Exclude(other Interval) []Interval {
	if !iv.Overlaps(other) {
		return []Interval{iv}
	}

	var out []Interval
	if iv.Start.Before(other.Start) {
		out = append(out, Interval{Start: iv.Start, End: other.Start})
	}
	if iv.End.After(other.End) {
		out = append(out, Interval{Start: other.End, End: iv.End})
	}
	return out
}

// Duration returns the length of the interval, zero if empty.
func (iv Interval) Duration() time.Duration {
	if iv.IsEmpty() {
		return 0
	}
	return iv.End.Sub(iv.Start)
}

// SubtractAll removes every covered interval from candidate and returns the
// remaining pieces, sorted by start with touching or overlapping neighbors
// merged. The result is the minimal disjoint set of sub-intervals of
// candidate not covered by any element of covered.
func SubtractAll(candidate Interval, covered []Interval) []Interval {
	if candidate.IsEmpty() {
		return nil
	}

	remaining := []Interval{candidate}
	for _, cov := range covered {
		if cov.IsEmpty() {
			continue
		}
		var next []Interval
		for _, block := range remaining {
			for _, piece := range block.Exclude(cov) {
				if !piece.IsEmpty() {
					next = append(next, piece)
				}
			}
		}
		remaining = next
		if len(remaining) == 0 {
			return nil
		}
	}

	return Merge(remaining)
}

// Merge sorts intervals by start and coalesces any whose boundaries touch
// or overlap. Empty intervals are discarded.
func Merge(ivs []Interval) []Interval {
	var nonEmpty []Interval
	for _, iv := range ivs {
		if !iv.IsEmpty() {
			nonEmpty = append(nonEmpty, iv)
		}
	}
	if len(nonEmpty) == 0 {
		return nil
	}

	sort.Slice(nonEmpty, func(i, j int) bool {
		return nonEmpty[i].Start.Before(nonEmpty[j].Start)
	})

	merged := []Interval{nonEmpty[0]}
	for _, cur := range nonEmpty[1:] {
		last := &merged[len(merged)-1]
		if !last.End.Before(cur.Start) {
			if cur.End.After(last.End) {
				last.End = cur.End
			}
			continue
		}
		merged = append(merged, cur)
	}
	return merged
}
