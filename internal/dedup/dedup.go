package dedup

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"

	"github.com/mfonda/simhash"

	"github.com/newsradar-io/newsradar/internal/articles"
)

// Filter removes already-seen and near-duplicate candidates within one
// filtering pass. Cross-run duplicates are caught later by the URL
// uniqueness constraint on the articles table, so the seen-sets here are
// deliberately scoped to a single batch.
//
// Title matching is a heuristic: two articles are near-duplicates when
// their simhash fingerprints are identical. Near-miss variants slipping
// through is accepted, not a defect.
type Filter struct {
	seenURLs         map[string]struct{}
	seenFingerprints map[uint64]struct{}
	malformed        int
	duplicates       int
}

// NewFilter creates a filter for one batch.
func NewFilter() *Filter {
	return &Filter{
		seenURLs:         make(map[string]struct{}),
		seenFingerprints: make(map[uint64]struct{}),
	}
}

// FilterDuplicates returns the candidates that are neither already seen by
// normalized URL nor title near-duplicates of an earlier candidate.
// First occurrence wins; output preserves input order minus drops.
func (f *Filter) FilterDuplicates(cands []articles.Candidate) []articles.Candidate {
	kept := make([]articles.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.URL == "" {
			f.malformed++
			continue
		}

		urlHash := hashURL(NormalizeURL(c.URL))
		if _, seen := f.seenURLs[urlHash]; seen {
			f.duplicates++
			continue
		}

		fp := Fingerprint(c.Title)
		if _, seen := f.seenFingerprints[fp]; seen {
			f.duplicates++
			continue
		}

		f.seenURLs[urlHash] = struct{}{}
		f.seenFingerprints[fp] = struct{}{}
		kept = append(kept, c)
	}
	return kept
}

// Malformed returns how many candidates were dropped for missing a URL.
func (f *Filter) Malformed() int { return f.malformed }

// Duplicates returns how many candidates were dropped as duplicates.
func (f *Filter) Duplicates() int { return f.duplicates }

// NormalizeURL strips the query string, fragment, and trailing slash so
// tracking parameters don't defeat URL identity.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimRight(raw, "/")
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/")
}

// Fingerprint computes the locality-sensitive title fingerprint.
func Fingerprint(title string) uint64 {
	return simhash.Simhash(simhash.NewWordFeatureSet([]byte(strings.ToLower(title))))
}

func hashURL(normalized string) string {
	sum := md5.Sum([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
