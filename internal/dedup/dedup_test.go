package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsradar-io/newsradar/internal/articles"
)

func TestNormalizeURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://example.com/story?utm_source=x&ref=rss", "https://example.com/story"},
		{"https://example.com/story#comments", "https://example.com/story"},
		{"https://example.com/story/", "https://example.com/story"},
		{"https://example.com/story", "https://example.com/story"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeURL(tc.in))
	}
}

func TestFilterDuplicates_URLStage(t *testing.T) {
	f := NewFilter()

	kept := f.FilterDuplicates([]articles.Candidate{
		{URL: "https://example.com/a", Title: "Central bank raises rates"},
		{URL: "https://example.com/a?utm_source=feed", Title: "Completely different headline"},
		{URL: "https://example.com/b", Title: "Parliament passes budget bill"},
	})

	require.Len(t, kept, 2)
	assert.Equal(t, "https://example.com/a", kept[0].URL)
	assert.Equal(t, "https://example.com/b", kept[1].URL)
	assert.Equal(t, 1, f.Duplicates())
}

// Two candidates sharing a normalized URL are caught at the URL stage even
// when their titles differ only in casing, so the second never reaches the
// fingerprint comparison that its distinct-cased title would also trip.
func TestFilterDuplicates_SharedURLDiffersOnlyInTitleCase(t *testing.T) {
	f := NewFilter()

	kept := f.FilterDuplicates([]articles.Candidate{
		{URL: "https://example.com/a", Title: "Markets Rally On Earnings"},
		{URL: "https://example.com/a", Title: "MARKETS RALLY ON EARNINGS"},
	})

	require.Len(t, kept, 1)
	assert.Equal(t, "Markets Rally On Earnings", kept[0].Title, "first occurrence wins")
}

func TestFilterDuplicates_TitleFingerprintStage(t *testing.T) {
	f := NewFilter()

	kept := f.FilterDuplicates([]articles.Candidate{
		{URL: "https://one.example.com/x", Title: "Storm closes coastal highway"},
		{URL: "https://two.example.com/y", Title: "Storm closes coastal highway"},
	})

	require.Len(t, kept, 1)
	assert.Equal(t, "https://one.example.com/x", kept[0].URL)
	assert.Equal(t, 1, f.Duplicates())
}

func TestFilterDuplicates_MalformedDroppedAndCounted(t *testing.T) {
	f := NewFilter()

	kept := f.FilterDuplicates([]articles.Candidate{
		{URL: "", Title: "No link at all"},
		{URL: "https://example.com/ok", Title: "Fine article"},
	})

	require.Len(t, kept, 1)
	assert.Equal(t, 1, f.Malformed())
	assert.Equal(t, 0, f.Duplicates())
}

// Filtering an already-filtered batch changes nothing.
func TestFilterDuplicates_Idempotent(t *testing.T) {
	first := NewFilter().FilterDuplicates([]articles.Candidate{
		{URL: "https://example.com/a", Title: "Alpha headline about ports"},
		{URL: "https://example.com/a", Title: "Alpha headline about ports"},
		{URL: "https://example.com/b", Title: "Beta headline about rails"},
		{URL: "https://example.com/c", Title: "Gamma headline about roads"},
	})

	second := NewFilter().FilterDuplicates(first)

	assert.Equal(t, first, second)
}

func TestFilterDuplicates_PreservesOrder(t *testing.T) {
	kept := NewFilter().FilterDuplicates([]articles.Candidate{
		{URL: "https://example.com/3", Title: "Third story entirely"},
		{URL: "https://example.com/1", Title: "First story entirely"},
		{URL: "https://example.com/2", Title: "Second story entirely"},
	})

	require.Len(t, kept, 3)
	assert.Equal(t, "https://example.com/3", kept[0].URL)
	assert.Equal(t, "https://example.com/1", kept[1].URL)
	assert.Equal(t, "https://example.com/2", kept[2].URL)
}
