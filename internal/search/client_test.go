package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsradar-io/newsradar/internal/interval"
)

type fakeMeter struct {
	allowed  int
	spent    int
	canCalls int
}

func (m *fakeMeter) CanSpend(_ context.Context, n int) (bool, error) {
	m.canCalls++
	return m.spent+n <= m.allowed, nil
}

func (m *fakeMeter) RecordSpent(_ context.Context, n int) error {
	m.spent += n
	return nil
}

func pageJSON(total int, links ...string) string {
	items := make([]map[string]string, 0, len(links))
	for i, link := range links {
		items = append(items, map[string]string{
			"link":          link,
			"title":         fmt.Sprintf("Title %d for %s", i, link),
			"snippet":       "some snippet",
			"displayLink":   "example.com",
			"formattedDate": "Jun 2, 2025",
		})
	}
	payload := map[string]any{
		"items": items,
		"queries": map[string]any{
			"request": []map[string]string{{"totalResults": strconv.Itoa(total)}},
		},
	}
	b, _ := json.Marshal(payload)
	return string(b)
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key", "test-cx", time.Second)
	require.NoError(t, err)
	c.endpoint = srv.URL
	c.now = func() time.Time { return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestSearch_SinglePage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		fmt.Fprint(w, pageJSON(2, "https://example.com/a?utm_source=x", "https://example.com/b"))
	})

	res, err := c.Search(context.Background(), "golang", nil, 100, nil)
	require.NoError(t, err)

	require.Len(t, res.Candidates, 2)
	assert.Equal(t, 1, res.PagesSpent)
	assert.False(t, res.Aborted)
	assert.Equal(t, "https://example.com/a", res.Candidates[0].URL, "URLs are normalized")
	require.NotNil(t, res.Candidates[0].PublishedAt)
}

func TestSearch_PaginatesAndMetersPerPage(t *testing.T) {
	var page int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		page++
		links := make([]string, 10)
		for i := range links {
			links[i] = fmt.Sprintf("https://example.com/p%d-%d", page, i)
		}
		fmt.Fprint(w, pageJSON(30, links...))
	})

	meter := &fakeMeter{allowed: 100}
	res, err := c.Search(context.Background(), "golang", nil, 25, meter)
	require.NoError(t, err)

	assert.Len(t, res.Candidates, 25)
	assert.Equal(t, 3, res.PagesSpent)
	assert.Equal(t, 3, meter.spent, "one unit per page, not per result")
}

func TestSearch_StopsWhenQuotaDenied(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		links := make([]string, 10)
		for i := range links {
			links[i] = fmt.Sprintf("https://example.com/%s-%d", r.URL.Query().Get("start"), i)
		}
		fmt.Fprint(w, pageJSON(100, links...))
	})

	meter := &fakeMeter{allowed: 2}
	res, err := c.Search(context.Background(), "golang", nil, 100, meter)
	require.NoError(t, err)

	assert.Len(t, res.Candidates, 20, "two pages gathered before denial")
	assert.Equal(t, 2, res.PagesSpent)
	assert.True(t, res.Aborted, "a denied run must not be treated as full coverage")
}

func TestSearch_PartialBatchOnServerError(t *testing.T) {
	var calls int
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			http.Error(w, "quota exceeded upstream", http.StatusTooManyRequests)
			return
		}
		links := make([]string, 10)
		for i := range links {
			links[i] = fmt.Sprintf("https://example.com/%d", i)
		}
		fmt.Fprint(w, pageJSON(50, links...))
	})

	meter := &fakeMeter{allowed: 100}
	res, err := c.Search(context.Background(), "golang", nil, 100, meter)
	require.NoError(t, err, "a failed page is not an error, the partial batch is the result")

	assert.Len(t, res.Candidates, 10)
	assert.Equal(t, 1, res.PagesSpent, "the failed call spent nothing")
	assert.Equal(t, 1, meter.spent)
	assert.True(t, res.Aborted, "an interrupted run must not be treated as full coverage")
}

func TestSearch_WindowPostFilter(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"items": []map[string]string{
				{"link": "https://example.com/in", "title": "inside", "formattedDate": "Jun 5, 2025"},
				{"link": "https://example.com/out", "title": "outside", "formattedDate": "Jan 1, 2024"},
			},
			"queries": map[string]any{"request": []map[string]string{{"totalResults": "2"}}},
		}
		json.NewEncoder(w).Encode(payload)
	})

	window := interval.New(
		time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC),
	)
	res, err := c.Search(context.Background(), "golang", &window, 100, nil)
	require.NoError(t, err)

	require.Len(t, res.Candidates, 1)
	assert.Equal(t, "https://example.com/in", res.Candidates[0].URL)
}

func TestSearch_EmptyKeyword(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected for empty keyword")
	})

	res, err := c.Search(context.Background(), "", nil, 100, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Candidates)
	assert.Zero(t, res.PagesSpent)
}

func TestDateRestrict(t *testing.T) {
	c, err := NewClient("k", "cx", time.Second)
	require.NoError(t, err)
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	t.Run("nil window", func(t *testing.T) {
		assert.Equal(t, "", c.dateRestrict(nil))
	})

	t.Run("week-old window", func(t *testing.T) {
		w := interval.New(now.AddDate(0, 0, -7), now)
		assert.Equal(t, "d7", c.dateRestrict(&w))
	})

	t.Run("capped at a year", func(t *testing.T) {
		w := interval.New(now.AddDate(-2, 0, 0), now)
		assert.Equal(t, "d365", c.dateRestrict(&w))
	})

	t.Run("start after clamped end yields none", func(t *testing.T) {
		w := interval.New(now.Add(time.Hour), now.Add(2*time.Hour))
		assert.Equal(t, "", c.dateRestrict(&w))
	})
}

func TestToCandidate_TruncatesSnippetByRunes(t *testing.T) {
	c := &Client{now: time.Now}
	long := strings.Repeat("한국어 뉴스 기사 ", 200)

	cand := c.toCandidate(apiItem{Link: "https://example.com/a", Title: "t", Snippet: long})

	assert.LessOrEqual(t, len([]rune(cand.Snippet)), maxSnippetChars)
	assert.True(t, utf8.ValidString(cand.Snippet), "truncation must not split a multi-byte rune")
}
