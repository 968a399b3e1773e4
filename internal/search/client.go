// Package search wraps the Google Custom Search JSON API as a metered
// article source. Every page request consumes exactly one quota unit no
// matter how many results it returns, so pagination runs behind an
// admission meter.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/newsradar-io/newsradar/internal/articles"
	"github.com/newsradar-io/newsradar/internal/dedup"
	"github.com/newsradar-io/newsradar/internal/interval"
)

const (
	defaultEndpoint = "https://www.googleapis.com/customsearch/v1"

	// The API returns at most 10 results per call and 100 overall.
	pageSize   = 10
	maxResults = 100

	maxSnippetChars = 500
)

// Meter is the admission/accounting hook for metered page calls. A nil
// Meter means unmetered (tests, backfill tooling).
type Meter interface {
	CanSpend(ctx context.Context, n int) (bool, error)
	RecordSpent(ctx context.Context, n int) error
}

// Client calls the Custom Search API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	cx         string
	now        func() time.Time
}

// NewClient creates a search Client.
func NewClient(apiKey, cx string, timeout time.Duration) (*Client, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("search: api key and cx are required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   defaultEndpoint,
		apiKey:     apiKey,
		cx:         cx,
		now:        time.Now,
	}, nil
}

// Result is one search run's outcome: the gathered candidates and how many
// metered page calls were actually spent. Aborted is set when pagination
// stopped early on a quota denial or a failed call, meaning the window was
// not fully fetched and must not be marked as covered.
type Result struct {
	Candidates []articles.Candidate
	PagesSpent int
	Aborted    bool
}

type apiResponse struct {
	Items []apiItem `json:"items"`
	Queries struct {
		Request []struct {
			TotalResults string `json:"totalResults"`
		} `json:"request"`
	} `json:"queries"`
}

type apiItem struct {
	Link          string `json:"link"`
	Title         string `json:"title"`
	Snippet       string `json:"snippet"`
	DisplayLink   string `json:"displayLink"`
	FormattedDate string `json:"formattedDate"`
}

// Search pages through results for the keyword, spending one meter unit
// per page. A denied admission or a failed call stops pagination; whatever
// was already gathered is returned, and retrying is the caller's concern.
func (c *Client) Search(ctx context.Context, keyword string, window *interval.Interval, max int, meter Meter) (Result, error) {
	var res Result
	if keyword == "" {
		return res, nil
	}
	if max <= 0 || max > maxResults {
		max = maxResults
	}

	dateRestrict := c.dateRestrict(window)

	for start := 1; len(res.Candidates) < max; start += pageSize {
		if meter != nil {
			ok, err := meter.CanSpend(ctx, 1)
			if err != nil {
				slog.Warn("search: admission check failed, stopping pagination", "error", err)
				res.Aborted = true
				break
			}
			if !ok {
				slog.Info("search: quota denied, stopping pagination", "keyword", keyword, "pages_spent", res.PagesSpent)
				res.Aborted = true
				break
			}
		}

		page, err := c.fetchPage(ctx, keyword, dateRestrict, start)
		if err != nil {
			slog.Warn("search: page fetch failed, returning partial batch",
				"keyword", keyword, "start", start, "error", err)
			res.Aborted = true
			break
		}

		res.PagesSpent++
		if meter != nil {
			if err := meter.RecordSpent(ctx, 1); err != nil {
				slog.Warn("search: usage bookkeeping failed", "error", err)
			}
		}

		if len(page.Items) == 0 {
			break
		}

		for _, item := range page.Items {
			cand := c.toCandidate(item)
			if window != nil && cand.PublishedAt != nil {
				// dateRestrict is day-granular at best; re-filter.
				if cand.PublishedAt.Before(window.Start) || cand.PublishedAt.After(window.End) {
					continue
				}
			}
			res.Candidates = append(res.Candidates, cand)
			if len(res.Candidates) >= max {
				break
			}
		}

		total, _ := strconv.Atoi(firstTotal(page))
		if start+pageSize > total {
			break
		}
	}

	return res, nil
}

func (c *Client) fetchPage(ctx context.Context, keyword, dateRestrict string, start int) (*apiResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cx)
	params.Set("q", keyword)
	params.Set("num", strconv.Itoa(pageSize))
	params.Set("start", strconv.Itoa(start))
	if dateRestrict != "" {
		params.Set("dateRestrict", dateRestrict)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling search api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search api returned status %d", resp.StatusCode)
	}

	var page apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return &page, nil
}

func (c *Client) toCandidate(item apiItem) articles.Candidate {
	// Truncate by runes so multi-byte text is never cut mid-sequence.
	snippet := item.Snippet
	if runes := []rune(snippet); len(runes) > maxSnippetChars {
		snippet = string(runes[:maxSnippetChars])
	}
	source := item.DisplayLink
	if source == "" {
		source = "unknown"
	}
	return articles.Candidate{
		URL:         dedup.NormalizeURL(item.Link),
		Title:       item.Title,
		Snippet:     snippet,
		Source:      source,
		PublishedAt: parseDate(item.FormattedDate),
	}
}

// dateRestrict converts a window into the API's "dN" recency restriction.
// The API only supports "last N days", so the window's start anchors N.
func (c *Client) dateRestrict(window *interval.Interval) string {
	if window == nil {
		return ""
	}

	now := c.now().UTC()
	end := window.End
	if end.After(now) {
		end = now
	}
	if window.Start.After(end) {
		return ""
	}

	days := int(now.Sub(window.Start).Hours() / 24)
	if days < 1 {
		days = 1
	}
	if days > 365 {
		days = 365
	}
	return "d" + strconv.Itoa(days)
}

var dateLayouts = []string{
	"Jan 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"2006/01/02",
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func firstTotal(page *apiResponse) string {
	if len(page.Queries.Request) == 0 {
		return "0"
	}
	return page.Queries.Request[0].TotalResults
}
