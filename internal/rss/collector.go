package rss

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/newsradar-io/newsradar/internal/articles"
	"github.com/newsradar-io/newsradar/internal/dedup"
	"github.com/newsradar-io/newsradar/internal/interval"
)

const maxSnippetLen = 500

// Collector fetches configured feeds and turns their items into article
// candidates. Feed fetches are free of API quota, so there is no metering
// here; downstream deduplication and persistence treat the candidates the
// same as searched ones.
type Collector struct {
	parser   *gofeed.Parser
	feedURLs []string
}

func NewCollector(feedURLs []string, timeout time.Duration) *Collector {
	parser := gofeed.NewParser()
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	parser.Client = newHTTPClient(timeout)
	return &Collector{parser: parser, feedURLs: feedURLs}
}

// Collect fetches every configured feed and returns the items whose title
// or description mentions the keyword, optionally restricted to a publish
// window. A feed that fails to fetch or parse is skipped, not fatal.
func (c *Collector) Collect(ctx context.Context, keyword string, window *interval.Interval) []articles.Candidate {
	if keyword == "" || len(c.feedURLs) == 0 {
		return nil
	}

	needle := strings.ToLower(keyword)
	var out []articles.Candidate
	fetched := 0

	for _, feedURL := range c.feedURLs {
		feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			slog.Warn("rss: feed fetch failed, skipping", "feed", feedURL, "error", err)
			continue
		}
		fetched++

		for _, item := range feed.Items {
			if item == nil || !matches(item, needle) {
				continue
			}
			cand := toCandidate(item, feed)
			if window != nil && cand.PublishedAt != nil {
				if cand.PublishedAt.Before(window.Start) || cand.PublishedAt.After(window.End) {
					continue
				}
			}
			out = append(out, cand)
		}
	}

	slog.Debug("rss: collection finished",
		"keyword", keyword, "feeds_ok", fetched, "feeds_total", len(c.feedURLs), "candidates", len(out))
	return out
}

func matches(item *gofeed.Item, needle string) bool {
	return strings.Contains(strings.ToLower(item.Title), needle) ||
		strings.Contains(strings.ToLower(item.Description), needle)
}

func toCandidate(item *gofeed.Item, feed *gofeed.Feed) articles.Candidate {
	// Truncate by runes so multi-byte text is never cut mid-sequence.
	snippet := strings.TrimSpace(item.Description)
	if runes := []rune(snippet); len(runes) > maxSnippetLen {
		snippet = string(runes[:maxSnippetLen])
	}

	source := feed.Title
	if source == "" {
		source = "rss"
	}

	var publishedAt *time.Time
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		publishedAt = &t
	} else if item.UpdatedParsed != nil {
		t := item.UpdatedParsed.UTC()
		publishedAt = &t
	}

	return articles.Candidate{
		URL:         dedup.NormalizeURL(item.Link),
		Title:       item.Title,
		Snippet:     snippet,
		Source:      source,
		PublishedAt: publishedAt,
	}
}
