package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/newscheck/internal/logging"
	"github.com/ppiankov/newscheck/internal/model"
	"github.com/ppiankov/newscheck/internal/util"
)

// knownRatings are category labels fact-check feeds use for their ruling
var knownRatings = []string{
	"pants on fire", "mostly false", "half true", "mostly true", "false", "true",
	"miscaptioned", "misattributed", "unproven", "mixture", "outdated", "satire", "scam", "fake",
}

// FactCheckFeed scans the RSS/Atom feeds of fact-checking sites for recent
// reviews that overlap the claim
type FactCheckFeed struct {
	cfg      model.SourceConfig
	client   *Client
	robots   *util.RobotsChecker
	maxChars int
}

// NewFactCheckFeed creates a feed source. robots may be nil to skip robots.txt checks.
func NewFactCheckFeed(cfg model.SourceConfig, client *Client, robots *util.RobotsChecker, maxChars int) *FactCheckFeed {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &FactCheckFeed{cfg: cfg, client: client, robots: robots, maxChars: maxChars}
}

func (f *FactCheckFeed) Name() string           { return model.SourceFactCheckFeed }
func (f *FactCheckFeed) Kind() model.SourceKind { return model.KindFactChecker }

// Retrieve fetches all configured feeds in parallel and keeps the items with
// any keyword overlap, most relevant first. It fails only when every feed fails.
func (f *FactCheckFeed) Retrieve(ctx context.Context, claim model.Claim) ([]model.Snippet, error) {
	ctx, cancel := withTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	if len(f.cfg.Feeds) == 0 {
		return nil, unavailable(f.Name(), errors.New("no feeds configured"))
	}

	perFeed := make([][]model.Snippet, len(f.cfg.Feeds))
	errs := make([]error, len(f.cfg.Feeds))

	var g errgroup.Group
	for i, feedURL := range f.cfg.Feeds {
		g.Go(func() error {
			items, err := f.fetchFeed(ctx, feedURL)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", feedURL, err)
				logging.Debug().
					Add(logging.Source(f.Name())).
					Add(logging.Str("feed", feedURL)).
					Add(logging.Err(err)).
					Msg("Feed unavailable")
				return nil
			}
			perFeed[i] = items
			return nil
		})
	}
	_ = g.Wait()

	var items []model.Snippet
	failed := 0
	for i := range f.cfg.Feeds {
		if errs[i] != nil {
			failed++
			continue
		}
		items = append(items, perFeed[i]...)
	}
	if failed == len(f.cfg.Feeds) {
		return nil, unavailable(f.Name(), errors.Join(errs...))
	}

	snippets := finalize(f.Name(), f.Kind(), claim, items, f.maxChars)

	matched := snippets[:0]
	for _, s := range snippets {
		if s.Relevance > 0 {
			matched = append(matched, s)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Relevance > matched[j].Relevance
	})
	if len(matched) > f.cfg.MaxResults {
		matched = matched[:f.cfg.MaxResults]
	}
	for i := range matched {
		matched[i].Position = i
	}

	return matched, nil
}

func (f *FactCheckFeed) fetchFeed(ctx context.Context, feedURL string) ([]model.Snippet, error) {
	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, feedURL)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, errors.New("disallowed by robots.txt")
		}
		if delay > 0 && f.client.Limiter() != nil {
			if parsed, err := url.Parse(feedURL); err == nil {
				f.client.Limiter().SetCrawlDelay(parsed.Hostname(), delay)
			}
		}
	}

	header := http.Header{}
	header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	body, err := f.client.Get(ctx, feedURL, header)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	publisher := feed.Title
	items := make([]model.Snippet, 0, len(feed.Items))
	for _, item := range feed.Items {
		text := item.Description
		if text == "" {
			text = item.Content
		}
		items = append(items, model.Snippet{
			Title:       item.Title,
			Text:        text,
			URL:         item.Link,
			Rating:      ratingFromCategories(item.Categories),
			Publisher:   publisher,
			PublishedAt: item.PublishedParsed,
		})
	}
	return items, nil
}

func ratingFromCategories(categories []string) string {
	for _, c := range categories {
		lc := strings.ToLower(strings.TrimSpace(c))
		for _, r := range knownRatings {
			if lc == r {
				return strings.TrimSpace(c)
			}
		}
	}
	return ""
}
