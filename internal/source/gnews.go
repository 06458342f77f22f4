package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/newscheck/internal/model"
)

// GNews searches gnews.io for articles matching the claim
type GNews struct {
	cfg      model.SourceConfig
	client   *Client
	maxChars int
	now      func() time.Time
}

// NewGNews creates a GNews source
func NewGNews(cfg model.SourceConfig, client *Client, maxChars int) *GNews {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://gnews.io"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	return &GNews{cfg: cfg, client: client, maxChars: maxChars, now: time.Now}
}

func (g *GNews) Name() string           { return model.SourceGNews }
func (g *GNews) Kind() model.SourceKind { return model.KindNews }

type gnewsResponse struct {
	TotalArticles int      `json:"totalArticles"`
	Errors        []string `json:"errors"`
	Articles      []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"source"`
	} `json:"articles"`
}

// Retrieve queries the search endpoint
func (g *GNews) Retrieve(ctx context.Context, claim model.Claim) ([]model.Snippet, error) {
	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if g.cfg.APIKey == "" {
		return nil, unavailable(g.Name(), errors.New("no API key configured"))
	}
	if strings.TrimSpace(claim.Query) == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", claim.Query)
	params.Set("max", strconv.Itoa(g.cfg.MaxResults))
	params.Set("token", g.cfg.APIKey)
	if g.cfg.Language != "" {
		params.Set("lang", g.cfg.Language)
	}
	if g.cfg.MaxAgeDays > 0 {
		params.Set("from", g.now().AddDate(0, 0, -g.cfg.MaxAgeDays).UTC().Format(time.RFC3339))
	}

	var resp gnewsResponse
	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/api/v4/search?" + params.Encode()
	if err := g.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		// The token travels in the query string; keep it out of errors and logs
		return nil, unavailable(g.Name(), redact(err, g.cfg.APIKey))
	}
	if len(resp.Errors) > 0 {
		return nil, unavailable(g.Name(), fmt.Errorf("provider error: %s", strings.Join(resp.Errors, "; ")))
	}

	items := make([]model.Snippet, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if len(items) >= g.cfg.MaxResults {
			break
		}
		text := a.Description
		if text == "" {
			text = a.Content
		}
		items = append(items, model.Snippet{
			Title:       a.Title,
			Text:        text,
			URL:         a.URL,
			Publisher:   a.Source.Name,
			PublishedAt: parseTime(timeLayouts, a.PublishedAt),
		})
	}

	return finalize(g.Name(), g.Kind(), claim, items, g.maxChars), nil
}

// redactedError hides a secret embedded in a wrapped error message
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if err == nil || secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "REDACTED"), err: err}
}
