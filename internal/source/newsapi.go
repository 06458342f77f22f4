package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/newscheck/internal/model"
)

// NewsAPI searches newsapi.org for articles matching the claim
type NewsAPI struct {
	cfg      model.SourceConfig
	client   *Client
	maxChars int
	now      func() time.Time
}

// NewNewsAPI creates a NewsAPI source
func NewNewsAPI(cfg model.SourceConfig, client *Client, maxChars int) *NewsAPI {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://newsapi.org"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	return &NewsAPI{cfg: cfg, client: client, maxChars: maxChars, now: time.Now}
}

func (n *NewsAPI) Name() string           { return model.SourceNewsAPI }
func (n *NewsAPI) Kind() model.SourceKind { return model.KindNews }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Content     string `json:"content"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Retrieve queries the everything endpoint, newest first within the optional age bound
func (n *NewsAPI) Retrieve(ctx context.Context, claim model.Claim) ([]model.Snippet, error) {
	ctx, cancel := withTimeout(ctx, n.cfg.Timeout)
	defer cancel()

	if n.cfg.APIKey == "" {
		return nil, unavailable(n.Name(), errors.New("no API key configured"))
	}
	if strings.TrimSpace(claim.Query) == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", claim.Query)
	params.Set("pageSize", strconv.Itoa(n.cfg.MaxResults))
	params.Set("sortBy", "relevancy")
	if n.cfg.Language != "" {
		params.Set("language", n.cfg.Language)
	}
	if n.cfg.MaxAgeDays > 0 {
		params.Set("from", n.now().AddDate(0, 0, -n.cfg.MaxAgeDays).UTC().Format("2006-01-02"))
	}

	header := http.Header{}
	header.Set("X-Api-Key", n.cfg.APIKey)

	var resp newsAPIResponse
	endpoint := strings.TrimRight(n.cfg.BaseURL, "/") + "/v2/everything?" + params.Encode()
	if err := n.client.GetJSON(ctx, endpoint, header, &resp); err != nil {
		return nil, unavailable(n.Name(), err)
	}
	if resp.Status == "error" {
		return nil, unavailable(n.Name(), fmt.Errorf("%s: %s", resp.Code, resp.Message))
	}

	items := make([]model.Snippet, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		if len(items) >= n.cfg.MaxResults {
			break
		}
		// Removed articles are returned as placeholders
		if a.Title == "[Removed]" {
			continue
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

	return finalize(n.Name(), n.Kind(), claim, items, n.maxChars), nil
}
