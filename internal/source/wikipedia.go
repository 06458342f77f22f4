package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/newscheck/internal/logging"
	"github.com/ppiankov/newscheck/internal/model"
)

// Wikipedia finds encyclopedia pages matching the claim and returns their
// lead summaries
type Wikipedia struct {
	cfg      model.SourceConfig
	client   *Client
	maxChars int
}

// NewWikipedia creates a Wikipedia source
func NewWikipedia(cfg model.SourceConfig, client *Client, maxChars int) *Wikipedia {
	if cfg.BaseURL == "" {
		lang := cfg.Language
		if lang == "" {
			lang = "en"
		}
		cfg.BaseURL = "https://" + lang + ".wikipedia.org"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 3
	}
	return &Wikipedia{cfg: cfg, client: client, maxChars: maxChars}
}

func (w *Wikipedia) Name() string           { return model.SourceWikipedia }
func (w *Wikipedia) Kind() model.SourceKind { return model.KindWikipedia }

type wikiSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

type wikiSummary struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

// Retrieve searches for matching titles and fetches each page summary. A
// failed summary falls back to the search snippet.
func (w *Wikipedia) Retrieve(ctx context.Context, claim model.Claim) ([]model.Snippet, error) {
	ctx, cancel := withTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	if strings.TrimSpace(claim.Query) == "" {
		return nil, nil
	}

	base := strings.TrimRight(w.cfg.BaseURL, "/")
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", claim.Query)
	params.Set("srlimit", strconv.Itoa(w.cfg.MaxResults))
	params.Set("format", "json")
	params.Set("utf8", "1")

	var search wikiSearchResponse
	if err := w.client.GetJSON(ctx, base+"/w/api.php?"+params.Encode(), nil, &search); err != nil {
		return nil, unavailable(w.Name(), fmt.Errorf("search: %w", err))
	}
	if search.Error != nil {
		return nil, unavailable(w.Name(), fmt.Errorf("search: %s: %s", search.Error.Code, search.Error.Info))
	}

	var items []model.Snippet
	for _, hit := range search.Query.Search {
		if len(items) >= w.cfg.MaxResults {
			break
		}

		item := model.Snippet{
			Title: hit.Title,
			Text:  hit.Snippet,
			URL:   base + "/wiki/" + url.PathEscape(strings.ReplaceAll(hit.Title, " ", "_")),
		}

		summary, err := w.summary(ctx, base, hit.Title)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				// Out of time: keep what the search already gave us
				items = append(items, item)
				return finalize(w.Name(), w.Kind(), claim, items, w.maxChars), nil
			}
			logging.Debug().
				Add(logging.Source(w.Name())).
				Add(logging.Str("title", hit.Title)).
				Add(logging.Err(err)).
				Msg("Summary unavailable, using search snippet")
		case summary.Type == "disambiguation":
			continue
		default:
			if summary.Extract != "" {
				item.Text = summary.Extract
			}
			if summary.ContentURLs.Desktop.Page != "" {
				item.URL = summary.ContentURLs.Desktop.Page
			}
			if summary.Title != "" {
				item.Title = summary.Title
			}
		}

		items = append(items, item)
	}

	return finalize(w.Name(), w.Kind(), claim, items, w.maxChars), nil
}

func (w *Wikipedia) summary(ctx context.Context, base, title string) (*wikiSummary, error) {
	endpoint := base + "/api/rest_v1/page/summary/" + url.PathEscape(strings.ReplaceAll(title, " ", "_"))

	var summary wikiSummary
	header := http.Header{}
	header.Set("Accept", "application/json")
	if err := w.client.GetJSON(ctx, endpoint, header, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}
