package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ppiankov/newscheck/internal/model"
)

// GoogleFactCheck queries the Google Fact Check Tools claim search API for
// published reviews of similar claims
type GoogleFactCheck struct {
	cfg      model.SourceConfig
	client   *Client
	maxChars int
}

// NewGoogleFactCheck creates a Google Fact Check source
func NewGoogleFactCheck(cfg model.SourceConfig, client *Client, maxChars int) *GoogleFactCheck {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://factchecktools.googleapis.com"
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &GoogleFactCheck{cfg: cfg, client: client, maxChars: maxChars}
}

func (g *GoogleFactCheck) Name() string           { return model.SourceGoogleFactCheck }
func (g *GoogleFactCheck) Kind() model.SourceKind { return model.KindFactChecker }

type factCheckResponse struct {
	Claims []struct {
		Text        string `json:"text"`
		Claimant    string `json:"claimant"`
		ClaimDate   string `json:"claimDate"`
		ClaimReview []struct {
			Publisher struct {
				Name string `json:"name"`
				Site string `json:"site"`
			} `json:"publisher"`
			URL           string `json:"url"`
			Title         string `json:"title"`
			ReviewDate    string `json:"reviewDate"`
			TextualRating string `json:"textualRating"`
			LanguageCode  string `json:"languageCode"`
		} `json:"claimReview"`
	} `json:"claims"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Retrieve returns one snippet per claim review, carrying the reviewer's rating
func (g *GoogleFactCheck) Retrieve(ctx context.Context, claim model.Claim) ([]model.Snippet, error) {
	ctx, cancel := withTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	if g.cfg.APIKey == "" {
		return nil, unavailable(g.Name(), errors.New("no API key configured"))
	}
	if strings.TrimSpace(claim.Query) == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("query", claim.Query)
	params.Set("pageSize", strconv.Itoa(g.cfg.MaxResults))
	params.Set("key", g.cfg.APIKey)
	if g.cfg.Language != "" {
		params.Set("languageCode", g.cfg.Language)
	}

	var resp factCheckResponse
	endpoint := strings.TrimRight(g.cfg.BaseURL, "/") + "/v1alpha1/claims:search?" + params.Encode()
	if err := g.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		return nil, unavailable(g.Name(), redact(err, g.cfg.APIKey))
	}
	if resp.Error != nil {
		return nil, unavailable(g.Name(), fmt.Errorf("provider error %d: %s", resp.Error.Code, resp.Error.Message))
	}

	var items []model.Snippet
	for _, c := range resp.Claims {
		for _, review := range c.ClaimReview {
			if len(items) >= g.cfg.MaxResults {
				break
			}
			items = append(items, model.Snippet{
				Title:       review.Title,
				Text:        reviewText(c.Text, c.Claimant, review.Publisher.Name, review.TextualRating),
				URL:         review.URL,
				Rating:      review.TextualRating,
				Publisher:   review.Publisher.Name,
				PublishedAt: parseTime(timeLayouts, review.ReviewDate),
			})
		}
	}

	return finalize(g.Name(), g.Kind(), claim, items, g.maxChars), nil
}

func reviewText(claimText, claimant, publisher, rating string) string {
	var b strings.Builder
	b.WriteString("Claim: ")
	b.WriteString(claimText)
	if claimant != "" {
		b.WriteString(" (claimed by ")
		b.WriteString(claimant)
		b.WriteString(")")
	}
	b.WriteString(".")
	if rating != "" {
		b.WriteString(" Rated \"")
		b.WriteString(rating)
		b.WriteString("\"")
		if publisher != "" {
			b.WriteString(" by ")
			b.WriteString(publisher)
		}
		b.WriteString(".")
	}
	return b.String()
}
