package source

import (
	"fmt"
	"time"

	"github.com/ppiankov/newscheck/internal/cache"
	"github.com/ppiankov/newscheck/internal/logging"
	"github.com/ppiankov/newscheck/internal/model"
	"github.com/ppiankov/newscheck/internal/util"
)

// Build creates the enabled sources in configured order. Sources that need
// an API key and have none are skipped with a warning. c may be nil.
func Build(cfg model.SourcesConfig, client *Client, robots *util.RobotsChecker, c cache.Cache, cacheTTL time.Duration) ([]Source, error) {
	var sources []Source
	for _, name := range cfg.Order {
		sc, ok := cfg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown source: %s", name)
		}
		if !sc.Enabled {
			continue
		}

		if requiresKey(name) && sc.APIKey == "" {
			logging.Warn().
				Add(logging.Source(name)).
				Msg("Source enabled without API key, skipping")
			continue
		}

		var s Source
		switch name {
		case model.SourceWikipedia:
			s = NewWikipedia(sc, client, cfg.MaxSnippetChars)
		case model.SourceNewsAPI:
			s = NewNewsAPI(sc, client, cfg.MaxSnippetChars)
		case model.SourceGNews:
			s = NewGNews(sc, client, cfg.MaxSnippetChars)
		case model.SourceGoogleFactCheck:
			s = NewGoogleFactCheck(sc, client, cfg.MaxSnippetChars)
		case model.SourceFactCheckFeed:
			s = NewFactCheckFeed(sc, client, robots, cfg.MaxSnippetChars)
		}

		if c != nil {
			s = NewCached(s, c, cacheTTL)
		}
		sources = append(sources, s)
	}
	return sources, nil
}

func requiresKey(name string) bool {
	switch name {
	case model.SourceNewsAPI, model.SourceGNews, model.SourceGoogleFactCheck:
		return true
	}
	return false
}
