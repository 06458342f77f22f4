package score

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/ppiankov/newscheck/internal/model"
)

// AuthorityClassifier classifies evidence URLs into authority tiers
type AuthorityClassifier struct {
	domainMap    map[string]model.AuthorityTier
	primary      []string
	secondary    []string
	pathPatterns []compiledPattern
}

type compiledPattern struct {
	pattern *regexp.Regexp
	tier    model.AuthorityTier
}

// NewAuthorityClassifier creates a classifier. Invalid path patterns are skipped.
func NewAuthorityClassifier(cfg model.AuthorityConfig) *AuthorityClassifier {
	c := &AuthorityClassifier{
		domainMap: make(map[string]model.AuthorityTier, len(cfg.DomainMap)),
		primary:   normalizeDomains(cfg.PrimaryDomains),
		secondary: normalizeDomains(cfg.SecondaryDomains),
	}

	for host, tier := range cfg.DomainMap {
		c.domainMap[normalizeHost(host)] = ParseTier(tier)
	}

	for _, pp := range cfg.PathPatterns {
		re, err := regexp.Compile(pp.Pattern)
		if err != nil {
			continue
		}
		c.pathPatterns = append(c.pathPatterns, compiledPattern{pattern: re, tier: ParseTier(pp.Tier)})
	}

	return c
}

// Classify returns the tier of rawURL. Precedence: explicit domain map,
// primary domains, secondary domains, path patterns, institutional TLDs.
func (c *AuthorityClassifier) Classify(rawURL string) model.AuthorityTier {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return model.TierTertiary
	}
	host := normalizeHost(parsed.Hostname())

	// Walk from the full host up to its registrable parents so a map entry
	// for "bbc.co.uk" covers "www.bbc.co.uk"
	for h := host; h != ""; h = parentDomain(h) {
		if tier, ok := c.domainMap[h]; ok {
			return tier
		}
	}

	if matchesAny(host, c.primary) {
		return model.TierPrimary
	}
	if matchesAny(host, c.secondary) {
		return model.TierSecondary
	}

	for _, cp := range c.pathPatterns {
		if cp.pattern.MatchString(parsed.Path) {
			return cp.tier
		}
	}

	switch {
	case strings.HasSuffix(host, ".gov"), strings.HasSuffix(host, ".mil"),
		strings.HasSuffix(host, ".edu"), strings.HasSuffix(host, ".ac.uk"):
		return model.TierPrimary
	}

	return model.TierTertiary
}

// ParseTier converts a configuration string to an AuthorityTier
func ParseTier(tier string) model.AuthorityTier {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case "primary", "1":
		return model.TierPrimary
	case "secondary", "2":
		return model.TierSecondary
	default:
		return model.TierTertiary
	}
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(host), "."))
	return strings.TrimPrefix(host, "www.")
}

func normalizeDomains(domains []string) []string {
	out := make([]string, 0, len(domains))
	for _, d := range domains {
		if d = normalizeHost(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

func matchesAny(host string, domains []string) bool {
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func parentDomain(host string) string {
	idx := strings.IndexByte(host, '.')
	if idx < 0 {
		return ""
	}
	return host[idx+1:]
}
