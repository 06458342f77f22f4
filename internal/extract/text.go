package extract

import (
	"net/url"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stopwords are dropped before relevance and similarity scoring
var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "and": true, "or": true, "but": true, "if": true,
	"of": true, "in": true, "on": true, "at": true, "to": true, "for": true, "from": true,
	"by": true, "with": true, "as": true, "into": true, "about": true, "than": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true, "being": true,
	"has": true, "have": true, "had": true, "do": true, "does": true, "did": true,
	"will": true, "would": true, "can": true, "could": true, "should": true, "may": true, "might": true,
	"it": true, "its": true, "this": true, "that": true, "these": true, "those": true,
	"he": true, "she": true, "they": true, "we": true, "you": true, "i": true,
	"his": true, "her": true, "their": true, "our": true, "your": true, "my": true,
	"not": true, "no": true, "so": true, "very": true, "just": true, "also": true,
	"there": true, "here": true, "what": true, "which": true, "who": true, "whom": true,
	"when": true, "where": true, "why": true, "how": true, "all": true, "any": true,
	"said": true, "says": true, "according": true, "reportedly": true, "new": true,
	"breaking": true, "news": true, "report": true, "reports": true, "true": true, "false": true,
}

// Normalize applies NFKC and collapses whitespace
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Fold case-folds text and strips diacritics for search and comparison
func Fold(s string) string {
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// Tokens returns the distinct content tokens of s in order of first appearance
func Tokens(s string) []string {
	words := strings.FieldsFunc(Fold(Normalize(s)), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if stopwords[w] || seen[w] {
			continue
		}
		// Single letters carry no signal but single digits do ("5 people")
		if len([]rune(w)) < 2 && !unicode.IsDigit([]rune(w)[0]) {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range Tokens(s) {
		set[t] = true
	}
	return set
}

// Relevance is the share of claim keywords present in text, in [0,1]
func Relevance(keywords []string, text string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	set := tokenSet(text)
	hits := 0
	for _, k := range keywords {
		if set[k] {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// Similarity is the Jaccard overlap of the token sets of a and b, in [0,1]
func Similarity(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	inter := 0
	for t := range setA {
		if setB[t] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// StripHTML returns the visible text of an HTML fragment
func StripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return Normalize(s)
	}

	// The parser rejects a context node whose DataAtom disagrees with Data
	nodes, err := html.ParseFragment(strings.NewReader(s), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return Normalize(html.UnescapeString(s))
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}

	return Normalize(buf.String())
}

// trackingParams are removed from URLs before equality checks
var trackingParams = map[string]bool{
	"fbclid": true, "gclid": true, "ref": true, "ocid": true, "cmpid": true, "mc_cid": true, "mc_eid": true,
}

// NormalizeURL canonicalizes a URL for equality checks: scheme and host are
// lowercased, "www." and "m." host prefixes, fragments, tracking parameters
// and trailing slashes are dropped, http and https compare equal, and the
// remaining query parameters are sorted.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(raw)
	}

	host := strings.ToLower(parsed.Hostname())
	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimPrefix(host, "m.")
	if port := parsed.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}

	path := strings.TrimRight(parsed.EscapedPath(), "/")

	query := parsed.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || trackingParams[lk] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("https://")
	b.WriteString(host)
	b.WriteString(path)
	for i, k := range keys {
		if i == 0 {
			b.WriteString("?")
		} else {
			b.WriteString("&")
		}
		values := query[k]
		sort.Strings(values)
		for j, v := range values {
			if j > 0 {
				b.WriteString("&")
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteString("=")
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// Truncate shortens s to at most max bytes, cutting at a word boundary when
// one exists and appending an ellipsis.
func Truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	const ellipsis = "..."
	if max <= len(ellipsis) {
		return s[:max]
	}

	cut := max - len(ellipsis)
	// Back up to a rune start
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if idx := strings.LastIndexByte(s[:cut], ' '); idx > cut/2 {
		cut = idx
	}
	return strings.TrimRight(s[:cut], " ,;:") + ellipsis
}
