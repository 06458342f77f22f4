package extract

import (
	"math"
	"testing"
)

func TestTokens(t *testing.T) {
	tokens := Tokens("The Café in São Paulo is CLOSED, the café!")
	want := []string{"cafe", "sao", "paulo", "closed"}

	if len(tokens) != len(want) {
		t.Fatalf("Expected %v, got %v", want, tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("Expected token %q at %d, got %q", want[i], i, tokens[i])
		}
	}
}

func TestRelevance(t *testing.T) {
	keywords := Tokens("The Eiffel Tower is located in Berlin")

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"partial overlap", "The Eiffel Tower is a wrought-iron lattice tower in Paris, France.", 0.5},
		{"full overlap", "Eiffel Tower located in Berlin? No.", 1.0},
		{"no overlap", "Bananas are rich in potassium.", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Relevance(keywords, tt.text)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Expected %.2f, got %.2f", tt.want, got)
			}
		})
	}

	if Relevance(nil, "anything") != 0 {
		t.Error("Expected zero relevance without keywords")
	}
}

func TestSimilarity(t *testing.T) {
	a := "Eiffel Tower closes for maintenance work"
	b := "Eiffel Tower closes for maintenance work!"
	if Similarity(a, b) != 1.0 {
		t.Errorf("Expected identical token sets to score 1.0, got %f", Similarity(a, b))
	}

	c := "Stock markets rally after rate cut"
	if s := Similarity(a, c); s != 0 {
		t.Errorf("Expected disjoint texts to score 0, got %f", s)
	}

	if Similarity("", a) != 0 {
		t.Error("Expected empty text to score 0")
	}
}

func TestStripHTML(t *testing.T) {
	got := StripHTML(`<span class="searchmatch">Eiffel</span> Tower &amp; <b>Paris</b><script>alert(1)</script>`)
	if got != "Eiffel Tower & Paris" {
		t.Errorf("Unexpected stripped text: %q", got)
	}

	if StripHTML("plain   text") != "plain text" {
		t.Error("Expected plain text to be whitespace-normalized")
	}
}

func TestStripHTML_SearchSnippets(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`Replicas of the <span class="searchmatch">Eiffel</span> Tower<script>x()</script>`, "Replicas of the Eiffel Tower"},
		{`<p>Fact check: <em>False</em></p><style>p{color:red}</style>`, "Fact check: False"},
		{`Tom &amp; Jerry`, "Tom & Jerry"},
		{`<div><noscript>enable js</noscript>Paris, France</div>`, "Paris, France"},
	}

	for _, tt := range tests {
		if got := StripHTML(tt.in); got != tt.want {
			t.Errorf("StripHTML(%q): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"https://www.Example.com/story/", "http://example.com/story"},
		{"https://example.com/story?utm_source=x&id=5", "https://example.com/story?id=5"},
		{"https://example.com/story#comments", "https://example.com/story"},
		{"https://m.example.com/a?b=2&a=1", "https://example.com/a?a=1&b=2"},
	}

	for _, tt := range tests {
		if NormalizeURL(tt.a) != NormalizeURL(tt.b) {
			t.Errorf("Expected %q and %q to normalize equal: %q vs %q", tt.a, tt.b, NormalizeURL(tt.a), NormalizeURL(tt.b))
		}
	}

	if NormalizeURL("https://example.com/a") == NormalizeURL("https://example.com/b") {
		t.Error("Expected different paths to stay distinct")
	}
	if NormalizeURL("") != "" {
		t.Error("Expected empty URL to stay empty")
	}
}

func TestTruncate(t *testing.T) {
	s := "The quick brown fox jumps over the lazy dog"
	got := Truncate(s, 20)
	if len(got) > 20 {
		t.Errorf("Expected at most 20 bytes, got %d (%q)", len(got), got)
	}
	if got != "The quick brown..." {
		t.Errorf("Unexpected truncation: %q", got)
	}

	if Truncate(s, 100) != s {
		t.Error("Expected short strings to be unchanged")
	}
}
