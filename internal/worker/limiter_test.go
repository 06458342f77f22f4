package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "https://en.wikipedia.org/api/rest_v1/page/summary/Moon"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	if err := limiter.Wait(ctx, "https://newsapi.org/v2/everything"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	limiter := NewLimiter(1, 1)
	ctx := context.Background()
	target := "https://gnews.io/api/v4/search"

	if err := limiter.Wait(ctx, target); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst of one is consumed
	if limiter.Allow(target) {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.Allow("https://factchecktools.googleapis.com/v1alpha1/claims:search") {
		t.Errorf("expected allow for other host")
	}
}

func TestLimiter_HostCaseInsensitive(t *testing.T) {
	limiter := NewLimiter(1, 1)

	if !limiter.Allow("https://GNews.io/a") {
		t.Fatal("first request should pass")
	}
	if limiter.Allow("https://gnews.io/b") {
		t.Error("expected hosts differing only in case to share a limiter")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 20; i++ {
		if !limiter.Allow("https://example.com") {
			t.Fatalf("expected zero rate to disable limiting, blocked at request %d", i)
		}
	}
}

func TestLimiter_SetCrawlDelay(t *testing.T) {
	limiter := NewLimiter(10, 10)
	limiter.SetCrawlDelay("www.snopes.com", 10*time.Second)

	if !limiter.Allow("https://www.snopes.com/feed/") {
		t.Errorf("first request should pass")
	}
	if limiter.Allow("https://www.snopes.com/feed/") {
		t.Errorf("second request should wait for the crawl delay")
	}
	if !limiter.Allow("https://www.politifact.com/rss/factchecks/") {
		t.Errorf("other host should pass")
	}
}

func TestLimiter_WaitCancelled(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	target := "https://example.com"
	_ = limiter.Allow(target)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, target); err == nil {
		t.Error("expected wait to fail when the context deadline is shorter than the next token")
	}
}

func TestHostKey(t *testing.T) {
	host, err := hostKey("https://Example.com:8443/foo")
	if err != nil {
		t.Fatalf("hostKey failed: %v", err)
	}
	if host != "example.com" {
		t.Errorf("expected example.com, got %s", host)
	}

	if _, err := hostKey("::invalid"); err == nil {
		t.Errorf("expected error for invalid URL")
	}
	if _, err := hostKey("/relative/path"); err == nil {
		t.Errorf("expected error for URL without host")
	}
}
