package cache

import (
	"path/filepath"
	"testing"
	"time"
)

func TestKey_Deterministic(t *testing.T) {
	a := Key("wikipedia", "eiffel tower berlin")
	b := Key("wikipedia", "eiffel tower berlin")
	c := Key("newsapi", "eiffel tower berlin")

	if a != b {
		t.Errorf("Expected identical keys, got %s and %s", a, b)
	}
	if a == c {
		t.Error("Expected different sources to produce different keys")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Expected part boundaries to matter")
	}
}

func TestMemoryCache_SetGet(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Errorf("Expected v, got %q (found=%v)", got, ok)
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Expected key to be deleted")
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected entry to expire")
	}
}

func TestDiskCache_RoundTripAndExpiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	key := Key("gnews", "water boils")
	if err := c.Set(key, []byte(`[1,2,3]`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get(key)
	if !ok || string(got) != "[1,2,3]" {
		t.Errorf("Unexpected value %q (found=%v)", got, ok)
	}

	if err := c.Set(key, []byte("old"), -time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("Expected expired entry to be dropped")
	}

	if err := c.Delete("missing"); err != nil {
		t.Errorf("Expected deleting a missing key to succeed, got %v", err)
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	layered := NewLayeredCache(time.Minute, dir, time.Hour)

	// Write only to disk, then read through the layered cache
	disk := NewDiskCache(dir, time.Hour)
	if err := disk.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("disk Set failed: %v", err)
	}

	if got, ok := layered.Get("k"); !ok || string(got) != "v" {
		t.Fatalf("Expected disk hit, got %q (found=%v)", got, ok)
	}
	if _, ok := layered.memory.Get("k"); !ok {
		t.Error("Expected disk hit to be promoted to memory")
	}

	if err := layered.Clear(); err != nil {
		t.Errorf("Clear failed: %v", err)
	}
	if _, ok := layered.Get("k"); ok {
		t.Error("Expected cleared cache to miss")
	}
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	type payload struct {
		Titles []string `json:"titles"`
	}
	in := payload{Titles: []string{"Eiffel Tower"}}
	if err := SetJSON(c, "k", in, 0); err != nil {
		t.Fatalf("SetJSON failed: %v", err)
	}

	var out payload
	if !GetJSON(c, "k", &out) {
		t.Fatal("Expected GetJSON hit")
	}
	if len(out.Titles) != 1 || out.Titles[0] != "Eiffel Tower" {
		t.Errorf("Unexpected decoded value: %+v", out)
	}

	_ = c.Set("bad", []byte("{not json"), 0)
	if GetJSON(c, "bad", &out) {
		t.Error("Expected corrupt entry to miss")
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("Expected corrupt entry to be evicted")
	}
}
