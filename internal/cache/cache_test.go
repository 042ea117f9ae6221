package cache

import (
	"fmt"
	"testing"

	"codewarden/internal/artifact"
	"codewarden/internal/governor"
)

func okResult(governorID string, fp artifact.Fingerprint) *governor.VerificationResult {
	return &governor.VerificationResult{
		GovernorID:  governorID,
		Fingerprint: fp,
		Status:      governor.StatusOK,
	}
}

func TestVerificationCacheHitMiss(t *testing.T) {
	c := NewVerificationCache(8)
	fp := artifact.FingerprintOf("some code")

	if _, ok := c.Get("style", fp); ok {
		t.Fatal("unexpected hit on empty cache")
	}

	c.Put("style", fp, okResult("style", fp))

	got, ok := c.Get("style", fp)
	if !ok || got.GovernorID != "style" {
		t.Fatalf("Get = %#v, %v", got, ok)
	}
	if _, ok := c.Get("security", fp); ok {
		t.Fatal("hit for different governor on same fingerprint")
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestVerificationCacheSkipsNonOK(t *testing.T) {
	c := NewVerificationCache(8)
	fp := artifact.FingerprintOf("x")

	c.Put("g", fp, &governor.VerificationResult{GovernorID: "g", Fingerprint: fp, Status: governor.StatusTimeout})
	c.Put("g", fp, &governor.VerificationResult{GovernorID: "g", Fingerprint: fp, Status: governor.StatusCrashed})

	if _, ok := c.Get("g", fp); ok {
		t.Fatal("timeout/crashed result was cached")
	}
}

func TestLRUEviction(t *testing.T) {
	c := NewVerificationCache(2)

	fps := make([]artifact.Fingerprint, 3)
	for i := range fps {
		fps[i] = artifact.FingerprintOf(fmt.Sprintf("artifact-%d", i))
		c.Put("g", fps[i], okResult("g", fps[i]))
	}

	if _, ok := c.Get("g", fps[0]); ok {
		t.Fatal("oldest entry survived eviction")
	}
	if _, ok := c.Get("g", fps[2]); !ok {
		t.Fatal("newest entry evicted")
	}
	if stats := c.Stats(); stats.Evictions != 1 || stats.Size != 2 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestLRURecencyOrdering(t *testing.T) {
	c := NewVerificationCache(2)
	a := artifact.FingerprintOf("a")
	b := artifact.FingerprintOf("b")
	d := artifact.FingerprintOf("d")

	c.Put("g", a, okResult("g", a))
	c.Put("g", b, okResult("g", b))

	// Touch a so b becomes the eviction candidate.
	if _, ok := c.Get("g", a); !ok {
		t.Fatal("miss on a")
	}
	c.Put("g", d, okResult("g", d))

	if _, ok := c.Get("g", a); !ok {
		t.Fatal("recently used entry evicted")
	}
	if _, ok := c.Get("g", b); ok {
		t.Fatal("least recently used entry survived")
	}
}

func TestGenerationCacheKeyedByPromptAndContext(t *testing.T) {
	c := NewGenerationCache(4)
	art := artifact.New("package main\n")

	c.Put("prompt", "ctx", art)

	got, ok := c.Get("prompt", "ctx")
	if !ok || got.Fingerprint() != art.Fingerprint() {
		t.Fatalf("Get = %#v, %v", got, ok)
	}
	if _, ok := c.Get("prompt", "other"); ok {
		t.Fatal("hit for different context")
	}
	if _, ok := c.Get("other", "ctx"); ok {
		t.Fatal("hit for different prompt")
	}
}
