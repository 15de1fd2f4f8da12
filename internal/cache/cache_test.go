package cache_test

import (
	"testing"

	"github.com/pebble-lang/pebble/internal/cache"
)

func TestPutGetRoundTrip(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	c, err := cache.Open("pebble-test")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	key := cache.HashSource(`fn main() { print("hi") }`)
	want := &cache.Payload{SourcePath: "main.pebble", Bodies: 2, HasMain: true}
	if err := c.Put(key, want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	var got cache.Payload
	hit, err := c.Get(key, &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit {
		t.Fatal("expected a cache hit")
	}
	if got.SourcePath != want.SourcePath || got.Bodies != want.Bodies || got.HasMain != want.HasMain {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestGetMissReturnsFalse(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	c, err := cache.Open("pebble-test")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var out cache.Payload
	hit, err := c.Get(cache.HashSource("never cached"), &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Fatal("expected a cache miss")
	}
}

func TestDropAllInvalidatesEntries(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	c, err := cache.Open("pebble-test")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	key := cache.HashSource("source")
	if err := c.Put(key, &cache.Payload{SourcePath: "x.pebble"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}

	var out cache.Payload
	hit, err := c.Get(key, &out)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Fatal("expected no hit after DropAll")
	}
}

func TestNilCacheIsSafe(t *testing.T) {
	var c *cache.DiskCache
	if err := c.Put(cache.HashSource("x"), &cache.Payload{}); err != nil {
		t.Fatalf("Put on nil cache: %v", err)
	}
	var out cache.Payload
	hit, err := c.Get(cache.HashSource("x"), &out)
	if err != nil || hit {
		t.Fatalf("Get on nil cache = (%v, %v), want (false, nil)", hit, err)
	}
}
