package httpwire

import (
	"testing"
	"time"
)

func TestDateCacheFormatsOncePerSecond(t *testing.T) {
	d := NewDateCache()
	t0 := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)

	v1 := d.Value(t0)
	v2 := d.Value(t0.Add(500 * time.Millisecond))

	if string(v1) != string(v2) {
		t.Fatalf("expected same cached value within the same wall-clock second, got %q vs %q", v1, v2)
	}
	if d.FormatCount() != 1 {
		t.Fatalf("expected exactly one format within the same second, got %d", d.FormatCount())
	}
}

func TestDateCacheReformatsAtSecondBoundary(t *testing.T) {
	d := NewDateCache()
	t0 := time.Date(2026, time.March, 5, 12, 0, 0, 0, time.UTC)

	v0 := d.Value(t0)
	v1 := d.Value(t0.Add(time.Second))

	if string(v0) == string(v1) {
		t.Fatalf("expected a new formatted value once the second advances")
	}
	if d.FormatCount() != 2 {
		t.Fatalf("expected exactly two formats across the second boundary, got %d", d.FormatCount())
	}
}
