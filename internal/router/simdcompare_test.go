package router

import "testing"

func TestComparePathEqualAndUnequal(t *testing.T) {
	if !comparePath("/a/b", "/a/b") {
		t.Fatalf("expected equal paths to compare equal")
	}
	if comparePath("/a/b", "/a/c") {
		t.Fatalf("expected different paths to compare unequal")
	}
	if comparePath("/a", "/ab") {
		t.Fatalf("expected different-length paths to compare unequal")
	}
}

func TestComparePathLongPaths(t *testing.T) {
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'x'
	}
	a := string(long)
	b := string(long)
	if !comparePath(a, b) {
		t.Fatalf("expected long identical paths to compare equal")
	}
	b2 := string(long)
	bb := []byte(b2)
	bb[299] = 'y'
	if comparePath(a, string(bb)) {
		t.Fatalf("expected long paths differing at the end to compare unequal")
	}
}
