package router

import "golang.org/x/sys/cpu"

// useWideCompare records whether the CPU has a wide SIMD-capable
// compare unit (AVX2 on x86, ASIMD on arm64). Go's runtime string/byte
// equality (runtime.memequal) is already vectorized on both, so this
// flag doesn't select an assembly routine — it only picks between the
// built-in `==` fast path and a length-prefixed bailout check for very
// long paths; the byte comparison itself is always the runtime's.
var useWideCompare = cpu.X86.HasAVX2 || cpu.ARM64.HasASIMD

// comparePath reports whether two request paths are byte-identical,
// used by the radix tree's literal-segment matching (the exact-match
// registry's primary lookup is a plain Go map, which already does its
// own key comparison — this path only matters for ModeRadixParams).
func comparePath(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	if !useWideCompare && len(a) > 256 {
		// Without a wide-compare capable CPU, bail out on pathological
		// long paths via a cheap prefix check before the full compare.
		if a[:16] != b[:16] {
			return false
		}
	}
	return a == b
}
