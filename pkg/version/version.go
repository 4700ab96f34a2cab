// Package version implements the tolerant version-string comparison used by
// the Version Registry: a leading v/V is stripped, each dot-segment's
// leading digit run is compared numerically, non-numeric suffixes and
// missing trailing segments are tolerated.
package version

import (
	"strconv"
	"strings"
)

// Version is a parsed, comparable version string.
type Version struct {
	raw      string
	segments []int
}

// Parse splits s into numeric segments per the tolerant grammar: an
// optional leading v/V is stripped, the string is split on '.', and each
// segment contributes the integer value of its leading digit run (0 if the
// segment has none, e.g. "-foo" or an empty trailing segment).
func Parse(s string) Version {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "v"), "V")
	parts := strings.Split(trimmed, ".")
	segments := make([]int, len(parts))
	for i, p := range parts {
		segments[i] = leadingDigits(p)
	}
	return Version{raw: s, segments: segments}
}

func leadingDigits(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}
	return n
}

// Compare returns -1, 0, or 1 as a compares less than, equal to, or greater
// than b, treating missing trailing segments as 0. This makes "1.2.3" >
// "1.2" and "v1.10" > "v1.9".
func Compare(a, b Version) int {
	n := len(a.segments)
	if len(b.segments) > n {
		n = len(b.segments)
	}
	for i := 0; i < n; i++ {
		var av, bv int
		if i < len(a.segments) {
			av = a.segments[i]
		}
		if i < len(b.segments) {
			bv = b.segments[i]
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return 0
}

// GTE reports whether v is greater than or equal to other.
func (v Version) GTE(other Version) bool { return Compare(v, other) >= 0 }

// String returns the canonical dotted form built from the parsed numeric
// segments with trailing zero segments trimmed, so "v1.2" and "1.2.0" both
// render as "1.2".
func (v Version) String() string {
	segs := v.segments
	for len(segs) > 1 && segs[len(segs)-1] == 0 {
		segs = segs[:len(segs)-1]
	}
	parts := make([]string, len(segs))
	for i, s := range segs {
		parts[i] = strconv.Itoa(s)
	}
	return strings.Join(parts, ".")
}

// Raw returns the original, unparsed string.
func (v Version) Raw() string { return v.raw }
