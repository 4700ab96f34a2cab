package version

import "testing"

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"1.2.3", "1.2", 1},
		{"1.2", "1.2.3", -1},
		{"v1.10", "v1.9", 1},
		{"1.9", "1.10", -1},
		{"32.0.203.311-foo", "32.0.203.311", 0},
		{"1.2.0", "1.2", 0},
		{"v1.2.3", "1.2.3", 0},
	}
	for _, c := range cases {
		got := Compare(Parse(c.a), Parse(c.b))
		if got != c.want {
			t.Errorf("Compare(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}

func TestGTEReflexive(t *testing.T) {
	for _, s := range []string{"1.2.3", "v1.0", "2.0.0-rc1", ""} {
		v := Parse(s)
		if !v.GTE(v) {
			t.Errorf("Parse(%q).GTE(itself) = false, want true", s)
		}
	}
}

func TestStringCanonicalForm(t *testing.T) {
	if Parse("v1.2").String() != Parse("1.2.0").String() {
		t.Errorf("canonical forms differ: %q vs %q", Parse("v1.2").String(), Parse("1.2.0").String())
	}
}

func TestParseNonNumericSuffix(t *testing.T) {
	v := Parse("32.0.203.311-foo")
	if v.segments[3] != 311 {
		t.Errorf("segment 3 = %d, want 311", v.segments[3])
	}
}
