package resolve

import "testing"

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0", "1.0", 0},
		{"1.1", "1.0", 1},
		{"1.0", "1.1", -1},
		{"1.10", "1.9", 1},  // numeric, not lexicographic
		{"2.0.0", "2.0", 1}, // normalization ties break on the raw string
		{"1.0.1", "1.0", 1},
		{"r08", "r07", 1},    // unparseable versions fall back to byte order
		{"alpha", "beta", -1},
	}

	for _, tt := range tests {
		got := CompareVersions(tt.a, tt.b)
		if sign(got) != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want sign %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

func TestMaxVersion(t *testing.T) {
	if got := MaxVersion("1.2", "1.10"); got != "1.10" {
		t.Errorf("MaxVersion = %q, want 1.10", got)
	}
}
