package resolve

import (
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// CompareVersions returns a negative number, zero, or a positive number
// as a sorts before, equal to, or after b.
//
// Both versions are first parsed leniently (go-version accepts the
// usual Maven shapes like "32.1.3-jre" or "2.0-beta-1"). If either side
// does not parse, the comparison falls back to byte-wise lexicographic
// order. The fallback is a documented total order for otherwise
// incomparable version strings: it is arbitrary but applied
// consistently, which is what reproducibility requires.
func CompareVersions(a, b string) int {
	va, errA := goversion.NewVersion(a)
	vb, errB := goversion.NewVersion(b)
	if errA == nil && errB == nil {
		if c := va.Compare(vb); c != 0 {
			return c
		}
		// Equal after normalization ("1.0" vs "1.0.0"); fall through
		// so distinct strings still order deterministically.
	}
	return strings.Compare(a, b)
}

// MaxVersion returns the higher of two version strings under
// [CompareVersions].
func MaxVersion(a, b string) string {
	if CompareVersions(a, b) >= 0 {
		return a
	}
	return b
}
