package lockfile

import (
	"fmt"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/jxtool/jx/pkg/maven"
)

// Fingerprint hashes the declared dependency set into a short stable
// digest. Any change to the set (adding or removing a dependency,
// bumping a version, changing a scope or an exclusion) changes the
// fingerprint and therefore marks the lock stale.
//
// The hash input is a canonical form: one line per dependency, sorted,
// with exclusions sorted within each line. Declaration order in
// jx.toml never affects the result.
func Fingerprint(declared []maven.Dependency) string {
	lines := make([]string, 0, len(declared))
	for _, d := range declared {
		var sb strings.Builder
		sb.WriteString(d.String())
		sb.WriteByte(':')
		sb.WriteString(string(d.Scope))
		if d.Optional {
			sb.WriteString(":optional")
		}
		if d.Classifier != "" {
			sb.WriteString(":classifier=" + d.Classifier)
		}
		if len(d.Exclusions) > 0 {
			ids := make([]string, len(d.Exclusions))
			for i, ex := range d.Exclusions {
				ids[i] = ex.ID()
			}
			slices.Sort(ids)
			sb.WriteString(":excludes=" + strings.Join(ids, ","))
		}
		lines = append(lines, sb.String())
	}
	slices.Sort(lines)

	h := xxhash.New()
	for _, line := range lines {
		h.WriteString(line)
		h.WriteString("\n")
	}
	return fmt.Sprintf("xxh64:%016x", h.Sum64())
}
