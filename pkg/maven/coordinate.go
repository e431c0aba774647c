package maven

import (
	"fmt"
	"strings"
)

// Coordinate uniquely identifies an artifact: group, artifact name, version.
// Coordinates are immutable value types; equality and ordering ignore scope.
type Coordinate struct {
	Group    string
	Artifact string
	Version  string
}

// ID returns the artifact identity "group:artifact" without the version.
// Two coordinates with the same ID are versions of the same artifact.
func (c Coordinate) ID() string {
	return c.Group + ":" + c.Artifact
}

// String returns the full coordinate "group:artifact:version".
func (c Coordinate) String() string {
	return c.Group + ":" + c.Artifact + ":" + c.Version
}

// RepoPath returns the repository-relative directory for this coordinate,
// e.g. "com/google/guava/guava/32.1.3-jre".
func (c Coordinate) RepoPath() string {
	return strings.ReplaceAll(c.Group, ".", "/") + "/" + c.Artifact + "/" + c.Version
}

// JarName returns the artifact filename, e.g. "guava-32.1.3-jre.jar".
// A non-empty classifier is appended before the extension.
func (c Coordinate) JarName(classifier string) string {
	if classifier != "" {
		return fmt.Sprintf("%s-%s-%s.jar", c.Artifact, c.Version, classifier)
	}
	return fmt.Sprintf("%s-%s.jar", c.Artifact, c.Version)
}

// PomName returns the POM filename, e.g. "guava-32.1.3-jre.pom".
func (c Coordinate) PomName() string {
	return fmt.Sprintf("%s-%s.pom", c.Artifact, c.Version)
}

// ParseCoordinate parses "group:artifact" or "group:artifact:version".
// Group and artifact must be non-empty; the version may be omitted.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
		return Coordinate{}, fmt.Errorf("invalid coordinate %q (expected group:artifact[:version])", s)
	}
	c := Coordinate{Group: parts[0], Artifact: parts[1]}
	if len(parts) == 3 {
		c.Version = parts[2]
	}
	return c, nil
}
