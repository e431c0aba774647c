// Package maven defines the value types for Maven-style artifact
// identity: coordinates, scopes, exclusions, and declared dependencies.
//
// All types in this package are plain values, safe to copy and compare.
// The resolution, locking, and download layers build on these types
// without adding behavior to them.
package maven

import (
	"slices"
	"strings"
)

// Exclusion names an artifact identity removed from a dependency's
// transitive subtree. Exclusions apply to the branch they are declared
// on, not globally.
type Exclusion struct {
	Group    string
	Artifact string
}

// ID returns the excluded identity "group:artifact".
func (e Exclusion) ID() string { return e.Group + ":" + e.Artifact }

// Dependency is a declared dependency: a coordinate plus the scope,
// optional flag, classifier, and exclusion set it was declared with.
type Dependency struct {
	Coordinate
	Scope      Scope
	Optional   bool
	Classifier string
	Exclusions []Exclusion
}

// NewDependency creates a compile-scope dependency with no exclusions.
func NewDependency(group, artifact, version string) Dependency {
	return Dependency{
		Coordinate: Coordinate{Group: group, Artifact: artifact, Version: version},
		Scope:      ScopeCompile,
	}
}

// Excludes reports whether the given identity is excluded by this dependency.
func (d Dependency) Excludes(id string) bool {
	return slices.ContainsFunc(d.Exclusions, func(e Exclusion) bool {
		return e.ID() == id
	})
}

// SortDependencies orders dependencies by identity, then version, then
// scope. Resolution and lock file output rely on this order being total
// so results never depend on map iteration or arrival order.
func SortDependencies(deps []Dependency) {
	slices.SortFunc(deps, func(a, b Dependency) int {
		if c := strings.Compare(a.ID(), b.ID()); c != 0 {
			return c
		}
		if c := strings.Compare(a.Version, b.Version); c != 0 {
			return c
		}
		return strings.Compare(string(a.Scope), string(b.Scope))
	})
}
