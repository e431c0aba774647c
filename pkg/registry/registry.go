// Package registry fetches dependency metadata for Maven coordinates
// from one or more remote repositories.
//
// The package is purely a data-fetch boundary: each call performs
// network I/O and returns a [Metadata] snapshot, or one of the sentinel
// errors. It never mutates local state and keeps no per-coordinate
// memoization; the resolver is responsible for fetching each coordinate
// at most once per run.
package registry

import (
	"context"
	"errors"

	"github.com/jxtool/jx/pkg/maven"
)

var (
	// ErrNotFound is returned when a coordinate does not exist in any
	// configured repository. Not-found failures are permanent and are
	// never retried.
	ErrNotFound = errors.New("artifact not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection
	// errors, 5xx responses) after retries are exhausted.
	ErrNetwork = errors.New("network error")
)

// Metadata is the resolved view of one artifact's POM: its direct
// dependencies, the parent coordinate (if any), and the managed-version
// table used to fill in dependencies declared without a version.
type Metadata struct {
	Coordinate maven.Coordinate

	// Dependencies are the artifact's direct dependencies. Versions
	// left blank in the POM are filled from the managed table where
	// possible; a dependency may still carry an empty version if no
	// managed entry exists, which the resolver reports as a
	// resolution failure on that chain.
	Dependencies []maven.Dependency

	// Parent is the parent POM coordinate, already folded into
	// Managed by the client. Kept for diagnostics.
	Parent *maven.Coordinate

	// Managed maps artifact identity ("group:artifact") to the version
	// pinned by dependencyManagement, including inherited entries.
	Managed map[string]string

	// Source is the base URL of the repository the POM was fetched
	// from. Recorded into lock entries so installs on other machines
	// download from the same place.
	Source string
}

// Client fetches metadata for a coordinate. Implementations are
// stateless per call and safe for concurrent use.
type Client interface {
	FetchMetadata(ctx context.Context, coord maven.Coordinate) (*Metadata, error)
}

// Repository identifies a remote Maven-style repository.
type Repository struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// MavenCentral is the default repository queried when a project
// declares none.
var MavenCentral = Repository{
	Name: "central",
	URL:  "https://repo1.maven.org/maven2",
}
