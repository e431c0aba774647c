// Package lockfile persists the resolved dependency set as jx.lock.
//
// The lock file is the reproducibility contract: it records the exact
// version, scope, checksum, and source repository of every resolved
// artifact, plus a fingerprint of the declared dependency set it was
// computed from. As long as the fingerprint matches, the lock is
// authoritative and installs skip resolution entirely.
//
// Serialization is TOML with entries in sorted identity order, so two
// resolutions over the same metadata produce byte-identical files.
// Writes are atomic (temp file then rename); a crash mid-write never
// leaves a corrupt lock behind.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jxtool/jx/pkg/maven"
	"github.com/jxtool/jx/pkg/resolve"
)

// FormatVersion is the lock file format version. Loading a file with a
// different version fails; there is no cross-version migration.
const FormatVersion = 1

// DefaultName is the lock file name next to jx.toml.
const DefaultName = "jx.lock"

// ErrNotExist is returned by Load when no lock file is present.
var ErrNotExist = errors.New("lock file does not exist")

// Entry is the persisted counterpart of a resolved node.
type Entry struct {
	Group      string   `toml:"group"`
	Artifact   string   `toml:"artifact"`
	Version    string   `toml:"version"`
	Classifier string   `toml:"classifier,omitempty"`
	Scope      string   `toml:"scope"`
	Checksum   string   `toml:"checksum,omitempty"` // "sha256:<hex>", filled on first download
	Source     string   `toml:"source"`             // repository base URL
	Requires   []string `toml:"requires,omitempty"` // child identities, for tree rendering
}

// Coordinate returns the entry's coordinate value.
func (e Entry) Coordinate() maven.Coordinate {
	return maven.Coordinate{Group: e.Group, Artifact: e.Artifact, Version: e.Version}
}

// ID returns the artifact identity "group:artifact".
func (e Entry) ID() string { return e.Group + ":" + e.Artifact }

// File is a parsed lock file: the format version, the declared-set
// fingerprint, and the ordered entries.
type File struct {
	Version     int     `toml:"version"`
	Fingerprint string  `toml:"fingerprint"`
	Entries     []Entry `toml:"dependency"`
}

// Load reads and parses a lock file. It returns ErrNotExist when the
// file is absent, which callers treat as "resolve from scratch" rather
// than a failure.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("read lock file: %w", err)
	}

	var f File
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse lock file: %w", err)
	}
	if f.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported lock file version %d (expected %d)", f.Version, FormatVersion)
	}
	return &f, nil
}

// Stale reports whether the lock was computed from a different declared
// dependency set than the given one.
func (f *File) Stale(declared []maven.Dependency) bool {
	return f.Fingerprint != Fingerprint(declared)
}

// Entry returns the entry for an artifact identity.
func (f *File) Entry(id string) (Entry, bool) {
	for _, e := range f.Entries {
		if e.ID() == id {
			return e, true
		}
	}
	return Entry{}, false
}

// SetChecksum records the verified checksum for an identity. Used after
// a fresh resolution, when downloads compute digests the lock does not
// have yet.
func (f *File) SetChecksum(id, checksum string) {
	for i := range f.Entries {
		if f.Entries[i].ID() == id {
			f.Entries[i].Checksum = checksum
			return
		}
	}
}

// FromGraph projects a resolved graph into a lock file. Entries are
// emitted in sorted identity order; checksums start empty and are
// filled in by the download manager before commit.
func FromGraph(g *resolve.Graph, declared []maven.Dependency) *File {
	f := &File{
		Version:     FormatVersion,
		Fingerprint: Fingerprint(declared),
	}
	for _, n := range g.Nodes() {
		// An optional child dropped during resolution leaves an edge
		// with no node; requires lists resolved identities only.
		var requires []string
		for _, child := range g.Children(n.Coordinate.ID()) {
			if _, ok := g.Node(child); ok {
				requires = append(requires, child)
			}
		}
		f.Entries = append(f.Entries, Entry{
			Group:      n.Coordinate.Group,
			Artifact:   n.Coordinate.Artifact,
			Version:    n.Coordinate.Version,
			Classifier: n.Classifier,
			Scope:      string(n.Scope),
			Source:     n.Source,
			Requires:   requires,
		})
	}
	return f
}

// Write atomically persists the lock file: marshal, write to a temp
// file in the same directory, fsync, then rename over the target.
func (f *File) Write(path string) error {
	data, err := f.Marshal()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jx.lock-*")
	if err != nil {
		return fmt.Errorf("write lock file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write lock file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync lock file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close lock file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("commit lock file: %w", err)
	}
	return nil
}

// Marshal serializes the lock file deterministically: entries are
// sorted by identity before encoding, and TOML struct encoding emits
// fields in declaration order.
func (f *File) Marshal() ([]byte, error) {
	slices.SortFunc(f.Entries, func(a, b Entry) int {
		return strings.Compare(a.ID(), b.ID())
	})

	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return nil, fmt.Errorf("encode lock file: %w", err)
	}
	return []byte(buf.String()), nil
}
