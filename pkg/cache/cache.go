// Package cache implements the local artifact content cache.
//
// Artifacts are stored under a per-key directory derived from their
// coordinate and classifier:
//
//	~/.jx/cache/<group>/<artifact>/<version>/<artifact>-<version>[-classifier].jar
//
// An entry is created once, by an atomic rename of a fully written and
// verified temp file, and is never mutated in place afterwards: a new
// version is a new key, not an overwrite. Visible files are therefore
// always complete, which makes concurrent readers (including other
// processes) safe without coordination. Writers additionally take an
// advisory file lock on the cache directory so two processes never race
// a rename for the same key.
package cache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/jxtool/jx/pkg/maven"
)

// Key addresses one cached artifact.
type Key struct {
	Coordinate maven.Coordinate
	Classifier string
}

// String returns the key in coordinate form, with the classifier
// appended when present.
func (k Key) String() string {
	if k.Classifier != "" {
		return k.Coordinate.String() + ":" + k.Classifier
	}
	return k.Coordinate.String()
}

// Cache is a handle to a cache directory. It is an explicit value
// passed to the download manager; there is no hidden process-global
// cache. Multiple Cache handles (across goroutines or processes) may
// share one directory.
type Cache struct {
	dir  string
	lock *flock.Flock
}

// DefaultDir returns ~/.jx/cache.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".jx", "cache"), nil
}

// New opens (creating if needed) a cache rooted at dir. An empty dir
// selects [DefaultDir].
func New(dir string) (*Cache, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Cache{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

// Dir returns the cache root directory.
func (c *Cache) Dir() string { return c.dir }

// Path returns the final path an artifact for key lives at, whether or
// not it is present.
func (c *Cache) Path(key Key) string {
	coord := key.Coordinate
	return filepath.Join(c.dir,
		filepath.FromSlash(strings.ReplaceAll(coord.Group, ".", "/")),
		coord.Artifact, coord.Version, coord.JarName(key.Classifier))
}

// Has reports whether key is present in the cache.
func (c *Cache) Has(key Key) bool {
	info, err := os.Stat(c.Path(key))
	return err == nil && info.Mode().IsRegular()
}

// Put moves a fully written temp file into place for key, verifying it
// against checksum first when one is expected. The source file must be
// on the same filesystem as the cache (use [Cache.TempFile]); it is
// consumed on success and removed on failure.
func (c *Cache) Put(key Key, src, checksum string) (string, error) {
	if checksum != "" {
		actual, err := FileChecksum(src)
		if err != nil {
			os.Remove(src)
			return "", err
		}
		if actual != checksum {
			os.Remove(src)
			return "", &IntegrityError{Key: key.String(), Expected: checksum, Actual: actual}
		}
	}

	dst := c.Path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		os.Remove(src)
		return "", err
	}

	if err := c.lock.Lock(); err != nil {
		os.Remove(src)
		return "", fmt.Errorf("lock cache: %w", err)
	}
	defer c.lock.Unlock()

	// Another process may have won the race while we waited.
	if c.Has(key) {
		os.Remove(src)
		return dst, nil
	}
	if err := os.Rename(src, dst); err != nil {
		os.Remove(src)
		return "", fmt.Errorf("commit cache entry: %w", err)
	}
	return dst, nil
}

// TempFile creates a temp file inside the cache's staging area, on the
// same filesystem as final entries so Put can rename it into place.
func (c *Cache) TempFile(pattern string) (*os.File, error) {
	staging := filepath.Join(c.dir, ".tmp")
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return nil, err
	}
	return os.CreateTemp(staging, pattern)
}

// Size returns the total byte size of all cached artifacts.
func (c *Cache) Size() (int64, error) {
	var total int64
	err := filepath.WalkDir(c.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total, err
}

// Clear removes every cached artifact, leaving the root directory in
// place.
func (c *Cache) Clear() error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.Name() == ".lock" {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
