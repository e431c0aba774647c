// Package install orchestrates a full dependency install: resolve (or
// reuse the lock), download into the cache, record checksums, commit
// the lock file, and materialize jars into the project's lib directory.
//
// The install pipeline is lock-first. When jx.lock exists and its
// fingerprint matches the declared dependency set, resolution is
// skipped entirely and the locked versions, sources, and checksums are
// authoritative. A stale or missing lock triggers a fresh resolution,
// and the new lock is committed only after every artifact has been
// downloaded and verified.
package install

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jxtool/jx/pkg/cache"
	"github.com/jxtool/jx/pkg/download"
	"github.com/jxtool/jx/pkg/lockfile"
	"github.com/jxtool/jx/pkg/maven"
	"github.com/jxtool/jx/pkg/project"
	"github.com/jxtool/jx/pkg/registry"
	"github.com/jxtool/jx/pkg/resolve"
)

// LibDirName is the directory jars are materialized into, next to
// jx.toml.
const LibDirName = "lib"

// Options configures an install run.
type Options struct {
	Dir         string               // project directory (default: ".")
	CacheDir    string               // artifact cache root ("" selects ~/.jx/cache)
	Force       bool                 // re-resolve even when the lock is fresh
	Production  bool                 // restrict to compile and runtime scopes
	NoLib       bool                 // skip materializing into lib/
	Parallelism int                  // concurrent fetches and downloads
	Logger      func(string, ...any) // progress callback (optional)
}

// Summary reports what an install run did.
type Summary struct {
	Resolved   int    // artifacts in the installed set
	Downloaded int    // artifacts fetched over the network
	Cached     int    // artifacts served from the cache
	FromLock   bool   // true when resolution was skipped
	LockPath   string // path of the committed lock file
	LibDir     string // materialization directory ("" when skipped)
}

// Installer runs installs for one project directory.
type Installer struct {
	manifest *project.Manifest
	opts     Options
}

// New creates an Installer for a loaded manifest.
func New(m *project.Manifest, opts Options) *Installer {
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return &Installer{manifest: m, opts: opts}
}

// Run executes the install pipeline.
func (in *Installer) Run(ctx context.Context) (*Summary, error) {
	declared, err := in.manifest.Declared()
	if err != nil {
		return nil, err
	}

	lockPath := filepath.Join(in.opts.Dir, lockfile.DefaultName)
	lock, fromLock, err := in.lockOrResolve(ctx, lockPath, declared)
	if err != nil {
		return nil, err
	}

	entries := lock.Entries
	if in.opts.Production {
		entries = productionEntries(entries)
	}

	c, err := cache.New(in.opts.CacheDir)
	if err != nil {
		return nil, err
	}
	mgr := download.NewManager(c, download.Options{
		Parallelism: in.opts.Parallelism,
		Logger:      in.opts.Logger,
	})

	reqs := make([]download.Request, len(entries))
	for i, e := range entries {
		reqs[i] = download.Request{
			Key:      cache.Key{Coordinate: e.Coordinate(), Classifier: e.Classifier},
			Source:   e.Source,
			Checksum: e.Checksum,
		}
	}
	results, err := mgr.EnsureAll(ctx, reqs)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		Resolved: len(entries),
		FromLock: fromLock,
		LockPath: lockPath,
	}
	for i, res := range results {
		if res.Cached {
			summary.Cached++
		} else {
			summary.Downloaded++
		}
		lock.SetChecksum(entries[i].ID(), res.Checksum)
	}

	if !fromLock {
		// Never commit a lock from an interrupted run.
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := lock.Write(lockPath); err != nil {
			return nil, err
		}
	}

	if !in.opts.NoLib {
		libDir := filepath.Join(in.opts.Dir, LibDirName)
		if err := materialize(libDir, results); err != nil {
			return nil, err
		}
		summary.LibDir = libDir
	}
	return summary, nil
}

// lockOrResolve loads a fresh lock, or runs resolution when the lock is
// missing, stale, or forcibly bypassed. The returned bool reports
// whether the lock was reused as-is.
func (in *Installer) lockOrResolve(ctx context.Context, lockPath string, declared []maven.Dependency) (*lockfile.File, bool, error) {
	if !in.opts.Force {
		lock, err := lockfile.Load(lockPath)
		switch {
		case err == nil && !lock.Stale(declared):
			in.opts.Logger("lock file is up to date, skipping resolution")
			return lock, true, nil
		case err == nil:
			in.opts.Logger("declared dependencies changed, re-resolving")
		case err != lockfile.ErrNotExist:
			return nil, false, err
		}
	}

	client := registry.NewHTTPClient(in.manifest.Repos()...)
	resolver := resolve.New(client, resolve.Options{
		Parallelism: in.opts.Parallelism,
		Logger:      in.opts.Logger,
	})
	graph, err := resolver.Resolve(ctx, declared)
	if err != nil {
		return nil, false, err
	}
	in.opts.Logger("resolved %d artifacts", graph.Len())
	return lockfile.FromGraph(graph, declared), false, nil
}

// productionEntries keeps compile and runtime entries.
func productionEntries(entries []lockfile.Entry) []lockfile.Entry {
	var out []lockfile.Entry
	for _, e := range entries {
		if e.Scope == string(maven.ScopeCompile) || e.Scope == string(maven.ScopeRuntime) {
			out = append(out, e)
		}
	}
	return out
}

// materialize copies the ensured jars from the cache into libDir,
// removing jars that are no longer part of the installed set. Copies go
// through a temp file so a crash never leaves a truncated jar behind.
func materialize(libDir string, results []download.Result) error {
	if err := os.MkdirAll(libDir, 0o755); err != nil {
		return fmt.Errorf("create lib dir: %w", err)
	}

	want := make(map[string]bool, len(results))
	for _, res := range results {
		name := filepath.Base(res.Path)
		want[name] = true
		if err := copyFile(res.Path, filepath.Join(libDir, name)); err != nil {
			return fmt.Errorf("materialize %s: %w", name, err)
		}
	}

	entries, err := os.ReadDir(libDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jar") || want[e.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(libDir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	if sameFile(src, dst) {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".jar-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}

// sameFile reports whether dst already has the same size as src. Cache
// entries are immutable, so a size match on an existing jar means the
// copy can be skipped.
func sameFile(src, dst string) bool {
	si, err := os.Stat(src)
	if err != nil {
		return false
	}
	di, err := os.Stat(dst)
	return err == nil && di.Size() == si.Size()
}
