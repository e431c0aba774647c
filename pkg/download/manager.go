// Package download fetches resolved artifacts into the local cache.
//
// Downloads run on a bounded worker pool, deduplicate in-flight
// fetches per artifact key, verify integrity while streaming, and
// commit bytes to the cache only through temp-file-then-rename. A
// checksum mismatch is a hard error: the bytes are discarded and
// nothing appears under the entry's final name.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jxtool/jx/pkg/cache"
	"github.com/jxtool/jx/pkg/httputil"
	"github.com/jxtool/jx/pkg/registry"
)

const defaultParallelism = 8

// Request names one artifact to ensure: its cache key, the repository
// to fetch from, and the expected checksum ("" when the lock does not
// record one yet).
type Request struct {
	Key      cache.Key
	Source   string
	Checksum string
}

// Result reports one ensured artifact.
type Result struct {
	Key      cache.Key
	Path     string // final cache path
	Checksum string // verified checksum, "sha256:<hex>"
	Cached   bool   // true if no network access was needed
}

// Options configures a download manager.
type Options struct {
	Parallelism int                  // Concurrent downloads (default: 8)
	Logger      func(string, ...any) // Progress callback (optional)
}

// Manager coordinates artifact downloads into a shared cache handle.
// It is safe for concurrent use; concurrent requests for the same key
// join a single outstanding fetch instead of hitting the network twice.
type Manager struct {
	http   *http.Client
	cache  *cache.Cache
	opts   Options
	flight singleflight.Group
}

// NewManager creates a Manager that populates c.
func NewManager(c *cache.Cache, opts Options) *Manager {
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultParallelism
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	// No client-level timeout: large artifacts may stream longer than
	// any fixed deadline. Cancellation comes from the context.
	return &Manager{http: &http.Client{}, cache: c, opts: opts}
}

// EnsureAll makes every requested artifact present and verified in the
// cache, downloading the missing ones in parallel. Results come back in
// request order. The first failure aborts the run; in-flight downloads
// are cancelled and their temp files discarded.
func (m *Manager) EnsureAll(ctx context.Context, reqs []Request) ([]Result, error) {
	results := make([]Result, len(reqs))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(m.opts.Parallelism)
	for i, req := range reqs {
		i, req := i, req
		eg.Go(func() error {
			res, err := m.ensure(ctx, req)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ensure makes one artifact present, joining any in-flight fetch for
// the same key.
func (m *Manager) ensure(ctx context.Context, req Request) (Result, error) {
	v, err, _ := m.flight.Do(req.Key.String(), func() (any, error) {
		if m.cache.Has(req.Key) {
			checksum := req.Checksum
			if checksum == "" {
				var err error
				if checksum, err = cache.FileChecksum(m.cache.Path(req.Key)); err != nil {
					return Result{}, err
				}
			}
			return Result{Key: req.Key, Path: m.cache.Path(req.Key), Checksum: checksum, Cached: true}, nil
		}
		return m.fetch(ctx, req)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// fetch downloads, verifies, and commits one artifact. Transient
// failures are retried with backoff; a checksum mismatch or a 404 is
// permanent.
func (m *Manager) fetch(ctx context.Context, req Request) (Result, error) {
	url := registry.JarURL(req.Source, req.Key.Coordinate, req.Key.Classifier)
	m.opts.Logger("downloading %s", url)

	var res Result
	err := httputil.RetryWithBackoff(ctx, func() error {
		var err error
		res, err = m.attempt(ctx, req, url)
		return err
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

func (m *Manager) attempt(ctx context.Context, req Request, url string) (Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := m.http.Do(httpReq)
	if err != nil {
		return Result{}, httputil.Retryable(fmt.Errorf("%w: %v", registry.ErrNetwork, err))
	}
	defer resp.Body.Close()

	if err := registry.CheckStatus(resp.StatusCode); err != nil {
		if resp.StatusCode == http.StatusNotFound {
			return Result{}, fmt.Errorf("%w: %s at %s", registry.ErrNotFound, req.Key, url)
		}
		return Result{}, err
	}

	tmp, err := m.cache.TempFile(req.Key.Coordinate.Artifact + "-*")
	if err != nil {
		return Result{}, err
	}
	// The temp file must never survive a failed attempt, including
	// cancellation mid-stream.
	discard := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	hasher := cache.NewHasher()
	if _, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body); err != nil {
		discard()
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		return Result{}, httputil.Retryable(fmt.Errorf("%w: %v", registry.ErrNetwork, err))
	}
	if err := tmp.Close(); err != nil {
		discard()
		return Result{}, err
	}

	actual := cache.FormatChecksum(hasher)
	if req.Checksum != "" && actual != req.Checksum {
		os.Remove(tmp.Name())
		return Result{}, &cache.IntegrityError{Key: req.Key.String(), Expected: req.Checksum, Actual: actual}
	}

	path, err := m.cache.Put(req.Key, tmp.Name(), "")
	if err != nil {
		return Result{}, err
	}
	return Result{Key: req.Key, Path: path, Checksum: actual}, nil
}
