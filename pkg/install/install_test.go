package install

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jxtool/jx/pkg/lockfile"
	"github.com/jxtool/jx/pkg/maven"
	"github.com/jxtool/jx/pkg/project"
	"github.com/jxtool/jx/pkg/registry"
)

// fakeRepo serves POMs and jars for a small fixed universe:
// com.example:app:1.0 depends on com.example:lib:2.0, and
// junit:junit:4.13.2 stands alone.
type fakeRepo struct {
	*httptest.Server
	requests  atomic.Int32
	beforeJar func() // called before serving any jar body, when set
}

func newFakeRepo(t *testing.T) *fakeRepo {
	t.Helper()
	files := map[string]string{
		"/com/example/app/1.0/app-1.0.pom": `<project>
  <groupId>com.example</groupId>
  <artifactId>app</artifactId>
  <version>1.0</version>
  <dependencies>
    <dependency>
      <groupId>com.example</groupId>
      <artifactId>lib</artifactId>
      <version>2.0</version>
    </dependency>
  </dependencies>
</project>`,
		"/com/example/lib/2.0/lib-2.0.pom": `<project>
  <groupId>com.example</groupId>
  <artifactId>lib</artifactId>
  <version>2.0</version>
</project>`,
		"/junit/junit/4.13.2/junit-4.13.2.pom": `<project>
  <groupId>junit</groupId>
  <artifactId>junit</artifactId>
  <version>4.13.2</version>
</project>`,
		"/com/example/app/1.0/app-1.0.jar":     "app jar bytes",
		"/com/example/lib/2.0/lib-2.0.jar":     "lib jar bytes",
		"/junit/junit/4.13.2/junit-4.13.2.jar": "junit jar bytes",
	}

	repo := &fakeRepo{}
	repo.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		repo.requests.Add(1)
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if repo.beforeJar != nil && strings.HasSuffix(r.URL.Path, ".jar") {
			repo.beforeJar()
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(repo.Close)
	return repo
}

func testManifest(repoURL string) *project.Manifest {
	m := &project.Manifest{
		Project: project.Info{Name: "fixture", Version: "0.1.0"},
		Repositories: []registry.Repository{
			{Name: "fake", URL: repoURL},
		},
	}
	m.Add(maven.Dependency{
		Coordinate: maven.Coordinate{Group: "com.example", Artifact: "app", Version: "1.0"},
		Scope:      maven.ScopeCompile,
	})
	m.Add(maven.Dependency{
		Coordinate: maven.Coordinate{Group: "junit", Artifact: "junit", Version: "4.13.2"},
		Scope:      maven.ScopeTest,
	})
	return m
}

func TestInstallEndToEnd(t *testing.T) {
	repo := newFakeRepo(t)
	dir := t.TempDir()
	cacheDir := t.TempDir()
	m := testManifest(repo.URL)

	summary, err := New(m, Options{Dir: dir, CacheDir: cacheDir}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Resolved)
	assert.Equal(t, 3, summary.Downloaded)
	assert.Equal(t, 0, summary.Cached)
	assert.False(t, summary.FromLock)

	// Lock committed with checksums and sources.
	lock, err := lockfile.Load(filepath.Join(dir, lockfile.DefaultName))
	require.NoError(t, err)
	require.Len(t, lock.Entries, 3)
	for _, e := range lock.Entries {
		assert.Contains(t, e.Checksum, "sha256:", "entry %s missing checksum", e.ID())
		assert.Equal(t, repo.URL, e.Source)
	}
	app, ok := lock.Entry("com.example:app")
	require.True(t, ok)
	assert.Equal(t, []string{"com.example:lib"}, app.Requires)

	// Jars materialized into lib/.
	for _, name := range []string{"app-1.0.jar", "lib-2.0.jar", "junit-4.13.2.jar"} {
		_, err := os.Stat(filepath.Join(dir, "lib", name))
		assert.NoError(t, err, "missing %s in lib/", name)
	}
}

func TestInstallSecondRunUsesLock(t *testing.T) {
	repo := newFakeRepo(t)
	dir := t.TempDir()
	cacheDir := t.TempDir()
	m := testManifest(repo.URL)

	_, err := New(m, Options{Dir: dir, CacheDir: cacheDir}).Run(context.Background())
	require.NoError(t, err)
	after := repo.requests.Load()

	summary, err := New(m, Options{Dir: dir, CacheDir: cacheDir}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.FromLock)
	assert.Equal(t, 3, summary.Cached)
	assert.Equal(t, 0, summary.Downloaded)
	assert.Equal(t, after, repo.requests.Load(), "locked install must perform zero network requests")
}

func TestInstallStaleLockReResolves(t *testing.T) {
	repo := newFakeRepo(t)
	dir := t.TempDir()
	cacheDir := t.TempDir()
	m := testManifest(repo.URL)

	_, err := New(m, Options{Dir: dir, CacheDir: cacheDir}).Run(context.Background())
	require.NoError(t, err)

	// Dropping a declared dependency invalidates the fingerprint.
	require.True(t, m.Remove("junit:junit"))
	summary, err := New(m, Options{Dir: dir, CacheDir: cacheDir}).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, summary.FromLock)
	assert.Equal(t, 2, summary.Resolved)

	lock, err := lockfile.Load(filepath.Join(dir, lockfile.DefaultName))
	require.NoError(t, err)
	_, ok := lock.Entry("junit:junit")
	assert.False(t, ok, "removed dependency still in lock")

	// The stale jar is swept from lib/.
	_, statErr := os.Stat(filepath.Join(dir, "lib", "junit-4.13.2.jar"))
	assert.True(t, os.IsNotExist(statErr), "removed dependency's jar still in lib/")
}

func TestInstallProductionSkipsTestScope(t *testing.T) {
	repo := newFakeRepo(t)
	dir := t.TempDir()
	cacheDir := t.TempDir()
	m := testManifest(repo.URL)

	summary, err := New(m, Options{Dir: dir, CacheDir: cacheDir, Production: true}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Resolved)

	_, statErr := os.Stat(filepath.Join(dir, "lib", "junit-4.13.2.jar"))
	assert.True(t, os.IsNotExist(statErr), "test-scope jar materialized under --production")

	// The lock still records the full resolved set.
	lock, err := lockfile.Load(filepath.Join(dir, lockfile.DefaultName))
	require.NoError(t, err)
	_, ok := lock.Entry("junit:junit")
	assert.True(t, ok, "lock must record test-scope entries even under --production")
}

func TestInstallCancelledRunCommitsNothing(t *testing.T) {
	repo := newFakeRepo(t)
	dir := t.TempDir()
	cacheDir := t.TempDir()
	m := testManifest(repo.URL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo.beforeJar = func() { cancel() }

	_, err := New(m, Options{Dir: dir, CacheDir: cacheDir}).Run(ctx)
	require.Error(t, err)

	// The lock is never committed from an interrupted run.
	_, err = lockfile.Load(filepath.Join(dir, lockfile.DefaultName))
	assert.ErrorIs(t, err, lockfile.ErrNotExist, "cancelled install committed a lock file")

	// Abandoned downloads leave nothing behind in the staging area.
	staging, readErr := os.ReadDir(filepath.Join(cacheDir, ".tmp"))
	if readErr == nil {
		assert.Empty(t, staging, "cancelled install left temp files in the cache staging area")
	} else {
		assert.True(t, os.IsNotExist(readErr), "read staging dir: %v", readErr)
	}
}

func TestInstallRerunReproducesLock(t *testing.T) {
	repo := newFakeRepo(t)
	dir := t.TempDir()
	cacheDir := t.TempDir()
	m := testManifest(repo.URL)

	_, err := New(m, Options{Dir: dir, CacheDir: cacheDir}).Run(context.Background())
	require.NoError(t, err)

	lockPath := filepath.Join(dir, lockfile.DefaultName)
	first, err := os.ReadFile(lockPath)
	require.NoError(t, err)

	// Deleting the lock forces a fresh resolution; artifacts come from
	// the cache and checksums are recomputed from the cached bytes.
	require.NoError(t, os.Remove(lockPath))
	summary, err := New(m, Options{Dir: dir, CacheDir: cacheDir}).Run(context.Background())
	require.NoError(t, err)
	require.False(t, summary.FromLock)

	second, err := os.ReadFile(lockPath)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second), "identical declarations must reproduce the lock byte for byte")
}

func TestInstallForceReResolves(t *testing.T) {
	repo := newFakeRepo(t)
	dir := t.TempDir()
	cacheDir := t.TempDir()
	m := testManifest(repo.URL)

	_, err := New(m, Options{Dir: dir, CacheDir: cacheDir}).Run(context.Background())
	require.NoError(t, err)

	summary, err := New(m, Options{Dir: dir, CacheDir: cacheDir, Force: true}).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, summary.FromLock, "--force must bypass the fresh lock")
	assert.Equal(t, 3, summary.Cached, "artifacts still come from the cache")
}
