package resolve

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jxtool/jx/pkg/maven"
	"github.com/jxtool/jx/pkg/registry"
)

// fakeClient serves canned metadata keyed by coordinate and counts
// fetches per coordinate.
type fakeClient struct {
	mu    sync.Mutex
	metas map[string]*registry.Metadata
	errs  map[string]error
	calls map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		metas: make(map[string]*registry.Metadata),
		errs:  make(map[string]error),
		calls: make(map[string]int),
	}
}

// artifact registers a coordinate with its direct dependencies.
func (f *fakeClient) artifact(coord string, deps ...maven.Dependency) {
	c, err := maven.ParseCoordinate(coord)
	if err != nil {
		panic(err)
	}
	f.metas[coord] = &registry.Metadata{
		Coordinate:   c,
		Dependencies: deps,
		Source:       "https://repo.test/maven2",
	}
}

func (f *fakeClient) FetchMetadata(_ context.Context, coord maven.Coordinate) (*registry.Metadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[coord.String()]++
	if err, ok := f.errs[coord.String()]; ok {
		return nil, err
	}
	meta, ok := f.metas[coord.String()]
	if !ok {
		return nil, registry.ErrNotFound
	}
	return meta, nil
}

func (f *fakeClient) callCount(coord string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[coord]
}

func dep(coord string, opts ...func(*maven.Dependency)) maven.Dependency {
	c, err := maven.ParseCoordinate(coord)
	if err != nil {
		panic(err)
	}
	d := maven.Dependency{Coordinate: c, Scope: maven.ScopeCompile}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func withScope(s maven.Scope) func(*maven.Dependency) {
	return func(d *maven.Dependency) { d.Scope = s }
}

func optional(d *maven.Dependency) { d.Optional = true }

func excluding(ids ...string) func(*maven.Dependency) {
	return func(d *maven.Dependency) {
		for _, id := range ids {
			c, err := maven.ParseCoordinate(id)
			if err != nil {
				panic(err)
			}
			d.Exclusions = append(d.Exclusions, maven.Exclusion{Group: c.Group, Artifact: c.Artifact})
		}
	}
}

func resolvedVersion(t *testing.T, g *Graph, id string) string {
	t.Helper()
	n, ok := g.Node(id)
	require.True(t, ok, "node %s missing from graph", id)
	return n.Coordinate.Version
}

func TestResolveTransitiveChain(t *testing.T) {
	client := newFakeClient()
	client.artifact("org.a:a:1.0", dep("org.b:b:1.0"))
	client.artifact("org.b:b:1.0", dep("org.c:c:1.0"))
	client.artifact("org.c:c:1.0")

	g, err := New(client, Options{}).Resolve(context.Background(), []maven.Dependency{dep("org.a:a:1.0")})
	require.NoError(t, err)

	require.Equal(t, 3, g.Len())
	assert.Equal(t, "1.0", resolvedVersion(t, g, "org.c:c"))

	a, _ := g.Node("org.a:a")
	c, _ := g.Node("org.c:c")
	assert.Equal(t, 0, a.Depth)
	assert.Equal(t, 2, c.Depth)
	assert.Equal(t, []string{"org.a:a"}, g.Roots())
	assert.Equal(t, []string{"org.c:c"}, g.Children("org.b:b"))
}

func TestResolveNearestWins(t *testing.T) {
	// d is declared at 2.0 through a depth-1 path and at 1.0 through a
	// depth-2 path. The shallower declaration wins even though it was
	// reached through a different branch.
	client := newFakeClient()
	client.artifact("org.a:a:1.0", dep("org.d:d:2.0"))
	client.artifact("org.b:b:1.0", dep("org.c:c:1.0"))
	client.artifact("org.c:c:1.0", dep("org.d:d:1.0"))
	client.artifact("org.d:d:2.0")
	client.artifact("org.d:d:1.0")

	g, err := New(client, Options{}).Resolve(context.Background(),
		[]maven.Dependency{dep("org.a:a:1.0"), dep("org.b:b:1.0")})
	require.NoError(t, err)

	assert.Equal(t, "2.0", resolvedVersion(t, g, "org.d:d"))

	// The losing occurrence still contributes a path for diagnostics.
	d, _ := g.Node("org.d:d")
	assert.Len(t, d.Paths, 2)
}

func TestResolveEqualDepthHigherVersionWins(t *testing.T) {
	client := newFakeClient()
	client.artifact("org.a:a:1.0", dep("org.d:d:1.0"))
	client.artifact("org.b:b:1.0", dep("org.d:d:1.1"))
	client.artifact("org.d:d:1.1")

	g, err := New(client, Options{}).Resolve(context.Background(),
		[]maven.Dependency{dep("org.a:a:1.0"), dep("org.b:b:1.0")})
	require.NoError(t, err)

	assert.Equal(t, "1.1", resolvedVersion(t, g, "org.d:d"))
	// Only the winner's metadata is fetched.
	assert.Equal(t, 0, client.callCount("org.d:d:1.0"))
}

func TestResolveDeterministic(t *testing.T) {
	// A wide fan-out resolved at high parallelism must produce the same
	// graph on every run.
	client := newFakeClient()
	var declared []maven.Dependency
	roots := []string{"org.r:r1:1.0", "org.r:r2:1.0", "org.r:r3:1.0", "org.r:r4:1.0"}
	for _, r := range roots {
		client.artifact(r, dep("org.shared:lib:1.0"), dep("org.other:util:2.0"))
		declared = append(declared, dep(r))
	}
	client.artifact("org.shared:lib:1.0")
	client.artifact("org.other:util:2.0")

	var snapshots []string
	for n := 0; n < 5; n++ {
		g, err := New(client, Options{Parallelism: 8}).Resolve(context.Background(), declared)
		require.NoError(t, err)

		var snap string
		for _, n := range g.Nodes() {
			snap += n.Coordinate.String() + "|" + string(n.Scope) + "\n"
		}
		snapshots = append(snapshots, snap)
	}
	for _, snap := range snapshots[1:] {
		assert.Equal(t, snapshots[0], snap)
	}
}

func TestResolveCycle(t *testing.T) {
	client := newFakeClient()
	client.artifact("org.a:a:1.0", dep("org.b:b:1.0"))
	client.artifact("org.b:b:1.0", dep("org.c:c:1.0"))
	client.artifact("org.c:c:1.0", dep("org.a:a:1.0"))

	_, err := New(client, Options{}).Resolve(context.Background(), []maven.Dependency{dep("org.a:a:1.0")})

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.Equal(t, Chain{"org.a:a", "org.b:b", "org.c:c", "org.a:a"}, cycleErr.Chain)
}

func TestResolveScopePropagation(t *testing.T) {
	client := newFakeClient()
	client.artifact("org.a:a:1.0",
		dep("org.compile:c:1.0"),
		dep("org.rt:r:1.0", withScope(maven.ScopeRuntime)),
		dep("org.test:t:1.0", withScope(maven.ScopeTest)),
	)
	client.artifact("org.compile:c:1.0")
	client.artifact("org.rt:r:1.0", dep("org.rt:inner:1.0"))
	client.artifact("org.rt:inner:1.0")
	client.artifact("org.junit:junit:5.0", dep("org.junit:platform:5.0"))
	client.artifact("org.junit:platform:5.0")

	declared := []maven.Dependency{
		dep("org.a:a:1.0"),
		dep("org.junit:junit:5.0", withScope(maven.ScopeTest)),
	}
	g, err := New(client, Options{}).Resolve(context.Background(), declared)
	require.NoError(t, err)

	// A test dependency of a transitive dependency never appears.
	_, ok := g.Node("org.test:t")
	assert.False(t, ok, "test-scope child must not be expanded")

	// A declared test dependency appears but is not expanded.
	junit, ok := g.Node("org.junit:junit")
	require.True(t, ok)
	assert.Equal(t, maven.ScopeTest, junit.Scope)
	_, ok = g.Node("org.junit:platform")
	assert.False(t, ok, "children of a test-scope node must not be expanded")

	// Runtime scope propagates through the chain.
	inner, ok := g.Node("org.rt:inner")
	require.True(t, ok)
	assert.Equal(t, maven.ScopeRuntime, inner.Scope)
}

func TestResolveExclusions(t *testing.T) {
	client := newFakeClient()
	client.artifact("org.a:a:1.0", dep("org.b:b:1.0"))
	client.artifact("org.b:b:1.0", dep("org.noisy:dep:1.0"))
	client.artifact("org.noisy:dep:1.0")

	declared := []maven.Dependency{dep("org.a:a:1.0", excluding("org.noisy:dep"))}
	g, err := New(client, Options{}).Resolve(context.Background(), declared)
	require.NoError(t, err)

	_, ok := g.Node("org.noisy:dep")
	assert.False(t, ok, "excluded identity must not be resolved on the excluding branch")
	_, ok = g.Node("org.b:b")
	assert.True(t, ok)
}

func TestResolveOptionalTransitiveSkipped(t *testing.T) {
	client := newFakeClient()
	client.artifact("org.a:a:1.0", dep("org.extra:extra:1.0", optional))
	client.artifact("org.extra:extra:1.0")

	g, err := New(client, Options{}).Resolve(context.Background(), []maven.Dependency{dep("org.a:a:1.0")})
	require.NoError(t, err)

	_, ok := g.Node("org.extra:extra")
	assert.False(t, ok, "optional transitive dependency must be skipped")
}

func TestResolveOptionalDeclaredIncluded(t *testing.T) {
	client := newFakeClient()
	client.artifact("org.extra:extra:1.0")

	g, err := New(client, Options{}).Resolve(context.Background(),
		[]maven.Dependency{dep("org.extra:extra:1.0", optional)})
	require.NoError(t, err)

	n, ok := g.Node("org.extra:extra")
	require.True(t, ok, "directly declared optional dependency must be included")
	assert.True(t, n.Optional)
}

func TestResolveMissingVersion(t *testing.T) {
	client := newFakeClient()
	client.artifact("org.a:a:1.0", dep("org.b:b"))

	_, err := New(client, Options{}).Resolve(context.Background(), []maven.Dependency{dep("org.a:a:1.0")})

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "org.b:b", resErr.Coordinate)
	assert.Contains(t, resErr.Chain, "org.a:a")
}

func TestResolveFetchFailure(t *testing.T) {
	client := newFakeClient()
	client.artifact("org.a:a:1.0", dep("org.gone:gone:1.0"))
	client.errs["org.gone:gone:1.0"] = registry.ErrNotFound

	_, err := New(client, Options{}).Resolve(context.Background(), []maven.Dependency{dep("org.a:a:1.0")})

	var resErr *ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, Chain{"org.a:a", "org.gone:gone"}, resErr.Chain)
}

func TestResolveOptionalFetchFailureDropsNode(t *testing.T) {
	client := newFakeClient()
	client.errs["org.flaky:flaky:1.0"] = registry.ErrNotFound

	g, err := New(client, Options{}).Resolve(context.Background(),
		[]maven.Dependency{dep("org.flaky:flaky:1.0", optional)})
	require.NoError(t, err)

	_, ok := g.Node("org.flaky:flaky")
	assert.False(t, ok)
}

func TestResolveMemoizesMetadata(t *testing.T) {
	client := newFakeClient()
	client.artifact("org.a:a:1.0", dep("org.shared:lib:1.0"))
	client.artifact("org.b:b:1.0", dep("org.shared:lib:1.0"))
	client.artifact("org.shared:lib:1.0")

	r := New(client, Options{})
	_, err := r.Resolve(context.Background(),
		[]maven.Dependency{dep("org.a:a:1.0"), dep("org.b:b:1.0")})
	require.NoError(t, err)

	assert.Equal(t, 1, client.callCount("org.shared:lib:1.0"))
}
