// Package resolve builds the transitive dependency graph for a set of
// declared dependencies and applies deterministic conflict resolution:
// one winning version per artifact identity.
//
// Resolution is a breadth-first traversal. Metadata for independent
// branches is fetched concurrently, but every decision (which version
// wins, which error surfaces first) is made from deterministically
// sorted candidate sets, so the resolved graph and the lock file built
// from it are identical regardless of network timing.
package resolve

import (
	"context"
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/jxtool/jx/pkg/maven"
	"github.com/jxtool/jx/pkg/registry"
)

const defaultParallelism = 8

// Options configures a resolution run.
type Options struct {
	Parallelism int                  // Concurrent metadata fetches (default: 8)
	Logger      func(string, ...any) // Progress/warning callback (optional)
}

func (o Options) withDefaults() Options {
	opts := o
	if opts.Parallelism <= 0 {
		opts.Parallelism = defaultParallelism
	}
	if opts.Logger == nil {
		opts.Logger = func(string, ...any) {}
	}
	return opts
}

// Resolver turns declared dependencies into a resolved graph using a
// registry client for metadata. A Resolver memoizes metadata fetches
// per coordinate, so diamond dependencies cost one fetch; concurrent
// requests for the same coordinate join a single in-flight call.
//
// A Resolver is safe for concurrent use and may be shared between runs
// to reuse its metadata memo.
type Resolver struct {
	client registry.Client
	opts   Options

	flight singleflight.Group
	mu     sync.Mutex
	memo   map[string]*registry.Metadata
}

// New creates a Resolver backed by client.
func New(client registry.Client, opts Options) *Resolver {
	return &Resolver{
		client: client,
		opts:   opts.withDefaults(),
		memo:   make(map[string]*registry.Metadata),
	}
}

// item is one occurrence of a dependency on the traversal frontier:
// the declared dependency with its effective scope, the chain that
// reached it, and the exclusions inherited along that chain.
type item struct {
	dep      maven.Dependency
	depth    int
	chain    Chain
	excluded map[string]bool
}

func (it item) sortKey() string {
	return it.dep.ID() + "\x00" + it.dep.Version + "\x00" + string(it.dep.Scope) + "\x00" + it.chain.String()
}

// Resolve builds the resolved graph for the declared dependencies.
// It returns a *CycleError if a chain revisits an identity already on
// it, and a *ResolutionError when a non-optional dependency has no
// resolvable version or its metadata cannot be fetched.
func (r *Resolver) Resolve(ctx context.Context, declared []maven.Dependency) (*Graph, error) {
	g := newGraph()

	frontier := make([]item, 0, len(declared))
	for _, dep := range declared {
		frontier = append(frontier, item{dep: dep, depth: 0})
		g.addEdge("", dep)
	}

	for depth := 0; len(frontier) > 0; depth++ {
		winners, err := r.resolveLevel(ctx, g, frontier)
		if err != nil {
			return nil, err
		}
		frontier, err = r.expand(ctx, g, winners)
		if err != nil {
			return nil, err
		}
	}
	return g, nil
}

// resolveLevel applies conflict resolution to one BFS level and
// returns the newly resolved nodes paired with the winning occurrence
// (whose exclusions govern expansion).
type winner struct {
	node *Node
	item item
}

func (r *Resolver) resolveLevel(ctx context.Context, g *Graph, frontier []item) ([]winner, error) {
	slices.SortFunc(frontier, func(a, b item) int {
		return strings.Compare(a.sortKey(), b.sortKey())
	})

	for _, it := range frontier {
		if slices.Contains(it.chain, it.dep.ID()) {
			return nil, &CycleError{Chain: append(slices.Clone(it.chain), it.dep.ID())}
		}
	}

	// Group occurrences by identity, preserving sorted order.
	byID := make(map[string][]item)
	var ids []string
	for _, it := range frontier {
		id := it.dep.ID()
		if _, ok := byID[id]; !ok {
			ids = append(ids, id)
		}
		byID[id] = append(byID[id], it)
	}

	var winners []winner
	for _, id := range ids {
		group := byID[id]

		if n, ok := g.Node(id); ok {
			// Already resolved at a shallower depth: the earlier
			// version wins, these occurrences only contribute paths.
			for _, it := range group {
				n.Paths = append(n.Paths, slices.Clone(it.chain))
			}
			continue
		}

		best := pickWinner(group)
		if best.dep.Version == "" {
			return nil, &ResolutionError{
				Coordinate: id,
				Chain:      append(slices.Clone(best.chain), id),
				Reason:     "no version declared and no managed version found",
			}
		}

		n := &Node{
			Coordinate: best.dep.Coordinate,
			Scope:      best.dep.Scope,
			Classifier: best.dep.Classifier,
			Depth:      best.depth,
			Optional:   allOptional(group),
		}
		for _, it := range group {
			n.Paths = append(n.Paths, slices.Clone(it.chain))
		}
		g.addNode(n)
		winners = append(winners, winner{node: n, item: best})
	}
	return winners, nil
}

// pickWinner chooses among equal-depth occurrences of one identity:
// the highest version wins; on identical versions the strongest scope
// wins. The group is already deterministically sorted, so the choice
// never depends on traversal order.
func pickWinner(group []item) item {
	best := group[0]
	for _, it := range group[1:] {
		if c := CompareVersions(it.dep.Version, best.dep.Version); c > 0 {
			best = it
		} else if c == 0 && scopeRank(it.dep.Scope) < scopeRank(best.dep.Scope) {
			best = it
		}
	}
	return best
}

func scopeRank(s maven.Scope) int {
	switch s {
	case maven.ScopeCompile:
		return 0
	case maven.ScopeRuntime:
		return 1
	case maven.ScopeProvided:
		return 2
	default:
		return 3
	}
}

func allOptional(group []item) bool {
	for _, it := range group {
		if !it.dep.Optional {
			return false
		}
	}
	return true
}

// expand fetches metadata for the new winners and builds the next
// frontier. Fetches run concurrently under the parallelism bound;
// failures are examined in sorted order so the same error surfaces on
// every run.
func (r *Resolver) expand(ctx context.Context, g *Graph, winners []winner) ([]item, error) {
	metas := make([]*registry.Metadata, len(winners))
	errs := make([]error, len(winners))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.opts.Parallelism)
	for i, w := range winners {
		i, w := i, w
		eg.Go(func() error {
			metas[i], errs[i] = r.fetchMetadata(egCtx, w.node.Coordinate)
			if errs[i] != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var next []item
	for i, w := range winners {
		if err := errs[i]; err != nil {
			if w.node.Optional {
				r.opts.Logger("skipping optional %s: %v", w.node.Coordinate, err)
				delete(g.nodes, w.node.Coordinate.ID())
				continue
			}
			return nil, &ResolutionError{
				Coordinate: w.node.Coordinate.String(),
				Chain:      append(slices.Clone(w.item.chain), w.node.Coordinate.ID()),
				Reason:     "metadata fetch failed",
				Cause:      err,
			}
		}
		meta := metas[i]
		w.node.Source = meta.Source

		if !w.node.Scope.Transitive() {
			continue
		}

		parentID := w.node.Coordinate.ID()
		childChain := append(slices.Clone(w.item.chain), parentID)
		for _, child := range meta.Dependencies {
			if child.Optional || !child.Scope.Transitive() {
				continue
			}
			if w.item.excluded[child.ID()] || w.item.dep.Excludes(child.ID()) {
				continue
			}
			eff := child
			eff.Scope = propagateScope(w.node.Scope, child.Scope)

			excl := maps.Clone(w.item.excluded)
			if excl == nil && (len(w.item.dep.Exclusions) > 0 || len(child.Exclusions) > 0) {
				excl = make(map[string]bool)
			}
			for _, ex := range w.item.dep.Exclusions {
				excl[ex.ID()] = true
			}
			for _, ex := range child.Exclusions {
				excl[ex.ID()] = true
			}

			g.addEdge(parentID, eff)
			next = append(next, item{
				dep:      eff,
				depth:    w.node.Depth + 1,
				chain:    childChain,
				excluded: excl,
			})
		}
	}
	return next, nil
}

// propagateScope computes a child's effective scope: a runtime parent
// or a runtime declaration makes the child runtime, everything else in
// a transitive chain is compile.
func propagateScope(parent, child maven.Scope) maven.Scope {
	if parent == maven.ScopeRuntime || child == maven.ScopeRuntime {
		return maven.ScopeRuntime
	}
	return maven.ScopeCompile
}

// fetchMetadata memoizes registry fetches per coordinate. Concurrent
// callers for the same coordinate join a single in-flight request.
func (r *Resolver) fetchMetadata(ctx context.Context, coord maven.Coordinate) (*registry.Metadata, error) {
	key := coord.String()

	r.mu.Lock()
	if meta, ok := r.memo[key]; ok {
		r.mu.Unlock()
		return meta, nil
	}
	r.mu.Unlock()

	v, err, _ := r.flight.Do(key, func() (any, error) {
		meta, err := r.client.FetchMetadata(ctx, coord)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.memo[key] = meta
		r.mu.Unlock()
		return meta, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*registry.Metadata), nil
}

// IsNotFound reports whether err ultimately stems from a coordinate
// missing from every configured repository.
func IsNotFound(err error) bool {
	return errors.Is(err, registry.ErrNotFound)
}
