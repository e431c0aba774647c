package resolve

import (
	"slices"
	"strings"

	"github.com/jxtool/jx/pkg/maven"
)

// Node is one resolved artifact identity: the winning version, the
// scope and depth it was resolved at, and every chain by which it was
// reached. Nodes are owned by the resolution run that produced them and
// are not mutated afterwards.
type Node struct {
	Coordinate maven.Coordinate
	Scope      maven.Scope
	Classifier string
	Depth      int
	Optional   bool

	// Paths are the identity chains from declared dependencies to this
	// node, kept for conflict and cycle diagnostics. A depth-0 node has
	// one empty chain.
	Paths []Chain

	// Source is the base URL of the repository the node's metadata was
	// fetched from.
	Source string
}

// Edge records that the resolved parent identity declared a dependency
// on the child identity. Edges are kept for diagnostics and tree
// rendering; the authoritative version for Child is its Node, not the
// version declared on the edge.
type Edge struct {
	Parent   string // "" for edges from the project's declared set
	Child    string
	Declared maven.Dependency
}

// Graph is the output of a resolution run: one node per artifact
// identity plus the explicit edge list. It is acyclic by construction;
// cycles abort resolution.
type Graph struct {
	nodes map[string]*Node
	edges []Edge
}

func newGraph() *Graph {
	return &Graph{nodes: make(map[string]*Node)}
}

// Node returns the resolved node for an identity ("group:artifact").
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of resolved nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns all nodes sorted by identity. The order is total, so
// two runs over the same metadata produce identical sequences.
func (g *Graph) Nodes() []*Node {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	nodes := make([]*Node, len(ids))
	for i, id := range ids {
		nodes[i] = g.nodes[id]
	}
	return nodes
}

// Edges returns the edge list sorted by (parent, child).
func (g *Graph) Edges() []Edge {
	edges := slices.Clone(g.edges)
	slices.SortFunc(edges, func(a, b Edge) int {
		if c := strings.Compare(a.Parent, b.Parent); c != 0 {
			return c
		}
		return strings.Compare(a.Child, b.Child)
	})
	return edges
}

// Children returns the resolved child identities of id, sorted.
func (g *Graph) Children(id string) []string {
	var out []string
	for _, e := range g.edges {
		if e.Parent == id {
			out = append(out, e.Child)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Roots returns the identities reached directly from the declared set,
// sorted.
func (g *Graph) Roots() []string {
	return g.Children("")
}

func (g *Graph) addNode(n *Node) { g.nodes[n.Coordinate.ID()] = n }

func (g *Graph) addEdge(parent string, dep maven.Dependency) {
	g.edges = append(g.edges, Edge{Parent: parent, Child: dep.ID(), Declared: dep})
}
