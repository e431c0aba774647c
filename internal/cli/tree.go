package cli

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jxtool/jx/pkg/lockfile"
	"github.com/jxtool/jx/pkg/maven"
	"github.com/jxtool/jx/pkg/project"
	"github.com/jxtool/jx/pkg/registry"
	"github.com/jxtool/jx/pkg/resolve"
)

// treeNode is one artifact in the rendered tree, with resolved child
// identities.
type treeNode struct {
	version  string
	scope    string
	children []string
}

// newTreeCmd creates the tree command.
func newTreeCmd() *cobra.Command {
	var (
		file       string
		transitive bool
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Render the resolved dependency tree",
		Long: `Tree prints the declared dependencies with their resolved versions.
With --transitive the full resolved graph is rendered as an indented
tree. A fresh jx.lock is used when present; otherwise the graph is
resolved on the fly without touching the lock.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, dir, err := loadManifest(file)
			if err != nil {
				return err
			}
			declared, err := m.Declared()
			if err != nil {
				return err
			}

			nodes, err := treeNodes(cmd, m, dir, declared)
			if err != nil {
				return err
			}

			roots := make([]string, 0, len(declared))
			for _, dep := range declared {
				roots = append(roots, dep.ID())
			}
			slices.Sort(roots)
			roots = slices.Compact(roots)

			fmt.Println(styleTitle.Render(m.Project.Name) + " " + styleDim.Render(m.Project.Version))
			seen := make(map[string]bool)
			for _, id := range roots {
				renderTree(nodes, id, 0, transitive, seen)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", project.DefaultName, "path to the project manifest")
	cmd.Flags().BoolVarP(&transitive, "transitive", "t", false, "include transitive dependencies")
	return cmd
}

// treeNodes builds the id-indexed tree view, from the lock file when it
// is fresh and from a live resolution otherwise.
func treeNodes(cmd *cobra.Command, m *project.Manifest, dir string, declared []maven.Dependency) (map[string]treeNode, error) {
	logger := loggerFromContext(cmd.Context())

	lock, err := lockfile.Load(filepath.Join(dir, lockfile.DefaultName))
	if err == nil && !lock.Stale(declared) {
		nodes := make(map[string]treeNode, len(lock.Entries))
		for _, e := range lock.Entries {
			nodes[e.ID()] = treeNode{version: e.Version, scope: e.Scope, children: e.Requires}
		}
		return nodes, nil
	}
	if err != nil && err != lockfile.ErrNotExist {
		return nil, err
	}

	logger.Debug("lock file missing or stale, resolving")
	client := registry.NewHTTPClient(m.Repos()...)
	graph, err := resolve.New(client, resolve.Options{Logger: logger.Debugf}).Resolve(cmd.Context(), declared)
	if err != nil {
		return nil, err
	}
	nodes := make(map[string]treeNode, graph.Len())
	for _, n := range graph.Nodes() {
		id := n.Coordinate.ID()
		nodes[id] = treeNode{version: n.Coordinate.Version, scope: string(n.Scope), children: graph.Children(id)}
	}
	return nodes, nil
}

// renderTree prints id and, when transitive is set, its subtree. A node
// whose subtree was already rendered is shown dimmed and not expanded
// again.
func renderTree(nodes map[string]treeNode, id string, depth int, transitive bool, seen map[string]bool) {
	n, ok := nodes[id]
	if !ok {
		return
	}

	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	line := indent + styleValue.Render(id) + " " + styleVersion.Render(n.version)
	if n.scope != "" && n.scope != "compile" {
		line += " " + styleScope.Render("("+n.scope+")")
	}
	if seen[id] {
		fmt.Println(line + " " + styleDim.Render("(*)"))
		return
	}
	fmt.Println(line)
	seen[id] = true

	if !transitive {
		return
	}
	for _, child := range n.children {
		renderTree(nodes, child, depth+1, transitive, seen)
	}
}
