package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jxtool/jx/pkg/install"
	"github.com/jxtool/jx/pkg/maven"
	"github.com/jxtool/jx/pkg/project"
	"github.com/jxtool/jx/pkg/registry"
	"github.com/jxtool/jx/pkg/resolve"
)

// newUpdateCmd creates the update command.
func newUpdateCmd() *cobra.Command {
	var (
		file   string
		latest bool
	)

	cmd := &cobra.Command{
		Use:   "update [group:artifact]",
		Short: "Re-resolve dependencies, discarding lock pins",
		Long: `Update discards the lock pins and resolves the declared set again.
With a coordinate and --latest, the declaration in jx.toml is first
bumped to the newest released version.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, dir, err := loadManifest(file)
			if err != nil {
				return err
			}

			if len(args) == 1 {
				coord, err := maven.ParseCoordinate(args[0])
				if err != nil {
					return err
				}
				dep, ok := m.Get(coord.ID())
				if !ok {
					return fmt.Errorf("%s is not declared in jx.toml", coord.ID())
				}
				if latest {
					client := registry.NewHTTPClient(m.Repos()...)
					version, err := client.LatestVersion(cmd.Context(), coord.Group, coord.Artifact)
					if err != nil {
						return fmt.Errorf("look up latest version of %s: %w", coord.ID(), err)
					}
					switch {
					case version == dep.Version:
						printInfo("%s is already at the latest version (%s)", dep.ID(), version)
					case resolve.MaxVersion(version, dep.Version) == dep.Version:
						// Repository metadata can lag behind a manually
						// declared version; never downgrade.
						printWarning("%s reports %s as latest, keeping declared %s", dep.ID(), version, dep.Version)
					default:
						printInfo("Updating %s %s %s %s", dep.ID(),
							styleDim.Render(dep.Version), styleDim.Render("→"), styleVersion.Render(version))
						dep.Version = version
						m.Add(dep)
						if err := m.Save(filepath.Join(dir, project.DefaultName)); err != nil {
							return err
						}
					}
				}
			} else if latest {
				return fmt.Errorf("--latest requires a coordinate")
			}

			return runInstall(cmd, m, install.Options{Dir: dir, Force: true})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", project.DefaultName, "path to the project manifest")
	cmd.Flags().BoolVar(&latest, "latest", false, "bump the named dependency to its newest released version")
	return cmd
}
