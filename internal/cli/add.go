package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jxtool/jx/pkg/install"
	"github.com/jxtool/jx/pkg/maven"
	"github.com/jxtool/jx/pkg/project"
	"github.com/jxtool/jx/pkg/registry"
)

// newAddCmd creates the add command.
func newAddCmd() *cobra.Command {
	var (
		file      string
		scope     string
		optional  bool
		excludes  []string
		noInstall bool
	)

	cmd := &cobra.Command{
		Use:   "add <group:artifact[:version]>",
		Short: "Declare a dependency in jx.toml and install it",
		Long: `Add declares a dependency in jx.toml and runs install. Without a
version, the newest released version published in the configured
repositories is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, dir, err := loadManifest(file)
			if err != nil {
				return err
			}

			coord, err := maven.ParseCoordinate(args[0])
			if err != nil {
				return err
			}
			sc, err := maven.ParseScope(scope)
			if err != nil {
				return err
			}

			if coord.Version == "" {
				client := registry.NewHTTPClient(m.Repos()...)
				version, err := client.LatestVersion(cmd.Context(), coord.Group, coord.Artifact)
				if err != nil {
					return fmt.Errorf("look up latest version of %s: %w", coord.ID(), err)
				}
				coord.Version = version
				printInfo("Using latest version %s", styleVersion.Render(version))
			}

			dep := maven.Dependency{Coordinate: coord, Scope: sc, Optional: optional}
			for _, ex := range excludes {
				exc, err := maven.ParseCoordinate(ex)
				if err != nil || exc.Version != "" {
					return fmt.Errorf("invalid exclusion %q (expected group:artifact)", ex)
				}
				dep.Exclusions = append(dep.Exclusions, maven.Exclusion{Group: exc.Group, Artifact: exc.Artifact})
			}

			m.Add(dep)
			if err := m.Save(filepath.Join(dir, project.DefaultName)); err != nil {
				return err
			}
			printSuccess("Added %s (%s)", styleValue.Render(coord.String()), sc)

			if noInstall {
				return nil
			}
			return runInstall(cmd, m, install.Options{Dir: dir})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", project.DefaultName, "path to the project manifest")
	cmd.Flags().StringVarP(&scope, "scope", "s", "", "dependency scope (compile, runtime, test, provided)")
	cmd.Flags().BoolVar(&optional, "optional", false, "mark the dependency optional")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "transitive dependency to exclude (group:artifact, repeatable)")
	cmd.Flags().BoolVar(&noInstall, "no-install", false, "update jx.toml without installing")
	return cmd
}
