package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jxtool/jx/pkg/install"
	"github.com/jxtool/jx/pkg/maven"
	"github.com/jxtool/jx/pkg/project"
)

// newRemoveCmd creates the remove command.
func newRemoveCmd() *cobra.Command {
	var (
		file      string
		noInstall bool
	)

	cmd := &cobra.Command{
		Use:   "remove <group:artifact>",
		Short: "Drop a declared dependency and re-install",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, dir, err := loadManifest(file)
			if err != nil {
				return err
			}

			coord, err := maven.ParseCoordinate(args[0])
			if err != nil {
				return err
			}
			if !m.Remove(coord.ID()) {
				return fmt.Errorf("%s is not declared in jx.toml", coord.ID())
			}
			if err := m.Save(filepath.Join(dir, project.DefaultName)); err != nil {
				return err
			}
			printSuccess("Removed %s", styleValue.Render(coord.ID()))

			if noInstall {
				return nil
			}
			return runInstall(cmd, m, install.Options{Dir: dir})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", project.DefaultName, "path to the project manifest")
	cmd.Flags().BoolVar(&noInstall, "no-install", false, "update jx.toml without installing")
	return cmd
}
