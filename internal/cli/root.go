// Package cli implements the jx command-line interface.
//
// This package provides commands for installing dependencies, editing
// the declared set in jx.toml, inspecting the resolved tree, and
// managing the artifact cache. The CLI is built using cobra and
// supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - install: Resolve, download, and materialize dependencies
//   - add: Declare a dependency in jx.toml and install
//   - remove: Drop a declared dependency and install
//   - update: Re-resolve, optionally bumping to the latest version
//   - tree: Render the resolved dependency tree
//   - cache: Manage the artifact cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers
// are passed through context.Context.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jxtool/jx/pkg/buildinfo"
	"github.com/jxtool/jx/pkg/project"
)

// Execute runs the jx CLI. This is the main entry point; the context
// carries cancellation from the process signal handler.
func Execute(ctx context.Context) error {
	var verbose bool

	root := &cobra.Command{
		Use:          "jx",
		Short:        "jx is a dependency manager for Java projects",
		Long:         `jx resolves, locks, and installs Maven artifacts declared in jx.toml, with a reproducible jx.lock and a shared local artifact cache.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			cmd.SetContext(withLogger(cmd.Context(), newLogger(os.Stderr, level)))
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newInstallCmd())
	root.AddCommand(newAddCmd())
	root.AddCommand(newRemoveCmd())
	root.AddCommand(newUpdateCmd())
	root.AddCommand(newTreeCmd())
	root.AddCommand(newCacheCmd())

	err := root.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		printError("%v", err)
	}
	return err
}

// loadManifest loads the manifest at file (defaulting to ./jx.toml) and
// returns it with its project directory.
func loadManifest(file string) (*project.Manifest, string, error) {
	if file == "" {
		file = project.DefaultName
	}
	m, err := project.Load(file)
	if err != nil {
		if errors.Is(err, project.ErrNotExist) {
			return nil, "", fmt.Errorf("no %s found in the current directory", file)
		}
		return nil, "", err
	}
	return m, filepath.Dir(file), nil
}
