package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jxtool/jx/pkg/install"
	"github.com/jxtool/jx/pkg/project"
)

// newInstallCmd creates the install command.
func newInstallCmd() *cobra.Command {
	var (
		file        string
		force       bool
		production  bool
		noLib       bool
		parallelism int
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Resolve, download, and install all declared dependencies",
		Long: `Install resolves the dependency graph declared in jx.toml, downloads
the artifacts into the shared cache, commits jx.lock, and copies the
jars into lib/. When jx.lock matches the declared set, resolution is
skipped and the locked versions are installed as-is.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, dir, err := loadManifest(file)
			if err != nil {
				return err
			}
			return runInstall(cmd, m, install.Options{
				Dir:         dir,
				Force:       force,
				Production:  production,
				NoLib:       noLib,
				Parallelism: parallelism,
			})
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", project.DefaultName, "path to the project manifest")
	cmd.Flags().BoolVar(&force, "force", false, "re-resolve even when the lock file is up to date")
	cmd.Flags().BoolVar(&production, "production", false, "install only compile and runtime dependencies")
	cmd.Flags().BoolVar(&noLib, "no-lib", false, "skip copying jars into lib/")
	cmd.Flags().IntVar(&parallelism, "parallelism", 0, "max concurrent fetches (default 8)")
	return cmd
}

// runInstall executes the install pipeline and prints the summary. It
// is shared by install, add, remove, and update.
func runInstall(cmd *cobra.Command, m *project.Manifest, opts install.Options) error {
	logger := loggerFromContext(cmd.Context())
	opts.Logger = logger.Debugf

	p := newProgress(logger)
	summary, err := install.New(m, opts).Run(cmd.Context())
	if err != nil {
		return err
	}

	if summary.FromLock {
		p.done(fmt.Sprintf("Installed %d artifacts from lock", summary.Resolved))
	} else {
		p.done(fmt.Sprintf("Resolved and installed %d artifacts", summary.Resolved))
	}

	printSuccess("Installed %d artifacts", summary.Resolved)
	printDetail("%d downloaded, %d from cache", summary.Downloaded, summary.Cached)
	if !summary.FromLock {
		printDetail("Lock file written: %s", summary.LockPath)
	}
	if summary.LibDir != "" {
		printDetail("Jars in %s", summary.LibDir)
	}
	return nil
}
