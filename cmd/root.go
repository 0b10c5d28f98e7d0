// Package cmd wires the command-line surface.
package cmd

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/platformci/repobump/application"
	"github.com/platformci/repobump/config"
	"github.com/platformci/repobump/domain"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var (
	parentDir     string
	targetRepo    string
	baseBranch    string
	branchPrefix  string
	semverPattern string
	manifestFile  string
	verbosity     int
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var rootCmd = &cobra.Command{
	Use:   "repobump",
	Short: "Create PRs to update pinned dependency versions in a .repos manifest",
	Long: `repobump scans a YAML .repos manifest for dependencies pinned to
semantic-version tags, queries GitHub for newer tags, and for every stale
dependency creates a branch, updates the manifest, commits, pushes, and
opens a pull request against the meta-repository.

The working tree is restored to the pristine base branch between
dependencies, so a failure in one update never contaminates the next.

Requires a GitHub token in the GITHUB_TOKEN environment variable.`,
	SilenceUsage: true,
	RunE:         runReconcile,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&parentDir, "parent-dir", config.DefaultParentDir,
		"Working-tree directory of the meta-repository")
	flags.StringVar(&targetRepo, "repo", "",
		"Repository (owner/name) the pull requests are opened against (default: derived from origin)")
	flags.StringVar(&baseBranch, "base-branch", config.DefaultBaseBranch,
		"Base branch of the meta-repository")
	flags.StringVar(&branchPrefix, "new-branch-prefix", config.DefaultBranchPrefix,
		"Prefix of newly created branch names")
	flags.StringVar(&semverPattern, "semantic-version-pattern", config.DefaultSemverPattern,
		"Regular expression a pinned version must match to be considered")
	flags.StringVar(&manifestFile, "repos-file", config.DefaultManifestFile,
		"Manifest file name, relative to the parent directory")
	flags.CountVarP(&verbosity, "verbose", "v",
		"Verbosity level (-v info, -vv debug)")
}

func runReconcile(command *cobra.Command, _ []string) error {
	config.ApplyVerbosity(verbosity)

	token, err := config.ResolveToken()
	if err != nil {
		return err
	}

	settings := &config.Settings{
		ParentDir:     parentDir,
		TargetRepo:    targetRepo,
		BaseBranch:    baseBranch,
		BranchPrefix:  branchPrefix,
		SemverPattern: semverPattern,
		ManifestFile:  manifestFile,
		Token:         token,
		Verbosity:     verbosity,
	}
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	container, err := buildContainer(settings)
	if err != nil {
		return err
	}

	return container.Invoke(func(svc *application.ReconcileService, worktree domain.Worktree) error {
		if settings.TargetRepo == "" {
			resolved, resolveErr := resolveTargetRepo(worktree)
			if resolveErr != nil {
				return resolveErr
			}
			settings.TargetRepo = resolved
			logger.Infof("Target repository resolved from origin: %s", resolved)
		}

		_, runErr := svc.Run(command.Context(), settings)
		return runErr
	})
}

// resolveTargetRepo derives the owner/name of the PR target from the working
// tree's origin remote when --repo is not given.
func resolveTargetRepo(worktree domain.Worktree) (string, error) {
	url, err := worktree.RemoteURL()
	if err != nil {
		return "", fmt.Errorf("cannot resolve target repository: %w", err)
	}

	id, err := domain.ParseRepositoryURL(url)
	if err != nil {
		return "", fmt.Errorf("cannot derive target repository from remote %q, set --repo", url)
	}
	return id.String(), nil
}
