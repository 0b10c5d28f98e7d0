package application_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformci/repobump/application"
	"github.com/platformci/repobump/config"
	"github.com/platformci/repobump/domain"
	"github.com/platformci/repobump/infrastructure/manifest"
	testdoubles "github.com/platformci/repobump/test"
)

// --- helpers ---

func buildSettings(t *testing.T, manifestYAML string) *config.Settings {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "deps.repos"), []byte(manifestYAML), 0o644,
	))

	return &config.Settings{
		ParentDir:     dir,
		TargetRepo:    "acme/meta",
		BaseBranch:    "main",
		BranchPrefix:  "feat/update-",
		SemverPattern: config.DefaultSemverPattern,
		ManifestFile:  "deps.repos",
		Token:         "tok",
	}
}

func singleEntryManifest() string {
	return `repositories:
  core/lib:
    type: git
    url: https://github.com/acme/lib.git
    version: v1.0.0
`
}

func newService(provider *testdoubles.SpyProvider, worktree *testdoubles.SpyWorktree) *application.ReconcileService {
	return application.NewReconcileService(manifest.NewStore(), provider, worktree)
}

// --- tests ---

func TestReconcileService_Run(t *testing.T) {
	t.Parallel()

	t.Run("should branch, commit, push, and open a PR for a stale dependency", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		settings := buildSettings(t, singleEntryManifest())

		provider := &testdoubles.SpyProvider{
			Tags: map[string][]string{
				"acme/lib": {"v1.0.0", "v1.1.0"},
			},
			PR: &domain.PullRequest{Number: 7, Title: "t", URL: "https://github.com/acme/meta/pull/7"},
		}
		worktree := &testdoubles.SpyWorktree{}

		// when
		result, err := newService(provider, worktree).Run(ctx, settings)

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, 1, result.Created)
		assert.Equal(t, 0, result.Errors)

		branch := "feat/update-acme/lib/v1.1.0"
		assert.Equal(t, []string{branch}, worktree.CreatedBranches)
		require.NotEmpty(t, worktree.Checkouts)
		assert.Equal(t, branch, worktree.Checkouts[0])

		require.Len(t, worktree.Commits, 1)
		assert.Equal(t, []string{"deps.repos"}, worktree.Commits[0].Paths)
		assert.Equal(t, "feat(deps.repos): update acme/lib to v1.1.0", worktree.Commits[0].Message)

		assert.Equal(t, []string{branch}, worktree.Pushes)

		require.Len(t, provider.PRCalls, 1)
		call := provider.PRCalls[0]
		assert.Equal(t, "acme/meta", call.Repo.String())
		assert.Equal(t, "feat(deps.repos): update acme/lib to v1.1.0", call.Input.Title)
		assert.Equal(t, branch, call.Input.SourceBranch)
		assert.Equal(t, "main", call.Input.TargetBranch)
		assert.Contains(t, call.Input.Body, "acme/lib")

		// manifest was bumped on the working branch
		m, loadErr := manifest.NewStore().Load(filepath.Join(settings.ParentDir, "deps.repos"))
		require.NoError(t, loadErr)
		assert.Equal(t, "v1.1.0", m.Entry("core/lib").Version)

		// tree restored to pristine base
		assert.Equal(t, []string{"origin/main"}, worktree.Resets)
		assert.Equal(t, 1, worktree.CleanCalls)
		assert.Equal(t, "main", worktree.Checkouts[len(worktree.Checkouts)-1])
		assert.Empty(t, worktree.Deletes)
	})

	t.Run("should skip when the pinned version is not among the remote tags", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		settings := buildSettings(t, singleEntryManifest())

		provider := &testdoubles.SpyProvider{
			Tags: map[string][]string{
				"acme/lib": {"v1.1.0", "v1.2.0"},
			},
		}
		worktree := &testdoubles.SpyWorktree{}

		// when
		result, err := newService(provider, worktree).Run(ctx, settings)

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		assert.Empty(t, worktree.CreatedBranches)
		assert.Empty(t, worktree.Checkouts)
		assert.Empty(t, worktree.Commits)
		assert.Empty(t, provider.PRCalls)
	})

	t.Run("should skip when the dependency is already at the latest version", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		settings := buildSettings(t, singleEntryManifest())

		provider := &testdoubles.SpyProvider{
			Tags: map[string][]string{
				"acme/lib": {"v0.9.0", "v1.0.0"},
			},
		}
		worktree := &testdoubles.SpyWorktree{}

		// when
		result, err := newService(provider, worktree).Run(ctx, settings)

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		assert.Empty(t, worktree.CreatedBranches)
		assert.Empty(t, provider.PRCalls)
	})

	t.Run("should skip entirely when the branch already exists on the remote", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		settings := buildSettings(t, singleEntryManifest())

		provider := &testdoubles.SpyProvider{
			Tags: map[string][]string{
				"acme/lib": {"v1.0.0", "v1.1.0"},
			},
		}
		worktree := &testdoubles.SpyWorktree{
			RemoteBranchSet: []string{"main", "feat/update-acme/lib/v1.1.0"},
		}

		// when
		result, err := newService(provider, worktree).Run(ctx, settings)

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, result.Skipped)
		assert.Empty(t, worktree.CreatedBranches)
		assert.Empty(t, worktree.Checkouts)
		assert.Empty(t, worktree.Commits)
		assert.Empty(t, worktree.Pushes)
		assert.Empty(t, provider.PRCalls)

		// the manifest on disk is untouched
		m, loadErr := manifest.NewStore().Load(filepath.Join(settings.ParentDir, "deps.repos"))
		require.NoError(t, loadErr)
		assert.Equal(t, "v1.0.0", m.Entry("core/lib").Version)
	})

	t.Run("should delete the newly created branch when PR creation fails", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		settings := buildSettings(t, singleEntryManifest())

		provider := &testdoubles.SpyProvider{
			Tags: map[string][]string{
				"acme/lib": {"v1.0.0", "v1.1.0"},
			},
			CreatePRErr: domain.ErrRemoteAPI,
		}
		worktree := &testdoubles.SpyWorktree{}

		// when
		result, err := newService(provider, worktree).Run(ctx, settings)

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, result.Errors)
		assert.Equal(t, 0, result.Created)

		branch := "feat/update-acme/lib/v1.1.0"
		assert.Equal(t, []string{branch}, worktree.Pushes)
		require.Len(t, worktree.Deletes, 1)
		assert.Equal(t, branch, worktree.Deletes[0].Name)
		assert.True(t, worktree.Deletes[0].Force)

		// restore still ran after the rollback
		assert.Equal(t, []string{"origin/main"}, worktree.Resets)
		assert.Equal(t, 1, worktree.CleanCalls)
		assert.Equal(t, "main", worktree.Checkouts[len(worktree.Checkouts)-1])
	})

	t.Run("should not delete a pre-existing local branch on failure", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		settings := buildSettings(t, singleEntryManifest())

		provider := &testdoubles.SpyProvider{
			Tags: map[string][]string{
				"acme/lib": {"v1.0.0", "v1.1.0"},
			},
			CreatePRErr: domain.ErrRemoteAPI,
		}
		worktree := &testdoubles.SpyWorktree{
			ExistingBranches: []string{"feat/update-acme/lib/v1.1.0"},
		}

		// when
		result, err := newService(provider, worktree).Run(ctx, settings)

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, result.Errors)
		assert.Empty(t, worktree.Deletes)
	})

	t.Run("should continue with the next dependency after a tag fetch failure", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		settings := buildSettings(t, `repositories:
  core/broken:
    type: git
    url: https://github.com/acme/broken.git
    version: v1.0.0
  core/lib:
    type: git
    url: https://github.com/acme/lib.git
    version: v1.0.0
`)

		provider := &testdoubles.SpyProvider{
			ListTagsErr: domain.ErrRemoteAPI,
		}
		worktree := &testdoubles.SpyWorktree{}

		// when
		result, err := newService(provider, worktree).Run(ctx, settings)

		// then
		require.NoError(t, err)
		assert.Equal(t, 2, result.Processed)
		assert.Equal(t, 2, result.Errors)
		assert.Equal(t, []string{"acme/broken", "acme/lib"}, provider.ListedRepos)
	})

	t.Run("should count a dependency with an invalid URL as an error", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		settings := buildSettings(t, `repositories:
  core/lib:
    type: git
    url: https://example.com/acme/lib.git
    version: v1.0.0
`)

		provider := &testdoubles.SpyProvider{}
		worktree := &testdoubles.SpyWorktree{}

		// when
		result, err := newService(provider, worktree).Run(ctx, settings)

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, result.Errors)
		assert.Empty(t, provider.ListedRepos)
	})

	t.Run("should ignore entries not pinned to a semantic version", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		settings := buildSettings(t, `repositories:
  core/lib:
    type: git
    url: https://github.com/acme/lib.git
    version: main
`)

		provider := &testdoubles.SpyProvider{}
		worktree := &testdoubles.SpyWorktree{}

		// when
		result, err := newService(provider, worktree).Run(ctx, settings)

		// then
		require.NoError(t, err)
		assert.Equal(t, 0, result.Processed)
		assert.Empty(t, provider.ListedRepos)
	})

	t.Run("should fail before the loop when the manifest is unreadable", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		settings := buildSettings(t, singleEntryManifest())
		settings.ManifestFile = "absent.repos"

		// when
		_, err := newService(&testdoubles.SpyProvider{}, &testdoubles.SpyWorktree{}).Run(ctx, settings)

		// then
		require.Error(t, err)
	})

	t.Run("should fail before the loop when remote branches cannot be listed", func(t *testing.T) {
		t.Parallel()

		// given
		ctx := context.Background()
		settings := buildSettings(t, singleEntryManifest())
		worktree := &testdoubles.SpyWorktree{RemoteBranchesErr: errors.New("no remote")}

		// when
		_, err := newService(&testdoubles.SpyProvider{}, worktree).Run(ctx, settings)

		// then
		require.Error(t, err)
	})
}
