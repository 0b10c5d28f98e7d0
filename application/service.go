// Package application orchestrates the per-dependency reconciliation
// workflow.
package application

import (
	"context"
	"fmt"
	"path/filepath"

	logger "github.com/sirupsen/logrus"

	"github.com/platformci/repobump/config"
	"github.com/platformci/repobump/domain"
	"github.com/platformci/repobump/infrastructure/manifest"
)

// ReconcileService drives the full update flow: extract pinned dependencies
// from the manifest, compare each against the freshest remote tag, and for
// every stale dependency create a branch, commit the bump, push, and open a
// pull request — restoring the working tree to pristine base in between.
//
// Dependencies are processed strictly sequentially: they share one working
// tree and one checked-out branch.
type ReconcileService struct {
	store    *manifest.Store
	provider domain.Provider
	worktree domain.Worktree
}

// NewReconcileService creates a service around the given collaborators.
func NewReconcileService(
	store *manifest.Store,
	provider domain.Provider,
	worktree domain.Worktree,
) *ReconcileService {
	return &ReconcileService{
		store:    store,
		provider: provider,
		worktree: worktree,
	}
}

// Result summarizes one run.
type Result struct {
	Processed int
	Created   int
	Skipped   int
	Errors    int
}

// branchRegistry snapshots branch existence once per run instead of querying
// ad hoc inside the loop: the remote tracking set decides which dependencies
// were already handled by an earlier run or a human.
type branchRegistry struct {
	remote map[string]struct{}
}

func (r *branchRegistry) remoteExists(name string) bool {
	_, ok := r.remote[name]
	return ok
}

// Run executes one reconciliation cycle. Only pre-loop failures (manifest
// unreadable, target repository unresolvable, remote refs unavailable)
// return an error; per-dependency failures are logged and counted, and the
// run continues with the next dependency.
func (s *ReconcileService) Run(ctx context.Context, settings *config.Settings) (*Result, error) {
	manifestPath := filepath.Join(settings.ParentDir, settings.ManifestFile)

	m, err := s.store.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	target, err := domain.ParseRepositoryURL("https://github.com/" + settings.TargetRepo)
	if err != nil {
		return nil, fmt.Errorf("invalid target repository %q", settings.TargetRepo)
	}

	remoteBranches, err := s.worktree.RemoteBranches()
	if err != nil {
		return nil, err
	}
	registry := &branchRegistry{remote: remoteBranches}

	deps := m.PinnedBySemver(settings.CompiledSemverPattern())
	logger.Infof("Found %d semver-pinned dependencies in %s", len(deps), settings.ManifestFile)

	result := &Result{}
	for _, dep := range deps {
		result.Processed++

		updated, reconcileErr := s.reconcile(ctx, target, dep, registry, settings, manifestPath)
		if reconcileErr != nil {
			logger.Errorf(
				"Failed to update %s (current %s): %v",
				dep.URL, dep.Version, reconcileErr,
			)
			result.Errors++
			continue
		}
		if updated {
			result.Created++
		} else {
			result.Skipped++
		}
	}

	logger.Infof(
		"Run complete: %d dependencies processed, %d PRs created, %d skipped, %d errors",
		result.Processed, result.Created, result.Skipped, result.Errors,
	)
	return result, nil
}

// reconcile runs the workflow for one dependency. It reports whether a pull
// request was created; skips (already current, unverifiable pin, branch
// already on the remote) return (false, nil) and leave the working tree
// untouched.
func (s *ReconcileService) reconcile(
	ctx context.Context,
	target domain.RepoID,
	dep domain.Dependency,
	registry *branchRegistry,
	settings *config.Settings,
	manifestPath string,
) (bool, error) {
	repoID, err := domain.ParseRepositoryURL(dep.URL)
	if err != nil {
		return false, err
	}

	tags, err := s.provider.ListTags(ctx, repoID)
	if err != nil {
		return false, err
	}

	// The pinned version not being among the remote tags means freshness
	// cannot be verified (drifted pin or deleted tag upstream). Preserved as
	// a silent skip for parity with the original behavior, though it can
	// hide genuinely stale dependencies.
	if !domain.ContainsTag(tags, dep.Version) {
		logger.Debugf("%s: pinned version %s not among remote tags, skipping", repoID, dep.Version)
		return false, nil
	}

	latest := domain.LatestNewerTag(tags, dep.Version)
	if latest == dep.Version {
		logger.Debugf("%s: already at the latest version %s", repoID, dep.Version)
		return false, nil
	}

	branch := settings.BranchPrefix + repoID.String() + "/" + latest
	if registry.remoteExists(branch) {
		logger.Infof("Branch %q already exists on the remote, skipping %s", branch, repoID)
		return false, nil
	}

	logger.Infof("%s: %s -> %s", repoID, dep.Version, latest)

	return true, s.updateDependency(ctx, target, repoID, dep, latest, branch, settings, manifestPath)
}

// updateDependency performs the local mutation and PR creation for one stale
// dependency. From the moment the branch is created, the restore to pristine
// base is guaranteed on every exit path.
func (s *ReconcileService) updateDependency(
	ctx context.Context,
	target, repoID domain.RepoID,
	dep domain.Dependency,
	latest, branch string,
	settings *config.Settings,
	manifestPath string,
) error {
	created, err := s.worktree.CreateBranch(branch)
	if err != nil {
		return fmt.Errorf("failed to create branch %q: %w", branch, err)
	}
	if !created {
		logger.Infof("Branch %q already exists locally", branch)
	}

	defer s.restoreBaseline(settings.BaseBranch)

	if err := s.applyUpdate(ctx, target, repoID, dep, latest, branch, settings, manifestPath); err != nil {
		s.rollback(branch, created, settings.BaseBranch)
		return err
	}
	return nil
}

// applyUpdate is the guarded region: checkout, manifest bump, commit, push,
// pull request. Any failure aborts this dependency only.
func (s *ReconcileService) applyUpdate(
	ctx context.Context,
	target, repoID domain.RepoID,
	dep domain.Dependency,
	latest, branch string,
	settings *config.Settings,
	manifestPath string,
) error {
	if err := s.worktree.Checkout(branch); err != nil {
		return err
	}

	// Load a fresh manifest for this dependency instead of mutating a shared
	// object across iterations; the hard reset after the workflow restores
	// the on-disk file.
	m, err := s.store.Load(manifestPath)
	if err != nil {
		return err
	}
	if err := m.SetVersion(dep.URL, latest); err != nil {
		return err
	}
	if err := s.store.Save(m, manifestPath); err != nil {
		return err
	}

	message := fmt.Sprintf("feat(%s): update %s to %s", settings.ManifestFile, repoID, latest)
	if err := s.worktree.StageAndCommit([]string{settings.ManifestFile}, message); err != nil {
		return err
	}

	if err := s.worktree.Push(ctx, branch); err != nil {
		return err
	}

	if err := s.worktree.Checkout(settings.BaseBranch); err != nil {
		return err
	}

	pr, err := s.provider.CreatePullRequest(ctx, target, domain.PullRequestInput{
		Title: message,
		Body: fmt.Sprintf(
			"This PR updates the version of the repository %s in %s",
			repoID, settings.ManifestFile,
		),
		SourceBranch: branch,
		TargetBranch: settings.BaseBranch,
	})
	if err != nil {
		return err
	}

	logger.Infof("Created PR #%d: %s (%s)", pr.Number, pr.Title, pr.URL)
	return nil
}

// rollback undoes a failed workflow: back to base, and the working branch is
// deleted only when this run created it.
func (s *ReconcileService) rollback(branch string, created bool, baseBranch string) {
	if err := s.worktree.Checkout(baseBranch); err != nil {
		logger.Warnf("Failed to check out %q during rollback: %v", baseBranch, err)
	}
	if !created {
		return
	}
	if err := s.worktree.DeleteBranch(branch, true); err != nil {
		logger.Warnf("Failed to delete branch %q: %v", branch, err)
		return
	}
	logger.Infof("Deleted branch %q", branch)
}

// restoreBaseline returns the tree to pristine base: base branch checked
// out, hard reset to the remote tip, untracked files removed. It runs after
// every dependency that mutated the tree, success or failure, so the next
// dependency starts from a clean baseline.
func (s *ReconcileService) restoreBaseline(baseBranch string) {
	if err := s.worktree.Checkout(baseBranch); err != nil {
		logger.Errorf("Failed to check out base branch %q: %v", baseBranch, err)
		return
	}
	if err := s.worktree.ResetHard("origin/" + baseBranch); err != nil {
		logger.Errorf("Failed to reset %q: %v", baseBranch, err)
	}
	if err := s.worktree.CleanUntracked(); err != nil {
		logger.Errorf("Failed to clean untracked files: %v", err)
	}
}
