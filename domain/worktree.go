package domain

import "context"

// Worktree wraps the local versioned working copy of the meta-repository.
// All mutations happen through this interface so the reconciliation service
// can restore the tree to pristine base between dependencies.
type Worktree interface {
	// RemoteURL returns the fetch URL of the configured remote.
	RemoteURL() (string, error)

	// RemoteBranches enumerates branch names known from the remote tracking
	// references, with the remote prefix stripped and duplicates removed.
	RemoteBranches() (map[string]struct{}, error)

	// BranchExists reports whether a local branch with the given name exists.
	BranchExists(name string) (bool, error)

	// CreateBranch creates the branch at HEAD if absent. It reports whether
	// the branch was newly created; an existing branch is not an error.
	CreateBranch(name string) (bool, error)

	// Checkout switches the working tree to the named branch. Fails with
	// ErrCheckoutFailed when the branch does not exist or the tree has
	// conflicting uncommitted state.
	Checkout(name string) error

	// StageAndCommit stages the given paths and commits with the given
	// message, appending a Signed-off-by trailer. Fails with
	// ErrNothingToCommit when the staged set is empty.
	StageAndCommit(paths []string, message string) error

	// Push pushes the branch to the configured remote. Fails with
	// ErrPushRejected on rejection.
	Push(ctx context.Context, branch string) error

	// ResetHard resets the current branch and working tree to the given
	// revision (e.g. "origin/main").
	ResetHard(ref string) error

	// CleanUntracked removes untracked files and directories.
	CleanUntracked() error

	// DeleteBranch removes a local branch. Only branches created by the
	// current run are ever deleted; force skips merge checks.
	DeleteBranch(name string, force bool) error
}
