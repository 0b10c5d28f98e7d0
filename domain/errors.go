package domain

import "errors"

// Dependency-scoped errors. All of them are caught at the per-dependency
// boundary by the reconciliation service; none aborts the overall run.
var (
	// ErrMalformedManifest reports a manifest without a usable top-level
	// "repositories" mapping.
	ErrMalformedManifest = errors.New("malformed manifest")

	// ErrUnknownRepository reports a SetVersion call for a URL that has no
	// entry in the manifest.
	ErrUnknownRepository = errors.New("repository not found in manifest")

	// ErrInvalidRepositoryURL reports a dependency URL that does not match
	// the hosting service's repository URL pattern.
	ErrInvalidRepositoryURL = errors.New("invalid repository URL")

	// ErrRemoteAPI wraps hosting-API failures (rate limit, auth, not found,
	// network) for both tag listing and pull-request creation.
	ErrRemoteAPI = errors.New("remote API request failed")

	// ErrCheckoutFailed reports a branch checkout the working tree rejected.
	ErrCheckoutFailed = errors.New("checkout failed")

	// ErrNothingToCommit reports a commit attempt with no staged changes.
	ErrNothingToCommit = errors.New("nothing to commit")

	// ErrCommitFailed reports a rejected commit operation.
	ErrCommitFailed = errors.New("commit failed")

	// ErrPushRejected reports a push the remote refused.
	ErrPushRejected = errors.New("push rejected")
)
