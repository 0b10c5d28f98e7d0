package domain

import "context"

// Provider abstracts the Git hosting service. The reconciliation service
// only needs two operations: listing a repository's tags and opening a pull
// request.
type Provider interface {
	// ListTags returns all tags for a repository, in whatever order the host
	// API yields them. Callers must not assume sortedness.
	ListTags(ctx context.Context, repo RepoID) ([]string, error)

	// CreatePullRequest opens a pull request on the hosting service.
	CreatePullRequest(ctx context.Context, repo RepoID, input PullRequestInput) (*PullRequest, error)
}
