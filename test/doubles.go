// Package testdoubles provides test doubles (spies, stubs) for domain
// interfaces. These are hand-crafted implementations — no mock frameworks.
package testdoubles

import (
	"context"

	"github.com/platformci/repobump/domain"
)

// ---------------------------------------------------------------------------
// SpyProvider
// ---------------------------------------------------------------------------

// PRCall records one CreatePullRequest invocation.
type PRCall struct {
	Repo  domain.RepoID
	Input domain.PullRequestInput
}

// SpyProvider implements domain.Provider as a configurable spy. Configure
// the response fields for the methods your test exercises, then inspect the
// call-tracking fields to verify behavior.
type SpyProvider struct {
	// --- ListTags ---
	Tags        map[string][]string // "owner/name" -> tags, in host order
	ListTagsErr error
	// spy: repos whose tags were requested
	ListedRepos []string

	// --- CreatePullRequest ---
	PR          *domain.PullRequest
	CreatePRErr error
	// spy: every PR creation attempt
	PRCalls []PRCall
}

func (p *SpyProvider) ListTags(_ context.Context, repo domain.RepoID) ([]string, error) {
	p.ListedRepos = append(p.ListedRepos, repo.String())
	if p.ListTagsErr != nil {
		return nil, p.ListTagsErr
	}
	return p.Tags[repo.String()], nil
}

func (p *SpyProvider) CreatePullRequest(
	_ context.Context,
	repo domain.RepoID,
	input domain.PullRequestInput,
) (*domain.PullRequest, error) {
	p.PRCalls = append(p.PRCalls, PRCall{Repo: repo, Input: input})
	if p.CreatePRErr != nil {
		return nil, p.CreatePRErr
	}
	if p.PR != nil {
		return p.PR, nil
	}
	return &domain.PullRequest{Number: 1, Title: input.Title}, nil
}

// ---------------------------------------------------------------------------
// SpyWorktree
// ---------------------------------------------------------------------------

// CommitCall records one StageAndCommit invocation.
type CommitCall struct {
	Paths   []string
	Message string
}

// DeleteCall records one DeleteBranch invocation.
type DeleteCall struct {
	Name  string
	Force bool
}

// SpyWorktree implements domain.Worktree as a configurable spy.
type SpyWorktree struct {
	// --- configuration ---
	RemoteURLValue    string
	RemoteURLErr      error
	RemoteBranchSet   []string
	RemoteBranchesErr error
	ExistingBranches  []string // branches that already exist locally
	CreateBranchErr   error
	FailCheckoutOf    string // branch name whose checkout fails
	CheckoutErr       error  // error returned for FailCheckoutOf
	CommitErr         error
	PushErr           error
	ResetErr          error
	CleanErr          error
	DeleteErr         error

	// --- spy records ---
	CreatedBranches []string
	Checkouts       []string
	Commits         []CommitCall
	Pushes          []string
	Resets          []string
	CleanCalls      int
	Deletes         []DeleteCall
}

func (w *SpyWorktree) RemoteURL() (string, error) {
	return w.RemoteURLValue, w.RemoteURLErr
}

func (w *SpyWorktree) RemoteBranches() (map[string]struct{}, error) {
	if w.RemoteBranchesErr != nil {
		return nil, w.RemoteBranchesErr
	}
	branches := make(map[string]struct{}, len(w.RemoteBranchSet))
	for _, b := range w.RemoteBranchSet {
		branches[b] = struct{}{}
	}
	return branches, nil
}

func (w *SpyWorktree) BranchExists(name string) (bool, error) {
	for _, b := range w.ExistingBranches {
		if b == name {
			return true, nil
		}
	}
	for _, b := range w.CreatedBranches {
		if b == name {
			return true, nil
		}
	}
	return false, nil
}

func (w *SpyWorktree) CreateBranch(name string) (bool, error) {
	if w.CreateBranchErr != nil {
		return false, w.CreateBranchErr
	}
	exists, _ := w.BranchExists(name)
	if exists {
		return false, nil
	}
	w.CreatedBranches = append(w.CreatedBranches, name)
	return true, nil
}

func (w *SpyWorktree) Checkout(name string) error {
	if name == w.FailCheckoutOf && w.CheckoutErr != nil {
		return w.CheckoutErr
	}
	w.Checkouts = append(w.Checkouts, name)
	return nil
}

func (w *SpyWorktree) StageAndCommit(paths []string, message string) error {
	if w.CommitErr != nil {
		return w.CommitErr
	}
	w.Commits = append(w.Commits, CommitCall{Paths: paths, Message: message})
	return nil
}

func (w *SpyWorktree) Push(_ context.Context, branch string) error {
	if w.PushErr != nil {
		return w.PushErr
	}
	w.Pushes = append(w.Pushes, branch)
	return nil
}

func (w *SpyWorktree) ResetHard(ref string) error {
	if w.ResetErr != nil {
		return w.ResetErr
	}
	w.Resets = append(w.Resets, ref)
	return nil
}

func (w *SpyWorktree) CleanUntracked() error {
	if w.CleanErr != nil {
		return w.CleanErr
	}
	w.CleanCalls++
	return nil
}

func (w *SpyWorktree) DeleteBranch(name string, force bool) error {
	if w.DeleteErr != nil {
		return w.DeleteErr
	}
	w.Deletes = append(w.Deletes, DeleteCall{Name: name, Force: force})
	return nil
}
