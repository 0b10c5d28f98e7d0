// Package gitrepo implements domain.Worktree on top of go-git.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/platformci/repobump/domain"
)

const remoteName = "origin"

// Fallback committer identity when the repository has none configured.
const (
	botName  = "repobump[bot]"
	botEmail = "repobump[bot]@users.noreply.github.com"
)

// Driver drives a local git working tree through go-git.
type Driver struct {
	repo  *gogit.Repository
	token string
}

// Open opens the repository rooted at dir. The token is used for pushes to
// HTTPS remotes.
func Open(dir, token string) (*Driver, error) {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open repository at %q: %w", dir, err)
	}
	return &Driver{repo: repo, token: token}, nil
}

// RemoteURL returns the first fetch URL of the origin remote.
func (d *Driver) RemoteURL() (string, error) {
	remote, err := d.repo.Remote(remoteName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve remote %q: %w", remoteName, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("remote %q has no URL configured", remoteName)
	}
	return urls[0], nil
}

// RemoteBranches enumerates branch names from the remote tracking
// references, with the "origin/" prefix stripped and duplicates removed.
func (d *Driver) RemoteBranches() (map[string]struct{}, error) {
	refs, err := d.repo.References()
	if err != nil {
		return nil, fmt.Errorf("failed to list references: %w", err)
	}

	branches := make(map[string]struct{})
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if !ref.Name().IsRemote() {
			return nil
		}
		name := strings.TrimPrefix(ref.Name().Short(), remoteName+"/")
		if name == "HEAD" {
			return nil
		}
		branches[name] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk references: %w", err)
	}

	return branches, nil
}

// BranchExists reports whether the local branch exists.
func (d *Driver) BranchExists(name string) (bool, error) {
	_, err := d.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up branch %q: %w", name, err)
	}
	return true, nil
}

// CreateBranch creates the branch at HEAD if it does not already exist.
// Reports whether it was newly created.
func (d *Driver) CreateBranch(name string) (bool, error) {
	exists, err := d.BranchExists(name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	head, err := d.repo.Head()
	if err != nil {
		return false, fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())
	if err := d.repo.Storer.SetReference(ref); err != nil {
		return false, fmt.Errorf("failed to create branch %q: %w", name, err)
	}
	return true, nil
}

// Checkout switches the working tree to the named branch.
func (d *Driver) Checkout(name string) error {
	wt, err := d.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to resolve worktree: %w", err)
	}

	opts := &gogit.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)}
	if err := wt.Checkout(opts); err != nil {
		return fmt.Errorf("%w: branch %q: %w", domain.ErrCheckoutFailed, name, err)
	}
	return nil
}

// StageAndCommit stages the given paths and commits with a signed-off
// message.
func (d *Driver) StageAndCommit(paths []string, message string) error {
	wt, err := d.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to resolve worktree: %w", err)
	}

	for _, path := range paths {
		if _, addErr := wt.Add(path); addErr != nil {
			return fmt.Errorf("%w: failed to stage %q: %w", domain.ErrCommitFailed, path, addErr)
		}
	}

	sig := d.signature()
	full := message + "\n\nSigned-off-by: " + sig.Name + " <" + sig.Email + ">\n"

	_, err = wt.Commit(full, &gogit.CommitOptions{Author: sig, Committer: sig})
	if errors.Is(err, gogit.ErrEmptyCommit) {
		return fmt.Errorf("%w: %w", domain.ErrNothingToCommit, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrCommitFailed, err)
	}
	return nil
}

// Push pushes the branch to origin. The remote already having the same tip
// is not an error.
func (d *Driver) Push(ctx context.Context, branch string) error {
	spec := gitconfig.RefSpec(
		fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch),
	)

	opts := &gogit.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []gitconfig.RefSpec{spec},
		Auth:       d.pushAuth(),
	}

	err := d.repo.PushContext(ctx, opts)
	if errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: branch %q: %w", domain.ErrPushRejected, branch, err)
	}
	return nil
}

// ResetHard resets the current branch and working tree to the given
// revision, e.g. "origin/main".
func (d *Driver) ResetHard(ref string) error {
	hash, err := d.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return fmt.Errorf("failed to resolve %q: %w", ref, err)
	}

	wt, err := d.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to resolve worktree: %w", err)
	}

	if err := wt.Reset(&gogit.ResetOptions{Mode: gogit.HardReset, Commit: *hash}); err != nil {
		return fmt.Errorf("failed to hard-reset to %q: %w", ref, err)
	}
	return nil
}

// CleanUntracked removes untracked files and directories from the tree.
func (d *Driver) CleanUntracked() error {
	wt, err := d.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to resolve worktree: %w", err)
	}

	if err := wt.Clean(&gogit.CleanOptions{Dir: true}); err != nil {
		return fmt.Errorf("failed to clean untracked files: %w", err)
	}
	return nil
}

// DeleteBranch removes the local branch reference. The force flag documents
// that the branch may hold unmerged commits; go-git performs no merge check
// either way.
func (d *Driver) DeleteBranch(name string, _ bool) error {
	if err := d.repo.Storer.RemoveReference(plumbing.NewBranchReferenceName(name)); err != nil {
		return fmt.Errorf("failed to delete branch %q: %w", name, err)
	}
	return nil
}

// signature builds the committer identity from the repository configuration,
// falling back to the bot identity.
func (d *Driver) signature() *object.Signature {
	name, email := botName, botEmail

	if cfg, err := d.repo.ConfigScoped(gitconfig.SystemScope); err == nil {
		if cfg.User.Name != "" {
			name = cfg.User.Name
		}
		if cfg.User.Email != "" {
			email = cfg.User.Email
		}
	}

	return &object.Signature{Name: name, Email: email, When: time.Now()}
}

// pushAuth returns token auth for HTTPS remotes. Local and SSH remotes
// authenticate through their own channels.
func (d *Driver) pushAuth() transport.AuthMethod {
	if d.token == "" {
		return nil
	}

	url, err := d.RemoteURL()
	if err != nil || !strings.HasPrefix(url, "http") {
		return nil
	}

	return &githttp.BasicAuth{Username: "x-access-token", Password: d.token}
}
