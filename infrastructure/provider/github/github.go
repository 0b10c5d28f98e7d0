// Package github implements domain.Provider against the GitHub REST API.
package github

import (
	"context"
	"fmt"

	gh "github.com/google/go-github/v66/github"

	"github.com/platformci/repobump/domain"
)

const perPage = 100

// Provider implements domain.Provider for GitHub.
type Provider struct {
	client *gh.Client
}

// New creates a GitHub provider authenticated with the given token.
func New(token string) *Provider {
	return &Provider{client: gh.NewClient(nil).WithAuthToken(token)}
}

// NewWithClient creates a provider around a pre-built client. Used by tests
// to point the provider at a local test server.
func NewWithClient(client *gh.Client) *Provider {
	return &Provider{client: client}
}

// ListTags returns all tags of the repository, following pagination. Tags
// come back in the order the API yields them; no sorting is applied because
// the version comparison does not assume any.
func (p *Provider) ListTags(ctx context.Context, repo domain.RepoID) ([]string, error) {
	var allTags []string
	opts := &gh.ListOptions{PerPage: perPage}

	for {
		tags, resp, err := p.client.Repositories.ListTags(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to list tags for %s: %w", domain.ErrRemoteAPI, repo, err)
		}

		for _, tag := range tags {
			allTags = append(allTags, tag.GetName())
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allTags, nil
}

// CreatePullRequest opens a pull request from input.SourceBranch to
// input.TargetBranch.
func (p *Provider) CreatePullRequest(
	ctx context.Context,
	repo domain.RepoID,
	input domain.PullRequestInput,
) (*domain.PullRequest, error) {
	maintainerCanModify := true
	pr, _, err := p.client.PullRequests.Create(
		ctx, repo.Owner, repo.Name,
		&gh.NewPullRequest{
			Title:               &input.Title,
			Body:                &input.Body,
			Head:                &input.SourceBranch,
			Base:                &input.TargetBranch,
			MaintainerCanModify: &maintainerCanModify,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create pull request for %s: %w", domain.ErrRemoteAPI, repo, err)
	}

	return &domain.PullRequest{
		Number: pr.GetNumber(),
		Title:  pr.GetTitle(),
		URL:    pr.GetHTMLURL(),
	}, nil
}
