package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoManager = (*Client)(nil)

// CreateFromTemplate provisions a new private repository from a template
// repository. A 422 response means the generated name collided with an
// existing repository; it is mapped to ErrRepoNameTaken so callers can
// retry with a fresh name.
func (c *Client) CreateFromTemplate(ctx context.Context, templateOwner, templateRepo, owner, name string) error {
	repo, resp, err := c.gh.Repositories.CreateFromTemplate(ctx, templateOwner, templateRepo, &gh.TemplateRepoRequest{
		Name:    gh.Ptr(name),
		Owner:   gh.Ptr(owner),
		Private: gh.Ptr(true),
	})
	if err != nil {
		if isStatus(err, http.StatusUnprocessableEntity) {
			return fmt.Errorf("creating %s/%s from template %s: %w", owner, name, templateRepo, driven.ErrRepoNameTaken)
		}
		return fmt.Errorf("creating %s/%s from template %s/%s: %w", owner, name, templateOwner, templateRepo, err)
	}

	logRateLimit(resp, "repos/create-from-template")
	slog.Info("repository created", "repo", repo.GetFullName())

	return nil
}

// DeleteRepo deletes a repository and everything in it.
func (c *Client) DeleteRepo(ctx context.Context, owner, repo string) error {
	resp, err := c.gh.Repositories.Delete(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", owner, repo, err)
	}

	logRateLimit(resp, "repos/delete")

	return nil
}

// AddCollaborator grants a user push access to a repository. GitHub treats
// re-adding an existing collaborator as a no-op, so the call is idempotent.
func (c *Client) AddCollaborator(ctx context.Context, owner, repo, username string) error {
	_, resp, err := c.gh.Repositories.AddCollaborator(ctx, owner, repo, username, nil)
	if err != nil {
		return fmt.Errorf("adding collaborator %s to %s/%s: %w", username, owner, repo, err)
	}

	logRateLimit(resp, "repos/add-collaborator")

	return nil
}

// RemoveCollaborator revokes a user's access to a repository.
func (c *Client) RemoveCollaborator(ctx context.Context, owner, repo, username string) error {
	resp, err := c.gh.Repositories.RemoveCollaborator(ctx, owner, repo, username)
	if err != nil {
		return fmt.Errorf("removing collaborator %s from %s/%s: %w", username, owner, repo, err)
	}

	logRateLimit(resp, "repos/remove-collaborator")

	return nil
}

// CreateIssue opens a new issue and returns its number.
func (c *Client) CreateIssue(ctx context.Context, owner, repo, title, body string) (int, error) {
	issue, resp, err := c.gh.Issues.Create(ctx, owner, repo, &gh.IssueRequest{
		Title: gh.Ptr(title),
		Body:  gh.Ptr(body),
	})
	if err != nil {
		return 0, fmt.Errorf("creating issue in %s/%s: %w", owner, repo, err)
	}

	logRateLimit(resp, "issues/create")

	return issue.GetNumber(), nil
}

// GetIssueBody returns the current body text of an issue.
func (c *Client) GetIssueBody(ctx context.Context, ref model.IssueRef) (string, error) {
	issue, resp, err := c.gh.Issues.Get(ctx, ref.Owner, ref.Repo, ref.Number)
	if err != nil {
		return "", fmt.Errorf("getting issue %s: %w", ref, err)
	}

	logRateLimit(resp, "issues/get")

	return issue.GetBody(), nil
}

// UpdateIssue applies a partial update to an issue's title, labels or state.
func (c *Client) UpdateIssue(ctx context.Context, ref model.IssueRef, update model.IssueUpdate) error {
	req := &gh.IssueRequest{
		Title: update.Title,
		State: update.State,
	}
	if update.Labels != nil {
		req.Labels = &update.Labels
	}

	_, resp, err := c.gh.Issues.Edit(ctx, ref.Owner, ref.Repo, ref.Number, req)
	if err != nil {
		return fmt.Errorf("updating issue %s: %w", ref, err)
	}

	logRateLimit(resp, "issues/edit")

	return nil
}

// CreateIssueComment posts a comment on an issue thread.
func (c *Client) CreateIssueComment(ctx context.Context, ref model.IssueRef, body string) error {
	_, resp, err := c.gh.Issues.CreateComment(ctx, ref.Owner, ref.Repo, ref.Number, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("creating comment on %s: %w", ref, err)
	}

	logRateLimit(resp, "issues/create-comment")

	return nil
}

// CreatePull opens a pull request and returns its number and head SHA.
func (c *Client) CreatePull(ctx context.Context, owner, repo string, spec model.PullRequestSpec) (*model.PullRef, error) {
	pull, resp, err := c.gh.PullRequests.Create(ctx, owner, repo, &gh.NewPullRequest{
		Title: gh.Ptr(spec.Title),
		Body:  gh.Ptr(spec.Body),
		Head:  gh.Ptr(spec.Head),
		Base:  gh.Ptr(spec.Base),
	})
	if err != nil {
		return nil, fmt.Errorf("creating pull request %s -> %s in %s/%s: %w", spec.Head, spec.Base, owner, repo, err)
	}

	logRateLimit(resp, "pulls/create")

	return &model.PullRef{
		Number:  pull.GetNumber(),
		HeadSHA: pull.GetHead().GetSHA(),
	}, nil
}

// CreatePullReview submits a COMMENT review with inline comments on a pull
// request, anchored to the given commit.
func (c *Client) CreatePullReview(ctx context.Context, owner, repo string, number int, commitSHA string, comments []model.ReviewCommentSpec) error {
	draft := make([]*gh.DraftReviewComment, 0, len(comments))
	for _, comment := range comments {
		dc := &gh.DraftReviewComment{
			Path: gh.Ptr(comment.Path),
			Body: gh.Ptr(comment.Body),
			Line: gh.Ptr(comment.Line),
		}
		if comment.Side != "" {
			dc.Side = gh.Ptr(comment.Side)
		}
		draft = append(draft, dc)
	}

	_, resp, err := c.gh.PullRequests.CreateReview(ctx, owner, repo, number, &gh.PullRequestReviewRequest{
		CommitID: gh.Ptr(commitSHA),
		Event:    gh.Ptr("COMMENT"),
		Comments: draft,
	})
	if err != nil {
		return fmt.Errorf("creating review on %s/%s#%d: %w", owner, repo, number, err)
	}

	logRateLimit(resp, "pulls/create-review")

	return nil
}

// SearchRepos returns repositories matching a search query.
func (c *Client) SearchRepos(ctx context.Context, query string) ([]model.RepoListing, error) {
	result, resp, err := c.gh.Search.Repositories(ctx, query, &gh.SearchOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	})
	if err != nil {
		return nil, fmt.Errorf("searching repositories %q: %w", query, err)
	}

	logRateLimit(resp, "search/repositories")

	listings := make([]model.RepoListing, 0, len(result.Repositories))
	for _, repo := range result.Repositories {
		listings = append(listings, model.RepoListing{
			FullName:    repo.GetFullName(),
			Description: repo.GetDescription(),
		})
	}

	return listings, nil
}

// LookupUserByEmail resolves an email address to a GitHub login. The user
// search index only covers users who expose their email publicly, so commit
// authorship is the fallback.
func (c *Client) LookupUserByEmail(ctx context.Context, email string) (string, error) {
	users, resp, err := c.gh.Search.Users(ctx, fmt.Sprintf("%s in:email", email), nil)
	if err != nil {
		return "", fmt.Errorf("searching users by email: %w", err)
	}

	logRateLimit(resp, "search/users")

	if users.GetTotal() > 0 {
		return users.Users[0].GetLogin(), nil
	}

	commits, resp, err := c.gh.Search.Commits(ctx, fmt.Sprintf("author-email:%s", email), &gh.SearchOptions{
		Sort:        "author-date",
		ListOptions: gh.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("searching commits by author email: %w", err)
	}

	logRateLimit(resp, "search/commits")

	if commits.GetTotal() == 0 {
		return "", fmt.Errorf("resolving %s: %w", email, driven.ErrUserNotFound)
	}

	return commits.Commits[0].GetAuthor().GetLogin(), nil
}
