package driven

import (
	"context"
	"errors"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
)

// ErrRepoNameTaken indicates repository creation failed because the generated
// name already exists in the owner namespace. The entropy suffix makes this
// rare but not impossible; callers should treat it as retryable.
var ErrRepoNameTaken = errors.New("repository name already taken")

// RepoManager is the driven port for repository, collaborator, issue and
// pull request administration. Raw git object operations live on the
// separate GitData port.
type RepoManager interface {
	// CreateFromTemplate provisions a new private repository from a template
	// repository. Returns an error wrapping ErrRepoNameTaken on name
	// collision.
	CreateFromTemplate(ctx context.Context, templateOwner, templateRepo, owner, name string) error

	// DeleteRepo deletes a repository and everything in it.
	DeleteRepo(ctx context.Context, owner, repo string) error

	// AddCollaborator grants a user push access to a repository. Granting
	// access to an existing collaborator is not an error.
	AddCollaborator(ctx context.Context, owner, repo, username string) error

	// RemoveCollaborator revokes a user's access to a repository.
	RemoveCollaborator(ctx context.Context, owner, repo, username string) error

	// CreateIssue opens a new issue and returns its number.
	CreateIssue(ctx context.Context, owner, repo, title, body string) (int, error)

	// GetIssueBody returns the current body text of an issue.
	GetIssueBody(ctx context.Context, ref model.IssueRef) (string, error)

	// UpdateIssue applies a partial update to an issue's title, labels or
	// state. Nil fields of update are left unchanged.
	UpdateIssue(ctx context.Context, ref model.IssueRef, update model.IssueUpdate) error

	// CreateIssueComment posts a comment on an issue thread.
	CreateIssueComment(ctx context.Context, ref model.IssueRef, body string) error

	// CreatePull opens a pull request and returns its number and head SHA.
	CreatePull(ctx context.Context, owner, repo string, spec model.PullRequestSpec) (*model.PullRef, error)

	// CreatePullReview submits a COMMENT review with inline comments on a
	// pull request, anchored to the given commit.
	CreatePullReview(ctx context.Context, owner, repo string, number int, commitSHA string, comments []model.ReviewCommentSpec) error

	// SearchRepos returns repositories matching a search query as
	// full-name/description pairs.
	SearchRepos(ctx context.Context, query string) ([]model.RepoListing, error)

	// LookupUserByEmail resolves an email address to a GitHub login, first
	// through the user search index and then through commit authorship.
	// Returns an error wrapping ErrUserNotFound when neither matches.
	LookupUserByEmail(ctx context.Context, email string) (string, error)
}

// ErrUserNotFound indicates no GitHub account could be resolved for an
// email address.
var ErrUserNotFound = errors.New("user not found on github")
