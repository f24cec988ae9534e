package github

import (
	"context"
	"fmt"
	"net/http"

	gh "github.com/google/go-github/v82/github"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.GitData = (*Client)(nil)

// GetRef resolves heads/<branch> to its current commit SHA.
func (c *Client) GetRef(ctx context.Context, owner, repo, branch string) (string, error) {
	ref, resp, err := c.gh.Git.GetRef(ctx, owner, repo, "heads/"+branch)
	if err != nil {
		return "", fmt.Errorf("getting ref heads/%s in %s/%s: %w", branch, owner, repo, err)
	}

	logRateLimit(resp, "git/get-ref")

	return ref.GetObject().GetSHA(), nil
}

// CreateRef creates heads/<branch> pointing at sha.
func (c *Client) CreateRef(ctx context.Context, owner, repo, branch, sha string) error {
	_, resp, err := c.gh.Git.CreateRef(ctx, owner, repo, gh.CreateRef{
		Ref: "refs/heads/" + branch,
		SHA: sha,
	})
	if err != nil {
		return fmt.Errorf("creating ref heads/%s in %s/%s: %w", branch, owner, repo, err)
	}

	logRateLimit(resp, "git/create-ref")

	return nil
}

// UpdateRef advances heads/<branch> to sha without force. GitHub rejects
// non-fast-forward updates with 422, which is mapped to ErrRefConflict: the
// ref moved under us and the caller's view of the tree is stale.
func (c *Client) UpdateRef(ctx context.Context, owner, repo, branch, sha string) error {
	_, resp, err := c.gh.Git.UpdateRef(ctx, owner, repo, "heads/"+branch, gh.UpdateRef{
		SHA:   sha,
		Force: gh.Ptr(false),
	})
	if err != nil {
		if isStatus(err, http.StatusUnprocessableEntity) {
			return fmt.Errorf("updating ref heads/%s in %s/%s: %w", branch, owner, repo, driven.ErrRefConflict)
		}
		return fmt.Errorf("updating ref heads/%s in %s/%s: %w", branch, owner, repo, err)
	}

	logRateLimit(resp, "git/update-ref")

	return nil
}

// GetCommit fetches a commit object by SHA.
func (c *Client) GetCommit(ctx context.Context, owner, repo, sha string) (*driven.Commit, error) {
	commit, resp, err := c.gh.Git.GetCommit(ctx, owner, repo, sha)
	if err != nil {
		return nil, fmt.Errorf("getting commit %s in %s/%s: %w", sha, owner, repo, err)
	}

	logRateLimit(resp, "git/get-commit")

	return &driven.Commit{
		SHA:     commit.GetSHA(),
		TreeSHA: commit.GetTree().GetSHA(),
	}, nil
}

// ListTree recursively flattens the tree at treeSHA into entries.
func (c *Client) ListTree(ctx context.Context, owner, repo, treeSHA string) ([]model.TreeEntry, error) {
	tree, resp, err := c.gh.Git.GetTree(ctx, owner, repo, treeSHA, true)
	if err != nil {
		return nil, fmt.Errorf("getting tree %s in %s/%s: %w", treeSHA, owner, repo, err)
	}

	logRateLimit(resp, "git/get-tree")

	entries := make([]model.TreeEntry, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		entries = append(entries, model.TreeEntry{
			Path: entry.GetPath(),
			Mode: entry.GetMode(),
			Type: entry.GetType(),
			SHA:  entry.GetSHA(),
		})
	}

	return entries, nil
}

// GetBlob fetches a blob's content and encoding by SHA.
func (c *Client) GetBlob(ctx context.Context, owner, repo, sha string) (string, string, error) {
	blob, resp, err := c.gh.Git.GetBlob(ctx, owner, repo, sha)
	if err != nil {
		return "", "", fmt.Errorf("getting blob %s in %s/%s: %w", sha, owner, repo, err)
	}

	logRateLimit(resp, "git/get-blob")

	return blob.GetContent(), blob.GetEncoding(), nil
}

// CreateBlob writes a blob and returns its new SHA.
func (c *Client) CreateBlob(ctx context.Context, owner, repo, content, encoding string) (string, error) {
	blob, resp, err := c.gh.Git.CreateBlob(ctx, owner, repo, gh.Blob{
		Content:  gh.Ptr(content),
		Encoding: gh.Ptr(encoding),
	})
	if err != nil {
		return "", fmt.Errorf("creating blob in %s/%s: %w", owner, repo, err)
	}

	logRateLimit(resp, "git/create-blob")

	return blob.GetSHA(), nil
}

// CreateTree creates a tree whose explicit entries upsert over baseTree.
func (c *Client) CreateTree(ctx context.Context, owner, repo, baseTree string, entries []model.TreeEntry) (string, error) {
	ghEntries := make([]*gh.TreeEntry, 0, len(entries))
	for _, entry := range entries {
		ghEntries = append(ghEntries, &gh.TreeEntry{
			Path: gh.Ptr(entry.Path),
			Mode: gh.Ptr(entry.Mode),
			Type: gh.Ptr(entry.Type),
			SHA:  gh.Ptr(entry.SHA),
		})
	}

	tree, resp, err := c.gh.Git.CreateTree(ctx, owner, repo, baseTree, ghEntries)
	if err != nil {
		return "", fmt.Errorf("creating tree in %s/%s: %w", owner, repo, err)
	}

	logRateLimit(resp, "git/create-tree")

	return tree.GetSHA(), nil
}

// CreateCommit creates a commit object and returns its SHA.
func (c *Client) CreateCommit(ctx context.Context, owner, repo, message, treeSHA string, parents []string) (string, error) {
	parentCommits := make([]*gh.Commit, 0, len(parents))
	for _, parent := range parents {
		parentCommits = append(parentCommits, &gh.Commit{SHA: gh.Ptr(parent)})
	}

	commit, resp, err := c.gh.Git.CreateCommit(ctx, owner, repo, gh.Commit{
		Message: gh.Ptr(message),
		Tree:    &gh.Tree{SHA: gh.Ptr(treeSHA)},
		Parents: parentCommits,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("creating commit in %s/%s: %w", owner, repo, err)
	}

	logRateLimit(resp, "git/create-commit")

	return commit.GetSHA(), nil
}
