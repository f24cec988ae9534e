// Package application contains the domain services: the challenge lifecycle
// state machine, the git object mirror, and the Greenhouse boundary service.
// Services depend only on port interfaces.
package application

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
	"github.com/beat-interviewing/challenge-bot/internal/glob"
)

// mirrorCommitMessage is the commit message for mirrored file sets.
const mirrorCommitMessage = "Copy files 🤖"

// RefSpec names one branch of one repository.
type RefSpec struct {
	Owner  string
	Repo   string
	Branch string
}

func (r RefSpec) String() string {
	return fmt.Sprintf("%s/%s@%s", r.Owner, r.Repo, r.Branch)
}

// Mirror copies filtered file sets between repositories by composing raw git
// objects: blobs are re-created at the destination (blob identity is
// repository-scoped), a single tree upserts them over the destination's
// current tree, and one commit advances the destination ref under optimistic
// concurrency.
type Mirror struct {
	git         driven.GitData
	concurrency int
}

// NewMirror creates a Mirror over the given git object port. concurrency
// bounds the number of in-flight per-file blob transfers; values below 1
// fall back to 4.
func NewMirror(git driven.GitData, concurrency int) *Mirror {
	if concurrency < 1 {
		concurrency = 4
	}
	return &Mirror{git: git, concurrency: concurrency}
}

// CreateBranch creates ref head in the repository, pointing at base's
// current commit. Used to stage a review branch before mirroring onto it.
func (m *Mirror) CreateBranch(ctx context.Context, owner, repo, head, base string) error {
	sha, err := m.git.GetRef(ctx, owner, repo, base)
	if err != nil {
		return err
	}
	return m.git.CreateRef(ctx, owner, repo, head, sha)
}

// CopyFiles copies every file under src whose path matches any of the glob
// patterns into dst as a single new commit, and returns the copied paths.
//
// Paths not matched by the patterns are untouched at the destination: the
// new tree uses the destination's current tree as its base, so unlisted
// entries are inherited. The final ref update is no-force; if dst moved
// while the operation ran, the whole copy fails with ErrRefConflict and the
// destination ref is left unchanged. Blobs already written to the
// destination are harmless unreferenced objects and need no cleanup.
func (m *Mirror) CopyFiles(ctx context.Context, src, dst RefSpec, patterns []string) ([]string, error) {
	selected, err := m.selectFiles(ctx, src, patterns)
	if err != nil {
		return nil, err
	}

	slog.Debug("mirroring files", "src", src.String(), "dst", dst.String(), "count", len(selected))

	// Per-file fetch-then-create transfers are independent until the tree
	// composes, so they run concurrently with a bounded limit. Results are
	// index-addressed to keep tree entries in enumeration order.
	entries := make([]model.TreeEntry, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)
	for i, entry := range selected {
		g.Go(func() error {
			content, encoding, err := m.git.GetBlob(gctx, src.Owner, src.Repo, entry.SHA)
			if err != nil {
				return err
			}

			sha, err := m.git.CreateBlob(gctx, dst.Owner, dst.Repo, content, encoding)
			if err != nil {
				return err
			}

			entries[i] = model.TreeEntry{
				Path: entry.Path,
				Mode: entry.Mode,
				Type: "blob",
				SHA:  sha,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	headSHA, err := m.git.GetRef(ctx, dst.Owner, dst.Repo, dst.Branch)
	if err != nil {
		return nil, err
	}

	head, err := m.git.GetCommit(ctx, dst.Owner, dst.Repo, headSHA)
	if err != nil {
		return nil, err
	}

	treeSHA, err := m.git.CreateTree(ctx, dst.Owner, dst.Repo, head.TreeSHA, entries)
	if err != nil {
		return nil, err
	}

	commitSHA, err := m.git.CreateCommit(ctx, dst.Owner, dst.Repo, mirrorCommitMessage, treeSHA, []string{head.SHA})
	if err != nil {
		return nil, err
	}

	if err := m.git.UpdateRef(ctx, dst.Owner, dst.Repo, dst.Branch, commitSHA); err != nil {
		return nil, err
	}

	paths := make([]string, len(entries))
	for i, entry := range entries {
		paths[i] = entry.Path
	}
	return paths, nil
}

// selectFiles resolves src to its root tree and returns the blob entries
// whose paths match the patterns, in tree enumeration order.
func (m *Mirror) selectFiles(ctx context.Context, src RefSpec, patterns []string) ([]model.TreeEntry, error) {
	sha, err := m.git.GetRef(ctx, src.Owner, src.Repo, src.Branch)
	if err != nil {
		return nil, err
	}

	commit, err := m.git.GetCommit(ctx, src.Owner, src.Repo, sha)
	if err != nil {
		return nil, err
	}

	tree, err := m.git.ListTree(ctx, src.Owner, src.Repo, commit.TreeSHA)
	if err != nil {
		return nil, err
	}

	var selected []model.TreeEntry
	for _, entry := range tree {
		if entry.Type != "blob" {
			continue
		}
		if glob.MatchAny(entry.Path, patterns) {
			selected = append(selected, entry)
		}
	}
	return selected, nil
}
