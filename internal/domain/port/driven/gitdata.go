package driven

import (
	"context"
	"errors"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
)

// ErrRefConflict indicates a no-force ref update was rejected because the
// ref moved since it was resolved. Exactly one of any set of concurrent
// mirrors onto the same ref succeeds; the rest observe this error.
var ErrRefConflict = errors.New("ref moved since it was resolved")

// Commit is the subset of a git commit object the mirror needs.
type Commit struct {
	SHA     string
	TreeSHA string
}

// GitData is the driven port for content-addressable git object operations:
// refs, commits, trees and blobs. All SHAs are hex object addresses in the
// repository identified by owner/repo; blob identity is repository-scoped,
// which is why mirroring re-creates blobs at the destination.
type GitData interface {
	// GetRef resolves heads/<branch> to its current commit SHA.
	GetRef(ctx context.Context, owner, repo, branch string) (string, error)

	// CreateRef creates heads/<branch> pointing at sha.
	CreateRef(ctx context.Context, owner, repo, branch, sha string) error

	// UpdateRef advances heads/<branch> to sha without force. Returns an
	// error wrapping ErrRefConflict if the update is not a fast-forward from
	// the ref's current position.
	UpdateRef(ctx context.Context, owner, repo, branch, sha string) error

	// GetCommit fetches a commit object by SHA.
	GetCommit(ctx context.Context, owner, repo, sha string) (*Commit, error)

	// ListTree recursively flattens the tree at treeSHA into entries.
	ListTree(ctx context.Context, owner, repo, treeSHA string) ([]model.TreeEntry, error)

	// GetBlob fetches a blob's content and encoding by SHA.
	GetBlob(ctx context.Context, owner, repo, sha string) (content, encoding string, err error)

	// CreateBlob writes a blob and returns its new SHA.
	CreateBlob(ctx context.Context, owner, repo, content, encoding string) (string, error)

	// CreateTree creates a tree whose explicit entries upsert over baseTree:
	// listed paths are added or overwritten, all other paths are inherited.
	CreateTree(ctx context.Context, owner, repo, baseTree string, entries []model.TreeEntry) (string, error)

	// CreateCommit creates a commit object and returns its SHA.
	CreateCommit(ctx context.Context, owner, repo, message, treeSHA string, parents []string) (string, error)
}
