package model

import "fmt"

// IssueRef identifies the issue thread that owns a challenge.
type IssueRef struct {
	Owner  string
	Repo   string
	Number int
}

// String formats the reference in the familiar owner/repo#number form.
func (r IssueRef) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Key returns a stable identifier suitable for keyed storage.
func (r IssueRef) Key() string {
	return fmt.Sprintf("%s/%s/%d", r.Owner, r.Repo, r.Number)
}

// PullRef identifies a created pull request and the head commit it was
// opened from, which later review comments must be anchored to.
type PullRef struct {
	Number  int
	HeadSHA string
}

// IssueUpdate is a partial update to an issue. Nil fields are left unchanged.
type IssueUpdate struct {
	Title  *string
	Labels []string
	State  *string
}

// RepoListing is the minimal repository descriptor returned by searches.
type RepoListing struct {
	FullName    string
	Description string
}

// TreeEntry maps a path to a git object when composing a tree.
type TreeEntry struct {
	Path string
	Mode string
	Type string
	SHA  string
}
