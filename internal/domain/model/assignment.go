package model

// AssignmentConfig is the policy an assignment repository supplies in
// .github/assignment.yml. Every section is independently optional; a missing
// file yields the zero value, which disables all optional behavior.
type AssignmentConfig struct {
	Challenge ChallengePolicy `yaml:"challenge" json:"challenge"`
	Review    ReviewPolicy    `yaml:"review" json:"review"`
	Grade     GradePolicy     `yaml:"grade" json:"grade"`
}

// ChallengePolicy configures the create operation.
type ChallengePolicy struct {
	// CreatePullRequest, when set, asks create to open a pull request in the
	// candidate's repository for peer-review style assignments.
	CreatePullRequest *PullRequestSpec `yaml:"create_pull_request" json:"create_pull_request,omitempty"`
}

// PullRequestSpec describes the review pull request to open at creation time.
// Files matching Paths are mirrored from the assignment onto Head first.
type PullRequestSpec struct {
	Head  string   `yaml:"head" json:"head"`
	Base  string   `yaml:"base" json:"base"`
	Title string   `yaml:"title" json:"title"`
	Body  string   `yaml:"body" json:"body"`
	Paths []string `yaml:"paths" json:"paths"`
}

// ReviewPolicy configures the review operation.
type ReviewPolicy struct {
	// Copy, when set, mirrors grading aids from the assignment's Head ref
	// into the challenge repository's Base ref.
	Copy *CopySpec `yaml:"copy" json:"copy,omitempty"`

	// Comments are inline review comments to attach to the tracked pull
	// request, for assignments that seed discussion points.
	Comments []ReviewCommentSpec `yaml:"comments" json:"comments,omitempty"`
}

// CopySpec selects which files move between refs during review.
type CopySpec struct {
	Head  string   `yaml:"head" json:"head"`
	Base  string   `yaml:"base" json:"base"`
	Paths []string `yaml:"paths" json:"paths"`
}

// ReviewCommentSpec is one inline comment of a seeded pull request review.
type ReviewCommentSpec struct {
	Path string `yaml:"path" json:"path"`
	Line int    `yaml:"line" json:"line"`
	Side string `yaml:"side" json:"side,omitempty"`
	Body string `yaml:"body" json:"body"`
}

// GradePolicy is reserved for grading configuration. It exists so the config
// file's three top-level sections stay explicit even while empty.
type GradePolicy struct{}
