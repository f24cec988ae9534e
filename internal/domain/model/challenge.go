package model

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a challenge. It only moves forward:
// created -> ended -> graded. Deletion removes the backing repository rather
// than transitioning the record, so there is no "deleted" status.
type Status string

const (
	StatusCreated Status = "created"
	StatusEnded   Status = "ended"
	StatusGraded  Status = "graded"
)

// Challenge tracks one candidate's assignment instance. It is owned by the
// issue thread that created it and serialized verbatim into the metadata
// store, so field names are part of the persisted format.
type Challenge struct {
	RepoOwner  string `json:"repoOwner"`
	Repo       string `json:"repo"`
	Candidate  string `json:"candidate"`
	Assignment string `json:"assignment"`
	Status     Status `json:"status"`

	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	EndedBy   string     `json:"endedBy,omitempty"`
	GradedAt  *time.Time `json:"gradedAt,omitempty"`
	GradedBy  string     `json:"gradedBy,omitempty"`

	Grade *int `json:"grade,omitempty"`

	Config AssignmentConfig `json:"config"`

	// Pull and PullCommitSHA identify the review pull request, when the
	// assignment policy requested one at creation time.
	Pull          int    `json:"pull,omitempty"`
	PullCommitSHA string `json:"pull_commit_sha,omitempty"`

	// TrackingURL is the ATS callback URL captured from the issue body when
	// the challenge originated from Greenhouse. Empty for manual challenges.
	TrackingURL string `json:"trackingUrl,omitempty"`
}

// Reviewable reports whether review and grade operations are legal: the
// candidate must no longer be working on the challenge.
func (c *Challenge) Reviewable() bool {
	return c.Status != StatusCreated
}

// NormalizeHandle strips a leading @ from a chat mention so that
// "@octocat" and "octocat" refer to the same user.
func NormalizeHandle(mention string) string {
	return strings.TrimPrefix(strings.TrimSpace(mention), "@")
}
