package application

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
)

// Renderer renders a named message template to text. Satisfied by the i18n
// package; declared here so the service stays port-only.
type Renderer interface {
	Render(name string, view any) (string, error)
}

// TestListing is one assignment offered to Greenhouse as a take-home test.
type TestListing struct {
	ID   string // repository full name, doubles as the partner test id
	Name string // repository description
}

// CandidateRequest is Greenhouse's send-test payload, reduced to the fields
// the service acts on.
type CandidateRequest struct {
	TestID     string
	FirstName  string
	LastName   string
	Email      string
	ProfileURL string
	URL        string // callback URL to notify when the test completes
}

// TestStatus reports a challenge's progress in Greenhouse's vocabulary.
type TestStatus struct {
	Status     string
	ProfileURL string
	Score      *int
	Metadata   map[string]string
}

// GreenhouseService implements the assessment-partner boundary: listing
// assignments as tests, opening the originating issue for a candidate, and
// reporting/notifying completion.
type GreenhouseService struct {
	repos    driven.RepoManager
	store    driven.ChallengeStore
	notifier driven.CompletionNotifier
	renderer Renderer
	org      string
}

// NewGreenhouseService creates a GreenhouseService. org is the namespace
// whose greenhouse-topic repositories are offered as tests.
func NewGreenhouseService(
	repos driven.RepoManager,
	store driven.ChallengeStore,
	notifier driven.CompletionNotifier,
	renderer Renderer,
	org string,
) *GreenhouseService {
	return &GreenhouseService{
		repos:    repos,
		store:    store,
		notifier: notifier,
		renderer: renderer,
		org:      org,
	}
}

// ListTests returns the assignments Greenhouse may send to candidates:
// repositories in the configured org carrying the greenhouse topic.
func (s *GreenhouseService) ListTests(ctx context.Context) ([]TestListing, error) {
	repos, err := s.repos.SearchRepos(ctx, fmt.Sprintf("org:%s topic:greenhouse", s.org))
	if err != nil {
		return nil, err
	}

	listings := make([]TestListing, 0, len(repos))
	for _, repo := range repos {
		listings = append(listings, TestListing{ID: repo.FullName, Name: repo.Description})
	}
	return listings, nil
}

// SendTest opens the issue thread a recruiter drives the challenge from.
// The candidate's email is resolved to a GitHub login, and the issue body
// carries the origin marker whose URL Grade later notifies. The returned
// interview id, "owner/repo/number", keys all later status lookups.
func (s *GreenhouseService) SendTest(ctx context.Context, req CandidateRequest) (string, error) {
	login, err := s.repos.LookupUserByEmail(ctx, req.Email)
	if err != nil {
		return "", err
	}

	owner, repo, err := splitFullName(req.TestID)
	if err != nil {
		return "", err
	}

	body, err := s.renderer.Render("greenhouse-create-challenge", map[string]any{
		"username":   login,
		"firstName":  req.FirstName,
		"lastName":   req.LastName,
		"email":      req.Email,
		"profileUrl": req.ProfileURL,
		"url":        req.URL,
	})
	if err != nil {
		return "", err
	}

	title := fmt.Sprintf("Challenge %s %s to complete `%s`", req.FirstName, req.LastName, repo)
	number, err := s.repos.CreateIssue(ctx, owner, repo, title, body)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s/%d", owner, repo, number), nil
}

// TestStatus reports the challenge's state, mapping the internal enum to
// Greenhouse's vocabulary: graded becomes complete, others pass through.
func (s *GreenhouseService) TestStatus(ctx context.Context, interviewID string) (*TestStatus, error) {
	ref, err := parseInterviewID(interviewID)
	if err != nil {
		return nil, err
	}

	challenge, err := s.store.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	if challenge == nil {
		return nil, fmt.Errorf("no challenge recorded on %s", ref)
	}

	status := string(challenge.Status)
	if challenge.Status == model.StatusGraded {
		status = "complete"
	}

	result := &TestStatus{
		Status:     status,
		ProfileURL: fmt.Sprintf("https://github.com/%s/%s", challenge.RepoOwner, challenge.Repo),
		Score:      challenge.Grade,
		Metadata: map[string]string{
			"Started At": challenge.CreatedAt.Format(time.RFC3339),
			"Graded By":  challenge.GradedBy,
			"Challenge":  fmt.Sprintf("https://github.com/%s/%s", challenge.RepoOwner, challenge.Assignment),
			"Interview":  fmt.Sprintf("https://github.com/%s/%s", challenge.RepoOwner, challenge.Repo),
		},
	}
	if challenge.GradedAt != nil {
		result.Metadata["Graded At"] = challenge.GradedAt.Format(time.RFC3339)
	}
	return result, nil
}

// Complete re-issues the completion callback for a challenge, for the flow
// where Greenhouse itself asks to mark a test completed.
func (s *GreenhouseService) Complete(ctx context.Context, interviewID string) error {
	ref, err := parseInterviewID(interviewID)
	if err != nil {
		return err
	}

	challenge, err := s.store.Get(ctx, ref)
	if err != nil {
		return err
	}
	if challenge == nil {
		return fmt.Errorf("no challenge recorded on %s", ref)
	}
	if challenge.TrackingURL == "" {
		return fmt.Errorf("challenge on %s did not originate from greenhouse", ref)
	}

	return s.notifier.NotifyCompleted(ctx, challenge.TrackingURL)
}

// parseInterviewID splits an "owner/repo/number" interview id.
func parseInterviewID(id string) (model.IssueRef, error) {
	parts := strings.Split(id, "/")
	if len(parts) != 3 {
		return model.IssueRef{}, fmt.Errorf("invalid interview id %q: expected owner/repo/number", id)
	}

	number, err := strconv.Atoi(parts[2])
	if err != nil {
		return model.IssueRef{}, fmt.Errorf("invalid interview id %q: %w", id, err)
	}

	return model.IssueRef{Owner: parts[0], Repo: parts[1], Number: number}, nil
}

// splitFullName splits an "owner/repo" full name into its two components.
func splitFullName(fullName string) (string, string, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository name %q: expected owner/repo", fullName)
	}
	return owner, repo, nil
}
