package application

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
)

// trackingPattern matches the origin marker Greenhouse-created issues carry
// in their body. The captured URL is the callback to notify on completion.
var trackingPattern = regexp.MustCompile(`via \[Greenhouse\]\((.*)\)`)

// ChallengeService is the challenge lifecycle state machine. It validates
// which operations are legal against a thread's challenge, mutates the
// stored record, and drives the mirror and repository administration at the
// right transitions.
//
// Every operation converts its own failures into a user-facing reply; a
// non-nil return means the reply itself could not be posted.
type ChallengeService struct {
	store    driven.ChallengeStore
	repos    driven.RepoManager
	config   driven.ConfigReader
	notifier driven.CompletionNotifier
	replier  driven.Replier
	mirror   *Mirror

	now func() time.Time
}

// NewChallengeService creates a ChallengeService with the required
// dependencies.
func NewChallengeService(
	store driven.ChallengeStore,
	repos driven.RepoManager,
	config driven.ConfigReader,
	notifier driven.CompletionNotifier,
	replier driven.Replier,
	mirror *Mirror,
) *ChallengeService {
	return &ChallengeService{
		store:    store,
		repos:    repos,
		config:   config,
		notifier: notifier,
		replier:  replier,
		mirror:   mirror,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create provisions a coding challenge for a candidate: a private repository
// cloned from the assignment template, tracked by a new record on this
// thread. assignment defaults to the thread's own repository when empty.
//
// Provisioning failures are reported and leave no record, so Create can be
// retried. A failure strictly inside the optional pull-request step is
// reported but does not roll back the repository or the record: the
// challenge exists without its PR.
func (s *ChallengeService) Create(ctx context.Context, ref model.IssueRef, actor, candidateMention, assignment string) error {
	candidate := model.NormalizeHandle(candidateMention)
	if assignment == "" {
		assignment = ref.Repo
	}

	slog.Info("creating challenge",
		"issue", ref.String(),
		"candidate", candidate,
		"assignment", assignment,
	)

	existing, err := s.store.Get(ctx, ref)
	if err != nil {
		return s.reply(ctx, ref, "challenge-create-failed", errView(err))
	}
	if existing != nil && existing.Repo != "" {
		return s.reply(ctx, ref, "challenge-exists", map[string]any{
			"repoOwner": existing.RepoOwner,
			"repo":      existing.Repo,
			"createdBy": existing.CreatedBy,
		})
	}

	config, err := s.config.ReadAssignmentConfig(ctx, ref.Owner, assignment)
	if err != nil {
		return s.reply(ctx, ref, "challenge-create-failed", errView(err))
	}

	challenge := &model.Challenge{
		RepoOwner:  ref.Owner,
		Repo:       fmt.Sprintf("%s-%s-%s", assignment, candidate, entropySuffix()),
		Candidate:  candidate,
		Assignment: assignment,
		Status:     model.StatusCreated,
		CreatedAt:  s.now(),
		CreatedBy:  actor,
		Config:     *config,
	}

	// Challenges created via Greenhouse carry an origin marker in the issue
	// body; the captured URL is notified when the challenge is graded.
	if body, err := s.repos.GetIssueBody(ctx, ref); err == nil {
		if match := trackingPattern.FindStringSubmatch(body); match != nil {
			challenge.TrackingURL = match[1]
		}
	}

	if err := s.repos.CreateFromTemplate(ctx, ref.Owner, assignment, ref.Owner, challenge.Repo); err != nil {
		return s.reply(ctx, ref, "challenge-create-failed", errView(err))
	}

	title := fmt.Sprintf("Challenge `@%s` to complete `%s`", candidate, assignment)
	err = s.repos.UpdateIssue(ctx, ref, model.IssueUpdate{
		Title:  &title,
		Labels: []string{"assignment/" + assignment},
	})
	if err != nil {
		return s.reply(ctx, ref, "challenge-create-failed", errView(err))
	}

	if err := s.reply(ctx, ref, "challenge-created", challengeView(challenge)); err != nil {
		return err
	}

	if spec := config.Challenge.CreatePullRequest; spec != nil {
		pull, err := s.createPull(ctx, challenge, spec)
		if err != nil {
			if rerr := s.reply(ctx, ref, "challenge-create-failed", errView(err)); rerr != nil {
				return rerr
			}
		} else {
			challenge.Pull = pull.Number
			challenge.PullCommitSHA = pull.HeadSHA
			if err := s.reply(ctx, ref, "challenge-created-pr", challengeView(challenge)); err != nil {
				return err
			}
		}
	}

	if err := s.store.Set(ctx, ref, challenge); err != nil {
		return s.reply(ctx, ref, "challenge-create-failed", errView(err))
	}
	return nil
}

// createPull stages the review branch, mirrors the configured files onto it,
// and opens the pull request the assignment policy asked for.
func (s *ChallengeService) createPull(ctx context.Context, challenge *model.Challenge, spec *model.PullRequestSpec) (*model.PullRef, error) {
	err := s.mirror.CreateBranch(ctx, challenge.RepoOwner, challenge.Repo, spec.Head, spec.Base)
	if err != nil {
		return nil, err
	}

	files, err := s.mirror.CopyFiles(ctx,
		RefSpec{Owner: challenge.RepoOwner, Repo: challenge.Assignment, Branch: spec.Head},
		RefSpec{Owner: challenge.RepoOwner, Repo: challenge.Repo, Branch: spec.Head},
		spec.Paths,
	)
	if err != nil {
		return nil, err
	}

	slog.Info("copied files for review pull request",
		"repo", challenge.Repo,
		"files", len(files),
	)

	return s.repos.CreatePull(ctx, challenge.RepoOwner, challenge.Repo, *spec)
}

// End closes the candidate's working window by revoking their access. The
// record only advances to ended once revocation succeeded, so a failed End
// can be retried.
func (s *ChallengeService) End(ctx context.Context, ref model.IssueRef, actor string) error {
	challenge, err := s.store.Get(ctx, ref)
	if err != nil {
		return s.reply(ctx, ref, "challenge-end-failed", errView(err))
	}
	if challenge == nil {
		return s.reply(ctx, ref, "challenge-unknown", nil)
	}

	slog.Info("ending challenge",
		"issue", ref.String(),
		"candidate", challenge.Candidate,
		"repo", challenge.Repo,
	)

	if err := s.repos.RemoveCollaborator(ctx, challenge.RepoOwner, challenge.Repo, challenge.Candidate); err != nil {
		return s.reply(ctx, ref, "challenge-end-failed", errView(err))
	}

	endedAt := s.now()
	challenge.Status = model.StatusEnded
	challenge.EndedAt = &endedAt
	challenge.EndedBy = actor

	if err := s.store.Set(ctx, ref, challenge); err != nil {
		return s.reply(ctx, ref, "challenge-end-failed", errView(err))
	}

	return s.reply(ctx, ref, "challenge-ended", challengeView(challenge))
}

// Join grants a user access to the candidate's challenge repository. The
// target defaults to the invoking actor; granting access to an existing
// collaborator succeeds without error.
func (s *ChallengeService) Join(ctx context.Context, ref model.IssueRef, actor, targetMention string) error {
	challenge, err := s.store.Get(ctx, ref)
	if err != nil {
		return s.reply(ctx, ref, "challenge-join-failed", map[string]any{"user": actor, "error": err.Error()})
	}
	if challenge == nil {
		return s.reply(ctx, ref, "challenge-unknown", nil)
	}

	user := actor
	if strings.TrimSpace(targetMention) != "" {
		user = model.NormalizeHandle(targetMention)
	}

	slog.Info("joining challenge", "issue", ref.String(), "user", user)

	if err := s.repos.AddCollaborator(ctx, challenge.RepoOwner, challenge.Repo, user); err != nil {
		return s.reply(ctx, ref, "challenge-join-failed", map[string]any{"user": user, "error": err.Error()})
	}

	return s.reply(ctx, ref, "challenge-joined", map[string]any{
		"repoOwner": challenge.RepoOwner,
		"repo":      challenge.Repo,
		"user":      user,
	})
}

// Review prepares the challenge for grading: the reviewer gets access, the
// assignment's grading aids are mirrored in if the policy asks for it, and
// seeded review comments are attached to the tracked pull request. The three
// sub-steps are not transactional; each failure is reported independently.
func (s *ChallengeService) Review(ctx context.Context, ref model.IssueRef, actor string) error {
	challenge, err := s.store.Get(ctx, ref)
	if err != nil {
		return s.reply(ctx, ref, "challenge-review-failed", errView(err))
	}
	if challenge == nil {
		return s.reply(ctx, ref, "challenge-unknown", nil)
	}
	if !challenge.Reviewable() {
		return s.reply(ctx, ref, "challenge-review-not-ended", nil)
	}

	slog.Info("reviewing challenge", "issue", ref.String(), "reviewer", actor, "repo", challenge.Repo)

	if err := s.repos.AddCollaborator(ctx, challenge.RepoOwner, challenge.Repo, actor); err != nil {
		if rerr := s.reply(ctx, ref, "challenge-review-failed", errView(err)); rerr != nil {
			return rerr
		}
	} else {
		view := challengeView(challenge)
		view["reviewer"] = actor
		if err := s.reply(ctx, ref, "challenge-reviewed", view); err != nil {
			return err
		}
	}

	if spec := challenge.Config.Review.Copy; spec != nil {
		files, err := s.mirror.CopyFiles(ctx,
			RefSpec{Owner: challenge.RepoOwner, Repo: challenge.Assignment, Branch: spec.Head},
			RefSpec{Owner: challenge.RepoOwner, Repo: challenge.Repo, Branch: spec.Base},
			spec.Paths,
		)
		if err != nil {
			view := challengeView(challenge)
			view["error"] = err.Error()
			if rerr := s.reply(ctx, ref, "challenge-review-failed", view); rerr != nil {
				return rerr
			}
		} else {
			view := challengeView(challenge)
			view["reviewer"] = actor
			view["files"] = strings.Join(files, "\n")
			if err := s.reply(ctx, ref, "challenge-reviewed-uploaded", view); err != nil {
				return err
			}
		}
	}

	if comments := challenge.Config.Review.Comments; len(comments) > 0 {
		err := s.repos.CreatePullReview(ctx, challenge.RepoOwner, challenge.Repo, challenge.Pull, challenge.PullCommitSHA, comments)
		if err != nil {
			view := challengeView(challenge)
			view["error"] = err.Error()
			return s.reply(ctx, ref, "challenge-review-failed", view)
		}
		return s.reply(ctx, ref, "challenge-reviewed-commented", challengeView(challenge))
	}

	return nil
}

// Grade records the reviewer's final grade. When the challenge originated
// from Greenhouse, the completion callback is issued before the record is
// persisted: a failed callback blocks the local transition so the ATS and
// the record cannot disagree about completion, and the caller can retry.
func (s *ChallengeService) Grade(ctx context.Context, ref model.IssueRef, actor string, grade int) error {
	challenge, err := s.store.Get(ctx, ref)
	if err != nil {
		return s.reply(ctx, ref, "challenge-grade-failed", errView(err))
	}
	if challenge == nil {
		return s.reply(ctx, ref, "challenge-unknown", nil)
	}
	if !challenge.Reviewable() {
		return s.reply(ctx, ref, "challenge-review-not-ended", nil)
	}

	slog.Info("grading challenge", "issue", ref.String(), "grade", grade, "graded_by", actor)

	if challenge.TrackingURL != "" {
		slog.Debug("notifying greenhouse of completion", "url", challenge.TrackingURL)
		if err := s.notifier.NotifyCompleted(ctx, challenge.TrackingURL); err != nil {
			return s.reply(ctx, ref, "challenge-grade-failed", errView(err))
		}
	}

	gradedAt := s.now()
	challenge.Status = model.StatusGraded
	challenge.Grade = &grade
	challenge.GradedAt = &gradedAt
	challenge.GradedBy = actor

	if err := s.store.Set(ctx, ref, challenge); err != nil {
		return s.reply(ctx, ref, "challenge-grade-failed", errView(err))
	}

	return s.reply(ctx, ref, "challenge-graded", challengeView(challenge))
}

// Delete removes the challenge repository and closes the thread. The stored
// record is retired by resource deletion rather than transitioned.
func (s *ChallengeService) Delete(ctx context.Context, ref model.IssueRef, actor string) error {
	challenge, err := s.store.Get(ctx, ref)
	if err != nil {
		return s.reply(ctx, ref, "challenge-delete-failed", errView(err))
	}
	if challenge == nil {
		return s.reply(ctx, ref, "challenge-unknown", nil)
	}

	slog.Info("deleting challenge", "issue", ref.String(), "repo", challenge.Repo, "deleted_by", actor)

	if err := s.repos.DeleteRepo(ctx, challenge.RepoOwner, challenge.Repo); err != nil {
		return s.reply(ctx, ref, "challenge-delete-failed", errView(err))
	}

	closed := "closed"
	if err := s.repos.UpdateIssue(ctx, ref, model.IssueUpdate{State: &closed}); err != nil {
		return s.reply(ctx, ref, "challenge-delete-failed", errView(err))
	}

	return s.reply(ctx, ref, "challenge-deleted", challengeView(challenge))
}

// Help replies with command usage.
func (s *ChallengeService) Help(ctx context.Context, ref model.IssueRef) error {
	return s.reply(ctx, ref, "challenge-help", nil)
}

// reply posts a rendered template as a comment on the thread. Reply failures
// are the one class of error the service cannot report to the user, so they
// are logged and returned.
func (s *ChallengeService) reply(ctx context.Context, ref model.IssueRef, template string, view any) error {
	if err := s.replier.Reply(ctx, ref, template, view); err != nil {
		slog.Error("posting reply", "issue", ref.String(), "template", template, "error", err)
		return err
	}
	return nil
}

// challengeView flattens a challenge into the map templates consume.
func challengeView(c *model.Challenge) map[string]any {
	view := map[string]any{
		"repoOwner":  c.RepoOwner,
		"repo":       c.Repo,
		"candidate":  c.Candidate,
		"assignment": c.Assignment,
		"status":     string(c.Status),
		"createdBy":  c.CreatedBy,
		"pull":       c.Pull,
	}
	if c.Grade != nil {
		view["grade"] = *c.Grade
	}
	return view
}

// errView is the template view for failure replies.
func errView(err error) map[string]any {
	return map[string]any{"error": err.Error()}
}

// suffixAlphabet are the characters used for repository name entropy.
const suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// entropySuffix returns a short random string appended to generated
// repository names. It reduces collision probability; a collision still
// surfaces as a retryable creation failure.
func entropySuffix() string {
	b := make([]byte, 3)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}
