package httphandler

import (
	"context"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v82/github"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
)

// commandPattern matches a slash command at the start of any line of a
// comment body, capturing the command name and the remainder of the line.
var commandPattern = regexp.MustCompile(`(?m)^/([\w-]+)\b[ \t]*(.*)$`)

// command is a parsed slash command from a comment body.
type command struct {
	Name      string
	Arguments string
}

// parseCommand extracts the first slash command from a comment body.
func parseCommand(body string) (command, bool) {
	m := commandPattern.FindStringSubmatch(body)
	if m == nil {
		return command{}, false
	}
	return command{Name: m[1], Arguments: strings.TrimSpace(m[2])}, true
}

// Webhook receives GitHub webhook deliveries. Slash commands in newly created
// issues and issue comments drive the challenge lifecycle; everything else is
// acknowledged and dropped.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := gh.ValidatePayload(r, h.webhookSecret)
	if err != nil {
		h.logger.Warn("rejected webhook delivery", "error", err)
		writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	event, err := gh.ParseWebHook(gh.WebHookType(r), payload)
	if err != nil {
		writeError(w, http.StatusBadRequest, "unsupported event type")
		return
	}

	switch event := event.(type) {
	case *gh.IssueCommentEvent:
		if event.GetAction() != "created" {
			break
		}
		if event.GetSender().GetType() == "Bot" {
			break
		}
		h.dispatch(r.Context(),
			model.IssueRef{
				Owner:  event.GetRepo().GetOwner().GetLogin(),
				Repo:   event.GetRepo().GetName(),
				Number: event.GetIssue().GetNumber(),
			},
			event.GetSender().GetLogin(),
			event.GetComment().GetBody(),
		)

	case *gh.IssuesEvent:
		if event.GetAction() != "opened" {
			break
		}
		if event.GetSender().GetType() == "Bot" {
			break
		}
		h.dispatch(r.Context(),
			model.IssueRef{
				Owner:  event.GetRepo().GetOwner().GetLogin(),
				Repo:   event.GetRepo().GetName(),
				Number: event.GetIssue().GetNumber(),
			},
			event.GetSender().GetLogin(),
			event.GetIssue().GetBody(),
		)
	}

	w.WriteHeader(http.StatusOK)
}

// dispatch routes a slash command to the challenge service. Command failures
// are reported on the thread by the service itself, so they are only logged
// here.
func (h *Handler) dispatch(ctx context.Context, ref model.IssueRef, actor, body string) {
	cmd, ok := parseCommand(body)
	if !ok {
		return
	}

	h.logger.Info("received command",
		"command", cmd.Name,
		"issue", ref.String(),
		"actor", actor,
	)

	var err error
	switch cmd.Name {
	case "challenge":
		candidate, assignment, argErr := parseChallengeArgs(cmd.Arguments, ref.Repo)
		if argErr != nil {
			err = h.challenges.Help(ctx, ref)
			break
		}
		err = h.challenges.Create(ctx, ref, actor, candidate, assignment)
	case "end":
		err = h.challenges.End(ctx, ref, actor)
	case "join":
		err = h.challenges.Join(ctx, ref, actor, cmd.Arguments)
	case "review":
		err = h.challenges.Review(ctx, ref, actor)
	case "grade":
		grade, convErr := strconv.Atoi(cmd.Arguments)
		if convErr != nil {
			err = h.challenges.Help(ctx, ref)
			break
		}
		err = h.challenges.Grade(ctx, ref, actor, grade)
	case "delete":
		err = h.challenges.Delete(ctx, ref, actor)
	case "help":
		err = h.challenges.Help(ctx, ref)
	default:
		return
	}

	if err != nil {
		h.logger.Error("command failed",
			"command", cmd.Name,
			"issue", ref.String(),
			"error", err,
		)
	}
}

// parseChallengeArgs splits "/challenge @candidate [assignment]" arguments.
// The assignment falls back to the repository hosting the thread.
func parseChallengeArgs(arguments, fallbackAssignment string) (candidate, assignment string, err error) {
	fields := strings.Fields(arguments)
	switch len(fields) {
	case 1:
		return fields[0], fallbackAssignment, nil
	case 2:
		return fields[0], fields[1], nil
	default:
		return "", "", errMissingCandidate
	}
}

var errMissingCandidate = errInvalidArguments("a candidate is required")

type errInvalidArguments string

func (e errInvalidArguments) Error() string { return string(e) }
