package driven

import (
	"context"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
)

// Replier renders a named message template and posts the result as a comment
// on the issue thread. It is the only way the domain logic talks back to
// users, so operations never surface raw errors to the command router.
type Replier interface {
	Reply(ctx context.Context, ref model.IssueRef, template string, view any) error
}
