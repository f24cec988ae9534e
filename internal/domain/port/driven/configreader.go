package driven

import (
	"context"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
)

// ConfigReader fetches an assignment's policy file from its repository.
type ConfigReader interface {
	// ReadAssignmentConfig reads .github/assignment.yml from the assignment
	// repository's default branch. A missing file is not an error: it yields
	// the documented defaults (all policy sections empty). A present but
	// invalid file is an error.
	ReadAssignmentConfig(ctx context.Context, owner, repo string) (*model.AssignmentConfig, error)
}
