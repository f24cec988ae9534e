package github

import (
	"context"
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
)

// assignmentConfigPath is where assignment repositories keep their policy.
const assignmentConfigPath = ".github/assignment.yml"

// Compile-time interface satisfaction check.
var _ driven.ConfigReader = (*Client)(nil)

// ReadAssignmentConfig reads .github/assignment.yml from the assignment
// repository's default branch. A missing file yields the documented defaults
// (all policy sections empty); an unreadable or invalid file is an error.
func (c *Client) ReadAssignmentConfig(ctx context.Context, owner, repo string) (*model.AssignmentConfig, error) {
	file, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, repo, assignmentConfigPath, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return &model.AssignmentConfig{}, nil
		}
		return nil, fmt.Errorf("fetching %s from %s/%s: %w", assignmentConfigPath, owner, repo, err)
	}

	logRateLimit(resp, "repos/get-contents")

	if file == nil {
		return nil, fmt.Errorf("%s in %s/%s is a directory, expected a file", assignmentConfigPath, owner, repo)
	}

	raw, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decoding %s from %s/%s: %w", assignmentConfigPath, owner, repo, err)
	}

	var config model.AssignmentConfig
	if err := yaml.Unmarshal([]byte(raw), &config); err != nil {
		return nil, fmt.Errorf("parsing %s from %s/%s: %w", assignmentConfigPath, owner, repo, err)
	}

	return &config, nil
}
