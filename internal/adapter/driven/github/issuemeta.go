package github

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	gh "github.com/google/go-github/v82/github"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
)

// metaPattern locates the machine-readable payload embedded at the end of an
// issue body. Everything between the sentinel markers is one JSON object
// whose top-level keys namespace unrelated sections; ours is "challenge".
var metaPattern = regexp.MustCompile(`\n\n<!-- challenge-bot = (.*) -->`)

// metaKey is the namespace this store owns inside the payload object.
const metaKey = "challenge"

// Compile-time interface satisfaction check.
var _ driven.ChallengeStore = (*IssueMetaStore)(nil)

// IssueMetaStore persists the challenge record inside the originating issue's
// body, after the human-authored text. The issue is both the conversation
// thread and the storage key, so the record travels with its thread.
//
// Get/Set is read-modify-write with no compare-and-swap: concurrent
// operations on the same issue race and the last Set wins.
type IssueMetaStore struct {
	c *Client
}

// NewIssueMetaStore creates a store that persists challenge records in issue
// bodies through the given client.
func NewIssueMetaStore(c *Client) *IssueMetaStore {
	return &IssueMetaStore{c: c}
}

// Get parses the trailing payload of the issue body. An absent sentinel
// yields (nil, nil); a payload that is present but unparseable is an error
// wrapping ErrCorruptMetadata so callers can distinguish "no challenge"
// from "corrupt challenge".
func (s *IssueMetaStore) Get(ctx context.Context, ref model.IssueRef) (*model.Challenge, error) {
	body, err := s.c.GetIssueBody(ctx, ref)
	if err != nil {
		return nil, err
	}

	match := metaPattern.FindStringSubmatch(body)
	if match == nil {
		return nil, nil
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(match[1]), &payload); err != nil {
		return nil, fmt.Errorf("parsing metadata payload of %s: %w: %v", ref, driven.ErrCorruptMetadata, err)
	}

	raw, ok := payload[metaKey]
	if !ok {
		return nil, nil
	}

	var challenge model.Challenge
	if err := json.Unmarshal(raw, &challenge); err != nil {
		return nil, fmt.Errorf("parsing challenge record of %s: %w: %v", ref, driven.ErrCorruptMetadata, err)
	}

	return &challenge, nil
}

// Set serializes the challenge under the "challenge" key and rewrites the
// issue body, replacing any prior sentinel section while preserving the
// human-authored prefix, and any unrelated payload keys, untouched.
func (s *IssueMetaStore) Set(ctx context.Context, ref model.IssueRef, challenge *model.Challenge) error {
	body, err := s.c.GetIssueBody(ctx, ref)
	if err != nil {
		return err
	}

	payload := map[string]json.RawMessage{}
	if match := metaPattern.FindStringSubmatchIndex(body); match != nil {
		// Carry over other sections when the existing payload parses; a
		// corrupt section is replaced wholesale rather than propagated.
		_ = json.Unmarshal([]byte(body[match[2]:match[3]]), &payload)
		body = body[:match[0]]
	}

	record, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("serializing challenge record of %s: %w", ref, err)
	}
	payload[metaKey] = record

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("serializing metadata payload of %s: %w", ref, err)
	}

	newBody := fmt.Sprintf("%s\n\n<!-- challenge-bot = %s -->", body, data)

	_, resp, err := s.c.gh.Issues.Edit(ctx, ref.Owner, ref.Repo, ref.Number, &gh.IssueRequest{
		Body: gh.Ptr(newBody),
	})
	if err != nil {
		return fmt.Errorf("rewriting body of %s: %w", ref, err)
	}

	logRateLimit(resp, "issues/edit")

	return nil
}
