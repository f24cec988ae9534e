package driven

import (
	"context"
	"errors"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
)

// ErrCorruptMetadata indicates a challenge payload was present but could not
// be parsed. It is distinct from "no challenge": callers must not treat a
// corrupt record as an invitation to create a fresh one.
var ErrCorruptMetadata = errors.New("challenge metadata is corrupt")

// ChallengeStore persists the challenge record owned by an issue thread.
//
// The store is read-modify-write with no compare-and-swap: two concurrent
// Get/mutate/Set sequences against the same thread race and the last Set
// wins. This is an accepted limitation of the current backings; the
// interface is shaped so a backing can add optimistic concurrency (version
// token compared at Set time) without changing callers.
type ChallengeStore interface {
	// Get returns the stored challenge for the thread, or nil if none has
	// been recorded yet. A present-but-unparseable record is an error
	// wrapping ErrCorruptMetadata, never a nil result.
	Get(ctx context.Context, ref model.IssueRef) (*model.Challenge, error)

	// Set records the challenge for the thread, replacing any prior record.
	Set(ctx context.Context, ref model.IssueRef, challenge *model.Challenge) error
}
