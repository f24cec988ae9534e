package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/beat-interviewing/challenge-bot/internal/domain/model"
	"github.com/beat-interviewing/challenge-bot/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ChallengeStore = (*ChallengeRepo)(nil)

// ChallengeRepo is the SQLite implementation of the ChallengeStore port
// interface. Each challenge is stored as a JSON payload keyed by its thread,
// so the schema never chases the challenge shape.
type ChallengeRepo struct {
	db *DB
}

// NewChallengeRepo creates a new ChallengeRepo backed by the given DB.
func NewChallengeRepo(db *DB) *ChallengeRepo {
	return &ChallengeRepo{db: db}
}

// Get returns the challenge stored for the thread, or nil if none exists.
func (r *ChallengeRepo) Get(ctx context.Context, ref model.IssueRef) (*model.Challenge, error) {
	const query = `SELECT payload FROM challenges WHERE thread_key = ?`

	var payload string
	err := r.db.Reader.QueryRowContext(ctx, query, ref.Key()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query challenge %s: %w", ref.String(), err)
	}

	var challenge model.Challenge
	if err := json.Unmarshal([]byte(payload), &challenge); err != nil {
		return nil, fmt.Errorf("%w: challenge %s: %v", driven.ErrCorruptMetadata, ref.String(), err)
	}
	return &challenge, nil
}

// Set stores the challenge for the thread, replacing any previous record.
func (r *ChallengeRepo) Set(ctx context.Context, ref model.IssueRef, challenge *model.Challenge) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("marshal challenge %s: %w", ref.String(), err)
	}

	const query = `
		INSERT INTO challenges (thread_key, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(thread_key) DO UPDATE SET
			payload = excluded.payload,
			updated_at = CURRENT_TIMESTAMP
	`
	if _, err := r.db.Writer.ExecContext(ctx, query, ref.Key(), string(payload)); err != nil {
		return fmt.Errorf("store challenge %s: %w", ref.String(), err)
	}
	return nil
}
