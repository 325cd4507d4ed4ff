package trust

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists trust scores in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed trust store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the trust_scores table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS trust_scores (
			group_id    BIGINT NOT NULL,
			user_id     BIGINT NOT NULL,
			score       NUMERIC(5,2) NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (group_id, user_id)
		);

		CREATE INDEX IF NOT EXISTS idx_trust_scores_low
			ON trust_scores (group_id, score) WHERE score < 25;

		CREATE INDEX IF NOT EXISTS idx_trust_scores_stale
			ON trust_scores (updated_at);
	`)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, groupID, userID int64) (float64, bool, error) {
	var score float64
	err := s.db.QueryRowContext(ctx, `
		SELECT score FROM trust_scores WHERE group_id = $1 AND user_id = $2
	`, groupID, userID).Scan(&score)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to read trust score: %w", err)
	}
	return score, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, groupID, userID int64, score float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trust_scores (group_id, user_id, score, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (group_id, user_id)
		DO UPDATE SET score = EXCLUDED.score, updated_at = NOW()
	`, groupID, userID, score)
	if err != nil {
		return fmt.Errorf("failed to write trust score: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListInactive(ctx context.Context, cutoff time.Time) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_id, user_id, score, updated_at
		FROM trust_scores
		WHERE updated_at < $1
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list inactive trust records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.GroupID, &r.UserID, &r.Score, &r.UpdatedAt); err != nil {
			continue
		}
		result = append(result, &r)
	}
	return result, rows.Err()
}
