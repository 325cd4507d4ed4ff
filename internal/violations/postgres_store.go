package violations

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresStore persists violations in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed violation store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the violations table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS violations (
			id              VARCHAR(36) PRIMARY KEY,
			group_id        BIGINT NOT NULL,
			user_id         BIGINT NOT NULL,
			violation_type  VARCHAR(20) NOT NULL,
			severity        VARCHAR(10) NOT NULL CHECK (severity IN ('low', 'medium', 'high', 'critical')),
			risk_score      NUMERIC(6,3) NOT NULL,
			message_text    TEXT,
			action_taken    VARCHAR(32) NOT NULL,
			created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_violations_group_user
			ON violations (group_id, user_id, created_at DESC);
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, v *Violation) error {
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO violations
			(id, group_id, user_id, violation_type, severity, risk_score, message_text, action_taken, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		v.ID,
		v.GroupID,
		v.UserID,
		string(v.Type),
		v.Severity,
		v.RiskScore,
		v.MessageText,
		v.ActionTaken,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record violation: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountsFor(ctx context.Context, groupID, userID int64) (Counts, error) {
	var c Counts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '24 hours'),
			COUNT(*) FILTER (WHERE created_at > NOW() - INTERVAL '7 days'),
			COUNT(*)
		FROM violations
		WHERE group_id = $1 AND user_id = $2
	`, groupID, userID).Scan(&c.Violations24h, &c.Violations7d, &c.Total)
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count violations: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, groupID, userID int64, limit int) ([]*Violation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, user_id, violation_type, severity, risk_score, message_text, action_taken, created_at
		FROM violations
		WHERE group_id = $1 AND user_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, groupID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list violations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Violation
	for rows.Next() {
		var v Violation
		var messageText sql.NullString

		if err := rows.Scan(&v.ID, &v.GroupID, &v.UserID, &v.Type, &v.Severity,
			&v.RiskScore, &messageText, &v.ActionTaken, &v.CreatedAt); err != nil {
			continue
		}
		v.MessageText = messageText.String
		result = append(result, &v)
	}
	return result, rows.Err()
}
