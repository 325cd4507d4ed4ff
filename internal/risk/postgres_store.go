package risk

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore persists assessments in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed assessment store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the risk_assessments table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS risk_assessments (
			id            VARCHAR(36) PRIMARY KEY,
			group_id      BIGINT NOT NULL,
			user_id       BIGINT NOT NULL,
			final_score   NUMERIC(6,3) NOT NULL CHECK (final_score >= 0 AND final_score <= 100),
			risk_level    VARCHAR(10) NOT NULL CHECK (risk_level IN ('low', 'medium', 'high', 'critical')),
			decision      VARCHAR(10) NOT NULL CHECK (decision IN ('allow', 'warn', 'block')),
			action        VARCHAR(32) NOT NULL,
			confidence    NUMERIC(4,3) NOT NULL,
			factors       JSONB NOT NULL DEFAULT '{}',
			evaluated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_group_user
			ON risk_assessments (group_id, user_id, evaluated_at DESC);

		CREATE INDEX IF NOT EXISTS idx_risk_assessments_blocks
			ON risk_assessments (evaluated_at DESC) WHERE decision = 'block';
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, a *Assessment) error {
	factorsJSON, err := json.Marshal(a.Factors)
	if err != nil {
		return fmt.Errorf("failed to marshal factors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO risk_assessments
			(id, group_id, user_id, final_score, risk_level, decision, action, confidence, factors, evaluated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		a.ID,
		a.GroupID,
		a.UserID,
		a.FinalScore,
		string(a.Level),
		string(a.Decision),
		a.Action,
		a.Confidence,
		factorsJSON,
		a.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, groupID, userID int64, limit int) ([]*Assessment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, user_id, final_score, risk_level, decision, action, confidence, factors, evaluated_at
		FROM risk_assessments
		WHERE group_id = $1 AND user_id = $2
		ORDER BY evaluated_at DESC
		LIMIT $3
	`, groupID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Assessment
	for rows.Next() {
		var a Assessment
		var factorsJSON []byte
		var evaluatedAt time.Time

		if err := rows.Scan(&a.ID, &a.GroupID, &a.UserID, &a.FinalScore, &a.Level,
			&a.Decision, &a.Action, &a.Confidence, &factorsJSON, &evaluatedAt); err != nil {
			continue
		}
		a.EvaluatedAt = evaluatedAt
		a.NormalizedScore = a.FinalScore / 100
		_ = json.Unmarshal(factorsJSON, &a.Factors)
		result = append(result, &a)
	}
	return result, rows.Err()
}
