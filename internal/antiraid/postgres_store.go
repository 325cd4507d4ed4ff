package antiraid

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PostgresStore persists raid activation events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed raid event store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the raid_events table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS raid_events (
			id              VARCHAR(36) PRIMARY KEY,
			group_id        BIGINT NOT NULL,
			raid_type       VARCHAR(20) NOT NULL CHECK (raid_type IN ('mass_join', 'new_account_wave', 'username_pattern')),
			confidence      NUMERIC(4,3) NOT NULL,
			affected_users  JSONB NOT NULL DEFAULT '[]',
			trigger_reason  TEXT NOT NULL,
			detected_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_raid_events_group
			ON raid_events (group_id, detected_at DESC);
	`)
	return err
}

func (s *PostgresStore) Record(ctx context.Context, ev *Event) error {
	usersJSON, err := json.Marshal(ev.AffectedUsers)
	if err != nil {
		return fmt.Errorf("failed to marshal affected users: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO raid_events
			(id, group_id, raid_type, confidence, affected_users, trigger_reason, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		ev.ID,
		ev.GroupID,
		string(ev.RaidType),
		ev.Confidence,
		usersJSON,
		ev.TriggerReason,
		ev.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record raid event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByGroup(ctx context.Context, groupID int64, limit int) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, group_id, raid_type, confidence, affected_users, trigger_reason, detected_at
		FROM raid_events
		WHERE group_id = $1
		ORDER BY detected_at DESC
		LIMIT $2
	`, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list raid events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var result []*Event
	for rows.Next() {
		var ev Event
		var usersJSON []byte
		var detectedAt time.Time

		if err := rows.Scan(&ev.ID, &ev.GroupID, &ev.RaidType, &ev.Confidence,
			&usersJSON, &ev.TriggerReason, &detectedAt); err != nil {
			continue
		}
		ev.DetectedAt = detectedAt
		_ = json.Unmarshal(usersJSON, &ev.AffectedUsers)
		result = append(result, &ev)
	}
	return result, rows.Err()
}
