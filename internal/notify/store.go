package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"itops-backend/internal/platform/db"
)

// EnqueueTx writes a pending notification inside the caller's transaction,
// so it is only delivered if the business write commits.
func EnqueueTx(ctx context.Context, tx db.DBTX, id string, now time.Time, kind Kind, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	const q = `
INSERT INTO notification_outbox (id, kind, payload, status, attempts, next_attempt_at, created_at)
VALUES (?, ?, ?, ?, 0, ?, ?)`
	_, err = tx.ExecContext(ctx, q, id, string(kind), body, string(StatusPending), now, now)
	return err
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// Claim locks up to limit due rows, pushes their next_attempt_at out by lease
// so other workers skip them, and returns them.
func (s *Store) Claim(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Notification, error) {
	var out []Notification
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const q = `
SELECT id, kind, payload, status, attempts, next_attempt_at, last_error, created_at
FROM notification_outbox
WHERE status = ? AND next_attempt_at <= ?
ORDER BY next_attempt_at
LIMIT ?
FOR UPDATE SKIP LOCKED`
		rows, err := tx.QueryContext(ctx, q, string(StatusPending), now, limit)
		if err != nil {
			return err
		}
		for rows.Next() {
			var n Notification
			var kind, status string
			var lastErr sql.NullString
			if err := rows.Scan(&n.ID, &kind, &n.Payload, &status, &n.Attempts, &n.NextAttemptAt, &lastErr, &n.CreatedAt); err != nil {
				rows.Close()
				return err
			}
			n.Kind, n.Status, n.LastError = Kind(kind), Status(status), lastErr.String
			out = append(out, n)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return err
		}

		for _, n := range out {
			if _, err := tx.ExecContext(ctx,
				`UPDATE notification_outbox SET next_attempt_at = ? WHERE id = ?`,
				now.Add(lease), n.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	const q = `
UPDATE notification_outbox
SET status = ?, attempts = attempts + 1, delivered_at = ?, last_error = NULL
WHERE id = ?`
	_, err := s.db.ExecContext(ctx, q, string(StatusDelivered), at, id)
	return err
}

// MarkFailed records a failed attempt. status is pending (retry at next) or dead.
func (s *Store) MarkFailed(ctx context.Context, id string, attempts int, status Status, next time.Time, reason string) error {
	const q = `
UPDATE notification_outbox
SET status = ?, attempts = ?, next_attempt_at = ?, last_error = ?
WHERE id = ?`
	_, err := s.db.ExecContext(ctx, q, string(status), attempts, next, reason, id)
	return err
}
