package activity

import (
	"context"
	"database/sql"
	"strings"

	"itops-backend/internal/platform/db"
)

// InsertTx appends e inside the caller's transaction. ID and Timestamp must be set.
func InsertTx(ctx context.Context, tx db.DBTX, e Entry) error {
	const q = `
INSERT INTO activities
  (id, action, product_name, user_name, details, image_url, signature_url, zone, status, timestamp)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		e.ID, string(e.Action), e.ProductName, e.UserName,
		db.NullString(e.Details), db.NullString(e.ImageURL), db.NullString(e.SignatureURL),
		db.NullString(e.Zone), db.NullString(e.Status), e.Timestamp,
	)
	return err
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const entryCols = `id, action, product_name, user_name, details, image_url, signature_url, zone, status, timestamp`

func scanEntry(rows *sql.Rows) (Entry, error) {
	var e Entry
	var action string
	var details, image, sig, zone, status sql.NullString
	if err := rows.Scan(&e.ID, &action, &e.ProductName, &e.UserName, &details, &image, &sig, &zone, &status, &e.Timestamp); err != nil {
		return Entry{}, err
	}
	e.Action = Action(action)
	e.Details, e.ImageURL, e.SignatureURL = details.String, image.String, sig.String
	e.Zone, e.Status = zone.String, status.String
	return e, nil
}

func buildWhere(f Filter) (string, []any) {
	var conds []string
	var args []any
	if f.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, string(f.Action))
	}
	if f.UserName != "" {
		conds = append(conds, "user_name = ?")
		args = append(args, f.UserName)
	}
	if f.Zone != "" {
		conds = append(conds, "zone = ?")
		args = append(args, f.Zone)
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, f.Status)
	}
	if f.From != nil {
		conds = append(conds, "timestamp >= ?")
		args = append(args, *f.From)
	}
	if f.To != nil {
		conds = append(conds, "timestamp < ?")
		args = append(args, *f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *Store) List(ctx context.Context, f Filter, p Page) ([]Entry, int64, error) {
	where, args := buildWhere(f)

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + entryCols + ` FROM activities` + where + ` ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, p.Limit, p.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Entry, 0, p.Limit)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// legacyBatch returns repair entries with details text and a missing status
// or zone, after cursor.
func (s *Store) legacyBatch(ctx context.Context, after string, limit int) ([]Entry, error) {
	const q = `
SELECT ` + entryCols + `
FROM activities
WHERE id > ? AND action IN (?, ?)
  AND details IS NOT NULL AND details <> '' AND (status IS NULL OR zone IS NULL)
ORDER BY id
LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, after, string(ActionRepair), string(ActionRepairUpdate), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// backfill only fills columns that are still NULL.
func (s *Store) backfill(ctx context.Context, id, status, zone string) error {
	const q = `
UPDATE activities
SET status = COALESCE(status, ?), zone = COALESCE(zone, ?)
WHERE id = ?`
	_, err := s.db.ExecContext(ctx, q, db.NullString(status), db.NullString(zone), id)
	return err
}
