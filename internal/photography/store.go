package photography

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"itops-backend/internal/activity"
	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const jobCols = `id, title, description, location, start_time, end_time, assignees, assignee_names,
  booking_id, status, drive_link, cover_image, facebook_post_id, facebook_permalink,
  completed_by, completed_at, created_by, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanJob(r rowScanner) (*Job, error) {
	var j Job
	var status string
	var assignees, names []byte
	var desc, booking, drive, cover, postID, permalink, completedBy sql.NullString
	var completedAt sql.NullTime
	err := r.Scan(&j.ID, &j.Title, &desc, &j.Location, &j.StartTime, &j.EndTime, &assignees, &names,
		&booking, &status, &drive, &cover, &postID, &permalink,
		&completedBy, &completedAt, &j.CreatedBy, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(assignees, &j.Assignees); err != nil {
		return nil, fmt.Errorf("job %s assignees: %w", j.ID, err)
	}
	if err := json.Unmarshal(names, &j.AssigneeNames); err != nil {
		return nil, fmt.Errorf("job %s assignee names: %w", j.ID, err)
	}
	j.Status = Status(status)
	j.Description, j.BookingID, j.DriveLink, j.CoverImage = desc.String, booking.String, drive.String, cover.String
	j.FacebookPostID, j.FacebookPermalink, j.CompletedBy = postID.String, permalink.String, completedBy.String
	if completedAt.Valid {
		t := completedAt.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobCols+` FROM photography_jobs WHERE id = ?`, id))
	if err != nil {
		return nil, apierr.FromDB(err, "job not found")
	}
	return j, nil
}

func (s *Store) List(ctx context.Context, f Filter, pg Page) ([]Job, int64, error) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Assignee != "" {
		conds = append(conds, "JSON_CONTAINS(assignees, JSON_QUOTE(?))")
		args = append(args, f.Assignee)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM photography_jobs`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + jobCols + ` FROM photography_jobs` + where + ` ORDER BY start_time DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, pg.Limit, pg.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Job, 0, pg.Limit)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *j)
	}
	return out, total, rows.Err()
}

// Completed returns up to limit completed jobs that have a Facebook post, newest first.
func (s *Store) Completed(ctx context.Context, limit int) ([]Job, error) {
	q := `SELECT ` + jobCols + ` FROM photography_jobs
WHERE status = ? AND facebook_permalink IS NOT NULL AND facebook_permalink <> ''
ORDER BY completed_at DESC, id DESC
LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, string(StatusCompleted), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Job, 0, limit)
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *j)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, j *Job, act activity.Entry) error {
	assignees, err := json.Marshal(j.Assignees)
	if err != nil {
		return err
	}
	names, err := json.Marshal(j.AssigneeNames)
	if err != nil {
		return err
	}
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const q = `
INSERT INTO photography_jobs
  (id, title, description, location, start_time, end_time, assignees, assignee_names, booking_id,
   status, created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, q,
			j.ID, j.Title, db.NullString(j.Description), j.Location, j.StartTime, j.EndTime, assignees, names,
			db.NullString(j.BookingID), string(j.Status), j.CreatedBy, j.CreatedAt, j.UpdatedAt,
		); err != nil {
			return err
		}
		return activity.InsertTx(ctx, tx, act)
	})
}

// Update locks the job, lets mutate re-check and change it, then writes the
// result and the returned activity entry.
func (s *Store) Update(ctx context.Context, id string, now time.Time, mutate func(*Job) (activity.Entry, error)) (*Job, error) {
	var out *Job
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		j, err := scanJob(tx.QueryRowContext(ctx, `SELECT `+jobCols+` FROM photography_jobs WHERE id = ? FOR UPDATE`, id))
		if err != nil {
			return apierr.FromDB(err, "job not found")
		}
		act, err := mutate(j)
		if err != nil {
			return err
		}
		j.UpdatedAt = now
		const q = `
UPDATE photography_jobs
SET status = ?, drive_link = ?, cover_image = ?, facebook_post_id = ?, facebook_permalink = ?,
    completed_by = ?, completed_at = ?, updated_at = ?
WHERE id = ?`
		if _, err := tx.ExecContext(ctx, q,
			string(j.Status), db.NullString(j.DriveLink), db.NullString(j.CoverImage),
			db.NullString(j.FacebookPostID), db.NullString(j.FacebookPermalink),
			db.NullString(j.CompletedBy), j.CompletedAt, now, j.ID,
		); err != nil {
			return err
		}
		if err := activity.InsertTx(ctx, tx, act); err != nil {
			return err
		}
		out = j
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
