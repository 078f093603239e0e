package videos

import (
	"context"
	"database/sql"

	"itops-backend/internal/activity"
	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const videoCols = `id, title, description, video_url, thumbnail_url, thumbnail_key, category, created_by, created_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanVideo(r rowScanner) (*Video, error) {
	var v Video
	var desc, thumbURL, thumbKey sql.NullString
	if err := r.Scan(&v.ID, &v.Title, &desc, &v.VideoURL, &thumbURL, &thumbKey, &v.Category, &v.CreatedBy, &v.CreatedAt); err != nil {
		return nil, err
	}
	v.Description, v.ThumbnailURL, v.ThumbnailKey = desc.String, thumbURL.String, thumbKey.String
	return &v, nil
}

// List returns gallery entries newest first, optionally for one category.
func (s *Store) List(ctx context.Context, category string, limit, offset int) ([]Video, int64, error) {
	where, args := "", []any{}
	if category != "" {
		where = ` WHERE category = ?`
		args = append(args, category)
	}
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM video_gallery`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + videoCols + ` FROM video_gallery` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Video, 0, limit)
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *v)
	}
	return out, total, rows.Err()
}

func (s *Store) Create(ctx context.Context, v *Video, act activity.Entry) error {
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const q = `
INSERT INTO video_gallery
  (id, title, description, video_url, thumbnail_url, thumbnail_key, category, created_by, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, q,
			v.ID, v.Title, db.NullString(v.Description), v.VideoURL,
			db.NullString(v.ThumbnailURL), db.NullString(v.ThumbnailKey), v.Category, v.CreatedBy, v.CreatedAt,
		); err != nil {
			return err
		}
		return activity.InsertTx(ctx, tx, act)
	})
}

// Delete removes the row and returns it so the caller can clean up the thumbnail.
func (s *Store) Delete(ctx context.Context, id string, act func(*Video) activity.Entry) (*Video, error) {
	var out *Video
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		v, err := scanVideo(tx.QueryRowContext(ctx, `SELECT `+videoCols+` FROM video_gallery WHERE id = ? FOR UPDATE`, id))
		if err != nil {
			return apierr.FromDB(err, "video not found")
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM video_gallery WHERE id = ?`, id); err != nil {
			return err
		}
		if err := activity.InsertTx(ctx, tx, act(v)); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
