package catalog

import (
	"context"
	"database/sql"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

// GET /categories?all=1
func (s *Store) List(ctx context.Context, includeDisabled bool) ([]Category, error) {
	q := `
		SELECT category_id, name, code, is_disabled
		FROM categories
	`
	if !includeDisabled {
		q += ` WHERE is_disabled = 0`
	}
	q += ` ORDER BY category_id`

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]Category, 0, 16)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Code, &c.IsDisabled); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) GetByID(ctx context.Context, id uint) (*Category, error) {
	const q = `
		SELECT category_id, name, code, is_disabled
		FROM categories
		WHERE category_id = ?
	`
	var c Category
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Code, &c.IsDisabled); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetByCode(ctx context.Context, code string) (*Category, error) {
	const q = `
		SELECT category_id, name, code, is_disabled
		FROM categories
		WHERE code = ?
	`
	var c Category
	if err := s.db.QueryRowContext(ctx, q, code).Scan(&c.ID, &c.Name, &c.Code, &c.IsDisabled); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) Create(ctx context.Context, name, code string) (*Category, error) {
	const q = `
		INSERT INTO categories (name, code, is_disabled)
		VALUES (?, ?, 0)
	`
	r, err := s.db.ExecContext(ctx, q, name, code)
	if err != nil {
		return nil, err
	}
	lastID, err := r.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Category{ID: uint(lastID), Name: name, Code: code}, nil
}

func (s *Store) Update(ctx context.Context, id uint, name, code string, disabled bool) error {
	const q = `
		UPDATE categories
		SET name = ?, code = ?, is_disabled = ?
		WHERE category_id = ?
	`
	if _, err := s.db.ExecContext(ctx, q, name, code, disabled, id); err != nil {
		return err
	}
	// MySQL reports 0 affected rows when nothing changed, so check existence separately.
	_, err := s.GetByID(ctx, id)
	return err
}

// Disable hides the category from new products. Existing products keep it.
func (s *Store) Disable(ctx context.Context, id uint) error {
	const q = `
		UPDATE categories
		SET is_disabled = 1
		WHERE category_id = ?
	`
	if _, err := s.db.ExecContext(ctx, q, id); err != nil {
		return err
	}
	_, err := s.GetByID(ctx, id)
	return err
}
