package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type Account struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"displayName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsDisabled   bool      `json:"isDisabled"`
	CreatedAt    time.Time `json:"createdAt"`
}

type AccountStore interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	List(ctx context.Context, role string) ([]Account, error)
	Create(ctx context.Context, a *Account) error
	Disable(ctx context.Context, id string) (int64, error)
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) AccountStore {
	return &Store{db: db}
}

const accountCols = `id, display_name, email, password_hash, role, is_disabled, created_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanAccount(r rowScanner) (*Account, error) {
	var a Account
	var isDisabledInt int
	if err := r.Scan(&a.ID, &a.DisplayName, &a.Email, &a.PasswordHash, &a.Role, &isDisabledInt, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.IsDisabled = isDisabledInt != 0
	return &a, nil
}

// GetByID returns nil, nil when the account does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*Account, error) {
	const q = `
SELECT ` + accountCols + `
FROM auth_accounts
WHERE id = ?
LIMIT 1
`
	a, err := scanAccount(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Store) List(ctx context.Context, role string) ([]Account, error) {
	q := `SELECT ` + accountCols + ` FROM auth_accounts WHERE is_disabled = 0`
	var args []any
	if role != "" {
		q += ` AND role = ?`
		args = append(args, role)
	}
	q += ` ORDER BY display_name, id`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, a *Account) error {
	const q = `
INSERT INTO auth_accounts (id, display_name, email, password_hash, role, is_disabled, created_at)
VALUES (?, ?, ?, ?, ?, 0, ?)
`
	_, err := s.db.ExecContext(ctx, q, a.ID, a.DisplayName, a.Email, a.PasswordHash, a.Role, a.CreatedAt)
	return err
}

func (s *Store) Disable(ctx context.Context, id string) (int64, error) {
	const q = `UPDATE auth_accounts SET is_disabled = 1 WHERE id = ? AND is_disabled = 0`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
