package inventory

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"itops-backend/internal/activity"
	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/db"
)

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const productCols = `id, name, brand, model, location, image_url, stock_id, status, type,
  quantity, borrowed_count, category, serial_number, description, version, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanProduct(r rowScanner) (*Product, error) {
	var p Product
	var status, typ string
	var model, category, serial, desc sql.NullString
	err := r.Scan(&p.ID, &p.Name, &p.Brand, &model, &p.Location, &p.ImageURL, &p.StockID, &status, &typ,
		&p.Quantity, &p.BorrowedCount, &category, &serial, &desc, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if st, ok := NormalizeStatus(status); ok {
		p.Status = st
	} else {
		p.Status = Status(status)
	}
	p.Type = ProductType(typ)
	if p.Type != TypeBulk {
		p.Type = TypeUnique
	}
	p.Model, p.Category, p.SerialNumber, p.Description = model.String, category.String, serial.String, desc.String
	return &p, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Product, error) {
	q := `SELECT ` + productCols + ` FROM products WHERE id = ?`
	p, err := scanProduct(s.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, apierr.FromDB(err, "product not found")
	}
	return p, nil
}

func lockProduct(ctx context.Context, tx db.DBTX, id string) (*Product, error) {
	q := `SELECT ` + productCols + ` FROM products WHERE id = ? FOR UPDATE`
	p, err := scanProduct(tx.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, apierr.FromDB(err, "product not found")
	}
	return p, nil
}

// saveStock writes counters and status guarded by the version read under lock.
func saveStock(ctx context.Context, tx db.DBTX, p *Product, now time.Time) error {
	const q = `
UPDATE products
SET status = ?, quantity = ?, borrowed_count = ?, version = version + 1, updated_at = ?
WHERE id = ? AND version = ?`
	res, err := tx.ExecContext(ctx, q, string(p.Status), p.Quantity, p.BorrowedCount, now, p.ID, p.Version)
	if err != nil {
		return err
	}
	if aff, _ := res.RowsAffected(); aff != 1 {
		return apierr.Conflict("concurrent update, retry")
	}
	p.Version++
	p.UpdatedAt = now
	return nil
}

// ApplyStockTx locks the product, applies op and persists it inside tx.
// Every stock movement, including repair part consumption, goes through here.
func ApplyStockTx(ctx context.Context, tx db.DBTX, productID string, op StockOp, now time.Time) (*Product, error) {
	p, err := lockProduct(ctx, tx, productID)
	if err != nil {
		return nil, err
	}
	if err := op.Apply(p); err != nil {
		return nil, err
	}
	if err := saveStock(ctx, tx, p, now); err != nil {
		return nil, err
	}
	return p, nil
}

type StockCommand struct {
	ProductID   string
	Op          StockOp
	Now         time.Time
	Transaction *Transaction
	Activity    activity.Entry
}

// ExecStock runs the stock movement, the transaction record and the activity
// entry in one DB transaction. Product names are filled from the locked row.
func (s *Store) ExecStock(ctx context.Context, cmd StockCommand) (*Product, error) {
	var out *Product
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		p, err := ApplyStockTx(ctx, tx, cmd.ProductID, cmd.Op, cmd.Now)
		if err != nil {
			return err
		}
		if cmd.Transaction != nil {
			cmd.Transaction.ProductName = p.Name
			if err := insertTransaction(ctx, tx, cmd.Transaction); err != nil {
				return err
			}
		}
		cmd.Activity.ProductName = p.Name
		if err := activity.InsertTx(ctx, tx, cmd.Activity); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, apierr.FromDB(err, "product not found")
	}
	return out, nil
}

func insertTransaction(ctx context.Context, tx db.DBTX, t *Transaction) error {
	const q = `
INSERT INTO transactions
  (id, type, product_id, product_name, user_id, user_name, room, phone, position, reason,
   quantity, signature_url, status, borrow_date, return_date)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := tx.ExecContext(ctx, q,
		t.ID, string(t.Type), t.ProductID, t.ProductName, t.UserID, t.UserName, t.Room,
		db.NullString(t.Phone), db.NullString(t.Position), t.Reason,
		t.Quantity, t.SignatureURL, string(t.Status), t.BorrowDate, t.ReturnDate,
	)
	return err
}

// ===== product admin =====

// Create inserts p. An empty StockID gets {categoryCode}-{YYYYMMDD}-{seq}
// from the row's auto-increment sequence.
func (s *Store) Create(ctx context.Context, p *Product, act activity.Entry) error {
	generate := p.StockID == ""
	if generate {
		p.StockID = "TMP-" + p.ID
	}
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const ins = `
INSERT INTO products
  (id, name, brand, model, location, image_url, stock_id, status, type, quantity, borrowed_count,
   category, serial_number, description, version, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		_, err := tx.ExecContext(ctx, ins,
			p.ID, p.Name, p.Brand, db.NullString(p.Model), p.Location, p.ImageURL, p.StockID,
			string(p.Status), string(p.Type), p.Quantity, p.BorrowedCount,
			db.NullString(p.Category), db.NullString(p.SerialNumber), db.NullString(p.Description),
			p.Version, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return err
		}

		if generate {
			const fin = `
UPDATE products p
LEFT JOIN categories c ON c.code = p.category
SET p.stock_id = CONCAT(COALESCE(c.code, 'GEN'), '-', DATE_FORMAT(p.created_at, '%Y%m%d'), '-', LPAD(p.seq, 5, '0'))
WHERE p.id = ? AND p.stock_id = ?`
			res, err := tx.ExecContext(ctx, fin, p.ID, p.StockID)
			if err != nil {
				return err
			}
			if aff, _ := res.RowsAffected(); aff != 1 {
				return apierr.Conflict("concurrent update, retry").WithDetail("stock id not finalized")
			}
			if err := tx.QueryRowContext(ctx, `SELECT stock_id FROM products WHERE id = ?`, p.ID).Scan(&p.StockID); err != nil {
				return err
			}
		}

		act.ProductName = p.Name
		return activity.InsertTx(ctx, tx, act)
	})
}

// Update locks the row, checks version, lets mutate change it and saves all
// editable columns. mutate returns the activity entry describing the change.
func (s *Store) Update(ctx context.Context, id string, version int64, now time.Time, mutate func(*Product) (activity.Entry, error)) (*Product, error) {
	var out *Product
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		p, err := lockProduct(ctx, tx, id)
		if err != nil {
			return err
		}
		if p.Version != version {
			return apierr.Conflict("concurrent update, retry").WithDetail("version %d is stale, current %d", version, p.Version)
		}
		act, err := mutate(p)
		if err != nil {
			return err
		}
		const q = `
UPDATE products
SET name = ?, brand = ?, model = ?, location = ?, image_url = ?, status = ?, quantity = ?,
    category = ?, serial_number = ?, description = ?, version = version + 1, updated_at = ?
WHERE id = ? AND version = ?`
		res, err := tx.ExecContext(ctx, q,
			p.Name, p.Brand, db.NullString(p.Model), p.Location, p.ImageURL, string(p.Status), p.Quantity,
			db.NullString(p.Category), db.NullString(p.SerialNumber), db.NullString(p.Description), now,
			p.ID, p.Version,
		)
		if err != nil {
			return err
		}
		if aff, _ := res.RowsAffected(); aff != 1 {
			return apierr.Conflict("concurrent update, retry")
		}
		p.Version++
		p.UpdatedAt = now

		act.ProductName = p.Name
		if err := activity.InsertTx(ctx, tx, act); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) List(ctx context.Context, f ProductFilter, pg Page) ([]Product, int64, error) {
	var conds []string
	var args []any
	if f.Status != "" {
		if f.Status == StatusBorrowed {
			conds = append(conds, "status IN (?, ?)")
			args = append(args, string(StatusBorrowed), legacyBorrowed)
		} else {
			conds = append(conds, "status = ?")
			args = append(args, string(f.Status))
		}
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if f.Query != "" {
		conds = append(conds, "(name LIKE ? OR stock_id LIKE ? OR serial_number LIKE ?)")
		like := "%" + f.Query + "%"
		args = append(args, like, like, like)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	// count and page from one snapshot
	var total int64
	var out []Product
	err := db.ReadOnly(ctx, s.db, func(ctx context.Context, tx db.DBTX) error {
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
			return err
		}
		q := `SELECT ` + productCols + ` FROM products` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
		rows, err := tx.QueryContext(ctx, q, append(args, pg.Limit, pg.Offset)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, pg.Limit)
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, *p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Stats mirrors ComputeStats in SQL.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	const q = `
SELECT
  COUNT(*),
  COALESCE(SUM(CASE WHEN (type = 'bulk' AND quantity > borrowed_count)
                      OR (type <> 'bulk' AND status = 'available') THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN status IN ('borrowed', ?)
                      OR (type = 'bulk' AND borrowed_count > 0) THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN status = 'requisitioned' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN status = 'maintenance' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN status = 'unavailable' THEN 1 ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN type = 'bulk' THEN quantity ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN type = 'bulk' THEN borrowed_count ELSE 0 END), 0),
  COALESCE(SUM(CASE WHEN type = 'bulk' AND quantity > borrowed_count THEN quantity - borrowed_count ELSE 0 END), 0)
FROM products`
	var st Stats
	err := s.db.QueryRowContext(ctx, q, legacyBorrowed).Scan(
		&st.Total, &st.Available, &st.Borrowed, &st.Requisitioned, &st.Maintenance, &st.Unavailable,
		&st.BulkUnitsTotal, &st.BulkUnitsBorrowed, &st.BulkUnitsAvailable,
	)
	return st, err
}

func (s *Store) ListTransactions(ctx context.Context, f TxFilter, pg Page) ([]Transaction, int64, error) {
	var conds []string
	var args []any
	if f.ProductID != "" {
		conds = append(conds, "product_id = ?")
		args = append(args, f.ProductID)
	}
	if f.Type != "" {
		conds = append(conds, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, f.UserID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `
SELECT id, type, product_id, product_name, user_id, user_name, room, phone, position, reason,
       quantity, signature_url, status, borrow_date, return_date
FROM transactions` + where + `
ORDER BY borrow_date DESC, id DESC
LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, pg.Limit, pg.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Transaction, 0, pg.Limit)
	for rows.Next() {
		var t Transaction
		var typ, status string
		var phone, position sql.NullString
		var returned sql.NullTime
		if err := rows.Scan(&t.ID, &typ, &t.ProductID, &t.ProductName, &t.UserID, &t.UserName, &t.Room,
			&phone, &position, &t.Reason, &t.Quantity, &t.SignatureURL, &status, &t.BorrowDate, &returned); err != nil {
			return nil, 0, err
		}
		t.Type, t.Status = TxType(typ), TxStatus(status)
		t.Phone, t.Position = phone.String, position.String
		if returned.Valid {
			rt := returned.Time
			t.ReturnDate = &rt
		}
		out = append(out, t)
	}
	return out, total, rows.Err()
}

// IsNotFound reports whether err is a missing-product error.
func IsNotFound(err error) bool {
	var e *apierr.Error
	return errors.As(err, &e) && e.Code == apierr.CodeNotFound
}
