package repairs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"itops-backend/internal/activity"
	"itops-backend/internal/inventory"
	"itops-backend/internal/notify"
	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/db"
)

// Outbox is a notification written in the same transaction as the ticket.
type Outbox struct {
	ID      string
	Kind    notify.Kind
	Payload any
}

// PartCommand consumes stock for a ticket. Part.Name and the activity's
// product name are taken from the locked product row.
type PartCommand struct {
	TicketID string
	Op       inventory.StockOp
	Part     Part
	Activity activity.Entry
	Now      time.Time
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

const ticketCols = `id, requester_id, requester_name, requester_email, position, phone, room, zone,
  description, ai_diagnosis, images, status, technician_id, technician_name, technician_note,
  completion_image, created_at, updated_at`

type rowScanner interface{ Scan(dest ...any) error }

func scanTicket(r rowScanner) (*Ticket, error) {
	var t Ticket
	var zone, status string
	var images []byte
	var ai, techID, techName, note, completion sql.NullString
	err := r.Scan(&t.ID, &t.RequesterID, &t.RequesterName, &t.RequesterEmail, &t.Position, &t.Phone, &t.Room, &zone,
		&t.Description, &ai, &images, &status, &techID, &techName, &note,
		&completion, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Zone, t.Status = Zone(zone), Status(status)
	t.AIDiagnosis, t.TechnicianID, t.TechnicianName = ai.String, techID.String, techName.String
	t.TechnicianNote, t.CompletionImage = note.String, completion.String
	if len(images) > 0 {
		if err := json.Unmarshal(images, &t.Images); err != nil {
			return nil, fmt.Errorf("ticket %s images: %w", t.ID, err)
		}
	}
	if t.Images == nil {
		t.Images = []string{}
	}
	t.PartsUsed = []Part{}
	return &t, nil
}

func loadParts(ctx context.Context, q db.DBTX, tickets map[string]*Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]any, 0, len(tickets))
	for id := range tickets {
		ids = append(ids, id)
	}
	query := `
SELECT ticket_id, product_id, name, quantity, used_by, signature_url, used_at
FROM repair_parts_used
WHERE ticket_id IN (?` + strings.Repeat(",?", len(ids)-1) + `)
ORDER BY used_at, id`
	rows, err := q.QueryContext(ctx, query, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ticketID string
		var p Part
		var sig sql.NullString
		if err := rows.Scan(&ticketID, &p.ProductID, &p.Name, &p.Quantity, &p.UsedBy, &sig, &p.Date); err != nil {
			return err
		}
		p.SignatureURL = sig.String
		if t := tickets[ticketID]; t != nil {
			t.PartsUsed = append(t.PartsUsed, p)
		}
	}
	return rows.Err()
}

func getTicket(ctx context.Context, q db.DBTX, id string, forUpdate bool) (*Ticket, error) {
	query := `SELECT ` + ticketCols + ` FROM repair_tickets WHERE id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	t, err := scanTicket(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, apierr.FromDB(err, "ticket not found")
	}
	if err := loadParts(ctx, q, map[string]*Ticket{t.ID: t}); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Ticket, error) {
	return getTicket(ctx, s.db, id, false)
}

func (s *Store) List(ctx context.Context, f Filter, pg Page) ([]Ticket, int64, error) {
	var conds []string
	var args []any
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Zone != "" {
		conds = append(conds, "zone = ?")
		args = append(args, string(f.Zone))
	}
	if f.TechnicianID != "" {
		conds = append(conds, "technician_id = ?")
		args = append(args, f.TechnicianID)
	}
	if f.RequesterID != "" {
		conds = append(conds, "requester_id = ?")
		args = append(args, f.RequesterID)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM repair_tickets`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	q := `SELECT ` + ticketCols + ` FROM repair_tickets` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, q, append(args, pg.Limit, pg.Offset)...)
	if err != nil {
		return nil, 0, err
	}
	var out []*Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			rows.Close()
			return nil, 0, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, 0, err
	}
	rows.Close()

	byID := make(map[string]*Ticket, len(out))
	for _, t := range out {
		byID[t.ID] = t
	}
	if err := loadParts(ctx, s.db, byID); err != nil {
		return nil, 0, err
	}
	items := make([]Ticket, 0, len(out))
	for _, t := range out {
		items = append(items, *t)
	}
	return items, total, nil
}

func enqueue(ctx context.Context, tx db.DBTX, ob *Outbox, now time.Time) error {
	if ob == nil {
		return nil
	}
	return notify.EnqueueTx(ctx, tx, ob.ID, now, ob.Kind, ob.Payload)
}

// Create writes the ticket, its activity entry and the technician
// notification together.
func (s *Store) Create(ctx context.Context, t *Ticket, act activity.Entry, ob *Outbox) error {
	images, err := json.Marshal(t.Images)
	if err != nil {
		return err
	}
	return db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		const q = `
INSERT INTO repair_tickets
  (id, requester_id, requester_name, requester_email, position, phone, room, zone, description,
   ai_diagnosis, images, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, q,
			t.ID, t.RequesterID, t.RequesterName, t.RequesterEmail, t.Position, t.Phone, t.Room, string(t.Zone),
			t.Description, db.NullString(t.AIDiagnosis), images, string(t.Status), t.CreatedAt, t.UpdatedAt,
		); err != nil {
			return err
		}
		if err := activity.InsertTx(ctx, tx, act); err != nil {
			return err
		}
		return enqueue(ctx, tx, ob, t.CreatedAt)
	})
}

// Update locks the ticket and hands it to mutate, which re-validates against
// the fresh row and returns the activity entry and optional notification.
func (s *Store) Update(ctx context.Context, id string, now time.Time, mutate func(*Ticket) (activity.Entry, *Outbox, error)) (*Ticket, error) {
	var out *Ticket
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		t, err := getTicket(ctx, tx, id, true)
		if err != nil {
			return err
		}
		act, ob, err := mutate(t)
		if err != nil {
			return err
		}
		t.UpdatedAt = now
		const q = `
UPDATE repair_tickets
SET status = ?, technician_id = ?, technician_name = ?, technician_note = ?, completion_image = ?, updated_at = ?
WHERE id = ?`
		if _, err := tx.ExecContext(ctx, q,
			string(t.Status), db.NullString(t.TechnicianID), db.NullString(t.TechnicianName),
			db.NullString(t.TechnicianNote), db.NullString(t.CompletionImage), now, t.ID,
		); err != nil {
			return err
		}
		if err := activity.InsertTx(ctx, tx, act); err != nil {
			return err
		}
		if err := enqueue(ctx, tx, ob, now); err != nil {
			return err
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ConsumePart takes stock through the inventory rules and records the part
// on the ticket in one transaction.
func (s *Store) ConsumePart(ctx context.Context, cmd PartCommand) (*Ticket, error) {
	var out *Ticket
	err := db.RunInTx(ctx, s.db, nil, func(ctx context.Context, tx db.DBTX) error {
		t, err := getTicket(ctx, tx, cmd.TicketID, true)
		if err != nil {
			return err
		}
		if t.Status == StatusCancelled {
			return apierr.Conflict("ticket is cancelled")
		}
		p, err := inventory.ApplyStockTx(ctx, tx, cmd.Part.ProductID, cmd.Op, cmd.Now)
		if err != nil {
			return err
		}

		part := cmd.Part
		part.Name = p.Name
		const ins = `
INSERT INTO repair_parts_used (ticket_id, product_id, name, quantity, used_by, signature_url, used_at)
VALUES (?, ?, ?, ?, ?, ?, ?)`
		if _, err := tx.ExecContext(ctx, ins,
			t.ID, part.ProductID, part.Name, part.Quantity, part.UsedBy, db.NullString(part.SignatureURL), part.Date,
		); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE repair_tickets SET updated_at = ? WHERE id = ?`, cmd.Now, t.ID); err != nil {
			return err
		}

		act := cmd.Activity
		act.ProductName = p.Name
		act.Zone = string(t.Zone)
		if err := activity.InsertTx(ctx, tx, act); err != nil {
			return err
		}

		t.PartsUsed = append(t.PartsUsed, part)
		t.UpdatedAt = cmd.Now
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
