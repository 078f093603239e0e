package repairs

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"itops-backend/internal/activity"
	"itops-backend/internal/inventory"
	"itops-backend/internal/notify"
	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/auth"
	"itops-backend/internal/platform/blob"
	"itops-backend/internal/platform/idgen"
)

const (
	maxImages    = 5
	defaultLimit = 50
	maxLimit     = 200
)

// Repository is implemented by *Store.
type Repository interface {
	Get(ctx context.Context, id string) (*Ticket, error)
	List(ctx context.Context, f Filter, p Page) ([]Ticket, int64, error)
	Create(ctx context.Context, t *Ticket, act activity.Entry, ob *Outbox) error
	Update(ctx context.Context, id string, now time.Time, mutate func(*Ticket) (activity.Entry, *Outbox, error)) (*Ticket, error)
	ConsumePart(ctx context.Context, cmd PartCommand) (*Ticket, error)
}

type Service struct {
	repo   Repository
	blobs  blob.Store
	images blob.Compressor
	clock  idgen.Clock
	ids    idgen.IDGen
}

func NewService(repo Repository, blobs blob.Store, images blob.Compressor) *Service {
	return &Service{
		repo:   repo,
		blobs:  blobs,
		images: images,
		clock:  idgen.SystemClock{},
		ids:    idgen.NewULID(),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Ticket, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, p Page) (ListResult, error) {
	if f.Status != "" && !f.Status.Valid() {
		return ListResult{}, apierr.Invalid("invalid repair status").WithDetail("%q", f.Status)
	}
	if f.Zone != "" && !f.Zone.Valid() {
		return ListResult{}, apierr.Invalid("invalid zone").WithDetail("%q", f.Zone)
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return ListResult{}, err
	}
	next := p.Offset + p.Limit
	if next >= int(total) {
		next = 0
	}
	return ListResult{Items: items, Total: total, NextOffset: next}, nil
}

// putImage compresses u and stores it under key.
func (s *Service) putImage(ctx context.Context, key string, u Upload) (string, error) {
	data, err := s.images.Compress(u.Body)
	if err != nil {
		return "", apierr.Invalid("unsupported image").WithDetail("%s: %v", u.Filename, err)
	}
	url, err := s.blobs.Put(ctx, key, blob.ContentTypeJPEG, data)
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return url, nil
}

func (s *Service) CreateTicket(ctx context.Context, actor auth.Actor, in CreateTicketInput) (*Ticket, error) {
	in.Phone, in.Room, in.Description = strings.TrimSpace(in.Phone), strings.TrimSpace(in.Room), strings.TrimSpace(in.Description)
	switch {
	case in.Phone == "":
		return nil, apierr.Invalid("phone is required")
	case in.Room == "":
		return nil, apierr.Invalid("room is required")
	case in.Description == "":
		return nil, apierr.Invalid("description is required")
	case !in.Zone.Valid():
		return nil, apierr.Invalid("invalid zone").WithDetail("%q", in.Zone)
	case len(in.Images) == 0:
		return nil, apierr.Invalid("at least one image is required")
	case len(in.Images) > maxImages:
		return nil, apierr.Invalid("at most 5 images are allowed").WithDetail("got %d", len(in.Images))
	}

	now := s.clock.Now()
	keys := make([]string, 0, len(in.Images))
	urls := make([]string, 0, len(in.Images))
	seen := map[string]bool{}
	for i, u := range in.Images {
		key := blob.RepairImageKey(now, u.Filename)
		if seen[key] {
			key = blob.RepairImageKey(now, fmt.Sprintf("%d_%s", i, u.Filename))
		}
		seen[key] = true
		url, err := s.putImage(ctx, key, u)
		if err != nil {
			blob.DeleteQuietly(ctx, s.blobs, keys...)
			return nil, err
		}
		keys = append(keys, key)
		urls = append(urls, url)
	}

	t := &Ticket{
		ID:             s.ids.NewULID(now),
		RequesterID:    actor.ID,
		RequesterName:  actor.Name,
		RequesterEmail: strings.TrimSpace(in.RequesterEmail),
		Position:       strings.TrimSpace(in.Position),
		Phone:          in.Phone,
		Room:           in.Room,
		Zone:           in.Zone,
		Description:    in.Description,
		AIDiagnosis:    strings.TrimSpace(in.AIDiagnosis),
		Images:         urls,
		Status:         StatusPending,
		PartsUsed:      []Part{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	act := activity.Entry{
		ID:          s.ids.NewULID(now),
		Action:      activity.ActionRepair,
		ProductName: t.Room,
		UserName:    actor.Name,
		Details:     t.Description,
		ImageURL:    urls[0],
		Zone:        string(t.Zone),
		Status:      string(StatusPending),
		Timestamp:   now,
	}
	ob := &Outbox{
		ID:   s.ids.NewULID(now),
		Kind: notify.KindRepairCreated,
		Payload: notify.RepairCreated{
			TicketID:    t.ID,
			Requester:   t.RequesterName,
			Room:        t.Room,
			Zone:        string(t.Zone),
			Description: t.Description,
			ImageURL:    urls[0],
		},
	}
	if err := s.repo.Create(ctx, t, act, ob); err != nil {
		blob.DeleteQuietly(ctx, s.blobs, keys...)
		return nil, apierr.FromDB(err, "ticket not found")
	}
	log.Printf("[INFO] repair ticket created id=%s room=%s zone=%s images=%d", t.ID, t.Room, t.Zone, len(urls))
	return t, nil
}

// checkUpdate validates an update against the ticket's current state.
func checkUpdate(t *Ticket, in UpdateTicketInput, hasNewImage bool) error {
	if in.Status == StatusCompleted && t.CompletionImage == "" && !hasNewImage {
		return apierr.Invalid("completion image is required to complete")
	}
	return CheckTransition(t.Status, in.Status)
}

func (s *Service) UpdateTicket(ctx context.Context, actor auth.Actor, id string, in UpdateTicketInput) (*Ticket, error) {
	if !in.Status.Valid() {
		return nil, apierr.Invalid("invalid repair status").WithDetail("%q", in.Status)
	}
	in.TechnicianNote = strings.TrimSpace(in.TechnicianNote)
	if in.Status == StatusCompleted && in.TechnicianNote == "" {
		return nil, apierr.Invalid("technician note is required to complete")
	}
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkUpdate(cur, in, in.CompletionImage != nil); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var key, url string
	if in.CompletionImage != nil {
		key = blob.RepairCompletionKey(now, in.CompletionImage.Filename)
		if url, err = s.putImage(ctx, key, *in.CompletionImage); err != nil {
			return nil, err
		}
	}

	t, err := s.repo.Update(ctx, id, now, func(t *Ticket) (activity.Entry, *Outbox, error) {
		if err := checkUpdate(t, in, url != ""); err != nil {
			return activity.Entry{}, nil, err
		}
		prev := t.Status
		t.Status = in.Status
		t.TechnicianID, t.TechnicianName = actor.ID, actor.Name
		if in.TechnicianNote != "" {
			t.TechnicianNote = in.TechnicianNote
		}
		if url != "" {
			t.CompletionImage = url
		}

		act := activity.Entry{
			ID:          s.ids.NewULID(now),
			Action:      activity.ActionRepairUpdate,
			ProductName: t.Room,
			UserName:    actor.Name,
			Details:     t.TechnicianNote,
			ImageURL:    url,
			Zone:        string(t.Zone),
			Status:      string(t.Status),
			Timestamp:   now,
		}
		var ob *Outbox
		if t.Status == StatusCompleted && prev != StatusCompleted {
			ob = &Outbox{
				ID:   s.ids.NewULID(now),
				Kind: notify.KindRepairCompleted,
				Payload: notify.RepairCompleted{
					TicketID:        t.ID,
					RequesterEmail:  t.RequesterEmail,
					Room:            t.Room,
					Problem:         t.Description,
					TechnicianNote:  t.TechnicianNote,
					CompletionImage: t.CompletionImage,
				},
			}
		}
		return act, ob, nil
	})
	if err != nil {
		blob.DeleteQuietly(ctx, s.blobs, key)
		return nil, apierr.FromDB(err, "ticket not found")
	}
	log.Printf("[INFO] repair ticket %s -> %s by=%s", id, t.Status, actor.ID)
	return t, nil
}

// ConsumePart draws spare parts from inventory for a ticket.
func (s *Service) ConsumePart(ctx context.Context, actor auth.Actor, ticketID string, in ConsumePartRequest) (*Ticket, error) {
	if strings.TrimSpace(in.ProductID) == "" {
		return nil, apierr.Invalid("invalid request").WithDetail("productId is required")
	}
	if in.Quantity <= 0 {
		return nil, apierr.Invalid("quantity must be > 0")
	}
	sig, err := blob.DecodeSignature(in.Signature)
	if err != nil {
		return nil, apierr.Invalid("signature is required").WithDetail("%v", err)
	}
	cur, err := s.repo.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if cur.Status == StatusCancelled {
		return nil, apierr.Conflict("ticket is cancelled")
	}

	now := s.clock.Now()
	key := blob.SignatureKey(blob.SignatureRequisition, now, actor.ID)
	url, err := s.blobs.Put(ctx, key, "image/png", sig)
	if err != nil {
		return nil, fmt.Errorf("upload signature: %w", err)
	}

	cmd := PartCommand{
		TicketID: ticketID,
		Op:       inventory.StockOp{Kind: inventory.OpConsume, Quantity: in.Quantity},
		Part: Part{
			ProductID:    strings.TrimSpace(in.ProductID),
			Quantity:     in.Quantity,
			UsedBy:       actor.Name,
			SignatureURL: url,
			Date:         now,
		},
		Activity: activity.Entry{
			ID:           s.ids.NewULID(now),
			Action:       activity.ActionRequisition,
			UserName:     actor.Name,
			Details:      fmt.Sprintf("repair %s x%d", ticketID, in.Quantity),
			SignatureURL: url,
			Timestamp:    now,
		},
		Now: now,
	}
	t, err := s.repo.ConsumePart(ctx, cmd)
	if err != nil {
		blob.DeleteQuietly(ctx, s.blobs, key)
		return nil, apierr.FromDB(err, "ticket not found")
	}
	log.Printf("[INFO] repair %s consumed product=%s qty=%d by=%s", ticketID, cmd.Part.ProductID, in.Quantity, actor.ID)
	return t, nil
}
