package inventory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"itops-backend/internal/activity"
	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/auth"
	"itops-backend/internal/platform/blob"
	"itops-backend/internal/platform/db"
	"itops-backend/internal/platform/idgen"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Repository is the persistence the service needs. *Store implements it.
type Repository interface {
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, f ProductFilter, p Page) ([]Product, int64, error)
	Create(ctx context.Context, p *Product, act activity.Entry) error
	Update(ctx context.Context, id string, version int64, now time.Time, mutate func(*Product) (activity.Entry, error)) (*Product, error)
	ExecStock(ctx context.Context, cmd StockCommand) (*Product, error)
	Stats(ctx context.Context) (Stats, error)
	ListTransactions(ctx context.Context, f TxFilter, p Page) ([]Transaction, int64, error)
}

// CategoryChecker rejects unknown or disabled category codes.
type CategoryChecker interface {
	CheckUsable(ctx context.Context, code string) error
}

type Service struct {
	repo       Repository
	blobs      blob.Store
	categories CategoryChecker
	clock      idgen.Clock
	ids        idgen.IDGen
}

func NewService(repo Repository, blobs blob.Store, categories CategoryChecker) *Service {
	return &Service{
		repo:       repo,
		blobs:      blobs,
		categories: categories,
		clock:      idgen.SystemClock{},
		ids:        idgen.NewULID(),
	}
}

func clampPage(p Page) Page {
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

func nextOffset(p Page, total int64) int {
	next := p.Offset + p.Limit
	if next >= int(total) {
		return 0
	}
	return next
}

// ===== reads =====

func (s *Service) Get(ctx context.Context, id string) (ProductResponse, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return ProductResponse{}, err
	}
	return toResponse(p), nil
}

func (s *Service) List(ctx context.Context, f ProductFilter, p Page) (ListProductsResult, error) {
	if f.Status != "" {
		st, ok := NormalizeStatus(string(f.Status))
		if !ok {
			return ListProductsResult{}, apierr.Invalid("invalid product status").WithDetail("%q", f.Status)
		}
		f.Status = st
	}
	if f.Type != "" && f.Type != TypeUnique && f.Type != TypeBulk {
		return ListProductsResult{}, apierr.Invalid("invalid product type").WithDetail("%q", f.Type)
	}
	p = clampPage(p)
	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return ListProductsResult{}, err
	}
	out := make([]ProductResponse, 0, len(items))
	for i := range items {
		out = append(out, toResponse(&items[i]))
	}
	return ListProductsResult{Items: out, Total: total, NextOffset: nextOffset(p, total)}, nil
}

func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.repo.Stats(ctx)
}

func (s *Service) ListTransactions(ctx context.Context, f TxFilter, p Page) (ListTransactionsResult, error) {
	if f.Type != "" && f.Type != TxBorrow && f.Type != TxRequisition {
		return ListTransactionsResult{}, apierr.Invalid("invalid request").WithDetail("unknown transaction type %q", f.Type)
	}
	p = clampPage(p)
	items, total, err := s.repo.ListTransactions(ctx, f, p)
	if err != nil {
		return ListTransactionsResult{}, err
	}
	return ListTransactionsResult{Items: items, Total: total, NextOffset: nextOffset(p, total)}, nil
}

// ===== stock movements =====

func validateBorrower(name string, in BorrowRequest) error {
	switch {
	case strings.TrimSpace(name) == "":
		return apierr.Invalid("name is required")
	case strings.TrimSpace(in.Room) == "":
		return apierr.Invalid("room is required")
	case strings.TrimSpace(in.Phone) == "":
		return apierr.Invalid("phone is required")
	case strings.TrimSpace(in.Reason) == "":
		return apierr.Invalid("reason is required")
	}
	return nil
}

func decodeSignature(sig string) ([]byte, error) {
	data, err := blob.DecodeSignature(sig)
	if err == nil {
		return data, nil
	}
	if errors.Is(err, blob.ErrEmptySignature) {
		return nil, apierr.Invalid("signature is required")
	}
	return nil, apierr.Invalid("signature is required").WithDetail("%v", err)
}

// precheck runs op against a copy of the current row so obviously doomed
// requests fail before anything is uploaded. The store re-checks under lock.
func (s *Service) precheck(ctx context.Context, productID string, op StockOp) (*Product, error) {
	p, err := s.repo.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	probe := *p
	if err := op.Apply(&probe); err != nil {
		return nil, err
	}
	return p, nil
}

// signedMove is the shared path for borrow and requisition: validate, upload
// the signature, then write stock, transaction and activity together.
func (s *Service) signedMove(ctx context.Context, actor auth.Actor, productID string, in BorrowRequest, op StockOp) (MovementResponse, error) {
	name := strings.TrimSpace(in.UserName)
	if name == "" {
		name = actor.Name
	}
	if err := validateBorrower(name, in); err != nil {
		return MovementResponse{}, err
	}
	sig, err := decodeSignature(in.Signature)
	if err != nil {
		return MovementResponse{}, err
	}
	if _, err := s.precheck(ctx, productID, op); err != nil {
		return MovementResponse{}, err
	}

	now := s.clock.Now()
	kind, txType, txStatus, action := blob.SignatureBorrow, TxBorrow, TxActive, activity.ActionBorrow
	if op.Kind == OpRequisition {
		kind, txType, txStatus, action = blob.SignatureRequisition, TxRequisition, TxCompleted, activity.ActionRequisition
	}
	key := blob.SignatureKey(kind, now, actor.ID)
	url, err := s.blobs.Put(ctx, key, "image/png", sig)
	if err != nil {
		return MovementResponse{}, fmt.Errorf("upload signature: %w", err)
	}

	qty := 1
	if op.Kind == OpRequisition {
		qty = op.Quantity
	}
	t := &Transaction{
		ID:           s.ids.NewULID(now),
		Type:         txType,
		ProductID:    productID,
		UserID:       actor.ID,
		UserName:     name,
		Room:         strings.TrimSpace(in.Room),
		Phone:        strings.TrimSpace(in.Phone),
		Position:     strings.TrimSpace(in.Position),
		Reason:       strings.TrimSpace(in.Reason),
		Quantity:     qty,
		SignatureURL: url,
		Status:       txStatus,
		BorrowDate:   now,
	}
	act := activity.Entry{
		ID:           s.ids.NewULID(now),
		Action:       action,
		UserName:     name,
		Details:      fmt.Sprintf("%s x%d room %s: %s", op.Kind, qty, t.Room, t.Reason),
		SignatureURL: url,
		Timestamp:    now,
	}

	p, err := s.repo.ExecStock(ctx, StockCommand{ProductID: productID, Op: op, Now: now, Transaction: t, Activity: act})
	if err != nil {
		blob.DeleteQuietly(ctx, s.blobs, key)
		return MovementResponse{}, err
	}
	log.Printf("[INFO] %s product=%s qty=%d user=%s tx=%s", op.Kind, productID, qty, actor.ID, t.ID)
	return MovementResponse{Product: toResponse(p), Transaction: t}, nil
}

func (s *Service) Borrow(ctx context.Context, actor auth.Actor, productID string, in BorrowRequest) (MovementResponse, error) {
	return s.signedMove(ctx, actor, productID, in, StockOp{Kind: OpBorrow, Quantity: 1})
}

func (s *Service) Requisition(ctx context.Context, actor auth.Actor, productID string, in RequisitionRequest) (MovementResponse, error) {
	n := 1
	if in.Quantity != nil {
		n = *in.Quantity
	}
	return s.signedMove(ctx, actor, productID, in.BorrowRequest, StockOp{Kind: OpRequisition, Quantity: n})
}

// Return puts a borrowed unique item back. The borrow transaction is left as is.
func (s *Service) Return(ctx context.Context, actor auth.Actor, productID string) (MovementResponse, error) {
	op := StockOp{Kind: OpReturn}
	if _, err := s.precheck(ctx, productID, op); err != nil {
		return MovementResponse{}, err
	}
	now := s.clock.Now()
	act := activity.Entry{
		ID:        s.ids.NewULID(now),
		Action:    activity.ActionReturn,
		UserName:  actor.Name,
		Details:   "returned",
		Timestamp: now,
	}
	p, err := s.repo.ExecStock(ctx, StockCommand{ProductID: productID, Op: op, Now: now, Activity: act})
	if err != nil {
		return MovementResponse{}, err
	}
	log.Printf("[INFO] return product=%s user=%s", productID, actor.ID)
	return MovementResponse{Product: toResponse(p)}, nil
}

func (s *Service) Restock(ctx context.Context, actor auth.Actor, productID string, in RestockRequest) (MovementResponse, error) {
	op := StockOp{Kind: OpRestock, Quantity: in.Quantity}
	if _, err := s.precheck(ctx, productID, op); err != nil {
		return MovementResponse{}, err
	}
	now := s.clock.Now()
	act := activity.Entry{
		ID:        s.ids.NewULID(now),
		Action:    activity.ActionUpdate,
		UserName:  actor.Name,
		Details:   fmt.Sprintf("restock +%d", in.Quantity),
		Timestamp: now,
	}
	p, err := s.repo.ExecStock(ctx, StockCommand{ProductID: productID, Op: op, Now: now, Activity: act})
	if err != nil {
		return MovementResponse{}, err
	}
	log.Printf("[INFO] restock product=%s qty=%d user=%s", productID, in.Quantity, actor.ID)
	return MovementResponse{Product: toResponse(p)}, nil
}

// ===== product admin =====

func (s *Service) checkCategory(ctx context.Context, code string) error {
	if code == "" || s.categories == nil {
		return nil
	}
	return s.categories.CheckUsable(ctx, code)
}

func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateProductRequest) (ProductResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return ProductResponse{}, apierr.Invalid("name is required")
	}
	typ := in.Type
	if typ == "" {
		typ = TypeUnique
	}
	if typ != TypeUnique && typ != TypeBulk {
		return ProductResponse{}, apierr.Invalid("invalid product type").WithDetail("%q", in.Type)
	}
	status := StatusAvailable
	if in.Status != "" {
		st, ok := NormalizeStatus(in.Status)
		if !ok {
			return ProductResponse{}, apierr.Invalid("invalid product status").WithDetail("%q", in.Status)
		}
		status = st
	}
	qty := 0
	if typ == TypeBulk {
		if in.Quantity < 0 {
			return ProductResponse{}, apierr.Invalid("invalid request").WithDetail("quantity must be >= 0")
		}
		qty = in.Quantity
	}
	category := strings.TrimSpace(in.Category)
	if err := s.checkCategory(ctx, category); err != nil {
		return ProductResponse{}, err
	}

	now := s.clock.Now()
	p := &Product{
		ID:           s.ids.NewULID(now),
		Name:         name,
		Brand:        strings.TrimSpace(in.Brand),
		Model:        strings.TrimSpace(in.Model),
		Location:     strings.TrimSpace(in.Location),
		ImageURL:     strings.TrimSpace(in.ImageURL),
		StockID:      strings.TrimSpace(in.StockID),
		Status:       status,
		Type:         typ,
		Quantity:     qty,
		Category:     category,
		SerialNumber: strings.TrimSpace(in.SerialNumber),
		Description:  strings.TrimSpace(in.Description),
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	act := activity.Entry{
		ID:        s.ids.NewULID(now),
		Action:    activity.ActionAdd,
		UserName:  actor.Name,
		Details:   fmt.Sprintf("type %s qty %d", typ, qty),
		ImageURL:  p.ImageURL,
		Timestamp: now,
	}
	if err := s.repo.Create(ctx, p, act); err != nil {
		if db.IsDuplicateKey(err) {
			return ProductResponse{}, apierr.Conflict("stock id already exists").WithDetail("%s", p.StockID)
		}
		return ProductResponse{}, apierr.FromDB(err, "product not found")
	}
	log.Printf("[INFO] product created id=%s stock_id=%s by=%s", p.ID, p.StockID, actor.ID)
	return toResponse(p), nil
}

func (s *Service) Update(ctx context.Context, actor auth.Actor, id string, in UpdateProductRequest) (ProductResponse, error) {
	var status Status
	if in.Status != nil {
		st, ok := NormalizeStatus(*in.Status)
		if !ok {
			return ProductResponse{}, apierr.Invalid("invalid product status").WithDetail("%q", *in.Status)
		}
		status = st
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return ProductResponse{}, apierr.Invalid("name is required")
	}
	if in.Category != nil {
		if err := s.checkCategory(ctx, strings.TrimSpace(*in.Category)); err != nil {
			return ProductResponse{}, err
		}
	}

	var changed []string
	var newStatus Status
	mutate := func(p *Product) error {
		setStr := func(field string, dst *string, v *string) {
			if v == nil {
				return
			}
			if nv := strings.TrimSpace(*v); nv != *dst {
				*dst = nv
				changed = append(changed, field)
			}
		}
		setStr("name", &p.Name, in.Name)
		setStr("brand", &p.Brand, in.Brand)
		setStr("model", &p.Model, in.Model)
		setStr("location", &p.Location, in.Location)
		setStr("imageUrl", &p.ImageURL, in.ImageURL)
		setStr("category", &p.Category, in.Category)
		setStr("serialNumber", &p.SerialNumber, in.SerialNumber)
		setStr("description", &p.Description, in.Description)
		before := p.Status
		if in.Quantity != nil {
			q := p.Quantity
			if err := (StockOp{Kind: OpSetQuantity, Quantity: *in.Quantity}).Apply(p); err != nil {
				return err
			}
			if p.Quantity != q {
				changed = append(changed, "quantity")
			}
		}
		if in.Status != nil {
			p.Status = status
		}
		if p.Status != before {
			changed = append(changed, "status")
			newStatus = p.Status
		}
		return nil
	}

	now := s.clock.Now()
	act := activity.Entry{
		ID:        s.ids.NewULID(now),
		Action:    activity.ActionUpdate,
		UserName:  actor.Name,
		Timestamp: now,
	}
	if in.Status != nil {
		act.Status = string(status)
	}
	p, err := s.repo.Update(ctx, id, in.Version, now, func(p *Product) (activity.Entry, error) {
		if err := mutate(p); err != nil {
			return activity.Entry{}, err
		}
		act.Details = "updated " + strings.Join(changed, ", ")
		if newStatus != "" {
			act.Status = string(newStatus)
		}
		return act, nil
	})
	if err != nil {
		return ProductResponse{}, apierr.FromDB(err, "product not found")
	}
	log.Printf("[INFO] product updated id=%s fields=%v by=%s", id, changed, actor.ID)
	return toResponse(p), nil
}
