package inventory

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"itops-backend/internal/activity"
	"itops-backend/internal/platform/apierr"
	"itops-backend/internal/platform/auth"
	"itops-backend/internal/platform/blob"
	"itops-backend/internal/platform/idgen"
)

type fakeRepo struct {
	mu       sync.Mutex
	products map[string]*Product
	txs      []Transaction
	acts     []activity.Entry
	execErr  error
}

func newFakeRepo(ps ...Product) *fakeRepo {
	r := &fakeRepo{products: map[string]*Product{}}
	for i := range ps {
		p := ps[i]
		if p.Version == 0 {
			p.Version = 1
		}
		r.products[p.ID] = &p
	}
	return r
}

func (r *fakeRepo) Get(_ context.Context, id string) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, apierr.NotFound("product not found")
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) List(_ context.Context, f ProductFilter, _ Page) ([]Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Product
	for _, p := range r.products {
		if f.Status == "" || p.Status == f.Status {
			out = append(out, *p)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeRepo) Create(_ context.Context, p *Product, act activity.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.StockID == "" {
		p.StockID = "GEN-" + p.CreatedAt.Format("20060102") + "-00001"
	}
	cp := *p
	r.products[p.ID] = &cp
	act.ProductName = p.Name
	r.acts = append(r.acts, act)
	return nil
}

func (r *fakeRepo) Update(_ context.Context, id string, version int64, now time.Time, mutate func(*Product) (activity.Entry, error)) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, apierr.NotFound("product not found")
	}
	if p.Version != version {
		return nil, apierr.Conflict("concurrent update, retry")
	}
	cp := *p
	act, err := mutate(&cp)
	if err != nil {
		return nil, err
	}
	cp.Version++
	cp.UpdatedAt = now
	r.products[id] = &cp
	act.ProductName = cp.Name
	r.acts = append(r.acts, act)
	out := cp
	return &out, nil
}

func (r *fakeRepo) ExecStock(_ context.Context, cmd StockCommand) (*Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.execErr != nil {
		return nil, r.execErr
	}
	p, ok := r.products[cmd.ProductID]
	if !ok {
		return nil, apierr.NotFound("product not found")
	}
	cp := *p
	if err := cmd.Op.Apply(&cp); err != nil {
		return nil, err
	}
	cp.Version++
	cp.UpdatedAt = cmd.Now
	r.products[cp.ID] = &cp
	if cmd.Transaction != nil {
		cmd.Transaction.ProductName = cp.Name
		r.txs = append(r.txs, *cmd.Transaction)
	}
	cmd.Activity.ProductName = cp.Name
	r.acts = append(r.acts, cmd.Activity)
	out := cp
	return &out, nil
}

func (r *fakeRepo) Stats(context.Context) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ps []Product
	for _, p := range r.products {
		ps = append(ps, *p)
	}
	return ComputeStats(ps), nil
}

func (r *fakeRepo) ListTransactions(context.Context, TxFilter, Page) ([]Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transaction(nil), r.txs...), int64(len(r.txs)), nil
}

type fakeCategories map[string]error

func (f fakeCategories) CheckUsable(_ context.Context, code string) error { return f[code] }

var (
	t0     = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	actor  = auth.Actor{ID: "u1", Name: "Somsri", Role: auth.RoleStaff}
	pngSig = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("\x89PNG\r\n\x1a\nsignature"))
)

func newTestService(repo *fakeRepo) (*Service, *blob.MemoryStore) {
	blobs := blob.NewMemory("https://cdn.test")
	svc := NewService(repo, blobs, fakeCategories{"OLD": apierr.Invalid("category is disabled")})
	svc.clock = &idgen.FixedClock{T: t0}
	return svc, blobs
}

func borrowReq() BorrowRequest {
	return BorrowRequest{Room: "M.4/2", Phone: "0812345678", Reason: "class presentation", Signature: pngSig}
}

func TestBorrowUnique(t *testing.T) {
	repo := newFakeRepo(Product{ID: "p1", Name: "Projector", Type: TypeUnique, Status: StatusAvailable})
	svc, blobs := newTestService(repo)

	res, err := svc.Borrow(context.Background(), actor, "p1", borrowReq())
	if err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if res.Product.Status != StatusBorrowed || res.Product.Available != 0 {
		t.Errorf("product = %+v", res.Product)
	}
	key := blob.SignatureKey(blob.SignatureBorrow, t0, "u1")
	if _, ok := blobs.Get(key); !ok {
		t.Errorf("signature %s not stored", key)
	}
	if len(repo.txs) != 1 {
		t.Fatalf("transactions = %d", len(repo.txs))
	}
	tx := repo.txs[0]
	if tx.Type != TxBorrow || tx.Status != TxActive || tx.UserName != "Somsri" || tx.ProductName != "Projector" {
		t.Errorf("transaction = %+v", tx)
	}
	if tx.SignatureURL != "https://cdn.test/"+key {
		t.Errorf("signature url = %s", tx.SignatureURL)
	}
	if len(repo.acts) != 1 || repo.acts[0].Action != activity.ActionBorrow || repo.acts[0].SignatureURL != tx.SignatureURL {
		t.Errorf("activities = %+v", repo.acts)
	}
}

func TestBorrowValidation(t *testing.T) {
	tests := []struct {
		name string
		edit func(*BorrowRequest)
		msg  string
	}{
		{"no signature", func(r *BorrowRequest) { r.Signature = "" }, "signature is required"},
		{"not png", func(r *BorrowRequest) { r.Signature = base64.StdEncoding.EncodeToString([]byte("GIF89a")) }, "signature is required"},
		{"no room", func(r *BorrowRequest) { r.Room = " " }, "room is required"},
		{"no phone", func(r *BorrowRequest) { r.Phone = "" }, "phone is required"},
		{"no reason", func(r *BorrowRequest) { r.Reason = "" }, "reason is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo(Product{ID: "p1", Name: "Projector", Status: StatusAvailable, Type: TypeUnique})
			svc, blobs := newTestService(repo)
			in := borrowReq()
			tt.edit(&in)
			_, err := svc.Borrow(context.Background(), actor, "p1", in)
			var e *apierr.Error
			if !errors.As(err, &e) || e.Code != apierr.CodeInvalidArgument || e.Message != tt.msg {
				t.Fatalf("err = %v, want %s", err, tt.msg)
			}
			if len(blobs.Keys("")) != 0 || len(repo.acts) != 0 || len(repo.txs) != 0 {
				t.Error("rejected request left side effects")
			}
		})
	}
}

func TestBorrowUnavailableUploadsNothing(t *testing.T) {
	repo := newFakeRepo(Product{ID: "p1", Name: "Camera", Type: TypeUnique, Status: StatusMaintenance})
	svc, blobs := newTestService(repo)
	_, err := svc.Borrow(context.Background(), actor, "p1", borrowReq())
	if !apierr.Is(err, apierr.CodeConflict) {
		t.Fatalf("err = %v", err)
	}
	if len(blobs.Keys("signatures/")) != 0 {
		t.Error("signature uploaded for a doomed request")
	}
}

func TestBorrowCleansUpSignatureOnWriteFailure(t *testing.T) {
	repo := newFakeRepo(Product{ID: "p1", Name: "Camera", Type: TypeUnique, Status: StatusAvailable})
	repo.execErr = errors.New("deadlock")
	svc, blobs := newTestService(repo)
	if _, err := svc.Borrow(context.Background(), actor, "p1", borrowReq()); err == nil {
		t.Fatal("expected error")
	}
	if keys := blobs.Keys("signatures/"); len(keys) != 0 {
		t.Errorf("orphan signatures: %v", keys)
	}
}

func TestConcurrentBulkBorrowNeverOversells(t *testing.T) {
	repo := newFakeRepo(Product{ID: "cable", Name: "HDMI cable", Type: TypeBulk, Status: StatusAvailable, Quantity: 3})
	svc, _ := newTestService(repo)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, conflicts := 0, 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Borrow(context.Background(), actor, "cable", borrowReq())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apierr.Is(err, apierr.CodeConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if ok != 3 || conflicts != 7 {
		t.Errorf("ok=%d conflicts=%d, want 3/7", ok, conflicts)
	}
	p := repo.products["cable"]
	if p.BorrowedCount != 3 || p.Available() != 0 {
		t.Errorf("product = %+v", p)
	}
}

func TestRequisitionBulkToZero(t *testing.T) {
	repo := newFakeRepo(Product{ID: "ink", Name: "Toner", Type: TypeBulk, Status: StatusAvailable, Quantity: 2})
	svc, blobs := newTestService(repo)
	two := 2
	res, err := svc.Requisition(context.Background(), actor, "ink", RequisitionRequest{BorrowRequest: borrowReq(), Quantity: &two})
	if err != nil {
		t.Fatalf("requisition: %v", err)
	}
	if res.Product.Status != StatusRequisitioned || *res.Product.Quantity != 0 {
		t.Errorf("product = %+v", res.Product)
	}
	if res.Transaction.Type != TxRequisition || res.Transaction.Status != TxCompleted || res.Transaction.Quantity != 2 {
		t.Errorf("transaction = %+v", res.Transaction)
	}
	if _, ok := blobs.Get(blob.SignatureKey(blob.SignatureRequisition, t0, "u1")); !ok {
		t.Error("requisition signature missing")
	}
	if repo.acts[0].Action != activity.ActionRequisition {
		t.Errorf("action = %s", repo.acts[0].Action)
	}
}

func TestRequisitionQuantity(t *testing.T) {
	repo := newFakeRepo(Product{ID: "ink", Name: "Toner", Type: TypeBulk, Status: StatusAvailable, Quantity: 3})
	svc, blobs := newTestService(repo)
	ctx := context.Background()

	zero := 0
	_, err := svc.Requisition(ctx, actor, "ink", RequisitionRequest{BorrowRequest: borrowReq(), Quantity: &zero})
	if !apierr.Is(err, apierr.CodeInvalidArgument) {
		t.Errorf("explicit zero err = %v", err)
	}
	if len(blobs.Keys("signatures/")) != 0 || len(repo.txs) != 0 {
		t.Error("rejected requisition left a signature or transaction")
	}

	res, err := svc.Requisition(ctx, actor, "ink", RequisitionRequest{BorrowRequest: borrowReq()})
	if err != nil {
		t.Fatalf("omitted quantity: %v", err)
	}
	if *res.Product.Quantity != 2 || res.Transaction.Quantity != 1 {
		t.Errorf("omitted quantity should default to 1: %+v %+v", res.Product, res.Transaction)
	}
}

func TestSetQuantityFollowsStockThresholds(t *testing.T) {
	repo := newFakeRepo(Product{ID: "ink", Name: "Toner", Type: TypeBulk, Status: StatusAvailable, Quantity: 2})
	svc, _ := newTestService(repo)
	ctx := context.Background()

	two := 2
	if _, err := svc.Requisition(ctx, actor, "ink", RequisitionRequest{BorrowRequest: borrowReq(), Quantity: &two}); err != nil {
		t.Fatal(err)
	}

	five := 5
	res, err := svc.Update(ctx, actor, "ink", UpdateProductRequest{Version: repo.products["ink"].Version, Quantity: &five})
	if err != nil {
		t.Fatalf("set 5: %v", err)
	}
	if res.Status != StatusAvailable || *res.Quantity != 5 {
		t.Errorf("after set 5: status=%s quantity=%d", res.Status, *res.Quantity)
	}
	last := repo.acts[len(repo.acts)-1]
	if last.Status != string(StatusAvailable) || !strings.Contains(last.Details, "status") {
		t.Errorf("activity = %+v", last)
	}

	zero := 0
	res, err = svc.Update(ctx, actor, "ink", UpdateProductRequest{Version: repo.products["ink"].Version, Quantity: &zero})
	if err != nil {
		t.Fatalf("set 0: %v", err)
	}
	if res.Status != StatusRequisitioned || *res.Quantity != 0 {
		t.Errorf("after set 0: status=%s quantity=%d", res.Status, *res.Quantity)
	}

	// an explicit status in the same request wins
	maint := string(StatusMaintenance)
	res, err = svc.Update(ctx, actor, "ink", UpdateProductRequest{Version: repo.products["ink"].Version, Quantity: &five, Status: &maint})
	if err != nil {
		t.Fatalf("set 5 + maintenance: %v", err)
	}
	if res.Status != StatusMaintenance || *res.Quantity != 5 {
		t.Errorf("after set 5 + maintenance: status=%s quantity=%d", res.Status, *res.Quantity)
	}
}

func TestReturn(t *testing.T) {
	repo := newFakeRepo(
		Product{ID: "p1", Name: "Laptop", Type: TypeUnique, Status: StatusBorrowed},
		Product{ID: "b1", Name: "Mouse", Type: TypeBulk, Status: StatusAvailable, Quantity: 5, BorrowedCount: 1},
	)
	svc, _ := newTestService(repo)

	res, err := svc.Return(context.Background(), actor, "p1")
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if res.Product.Status != StatusAvailable || res.Transaction != nil {
		t.Errorf("result = %+v", res)
	}
	if len(repo.acts) != 1 || repo.acts[0].Action != activity.ActionReturn {
		t.Errorf("activities = %+v", repo.acts)
	}

	if _, err := svc.Return(context.Background(), actor, "b1"); !apierr.Is(err, apierr.CodeUnprocessable) {
		t.Errorf("bulk return err = %v", err)
	}
}

func TestRestockReopensRequisitioned(t *testing.T) {
	repo := newFakeRepo(Product{ID: "ink", Name: "Toner", Type: TypeBulk, Status: StatusRequisitioned})
	svc, _ := newTestService(repo)
	res, err := svc.Restock(context.Background(), actor, "ink", RestockRequest{Quantity: 4})
	if err != nil {
		t.Fatalf("restock: %v", err)
	}
	if res.Product.Status != StatusAvailable || res.Product.Available != 4 {
		t.Errorf("product = %+v", res.Product)
	}
	if repo.acts[0].Action != activity.ActionUpdate {
		t.Errorf("action = %s", repo.acts[0].Action)
	}
}

func TestCreateProduct(t *testing.T) {
	repo := newFakeRepo()
	svc, _ := newTestService(repo)

	res, err := svc.Create(context.Background(), actor, CreateProductRequest{Name: "Switch", Type: TypeBulk, Quantity: 4})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.StockID != "GEN-20250301-00001" || res.Version != 1 || *res.Quantity != 4 || res.Available != 4 {
		t.Errorf("product = %+v", res)
	}
	if repo.acts[0].Action != activity.ActionAdd || repo.acts[0].ProductName != "Switch" {
		t.Errorf("activity = %+v", repo.acts[0])
	}

	res, err = svc.Create(context.Background(), actor, CreateProductRequest{Name: "Old laptop", Status: "ไม่ว่าง"})
	if err != nil {
		t.Fatalf("create legacy status: %v", err)
	}
	if res.Status != StatusBorrowed || res.Quantity != nil {
		t.Errorf("legacy status stored as %s", res.Status)
	}

	if _, err := svc.Create(context.Background(), actor, CreateProductRequest{Name: "X", Type: "pallet"}); !apierr.Is(err, apierr.CodeInvalidArgument) {
		t.Errorf("bad type err = %v", err)
	}
	if _, err := svc.Create(context.Background(), actor, CreateProductRequest{Name: "X", Category: "OLD"}); !apierr.Is(err, apierr.CodeInvalidArgument) {
		t.Errorf("disabled category err = %v", err)
	}
}

func TestUpdateProduct(t *testing.T) {
	repo := newFakeRepo(Product{ID: "b1", Name: "Mouse", Type: TypeBulk, Status: StatusAvailable, Quantity: 5, BorrowedCount: 2})
	svc, _ := newTestService(repo)
	ctx := context.Background()

	name := "Wireless mouse"
	res, err := svc.Update(ctx, actor, "b1", UpdateProductRequest{Version: 1, Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if res.Name != name || res.Version != 2 {
		t.Errorf("product = %+v", res)
	}
	if !strings.Contains(repo.acts[0].Details, "name") {
		t.Errorf("details = %q", repo.acts[0].Details)
	}

	if _, err := svc.Update(ctx, actor, "b1", UpdateProductRequest{Version: 1, Name: &name}); !apierr.Is(err, apierr.CodeConflict) {
		t.Errorf("stale version err = %v", err)
	}

	qty := 1
	if _, err := svc.Update(ctx, actor, "b1", UpdateProductRequest{Version: 2, Quantity: &qty}); !apierr.Is(err, apierr.CodeConflict) {
		t.Errorf("quantity below borrowed err = %v", err)
	}
	if len(repo.acts) != 1 {
		t.Errorf("rejected update logged an activity")
	}
}

func TestStatsAndListPaging(t *testing.T) {
	repo := newFakeRepo(
		Product{ID: "a", Type: TypeUnique, Status: StatusAvailable},
		Product{ID: "b", Type: TypeUnique, Status: StatusBorrowed},
		Product{ID: "c", Type: TypeBulk, Status: StatusAvailable, Quantity: 4, BorrowedCount: 1},
	)
	svc, _ := newTestService(repo)

	st, err := svc.Stats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 3 || st.Available != 2 || st.Borrowed != 2 || st.BulkUnitsAvailable != 3 {
		t.Errorf("stats = %+v", st)
	}

	res, err := svc.List(context.Background(), ProductFilter{}, Page{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if res.Total != 3 || res.NextOffset != 2 {
		t.Errorf("list = total %d next %d", res.Total, res.NextOffset)
	}
	if _, err := svc.List(context.Background(), ProductFilter{Status: "lost"}, Page{}); !apierr.Is(err, apierr.CodeInvalidArgument) {
		t.Errorf("bad status filter err = %v", err)
	}
}

func withActor(a auth.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.CtxUserIDKey, a.ID)
		c.Set(auth.CtxUserNameKey, a.Name)
		c.Set(auth.CtxRoleKey, a.Role)
		c.Next()
	}
}

func TestHandlerRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repo := newFakeRepo(Product{ID: "p1", Name: "Projector", Type: TypeUnique, Status: StatusAvailable})
	svc, _ := newTestService(repo)

	r := gin.New()
	g := r.Group("/api/v1", withActor(actor))
	RegisterRoutes(g, svc)

	body, _ := json.Marshal(borrowReq())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/products/p1/borrow", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("borrow status = %d body=%s", w.Code, w.Body.String())
	}

	// second borrow of the same unique item
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/products/p1/borrow", bytes.NewReader(body)))
	if w.Code != http.StatusConflict || !strings.Contains(w.Body.String(), `"CONFLICT"`) {
		t.Errorf("second borrow = %d %s", w.Code, w.Body.String())
	}

	// staff cannot restock
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/products/p1/restock", strings.NewReader(`{"quantity":1}`)))
	if w.Code != http.StatusForbidden {
		t.Errorf("restock as staff = %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/products/stats", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"borrowed":1`) {
		t.Errorf("stats = %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/transactions", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"total":1`) {
		t.Errorf("transactions = %d %s", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/transactions?type=loan", nil))
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad type = %d", w.Code)
	}
}
