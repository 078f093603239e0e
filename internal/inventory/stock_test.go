package inventory

import (
	"testing"

	"itops-backend/internal/platform/apierr"
)

func bulk(qty, borrowed int) Product {
	return Product{Type: TypeBulk, Status: StatusAvailable, Quantity: qty, BorrowedCount: borrowed}
}

func unique(st Status) Product {
	return Product{Type: TypeUnique, Status: st}
}

func TestStockOpApply(t *testing.T) {
	tests := []struct {
		name     string
		p        Product
		op       StockOp
		wantErr  apierr.Code
		wantQty  int
		wantBorr int
		wantSt   Status
	}{
		{"bulk borrow", bulk(3, 1), StockOp{Kind: OpBorrow}, "", 3, 2, StatusAvailable},
		{"bulk borrow last unit", bulk(3, 2), StockOp{Kind: OpBorrow}, "", 3, 3, StatusAvailable},
		{"bulk borrow none left", bulk(3, 3), StockOp{Kind: OpBorrow}, apierr.CodeConflict, 3, 3, StatusAvailable},
		{"unique borrow", unique(StatusAvailable), StockOp{Kind: OpBorrow}, "", 0, 0, StatusBorrowed},
		{"unique borrow in maintenance", unique(StatusMaintenance), StockOp{Kind: OpBorrow}, apierr.CodeConflict, 0, 0, StatusMaintenance},

		{"unique return", unique(StatusBorrowed), StockOp{Kind: OpReturn}, "", 0, 0, StatusAvailable},
		{"unique return not borrowed", unique(StatusAvailable), StockOp{Kind: OpReturn}, apierr.CodeConflict, 0, 0, StatusAvailable},
		{"bulk return rejected", bulk(3, 1), StockOp{Kind: OpReturn}, apierr.CodeUnprocessable, 3, 1, StatusAvailable},

		{"bulk requisition", bulk(5, 1), StockOp{Kind: OpRequisition, Quantity: 2}, "", 3, 1, StatusAvailable},
		{"bulk requisition to zero", bulk(4, 0), StockOp{Kind: OpRequisition, Quantity: 4}, "", 0, 0, StatusRequisitioned},
		{"bulk requisition over available", bulk(5, 3), StockOp{Kind: OpRequisition, Quantity: 3}, apierr.CodeConflict, 5, 3, StatusAvailable},
		{"bulk requisition zero qty", bulk(5, 0), StockOp{Kind: OpRequisition}, apierr.CodeInvalidArgument, 5, 0, StatusAvailable},
		{"unique requisition", unique(StatusAvailable), StockOp{Kind: OpRequisition, Quantity: 1}, "", 0, 0, StatusRequisitioned},
		{"unique requisition two", unique(StatusAvailable), StockOp{Kind: OpRequisition, Quantity: 2}, apierr.CodeInvalidArgument, 0, 0, StatusAvailable},
		{"unique requisition borrowed", unique(StatusBorrowed), StockOp{Kind: OpRequisition, Quantity: 1}, apierr.CodeConflict, 0, 0, StatusBorrowed},

		{"consume keeps available", Product{Type: TypeBulk, Status: StatusMaintenance, Quantity: 5}, StockOp{Kind: OpConsume, Quantity: 2}, "", 3, 0, StatusAvailable},
		{"consume to zero", bulk(2, 0), StockOp{Kind: OpConsume, Quantity: 2}, "", 0, 0, StatusRequisitioned},
		{"consume over stock", bulk(2, 0), StockOp{Kind: OpConsume, Quantity: 3}, apierr.CodeConflict, 2, 0, StatusAvailable},
		{"consume negative", bulk(2, 0), StockOp{Kind: OpConsume, Quantity: -1}, apierr.CodeInvalidArgument, 2, 0, StatusAvailable},

		{"restock", bulk(2, 1), StockOp{Kind: OpRestock, Quantity: 3}, "", 5, 1, StatusAvailable},
		{"restock reopens requisitioned", Product{Type: TypeBulk, Status: StatusRequisitioned}, StockOp{Kind: OpRestock, Quantity: 1}, "", 1, 0, StatusAvailable},
		{"restock unique rejected", unique(StatusAvailable), StockOp{Kind: OpRestock, Quantity: 1}, apierr.CodeUnprocessable, 0, 0, StatusAvailable},
		{"restock zero", bulk(2, 0), StockOp{Kind: OpRestock}, apierr.CodeInvalidArgument, 2, 0, StatusAvailable},

		{"set quantity reopens requisitioned", Product{Type: TypeBulk, Status: StatusRequisitioned}, StockOp{Kind: OpSetQuantity, Quantity: 5}, "", 5, 0, StatusAvailable},
		{"set quantity to zero", bulk(3, 0), StockOp{Kind: OpSetQuantity}, "", 0, 0, StatusRequisitioned},
		{"set quantity all borrowed stays available", bulk(3, 2), StockOp{Kind: OpSetQuantity, Quantity: 2}, "", 2, 2, StatusAvailable},
		{"set quantity keeps maintenance", Product{Type: TypeBulk, Status: StatusMaintenance, Quantity: 1}, StockOp{Kind: OpSetQuantity, Quantity: 0}, "", 0, 0, StatusMaintenance},
		{"set quantity below borrowed", bulk(3, 2), StockOp{Kind: OpSetQuantity, Quantity: 1}, apierr.CodeConflict, 3, 2, StatusAvailable},
		{"set quantity negative", bulk(3, 0), StockOp{Kind: OpSetQuantity, Quantity: -1}, apierr.CodeInvalidArgument, 3, 0, StatusAvailable},
		{"set quantity unique rejected", unique(StatusAvailable), StockOp{Kind: OpSetQuantity, Quantity: 4}, apierr.CodeInvalidArgument, 0, 0, StatusAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.p
			err := tt.op.Apply(&p)
			if tt.wantErr != "" {
				if !apierr.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %s", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Quantity != tt.wantQty || p.BorrowedCount != tt.wantBorr || p.Status != tt.wantSt {
				t.Errorf("got qty=%d borrowed=%d status=%s, want qty=%d borrowed=%d status=%s",
					p.Quantity, p.BorrowedCount, p.Status, tt.wantQty, tt.wantBorr, tt.wantSt)
			}
			if p.Type == TypeBulk && (p.BorrowedCount < 0 || p.BorrowedCount > p.Quantity) {
				t.Errorf("stock invariant broken: %+v", p)
			}
		})
	}
}

func TestNormalizeStatus(t *testing.T) {
	if st, ok := NormalizeStatus("ไม่ว่าง"); !ok || st != StatusBorrowed {
		t.Errorf("legacy = %s %v", st, ok)
	}
	if _, ok := NormalizeStatus("lost"); ok {
		t.Error("unknown status accepted")
	}
}

func TestComputeStats(t *testing.T) {
	ps := []Product{
		unique(StatusAvailable),
		unique(StatusBorrowed),
		unique(StatusMaintenance),
		unique(StatusUnavailable),
		bulk(5, 2),
		bulk(2, 2),
		{Type: TypeBulk, Status: StatusRequisitioned},
	}
	s := ComputeStats(ps)
	want := Stats{
		Total: 7, Available: 2, Borrowed: 3, Requisitioned: 1, Maintenance: 1, Unavailable: 1,
		BulkUnitsTotal: 7, BulkUnitsBorrowed: 4, BulkUnitsAvailable: 3,
	}
	if s != want {
		t.Errorf("stats = %+v\nwant    %+v", s, want)
	}
}
