package inventory

import (
	"itops-backend/internal/platform/apierr"
)

type OpKind string

const (
	OpBorrow      OpKind = "borrow"
	OpReturn      OpKind = "return"
	OpRequisition OpKind = "requisition"
	OpConsume     OpKind = "consume"
	OpRestock     OpKind = "restock"
	// OpSetQuantity is the admin correction of a bulk product's total.
	OpSetQuantity OpKind = "set_quantity"
)

// StockOp is one stock movement. Apply is the only place stock counters and
// the status flips that follow from them are changed.
type StockOp struct {
	Kind     OpKind
	Quantity int
}

func (op StockOp) Apply(p *Product) error {
	n := op.Quantity
	switch op.Kind {
	case OpBorrow:
		if p.Type == TypeBulk {
			if p.Available() < 1 {
				return apierr.Conflict("insufficient stock").WithDetail("available %d", p.Available())
			}
			p.BorrowedCount++
			return nil
		}
		if p.Status != StatusAvailable {
			return apierr.Conflict("product is not available").WithDetail("status %s", p.Status)
		}
		p.Status = StatusBorrowed
		return nil

	case OpReturn:
		if p.Type == TypeBulk {
			return apierr.Unprocessable("bulk items cannot be returned")
		}
		if p.Status != StatusBorrowed {
			return apierr.Conflict("product is not borrowed").WithDetail("status %s", p.Status)
		}
		p.Status = StatusAvailable
		return nil

	case OpRequisition, OpConsume:
		if n <= 0 {
			return apierr.Invalid("quantity must be > 0")
		}
		if p.Type != TypeBulk {
			if n != 1 {
				return apierr.Invalid("unique items are requisitioned one at a time")
			}
			if p.Status != StatusAvailable {
				return apierr.Conflict("product is not available").WithDetail("status %s", p.Status)
			}
			p.Status = StatusRequisitioned
			return nil
		}
		if n > p.Available() {
			return apierr.Conflict("insufficient stock").WithDetail("requested %d, available %d", n, p.Available())
		}
		p.Quantity -= n
		switch {
		case p.Quantity == 0:
			p.Status = StatusRequisitioned
		case op.Kind == OpConsume:
			p.Status = StatusAvailable
		}
		return nil

	case OpRestock:
		if p.Type != TypeBulk {
			return apierr.Unprocessable("restock applies to bulk items only")
		}
		if n <= 0 {
			return apierr.Invalid("quantity must be > 0")
		}
		p.Quantity += n
		if p.Status == StatusRequisitioned && p.Available() > 0 {
			p.Status = StatusAvailable
		}
		return nil

	case OpSetQuantity:
		if p.Type != TypeBulk {
			return apierr.Invalid("invalid request").WithDetail("quantity applies to bulk items only")
		}
		if n < 0 {
			return apierr.Invalid("invalid request").WithDetail("quantity must be >= 0")
		}
		if n < p.BorrowedCount {
			return apierr.Conflict("insufficient stock").WithDetail("quantity %d below borrowed %d", n, p.BorrowedCount)
		}
		p.Quantity = n
		// maintenance and unavailable are admin decisions and stay put
		switch {
		case p.Quantity == 0 && p.Status == StatusAvailable:
			p.Status = StatusRequisitioned
		case p.Available() > 0 && p.Status == StatusRequisitioned:
			p.Status = StatusAvailable
		}
		return nil
	}
	return apierr.Internal("unknown stock operation").WithDetail("%q", op.Kind)
}
