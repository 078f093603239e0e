package inventory

import "time"

type ProductType string

const (
	TypeUnique ProductType = "unique"
	TypeBulk   ProductType = "bulk"
)

type Status string

const (
	StatusAvailable     Status = "available"
	StatusBorrowed      Status = "borrowed"
	StatusRequisitioned Status = "requisitioned"
	StatusUnavailable   Status = "unavailable"
	StatusMaintenance   Status = "maintenance"

	// legacyBorrowed is how older records spell "borrowed". Read only.
	legacyBorrowed = "ไม่ว่าง"
)

// NormalizeStatus maps stored values to the canonical set. ok is false for unknown values.
func NormalizeStatus(s string) (Status, bool) {
	switch s {
	case legacyBorrowed:
		return StatusBorrowed, true
	case string(StatusAvailable), string(StatusBorrowed), string(StatusRequisitioned),
		string(StatusUnavailable), string(StatusMaintenance):
		return Status(s), true
	}
	return "", false
}

type Product struct {
	ID            string
	Name          string
	Brand         string
	Model         string
	Location      string
	ImageURL      string
	StockID       string
	Status        Status
	Type          ProductType
	Quantity      int
	BorrowedCount int
	Category      string
	SerialNumber  string
	Description   string
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Available is the number of units that can be handed out right now.
func (p *Product) Available() int {
	if p.Type == TypeBulk {
		if n := p.Quantity - p.BorrowedCount; n > 0 {
			return n
		}
		return 0
	}
	if p.Status == StatusAvailable {
		return 1
	}
	return 0
}

type TxType string

const (
	TxBorrow      TxType = "borrow"
	TxRequisition TxType = "requisition"
)

type TxStatus string

const (
	TxActive    TxStatus = "active"
	TxCompleted TxStatus = "completed"
)

type Transaction struct {
	ID           string     `json:"id"`
	Type         TxType     `json:"type"`
	ProductID    string     `json:"productId"`
	ProductName  string     `json:"productName"`
	UserID       string     `json:"userId"`
	UserName     string     `json:"userName"`
	Room         string     `json:"room"`
	Phone        string     `json:"phone,omitempty"`
	Position     string     `json:"position,omitempty"`
	Reason       string     `json:"reason"`
	Quantity     int        `json:"quantity"`
	SignatureURL string     `json:"signatureUrl"`
	Status       TxStatus   `json:"status"`
	BorrowDate   time.Time  `json:"borrowDate"`
	ReturnDate   *time.Time `json:"returnDate,omitempty"`
}

type Stats struct {
	Total              int64 `json:"total"`
	Available          int64 `json:"available"`
	Borrowed           int64 `json:"borrowed"`
	Requisitioned      int64 `json:"requisitioned"`
	Maintenance        int64 `json:"maintenance"`
	Unavailable        int64 `json:"unavailable"`
	BulkUnitsTotal     int64 `json:"bulkUnitsTotal"`
	BulkUnitsBorrowed  int64 `json:"bulkUnitsBorrowed"`
	BulkUnitsAvailable int64 `json:"bulkUnitsAvailable"`
}

// ComputeStats derives dashboard counters from products. The store runs the
// same rules as one SQL aggregate.
func ComputeStats(products []Product) Stats {
	var s Stats
	for i := range products {
		p := &products[i]
		s.Total++
		if p.Available() > 0 {
			s.Available++
		}
		switch {
		case p.Status == StatusBorrowed:
			s.Borrowed++
		case p.Type == TypeBulk && p.BorrowedCount > 0:
			s.Borrowed++
		}
		switch p.Status {
		case StatusRequisitioned:
			s.Requisitioned++
		case StatusMaintenance:
			s.Maintenance++
		case StatusUnavailable:
			s.Unavailable++
		}
		if p.Type == TypeBulk {
			s.BulkUnitsTotal += int64(p.Quantity)
			s.BulkUnitsBorrowed += int64(p.BorrowedCount)
			s.BulkUnitsAvailable += int64(p.Available())
		}
	}
	return s
}

type ProductFilter struct {
	Status   Status
	Type     ProductType
	Category string
	Query    string
}

type TxFilter struct {
	ProductID string
	Type      TxType
	UserID    string
}

type Page struct {
	Limit  int
	Offset int
}
