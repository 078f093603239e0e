package inventory

import "time"

// ===== Requests =====

type CreateProductRequest struct {
	Name         string      `json:"name" binding:"required"`
	Brand        string      `json:"brand"`
	Model        string      `json:"model"`
	Location     string      `json:"location"`
	ImageURL     string      `json:"imageUrl"`
	StockID      string      `json:"stockId"`
	Status       string      `json:"status"`
	Type         ProductType `json:"type"`
	Quantity     int         `json:"quantity"`
	Category     string      `json:"category"`
	SerialNumber string      `json:"serialNumber"`
	Description  string      `json:"description"`
}

// UpdateProductRequest is a partial update. Version must match the stored
// version or the update is rejected with CONFLICT.
type UpdateProductRequest struct {
	Version      int64   `json:"version" binding:"required"`
	Name         *string `json:"name,omitempty"`
	Brand        *string `json:"brand,omitempty"`
	Model        *string `json:"model,omitempty"`
	Location     *string `json:"location,omitempty"`
	ImageURL     *string `json:"imageUrl,omitempty"`
	Status       *string `json:"status,omitempty"`
	Quantity     *int    `json:"quantity,omitempty"`
	Category     *string `json:"category,omitempty"`
	SerialNumber *string `json:"serialNumber,omitempty"`
	Description  *string `json:"description,omitempty"`
}

// BorrowRequest carries the borrower's details and the canvas signature
// as a PNG data URL.
type BorrowRequest struct {
	UserName  string `json:"userName"`
	Room      string `json:"room"`
	Phone     string `json:"phone"`
	Position  string `json:"position"`
	Reason    string `json:"reason"`
	Signature string `json:"signature"`
}

type RequisitionRequest struct {
	BorrowRequest
	// Quantity defaults to 1 when omitted.
	Quantity *int `json:"quantity"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required"`
}

// ===== Responses =====

type ProductResponse struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Brand         string      `json:"brand"`
	Model         string      `json:"model,omitempty"`
	Location      string      `json:"location"`
	ImageURL      string      `json:"imageUrl"`
	StockID       string      `json:"stockId"`
	Status        Status      `json:"status"`
	Type          ProductType `json:"type"`
	Quantity      *int        `json:"quantity,omitempty"`
	BorrowedCount *int        `json:"borrowedCount,omitempty"`
	Available     int         `json:"available"`
	Category      string      `json:"category,omitempty"`
	SerialNumber  string      `json:"serialNumber,omitempty"`
	Description   string      `json:"description,omitempty"`
	Version       int64       `json:"version"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

func toResponse(p *Product) ProductResponse {
	r := ProductResponse{
		ID:           p.ID,
		Name:         p.Name,
		Brand:        p.Brand,
		Model:        p.Model,
		Location:     p.Location,
		ImageURL:     p.ImageURL,
		StockID:      p.StockID,
		Status:       p.Status,
		Type:         p.Type,
		Available:    p.Available(),
		Category:     p.Category,
		SerialNumber: p.SerialNumber,
		Description:  p.Description,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if p.Type == TypeBulk {
		q, b := p.Quantity, p.BorrowedCount
		r.Quantity, r.BorrowedCount = &q, &b
	}
	return r
}

type MovementResponse struct {
	Product     ProductResponse `json:"product"`
	Transaction *Transaction    `json:"transaction,omitempty"`
}

type ListProductsResult struct {
	Items      []ProductResponse `json:"items"`
	Total      int64             `json:"total"`
	NextOffset int               `json:"next_offset"`
}

type ListTransactionsResult struct {
	Items      []Transaction `json:"items"`
	Total      int64         `json:"total"`
	NextOffset int           `json:"next_offset"`
}
