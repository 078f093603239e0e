package repairs

import (
	"io"
	"time"
)

type Zone string

const (
	ZoneJuniorHigh Zone = "junior_high"
	ZoneSeniorHigh Zone = "senior_high"
	ZoneCommon     Zone = "common"
)

func (z Zone) Valid() bool {
	return z == ZoneJuniorHigh || z == ZoneSeniorHigh || z == ZoneCommon
}

// Part is one spare-part consumption recorded against a ticket.
type Part struct {
	ProductID    string    `json:"productId"`
	Name         string    `json:"name"`
	Quantity     int       `json:"quantity"`
	UsedBy       string    `json:"usedBy,omitempty"`
	SignatureURL string    `json:"signatureUrl,omitempty"`
	Date         time.Time `json:"date"`
}

type Ticket struct {
	ID              string    `json:"id"`
	RequesterID     string    `json:"requesterId"`
	RequesterName   string    `json:"requesterName"`
	RequesterEmail  string    `json:"requesterEmail,omitempty"`
	Position        string    `json:"position,omitempty"`
	Phone           string    `json:"phone"`
	Room            string    `json:"room"`
	Zone            Zone      `json:"zone"`
	Description     string    `json:"description"`
	AIDiagnosis     string    `json:"aiDiagnosis,omitempty"`
	Images          []string  `json:"images"`
	Status          Status    `json:"status"`
	TechnicianID    string    `json:"technicianId,omitempty"`
	TechnicianName  string    `json:"technicianName,omitempty"`
	TechnicianNote  string    `json:"technicianNote,omitempty"`
	CompletionImage string    `json:"completionImage,omitempty"`
	PartsUsed       []Part    `json:"partsUsed"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Upload is an image file taken from a multipart form.
type Upload struct {
	Filename string
	Body     io.Reader
}

type CreateTicketInput struct {
	RequesterEmail string
	Position       string
	Phone          string
	Room           string
	Zone           Zone
	Description    string
	AIDiagnosis    string
	Images         []Upload
}

type UpdateTicketInput struct {
	Status          Status
	TechnicianNote  string
	CompletionImage *Upload
}

type ConsumePartRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
	Signature string `json:"signature"`
}

type Filter struct {
	Status       Status
	Zone         Zone
	TechnicianID string
	RequesterID  string
}

type Page struct {
	Limit  int
	Offset int
}

type ListResult struct {
	Items      []Ticket `json:"items"`
	Total      int64    `json:"total"`
	NextOffset int      `json:"next_offset"`
}
