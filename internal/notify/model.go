package notify

import (
	"encoding/json"
	"time"
)

type Kind string

const (
	KindRepairCreated   Kind = "repair_created"
	KindRepairCompleted Kind = "repair_completed"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusDead      Status = "dead"
)

type Notification struct {
	ID            string
	Kind          Kind
	Payload       json.RawMessage
	Status        Status
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
	DeliveredAt   *time.Time
}

// RepairCreated goes to the technician channel when a ticket is opened.
type RepairCreated struct {
	TicketID    string `json:"ticketId"`
	Requester   string `json:"requester"`
	Room        string `json:"room"`
	Zone        string `json:"zone"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

// RepairCompleted goes to the requester when a ticket is closed.
type RepairCompleted struct {
	TicketID        string `json:"ticketId"`
	RequesterEmail  string `json:"requesterEmail"`
	Room            string `json:"room"`
	Problem         string `json:"problem"`
	TechnicianNote  string `json:"technicianNote"`
	CompletionImage string `json:"completionImage,omitempty"`
}
