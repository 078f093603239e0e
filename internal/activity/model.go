package activity

import "time"

type Action string

const (
	ActionBorrow       Action = "borrow"
	ActionReturn       Action = "return"
	ActionRequisition  Action = "requisition"
	ActionAdd          Action = "add"
	ActionUpdate       Action = "update"
	ActionRepair       Action = "repair"
	ActionRepairUpdate Action = "repair_update"
	ActionCreate       Action = "create"
	ActionDelete       Action = "delete"
)

func (a Action) Valid() bool {
	switch a {
	case ActionBorrow, ActionReturn, ActionRequisition, ActionAdd, ActionUpdate,
		ActionRepair, ActionRepairUpdate, ActionCreate, ActionDelete:
		return true
	}
	return false
}

// Entry is one audit record. Entries are never updated after insert,
// except for the one-time legacy status/zone backfill.
type Entry struct {
	ID           string    `json:"id"`
	Action       Action    `json:"action"`
	ProductName  string    `json:"productName"`
	UserName     string    `json:"userName"`
	Details      string    `json:"details,omitempty"`
	ImageURL     string    `json:"imageUrl,omitempty"`
	SignatureURL string    `json:"signatureUrl,omitempty"`
	Zone         string    `json:"zone,omitempty"`
	Status       string    `json:"status,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

type Filter struct {
	Action   Action
	UserName string
	Zone     string
	Status   string
	From     *time.Time
	To       *time.Time
}

type Page struct {
	Limit  int
	Offset int
}

type ListResult struct {
	Items      []Entry `json:"items"`
	Total      int64   `json:"total"`
	NextOffset int     `json:"next_offset"`
}
