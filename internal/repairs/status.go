package repairs

import "itops-backend/internal/platform/apierr"

type Status string

const (
	StatusPending      Status = "pending"
	StatusInProgress   Status = "in_progress"
	StatusWaitingParts Status = "waiting_parts"
	StatusCompleted    Status = "completed"
	StatusCancelled    Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:      {StatusInProgress, StatusCancelled},
	StatusInProgress:   {StatusWaitingParts, StatusCompleted, StatusCancelled},
	StatusWaitingParts: {StatusInProgress, StatusCancelled},
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusWaitingParts, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusCancelled }

// CanTransition reports whether a ticket in from may move to to.
// Staying in the same non-terminal status is allowed so notes can be edited.
func CanTransition(from, to Status) bool {
	if from == to {
		return !from.Terminal()
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func CheckTransition(from, to Status) error {
	if !to.Valid() {
		return apierr.Invalid("invalid repair status").WithDetail("%q", to)
	}
	if !CanTransition(from, to) {
		return apierr.IllegalTransition("illegal status transition").WithDetail("%s -> %s", from, to)
	}
	return nil
}
