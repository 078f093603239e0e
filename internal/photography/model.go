package photography

import (
	"io"
	"time"
)

type Status string

const (
	StatusAssigned  Status = "assigned"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Job struct {
	ID                string     `json:"id"`
	Title             string     `json:"title"`
	Description       string     `json:"description,omitempty"`
	Location          string     `json:"location"`
	StartTime         time.Time  `json:"startTime"`
	EndTime           time.Time  `json:"endTime"`
	Assignees         []string   `json:"assignees"`
	AssigneeNames     []string   `json:"assigneeNames"`
	BookingID         string     `json:"bookingId,omitempty"`
	Status            Status     `json:"status"`
	DriveLink         string     `json:"driveLink,omitempty"`
	CoverImage        string     `json:"coverImage,omitempty"`
	FacebookPostID    string     `json:"facebookPostId,omitempty"`
	FacebookPermalink string     `json:"facebookPermalink,omitempty"`
	CompletedBy       string     `json:"completedBy,omitempty"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	CreatedBy         string     `json:"createdBy"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

func (j *Job) IsAssignee(userID string) bool {
	for _, a := range j.Assignees {
		if a == userID {
			return true
		}
	}
	return false
}

type CreateJobRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Assignees   []string  `json:"assignees"`
}

// BookingRequest is a room booking imported as a job. Photographers are
// chosen by the admin at import time.
type BookingRequest struct {
	BookingID string    `json:"bookingId" binding:"required"`
	Title     string    `json:"title"`
	Room      string    `json:"room"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Requester string    `json:"requester"`
	Assignees []string  `json:"assignees"`
}

type Upload struct {
	Filename string
	Body     io.Reader
}

type SubmitInput struct {
	DriveLink         string
	FacebookPostID    string
	FacebookPermalink string
	Cover             *Upload
}

type Filter struct {
	Status   Status
	Assignee string
}

type Page struct {
	Limit  int
	Offset int
}

type ListResult struct {
	Items      []Job `json:"items"`
	Total      int64 `json:"total"`
	NextOffset int   `json:"next_offset"`
}

// PublicActivity is the shape served to the school website.
type PublicActivity struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	CoverImage   string `json:"coverImage"`
	FacebookLink string `json:"facebookLink"`
	Date         string `json:"date"`
	Location     string `json:"location"`
	Description  string `json:"description"`
}
