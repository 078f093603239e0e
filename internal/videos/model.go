package videos

import (
	"io"
	"time"
)

type Video struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	VideoURL     string    `json:"videoUrl"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	ThumbnailKey string    `json:"-"`
	Category     string    `json:"category"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Upload struct {
	Filename string
	Body     io.Reader
}

type CreateInput struct {
	Title       string
	Description string
	VideoURL    string
	Category    string
	Thumbnail   *Upload
}

type ListResult struct {
	Items      []Video `json:"items"`
	Total      int64   `json:"total"`
	NextOffset int     `json:"next_offset"`
}
