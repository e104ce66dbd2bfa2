package domain

import (
	"time"
)

// TimelineEvent represents one dated entry on the couple's timeline. Images
// holds the ordered public references of the photos attached to the entry;
// the blob store is reconciled against this column on every edit and delete.
type TimelineEvent struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	OccurredOn time.Time `json:"occurred_on"`
	Images     []string  `json:"images"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
