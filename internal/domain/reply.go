package domain

import (
	"time"
)

// Reply is a response attached to a review. IsFromOwner is set by the server
// when the author owns the review's company.
type Reply struct {
	ID          string    `json:"id"`
	ReviewID    string    `json:"review_id"`
	UserID      string    `json:"user_id"`
	Content     string    `json:"content"`
	IsFromOwner bool      `json:"is_from_owner"`
	CreatedAt   time.Time `json:"created_at"`
}
