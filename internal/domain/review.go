package domain

import (
	"time"
)

// Moderation states of a review. A deleted review has no row, so it has no
// state constant.
const (
	ReviewStatePending  = "pending"
	ReviewStateApproved = "approved"
)

// Moderation queue filters.
const (
	ReviewFilterPending  = "pending"
	ReviewFilterApproved = "approved"
	ReviewFilterAll      = "all"
)

// Review is a rating with text tied to one company. Only approved reviews
// are public and counted in the company aggregate.
type Review struct {
	ID              string    `json:"id"`
	CompanyID       string    `json:"company_id"`
	UserID          *string   `json:"user_id,omitempty"`
	UserName        string    `json:"user_name,omitempty"`
	UserEmail       string    `json:"-"`
	Rating          int       `json:"rating"`
	Title           string    `json:"title,omitempty"`
	Comment         string    `json:"comment"`
	IsApproved      bool      `json:"is_approved"`
	HelpfulCount    int       `json:"helpful_count"`
	NotHelpfulCount int       `json:"not_helpful_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	Replies         []Reply   `json:"replies,omitempty"`
}

// State returns the moderation state of an existing review.
func (r *Review) State() string {
	if r.IsApproved {
		return ReviewStateApproved
	}
	return ReviewStatePending
}

// IsAnonymous reports whether the review was written without an account.
func (r *Review) IsAnonymous() bool {
	return r.UserID == nil
}

// HelpfulCounts is the vote tally returned after a helpful vote.
type HelpfulCounts struct {
	ReviewID        string `json:"review_id"`
	HelpfulCount    int    `json:"helpful_count"`
	NotHelpfulCount int    `json:"not_helpful_count"`
}

// ValidReviewFilters returns the accepted moderation queue filters.
func ValidReviewFilters() []string {
	return []string{ReviewFilterPending, ReviewFilterApproved, ReviewFilterAll}
}

// IsValidReviewFilter checks a moderation queue filter value.
func IsValidReviewFilter(f string) bool {
	for _, v := range ValidReviewFilters() {
		if v == f {
			return true
		}
	}
	return false
}

// IsValidRating checks the 1 to 5 star range.
func IsValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}
