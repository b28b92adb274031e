package domain

import (
	"time"
)

// Company sort constants.
const (
	CompanySortRating  = "rating"
	CompanySortReviews = "reviews"
	CompanySortNewest  = "newest"
)

// Company is a directory listing that can receive reviews. Rating and
// ReviewsCount are derived from the company's approved reviews and are only
// written by the rating aggregator.
type Company struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CountryID    string    `json:"country_id"`
	CityID       string    `json:"city_id"`
	CategoryID   string    `json:"category_id"`
	Phone        *string   `json:"phone,omitempty"`
	Email        *string   `json:"email,omitempty"`
	Website      *string   `json:"website,omitempty"`
	Address      *string   `json:"address,omitempty"`
	OwnerUserID  *string   `json:"owner_user_id,omitempty"`
	Rating       float64   `json:"rating"`
	ReviewsCount int       `json:"reviews_count"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	IsFeatured   bool      `json:"is_featured"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsOwnedBy reports whether userID is the company's registered owner.
func (c *Company) IsOwnedBy(userID string) bool {
	return userID != "" && c.OwnerUserID != nil && *c.OwnerUserID == userID
}

// ValidCompanySorts returns the accepted company listing sort keys.
func ValidCompanySorts() []string {
	return []string{CompanySortRating, CompanySortReviews, CompanySortNewest}
}

// IsValidCompanySort accepts the empty string as "default order".
func IsValidCompanySort(sort string) bool {
	if sort == "" {
		return true
	}
	for _, s := range ValidCompanySorts() {
		if s == sort {
			return true
		}
	}
	return false
}
