package domain

import "time"

// CompanySortRelevance orders search hits by text score. It is the search
// default and is not accepted by the plain directory listing.
const CompanySortRelevance = "relevance"

// CompanyDocument is the searchable projection of an active company.
type CompanyDocument struct {
	ID           string    `json:"id"`
	Slug         string    `json:"slug"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	CountryID    string    `json:"country_id"`
	CityID       string    `json:"city_id"`
	CategoryID   string    `json:"category_id"`
	Rating       float64   `json:"rating"`
	ReviewsCount int       `json:"reviews_count"`
	IsVerified   bool      `json:"is_verified"`
	IsFeatured   bool      `json:"is_featured"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewCompanyDocument projects c for the search index.
func NewCompanyDocument(c *Company) CompanyDocument {
	return CompanyDocument{
		ID:           c.ID,
		Slug:         c.Slug,
		Name:         c.Name,
		Description:  c.Description,
		CountryID:    c.CountryID,
		CityID:       c.CityID,
		CategoryID:   c.CategoryID,
		Rating:       c.Rating,
		ReviewsCount: c.ReviewsCount,
		IsVerified:   c.IsVerified,
		IsFeatured:   c.IsFeatured,
		CreatedAt:    c.CreatedAt,
	}
}

// CompanySearchQuery is a full-text company search with directory filters.
type CompanySearchQuery struct {
	Text         string
	CountryID    *string
	CityID       *string
	CategoryID   *string
	MinRating    *float64
	VerifiedOnly bool
	Sort         string
	Page         int
	PerPage      int
}

// CompanySearchResult is one page of search hits.
type CompanySearchResult struct {
	Companies []CompanyDocument `json:"companies"`
	Total     int               `json:"total"`
	TookMs    int64             `json:"took_ms"`
}

// IsValidSearchSort accepts the listing sorts plus relevance.
func IsValidSearchSort(sort string) bool {
	return sort == CompanySortRelevance || IsValidCompanySort(sort)
}
