package repository

import (
	"context"
	"time"

	"github.com/murabaat/review-service/internal/domain"
)

// CompanyFilter defines filter criteria for listing companies.
type CompanyFilter struct {
	CountryID  *string
	CityID     *string
	CategoryID *string
	Featured   *bool
	ActiveOnly bool
	Sort       string
	Page       int
	PerPage    int
}

// ReviewFilter defines filter criteria for the moderation queue.
type ReviewFilter struct {
	CompanyID *string
	Status    string
	Page      int
	PerPage   int
}

// ReportFilter defines filter criteria for the report queue.
type ReportFilter struct {
	Status   *domain.ReportStatus
	ReviewID *string
	Page     int
	PerPage  int
}

// ReportResolution is the outcome of adjudicating a report. DeletedReview is
// set when an approval removed the reported review; it is nil when the review
// had already been deleted by another path.
type ReportResolution struct {
	Report        *domain.Report
	DeletedReview *domain.Review
}

// CompanyRepository defines the interface for company persistence operations.
type CompanyRepository interface {
	// Create inserts a new company.
	Create(ctx context.Context, company *domain.Company) error

	// GetByID retrieves a company by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Company, error)

	// GetBySlug retrieves a company by its URL slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Company, error)

	// List returns companies matching the filter along with the total count.
	List(ctx context.Context, filter CompanyFilter) ([]domain.Company, int, error)

	// ListIDs returns every company id, active or not, in a stable order.
	ListIDs(ctx context.Context) ([]string, error)

	// UpdateAggregate overwrites the rating and reviews count in one write.
	UpdateAggregate(ctx context.Context, id string, agg domain.Aggregate) error

	// Deactivate soft-deletes a company.
	Deactivate(ctx context.Context, id string) error
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new review.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by id regardless of its approval state.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// ApprovedRatings returns the rating of every approved review of a company.
	ApprovedRatings(ctx context.Context, companyID string) ([]int, error)

	// ListApproved returns a page of a company's approved reviews, newest first.
	ListApproved(ctx context.Context, companyID string, page, perPage int) ([]domain.Review, int, error)

	// List returns the moderation queue.
	List(ctx context.Context, filter ReviewFilter) ([]domain.Review, int, error)

	// Approve sets the approval flag and returns the review. changed is false
	// when the review was already approved.
	Approve(ctx context.Context, id string) (review *domain.Review, changed bool, err error)

	// Delete removes a review and returns the row as it was before deletion.
	Delete(ctx context.Context, id string) (*domain.Review, error)

	// IncrementHelpful bumps the helpful or not-helpful counter of an approved
	// review by one. Missing and pending reviews yield ErrNotFound.
	IncrementHelpful(ctx context.Context, id string, helpful bool) (*domain.HelpfulCounts, error)
}

// ReplyRepository defines the interface for reply persistence operations.
type ReplyRepository interface {
	// Create inserts a new reply.
	Create(ctx context.Context, reply *domain.Reply) error

	// ListByReviewIDs returns replies grouped by review id, oldest first.
	ListByReviewIDs(ctx context.Context, reviewIDs []string) (map[string][]domain.Reply, error)
}

// ReportRepository defines the interface for report persistence operations.
type ReportRepository interface {
	// Create inserts a new report.
	Create(ctx context.Context, report *domain.Report) error

	// GetByID retrieves a report by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Report, error)

	// List returns reports matching the filter along with the total count.
	List(ctx context.Context, filter ReportFilter) ([]domain.Report, int, error)

	// Resolve moves a PENDING report to status. An APPROVED status also
	// deletes the reported review in the same transaction. A report that is
	// no longer pending fails with an invalid state error.
	Resolve(ctx context.Context, id string, status domain.ReportStatus, resolvedBy string, at time.Time) (*ReportResolution, error)
}
