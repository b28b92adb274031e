package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/repository"
	"github.com/murabaat/review-service/pkg/database"
	apperrors "github.com/murabaat/review-service/pkg/errors"
)

const reviewColumns = `id, company_id, user_id, user_name, user_email, rating, title, comment,
		       is_approved, helpful_count, not_helpful_count, created_at, updated_at`

// ReviewRepository implements review persistence operations using PostgreSQL.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review into the database.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) (err error) {
	query := `
		INSERT INTO reviews (id, company_id, user_id, user_name, user_email, rating, title, comment,
		                     is_approved, helpful_count, not_helpful_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	ctx, end := database.TraceQuery(ctx, "CreateReview", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		rv.ID,
		rv.CompanyID,
		rv.UserID,
		rv.UserName,
		rv.UserEmail,
		rv.Rating,
		rv.Title,
		rv.Comment,
		rv.IsApproved,
		rv.HelpfulCount,
		rv.NotHelpfulCount,
		rv.CreatedAt,
		rv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	return r.scanOne(ctx, "GetReviewByID", `SELECT `+reviewColumns+` FROM reviews WHERE id = $1`, id)
}

// ApprovedRatings returns the ratings of a company's approved reviews.
func (r *ReviewRepository) ApprovedRatings(ctx context.Context, companyID string) (_ []int, err error) {
	query := `SELECT rating FROM reviews WHERE company_id = $1 AND is_approved = TRUE`

	ctx, end := database.TraceQuery(ctx, "ApprovedRatings", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("list approved ratings: %w", err)
	}
	defer rows.Close()

	ratings := []int{}
	for rows.Next() {
		var rating int
		if err := rows.Scan(&rating); err != nil {
			return nil, fmt.Errorf("scan rating: %w", err)
		}
		ratings = append(ratings, rating)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ratings: %w", err)
	}

	return ratings, nil
}

// ListApproved returns a page of a company's approved reviews, newest first.
func (r *ReviewRepository) ListApproved(ctx context.Context, companyID string, page, perPage int) ([]domain.Review, int, error) {
	limit, offset := limitOffset(page, perPage)

	query := `
		SELECT ` + reviewColumns + `,
		       count(*) OVER() AS total_count
		FROM reviews
		WHERE company_id = $1 AND is_approved = TRUE
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	reviews, total, err := r.scanPage(ctx, "ListApprovedReviews", query, companyID, limit, offset)
	if err != nil || len(reviews) > 0 || offset == 0 {
		return reviews, total, err
	}

	total, err = countRows(ctx, r.pool, "CountApprovedReviews",
		`SELECT count(*) FROM reviews WHERE company_id = $1 AND is_approved = TRUE`, companyID)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// List returns the moderation queue filtered by approval state and company.
func (r *ReviewRepository) List(ctx context.Context, filter repository.ReviewFilter) ([]domain.Review, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	switch filter.Status {
	case domain.ReviewFilterPending:
		conditions = append(conditions, "is_approved = FALSE")
	case domain.ReviewFilterApproved:
		conditions = append(conditions, "is_approved = TRUE")
	}

	if filter.CompanyID != nil {
		conditions = append(conditions, fmt.Sprintf("company_id = $%d", argIndex))
		args = append(args, *filter.CompanyID)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	// The queue is worked oldest first.
	query := fmt.Sprintf(`
		SELECT %s,
		       count(*) OVER() AS total_count
		FROM reviews
		%s
		ORDER BY created_at ASC, id
		LIMIT $%d OFFSET $%d`,
		reviewColumns, whereClause, argIndex, argIndex+1,
	)

	limit, offset := limitOffset(filter.Page, filter.PerPage)
	reviews, total, err := r.scanPage(ctx, "ListReviews", query, append(args, limit, offset)...)
	if err != nil || len(reviews) > 0 || offset == 0 {
		return reviews, total, err
	}

	total, err = countRows(ctx, r.pool, "CountReviews", "SELECT count(*) FROM reviews "+whereClause, args...)
	if err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// Approve sets is_approved. Only the call that flips the flag reports
// changed; later calls read the row back unchanged.
func (r *ReviewRepository) Approve(ctx context.Context, id string) (*domain.Review, bool, error) {
	query := `
		UPDATE reviews
		SET is_approved = TRUE, updated_at = $1
		WHERE id = $2 AND is_approved = FALSE
		RETURNING ` + reviewColumns

	rv, err := r.scanOne(ctx, "ApproveReview", query, time.Now().UTC(), id)
	if err == nil {
		return rv, true, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}

	// Either missing or approved by an earlier call.
	rv, err = r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return rv, false, nil
}

// Delete removes the review and returns the deleted row. Replies go with it
// through ON DELETE CASCADE.
func (r *ReviewRepository) Delete(ctx context.Context, id string) (*domain.Review, error) {
	query := `DELETE FROM reviews WHERE id = $1 RETURNING ` + reviewColumns

	return r.scanOne(ctx, "DeleteReview", query, id)
}

// IncrementHelpful bumps one vote counter by one. There is no per-voter dedup.
func (r *ReviewRepository) IncrementHelpful(ctx context.Context, id string, helpful bool) (_ *domain.HelpfulCounts, err error) {
	column := "not_helpful_count"
	if helpful {
		column = "helpful_count"
	}

	query := fmt.Sprintf(`
		UPDATE reviews
		SET %[1]s = %[1]s + 1
		WHERE id = $1 AND is_approved = TRUE
		RETURNING id, helpful_count, not_helpful_count`, column)

	ctx, end := database.TraceQuery(ctx, "IncrementHelpful", query)
	defer func() { end(err) }()

	var counts domain.HelpfulCounts
	err = r.pool.QueryRow(ctx, query, id).Scan(&counts.ReviewID, &counts.HelpfulCount, &counts.NotHelpfulCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("increment helpful: %w", err)
	}

	return &counts, nil
}

func reviewDest(rv *domain.Review) []any {
	return []any{
		&rv.ID,
		&rv.CompanyID,
		&rv.UserID,
		&rv.UserName,
		&rv.UserEmail,
		&rv.Rating,
		&rv.Title,
		&rv.Comment,
		&rv.IsApproved,
		&rv.HelpfulCount,
		&rv.NotHelpfulCount,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	}
}

// scanOne runs a query returning a single review row, mapping no rows to
// NotFound for the id in the last argument.
func (r *ReviewRepository) scanOne(ctx context.Context, op, query string, args ...any) (_ *domain.Review, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var rv domain.Review
	if err = r.pool.QueryRow(ctx, query, args...).Scan(reviewDest(&rv)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", fmt.Sprint(args[len(args)-1]))
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

func (r *ReviewRepository) scanPage(ctx context.Context, op, query string, args ...any) (_ []domain.Review, _ int, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var rv domain.Review
		dest := append(reviewDest(&rv), &totalCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}
