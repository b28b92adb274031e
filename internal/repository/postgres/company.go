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

const companyColumns = `id, slug, name, description, country_id, city_id, category_id,
		       phone, email, website, address, owner_user_id,
		       rating, reviews_count, is_active, is_verified, is_featured, created_at, updated_at`

// CompanyRepository implements company persistence operations using PostgreSQL.
type CompanyRepository struct {
	pool database.DBTX
}

// NewCompanyRepository creates a new PostgreSQL-backed company repository.
func NewCompanyRepository(pool database.DBTX) *CompanyRepository {
	return &CompanyRepository{pool: pool}
}

// Create inserts a new company into the database.
func (r *CompanyRepository) Create(ctx context.Context, c *domain.Company) (err error) {
	query := `
		INSERT INTO companies (id, slug, name, description, country_id, city_id, category_id,
		                       phone, email, website, address, owner_user_id,
		                       rating, reviews_count, is_active, is_verified, is_featured, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	ctx, end := database.TraceQuery(ctx, "CreateCompany", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		c.ID,
		c.Slug,
		c.Name,
		c.Description,
		c.CountryID,
		c.CityID,
		c.CategoryID,
		c.Phone,
		c.Email,
		c.Website,
		c.Address,
		c.OwnerUserID,
		c.Rating,
		c.ReviewsCount,
		c.IsActive,
		c.IsVerified,
		c.IsFeatured,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("company", "slug", c.Slug)
		}
		return fmt.Errorf("insert company: %w", err)
	}

	return nil
}

// GetByID retrieves a company by its ID.
func (r *CompanyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	c, err := r.scanCompany(ctx, "GetCompanyByID",
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("company", id)
	}
	return c, err
}

// GetBySlug retrieves a company by its slug.
func (r *CompanyRepository) GetBySlug(ctx context.Context, slug string) (*domain.Company, error) {
	c, err := r.scanCompany(ctx, "GetCompanyBySlug",
		`SELECT `+companyColumns+` FROM companies WHERE slug = $1`, slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("company", slug)
	}
	return c, err
}

// List returns a filtered page of companies along with the total count.
func (r *CompanyRepository) List(ctx context.Context, filter repository.CompanyFilter) (_ []domain.Company, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}

	if filter.CountryID != nil {
		conditions = append(conditions, fmt.Sprintf("country_id = $%d", argIndex))
		args = append(args, *filter.CountryID)
		argIndex++
	}

	if filter.CityID != nil {
		conditions = append(conditions, fmt.Sprintf("city_id = $%d", argIndex))
		args = append(args, *filter.CityID)
		argIndex++
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.Featured != nil {
		conditions = append(conditions, fmt.Sprintf("is_featured = $%d", argIndex))
		args = append(args, *filter.Featured)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s,
		       count(*) OVER() AS total_count
		FROM companies
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		companyColumns, whereClause, companyOrderBy(filter.Sort), argIndex, argIndex+1,
	)

	limit, offset := limitOffset(filter.Page, filter.PerPage)
	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "ListCompanies", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	var (
		companies  []domain.Company
		totalCount int
	)

	for rows.Next() {
		var c domain.Company
		dest := append(companyDest(&c), &totalCount)
		if err := rows.Scan(dest...); err != nil {
			return nil, 0, fmt.Errorf("scan company row: %w", err)
		}
		companies = append(companies, c)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate company rows: %w", err)
	}

	if companies == nil {
		companies = []domain.Company{}
	}

	if len(companies) == 0 && offset > 0 {
		rows.Close()
		totalCount, err = countRows(ctx, r.pool, "CountCompanies",
			"SELECT count(*) FROM companies "+whereClause, args[:len(args)-2]...)
		if err != nil {
			return nil, 0, err
		}
	}

	return companies, totalCount, nil
}

func companyOrderBy(sort string) string {
	switch sort {
	case domain.CompanySortRating:
		return "rating DESC, reviews_count DESC, created_at DESC"
	case domain.CompanySortReviews:
		return "reviews_count DESC, rating DESC, created_at DESC"
	case domain.CompanySortNewest:
		return "created_at DESC"
	default:
		return "is_featured DESC, rating DESC, created_at DESC"
	}
}

// ListIDs returns the id of every company ordered by creation time.
func (r *CompanyRepository) ListIDs(ctx context.Context) (_ []string, err error) {
	query := `SELECT id FROM companies ORDER BY created_at, id`

	ctx, end := database.TraceQuery(ctx, "ListCompanyIDs", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list company ids: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan company id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate company ids: %w", err)
	}

	return ids, nil
}

// UpdateAggregate writes rating and reviews_count in a single statement.
func (r *CompanyRepository) UpdateAggregate(ctx context.Context, id string, agg domain.Aggregate) (err error) {
	query := `
		UPDATE companies
		SET rating = $1, reviews_count = $2, updated_at = $3
		WHERE id = $4`

	ctx, end := database.TraceQuery(ctx, "UpdateCompanyAggregate", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, agg.Rating, agg.ReviewsCount, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update company aggregate: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("company", id)
	}

	return nil
}

// Deactivate sets is_active to false.
func (r *CompanyRepository) Deactivate(ctx context.Context, id string) (err error) {
	query := `UPDATE companies SET is_active = FALSE, updated_at = $1 WHERE id = $2`

	ctx, end := database.TraceQuery(ctx, "DeactivateCompany", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate company: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("company", id)
	}

	return nil
}

func companyDest(c *domain.Company) []any {
	return []any{
		&c.ID,
		&c.Slug,
		&c.Name,
		&c.Description,
		&c.CountryID,
		&c.CityID,
		&c.CategoryID,
		&c.Phone,
		&c.Email,
		&c.Website,
		&c.Address,
		&c.OwnerUserID,
		&c.Rating,
		&c.ReviewsCount,
		&c.IsActive,
		&c.IsVerified,
		&c.IsFeatured,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}

// scanCompany runs a query expected to return one company row. A missing row
// is returned as pgx.ErrNoRows so callers can name the lookup key.
func (r *CompanyRepository) scanCompany(ctx context.Context, op, query string, args ...any) (_ *domain.Company, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var c domain.Company
	if err = r.pool.QueryRow(ctx, query, args...).Scan(companyDest(&c)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan company: %w", err)
	}

	return &c, nil
}
