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

const reportColumns = `id, review_id, reason, description, reporter_email, status,
		       resolved_by, resolved_at, created_at, updated_at`

// ReportRepository implements report persistence operations using PostgreSQL.
type ReportRepository struct {
	pool database.DBTX
}

// NewReportRepository creates a new PostgreSQL-backed report repository.
func NewReportRepository(pool database.DBTX) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Create inserts a new report into the database.
func (r *ReportRepository) Create(ctx context.Context, rp *domain.Report) (err error) {
	query := `
		INSERT INTO review_reports (id, review_id, reason, description, reporter_email, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	ctx, end := database.TraceQuery(ctx, "CreateReport", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		rp.ID,
		rp.ReviewID,
		string(rp.Reason),
		rp.Description,
		rp.ReporterEmail,
		string(rp.Status),
		rp.CreatedAt,
		rp.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	return nil
}

// GetByID retrieves a report by its ID.
func (r *ReportRepository) GetByID(ctx context.Context, id string) (_ *domain.Report, err error) {
	query := `SELECT ` + reportColumns + ` FROM review_reports WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetReportByID", query)
	defer func() { end(err) }()

	rp, err := scanReport(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("report", id)
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}

	return rp, nil
}

// List returns a filtered page of reports, oldest first.
func (r *ReportRepository) List(ctx context.Context, filter repository.ReportFilter) (_ []domain.Report, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, string(*filter.Status))
		argIndex++
	}

	if filter.ReviewID != nil {
		conditions = append(conditions, fmt.Sprintf("review_id = $%d", argIndex))
		args = append(args, *filter.ReviewID)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s,
		       count(*) OVER() AS total_count
		FROM review_reports
		%s
		ORDER BY created_at ASC, id
		LIMIT $%d OFFSET $%d`,
		reportColumns, whereClause, argIndex, argIndex+1,
	)

	limit, offset := limitOffset(filter.Page, filter.PerPage)
	args = append(args, limit, offset)

	ctx, end := database.TraceQuery(ctx, "ListReports", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var (
		reports    []domain.Report
		totalCount int
	)

	for rows.Next() {
		var (
			rp             domain.Report
			reason, status string
		)
		if err := rows.Scan(
			&rp.ID,
			&rp.ReviewID,
			&reason,
			&rp.Description,
			&rp.ReporterEmail,
			&status,
			&rp.ResolvedBy,
			&rp.ResolvedAt,
			&rp.CreatedAt,
			&rp.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan report row: %w", err)
		}
		rp.Reason = domain.ReportReason(reason)
		rp.Status = domain.ReportStatus(status)
		reports = append(reports, rp)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate report rows: %w", err)
	}

	if reports == nil {
		reports = []domain.Report{}
	}

	if len(reports) == 0 && offset > 0 {
		rows.Close()
		totalCount, err = countRows(ctx, r.pool, "CountReports",
			"SELECT count(*) FROM review_reports "+whereClause, args[:len(args)-2]...)
		if err != nil {
			return nil, 0, err
		}
	}

	return reports, totalCount, nil
}

// Resolve adjudicates a pending report. The status change is conditional on
// the row still being PENDING, so two admins racing on one report cannot both
// succeed. Approval deletes the reported review inside the same transaction.
func (r *ReportRepository) Resolve(ctx context.Context, id string, status domain.ReportStatus, resolvedBy string, at time.Time) (_ *repository.ReportResolution, err error) {
	updateQuery := `
		UPDATE review_reports
		SET status = $1, resolved_by = $2, resolved_at = $3, updated_at = $3
		WHERE id = $4 AND status = 'PENDING'
		RETURNING ` + reportColumns

	ctx, end := database.TraceQuery(ctx, "ResolveReport", updateQuery)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rp, err := scanReport(tx.QueryRow(ctx, updateQuery, string(status), resolvedBy, at, id))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update report status: %w", err)
		}
		return nil, r.unresolvable(ctx, tx, id)
	}

	res := &repository.ReportResolution{Report: rp}

	if status == domain.ReportStatusApproved {
		deleteQuery := `DELETE FROM reviews WHERE id = $1 RETURNING ` + reviewColumns

		var rv domain.Review
		err := tx.QueryRow(ctx, deleteQuery, rp.ReviewID).Scan(reviewDest(&rv)...)
		switch {
		case err == nil:
			res.DeletedReview = &rv
		case errors.Is(err, pgx.ErrNoRows):
			// Already removed by moderation or an earlier report.
		default:
			return nil, fmt.Errorf("delete reported review: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return res, nil
}

// unresolvable explains why the conditional update matched no row.
func (r *ReportRepository) unresolvable(ctx context.Context, tx pgx.Tx, id string) error {
	var status string
	err := tx.QueryRow(ctx, `SELECT status FROM review_reports WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound("report", id)
	}
	if err != nil {
		return fmt.Errorf("load report status: %w", err)
	}
	return apperrors.InvalidState(fmt.Sprintf("report %s is already %s", id, status))
}

func scanReport(row pgx.Row) (*domain.Report, error) {
	var (
		rp             domain.Report
		reason, status string
	)
	if err := row.Scan(
		&rp.ID,
		&rp.ReviewID,
		&reason,
		&rp.Description,
		&rp.ReporterEmail,
		&status,
		&rp.ResolvedBy,
		&rp.ResolvedAt,
		&rp.CreatedAt,
		&rp.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rp.Reason = domain.ReportReason(reason)
	rp.Status = domain.ReportStatus(status)
	return &rp, nil
}
