// Package postgres implements the repository interfaces on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/murabaat/review-service/internal/repository"
	"github.com/murabaat/review-service/pkg/database"
	"github.com/murabaat/review-service/pkg/pagination"
)

var (
	_ repository.CompanyRepository = (*CompanyRepository)(nil)
	_ repository.ReviewRepository  = (*ReviewRepository)(nil)
	_ repository.ReplyRepository   = (*ReplyRepository)(nil)
	_ repository.ReportRepository  = (*ReportRepository)(nil)
)

const uniqueViolation = "23505"

// isUniqueViolation checks for SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// limitOffset normalizes repository paging arguments.
func limitOffset(page, perPage int) (int, int) {
	p := pagination.New(page, perPage)
	return p.PerPage, p.Offset()
}

// countRows runs a plain count for pages requested past the last row, where
// count(*) OVER() has no row to report the total on.
func countRows(ctx context.Context, db database.DBTX, op, query string, args ...any) (_ int, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var total int
	if err = db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return total, nil
}
