package postgres

import (
	"context"
	"fmt"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/pkg/database"
)

// ReplyRepository implements reply persistence operations using PostgreSQL.
type ReplyRepository struct {
	pool database.DBTX
}

// NewReplyRepository creates a new PostgreSQL-backed reply repository.
func NewReplyRepository(pool database.DBTX) *ReplyRepository {
	return &ReplyRepository{pool: pool}
}

// Create inserts a new reply into the database.
func (r *ReplyRepository) Create(ctx context.Context, reply *domain.Reply) (err error) {
	query := `
		INSERT INTO review_replies (id, review_id, user_id, content, is_from_owner, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	ctx, end := database.TraceQuery(ctx, "CreateReply", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		reply.ID,
		reply.ReviewID,
		reply.UserID,
		reply.Content,
		reply.IsFromOwner,
		reply.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert reply: %w", err)
	}

	return nil
}

// ListByReviewIDs loads the replies of several reviews in one query.
func (r *ReplyRepository) ListByReviewIDs(ctx context.Context, reviewIDs []string) (_ map[string][]domain.Reply, err error) {
	out := make(map[string][]domain.Reply, len(reviewIDs))
	if len(reviewIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT id, review_id, user_id, content, is_from_owner, created_at
		FROM review_replies
		WHERE review_id = ANY($1)
		ORDER BY created_at ASC, id`

	ctx, end := database.TraceQuery(ctx, "ListRepliesByReviewIDs", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, reviewIDs)
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rp domain.Reply
		if err := rows.Scan(
			&rp.ID,
			&rp.ReviewID,
			&rp.UserID,
			&rp.Content,
			&rp.IsFromOwner,
			&rp.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reply row: %w", err)
		}
		out[rp.ReviewID] = append(out[rp.ReviewID], rp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reply rows: %w", err)
	}

	return out, nil
}
