package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/repository"
	apperrors "github.com/murabaat/review-service/pkg/errors"
)

// AddReplyInput holds the parameters for replying to a review.
type AddReplyInput struct {
	ReviewID string
	Content  string
}

// ReplyService attaches replies to approved reviews.
type ReplyService struct {
	replies   repository.ReplyRepository
	reviews   repository.ReviewRepository
	companies repository.CompanyRepository
	logger    *slog.Logger
}

// NewReplyService creates a new reply service.
func NewReplyService(
	replies repository.ReplyRepository,
	reviews repository.ReviewRepository,
	companies repository.CompanyRepository,
	logger *slog.Logger,
) *ReplyService {
	return &ReplyService{
		replies:   replies,
		reviews:   reviews,
		companies: companies,
		logger:    logger,
	}
}

// AddReply creates a reply authored by principal. IsFromOwner is set only
// when the principal is the registered owner of the review's company.
func (s *ReplyService) AddReply(ctx context.Context, principal domain.Principal, input *AddReplyInput) (*domain.Reply, error) {
	if !principal.IsAuthenticated() {
		return nil, apperrors.Unauthorized("authentication required")
	}
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.InvalidInput("content is required")
	}

	review, err := s.reviews.GetByID(ctx, input.ReviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	if !review.IsApproved {
		return nil, apperrors.InvalidState(fmt.Sprintf("review %s is pending moderation", review.ID))
	}

	company, err := s.companies.GetByID(ctx, review.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("get review company: %w", err)
	}

	reply := &domain.Reply{
		ID:          uuid.New().String(),
		ReviewID:    review.ID,
		UserID:      principal.UserID,
		Content:     content,
		IsFromOwner: company.IsOwnedBy(principal.UserID),
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.replies.Create(ctx, reply); err != nil {
		return nil, fmt.Errorf("create reply: %w", err)
	}

	s.logger.InfoContext(ctx, "reply added",
		slog.String("reply_id", reply.ID),
		slog.String("review_id", reply.ReviewID),
		slog.String("company_id", review.CompanyID),
		slog.Bool("is_from_owner", reply.IsFromOwner),
	)

	return reply, nil
}
