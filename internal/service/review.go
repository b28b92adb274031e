package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/event"
	"github.com/murabaat/review-service/internal/repository"
	apperrors "github.com/murabaat/review-service/pkg/errors"
	"github.com/murabaat/review-service/pkg/pagination"
)

// SubmitReviewInput holds the parameters for submitting a review.
// UserName and UserEmail are required only for anonymous submissions.
type SubmitReviewInput struct {
	CompanyID string
	Rating    int
	Title     string
	Comment   string
	UserName  string
	UserEmail string
}

// ReviewService implements review submission, public listings, helpful
// votes and the moderation queue.
type ReviewService struct {
	reviews   repository.ReviewRepository
	replies   repository.ReplyRepository
	companies repository.CompanyRepository
	producer  *event.Producer
	logger    *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviews repository.ReviewRepository,
	replies repository.ReplyRepository,
	companies repository.CompanyRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviews:   reviews,
		replies:   replies,
		companies: companies,
		producer:  producer,
		logger:    logger,
	}
}

// SubmitReview stores a new pending review for an active company. The
// company aggregate is not touched until the review is approved.
func (s *ReviewService) SubmitReview(ctx context.Context, principal domain.Principal, input *SubmitReviewInput) (*domain.Review, error) {
	if !domain.IsValidRating(input.Rating) {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}
	comment := strings.TrimSpace(input.Comment)
	if comment == "" {
		return nil, apperrors.InvalidInput("comment is required")
	}

	review := &domain.Review{
		ID:        uuid.New().String(),
		CompanyID: input.CompanyID,
		Rating:    input.Rating,
		Title:     strings.TrimSpace(input.Title),
		Comment:   comment,
		UserName:  strings.TrimSpace(input.UserName),
		UserEmail: strings.TrimSpace(input.UserEmail),
	}

	if principal.IsAuthenticated() {
		userID := principal.UserID
		review.UserID = &userID
	} else if review.UserName == "" || review.UserEmail == "" {
		return nil, apperrors.InvalidInput("user_name and user_email are required for anonymous reviews")
	}

	company, err := s.companies.GetByID(ctx, input.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	if !company.IsActive {
		return nil, apperrors.NotFound("company", input.CompanyID)
	}

	now := time.Now().UTC()
	review.CreatedAt = now
	review.UpdatedAt = now

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}
	reviewsSubmitted.Inc()

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", review.ID),
		slog.String("company_id", review.CompanyID),
		slog.Int("rating", review.Rating),
		slog.Bool("anonymous", review.IsAnonymous()),
	)

	if err := s.producer.PublishReviewSubmitted(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.submitted event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	return review, nil
}

// GetReview returns a review with its replies regardless of approval state.
func (s *ReviewService) GetReview(ctx context.Context, id string) (*domain.Review, error) {
	review, err := s.reviews.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}

	replies, err := s.replies.ListByReviewIDs(ctx, []string{review.ID})
	if err != nil {
		return nil, fmt.Errorf("list replies: %w", err)
	}
	review.Replies = replies[review.ID]
	return review, nil
}

// ListPublic returns a page of a company's approved reviews, newest first,
// each with its replies. Pending reviews never appear.
func (s *ReviewService) ListPublic(ctx context.Context, companyID string, p pagination.Params) ([]domain.Review, int, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, 0, fmt.Errorf("get company: %w", err)
	}
	if !company.IsActive {
		return nil, 0, apperrors.NotFound("company", companyID)
	}

	reviews, total, err := s.reviews.ListApproved(ctx, companyID, p.Page, p.PerPage)
	if err != nil {
		return nil, 0, fmt.Errorf("list approved reviews: %w", err)
	}

	if err := s.attachReplies(ctx, reviews); err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

func (s *ReviewService) attachReplies(ctx context.Context, reviews []domain.Review) error {
	if len(reviews) == 0 {
		return nil
	}
	ids := make([]string, len(reviews))
	for i := range reviews {
		ids[i] = reviews[i].ID
	}

	byReview, err := s.replies.ListByReviewIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("list replies: %w", err)
	}
	for i := range reviews {
		reviews[i].Replies = byReview[reviews[i].ID]
	}
	return nil
}

// MarkHelpful increments the helpful or not-helpful counter of an approved
// review by one. Pending reviews are not found. Votes are not de-duplicated
// per visitor.
func (s *ReviewService) MarkHelpful(ctx context.Context, reviewID string, helpful bool) (*domain.HelpfulCounts, error) {
	counts, err := s.reviews.IncrementHelpful(ctx, reviewID, helpful)
	if err != nil {
		return nil, fmt.Errorf("mark review helpful: %w", err)
	}

	s.logger.DebugContext(ctx, "review vote recorded",
		slog.String("review_id", reviewID),
		slog.Bool("helpful", helpful),
	)

	return counts, nil
}

// ListQueue returns the admin moderation queue, oldest first. status is one
// of pending, approved or all; empty means pending.
func (s *ReviewService) ListQueue(ctx context.Context, principal domain.Principal, companyID, status string, p pagination.Params) ([]domain.Review, int, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, 0, err
	}

	if status == "" {
		status = domain.ReviewFilterPending
	}
	if !domain.IsValidReviewFilter(status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status filter %q", status))
	}

	filter := repository.ReviewFilter{
		Status:  status,
		Page:    p.Page,
		PerPage: p.PerPage,
	}
	if companyID != "" {
		filter.CompanyID = &companyID
	}

	reviews, total, err := s.reviews.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list moderation queue: %w", err)
	}
	return reviews, total, nil
}
