package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/event"
	"github.com/murabaat/review-service/internal/repository"
	apperrors "github.com/murabaat/review-service/pkg/errors"
)

// Moderation actions accepted by the admin review endpoint.
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

func requireAdmin(principal domain.Principal) error {
	if !principal.IsAdmin() {
		return apperrors.Unauthorized("admin role required")
	}
	return nil
}

// deletionFollowUp runs after a review row has been removed, either by a
// rejection or by an approved report.
type deletionFollowUp struct {
	aggregator        *AggregatorService
	producer          *event.Producer
	recomputeOnDelete bool
	logger            *slog.Logger
}

func (d *deletionFollowUp) reviewDeleted(ctx context.Context, review *domain.Review, reason, trigger string, by domain.Principal) {
	stale := false
	if review.IsApproved {
		if d.recomputeOnDelete {
			_, ok := d.aggregator.recomputeAfterWrite(ctx, review.CompanyID, trigger)
			stale = !ok
		} else {
			stale = true
			d.logger.WarnContext(ctx, "approved review deleted without recompute, company aggregate is stale",
				slog.String("review_id", review.ID),
				slog.String("company_id", review.CompanyID),
			)
		}
	}

	if err := d.producer.PublishReviewDeleted(ctx, event.ReviewDeletedData{
		ReviewID:       review.ID,
		CompanyID:      review.CompanyID,
		WasApproved:    review.IsApproved,
		Reason:         reason,
		DeletedBy:      by.UserID,
		AggregateStale: stale,
	}); err != nil {
		d.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
}

// ModerationService moves reviews between pending, approved and deleted.
type ModerationService struct {
	reviews    repository.ReviewRepository
	aggregator *AggregatorService
	producer   *event.Producer
	deletion   *deletionFollowUp
	logger     *slog.Logger
}

// NewModerationService creates a new moderation gate. When recomputeOnDelete
// is false, rejecting an approved review leaves the company aggregate as it
// was until the next explicit recompute.
func NewModerationService(
	reviews repository.ReviewRepository,
	aggregator *AggregatorService,
	producer *event.Producer,
	recomputeOnDelete bool,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{
		reviews:    reviews,
		aggregator: aggregator,
		producer:   producer,
		deletion: &deletionFollowUp{
			aggregator:        aggregator,
			producer:          producer,
			recomputeOnDelete: recomputeOnDelete,
			logger:            logger,
		},
		logger: logger,
	}
}

// Moderate dispatches an admin action to Approve or Reject.
func (s *ModerationService) Moderate(ctx context.Context, principal domain.Principal, reviewID, action string) (*domain.Review, error) {
	switch action {
	case ActionApprove:
		return s.Approve(ctx, principal, reviewID)
	case ActionReject:
		return s.Reject(ctx, principal, reviewID)
	default:
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid action %q", action))
	}
}

// Approve marks a review approved and recomputes its company's aggregate.
// Re-approving recomputes but neither counts nor publishes again.
func (s *ModerationService) Approve(ctx context.Context, principal domain.Principal, reviewID string) (*domain.Review, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	review, changed, err := s.reviews.Approve(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("approve review: %w", err)
	}
	if !changed {
		s.logger.DebugContext(ctx, "review already approved",
			slog.String("review_id", review.ID),
		)
		s.aggregator.recomputeAfterWrite(ctx, review.CompanyID, triggerApprove)
		return review, nil
	}
	reviewsModerated.WithLabelValues(ActionApprove).Inc()

	s.logger.InfoContext(ctx, "review approved",
		slog.String("review_id", review.ID),
		slog.String("company_id", review.CompanyID),
		slog.String("admin_id", principal.UserID),
	)

	agg, ok := s.aggregator.recomputeAfterWrite(ctx, review.CompanyID, triggerApprove)

	if err := s.producer.PublishReviewApproved(ctx, event.ReviewApprovedData{
		ReviewID:       review.ID,
		CompanyID:      review.CompanyID,
		Rating:         review.Rating,
		ApprovedBy:     principal.UserID,
		AggregateStale: !ok,
		CompanyRating:  agg.Rating,
		ReviewsCount:   agg.ReviewsCount,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.approved event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	return review, nil
}

// Reject deletes a review whether it is pending or approved and returns the
// deleted row.
func (s *ModerationService) Reject(ctx context.Context, principal domain.Principal, reviewID string) (*domain.Review, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	review, err := s.reviews.Delete(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("reject review: %w", err)
	}
	reviewsModerated.WithLabelValues(ActionReject).Inc()

	s.logger.InfoContext(ctx, "review rejected",
		slog.String("review_id", review.ID),
		slog.String("company_id", review.CompanyID),
		slog.Bool("was_approved", review.IsApproved),
		slog.String("admin_id", principal.UserID),
	)

	s.deletion.reviewDeleted(ctx, review, event.DeleteReasonRejected, triggerReject, principal)

	return review, nil
}
