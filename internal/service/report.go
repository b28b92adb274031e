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

// SubmitReportInput holds the parameters for flagging a review.
type SubmitReportInput struct {
	ReviewID      string
	Reason        domain.ReportReason
	Description   string
	ReporterEmail *string
}

// ReportService files reports against reviews and lets admins adjudicate
// them.
type ReportService struct {
	reports  repository.ReportRepository
	reviews  repository.ReviewRepository
	producer *event.Producer
	deletion *deletionFollowUp
	logger   *slog.Logger
}

// NewReportService creates a new report pipeline. recomputeOnDelete has the
// same meaning as for NewModerationService.
func NewReportService(
	reports repository.ReportRepository,
	reviews repository.ReviewRepository,
	aggregator *AggregatorService,
	producer *event.Producer,
	recomputeOnDelete bool,
	logger *slog.Logger,
) *ReportService {
	return &ReportService{
		reports:  reports,
		reviews:  reviews,
		producer: producer,
		deletion: &deletionFollowUp{
			aggregator:        aggregator,
			producer:          producer,
			recomputeOnDelete: recomputeOnDelete,
			logger:            logger,
		},
		logger: logger,
	}
}

// SubmitReport creates a PENDING report against an approved review. Pending
// reviews are not public and report as not found.
func (s *ReportService) SubmitReport(ctx context.Context, input *SubmitReportInput) (*domain.Report, error) {
	if !input.Reason.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid report reason %q", input.Reason))
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.InvalidInput("description is required")
	}

	review, err := s.reviews.GetByID(ctx, input.ReviewID)
	if err != nil {
		return nil, fmt.Errorf("get reported review: %w", err)
	}
	if !review.IsApproved {
		return nil, apperrors.NotFound("review", input.ReviewID)
	}

	now := time.Now().UTC()
	report := &domain.Report{
		ID:            uuid.New().String(),
		ReviewID:      input.ReviewID,
		Reason:        input.Reason,
		Description:   description,
		ReporterEmail: input.ReporterEmail,
		Status:        domain.ReportStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	reportsSubmitted.WithLabelValues(string(report.Reason)).Inc()

	s.logger.InfoContext(ctx, "review reported",
		slog.String("report_id", report.ID),
		slog.String("review_id", report.ReviewID),
		slog.String("reason", string(report.Reason)),
	)

	return report, nil
}

// AdjudicateReport resolves a PENDING report. Approving it deletes the
// reported review in the same transaction; rejecting it leaves the review
// untouched. A report that was already adjudicated fails with an invalid
// state error.
func (s *ReportService) AdjudicateReport(ctx context.Context, principal domain.Principal, reportID, decision string) (*domain.Report, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	status, ok := domain.StatusForDecision(decision)
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid decision %q", decision))
	}

	res, err := s.reports.Resolve(ctx, reportID, status, principal.UserID, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("adjudicate report: %w", err)
	}
	reportsAdjudicated.WithLabelValues(decision).Inc()

	report := res.Report
	s.logger.InfoContext(ctx, "report adjudicated",
		slog.String("report_id", report.ID),
		slog.String("review_id", report.ReviewID),
		slog.String("status", string(report.Status)),
		slog.Bool("review_deleted", res.DeletedReview != nil),
		slog.String("admin_id", principal.UserID),
	)

	if res.DeletedReview != nil {
		s.deletion.reviewDeleted(ctx, res.DeletedReview, event.DeleteReasonReportApproved, triggerReportApproved, principal)
	}

	if err := s.producer.PublishReportAdjudicated(ctx, event.ReportAdjudicatedData{
		ReportID:      report.ID,
		ReviewID:      report.ReviewID,
		Reason:        report.Reason,
		Status:        report.Status,
		ResolvedBy:    principal.UserID,
		ReviewDeleted: res.DeletedReview != nil,
	}); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish report.adjudicated event",
			slog.String("report_id", report.ID),
			slog.String("error", err.Error()),
		)
	}

	return report, nil
}

// ListReports returns the admin report queue. An empty status lists every
// report.
func (s *ReportService) ListReports(ctx context.Context, principal domain.Principal, status string, p pagination.Params) ([]domain.Report, int, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, 0, err
	}

	filter := repository.ReportFilter{}
	if status != "" {
		st := domain.ReportStatus(strings.ToUpper(status))
		if !st.IsValid() {
			return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid report status %q", status))
		}
		filter.Status = &st
	}
	filter.Page, filter.PerPage = p.Page, p.PerPage

	reports, total, err := s.reports.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	return reports, total, nil
}
