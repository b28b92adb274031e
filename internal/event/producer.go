package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/pkg/logger"
	pkgkafka "github.com/murabaat/review-service/pkg/kafka"
)

// Kafka topics for review domain events.
var (
	TopicReviewSubmitted   = pkgkafka.Topic("review", "submitted")
	TopicReviewApproved    = pkgkafka.Topic("review", "approved")
	TopicReviewDeleted     = pkgkafka.Topic("review", "deleted")
	TopicReportAdjudicated = pkgkafka.Topic("report", "adjudicated")
)

// Aggregate types.
const (
	AggregateTypeReview = "review"
	AggregateTypeReport = "report"
)

// SourceReviewService identifies events originating from this service.
const SourceReviewService = "review-service"

// Reasons a review was deleted.
const (
	DeleteReasonRejected       = "rejected"
	DeleteReasonReportApproved = "report_approved"
)

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	ReviewID  string    `json:"review_id"`
	CompanyID string    `json:"company_id"`
	UserID    *string   `json:"user_id,omitempty"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

// ReviewApprovedData is the payload for a review.approved event.
// AggregateStale is true when the synchronous recompute did not succeed.
type ReviewApprovedData struct {
	ReviewID       string  `json:"review_id"`
	CompanyID      string  `json:"company_id"`
	Rating         int     `json:"rating"`
	ApprovedBy     string  `json:"approved_by"`
	AggregateStale bool    `json:"aggregate_stale"`
	CompanyRating  float64 `json:"company_rating"`
	ReviewsCount   int     `json:"reviews_count"`
}

// ReviewDeletedData is the payload for a review.deleted event.
type ReviewDeletedData struct {
	ReviewID       string `json:"review_id"`
	CompanyID      string `json:"company_id"`
	WasApproved    bool   `json:"was_approved"`
	Reason         string `json:"reason"`
	DeletedBy      string `json:"deleted_by"`
	AggregateStale bool   `json:"aggregate_stale"`
}

// ReportAdjudicatedData is the payload for a report.adjudicated event.
type ReportAdjudicatedData struct {
	ReportID      string              `json:"report_id"`
	ReviewID      string              `json:"review_id"`
	Reason        domain.ReportReason `json:"reason"`
	Status        domain.ReportStatus `json:"status"`
	ResolvedBy    string              `json:"resolved_by"`
	ReviewDeleted bool                `json:"review_deleted"`
}

// Producer publishes review domain events. A Producer with a nil publisher
// drops events, which is how the service runs with Kafka disabled.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the review service.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

// Enabled reports whether events are actually sent.
func (p *Producer) Enabled() bool {
	return p != nil && p.publisher != nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if !p.Enabled() {
		return nil
	}

	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceReviewService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	evt.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishReviewSubmitted publishes a review.submitted event keyed by company.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review) error {
	return p.publish(ctx, TopicReviewSubmitted, review.CompanyID, AggregateTypeReview, ReviewSubmittedData{
		ReviewID:  review.ID,
		CompanyID: review.CompanyID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		CreatedAt: review.CreatedAt,
	})
}

// PublishReviewApproved publishes a review.approved event.
func (p *Producer) PublishReviewApproved(ctx context.Context, data ReviewApprovedData) error {
	return p.publish(ctx, TopicReviewApproved, data.CompanyID, AggregateTypeReview, data)
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, data ReviewDeletedData) error {
	return p.publish(ctx, TopicReviewDeleted, data.CompanyID, AggregateTypeReview, data)
}

// PublishReportAdjudicated publishes a report.adjudicated event.
func (p *Producer) PublishReportAdjudicated(ctx context.Context, data ReportAdjudicatedData) error {
	return p.publish(ctx, TopicReportAdjudicated, data.ReportID, AggregateTypeReport, data)
}
