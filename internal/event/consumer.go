package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/murabaat/review-service/internal/domain"
	apperrors "github.com/murabaat/review-service/pkg/errors"
	pkgkafka "github.com/murabaat/review-service/pkg/kafka"
)

// Recomputer recomputes one company's rating aggregate.
type Recomputer interface {
	RecomputeCompanyRating(ctx context.Context, companyID string) (domain.Aggregate, error)
}

type staleAggregate struct {
	CompanyID      string `json:"company_id"`
	AggregateStale bool   `json:"aggregate_stale"`
}

// AggregateRepairHandler consumes review.approved and review.deleted events
// and recomputes the company aggregate when the producer flagged it stale.
// A company that no longer exists is skipped rather than retried.
func AggregateRepairHandler(recomputer Recomputer, logger *slog.Logger) pkgkafka.Handler {
	return func(ctx context.Context, evt *pkgkafka.Event) error {
		var data staleAggregate
		if err := evt.UnmarshalData(&data); err != nil {
			return fmt.Errorf("decode %s payload: %w", evt.EventType, err)
		}
		if !data.AggregateStale || data.CompanyID == "" {
			return nil
		}

		agg, err := recomputer.RecomputeCompanyRating(ctx, data.CompanyID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				logger.WarnContext(ctx, "skipping aggregate repair for missing company",
					slog.String("company_id", data.CompanyID),
					slog.String("event_id", evt.EventID),
				)
				return nil
			}
			return fmt.Errorf("repair aggregate for company %s: %w", data.CompanyID, err)
		}

		logger.InfoContext(ctx, "company aggregate repaired from event",
			slog.String("company_id", data.CompanyID),
			slog.String("event_type", evt.EventType),
			slog.Float64("rating", agg.Rating),
			slog.Int("reviews_count", agg.ReviewsCount),
		)
		return nil
	}
}
