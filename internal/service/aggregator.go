package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/repository"
	"github.com/murabaat/review-service/internal/search"
)

// CompanyCache is the read-through cache of public company documents. A nil
// CompanyCache disables caching. Reads fill it with Add; writes overwrite
// with Set.
type CompanyCache interface {
	Get(ctx context.Context, id string) (*domain.Company, bool, error)
	IDForSlug(ctx context.Context, slug string) (string, bool, error)
	Add(ctx context.Context, company *domain.Company) (bool, error)
	Set(ctx context.Context, company *domain.Company) error
	Invalidate(ctx context.Context, id string) error
}

// overwriteCached replaces the cached document with the committed company
// reloaded from companies. When the reload fails the entry is dropped.
func overwriteCached(ctx context.Context, cache CompanyCache, companies repository.CompanyRepository, id string, logger *slog.Logger) *domain.Company {
	company, err := companies.GetByID(ctx, id)
	if err != nil {
		logger.WarnContext(ctx, "failed to reload company after write",
			slog.String("company_id", id),
			slog.String("error", err.Error()),
		)
		if cache != nil {
			if err := cache.Invalidate(ctx, id); err != nil {
				logger.WarnContext(ctx, "failed to invalidate company cache",
					slog.String("company_id", id),
					slog.String("error", err.Error()),
				)
			}
		}
		return nil
	}

	if cache != nil {
		if err := cache.Set(ctx, company); err != nil {
			logger.WarnContext(ctx, "failed to refresh company cache",
				slog.String("company_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return company
}

// RecomputeSummary reports the progress of a full recompute.
type RecomputeSummary struct {
	Total      int `json:"total"`
	Recomputed int `json:"recomputed"`
}

// AggregatorService keeps each company's rating and reviews count equal to
// the aggregate of its approved reviews.
type AggregatorService struct {
	companies repository.CompanyRepository
	reviews   repository.ReviewRepository
	cache     CompanyCache
	search    search.Engine
	logger    *slog.Logger
}

// NewAggregatorService creates a new rating aggregator.
func NewAggregatorService(
	companies repository.CompanyRepository,
	reviews repository.ReviewRepository,
	cache CompanyCache,
	logger *slog.Logger,
) *AggregatorService {
	return &AggregatorService{
		companies: companies,
		reviews:   reviews,
		cache:     cache,
		logger:    logger,
	}
}

// WithSearchIndex makes every recompute refresh the company's search
// document.
func (s *AggregatorService) WithSearchIndex(idx search.Engine) *AggregatorService {
	s.search = idx
	return s
}

// RecomputeCompanyRating reads the approved ratings of a company and writes
// the rounded average and count back in a single update. It fails with a
// not found error when the company does not exist.
//
// There is no lock across the read and the write; two concurrent recomputes
// for the same company race and the last write wins. Any later recompute
// converges.
func (s *AggregatorService) RecomputeCompanyRating(ctx context.Context, companyID string) (domain.Aggregate, error) {
	ratings, err := s.reviews.ApprovedRatings(ctx, companyID)
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("load approved ratings: %w", err)
	}

	agg := domain.ComputeAggregate(ratings)
	if err := s.companies.UpdateAggregate(ctx, companyID, agg); err != nil {
		return domain.Aggregate{}, fmt.Errorf("update company aggregate: %w", err)
	}

	if s.cache != nil || s.search != nil {
		if company := overwriteCached(ctx, s.cache, s.companies, companyID, s.logger); company != nil {
			s.reindex(ctx, company)
		}
	}

	s.logger.InfoContext(ctx, "company aggregate recomputed",
		slog.String("company_id", companyID),
		slog.Float64("rating", agg.Rating),
		slog.Int("reviews_count", agg.ReviewsCount),
	)

	return agg, nil
}

// RecomputeAllCompanyRatings recomputes every company sequentially. It stops
// at the first failure; companies already processed keep their corrected
// aggregate and the run can simply be repeated.
func (s *AggregatorService) RecomputeAllCompanyRatings(ctx context.Context) (*RecomputeSummary, error) {
	ids, err := s.companies.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list company ids: %w", err)
	}

	summary := &RecomputeSummary{Total: len(ids)}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if _, err := s.RecomputeCompanyRating(ctx, id); err != nil {
			return summary, fmt.Errorf("recompute company %s: %w", id, err)
		}
		summary.Recomputed++
	}

	s.logger.InfoContext(ctx, "all company aggregates recomputed",
		slog.Int("companies", summary.Recomputed),
	)

	return summary, nil
}

// reindex refreshes the search document so rating filters and sorts see the
// new aggregate. Inactive companies are removed instead.
func (s *AggregatorService) reindex(ctx context.Context, company *domain.Company) {
	if s.search == nil {
		return
	}

	var err error
	if company.IsActive {
		doc := domain.NewCompanyDocument(company)
		err = s.search.Index(ctx, &doc)
	} else {
		err = s.search.Delete(ctx, company.ID)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to refresh company search document",
			slog.String("company_id", company.ID),
			slog.String("error", err.Error()),
		)
	}
}

// recomputeAfterWrite runs the aggregator after a committed moderation
// write. A failure is logged and counted but never returned: the write
// stands and the aggregate stays stale until the next recompute.
func (s *AggregatorService) recomputeAfterWrite(ctx context.Context, companyID, trigger string) (domain.Aggregate, bool) {
	agg, err := s.RecomputeCompanyRating(ctx, companyID)
	if err != nil {
		recomputeFailures.WithLabelValues(trigger).Inc()
		s.logger.ErrorContext(ctx, "company aggregate recompute failed after moderation write",
			slog.String("company_id", companyID),
			slog.String("trigger", trigger),
			slog.String("error", err.Error()),
		)
		return domain.Aggregate{}, false
	}
	return agg, true
}
