// Package memory is an in-process implementation of the repository
// interfaces, used for local runs without PostgreSQL and in service tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/repository"
	apperrors "github.com/murabaat/review-service/pkg/errors"
	"github.com/murabaat/review-service/pkg/pagination"
)

// Store holds every entity behind one lock so multi-entity operations such
// as report approval stay atomic, like the transaction in the SQL store.
type Store struct {
	mu        sync.RWMutex
	companies map[string]domain.Company
	reviews   map[string]domain.Review
	replies   map[string][]domain.Reply
	reports   map[string]domain.Report
}

// New creates an empty store.
func New() *Store {
	return &Store{
		companies: make(map[string]domain.Company),
		reviews:   make(map[string]domain.Review),
		replies:   make(map[string][]domain.Reply),
		reports:   make(map[string]domain.Report),
	}
}

// Companies returns the company repository view of the store.
func (s *Store) Companies() *CompanyRepository { return &CompanyRepository{s: s} }

// Reviews returns the review repository view of the store.
func (s *Store) Reviews() *ReviewRepository { return &ReviewRepository{s: s} }

// Replies returns the reply repository view of the store.
func (s *Store) Replies() *ReplyRepository { return &ReplyRepository{s: s} }

// Reports returns the report repository view of the store.
func (s *Store) Reports() *ReportRepository { return &ReportRepository{s: s} }

func page[T any](items []T, p, perPage int) []T {
	start, end := pagination.New(p, perPage).Bounds(len(items))
	out := make([]T, end-start)
	copy(out, items[start:end])
	return out
}

// --- companies ---

// CompanyRepository is the in-memory repository.CompanyRepository.
type CompanyRepository struct{ s *Store }

func (r *CompanyRepository) Create(_ context.Context, c *domain.Company) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.companies {
		if existing.Slug == c.Slug {
			return apperrors.AlreadyExists("company", "slug", c.Slug)
		}
	}
	r.s.companies[c.ID] = *c
	return nil
}

func (r *CompanyRepository) GetByID(_ context.Context, id string) (*domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.companies[id]
	if !ok {
		return nil, apperrors.NotFound("company", id)
	}
	return &c, nil
}

func (r *CompanyRepository) GetBySlug(_ context.Context, slug string) (*domain.Company, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.companies {
		if c.Slug == slug {
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("company", slug)
}

func (r *CompanyRepository) List(_ context.Context, f repository.CompanyFilter) ([]domain.Company, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []domain.Company
	for _, c := range r.s.companies {
		switch {
		case f.ActiveOnly && !c.IsActive,
			f.CountryID != nil && c.CountryID != *f.CountryID,
			f.CityID != nil && c.CityID != *f.CityID,
			f.CategoryID != nil && c.CategoryID != *f.CategoryID,
			f.Featured != nil && c.IsFeatured != *f.Featured:
			continue
		}
		matched = append(matched, c)
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch f.Sort {
		case domain.CompanySortRating:
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
			if a.ReviewsCount != b.ReviewsCount {
				return a.ReviewsCount > b.ReviewsCount
			}
		case domain.CompanySortReviews:
			if a.ReviewsCount != b.ReviewsCount {
				return a.ReviewsCount > b.ReviewsCount
			}
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		case domain.CompanySortNewest:
		default:
			if a.IsFeatured != b.IsFeatured {
				return a.IsFeatured
			}
			if a.Rating != b.Rating {
				return a.Rating > b.Rating
			}
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	return page(matched, f.Page, f.PerPage), len(matched), nil
}

func (r *CompanyRepository) ListIDs(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := make([]domain.Company, 0, len(r.s.companies))
	for _, c := range r.s.companies {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].ID < all[j].ID
	})

	ids := make([]string, len(all))
	for i, c := range all {
		ids[i] = c.ID
	}
	return ids, nil
}

func (r *CompanyRepository) UpdateAggregate(_ context.Context, id string, agg domain.Aggregate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.companies[id]
	if !ok {
		return apperrors.NotFound("company", id)
	}
	c.Rating = agg.Rating
	c.ReviewsCount = agg.ReviewsCount
	c.UpdatedAt = time.Now().UTC()
	r.s.companies[id] = c
	return nil
}

func (r *CompanyRepository) Deactivate(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.companies[id]
	if !ok {
		return apperrors.NotFound("company", id)
	}
	c.IsActive = false
	c.UpdatedAt = time.Now().UTC()
	r.s.companies[id] = c
	return nil
}

// --- reviews ---

// ReviewRepository is the in-memory repository.ReviewRepository.
type ReviewRepository struct{ s *Store }

func (r *ReviewRepository) Create(_ context.Context, rv *domain.Review) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.companies[rv.CompanyID]; !ok {
		return fmt.Errorf("insert review: company %s does not exist", rv.CompanyID)
	}
	stored := *rv
	stored.Replies = nil
	r.s.reviews[rv.ID] = stored
	return nil
}

func (r *ReviewRepository) GetByID(_ context.Context, id string) (*domain.Review, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	return &rv, nil
}

func (r *ReviewRepository) ApprovedRatings(_ context.Context, companyID string) ([]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ratings := []int{}
	for _, rv := range r.s.reviews {
		if rv.CompanyID == companyID && rv.IsApproved {
			ratings = append(ratings, rv.Rating)
		}
	}
	return ratings, nil
}

func (r *ReviewRepository) ListApproved(_ context.Context, companyID string, p, perPage int) ([]domain.Review, int, error) {
	approved := true
	matched := r.filter(companyID, &approved)
	sortReviews(matched, false)
	return page(matched, p, perPage), len(matched), nil
}

func (r *ReviewRepository) List(_ context.Context, f repository.ReviewFilter) ([]domain.Review, int, error) {
	var approved *bool
	switch f.Status {
	case domain.ReviewFilterPending:
		v := false
		approved = &v
	case domain.ReviewFilterApproved:
		v := true
		approved = &v
	}

	companyID := ""
	if f.CompanyID != nil {
		companyID = *f.CompanyID
	}

	matched := r.filter(companyID, approved)
	sortReviews(matched, true)
	return page(matched, f.Page, f.PerPage), len(matched), nil
}

func (r *ReviewRepository) filter(companyID string, approved *bool) []domain.Review {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Review
	for _, rv := range r.s.reviews {
		if companyID != "" && rv.CompanyID != companyID {
			continue
		}
		if approved != nil && rv.IsApproved != *approved {
			continue
		}
		out = append(out, rv)
	}
	return out
}

func sortReviews(reviews []domain.Review, oldestFirst bool) {
	sort.Slice(reviews, func(i, j int) bool {
		a, b := reviews[i], reviews[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if oldestFirst {
				return a.CreatedAt.Before(b.CreatedAt)
			}
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func (r *ReviewRepository) Approve(_ context.Context, id string) (*domain.Review, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rv, ok := r.s.reviews[id]
	if !ok {
		return nil, false, apperrors.NotFound("review", id)
	}
	if rv.IsApproved {
		return &rv, false, nil
	}
	rv.IsApproved = true
	rv.UpdatedAt = time.Now().UTC()
	r.s.reviews[id] = rv
	return &rv, true, nil
}

func (r *ReviewRepository) Delete(_ context.Context, id string) (*domain.Review, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.deleteReviewLocked(id)
}

func (s *Store) deleteReviewLocked(id string) (*domain.Review, error) {
	rv, ok := s.reviews[id]
	if !ok {
		return nil, apperrors.NotFound("review", id)
	}
	delete(s.reviews, id)
	delete(s.replies, id)
	return &rv, nil
}

func (r *ReviewRepository) IncrementHelpful(_ context.Context, id string, helpful bool) (*domain.HelpfulCounts, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rv, ok := r.s.reviews[id]
	if !ok || !rv.IsApproved {
		return nil, apperrors.NotFound("review", id)
	}
	if helpful {
		rv.HelpfulCount++
	} else {
		rv.NotHelpfulCount++
	}
	r.s.reviews[id] = rv

	return &domain.HelpfulCounts{
		ReviewID:        rv.ID,
		HelpfulCount:    rv.HelpfulCount,
		NotHelpfulCount: rv.NotHelpfulCount,
	}, nil
}

// --- replies ---

// ReplyRepository is the in-memory repository.ReplyRepository.
type ReplyRepository struct{ s *Store }

func (r *ReplyRepository) Create(_ context.Context, reply *domain.Reply) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.reviews[reply.ReviewID]; !ok {
		return fmt.Errorf("insert reply: review %s does not exist", reply.ReviewID)
	}
	r.s.replies[reply.ReviewID] = append(r.s.replies[reply.ReviewID], *reply)
	return nil
}

func (r *ReplyRepository) ListByReviewIDs(_ context.Context, reviewIDs []string) (map[string][]domain.Reply, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[string][]domain.Reply, len(reviewIDs))
	for _, id := range reviewIDs {
		if replies := r.s.replies[id]; len(replies) > 0 {
			out[id] = append([]domain.Reply(nil), replies...)
		}
	}
	return out, nil
}

// --- reports ---

// ReportRepository is the in-memory repository.ReportRepository.
type ReportRepository struct{ s *Store }

func (r *ReportRepository) Create(_ context.Context, rp *domain.Report) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.reports[rp.ID] = *rp
	return nil
}

func (r *ReportRepository) GetByID(_ context.Context, id string) (*domain.Report, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rp, ok := r.s.reports[id]
	if !ok {
		return nil, apperrors.NotFound("report", id)
	}
	return &rp, nil
}

func (r *ReportRepository) List(_ context.Context, f repository.ReportFilter) ([]domain.Report, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []domain.Report
	for _, rp := range r.s.reports {
		if f.Status != nil && rp.Status != *f.Status {
			continue
		}
		if f.ReviewID != nil && rp.ReviewID != *f.ReviewID {
			continue
		}
		matched = append(matched, rp)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	return page(matched, f.Page, f.PerPage), len(matched), nil
}

func (r *ReportRepository) Resolve(_ context.Context, id string, status domain.ReportStatus, resolvedBy string, at time.Time) (*repository.ReportResolution, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	rp, ok := r.s.reports[id]
	if !ok {
		return nil, apperrors.NotFound("report", id)
	}
	if rp.Status != domain.ReportStatusPending {
		return nil, apperrors.InvalidState(fmt.Sprintf("report %s is already %s", id, rp.Status))
	}

	rp.Status = status
	rp.ResolvedBy = &resolvedBy
	rp.ResolvedAt = &at
	rp.UpdatedAt = at
	r.s.reports[id] = rp

	res := &repository.ReportResolution{Report: &rp}
	if status == domain.ReportStatusApproved {
		if deleted, err := r.s.deleteReviewLocked(rp.ReviewID); err == nil {
			res.DeletedReview = deleted
		}
	}
	return res, nil
}

var (
	_ repository.CompanyRepository = (*CompanyRepository)(nil)
	_ repository.ReviewRepository  = (*ReviewRepository)(nil)
	_ repository.ReplyRepository   = (*ReplyRepository)(nil)
	_ repository.ReportRepository  = (*ReportRepository)(nil)
)
