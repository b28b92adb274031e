package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/repository"
	apperrors "github.com/murabaat/review-service/pkg/errors"
)

var base = time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

func seedCompany(t *testing.T, s *Store, id string, offset time.Duration) {
	t.Helper()
	require.NoError(t, s.Companies().Create(context.Background(), &domain.Company{
		ID:        id,
		Slug:      "slug-" + id,
		Name:      "Company " + id,
		IsActive:  true,
		CreatedAt: base.Add(offset),
	}))
}

func seedReview(t *testing.T, s *Store, id, companyID string, rating int, approved bool, offset time.Duration) {
	t.Helper()
	require.NoError(t, s.Reviews().Create(context.Background(), &domain.Review{
		ID:         id,
		CompanyID:  companyID,
		Rating:     rating,
		Comment:    "text",
		IsApproved: approved,
		CreatedAt:  base.Add(offset),
	}))
}

func TestCompanies_SlugIsUnique(t *testing.T) {
	s := New()
	seedCompany(t, s, "c1", 0)

	err := s.Companies().Create(context.Background(), &domain.Company{ID: "c2", Slug: "slug-c1"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestCompanies_ListFiltersAndPages(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		seedCompany(t, s, fmt.Sprintf("c%d", i), time.Duration(i)*time.Hour)
	}
	require.NoError(t, s.Companies().Deactivate(ctx, "c0"))

	items, total, err := s.Companies().List(ctx, repository.CompanyFilter{
		ActiveOnly: true,
		Sort:       domain.CompanySortNewest,
		Page:       1,
		PerPage:    3,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	require.Len(t, items, 3)
	assert.Equal(t, "c4", items[0].ID)

	ids, err := s.Companies().ListIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c0", "c1", "c2", "c3", "c4"}, ids)
}

func TestReviews_ApprovedRatingsOnlyCountApproved(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedCompany(t, s, "c1", 0)
	seedReview(t, s, "r1", "c1", 5, true, 0)
	seedReview(t, s, "r2", "c1", 1, false, time.Minute)

	ratings, err := s.Reviews().ApprovedRatings(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, ratings)

	public, total, err := s.Reviews().ListApproved(ctx, "c1", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "r1", public[0].ID)
}

func TestReviews_CreateRequiresCompany(t *testing.T) {
	s := New()
	err := s.Reviews().Create(context.Background(), &domain.Review{ID: "r1", CompanyID: "nope"})
	assert.Error(t, err)
}

func TestReviews_DeleteCascadesReplies(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedCompany(t, s, "c1", 0)
	seedReview(t, s, "r1", "c1", 4, true, 0)
	require.NoError(t, s.Replies().Create(ctx, &domain.Reply{ID: "p1", ReviewID: "r1", Content: "thanks"}))

	deleted, err := s.Reviews().Delete(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, deleted.IsApproved)

	grouped, err := s.Replies().ListByReviewIDs(ctx, []string{"r1"})
	require.NoError(t, err)
	assert.Empty(t, grouped)

	_, err = s.Reviews().Delete(ctx, "r1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReviews_ModerationQueueOldestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedCompany(t, s, "c1", 0)
	seedReview(t, s, "r-new", "c1", 4, false, time.Hour)
	seedReview(t, s, "r-old", "c1", 2, false, 0)
	seedReview(t, s, "r-ok", "c1", 3, true, time.Minute)

	items, total, err := s.Reviews().List(ctx, repository.ReviewFilter{Status: domain.ReviewFilterPending})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "r-old", items[0].ID)

	_, total, err = s.Reviews().List(ctx, repository.ReviewFilter{Status: domain.ReviewFilterAll})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}

func TestReviews_IncrementHelpfulConcurrently(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedCompany(t, s, "c1", 0)
	seedReview(t, s, "r1", "c1", 4, true, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Reviews().IncrementHelpful(ctx, "r1", true)
		}()
	}
	wg.Wait()

	rv, err := s.Reviews().GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 50, rv.HelpfulCount)
	assert.Zero(t, rv.NotHelpfulCount)
}

func TestReviews_IncrementHelpfulSkipsPending(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedCompany(t, s, "c1", 0)
	seedReview(t, s, "r1", "c1", 4, false, 0)

	_, err := s.Reviews().IncrementHelpful(ctx, "r1", true)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	rv, err := s.Reviews().GetByID(ctx, "r1")
	require.NoError(t, err)
	assert.Zero(t, rv.HelpfulCount)
}

func TestReports_ResolveIsOneShot(t *testing.T) {
	s := New()
	ctx := context.Background()
	seedCompany(t, s, "c1", 0)
	seedReview(t, s, "r1", "c1", 5, true, 0)
	require.NoError(t, s.Reports().Create(ctx, &domain.Report{
		ID: "rep1", ReviewID: "r1", Reason: domain.ReportReasonSpam, Status: domain.ReportStatusPending,
	}))

	res, err := s.Reports().Resolve(ctx, "rep1", domain.ReportStatusApproved, "admin", base)
	require.NoError(t, err)
	assert.Equal(t, domain.ReportStatusApproved, res.Report.Status)
	require.NotNil(t, res.DeletedReview)

	_, err = s.Reviews().GetByID(ctx, "r1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = s.Reports().Resolve(ctx, "rep1", domain.ReportStatusRejected, "admin", base)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = s.Reports().Resolve(ctx, "ghost", domain.ReportStatusRejected, "admin", base)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReports_ListByStatus(t *testing.T) {
	s := New()
	ctx := context.Background()
	pending := domain.ReportStatusPending
	require.NoError(t, s.Reports().Create(ctx, &domain.Report{ID: "a", Status: domain.ReportStatusPending, CreatedAt: base}))
	require.NoError(t, s.Reports().Create(ctx, &domain.Report{ID: "b", Status: domain.ReportStatusRejected, CreatedAt: base}))

	items, total, err := s.Reports().List(ctx, repository.ReportFilter{Status: &pending})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "a", items[0].ID)
}
