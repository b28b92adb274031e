package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/murabaat/review-service/internal/domain"
	searchmem "github.com/murabaat/review-service/internal/search/memory"
	apperrors "github.com/murabaat/review-service/pkg/errors"
)

// brokenSearch fails every index write.
type brokenSearch struct {
	mock.Mock
}

func (b *brokenSearch) Index(ctx context.Context, doc *domain.CompanyDocument) error {
	return b.Called(ctx, doc.ID).Error(0)
}

func (b *brokenSearch) Delete(ctx context.Context, id string) error {
	return b.Called(ctx, id).Error(0)
}

func (b *brokenSearch) BulkIndex(ctx context.Context, docs []domain.CompanyDocument) error {
	return b.Called(ctx, len(docs)).Error(0)
}

func (b *brokenSearch) Search(ctx context.Context, q *domain.CompanySearchQuery) (*domain.CompanySearchResult, error) {
	args := b.Called(ctx, q)
	res, _ := args.Get(0).(*domain.CompanySearchResult)
	return res, args.Error(1)
}

func newSearchFixture() (*fixture, *searchmem.Engine) {
	f := newFixture()
	idx := searchmem.New()
	f.companies.WithSearchIndex(idx)
	f.aggregator.WithSearchIndex(idx)
	return f, idx
}

func TestSearchCompanies_FollowsCompanyWrites(t *testing.T) {
	ctx := context.Background()
	f, idx := newSearchFixture()

	created, err := f.companies.CreateCompany(ctx, admin, companyInput("Desert Rose Hotel"))
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())

	res, err := f.companies.SearchCompanies(ctx, &domain.CompanySearchQuery{Text: "rose"})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, created.ID, res.Companies[0].ID)
	assert.Zero(t, res.Companies[0].Rating)

	rv := f.seedReview(t, created.ID, 4, false)
	_, err = f.moderation.Approve(ctx, admin, rv.ID)
	require.NoError(t, err)

	minRating := 4.0
	res, err = f.companies.SearchCompanies(ctx, &domain.CompanySearchQuery{MinRating: &minRating})
	require.NoError(t, err)
	require.Equal(t, 1, res.Total)
	assert.Equal(t, 4.0, res.Companies[0].Rating)
	assert.Equal(t, 1, res.Companies[0].ReviewsCount)

	require.NoError(t, f.companies.DeactivateCompany(ctx, admin, created.ID))
	assert.Zero(t, idx.Len())

	// a recompute of an inactive company must not put it back
	_, err = f.aggregator.RecomputeCompanyRating(ctx, created.ID)
	require.NoError(t, err)
	assert.Zero(t, idx.Len())
}

func TestSearchCompanies_Validation(t *testing.T) {
	ctx := context.Background()

	plain := newFixture()
	_, err := plain.companies.SearchCompanies(ctx, &domain.CompanySearchQuery{Text: "x"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	f, _ := newSearchFixture()
	_, err = f.companies.SearchCompanies(ctx, &domain.CompanySearchQuery{Sort: "name"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	tooHigh := 5.5
	_, err = f.companies.SearchCompanies(ctx, &domain.CompanySearchQuery{MinRating: &tooHigh})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	q := &domain.CompanySearchQuery{Page: -3, PerPage: 1000}
	_, err = f.companies.SearchCompanies(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, domain.CompanySortRelevance, q.Sort)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 20, q.PerPage)
}

func TestReindexAll(t *testing.T) {
	ctx := context.Background()
	f, idx := newSearchFixture()

	for i := 0; i < 3; i++ {
		f.seedCompany(t, "")
	}
	gone := f.seedCompany(t, "")
	require.NoError(t, f.store.Companies().Deactivate(ctx, gone.ID))
	assert.Zero(t, idx.Len())

	n, err := f.companies.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, idx.Len())

	n, err = newFixture().companies.ReindexAll(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchIndexFailuresDoNotFailWrites(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	broken := &brokenSearch{}
	broken.On("Index", mock.Anything, mock.Anything).Return(errors.New("cluster unavailable"))
	broken.On("Delete", mock.Anything, mock.Anything).Return(errors.New("cluster unavailable"))
	f.companies.WithSearchIndex(broken)
	f.aggregator.WithSearchIndex(broken)

	created, err := f.companies.CreateCompany(ctx, admin, companyInput("Harbour Fish Market"))
	require.NoError(t, err)

	rv := f.seedReview(t, created.ID, 5, false)
	_, err = f.moderation.Approve(ctx, admin, rv.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.0, f.company(t, created.ID).Rating)

	require.NoError(t, f.companies.DeactivateCompany(ctx, admin, created.ID))
	broken.AssertCalled(t, "Index", mock.Anything, created.ID)
	broken.AssertCalled(t, "Delete", mock.Anything, created.ID)
}
