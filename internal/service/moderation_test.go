package service

import (
	"context"
	"errors"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/event"
	"github.com/murabaat/review-service/internal/repository"
	"github.com/murabaat/review-service/internal/repository/memory"
	apperrors "github.com/murabaat/review-service/pkg/errors"
	"github.com/murabaat/review-service/pkg/pagination"
)

func approveCount(t *testing.T) float64 {
	t.Helper()
	m := &dto.Metric{}
	require.NoError(t, reviewsModerated.WithLabelValues(ActionApprove).Write(m))
	return m.GetCounter().GetValue()
}

func publicIDs(t *testing.T, f *fixture, companyID string) []string {
	t.Helper()
	reviews, _, err := f.reviews.ListPublic(context.Background(), companyID, pagination.DefaultParams())
	require.NoError(t, err)
	ids := make([]string, len(reviews))
	for i, r := range reviews {
		ids[i] = r.ID
	}
	return ids
}

func TestApprove_MakesReviewPublicAndRecomputes(t *testing.T) {
	f := newFixture()
	c := f.seedCompany(t, "")
	rv := f.seedReview(t, c.ID, 4, false)

	assert.NotContains(t, publicIDs(t, f, c.ID), rv.ID)

	approved, err := f.moderation.Approve(context.Background(), admin, rv.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	assert.Contains(t, publicIDs(t, f, c.ID), rv.ID)
	stored := f.company(t, c.ID)
	assert.Equal(t, 4.0, stored.Rating)
	assert.Equal(t, 1, stored.ReviewsCount)
}

func TestApprove_AlreadyApprovedIsNoop(t *testing.T) {
	f := newFixture()
	c := f.seedCompany(t, "")
	rv := f.seedReview(t, c.ID, 2, true)

	approved, err := f.moderation.Approve(context.Background(), superUser, rv.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)
	assert.Equal(t, 1, f.company(t, c.ID).ReviewsCount)
	assert.Empty(t, f.publisher.ofType(event.TopicReviewApproved))
}

func TestApprove_TwiceCountsAndPublishesOnce(t *testing.T) {
	f := newFixture()
	c := f.seedCompany(t, "")
	rv := f.seedReview(t, c.ID, 4, false)
	before := approveCount(t)

	for i := 0; i < 2; i++ {
		approved, err := f.moderation.Approve(context.Background(), admin, rv.ID)
		require.NoError(t, err)
		assert.True(t, approved.IsApproved)
	}

	assert.Len(t, f.publisher.ofType(event.TopicReviewApproved), 1)
	assert.Equal(t, before+1, approveCount(t))
	assert.Equal(t, 1, f.company(t, c.ID).ReviewsCount)
}

func TestApprove_NotFound(t *testing.T) {
	f := newFixture()

	_, err := f.moderation.Approve(context.Background(), admin, "missing")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Empty(t, f.publisher.events)
}

func TestReject_RemovesReview(t *testing.T) {
	f := newFixture()
	c := f.seedCompany(t, "")
	rv := f.seedReview(t, c.ID, 3, false)

	deleted, err := f.moderation.Reject(context.Background(), admin, rv.ID)
	require.NoError(t, err)
	assert.Equal(t, rv.ID, deleted.ID)

	_, err = f.store.Reviews().GetByID(context.Background(), rv.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, err = f.moderation.Reject(context.Background(), admin, rv.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestModeration_NonAdminIsUnauthorized(t *testing.T) {
	callers := []domain.Principal{
		domain.Anonymous,
		visitor,
		owner,
		{UserID: "x", Role: domain.ParseRole("moderator")},
	}

	for _, caller := range callers {
		t.Run(string(caller.Role), func(t *testing.T) {
			f := newFixture()
			c := f.seedCompany(t, "")
			rv := f.seedReview(t, c.ID, 5, false)

			_, err := f.moderation.Approve(context.Background(), caller, rv.ID)
			assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

			_, err = f.moderation.Reject(context.Background(), caller, rv.ID)
			assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

			stored, err := f.store.Reviews().GetByID(context.Background(), rv.ID)
			require.NoError(t, err)
			assert.False(t, stored.IsApproved)
			assert.Zero(t, f.company(t, c.ID).ReviewsCount)
		})
	}
}

func TestModerate_Dispatch(t *testing.T) {
	f := newFixture()
	c := f.seedCompany(t, "")
	rv := f.seedReview(t, c.ID, 5, false)

	_, err := f.moderation.Moderate(context.Background(), admin, rv.ID, "hide")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	got, err := f.moderation.Moderate(context.Background(), admin, rv.ID, ActionApprove)
	require.NoError(t, err)
	assert.True(t, got.IsApproved)

	_, err = f.moderation.Moderate(context.Background(), admin, rv.ID, ActionReject)
	require.NoError(t, err)
	assert.Zero(t, f.company(t, c.ID).ReviewsCount)
}

// Scenarios A to C walk one company through submission, approval and
// rejection.
func TestModeration_Scenarios(t *testing.T) {
	for _, recomputeOnDelete := range []bool{true, false} {
		name := "recompute on delete"
		if !recomputeOnDelete {
			name = "legacy no recompute"
		}
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture(withRecomputeOnDelete(recomputeOnDelete))
			c := f.seedCompany(t, "")
			five := f.seedReview(t, c.ID, 5, true)
			f.seedReview(t, c.ID, 3, true)

			// A
			agg, err := f.aggregator.RecomputeCompanyRating(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.Aggregate{Rating: 4.0, ReviewsCount: 2}, agg)

			// B
			submitted, err := f.reviews.SubmitReview(ctx, domain.Anonymous, &SubmitReviewInput{
				CompanyID: c.ID,
				Rating:    4,
				Comment:   "decent",
				UserName:  "Sara",
				UserEmail: "sara@example.com",
			})
			require.NoError(t, err)
			assert.Equal(t, 2, f.company(t, c.ID).ReviewsCount)

			_, err = f.moderation.Approve(ctx, admin, submitted.ID)
			require.NoError(t, err)
			stored := f.company(t, c.ID)
			assert.Equal(t, 4.0, stored.Rating)
			assert.Equal(t, 3, stored.ReviewsCount)

			// C
			_, err = f.moderation.Reject(ctx, admin, five.ID)
			require.NoError(t, err)

			stored = f.company(t, c.ID)
			if recomputeOnDelete {
				assert.Equal(t, 3.5, stored.Rating)
				assert.Equal(t, 2, stored.ReviewsCount)
			} else {
				assert.Equal(t, 4.0, stored.Rating)
				assert.Equal(t, 3, stored.ReviewsCount)
			}

			agg, err = f.aggregator.RecomputeCompanyRating(ctx, c.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.Aggregate{Rating: 3.5, ReviewsCount: 2}, agg)

			deletedEvents := f.publisher.ofType(event.TopicReviewDeleted)
			require.Len(t, deletedEvents, 1)
			var data event.ReviewDeletedData
			require.NoError(t, deletedEvents[0].UnmarshalData(&data))
			assert.True(t, data.WasApproved)
			assert.Equal(t, !recomputeOnDelete, data.AggregateStale)
			assert.Equal(t, event.DeleteReasonRejected, data.Reason)
		})
	}
}

func TestReject_PendingReviewIsNeverStale(t *testing.T) {
	f := newFixture(withRecomputeOnDelete(false))
	c := f.seedCompany(t, "")
	rv := f.seedReview(t, c.ID, 1, false)

	_, err := f.moderation.Reject(context.Background(), admin, rv.ID)
	require.NoError(t, err)

	events := f.publisher.ofType(event.TopicReviewDeleted)
	require.Len(t, events, 1)
	var data event.ReviewDeletedData
	require.NoError(t, events[0].UnmarshalData(&data))
	assert.False(t, data.WasApproved)
	assert.False(t, data.AggregateStale)
}

func TestApprove_RecomputeFailureKeepsApproval(t *testing.T) {
	companies := &failingCompanies{}
	f := newFixture(withCompanies(func(store *memory.Store) repository.CompanyRepository {
		companies.CompanyRepository = store.Companies()
		return companies
	}))
	c := f.seedCompany(t, "")
	rv := f.seedReview(t, c.ID, 5, false)

	companies.On("UpdateAggregate", mock.Anything, c.ID, mock.Anything).Return(errors.New("deadlock detected"))

	approved, err := f.moderation.Approve(context.Background(), admin, rv.ID)
	require.NoError(t, err)
	assert.True(t, approved.IsApproved)

	stored, err := f.store.Reviews().GetByID(context.Background(), rv.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsApproved)
	assert.Zero(t, f.company(t, c.ID).ReviewsCount)

	events := f.publisher.ofType(event.TopicReviewApproved)
	require.Len(t, events, 1)
	var data event.ReviewApprovedData
	require.NoError(t, events[0].UnmarshalData(&data))
	assert.True(t, data.AggregateStale)
	companies.AssertExpectations(t)
}

func TestApprove_PublishesFreshAggregate(t *testing.T) {
	f := newFixture()
	c := f.seedCompany(t, "")
	f.seedReview(t, c.ID, 2, true)
	rv := f.seedReview(t, c.ID, 5, false)

	_, err := f.moderation.Approve(context.Background(), admin, rv.ID)
	require.NoError(t, err)

	events := f.publisher.ofType(event.TopicReviewApproved)
	require.Len(t, events, 1)
	var data event.ReviewApprovedData
	require.NoError(t, events[0].UnmarshalData(&data))
	assert.False(t, data.AggregateStale)
	assert.Equal(t, 3.5, data.CompanyRating)
	assert.Equal(t, 2, data.ReviewsCount)
	assert.Equal(t, admin.UserID, data.ApprovedBy)
	assert.Equal(t, c.ID, events[0].AggregateID)
}
