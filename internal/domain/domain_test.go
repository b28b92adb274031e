package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeAggregate(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    Aggregate
	}{
		{"no reviews", nil, Aggregate{}},
		{"single", []int{4}, Aggregate{Rating: 4, ReviewsCount: 1}},
		{"five and three", []int{5, 3}, Aggregate{Rating: 4, ReviewsCount: 2}},
		{"five three four", []int{5, 3, 4}, Aggregate{Rating: 4, ReviewsCount: 3}},
		{"three and four", []int{3, 4}, Aggregate{Rating: 3.5, ReviewsCount: 2}},
		{"repeating decimal", []int{5, 4, 4}, Aggregate{Rating: 4.3, ReviewsCount: 3}},
		{"rounds half away from zero", []int{4, 4, 4, 5}, Aggregate{Rating: 4.3, ReviewsCount: 4}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeAggregate(tt.ratings))
		})
	}
}

func TestComputeAggregate_Idempotent(t *testing.T) {
	ratings := []int{1, 2, 5, 5, 3}
	assert.Equal(t, ComputeAggregate(ratings), ComputeAggregate(ratings))
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole("admin"))
	assert.Equal(t, RoleSuperAdmin, ParseRole(" SUPER_ADMIN "))
	assert.Equal(t, RoleCompanyOwner, ParseRole("company_owner"))
	assert.Equal(t, RoleAnonymous, ParseRole(""))
	assert.Equal(t, RoleAnonymous, ParseRole("root"))
}

func TestPrincipal(t *testing.T) {
	assert.False(t, Anonymous.IsAuthenticated())
	assert.False(t, Anonymous.IsAdmin())

	owner := Principal{UserID: "u-1", Role: RoleCompanyOwner}
	assert.True(t, owner.IsAuthenticated())
	assert.False(t, owner.IsAdmin())

	assert.True(t, Principal{UserID: "u-2", Role: RoleAdmin}.IsAdmin())
	assert.True(t, Principal{UserID: "u-3", Role: RoleSuperAdmin}.IsAdmin())
}

func TestReportReason_IsValid(t *testing.T) {
	for _, r := range ValidReportReasons() {
		assert.True(t, r.IsValid(), r)
	}
	assert.False(t, ReportReason("spam").IsValid())
	assert.False(t, ReportReason("").IsValid())
}

func TestStatusForDecision(t *testing.T) {
	s, ok := StatusForDecision(DecisionApprove)
	assert.True(t, ok)
	assert.Equal(t, ReportStatusApproved, s)

	s, ok = StatusForDecision(DecisionReject)
	assert.True(t, ok)
	assert.Equal(t, ReportStatusRejected, s)

	_, ok = StatusForDecision("escalate")
	assert.False(t, ok)
}

func TestCompany_IsOwnedBy(t *testing.T) {
	owner := "u-owner"
	c := Company{OwnerUserID: &owner}
	assert.True(t, c.IsOwnedBy("u-owner"))
	assert.False(t, c.IsOwnedBy("u-other"))
	assert.False(t, c.IsOwnedBy(""))
	assert.False(t, (&Company{}).IsOwnedBy("u-owner"))
}

func TestReview_State(t *testing.T) {
	r := Review{}
	assert.Equal(t, ReviewStatePending, r.State())
	assert.True(t, r.IsAnonymous())
	r.IsApproved = true
	assert.Equal(t, ReviewStateApproved, r.State())
}

func TestIsValidRating(t *testing.T) {
	assert.False(t, IsValidRating(0))
	assert.True(t, IsValidRating(1))
	assert.True(t, IsValidRating(5))
	assert.False(t, IsValidRating(6))
}

func TestFilters(t *testing.T) {
	assert.True(t, IsValidCompanySort(""))
	assert.True(t, IsValidCompanySort(CompanySortRating))
	assert.False(t, IsValidCompanySort("price"))
	assert.True(t, IsValidReviewFilter(ReviewFilterAll))
	assert.False(t, IsValidReviewFilter(""))
}
