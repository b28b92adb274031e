package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/event"
	"github.com/murabaat/review-service/internal/repository"
	"github.com/murabaat/review-service/internal/repository/memory"
	pkgkafka "github.com/murabaat/review-service/pkg/kafka"
)

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var (
	admin     = domain.Principal{UserID: "admin-1", Role: domain.RoleAdmin}
	superUser = domain.Principal{UserID: "root-1", Role: domain.RoleSuperAdmin}
	visitor   = domain.Principal{UserID: "user-1", Role: domain.RoleUser}
	owner     = domain.Principal{UserID: "owner-1", Role: domain.RoleCompanyOwner}
)

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*pkgkafka.Event
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, evt *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) ofType(topic string) []*pkgkafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*pkgkafka.Event
	for _, e := range p.events {
		if e.EventType == topic {
			out = append(out, e)
		}
	}
	return out
}

// failingCompanies delegates to a real repository but lets a test fail
// UpdateAggregate.
type failingCompanies struct {
	repository.CompanyRepository
	mock.Mock
}

func (f *failingCompanies) UpdateAggregate(ctx context.Context, id string, agg domain.Aggregate) error {
	args := f.Called(ctx, id, agg)
	return args.Error(0)
}

type fixture struct {
	store      *memory.Store
	publisher  *recordingPublisher
	aggregator *AggregatorService
	moderation *ModerationService
	reports    *ReportService
	reviews    *ReviewService
	replies    *ReplyService
	companies  *CompanyService
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	recomputeOnDelete bool
	companies         func(*memory.Store) repository.CompanyRepository
	cache             CompanyCache
}

func withRecomputeOnDelete(on bool) fixtureOption {
	return func(c *fixtureConfig) { c.recomputeOnDelete = on }
}

// withCompanies replaces the repository the aggregator writes through.
func withCompanies(wrap func(*memory.Store) repository.CompanyRepository) fixtureOption {
	return func(c *fixtureConfig) { c.companies = wrap }
}

func withCache(cache CompanyCache) fixtureOption {
	return func(c *fixtureConfig) { c.cache = cache }
}

func newFixture(opts ...fixtureOption) *fixture {
	store := memory.New()
	cfg := fixtureConfig{recomputeOnDelete: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	var companies repository.CompanyRepository = store.Companies()
	if cfg.companies != nil {
		companies = cfg.companies(store)
	}

	logger := newTestLogger()
	pub := &recordingPublisher{}
	producer := event.NewProducer(pub, logger)
	agg := NewAggregatorService(companies, store.Reviews(), cfg.cache, logger)

	return &fixture{
		store:      store,
		publisher:  pub,
		aggregator: agg,
		moderation: NewModerationService(store.Reviews(), agg, producer, cfg.recomputeOnDelete, logger),
		reports:    NewReportService(store.Reports(), store.Reviews(), agg, producer, cfg.recomputeOnDelete, logger),
		reviews:    NewReviewService(store.Reviews(), store.Replies(), store.Companies(), producer, logger),
		replies:    NewReplyService(store.Replies(), store.Reviews(), store.Companies(), logger),
		companies:  NewCompanyService(store.Companies(), cfg.cache, logger),
	}
}

func (f *fixture) seedCompany(t *testing.T, ownerID string) *domain.Company {
	t.Helper()
	id := uuid.NewString()
	c := &domain.Company{
		ID:         id,
		Slug:       "company-" + id[:8],
		Name:       "Company " + id,
		CountryID:  "sa",
		CityID:     "riyadh",
		CategoryID: "food",
		IsActive:   true,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	if ownerID != "" {
		c.OwnerUserID = &ownerID
	}
	require.NoError(t, f.store.Companies().Create(context.Background(), c))
	return c
}

func (f *fixture) seedReview(t *testing.T, companyID string, rating int, approved bool) *domain.Review {
	t.Helper()
	rv := &domain.Review{
		ID:         uuid.NewString(),
		CompanyID:  companyID,
		UserName:   "Visitor",
		UserEmail:  "visitor@example.com",
		Rating:     rating,
		Comment:    "comment",
		IsApproved: approved,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, f.store.Reviews().Create(context.Background(), rv))
	return rv
}

func (f *fixture) company(t *testing.T, id string) *domain.Company {
	t.Helper()
	c, err := f.store.Companies().GetByID(context.Background(), id)
	require.NoError(t, err)
	return c
}
