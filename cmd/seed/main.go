// Command seed populates the review service with demo companies and reviews.
// Everything goes through the service layer, so slugs, moderation and the
// rating aggregates end up exactly as real traffic would leave them.
//
// Run: STORAGE=postgres JWT_SECRET=dev go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"math/rand/v2"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/google/uuid"

	"github.com/murabaat/review-service/internal/app"
	"github.com/murabaat/review-service/internal/config"
	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/event"
	"github.com/murabaat/review-service/internal/service"
	pkgconfig "github.com/murabaat/review-service/pkg/config"
	"github.com/murabaat/review-service/pkg/logger"
)

// seedOptions controls how much data is generated.
type seedOptions struct {
	Companies        int     `env:"SEED_COMPANIES" envDefault:"50"`
	ReviewsPerComp   int     `env:"SEED_REVIEWS_PER_COMPANY" envDefault:"12"`
	ApprovalRate     float64 `env:"SEED_APPROVAL_RATE" envDefault:"0.8"`
	RandomSeed       uint64  `env:"SEED_RANDOM_SEED" envDefault:"42"`
	OwnedCompanyRate float64 `env:"SEED_OWNED_RATE" envDefault:"0.3"`
}

// seedAdmin moderates the generated reviews.
var seedAdmin = domain.Principal{UserID: "seed-admin", Role: domain.RoleAdmin}

// --------------------------------------------------------------------------
// Seed data definitions
// --------------------------------------------------------------------------

type location struct {
	country string
	city    string
}

var locations = []location{
	{"sa", "riyadh"}, {"sa", "jeddah"}, {"ae", "dubai"}, {"ae", "abu-dhabi"},
	{"eg", "cairo"}, {"jo", "amman"}, {"kw", "kuwait-city"}, {"qa", "doha"},
}

var categories = map[string][]string{
	"restaurants": {"Al Bustan Grill", "Saffron House", "Bayt Al Mandi", "Zaatar & Co", "Falafel Corner"},
	"hotels":      {"Desert Rose Hotel", "Corniche Suites", "Palm Court Inn", "Oasis Residence"},
	"clinics":     {"Shifa Family Clinic", "Noor Dental Center", "Hayat Medical"},
	"auto":        {"Gulf Auto Care", "Falcon Motors Service", "Speed Tyres"},
	"retail":      {"Souq Electronics", "Layali Perfumes", "Dar Al Kitab Bookshop"},
}

var reviewTemplates = [5][]string{
	{"Terrible experience, would not come back.", "Staff were rude and nobody followed up."},
	{"Below expectations for the price.", "Long wait and the order was wrong."},
	{"Average, nothing special.", "Decent but the parking is a problem."},
	{"Good service and fair prices.", "Friendly team, will visit again."},
	{"Excellent in every way!", "Best in the city, highly recommended."},
}

var reviewerNames = []string{"Ahmed", "Fatima", "Omar", "Layla", "Yousef", "Mariam", "Khalid", "Noura", "Hassan", "Sara"}

// --------------------------------------------------------------------------
// Seeding
// --------------------------------------------------------------------------

type seedServices struct {
	companies  *service.CompanyService
	reviews    *service.ReviewService
	moderation *service.ModerationService
}

type seedResult struct {
	companies int
	reviews   int
	approved  int
}

func seed(ctx context.Context, svc seedServices, opts seedOptions, rng *rand.Rand, log *slog.Logger) (*seedResult, error) {
	res := &seedResult{}

	names := make([]struct{ category, name string }, 0)
	for _, category := range slices.Sorted(maps.Keys(categories)) {
		for _, name := range categories[category] {
			names = append(names, struct{ category, name string }{category, name})
		}
	}

	for i := 0; i < opts.Companies; i++ {
		def := names[rng.IntN(len(names))]
		loc := locations[rng.IntN(len(locations))]

		input := &service.CreateCompanyInput{
			Name:       def.name,
			CountryID:  loc.country,
			CityID:     loc.city,
			CategoryID: def.category,
			IsVerified: rng.Float64() < 0.5,
			IsFeatured: rng.Float64() < 0.1,
		}
		if rng.Float64() < opts.OwnedCompanyRate {
			owner := uuid.NewString()
			input.OwnerUserID = &owner
		}

		company, err := svc.companies.CreateCompany(ctx, seedAdmin, input)
		if err != nil {
			return res, fmt.Errorf("create company %q: %w", def.name, err)
		}
		res.companies++

		// Skew ratings upward like real directories.
		for j := 0; j < opts.ReviewsPerComp; j++ {
			rating := 1 + rng.IntN(5)
			if rng.Float64() < 0.4 && rating < 5 {
				rating++
			}
			texts := reviewTemplates[rating-1]
			name := reviewerNames[rng.IntN(len(reviewerNames))]

			review, err := svc.reviews.SubmitReview(ctx, domain.Anonymous, &service.SubmitReviewInput{
				CompanyID: company.ID,
				Rating:    rating,
				Comment:   texts[rng.IntN(len(texts))],
				UserName:  name,
				UserEmail: fmt.Sprintf("%s.%d@example.com", name, rng.IntN(100000)),
			})
			if err != nil {
				return res, fmt.Errorf("submit review for %s: %w", company.ID, err)
			}
			res.reviews++

			if rng.Float64() >= opts.ApprovalRate {
				continue
			}
			if _, err := svc.moderation.Approve(ctx, seedAdmin, review.ID); err != nil {
				return res, fmt.Errorf("approve review %s: %w", review.ID, err)
			}
			res.approved++
		}

		if res.companies%10 == 0 {
			log.Info("seed progress", slog.Int("companies", res.companies), slog.Int("reviews", res.reviews))
		}
	}

	return res, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var opts seedOptions
	if err := pkgconfig.Load(&opts); err != nil {
		slog.Error("failed to load seed options", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("review-seed", cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := app.OpenStore(ctx, cfg, log)
	if err != nil {
		log.Error("open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	producer := event.NewProducer(nil, log)
	aggregator := service.NewAggregatorService(store.Companies, store.Reviews, nil, log)
	svc := seedServices{
		companies:  service.NewCompanyService(store.Companies, nil, log),
		reviews:    service.NewReviewService(store.Reviews, store.Replies, store.Companies, producer, log),
		moderation: service.NewModerationService(store.Reviews, aggregator, producer, cfg.RecomputeOnDelete, log),
	}

	rng := rand.New(rand.NewPCG(opts.RandomSeed, opts.RandomSeed^0x9e3779b97f4a7c15)) // #nosec G404 -- reproducible demo data
	res, err := seed(ctx, svc, opts, rng, log)
	if err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("seed complete",
		slog.Int("companies", res.companies),
		slog.Int("reviews", res.reviews),
		slog.Int("approved", res.approved),
	)
}
