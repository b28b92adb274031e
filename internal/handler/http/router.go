package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/murabaat/review-service/internal/service"
	"github.com/murabaat/review-service/pkg/health"
	"github.com/murabaat/review-service/pkg/middleware"
)

// Services groups the application services exposed over HTTP.
type Services struct {
	Companies  *service.CompanyService
	Reviews    *service.ReviewService
	Replies    *service.ReplyService
	Reports    *service.ReportService
	Moderation *service.ModerationService
	Aggregator *service.AggregatorService
}

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	ServiceName        string
	TokenValidator     middleware.TokenValidator
	SubmitRateLimitRPS float64
	SubmitRateBurst    int
	TrustedProxyCIDRs  []string
	CORSAllowedOrigins []string
	PprofAllowedCIDRs  []string
}

// NewRouter creates a chi router with all review service routes registered.
func NewRouter(
	svc Services,
	cfg RouterConfig,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins}))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	companyHandler := NewCompanyHandler(svc.Companies, logger)
	reviewHandler := NewReviewHandler(svc.Reviews, svc.Replies, svc.Reports, logger)
	adminHandler := NewAdminHandler(svc.Reviews, svc.Moderation, svc.Reports, svc.Aggregator, logger)

	limitWrites := middleware.RateLimit(cfg.SubmitRateLimitRPS, cfg.SubmitRateBurst, cfg.TrustedProxyCIDRs, logger)
	requireAuth := middleware.Auth(cfg.TokenValidator)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.OptionalAuth(cfg.TokenValidator))

		// Company directory
		r.Route("/companies", func(r chi.Router) {
			r.With(middleware.CacheControl(60)).Get("/", companyHandler.ListCompanies)
			r.With(middleware.CacheControl(30)).Get("/search", companyHandler.SearchCompanies)
			// Rating and count change on every moderation action.
			r.With(middleware.Revalidate).Get("/{id}", companyHandler.GetCompany)
			r.With(requireAuth).Post("/", companyHandler.CreateCompany)
			r.With(requireAuth).Delete("/{id}", companyHandler.DeactivateCompany)

			r.Get("/{id}/reviews", reviewHandler.ListCompanyReviews)
			r.With(limitWrites).Post("/{id}/reviews", reviewHandler.SubmitReview)
		})

		// Review interactions
		r.Route("/reviews/{id}", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.With(limitWrites).Post("/helpful", reviewHandler.MarkHelpful)
			r.With(limitWrites).Post("/reports", reviewHandler.SubmitReport)
			r.With(requireAuth).Post("/replies", reviewHandler.AddReply)
		})

		// Moderation back-office
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.NoStore)

			r.Get("/reviews", adminHandler.ListReviews)
			r.Patch("/reviews/{id}", adminHandler.ModerateReview)
			r.Get("/reports", adminHandler.ListReports)
			r.Patch("/reports/{id}", adminHandler.AdjudicateReport)
			r.Post("/companies/recompute", adminHandler.RecomputeAll)
			r.Post("/companies/{id}/recompute", adminHandler.RecomputeCompany)
			r.Post("/companies/reindex", companyHandler.ReindexCompanies)
		})
	})

	return r
}
