package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/murabaat/review-service/internal/service"
	"github.com/murabaat/review-service/pkg/httputil"
	"github.com/murabaat/review-service/pkg/pagination"
	"github.com/murabaat/review-service/pkg/validator"
)

// AdminHandler handles the moderation back-office endpoints.
type AdminHandler struct {
	reviews    *service.ReviewService
	moderation *service.ModerationService
	reports    *service.ReportService
	aggregator *service.AggregatorService
	logger     *slog.Logger
}

// NewAdminHandler creates a new admin HTTP handler.
func NewAdminHandler(
	reviews *service.ReviewService,
	moderation *service.ModerationService,
	reports *service.ReportService,
	aggregator *service.AggregatorService,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		reviews:    reviews,
		moderation: moderation,
		reports:    reports,
		aggregator: aggregator,
		logger:     logger,
	}
}

// --- Request DTOs ---

// ModerateReviewRequest is the JSON request body for PATCH /admin/reviews/{id}.
type ModerateReviewRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject"`
}

// AdjudicateReportRequest is the JSON request body for PATCH /admin/reports/{id}.
type AdjudicateReportRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

// DeletedReviewResponse is returned when a moderation action deleted a review.
type DeletedReviewResponse struct {
	ID        string `json:"id"`
	CompanyID string `json:"company_id"`
	Deleted   bool   `json:"deleted"`
}

// RecomputeResponse is returned by the single company recompute endpoint.
type RecomputeResponse struct {
	CompanyID    string  `json:"company_id"`
	Rating       float64 `json:"rating"`
	ReviewsCount int     `json:"reviews_count"`
}

// --- Handlers ---

// ListReviews handles GET /api/v1/admin/reviews
func (h *AdminHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pagination.FromRequest(r)

	reviews, total, err := h.reviews.ListQueue(r.Context(), principalFrom(r), q.Get("company_id"), q.Get("status"), p)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusOK, httputil.NewPage(reviews, total, p.Page, p.PerPage))
}

// ModerateReview handles PATCH /api/v1/admin/reviews/{id}
func (h *AdminHandler) ModerateReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req ModerateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.moderation.Moderate(r.Context(), principalFrom(r), reviewID, req.Action)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	if req.Action == service.ActionReject {
		httputil.WriteOK(w, http.StatusOK, DeletedReviewResponse{ID: review.ID, CompanyID: review.CompanyID, Deleted: true})
		return
	}
	httputil.WriteOK(w, http.StatusOK, review)
}

// ListReports handles GET /api/v1/admin/reports
func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	p := pagination.FromRequest(r)

	reports, total, err := h.reports.ListReports(r.Context(), principalFrom(r), r.URL.Query().Get("status"), p)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusOK, httputil.NewPage(reports, total, p.Page, p.PerPage))
}

// AdjudicateReport handles PATCH /api/v1/admin/reports/{id}
func (h *AdminHandler) AdjudicateReport(w http.ResponseWriter, r *http.Request) {
	reportID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AdjudicateReportRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	report, err := h.reports.AdjudicateReport(r.Context(), principalFrom(r), reportID, req.Decision)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusOK, report)
}

// RecomputeCompany handles POST /api/v1/admin/companies/{id}/recompute
func (h *AdminHandler) RecomputeCompany(w http.ResponseWriter, r *http.Request) {
	companyID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if !principalFrom(r).IsAdmin() {
		httputil.WriteError(w, r, errAdminRequired, h.logger)
		return
	}

	agg, err := h.aggregator.RecomputeCompanyRating(r.Context(), companyID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusOK, RecomputeResponse{
		CompanyID:    companyID,
		Rating:       agg.Rating,
		ReviewsCount: agg.ReviewsCount,
	})
}

// RecomputeAll handles POST /api/v1/admin/companies/recompute
func (h *AdminHandler) RecomputeAll(w http.ResponseWriter, r *http.Request) {
	if !principalFrom(r).IsAdmin() {
		httputil.WriteError(w, r, errAdminRequired, h.logger)
		return
	}

	summary, err := h.aggregator.RecomputeAllCompanyRatings(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusOK, summary)
}
