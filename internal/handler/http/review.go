package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/service"
	"github.com/murabaat/review-service/pkg/httputil"
	"github.com/murabaat/review-service/pkg/pagination"
	"github.com/murabaat/review-service/pkg/validator"
)

// ReviewHandler handles HTTP requests for public review endpoints.
type ReviewHandler struct {
	reviews *service.ReviewService
	replies *service.ReplyService
	reports *service.ReportService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(
	reviews *service.ReviewService,
	replies *service.ReplyService,
	reports *service.ReportService,
	logger *slog.Logger,
) *ReviewHandler {
	return &ReviewHandler{
		reviews: reviews,
		replies: replies,
		reports: reports,
		logger:  logger,
	}
}

// --- Request DTOs ---

// SubmitReviewRequest is the JSON request body for submitting a review.
// Anonymous callers must send user_name and user_email.
type SubmitReviewRequest struct {
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Title     string `json:"title" validate:"max=200"`
	Comment   string `json:"comment" validate:"notblank,max=5000"`
	UserName  string `json:"user_name" validate:"omitempty,max=100"`
	UserEmail string `json:"user_email" validate:"omitempty,email"`
}

// HelpfulRequest is the JSON request body for a helpful vote.
type HelpfulRequest struct {
	Helpful *bool `json:"helpful" validate:"required"`
}

// AddReplyRequest is the JSON request body for replying to a review. Owner
// status is derived from the caller, never read from the body.
type AddReplyRequest struct {
	Content string `json:"content" validate:"notblank,max=2000"`
}

// SubmitReportRequest is the JSON request body for reporting a review.
type SubmitReportRequest struct {
	Reason        string  `json:"reason" validate:"required"`
	Description   string  `json:"description" validate:"notblank,max=2000"`
	ReporterEmail *string `json:"reporter_email" validate:"omitempty,email"`
}

// --- Handlers ---

// ListCompanyReviews handles GET /api/v1/companies/{id}/reviews
func (h *ReviewHandler) ListCompanyReviews(w http.ResponseWriter, r *http.Request) {
	companyID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	p := pagination.FromRequest(r)
	reviews, total, err := h.reviews.ListPublic(r.Context(), companyID, p)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusOK, httputil.NewPage(reviews, total, p.Page, p.PerPage))
}

// SubmitReview handles POST /api/v1/companies/{id}/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	companyID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req SubmitReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.reviews.SubmitReview(r.Context(), principalFrom(r), &service.SubmitReviewInput{
		CompanyID: companyID,
		Rating:    req.Rating,
		Title:     req.Title,
		Comment:   req.Comment,
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusCreated, review)
}

// MarkHelpful handles POST /api/v1/reviews/{id}/helpful
func (h *ReviewHandler) MarkHelpful(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req HelpfulRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	counts, err := h.reviews.MarkHelpful(r.Context(), reviewID, *req.Helpful)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusOK, counts)
}

// AddReply handles POST /api/v1/reviews/{id}/replies
func (h *ReviewHandler) AddReply(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req AddReplyRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	reply, err := h.replies.AddReply(r.Context(), principalFrom(r), &service.AddReplyInput{
		ReviewID: reviewID,
		Content:  req.Content,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusCreated, reply)
}

// SubmitReport handles POST /api/v1/reviews/{id}/reports
func (h *ReviewHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req SubmitReportRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	report, err := h.reports.SubmitReport(r.Context(), &service.SubmitReportInput{
		ReviewID:      reviewID,
		Reason:        domain.ReportReason(req.Reason),
		Description:   req.Description,
		ReporterEmail: req.ReporterEmail,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusCreated, report)
}
