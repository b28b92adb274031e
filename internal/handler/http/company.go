package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/service"
	"github.com/murabaat/review-service/pkg/httputil"
	"github.com/murabaat/review-service/pkg/pagination"
	"github.com/murabaat/review-service/pkg/validator"
)

// CompanyHandler handles HTTP requests for the company directory.
type CompanyHandler struct {
	service *service.CompanyService
	logger  *slog.Logger
}

// NewCompanyHandler creates a new company HTTP handler.
func NewCompanyHandler(svc *service.CompanyService, logger *slog.Logger) *CompanyHandler {
	return &CompanyHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateCompanyRequest is the JSON request body for creating a company.
type CreateCompanyRequest struct {
	Name        string  `json:"name" validate:"notblank,max=200"`
	Slug        string  `json:"slug" validate:"omitempty,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	CountryID   string  `json:"country_id" validate:"required"`
	CityID      string  `json:"city_id" validate:"required"`
	CategoryID  string  `json:"category_id" validate:"required"`
	Phone       *string `json:"phone" validate:"omitempty,max=30"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Website     *string `json:"website" validate:"omitempty,url"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
	OwnerUserID *string `json:"owner_user_id" validate:"omitempty,uuid"`
	IsVerified  bool    `json:"is_verified"`
	IsFeatured  bool    `json:"is_featured"`
}

// --- Handlers ---

// ListCompanies handles GET /api/v1/companies
func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := &service.ListCompaniesInput{
		CountryID:  optionalParam(q.Get("country_id")),
		CityID:     optionalParam(q.Get("city_id")),
		CategoryID: optionalParam(q.Get("category_id")),
		Sort:       q.Get("sort"),
		Page:       pagination.FromRequest(r),
	}
	if v := q.Get("featured"); v != "" {
		featured, err := strconv.ParseBool(v)
		if err != nil {
			writeInvalidParameter(w, "featured must be true or false")
			return
		}
		input.Featured = &featured
	}

	companies, total, err := h.service.ListCompanies(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusOK, httputil.NewPage(companies, total, input.Page.Page, input.Page.PerPage))
}

// SearchCompanies handles GET /api/v1/companies/search
func (h *CompanyHandler) SearchCompanies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	p := pagination.FromRequest(r)
	query := &domain.CompanySearchQuery{
		Text:       q.Get("q"),
		CountryID:  optionalParam(q.Get("country_id")),
		CityID:     optionalParam(q.Get("city_id")),
		CategoryID: optionalParam(q.Get("category_id")),
		Sort:       q.Get("sort"),
		Page:       p.Page,
		PerPage:    p.PerPage,
	}
	if v := q.Get("min_rating"); v != "" {
		minRating, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeInvalidParameter(w, "min_rating must be a number")
			return
		}
		query.MinRating = &minRating
	}
	if v := q.Get("verified"); v != "" {
		verified, err := strconv.ParseBool(v)
		if err != nil {
			writeInvalidParameter(w, "verified must be true or false")
			return
		}
		query.VerifiedOnly = verified
	}

	result, err := h.service.SearchCompanies(r.Context(), query)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusOK, httputil.NewPage(result.Companies, result.Total, query.Page, query.PerPage))
}

// ReindexCompanies handles POST /api/v1/admin/companies/reindex
func (h *CompanyHandler) ReindexCompanies(w http.ResponseWriter, r *http.Request) {
	if !principalFrom(r).IsAdmin() {
		httputil.WriteError(w, r, errAdminRequired, h.logger)
		return
	}

	indexed, err := h.service.ReindexAll(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusOK, map[string]int{"indexed": indexed})
}

// GetCompany handles GET /api/v1/companies/{id}. The id may also be a slug.
func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.service.GetCompany(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusOK, company)
}

// CreateCompany handles POST /api/v1/companies
func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req CreateCompanyRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	company, err := h.service.CreateCompany(r.Context(), principalFrom(r), &service.CreateCompanyInput{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		CountryID:   req.CountryID,
		CityID:      req.CityID,
		CategoryID:  req.CategoryID,
		Phone:       req.Phone,
		Email:       req.Email,
		Website:     req.Website,
		Address:     req.Address,
		OwnerUserID: req.OwnerUserID,
		IsVerified:  req.IsVerified,
		IsFeatured:  req.IsFeatured,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteOK(w, http.StatusCreated, company)
}

// DeactivateCompany handles DELETE /api/v1/companies/{id}
func (h *CompanyHandler) DeactivateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeactivateCompany(r.Context(), principalFrom(r), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeInvalidParameter(w http.ResponseWriter, message string) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: message},
	})
}

func optionalParam(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
