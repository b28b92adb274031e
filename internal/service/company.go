package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/internal/repository"
	"github.com/murabaat/review-service/internal/search"
	apperrors "github.com/murabaat/review-service/pkg/errors"
	"github.com/murabaat/review-service/pkg/pagination"
	"github.com/murabaat/review-service/pkg/slug"
)

// CreateCompanyInput holds the parameters for creating a company.
type CreateCompanyInput struct {
	Name        string
	Slug        string
	Description string
	CountryID   string
	CityID      string
	CategoryID  string
	Phone       *string
	Email       *string
	Website     *string
	Address     *string
	OwnerUserID *string
	IsVerified  bool
	IsFeatured  bool
}

// ListCompaniesInput holds the public directory filters.
type ListCompaniesInput struct {
	CountryID  *string
	CityID     *string
	CategoryID *string
	Featured   *bool
	Sort       string
	Page       pagination.Params
}

// CompanyService manages the company directory.
type CompanyService struct {
	repo   repository.CompanyRepository
	cache  CompanyCache
	search search.Engine
	logger *slog.Logger
}

// NewCompanyService creates a new company service. cache may be nil.
func NewCompanyService(repo repository.CompanyRepository, cache CompanyCache, logger *slog.Logger) *CompanyService {
	return &CompanyService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// WithSearchIndex keeps idx in step with company writes and enables
// SearchCompanies.
func (s *CompanyService) WithSearchIndex(idx search.Engine) *CompanyService {
	s.search = idx
	return s
}

// CreateCompany adds an active company with a zero aggregate. Without an
// explicit slug one is generated from the name; if that slug is taken or the
// name yields nothing usable, a short id suffix is appended.
func (s *CompanyService) CreateCompany(ctx context.Context, principal domain.Principal, input *CreateCompanyInput) (*domain.Company, error) {
	if err := requireAdmin(principal); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("name is required")
	}
	if input.CountryID == "" || input.CityID == "" || input.CategoryID == "" {
		return nil, apperrors.InvalidInput("country_id, city_id and category_id are required")
	}

	id := uuid.New().String()
	explicit := strings.TrimSpace(input.Slug) != ""
	base := slug.Generate(input.Slug)
	if !explicit {
		base = slug.Generate(name)
	}
	if base == "" {
		base = slug.WithSuffix("company", id[:8])
	}

	now := time.Now().UTC()
	company := &domain.Company{
		ID:          id,
		Slug:        base,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		CountryID:   input.CountryID,
		CityID:      input.CityID,
		CategoryID:  input.CategoryID,
		Phone:       input.Phone,
		Email:       input.Email,
		Website:     input.Website,
		Address:     input.Address,
		OwnerUserID: input.OwnerUserID,
		IsActive:    true,
		IsVerified:  input.IsVerified,
		IsFeatured:  input.IsFeatured,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.repo.Create(ctx, company)
	if errors.Is(err, apperrors.ErrAlreadyExists) && !explicit {
		company.Slug = slug.WithSuffix(base, id[:8])
		err = s.repo.Create(ctx, company)
	}
	if err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	s.logger.InfoContext(ctx, "company created",
		slog.String("company_id", company.ID),
		slog.String("slug", company.Slug),
	)

	if s.search != nil {
		doc := domain.NewCompanyDocument(company)
		if err := s.search.Index(ctx, &doc); err != nil {
			s.logger.WarnContext(ctx, "failed to index company",
				slog.String("company_id", company.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	return company, nil
}

// GetCompany looks an active company up by id or slug, reading through the
// cache.
func (s *CompanyService) GetCompany(ctx context.Context, idOrSlug string) (*domain.Company, error) {
	var (
		company *domain.Company
		err     error
	)
	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		company, err = s.byID(ctx, id.String())
	} else {
		company, err = s.bySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, err
	}

	if !company.IsActive {
		return nil, apperrors.NotFound("company", idOrSlug)
	}
	return company, nil
}

func (s *CompanyService) cached(ctx context.Context, id string) *domain.Company {
	if s.cache == nil {
		return nil
	}
	company, ok, err := s.cache.Get(ctx, id)
	if err != nil {
		s.logger.WarnContext(ctx, "company cache read failed",
			slog.String("company_id", id),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if !ok {
		return nil
	}
	return company
}

func (s *CompanyService) store(ctx context.Context, company *domain.Company) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Add(ctx, company); err != nil {
		s.logger.WarnContext(ctx, "company cache write failed",
			slog.String("company_id", company.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CompanyService) byID(ctx context.Context, id string) (*domain.Company, error) {
	if company := s.cached(ctx, id); company != nil {
		return company, nil
	}

	company, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get company: %w", err)
	}
	s.store(ctx, company)
	return company, nil
}

func (s *CompanyService) bySlug(ctx context.Context, companySlug string) (*domain.Company, error) {
	if s.cache != nil {
		id, ok, err := s.cache.IDForSlug(ctx, companySlug)
		if err != nil {
			s.logger.WarnContext(ctx, "company slug cache read failed",
				slog.String("slug", companySlug),
				slog.String("error", err.Error()),
			)
		}
		if ok {
			if company := s.cached(ctx, id); company != nil {
				return company, nil
			}
		}
	}

	company, err := s.repo.GetBySlug(ctx, companySlug)
	if err != nil {
		return nil, fmt.Errorf("get company by slug: %w", err)
	}
	s.store(ctx, company)
	return company, nil
}

// ListCompanies returns a page of active companies.
func (s *CompanyService) ListCompanies(ctx context.Context, input *ListCompaniesInput) ([]domain.Company, int, error) {
	if !domain.IsValidCompanySort(input.Sort) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid sort %q", input.Sort))
	}

	companies, total, err := s.repo.List(ctx, repository.CompanyFilter{
		CountryID:  input.CountryID,
		CityID:     input.CityID,
		CategoryID: input.CategoryID,
		Featured:   input.Featured,
		ActiveOnly: true,
		Sort:       input.Sort,
		Page:       input.Page.Page,
		PerPage:    input.Page.PerPage,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list companies: %w", err)
	}
	return companies, total, nil
}

// DeactivateCompany soft-deletes a company. The cached document is replaced
// by the inactive row so public lookups miss it.
func (s *CompanyService) DeactivateCompany(ctx context.Context, principal domain.Principal, id string) error {
	if err := requireAdmin(principal); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return fmt.Errorf("deactivate company: %w", err)
	}

	if s.cache != nil {
		overwriteCached(ctx, s.cache, s.repo, id, s.logger)
	}

	if s.search != nil {
		if err := s.search.Delete(ctx, id); err != nil {
			s.logger.WarnContext(ctx, "failed to remove company from search index",
				slog.String("company_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "company deactivated", slog.String("company_id", id))
	return nil
}

// SearchCompanies runs a full-text search over active companies.
func (s *CompanyService) SearchCompanies(ctx context.Context, query *domain.CompanySearchQuery) (*domain.CompanySearchResult, error) {
	if s.search == nil {
		return nil, apperrors.InvalidState("company search is not enabled")
	}
	if query.Sort == "" {
		query.Sort = domain.CompanySortRelevance
	}
	if !domain.IsValidSearchSort(query.Sort) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid sort %q", query.Sort))
	}
	if query.MinRating != nil && (*query.MinRating < 0 || *query.MinRating > 5) {
		return nil, apperrors.InvalidInput("min_rating must be between 0 and 5")
	}

	p := pagination.New(query.Page, query.PerPage)
	query.Page, query.PerPage = p.Page, p.PerPage

	result, err := s.search.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search companies: %w", err)
	}
	return result, nil
}

// ReindexAll loads every active company into the search index and returns
// how many were indexed.
func (s *CompanyService) ReindexAll(ctx context.Context) (int, error) {
	if s.search == nil {
		return 0, nil
	}

	indexed := 0
	for page := 1; ; page++ {
		companies, total, err := s.repo.List(ctx, repository.CompanyFilter{
			ActiveOnly: true,
			Page:       page,
			PerPage:    pagination.MaxPerPage,
		})
		if err != nil {
			return indexed, fmt.Errorf("list companies for reindex: %w", err)
		}
		if len(companies) == 0 {
			break
		}

		docs := make([]domain.CompanyDocument, 0, len(companies))
		for i := range companies {
			docs = append(docs, domain.NewCompanyDocument(&companies[i]))
		}
		if err := s.search.BulkIndex(ctx, docs); err != nil {
			return indexed, fmt.Errorf("bulk index companies: %w", err)
		}

		indexed += len(docs)
		if indexed >= total {
			break
		}
	}

	s.logger.InfoContext(ctx, "company search index rebuilt", slog.Int("companies", indexed))
	return indexed, nil
}
