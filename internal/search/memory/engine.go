package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/murabaat/review-service/internal/domain"
	"github.com/murabaat/review-service/pkg/pagination"
)

// Engine is an in-process company index with case-insensitive substring
// matching on name and description. Safe for concurrent use.
type Engine struct {
	mu   sync.RWMutex
	docs map[string]domain.CompanyDocument
}

// New creates an empty in-memory index.
func New() *Engine {
	return &Engine{docs: make(map[string]domain.CompanyDocument)}
}

// Index adds or replaces a document.
func (e *Engine) Index(_ context.Context, doc *domain.CompanyDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.docs[doc.ID] = *doc
	return nil
}

// Delete removes a document by id.
func (e *Engine) Delete(_ context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.docs, id)
	return nil
}

// BulkIndex adds or replaces many documents.
func (e *Engine) BulkIndex(_ context.Context, docs []domain.CompanyDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range docs {
		e.docs[docs[i].ID] = docs[i]
	}
	return nil
}

// Len returns the number of indexed documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

type hit struct {
	doc   domain.CompanyDocument
	score int
}

// Search filters, scores and pages the index.
func (e *Engine) Search(_ context.Context, query *domain.CompanySearchQuery) (*domain.CompanySearchResult, error) {
	start := time.Now()
	text := strings.ToLower(strings.TrimSpace(query.Text))

	e.mu.RLock()
	hits := make([]hit, 0)
	for _, d := range e.docs {
		score, ok := match(d, query, text)
		if !ok {
			continue
		}
		hits = append(hits, hit{doc: d, score: score})
	}
	e.mu.RUnlock()

	sortHits(hits, query.Sort)

	p := pagination.New(query.Page, query.PerPage)
	from, to := p.Bounds(len(hits))
	companies := make([]domain.CompanyDocument, 0, to-from)
	for _, h := range hits[from:to] {
		companies = append(companies, h.doc)
	}

	return &domain.CompanySearchResult{
		Companies: companies,
		Total:     len(hits),
		TookMs:    time.Since(start).Milliseconds(),
	}, nil
}

// match applies the filters and returns a crude relevance score: a name hit
// outranks a description hit.
func match(d domain.CompanyDocument, q *domain.CompanySearchQuery, text string) (int, bool) {
	if q.CountryID != nil && d.CountryID != *q.CountryID {
		return 0, false
	}
	if q.CityID != nil && d.CityID != *q.CityID {
		return 0, false
	}
	if q.CategoryID != nil && d.CategoryID != *q.CategoryID {
		return 0, false
	}
	if q.MinRating != nil && d.Rating < *q.MinRating {
		return 0, false
	}
	if q.VerifiedOnly && !d.IsVerified {
		return 0, false
	}
	if text == "" {
		return 0, true
	}

	score := 0
	if strings.Contains(strings.ToLower(d.Name), text) {
		score += 2
	}
	if strings.Contains(strings.ToLower(d.Description), text) {
		score++
	}
	return score, score > 0
}

func sortHits(hits []hit, sortBy string) {
	sort.Slice(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		switch sortBy {
		case domain.CompanySortRating:
			if a.doc.Rating != b.doc.Rating {
				return a.doc.Rating > b.doc.Rating
			}
			if a.doc.ReviewsCount != b.doc.ReviewsCount {
				return a.doc.ReviewsCount > b.doc.ReviewsCount
			}
		case domain.CompanySortReviews:
			if a.doc.ReviewsCount != b.doc.ReviewsCount {
				return a.doc.ReviewsCount > b.doc.ReviewsCount
			}
		case domain.CompanySortNewest:
			if !a.doc.CreatedAt.Equal(b.doc.CreatedAt) {
				return a.doc.CreatedAt.After(b.doc.CreatedAt)
			}
		default:
			if a.score != b.score {
				return a.score > b.score
			}
			if a.doc.IsFeatured != b.doc.IsFeatured {
				return a.doc.IsFeatured
			}
		}
		if a.doc.Name != b.doc.Name {
			return a.doc.Name < b.doc.Name
		}
		return a.doc.ID < b.doc.ID
	})
}
