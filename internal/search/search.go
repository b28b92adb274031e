// Package search indexes active companies for full-text directory search.
package search

import (
	"context"

	"github.com/murabaat/review-service/internal/domain"
)

// Engine indexes and searches company documents. Implementations may use
// Elasticsearch or an in-process index.
type Engine interface {
	// Index adds or replaces a single company document.
	Index(ctx context.Context, doc *domain.CompanyDocument) error

	// Delete removes a company from the index. Missing documents are not an error.
	Delete(ctx context.Context, id string) error

	// BulkIndex adds or replaces many documents at once.
	BulkIndex(ctx context.Context, docs []domain.CompanyDocument) error

	// Search runs a query and returns one page of hits.
	Search(ctx context.Context, query *domain.CompanySearchQuery) (*domain.CompanySearchResult, error)
}
