// Package redis caches public company reads in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/murabaat/review-service/internal/domain"
)

const (
	companyKeyPrefix = "review-service:company:"
	slugKeyPrefix    = "review-service:company-slug:"
)

// CompanyCache is a cache-aside store of company documents. Readers fill it
// with Add, which never replaces an entry; writers overwrite with Set after
// committing. A reader that loaded a row before a write therefore cannot put
// the old rating back. The slug index only maps slug to id.
type CompanyCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewCompanyCache creates a company cache whose entries expire after ttl.
func NewCompanyCache(client redis.Cmdable, ttl time.Duration) *CompanyCache {
	return &CompanyCache{client: client, ttl: ttl}
}

// Get returns the cached company. A miss is (nil, false, nil).
func (c *CompanyCache) Get(ctx context.Context, id string) (*domain.Company, bool, error) {
	data, err := c.client.Get(ctx, companyKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get company: %w", err)
	}

	var company domain.Company
	if err := json.Unmarshal(data, &company); err != nil {
		return nil, false, fmt.Errorf("unmarshal company: %w", err)
	}

	return &company, true, nil
}

// IDForSlug resolves a slug through the index. A miss is ("", false, nil).
func (c *CompanyCache) IDForSlug(ctx context.Context, slug string) (string, bool, error) {
	id, err := c.client.Get(ctx, slugKeyPrefix+slug).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get company slug: %w", err)
	}
	return id, true, nil
}

// Set stores the company document and its slug index entry.
func (c *CompanyCache) Set(ctx context.Context, company *domain.Company) error {
	data, err := json.Marshal(company)
	if err != nil {
		return fmt.Errorf("marshal company: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, companyKeyPrefix+company.ID, data, c.ttl)
	pipe.Set(ctx, slugKeyPrefix+company.Slug, company.ID, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis set company: %w", err)
	}

	return nil
}

// Add stores the company only if no document is cached for its id. It
// reports whether the document was written.
func (c *CompanyCache) Add(ctx context.Context, company *domain.Company) (bool, error) {
	data, err := json.Marshal(company)
	if err != nil {
		return false, fmt.Errorf("marshal company: %w", err)
	}

	pipe := c.client.TxPipeline()
	added := pipe.SetNX(ctx, companyKeyPrefix+company.ID, data, c.ttl)
	pipe.Set(ctx, slugKeyPrefix+company.Slug, company.ID, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis add company: %w", err)
	}

	return added.Val(), nil
}

// Invalidate drops the cached document for id.
func (c *CompanyCache) Invalidate(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, companyKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del company: %w", err)
	}
	return nil
}
