// Package fuelindex tracks the current fuel price per tenant for live fuel
// surcharge computation.
package fuelindex

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pghie87/salem-invoice-system2/internal/domain"
	"github.com/pghie87/salem-invoice-system2/internal/repository"
)

// Service reads and records tenant fuel prices. Lookups hit the cache
// first and fall back to the repository, repopulating the cache on a miss.
type Service struct {
	repo  domain.Repository
	cache domain.Cache
	ttl   time.Duration
}

// NewService creates a fuel index service. The cache may be nil, in which
// case every lookup goes to the repository.
func NewService(repo domain.Repository, cache domain.Cache, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Service{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// Record stores a new fuel price observation and refreshes the cache.
func (s *Service) Record(ctx context.Context, tenantID string, price float64) error {
	if tenantID == "" {
		return fmt.Errorf("tenantID is required")
	}
	if price <= 0 {
		return fmt.Errorf("fuel price must be positive, got %v", price)
	}

	if err := s.repo.SaveFuelPrice(ctx, tenantID, price, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to save fuel price: %w", err)
	}

	if s.cache != nil {
		// Cache refresh is best-effort; the repository already has the price.
		_ = s.cache.SetFuelPrice(ctx, tenantID, price, s.ttl)
	}

	return nil
}

// Current returns the latest fuel price for a tenant. A tenant with no
// recorded price gets zero, which pricing treats as "no live price".
func (s *Service) Current(ctx context.Context, tenantID string) (float64, error) {
	if tenantID == "" {
		return 0, fmt.Errorf("tenantID is required")
	}

	if s.cache != nil {
		price, found, err := s.cache.GetFuelPrice(ctx, tenantID)
		if err == nil && found {
			return price, nil
		}
	}

	price, _, err := s.repo.LatestFuelPrice(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to load fuel price: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.SetFuelPrice(ctx, tenantID, price, s.ttl)
	}

	return price, nil
}

// Getter returns the lookup function the pricing catalog expects.
func (s *Service) Getter() func(ctx context.Context, tenantID string) (float64, error) {
	return s.Current
}
