package product

import (
	"context"
	"fmt"
	"strings"
)

// Service coordinates product store operations.
type Service struct {
	repo Repository
}

// NewService builds Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the full inventory in insertion order.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.repo.List(ctx)
}

// ListInStock returns only products that can still be billed.
func (s *Service) ListInStock(ctx context.Context) ([]Product, error) {
	return s.repo.ListInStock(ctx)
}

// Add inserts a new product.
func (s *Service) Add(ctx context.Context, input AddInput) (Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return Product{}, fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if input.Quantity < 0 {
		return Product{}, fmt.Errorf("%w: quantity must not be negative", ErrInvalidInput)
	}
	if input.PriceMinor < 0 {
		return Product{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	return s.repo.Insert(ctx, input)
}

// Delete removes a product. Absent ids are a no-op.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
