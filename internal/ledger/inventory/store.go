package inventory

import (
	"context"
	"fmt"

	"github.com/tair/retail-ledger/internal/ledger/audit"
	"github.com/tair/retail-ledger/internal/ledger/domain"
)

// Store is the only path that changes product stock. Every successful
// change is paired with one audit entry in the same unit of work.
type Store struct {
	products domain.ProductRepository
	trail    *audit.Trail
}

// NewStore binds a store to the repositories of the current unit of work
func NewStore(repos domain.Repositories, clock domain.Clock) *Store {
	return &Store{
		products: repos.Products(),
		trail:    audit.NewTrail(repos, clock),
	}
}

// GetProduct returns a product or ErrProductNotFound
func (s *Store) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	return s.products.FindByID(ctx, id)
}

// Deduct removes qty units from an active product and records -qty.
// Nothing is written when the product is missing, inactive or short.
func (s *Store) Deduct(ctx context.Context, id uint, qty int, changeType domain.StockChangeType, reason string) (*domain.Product, error) {
	if qty <= 0 {
		return nil, domain.ErrInvalidQuantity
	}

	affected, err := s.products.Deduct(ctx, id, qty)
	if err != nil {
		return nil, fmt.Errorf("failed to deduct stock: %w", err)
	}
	if affected == 0 {
		return nil, s.classifyDeductMiss(ctx, id, qty)
	}

	if _, err := s.trail.Record(ctx, id, -qty, changeType, reason); err != nil {
		return nil, err
	}
	return s.products.FindByID(ctx, id)
}

// Adjust applies a signed delta and records it. An empty change type
// resolves to RESTOCK for additions and ADJUSTMENT otherwise.
func (s *Store) Adjust(ctx context.Context, id uint, delta int, changeType domain.StockChangeType, reason string, opts ...audit.RecordOption) (*domain.Product, error) {
	if delta == 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if changeType == "" {
		changeType = domain.StockChangeAdjustment
		if delta > 0 {
			changeType = domain.StockChangeRestock
		}
	}

	affected, err := s.products.Adjust(ctx, id, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock: %w", err)
	}
	if affected == 0 {
		product, err := s.products.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, &domain.StockError{
			Kind:        domain.ErrInsufficientStock,
			ProductID:   product.ID,
			ProductName: product.Name,
			Requested:   -delta,
			Available:   product.CurrentStock,
		}
	}

	if _, err := s.trail.Record(ctx, id, delta, changeType, reason, opts...); err != nil {
		return nil, err
	}
	return s.products.FindByID(ctx, id)
}

func (s *Store) classifyDeductMiss(ctx context.Context, id uint, qty int) error {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !product.IsActive() {
		return &domain.StockError{
			Kind:        domain.ErrInactiveProduct,
			ProductID:   product.ID,
			ProductName: product.Name,
		}
	}
	return &domain.StockError{
		Kind:        domain.ErrInsufficientStock,
		ProductID:   product.ID,
		ProductName: product.Name,
		Requested:   qty,
		Available:   product.CurrentStock,
	}
}
