package query

import (
	"context"
	"fmt"

	"github.com/tair/retail-ledger/internal/ledger/analytics"
	"github.com/tair/retail-ledger/internal/ledger/domain"
)

// ReorderSuggestionsHandler handles reorder suggestions query
type ReorderSuggestionsHandler struct {
	repos domain.Repositories
	clock domain.Clock
}

// NewReorderSuggestionsHandler creates a new reorder suggestions handler
func NewReorderSuggestionsHandler(uow domain.UnitOfWork, clock domain.Clock) *ReorderSuggestionsHandler {
	return &ReorderSuggestionsHandler{repos: uow.Reader(), clock: clock}
}

// Handle proposes restock quantities from the last 30 days of sales
func (h *ReorderSuggestionsHandler) Handle(ctx context.Context) ([]analytics.ReorderSuggestion, error) {
	now := h.clock.Now()
	since := now.AddDate(0, 0, -analytics.VelocityWindowDays)

	products, err := h.repos.Products().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	sales, err := h.repos.Sales().FindBetween(ctx, since, analytics.NewWindows(now).TodayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	return analytics.SuggestReorders(products, analytics.UnitsSold(sales, since)), nil
}

// PriceSuggestionsHandler handles price suggestions query
type PriceSuggestionsHandler struct {
	repos domain.Repositories
	clock domain.Clock
}

// NewPriceSuggestionsHandler creates a new price suggestions handler
func NewPriceSuggestionsHandler(uow domain.UnitOfWork, clock domain.Clock) *PriceSuggestionsHandler {
	return &PriceSuggestionsHandler{repos: uow.Reader(), clock: clock}
}

// Handle proposes markdowns for expiring and slow-moving stock
func (h *PriceSuggestionsHandler) Handle(ctx context.Context) ([]analytics.PriceSuggestion, error) {
	now := h.clock.Now()
	since := now.AddDate(0, 0, -analytics.SlowMovingDays)

	products, err := h.repos.Products().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	sales, err := h.repos.Sales().FindBetween(ctx, since, analytics.NewWindows(now).TodayEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to load sales: %w", err)
	}
	return analytics.SuggestPrices(now, products, analytics.UnitsSold(sales, since)), nil
}
