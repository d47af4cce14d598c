package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

// GetOrderHandler handles get order query
type GetOrderHandler struct {
	repos domain.Repositories
}

// NewGetOrderHandler creates a new get order handler
func NewGetOrderHandler(uow domain.UnitOfWork) *GetOrderHandler {
	return &GetOrderHandler{repos: uow.Reader()}
}

// Handle returns one delivery order with its items
func (h *GetOrderHandler) Handle(ctx context.Context, id uint) (*domain.DeliveryOrder, error) {
	order, err := h.repos.Orders().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return order, nil
}

// ListOrdersHandler handles list orders query
type ListOrdersHandler struct {
	repos domain.Repositories
}

// NewListOrdersHandler creates a new list orders handler
func NewListOrdersHandler(uow domain.UnitOfWork) *ListOrdersHandler {
	return &ListOrdersHandler{repos: uow.Reader()}
}

// Handle lists orders in a status, or all orders for an empty status
func (h *ListOrdersHandler) Handle(ctx context.Context, status string) ([]domain.DeliveryOrder, error) {
	s := domain.OrderStatus(strings.ToUpper(strings.TrimSpace(status)))
	if s != "" && !s.Valid() {
		return nil, fmt.Errorf("%w: unknown order status %q", domain.ErrInvalidInput, status)
	}

	orders, err := h.repos.Orders().FindByStatus(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}
