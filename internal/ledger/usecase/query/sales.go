package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

// GetSaleHandler handles get sale query
type GetSaleHandler struct {
	repos domain.Repositories
}

// NewGetSaleHandler creates a new get sale handler
func NewGetSaleHandler(uow domain.UnitOfWork) *GetSaleHandler {
	return &GetSaleHandler{repos: uow.Reader()}
}

// Handle returns one sale as a flattened view
func (h *GetSaleHandler) Handle(ctx context.Context, id uint) (*domain.SaleView, error) {
	sale, err := h.repos.Sales().FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}

	views, err := buildSaleViews(ctx, h.repos, []domain.Sale{*sale})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// ListSalesQuery represents the query to list sales
type ListSalesQuery struct {
	From    time.Time
	To      time.Time
	Channel string
	Limit   int
}

// ListSalesHandler handles list sales query
type ListSalesHandler struct {
	repos domain.Repositories
}

// NewListSalesHandler creates a new list sales handler
func NewListSalesHandler(uow domain.UnitOfWork) *ListSalesHandler {
	return &ListSalesHandler{repos: uow.Reader()}
}

// Handle lists sales newest first
func (h *ListSalesHandler) Handle(ctx context.Context, query ListSalesQuery) ([]*domain.SaleView, error) {
	channel := domain.Channel(strings.ToUpper(strings.TrimSpace(query.Channel)))
	if channel != "" && channel != domain.ChannelPOS && channel != domain.ChannelOnline {
		return nil, fmt.Errorf("%w: unknown channel %q", domain.ErrInvalidInput, query.Channel)
	}
	if !query.From.IsZero() && !query.To.IsZero() && query.To.Before(query.From) {
		return nil, fmt.Errorf("%w: range end is before its start", domain.ErrInvalidInput)
	}

	sales, err := h.repos.Sales().List(ctx, domain.SaleFilter{
		From:    query.From,
		To:      query.To,
		Channel: channel,
		Limit:   query.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return buildSaleViews(ctx, h.repos, sales)
}

// buildSaleViews resolves product, customer and cashier names in bulk.
// References that no longer resolve leave the names empty.
func buildSaleViews(ctx context.Context, repos domain.Repositories, sales []domain.Sale) ([]*domain.SaleView, error) {
	productIDs := make([]uint, 0)
	seenProducts := make(map[uint]bool)
	customerIDs := make(map[uint]bool)
	for i := range sales {
		for _, item := range sales[i].Items {
			if !seenProducts[item.ProductID] {
				seenProducts[item.ProductID] = true
				productIDs = append(productIDs, item.ProductID)
			}
		}
		if sales[i].CustomerID != nil {
			customerIDs[*sales[i].CustomerID] = true
		}
	}

	found, err := repos.Products().FindByIDs(ctx, productIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load sale products: %w", err)
	}
	products := make(map[uint]*domain.Product, len(found))
	for i := range found {
		products[found[i].ID] = &found[i]
	}

	customers := make(map[uint]*domain.Customer, len(customerIDs))
	for id := range customerIDs {
		c, err := repos.Customers().FindByID(ctx, id)
		if err != nil {
			if domain.IsNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("failed to load sale customer: %w", err)
		}
		customers[id] = c
	}

	staff, err := repos.Staff().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load staff: %w", err)
	}
	cashiers := make(map[uint]*domain.Staff, len(staff))
	for i := range staff {
		cashiers[staff[i].ID] = &staff[i]
	}

	views := make([]*domain.SaleView, 0, len(sales))
	for i := range sales {
		sale := &sales[i]
		var customer *domain.Customer
		if sale.CustomerID != nil {
			customer = customers[*sale.CustomerID]
		}
		var cashier *domain.Staff
		if sale.CashierID != nil {
			cashier = cashiers[*sale.CashierID]
		}
		views = append(views, domain.NewSaleView(sale, products, customer, cashier))
	}
	return views, nil
}
