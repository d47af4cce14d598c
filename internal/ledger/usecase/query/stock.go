package query

import (
	"context"
	"fmt"

	"github.com/tair/retail-ledger/internal/ledger/analytics"
	"github.com/tair/retail-ledger/internal/ledger/audit"
	"github.com/tair/retail-ledger/internal/ledger/domain"
)

// StockHistoryHandler handles stock history query
type StockHistoryHandler struct {
	repos domain.Repositories
	clock domain.Clock
}

// NewStockHistoryHandler creates a new stock history handler
func NewStockHistoryHandler(uow domain.UnitOfWork, clock domain.Clock) *StockHistoryHandler {
	return &StockHistoryHandler{repos: uow.Reader(), clock: clock}
}

// Handle lists a product's audit entries, newest first
func (h *StockHistoryHandler) Handle(ctx context.Context, productID uint) ([]domain.StockLog, error) {
	if _, err := h.repos.Products().FindByID(ctx, productID); err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return audit.NewTrail(h.repos, h.clock).History(ctx, productID)
}

// LowStockHandler handles low stock query
type LowStockHandler struct {
	repos domain.Repositories
}

// NewLowStockHandler creates a new low stock handler
func NewLowStockHandler(uow domain.UnitOfWork) *LowStockHandler {
	return &LowStockHandler{repos: uow.Reader()}
}

// Handle lists active products at or below their minimum stock
func (h *LowStockHandler) Handle(ctx context.Context) ([]domain.Product, error) {
	products, err := h.repos.Products().FindLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list low stock products: %w", err)
	}
	return products, nil
}

// StockAuditReportHandler handles stock audit report query
type StockAuditReportHandler struct {
	repos domain.Repositories
}

// NewStockAuditReportHandler creates a new stock audit report handler
func NewStockAuditReportHandler(uow domain.UnitOfWork) *StockAuditReportHandler {
	return &StockAuditReportHandler{repos: uow.Reader()}
}

// Handle reports products whose write-offs exceed the loss threshold
func (h *StockAuditReportHandler) Handle(ctx context.Context) ([]analytics.LossReport, error) {
	products, err := h.repos.Products().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	logs, err := h.repos.StockLogs().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock logs: %w", err)
	}
	return analytics.StockAuditReport(products, logs), nil
}

// ReconcileStockHandler handles reconcile stock query
type ReconcileStockHandler struct {
	repos domain.Repositories
}

// NewReconcileStockHandler creates a new reconcile stock handler
func NewReconcileStockHandler(uow domain.UnitOfWork) *ReconcileStockHandler {
	return &ReconcileStockHandler{repos: uow.Reader()}
}

// Handle lists products whose stock disagrees with the audit trail.
// An empty result means the ledger reconciles.
func (h *ReconcileStockHandler) Handle(ctx context.Context) ([]analytics.Discrepancy, error) {
	products, err := h.repos.Products().FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	deltas, err := h.repos.StockLogs().SumByProduct(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum stock logs: %w", err)
	}
	return analytics.Reconcile(products, deltas), nil
}
