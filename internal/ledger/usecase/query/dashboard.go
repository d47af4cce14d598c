package query

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/tair/retail-ledger/internal/ledger/analytics"
	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/pkg/logger"
)

var tracer = otel.Tracer("ledger-query")

// TopProducts is the configured size of the top products list
type TopProducts int

// DashboardHandler handles dashboard query
type DashboardHandler struct {
	repos domain.Repositories
	clock domain.Clock
	topN  int
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(uow domain.UnitOfWork, clock domain.Clock, topN TopProducts) *DashboardHandler {
	return &DashboardHandler{repos: uow.Reader(), clock: clock, topN: int(topN)}
}

// Handle loads a snapshot of committed state and derives the dashboard.
// Nothing is cached between calls.
func (h *DashboardHandler) Handle(ctx context.Context) (*analytics.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "query.Dashboard")
	defer span.End()

	now := h.clock.Now()
	snap, err := h.load(ctx, analytics.NewWindows(now))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error(ctx).Err(err).Msg("Failed to load dashboard snapshot")
		return nil, err
	}

	dash := analytics.Compute(now, snap)
	span.SetAttributes(
		attribute.Int("dashboard.sales", len(snap.Sales)),
		attribute.Int("dashboard.health_score", dash.HealthScore),
	)
	return &dash, nil
}

func (h *DashboardHandler) load(ctx context.Context, w analytics.Windows) (analytics.Snapshot, error) {
	snap := analytics.Snapshot{TopN: h.topN}
	now := h.clock.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sales, err := h.repos.Sales().FindBetween(gctx, w.LoadFrom(), w.TodayEnd)
		if err != nil {
			return fmt.Errorf("failed to load sales: %w", err)
		}
		snap.Sales = sales

		for _, id := range analytics.RecentCustomerIDs(sales) {
			c, err := h.repos.Customers().FindByID(gctx, id)
			if err != nil {
				if domain.IsNotFound(err) {
					continue
				}
				return fmt.Errorf("failed to load customer: %w", err)
			}
			snap.Customers = append(snap.Customers, *c)
		}
		return nil
	})
	g.Go(func() error {
		products, err := h.repos.Products().FindAll(gctx)
		if err != nil {
			return fmt.Errorf("failed to load products: %w", err)
		}
		snap.Products = products
		return nil
	})
	g.Go(func() error {
		lowStock, err := h.repos.Products().FindLowStock(gctx)
		if err != nil {
			return fmt.Errorf("failed to load low stock products: %w", err)
		}
		snap.LowStock = lowStock
		return nil
	})
	g.Go(func() error {
		expiring, err := h.repos.Products().FindExpiringBefore(gctx, now.AddDate(0, 0, analytics.ExpiringSoonDays))
		if err != nil {
			return fmt.Errorf("failed to load expiring products: %w", err)
		}
		snap.Expiring = expiring
		return nil
	})
	g.Go(func() error {
		stagnant, err := h.repos.Customers().FindStagnant(gctx, now.AddDate(0, 0, -analytics.StagnantAfterDays), analytics.StagnantMinVisits)
		if err != nil {
			return fmt.Errorf("failed to load stagnant customers: %w", err)
		}
		snap.Stagnant = stagnant
		return nil
	})
	g.Go(func() error {
		staff, err := h.repos.Staff().FindAll(gctx)
		if err != nil {
			return fmt.Errorf("failed to load staff: %w", err)
		}
		snap.Staff = staff
		return nil
	})
	g.Go(func() error {
		expenses, err := h.repos.Expenses().SumBetween(gctx, w.MonthStart, w.TodayEnd)
		if err != nil {
			return fmt.Errorf("failed to sum expenses: %w", err)
		}
		snap.MonthExpenses = expenses
		return nil
	})

	if err := g.Wait(); err != nil {
		return analytics.Snapshot{}, err
	}
	return snap, nil
}
