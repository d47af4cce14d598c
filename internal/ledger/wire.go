//go:build wireinject
// +build wireinject

package ledger

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tair/retail-ledger/internal/ledger/delivery/http"
	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/metrics"
	"github.com/tair/retail-ledger/internal/ledger/usecase/command"
	"github.com/tair/retail-ledger/internal/ledger/usecase/query"
)

// Wire sets
var CommandSet = wire.NewSet(
	command.NewCreateSaleHandler,
	command.NewCreateOrderHandler,
	command.NewUpdateOrderStatusHandler,
	command.NewAdjustStockHandler,
	wire.Struct(new(http.Commands), "*"),
)

var QuerySet = wire.NewSet(
	query.NewGetSaleHandler,
	query.NewListSalesHandler,
	query.NewGetOrderHandler,
	query.NewListOrdersHandler,
	query.NewStockHistoryHandler,
	query.NewLowStockHandler,
	query.NewDashboardHandler,
	query.NewStockAuditReportHandler,
	query.NewReconcileStockHandler,
	query.NewReorderSuggestionsHandler,
	query.NewPriceSuggestionsHandler,
	wire.Struct(new(http.Queries), "*"),
)

// InitializeApplication initializes the HTTP handler and the stock consumer
// callbacks with all dependencies
func InitializeApplication(
	uow domain.UnitOfWork,
	clock domain.Clock,
	publisher command.EventPublisher,
	reg prometheus.Registerer,
	region command.PhoneRegion,
	topN query.TopProducts,
) (*Application, error) {
	wire.Build(
		metrics.NewLedger,
		CommandSet,
		QuerySet,
		http.NewLedgerHandler,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil
}
