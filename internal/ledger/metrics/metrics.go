package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

// Ledger holds the business counters of the ledger. A nil *Ledger is valid
// and records nothing.
type Ledger struct {
	sales            *prometheus.CounterVec
	revenue          *prometheus.CounterVec
	rejections       *prometheus.CounterVec
	stockMovements   *prometheus.CounterVec
	orderTransitions *prometheus.CounterVec
}

// NewLedger registers the ledger counters with reg
func NewLedger(reg prometheus.Registerer) *Ledger {
	factory := promauto.With(reg)
	return &Ledger{
		sales: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_sales_total",
				Help: "Committed sales by channel",
			},
			[]string{"channel"},
		),
		revenue: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_sales_revenue_total",
				Help: "Committed sale totals by channel",
			},
			[]string{"channel"},
		),
		rejections: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_rejected_operations_total",
				Help: "Write operations rolled back, by operation and reason",
			},
			[]string{"operation", "reason"},
		),
		stockMovements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_stock_movements_total",
				Help: "Units moved through the stock audit trail by change type",
			},
			[]string{"type"},
		),
		orderTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_order_transitions_total",
				Help: "Delivery order status transitions by target status",
			},
			[]string{"status"},
		),
	}
}

// ObserveSale counts one committed sale
func (m *Ledger) ObserveSale(channel domain.Channel, total decimal.Decimal) {
	if m == nil {
		return
	}
	m.sales.WithLabelValues(string(channel)).Inc()
	m.revenue.WithLabelValues(string(channel)).Add(total.InexactFloat64())
}

// ObserveStockMovement counts units moved by one audit entry
func (m *Ledger) ObserveStockMovement(changeType domain.StockChangeType, delta int) {
	if m == nil {
		return
	}
	if delta < 0 {
		delta = -delta
	}
	m.stockMovements.WithLabelValues(string(changeType)).Add(float64(delta))
}

// ObserveOrderTransition counts one status change
func (m *Ledger) ObserveOrderTransition(status domain.OrderStatus) {
	if m == nil {
		return
	}
	m.orderTransitions.WithLabelValues(string(status)).Inc()
}

// ObserveRejection counts one rolled-back operation
func (m *Ledger) ObserveRejection(operation string, err error) {
	if m == nil || err == nil {
		return
	}
	m.rejections.WithLabelValues(operation, Reason(err)).Inc()
}

// Reason maps an error to a low-cardinality label
func Reason(err error) string {
	switch {
	case domain.IsNotFound(err):
		return "not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrInactiveProduct), errors.Is(err, domain.ErrInactiveBundle):
		return "inactive"
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		return "invalid_transition"
	case domain.IsValidation(err):
		return "validation"
	default:
		return "error"
	}
}
