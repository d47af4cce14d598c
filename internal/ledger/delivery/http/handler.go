package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/report"
	"github.com/tair/retail-ledger/internal/ledger/usecase/command"
	"github.com/tair/retail-ledger/internal/ledger/usecase/query"
	"github.com/tair/retail-ledger/pkg/logger"
)

// Commands groups the write-side handlers
type Commands struct {
	CreateSale        *command.CreateSaleHandler
	CreateOrder       *command.CreateOrderHandler
	UpdateOrderStatus *command.UpdateOrderStatusHandler
	AdjustStock       *command.AdjustStockHandler
}

// Queries groups the read-side handlers
type Queries struct {
	GetSale          *query.GetSaleHandler
	ListSales        *query.ListSalesHandler
	GetOrder         *query.GetOrderHandler
	ListOrders       *query.ListOrdersHandler
	StockHistory     *query.StockHistoryHandler
	LowStock         *query.LowStockHandler
	Dashboard        *query.DashboardHandler
	StockAuditReport *query.StockAuditReportHandler
	ReconcileStock   *query.ReconcileStockHandler
	Reorder          *query.ReorderSuggestionsHandler
	Prices           *query.PriceSuggestionsHandler
}

// LedgerHandler handles HTTP requests for the ledger
type LedgerHandler struct {
	commands Commands
	queries  Queries
	clock    domain.Clock
	validate *validator.Validate

	requestCounter *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
}

type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message,omitempty"`
	Data    interface{}       `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// NewLedgerHandler creates a new ledger handler and registers its request
// metrics with reg
func NewLedgerHandler(commands Commands, queries Queries, clock domain.Clock, reg prometheus.Registerer) *LedgerHandler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	factory := promauto.With(reg)
	return &LedgerHandler{
		commands: commands,
		queries:  queries,
		clock:    clock,
		validate: validate,
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_http_requests_total",
				Help: "Total number of requests to the ledger service",
			},
			[]string{"method", "endpoint", "status"},
		),
		requestLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_http_request_duration_seconds",
				Help:    "Duration of ledger service requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (h *LedgerHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		h.requestLatency.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		h.requestCounter.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
	}
}

// CreateSale handles POST /api/sales
func (h *LedgerHandler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if !h.decode(w, r, &req) {
		return
	}

	sale, err := h.commands.CreateSale.Handle(r.Context(), req.toCommand(CashierFromContext(r.Context())))
	if err != nil {
		h.respondError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Sale recorded successfully",
		Data:    sale,
	})
}

// GetSale handles GET /api/sales/{id}
func (h *LedgerHandler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	sale, err := h.queries.GetSale.Handle(r.Context(), id)
	if err != nil {
		h.respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: sale})
}

// ListSales handles GET /api/sales?from=&to=&channel=&limit=
func (h *LedgerHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	q, ok := h.salesQuery(w, r)
	if !ok {
		return
	}

	sales, err := h.queries.ListSales.Handle(r.Context(), q)
	if err != nil {
		h.respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: sales})
}

// ExportSales handles GET /api/sales/export and streams an XLSX workbook
func (h *LedgerHandler) ExportSales(w http.ResponseWriter, r *http.Request) {
	q, ok := h.salesQuery(w, r)
	if !ok {
		return
	}
	if q.Limit == 0 {
		q.Limit = domain.MaxSaleListLimit
	}

	sales, err := h.queries.ListSales.Handle(r.Context(), q)
	if err != nil {
		h.respondError(r.Context(), w, err)
		return
	}

	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=sales-%s.xlsx", h.clock.Now().Format("20060102")))
	if err := report.WriteSales(w, sales); err != nil {
		logger.Error(r.Context()).Err(err).Msg("Failed to write sales export")
	}
}

// CreateOrder handles POST /api/orders
func (h *LedgerHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.commands.CreateOrder.Handle(r.Context(), req.toCommand())
	if err != nil {
		h.respondError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Order placed successfully",
		Data:    order,
	})
}

// GetOrder handles GET /api/orders/{id}
func (h *LedgerHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.queries.GetOrder.Handle(r.Context(), id)
	if err != nil {
		h.respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: order})
}

// ListOrders handles GET /api/orders?status=
func (h *LedgerHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.queries.ListOrders.Handle(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		h.respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: orders})
}

// UpdateOrderStatus handles PATCH /api/orders/{id}/status
func (h *LedgerHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req updateOrderStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	order, err := h.commands.UpdateOrderStatus.Handle(r.Context(), command.UpdateOrderStatusCommand{
		OrderID: id,
		Status:  domain.OrderStatus(req.Status),
	})
	if err != nil {
		h.respondError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Order status updated successfully",
		Data:    order,
	})
}

// AdjustStock handles POST /api/inventory/{id}/adjust
func (h *LedgerHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req adjustStockRequest
	if !h.decode(w, r, &req) {
		return
	}

	product, err := h.commands.AdjustStock.Handle(r.Context(), req.toCommand(id))
	if err != nil {
		h.respondError(r.Context(), w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Stock adjusted successfully",
		Data:    product,
	})
}

// StockHistory handles GET /api/inventory/{id}/logs
func (h *LedgerHandler) StockHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	logs, err := h.queries.StockHistory.Handle(r.Context(), id)
	if err != nil {
		h.respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: logs})
}

// LowStock handles GET /api/inventory/low-stock
func (h *LedgerHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	products, err := h.queries.LowStock.Handle(r.Context())
	h.respondData(w, r, products, err)
}

// StockAuditReport handles GET /api/inventory/audit-report
func (h *LedgerHandler) StockAuditReport(w http.ResponseWriter, r *http.Request) {
	reports, err := h.queries.StockAuditReport.Handle(r.Context())
	h.respondData(w, r, reports, err)
}

// ReconcileStock handles GET /api/inventory/reconcile
func (h *LedgerHandler) ReconcileStock(w http.ResponseWriter, r *http.Request) {
	discrepancies, err := h.queries.ReconcileStock.Handle(r.Context())
	h.respondData(w, r, discrepancies, err)
}

// ReorderSuggestions handles GET /api/inventory/reorder-suggestions
func (h *LedgerHandler) ReorderSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.queries.Reorder.Handle(r.Context())
	h.respondData(w, r, suggestions, err)
}

// PriceSuggestions handles GET /api/inventory/price-suggestions
func (h *LedgerHandler) PriceSuggestions(w http.ResponseWriter, r *http.Request) {
	suggestions, err := h.queries.Prices.Handle(r.Context())
	h.respondData(w, r, suggestions, err)
}

// Dashboard handles GET /api/dashboard
func (h *LedgerHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.queries.Dashboard.Handle(r.Context())
	h.respondData(w, r, dashboard, err)
}

// RegisterRoutes registers all ledger routes. Idempotent wraps the POST
// endpoints that create sales and orders.
func (h *LedgerHandler) RegisterRoutes(router *mux.Router, idempotent func(http.Handler) http.Handler) {
	if idempotent == nil {
		idempotent = func(next http.Handler) http.Handler { return next }
	}

	router.Handle("/api/sales", idempotent(h.metricsMiddleware("create_sale", h.CreateSale))).Methods("POST")
	router.HandleFunc("/api/sales", h.metricsMiddleware("list_sales", h.ListSales)).Methods("GET")
	router.HandleFunc("/api/sales/export", h.metricsMiddleware("export_sales", h.ExportSales)).Methods("GET")
	router.HandleFunc("/api/sales/{id:[0-9]+}", h.metricsMiddleware("get_sale", h.GetSale)).Methods("GET")

	router.Handle("/api/orders", idempotent(h.metricsMiddleware("create_order", h.CreateOrder))).Methods("POST")
	router.HandleFunc("/api/orders", h.metricsMiddleware("list_orders", h.ListOrders)).Methods("GET")
	router.HandleFunc("/api/orders/{id:[0-9]+}", h.metricsMiddleware("get_order", h.GetOrder)).Methods("GET")
	router.HandleFunc("/api/orders/{id:[0-9]+}/status", h.metricsMiddleware("update_order_status", h.UpdateOrderStatus)).Methods("PATCH")

	router.HandleFunc("/api/inventory/low-stock", h.metricsMiddleware("low_stock", h.LowStock)).Methods("GET")
	router.HandleFunc("/api/inventory/audit-report", h.metricsMiddleware("stock_audit_report", h.StockAuditReport)).Methods("GET")
	router.HandleFunc("/api/inventory/reconcile", h.metricsMiddleware("reconcile_stock", h.ReconcileStock)).Methods("GET")
	router.HandleFunc("/api/inventory/reorder-suggestions", h.metricsMiddleware("reorder_suggestions", h.ReorderSuggestions)).Methods("GET")
	router.HandleFunc("/api/inventory/price-suggestions", h.metricsMiddleware("price_suggestions", h.PriceSuggestions)).Methods("GET")
	router.HandleFunc("/api/inventory/{id:[0-9]+}/adjust", h.metricsMiddleware("adjust_stock", h.AdjustStock)).Methods("POST")
	router.HandleFunc("/api/inventory/{id:[0-9]+}/logs", h.metricsMiddleware("stock_history", h.StockHistory)).Methods("GET")

	router.HandleFunc("/api/dashboard", h.metricsMiddleware("dashboard", h.Dashboard)).Methods("GET")
}

// RegisterHealthCheck registers health check endpoint. ping may be nil
// when the ledger runs on the in-memory store.
func (h *LedgerHandler) RegisterHealthCheck(router *mux.Router, ping func(ctx context.Context) error) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				respondJSON(w, http.StatusServiceUnavailable, Response{
					Success: false,
					Error:   "Database unavailable",
				})
				return
			}
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Ledger service is healthy",
		})
	}).Methods("GET")
}

func (h *LedgerHandler) decode(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Validation failed",
			Details: validationDetails(err),
		})
		return false
	}
	return true
}

func (h *LedgerHandler) salesQuery(w http.ResponseWriter, r *http.Request) (query.ListSalesQuery, bool) {
	values := r.URL.Query()
	loc := h.clock.Now().Location()

	var q query.ListSalesQuery
	var err error
	if q.From, err = parseDate(values.Get("from"), loc, false); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid 'from' date"})
		return q, false
	}
	if q.To, err = parseDate(values.Get("to"), loc, true); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid 'to' date"})
		return q, false
	}
	if raw := values.Get("limit"); raw != "" {
		if q.Limit, err = strconv.Atoi(raw); err != nil || q.Limit < 0 {
			respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid limit"})
			return q, false
		}
	}
	q.Channel = values.Get("channel")
	return q, true
}

func (h *LedgerHandler) respondData(w http.ResponseWriter, r *http.Request, data interface{}, err error) {
	if err != nil {
		h.respondError(r.Context(), w, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

func (h *LedgerHandler) respondError(ctx context.Context, w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error(ctx).Err(err).Msg("Request failed")
		message = "Internal server error"
	}
	respondJSON(w, status, Response{Success: false, Error: message})
}

// StatusFor maps a ledger error to an HTTP status
func StatusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsStockConflict(err):
		return http.StatusConflict
	case domain.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseDate accepts RFC 3339 or a bare date. A bare end date covers the whole day.
func parseDate(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)[name], 10, 32)
	if err != nil || id == 0 {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid ID",
		})
		return 0, false
	}
	return uint(id), true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
