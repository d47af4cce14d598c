package command_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/ledgertest"
	"github.com/tair/retail-ledger/internal/ledger/metrics"
	"github.com/tair/retail-ledger/internal/ledger/repository/memory"
	"github.com/tair/retail-ledger/internal/ledger/usecase/command"
	"github.com/tair/retail-ledger/kafka"
)

var money = ledgertest.Money

type recordingPublisher struct {
	mu     sync.Mutex
	sales  []kafka.SaleRecordedEvent
	orders []kafka.OrderEvent
	err    error
}

func (p *recordingPublisher) PublishSaleRecorded(_ context.Context, event kafka.SaleRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sales = append(p.sales, event)
	return p.err
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event kafka.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = append(p.orders, event)
	return p.err
}

type saleFixture struct {
	store     *memory.Store
	clock     *ledgertest.Clock
	publisher *recordingPublisher
	handler   *command.CreateSaleHandler
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	f := &saleFixture{
		store:     memory.New(),
		clock:     ledgertest.NewClock(time.Date(2024, 3, 14, 10, 30, 0, 0, time.UTC)),
		publisher: &recordingPublisher{},
	}
	f.handler = command.NewCreateSaleHandler(f.store, f.clock, f.publisher, metrics.NewLedger(prometheus.NewRegistry()))
	return f
}

func TestCreateSale_Arithmetic(t *testing.T) {
	f := newSaleFixture(t)
	tea := ledgertest.Product(t, f.store, domain.Product{Name: "Tea", Category: "Drinks", SellingPrice: money("10.50"), PurchasePrice: money("6"), CurrentStock: 20})
	bread := ledgertest.Product(t, f.store, domain.Product{Name: "Bread", Category: "Bakery", SellingPrice: money("3.25"), PurchasePrice: money("2"), CurrentStock: 10})

	view, err := f.handler.Handle(context.Background(), command.CreateSaleCommand{
		Items: []command.SaleLine{
			{ProductID: tea.ID, Quantity: 2},
			{ProductID: bread.ID, Quantity: 4},
		},
		Discount: money("4"),
	})
	require.NoError(t, err)

	assert.True(t, view.Subtotal.Equal(money("34")), "subtotal %s", view.Subtotal)
	assert.True(t, view.Discount.Equal(money("4")))
	assert.True(t, view.Total.Equal(money("30")), "total %s", view.Total)
	assert.Equal(t, domain.ChannelPOS, view.Channel)
	assert.Equal(t, domain.DefaultPaymentMethod, view.PaymentMethod)
	require.Len(t, view.Items, 2)
	assert.Equal(t, "Tea", view.Items[0].ProductName)
	assert.True(t, view.Items[0].Total.Equal(money("21")))
	assert.True(t, view.Items[1].UnitPrice.Equal(money("3.25")))

	assert.Equal(t, 18, ledgertest.CurrentStock(t, f.store, tea.ID))
	assert.Equal(t, 6, ledgertest.CurrentStock(t, f.store, bread.ID))

	logs := ledgertest.Logs(t, f.store, bread.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, -4, logs[0].QuantityChange)
	assert.Equal(t, domain.StockChangeSale, logs[0].Type)
	assert.Equal(t, "POS sale", logs[0].Reason)
	assert.Equal(t, f.clock.Now(), logs[0].CreatedAt)

	require.Len(t, f.publisher.sales, 1)
	assert.Equal(t, view.ID, f.publisher.sales[0].SaleID)
	assert.Equal(t, "POS", f.publisher.sales[0].Channel)
}

func TestCreateSale_BundleFanOut(t *testing.T) {
	f := newSaleFixture(t)
	eggs := ledgertest.Product(t, f.store, domain.Product{Name: "Eggs", SellingPrice: money("4"), CurrentStock: 10})
	milk := ledgertest.Product(t, f.store, domain.Product{Name: "Milk", SellingPrice: money("2.5"), CurrentStock: 10})
	bundle := ledgertest.Bundle(t, f.store, domain.Bundle{
		Name:  "Breakfast",
		Price: money("20"),
		Items: []domain.BundleItem{
			{ProductID: eggs.ID, Quantity: 2},
			{ProductID: milk.ID, Quantity: 1},
		},
	})

	view, err := f.handler.Handle(context.Background(), command.CreateSaleCommand{
		BundleIDs:     []uint{bundle.ID},
		PaymentMethod: "card",
	})
	require.NoError(t, err)

	assert.True(t, view.Subtotal.Equal(money("20")))
	assert.True(t, view.Total.Equal(money("20")))
	assert.Equal(t, "CARD", view.PaymentMethod)
	require.Len(t, view.Items, 2)
	for _, item := range view.Items {
		require.NotNil(t, item.BundleID)
		assert.Equal(t, bundle.ID, *item.BundleID)
		assert.True(t, item.UnitPrice.IsZero())
		assert.True(t, item.Total.IsZero())
	}

	assert.Equal(t, 8, ledgertest.CurrentStock(t, f.store, eggs.ID))
	assert.Equal(t, 9, ledgertest.CurrentStock(t, f.store, milk.ID))

	logs := ledgertest.Logs(t, f.store, eggs.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.StockChangeSaleBundle, logs[0].Type)
	assert.Equal(t, "Bundle: Breakfast", logs[0].Reason)
	assert.Equal(t, -2, logs[0].QuantityChange)
}

func TestCreateSale_FailureLeavesNoTrace(t *testing.T) {
	f := newSaleFixture(t)
	plenty := ledgertest.Product(t, f.store, domain.Product{Name: "Rice", SellingPrice: money("5"), CurrentStock: 5})
	scarce := ledgertest.Product(t, f.store, domain.Product{Name: "Saffron", SellingPrice: money("30"), CurrentStock: 1})
	customer := ledgertest.Customer(t, f.store, domain.Customer{Name: "Mona"})

	_, err := f.handler.Handle(context.Background(), command.CreateSaleCommand{
		CustomerID: &customer.ID,
		Items: []command.SaleLine{
			{ProductID: plenty.ID, Quantity: 2},
			{ProductID: scarce.ID, Quantity: 3},
		},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, scarce.ID, stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 1, stockErr.Available)

	assert.Equal(t, 5, ledgertest.CurrentStock(t, f.store, plenty.ID))
	assert.Equal(t, 1, ledgertest.CurrentStock(t, f.store, scarce.ID))
	assert.Empty(t, ledgertest.Logs(t, f.store, plenty.ID))

	sales, err := f.store.Reader().Sales().List(context.Background(), domain.SaleFilter{})
	require.NoError(t, err)
	assert.Empty(t, sales)

	stored, err := f.store.Reader().Customers().FindByID(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.VisitCount)
	assert.Empty(t, f.publisher.sales)
}

func TestCreateSale_LoyaltyAccrual(t *testing.T) {
	f := newSaleFixture(t)
	product := ledgertest.Product(t, f.store, domain.Product{Name: "Olive Oil", Category: "Pantry", SellingPrice: money("100"), CurrentStock: 10})
	customer := ledgertest.Customer(t, f.store, domain.Customer{
		Name:           "Karim",
		TotalPurchases: money("900"),
		VisitCount:     2,
		AvgTicketSize:  money("450"),
	})

	view, err := f.handler.Handle(context.Background(), command.CreateSaleCommand{
		CustomerID: &customer.ID,
		Items:      []command.SaleLine{{ProductID: product.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Karim", view.CustomerName)

	stored, err := f.store.Reader().Customers().FindByID(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.True(t, stored.TotalPurchases.Equal(money("1100")), "total purchases %s", stored.TotalPurchases)
	assert.Equal(t, 3, stored.VisitCount)
	assert.True(t, stored.AvgTicketSize.Equal(money("366.67")), "avg ticket %s", stored.AvgTicketSize)
	assert.Equal(t, 30, stored.LoyaltyPoints)
	assert.Equal(t, "Pantry", stored.FavoriteCategory)
	require.NotNil(t, stored.LastVisitAt)
	assert.Equal(t, f.clock.Now(), *stored.LastVisitAt)
}

func TestCreateSale_Rejections(t *testing.T) {
	f := newSaleFixture(t)
	active := ledgertest.Product(t, f.store, domain.Product{Name: "Soap", SellingPrice: money("10"), CurrentStock: 10})
	inactive := ledgertest.Product(t, f.store, domain.Product{Name: "Old Soap", SellingPrice: money("10"), CurrentStock: 10, Status: domain.ProductStatusInactive})
	retired := ledgertest.Bundle(t, f.store, domain.Bundle{
		Name:   "Retired",
		Price:  money("5"),
		Status: domain.ProductStatusInactive,
		Items:  []domain.BundleItem{{ProductID: active.ID, Quantity: 1}},
	})
	unknown := uint(999)

	tests := []struct {
		name string
		cmd  command.CreateSaleCommand
		want error
	}{
		{
			name: "empty",
			cmd:  command.CreateSaleCommand{},
			want: domain.ErrEmptyTransaction,
		},
		{
			name: "zero quantity",
			cmd:  command.CreateSaleCommand{Items: []command.SaleLine{{ProductID: active.ID, Quantity: 0}}},
			want: domain.ErrInvalidQuantity,
		},
		{
			name: "negative discount",
			cmd: command.CreateSaleCommand{
				Items:    []command.SaleLine{{ProductID: active.ID, Quantity: 1}},
				Discount: money("-1"),
			},
			want: domain.ErrInvalidDiscount,
		},
		{
			name: "discount above subtotal",
			cmd: command.CreateSaleCommand{
				Items:    []command.SaleLine{{ProductID: active.ID, Quantity: 1}},
				Discount: money("10.01"),
			},
			want: domain.ErrInvalidDiscount,
		},
		{
			name: "unknown product",
			cmd:  command.CreateSaleCommand{Items: []command.SaleLine{{ProductID: unknown, Quantity: 1}}},
			want: domain.ErrNotFound,
		},
		{
			name: "inactive product",
			cmd:  command.CreateSaleCommand{Items: []command.SaleLine{{ProductID: inactive.ID, Quantity: 1}}},
			want: domain.ErrInactiveProduct,
		},
		{
			name: "inactive bundle",
			cmd:  command.CreateSaleCommand{BundleIDs: []uint{retired.ID}},
			want: domain.ErrInactiveBundle,
		},
		{
			name: "unknown bundle",
			cmd:  command.CreateSaleCommand{BundleIDs: []uint{unknown}},
			want: domain.ErrBundleNotFound,
		},
		{
			name: "unknown customer",
			cmd: command.CreateSaleCommand{
				CustomerID: &unknown,
				Items:      []command.SaleLine{{ProductID: active.ID, Quantity: 1}},
			},
			want: domain.ErrCustomerNotFound,
		},
		{
			name: "unknown cashier",
			cmd: command.CreateSaleCommand{
				CashierID: &unknown,
				Items:     []command.SaleLine{{ProductID: active.ID, Quantity: 1}},
			},
			want: domain.ErrStaffNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.handler.Handle(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 10, ledgertest.CurrentStock(t, f.store, active.ID))
	assert.Empty(t, ledgertest.Logs(t, f.store, active.ID))
}

func TestCreateSale_DiscountEqualToSubtotal(t *testing.T) {
	f := newSaleFixture(t)
	product := ledgertest.Product(t, f.store, domain.Product{Name: "Sample", SellingPrice: money("7.5"), CurrentStock: 3})

	view, err := f.handler.Handle(context.Background(), command.CreateSaleCommand{
		Items:    []command.SaleLine{{ProductID: product.ID, Quantity: 2}},
		Discount: money("15"),
	})
	require.NoError(t, err)
	assert.True(t, view.Total.IsZero())
}

func TestCreateSale_CashierName(t *testing.T) {
	f := newSaleFixture(t)
	product := ledgertest.Product(t, f.store, domain.Product{Name: "Pen", SellingPrice: money("1"), CurrentStock: 3})
	cashier := ledgertest.Staff(t, f.store, domain.Staff{Username: "nour", FullName: "Nour Adel", Role: "cashier"})

	view, err := f.handler.Handle(context.Background(), command.CreateSaleCommand{
		CashierID: &cashier.ID,
		Items:     []command.SaleLine{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Nour Adel", view.CashierName)
	require.NotNil(t, view.CashierID)
	assert.Equal(t, cashier.ID, *view.CashierID)
}

func TestCreateSale_PublishFailureKeepsSale(t *testing.T) {
	f := newSaleFixture(t)
	f.publisher.err = errors.New("broker down")
	product := ledgertest.Product(t, f.store, domain.Product{Name: "Pen", SellingPrice: money("1"), CurrentStock: 3})

	view, err := f.handler.Handle(context.Background(), command.CreateSaleCommand{
		Items: []command.SaleLine{{ProductID: product.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.NotZero(t, view.ID)
	assert.Equal(t, 2, ledgertest.CurrentStock(t, f.store, product.ID))
}

func TestCreateSale_ConcurrentCheckouts(t *testing.T) {
	tests := []struct {
		name      string
		stock     int
		buyers    int
		qty       int
		wantOK    int
		wantStock int
	}{
		{name: "stock covers every buyer", stock: 20, buyers: 20, qty: 1, wantOK: 20, wantStock: 0},
		{name: "one unit left over", stock: 20, buyers: 19, qty: 1, wantOK: 19, wantStock: 1},
		{name: "oversubscribed", stock: 20, buyers: 25, qty: 1, wantOK: 20, wantStock: 0},
		{name: "two buyers for all but one unit", stock: 10, buyers: 2, qty: 9, wantOK: 1, wantStock: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSaleFixture(t)
			product := ledgertest.Product(t, f.store, domain.Product{Name: "Limited", SellingPrice: money("2"), CurrentStock: tt.stock})

			var (
				wg       sync.WaitGroup
				mu       sync.Mutex
				ok       int
				shortage int
			)
			for i := 0; i < tt.buyers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := f.handler.Handle(context.Background(), command.CreateSaleCommand{
						Items: []command.SaleLine{{ProductID: product.ID, Quantity: tt.qty}},
					})
					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						ok++
					case errors.Is(err, domain.ErrInsufficientStock):
						shortage++
					default:
						t.Errorf("unexpected error: %v", err)
					}
				}()
			}
			wg.Wait()

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.buyers-tt.wantOK, shortage)
			assert.Equal(t, tt.wantStock, ledgertest.CurrentStock(t, f.store, product.ID))

			sum := 0
			for _, entry := range ledgertest.Logs(t, f.store, product.ID) {
				sum += entry.QuantityChange
			}
			assert.Equal(t, -tt.wantOK*tt.qty, sum)
		})
	}
}

func TestCreateSale_ItemPricesUseSellingPrice(t *testing.T) {
	f := newSaleFixture(t)
	discounted := ledgertest.Product(t, f.store, domain.Product{
		Name:               "Cheese",
		SellingPrice:       money("40"),
		DiscountPercentage: decimal.NewFromInt(25),
		CurrentStock:       5,
	})

	view, err := f.handler.Handle(context.Background(), command.CreateSaleCommand{
		Items: []command.SaleLine{{ProductID: discounted.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.True(t, view.Total.Equal(money("40")), "POS ignores the online discount, got %s", view.Total)
}
