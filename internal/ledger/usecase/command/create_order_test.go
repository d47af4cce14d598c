package command_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/retail-ledger/internal/ledger/domain"
	"github.com/tair/retail-ledger/internal/ledger/ledgertest"
	"github.com/tair/retail-ledger/internal/ledger/repository/memory"
	"github.com/tair/retail-ledger/internal/ledger/usecase/command"
	"github.com/tair/retail-ledger/kafka"
)

type orderFixture struct {
	store     *memory.Store
	clock     *ledgertest.Clock
	publisher *recordingPublisher
	create    *command.CreateOrderHandler
	update    *command.UpdateOrderStatusHandler
	customer  *domain.Customer
	oil       *domain.Product
	cheese    *domain.Product
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{
		store:     memory.New(),
		clock:     ledgertest.NewClock(time.Date(2024, 5, 2, 18, 0, 0, 0, time.UTC)),
		publisher: &recordingPublisher{},
	}
	f.create = command.NewCreateOrderHandler(f.store, f.clock, f.publisher, nil, "EG")
	f.update = command.NewUpdateOrderStatusHandler(f.store, f.clock, f.publisher, nil)

	f.customer = ledgertest.Customer(t, f.store, domain.Customer{Name: "Salma"})
	f.oil = ledgertest.Product(t, f.store, domain.Product{Name: "Oil", Category: "Pantry", SellingPrice: money("50"), CurrentStock: 10})
	f.cheese = ledgertest.Product(t, f.store, domain.Product{
		Name:               "Cheese",
		Category:           "Dairy",
		SellingPrice:       money("50"),
		DiscountPercentage: decimal.NewFromInt(20),
		CurrentStock:       4,
	})
	return f
}

func (f *orderFixture) place(t *testing.T) *domain.DeliveryOrder {
	t.Helper()
	order, err := f.create.Handle(context.Background(), command.CreateOrderCommand{
		CustomerID: f.customer.ID,
		Items: []command.OrderLine{
			{ProductID: f.oil.ID, Quantity: 2},
			{ProductID: f.cheese.ID, Quantity: 1},
		},
		Address:     "12 Nile St, Cairo",
		Phone:       "01001234567",
		DeliveryFee: money("10"),
	})
	require.NoError(t, err)
	return order
}

func TestCreateOrder_MirrorsOnlineSale(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)

	assert.Equal(t, domain.OrderStatusPending, order.Status)
	assert.True(t, order.TotalAmount.Equal(money("150")), "order total %s", order.TotalAmount)
	assert.Equal(t, "+201001234567", order.Phone)
	require.Len(t, order.Items, 2)
	assert.True(t, order.Items[1].PriceAtOrder.Equal(money("40")))

	sale, err := f.store.Reader().Sales().FindBySourceOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChannelOnline, sale.Channel)
	assert.True(t, sale.Subtotal.Equal(money("150")))
	assert.True(t, sale.Total.Equal(money("150")))
	assert.True(t, sale.Discount.IsZero())
	assert.True(t, sale.DeliveryFee.Equal(money("10")), "delivery fee %s", sale.DeliveryFee)
	itemsTotal := decimal.Zero
	for _, item := range sale.Items {
		itemsTotal = itemsTotal.Add(item.Total)
	}
	assert.True(t, itemsTotal.Add(sale.DeliveryFee).Equal(sale.Subtotal), "items %s + fee %s != subtotal %s", itemsTotal, sale.DeliveryFee, sale.Subtotal)
	assert.Equal(t, "Salma", sale.ExternalCustomerName)
	assert.Equal(t, "+201001234567", sale.ExternalCustomerPhone)
	assert.Equal(t, "12 Nile St, Cairo", sale.ExternalCustomerAddress)
	require.NotNil(t, sale.CustomerID)
	assert.Equal(t, f.customer.ID, *sale.CustomerID)

	assert.Equal(t, 8, ledgertest.CurrentStock(t, f.store, f.oil.ID))
	assert.Equal(t, 3, ledgertest.CurrentStock(t, f.store, f.cheese.ID))
	logs := ledgertest.Logs(t, f.store, f.cheese.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, domain.StockChangeOnlineOrder, logs[0].Type)
	assert.Equal(t, "Order checkout (online)", logs[0].Reason)

	customer, err := f.store.Reader().Customers().FindByID(context.Background(), f.customer.ID)
	require.NoError(t, err)
	assert.True(t, customer.TotalPurchases.Equal(money("150")))
	assert.Equal(t, 1, customer.VisitCount)
	assert.Equal(t, "Pantry", customer.FavoriteCategory)

	require.Len(t, f.publisher.orders, 1)
	assert.Equal(t, kafka.EventTypeOrderCreated, f.publisher.orders[0].EventType)
	assert.Equal(t, sale.ID, f.publisher.orders[0].SaleID)
	require.Len(t, f.publisher.sales, 1)
	assert.Equal(t, "ONLINE", f.publisher.sales[0].Channel)
}

func TestCreateOrder_FullNameOverridesProfile(t *testing.T) {
	f := newOrderFixture(t)
	order, err := f.create.Handle(context.Background(), command.CreateOrderCommand{
		CustomerID: f.customer.ID,
		Items:      []command.OrderLine{{ProductID: f.oil.ID, Quantity: 1}},
		Address:    "Flat 3",
		Phone:      "not a number",
		FullName:   "  Salma H.  ",
	})
	require.NoError(t, err)
	assert.Equal(t, "Salma H.", order.FullName)
	assert.Equal(t, "not a number", order.Phone)
	assert.True(t, order.DeliveryFee.IsZero())

	sale, err := f.store.Reader().Sales().FindBySourceOrderID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, "Salma H.", sale.ExternalCustomerName)
}

func TestCreateOrder_Rejections(t *testing.T) {
	f := newOrderFixture(t)

	tests := []struct {
		name string
		cmd  command.CreateOrderCommand
		want error
	}{
		{
			name: "empty",
			cmd:  command.CreateOrderCommand{CustomerID: f.customer.ID, Address: "a", Phone: "1"},
			want: domain.ErrEmptyTransaction,
		},
		{
			name: "missing address",
			cmd: command.CreateOrderCommand{
				CustomerID: f.customer.ID,
				Items:      []command.OrderLine{{ProductID: f.oil.ID, Quantity: 1}},
				Phone:      "1",
			},
			want: domain.ErrInvalidInput,
		},
		{
			name: "negative fee",
			cmd: command.CreateOrderCommand{
				CustomerID:  f.customer.ID,
				Items:       []command.OrderLine{{ProductID: f.oil.ID, Quantity: 1}},
				Address:     "a",
				Phone:       "1",
				DeliveryFee: money("-5"),
			},
			want: domain.ErrInvalidInput,
		},
		{
			name: "unknown customer",
			cmd: command.CreateOrderCommand{
				CustomerID: 999,
				Items:      []command.OrderLine{{ProductID: f.oil.ID, Quantity: 1}},
				Address:    "a",
				Phone:      "1",
			},
			want: domain.ErrCustomerNotFound,
		},
		{
			name: "short stock",
			cmd: command.CreateOrderCommand{
				CustomerID: f.customer.ID,
				Items: []command.OrderLine{
					{ProductID: f.oil.ID, Quantity: 1},
					{ProductID: f.cheese.ID, Quantity: 5},
				},
				Address: "a",
				Phone:   "1",
			},
			want: domain.ErrInsufficientStock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.create.Handle(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	assert.Equal(t, 10, ledgertest.CurrentStock(t, f.store, f.oil.ID))
	orders, err := f.store.Reader().Orders().FindByStatus(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUpdateOrderStatus_Transitions(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)
	ctx := context.Background()

	f.clock.Advance(time.Hour)
	updated, err := f.update.Handle(ctx, command.UpdateOrderStatusCommand{OrderID: order.ID, Status: "preparing"})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPreparing, updated.Status)
	assert.Equal(t, f.clock.Now(), updated.UpdatedAt)

	_, err = f.update.Handle(ctx, command.UpdateOrderStatusCommand{OrderID: order.ID, Status: domain.OrderStatusDelivered})
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	_, err = f.update.Handle(ctx, command.UpdateOrderStatusCommand{OrderID: order.ID, Status: domain.OrderStatusOutForDelivery})
	require.NoError(t, err)
	_, err = f.update.Handle(ctx, command.UpdateOrderStatusCommand{OrderID: order.ID, Status: domain.OrderStatusDelivered})
	require.NoError(t, err)

	_, err = f.update.Handle(ctx, command.UpdateOrderStatusCommand{OrderID: order.ID, Status: domain.OrderStatusCancelled})
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	require.Len(t, f.publisher.orders, 4)
	last := f.publisher.orders[3]
	assert.Equal(t, kafka.EventTypeOrderStatusChanged, last.EventType)
	assert.Equal(t, "OUT_FOR_DELIVERY", last.PreviousStatus)
	assert.Equal(t, "DELIVERED", last.Status)
}

func TestUpdateOrderStatus_CancelKeepsInventory(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)

	cancelled, err := f.update.Handle(context.Background(), command.UpdateOrderStatusCommand{OrderID: order.ID, Status: domain.OrderStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, cancelled.Status)

	assert.Equal(t, 8, ledgertest.CurrentStock(t, f.store, f.oil.ID))
	assert.Len(t, ledgertest.Logs(t, f.store, f.oil.ID), 1)

	_, err = f.update.Handle(context.Background(), command.UpdateOrderStatusCommand{OrderID: order.ID, Status: domain.OrderStatusPreparing})
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
}

func TestUpdateOrderStatus_Rejections(t *testing.T) {
	f := newOrderFixture(t)
	order := f.place(t)

	_, err := f.update.Handle(context.Background(), command.UpdateOrderStatusCommand{OrderID: order.ID, Status: "SHIPPED"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.update.Handle(context.Background(), command.UpdateOrderStatusCommand{OrderID: 42, Status: domain.OrderStatusPreparing})
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.update.Handle(context.Background(), command.UpdateOrderStatusCommand{OrderID: order.ID, Status: domain.OrderStatusPending})
	assert.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		phone  string
		region command.PhoneRegion
		want   string
	}{
		{"01001234567", "EG", "+201001234567"},
		{"+20 100 123 4567", "EG", "+201001234567"},
		{"(201) 555-0123", "us", "+12015550123"},
		{"  12  ", "EG", "12"},
		{"call me", "EG", "call me"},
	}
	for _, tt := range tests {
		t.Run(tt.phone, func(t *testing.T) {
			assert.Equal(t, tt.want, command.NormalizePhone(tt.phone, tt.region))
		})
	}
}
