// Package ledgertest provides fixtures for ledger tests.
package ledgertest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tair/retail-ledger/internal/ledger/domain"
)

// Clock is a settable domain.Clock
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at now
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set moves the clock to t
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Money parses a decimal literal
func Money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Product stores p and returns it with its ID set. Status defaults to ACTIVE.
func Product(t testing.TB, uow domain.UnitOfWork, p domain.Product) *domain.Product {
	t.Helper()
	if p.Status == "" {
		p.Status = domain.ProductStatusActive
	}
	require.NoError(t, uow.Do(context.Background(), func(repos domain.Repositories) error {
		return repos.Products().Create(context.Background(), &p)
	}))
	return &p
}

// Customer stores c and returns it with its ID set
func Customer(t testing.TB, uow domain.UnitOfWork, c domain.Customer) *domain.Customer {
	t.Helper()
	require.NoError(t, uow.Do(context.Background(), func(repos domain.Repositories) error {
		return repos.Customers().Create(context.Background(), &c)
	}))
	return &c
}

// Staff stores s and returns it with its ID set
func Staff(t testing.TB, uow domain.UnitOfWork, s domain.Staff) *domain.Staff {
	t.Helper()
	require.NoError(t, uow.Do(context.Background(), func(repos domain.Repositories) error {
		return repos.Staff().Create(context.Background(), &s)
	}))
	return &s
}

// Bundle stores b and returns it with its ID set
func Bundle(t testing.TB, uow domain.UnitOfWork, b domain.Bundle) *domain.Bundle {
	t.Helper()
	if b.Status == "" {
		b.Status = domain.ProductStatusActive
	}
	require.NoError(t, uow.Do(context.Background(), func(repos domain.Repositories) error {
		return repos.Bundles().Create(context.Background(), &b)
	}))
	return &b
}

// Expense stores e
func Expense(t testing.TB, uow domain.UnitOfWork, e domain.Expense) {
	t.Helper()
	require.NoError(t, uow.Do(context.Background(), func(repos domain.Repositories) error {
		return repos.Expenses().Create(context.Background(), &e)
	}))
}

// CurrentStock reads a product's committed stock
func CurrentStock(t testing.TB, uow domain.UnitOfWork, id uint) int {
	t.Helper()
	p, err := uow.Reader().Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.CurrentStock
}

// Logs reads a product's audit trail, newest first
func Logs(t testing.TB, uow domain.UnitOfWork, id uint) []domain.StockLog {
	t.Helper()
	logs, err := uow.Reader().StockLogs().FindByProductID(context.Background(), id)
	require.NoError(t, err)
	return logs
}
