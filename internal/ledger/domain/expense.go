package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseCategory groups operating costs
type ExpenseCategory string

const (
	ExpenseRent        ExpenseCategory = "RENT"
	ExpenseElectricity ExpenseCategory = "ELECTRICITY"
	ExpenseSalary      ExpenseCategory = "SALARY"
	ExpenseMaintenance ExpenseCategory = "MAINTENANCE"
	ExpenseOther       ExpenseCategory = "OTHER"
)

// Expense is an operating cost deducted from gross profit
type Expense struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Description string          `json:"description" gorm:"not null"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Category    ExpenseCategory `json:"category" gorm:"type:varchar(16);not null;default:'OTHER'"`
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
}

// TableName specifies the table name
func (Expense) TableName() string {
	return "expenses"
}

// ExpenseRepository defines the contract for expense data access
type ExpenseRepository interface {
	Create(ctx context.Context, expense *Expense) error
	// SumBetween totals expenses in [from, to); zero when none.
	SumBetween(ctx context.Context, from, to time.Time) (decimal.Decimal, error)
}
