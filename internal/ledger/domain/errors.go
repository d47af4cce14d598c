package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("ledger: not found")
	ErrProductNotFound  = fmt.Errorf("%w: product", ErrNotFound)
	ErrCustomerNotFound = fmt.Errorf("%w: customer", ErrNotFound)
	ErrBundleNotFound   = fmt.Errorf("%w: bundle", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("%w: delivery order", ErrNotFound)
	ErrSaleNotFound     = fmt.Errorf("%w: sale", ErrNotFound)
	ErrStaffNotFound    = fmt.Errorf("%w: staff", ErrNotFound)

	ErrInsufficientStock = errors.New("ledger: insufficient stock")
	ErrInactiveProduct   = errors.New("ledger: product is inactive")
	ErrInactiveBundle    = errors.New("ledger: bundle is inactive")

	ErrEmptyTransaction        = errors.New("ledger: transaction has no items or bundles")
	ErrInvalidQuantity         = errors.New("ledger: quantity must be positive")
	ErrInvalidDiscount         = errors.New("ledger: discount must be between zero and the subtotal")
	ErrInvalidInput            = errors.New("ledger: invalid input")
	ErrInvalidStatusTransition = errors.New("ledger: invalid order status transition")
)

// StockError names the product a stock operation failed on.
// Kind is ErrInsufficientStock or ErrInactiveProduct.
type StockError struct {
	Kind        error
	ProductID   uint
	ProductName string
	Requested   int
	Available   int
}

func (e *StockError) Error() string {
	if errors.Is(e.Kind, ErrInsufficientStock) {
		return fmt.Sprintf("%v: %s (id %d) requested %d, available %d",
			e.Kind, e.ProductName, e.ProductID, e.Requested, e.Available)
	}
	return fmt.Sprintf("%v: %s (id %d)", e.Kind, e.ProductName, e.ProductID)
}

func (e *StockError) Unwrap() error {
	return e.Kind
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsStockConflict reports whether err is caused by stock availability.
func IsStockConflict(err error) bool {
	return errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrInactiveProduct) ||
		errors.Is(err, ErrInactiveBundle) ||
		errors.Is(err, ErrInvalidStatusTransition)
}

// IsValidation reports whether err is a rejected request.
func IsValidation(err error) bool {
	return errors.Is(err, ErrEmptyTransaction) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidDiscount) ||
		errors.Is(err, ErrInvalidInput)
}
