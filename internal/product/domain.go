package product

import (
	"errors"
	"fmt"
	"time"
)

// Product is a single stocked item. Prices are held in integer paise.
type Product struct {
	ID             int64
	Name           string
	Quantity       int64
	UnitPriceMinor int64
	CreatedAt      time.Time
}

// AddInput describes a new product row.
type AddInput struct {
	Name       string
	Quantity   int64
	PriceMinor int64
}

// ErrInvalidInput indicates a rejected add request.
var ErrInvalidInput = errors.New("product: invalid input")

// InsufficientStockError reports an oversell attempt together with the
// quantity still available, so callers can surface it to the operator.
type InsufficientStockError struct {
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock (available: %d)", e.Available)
}
