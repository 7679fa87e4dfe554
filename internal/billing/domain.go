package billing

import (
	"errors"
	"time"
)

// TaxRatePercent is the flat GST rate applied to every bill.
const TaxRatePercent = 18

// Invoice is the persisted record of a generated bill. Amounts are in
// integer paise; rupee formatting happens at render time only.
type Invoice struct {
	ID             int64
	Number         string
	ProductID      int64
	ProductName    string
	UnitPriceMinor int64
	Quantity       int64
	SubtotalMinor  int64
	TaxMinor       int64
	TotalMinor     int64
	PDFPath        string
	IssuedAt       time.Time
}

// ErrInvalidQuantity indicates a non-positive sell quantity.
var ErrInvalidQuantity = errors.New("billing: sell quantity must be positive")

// ErrDuplicateBillNumber is returned when an invoice insert collides on the
// unique bill number; the generator retries with a fresh suffix.
var ErrDuplicateBillNumber = errors.New("billing: duplicate bill number")
