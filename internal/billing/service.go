package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/godown-erp/godown/internal/product"
	"github.com/godown-erp/godown/internal/shared"
)

// maxNumberAttempts bounds bill-number regeneration on unique collisions.
const maxNumberAttempts = 5

// AlertEnqueuer hands sold-out notifications to the background worker.
type AlertEnqueuer interface {
	EnqueueLowStock(ctx context.Context, productID int64, name string) error
}

// Service coordinates bill generation.
type Service struct {
	repo   RepositoryPort
	pdf    PDFRenderer
	alerts AlertEnqueuer
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service. alerts may be nil when no worker is wired.
func NewService(repo RepositoryPort, pdf PDFRenderer, alerts AlertEnqueuer, logger *slog.Logger) *Service {
	return &Service{repo: repo, pdf: pdf, alerts: alerts, logger: logger, now: time.Now}
}

// GenerateBill sells qty units of a product: it atomically deducts stock,
// persists the invoice under a unique bill number, then renders the PDF.
// Oversell yields *product.InsufficientStockError with the available
// quantity; an unknown product yields shared.ErrNotFound. In both cases
// nothing is mutated.
func (s *Service) GenerateBill(ctx context.Context, productID, qty int64) (Invoice, error) {
	if qty <= 0 {
		return Invoice{}, ErrInvalidQuantity
	}

	var inv Invoice
	var sold product.Product
	for attempt := 0; ; attempt++ {
		number, err := NewBillNumber(s.now())
		if err != nil {
			return Invoice{}, err
		}
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			p, err := tx.DeductStock(ctx, productID, qty)
			if err != nil {
				return err
			}
			sold = p
			subtotal := qty * p.UnitPriceMinor
			tax := shared.PercentOf(subtotal, TaxRatePercent)
			inv = Invoice{
				Number:         number,
				ProductID:      p.ID,
				ProductName:    p.Name,
				UnitPriceMinor: p.UnitPriceMinor,
				Quantity:       qty,
				SubtotalMinor:  subtotal,
				TaxMinor:       tax,
				TotalMinor:     subtotal + tax,
				IssuedAt:       s.now().UTC(),
			}
			id, err := tx.InsertInvoice(ctx, inv)
			if err != nil {
				return err
			}
			inv.ID = id
			return nil
		})
		if errors.Is(err, ErrDuplicateBillNumber) && attempt+1 < maxNumberAttempts {
			continue
		}
		if err != nil {
			return Invoice{}, err
		}
		break
	}

	// The bill is committed at this point. A PDF failure leaves the stock
	// deducted and the invoice row without an artifact; surfaced to the
	// operator via the missing download link.
	path, err := s.pdf.Render(inv)
	if err != nil {
		s.logger.Error("render invoice pdf", slog.String("bill", inv.Number), slog.Any("error", err))
	} else {
		inv.PDFPath = path
		if err := s.repo.UpdatePDFPath(ctx, inv.ID, path); err != nil {
			s.logger.Warn("record pdf path", slog.String("bill", inv.Number), slog.Any("error", err))
		}
	}

	if sold.Quantity == 0 && s.alerts != nil {
		if err := s.alerts.EnqueueLowStock(ctx, sold.ID, sold.Name); err != nil {
			s.logger.Warn("enqueue low stock alert", slog.Int64("product_id", sold.ID), slog.Any("error", err))
		}
	}

	return inv, nil
}

// ListInvoices returns the most recent bills.
func (s *Service) ListInvoices(ctx context.Context, limit int) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, limit)
}
