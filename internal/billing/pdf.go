package billing

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"github.com/godown-erp/godown/internal/shared"
)

// PDFRenderer writes an invoice document for a generated bill.
type PDFRenderer interface {
	Render(inv Invoice) (string, error)
}

// FileRenderer renders invoices as A4 PDFs under a fixed directory, one
// file per bill number.
type FileRenderer struct {
	dir string
}

// NewFileRenderer constructs a FileRenderer rooted at dir.
func NewFileRenderer(dir string) *FileRenderer {
	return &FileRenderer{dir: dir}
}

// Dir returns the invoice directory.
func (r *FileRenderer) Dir() string {
	return r.dir
}

// Render writes the invoice PDF and returns its path. The directory is
// created on first use.
func (r *FileRenderer) Render(inv Invoice) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("billing: create invoice dir: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "GST BILL", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(0, 7, "Bill No: "+inv.Number, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Date: "+inv.IssuedAt.Format("02 Jan 2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	line := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 11)
		pdf.CellFormat(60, 8, label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(80, 8, value, "1", 1, "R", false, 0, "")
	}
	line("Product", inv.ProductName, false)
	line("Quantity", fmt.Sprintf("%d", inv.Quantity), false)
	line("Rate", "Rs "+shared.FormatRupees(inv.UnitPriceMinor), false)
	line("Subtotal", "Rs "+shared.FormatRupees(inv.SubtotalMinor), false)
	line(fmt.Sprintf("GST (%d%%)", TaxRatePercent), "Rs "+shared.FormatRupees(inv.TaxMinor), false)
	line("Grand Total", "Rs "+shared.FormatRupees(inv.TotalMinor), true)

	path := filepath.Join(r.dir, inv.Number+".pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return "", fmt.Errorf("billing: write pdf: %w", err)
	}
	return path, nil
}

var _ PDFRenderer = (*FileRenderer)(nil)
