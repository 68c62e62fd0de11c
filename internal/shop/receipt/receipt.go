// Package receipt renders order receipts as PDF documents.
package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/internal/shop"
)

// PDF implements shop.Receipts with gofpdf core fonts.
type PDF struct {
	now func() time.Time
}

var _ shop.Receipts = (*PDF)(nil)

// New returns a PDF renderer.
func New() *PDF {
	return &PDF{now: time.Now}
}

// Render builds the receipt for o and returns its file name and bytes.
func (p *PDF) Render(o shop.Order, shopName string) (string, []byte, error) {
	pdf := gofpdf.New("P", "mm", "A5", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 15)
	pdf.CellFormat(0, 8, tr(shopName), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, fmt.Sprintf("Receipt #%d", o.ID), "", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 9)
	issued := o.CreatedAt
	if issued.IsZero() {
		issued = p.now()
	}
	pdf.CellFormat(0, 5, "Reference: "+o.Ref, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Issued: "+issued.UTC().Format("2006-01-02 15:04 MST"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Delivery: "+o.DeliveryDate.Format("Mon, 02 Jan 2006"), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, "Payment: "+paymentLabel(o), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(70, 7, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "R", false, 0, "")
	pdf.CellFormat(38, 7, "Amount", "1", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, it := range o.Items {
		pdf.CellFormat(70, 6, tr(it.Name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 6, fmt.Sprintf("%d", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(38, 6, format.Money(it.Price*int64(it.Quantity), o.Currency), "1", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(90, 7, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(38, 7, format.Money(o.Total, o.Currency), "1", 1, "R", false, 0, "")

	if note := strings.TrimSpace(o.Note); note != "" {
		pdf.Ln(3)
		pdf.SetFont("Arial", "I", 9)
		pdf.MultiCell(0, 5, tr("Note: "+note), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return "", nil, fmt.Errorf("render receipt: %w", err)
	}
	return fmt.Sprintf("receipt-%d.pdf", o.ID), buf.Bytes(), nil
}

func paymentLabel(o shop.Order) string {
	if o.Paid {
		return "paid online"
	}
	return "on delivery"
}
