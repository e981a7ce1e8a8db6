package invoice

import (
	"bytes"
	"fmt"
	"net/url"

	"evo-store/internal/config"
	"evo-store/internal/model"

	"github.com/phpdave11/gofpdf"
	"github.com/skip2/go-qrcode"
)

// Renderer produces PDF invoices for orders.
type Renderer struct {
	store config.StoreConfig
}

// NewRenderer creates an invoice renderer for the store.
func NewRenderer(store config.StoreConfig) *Renderer {
	return &Renderer{store: store}
}

// TrackingLink returns the public tracking page URL for an order.
func (r *Renderer) TrackingLink(orderNumber string) string {
	return r.store.TrackingURL + "?order=" + url.QueryEscape(orderNumber)
}

// Render writes an A4 invoice listing the order's items and a QR code
// linking to the tracking page.
func (r *Renderer) Render(order *model.AdminOrder) ([]byte, error) {
	qrPNG, err := qrcode.Encode(r.TrackingLink(order.OrderNumber), qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Invoice "+order.OrderNumber, false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(0, 10, tr(r.store.Name))
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.Cell(0, 6, "Invoice for order "+order.OrderNumber)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Date: "+order.CreatedAt.Format("02 Jan 2006"))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Status: "+string(order.Status))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 6, "Ship to")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 11)
	for _, line := range []string{
		order.ShippingName,
		order.ShippingAddress,
		order.ShippingPostcode + " " + order.ShippingCity,
		order.ShippingPhone,
	} {
		pdf.Cell(0, 6, tr(line))
		pdf.Ln(6)
	}

	qrOpts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("qr", qrOpts, bytes.NewReader(qrPNG))
	pdf.ImageOptions("qr", 155, 20, 40, 40, false, qrOpts, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(100, 8, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Unit price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, "Amount", "B", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 11)
	for _, item := range order.Items {
		pdf.CellFormat(100, 7, tr(item.ProductName), "", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%d", item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, item.UnitPrice.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 7, item.LineTotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(155, 8, "Total ("+r.store.Currency+")", "T", 0, "R", false, 0, "")
	pdf.CellFormat(35, 8, order.Total.StringFixed(2), "T", 1, "R", false, 0, "")

	if order.TrackingNumber != nil {
		pdf.Ln(6)
		pdf.SetFont("Arial", "", 10)
		courier := ""
		if order.Courier != nil {
			courier = *order.Courier + " "
		}
		pdf.Cell(0, 6, tr("Shipped with "+courier+*order.TrackingNumber))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render invoice: %w", err)
	}

	return buf.Bytes(), nil
}
