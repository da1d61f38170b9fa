package invoice

import (
	"bytes"
	"fmt"
	"time"

	"github.com/aqib-kha9/backendgo/internal/models"
	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"
)

// LineItem is one billed row on an invoice
type LineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Amount is the extended price of the line
func (li LineItem) Amount() float64 {
	return li.Quantity * li.UnitPrice
}

// Config holds everything needed to render one invoice
type Config struct {
	InvoiceNo  string          `json:"invoice_no"`
	Date       time.Time       `json:"date"`
	SellerName string          `json:"seller_name"`
	PartyID    string          `json:"party_id"`
	Customer   models.Customer `json:"customer"`
	Items      []LineItem      `json:"items"`
}

// Total sums all line amounts
func (c Config) Total() float64 {
	var total float64
	for _, li := range c.Items {
		total += li.Amount()
	}
	return total
}

// GeneratePDF renders an A4 invoice with a line-item table and a payment
// reference QR code
func GeneratePDF(cfg Config) ([]byte, error) {
	if cfg.InvoiceNo == "" {
		return nil, fmt.Errorf("invoice number is required")
	}
	if len(cfg.Items) == 0 {
		return nil, fmt.Errorf("invoice has no line items")
	}

	date := cfg.Date
	if date.IsZero() {
		date = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	// Header
	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(120, 10, cfg.SellerName, "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(60, 10, "INVOICE", "", 1, "R", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(120, 6, fmt.Sprintf("Party: %s", cfg.PartyID), "", 0, "L", false, 0, "")
	pdf.CellFormat(60, 6, fmt.Sprintf("No: %s", cfg.InvoiceNo), "", 1, "R", false, 0, "")
	pdf.CellFormat(120, 6, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(60, 6, date.Format("02 Jan 2006"), "", 1, "R", false, 0, "")
	pdf.Ln(4)

	// Bill-to block
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, "Bill To", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, cfg.Customer.Name, "", 1, "L", false, 0, "")
	if cfg.Customer.Address != "" {
		pdf.CellFormat(0, 5, cfg.Customer.Address, "", 1, "L", false, 0, "")
	}
	if cfg.Customer.GSTIN != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("GSTIN: %s", cfg.Customer.GSTIN), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Line-item table
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(75, 7, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(35, 7, "Product ID", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 7, "Qty", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 7, "Rate", "1", 0, "R", true, 0, "")
	pdf.CellFormat(25, 7, "Amount", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, li := range cfg.Items {
		pdf.CellFormat(75, 7, li.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 7, li.ProductID, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 7, fmt.Sprintf("%.2f", li.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%.2f", li.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%.2f", li.Amount()), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(155, 8, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(25, 8, fmt.Sprintf("%.2f", cfg.Total()), "1", 1, "R", false, 0, "")
	pdf.Ln(6)

	// Payment reference QR
	qrContent := fmt.Sprintf("INV/%s/%s/%.2f", cfg.PartyID, cfg.InvoiceNo, cfg.Total())
	qrPng, err := qrcode.Encode(qrContent, qrcode.Low, 256)
	if err != nil {
		return nil, err
	}

	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	reader := bytes.NewReader(qrPng)
	_ = pdf.RegisterImageOptionsReader("payment_qr", imgOptions, reader)
	pdf.ImageOptions("payment_qr", 15, pdf.GetY(), 30, 30, false, imgOptions, 0, "")

	pdf.SetXY(50, pdf.GetY()+12)
	pdf.SetFont("Arial", "", 8)
	pdf.CellFormat(0, 5, "Scan to reference this invoice", "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
