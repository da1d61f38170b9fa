package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aqib-kha9/backendgo/internal/models"
	"github.com/aqib-kha9/backendgo/internal/services/invoice"
	"gorm.io/gorm"
)

// InvoicePDFRequest asks for a rendered invoice. Line prices default to
// the catalog price when omitted.
type InvoicePDFRequest struct {
	InvoiceNo string `json:"invoice_no"`
	Customer  struct {
		ID      uint   `json:"id"`
		Name    string `json:"name"`
		Address string `json:"address"`
		GSTIN   string `json:"gstin"`
	} `json:"customer"`
	Items []struct {
		ProductID string   `json:"product_id"`
		Quantity  float64  `json:"quantity"`
		UnitPrice *float64 `json:"unit_price"`
	} `json:"items"`
}

// generateInvoicePDF renders an invoice PDF for the caller's party and
// streams it back as application/pdf
func (r *Router) generateInvoicePDF(w http.ResponseWriter, req *http.Request) {
	party, ok := r.callerParty(req)
	if !ok {
		respondError(w, http.StatusForbidden, "No party scope for user")
		return
	}

	var in InvoicePDFRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if len(in.Items) == 0 {
		respondError(w, http.StatusBadRequest, "At least one line item is required")
		return
	}

	customer := models.Customer{
		PartyID: party.PartyID,
		Name:    in.Customer.Name,
		Address: in.Customer.Address,
		GSTIN:   in.Customer.GSTIN,
	}
	if in.Customer.ID != 0 {
		err := r.db.Where("id = ? AND party_id = ?", in.Customer.ID, party.PartyID).
			First(&customer).Error
		if err != nil {
			respondError(w, http.StatusNotFound, "Customer not found")
			return
		}
	} else if customer.Name == "" {
		respondError(w, http.StatusBadRequest, "customer name is required")
		return
	}

	lines := make([]invoice.LineItem, 0, len(in.Items))
	for _, item := range in.Items {
		var product models.Product
		err := r.db.Where("product_id = ? AND party_id = ?", item.ProductID, party.PartyID).
			First(&product).Error
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				respondError(w, http.StatusNotFound, fmt.Sprintf("Product %s not found", item.ProductID))
				return
			}
			respondError(w, http.StatusInternalServerError, "Failed to load product")
			return
		}

		price := product.Price
		if item.UnitPrice != nil {
			price = *item.UnitPrice
		}
		lines = append(lines, invoice.LineItem{
			ProductID: product.ProductID,
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
	}

	invoiceNo := in.InvoiceNo
	if invoiceNo == "" {
		invoiceNo = fmt.Sprintf("%s-%d", party.PartyID, time.Now().Unix())
	}

	var seller models.User
	r.db.Where("userid = ?", party.UserID).First(&seller)

	pdfBytes, err := invoice.GeneratePDF(invoice.Config{
		InvoiceNo:  invoiceNo,
		Date:       time.Now(),
		SellerName: seller.Name,
		PartyID:    party.PartyID,
		Customer:   customer,
		Items:      lines,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", invoiceNo))
	w.WriteHeader(http.StatusOK)
	w.Write(pdfBytes)
}
