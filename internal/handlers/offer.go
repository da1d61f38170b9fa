package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/aqib-kha9/backendgo/internal/models"
)

// CreateOfferRequest is the promotional offer payload
type CreateOfferRequest struct {
	ProductID   string  `json:"product_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Discount    float64 `json:"discount"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
}

// createOffer attaches a time-bounded discount to a product
func (r *Router) createOffer(w http.ResponseWriter, req *http.Request) {
	party, ok := r.callerParty(req)
	if !ok {
		respondError(w, http.StatusForbidden, "No party scope for user")
		return
	}

	var in CreateOfferRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if in.ProductID == "" || in.Title == "" {
		respondError(w, http.StatusBadRequest, "product_id and title are required")
		return
	}
	if in.Discount <= 0 || in.Discount > 100 {
		respondError(w, http.StatusBadRequest, "discount must be between 0 and 100")
		return
	}

	start, err := time.Parse(time.RFC3339, in.StartDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid start_date (RFC3339 expected)")
		return
	}
	end, err := time.Parse(time.RFC3339, in.EndDate)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid end_date (RFC3339 expected)")
		return
	}
	if !end.After(start) {
		respondError(w, http.StatusBadRequest, "end_date must be after start_date")
		return
	}

	var product models.Product
	err = r.db.Where("product_id = ? AND party_id = ?", in.ProductID, party.PartyID).
		First(&product).Error
	if err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	offer := models.Offer{
		ProductID:   in.ProductID,
		PartyID:     party.PartyID,
		Title:       in.Title,
		Description: in.Description,
		Discount:    in.Discount,
		StartDate:   start,
		EndDate:     end,
		Active:      true,
	}
	if err := r.db.Create(&offer).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create offer")
		return
	}

	respondJSON(w, http.StatusCreated, offer)
}

// listOffers returns the caller's offers, optionally only currently-active
func (r *Router) listOffers(w http.ResponseWriter, req *http.Request) {
	party, ok := r.callerParty(req)
	if !ok {
		respondError(w, http.StatusForbidden, "No party scope for user")
		return
	}

	var offers []models.Offer
	query := r.db.Where("party_id = ?", party.PartyID)
	if req.URL.Query().Get("active") == "true" {
		now := time.Now()
		query = query.Where("active = ? AND start_date <= ? AND end_date >= ?", true, now, now)
	}
	if err := query.Order("created_at DESC").Find(&offers).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list offers")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(offers),
		"offers": offers,
	})
}
