package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aqib-kha9/backendgo/internal/catalog"
	"github.com/aqib-kha9/backendgo/internal/middleware"
	"github.com/aqib-kha9/backendgo/internal/models"
	"github.com/aqib-kha9/backendgo/internal/tally"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
)

// callerParty resolves the Party scope of the authenticated user
func (r *Router) callerParty(req *http.Request) (*models.Party, bool) {
	claims, ok := req.Context().Value(middleware.UserContextKey).(jwt.MapClaims)
	if !ok {
		return nil, false
	}
	userid, _ := claims["userid"].(string)
	if userid == "" {
		return nil, false
	}

	var party models.Party
	if err := r.db.Where("userid = ?", userid).First(&party).Error; err != nil {
		return nil, false
	}
	return &party, true
}

// CreateProductRequest is the manual product creation payload
type CreateProductRequest struct {
	SKU            string       `json:"sku"`
	Name           string       `json:"name"`
	BaseUnit       string       `json:"base_unit"`
	Price          float64      `json:"price"`
	OpeningBalance float64      `json:"opening_balance"`
	Category       string       `json:"category"`
	Subcategory    string       `json:"subcategory"`
	Brand          string       `json:"brand"`
	HSN            string       `json:"hsn"`
	GST            string       `json:"gst"`
	Attributes     models.JSONB `json:"attributes"`
}

// createProduct adds one product manually. The id reservation is the
// peek/insert/advance sequence (with an id-collision retry): the counter
// advances only after the insert actually created a row, so a rejected
// duplicate consumes nothing.
func (r *Router) createProduct(w http.ResponseWriter, req *http.Request) {
	party, ok := r.callerParty(req)
	if !ok {
		respondError(w, http.StatusForbidden, "No party scope for user")
		return
	}

	var in CreateProductRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if in.SKU == "" {
		respondError(w, http.StatusBadRequest, "sku is required")
		return
	}

	category := in.Category
	if category == "" {
		category = tally.DefaultCategory
	}
	brand := in.Brand
	if brand == "" {
		brand = tally.DefaultBrand
	}

	product := models.Product{
		SKU:            in.SKU,
		PartyID:        party.PartyID,
		Name:           in.Name,
		BaseUnit:       in.BaseUnit,
		Price:          in.Price,
		OpeningBalance: in.OpeningBalance,
		Category:       category,
		Subcategory:    in.Subcategory,
		Brand:          brand,
		HSN:            in.HSN,
		GST:            in.GST,
		Attributes:     in.Attributes,
	}

	if err := r.allocator.CreateProduct(&product); err != nil {
		if errors.Is(err, catalog.ErrDuplicateSKU) {
			respondError(w, http.StatusConflict, "Product with this SKU already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to create product")
		return
	}

	inventory := models.Inventory{
		ProductID: product.ProductID,
		PartyID:   party.PartyID,
		Quantity:  in.OpeningBalance,
	}
	r.db.Create(&inventory)

	respondJSON(w, http.StatusCreated, product)
}

// listProducts returns the caller's catalog
func (r *Router) listProducts(w http.ResponseWriter, req *http.Request) {
	party, ok := r.callerParty(req)
	if !ok {
		respondError(w, http.StatusForbidden, "No party scope for user")
		return
	}

	var products []models.Product
	query := r.db.Where("party_id = ?", party.PartyID)
	if category := req.URL.Query().Get("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Order("product_id ASC").Find(&products).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list products")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(products),
		"products": products,
	})
}

// getProduct returns one product with its inventory row
func (r *Router) getProduct(w http.ResponseWriter, req *http.Request) {
	party, ok := r.callerParty(req)
	if !ok {
		respondError(w, http.StatusForbidden, "No party scope for user")
		return
	}
	productID := mux.Vars(req)["product_id"]

	var product models.Product
	err := r.db.Where("product_id = ? AND party_id = ?", productID, party.PartyID).
		First(&product).Error
	if err != nil {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	var inventory models.Inventory
	r.db.Where("product_id = ? AND party_id = ?", productID, party.PartyID).
		First(&inventory)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"product":   product,
		"inventory": inventory,
	})
}

// UpdateProductRequest carries partial product and inventory updates
type UpdateProductRequest struct {
	Name        *string  `json:"name"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
	Subcategory *string  `json:"subcategory"`
	Brand       *string  `json:"brand"`
	HSN         *string  `json:"hsn"`
	GST         *string  `json:"gst"`
	Quantity    *float64 `json:"quantity"`
}

// updateProduct applies a partial update, splitting product fields from
// the inventory quantity
func (r *Router) updateProduct(w http.ResponseWriter, req *http.Request) {
	party, ok := r.callerParty(req)
	if !ok {
		respondError(w, http.StatusForbidden, "No party scope for user")
		return
	}
	productID := mux.Vars(req)["product_id"]

	var in UpdateProductRequest
	if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Price != nil {
		updates["price"] = *in.Price
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.Subcategory != nil {
		updates["subcategory"] = *in.Subcategory
	}
	if in.Brand != nil {
		updates["brand"] = *in.Brand
	}
	if in.HSN != nil {
		updates["hsn"] = *in.HSN
	}
	if in.GST != nil {
		updates["gst"] = *in.GST
	}

	if len(updates) > 0 {
		res := r.db.Model(&models.Product{}).
			Where("product_id = ? AND party_id = ?", productID, party.PartyID).
			Updates(updates)
		if res.Error != nil {
			respondError(w, http.StatusInternalServerError, "Failed to update product")
			return
		}
		if res.RowsAffected == 0 {
			respondError(w, http.StatusNotFound, "Product not found")
			return
		}
	}

	if in.Quantity != nil {
		r.db.Model(&models.Inventory{}).
			Where("product_id = ? AND party_id = ?", productID, party.PartyID).
			Update("quantity", *in.Quantity)
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Product updated"})
}

// deleteProduct soft-deletes a product and removes its inventory row
func (r *Router) deleteProduct(w http.ResponseWriter, req *http.Request) {
	party, ok := r.callerParty(req)
	if !ok {
		respondError(w, http.StatusForbidden, "No party scope for user")
		return
	}
	productID := mux.Vars(req)["product_id"]

	res := r.db.Where("product_id = ? AND party_id = ?", productID, party.PartyID).
		Delete(&models.Product{})
	if res.Error != nil {
		respondError(w, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	if res.RowsAffected == 0 {
		respondError(w, http.StatusNotFound, "Product not found")
		return
	}

	r.db.Where("product_id = ? AND party_id = ?", productID, party.PartyID).
		Delete(&models.Inventory{})

	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}
