package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/aqib-kha9/backendgo/internal/agent"
	"github.com/aqib-kha9/backendgo/internal/catalog"
	"github.com/aqib-kha9/backendgo/internal/config"
	"github.com/aqib-kha9/backendgo/internal/database"
	"github.com/aqib-kha9/backendgo/internal/middleware"
	"github.com/gorilla/mux"
)

// Router wraps the mux router and the shared service dependencies
type Router struct {
	*mux.Router
	db        *database.DB
	cfg       *config.Config
	allocator *catalog.Allocator
}

// NewRouter creates a new HTTP router with all routes
func NewRouter(db *database.DB, cfg *config.Config, allocator *catalog.Allocator, registry *agent.Registry) *Router {
	r := &Router{
		Router:    mux.NewRouter(),
		db:        db,
		cfg:       cfg,
		allocator: allocator,
	}

	// Health check endpoint
	r.HandleFunc("/health", r.healthCheck).Methods("GET")

	// Auth routes (public)
	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/login", r.login).Methods("POST")
	auth.HandleFunc("/register", r.register).Methods("POST")
	auth.HandleFunc("/logout", r.logout).Methods("POST")

	// Agent protocol surface authenticates with its own bearer secret,
	// not a user JWT, so it stays outside the protected subrouter
	NewAgentSyncHandler(registry).RegisterRoutes(r.Router)

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware(cfg.JWTSecret))

	api.HandleFunc("/products", r.listProducts).Methods("GET")
	api.HandleFunc("/products", r.createProduct).Methods("POST")
	api.HandleFunc("/products/{product_id}", r.getProduct).Methods("GET")
	api.HandleFunc("/products/{product_id}", r.updateProduct).Methods("PUT")
	api.HandleFunc("/products/{product_id}", r.deleteProduct).Methods("DELETE")

	api.HandleFunc("/offers", r.listOffers).Methods("GET")
	api.HandleFunc("/offers", r.createOffer).Methods("POST")

	api.HandleFunc("/invoices/pdf", r.generateInvoicePDF).Methods("POST")

	return r
}

// healthCheck returns the health status of the API
func (r *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
