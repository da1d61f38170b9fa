package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aqib-kha9/backendgo/internal/catalog"
	"github.com/aqib-kha9/backendgo/internal/models"
	"github.com/aqib-kha9/backendgo/internal/utils"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	AdminID  string `json:"adminid"`
}

func rolePrefix(role string) string {
	switch role {
	case models.RoleSuperadmin:
		return "s"
	case models.RoleAdmin:
		return "a"
	default:
		return "r"
	}
}

// login handles user login
func (r *Router) login(w http.ResponseWriter, req *http.Request) {
	var loginReq LoginRequest
	if err := json.NewDecoder(req.Body).Decode(&loginReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	// 1. Find User
	var user models.User
	if err := r.db.Where("email = ?", loginReq.Email).First(&user).Error; err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// 2. Check Password
	if !utils.CheckPasswordHash(loginReq.Password, user.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if user.Status != "active" {
		respondError(w, http.StatusForbidden, "Account is not active")
		return
	}

	// 3. Update Last Login
	now := time.Now()
	user.LastLogin = &now
	r.db.Save(&user)

	// 4. Generate Tokens
	accessToken, refreshToken, err := utils.GenerateTokens(&user, r.cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate tokens")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		"user": user,
	})
}

// register handles user registration. Each new account gets a sequential
// userid and its own Party scope from the shared allocator, so the catalog
// tables are tenant-partitioned from the first row.
func (r *Router) register(w http.ResponseWriter, req *http.Request) {
	var regReq RegisterRequest
	if err := json.NewDecoder(req.Body).Decode(&regReq); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if regReq.Email == "" || regReq.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	role := regReq.Role
	if role == "" {
		role = models.RoleRetailer
	}

	// 1. Hash Password
	hashedPassword, err := utils.HashPassword(regReq.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	// 2. Allocate userid and party id from the durable counter
	seq, err := r.allocator.ReserveBlock(catalog.CounterPartyID, 1)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to allocate user id")
		return
	}

	user := models.User{
		UserID:   fmt.Sprintf("%s%d", rolePrefix(role), seq),
		Email:    regReq.Email,
		Password: hashedPassword,
		Name:     regReq.Name,
		Role:     role,
		AdminID:  regReq.AdminID,
		Status:   "active",
	}

	if err := r.db.Create(&user).Error; err != nil {
		respondError(w, http.StatusBadRequest, "Failed to create user (email might exist)")
		return
	}

	party := models.Party{
		PartyID:   catalog.FormatPartyID(seq),
		UserID:    user.UserID,
		PartyType: role,
	}
	if err := r.db.Create(&party).Error; err != nil {
		respondError(w, http.StatusInternalServerError, "User created but party allocation failed")
		return
	}

	// 3. Generate Tokens for immediate login
	accessToken, refreshToken, err := utils.GenerateTokens(&user, r.cfg)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "User created but failed to generate tokens")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "User registered successfully",
		"tokens": map[string]string{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
		},
		"user":  user,
		"party": party,
	})
}

// logout handles user logout
func (r *Router) logout(w http.ResponseWriter, req *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
