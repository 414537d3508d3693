package customer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"dinner-system/internal/logger"
)

// Handler handles HTTP requests for accounts and login
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new customer handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /customers", h.SignUp)
	mux.HandleFunc("POST /customers/login", h.Login)
	mux.HandleFunc("POST /customers/logout", h.Logout)
	mux.HandleFunc("POST /staff/login", h.StaffLogin)
	mux.HandleFunc("POST /staff/logout", h.StaffLogout)
}

type credentialsRequest struct {
	LoginID  string `json:"login_id"`
	Password string `json:"password"`
}

type staffLoginRequest struct {
	Position string `json:"position"`
	Password string `json:"password"`
}

// SignUp handles POST /customers
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	var req credentialsRequest
	if !h.decode(w, r, &req, requestID) {
		return
	}

	customer, err := h.service.SignUp(r.Context(), req.LoginID, req.Password, requestID)
	if err != nil {
		if errors.Is(err, ErrDuplicateLogin) {
			h.writeErrorResponse(w, http.StatusConflict, err.Error(), requestID)
			return
		}
		h.logger.Error("signup_failed", "Failed to register customer", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"login_id":         customer.LoginID,
		"membership_level": customer.MembershipLevel,
	})
}

// Login handles POST /customers/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	var req credentialsRequest
	if !h.decode(w, r, &req, requestID) {
		return
	}

	token, sess, err := h.service.Login(r.Context(), req.LoginID, req.Password, requestID)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.writeErrorResponse(w, http.StatusUnauthorized, err.Error(), requestID)
			return
		}
		h.logger.Error("login_failed", "Failed to log customer in", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":            token,
		"login_id":         sess.LoginID,
		"membership_level": sess.MembershipLevel,
		"order_count":      sess.OrderCount,
	})
}

// Logout handles POST /customers/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if err := h.service.Logout(r.Context(), bearerToken(r)); err != nil {
		h.logger.Error("logout_failed", "Failed to revoke session", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StaffLogin handles POST /staff/login
func (h *Handler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	var req staffLoginRequest
	if !h.decode(w, r, &req, requestID) {
		return
	}

	token, err := h.service.StaffLogin(r.Context(), req.Position, req.Password, requestID)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			h.writeErrorResponse(w, http.StatusUnauthorized, err.Error(), requestID)
			return
		}
		h.logger.Error("staff_login_failed", "Failed to log staff in", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":    token,
		"position": req.Position,
	})
}

// StaffLogout handles POST /staff/logout
func (h *Handler) StaffLogout(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if err := h.service.StaffLogout(r.Context(), bearerToken(r)); err != nil {
		h.logger.Error("staff_logout_failed", "Failed to revoke session", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}, requestID string) bool {
	if r.Header.Get("Content-Type") != "application/json" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Content-Type must be application/json", requestID)
		return false
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	})
}

func bearerToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}
