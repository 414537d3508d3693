package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"dinner-system/internal/logger"
	"dinner-system/internal/models"
	"dinner-system/internal/session"
)

// Sessions resolves staff bearer tokens; satisfied by session.Store
type Sessions interface {
	GetStaff(ctx context.Context, token string) (*models.StaffSession, error)
}

// Handler handles HTTP requests for the inventory ledger
type Handler struct {
	service  *Service
	sessions Sessions
	logger   *logger.Logger
}

// NewHandler creates a new inventory handler
func NewHandler(service *Service, sessions Sessions, log *logger.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		logger:   log,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /inventory", h.List)
	mux.HandleFunc("POST /inventory/increase", h.Increase)
	mux.HandleFunc("POST /inventory/decrease", h.Decrease)
}

// adjustRequest is the body of an increase or decrease call
type adjustRequest struct {
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// List handles GET /inventory
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if !h.authorize(w, r, requestID) {
		return
	}

	views, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("inventory_query_failed", "Failed to query inventory", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"inventory": views})
}

// Increase handles POST /inventory/increase
func (h *Handler) Increase(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, "increase", h.service.Increase)
}

// Decrease handles POST /inventory/decrease
func (h *Handler) Decrease(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, "decrease", h.service.Decrease)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request, action string, fn func(ctx context.Context, itemName string, quantity int, requestID string) error) {
	requestID := logger.GenerateRequestID()

	if !h.authorize(w, r, requestID) {
		return
	}

	var req adjustRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	if err := fn(r.Context(), req.ItemName, req.Quantity, requestID); err != nil {
		var refErr *models.ReferenceError
		if errors.As(err, &refErr) || req.Quantity <= 0 {
			h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
			return
		}
		h.logger.Error("stock_"+action+"_failed", "Failed to adjust stock", requestID, err, map[string]interface{}{
			"item": req.ItemName,
		})
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"item_name": req.ItemName,
		"quantity":  req.Quantity,
	})
}

// authorize requires a staff session, answering 401 itself when absent
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request, requestID string) bool {
	token := r.Header.Get("Authorization")
	token = trimBearer(token)

	if _, err := h.sessions.GetStaff(r.Context(), token); err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			h.logger.Error("session_lookup_failed", "Failed to resolve staff session", requestID, err, nil)
		}
		h.writeErrorResponse(w, http.StatusUnauthorized, "staff session required", requestID)
		return false
	}
	return true
}

func trimBearer(header string) string {
	const prefix = "Bearer "
	if len(header) > len(prefix) && header[:len(prefix)] == prefix {
		return header[len(prefix):]
	}
	return header
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
