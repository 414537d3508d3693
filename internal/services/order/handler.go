package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dinner-system/internal/logger"
	"dinner-system/internal/models"
	"dinner-system/internal/session"
)

// Sessions resolves bearer tokens to identities; satisfied by session.Store
type Sessions interface {
	GetCustomer(ctx context.Context, token string) (*models.CustomerSession, error)
	RefreshCustomer(ctx context.Context, token string, sess *models.CustomerSession) error
	GetStaff(ctx context.Context, token string) (*models.StaffSession, error)
}

// Handler handles HTTP requests for the order service
type Handler struct {
	service  *Service
	sessions Sessions
	logger   *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, sessions Sessions, log *logger.Logger) *Handler {
	return &Handler{
		service:  service,
		sessions: sessions,
		logger:   log,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.withLogging(h.PlaceOrder))
	mux.HandleFunc("GET /orders", h.withLogging(h.OrderHistory))
	mux.HandleFunc("GET /orders/{id}", h.withLogging(h.OrderDetail))
	mux.HandleFunc("POST /orders/{id}/reorder", h.withLogging(h.Reorder))

	mux.HandleFunc("POST /orders/{id}/start-cooking", h.withLogging(h.transitionHandler("start_cooking", h.service.StartCooking)))
	mux.HandleFunc("POST /orders/{id}/complete-cooking", h.withLogging(h.transitionHandler("complete_cooking", h.service.CompleteCooking)))
	mux.HandleFunc("POST /orders/{id}/start-delivery", h.withLogging(h.transitionHandler("start_delivery", h.service.StartDelivery)))
	mux.HandleFunc("POST /orders/{id}/complete-delivery", h.withLogging(h.transitionHandler("complete_delivery", h.service.CompleteDelivery)))

	mux.HandleFunc("GET /kitchen/orders", h.withLogging(h.ChefOrders))
	mux.HandleFunc("GET /kitchen/cooking", h.withLogging(h.CookingOrders))
	mux.HandleFunc("GET /delivery/orders", h.withLogging(h.DeliveryOrders))

	mux.HandleFunc("GET /menu", h.withLogging(h.Menu))

	mux.HandleFunc("GET /health", h.withLogging(h.HealthCheck))
}

// Menu handles GET /menu: the dinner kinds, styles and the default item
// composition the order form prefills from
func (h *Handler) Menu(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	kinds := []models.DinnerKind{models.Valentine, models.French, models.English, models.Champagne}
	dinners := make([]map[string]interface{}, 0, len(kinds))
	for _, kind := range kinds {
		dinners = append(dinners, map[string]interface{}{
			"dinner_kind": kind,
			"items":       models.DefaultComposition(kind),
		})
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"dinners": dinners,
		"styles":  []models.DinnerStyle{models.Simple, models.Grand, models.Deluxe},
	}, requestID)
}

// PlaceOrder handles POST /orders requests
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	if r.Header.Get("Content-Type") != "application/json" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Content-Type must be application/json", requestID)
		return
	}

	token, sess, ok := h.customerSession(w, r, requestID)
	if !ok {
		return
	}

	var req models.OrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("validation_failed", "Failed to parse request body", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	placed, err := h.service.PlaceOrder(ctx, &req, sess, requestID)
	if err != nil {
		h.writePlacementError(w, err, requestID)
		return
	}

	// The commit may have promoted the customer; keep the session in step
	sess.OrderCount++
	if sess.OrderCount >= models.VIPThreshold {
		sess.MembershipLevel = models.VIP
	}
	if err := h.sessions.RefreshCustomer(ctx, token, sess); err != nil {
		h.logger.Error("session_refresh_failed", "Failed to refresh customer session", requestID, err, nil)
	}

	h.writeJSON(w, http.StatusCreated, placed, requestID)
}

// OrderHistory handles GET /orders requests
func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	_, sess, ok := h.customerSession(w, r, requestID)
	if !ok {
		return
	}

	orders, err := h.service.OrdersByCustomer(r.Context(), sess.LoginID)
	if err != nil {
		h.logger.Error("history_query_failed", "Failed to query order history", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders}, requestID)
}

// OrderDetail handles GET /orders/{id}. Customers only see their own orders;
// staff sessions see any order.
func (h *Handler) OrderDetail(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	orderID, err := orderIDFrom(r)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid order id", requestID)
		return
	}

	token := bearerToken(r)
	var loginID string
	if _, err := h.sessions.GetStaff(r.Context(), token); err != nil {
		sess, err := h.sessions.GetCustomer(r.Context(), token)
		if err != nil {
			h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrStaleSession.Error(), requestID)
			return
		}
		loginID = sess.LoginID
	}

	order, err := h.service.OrderByID(r.Context(), orderID)
	if err != nil {
		h.logger.Error("detail_query_failed", "Failed to query order", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	if order == nil || (loginID != "" && order.CustomerLoginID != loginID) {
		h.writeErrorResponse(w, http.StatusNotFound, "Order not found", requestID)
		return
	}

	items, err := h.service.LineItems(r.Context(), orderID)
	if err != nil {
		h.logger.Error("detail_query_failed", "Failed to query line items", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"order": order, "items": items}, requestID)
}

// Reorder handles POST /orders/{id}/reorder: it rebuilds the prior order's
// request and pushes it through the normal placement path
func (h *Handler) Reorder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r)

	token, sess, ok := h.customerSession(w, r, requestID)
	if !ok {
		return
	}

	orderID, err := orderIDFrom(r)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid order id", requestID)
		return
	}

	original, err := h.service.OrderByID(r.Context(), orderID)
	if err != nil {
		h.logger.Error("reorder_query_failed", "Failed to query order", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	if original == nil || original.CustomerLoginID != sess.LoginID {
		h.writeErrorResponse(w, http.StatusNotFound, "Order not found", requestID)
		return
	}

	req, err := h.service.ReorderRequest(r.Context(), orderID)
	if err != nil {
		h.logger.Error("reorder_build_failed", "Failed to rebuild order request", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	placed, err := h.service.PlaceOrder(ctx, req, sess, requestID)
	if err != nil {
		h.writePlacementError(w, err, requestID)
		return
	}

	sess.OrderCount++
	if sess.OrderCount >= models.VIPThreshold {
		sess.MembershipLevel = models.VIP
	}
	if err := h.sessions.RefreshCustomer(ctx, token, sess); err != nil {
		h.logger.Error("session_refresh_failed", "Failed to refresh customer session", requestID, err, nil)
	}

	h.writeJSON(w, http.StatusCreated, placed, requestID)
}

// transitionHandler builds the handler for one lifecycle endpoint. A
// precondition mismatch still answers 200: stale staff screens retry freely.
func (h *Handler) transitionHandler(action string, fn func(ctx context.Context, orderID int64, changedBy string) (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := requestIDFrom(r)

		staff, ok := h.staffSession(w, r, requestID)
		if !ok {
			return
		}

		orderID, err := orderIDFrom(r)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, "Invalid order id", requestID)
			return
		}

		changed, err := fn(r.Context(), orderID, staff.Position)
		if err != nil {
			h.logger.Error(action+"_failed", "Failed to update order status", requestID, err, map[string]interface{}{
				"order_id": orderID,
			})
			h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
			return
		}

		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"order_id": orderID,
			"changed":  changed,
		}, requestID)
	}
}

// ChefOrders handles GET /kitchen/orders
func (h *Handler) ChefOrders(w http.ResponseWriter, r *http.Request) {
	h.staffListing(w, r, h.service.ChefOrders)
}

// CookingOrders handles GET /kitchen/cooking
func (h *Handler) CookingOrders(w http.ResponseWriter, r *http.Request) {
	h.staffListing(w, r, h.service.CookingOrders)
}

// DeliveryOrders handles GET /delivery/orders
func (h *Handler) DeliveryOrders(w http.ResponseWriter, r *http.Request) {
	h.staffListing(w, r, h.service.DeliveryOrders)
}

func (h *Handler) staffListing(w http.ResponseWriter, r *http.Request, list func(ctx context.Context) ([]models.Order, error)) {
	requestID := requestIDFrom(r)

	if _, ok := h.staffSession(w, r, requestID); !ok {
		return
	}

	orders, err := list(r.Context())
	if err != nil {
		h.logger.Error("listing_query_failed", "Failed to query orders", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders}, requestID)
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := h.service.HealthCheck(ctx)

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "order-service",
		"healthy":   healthy,
	}

	w.Header().Set("Content-Type", "application/json")

	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		response["status"] = "unhealthy"
	}

	json.NewEncoder(w).Encode(response)
}

// writePlacementError maps the placement error taxonomy onto HTTP statuses
func (h *Handler) writePlacementError(w http.ResponseWriter, err error, requestID string) {
	var refErr *models.ReferenceError
	var insErr *models.InsufficientInventoryError

	switch {
	case errors.Is(err, models.ErrStaleSession):
		h.writeErrorResponse(w, http.StatusUnauthorized, err.Error(), requestID)

	case errors.Is(err, models.ErrForbiddenCombination), errors.Is(err, models.ErrEmptyOrder), errors.As(err, &refErr):
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)

	case errors.As(err, &insErr):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"error":      insErr.Error(),
			"shortfalls": insErr.Shortfalls,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
			"request_id": requestID,
		})

	default:
		h.logger.Error("order_placement_failed", "Failed to place order", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
	}
}

// customerSession resolves the request's bearer token to a customer session,
// answering 401 itself when it cannot
func (h *Handler) customerSession(w http.ResponseWriter, r *http.Request, requestID string) (string, *models.CustomerSession, bool) {
	token := bearerToken(r)
	sess, err := h.sessions.GetCustomer(r.Context(), token)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			h.logger.Error("session_lookup_failed", "Failed to resolve customer session", requestID, err, nil)
		}
		h.writeErrorResponse(w, http.StatusUnauthorized, models.ErrStaleSession.Error(), requestID)
		return "", nil, false
	}
	return token, sess, true
}

// staffSession resolves the request's bearer token to a staff session
func (h *Handler) staffSession(w http.ResponseWriter, r *http.Request, requestID string) (*models.StaffSession, bool) {
	sess, err := h.sessions.GetStaff(r.Context(), bearerToken(r))
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			h.logger.Error("session_lookup_failed", "Failed to resolve staff session", requestID, err, nil)
		}
		h.writeErrorResponse(w, http.StatusUnauthorized, "staff session required", requestID)
		return nil, false
	}
	return sess, true
}

// writeJSON writes a successful JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, body interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
	}
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	}

	json.NewEncoder(w).Encode(errorResponse)
}

// withLogging adds request logging middleware
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}
		next(rw, r)

		duration := time.Since(start)
		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

type requestIDKey struct{}

// requestIDFrom reads the request id stashed by the logging middleware
func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return logger.GenerateRequestID()
}

// bearerToken extracts the session token from the Authorization header
func bearerToken(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// orderIDFrom parses the {id} path segment
func orderIDFrom(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
