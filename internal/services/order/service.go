package order

import (
	"context"
	"fmt"
	"sort"

	"dinner-system/internal/logger"
	"dinner-system/internal/models"
)

// EventPublisher publishes order events; satisfied by messaging.Publisher
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, msg interface{}, routingKey string) error
	PublishStatusUpdate(ctx context.Context, msg interface{}) error
}

// PaymentHook is the fire-and-forget capture call made after commit
type PaymentHook interface {
	Capture(ctx context.Context, orderID int64, cardNumber string, amount int)
}

// Service is the order placement engine and lifecycle controller
type Service struct {
	store     Store
	publisher EventPublisher
	payment   PaymentHook
	logger    *logger.Logger
}

// NewService creates the order service. publisher and payment may be nil;
// both are post-commit conveniences, never part of the transaction.
func NewService(store Store, publisher EventPublisher, payment PaymentHook, log *logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		payment:   payment,
		logger:    log,
	}
}

// resolvedLine pairs a catalog item with its requested quantity
type resolvedLine struct {
	item *models.Item
	qty  int
}

// PlaceOrder validates the request, reserves inventory, prices the order and
// persists it together with its line items and the customer's loyalty update,
// all inside one transaction. Any failure leaves every row untouched.
func (s *Service) PlaceOrder(ctx context.Context, req *models.OrderRequest, sess *models.CustomerSession, requestID string) (*models.Order, error) {
	if sess == nil {
		return nil, models.ErrStaleSession
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var placed *models.Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		customer, err := tx.CustomerForUpdate(ctx, sess.LoginID)
		if err != nil {
			return err
		}
		if customer == nil {
			return models.ErrStaleSession
		}

		if req.DinnerKind == models.Champagne && req.DinnerStyle == models.Simple {
			return models.ErrForbiddenCombination
		}
		if req.TotalQuantity() == 0 {
			return models.ErrEmptyOrder
		}

		lines, err := s.resolveLines(ctx, tx, req.Items)
		if err != nil {
			return err
		}

		total, lineItems, err := s.reserve(ctx, tx, lines)
		if err != nil {
			return err
		}

		total = models.ApplyMembershipDiscount(total, customer.MembershipLevel)

		order := &models.Order{
			CustomerID:      customer.ID,
			CustomerLoginID: customer.LoginID,
			DinnerKind:      req.DinnerKind,
			DinnerStyle:     req.DinnerStyle,
			DeliveryAddress: req.DeliveryAddress,
			CardNumber:      req.CardNumber,
			ReservationTime: req.ReservationTime,
			TotalPrice:      total,
			Status:          models.StatusOrdered,
		}
		if err := tx.InsertOrder(ctx, order); err != nil {
			return err
		}

		for i := range lineItems {
			lineItems[i].OrderID = order.ID
		}
		if err := tx.InsertLineItems(ctx, lineItems); err != nil {
			return err
		}

		customer.OrderCount++
		if customer.OrderCount >= models.VIPThreshold {
			customer.MembershipLevel = models.VIP
		}
		if err := tx.UpdateCustomerLoyalty(ctx, customer.ID, customer.OrderCount, customer.MembershipLevel); err != nil {
			return err
		}

		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_placed", fmt.Sprintf("Order %d placed", placed.ID), requestID, map[string]interface{}{
		"order_id":    placed.ID,
		"customer":    placed.CustomerLoginID,
		"dinner_kind": placed.DinnerKind,
		"total_price": placed.TotalPrice,
	})

	// Post-commit side effects. The order is already committed; failures here
	// are logged and never unwound.
	if s.payment != nil {
		s.payment.Capture(ctx, placed.ID, placed.CardNumber, placed.TotalPrice)
	}
	if s.publisher != nil {
		msg := models.NewOrderPlacedMessage(placed)
		if err := s.publisher.PublishOrderPlaced(ctx, msg, models.KitchenRoutingKey(placed.DinnerKind)); err != nil {
			s.logger.Error("kitchen_publish_failed", "Failed to publish placed order", requestID, err, map[string]interface{}{
				"order_id": placed.ID,
			})
		}
	}

	return placed, nil
}

// resolveLines maps item names to catalog entries and fixes the lock order.
// Inventory rows are always locked in ascending item id so overlapping
// placements cannot deadlock.
func (s *Service) resolveLines(ctx context.Context, tx Tx, items map[string]int) ([]resolvedLine, error) {
	names := make([]string, 0, len(items))
	for name := range items {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]resolvedLine, 0, len(names))
	for _, name := range names {
		item, err := tx.ItemByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, models.NewUnknownItemError(name)
		}
		lines = append(lines, resolvedLine{item: item, qty: items[name]})
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].item.ID < lines[j].item.ID })
	return lines, nil
}

// reserve scans every requested item before deciding. Shortfalls are
// collected across the whole scan so the caller sees the complete picture;
// a non-empty list aborts the transaction and undoes the decrements already
// issued for sufficient items.
func (s *Service) reserve(ctx context.Context, tx Tx, lines []resolvedLine) (int, []models.OrderLineItem, error) {
	var shortfalls []models.Shortfall
	var lineItems []models.OrderLineItem
	total := 0

	for _, ln := range lines {
		inv, err := tx.InventoryForUpdate(ctx, ln.item.ID)
		if err != nil {
			return 0, nil, err
		}
		if inv == nil {
			return 0, nil, models.NewMissingInventoryError(ln.item.Name)
		}

		if inv.StockQuantity < ln.qty {
			shortfalls = append(shortfalls, models.Shortfall{
				ItemName:  ln.item.Name,
				Requested: ln.qty,
				Available: inv.StockQuantity,
			})
			continue
		}

		if ln.qty == 0 {
			continue
		}

		if err := tx.DecrementStock(ctx, ln.item.ID, ln.qty); err != nil {
			return 0, nil, err
		}
		total += ln.item.UnitPrice * ln.qty
		lineItems = append(lineItems, models.OrderLineItem{
			ItemID:   ln.item.ID,
			ItemName: ln.item.Name,
			Quantity: ln.qty,
		})
	}

	if len(shortfalls) > 0 {
		return 0, nil, &models.InsufficientInventoryError{Shortfalls: shortfalls}
	}
	return total, lineItems, nil
}

/* ============ Lifecycle transitions ============ */

// StartCooking moves ORDERED -> COOKING
func (s *Service) StartCooking(ctx context.Context, orderID int64, changedBy string) (bool, error) {
	return s.transition(ctx, orderID, models.StatusOrdered, models.StatusCooking, false, changedBy)
}

// CompleteCooking moves COOKING -> COOKED
func (s *Service) CompleteCooking(ctx context.Context, orderID int64, changedBy string) (bool, error) {
	return s.transition(ctx, orderID, models.StatusCooking, models.StatusCooked, false, changedBy)
}

// StartDelivery moves COOKED -> DELIVERING
func (s *Service) StartDelivery(ctx context.Context, orderID int64, changedBy string) (bool, error) {
	return s.transition(ctx, orderID, models.StatusCooked, models.StatusDelivering, false, changedBy)
}

// CompleteDelivery moves DELIVERING -> DELIVERED and stamps the delivery time
func (s *Service) CompleteDelivery(ctx context.Context, orderID int64, changedBy string) (bool, error) {
	return s.transition(ctx, orderID, models.StatusDelivering, models.StatusDelivered, true, changedBy)
}

// transition performs one compare-and-set. A precondition mismatch is a
// silent no-op so idempotent retries from stale staff screens never error.
func (s *Service) transition(ctx context.Context, orderID int64, from, to models.OrderStatus, stampDelivery bool, changedBy string) (bool, error) {
	changed, err := s.store.TransitionStatus(ctx, orderID, from, to, stampDelivery)
	if err != nil {
		return false, err
	}
	if !changed {
		s.logger.Debug("transition_skipped", fmt.Sprintf("Order %d not in %s, transition ignored", orderID, from), "", map[string]interface{}{
			"order_id": orderID,
			"from":     from,
			"to":       to,
		})
		return false, nil
	}

	s.logger.Info("status_changed", fmt.Sprintf("Order %d: %s -> %s", orderID, from, to), "", map[string]interface{}{
		"order_id":   orderID,
		"from":       from,
		"to":         to,
		"changed_by": changedBy,
	})

	if s.publisher != nil {
		msg := models.NewStatusUpdateMessage(orderID, from, to, changedBy)
		if err := s.publisher.PublishStatusUpdate(ctx, msg); err != nil {
			s.logger.Error("notification_publish_failed", "Failed to publish status update", "", err, map[string]interface{}{
				"order_id": orderID,
			})
		}
	}
	return true, nil
}

/* ============ Read side ============ */

// OrderByID returns one order, or nil when it does not exist
func (s *Service) OrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.store.OrderByID(ctx, orderID)
}

// OrdersByCustomer returns a customer's order history, newest first
func (s *Service) OrdersByCustomer(ctx context.Context, loginID string) ([]models.Order, error) {
	return s.store.OrdersByCustomer(ctx, loginID)
}

// LineItems returns an order's items as a name -> quantity map
func (s *Service) LineItems(ctx context.Context, orderID int64) (map[string]int, error) {
	lines, err := s.store.LineItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	itemMap := make(map[string]int, len(lines))
	for _, ln := range lines {
		itemMap[ln.ItemName] = ln.Quantity
	}
	return itemMap, nil
}

// ChefOrders lists orders the kitchen cares about
func (s *Service) ChefOrders(ctx context.Context) ([]models.Order, error) {
	return s.store.OrdersByStatuses(ctx, []models.OrderStatus{models.StatusOrdered, models.StatusCooking})
}

// DeliveryOrders lists orders the delivery staff cares about
func (s *Service) DeliveryOrders(ctx context.Context) ([]models.Order, error) {
	return s.store.OrdersByStatuses(ctx, []models.OrderStatus{models.StatusCooked, models.StatusDelivering})
}

// CookingOrders lists orders currently being cooked
func (s *Service) CookingOrders(ctx context.Context) ([]models.Order, error) {
	return s.store.OrdersByStatuses(ctx, []models.OrderStatus{models.StatusCooking})
}

// ReorderRequest rebuilds the request of a prior order so it can be
// resubmitted through PlaceOrder like any new order
func (s *Service) ReorderRequest(ctx context.Context, orderID int64) (*models.OrderRequest, error) {
	o, err := s.store.OrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, fmt.Errorf("order %d not found", orderID)
	}

	lines, err := s.store.LineItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items := make(map[string]int, len(lines))
	for _, ln := range lines {
		items[ln.ItemName] = ln.Quantity
	}

	return &models.OrderRequest{
		DinnerKind:      o.DinnerKind,
		DinnerStyle:     o.DinnerStyle,
		DeliveryAddress: o.DeliveryAddress,
		CardNumber:      o.CardNumber,
		ReservationTime: o.ReservationTime,
		Items:           items,
	}, nil
}

// HealthCheck reports whether the storage layer is reachable
func (s *Service) HealthCheck(ctx context.Context) bool {
	return s.store.Ping(ctx) == nil
}
