package order

import (
	"context"

	"dinner-system/internal/models"
)

// Store is the persistence boundary of the order service
type Store interface {
	// InTx runs fn inside one transaction; any error rolls everything back
	InTx(ctx context.Context, fn func(tx Tx) error) error

	// TransitionStatus compare-and-sets an order's status. It reports whether
	// the row actually changed; a false result is the silent no-op the staff
	// screens rely on. stampDelivery additionally sets delivery_time.
	TransitionStatus(ctx context.Context, orderID int64, from, to models.OrderStatus, stampDelivery bool) (bool, error)

	// Ping reports storage reachability for health checks
	Ping(ctx context.Context) error

	OrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	OrdersByCustomer(ctx context.Context, loginID string) ([]models.Order, error)
	OrdersByStatuses(ctx context.Context, statuses []models.OrderStatus) ([]models.Order, error)
	LineItems(ctx context.Context, orderID int64) ([]models.OrderLineItem, error)
}

// Tx is the row-locking surface the placement engine runs on. Lookups return
// (nil, nil) when the row does not exist; the engine owns the error taxonomy.
type Tx interface {
	CustomerForUpdate(ctx context.Context, loginID string) (*models.Customer, error)
	ItemByName(ctx context.Context, name string) (*models.Item, error)
	InventoryForUpdate(ctx context.Context, itemID int64) (*models.InventoryRecord, error)
	DecrementStock(ctx context.Context, itemID int64, quantity int) error
	InsertOrder(ctx context.Context, o *models.Order) error
	InsertLineItems(ctx context.Context, lines []models.OrderLineItem) error
	UpdateCustomerLoyalty(ctx context.Context, customerID int64, orderCount int, level models.MembershipLevel) error
}
