package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dinner-system/internal/database"
	"dinner-system/internal/models"
)

// Repository implements Store on top of the PostgreSQL pool
type Repository struct {
	db *database.DB
}

// NewRepository creates the order repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// InTx runs fn inside one transaction
func (r *Repository) InTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// TransitionStatus compare-and-sets an order's status in a single statement
func (r *Repository) TransitionStatus(ctx context.Context, orderID int64, from, to models.OrderStatus, stampDelivery bool) (bool, error) {
	sql := database.TransitionOrderStatusSQL
	if stampDelivery {
		sql = database.TransitionOrderDeliveredSQL
	}

	tag, err := r.db.Pool.Exec(ctx, sql, to, orderID, from)
	if err != nil {
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Ping reports storage reachability
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// OrderByID fetches one order with its customer login
func (r *Repository) OrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	row := r.db.QueryRow(ctx, database.GetOrderByIDSQL, orderID)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}
	return o, nil
}

// OrdersByCustomer lists a customer's orders, newest first
func (r *Repository) OrdersByCustomer(ctx context.Context, loginID string) ([]models.Order, error) {
	rows, err := r.db.Query(ctx, database.GetOrdersByCustomerSQL, loginID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// OrdersByStatuses lists orders in any of the given statuses, oldest first
func (r *Repository) OrdersByStatuses(ctx context.Context, statuses []models.OrderStatus) ([]models.Order, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	rows, err := r.db.Query(ctx, database.GetOrdersByStatusesSQL, values)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

// LineItems lists the line items of one order
func (r *Repository) LineItems(ctx context.Context, orderID int64) ([]models.OrderLineItem, error) {
	rows, err := r.db.Query(ctx, database.GetOrderLineItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query line items: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLineItem
	for rows.Next() {
		var ln models.OrderLineItem
		if err := rows.Scan(&ln.OrderID, &ln.ItemID, &ln.ItemName, &ln.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		lines = append(lines, ln)
	}
	return lines, rows.Err()
}

// pgTx implements Tx over one pgx transaction
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) CustomerForUpdate(ctx context.Context, loginID string) (*models.Customer, error) {
	var c models.Customer
	err := t.tx.QueryRow(ctx, database.GetCustomerByLoginForUpdateSQL, loginID).Scan(
		&c.ID, &c.LoginID, &c.PasswordHash, &c.MembershipLevel, &c.OrderCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return &c, nil
}

func (t *pgTx) ItemByName(ctx context.Context, name string) (*models.Item, error) {
	var item models.Item
	err := t.tx.QueryRow(ctx, database.GetItemByNameSQL, name).Scan(&item.ID, &item.Name, &item.UnitPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}
	return &item, nil
}

func (t *pgTx) InventoryForUpdate(ctx context.Context, itemID int64) (*models.InventoryRecord, error) {
	var inv models.InventoryRecord
	err := t.tx.QueryRow(ctx, database.GetInventoryForUpdateSQL, itemID).Scan(&inv.ItemID, &inv.StockQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	return &inv, nil
}

func (t *pgTx) DecrementStock(ctx context.Context, itemID int64, quantity int) error {
	if _, err := t.tx.Exec(ctx, database.DecrementStockSQL, quantity, itemID); err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *models.Order) error {
	err := t.tx.QueryRow(ctx, database.InsertOrderSQL,
		o.CustomerID, o.DinnerKind, o.DinnerStyle, o.DeliveryAddress,
		o.CardNumber, o.ReservationTime, o.TotalPrice).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	return nil
}

func (t *pgTx) InsertLineItems(ctx context.Context, lines []models.OrderLineItem) error {
	for _, ln := range lines {
		if _, err := t.tx.Exec(ctx, database.InsertOrderLineItemSQL, ln.OrderID, ln.ItemID, ln.Quantity); err != nil {
			return fmt.Errorf("failed to insert line item: %w", err)
		}
	}
	return nil
}

func (t *pgTx) UpdateCustomerLoyalty(ctx context.Context, customerID int64, orderCount int, level models.MembershipLevel) error {
	if _, err := t.tx.Exec(ctx, database.UpdateCustomerLoyaltySQL, orderCount, level, customerID); err != nil {
		return fmt.Errorf("failed to update customer loyalty: %w", err)
	}
	return nil
}

// scanOrder reads one order row
func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.CustomerID, &o.CustomerLoginID, &o.DinnerKind, &o.DinnerStyle,
		&o.DeliveryAddress, &o.CardNumber, &o.ReservationTime, &o.TotalPrice,
		&o.Status, &o.DeliveryTime, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// scanOrders reads all order rows
func scanOrders(rows pgx.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}
