package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"dinner-system/internal/database"
	"dinner-system/internal/models"
)

// Repository implements Store on top of the PostgreSQL pool. Adjustments rely
// on the row-level lock the UPDATE itself takes; concurrent adjustments to the
// same item serialize at the row.
type Repository struct {
	db *database.DB
}

// NewRepository creates the inventory repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// List returns every catalog item joined with its stock
func (r *Repository) List(ctx context.Context) ([]models.InventoryView, error) {
	rows, err := r.db.Query(ctx, database.ListInventorySQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	var views []models.InventoryView
	for rows.Next() {
		var v models.InventoryView
		if err := rows.Scan(&v.ItemID, &v.ItemName, &v.UnitPrice, &v.StockQuantity); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ItemByName resolves a catalog entry
func (r *Repository) ItemByName(ctx context.Context, name string) (*models.Item, error) {
	var item models.Item
	err := r.db.QueryRow(ctx, database.GetItemByNameSQL, name).Scan(&item.ID, &item.Name, &item.UnitPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}
	return &item, nil
}

// Record fetches one inventory row
func (r *Repository) Record(ctx context.Context, itemID int64) (*models.InventoryRecord, error) {
	var rec models.InventoryRecord
	err := r.db.QueryRow(ctx, database.GetInventorySQL, itemID).Scan(&rec.ItemID, &rec.StockQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	return &rec, nil
}

// Increase adds quantity to an item's stock
func (r *Repository) Increase(ctx context.Context, itemID int64, quantity int) error {
	if err := r.db.Exec(ctx, database.IncreaseStockSQL, quantity, itemID); err != nil {
		return fmt.Errorf("failed to increase stock: %w", err)
	}
	return nil
}

// DecreaseClamped subtracts quantity from an item's stock, clamping at zero
func (r *Repository) DecreaseClamped(ctx context.Context, itemID int64, quantity int) error {
	if err := r.db.Exec(ctx, database.DecreaseStockClampedSQL, quantity, itemID); err != nil {
		return fmt.Errorf("failed to decrease stock: %w", err)
	}
	return nil
}
