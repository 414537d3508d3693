package customer

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

// NewRepository creates the customer repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// CustomerByLogin fetches one account by login id
func (r *Repository) CustomerByLogin(ctx context.Context, loginID string) (*models.Customer, error) {
	var c models.Customer
	err := r.db.QueryRow(ctx, database.GetCustomerByLoginSQL, loginID).Scan(
		&c.ID, &c.LoginID, &c.PasswordHash, &c.MembershipLevel, &c.OrderCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query customer: %w", err)
	}
	return &c, nil
}

// InsertCustomer creates an account with STANDARD membership and no orders
func (r *Repository) InsertCustomer(ctx context.Context, c *models.Customer) error {
	err := r.db.QueryRow(ctx, database.InsertCustomerSQL, c.LoginID, c.PasswordHash).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}
