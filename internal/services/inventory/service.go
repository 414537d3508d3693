package inventory

import (
	"context"
	"fmt"

	"dinner-system/internal/logger"
	"dinner-system/internal/models"
)

// Store is the persistence boundary of the inventory ledger
type Store interface {
	// List returns every catalog item joined with its stock, ordered by item id
	List(ctx context.Context) ([]models.InventoryView, error)

	// ItemByName resolves a catalog entry; (nil, nil) when absent
	ItemByName(ctx context.Context, name string) (*models.Item, error)

	// Record fetches one inventory row; (nil, nil) when absent
	Record(ctx context.Context, itemID int64) (*models.InventoryRecord, error)

	// Increase adds quantity to an item's stock
	Increase(ctx context.Context, itemID int64, quantity int) error

	// DecreaseClamped subtracts quantity, clamping the result at zero
	DecreaseClamped(ctx context.Context, itemID int64, quantity int) error
}

// Service is the staff-facing inventory ledger. Adjustments here are manual
// corrections: a decrease clamps at zero instead of failing, unlike the
// reservation path which rejects the whole order on any shortfall.
type Service struct {
	store  Store
	logger *logger.Logger
}

// NewService creates the inventory service
func NewService(store Store, log *logger.Logger) *Service {
	return &Service{store: store, logger: log}
}

// List returns the full stock listing for the staff screen
func (s *Service) List(ctx context.Context) ([]models.InventoryView, error) {
	return s.store.List(ctx)
}

// Increase adds quantity to the named item's stock
func (s *Service) Increase(ctx context.Context, itemName string, quantity int, requestID string) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	item, err := s.resolve(ctx, itemName)
	if err != nil {
		return err
	}

	if err := s.store.Increase(ctx, item.ID, quantity); err != nil {
		return err
	}

	s.logger.Info("stock_increased", fmt.Sprintf("Stock of %s increased by %d", itemName, quantity), requestID, map[string]interface{}{
		"item":     itemName,
		"quantity": quantity,
	})
	return nil
}

// Decrease subtracts quantity from the named item's stock, stopping at zero
func (s *Service) Decrease(ctx context.Context, itemName string, quantity int, requestID string) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	item, err := s.resolve(ctx, itemName)
	if err != nil {
		return err
	}

	if err := s.store.DecreaseClamped(ctx, item.ID, quantity); err != nil {
		return err
	}

	s.logger.Info("stock_decreased", fmt.Sprintf("Stock of %s decreased by %d", itemName, quantity), requestID, map[string]interface{}{
		"item":     itemName,
		"quantity": quantity,
	})
	return nil
}

// resolve maps a name to its catalog item and confirms the inventory row exists
func (s *Service) resolve(ctx context.Context, itemName string) (*models.Item, error) {
	item, err := s.store.ItemByName(ctx, itemName)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, models.NewUnknownItemError(itemName)
	}

	record, err := s.store.Record(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, models.NewMissingInventoryError(itemName)
	}
	return item, nil
}
