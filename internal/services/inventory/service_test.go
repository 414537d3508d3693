package inventory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dinner-system/internal/logger"
	"dinner-system/internal/models"
)

// memStore is an in-memory Store for exercising the ledger rules
type memStore struct {
	mu        sync.Mutex
	items     map[string]*models.Item
	inventory map[int64]*models.InventoryRecord
}

func newMemStore() *memStore {
	return &memStore{
		items:     make(map[string]*models.Item),
		inventory: make(map[int64]*models.InventoryRecord),
	}
}

func (m *memStore) addItem(id int64, name string, unitPrice, stock int) {
	m.items[name] = &models.Item{ID: id, Name: name, UnitPrice: unitPrice}
	m.inventory[id] = &models.InventoryRecord{ItemID: id, StockQuantity: stock}
}

func (m *memStore) List(ctx context.Context) ([]models.InventoryView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var views []models.InventoryView
	for _, item := range m.items {
		if rec, ok := m.inventory[item.ID]; ok {
			views = append(views, models.InventoryView{
				ItemID:        item.ID,
				ItemName:      item.Name,
				UnitPrice:     item.UnitPrice,
				StockQuantity: rec.StockQuantity,
			})
		}
	}
	return views, nil
}

func (m *memStore) ItemByName(ctx context.Context, name string) (*models.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[name]
	if !ok {
		return nil, nil
	}
	return item, nil
}

func (m *memStore) Record(ctx context.Context, itemID int64) (*models.InventoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.inventory[itemID]
	if !ok {
		return nil, nil
	}
	copied := *rec
	return &copied, nil
}

func (m *memStore) Increase(ctx context.Context, itemID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inventory[itemID].StockQuantity += quantity
	return nil
}

func (m *memStore) DecreaseClamped(ctx context.Context, itemID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.inventory[itemID]
	rec.StockQuantity -= quantity
	if rec.StockQuantity < 0 {
		rec.StockQuantity = 0
	}
	return nil
}

func newTestService(store *memStore) *Service {
	return NewService(store, logger.New("inventory-service-test"))
}

func TestIncrease(t *testing.T) {
	store := newMemStore()
	store.addItem(1, "wine", 30000, 5)
	svc := newTestService(store)

	if err := svc.Increase(context.Background(), "wine", 7, "req-1"); err != nil {
		t.Fatalf("Increase failed: %v", err)
	}
	if got := store.inventory[1].StockQuantity; got != 12 {
		t.Errorf("stock = %d, want 12", got)
	}
}

func TestDecreaseClampsAtZero(t *testing.T) {
	store := newMemStore()
	store.addItem(1, "wine", 30000, 3)
	svc := newTestService(store)

	if err := svc.Decrease(context.Background(), "wine", 10, "req-1"); err != nil {
		t.Fatalf("Decrease failed: %v", err)
	}
	if got := store.inventory[1].StockQuantity; got != 0 {
		t.Errorf("stock = %d, want 0 (clamped)", got)
	}
}

func TestDecreaseWithinStock(t *testing.T) {
	store := newMemStore()
	store.addItem(1, "steak", 50000, 10)
	svc := newTestService(store)

	if err := svc.Decrease(context.Background(), "steak", 4, "req-1"); err != nil {
		t.Fatalf("Decrease failed: %v", err)
	}
	if got := store.inventory[1].StockQuantity; got != 6 {
		t.Errorf("stock = %d, want 6", got)
	}
}

func TestUnknownItemRejected(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)

	err := svc.Increase(context.Background(), "caviar", 1, "req-1")

	var refErr *models.ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected ReferenceError, got %v", err)
	}
	if refErr.ItemName != "caviar" {
		t.Errorf("reference error names %q, want caviar", refErr.ItemName)
	}
}

func TestMissingRecordRejected(t *testing.T) {
	store := newMemStore()
	store.items["wine"] = &models.Item{ID: 1, Name: "wine", UnitPrice: 30000}
	svc := newTestService(store)

	err := svc.Decrease(context.Background(), "wine", 1, "req-1")

	var refErr *models.ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected ReferenceError, got %v", err)
	}
}

func TestNonPositiveQuantityRejected(t *testing.T) {
	store := newMemStore()
	store.addItem(1, "wine", 30000, 5)
	svc := newTestService(store)

	for _, qty := range []int{0, -3} {
		if err := svc.Increase(context.Background(), "wine", qty, "req-1"); err == nil {
			t.Errorf("Increase accepted quantity %d", qty)
		}
		if err := svc.Decrease(context.Background(), "wine", qty, "req-1"); err == nil {
			t.Errorf("Decrease accepted quantity %d", qty)
		}
	}
	if got := store.inventory[1].StockQuantity; got != 5 {
		t.Errorf("stock mutated by rejected adjustments: %d", got)
	}
}

func TestConcurrentAdjustments(t *testing.T) {
	store := newMemStore()
	store.addItem(1, "wine", 30000, 0)
	svc := newTestService(store)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Increase(context.Background(), "wine", 2, "req")
		}()
	}
	wg.Wait()

	if got := store.inventory[1].StockQuantity; got != 100 {
		t.Errorf("stock = %d, want 100", got)
	}
}

func TestList(t *testing.T) {
	store := newMemStore()
	store.addItem(1, "wine", 30000, 5)
	store.addItem(2, "steak", 50000, 8)
	svc := newTestService(store)

	views, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("views = %d, want 2", len(views))
	}
	byName := make(map[string]models.InventoryView)
	for _, v := range views {
		byName[v.ItemName] = v
	}
	if byName["wine"].StockQuantity != 5 || byName["steak"].StockQuantity != 8 {
		t.Errorf("unexpected listing: %+v", views)
	}
}
