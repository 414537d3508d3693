package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"dinner-system/internal/logger"
	"dinner-system/internal/models"
)

// memStore is an in-memory Store with real rollback semantics: InTx snapshots
// the state and restores it when fn fails
type memStore struct {
	mu          sync.Mutex
	customers   map[string]*models.Customer
	items       map[string]*models.Item
	inventory   map[int64]*models.InventoryRecord
	orders      map[int64]*models.Order
	lines       map[int64][]models.OrderLineItem
	nextOrderID int64

	failInsertOrder bool
}

func newMemStore() *memStore {
	return &memStore{
		customers: make(map[string]*models.Customer),
		items:     make(map[string]*models.Item),
		inventory: make(map[int64]*models.InventoryRecord),
		orders:    make(map[int64]*models.Order),
		lines:     make(map[int64][]models.OrderLineItem),
	}
}

func (m *memStore) addCustomer(loginID string, level models.MembershipLevel, orderCount int) {
	m.customers[loginID] = &models.Customer{
		ID:              int64(len(m.customers) + 1),
		LoginID:         loginID,
		MembershipLevel: level,
		OrderCount:      orderCount,
	}
}

func (m *memStore) addItem(id int64, name string, unitPrice, stock int) {
	m.items[name] = &models.Item{ID: id, Name: name, UnitPrice: unitPrice}
	m.inventory[id] = &models.InventoryRecord{ItemID: id, StockQuantity: stock}
}

func (m *memStore) snapshot() (map[string]models.Customer, map[int64]models.InventoryRecord, map[int64]models.Order, int64) {
	customers := make(map[string]models.Customer, len(m.customers))
	for k, v := range m.customers {
		customers[k] = *v
	}
	inventory := make(map[int64]models.InventoryRecord, len(m.inventory))
	for k, v := range m.inventory {
		inventory[k] = *v
	}
	orders := make(map[int64]models.Order, len(m.orders))
	for k, v := range m.orders {
		orders[k] = *v
	}
	return customers, inventory, orders, m.nextOrderID
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	customers, inventory, orders, nextID := m.snapshot()
	lineCounts := make(map[int64]int, len(m.lines))
	for id, ls := range m.lines {
		lineCounts[id] = len(ls)
	}

	if err := fn(&memTx{store: m}); err != nil {
		for k, v := range customers {
			*m.customers[k] = v
		}
		for k, v := range inventory {
			*m.inventory[k] = v
		}
		for id := range m.orders {
			if _, existed := orders[id]; !existed {
				delete(m.orders, id)
				delete(m.lines, id)
			}
		}
		for id, v := range orders {
			*m.orders[id] = v
		}
		for id, ls := range m.lines {
			if n, ok := lineCounts[id]; ok && len(ls) > n {
				m.lines[id] = ls[:n]
			}
		}
		m.nextOrderID = nextID
		return err
	}
	return nil
}

func (m *memStore) Ping(ctx context.Context) error { return nil }

func (m *memStore) TransitionStatus(ctx context.Context, orderID int64, from, to models.OrderStatus, stampDelivery bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if stampDelivery {
		now := time.Now()
		o.DeliveryTime = &now
	}
	return true, nil
}

func (m *memStore) OrderByID(ctx context.Context, orderID int64) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (m *memStore) OrdersByCustomer(ctx context.Context, loginID string) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		if o.CustomerLoginID == loginID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *memStore) OrdersByStatuses(ctx context.Context, statuses []models.OrderStatus) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Order
	for _, o := range m.orders {
		for _, st := range statuses {
			if o.Status == st {
				out = append(out, *o)
				break
			}
		}
	}
	return out, nil
}

func (m *memStore) LineItems(ctx context.Context, orderID int64) ([]models.OrderLineItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.OrderLineItem(nil), m.lines[orderID]...), nil
}

type memTx struct {
	store *memStore
}

func (t *memTx) CustomerForUpdate(ctx context.Context, loginID string) (*models.Customer, error) {
	c, ok := t.store.customers[loginID]
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (t *memTx) ItemByName(ctx context.Context, name string) (*models.Item, error) {
	item, ok := t.store.items[name]
	if !ok {
		return nil, nil
	}
	return item, nil
}

func (t *memTx) InventoryForUpdate(ctx context.Context, itemID int64) (*models.InventoryRecord, error) {
	inv, ok := t.store.inventory[itemID]
	if !ok {
		return nil, nil
	}
	return inv, nil
}

func (t *memTx) DecrementStock(ctx context.Context, itemID int64, quantity int) error {
	t.store.inventory[itemID].StockQuantity -= quantity
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, o *models.Order) error {
	if t.store.failInsertOrder {
		return errors.New("storage unavailable")
	}
	t.store.nextOrderID++
	o.ID = t.store.nextOrderID
	o.CreatedAt = time.Now()
	copied := *o
	t.store.orders[o.ID] = &copied
	return nil
}

func (t *memTx) InsertLineItems(ctx context.Context, lines []models.OrderLineItem) error {
	for _, ln := range lines {
		t.store.lines[ln.OrderID] = append(t.store.lines[ln.OrderID], ln)
	}
	return nil
}

func (t *memTx) UpdateCustomerLoyalty(ctx context.Context, customerID int64, orderCount int, level models.MembershipLevel) error {
	for _, c := range t.store.customers {
		if c.ID == customerID {
			c.OrderCount = orderCount
			c.MembershipLevel = level
			return nil
		}
	}
	return fmt.Errorf("customer %d not found", customerID)
}

// recordingPublisher captures published messages
type recordingPublisher struct {
	mu      sync.Mutex
	placed  []interface{}
	updates []interface{}
}

func (p *recordingPublisher) PublishOrderPlaced(ctx context.Context, msg interface{}, routingKey string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.placed = append(p.placed, msg)
	return nil
}

func (p *recordingPublisher) PublishStatusUpdate(ctx context.Context, msg interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, msg)
	return nil
}

func newTestService(store *memStore) *Service {
	return NewService(store, nil, nil, logger.New("order-service-test"))
}

func custSession(loginID string, level models.MembershipLevel, orderCount int) *models.CustomerSession {
	return &models.CustomerSession{LoginID: loginID, MembershipLevel: level, OrderCount: orderCount}
}

func request(kind models.DinnerKind, style models.DinnerStyle, items map[string]int) *models.OrderRequest {
	return &models.OrderRequest{
		DinnerKind:      kind,
		DinnerStyle:     style,
		DeliveryAddress: "42 Dinner Lane",
		CardNumber:      "4111-1111-1111-1111",
		Items:           items,
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	store := newMemStore()
	store.addCustomer("alice", models.Standard, 0)
	store.addItem(1, "wine", 100, 10)
	store.addItem(2, "steak", 37, 10)
	svc := newTestService(store)

	placed, err := svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 1, "steak": 1}), custSession("alice", models.Standard, 0), "req-1")
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	if placed.TotalPrice != 137 {
		t.Errorf("total price = %d, want 137", placed.TotalPrice)
	}
	if placed.Status != models.StatusOrdered {
		t.Errorf("status = %s, want ORDERED", placed.Status)
	}
	if store.inventory[1].StockQuantity != 9 || store.inventory[2].StockQuantity != 9 {
		t.Errorf("stock not decremented: wine=%d steak=%d", store.inventory[1].StockQuantity, store.inventory[2].StockQuantity)
	}
	if store.customers["alice"].OrderCount != 1 {
		t.Errorf("order count = %d, want 1", store.customers["alice"].OrderCount)
	}
	if len(store.lines[placed.ID]) != 2 {
		t.Errorf("line items = %d, want 2", len(store.lines[placed.ID]))
	}
}

func TestPlaceOrder_VIPPricing(t *testing.T) {
	store := newMemStore()
	store.addCustomer("vip", models.VIP, 6)
	store.addItem(1, "wine", 137, 10)
	svc := newTestService(store)

	placed, err := svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 1}), custSession("vip", models.VIP, 6), "req-1")
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	// 137 * 0.9 = 123.3 -> 123 -> floored to 120
	if placed.TotalPrice != 120 {
		t.Errorf("VIP total price = %d, want 120", placed.TotalPrice)
	}
}

func TestPlaceOrder_ChampagneSimpleRejected(t *testing.T) {
	store := newMemStore()
	store.addCustomer("alice", models.Standard, 0)
	store.addItem(1, "wine", 100, 100)
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), request(models.Champagne, models.Simple, map[string]int{"wine": 1}), custSession("alice", models.Standard, 0), "req-1")
	if !errors.Is(err, models.ErrForbiddenCombination) {
		t.Fatalf("expected ErrForbiddenCombination, got %v", err)
	}
	if store.inventory[1].StockQuantity != 100 {
		t.Errorf("stock mutated on rejected order")
	}
}

func TestPlaceOrder_EmptyOrderRejected(t *testing.T) {
	store := newMemStore()
	store.addCustomer("alice", models.Standard, 0)
	store.addItem(1, "wine", 100, 100)
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 0, "steak": 0}), custSession("alice", models.Standard, 0), "req-1")
	if !errors.Is(err, models.ErrEmptyOrder) {
		t.Fatalf("expected ErrEmptyOrder, got %v", err)
	}
}

func TestPlaceOrder_StaleSession(t *testing.T) {
	store := newMemStore()
	store.addItem(1, "wine", 100, 100)
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 1}), custSession("ghost", models.Standard, 0), "req-1")
	if !errors.Is(err, models.ErrStaleSession) {
		t.Fatalf("expected ErrStaleSession, got %v", err)
	}

	_, err = svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 1}), nil, "req-1")
	if !errors.Is(err, models.ErrStaleSession) {
		t.Fatalf("expected ErrStaleSession for nil session, got %v", err)
	}
}

func TestPlaceOrder_UnknownItem(t *testing.T) {
	store := newMemStore()
	store.addCustomer("alice", models.Standard, 0)
	store.addItem(1, "wine", 100, 100)
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"caviar": 1}), custSession("alice", models.Standard, 0), "req-1")

	var refErr *models.ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected ReferenceError, got %v", err)
	}
	if refErr.ItemName != "caviar" {
		t.Errorf("reference error names %q, want caviar", refErr.ItemName)
	}
}

func TestPlaceOrder_MissingInventoryRecord(t *testing.T) {
	store := newMemStore()
	store.addCustomer("alice", models.Standard, 0)
	store.items["wine"] = &models.Item{ID: 1, Name: "wine", UnitPrice: 100}
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 1}), custSession("alice", models.Standard, 0), "req-1")

	var refErr *models.ReferenceError
	if !errors.As(err, &refErr) {
		t.Fatalf("expected ReferenceError, got %v", err)
	}
}

func TestPlaceOrder_InsufficientInventoryCompleteList(t *testing.T) {
	store := newMemStore()
	store.addCustomer("alice", models.Standard, 0)
	store.addItem(1, "wine", 100, 2)   // requested 5, available 2 -> shortfall
	store.addItem(2, "steak", 200, 10) // requested 3, available 10 -> fine
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 5, "steak": 3}), custSession("alice", models.Standard, 0), "req-1")

	var insErr *models.InsufficientInventoryError
	if !errors.As(err, &insErr) {
		t.Fatalf("expected InsufficientInventoryError, got %v", err)
	}
	if len(insErr.Shortfalls) != 1 {
		t.Fatalf("shortfall list has %d entries, want 1", len(insErr.Shortfalls))
	}
	s := insErr.Shortfalls[0]
	if s.ItemName != "wine" || s.Requested != 5 || s.Available != 2 {
		t.Errorf("unexpected shortfall: %+v", s)
	}

	// No partial reservation: the sufficient item is untouched too
	if store.inventory[1].StockQuantity != 2 || store.inventory[2].StockQuantity != 10 {
		t.Errorf("stock mutated on failed reservation: wine=%d steak=%d", store.inventory[1].StockQuantity, store.inventory[2].StockQuantity)
	}
	if store.customers["alice"].OrderCount != 0 {
		t.Errorf("loyalty mutated on failed reservation")
	}
}

func TestPlaceOrder_RollbackOnCommitFailure(t *testing.T) {
	store := newMemStore()
	store.addCustomer("alice", models.Standard, 3)
	store.addItem(1, "wine", 100, 10)
	store.failInsertOrder = true
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 2}), custSession("alice", models.Standard, 3), "req-1")
	if err == nil {
		t.Fatal("expected error when storage fails")
	}
	if store.inventory[1].StockQuantity != 10 {
		t.Errorf("stock = %d after failed commit, want 10", store.inventory[1].StockQuantity)
	}
	if store.customers["alice"].OrderCount != 3 {
		t.Errorf("order count = %d after failed commit, want 3", store.customers["alice"].OrderCount)
	}
	if len(store.orders) != 0 {
		t.Errorf("order persisted despite failed commit")
	}
}

func TestPlaceOrder_PromotionThreshold(t *testing.T) {
	store := newMemStore()
	store.addCustomer("bob", models.Standard, 4)
	store.addItem(1, "wine", 100, 100)
	svc := newTestService(store)

	_, err := svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 1}), custSession("bob", models.Standard, 4), "req-1")
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}

	c := store.customers["bob"]
	if c.OrderCount != 5 {
		t.Errorf("order count = %d, want 5", c.OrderCount)
	}
	if c.MembershipLevel != models.VIP {
		t.Errorf("membership = %s, want VIP", c.MembershipLevel)
	}

	// Already-VIP customers are never demoted
	_, err = svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 1}), custSession("bob", models.VIP, 5), "req-2")
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if c.OrderCount != 6 || c.MembershipLevel != models.VIP {
		t.Errorf("after sixth order: count=%d level=%s, want 6/VIP", c.OrderCount, c.MembershipLevel)
	}
}

func TestPlaceOrder_ConcurrentNeverOversells(t *testing.T) {
	initialStock := 20
	totalRequests := 50

	store := newMemStore()
	store.addCustomer("alice", models.Standard, 0)
	store.addItem(1, "wine", 100, initialStock)
	svc := newTestService(store)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 1}), custSession("alice", models.Standard, 0), "req")
			if err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	if int(successCount.Load()) != initialStock {
		t.Errorf("successes = %d, want %d", successCount.Load(), initialStock)
	}
	if store.inventory[1].StockQuantity != 0 {
		t.Errorf("final stock = %d, want 0", store.inventory[1].StockQuantity)
	}
}

func placeTestOrder(t *testing.T, svc *Service, store *memStore) *models.Order {
	t.Helper()
	store.addCustomer("alice", models.Standard, 0)
	store.addItem(1, "wine", 100, 10)
	placed, err := svc.PlaceOrder(context.Background(), request(models.Valentine, models.Grand, map[string]int{"wine": 1}), custSession("alice", models.Standard, 0), "req-1")
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	return placed
}

func TestLifecycle_FullChain(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	placed := placeTestOrder(t, svc, store)
	ctx := context.Background()

	steps := []struct {
		name string
		fn   func(context.Context, int64, string) (bool, error)
		want models.OrderStatus
	}{
		{"start cooking", svc.StartCooking, models.StatusCooking},
		{"complete cooking", svc.CompleteCooking, models.StatusCooked},
		{"start delivery", svc.StartDelivery, models.StatusDelivering},
		{"complete delivery", svc.CompleteDelivery, models.StatusDelivered},
	}
	for _, step := range steps {
		changed, err := step.fn(ctx, placed.ID, "staff")
		if err != nil {
			t.Fatalf("%s failed: %v", step.name, err)
		}
		if !changed {
			t.Fatalf("%s was a no-op, expected transition", step.name)
		}
		if store.orders[placed.ID].Status != step.want {
			t.Fatalf("after %s status = %s, want %s", step.name, store.orders[placed.ID].Status, step.want)
		}
	}
}

func TestLifecycle_SilentNoOp(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	placed := placeTestOrder(t, svc, store)
	ctx := context.Background()

	// completeCooking on an ORDERED order: no error, no change
	changed, err := svc.CompleteCooking(ctx, placed.ID, "staff")
	if err != nil {
		t.Fatalf("CompleteCooking errored: %v", err)
	}
	if changed {
		t.Error("CompleteCooking changed an ORDERED order")
	}
	if store.orders[placed.ID].Status != models.StatusOrdered {
		t.Errorf("status = %s, want ORDERED", store.orders[placed.ID].Status)
	}

	// Legitimate transition, then a repeat is a no-op again
	if _, err := svc.StartCooking(ctx, placed.ID, "staff"); err != nil {
		t.Fatal(err)
	}
	if changed, _ := svc.CompleteCooking(ctx, placed.ID, "staff"); !changed {
		t.Fatal("expected COOKING -> COOKED to apply")
	}
	if changed, _ := svc.CompleteCooking(ctx, placed.ID, "staff"); changed {
		t.Error("second CompleteCooking applied twice")
	}
}

func TestLifecycle_DeliveryTimestamp(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	placed := placeTestOrder(t, svc, store)
	ctx := context.Background()

	// Not DELIVERING yet: no timestamp
	if _, err := svc.CompleteDelivery(ctx, placed.ID, "staff"); err != nil {
		t.Fatal(err)
	}
	if store.orders[placed.ID].DeliveryTime != nil {
		t.Error("delivery time set on a non-DELIVERING order")
	}

	svc.StartCooking(ctx, placed.ID, "staff")
	svc.CompleteCooking(ctx, placed.ID, "staff")
	svc.StartDelivery(ctx, placed.ID, "staff")

	before := time.Now()
	changed, err := svc.CompleteDelivery(ctx, placed.ID, "staff")
	if err != nil || !changed {
		t.Fatalf("CompleteDelivery changed=%v err=%v", changed, err)
	}
	dt := store.orders[placed.ID].DeliveryTime
	if dt == nil {
		t.Fatal("delivery time not stamped")
	}
	if dt.Before(before) {
		t.Errorf("delivery time %v before call time %v", dt, before)
	}
}

func TestLifecycle_PublishesOnlyEffectiveTransitions(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	svc := NewService(store, pub, nil, logger.New("order-service-test"))
	placed := placeTestOrder(t, svc, store)
	ctx := context.Background()

	if len(pub.placed) != 1 {
		t.Fatalf("placed messages = %d, want 1", len(pub.placed))
	}

	svc.CompleteCooking(ctx, placed.ID, "staff") // no-op
	svc.StartCooking(ctx, placed.ID, "staff")    // effective
	svc.StartCooking(ctx, placed.ID, "staff")    // no-op

	if len(pub.updates) != 1 {
		t.Errorf("status updates = %d, want 1", len(pub.updates))
	}
}

func TestReorderRequest(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store)
	placed := placeTestOrder(t, svc, store)

	req, err := svc.ReorderRequest(context.Background(), placed.ID)
	if err != nil {
		t.Fatalf("ReorderRequest failed: %v", err)
	}
	if req.DinnerKind != models.Valentine || req.DinnerStyle != models.Grand {
		t.Errorf("rebuilt request kind/style = %s/%s", req.DinnerKind, req.DinnerStyle)
	}
	if req.Items["wine"] != 1 {
		t.Errorf("rebuilt items = %v, want wine:1", req.Items)
	}

	// The rebuilt request goes through the normal engine
	placed2, err := svc.PlaceOrder(context.Background(), req, custSession("alice", models.Standard, 1), "req-2")
	if err != nil {
		t.Fatalf("resubmission failed: %v", err)
	}
	if placed2.ID == placed.ID {
		t.Error("reorder reused the original order id")
	}
}
