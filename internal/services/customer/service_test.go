package customer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"dinner-system/internal/logger"
	"dinner-system/internal/models"
)

type memStore struct {
	mu        sync.Mutex
	customers map[string]*models.Customer
	nextID    int64
}

func newMemStore() *memStore {
	return &memStore{customers: make(map[string]*models.Customer)}
}

func (m *memStore) CustomerByLogin(ctx context.Context, loginID string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[loginID]
	if !ok {
		return nil, nil
	}
	copied := *c
	return &copied, nil
}

func (m *memStore) InsertCustomer(ctx context.Context, c *models.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.customers[c.LoginID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	m.nextID++
	c.ID = m.nextID
	copied := *c
	m.customers[c.LoginID] = &copied
	return nil
}

// memSessions records minted and revoked tokens
type memSessions struct {
	mu        sync.Mutex
	customers map[string]*models.CustomerSession
	staff     map[string]*models.StaffSession
	counter   int
}

func newMemSessions() *memSessions {
	return &memSessions{
		customers: make(map[string]*models.CustomerSession),
		staff:     make(map[string]*models.StaffSession),
	}
}

func (m *memSessions) CreateCustomer(ctx context.Context, sess *models.CustomerSession) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	token := "customer-token"
	m.customers[token] = sess
	return token, nil
}

func (m *memSessions) DeleteCustomer(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.customers, token)
	return nil
}

func (m *memSessions) CreateStaff(ctx context.Context, sess *models.StaffSession) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	token := "staff-token"
	m.staff[token] = sess
	return token, nil
}

func (m *memSessions) DeleteStaff(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.staff, token)
	return nil
}

func newTestService(store *memStore, sessions *memSessions) *Service {
	return NewService(store, sessions, "kitchen-secret", logger.New("customer-service-test"))
}

func TestSignUp(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, newMemSessions())

	customer, err := svc.SignUp(context.Background(), "alice", "hunter2", "req-1")
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}

	if customer.MembershipLevel != models.Standard {
		t.Errorf("new customer level = %s, want STANDARD", customer.MembershipLevel)
	}
	if customer.PasswordHash == "hunter2" {
		t.Error("password stored in clear")
	}

	stored := store.customers["alice"]
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("hunter2")); err != nil {
		t.Errorf("stored hash does not verify: %v", err)
	}
}

func TestSignUp_DuplicateLogin(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, newMemSessions())

	if _, err := svc.SignUp(context.Background(), "alice", "hunter2", "req-1"); err != nil {
		t.Fatalf("first SignUp failed: %v", err)
	}

	_, err := svc.SignUp(context.Background(), "alice", "other", "req-2")
	if !errors.Is(err, ErrDuplicateLogin) {
		t.Fatalf("expected ErrDuplicateLogin, got %v", err)
	}
}

func TestSignUp_MissingFields(t *testing.T) {
	svc := newTestService(newMemStore(), newMemSessions())

	if _, err := svc.SignUp(context.Background(), "", "pw", "req-1"); err == nil {
		t.Error("SignUp accepted empty login")
	}
	if _, err := svc.SignUp(context.Background(), "alice", "", "req-1"); err == nil {
		t.Error("SignUp accepted empty password")
	}
}

func TestLogin(t *testing.T) {
	store := newMemStore()
	sessions := newMemSessions()
	svc := newTestService(store, sessions)

	if _, err := svc.SignUp(context.Background(), "alice", "hunter2", "req-1"); err != nil {
		t.Fatal(err)
	}

	token, sess, err := svc.Login(context.Background(), "alice", "hunter2", "req-2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if token == "" {
		t.Error("empty token")
	}
	if sess.LoginID != "alice" || sess.MembershipLevel != models.Standard || sess.OrderCount != 0 {
		t.Errorf("unexpected session: %+v", sess)
	}
	if sessions.customers[token] == nil {
		t.Error("session not stored")
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, newMemSessions())

	if _, err := svc.SignUp(context.Background(), "alice", "hunter2", "req-1"); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.Login(context.Background(), "alice", "wrong", "req-2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "nobody", "hunter2", "req-3"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown login: got %v", err)
	}
}

func TestStaffLogin(t *testing.T) {
	sessions := newMemSessions()
	svc := newTestService(newMemStore(), sessions)

	token, err := svc.StaffLogin(context.Background(), "chef", "kitchen-secret", "req-1")
	if err != nil {
		t.Fatalf("StaffLogin failed: %v", err)
	}
	if sessions.staff[token] == nil || sessions.staff[token].Position != "chef" {
		t.Errorf("staff session not stored: %+v", sessions.staff)
	}

	if _, err := svc.StaffLogin(context.Background(), "chef", "wrong", "req-2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong staff password: got %v", err)
	}
}

func TestStaffLogin_NoConfiguredPassword(t *testing.T) {
	svc := NewService(newMemStore(), newMemSessions(), "", logger.New("customer-service-test"))

	if _, err := svc.StaffLogin(context.Background(), "chef", "", "req-1"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("blank configured password must never authenticate: got %v", err)
	}
}

func TestLogout(t *testing.T) {
	sessions := newMemSessions()
	svc := newTestService(newMemStore(), sessions)

	if _, err := svc.SignUp(context.Background(), "alice", "hunter2", "req-1"); err != nil {
		t.Fatal(err)
	}
	token, _, err := svc.Login(context.Background(), "alice", "hunter2", "req-2")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Logout(context.Background(), token); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if sessions.customers[token] != nil {
		t.Error("session survived logout")
	}
}
