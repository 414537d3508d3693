package customer

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"dinner-system/internal/logger"
	"dinner-system/internal/models"
)

var (
	// ErrDuplicateLogin means the requested login id is already taken
	ErrDuplicateLogin = errors.New("login id is already taken")

	// ErrInvalidCredentials covers both an unknown login and a wrong password
	ErrInvalidCredentials = errors.New("invalid login or password")
)

// Store is the persistence boundary of the customer service
type Store interface {
	// CustomerByLogin fetches one account; (nil, nil) when absent
	CustomerByLogin(ctx context.Context, loginID string) (*models.Customer, error)

	// InsertCustomer creates an account, filling in its id
	InsertCustomer(ctx context.Context, c *models.Customer) error
}

// SessionStore mints and revokes session tokens; satisfied by session.Store
type SessionStore interface {
	CreateCustomer(ctx context.Context, sess *models.CustomerSession) (string, error)
	DeleteCustomer(ctx context.Context, token string) error
	CreateStaff(ctx context.Context, sess *models.StaffSession) (string, error)
	DeleteStaff(ctx context.Context, token string) error
}

// Service handles customer accounts and login for both customers and staff.
// Staff share one configured password; there are no individual staff accounts.
type Service struct {
	store         Store
	sessions      SessionStore
	staffPassword string
	logger        *logger.Logger
}

// NewService creates the customer service
func NewService(store Store, sessions SessionStore, staffPassword string, log *logger.Logger) *Service {
	return &Service{
		store:         store,
		sessions:      sessions,
		staffPassword: staffPassword,
		logger:        log,
	}
}

// SignUp registers a new customer account. Passwords are stored as bcrypt
// hashes only.
func (s *Service) SignUp(ctx context.Context, loginID, password, requestID string) (*models.Customer, error) {
	if loginID == "" || password == "" {
		return nil, fmt.Errorf("login_id and password are required")
	}

	existing, err := s.store.CustomerByLogin(ctx, loginID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateLogin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	customer := &models.Customer{
		LoginID:         loginID,
		PasswordHash:    string(hash),
		MembershipLevel: models.Standard,
	}
	if err := s.store.InsertCustomer(ctx, customer); err != nil {
		return nil, err
	}

	s.logger.Info("customer_registered", fmt.Sprintf("Customer %s registered", loginID), requestID, map[string]interface{}{
		"login_id": loginID,
	})
	return customer, nil
}

// Login verifies the password and mints a session token
func (s *Service) Login(ctx context.Context, loginID, password, requestID string) (string, *models.CustomerSession, error) {
	customer, err := s.store.CustomerByLogin(ctx, loginID)
	if err != nil {
		return "", nil, err
	}
	if customer == nil {
		return "", nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	sess := &models.CustomerSession{
		LoginID:         customer.LoginID,
		MembershipLevel: customer.MembershipLevel,
		OrderCount:      customer.OrderCount,
	}
	token, err := s.sessions.CreateCustomer(ctx, sess)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("customer_logged_in", fmt.Sprintf("Customer %s logged in", loginID), requestID, map[string]interface{}{
		"login_id":         loginID,
		"membership_level": customer.MembershipLevel,
	})
	return token, sess, nil
}

// Logout revokes a customer session token
func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.DeleteCustomer(ctx, token)
}

// StaffLogin checks the shared staff password and mints a staff session
func (s *Service) StaffLogin(ctx context.Context, position, password, requestID string) (string, error) {
	if s.staffPassword == "" || password != s.staffPassword {
		return "", ErrInvalidCredentials
	}
	if position == "" {
		position = "staff"
	}

	token, err := s.sessions.CreateStaff(ctx, &models.StaffSession{Position: position})
	if err != nil {
		return "", err
	}

	s.logger.Info("staff_logged_in", fmt.Sprintf("Staff member (%s) logged in", position), requestID, map[string]interface{}{
		"position": position,
	})
	return token, nil
}

// StaffLogout revokes a staff session token
func (s *Service) StaffLogout(ctx context.Context, token string) error {
	return s.sessions.DeleteStaff(ctx, token)
}
