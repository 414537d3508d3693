package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"dinner-system/internal/models"
)

const (
	customerKeyPrefix = "session:customer:"
	staffKeyPrefix    = "session:staff:"
	sessionTTL        = 2 * time.Hour
)

// ErrNotFound means the token does not resolve to a live session
var ErrNotFound = errors.New("session not found")

// Store keeps customer and staff sessions in Redis, keyed by opaque tokens
type Store struct {
	client *redis.Client
}

// NewStore creates a session store backed by the given Redis client
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// CreateCustomer mints a token for a customer session
func (s *Store) CreateCustomer(ctx context.Context, sess *models.CustomerSession) (string, error) {
	token := uuid.NewString()
	if err := s.set(ctx, customerKeyPrefix+token, sess); err != nil {
		return "", err
	}
	return token, nil
}

// GetCustomer resolves a token to its customer session
func (s *Store) GetCustomer(ctx context.Context, token string) (*models.CustomerSession, error) {
	var sess models.CustomerSession
	if err := s.get(ctx, customerKeyPrefix+token, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// RefreshCustomer overwrites the session value for an existing token and
// renews its TTL. Used after successful placement so the stored loyalty tier
// reflects the commit.
func (s *Store) RefreshCustomer(ctx context.Context, token string, sess *models.CustomerSession) error {
	return s.set(ctx, customerKeyPrefix+token, sess)
}

// DeleteCustomer removes a customer session (logout)
func (s *Store) DeleteCustomer(ctx context.Context, token string) error {
	return s.client.Del(ctx, customerKeyPrefix+token).Err()
}

// CreateStaff mints a token for a staff session
func (s *Store) CreateStaff(ctx context.Context, sess *models.StaffSession) (string, error) {
	token := uuid.NewString()
	if err := s.set(ctx, staffKeyPrefix+token, sess); err != nil {
		return "", err
	}
	return token, nil
}

// GetStaff resolves a token to its staff session
func (s *Store) GetStaff(ctx context.Context, token string) (*models.StaffSession, error) {
	var sess models.StaffSession
	if err := s.get(ctx, staffKeyPrefix+token, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteStaff removes a staff session (logout)
func (s *Store) DeleteStaff(ctx context.Context, token string) error {
	return s.client.Del(ctx, staffKeyPrefix+token).Err()
}

func (s *Store) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return s.client.Set(ctx, key, data, sessionTTL).Err()
}

func (s *Store) get(ctx context.Context, key string, value interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read session: %w", err)
	}
	return json.Unmarshal(data, value)
}
