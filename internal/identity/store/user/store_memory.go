package user

import (
	"context"
	"fmt"
	"sync"

	"tuition/internal/identity/models"
	"tuition/internal/sentinel"
)

// Error Contract:
// - Create returns ErrAlreadyUsed when the email is already registered,
//   compared by models.EmailKey
// - FindByID returns ErrNotFound when no user has the id
// - Infrastructure failures are returned wrapped with context

// InMemoryStore keeps users in process memory. Ids start at 1 and grow by
// one per successful registration.
type InMemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	users   []*models.User
	byEmail map[string]struct{}
}

// NewInMemory constructs an empty in-memory user store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		nextID:  1,
		byEmail: make(map[string]struct{}),
	}
}

func (s *InMemoryStore) Create(_ context.Context, user *models.User) (*models.User, error) {
	if user == nil {
		return nil, fmt.Errorf("user is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := models.EmailKey(user.Email)
	if _, taken := s.byEmail[key]; taken {
		return nil, fmt.Errorf("email %s: %w", user.Email, sentinel.ErrAlreadyUsed)
	}

	stored := *user
	stored.ID = s.nextID
	s.nextID++
	s.users = append(s.users, &stored)
	s.byEmail[key] = struct{}{}

	out := stored
	return &out, nil
}

func (s *InMemoryStore) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		c := *u
		out = append(out, &c)
	}
	return out, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// ids are dense and start at 1
	if id < 1 || id > int64(len(s.users)) {
		return nil, fmt.Errorf("user %d: %w", id, sentinel.ErrNotFound)
	}
	c := *s.users[id-1]
	return &c, nil
}

// Ping always succeeds; it lets the memory store share readiness wiring
// with the SQL stores.
func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}
