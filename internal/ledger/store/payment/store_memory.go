package payment

import (
	"context"
	"fmt"
	"sync"

	"tuition/internal/ledger/models"
)

// InMemoryStore keeps payments in process memory in id order.
type InMemoryStore struct {
	mu       sync.RWMutex
	nextID   int64
	payments []*models.Payment
}

// NewInMemory constructs an empty in-memory payment store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{nextID: 1}
}

func (s *InMemoryStore) Create(_ context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment == nil {
		return nil, fmt.Errorf("payment is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *payment
	stored.ID = s.nextID
	s.nextID++
	s.payments = append(s.payments, &stored)

	out := stored
	return &out, nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Payment, 0, len(s.payments))
	for _, p := range s.payments {
		if filter.UserID != nil && p.UserID != *filter.UserID {
			continue
		}
		c := *p
		out = append(out, &c)
	}
	return out, nil
}

func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}
