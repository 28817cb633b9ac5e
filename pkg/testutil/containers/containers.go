//go:build integration

// Package containers starts throwaway databases for integration tests.
// A container is started on first use and shared by every test in the
// package; Ryuk removes it when the test binary exits.
package containers

import (
	"sync"
	"testing"
)

// Manager hands out one Postgres container per migration directory.
type Manager struct {
	mu       sync.Mutex
	postgres map[string]*PostgresContainer
}

var (
	globalManager *Manager
	initOnce      sync.Once
)

// GetManager returns the package-wide manager.
func GetManager() *Manager {
	initOnce.Do(func() {
		globalManager = &Manager{postgres: make(map[string]*PostgresContainer)}
	})
	return globalManager
}

// GetPostgres returns a Postgres container with the migrations in dir
// applied, starting it on first use.
func (m *Manager) GetPostgres(t *testing.T, dir string) *PostgresContainer {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	if pc, ok := m.postgres[dir]; ok {
		return pc
	}
	pc := NewPostgresContainer(t, dir)
	m.postgres[dir] = pc
	return pc
}
