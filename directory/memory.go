package directory

import (
	"context"
	"errors"
	"sync"
)

// Memory is an in-process Directory for tests, demos and load generation.
type Memory struct {
	mu      sync.RWMutex
	byID    map[string]User
	byEmail map[string]string
}

// NewMemory returns a Memory seeded with users.
func NewMemory(users ...User) *Memory {
	m := &Memory{
		byID:    make(map[string]User),
		byEmail: make(map[string]string),
	}
	for _, u := range users {
		_ = m.Put(u)
	}
	return m
}

// Put inserts or replaces a user. Emails must stay unique.
func (m *Memory) Put(u User) error {
	if u.ID == "" {
		return errors.New("directory: user id is required")
	}
	email := NormalizeEmail(u.Email)

	m.mu.Lock()
	defer m.mu.Unlock()

	if owner, ok := m.byEmail[email]; ok && email != "" && owner != u.ID {
		return errors.New("directory: email already registered")
	}
	if prev, ok := m.byID[u.ID]; ok {
		delete(m.byEmail, NormalizeEmail(prev.Email))
	}
	m.byID[u.ID] = u
	if email != "" {
		m.byEmail[email] = u.ID
	}
	return nil
}

// Remove deletes a user; missing ids are ignored.
func (m *Memory) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev, ok := m.byID[id]; ok {
		delete(m.byEmail, NormalizeEmail(prev.Email))
		delete(m.byID, id)
	}
}

func (m *Memory) FindByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) FindByEmail(ctx context.Context, email string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byEmail[NormalizeEmail(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return m.byID[id], nil
}
