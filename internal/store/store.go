// Package store is the single CRUD abstraction behind every planner list:
// guests, budget items, vendors. Each list is a Collection of one entity type.
package store

import (
	"context"
	"errors"
	"sync"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate id")
)

type Entity interface {
	Key() string
	Validate() error
}

type Collection[T Entity] interface {
	Add(ctx context.Context, item T) error
	Get(ctx context.Context, id string) (T, error)
	Update(ctx context.Context, item T) error
	Remove(ctx context.Context, id string) error
	// List returns the items accepted by keep in insertion order; a nil keep
	// returns everything.
	List(ctx context.Context, keep func(T) bool) ([]T, error)
}

// Memory is a Collection held in process memory.
type Memory[T Entity] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
}

func NewMemory[T Entity]() *Memory[T] {
	return &Memory[T]{items: make(map[string]T)}
}

func (m *Memory[T]) Add(_ context.Context, item T) error {
	if err := item.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.Key()]; ok {
		return ErrDuplicate
	}
	m.items[item.Key()] = item
	m.order = append(m.order, item.Key())
	return nil
}

func (m *Memory[T]) Get(_ context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		var zero T
		return zero, ErrNotFound
	}
	return item, nil
}

func (m *Memory[T]) Update(_ context.Context, item T) error {
	if err := item.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.Key()]; !ok {
		return ErrNotFound
	}
	m.items[item.Key()] = item
	return nil
}

func (m *Memory[T]) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return ErrNotFound
	}
	delete(m.items, id)
	for i, key := range m.order {
		if key == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory[T]) List(_ context.Context, keep func(T) bool) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.order))
	for _, key := range m.order {
		item := m.items[key]
		if keep == nil || keep(item) {
			out = append(out, item)
		}
	}
	return out, nil
}
