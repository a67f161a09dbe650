package browser

import (
	"errors"
	"sort"
	"sync"
)

// ErrStorageUnavailable is returned by writes to a store that is switched off,
// the way private browsing modes reject them.
var ErrStorageUnavailable = errors.New("storage unavailable")

// MemoryStorage is an in-memory key/value store.
type MemoryStorage struct {
	mu          sync.RWMutex
	items       map[string]string
	unavailable bool
}

// NewMemoryStorage creates an empty store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

// Get returns a stored value. An unavailable store holds nothing.
func (s *MemoryStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.unavailable {
		return "", false
	}
	v, ok := s.items[key]
	return v, ok
}

// Set stores a value.
func (s *MemoryStorage) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable {
		return ErrStorageUnavailable
	}
	s.items[key] = value
	return nil
}

// SetUnavailable switches the store off or back on.
func (s *MemoryStorage) SetUnavailable(unavailable bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = unavailable
}

// Clear removes every item.
func (s *MemoryStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[string]string)
}

// Keys lists the stored keys in sorted order.
func (s *MemoryStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
