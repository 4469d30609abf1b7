package memory

import (
	"context"
	"sort"
	"sync"
)

// Store is an in-process key/value settings store.
type Store struct {
	mu    sync.RWMutex
	items map[string]string
}

func NewStore(seed map[string]string) *Store {
	s := &Store{items: make(map[string]string, len(seed))}
	for k, v := range seed {
		s.items[k] = v
	}
	return s
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

// Keys returns stored keys in lexical order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.items))
	for k := range s.items {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
