// Package mem is the in-memory storage backend. Unit tests and short-lived
// page contexts use it in place of the bolt store.
package mem

import (
	"sync"

	"github.com/wallet-works/wallet-agent/agent/storage/api"
)

type Store struct {
	l sync.RWMutex
	m map[string][]byte
}

func New() *Store {
	return &Store{m: make(map[string][]byte)}
}

func (s *Store) Get(key string) (value []byte, err error) {
	s.l.RLock()
	defer s.l.RUnlock()

	d, ok := s.m[key]
	if !ok {
		return nil, api.ErrNotFound
	}
	return append(d[:0:0], d...), nil
}

func (s *Store) GetAll() (values map[string][]byte, err error) {
	s.l.RLock()
	defer s.l.RUnlock()

	values = make(map[string][]byte, len(s.m))
	for k, v := range s.m {
		values[k] = append(v[:0:0], v...)
	}
	return values, nil
}

func (s *Store) Set(key string, value []byte) error {
	s.l.Lock()
	defer s.l.Unlock()

	s.m[key] = append(value[:0:0], value...)
	return nil
}

func (s *Store) Remove(key string) error {
	s.l.Lock()
	defer s.l.Unlock()

	delete(s.m, key)
	return nil
}
