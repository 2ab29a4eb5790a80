package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and for anything that does not
// need persistence.
type MemoryStore struct {
	mu       sync.RWMutex
	students map[string]StudentRecord
	admins   map[string]AdminAccount
	order    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		students: map[string]StudentRecord{},
		admins:   map[string]AdminAccount{},
	}
}

// SeedAdmin registers an admin account without going through the file
// seeding path.
func (s *MemoryStore) SeedAdmin(admin AdminAccount) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.admins[admin.Username] = admin
}

func (s *MemoryStore) Get(ctx context.Context, username string) (StudentRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.students[username]
	return record, ok, nil
}

func (s *MemoryStore) Upsert(ctx context.Context, record StudentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.students[record.Username]; !ok {
		s.order = append(s.order, record.Username)
	}
	s.students[record.Username] = record
	return nil
}

func (s *MemoryStore) All(ctx context.Context) ([]StudentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StudentRecord, 0, len(s.order))
	for _, username := range s.order {
		out = append(out, s.students[username])
	}
	return out, nil
}

func (s *MemoryStore) GetAdmin(ctx context.Context, username string) (AdminAccount, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.admins[username]
	return admin, ok, nil
}
