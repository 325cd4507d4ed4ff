package risk

import (
	"context"
	"fmt"
	"sync"
)

// memoryKey identifies a (group, user) pair.
func memoryKey(groupID, userID int64) string {
	return fmt.Sprintf("%d:%d", groupID, userID)
}

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments map[string][]*Assessment
}

// NewMemoryStore creates an in-memory assessment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assessments: make(map[string][]*Assessment),
	}
}

func (s *MemoryStore) Record(ctx context.Context, a *Assessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	key := memoryKey(a.GroupID, a.UserID)
	s.assessments[key] = append(s.assessments[key], &cp)
	return nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, groupID, userID int64, limit int) ([]*Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.assessments[memoryKey(groupID, userID)]
	if len(all) == 0 {
		return nil, nil
	}

	start := len(all) - limit
	if start < 0 {
		start = 0
	}

	// Most recent first
	result := make([]*Assessment, 0, len(all)-start)
	for i := len(all) - 1; i >= start; i-- {
		cp := *all[i]
		result = append(result, &cp)
	}
	return result, nil
}
