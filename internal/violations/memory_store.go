package violations

import (
	"context"
	"fmt"
	"sync"
	"time"
)

func memoryKey(groupID, userID int64) string {
	return fmt.Sprintf("%d:%d", groupID, userID)
}

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu         sync.RWMutex
	violations map[string][]*Violation
}

// NewMemoryStore creates an in-memory violation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		violations: make(map[string][]*Violation),
	}
}

func (s *MemoryStore) Record(ctx context.Context, v *Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *v
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	key := memoryKey(v.GroupID, v.UserID)
	s.violations[key] = append(s.violations[key], &cp)
	return nil
}

func (s *MemoryStore) CountsFor(ctx context.Context, groupID, userID int64) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	var c Counts
	for _, v := range s.violations[memoryKey(groupID, userID)] {
		c.Total++
		if v.CreatedAt.After(weekAgo) {
			c.Violations7d++
		}
		if v.CreatedAt.After(dayAgo) {
			c.Violations24h++
		}
	}
	return c, nil
}

func (s *MemoryStore) ListByUser(ctx context.Context, groupID, userID int64, limit int) ([]*Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.violations[memoryKey(groupID, userID)]
	if len(all) == 0 {
		return nil, nil
	}

	start := len(all) - limit
	if start < 0 {
		start = 0
	}

	// Most recent first
	result := make([]*Violation, 0, len(all)-start)
	for i := len(all) - 1; i >= start; i-- {
		cp := *all[i]
		result = append(result, &cp)
	}
	return result, nil
}
