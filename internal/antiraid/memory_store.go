package antiraid

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[int64][]*Event
}

// NewMemoryStore creates an in-memory raid event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: make(map[int64][]*Event),
	}
}

func (s *MemoryStore) Record(ctx context.Context, ev *Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *ev
	cp.AffectedUsers = append([]int64(nil), ev.AffectedUsers...)
	s.events[ev.GroupID] = append(s.events[ev.GroupID], &cp)
	return nil
}

func (s *MemoryStore) ListByGroup(ctx context.Context, groupID int64, limit int) ([]*Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.events[groupID]
	if len(all) == 0 {
		return nil, nil
	}

	start := len(all) - limit
	if start < 0 {
		start = 0
	}

	// Most recent first
	result := make([]*Event, 0, len(all)-start)
	for i := len(all) - 1; i >= start; i-- {
		cp := *all[i]
		cp.AffectedUsers = append([]int64(nil), all[i].AffectedUsers...)
		result = append(result, &cp)
	}
	return result, nil
}
