package trust

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory implementation of Store for demo/test use.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an in-memory trust store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Get(ctx context.Context, groupID, userID int64) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.records[key(groupID, userID)]
	if !ok {
		return 0, false, nil
	}
	return r.Score, true, nil
}

func (s *MemoryStore) Set(ctx context.Context, groupID, userID int64, score float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key(groupID, userID)] = &Record{
		GroupID:   groupID,
		UserID:    userID,
		Score:     score,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *MemoryStore) ListInactive(ctx context.Context, cutoff time.Time) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Record
	for _, r := range s.records {
		if r.UpdatedAt.Before(cutoff) {
			cp := *r
			result = append(result, &cp)
		}
	}
	return result, nil
}
