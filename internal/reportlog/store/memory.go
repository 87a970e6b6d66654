package store

import (
	"context"
	"sync"

	"github.com/shandysiswandi/reportlog/internal/pkg/pkgerror"
	"github.com/shandysiswandi/reportlog/internal/reportlog/entity"
)

const DefaultCapacity = 256

// InMemoryLedger keeps the most recent delivery outcomes in a ring. Older
// records are overwritten once capacity is reached.
type InMemoryLedger struct {
	mu    sync.RWMutex
	ring  []entity.Delivery
	next  int
	count int
	total int64
	index map[string]int
}

func NewInMemoryLedger(capacity int) *InMemoryLedger {
	if capacity < 1 {
		capacity = DefaultCapacity
	}

	return &InMemoryLedger{
		ring:  make([]entity.Delivery, capacity),
		index: make(map[string]int, capacity),
	}
}

func (s *InMemoryLedger) Record(ctx context.Context, d entity.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == len(s.ring) {
		old := s.ring[s.next]
		if pos, ok := s.index[old.CorrelationID]; ok && pos == s.next {
			delete(s.index, old.CorrelationID)
		}
	} else {
		s.count++
	}

	s.ring[s.next] = d
	if d.CorrelationID != "" {
		s.index[d.CorrelationID] = s.next
	}
	s.next = (s.next + 1) % len(s.ring)
	s.total++

	return nil
}

// List returns up to limit records, newest first, and the number of records
// ever written.
func (s *InMemoryLedger) List(ctx context.Context, limit int) ([]entity.Delivery, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit < 1 || limit > s.count {
		limit = s.count
	}

	items := make([]entity.Delivery, 0, limit)
	for i := 1; i <= limit; i++ {
		pos := (s.next - i + len(s.ring)) % len(s.ring)
		items = append(items, s.ring[pos])
	}

	return items, s.total, nil
}

// Find returns the latest record for correlationID.
func (s *InMemoryLedger) Find(ctx context.Context, correlationID string) (entity.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[correlationID]
	if !ok {
		return entity.Delivery{}, pkgerror.ErrNotFound
	}

	return s.ring[pos], nil
}
