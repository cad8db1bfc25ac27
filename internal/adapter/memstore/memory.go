package memstore

import (
	"sync"
	"time"

	"docsearch/internal/domain"
)

// MemoryStore keeps session reports in process memory. It holds at most
// maxSize sessions, evicting the least recently used, and drops entries older
// than ttl on access.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type entry struct {
	stored domain.StoredReport
}

func NewMemoryStore(maxSize int, ttl time.Duration) *MemoryStore {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &MemoryStore{
		entries: make(map[string]*entry),
		order:   make([]string, 0, maxSize),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) Put(sessionID string, report domain.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{stored: domain.StoredReport{
		SessionID: sessionID,
		CreatedAt: s.now().UTC(),
		Report:    report,
	}}

	if _, exists := s.entries[sessionID]; exists {
		s.entries[sessionID] = e
		s.moveToEnd(sessionID)
		return nil
	}

	if len(s.entries) >= s.maxSize {
		s.evictOldest()
	}

	s.entries[sessionID] = e
	s.order = append(s.order, sessionID)
	return nil
}

func (s *MemoryStore) Get(sessionID string) (domain.StoredReport, bool, error) {
	s.mu.RLock()
	e, exists := s.entries[sessionID]
	s.mu.RUnlock()

	if !exists {
		return domain.StoredReport{}, false, nil
	}

	if s.now().Sub(e.stored.CreatedAt) > s.ttl {
		s.mu.Lock()
		delete(s.entries, sessionID)
		s.removeFromOrder(sessionID)
		s.mu.Unlock()
		return domain.StoredReport{}, false, nil
	}

	s.mu.Lock()
	s.moveToEnd(sessionID)
	s.mu.Unlock()

	return e.stored, true, nil
}

func (s *MemoryStore) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, sessionID)
	s.removeFromOrder(sessionID)
	return nil
}

func (s *MemoryStore) Sweep(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.stored.CreatedAt.Before(cutoff) {
			delete(s.entries, id)
			s.removeFromOrder(id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
	s.order = s.order[:0]
	return nil
}

func (s *MemoryStore) evictOldest() {
	if len(s.order) == 0 {
		return
	}
	oldest := s.order[0]
	s.order = s.order[1:]
	delete(s.entries, oldest)
}

func (s *MemoryStore) moveToEnd(id string) {
	s.removeFromOrder(id)
	s.order = append(s.order, id)
}

func (s *MemoryStore) removeFromOrder(id string) {
	for i, k := range s.order {
		if k == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}
